// Package viewloader fetches HTML view fragments, mounts them into a
// Document and runs their scripts in document order.
package viewloader

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	appTitle = "AgendAI"

	// NotFoundView is loaded when a fragment cannot be fetched.
	NotFoundView = "not-found"
)

// Script is one <script> element of a fragment.
type Script struct {
	View   string
	Src    string // empty for inline scripts
	Source []byte
}

// Inline reports whether the script had no src attribute.
func (s Script) Inline() bool { return s.Src == "" }

// ScriptRunner executes scripts extracted from a fragment.
type ScriptRunner interface {
	Run(ctx context.Context, s Script) error
}

// View is a parsed fragment.
type View struct {
	Name    string
	Title   string
	Body    *html.Node
	Scripts []Script
}

// Find returns the first element of the view with the given id.
func (v *View) Find(id string) *html.Node {
	return findByID(v.Body, id)
}

// Hook initializes a view after it is mounted and its scripts ran. It runs
// with the Document locked, so it must not call Document methods.
type Hook func(ctx context.Context, v *View) error

// Option configures a Loader.
type Option func(*Loader)

// WithRunner sets the script runner. The default logs and skips scripts.
func WithRunner(r ScriptRunner) Option {
	return func(l *Loader) { l.runner = r }
}

// WithSettleDelay sets the pause before the load callback fires.
func WithSettleDelay(d time.Duration) Option {
	return func(l *Loader) { l.settle = d }
}

// WithHook registers a post-render hook for a view name.
func WithHook(view string, h Hook) Option {
	return func(l *Loader) { l.hooks[view] = append(l.hooks[view], h) }
}

// Loader loads named views into a Document.
type Loader struct {
	fetcher Fetcher
	doc     *Document
	runner  ScriptRunner
	settle  time.Duration
	logger  *zap.Logger

	hooks map[string][]Hook

	gen atomic.Uint64

	// mu serializes mounting and script execution across loads.
	mu     sync.Mutex
	loaded map[string]bool
}

// New creates a loader.
func New(fetcher Fetcher, doc *Document, logger *zap.Logger, opts ...Option) *Loader {
	l := &Loader{
		fetcher: fetcher,
		doc:     doc,
		logger:  logger,
		hooks:   make(map[string][]Hook),
		loaded:  make(map[string]bool),
	}
	l.runner = logRunner{logger: logger}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Document returns the render root.
func (l *Loader) Document() *Document { return l.doc }

// Load fetches, mounts and initializes the named view, then calls done after
// the settle delay. A response that arrives after a newer Load started is
// discarded.
func (l *Loader) Load(ctx context.Context, name string, done func()) error {
	gen := l.gen.Add(1)
	ref := FragmentPath(name)

	body, err := l.fetcher.Fetch(ctx, ref)
	if l.gen.Load() != gen {
		l.logger.Debug("view: stale response discarded", zap.String("view", name))
		return nil
	}
	if err != nil {
		l.logger.Warn("view: fetch failed", zap.String("view", name), zap.Error(err))
		l.doc.showError(name, err, func(ctx context.Context) error {
			return l.Load(ctx, name, done)
		})
		if name == NotFoundView {
			return fmt.Errorf("load view %s: %w", name, err)
		}
		l.load404(ctx, gen)
		return fmt.Errorf("load view %s: %w", name, err)
	}

	view, err := Parse(name, body)
	if err != nil {
		return fmt.Errorf("parse view %s: %w", name, err)
	}

	l.mu.Lock()
	if l.gen.Load() != gen {
		l.mu.Unlock()
		return nil
	}
	l.doc.mount(view, false)
	l.runScripts(ctx, view)
	l.doc.edit(func() { l.runHooks(ctx, view) })
	l.mu.Unlock()

	l.logger.Debug("view loaded", zap.String("view", name), zap.Int("scripts", len(view.Scripts)))

	if done != nil {
		select {
		case <-time.After(l.settle):
			done()
		case <-ctx.Done():
		}
	}
	return nil
}

// load404 mounts the not-found view while keeping the failure record for retry.
// It gives up once a load newer than gen has started.
func (l *Loader) load404(ctx context.Context, gen uint64) {
	body, err := l.fetcher.Fetch(ctx, FragmentPath(NotFoundView))
	if l.gen.Load() != gen {
		l.logger.Debug("view: stale not-found discarded")
		return
	}
	if err != nil {
		l.logger.Warn("view: not-found view unavailable", zap.Error(err))
		return
	}
	view, err := Parse(NotFoundView, body)
	if err != nil {
		l.logger.Warn("view: not-found view unparsable", zap.Error(err))
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gen.Load() != gen {
		return
	}
	l.doc.mount(view, true)
	l.runScripts(ctx, view)
	l.doc.edit(func() { l.runHooks(ctx, view) })
}

func (l *Loader) runScripts(ctx context.Context, v *View) {
	for _, s := range v.Scripts {
		if !s.Inline() {
			if l.loaded[s.Src] {
				continue
			}
			src, err := l.fetcher.Fetch(ctx, s.Src)
			if err != nil {
				l.logger.Warn("view: script fetch failed", zap.String("view", v.Name), zap.String("src", s.Src), zap.Error(err))
				continue
			}
			s.Source = src
			l.loaded[s.Src] = true
		}
		if err := l.runner.Run(ctx, s); err != nil {
			l.logger.Warn("view: script failed", zap.String("view", v.Name), zap.String("src", s.Src), zap.Error(err))
		}
	}
}

func (l *Loader) runHooks(ctx context.Context, v *View) {
	for _, h := range l.hooks[v.Name] {
		if err := h(ctx, v); err != nil {
			l.logger.Warn("view: hook failed", zap.String("view", v.Name), zap.Error(err))
		}
	}
}

// Loaded reports whether an external script already ran.
func (l *Loader) Loaded(src string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded[src]
}

// Reset forgets loaded scripts and unmounts the document.
func (l *Loader) Reset() {
	l.gen.Add(1)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loaded = make(map[string]bool)
	l.doc.Reset()
}

// FragmentPath maps a view name to its fragment: admin-x is views/admin/x.html,
// company-x is views/company/x.html, anything else views/x.html.
func FragmentPath(name string) string {
	for _, role := range []string{"admin", "company"} {
		if rest, ok := strings.CutPrefix(name, role+"-"); ok && rest != "" {
			return path.Join("views", role, rest+".html")
		}
	}
	return path.Join("views", name+".html")
}

// FormatTitle turns "admin-companies" into "Admin Companies | AgendAI".
func FormatTitle(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	if len(words) == 0 {
		return appTitle
	}
	return strings.Join(words, " ") + " | " + appTitle
}

// Parse builds a View from a fragment. The first top-level element is the
// body; every script is detached from it and kept in document order.
func Parse(name string, fragment []byte) (*View, error) {
	ctxNode := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(bytes.NewReader(fragment), ctxNode)
	if err != nil {
		return nil, err
	}

	v := &View{Name: name, Title: FormatTitle(name)}

	var scriptNodes []*html.Node
	for _, n := range nodes {
		collectScripts(n, &scriptNodes)
	}
	for _, n := range scriptNodes {
		s := Script{View: name, Src: attr(n, "src")}
		if s.Inline() && n.FirstChild != nil {
			s.Source = []byte(n.FirstChild.Data)
		}
		v.Scripts = append(v.Scripts, s)
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}

	for _, n := range nodes {
		if n.Type == html.ElementNode && n.DataAtom != atom.Script {
			v.Body = n
			break
		}
	}
	if v.Body == nil {
		v.Body = element(atom.Div, "class", "view")
		for _, n := range nodes {
			if n.Type == html.ElementNode && n.DataAtom == atom.Script {
				continue
			}
			v.Body.AppendChild(n)
		}
	}
	return v, nil
}

func collectScripts(n *html.Node, out *[]*html.Node) {
	if n.Type == html.ElementNode && n.DataAtom == atom.Script {
		*out = append(*out, n)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectScripts(c, out)
	}
}

type logRunner struct {
	logger *zap.Logger
}

func (r logRunner) Run(_ context.Context, s Script) error {
	r.logger.Debug("script",
		zap.String("view", s.View),
		zap.String("src", s.Src),
		zap.Int("bytes", len(s.Source)),
	)
	return nil
}
