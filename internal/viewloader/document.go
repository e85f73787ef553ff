package viewloader

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Failure records the last view that could not be fetched.
type Failure struct {
	View  string
	Err   error
	retry func(context.Context) error
}

// Document is the render root views are mounted into.
type Document struct {
	mu      sync.RWMutex
	view    string
	title   string
	body    *html.Node
	failure *Failure
}

// NewDocument returns an empty render root.
func NewDocument() *Document {
	return &Document{title: appTitle}
}

func (d *Document) mount(v *View, keepFailure bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.view = v.Name
	d.title = v.Title
	d.body = v.Body
	if !keepFailure {
		d.failure = nil
	}
}

// edit runs fn with the document locked against readers.
func (d *Document) edit(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn()
}

func (d *Document) showError(name string, err error, retry func(context.Context) error) {
	panel := errorPanel(name)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.view = name
	d.title = "Erro | " + appTitle
	d.body = panel
	d.failure = &Failure{View: name, Err: err, retry: retry}
}

// View returns the mounted view name.
func (d *Document) View() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.view
}

// Title returns the document title.
func (d *Document) Title() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.title
}

// Failure returns the pending fetch failure, if any.
func (d *Document) Failure() *Failure {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.failure
}

// Retry reloads the view recorded by the last failure.
func (d *Document) Retry(ctx context.Context) error {
	f := d.Failure()
	if f == nil {
		return errors.New("viewloader: nothing to retry")
	}
	return f.retry(ctx)
}

// HTML renders the mounted body.
func (d *Document) HTML() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.body == nil {
		return ""
	}
	var buf bytes.Buffer
	if err := html.Render(&buf, d.body); err != nil {
		return ""
	}
	return buf.String()
}

// Find returns the first mounted element with the given id.
func (d *Document) Find(id string) *html.Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return findByID(d.body, id)
}

// Reset unmounts everything.
func (d *Document) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.view = ""
	d.title = appTitle
	d.body = nil
	d.failure = nil
}

func errorPanel(name string) *html.Node {
	panel := element(atom.Div, "class", "view view-error", "id", "view-error")
	msg := element(atom.P)
	msg.AppendChild(&html.Node{Type: html.TextNode, Data: "Não foi possível carregar a página " + name + "."})
	btn := element(atom.Button, "data-retry", name)
	btn.AppendChild(&html.Node{Type: html.TextNode, Data: "Tentar novamente"})
	panel.AppendChild(msg)
	panel.AppendChild(btn)
	return panel
}

func element(a atom.Atom, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: a.String(), DataAtom: a}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

func findByID(n *html.Node, id string) *html.Node {
	if n == nil {
		return nil
	}
	if n.Type == html.ElementNode && attr(n, "id") == id {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
