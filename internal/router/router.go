// Package router maps shell paths to views and enforces role-based access.
package router

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/agendai/agendai-go/internal/domain"

	"go.uber.org/zap"
)

// State is where a path resolved to.
type State int

const (
	StatePublic State = iota
	StatePublicRedirect
	StateLoginRedirect
	StateProtected
	StateRoleRedirect
	StateNotFound
)

func (s State) String() string {
	switch s {
	case StatePublic:
		return "public"
	case StatePublicRedirect:
		return "public-authenticated-redirect"
	case StateLoginRedirect:
		return "login-redirect"
	case StateProtected:
		return "protected"
	case StateRoleRedirect:
		return "protected-unauthorized-redirect"
	case StateNotFound:
		return "not-found"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Decision is the result of resolving one path. Exactly one of View and
// Redirect is set.
type Decision struct {
	State    State
	Path     string
	View     string
	Redirect string
}

// Loader renders a named view.
type Loader interface {
	Load(ctx context.Context, name string, done func()) error
}

// Router resolves paths against a Table and drives a Loader.
type Router struct {
	table  *Table
	loader Loader
	logger *zap.Logger

	mu      sync.Mutex
	current string
}

// New creates a router over table. A nil table uses the embedded one.
func New(table *Table, loader Loader, logger *zap.Logger) (*Router, error) {
	if table == nil {
		t, err := DefaultTable()
		if err != nil {
			return nil, err
		}
		table = t
	}
	return &Router{table: table, loader: loader, logger: logger}, nil
}

// Dashboard returns the home path of a user type.
func (r *Router) Dashboard(userType string) string {
	if d, ok := r.table.Dashboards[userType]; ok {
		return d
	}
	return r.table.Login
}

// Resolve decides what path shows for session. It has no side effects.
func (r *Router) Resolve(path string, session *domain.Session) Decision {
	path = Normalize(path)
	authed := session.Valid()

	if r.table.isPublic(path) {
		if authed {
			return Decision{State: StatePublicRedirect, Path: path, Redirect: r.Dashboard(session.UserType)}
		}
		return Decision{State: StatePublic, Path: path, View: r.table.viewFor(r.table.Login)}
	}

	if !authed {
		return Decision{State: StateLoginRedirect, Path: path, Redirect: r.table.Login}
	}

	role, ok := r.table.roleOf(path)
	if !ok {
		return Decision{State: StateNotFound, Path: path, View: r.table.NotFound}
	}
	if role != session.UserType {
		return Decision{State: StateRoleRedirect, Path: path, Redirect: r.Dashboard(session.UserType)}
	}
	if path == r.table.Prefixes[role] {
		return Decision{State: StateRoleRedirect, Path: path, Redirect: r.Dashboard(role)}
	}
	return Decision{State: StateProtected, Path: path, View: r.table.viewFor(path)}
}

// Navigate resolves path, follows redirects and loads the final view. It
// returns the decision that rendered. Navigating to the active path does
// nothing and returns a zero Decision with ok false.
func (r *Router) Navigate(ctx context.Context, path string, session *domain.Session, done func()) (d Decision, ok bool, err error) {
	path = Normalize(path)

	const maxRedirects = 4
	for i := 0; ; i++ {
		r.mu.Lock()
		active := r.current == path
		r.mu.Unlock()
		if active {
			return Decision{}, false, nil
		}

		d = r.Resolve(path, session)
		if d.Redirect == "" {
			break
		}
		if i == maxRedirects {
			return d, false, fmt.Errorf("router: redirect loop at %s", path)
		}
		r.logger.Debug("route redirect",
			zap.String("from", path),
			zap.String("to", d.Redirect),
			zap.Stringer("state", d.State),
		)
		path = d.Redirect
	}

	r.mu.Lock()
	r.current = d.Path
	r.mu.Unlock()

	r.logger.Debug("route render", zap.String("path", d.Path), zap.String("view", d.View), zap.Stringer("state", d.State))
	if err := r.loader.Load(ctx, d.View, done); err != nil {
		return d, true, err
	}
	return d, true, nil
}

// Current returns the active path.
func (r *Router) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Reset forgets the active path.
func (r *Router) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = ""
}

// Normalize turns "#/admin/companies/?x=1" into "/admin/companies".
func Normalize(path string) string {
	path = strings.TrimPrefix(strings.TrimSpace(path), "#")
	if u, err := url.Parse(path); err == nil {
		path = u.Path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return path
}

// Hash returns the fragment form of path.
func Hash(path string) string {
	return "#" + Normalize(path)
}
