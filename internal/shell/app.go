// Package shell is the client application shell: it owns authentication
// state and history, and drives the router and view loader.
package shell

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/agendai/agendai-go/internal/clientstore"
	"github.com/agendai/agendai-go/internal/domain"
	"github.com/agendai/agendai-go/internal/router"
	"github.com/agendai/agendai-go/internal/viewloader"

	"go.uber.org/zap"
)

// State is a snapshot of the shell.
type State struct {
	IsAuthenticated bool
	UserType        string
	UserData        domain.AuthUser
	CurrentView     string
	CurrentPath     string
}

// Authenticator exchanges credentials for a session.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*domain.LoginResponse, error)
}

// App is the application shell.
type App struct {
	store  *clientstore.Store
	auth   Authenticator
	router *router.Router
	loader *viewloader.Loader
	logger *zap.Logger

	mu      sync.Mutex
	booted  bool
	state   State
	token   string
	history []string
}

// New creates the shell over the primary store.
func New(store *clientstore.Store, auth Authenticator, loader *viewloader.Loader, logger *zap.Logger) (*App, error) {
	r, err := router.New(nil, loader, logger)
	if err != nil {
		return nil, fmt.Errorf("create router: %w", err)
	}
	return &App{
		store:  store,
		auth:   auth,
		router: r,
		loader: loader,
		logger: logger,
	}, nil
}

// update is the only place state changes.
func (a *App) update(fn func(s *State)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(&a.state)
}

// State returns a copy of the current state.
func (a *App) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Hash returns the location fragment for the current path.
func (a *App) Hash() string {
	return router.Hash(a.State().CurrentPath)
}

// Token returns the bearer token of the active session.
func (a *App) Token() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.token
}

// Document returns the render root.
func (a *App) Document() *viewloader.Document {
	return a.loader.Document()
}

func (a *App) session() *domain.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.state.IsAuthenticated {
		return nil
	}
	return &domain.Session{UserType: a.state.UserType, UserData: a.state.UserData, Token: a.token}
}

// Init restores the session and shows the first view: start when given,
// otherwise the user's dashboard, or login without a session. Later calls do
// nothing until Logout.
func (a *App) Init(ctx context.Context, start string) error {
	a.mu.Lock()
	if a.booted {
		a.mu.Unlock()
		return nil
	}
	a.booted = true
	a.mu.Unlock()

	session, err := clientstore.GetObject[domain.Session](ctx, a.store, clientstore.KeyAuth)
	if err != nil {
		a.logger.Warn("shell: session unreadable", zap.Error(err))
		session = nil
	}

	if !session.Valid() {
		if session != nil {
			a.logger.Warn("shell: discarding invalid session")
			_ = a.store.Remove(ctx, clientstore.KeyAuth)
		}
		return a.navigate(ctx, "/login", true)
	}

	a.setSession(session)
	a.logger.Info("shell: session restored",
		zap.String("user_id", session.UserData.ID),
		zap.String("user_type", session.UserType),
	)

	if start == "" || router.Normalize(start) == "/" {
		start = a.router.Dashboard(session.UserType)
	}
	return a.navigate(ctx, start, true)
}

func (a *App) setSession(s *domain.Session) {
	a.mu.Lock()
	a.token = s.Token
	a.mu.Unlock()
	a.update(func(st *State) {
		st.IsAuthenticated = true
		st.UserType = s.UserType
		st.UserData = s.UserData
	})
}

// Navigate pushes path onto history and shows it.
func (a *App) Navigate(ctx context.Context, path string) error {
	return a.navigate(ctx, path, true)
}

func (a *App) navigate(ctx context.Context, path string, push bool) error {
	d, ok, err := a.router.Navigate(ctx, path, a.session(), nil)
	if !ok {
		return err
	}

	a.update(func(s *State) {
		s.CurrentPath = d.Path
		s.CurrentView = d.View
	})
	if push {
		a.mu.Lock()
		if n := len(a.history); n == 0 || a.history[n-1] != d.Path {
			a.history = append(a.history, d.Path)
		}
		a.mu.Unlock()
	}

	if err != nil {
		a.logger.Warn("shell: view failed", zap.String("path", d.Path), zap.Error(err))
	}
	return err
}

// FollowLink handles a click on href. Only links carrying the navigation
// marker are intercepted; it reports whether the link was handled.
func (a *App) FollowLink(ctx context.Context, href string, marked bool) (bool, error) {
	if !marked {
		return false, nil
	}
	u, err := url.Parse(href)
	if err != nil || u.IsAbs() || u.Host != "" {
		return false, nil
	}
	path := u.Fragment
	if !strings.HasPrefix(href, "#") {
		path = u.Path
	}
	return true, a.Navigate(ctx, path)
}

// PopState goes back one entry. It reports false when there is no history.
func (a *App) PopState(ctx context.Context) (bool, error) {
	a.mu.Lock()
	if len(a.history) < 2 {
		a.mu.Unlock()
		return false, nil
	}
	a.history = a.history[:len(a.history)-1]
	prev := a.history[len(a.history)-1]
	a.mu.Unlock()

	return true, a.navigate(ctx, prev, false)
}

// History returns the visited paths, oldest first.
func (a *App) History() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.history...)
}

// Login authenticates, stores the session and opens the user's dashboard.
func (a *App) Login(ctx context.Context, email, password string) error {
	if a.auth == nil {
		return errors.New("shell: no authenticator configured")
	}
	resp, err := a.auth.Login(ctx, email, password)
	if err != nil {
		return err
	}

	session := &domain.Session{UserType: resp.User.Role, UserData: resp.User, Token: resp.Token}
	if !session.Valid() {
		return &domain.ErrUnauthorized{Message: "sessão inválida"}
	}
	if err := clientstore.SetObject(ctx, a.store, clientstore.KeyAuth, session); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	if err := clientstore.SetObject(ctx, a.store, clientstore.KeyToken, &resp.Token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}

	a.setSession(session)
	a.logger.Info("shell: logged in", zap.String("user_id", resp.User.ID), zap.String("user_type", session.UserType))

	return a.Navigate(ctx, a.router.Dashboard(session.UserType))
}

// Logout clears the session, discards every piece of in-memory state and
// boots again at login.
func (a *App) Logout(ctx context.Context) error {
	if err := a.store.Remove(ctx, clientstore.KeyAuth); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	if err := a.store.Remove(ctx, clientstore.KeyToken); err != nil {
		return fmt.Errorf("remove token: %w", err)
	}

	a.mu.Lock()
	a.booted = false
	a.token = ""
	a.history = nil
	a.state = State{}
	a.mu.Unlock()

	a.loader.Reset()
	a.router.Reset()
	a.logger.Info("shell: logged out")

	return a.Init(ctx, "")
}
