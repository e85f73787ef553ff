package router

import (
	"context"
	"errors"
	"testing"

	"github.com/agendai/agendai-go/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingLoader struct {
	loaded []string
	err    error
}

func (l *recordingLoader) Load(_ context.Context, name string, done func()) error {
	l.loaded = append(l.loaded, name)
	if done != nil {
		done()
	}
	return l.err
}

func adminSession() *domain.Session {
	return &domain.Session{UserType: domain.RoleAdmin, UserData: domain.AuthUser{ID: "u1", Role: domain.RoleAdmin}}
}

func companySession() *domain.Session {
	return &domain.Session{UserType: domain.RoleCompany, UserData: domain.AuthUser{ID: "u2", Role: domain.RoleCompany}}
}

func newTestRouter(t *testing.T) (*Router, *recordingLoader) {
	t.Helper()
	loader := &recordingLoader{}
	r, err := New(nil, loader, zap.NewNop())
	require.NoError(t, err)
	return r, loader
}

func TestResolve(t *testing.T) {
	r, _ := newTestRouter(t)

	tests := []struct {
		name     string
		path     string
		session  *domain.Session
		state    State
		view     string
		redirect string
	}{
		{"root unauthenticated", "/", nil, StatePublic, "login", ""},
		{"terms unauthenticated", "#/terms", nil, StatePublic, "login", ""},
		{"login as admin", "/login", adminSession(), StatePublicRedirect, "", "/admin/dashboard"},
		{"root as company", "/", companySession(), StatePublicRedirect, "", "/company/dashboard"},
		{"protected unauthenticated", "/admin/plans", nil, StateLoginRedirect, "", "/login"},
		{"unknown unauthenticated", "/nowhere", nil, StateLoginRedirect, "", "/login"},
		{"admin plans", "/admin/plans", adminSession(), StateProtected, "admin-plans", ""},
		{"trailing slash and query", "#/admin/companies/?page=2", adminSession(), StateProtected, "admin-companies", ""},
		{"derived view name", "/company/reports/monthly", companySession(), StateProtected, "company-reports-monthly", ""},
		{"company into admin", "/admin/dashboard", companySession(), StateRoleRedirect, "", "/company/dashboard"},
		{"admin into company", "/company/dashboard", adminSession(), StateRoleRedirect, "", "/admin/dashboard"},
		{"bare prefix", "/admin", adminSession(), StateRoleRedirect, "", "/admin/dashboard"},
		{"unknown authenticated", "/nowhere", adminSession(), StateNotFound, "not-found", ""},
		{"invalid session", "/admin/plans", &domain.Session{UserType: "guest"}, StateLoginRedirect, "", "/login"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := r.Resolve(tt.path, tt.session)
			assert.Equal(t, tt.state, d.State, d.State.String())
			assert.Equal(t, tt.view, d.View)
			assert.Equal(t, tt.redirect, d.Redirect)
		})
	}
}

func TestResolve_UnauthenticatedNeverRendersProtected(t *testing.T) {
	r, _ := newTestRouter(t)
	for path := range r.table.Views {
		d := r.Resolve(path, nil)
		if d.View != "" {
			assert.Equal(t, "login", d.View, path)
		}
	}
}

func TestNavigate_FollowsRedirects(t *testing.T) {
	r, loader := newTestRouter(t)
	ctx := context.Background()

	d, ok, err := r.Navigate(ctx, "/company/dashboard", adminSession(), nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/admin/dashboard", d.Path)
	assert.Equal(t, "/admin/dashboard", r.Current())
	assert.Equal(t, []string{"admin-dashboard"}, loader.loaded)
}

func TestNavigate_ActivePathIsNoop(t *testing.T) {
	r, loader := newTestRouter(t)
	ctx := context.Background()

	_, ok, err := r.Navigate(ctx, "/admin/plans", adminSession(), nil)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = r.Navigate(ctx, "#/admin/plans/", adminSession(), nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, loader.loaded, 1)

	r.Reset()
	_, ok, err = r.Navigate(ctx, "/admin/plans", adminSession(), nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, loader.loaded, 2)
}

func TestNavigate_UnauthenticatedEndsInLogin(t *testing.T) {
	r, loader := newTestRouter(t)

	d, ok, err := r.Navigate(context.Background(), "/admin/companies", nil, nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/login", r.Current())
	assert.Equal(t, StatePublic, d.State)
	assert.Equal(t, []string{"login"}, loader.loaded)
}

func TestNavigate_LoaderErrorStillMovesCurrent(t *testing.T) {
	r, loader := newTestRouter(t)
	loader.err = errors.New("boom")

	_, ok, err := r.Navigate(context.Background(), "/admin/reports", adminSession(), nil)
	require.Error(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/admin/reports", r.Current())
}

func TestNavigate_RedirectLoop(t *testing.T) {
	table := &Table{
		Login:      "/login",
		NotFound:   "not-found",
		Public:     []string{"/login"},
		Dashboards: map[string]string{"admin": "/company/dashboard"},
		Prefixes:   map[string]string{"admin": "/admin", "company": "/company"},
	}
	r, err := New(table, &recordingLoader{}, zap.NewNop())
	require.NoError(t, err)

	_, _, err = r.Navigate(context.Background(), "/company/x", adminSession(), nil)
	assert.ErrorContains(t, err, "redirect loop")
}

func TestParseTable(t *testing.T) {
	_, err := ParseTable([]byte("login: /login\n"))
	assert.Error(t, err)

	_, err = ParseTable([]byte("login: /login\nnotFound: nf\nprefixes:\n  admin: /admin\n"))
	assert.ErrorContains(t, err, "no dashboard")

	_, err = ParseTable([]byte("login: /login\nnotFound: nf\nprefixes:\n  admin: /admin\ndashboards:\n  admin: /elsewhere\n"))
	assert.ErrorContains(t, err, "outside prefix")

	_, err = ParseTable([]byte(":\n\t- bad"))
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "/", Normalize(""))
	assert.Equal(t, "/", Normalize("#"))
	assert.Equal(t, "/", Normalize("#/"))
	assert.Equal(t, "/login", Normalize("login"))
	assert.Equal(t, "/admin/plans", Normalize("#/admin/plans/?x=1"))
	assert.Equal(t, "#/admin/plans", Hash("/admin/plans/"))
}
