package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/agendai/agendai-go/internal/clientstore"
	"github.com/agendai/agendai-go/internal/domain"
	"github.com/agendai/agendai-go/internal/infra/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type tiers struct {
	primary, secondary, offline *clientstore.Store
	metrics                     *observability.Metrics
	rec                         *Reconciler
}

func newTiers(t *testing.T) *tiers {
	t.Helper()
	logger := zap.NewNop()

	offlineDB, err := clientstore.OpenBadger("")
	require.NoError(t, err)
	t.Cleanup(func() { offlineDB.Close() })

	tr := &tiers{
		primary:   clientstore.New("primary", clientstore.NewMemory(), logger),
		secondary: clientstore.New("secondary", clientstore.NewMemory(), logger),
		offline:   clientstore.New("offline", offlineDB, logger),
		metrics:   observability.NewMetrics(),
	}
	tr.rec = New(tr.primary, tr.secondary, tr.offline, logger, WithMetrics(tr.metrics))
	return tr
}

func companies(t *testing.T, s *clientstore.Store) []domain.Company {
	t.Helper()
	list, err := clientstore.Get[domain.Company](context.Background(), s, clientstore.KeyCompanies)
	require.NoError(t, err)
	return list
}

func ids(list []domain.Company) []string {
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, c.ID)
	}
	return out
}

func put(t *testing.T, s *clientstore.Store, list ...domain.Company) {
	t.Helper()
	require.NoError(t, clientstore.Set(context.Background(), s, clientstore.KeyCompanies, list))
}

func TestReconcile_SeedsDefaultsWhenEverythingIsEmpty(t *testing.T) {
	tr := newTiers(t)

	outcome, err := tr.rec.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSeeded, outcome)

	want := ids(DefaultCompanies())
	assert.Equal(t, want, ids(companies(t, tr.primary)))
	assert.Equal(t, want, ids(companies(t, tr.secondary)))
	assert.Equal(t, want, ids(companies(t, tr.offline)))
	assert.Equal(t, float64(1), tr.metrics.ReconcileCount("seeded"))
}

func TestDeleteLastCompany_SetsClearedAndNeverReseeds(t *testing.T) {
	tr := newTiers(t)
	ctx := context.Background()

	put(t, tr.primary, domain.Company{ID: "only", Name: "Única"})
	_, err := tr.rec.Reconcile(ctx)
	require.NoError(t, err)

	require.NoError(t, tr.rec.DeleteCompany(ctx, "only", "admin@agendai.com"))
	assert.True(t, tr.primary.Flag(ctx, clientstore.KeyCompaniesCleared))

	for i := 0; i < 3; i++ {
		outcome, err := tr.rec.Reconcile(ctx)
		require.NoError(t, err)
		assert.Equal(t, OutcomeCleared, outcome)
	}

	assert.Empty(t, companies(t, tr.primary))
	assert.Empty(t, companies(t, tr.secondary))
	assert.Empty(t, companies(t, tr.offline))

	log, err := tr.primary.DeletionLog(ctx)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, "Única", log[0].Nome)
	assert.Equal(t, "admin@agendai.com", log[0].Usuario)
}

func TestDeleteLastCompany_ClearedSurvivesFreshPrimary(t *testing.T) {
	tr := newTiers(t)
	ctx := context.Background()

	put(t, tr.secondary, domain.Company{ID: "x", Name: "X"})
	outcome, err := tr.rec.Reconcile(ctx)
	require.NoError(t, err)
	require.Equal(t, OutcomeBackfill, outcome)
	require.NoError(t, tr.rec.DeleteCompany(ctx, "x", "admin"))

	assert.True(t, tr.secondary.Flag(ctx, clientstore.KeyCompaniesCleared))
	assert.True(t, tr.offline.Flag(ctx, clientstore.KeyCompaniesCleared))

	// A new process starts with an empty primary and the same persistent tiers.
	primary := clientstore.New("primary", clientstore.NewMemory(), zap.NewNop())
	next := New(primary, tr.secondary, tr.offline, zap.NewNop())

	outcome, err = next.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCleared, outcome)
	assert.Empty(t, companies(t, primary))
	assert.Empty(t, companies(t, tr.secondary))
	assert.Empty(t, companies(t, tr.offline))
	assert.True(t, primary.Flag(ctx, clientstore.KeyCompaniesCleared))

	visible, err := next.Companies(ctx)
	require.NoError(t, err)
	assert.Empty(t, visible)
}

func TestReconcile_ClearedFlagReachesLaggingTier(t *testing.T) {
	tr := newTiers(t)
	ctx := context.Background()

	require.NoError(t, tr.primary.SetFlag(ctx, clientstore.KeyCompaniesCleared, true))

	outcome, err := tr.rec.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCleared, outcome)
	assert.True(t, tr.secondary.Flag(ctx, clientstore.KeyCompaniesCleared))
	assert.True(t, tr.offline.Flag(ctx, clientstore.KeyCompaniesCleared))
}

func TestSaveCompany_ClearsFlagOnEveryTier(t *testing.T) {
	tr := newTiers(t)
	ctx := context.Background()

	put(t, tr.primary, domain.Company{ID: "only"})
	_, err := tr.rec.Reconcile(ctx)
	require.NoError(t, err)
	require.NoError(t, tr.rec.DeleteCompany(ctx, "only", "admin"))

	_, err = tr.rec.SaveCompany(ctx, domain.Company{Name: "Nova"})
	require.NoError(t, err)
	for _, s := range []*clientstore.Store{tr.primary, tr.secondary, tr.offline} {
		assert.False(t, s.Flag(ctx, clientstore.KeyCompaniesCleared), s.Name())
	}
}

func TestReconcile_SeedSkipsTombstonedDefaults(t *testing.T) {
	tr := newTiers(t)
	ctx := context.Background()

	defaults := DefaultCompanies()
	tombs := []domain.Tombstone{{ID: defaults[0].ID, DeletedAt: time.Now().UTC()}}
	require.NoError(t, clientstore.Set(ctx, tr.secondary, clientstore.KeyCompaniesTombstone, tombs))

	outcome, err := tr.rec.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSeeded, outcome)
	assert.Equal(t, ids(defaults[1:]), ids(companies(t, tr.primary)))
	assert.NotContains(t, ids(companies(t, tr.offline)), defaults[0].ID)
}

func TestReconcile_AllDefaultsTombstonedIsCleared(t *testing.T) {
	tr := newTiers(t)
	ctx := context.Background()

	var tombs []domain.Tombstone
	for _, c := range DefaultCompanies() {
		tombs = append(tombs, domain.Tombstone{ID: c.ID, DeletedAt: time.Now().UTC()})
	}
	require.NoError(t, clientstore.Set(ctx, tr.offline, clientstore.KeyCompaniesTombstone, tombs))

	outcome, err := tr.rec.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCleared, outcome)
	assert.Empty(t, companies(t, tr.primary))
	assert.True(t, tr.primary.Flag(ctx, clientstore.KeyCompaniesCleared))
}

func TestReconcile_BackfillsPrimaryFromSecondary(t *testing.T) {
	tr := newTiers(t)
	put(t, tr.secondary, domain.Company{ID: "s1"}, domain.Company{ID: "s2"})
	put(t, tr.offline, domain.Company{ID: "o1"})

	outcome, err := tr.rec.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeBackfill, outcome)
	assert.Equal(t, []string{"s1", "s2"}, ids(companies(t, tr.primary)))
	assert.Equal(t, []string{"s1", "s2"}, ids(companies(t, tr.offline)))
}

func TestReconcile_BackfillsFromOfflineAsLastResort(t *testing.T) {
	tr := newTiers(t)
	put(t, tr.offline, domain.Company{ID: "o1"})

	outcome, err := tr.rec.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeBackfill, outcome)
	assert.Equal(t, []string{"o1"}, ids(companies(t, tr.primary)))
	assert.Equal(t, []string{"o1"}, ids(companies(t, tr.secondary)))
}

func TestReconcile_PushesPrimary(t *testing.T) {
	tr := newTiers(t)
	put(t, tr.primary, domain.Company{ID: "p1"})

	outcome, err := tr.rec.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomePush, outcome)
	assert.Equal(t, []string{"p1"}, ids(companies(t, tr.secondary)))
	assert.Equal(t, []string{"p1"}, ids(companies(t, tr.offline)))

	outcome, err = tr.rec.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoop, outcome)
}

func TestReconcile_MergePrimaryWins(t *testing.T) {
	tr := newTiers(t)
	put(t, tr.primary, domain.Company{ID: "a", Name: "primary"}, domain.Company{ID: "b", Name: "primary"})
	put(t, tr.secondary, domain.Company{ID: "b", Name: "secondary"}, domain.Company{ID: "c", Name: "secondary"})

	outcome, err := tr.rec.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeMerge, outcome)

	for _, s := range []*clientstore.Store{tr.primary, tr.secondary, tr.offline} {
		got := companies(t, s)
		require.Equal(t, []string{"a", "b", "c"}, ids(got), s.Name())
		assert.Equal(t, "primary", got[1].Name, s.Name())
	}
}

func TestReconcile_TombstonedCompanyIsNotResurrected(t *testing.T) {
	tr := newTiers(t)
	ctx := context.Background()

	put(t, tr.primary, domain.Company{ID: "keep"}, domain.Company{ID: "gone"})
	_, err := tr.rec.Reconcile(ctx)
	require.NoError(t, err)

	require.NoError(t, tr.rec.DeleteCompany(ctx, "gone", "admin"))

	// A stale secondary replica still carries the deleted record.
	put(t, tr.secondary, domain.Company{ID: "keep"}, domain.Company{ID: "gone"})

	_, err = tr.rec.Reconcile(ctx)
	require.NoError(t, err)
	for _, s := range []*clientstore.Store{tr.primary, tr.secondary, tr.offline} {
		assert.Equal(t, []string{"keep"}, ids(companies(t, s)), s.Name())
	}
}

func TestGuard_RestoresAccidentalEmptyWrite(t *testing.T) {
	tr := newTiers(t)
	ctx := context.Background()

	put(t, tr.primary, domain.Company{ID: "a"}, domain.Company{ID: "b"})
	_, err := tr.rec.Reconcile(ctx)
	require.NoError(t, err)

	put(t, tr.primary)

	assert.Equal(t, []string{"a", "b"}, ids(companies(t, tr.primary)))
	assert.Equal(t, float64(1), tr.metrics.ReconcileCount("restored"))

	require.NoError(t, tr.primary.Remove(ctx, clientstore.KeyCompanies))
	assert.Equal(t, []string{"a", "b"}, ids(companies(t, tr.primary)))
}

func TestSaveCompany_ClearsFlagAndMirrors(t *testing.T) {
	tr := newTiers(t)
	ctx := context.Background()

	require.NoError(t, tr.primary.SetFlag(ctx, clientstore.KeyCompaniesCleared, true))

	saved, err := tr.rec.SaveCompany(ctx, domain.Company{Name: "Nova"})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())
	assert.False(t, tr.primary.Flag(ctx, clientstore.KeyCompaniesCleared))

	saved.Name = "Nova Editada"
	_, err = tr.rec.SaveCompany(ctx, saved)
	require.NoError(t, err)

	for _, s := range []*clientstore.Store{tr.primary, tr.secondary, tr.offline} {
		got := companies(t, s)
		require.Len(t, got, 1, s.Name())
		assert.Equal(t, "Nova Editada", got[0].Name, s.Name())
	}
	assert.Len(t, tr.rec.Snapshot(), 1)
}

func TestDeleteCompany_Missing(t *testing.T) {
	tr := newTiers(t)

	err := tr.rec.DeleteCompany(context.Background(), "nope", "admin")
	var nf *domain.ErrNotFound
	assert.ErrorAs(t, err, &nf)
}

type downBackend struct{}

var errDown = errors.New("connection refused")

func (downBackend) Get(context.Context, string) ([]byte, error) { return nil, errDown }
func (downBackend) Set(context.Context, string, []byte) error  { return errDown }
func (downBackend) Delete(context.Context, string) error       { return errDown }
func (downBackend) Close() error                               { return nil }

func TestReconcile_UnavailableSecondaryIsSkipped(t *testing.T) {
	logger := zap.NewNop()
	primary := clientstore.New("primary", clientstore.NewMemory(), logger)
	offline := clientstore.New("offline", clientstore.NewMemory(), logger)
	rec := New(primary, clientstore.New("secondary", downBackend{}, logger), offline, logger)

	put(t, primary, domain.Company{ID: "p1"})

	outcome, err := rec.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomePush, outcome)
	assert.Equal(t, []string{"p1"}, ids(companies(t, offline)))
}

func TestRestoreBackup(t *testing.T) {
	logger := zap.NewNop()
	primary := clientstore.New("primary", clientstore.NewMemory(), logger)
	require.NoError(t, clientstore.Set(context.Background(), primary, clientstore.KeyCompaniesBackup, []domain.Company{{ID: "x"}}))

	rec := New(primary, nil, nil, logger)
	require.NoError(t, rec.RestoreBackup(context.Background()))
	assert.Equal(t, []string{"x"}, ids(rec.Snapshot()))

	put(t, primary)
	assert.Equal(t, []string{"x"}, ids(companies(t, primary)))
}

func TestRun_TriggerStartsAPass(t *testing.T) {
	tr := newTiers(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- tr.rec.Run(ctx, time.Hour) }()

	require.Eventually(t, func() bool {
		return tr.metrics.ReconcileCount("seeded") == 1
	}, time.Second, 5*time.Millisecond)

	tr.rec.Trigger()
	require.Eventually(t, func() bool {
		return tr.metrics.ReconcileCount("noop") >= 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
