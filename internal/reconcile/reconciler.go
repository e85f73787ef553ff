// Package reconcile keeps the primary, secondary and offline copies of the
// company collection eventually consistent.
//
// Rules applied on every pass:
//   - tombstoned ids never survive a merge;
//   - an empty primary with the cleared flag set on any tier is the truth and
//     is propagated, flag included;
//   - an empty primary without the flag is backfilled from secondary, then offline;
//   - a populated primary is pushed to empty tiers and merged (primary wins) otherwise;
//   - all tiers empty and no flag seeds the defaults that were never deleted.
//
// A write that empties the primary collection without the cleared flag is
// treated as corruption and undone from the last known good snapshot.
package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/agendai/agendai-go/internal/clientstore"
	"github.com/agendai/agendai-go/internal/domain"
	"github.com/agendai/agendai-go/internal/infra/observability"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Outcome names what a pass did.
type Outcome string

const (
	OutcomeNoop     Outcome = "noop"
	OutcomeBackfill Outcome = "backfill"
	OutcomePush     Outcome = "push"
	OutcomeMerge    Outcome = "merge"
	OutcomeCleared  Outcome = "cleared"
	OutcomeSeeded   Outcome = "seeded"
	OutcomeRestored Outcome = "restored"
	OutcomeError    Outcome = "error"
)

// Reconciler owns every mutation of the company collection.
type Reconciler struct {
	primary   *clientstore.Store
	secondary *clientstore.Store
	offline   *clientstore.Store
	defaults  []domain.Company
	metrics   *observability.Metrics
	logger    *zap.Logger

	mu sync.Mutex

	snapMu   sync.Mutex
	snapshot []domain.Company

	trigger chan struct{}
}

// Option customizes a Reconciler.
type Option func(*Reconciler)

// WithDefaults replaces the seed data.
func WithDefaults(companies []domain.Company) Option {
	return func(r *Reconciler) { r.defaults = companies }
}

// WithMetrics counts pass outcomes.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Reconciler) { r.metrics = m }
}

// New creates a reconciler. secondary and offline may be nil.
func New(primary, secondary, offline *clientstore.Store, logger *zap.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{
		primary:   primary,
		secondary: secondary,
		offline:   offline,
		defaults:  DefaultCompanies(),
		logger:    logger,
		trigger:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	primary.OnWrite(r.guardPrimary)
	return r
}

// tierRead is one tier's view of the collection. ok is false when the tier
// is absent or unreachable; such tiers are neither trusted nor written.
type tierRead struct {
	store *clientstore.Store
	list  []domain.Company
	ok    bool
	stale bool // held tombstoned records
}

func (t tierRead) empty() bool { return len(t.list) == 0 }

// Reconcile runs one pass.
func (r *Reconciler) Reconcile(ctx context.Context) (Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	outcome, err := r.reconcileLocked(ctx)
	if err != nil {
		r.count(OutcomeError)
		return OutcomeError, err
	}
	r.count(outcome)
	return outcome, nil
}

func (r *Reconciler) reconcileLocked(ctx context.Context) (Outcome, error) {
	primary, secondary, offline, err := r.readTiers(ctx)
	if err != nil {
		return "", err
	}

	tombstones, err := r.syncTombstones(ctx)
	if err != nil {
		return "", err
	}
	for _, t := range []*tierRead{&primary, &secondary, &offline} {
		before := len(t.list)
		t.list = dropTombstoned(t.list, tombstones)
		t.stale = len(t.list) != before
	}

	cleared := r.clearedAnywhere(ctx)

	var (
		result  []domain.Company
		outcome Outcome
	)
	switch {
	case primary.empty() && cleared:
		result, outcome = []domain.Company{}, OutcomeCleared
	case primary.empty() && !secondary.empty():
		result, outcome = secondary.list, OutcomeBackfill
	case primary.empty() && !offline.empty():
		result, outcome = offline.list, OutcomeBackfill
	case primary.empty():
		result, outcome = dropTombstoned(r.defaults, tombstones), OutcomeSeeded
		if len(result) == 0 {
			outcome = OutcomeCleared
		}
	case secondary.empty() && offline.empty():
		result, outcome = primary.list, OutcomePush
	default:
		result, outcome = merge(primary.list, secondary.list, offline.list), OutcomeMerge
	}

	switch {
	case outcome == OutcomeCleared:
		if err := r.setCleared(ctx, true); err != nil {
			return "", err
		}
	case len(result) > 0 && cleared:
		if err := r.setCleared(ctx, false); err != nil {
			return "", err
		}
	}

	changed := false
	for _, t := range []tierRead{primary, secondary, offline} {
		if !t.ok || (!t.stale && sameCompanies(t.list, result)) {
			continue
		}
		if err := clientstore.Set(ctx, t.store, clientstore.KeyCompanies, result); err != nil {
			if t.store == r.primary {
				return "", err
			}
			r.logger.Warn("reconcile: tier write failed", zap.String("tier", t.store.Name()), zap.Error(err))
			continue
		}
		changed = true
	}

	if len(result) > 0 {
		r.remember(ctx, result)
	}
	if (outcome == OutcomeMerge || outcome == OutcomePush) && !changed {
		outcome = OutcomeNoop
	}

	r.logger.Debug("reconcile pass",
		zap.String("outcome", string(outcome)),
		zap.Int("companies", len(result)),
		zap.Bool("cleared", cleared),
	)
	return outcome, nil
}

// readTiers loads the three copies concurrently. Only a primary failure is fatal.
func (r *Reconciler) readTiers(ctx context.Context) (primary, secondary, offline tierRead, err error) {
	primary.store, secondary.store, offline.store = r.primary, r.secondary, r.offline

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := clientstore.Get[domain.Company](gctx, r.primary, clientstore.KeyCompanies)
		if err != nil {
			return fmt.Errorf("read primary: %w", err)
		}
		primary.list, primary.ok = list, true
		return nil
	})
	for _, t := range []*tierRead{&secondary, &offline} {
		if t.store == nil {
			continue
		}
		t := t
		g.Go(func() error {
			list, err := clientstore.Get[domain.Company](gctx, t.store, clientstore.KeyCompanies)
			if err != nil {
				r.logger.Warn("reconcile: tier unavailable", zap.String("tier", t.store.Name()), zap.Error(err))
				return nil
			}
			t.list, t.ok = list, true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return tierRead{}, tierRead{}, tierRead{}, err
	}
	return primary, secondary, offline, nil
}

// syncTombstones unions the tombstones of every tier and writes the union back.
func (r *Reconciler) syncTombstones(ctx context.Context) (map[string]time.Time, error) {
	union := map[string]time.Time{}
	var all []domain.Tombstone
	for _, s := range r.tiers() {
		list, err := clientstore.Get[domain.Tombstone](ctx, s, clientstore.KeyCompaniesTombstone)
		if err != nil {
			if s == r.primary {
				return nil, err
			}
			continue
		}
		for _, t := range list {
			if _, seen := union[t.ID]; !seen {
				union[t.ID] = t.DeletedAt
				all = append(all, t)
			}
		}
	}
	if len(all) == 0 {
		return union, nil
	}
	for _, s := range r.tiers() {
		current, _ := clientstore.Get[domain.Tombstone](ctx, s, clientstore.KeyCompaniesTombstone)
		if len(current) == len(all) {
			continue
		}
		if err := clientstore.Set(ctx, s, clientstore.KeyCompaniesTombstone, all); err != nil {
			r.logger.Warn("reconcile: tombstone write failed", zap.String("tier", s.Name()), zap.Error(err))
		}
	}
	return union, nil
}

// Companies returns the primary copy without tombstoned records.
func (r *Reconciler) Companies(ctx context.Context) ([]domain.Company, error) {
	list, err := clientstore.Get[domain.Company](ctx, r.primary, clientstore.KeyCompanies)
	if err != nil {
		return nil, err
	}
	tombstones, err := clientstore.Get[domain.Tombstone](ctx, r.primary, clientstore.KeyCompaniesTombstone)
	if err != nil {
		return nil, err
	}
	set := make(map[string]time.Time, len(tombstones))
	for _, t := range tombstones {
		set[t.ID] = t.DeletedAt
	}
	out := dropTombstoned(list, set)
	if out == nil {
		out = []domain.Company{}
	}
	return out, nil
}

// SaveCompany inserts or replaces c by id in every tier. An empty id is
// assigned a new uuid.
func (r *Reconciler) SaveCompany(ctx context.Context, c domain.Company) (domain.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	list, err := clientstore.Get[domain.Company](ctx, r.primary, clientstore.KeyCompanies)
	if err != nil {
		return domain.Company{}, err
	}
	replaced := false
	for i := range list {
		if list[i].ID == c.ID {
			list[i] = c
			replaced = true
			break
		}
	}
	if !replaced {
		list = append(list, c)
	}

	if err := r.untomb(ctx, c.ID); err != nil {
		return domain.Company{}, err
	}
	if err := r.setCleared(ctx, false); err != nil {
		return domain.Company{}, err
	}
	if err := clientstore.Set(ctx, r.primary, clientstore.KeyCompanies, list); err != nil {
		return domain.Company{}, err
	}
	r.remember(ctx, list)
	r.mirror(ctx, list)

	r.logger.Info("company saved", zap.String("company_id", c.ID), zap.Bool("replaced", replaced))
	return c, nil
}

// DeleteCompany removes id everywhere, tombstones it and records the deletion
// on behalf of user. Deleting the last company sets the cleared flag first.
func (r *Reconciler) DeleteCompany(ctx context.Context, id, user string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	list, err := clientstore.Get[domain.Company](ctx, r.primary, clientstore.KeyCompanies)
	if err != nil {
		return err
	}
	var (
		kept    = make([]domain.Company, 0, len(list))
		removed *domain.Company
	)
	for i := range list {
		if list[i].ID == id {
			removed = &list[i]
			continue
		}
		kept = append(kept, list[i])
	}
	if removed == nil {
		return &domain.ErrNotFound{Resource: "company", ID: id}
	}

	tomb := domain.Tombstone{ID: id, DeletedAt: time.Now().UTC()}
	for _, s := range r.tiers() {
		if err := clientstore.Append(ctx, s, clientstore.KeyCompaniesTombstone, tomb); err != nil {
			if s == r.primary {
				return err
			}
			r.logger.Warn("tombstone write failed", zap.String("tier", s.Name()), zap.Error(err))
		}
	}

	if len(kept) == 0 {
		if err := r.setCleared(ctx, true); err != nil {
			return err
		}
	}
	if err := clientstore.Set(ctx, r.primary, clientstore.KeyCompanies, kept); err != nil {
		return err
	}
	r.forget(id)
	if len(kept) > 0 {
		r.remember(ctx, kept)
	}
	r.mirror(ctx, kept)

	if err := r.primary.AppendDeletion(ctx, domain.DeletionEntry{ID: id, Nome: removed.Name, Usuario: user}); err != nil {
		r.logger.Warn("deletion log write failed", zap.Error(err))
	}
	r.logger.Info("company deleted", zap.String("company_id", id), zap.Int("remaining", len(kept)))
	return nil
}

// Run reconciles once, then on every tick and every Trigger, until ctx is done.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) error {
	r.runOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.runOnce(ctx)
		case <-r.trigger:
			r.runOnce(ctx)
		}
	}
}

// Trigger requests a pass, as a visibility change does. Never blocks.
func (r *Reconciler) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

func (r *Reconciler) runOnce(ctx context.Context) {
	if _, err := r.Reconcile(ctx); err != nil && ctx.Err() == nil {
		r.logger.Error("reconcile failed", zap.Error(err))
	}
}

// guardPrimary undoes a write that empties the primary collection while the
// cleared flag is unset. It only takes snapMu.
func (r *Reconciler) guardPrimary(key string, value []byte) {
	if key != clientstore.KeyCompanies {
		return
	}
	var list []domain.Company
	if value != nil && json.Unmarshal(value, &list) == nil && len(list) > 0 {
		return
	}
	ctx := context.Background()
	if r.primary.Flag(ctx, clientstore.KeyCompaniesCleared) {
		return
	}

	r.snapMu.Lock()
	snapshot := append([]domain.Company(nil), r.snapshot...)
	r.snapMu.Unlock()
	if len(snapshot) == 0 {
		return
	}

	r.logger.Warn("primary companies emptied without cleared flag; restoring last known good",
		zap.Int("companies", len(snapshot)),
	)
	if err := clientstore.Set(ctx, r.primary, clientstore.KeyCompanies, snapshot); err != nil {
		r.logger.Error("restore from snapshot failed", zap.Error(err))
		return
	}
	r.count(OutcomeRestored)
}

// remember records list as the last known good state, in memory and under
// the backup key.
func (r *Reconciler) remember(ctx context.Context, list []domain.Company) {
	r.snapMu.Lock()
	r.snapshot = append([]domain.Company(nil), list...)
	r.snapMu.Unlock()

	if err := clientstore.Set(ctx, r.primary, clientstore.KeyCompaniesBackup, list); err != nil {
		r.logger.Warn("backup write failed", zap.Error(err))
	}
}

func (r *Reconciler) forget(id string) {
	r.snapMu.Lock()
	defer r.snapMu.Unlock()
	kept := r.snapshot[:0]
	for _, c := range r.snapshot {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	r.snapshot = kept
}

// Snapshot returns the last known good state.
func (r *Reconciler) Snapshot() []domain.Company {
	r.snapMu.Lock()
	defer r.snapMu.Unlock()
	return append([]domain.Company(nil), r.snapshot...)
}

// RestoreBackup loads the persisted backup into the in-memory snapshot, so
// the corruption guard works from the first write after a restart.
func (r *Reconciler) RestoreBackup(ctx context.Context) error {
	list, err := clientstore.Get[domain.Company](ctx, r.primary, clientstore.KeyCompaniesBackup)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return nil
	}
	r.snapMu.Lock()
	r.snapshot = list
	r.snapMu.Unlock()
	return nil
}

func (r *Reconciler) untomb(ctx context.Context, id string) error {
	for _, s := range r.tiers() {
		list, err := clientstore.Get[domain.Tombstone](ctx, s, clientstore.KeyCompaniesTombstone)
		if err != nil {
			if s == r.primary {
				return err
			}
			continue
		}
		kept := list[:0]
		for _, t := range list {
			if t.ID != id {
				kept = append(kept, t)
			}
		}
		if len(kept) == len(list) {
			continue
		}
		if err := clientstore.Set(ctx, s, clientstore.KeyCompaniesTombstone, kept); err != nil && s == r.primary {
			return err
		}
	}
	return nil
}

// clearedAnywhere reports whether any tier carries the cleared flag. The
// primary tier may be fresh while the persistent tiers remember the clear.
func (r *Reconciler) clearedAnywhere(ctx context.Context) bool {
	for _, s := range r.tiers() {
		if s.Flag(ctx, clientstore.KeyCompaniesCleared) {
			return true
		}
	}
	return false
}

// setCleared writes the cleared flag to every tier that does not already
// hold on. Only a primary failure is returned.
func (r *Reconciler) setCleared(ctx context.Context, on bool) error {
	for _, s := range r.tiers() {
		if s.Flag(ctx, clientstore.KeyCompaniesCleared) == on {
			continue
		}
		if err := s.SetFlag(ctx, clientstore.KeyCompaniesCleared, on); err != nil {
			if s == r.primary {
				return err
			}
			r.logger.Warn("cleared flag write failed", zap.String("tier", s.Name()), zap.Error(err))
		}
	}
	return nil
}

// mirror writes list to the secondary and offline tiers, best effort.
func (r *Reconciler) mirror(ctx context.Context, list []domain.Company) {
	for _, s := range []*clientstore.Store{r.secondary, r.offline} {
		if s == nil {
			continue
		}
		if err := clientstore.Set(ctx, s, clientstore.KeyCompanies, list); err != nil {
			r.logger.Warn("mirror write failed", zap.String("tier", s.Name()), zap.Error(err))
		}
	}
}

func (r *Reconciler) tiers() []*clientstore.Store {
	out := []*clientstore.Store{r.primary}
	if r.secondary != nil {
		out = append(out, r.secondary)
	}
	if r.offline != nil {
		out = append(out, r.offline)
	}
	return out
}

func (r *Reconciler) count(o Outcome) {
	if r.metrics != nil {
		r.metrics.IncrReconcile(string(o))
	}
}

// merge unions lists by id. Earlier lists win; order follows first appearance.
func merge(lists ...[]domain.Company) []domain.Company {
	seen := map[string]bool{}
	var out []domain.Company
	for _, list := range lists {
		for _, c := range list {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			out = append(out, c)
		}
	}
	return out
}

func dropTombstoned(list []domain.Company, tombstones map[string]time.Time) []domain.Company {
	if len(tombstones) == 0 || list == nil {
		return list
	}
	out := make([]domain.Company, 0, len(list))
	for _, c := range list {
		if _, dead := tombstones[c.ID]; !dead {
			out = append(out, c)
		}
	}
	return out
}

func sameCompanies(a, b []domain.Company) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}
