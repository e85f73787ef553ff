package shell

import (
	"context"
	"fmt"

	"github.com/agendai/agendai-go/internal/clientstore"
	"github.com/agendai/agendai-go/internal/domain"
)

// PlanLister reads the public plan list.
type PlanLister interface {
	ListPlans(ctx context.Context) ([]domain.Plan, error)
}

// SyncPlans refreshes the cached plan list from the API. An empty answer is
// recorded with the cleared flag so it is not mistaken for a missing cache.
func SyncPlans(ctx context.Context, api PlanLister, store *clientstore.Store) (int, error) {
	plans, err := api.ListPlans(ctx)
	if err != nil {
		return 0, fmt.Errorf("list plans: %w", err)
	}
	if err := store.SetFlag(ctx, clientstore.ClearedKey(clientstore.KeyPlans), len(plans) == 0); err != nil {
		return 0, fmt.Errorf("set plans flag: %w", err)
	}
	if err := clientstore.Set(ctx, store, clientstore.KeyPlans, plans); err != nil {
		return 0, fmt.Errorf("store plans: %w", err)
	}
	return len(plans), nil
}
