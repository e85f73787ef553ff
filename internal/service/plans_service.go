package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agendai/agendai-go/internal/domain"
	"github.com/agendai/agendai-go/internal/infra/observability"
	"github.com/agendai/agendai-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var planTracer = otel.Tracer("service/plans")

const planListCacheKey = "plans:all"

// PlanService manages subscription plans. Reads go through a TTL cache that
// every write invalidates.
type PlanService struct {
	plans     port.PlanStore
	companies port.CompanyStore
	cache     port.Cache[[]domain.Plan]
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewPlanService creates the plan service with all dependencies injected.
func NewPlanService(plans port.PlanStore, companies port.CompanyStore, cache port.Cache[[]domain.Plan], metrics *observability.Metrics, logger *zap.Logger) *PlanService {
	return &PlanService{
		plans:     plans,
		companies: companies,
		cache:     cache,
		metrics:   metrics,
		logger:    logger,
	}
}

// ListPlans returns every plan, served from cache when warm.
func (s *PlanService) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	ctx, span := planTracer.Start(ctx, "PlanService.ListPlans")
	defer span.End()

	if cached, ok := s.cache.Get(planListCacheKey); ok {
		s.metrics.IncrCacheHit("plans")
		return cached, nil
	}
	s.metrics.IncrCacheMiss("plans")

	start := time.Now()
	plans, err := s.plans.ListPlans(ctx)
	s.metrics.RecordRequestDuration("plans.list", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	for i := range plans {
		if plans[i].Features == nil {
			plans[i].Features = map[string]bool{}
		}
	}

	s.cache.Set(planListCacheKey, plans)
	return plans, nil
}

// GetPlan returns one plan or ErrNotFound.
func (s *PlanService) GetPlan(ctx context.Context, id int64) (*domain.Plan, error) {
	ctx, span := planTracer.Start(ctx, "PlanService.GetPlan")
	defer span.End()
	span.SetAttributes(attribute.Int64("plan.id", id))

	plan, err := s.plans.GetPlan(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}
	if plan == nil {
		return nil, &domain.ErrNotFound{Resource: "plan", ID: fmt.Sprint(id)}
	}
	return plan, nil
}

// CreatePlan validates and stores a new plan.
func (s *PlanService) CreatePlan(ctx context.Context, req *domain.PlanRequest) (*domain.Plan, error) {
	ctx, span := planTracer.Start(ctx, "PlanService.CreatePlan")
	defer span.End()

	plan, err := planFromRequest(req)
	if err != nil {
		return nil, err
	}

	created, err := s.plans.CreatePlan(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("create plan: %w", err)
	}
	s.cache.Delete(planListCacheKey)

	s.logger.Info("plan created", zap.Int64("plan_id", created.ID), zap.String("name", created.Name))
	return created, nil
}

// UpdatePlan replaces the editable fields of an existing plan.
func (s *PlanService) UpdatePlan(ctx context.Context, id int64, req *domain.PlanRequest) (*domain.Plan, error) {
	ctx, span := planTracer.Start(ctx, "PlanService.UpdatePlan")
	defer span.End()
	span.SetAttributes(attribute.Int64("plan.id", id))

	existing, err := s.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}

	plan, err := planFromRequest(req)
	if err != nil {
		return nil, err
	}
	plan.ID = existing.ID
	plan.CreatedAt = existing.CreatedAt

	updated, err := s.plans.UpdatePlan(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("update plan: %w", err)
	}
	s.cache.Delete(planListCacheKey)

	s.logger.Info("plan updated", zap.Int64("plan_id", id))
	return updated, nil
}

// DeletePlan removes a plan unless a company still references it.
func (s *PlanService) DeletePlan(ctx context.Context, id int64) error {
	ctx, span := planTracer.Start(ctx, "PlanService.DeletePlan")
	defer span.End()
	span.SetAttributes(attribute.Int64("plan.id", id))

	if _, err := s.GetPlan(ctx, id); err != nil {
		return err
	}

	inUse, err := s.companies.CountCompaniesByPlan(ctx, id)
	if err != nil {
		return fmt.Errorf("count companies by plan: %w", err)
	}
	if inUse > 0 {
		s.logger.Warn("plan delete blocked: plan in use",
			zap.Int64("plan_id", id),
			zap.Int64("companies", inUse),
		)
		return &domain.ErrPlanInUse{PlanID: id, Companies: inUse}
	}

	if err := s.plans.DeletePlan(ctx, id); err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	s.cache.Delete(planListCacheKey)

	s.logger.Info("plan deleted", zap.Int64("plan_id", id))
	return nil
}

func planFromRequest(req *domain.PlanRequest) (*domain.Plan, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	status := req.Status
	if status == "" {
		status = domain.PlanStatusActive
	}
	features := req.Features
	if features == nil {
		features = map[string]bool{}
	}

	return &domain.Plan{
		Name:          req.Name,
		Price:         req.Price,
		Appointments:  req.Appointments,
		Professionals: req.Professionals,
		Services:      req.Services,
		Status:        status,
		Highlight:     req.Highlight,
		Description:   req.Description,
		Features:      features,
	}, nil
}
