package handler

import (
	"net/http"

	"github.com/agendai/agendai-go/internal/domain"
	"github.com/agendai/agendai-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Planos
// ============================================================

func listPlansHandler(planSvc *service.PlanService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/plans")
		defer span.End()

		plans, err := planSvc.ListPlans(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.Int("plans.count", len(plans)))

		writeJSON(w, http.StatusOK, plans)
	}
}

func getPlanHandler(planSvc *service.PlanService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/plans/{id}")
		defer span.End()

		id, err := planIDParam(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		plan, err := planSvc.GetPlan(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, plan)
	}
}

func createPlanHandler(planSvc *service.PlanService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/plans")
		defer span.End()

		var req domain.PlanRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Corpo da requisição inválido")
			return
		}

		plan, err := planSvc.CreatePlan(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, plan)
	}
}

func updatePlanHandler(planSvc *service.PlanService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /api/plans/{id}")
		defer span.End()

		id, err := planIDParam(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		var req domain.PlanRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Corpo da requisição inválido")
			return
		}

		plan, err := planSvc.UpdatePlan(ctx, id, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, plan)
	}
}

func deletePlanHandler(planSvc *service.PlanService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /api/plans/{id}")
		defer span.End()

		id, err := planIDParam(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		if err := planSvc.DeletePlan(ctx, id); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "Plano excluído com sucesso"})
	}
}
