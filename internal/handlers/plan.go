package handlers

import (
	"net/http"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/casaplan/casaplan-backend/internal/logger"
	"github.com/casaplan/casaplan-backend/internal/services"
)

type PlanHandler struct {
	log              *logger.Logger
	planService      services.PlanService
	ingestionService services.PlanIngestionService
	phaseService     services.PhaseService
}

func NewPlanHandler(
	log *logger.Logger,
	planService services.PlanService,
	ingestionService services.PlanIngestionService,
	phaseService services.PhaseService,
) *PlanHandler {
	return &PlanHandler{
		log:              log.With("handler", "PlanHandler"),
		planService:      planService,
		ingestionService: ingestionService,
		phaseService:     phaseService,
	}
}

// POST /api/projects/:id/plan/generate
// Partial task failures still answer 200; the per-row reports travel in
// the body next to the persisted plan.
func (h *PlanHandler) GeneratePlan(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_project_id", err)
		return
	}
	plan, reports, err := h.ingestionService.GeneratePlanForProject(c.Request.Context(), projectID)
	if err != nil {
		h.log.Error("GeneratePlan failed", "error", err, "project_id", projectID)
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"plan": plan, "reports": reports})
}

// GET /api/projects/:id/plan
func (h *PlanHandler) GetPlan(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_project_id", err)
		return
	}
	plan, err := h.planService.GetPlanForProject(c.Request.Context(), projectID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"plan": plan})
}

type addPhaseRequest struct {
	Name              string  `json:"name"`
	EstimatedDuration int     `json:"estimated_duration"`
	EstimatedCost     float64 `json:"estimated_cost"`
}

// POST /api/plans/:id/phases
func (h *PlanHandler) AddPhase(c *gin.Context) {
	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_plan_id", err)
		return
	}
	var req addPhaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	phase, err := h.phaseService.AddPhase(c.Request.Context(), planID, req.Name, req.EstimatedDuration, req.EstimatedCost)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"phase": phase})
}

// DELETE /api/plans/:id/phases/:phaseID
func (h *PlanHandler) DeletePhase(c *gin.Context) {
	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_plan_id", err)
		return
	}
	phaseID, err := uuid.Parse(c.Param("phaseID"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_phase_id", err)
		return
	}
	if err := h.phaseService.DeletePhase(c.Request.Context(), planID, phaseID); err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": phaseID})
}

type movePhaseRequest struct {
	FromIndex int `json:"from_index"`
	ToIndex   int `json:"to_index"`
}

// POST /api/plans/:id/phases/move
func (h *PlanHandler) MovePhase(c *gin.Context) {
	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_plan_id", err)
		return
	}
	var req movePhaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if err := h.phaseService.MovePhase(c.Request.Context(), planID, req.FromIndex, req.ToIndex); err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"moved": true})
}

type editPhaseRequest struct {
	Name              *string  `json:"name"`
	EstimatedDuration *int     `json:"estimated_duration"`
	EstimatedCost     *float64 `json:"estimated_cost"`
}

// PATCH /api/plans/:id/phases/:phaseID
func (h *PlanHandler) EditPhase(c *gin.Context) {
	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_plan_id", err)
		return
	}
	phaseID, err := uuid.Parse(c.Param("phaseID"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_phase_id", err)
		return
	}
	var req editPhaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	err = h.phaseService.EditPhase(c.Request.Context(), planID, phaseID, services.PhaseEdit{
		Name:              req.Name,
		EstimatedDuration: req.EstimatedDuration,
		EstimatedCost:     req.EstimatedCost,
	})
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"updated": phaseID})
}
