package handlers

import (
	"net/http"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/casaplan/casaplan-backend/internal/logger"
	"github.com/casaplan/casaplan-backend/internal/services"
	"github.com/casaplan/casaplan-backend/internal/types"
)

type MaterialHandler struct {
	log               *logger.Logger
	materialService   services.MaterialService
	assignmentService services.MaterialAssignmentService
}

func NewMaterialHandler(
	log *logger.Logger,
	materialService services.MaterialService,
	assignmentService services.MaterialAssignmentService,
) *MaterialHandler {
	return &MaterialHandler{
		log:               log.With("handler", "MaterialHandler"),
		materialService:   materialService,
		assignmentService: assignmentService,
	}
}

type createMaterialRequest struct {
	ProjectID          uuid.UUID           `json:"project_id"`
	Title              string              `json:"title"`
	ReferenceCode      string              `json:"reference_code"`
	Brand              string              `json:"brand"`
	Supplier           string              `json:"supplier"`
	Description        string              `json:"description"`
	UnitOfMeasure      types.UnitOfMeasure `json:"unit_of_measure"`
	EstimatedUnitPrice float64             `json:"estimated_unit_price"`
	ProfitMargin       *float64            `json:"profit_margin"`
}

// POST /api/materials
func (h *MaterialHandler) CreateMaterial(c *gin.Context) {
	var req createMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	entry, err := h.materialService.CreateMaterial(c.Request.Context(), services.MaterialCreateInput{
		ProjectID:          req.ProjectID,
		Title:              req.Title,
		ReferenceCode:      req.ReferenceCode,
		Brand:              req.Brand,
		Supplier:           req.Supplier,
		Description:        req.Description,
		UnitOfMeasure:      req.UnitOfMeasure,
		EstimatedUnitPrice: req.EstimatedUnitPrice,
		ProfitMargin:       req.ProfitMargin,
	})
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"material": entry})
}

type updateMaterialRequest struct {
	Title              *string              `json:"title"`
	ReferenceCode      *string              `json:"reference_code"`
	Brand              *string              `json:"brand"`
	Supplier           *string              `json:"supplier"`
	Description        *string              `json:"description"`
	UnitOfMeasure      *types.UnitOfMeasure `json:"unit_of_measure"`
	EstimatedUnitPrice *float64             `json:"estimated_unit_price"`
	ProfitMargin       *float64             `json:"profit_margin"`
}

// PATCH /api/materials/:id
func (h *MaterialHandler) UpdateMaterial(c *gin.Context) {
	materialID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_material_id", err)
		return
	}
	var req updateMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	entry, err := h.materialService.UpdateMaterial(c.Request.Context(), materialID, services.MaterialUpdateInput{
		Title:              req.Title,
		ReferenceCode:      req.ReferenceCode,
		Brand:              req.Brand,
		Supplier:           req.Supplier,
		Description:        req.Description,
		UnitOfMeasure:      req.UnitOfMeasure,
		EstimatedUnitPrice: req.EstimatedUnitPrice,
		ProfitMargin:       req.ProfitMargin,
	})
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"material": entry})
}

// DELETE /api/materials/:id
func (h *MaterialHandler) DeleteMaterial(c *gin.Context) {
	materialID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_material_id", err)
		return
	}
	if err := h.materialService.DeleteMaterial(c.Request.Context(), materialID); err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": materialID})
}

// GET /api/projects/:id/materials
func (h *MaterialHandler) ListProjectMaterials(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_project_id", err)
		return
	}
	entries, err := h.materialService.GetMaterialsForProject(c.Request.Context(), projectID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"materials": entries})
}

type assignMaterialRequest struct {
	TaskID                      uuid.UUID `json:"task_id"`
	MaterialID                  uuid.UUID `json:"material_id"`
	QuantityUsed                float64   `json:"quantity_used"`
	ProfitMarginForTaskMaterial *float64  `json:"profit_margin_for_task_material"`
	PurchasedValueForTask       *float64  `json:"purchased_value_for_task"`
}

// POST /api/material-assignments
func (h *MaterialHandler) AssignMaterial(c *gin.Context) {
	var req assignMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	assignment, err := h.assignmentService.Assign(c.Request.Context(), req.TaskID, req.MaterialID, req.QuantityUsed, services.AssignmentOverrides{
		ProfitMarginForTaskMaterial: req.ProfitMarginForTaskMaterial,
		PurchasedValueForTask:       req.PurchasedValueForTask,
	})
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"assignment": assignment})
}

type updateAssignmentRequest struct {
	QuantityUsed float64 `json:"quantity_used"`
}

// PATCH /api/material-assignments/:id
func (h *MaterialHandler) UpdateAssignmentQuantity(c *gin.Context) {
	assignmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_assignment_id", err)
		return
	}
	var req updateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	assignment, err := h.assignmentService.UpdateQuantity(c.Request.Context(), assignmentID, req.QuantityUsed)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"assignment": assignment})
}

// DELETE /api/material-assignments/:id
func (h *MaterialHandler) RemoveAssignment(c *gin.Context) {
	assignmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_assignment_id", err)
		return
	}
	if err := h.assignmentService.Remove(c.Request.Context(), assignmentID); err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": assignmentID})
}

// GET /api/tasks/:id/material-assignments
func (h *MaterialHandler) ListTaskAssignments(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_task_id", err)
		return
	}
	assignments, err := h.assignmentService.GetAssignmentsForTask(c.Request.Context(), taskID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"assignments": assignments})
}
