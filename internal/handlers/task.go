package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/casaplan/casaplan-backend/internal/logger"
	"github.com/casaplan/casaplan-backend/internal/services"
	"github.com/casaplan/casaplan-backend/internal/types"
)

type TaskHandler struct {
	log         *logger.Logger
	taskService services.TaskService
}

func NewTaskHandler(log *logger.Logger, taskService services.TaskService) *TaskHandler {
	return &TaskHandler{
		log:         log.With("handler", "TaskHandler"),
		taskService: taskService,
	}
}

type createTaskRequest struct {
	ProjectID           uuid.UUID           `json:"project_id"`
	PhaseID             uuid.UUID           `json:"phase_id"`
	Title               string              `json:"title"`
	Description         string              `json:"description"`
	Quantity            *float64            `json:"quantity"`
	UnitOfMeasure       types.UnitOfMeasure `json:"unit_of_measure"`
	UnitPrice           float64             `json:"unit_price"`
	LaborCost           *float64            `json:"labor_cost"`
	EstimatedDuration   *int                `json:"estimated_duration"`
	Status              types.TaskStatus    `json:"status"`
	ProfitMargin        *float64            `json:"profit_margin"`
	ExecutionPercentage *float64            `json:"execution_percentage"`
	StartDate           *time.Time          `json:"start_date"`
	EndDate             *time.Time          `json:"end_date"`
}

// POST /api/tasks
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	task, err := h.taskService.CreateTask(c.Request.Context(), services.TaskCreateInput{
		ProjectID:           req.ProjectID,
		PhaseID:             req.PhaseID,
		Title:               req.Title,
		Description:         req.Description,
		Quantity:            req.Quantity,
		UnitOfMeasure:       req.UnitOfMeasure,
		UnitPrice:           req.UnitPrice,
		LaborCost:           req.LaborCost,
		EstimatedDuration:   req.EstimatedDuration,
		Status:              req.Status,
		ProfitMargin:        req.ProfitMargin,
		ExecutionPercentage: req.ExecutionPercentage,
		StartDate:           req.StartDate,
		EndDate:             req.EndDate,
	})
	if err != nil {
		h.log.Error("CreateTask failed", "error", err)
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"task": task})
}

type updateTaskRequest struct {
	Title               *string              `json:"title"`
	Description         *string              `json:"description"`
	Quantity            *float64             `json:"quantity"`
	UnitOfMeasure       *types.UnitOfMeasure `json:"unit_of_measure"`
	UnitPrice           *float64             `json:"unit_price"`
	LaborCost           *float64             `json:"labor_cost"`
	ClearLaborCost      bool                 `json:"clear_labor_cost"`
	EstimatedDuration   *int                 `json:"estimated_duration"`
	Status              *types.TaskStatus    `json:"status"`
	ProfitMargin        *float64             `json:"profit_margin"`
	ExecutionPercentage *float64             `json:"execution_percentage"`
	StartDate           *time.Time           `json:"start_date"`
	EndDate             *time.Time           `json:"end_date"`
}

// PATCH /api/tasks/:id
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_task_id", err)
		return
	}
	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	task, err := h.taskService.UpdateTask(c.Request.Context(), taskID, services.TaskUpdateInput{
		Title:               req.Title,
		Description:         req.Description,
		Quantity:            req.Quantity,
		UnitOfMeasure:       req.UnitOfMeasure,
		UnitPrice:           req.UnitPrice,
		LaborCost:           req.LaborCost,
		ClearLaborCost:      req.ClearLaborCost,
		EstimatedDuration:   req.EstimatedDuration,
		Status:              req.Status,
		ProfitMargin:        req.ProfitMargin,
		ExecutionPercentage: req.ExecutionPercentage,
		StartDate:           req.StartDate,
		EndDate:             req.EndDate,
	})
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"task": task})
}

// DELETE /api/tasks/:id
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_task_id", err)
		return
	}
	if err := h.taskService.DeleteTask(c.Request.Context(), taskID); err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": taskID})
}

// GET /api/phases/:phaseID/tasks
func (h *TaskHandler) ListPhaseTasks(c *gin.Context) {
	phaseID, err := uuid.Parse(c.Param("phaseID"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_phase_id", err)
		return
	}
	tasks, err := h.taskService.GetTasksForPhase(c.Request.Context(), phaseID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"tasks": tasks})
}
