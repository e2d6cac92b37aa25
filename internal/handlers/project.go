package handlers

import (
	"net/http"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/casaplan/casaplan-backend/internal/logger"
	"github.com/casaplan/casaplan-backend/internal/services"
	"github.com/casaplan/casaplan-backend/internal/types"
)

type ProjectHandler struct {
	log            *logger.Logger
	projectService services.ProjectService
}

func NewProjectHandler(log *logger.Logger, projectService services.ProjectService) *ProjectHandler {
	return &ProjectHandler{
		log:            log.With("handler", "ProjectHandler"),
		projectService: projectService,
	}
}

type createProjectRequest struct {
	Name                   string            `json:"name"`
	Type                   types.ProjectType `json:"type"`
	Description            string            `json:"description"`
	Location               string            `json:"location"`
	TotalBudget            float64           `json:"total_budget"`
	Currency               string            `json:"currency"`
	FunctionalRequirements string            `json:"functional_requirements"`
	AestheticRequirements  string            `json:"aesthetic_requirements"`
}

// POST /api/projects
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	project, err := h.projectService.CreateProject(c.Request.Context(), services.ProjectCreateInput{
		Name:                   req.Name,
		Type:                   req.Type,
		Description:            req.Description,
		Location:               req.Location,
		TotalBudget:            req.TotalBudget,
		Currency:               req.Currency,
		FunctionalRequirements: req.FunctionalRequirements,
		AestheticRequirements:  req.AestheticRequirements,
	})
	if err != nil {
		h.log.Error("CreateProject failed", "error", err)
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"project": project})
}

// GET /api/projects/:id
func (h *ProjectHandler) GetProject(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_project_id", err)
		return
	}
	project, err := h.projectService.GetProject(c.Request.Context(), projectID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"project": project})
}
