package services

import (
  "context"
  "fmt"
  "strings"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/casaplan/casaplan-backend/internal/apperr"
  "github.com/casaplan/casaplan-backend/internal/logger"
  "github.com/casaplan/casaplan-backend/internal/repos"
  "github.com/casaplan/casaplan-backend/internal/types"
)

type ProjectCreateInput struct {
  Name                   string
  Type                   types.ProjectType
  Description            string
  Location               string
  TotalBudget            float64
  Currency               string
  FunctionalRequirements string
  AestheticRequirements  string
}

type ProjectService interface {
  CreateProject(ctx context.Context, input ProjectCreateInput) (*types.Project, error)
  GetProject(ctx context.Context, projectID uuid.UUID) (*types.Project, error)
}

type projectService struct {
  db  *gorm.DB
  log *logger.Logger

  projectRepo repos.ProjectRepo
}

func NewProjectService(db *gorm.DB, baseLog *logger.Logger, projectRepo repos.ProjectRepo) ProjectService {
  return &projectService{
    db:          db,
    log:         baseLog.With("service", "ProjectService"),
    projectRepo: projectRepo,
  }
}

func (s *projectService) CreateProject(ctx context.Context, input ProjectCreateInput) (*types.Project, error) {
  if strings.TrimSpace(input.Name) == "" {
    return nil, apperr.Validationf("name", "required")
  }
  if !types.ValidProjectType(input.Type) {
    return nil, apperr.Validationf("type", "unknown project type %q", input.Type)
  }
  if input.TotalBudget < 0 {
    return nil, apperr.Validationf("total_budget", "must be >= 0")
  }
  currency := strings.ToUpper(strings.TrimSpace(input.Currency))
  if currency == "" {
    currency = "COP"
  }
  if len(currency) != 3 {
    return nil, apperr.Validationf("currency", "must be a 3-letter code")
  }

  project := &types.Project{
    Name:                   strings.TrimSpace(input.Name),
    Type:                   input.Type,
    Description:            input.Description,
    Location:               input.Location,
    TotalBudget:            input.TotalBudget,
    Currency:               currency,
    FunctionalRequirements: input.FunctionalRequirements,
    AestheticRequirements:  input.AestheticRequirements,
    TotalEstimatedCost:     0,
  }
  if _, err := s.projectRepo.Create(ctx, nil, []*types.Project{project}); err != nil {
    return nil, fmt.Errorf("create project: %w", err)
  }
  s.log.Info("Project created", "project_id", project.ID, "type", project.Type)
  return project, nil
}

func (s *projectService) GetProject(ctx context.Context, projectID uuid.UUID) (*types.Project, error) {
  if projectID == uuid.Nil {
    return nil, apperr.Validationf("project_id", "required")
  }
  projects, err := s.projectRepo.GetByIDs(ctx, nil, []uuid.UUID{projectID})
  if err != nil {
    return nil, fmt.Errorf("load project: %w", err)
  }
  if len(projects) == 0 || projects[0] == nil {
    return nil, apperr.NotFoundf("project %s", projectID)
  }
  return projects[0], nil
}
