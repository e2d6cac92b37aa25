package services

import (
  "context"
  "fmt"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/casaplan/casaplan-backend/internal/apperr"
  "github.com/casaplan/casaplan-backend/internal/logger"
  "github.com/casaplan/casaplan-backend/internal/repos"
  "github.com/casaplan/casaplan-backend/internal/types"
)

// PlanService is the read side: a project's plan with its ordered phases.
type PlanService interface {
  GetPlanForProject(ctx context.Context, projectID uuid.UUID) (*types.Plan, error)
}

type planService struct {
  db  *gorm.DB
  log *logger.Logger

  planRepo repos.PlanRepo
}

func NewPlanService(db *gorm.DB, baseLog *logger.Logger, planRepo repos.PlanRepo) PlanService {
  return &planService{
    db:       db,
    log:      baseLog.With("service", "PlanService"),
    planRepo: planRepo,
  }
}

func (s *planService) GetPlanForProject(ctx context.Context, projectID uuid.UUID) (*types.Plan, error) {
  if projectID == uuid.Nil {
    return nil, apperr.Validationf("project_id", "required")
  }
  plan, err := s.planRepo.GetByProjectID(ctx, nil, projectID)
  if err != nil {
    return nil, fmt.Errorf("load plan: %w", err)
  }
  if plan == nil {
    return nil, apperr.NotFoundf("plan for project %s", projectID)
  }
  phases, err := s.planRepo.GetPhasesByPlanID(ctx, nil, plan.ID)
  if err != nil {
    return nil, fmt.Errorf("load phases: %w", err)
  }
  plan.Phases = phases
  return plan, nil
}
