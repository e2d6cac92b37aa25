package services

import (
  "context"
  "fmt"
  "time"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/casaplan/casaplan-backend/internal/apperr"
  "github.com/casaplan/casaplan-backend/internal/logger"
  "github.com/casaplan/casaplan-backend/internal/pricing"
  "github.com/casaplan/casaplan-backend/internal/repos"
  "github.com/casaplan/casaplan-backend/internal/sse"
  "github.com/casaplan/casaplan-backend/internal/types"
)

// RollupService recomputes the cost/duration aggregates of one plan from
// current task and phase state, and mirrors the plan total onto the owning
// project. Recompute is idempotent: running it twice changes nothing the
// second time.
type RollupService interface {
  Recompute(ctx context.Context, tx *gorm.DB, planID uuid.UUID) (*types.Plan, error)
}

type rollupService struct {
  db  *gorm.DB
  log *logger.Logger

  sseHub *sse.SSEHub

  planRepo    repos.PlanRepo
  taskRepo    repos.TaskRepo
  projectRepo repos.ProjectRepo
}

func NewRollupService(
  db *gorm.DB,
  baseLog *logger.Logger,
  sseHub *sse.SSEHub,
  planRepo repos.PlanRepo,
  taskRepo repos.TaskRepo,
  projectRepo repos.ProjectRepo,
) RollupService {
  return &rollupService{
    db:          db,
    log:         baseLog.With("service", "RollupService"),
    sseHub:      sseHub,
    planRepo:    planRepo,
    taskRepo:    taskRepo,
    projectRepo: projectRepo,
  }
}

// phaseFigures is the projection of one phase into its display cost and
// duration: task-driven when the phase owns tasks, the stored scalars
// otherwise. Deriving through this value keeps the derived-vs-authoritative
// decision in one place instead of a flag checked at every write site.
type phaseFigures struct {
  phase *types.PlanPhase
  tasks []*types.Task
}

func (f phaseFigures) taskDriven() bool { return len(f.tasks) > 0 }

func (f phaseFigures) cost() float64 {
  if f.taskDriven() {
    return pricing.PhaseCostFromTasks(f.tasks)
  }
  return f.phase.EstimatedCost
}

func (f phaseFigures) duration() int {
  if f.taskDriven() {
    return pricing.PhaseDurationFromTasks(f.tasks)
  }
  return f.phase.EstimatedDuration
}

func (s *rollupService) Recompute(ctx context.Context, tx *gorm.DB, planID uuid.UUID) (*types.Plan, error) {
  if planID == uuid.Nil {
    return nil, apperr.Validationf("plan_id", "required")
  }

  var plan *types.Plan
  var phases []*types.PlanPhase

  run := func(transaction *gorm.DB) error {
    plans, err := s.planRepo.GetByIDs(ctx, transaction, []uuid.UUID{planID})
    if err != nil {
      return fmt.Errorf("load plan: %w", err)
    }
    if len(plans) == 0 || plans[0] == nil {
      return apperr.NotFoundf("plan %s", planID)
    }
    plan = plans[0]

    phases, err = s.planRepo.GetPhasesByPlanID(ctx, transaction, planID)
    if err != nil {
      return fmt.Errorf("load phases: %w", err)
    }

    phaseIDs := make([]uuid.UUID, 0, len(phases))
    for _, ph := range phases {
      if ph != nil {
        phaseIDs = append(phaseIDs, ph.PhaseID)
      }
    }
    tasks, err := s.taskRepo.GetByPhaseIDs(ctx, transaction, phaseIDs)
    if err != nil {
      return fmt.Errorf("load tasks: %w", err)
    }
    tasksByPhase := make(map[uuid.UUID][]*types.Task, len(phases))
    for _, t := range tasks {
      if t == nil {
        continue
      }
      tasksByPhase[t.PhaseID] = append(tasksByPhase[t.PhaseID], t)
    }

    for _, ph := range phases {
      if ph == nil {
        continue
      }
      figures := phaseFigures{phase: ph, tasks: tasksByPhase[ph.PhaseID]}
      if !figures.taskDriven() {
        continue
      }
      cost := figures.cost()
      duration := figures.duration()
      if cost == ph.EstimatedCost && duration == ph.EstimatedDuration {
        continue
      }
      if err := s.planRepo.UpdatePhaseFields(ctx, transaction, ph.PhaseID, map[string]interface{}{
        "estimated_cost":     cost,
        "estimated_duration": duration,
        "updated_at":         time.Now(),
      }); err != nil {
        return fmt.Errorf("update phase %s: %w", ph.PhaseID, err)
      }
      ph.EstimatedCost = cost
      ph.EstimatedDuration = duration
    }

    total := pricing.PlanTotal(phases)
    if total != plan.TotalEstimatedCost {
      if err := s.planRepo.UpdateFields(ctx, transaction, plan.ID, map[string]interface{}{
        "total_estimated_cost": total,
        "updated_at":           time.Now(),
      }); err != nil {
        return fmt.Errorf("update plan total: %w", err)
      }
    }
    plan.TotalEstimatedCost = total

    if err := s.projectRepo.UpdateFields(ctx, transaction, plan.ProjectID, map[string]interface{}{
      "total_estimated_cost": total,
      "updated_at":           time.Now(),
    }); err != nil {
      return fmt.Errorf("mirror total onto project: %w", err)
    }
    return nil
  }

  var err error
  if tx != nil {
    err = run(tx)
  } else {
    err = runInTransaction(ctx, s.db, run)
  }
  if err != nil {
    return nil, err
  }

  plan.Phases = phases

  if s.sseHub != nil {
    s.sseHub.Broadcast(sse.SSEMessage{
      Channel: sse.ProjectChannel(plan.ProjectID),
      Event:   sse.SSEEventProjectCostChanged,
      Data: map[string]any{
        "plan_id":              plan.ID,
        "total_estimated_cost": plan.TotalEstimatedCost,
      },
    })
  }
  return plan, nil
}
