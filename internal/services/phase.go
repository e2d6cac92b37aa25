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
  "github.com/casaplan/casaplan-backend/internal/types"
)

// PhaseEdit carries the editable phase fields; nil means "leave as is".
// Cost and duration edits are rejected for phases that own tasks, since
// those figures are derived from the tasks.
type PhaseEdit struct {
  Name              *string
  EstimatedDuration *int
  EstimatedCost     *float64
}

// PhaseService applies structural mutations to a plan's phase list while
// keeping order values contiguous 1..N. Every mutation ends with a rollup.
type PhaseService interface {
  AddPhase(ctx context.Context, planID uuid.UUID, name string, estimatedDuration int, estimatedCost float64) (*types.PlanPhase, error)
  DeletePhase(ctx context.Context, planID uuid.UUID, phaseID uuid.UUID) error
  MovePhase(ctx context.Context, planID uuid.UUID, fromIndex, toIndex int) error
  EditPhase(ctx context.Context, planID uuid.UUID, phaseID uuid.UUID, edit PhaseEdit) error
}

type phaseService struct {
  db  *gorm.DB
  log *logger.Logger

  planRepo repos.PlanRepo
  taskRepo repos.TaskRepo
  rollup   RollupService
}

func NewPhaseService(
  db *gorm.DB,
  baseLog *logger.Logger,
  planRepo repos.PlanRepo,
  taskRepo repos.TaskRepo,
  rollup RollupService,
) PhaseService {
  return &phaseService{
    db:       db,
    log:      baseLog.With("service", "PhaseService"),
    planRepo: planRepo,
    taskRepo: taskRepo,
    rollup:   rollup,
  }
}

func (s *phaseService) loadPlanPhases(ctx context.Context, tx *gorm.DB, planID uuid.UUID) (*types.Plan, []*types.PlanPhase, error) {
  plans, err := s.planRepo.GetByIDs(ctx, tx, []uuid.UUID{planID})
  if err != nil {
    return nil, nil, fmt.Errorf("load plan: %w", err)
  }
  if len(plans) == 0 || plans[0] == nil {
    return nil, nil, apperr.NotFoundf("plan %s", planID)
  }
  phases, err := s.planRepo.GetPhasesByPlanID(ctx, tx, planID)
  if err != nil {
    return nil, nil, fmt.Errorf("load phases: %w", err)
  }
  return plans[0], phases, nil
}

// renumber reassigns contiguous 1-based order values in slice order.
func renumber(phases []*types.PlanPhase) {
  for i, ph := range phases {
    if ph != nil {
      ph.OrderIndex = i + 1
    }
  }
}

func (s *phaseService) AddPhase(ctx context.Context, planID uuid.UUID, name string, estimatedDuration int, estimatedCost float64) (*types.PlanPhase, error) {
  if name == "" {
    return nil, apperr.Validationf("name", "required")
  }
  if estimatedDuration < 0 {
    return nil, apperr.Validationf("estimated_duration", "must be >= 0")
  }
  if estimatedCost < 0 {
    return nil, apperr.Validationf("estimated_cost", "must be >= 0")
  }

  var added *types.PlanPhase
  err := runInTransaction(ctx, s.db, func(tx *gorm.DB) error {
    _, phases, err := s.loadPlanPhases(ctx, tx, planID)
    if err != nil {
      return err
    }

    added = &types.PlanPhase{
      PhaseID:           uuid.New(),
      Name:              name,
      OrderIndex:        len(phases) + 1,
      EstimatedDuration: estimatedDuration,
      EstimatedCost:     estimatedCost,
    }
    phases = append(phases, added)

    if err := s.planRepo.ReplacePhases(ctx, tx, planID, phases, pricing.PlanTotal(phases)); err != nil {
      return fmt.Errorf("persist phases: %w", err)
    }
    _, err = s.rollup.Recompute(ctx, tx, planID)
    return err
  })
  if err != nil {
    return nil, err
  }
  s.log.Info("Phase added", "plan_id", planID, "phase_id", added.PhaseID, "order", added.OrderIndex)
  return added, nil
}

func (s *phaseService) DeletePhase(ctx context.Context, planID uuid.UUID, phaseID uuid.UUID) error {
  err := runInTransaction(ctx, s.db, func(tx *gorm.DB) error {
    _, phases, err := s.loadPlanPhases(ctx, tx, planID)
    if err != nil {
      return err
    }

    kept := make([]*types.PlanPhase, 0, len(phases))
    found := false
    for _, ph := range phases {
      if ph != nil && ph.PhaseID == phaseID {
        found = true
        continue
      }
      kept = append(kept, ph)
    }
    if !found {
      return apperr.NotFoundf("phase %s in plan %s", phaseID, planID)
    }
    renumber(kept)

    // Tasks referencing the removed phase go with it; leaving them behind
    // would leave costs that no phase accounts for.
    tasks, err := s.taskRepo.GetByPhaseIDs(ctx, tx, []uuid.UUID{phaseID})
    if err != nil {
      return fmt.Errorf("load phase tasks: %w", err)
    }
    taskIDs := make([]uuid.UUID, 0, len(tasks))
    for _, t := range tasks {
      if t != nil {
        taskIDs = append(taskIDs, t.ID)
      }
    }
    if err := s.taskRepo.FullDeleteByIDs(ctx, tx, taskIDs); err != nil {
      return fmt.Errorf("delete phase tasks: %w", err)
    }

    if err := s.planRepo.ReplacePhases(ctx, tx, planID, kept, pricing.PlanTotal(kept)); err != nil {
      return fmt.Errorf("persist phases: %w", err)
    }
    _, err = s.rollup.Recompute(ctx, tx, planID)
    return err
  })
  if err != nil {
    return err
  }
  s.log.Info("Phase deleted", "plan_id", planID, "phase_id", phaseID)
  return nil
}

func (s *phaseService) MovePhase(ctx context.Context, planID uuid.UUID, fromIndex, toIndex int) error {
  return runInTransaction(ctx, s.db, func(tx *gorm.DB) error {
    _, phases, err := s.loadPlanPhases(ctx, tx, planID)
    if err != nil {
      return err
    }
    n := len(phases)
    if fromIndex < 1 || fromIndex > n {
      return apperr.Validationf("from_index", "out of range 1..%d", n)
    }
    if toIndex < 1 || toIndex > n {
      return apperr.Validationf("to_index", "out of range 1..%d", n)
    }
    if fromIndex == toIndex {
      return nil
    }

    moved := phases[fromIndex-1]
    rest := append(append([]*types.PlanPhase{}, phases[:fromIndex-1]...), phases[fromIndex:]...)
    reordered := make([]*types.PlanPhase, 0, n)
    reordered = append(reordered, rest[:toIndex-1]...)
    reordered = append(reordered, moved)
    reordered = append(reordered, rest[toIndex-1:]...)
    renumber(reordered)

    if err := s.planRepo.ReplacePhases(ctx, tx, planID, reordered, pricing.PlanTotal(reordered)); err != nil {
      return fmt.Errorf("persist phases: %w", err)
    }
    _, err = s.rollup.Recompute(ctx, tx, planID)
    return err
  })
}

func (s *phaseService) EditPhase(ctx context.Context, planID uuid.UUID, phaseID uuid.UUID, edit PhaseEdit) error {
  return runInTransaction(ctx, s.db, func(tx *gorm.DB) error {
    _, phases, err := s.loadPlanPhases(ctx, tx, planID)
    if err != nil {
      return err
    }
    var target *types.PlanPhase
    for _, ph := range phases {
      if ph != nil && ph.PhaseID == phaseID {
        target = ph
        break
      }
    }
    if target == nil {
      return apperr.NotFoundf("phase %s in plan %s", phaseID, planID)
    }

    if edit.EstimatedCost != nil || edit.EstimatedDuration != nil {
      tasks, err := s.taskRepo.GetByPhaseIDs(ctx, tx, []uuid.UUID{phaseID})
      if err != nil {
        return fmt.Errorf("load phase tasks: %w", err)
      }
      if len(tasks) > 0 {
        return apperr.Validationf("estimated_cost", "phase figures are derived from its tasks; edit the tasks instead")
      }
    }

    updates := map[string]interface{}{}
    if edit.Name != nil {
      if *edit.Name == "" {
        return apperr.Validationf("name", "required")
      }
      updates["name"] = *edit.Name
    }
    if edit.EstimatedDuration != nil {
      if *edit.EstimatedDuration < 0 {
        return apperr.Validationf("estimated_duration", "must be >= 0")
      }
      updates["estimated_duration"] = *edit.EstimatedDuration
    }
    if edit.EstimatedCost != nil {
      if *edit.EstimatedCost < 0 {
        return apperr.Validationf("estimated_cost", "must be >= 0")
      }
      updates["estimated_cost"] = *edit.EstimatedCost
    }
    if len(updates) == 0 {
      return nil
    }
    updates["updated_at"] = time.Now()

    if err := s.planRepo.UpdatePhaseFields(ctx, tx, phaseID, updates); err != nil {
      return fmt.Errorf("update phase: %w", err)
    }
    _, err = s.rollup.Recompute(ctx, tx, planID)
    return err
  })
}
