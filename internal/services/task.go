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

type TaskCreateInput struct {
  ProjectID           uuid.UUID
  PhaseID             uuid.UUID
  Title               string
  Description         string
  Quantity            *float64
  UnitOfMeasure       types.UnitOfMeasure
  UnitPrice           float64
  LaborCost           *float64
  EstimatedDuration   *int
  Status              types.TaskStatus
  ProfitMargin        *float64
  ExecutionPercentage *float64
  StartDate           *time.Time
  EndDate             *time.Time
}

// TaskUpdateInput fields are pointers; nil leaves the field untouched.
type TaskUpdateInput struct {
  Title               *string
  Description         *string
  Quantity            *float64
  UnitOfMeasure       *types.UnitOfMeasure
  UnitPrice           *float64
  LaborCost           *float64
  ClearLaborCost      bool
  EstimatedDuration   *int
  Status              *types.TaskStatus
  ProfitMargin        *float64
  ExecutionPercentage *float64
  StartDate           *time.Time
  EndDate             *time.Time
}

// TaskService owns task mutations. Every create/update/delete recomputes
// the task's estimated cost from quantity, unit price, and labor, then
// rolls the owning plan up. The task's profit margin never enters the
// cost.
type TaskService interface {
  CreateTask(ctx context.Context, input TaskCreateInput) (*types.Task, error)
  UpdateTask(ctx context.Context, taskID uuid.UUID, input TaskUpdateInput) (*types.Task, error)
  DeleteTask(ctx context.Context, taskID uuid.UUID) error
  GetTasksForPhase(ctx context.Context, phaseID uuid.UUID) ([]*types.Task, error)
}

type taskService struct {
  db  *gorm.DB
  log *logger.Logger

  projectRepo repos.ProjectRepo
  planRepo    repos.PlanRepo
  taskRepo    repos.TaskRepo
  rollup      RollupService
}

func NewTaskService(
  db *gorm.DB,
  baseLog *logger.Logger,
  projectRepo repos.ProjectRepo,
  planRepo repos.PlanRepo,
  taskRepo repos.TaskRepo,
  rollup RollupService,
) TaskService {
  return &taskService{
    db:          db,
    log:         baseLog.With("service", "TaskService"),
    projectRepo: projectRepo,
    planRepo:    planRepo,
    taskRepo:    taskRepo,
    rollup:      rollup,
  }
}

func validateDates(start, end *time.Time) error {
  if start != nil && end != nil && end.Before(*start) {
    return apperr.Validationf("end_date", "must not be before start_date")
  }
  return nil
}

func validateExecutionPercentage(p *float64) error {
  if p != nil && (*p < 0 || *p > 100) {
    return apperr.Validationf("execution_percentage", "must be within 0..100")
  }
  return nil
}

func (s *taskService) CreateTask(ctx context.Context, input TaskCreateInput) (*types.Task, error) {
  if input.Title == "" {
    return nil, apperr.Validationf("title", "required")
  }
  quantity := 1.0
  if input.Quantity != nil {
    if *input.Quantity < 0 {
      return nil, apperr.Validationf("quantity", "must be >= 0")
    }
    quantity = *input.Quantity
  }
  if !types.ValidUnitOfMeasure(input.UnitOfMeasure) {
    return nil, apperr.Validationf("unit_of_measure", "unknown unit %q", input.UnitOfMeasure)
  }
  if input.UnitPrice < 0 {
    return nil, apperr.Validationf("unit_price", "must be >= 0")
  }
  if input.LaborCost != nil && *input.LaborCost < 0 {
    return nil, apperr.Validationf("labor_cost", "must be >= 0")
  }
  if input.EstimatedDuration != nil && *input.EstimatedDuration < 0 {
    return nil, apperr.Validationf("estimated_duration", "must be >= 0")
  }
  if input.ProfitMargin != nil && *input.ProfitMargin < 0 {
    return nil, apperr.Validationf("profit_margin", "must be >= 0")
  }
  if err := validateExecutionPercentage(input.ExecutionPercentage); err != nil {
    return nil, err
  }
  if err := validateDates(input.StartDate, input.EndDate); err != nil {
    return nil, err
  }
  status := input.Status
  if status == "" {
    status = types.TaskStatusPending
  }
  if !types.ValidTaskStatus(status) {
    return nil, apperr.Validationf("status", "unknown status %q", status)
  }

  var task *types.Task
  err := runInTransaction(ctx, s.db, func(tx *gorm.DB) error {
    projects, err := s.projectRepo.GetByIDs(ctx, tx, []uuid.UUID{input.ProjectID})
    if err != nil {
      return fmt.Errorf("load project: %w", err)
    }
    if len(projects) == 0 || projects[0] == nil {
      return apperr.NotFoundf("project %s", input.ProjectID)
    }
    phase, err := s.planRepo.GetPhaseByPhaseID(ctx, tx, input.PhaseID)
    if err != nil {
      return fmt.Errorf("load phase: %w", err)
    }
    if phase == nil {
      return apperr.NotFoundf("phase %s", input.PhaseID)
    }

    task = &types.Task{
      ProjectID:           input.ProjectID,
      PhaseID:             input.PhaseID,
      Title:               input.Title,
      Description:         input.Description,
      Quantity:            quantity,
      UnitOfMeasure:       input.UnitOfMeasure,
      UnitPrice:           input.UnitPrice,
      LaborCost:           input.LaborCost,
      EstimatedCost:       pricing.TaskCost(quantity, input.UnitPrice, input.LaborCost),
      EstimatedDuration:   input.EstimatedDuration,
      Status:              status,
      ProfitMargin:        input.ProfitMargin,
      ExecutionPercentage: input.ExecutionPercentage,
      StartDate:           input.StartDate,
      EndDate:             input.EndDate,
    }
    if _, err := s.taskRepo.Create(ctx, tx, []*types.Task{task}); err != nil {
      return fmt.Errorf("create task: %w", err)
    }
    _, err = s.rollup.Recompute(ctx, tx, phase.PlanID)
    return err
  })
  if err != nil {
    return nil, err
  }
  return task, nil
}

func (s *taskService) UpdateTask(ctx context.Context, taskID uuid.UUID, input TaskUpdateInput) (*types.Task, error) {
  var task *types.Task
  err := runInTransaction(ctx, s.db, func(tx *gorm.DB) error {
    tasks, err := s.taskRepo.GetByIDs(ctx, tx, []uuid.UUID{taskID})
    if err != nil {
      return fmt.Errorf("load task: %w", err)
    }
    if len(tasks) == 0 || tasks[0] == nil {
      return apperr.NotFoundf("task %s", taskID)
    }
    task = tasks[0]

    updates := map[string]interface{}{}
    costRelevant := false

    if input.Title != nil {
      if *input.Title == "" {
        return apperr.Validationf("title", "required")
      }
      task.Title = *input.Title
      updates["title"] = task.Title
    }
    if input.Description != nil {
      task.Description = *input.Description
      updates["description"] = task.Description
    }
    if input.Quantity != nil {
      if *input.Quantity < 0 {
        return apperr.Validationf("quantity", "must be >= 0")
      }
      task.Quantity = *input.Quantity
      updates["quantity"] = task.Quantity
      costRelevant = true
    }
    if input.UnitOfMeasure != nil {
      if !types.ValidUnitOfMeasure(*input.UnitOfMeasure) {
        return apperr.Validationf("unit_of_measure", "unknown unit %q", *input.UnitOfMeasure)
      }
      task.UnitOfMeasure = *input.UnitOfMeasure
      updates["unit_of_measure"] = task.UnitOfMeasure
    }
    if input.UnitPrice != nil {
      if *input.UnitPrice < 0 {
        return apperr.Validationf("unit_price", "must be >= 0")
      }
      task.UnitPrice = *input.UnitPrice
      updates["unit_price"] = task.UnitPrice
      costRelevant = true
    }
    if input.ClearLaborCost {
      task.LaborCost = nil
      updates["labor_cost"] = nil
      costRelevant = true
    } else if input.LaborCost != nil {
      if *input.LaborCost < 0 {
        return apperr.Validationf("labor_cost", "must be >= 0")
      }
      task.LaborCost = input.LaborCost
      updates["labor_cost"] = *input.LaborCost
      costRelevant = true
    }
    if input.EstimatedDuration != nil {
      if *input.EstimatedDuration < 0 {
        return apperr.Validationf("estimated_duration", "must be >= 0")
      }
      task.EstimatedDuration = input.EstimatedDuration
      updates["estimated_duration"] = *input.EstimatedDuration
      costRelevant = true
    }
    if input.Status != nil {
      // Free transitions: any status may follow any other.
      if !types.ValidTaskStatus(*input.Status) {
        return apperr.Validationf("status", "unknown status %q", *input.Status)
      }
      task.Status = *input.Status
      updates["status"] = task.Status
    }
    if input.ProfitMargin != nil {
      if *input.ProfitMargin < 0 {
        return apperr.Validationf("profit_margin", "must be >= 0")
      }
      task.ProfitMargin = input.ProfitMargin
      updates["profit_margin"] = *input.ProfitMargin
    }
    if input.ExecutionPercentage != nil {
      if err := validateExecutionPercentage(input.ExecutionPercentage); err != nil {
        return err
      }
      task.ExecutionPercentage = input.ExecutionPercentage
      updates["execution_percentage"] = *input.ExecutionPercentage
    }
    if input.StartDate != nil {
      task.StartDate = input.StartDate
      updates["start_date"] = *input.StartDate
    }
    if input.EndDate != nil {
      task.EndDate = input.EndDate
      updates["end_date"] = *input.EndDate
    }
    if err := validateDates(task.StartDate, task.EndDate); err != nil {
      return err
    }
    if len(updates) == 0 {
      return nil
    }

    task.EstimatedCost = pricing.TaskCost(task.Quantity, task.UnitPrice, task.LaborCost)
    updates["estimated_cost"] = task.EstimatedCost
    updates["updated_at"] = time.Now()

    if err := s.taskRepo.UpdateFields(ctx, tx, task.ID, updates); err != nil {
      return fmt.Errorf("update task: %w", err)
    }

    if !costRelevant {
      return nil
    }
    phase, err := s.planRepo.GetPhaseByPhaseID(ctx, tx, task.PhaseID)
    if err != nil {
      return fmt.Errorf("load phase: %w", err)
    }
    if phase == nil {
      return apperr.NotFoundf("phase %s", task.PhaseID)
    }
    _, err = s.rollup.Recompute(ctx, tx, phase.PlanID)
    return err
  })
  if err != nil {
    return nil, err
  }
  return task, nil
}

func (s *taskService) DeleteTask(ctx context.Context, taskID uuid.UUID) error {
  return runInTransaction(ctx, s.db, func(tx *gorm.DB) error {
    tasks, err := s.taskRepo.GetByIDs(ctx, tx, []uuid.UUID{taskID})
    if err != nil {
      return fmt.Errorf("load task: %w", err)
    }
    if len(tasks) == 0 || tasks[0] == nil {
      return apperr.NotFoundf("task %s", taskID)
    }
    task := tasks[0]

    if err := s.taskRepo.FullDeleteByIDs(ctx, tx, []uuid.UUID{taskID}); err != nil {
      return fmt.Errorf("delete task: %w", err)
    }

    phase, err := s.planRepo.GetPhaseByPhaseID(ctx, tx, task.PhaseID)
    if err != nil {
      return fmt.Errorf("load phase: %w", err)
    }
    if phase == nil {
      // Phase already gone; nothing left to roll up.
      return nil
    }
    _, err = s.rollup.Recompute(ctx, tx, phase.PlanID)
    return err
  })
}

func (s *taskService) GetTasksForPhase(ctx context.Context, phaseID uuid.UUID) ([]*types.Task, error) {
  if phaseID == uuid.Nil {
    return nil, apperr.Validationf("phase_id", "required")
  }
  return s.taskRepo.GetByPhaseIDs(ctx, nil, []uuid.UUID{phaseID})
}
