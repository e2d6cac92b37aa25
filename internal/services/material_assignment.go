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

// AssignmentOverrides are the optional per-assignment values. Absent
// means stored as null, never silently inherited from the catalog entry.
type AssignmentOverrides struct {
  ProfitMarginForTaskMaterial *float64
  PurchasedValueForTask       *float64
}

// MaterialAssignmentService links catalog materials to tasks. The
// assignment cost is a snapshot of quantity times the catalog unit price,
// re-taken against the current price only on an explicit quantity update.
// Assignment costs never roll up into task or phase estimated cost.
type MaterialAssignmentService interface {
  Assign(ctx context.Context, taskID, materialID uuid.UUID, quantityUsed float64, overrides AssignmentOverrides) (*types.MaterialAssignment, error)
  UpdateQuantity(ctx context.Context, assignmentID uuid.UUID, newQuantity float64) (*types.MaterialAssignment, error)
  Remove(ctx context.Context, assignmentID uuid.UUID) error
  GetAssignmentsForTask(ctx context.Context, taskID uuid.UUID) ([]*types.MaterialAssignment, error)
}

type materialAssignmentService struct {
  db  *gorm.DB
  log *logger.Logger

  taskRepo       repos.TaskRepo
  catalogRepo    repos.MaterialCatalogRepo
  assignmentRepo repos.MaterialAssignmentRepo
}

func NewMaterialAssignmentService(
  db *gorm.DB,
  baseLog *logger.Logger,
  taskRepo repos.TaskRepo,
  catalogRepo repos.MaterialCatalogRepo,
  assignmentRepo repos.MaterialAssignmentRepo,
) MaterialAssignmentService {
  return &materialAssignmentService{
    db:             db,
    log:            baseLog.With("service", "MaterialAssignmentService"),
    taskRepo:       taskRepo,
    catalogRepo:    catalogRepo,
    assignmentRepo: assignmentRepo,
  }
}

func (s *materialAssignmentService) Assign(ctx context.Context, taskID, materialID uuid.UUID, quantityUsed float64, overrides AssignmentOverrides) (*types.MaterialAssignment, error) {
  if quantityUsed <= 0 {
    return nil, apperr.Validationf("quantity_used", "must be > 0")
  }
  if overrides.ProfitMarginForTaskMaterial != nil && *overrides.ProfitMarginForTaskMaterial < 0 {
    return nil, apperr.Validationf("profit_margin_for_task_material", "must be >= 0")
  }

  var assignment *types.MaterialAssignment
  err := runInTransaction(ctx, s.db, func(tx *gorm.DB) error {
    tasks, err := s.taskRepo.GetByIDs(ctx, tx, []uuid.UUID{taskID})
    if err != nil {
      return fmt.Errorf("load task: %w", err)
    }
    if len(tasks) == 0 || tasks[0] == nil {
      return apperr.NotFoundf("task %s", taskID)
    }
    task := tasks[0]

    entries, err := s.catalogRepo.GetByIDs(ctx, tx, []uuid.UUID{materialID})
    if err != nil {
      return fmt.Errorf("load material: %w", err)
    }
    if len(entries) == 0 || entries[0] == nil {
      return apperr.NotFoundf("material %s", materialID)
    }
    entry := entries[0]

    if task.ProjectID != entry.ProjectID {
      return apperr.Validationf("material_id", "material belongs to a different project than the task")
    }

    assignment = &types.MaterialAssignment{
      TaskID:                      taskID,
      MaterialID:                  materialID,
      QuantityUsed:                quantityUsed,
      MaterialCostForTask:         pricing.MaterialAssignmentCost(quantityUsed, entry.EstimatedUnitPrice),
      ProfitMarginForTaskMaterial: overrides.ProfitMarginForTaskMaterial,
      PurchasedValueForTask:       overrides.PurchasedValueForTask,
    }
    _, err = s.assignmentRepo.Create(ctx, tx, []*types.MaterialAssignment{assignment})
    return err
  })
  if err != nil {
    return nil, err
  }
  return assignment, nil
}

// UpdateQuantity re-snapshots the cost against the catalog's current unit
// price, even when the quantity value is unchanged.
func (s *materialAssignmentService) UpdateQuantity(ctx context.Context, assignmentID uuid.UUID, newQuantity float64) (*types.MaterialAssignment, error) {
  if newQuantity <= 0 {
    return nil, apperr.Validationf("quantity_used", "must be > 0")
  }

  var assignment *types.MaterialAssignment
  err := runInTransaction(ctx, s.db, func(tx *gorm.DB) error {
    assignments, err := s.assignmentRepo.GetByIDs(ctx, tx, []uuid.UUID{assignmentID})
    if err != nil {
      return fmt.Errorf("load assignment: %w", err)
    }
    if len(assignments) == 0 || assignments[0] == nil {
      return apperr.NotFoundf("assignment %s", assignmentID)
    }
    assignment = assignments[0]

    entries, err := s.catalogRepo.GetByIDs(ctx, tx, []uuid.UUID{assignment.MaterialID})
    if err != nil {
      return fmt.Errorf("load material: %w", err)
    }
    if len(entries) == 0 || entries[0] == nil {
      return apperr.NotFoundf("material %s", assignment.MaterialID)
    }
    entry := entries[0]

    assignment.QuantityUsed = newQuantity
    assignment.MaterialCostForTask = pricing.MaterialAssignmentCost(newQuantity, entry.EstimatedUnitPrice)

    return s.assignmentRepo.UpdateFields(ctx, tx, assignmentID, map[string]interface{}{
      "quantity_used":          assignment.QuantityUsed,
      "material_cost_for_task": assignment.MaterialCostForTask,
      "updated_at":             time.Now(),
    })
  })
  if err != nil {
    return nil, err
  }
  return assignment, nil
}

// Remove deletes the link; the task's estimated cost is untouched since
// material costs are tracked separately from task costs.
func (s *materialAssignmentService) Remove(ctx context.Context, assignmentID uuid.UUID) error {
  return runInTransaction(ctx, s.db, func(tx *gorm.DB) error {
    assignments, err := s.assignmentRepo.GetByIDs(ctx, tx, []uuid.UUID{assignmentID})
    if err != nil {
      return fmt.Errorf("load assignment: %w", err)
    }
    if len(assignments) == 0 || assignments[0] == nil {
      return apperr.NotFoundf("assignment %s", assignmentID)
    }
    return s.assignmentRepo.FullDeleteByIDs(ctx, tx, []uuid.UUID{assignmentID})
  })
}

func (s *materialAssignmentService) GetAssignmentsForTask(ctx context.Context, taskID uuid.UUID) ([]*types.MaterialAssignment, error) {
  if taskID == uuid.Nil {
    return nil, apperr.Validationf("task_id", "required")
  }
  return s.assignmentRepo.GetByTaskIDs(ctx, nil, []uuid.UUID{taskID})
}
