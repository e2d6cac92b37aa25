package repos

import (
  "context"
  "errors"
  "time"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/casaplan/casaplan-backend/internal/logger"
  "github.com/casaplan/casaplan-backend/internal/types"
)

type PlanRepo interface {
  // Create persists the plan together with its full phase list in one
  // transaction; a plan row never exists without its phases.
  Create(ctx context.Context, tx *gorm.DB, plan *types.Plan, phases []*types.PlanPhase) (*types.Plan, error)
  GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Plan, error)
  GetByProjectID(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) (*types.Plan, error)
  GetPhasesByPlanID(ctx context.Context, tx *gorm.DB, planID uuid.UUID) ([]*types.PlanPhase, error)
  GetPhaseByPhaseID(ctx context.Context, tx *gorm.DB, phaseID uuid.UUID) (*types.PlanPhase, error)
  // ReplacePhases swaps the plan's entire phase set and total in one
  // transaction: the write either fully lands or the old state survives.
  ReplacePhases(ctx context.Context, tx *gorm.DB, planID uuid.UUID, phases []*types.PlanPhase, total float64) error
  UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
  UpdatePhaseFields(ctx context.Context, tx *gorm.DB, phaseID uuid.UUID, updates map[string]interface{}) error
}

type planRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewPlanRepo(db *gorm.DB, baseLog *logger.Logger) PlanRepo {
  repoLog := baseLog.With("repo", "PlanRepo")
  return &planRepo{db: db, log: repoLog}
}

func (r *planRepo) Create(ctx context.Context, tx *gorm.DB, plan *types.Plan, phases []*types.PlanPhase) (*types.Plan, error) {
  run := func(transaction *gorm.DB) error {
    if err := transaction.WithContext(ctx).Create(plan).Error; err != nil {
      return err
    }
    for _, ph := range phases {
      if ph != nil {
        ph.PlanID = plan.ID
      }
    }
    if len(phases) > 0 {
      if err := transaction.WithContext(ctx).Create(&phases).Error; err != nil {
        return err
      }
    }
    return nil
  }

  if tx != nil {
    if err := run(tx); err != nil {
      return nil, err
    }
    return plan, nil
  }
  if err := r.db.WithContext(ctx).Transaction(run); err != nil {
    return nil, err
  }
  return plan, nil
}

func (r *planRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Plan, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var results []*types.Plan
  if len(ids) == 0 {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("id IN ?", ids).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *planRepo) GetByProjectID(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) (*types.Plan, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var result types.Plan
  err := transaction.WithContext(ctx).
    Where("project_id = ?", projectID).
    First(&result).Error
  if err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      return nil, nil
    }
    return nil, err
  }
  return &result, nil
}

func (r *planRepo) GetPhasesByPlanID(ctx context.Context, tx *gorm.DB, planID uuid.UUID) ([]*types.PlanPhase, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var results []*types.PlanPhase
  if err := transaction.WithContext(ctx).
    Where("plan_id = ?", planID).
    Order("order_index ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *planRepo) GetPhaseByPhaseID(ctx context.Context, tx *gorm.DB, phaseID uuid.UUID) (*types.PlanPhase, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var result types.PlanPhase
  err := transaction.WithContext(ctx).
    Where("phase_id = ?", phaseID).
    First(&result).Error
  if err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      return nil, nil
    }
    return nil, err
  }
  return &result, nil
}

func (r *planRepo) ReplacePhases(ctx context.Context, tx *gorm.DB, planID uuid.UUID, phases []*types.PlanPhase, total float64) error {
  run := func(transaction *gorm.DB) error {
    if err := transaction.WithContext(ctx).
      Unscoped().
      Where("plan_id = ?", planID).
      Delete(&types.PlanPhase{}).Error; err != nil {
      return err
    }
    for _, ph := range phases {
      if ph != nil {
        ph.ID = uuid.Nil
        ph.PlanID = planID
      }
    }
    if len(phases) > 0 {
      if err := transaction.WithContext(ctx).Create(&phases).Error; err != nil {
        return err
      }
    }
    return transaction.WithContext(ctx).
      Model(&types.Plan{}).
      Where("id = ?", planID).
      Updates(map[string]interface{}{
        "total_estimated_cost": total,
        "updated_at":           time.Now(),
      }).Error
  }

  if tx != nil {
    return run(tx)
  }
  return r.db.WithContext(ctx).Transaction(run)
}

// UpdatePhaseFields keys on the stable phase_id, not the surrogate row id.
func (r *planRepo) UpdatePhaseFields(ctx context.Context, tx *gorm.DB, phaseID uuid.UUID, updates map[string]interface{}) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if len(updates) == 0 {
    return nil
  }

  return transaction.WithContext(ctx).
    Model(&types.PlanPhase{}).
    Where("phase_id = ?", phaseID).
    Updates(updates).Error
}

func (r *planRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if len(updates) == 0 {
    return nil
  }

  return transaction.WithContext(ctx).
    Model(&types.Plan{}).
    Where("id = ?", id).
    Updates(updates).Error
}
