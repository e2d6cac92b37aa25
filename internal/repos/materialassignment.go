package repos

import (
  "context"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/casaplan/casaplan-backend/internal/logger"
  "github.com/casaplan/casaplan-backend/internal/types"
)

type MaterialAssignmentRepo interface {
  Create(ctx context.Context, tx *gorm.DB, assignments []*types.MaterialAssignment) ([]*types.MaterialAssignment, error)
  GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.MaterialAssignment, error)
  GetByTaskIDs(ctx context.Context, tx *gorm.DB, taskIDs []uuid.UUID) ([]*types.MaterialAssignment, error)
  UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
  FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
}

type materialAssignmentRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewMaterialAssignmentRepo(db *gorm.DB, baseLog *logger.Logger) MaterialAssignmentRepo {
  repoLog := baseLog.With("repo", "MaterialAssignmentRepo")
  return &materialAssignmentRepo{db: db, log: repoLog}
}

func (r *materialAssignmentRepo) Create(ctx context.Context, tx *gorm.DB, assignments []*types.MaterialAssignment) ([]*types.MaterialAssignment, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if len(assignments) == 0 {
    return []*types.MaterialAssignment{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&assignments).Error; err != nil {
    return nil, err
  }
  return assignments, nil
}

func (r *materialAssignmentRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.MaterialAssignment, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var results []*types.MaterialAssignment
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

func (r *materialAssignmentRepo) GetByTaskIDs(ctx context.Context, tx *gorm.DB, taskIDs []uuid.UUID) ([]*types.MaterialAssignment, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var results []*types.MaterialAssignment
  if len(taskIDs) == 0 {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("task_id IN ?", taskIDs).
    Order("created_at ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *materialAssignmentRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if len(updates) == 0 {
    return nil
  }

  return transaction.WithContext(ctx).
    Model(&types.MaterialAssignment{}).
    Where("id = ?", id).
    Updates(updates).Error
}

func (r *materialAssignmentRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if len(ids) == 0 {
    return nil
  }

  return transaction.WithContext(ctx).
    Unscoped().
    Where("id IN ?", ids).
    Delete(&types.MaterialAssignment{}).Error
}
