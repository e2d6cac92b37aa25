package repos

import (
  "context"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/casaplan/casaplan-backend/internal/logger"
  "github.com/casaplan/casaplan-backend/internal/types"
)

type MaterialCatalogRepo interface {
  Create(ctx context.Context, tx *gorm.DB, entries []*types.MaterialCatalogEntry) ([]*types.MaterialCatalogEntry, error)
  GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.MaterialCatalogEntry, error)
  GetByProjectIDs(ctx context.Context, tx *gorm.DB, projectIDs []uuid.UUID) ([]*types.MaterialCatalogEntry, error)
  UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
  FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
}

type materialCatalogRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewMaterialCatalogRepo(db *gorm.DB, baseLog *logger.Logger) MaterialCatalogRepo {
  repoLog := baseLog.With("repo", "MaterialCatalogRepo")
  return &materialCatalogRepo{db: db, log: repoLog}
}

func (r *materialCatalogRepo) Create(ctx context.Context, tx *gorm.DB, entries []*types.MaterialCatalogEntry) ([]*types.MaterialCatalogEntry, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if len(entries) == 0 {
    return []*types.MaterialCatalogEntry{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&entries).Error; err != nil {
    return nil, err
  }
  return entries, nil
}

func (r *materialCatalogRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.MaterialCatalogEntry, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var results []*types.MaterialCatalogEntry
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

func (r *materialCatalogRepo) GetByProjectIDs(ctx context.Context, tx *gorm.DB, projectIDs []uuid.UUID) ([]*types.MaterialCatalogEntry, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var results []*types.MaterialCatalogEntry
  if len(projectIDs) == 0 {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("project_id IN ?", projectIDs).
    Order("title ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *materialCatalogRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if len(updates) == 0 {
    return nil
  }

  return transaction.WithContext(ctx).
    Model(&types.MaterialCatalogEntry{}).
    Where("id = ?", id).
    Updates(updates).Error
}

func (r *materialCatalogRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
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
    Delete(&types.MaterialCatalogEntry{}).Error
}
