package services

import (
  "context"
  "fmt"
  "time"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/casaplan/casaplan-backend/internal/apperr"
  "github.com/casaplan/casaplan-backend/internal/logger"
  "github.com/casaplan/casaplan-backend/internal/repos"
  "github.com/casaplan/casaplan-backend/internal/types"
)

type MaterialCreateInput struct {
  ProjectID          uuid.UUID
  Title              string
  ReferenceCode      string
  Brand              string
  Supplier           string
  Description        string
  UnitOfMeasure      types.UnitOfMeasure
  EstimatedUnitPrice float64
  ProfitMargin       *float64
}

type MaterialUpdateInput struct {
  Title              *string
  ReferenceCode      *string
  Brand              *string
  Supplier           *string
  Description        *string
  UnitOfMeasure      *types.UnitOfMeasure
  EstimatedUnitPrice *float64
  ProfitMargin       *float64
}

// MaterialService manages the project-scoped material catalog. Catalog
// price changes do not touch existing assignment snapshots.
type MaterialService interface {
  CreateMaterial(ctx context.Context, input MaterialCreateInput) (*types.MaterialCatalogEntry, error)
  UpdateMaterial(ctx context.Context, materialID uuid.UUID, input MaterialUpdateInput) (*types.MaterialCatalogEntry, error)
  DeleteMaterial(ctx context.Context, materialID uuid.UUID) error
  GetMaterialsForProject(ctx context.Context, projectID uuid.UUID) ([]*types.MaterialCatalogEntry, error)
}

type materialService struct {
  db  *gorm.DB
  log *logger.Logger

  projectRepo repos.ProjectRepo
  catalogRepo repos.MaterialCatalogRepo
}

func NewMaterialService(
  db *gorm.DB,
  baseLog *logger.Logger,
  projectRepo repos.ProjectRepo,
  catalogRepo repos.MaterialCatalogRepo,
) MaterialService {
  return &materialService{
    db:          db,
    log:         baseLog.With("service", "MaterialService"),
    projectRepo: projectRepo,
    catalogRepo: catalogRepo,
  }
}

func (s *materialService) CreateMaterial(ctx context.Context, input MaterialCreateInput) (*types.MaterialCatalogEntry, error) {
  if input.Title == "" {
    return nil, apperr.Validationf("title", "required")
  }
  if !types.ValidUnitOfMeasure(input.UnitOfMeasure) {
    return nil, apperr.Validationf("unit_of_measure", "unknown unit %q", input.UnitOfMeasure)
  }
  if input.EstimatedUnitPrice < 0 {
    return nil, apperr.Validationf("estimated_unit_price", "must be >= 0")
  }
  if input.ProfitMargin != nil && *input.ProfitMargin < 0 {
    return nil, apperr.Validationf("profit_margin", "must be >= 0")
  }

  var entry *types.MaterialCatalogEntry
  err := runInTransaction(ctx, s.db, func(tx *gorm.DB) error {
    projects, err := s.projectRepo.GetByIDs(ctx, tx, []uuid.UUID{input.ProjectID})
    if err != nil {
      return fmt.Errorf("load project: %w", err)
    }
    if len(projects) == 0 || projects[0] == nil {
      return apperr.NotFoundf("project %s", input.ProjectID)
    }

    entry = &types.MaterialCatalogEntry{
      ProjectID:          input.ProjectID,
      Title:              input.Title,
      ReferenceCode:      input.ReferenceCode,
      Brand:              input.Brand,
      Supplier:           input.Supplier,
      Description:        input.Description,
      UnitOfMeasure:      input.UnitOfMeasure,
      EstimatedUnitPrice: input.EstimatedUnitPrice,
      ProfitMargin:       input.ProfitMargin,
    }
    _, err = s.catalogRepo.Create(ctx, tx, []*types.MaterialCatalogEntry{entry})
    return err
  })
  if err != nil {
    return nil, err
  }
  return entry, nil
}

func (s *materialService) UpdateMaterial(ctx context.Context, materialID uuid.UUID, input MaterialUpdateInput) (*types.MaterialCatalogEntry, error) {
  var entry *types.MaterialCatalogEntry
  err := runInTransaction(ctx, s.db, func(tx *gorm.DB) error {
    entries, err := s.catalogRepo.GetByIDs(ctx, tx, []uuid.UUID{materialID})
    if err != nil {
      return fmt.Errorf("load material: %w", err)
    }
    if len(entries) == 0 || entries[0] == nil {
      return apperr.NotFoundf("material %s", materialID)
    }
    entry = entries[0]

    updates := map[string]interface{}{}
    if input.Title != nil {
      if *input.Title == "" {
        return apperr.Validationf("title", "required")
      }
      entry.Title = *input.Title
      updates["title"] = entry.Title
    }
    if input.ReferenceCode != nil {
      entry.ReferenceCode = *input.ReferenceCode
      updates["reference_code"] = entry.ReferenceCode
    }
    if input.Brand != nil {
      entry.Brand = *input.Brand
      updates["brand"] = entry.Brand
    }
    if input.Supplier != nil {
      entry.Supplier = *input.Supplier
      updates["supplier"] = entry.Supplier
    }
    if input.Description != nil {
      entry.Description = *input.Description
      updates["description"] = entry.Description
    }
    if input.UnitOfMeasure != nil {
      if !types.ValidUnitOfMeasure(*input.UnitOfMeasure) {
        return apperr.Validationf("unit_of_measure", "unknown unit %q", *input.UnitOfMeasure)
      }
      entry.UnitOfMeasure = *input.UnitOfMeasure
      updates["unit_of_measure"] = entry.UnitOfMeasure
    }
    if input.EstimatedUnitPrice != nil {
      if *input.EstimatedUnitPrice < 0 {
        return apperr.Validationf("estimated_unit_price", "must be >= 0")
      }
      entry.EstimatedUnitPrice = *input.EstimatedUnitPrice
      updates["estimated_unit_price"] = entry.EstimatedUnitPrice
    }
    if input.ProfitMargin != nil {
      if *input.ProfitMargin < 0 {
        return apperr.Validationf("profit_margin", "must be >= 0")
      }
      entry.ProfitMargin = input.ProfitMargin
      updates["profit_margin"] = *input.ProfitMargin
    }
    if len(updates) == 0 {
      return nil
    }
    updates["updated_at"] = time.Now()
    return s.catalogRepo.UpdateFields(ctx, tx, materialID, updates)
  })
  if err != nil {
    return nil, err
  }
  return entry, nil
}

func (s *materialService) DeleteMaterial(ctx context.Context, materialID uuid.UUID) error {
  return runInTransaction(ctx, s.db, func(tx *gorm.DB) error {
    entries, err := s.catalogRepo.GetByIDs(ctx, tx, []uuid.UUID{materialID})
    if err != nil {
      return fmt.Errorf("load material: %w", err)
    }
    if len(entries) == 0 || entries[0] == nil {
      return apperr.NotFoundf("material %s", materialID)
    }
    return s.catalogRepo.FullDeleteByIDs(ctx, tx, []uuid.UUID{materialID})
  })
}

func (s *materialService) GetMaterialsForProject(ctx context.Context, projectID uuid.UUID) ([]*types.MaterialCatalogEntry, error) {
  if projectID == uuid.Nil {
    return nil, apperr.Validationf("project_id", "required")
  }
  return s.catalogRepo.GetByProjectIDs(ctx, nil, []uuid.UUID{projectID})
}
