package services

import (
  "context"
  "errors"
  "testing"

  "github.com/google/uuid"

  "github.com/casaplan/casaplan-backend/internal/apperr"
  "github.com/casaplan/casaplan-backend/internal/types"
)

func (e *testEnv) materialService() MaterialService {
  return NewMaterialService(nil, e.log, e.projectRepo, e.catalogRepo)
}

func TestCreateMaterialValidatesInput(t *testing.T) {
  env := newTestEnv(t)
  project := env.seedProject(t)
  svc := env.materialService()

  base := func() MaterialCreateInput {
    return MaterialCreateInput{
      ProjectID:          project.ID,
      Title:              "Cemento gris 50kg",
      UnitOfMeasure:      types.UnitBulto,
      EstimatedUnitPrice: 28000,
    }
  }

  if _, err := svc.CreateMaterial(context.Background(), base()); err != nil {
    t.Fatalf("valid input rejected: %v", err)
  }

  cases := []struct {
    name   string
    mutate func(*MaterialCreateInput)
  }{
    {"empty title", func(in *MaterialCreateInput) { in.Title = "" }},
    {"unknown unit", func(in *MaterialCreateInput) { in.UnitOfMeasure = "tonelada" }},
    {"negative price", func(in *MaterialCreateInput) { in.EstimatedUnitPrice = -1 }},
    {"negative margin", func(in *MaterialCreateInput) { in.ProfitMargin = floatp(-0.1) }},
  }
  for _, tc := range cases {
    in := base()
    tc.mutate(&in)
    if _, err := svc.CreateMaterial(context.Background(), in); !errors.Is(err, apperr.ErrValidation) {
      t.Fatalf("%s: want ErrValidation, got %v", tc.name, err)
    }
  }

  if _, err := svc.CreateMaterial(context.Background(), MaterialCreateInput{
    ProjectID:          uuid.New(),
    Title:              "Arena lavada",
    UnitOfMeasure:      types.UnitM3,
    EstimatedUnitPrice: 90000,
  }); !errors.Is(err, apperr.ErrNotFound) {
    t.Fatalf("unknown project: want ErrNotFound, got %v", err)
  }
}

func TestUpdateMaterialPriceDoesNotTouchSnapshots(t *testing.T) {
  env := newTestEnv(t)
  project := env.seedProject(t)
  task := env.seedTask(t, project, "Muro de carga", 8000000)
  cement := env.seedMaterial(t, project, "Cemento gris 50kg", 100)

  assignment, err := env.assignmentService().Assign(context.Background(), task.ID, cement.ID, 5, AssignmentOverrides{})
  if err != nil {
    t.Fatalf("Assign: %v", err)
  }

  updated, err := env.materialService().UpdateMaterial(context.Background(), cement.ID, MaterialUpdateInput{
    EstimatedUnitPrice: floatp(120),
  })
  if err != nil {
    t.Fatalf("UpdateMaterial: %v", err)
  }
  if updated.EstimatedUnitPrice != 120 {
    t.Fatalf("price: want=120 got=%v", updated.EstimatedUnitPrice)
  }
  if assignment.MaterialCostForTask != 500 {
    t.Fatalf("existing snapshot moved with catalog price: %v", assignment.MaterialCostForTask)
  }
}

func TestDeleteMaterial(t *testing.T) {
  env := newTestEnv(t)
  project := env.seedProject(t)
  cement := env.seedMaterial(t, project, "Cemento gris 50kg", 28000)
  svc := env.materialService()

  if err := svc.DeleteMaterial(context.Background(), cement.ID); err != nil {
    t.Fatalf("DeleteMaterial: %v", err)
  }
  entries, err := svc.GetMaterialsForProject(context.Background(), project.ID)
  if err != nil {
    t.Fatalf("GetMaterialsForProject: %v", err)
  }
  if len(entries) != 0 {
    t.Fatalf("material still listed after delete")
  }
  if err := svc.DeleteMaterial(context.Background(), cement.ID); !errors.Is(err, apperr.ErrNotFound) {
    t.Fatalf("second delete: want ErrNotFound, got %v", err)
  }
}
