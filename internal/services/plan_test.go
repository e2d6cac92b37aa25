package services

import (
  "context"
  "errors"
  "testing"

  "github.com/google/uuid"

  "github.com/casaplan/casaplan-backend/internal/apperr"
  "github.com/casaplan/casaplan-backend/internal/types"
)

func TestGetPlanForProjectReturnsOrderedPhases(t *testing.T) {
  env := newTestEnv(t)
  project := env.seedProject(t)
  env.seedPlan(t, project, []*types.PlanPhase{
    {Name: "Cimentación", EstimatedCost: 20000000, EstimatedDuration: 10},
    {Name: "Estructura", EstimatedCost: 40000000, EstimatedDuration: 15},
  })

  plan, err := NewPlanService(nil, env.log, env.planRepo).GetPlanForProject(context.Background(), project.ID)
  if err != nil {
    t.Fatalf("GetPlanForProject: %v", err)
  }
  if len(plan.Phases) != 2 {
    t.Fatalf("phase count: want=2 got=%d", len(plan.Phases))
  }
  if plan.Phases[0].Name != "Cimentación" || plan.Phases[1].Name != "Estructura" {
    t.Fatalf("phases out of order: %s, %s", plan.Phases[0].Name, plan.Phases[1].Name)
  }
  if plan.TotalEstimatedCost != 60000000 {
    t.Fatalf("plan total: want=60000000 got=%v", plan.TotalEstimatedCost)
  }
}

func TestGetPlanForProjectNotFound(t *testing.T) {
  env := newTestEnv(t)
  project := env.seedProject(t)

  _, err := NewPlanService(nil, env.log, env.planRepo).GetPlanForProject(context.Background(), project.ID)
  if !errors.Is(err, apperr.ErrNotFound) {
    t.Fatalf("want ErrNotFound, got %v", err)
  }
  if _, err := NewPlanService(nil, env.log, env.planRepo).GetPlanForProject(context.Background(), uuid.Nil); !errors.Is(err, apperr.ErrValidation) {
    t.Fatalf("nil id: want ErrValidation, got %v", err)
  }
}
