package services

import (
  "context"
  "errors"
  "testing"

  "github.com/google/uuid"

  "github.com/casaplan/casaplan-backend/internal/apperr"
  "github.com/casaplan/casaplan-backend/internal/types"
)

func (e *testEnv) phaseService() PhaseService {
  return NewPhaseService(nil, e.log, e.planRepo, e.taskRepo, e.rollup())
}

func assertContiguousOrder(t *testing.T, phases []*types.PlanPhase) {
  t.Helper()
  for i, ph := range phases {
    if ph.OrderIndex != i+1 {
      t.Fatalf("order not contiguous at position %d: got order=%d", i, ph.OrderIndex)
    }
  }
}

func TestAddPhaseAppendsAtEnd(t *testing.T) {
  env := newTestEnv(t)
  project := env.seedProject(t)
  plan := env.seedPlan(t, project, []*types.PlanPhase{
    {Name: "Cimentación", EstimatedCost: 20000000, EstimatedDuration: 10},
  })

  added, err := env.phaseService().AddPhase(context.Background(), plan.ID, "Acabados", 20, 12000000)
  if err != nil {
    t.Fatalf("AddPhase: %v", err)
  }
  if added.OrderIndex != 2 {
    t.Fatalf("added order: want=2 got=%d", added.OrderIndex)
  }
  phases, _ := env.planRepo.GetPhasesByPlanID(context.Background(), nil, plan.ID)
  assertContiguousOrder(t, phases)
  if plan.TotalEstimatedCost != 32000000 {
    t.Fatalf("plan total after add: want=32000000 got=%v", plan.TotalEstimatedCost)
  }
  if project.TotalEstimatedCost != 32000000 {
    t.Fatalf("project mirror after add: want=32000000 got=%v", project.TotalEstimatedCost)
  }
}

func TestDeletePhaseRenumbersRemaining(t *testing.T) {
  env := newTestEnv(t)
  project := env.seedProject(t)
  first := &types.PlanPhase{Name: "Preliminares", EstimatedCost: 5000000, EstimatedDuration: 3}
  second := &types.PlanPhase{Name: "Cimentación", EstimatedCost: 20000000, EstimatedDuration: 10}
  third := &types.PlanPhase{Name: "Acabados", EstimatedCost: 12000000, EstimatedDuration: 20}
  plan := env.seedPlan(t, project, []*types.PlanPhase{first, second, third})

  if err := env.phaseService().DeletePhase(context.Background(), plan.ID, second.PhaseID); err != nil {
    t.Fatalf("DeletePhase: %v", err)
  }

  phases, _ := env.planRepo.GetPhasesByPlanID(context.Background(), nil, plan.ID)
  if len(phases) != 2 {
    t.Fatalf("phase count: want=2 got=%d", len(phases))
  }
  assertContiguousOrder(t, phases)
  if phases[0].Name != "Preliminares" || phases[1].Name != "Acabados" {
    t.Fatalf("unexpected phase order: %s, %s", phases[0].Name, phases[1].Name)
  }
  if plan.TotalEstimatedCost != 17000000 {
    t.Fatalf("plan total after delete: want=17000000 got=%v", plan.TotalEstimatedCost)
  }
}

func TestDeletePhaseRemovesItsTasks(t *testing.T) {
  env := newTestEnv(t)
  project := env.seedProject(t)
  phase := &types.PlanPhase{Name: "Estructura"}
  keep := &types.PlanPhase{Name: "Cimentación", EstimatedCost: 20000000, EstimatedDuration: 10}
  plan := env.seedPlan(t, project, []*types.PlanPhase{phase, keep})

  tasks := []*types.Task{
    {ProjectID: project.ID, PhaseID: phase.PhaseID, Title: "Acero", EstimatedCost: 25000000},
  }
  if _, err := env.taskRepo.Create(context.Background(), nil, tasks); err != nil {
    t.Fatalf("seed tasks: %v", err)
  }

  if err := env.phaseService().DeletePhase(context.Background(), plan.ID, phase.PhaseID); err != nil {
    t.Fatalf("DeletePhase: %v", err)
  }
  remaining, _ := env.taskRepo.GetByPhaseIDs(context.Background(), nil, []uuid.UUID{phase.PhaseID})
  if len(remaining) != 0 {
    t.Fatalf("orphan tasks left behind: %d", len(remaining))
  }
  if plan.TotalEstimatedCost != 20000000 {
    t.Fatalf("plan total: want=20000000 got=%v", plan.TotalEstimatedCost)
  }
}

func TestDeleteUnknownPhaseNotFound(t *testing.T) {
  env := newTestEnv(t)
  project := env.seedProject(t)
  plan := env.seedPlan(t, project, []*types.PlanPhase{
    {Name: "Cimentación", EstimatedCost: 20000000, EstimatedDuration: 10},
  })

  err := env.phaseService().DeletePhase(context.Background(), plan.ID, uuid.New())
  if !errors.Is(err, apperr.ErrNotFound) {
    t.Fatalf("want ErrNotFound, got %v", err)
  }
}

func TestMovePhaseRelocatesAndRenumbers(t *testing.T) {
  env := newTestEnv(t)
  project := env.seedProject(t)
  a := &types.PlanPhase{Name: "A", EstimatedCost: 1, EstimatedDuration: 1}
  b := &types.PlanPhase{Name: "B", EstimatedCost: 2, EstimatedDuration: 1}
  c := &types.PlanPhase{Name: "C", EstimatedCost: 3, EstimatedDuration: 1}
  plan := env.seedPlan(t, project, []*types.PlanPhase{a, b, c})

  if err := env.phaseService().MovePhase(context.Background(), plan.ID, 3, 1); err != nil {
    t.Fatalf("MovePhase: %v", err)
  }
  phases, _ := env.planRepo.GetPhasesByPlanID(context.Background(), nil, plan.ID)
  assertContiguousOrder(t, phases)
  names := []string{phases[0].Name, phases[1].Name, phases[2].Name}
  if names[0] != "C" || names[1] != "A" || names[2] != "B" {
    t.Fatalf("unexpected order after move: %v", names)
  }
  // A stable identifier survives the move.
  if phases[0].PhaseID != c.PhaseID {
    t.Fatalf("phase id changed across move")
  }
}

func TestMovePhaseRejectsOutOfRange(t *testing.T) {
  env := newTestEnv(t)
  project := env.seedProject(t)
  plan := env.seedPlan(t, project, []*types.PlanPhase{
    {Name: "A", EstimatedCost: 1, EstimatedDuration: 1},
    {Name: "B", EstimatedCost: 2, EstimatedDuration: 1},
  })

  if err := env.phaseService().MovePhase(context.Background(), plan.ID, 0, 1); !errors.Is(err, apperr.ErrValidation) {
    t.Fatalf("from=0: want ErrValidation, got %v", err)
  }
  if err := env.phaseService().MovePhase(context.Background(), plan.ID, 1, 3); !errors.Is(err, apperr.ErrValidation) {
    t.Fatalf("to=3: want ErrValidation, got %v", err)
  }
}

func TestEditPhaseScalarsOnTasklessPhase(t *testing.T) {
  env := newTestEnv(t)
  project := env.seedProject(t)
  phase := &types.PlanPhase{Name: "Cimentación", EstimatedCost: 20000000, EstimatedDuration: 10}
  plan := env.seedPlan(t, project, []*types.PlanPhase{phase})

  err := env.phaseService().EditPhase(context.Background(), plan.ID, phase.PhaseID, PhaseEdit{
    EstimatedCost:     floatp(22000000),
    EstimatedDuration: intp(12),
  })
  if err != nil {
    t.Fatalf("EditPhase: %v", err)
  }
  if phase.EstimatedCost != 22000000 || phase.EstimatedDuration != 12 {
    t.Fatalf("scalar edit not applied: cost=%v duration=%v", phase.EstimatedCost, phase.EstimatedDuration)
  }
  if plan.TotalEstimatedCost != 22000000 {
    t.Fatalf("plan total after edit: want=22000000 got=%v", plan.TotalEstimatedCost)
  }
}

func TestEditPhaseRejectsDerivedFieldsWhenTasksExist(t *testing.T) {
  env := newTestEnv(t)
  project := env.seedProject(t)
  phase := &types.PlanPhase{Name: "Estructura"}
  plan := env.seedPlan(t, project, []*types.PlanPhase{phase})

  if _, err := env.taskRepo.Create(context.Background(), nil, []*types.Task{
    {ProjectID: project.ID, PhaseID: phase.PhaseID, Title: "Acero", EstimatedCost: 25000000},
  }); err != nil {
    t.Fatalf("seed tasks: %v", err)
  }

  err := env.phaseService().EditPhase(context.Background(), plan.ID, phase.PhaseID, PhaseEdit{
    EstimatedCost: floatp(1),
  })
  if !errors.Is(err, apperr.ErrValidation) {
    t.Fatalf("want ErrValidation, got %v", err)
  }

  // Renaming stays allowed regardless of tasks.
  if err := env.phaseService().EditPhase(context.Background(), plan.ID, phase.PhaseID, PhaseEdit{
    Name: strp("Estructura y cubierta"),
  }); err != nil {
    t.Fatalf("rename: %v", err)
  }
  if phase.Name != "Estructura y cubierta" {
    t.Fatalf("rename not applied: %s", phase.Name)
  }
}
