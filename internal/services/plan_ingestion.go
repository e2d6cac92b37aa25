package services

import (
  "context"
  "fmt"
  "strings"

  "github.com/google/uuid"
  "golang.org/x/sync/errgroup"
  "gorm.io/gorm"

  "github.com/casaplan/casaplan-backend/internal/apperr"
  "github.com/casaplan/casaplan-backend/internal/logger"
  "github.com/casaplan/casaplan-backend/internal/pricing"
  "github.com/casaplan/casaplan-backend/internal/repos"
  "github.com/casaplan/casaplan-backend/internal/sse"
  "github.com/casaplan/casaplan-backend/internal/types"
  "github.com/casaplan/casaplan-backend/internal/utils"
)

// PlanIngestionService turns the planner's phase/task list into persisted
// Plan, PlanPhase, and Task records.
//
// Guarantees: the plan row and its phase list land atomically, and only
// after task materialization has settled; a planner failure writes
// nothing, leaving the project retryable with a nil plan id. Task rows
// that fail to persist are reported per row and simply excluded from the
// rolled-up figures, so the stored aggregates are always consistent with
// the tasks that actually exist.
type PlanIngestionService interface {
  GeneratePlanForProject(ctx context.Context, projectID uuid.UUID) (*types.Plan, []*apperr.PartialBatchReport, error)
}

type planIngestionService struct {
  db  *gorm.DB
  log *logger.Logger

  sseHub *sse.SSEHub

  projectRepo repos.ProjectRepo
  planRepo    repos.PlanRepo
  taskRepo    repos.TaskRepo
  planner     PlannerClient

  phaseConcurrency int
}

func NewPlanIngestionService(
  db *gorm.DB,
  baseLog *logger.Logger,
  sseHub *sse.SSEHub,
  projectRepo repos.ProjectRepo,
  planRepo repos.PlanRepo,
  taskRepo repos.TaskRepo,
  planner PlannerClient,
) PlanIngestionService {
  log := baseLog.With("service", "PlanIngestionService")
  concurrency := utils.GetEnvAsInt("PLAN_INGEST_PHASE_CONCURRENCY", 4, baseLog)
  if concurrency < 1 {
    concurrency = 1
  }
  return &planIngestionService{
    db:               db,
    log:              log,
    sseHub:           sseHub,
    projectRepo:      projectRepo,
    planRepo:         planRepo,
    taskRepo:         taskRepo,
    planner:          planner,
    phaseConcurrency: concurrency,
  }
}

func (s *planIngestionService) progress(projectID uuid.UUID, stage string, percent int, note string) {
  if s.sseHub == nil {
    return
  }
  s.sseHub.Broadcast(sse.SSEMessage{
    Channel: sse.ProjectChannel(projectID),
    Event:   sse.SSEEventPlanGenerationProgress,
    Data: map[string]any{
      "stage":   stage,
      "percent": percent,
      "note":    note,
    },
  })
}

func validateGeneratedPhases(phases []GeneratedPhase) error {
  for i, ph := range phases {
    if strings.TrimSpace(ph.PhaseName) == "" {
      return fmt.Errorf("%w: phase %d has no name", apperr.ErrUpstreamGeneration, i+1)
    }
    if ph.EstimatedCost < 0 || ph.EstimatedDuration < 0 {
      return fmt.Errorf("%w: phase %q has negative figures", apperr.ErrUpstreamGeneration, ph.PhaseName)
    }
    for j, t := range ph.Tasks {
      if strings.TrimSpace(t.TaskName) == "" {
        return fmt.Errorf("%w: phase %q task %d has no name", apperr.ErrUpstreamGeneration, ph.PhaseName, j+1)
      }
      if t.EstimatedCost < 0 || t.EstimatedDuration < 0 {
        return fmt.Errorf("%w: phase %q task %q has negative figures", apperr.ErrUpstreamGeneration, ph.PhaseName, t.TaskName)
      }
    }
  }
  return nil
}

// materializedPhase is the gathered result of one phase's task batch:
// the phase row plus the subset of tasks that persisted and the per-row
// failures for those that did not.
type materializedPhase struct {
  generated GeneratedPhase
  phase     *types.PlanPhase
  tasks     []*types.Task
  report    *apperr.PartialBatchReport
}

func (s *planIngestionService) materializeTasks(ctx context.Context, projectID uuid.UUID, mp *materializedPhase) {
  gen := mp.generated
  if len(gen.Tasks) == 0 {
    return
  }
  report := &apperr.PartialBatchReport{PhaseID: mp.phase.PhaseID}
  for i, gt := range gen.Tasks {
    duration := gt.EstimatedDuration
    task := &types.Task{
      ProjectID:     projectID,
      PhaseID:       mp.phase.PhaseID,
      Title:         gt.TaskName,
      Quantity:      1,
      UnitOfMeasure: types.UnitGlobal,
      // The planner's per-task cost is a lump sum: unit price for qty 1.
      UnitPrice:         gt.EstimatedCost,
      EstimatedCost:     pricing.TaskCost(1, gt.EstimatedCost, nil),
      EstimatedDuration: &duration,
      Status:            types.TaskStatusPending,
    }
    if _, err := s.taskRepo.Create(ctx, nil, []*types.Task{task}); err != nil {
      s.log.Warn("Task row failed to persist during ingestion",
        "phase_id", mp.phase.PhaseID, "row", i, "title", gt.TaskName, "error", err)
      report.Failures = append(report.Failures, apperr.RowFailure{Index: i, Message: err.Error()})
      continue
    }
    mp.tasks = append(mp.tasks, task)
  }
  if !report.Empty() {
    mp.report = report
  }
}

func (s *planIngestionService) GeneratePlanForProject(ctx context.Context, projectID uuid.UUID) (*types.Plan, []*apperr.PartialBatchReport, error) {
  if projectID == uuid.Nil {
    return nil, nil, apperr.Validationf("project_id", "required")
  }

  projects, err := s.projectRepo.GetByIDs(ctx, nil, []uuid.UUID{projectID})
  if err != nil {
    return nil, nil, fmt.Errorf("load project: %w", err)
  }
  if len(projects) == 0 || projects[0] == nil {
    return nil, nil, apperr.NotFoundf("project %s", projectID)
  }
  project := projects[0]
  if project.PlanID != nil {
    return nil, nil, apperr.Validationf("project_id", "project already has a plan")
  }

  s.progress(projectID, "planner", 5, "Requesting plan from planner")
  generated, err := s.planner.GeneratePlan(ctx, project)
  if err != nil {
    return nil, nil, err
  }
  if err := validateGeneratedPhases(generated); err != nil {
    return nil, nil, err
  }
  s.progress(projectID, "planner", 30, fmt.Sprintf("Planner proposed %d phases", len(generated)))

  // Scatter: one goroutine per phase batch; task rows are independent, so
  // a failing row never cancels its siblings. Gather happens at Wait.
  materialized := make([]*materializedPhase, len(generated))
  for i, gen := range generated {
    materialized[i] = &materializedPhase{
      generated: gen,
      phase: &types.PlanPhase{
        PhaseID:    uuid.New(),
        OrderIndex: i + 1,
        Name:       strings.TrimSpace(gen.PhaseName),
      },
    }
  }

  g := new(errgroup.Group)
  g.SetLimit(s.phaseConcurrency)
  for _, mp := range materialized {
    mp := mp
    g.Go(func() error {
      s.materializeTasks(ctx, projectID, mp)
      return nil
    })
  }
  _ = g.Wait()
  s.progress(projectID, "materialize", 70, "Task materialization settled")

  // Phase figures: task sums win whenever any task persisted; the
  // planner's phase-level scalars only stand for taskless phases.
  phases := make([]*types.PlanPhase, 0, len(materialized))
  reports := make([]*apperr.PartialBatchReport, 0)
  for _, mp := range materialized {
    if len(mp.tasks) > 0 {
      mp.phase.EstimatedCost = pricing.PhaseCostFromTasks(mp.tasks)
      mp.phase.EstimatedDuration = pricing.PhaseDurationFromTasks(mp.tasks)
    } else {
      mp.phase.EstimatedCost = mp.generated.EstimatedCost
      mp.phase.EstimatedDuration = mp.generated.EstimatedDuration
    }
    phases = append(phases, mp.phase)
    if mp.report != nil {
      reports = append(reports, mp.report)
    }
  }

  plan := &types.Plan{
    ProjectID:          projectID,
    TotalEstimatedCost: pricing.PlanTotal(phases),
  }

  err = runInTransaction(ctx, s.db, func(tx *gorm.DB) error {
    if _, err := s.planRepo.Create(ctx, tx, plan, phases); err != nil {
      return fmt.Errorf("persist plan: %w", err)
    }
    return s.projectRepo.UpdateFields(ctx, tx, projectID, map[string]interface{}{
      "plan_id":              plan.ID,
      "total_estimated_cost": plan.TotalEstimatedCost,
    })
  })
  if err != nil {
    return nil, reports, err
  }
  plan.Phases = phases

  s.progress(projectID, "persist", 100, "Plan persisted")
  if s.sseHub != nil {
    s.sseHub.Broadcast(sse.SSEMessage{
      Channel: sse.ProjectChannel(projectID),
      Event:   sse.SSEEventPlanCreated,
      Data: map[string]any{
        "plan":    plan,
        "reports": reports,
      },
    })
  }
  s.log.Info("Plan ingested",
    "project_id", projectID,
    "plan_id", plan.ID,
    "phases", len(phases),
    "total", plan.TotalEstimatedCost,
    "partial_failures", len(reports),
  )
  return plan, reports, nil
}
