package services

import (
  "context"
  "fmt"
  "sync"
  "testing"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/casaplan/casaplan-backend/internal/logger"
  "github.com/casaplan/casaplan-backend/internal/types"
)

// memDB is shared in-memory state backing the fake repos. The fakes
// ignore the tx parameter; services under test are built with a nil db so
// runInTransaction passes a nil tx straight through.
type memDB struct {
  mu sync.Mutex

  projects    map[uuid.UUID]*types.Project
  plans       map[uuid.UUID]*types.Plan
  phases      map[uuid.UUID][]*types.PlanPhase
  tasks       map[uuid.UUID]*types.Task
  taskOrder   []uuid.UUID
  materials   map[uuid.UUID]*types.MaterialCatalogEntry
  assignments map[uuid.UUID]*types.MaterialAssignment

  // failTaskTitles makes task creation fail for specific titles, to
  // exercise partial batch behavior.
  failTaskTitles map[string]bool
}

func newMemDB() *memDB {
  return &memDB{
    projects:       make(map[uuid.UUID]*types.Project),
    plans:          make(map[uuid.UUID]*types.Plan),
    phases:         make(map[uuid.UUID][]*types.PlanPhase),
    tasks:          make(map[uuid.UUID]*types.Task),
    materials:      make(map[uuid.UUID]*types.MaterialCatalogEntry),
    assignments:    make(map[uuid.UUID]*types.MaterialAssignment),
    failTaskTitles: make(map[string]bool),
  }
}

type fakeProjectRepo struct{ db *memDB }

func (r *fakeProjectRepo) Create(ctx context.Context, tx *gorm.DB, projects []*types.Project) ([]*types.Project, error) {
  r.db.mu.Lock()
  defer r.db.mu.Unlock()
  for _, p := range projects {
    if p.ID == uuid.Nil {
      p.ID = uuid.New()
    }
    r.db.projects[p.ID] = p
  }
  return projects, nil
}

func (r *fakeProjectRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Project, error) {
  r.db.mu.Lock()
  defer r.db.mu.Unlock()
  var out []*types.Project
  for _, id := range ids {
    if p, ok := r.db.projects[id]; ok {
      out = append(out, p)
    }
  }
  return out, nil
}

func (r *fakeProjectRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
  r.db.mu.Lock()
  defer r.db.mu.Unlock()
  p, ok := r.db.projects[id]
  if !ok {
    return fmt.Errorf("project %s not found", id)
  }
  if v, ok := updates["total_estimated_cost"]; ok {
    p.TotalEstimatedCost = v.(float64)
  }
  if v, ok := updates["plan_id"]; ok {
    planID := v.(uuid.UUID)
    p.PlanID = &planID
  }
  return nil
}

type fakePlanRepo struct{ db *memDB }

func (r *fakePlanRepo) Create(ctx context.Context, tx *gorm.DB, plan *types.Plan, phases []*types.PlanPhase) (*types.Plan, error) {
  r.db.mu.Lock()
  defer r.db.mu.Unlock()
  if plan.ID == uuid.Nil {
    plan.ID = uuid.New()
  }
  r.db.plans[plan.ID] = plan
  stored := make([]*types.PlanPhase, 0, len(phases))
  for _, ph := range phases {
    if ph == nil {
      continue
    }
    if ph.ID == uuid.Nil {
      ph.ID = uuid.New()
    }
    ph.PlanID = plan.ID
    stored = append(stored, ph)
  }
  r.db.phases[plan.ID] = stored
  return plan, nil
}

func (r *fakePlanRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Plan, error) {
  r.db.mu.Lock()
  defer r.db.mu.Unlock()
  var out []*types.Plan
  for _, id := range ids {
    if p, ok := r.db.plans[id]; ok {
      out = append(out, p)
    }
  }
  return out, nil
}

func (r *fakePlanRepo) GetByProjectID(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) (*types.Plan, error) {
  r.db.mu.Lock()
  defer r.db.mu.Unlock()
  for _, p := range r.db.plans {
    if p.ProjectID == projectID {
      return p, nil
    }
  }
  return nil, nil
}

func (r *fakePlanRepo) GetPhasesByPlanID(ctx context.Context, tx *gorm.DB, planID uuid.UUID) ([]*types.PlanPhase, error) {
  r.db.mu.Lock()
  defer r.db.mu.Unlock()
  phases := append([]*types.PlanPhase{}, r.db.phases[planID]...)
  for i := 0; i < len(phases); i++ {
    for j := i + 1; j < len(phases); j++ {
      if phases[j].OrderIndex < phases[i].OrderIndex {
        phases[i], phases[j] = phases[j], phases[i]
      }
    }
  }
  return phases, nil
}

func (r *fakePlanRepo) GetPhaseByPhaseID(ctx context.Context, tx *gorm.DB, phaseID uuid.UUID) (*types.PlanPhase, error) {
  r.db.mu.Lock()
  defer r.db.mu.Unlock()
  for _, phases := range r.db.phases {
    for _, ph := range phases {
      if ph.PhaseID == phaseID {
        return ph, nil
      }
    }
  }
  return nil, nil
}

func (r *fakePlanRepo) ReplacePhases(ctx context.Context, tx *gorm.DB, planID uuid.UUID, phases []*types.PlanPhase, total float64) error {
  r.db.mu.Lock()
  defer r.db.mu.Unlock()
  plan, ok := r.db.plans[planID]
  if !ok {
    return fmt.Errorf("plan %s not found", planID)
  }
  stored := make([]*types.PlanPhase, 0, len(phases))
  for _, ph := range phases {
    if ph == nil {
      continue
    }
    ph.ID = uuid.New()
    ph.PlanID = planID
    stored = append(stored, ph)
  }
  r.db.phases[planID] = stored
  plan.TotalEstimatedCost = total
  return nil
}

func (r *fakePlanRepo) UpdatePhaseFields(ctx context.Context, tx *gorm.DB, phaseID uuid.UUID, updates map[string]interface{}) error {
  r.db.mu.Lock()
  defer r.db.mu.Unlock()
  for _, phases := range r.db.phases {
    for _, ph := range phases {
      if ph.PhaseID != phaseID {
        continue
      }
      if v, ok := updates["estimated_cost"]; ok {
        ph.EstimatedCost = v.(float64)
      }
      if v, ok := updates["estimated_duration"]; ok {
        ph.EstimatedDuration = v.(int)
      }
      if v, ok := updates["name"]; ok {
        ph.Name = v.(string)
      }
      return nil
    }
  }
  return fmt.Errorf("phase %s not found", phaseID)
}

func (r *fakePlanRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
  r.db.mu.Lock()
  defer r.db.mu.Unlock()
  p, ok := r.db.plans[id]
  if !ok {
    return fmt.Errorf("plan %s not found", id)
  }
  if v, ok := updates["total_estimated_cost"]; ok {
    p.TotalEstimatedCost = v.(float64)
  }
  return nil
}

type fakeTaskRepo struct{ db *memDB }

func (r *fakeTaskRepo) Create(ctx context.Context, tx *gorm.DB, tasks []*types.Task) ([]*types.Task, error) {
  r.db.mu.Lock()
  defer r.db.mu.Unlock()
  for _, t := range tasks {
    if r.db.failTaskTitles[t.Title] {
      return nil, fmt.Errorf("insert failed for %q", t.Title)
    }
  }
  for _, t := range tasks {
    if t.ID == uuid.Nil {
      t.ID = uuid.New()
    }
    r.db.tasks[t.ID] = t
    r.db.taskOrder = append(r.db.taskOrder, t.ID)
  }
  return tasks, nil
}

func (r *fakeTaskRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Task, error) {
  r.db.mu.Lock()
  defer r.db.mu.Unlock()
  var out []*types.Task
  for _, id := range ids {
    if t, ok := r.db.tasks[id]; ok {
      out = append(out, t)
    }
  }
  return out, nil
}

func (r *fakeTaskRepo) GetByPhaseIDs(ctx context.Context, tx *gorm.DB, phaseIDs []uuid.UUID) ([]*types.Task, error) {
  r.db.mu.Lock()
  defer r.db.mu.Unlock()
  want := make(map[uuid.UUID]bool, len(phaseIDs))
  for _, id := range phaseIDs {
    want[id] = true
  }
  var out []*types.Task
  for _, id := range r.db.taskOrder {
    if t, ok := r.db.tasks[id]; ok && want[t.PhaseID] {
      out = append(out, t)
    }
  }
  return out, nil
}

func (r *fakeTaskRepo) GetByProjectIDs(ctx context.Context, tx *gorm.DB, projectIDs []uuid.UUID) ([]*types.Task, error) {
  r.db.mu.Lock()
  defer r.db.mu.Unlock()
  want := make(map[uuid.UUID]bool, len(projectIDs))
  for _, id := range projectIDs {
    want[id] = true
  }
  var out []*types.Task
  for _, id := range r.db.taskOrder {
    if t, ok := r.db.tasks[id]; ok && want[t.ProjectID] {
      out = append(out, t)
    }
  }
  return out, nil
}

func (r *fakeTaskRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
  r.db.mu.Lock()
  defer r.db.mu.Unlock()
  t, ok := r.db.tasks[id]
  if !ok {
    return fmt.Errorf("task %s not found", id)
  }
  if v, ok := updates["quantity"]; ok {
    t.Quantity = v.(float64)
  }
  if v, ok := updates["unit_price"]; ok {
    t.UnitPrice = v.(float64)
  }
  if v, ok := updates["estimated_cost"]; ok {
    t.EstimatedCost = v.(float64)
  }
  if v, ok := updates["labor_cost"]; ok {
    if v == nil {
      t.LaborCost = nil
    } else {
      lc := v.(float64)
      t.LaborCost = &lc
    }
  }
  if v, ok := updates["estimated_duration"]; ok {
    d := v.(int)
    t.EstimatedDuration = &d
  }
  if v, ok := updates["status"]; ok {
    t.Status = v.(types.TaskStatus)
  }
  if v, ok := updates["title"]; ok {
    t.Title = v.(string)
  }
  return nil
}

func (r *fakeTaskRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
  r.db.mu.Lock()
  defer r.db.mu.Unlock()
  for _, id := range ids {
    delete(r.db.tasks, id)
  }
  return nil
}

type fakeMaterialCatalogRepo struct{ db *memDB }

func (r *fakeMaterialCatalogRepo) Create(ctx context.Context, tx *gorm.DB, entries []*types.MaterialCatalogEntry) ([]*types.MaterialCatalogEntry, error) {
  r.db.mu.Lock()
  defer r.db.mu.Unlock()
  for _, e := range entries {
    if e.ID == uuid.Nil {
      e.ID = uuid.New()
    }
    r.db.materials[e.ID] = e
  }
  return entries, nil
}

func (r *fakeMaterialCatalogRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.MaterialCatalogEntry, error) {
  r.db.mu.Lock()
  defer r.db.mu.Unlock()
  var out []*types.MaterialCatalogEntry
  for _, id := range ids {
    if e, ok := r.db.materials[id]; ok {
      out = append(out, e)
    }
  }
  return out, nil
}

func (r *fakeMaterialCatalogRepo) GetByProjectIDs(ctx context.Context, tx *gorm.DB, projectIDs []uuid.UUID) ([]*types.MaterialCatalogEntry, error) {
  r.db.mu.Lock()
  defer r.db.mu.Unlock()
  want := make(map[uuid.UUID]bool, len(projectIDs))
  for _, id := range projectIDs {
    want[id] = true
  }
  var out []*types.MaterialCatalogEntry
  for _, e := range r.db.materials {
    if want[e.ProjectID] {
      out = append(out, e)
    }
  }
  return out, nil
}

func (r *fakeMaterialCatalogRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
  r.db.mu.Lock()
  defer r.db.mu.Unlock()
  e, ok := r.db.materials[id]
  if !ok {
    return fmt.Errorf("material %s not found", id)
  }
  if v, ok := updates["estimated_unit_price"]; ok {
    e.EstimatedUnitPrice = v.(float64)
  }
  if v, ok := updates["title"]; ok {
    e.Title = v.(string)
  }
  return nil
}

func (r *fakeMaterialCatalogRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
  r.db.mu.Lock()
  defer r.db.mu.Unlock()
  for _, id := range ids {
    delete(r.db.materials, id)
  }
  return nil
}

type fakeMaterialAssignmentRepo struct{ db *memDB }

func (r *fakeMaterialAssignmentRepo) Create(ctx context.Context, tx *gorm.DB, assignments []*types.MaterialAssignment) ([]*types.MaterialAssignment, error) {
  r.db.mu.Lock()
  defer r.db.mu.Unlock()
  for _, a := range assignments {
    if a.ID == uuid.Nil {
      a.ID = uuid.New()
    }
    r.db.assignments[a.ID] = a
  }
  return assignments, nil
}

func (r *fakeMaterialAssignmentRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.MaterialAssignment, error) {
  r.db.mu.Lock()
  defer r.db.mu.Unlock()
  var out []*types.MaterialAssignment
  for _, id := range ids {
    if a, ok := r.db.assignments[id]; ok {
      out = append(out, a)
    }
  }
  return out, nil
}

func (r *fakeMaterialAssignmentRepo) GetByTaskIDs(ctx context.Context, tx *gorm.DB, taskIDs []uuid.UUID) ([]*types.MaterialAssignment, error) {
  r.db.mu.Lock()
  defer r.db.mu.Unlock()
  want := make(map[uuid.UUID]bool, len(taskIDs))
  for _, id := range taskIDs {
    want[id] = true
  }
  var out []*types.MaterialAssignment
  for _, a := range r.db.assignments {
    if want[a.TaskID] {
      out = append(out, a)
    }
  }
  return out, nil
}

func (r *fakeMaterialAssignmentRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
  r.db.mu.Lock()
  defer r.db.mu.Unlock()
  a, ok := r.db.assignments[id]
  if !ok {
    return fmt.Errorf("assignment %s not found", id)
  }
  if v, ok := updates["quantity_used"]; ok {
    a.QuantityUsed = v.(float64)
  }
  if v, ok := updates["material_cost_for_task"]; ok {
    a.MaterialCostForTask = v.(float64)
  }
  return nil
}

func (r *fakeMaterialAssignmentRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
  r.db.mu.Lock()
  defer r.db.mu.Unlock()
  for _, id := range ids {
    delete(r.db.assignments, id)
  }
  return nil
}

type fakePlanner struct {
  phases []GeneratedPhase
  err    error
  calls  int
}

func (p *fakePlanner) GeneratePlan(ctx context.Context, project *types.Project) ([]GeneratedPhase, error) {
  p.calls++
  if p.err != nil {
    return nil, p.err
  }
  return p.phases, nil
}

type testEnv struct {
  db             *memDB
  log            *logger.Logger
  projectRepo    *fakeProjectRepo
  planRepo       *fakePlanRepo
  taskRepo       *fakeTaskRepo
  catalogRepo    *fakeMaterialCatalogRepo
  assignmentRepo *fakeMaterialAssignmentRepo
}

func newTestEnv(t *testing.T) *testEnv {
  t.Helper()
  log, err := logger.New("test")
  if err != nil {
    t.Fatalf("logger.New: %v", err)
  }
  db := newMemDB()
  return &testEnv{
    db:             db,
    log:            log,
    projectRepo:    &fakeProjectRepo{db: db},
    planRepo:       &fakePlanRepo{db: db},
    taskRepo:       &fakeTaskRepo{db: db},
    catalogRepo:    &fakeMaterialCatalogRepo{db: db},
    assignmentRepo: &fakeMaterialAssignmentRepo{db: db},
  }
}

func (e *testEnv) rollup() RollupService {
  return NewRollupService(nil, e.log, nil, e.planRepo, e.taskRepo, e.projectRepo)
}

func (e *testEnv) seedProject(t *testing.T) *types.Project {
  t.Helper()
  project := &types.Project{
    ID:          uuid.New(),
    Name:        "Casa Campestre",
    Type:        types.ProjectTypeResidential,
    TotalBudget: 100000000,
    Currency:    "COP",
  }
  if _, err := e.projectRepo.Create(context.Background(), nil, []*types.Project{project}); err != nil {
    t.Fatalf("seed project: %v", err)
  }
  return project
}

func (e *testEnv) seedPlan(t *testing.T, project *types.Project, phases []*types.PlanPhase) *types.Plan {
  t.Helper()
  var total float64
  for i, ph := range phases {
    ph.OrderIndex = i + 1
    if ph.PhaseID == uuid.Nil {
      ph.PhaseID = uuid.New()
    }
    total += ph.EstimatedCost
  }
  plan := &types.Plan{ID: uuid.New(), ProjectID: project.ID, TotalEstimatedCost: total}
  if _, err := e.planRepo.Create(context.Background(), nil, plan, phases); err != nil {
    t.Fatalf("seed plan: %v", err)
  }
  project.PlanID = &plan.ID
  project.TotalEstimatedCost = total
  return plan
}
