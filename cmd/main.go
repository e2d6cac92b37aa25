package main

import (
  "fmt"
  "os"

  "github.com/casaplan/casaplan-backend/internal/db"
  "github.com/casaplan/casaplan-backend/internal/handlers"
  "github.com/casaplan/casaplan-backend/internal/logger"
  "github.com/casaplan/casaplan-backend/internal/repos"
  "github.com/casaplan/casaplan-backend/internal/server"
  "github.com/casaplan/casaplan-backend/internal/services"
  "github.com/casaplan/casaplan-backend/internal/sse"
  "github.com/casaplan/casaplan-backend/internal/utils"
)

func main() {
  // Logger
  logMode := os.Getenv("LOG_MODE")
  if logMode == "" {
    logMode = "development"
  }
  log, err := logger.New(logMode)
  if err != nil {
    fmt.Printf("Failed to init logger: %v\n", err)
    os.Exit(1)
  }
  defer log.Sync()

  // Postgres
  postgresService, err := db.NewPostgresService(log)
  if err != nil {
    log.Error("Postgres init failed", "error", err)
    os.Exit(1)
  }
  defer postgresService.Close()
  if err = postgresService.AutoMigrateAll(); err != nil {
    log.Error("Postgres auto migration failed", "error", err)
    os.Exit(1)
  }
  thePG := postgresService.DB()

  // Repos
  log.Info("Setting up Repos from main...")
  projectRepo := repos.NewProjectRepo(thePG, log)
  planRepo := repos.NewPlanRepo(thePG, log)
  taskRepo := repos.NewTaskRepo(thePG, log)
  materialCatalogRepo := repos.NewMaterialCatalogRepo(thePG, log)
  materialAssignmentRepo := repos.NewMaterialAssignmentRepo(thePG, log)

  // SSE
  log.Info("Setting up SSE hub now...")
  sseHub := sse.NewSSEHub(log)

  // Services
  log.Info("Setting up Services from main...")
  plannerClient, err := services.NewPlannerClient(log)
  if err != nil {
    log.Error("Could not init PlannerClient", "error", err)
    os.Exit(1)
  }
  rollupService := services.NewRollupService(thePG, log, sseHub, planRepo, taskRepo, projectRepo)
  projectService := services.NewProjectService(thePG, log, projectRepo)
  planService := services.NewPlanService(thePG, log, planRepo)
  ingestionService := services.NewPlanIngestionService(thePG, log, sseHub, projectRepo, planRepo, taskRepo, plannerClient)
  phaseService := services.NewPhaseService(thePG, log, planRepo, taskRepo, rollupService)
  taskService := services.NewTaskService(thePG, log, projectRepo, planRepo, taskRepo, rollupService)
  materialService := services.NewMaterialService(thePG, log, projectRepo, materialCatalogRepo)
  assignmentService := services.NewMaterialAssignmentService(thePG, log, taskRepo, materialCatalogRepo, materialAssignmentRepo)

  // Handlers
  log.Info("Setting up handlers from main...")
  projectHandler := handlers.NewProjectHandler(log, projectService)
  planHandler := handlers.NewPlanHandler(log, planService, ingestionService, phaseService)
  taskHandler := handlers.NewTaskHandler(log, taskService)
  materialHandler := handlers.NewMaterialHandler(log, materialService, assignmentService)
  sseHandler := handlers.NewSSEHandler(log, sseHub)

  // Router
  log.Info("Setting up router from main...")
  router := server.NewRouter(server.RouterConfig{
    ProjectHandler:  projectHandler,
    PlanHandler:     planHandler,
    TaskHandler:     taskHandler,
    MaterialHandler: materialHandler,
    SSEHandler:      sseHandler,
  })

  port := utils.GetEnv("PORT", "8080", log)
  fmt.Printf("Server listening on :%s\n", port)
  if err := router.Run(":" + port); err != nil {
    log.Warn("Server failed", "error", err)
  }
}
