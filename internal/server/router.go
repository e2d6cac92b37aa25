package server

import (
  "github.com/gin-gonic/gin"
  "github.com/gin-contrib/cors"
  "github.com/casaplan/casaplan-backend/internal/handlers"
)

type RouterConfig struct {
  ProjectHandler  *handlers.ProjectHandler
  PlanHandler     *handlers.PlanHandler
  TaskHandler     *handlers.TaskHandler
  MaterialHandler *handlers.MaterialHandler
  SSEHandler      *handlers.SSEHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
  router := gin.Default()

  // Cors
  router.Use(cors.New(cors.Config{
    AllowOrigins: []string{
      "http://localhost:80",
      "http://localhost:3000",
      "http://localhost:5173",
    },
    AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
    AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
    AllowCredentials: true,
  }))

  router.GET("/healthcheck", handlers.HealthCheck)

  api := router.Group("/api")
  {
    // Projects
    api.POST("/projects", cfg.ProjectHandler.CreateProject)
    api.GET("/projects/:id", cfg.ProjectHandler.GetProject)
    api.GET("/projects/:id/plan", cfg.PlanHandler.GetPlan)
    api.POST("/projects/:id/plan/generate", cfg.PlanHandler.GeneratePlan)
    api.GET("/projects/:id/materials", cfg.MaterialHandler.ListProjectMaterials)
    api.GET("/projects/:id/events", cfg.SSEHandler.StreamProjectEvents)

    // Phases
    api.POST("/plans/:id/phases", cfg.PlanHandler.AddPhase)
    api.POST("/plans/:id/phases/move", cfg.PlanHandler.MovePhase)
    api.PATCH("/plans/:id/phases/:phaseID", cfg.PlanHandler.EditPhase)
    api.DELETE("/plans/:id/phases/:phaseID", cfg.PlanHandler.DeletePhase)
    api.GET("/phases/:phaseID/tasks", cfg.TaskHandler.ListPhaseTasks)

    // Tasks
    api.POST("/tasks", cfg.TaskHandler.CreateTask)
    api.PATCH("/tasks/:id", cfg.TaskHandler.UpdateTask)
    api.DELETE("/tasks/:id", cfg.TaskHandler.DeleteTask)
    api.GET("/tasks/:id/material-assignments", cfg.MaterialHandler.ListTaskAssignments)

    // Materials
    api.POST("/materials", cfg.MaterialHandler.CreateMaterial)
    api.PATCH("/materials/:id", cfg.MaterialHandler.UpdateMaterial)
    api.DELETE("/materials/:id", cfg.MaterialHandler.DeleteMaterial)
    api.POST("/material-assignments", cfg.MaterialHandler.AssignMaterial)
    api.PATCH("/material-assignments/:id", cfg.MaterialHandler.UpdateAssignmentQuantity)
    api.DELETE("/material-assignments/:id", cfg.MaterialHandler.RemoveAssignment)
  }

  return router
}
