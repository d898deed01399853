package handlers

import (
	"log/slog"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/tenant-task-api/internal/constants"
	apierrors "github.com/yukikurage/tenant-task-api/internal/errors"
	"github.com/yukikurage/tenant-task-api/internal/middleware"
	"github.com/yukikurage/tenant-task-api/internal/services"
	"gorm.io/gorm"
)

// Dependencies are the collaborators the HTTP layer is built from
type Dependencies struct {
	DB           *gorm.DB
	Logger       *slog.Logger
	SessionStore sessions.Store
	APILimiter   *middleware.RateLimiter
	LoginLimiter *middleware.RateLimiter

	Auth          *services.AuthService
	Organizations *services.OrganizationService
	Projects      *services.ProjectService
	Tasks         *services.TaskService
	Activity      *services.ActivityService
	Analytics     *services.AnalyticsService
}

// NewRouter wires every route onto a fresh gin engine
func NewRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(sessions.Sessions(constants.SessionCookieName, deps.SessionStore))

	r.NoRoute(func(c *gin.Context) {
		apierrors.NotFound(c, "Route not found")
	})

	authHandler := NewAuthHandler(deps.Auth)
	orgHandler := NewOrganizationHandler(deps.Organizations)
	projectHandler := NewProjectHandler(deps.Projects)
	taskHandler := NewTaskHandler(deps.Tasks)
	activityHandler := NewActivityHandler(deps.Activity)
	analyticsHandler := NewAnalyticsHandler(deps.Analytics)

	// Health check endpoint
	r.GET("/health", NewHealthHandler(deps.DB).Health)

	api := r.Group("/api")
	if deps.APILimiter != nil {
		api.Use(middleware.RateLimit(deps.APILimiter))
	}

	// Auth routes (public)
	auth := api.Group("/auth")
	{
		login := []gin.HandlerFunc{authHandler.Login}
		if deps.LoginLimiter != nil {
			login = append([]gin.HandlerFunc{middleware.RateLimit(deps.LoginLimiter)}, login...)
		}
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", login...)
		auth.POST("/logout", authHandler.Logout)
	}

	id := middleware.RequireIDParam("id")
	admin := middleware.RequireAdmin()

	protected := api.Group("")
	protected.Use(middleware.RequireAuth(deps.Auth, deps.Logger), middleware.RequireTenant())
	{
		protected.GET("/auth/me", authHandler.GetCurrentUser)
		protected.GET("/organization", orgHandler.GetOrganization)
		protected.GET("/users", orgHandler.ListUsers)
		protected.GET("/activity", activityHandler.ListActivity)
		protected.GET("/analytics", analyticsHandler.GetAnalytics)

		projects := protected.Group("/projects")
		{
			projects.GET("", projectHandler.ListProjects)
			projects.POST("", admin, projectHandler.CreateProject)
			projects.GET("/:id", id, projectHandler.GetProject)
			projects.PUT("/:id", id, admin, projectHandler.UpdateProject)
			projects.DELETE("/:id", id, admin, projectHandler.DeleteProject)
			projects.POST("/:id/assign", id, admin, projectHandler.AssignMembers)
			projects.GET("/:id/tasks", id, taskHandler.ListTasks)
		}

		tasks := protected.Group("/tasks")
		{
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("/:id", id, taskHandler.GetTask)
			tasks.PUT("/:id", id, taskHandler.UpdateTask)
			tasks.PATCH("/:id/status", id, taskHandler.UpdateStatus)
			tasks.DELETE("/:id", id, taskHandler.DeleteTask)
		}
	}

	return r
}
