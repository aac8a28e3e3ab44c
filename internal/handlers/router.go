package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/kanban-sync/internal/constants"
	"github.com/yukikurage/kanban-sync/internal/logging"
	"github.com/yukikurage/kanban-sync/internal/middleware"
	"github.com/yukikurage/kanban-sync/internal/realtime"
	"github.com/yukikurage/kanban-sync/internal/services"
)

// Deps holds everything the HTTP surface needs.
type Deps struct {
	AuthService *services.AuthService
	UserService *services.UserService
	TaskService *services.TaskService
	Assigner    *services.SmartAssigner
	AIService   *services.AIService
	Audit       *services.AuditLog
	Registry    *realtime.Registry
	Bus         *realtime.Bus
	Logger      logging.Logger
	JWTSecret   []byte
	TokenTTL    time.Duration
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(deps Deps, store sessions.Store) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	authHandler := NewAuthHandler(deps.AuthService, deps.JWTSecret, deps.TokenTTL)
	userHandler := NewUserHandler(deps.UserService)
	taskHandler := NewTaskHandler(deps.TaskService, deps.Assigner, deps.AIService)
	actionHandler := NewActionHandler(deps.Audit)
	eventsHandler := NewEventsHandler(deps.Registry, deps.Bus, deps.Logger)

	requireAuth := middleware.RequireAuth(deps.AuthService, deps.JWTSecret)
	requireAdmin := middleware.RequireAdmin()
	requireEdit := middleware.RequireTaskEditPermission(deps.TaskService)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"sessions": deps.Registry.Len(),
		})
	})

	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", requireAuth, authHandler.GetCurrentUser)
		}

		users := api.Group("/users")
		users.Use(requireAuth)
		{
			users.GET("", userHandler.ListUsers)
			users.PUT("/:id/admin", requireAdmin, userHandler.SetAdmin)
		}

		tasks := api.Group("/tasks")
		tasks.Use(requireAuth)
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", requireAdmin, taskHandler.CreateTask)
			tasks.POST("/generate", requireAdmin, taskHandler.GenerateTasks)
			tasks.GET("/:id", taskHandler.GetTask)
			tasks.PUT("/:id", requireEdit, taskHandler.UpdateTask)
			tasks.PATCH("/:id", requireEdit, taskHandler.UpdateTask)
			tasks.DELETE("/:id", requireAdmin, taskHandler.DeleteTask)
			tasks.POST("/:id/smart-assign", requireAdmin, taskHandler.SmartAssign)
		}

		api.GET("/actions", requireAuth, actionHandler.RecentActions)
		api.GET("/events", requireAuth, eventsHandler.Subscribe)
	}

	return r
}
