package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/kanban-sync/internal/dto"
	apierrors "github.com/yukikurage/kanban-sync/internal/errors"
	"github.com/yukikurage/kanban-sync/internal/middleware"
	"github.com/yukikurage/kanban-sync/internal/models"
	"github.com/yukikurage/kanban-sync/internal/services"
)

type TaskHandler struct {
	taskService *services.TaskService
	assigner    *services.SmartAssigner
	aiService   *services.AIService
}

func NewTaskHandler(taskService *services.TaskService, assigner *services.SmartAssigner, aiService *services.AIService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		assigner:    assigner,
		aiService:   aiService,
	}
}

// ListTasks returns every task on the board, newest first
func (h *TaskHandler) ListTasks(c *gin.Context) {
	tasks, err := h.taskService.ListTasks(c.Request.Context())
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTOs(tasks))
}

// GetTask returns a single task
func (h *TaskHandler) GetTask(c *gin.Context) {
	taskID, ok := parseTaskID(c)
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(c.Request.Context(), taskID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// CreateTask creates a new task
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type CreateTaskRequest struct {
		Title          string              `json:"title" binding:"required"`
		Description    string              `json:"description"`
		AssignedUserID uint64              `json:"assigned_user_id" binding:"required"`
		Status         models.TaskStatus   `json:"status"`
		Priority       models.TaskPriority `json:"priority"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), services.CreateTaskInput{
		Title:          req.Title,
		Description:    req.Description,
		AssignedUserID: req.AssignedUserID,
		Status:         req.Status,
		Priority:       req.Priority,
		ActorID:        userID,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// UpdateTask applies a partial update. The optional version field is the
// version the client last saw; a stale version yields 409 with the current task.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	task, exists := middleware.GetTask(c)
	if !exists {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	type UpdateTaskRequest struct {
		Title          *string              `json:"title"`
		Description    *string              `json:"description"`
		AssignedUserID *uint64              `json:"assigned_user_id"`
		Status         *models.TaskStatus   `json:"status"`
		Priority       *models.TaskPriority `json:"priority"`
		Version        *int64               `json:"version"`
		Resolution     services.Resolution  `json:"resolution"`
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}
	if req.Resolution != "" && !req.Resolution.Valid() {
		apierrors.BadRequest(c, services.ErrInvalidResolution.Error())
		return
	}

	updated, err := h.taskService.UpdateTask(c.Request.Context(), services.UpdateTaskInput{
		TaskID:          task.ID,
		ExpectedVersion: req.Version,
		Fields: services.TaskFields{
			Title:          req.Title,
			Description:    req.Description,
			AssignedUserID: req.AssignedUserID,
			Status:         req.Status,
			Priority:       req.Priority,
		},
		ActorID:    userID,
		Resolution: req.Resolution,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*updated))
}

// DeleteTask deletes a task
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	taskID, ok := parseTaskID(c)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), taskID, userID); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted successfully",
	})
}

// SmartAssign hands the task to the least-loaded user
func (h *TaskHandler) SmartAssign(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	taskID, ok := parseTaskID(c)
	if !ok {
		return
	}

	task, err := h.assigner.SmartAssign(c.Request.Context(), taskID, userID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// GenerateTasks suggests task drafts from free text. Nothing is persisted.
func (h *TaskHandler) GenerateTasks(c *gin.Context) {
	type GenerateTasksRequest struct {
		Text string `json:"text" binding:"required"`
	}

	var req GenerateTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if h.aiService == nil || !h.aiService.Enabled() {
		apierrors.ServiceUnavailable(c, "AI service is not configured. Please set OPENAI_API_KEY environment variable.")
		return
	}

	drafts, err := h.aiService.GenerateTaskDrafts(c.Request.Context(), req.Text)
	if err != nil {
		apierrors.InternalError(c, "Failed to generate tasks")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": drafts,
	})
}

func parseTaskID(c *gin.Context) (uint64, bool) {
	taskID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid task ID")
		return 0, false
	}
	return taskID, true
}

func respondTaskError(c *gin.Context, err error) {
	var conflict *services.ConflictError
	switch {
	case errors.As(err, &conflict):
		c.AbortWithStatusJSON(http.StatusConflict, dto.ConflictResponse{
			Code:        apierrors.ErrCodeConflict,
			Message:     "Version conflict",
			Reason:      conflict.Reason,
			CurrentTask: dto.ToTaskDTO(*conflict.Current),
		})
	case errors.Is(err, services.ErrTaskNotFound):
		apierrors.NotFound(c, "Task not found")
	case errors.Is(err, services.ErrDuplicateTitle):
		apierrors.BadRequestWithCode(c, apierrors.ErrCodeDuplicateTitle, err.Error())
	case errors.Is(err, services.ErrReservedTitle):
		apierrors.BadRequestWithCode(c, apierrors.ErrCodeReservedTitle, err.Error())
	case errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidPriority),
		errors.Is(err, services.ErrAssigneeNotFound),
		errors.Is(err, services.ErrNoEligibleUsers):
		apierrors.BadRequest(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
