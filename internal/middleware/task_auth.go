package middleware

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/kanban-sync/internal/constants"
	apierrors "github.com/yukikurage/kanban-sync/internal/errors"
	"github.com/yukikurage/kanban-sync/internal/models"
	"github.com/yukikurage/kanban-sync/internal/services"
)

// TaskLookup loads a task by ID.
type TaskLookup interface {
	GetTask(ctx context.Context, id uint64) (*models.Task, error)
}

// RequireTaskEditPermission lets admins and the task's assignee through.
// The loaded task is stored in the context.
func RequireTaskEditPermission(tasks TaskLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid task ID")
			return
		}

		user, ok := GetUser(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			return
		}

		task, err := tasks.GetTask(c.Request.Context(), taskID)
		if err != nil {
			if errors.Is(err, services.ErrTaskNotFound) {
				apierrors.NotFound(c, "Task not found")
				return
			}
			apierrors.InternalError(c, "Failed to load task")
			return
		}

		if !user.IsAdmin && task.AssignedUserID != user.ID {
			apierrors.Forbidden(c, "Only the assignee or an admin can edit this task")
			return
		}

		c.Set(constants.ContextKeyTask, task)
		c.Next()
	}
}

// GetTask retrieves the task loaded by RequireTaskEditPermission
func GetTask(c *gin.Context) (*models.Task, bool) {
	v, exists := c.Get(constants.ContextKeyTask)
	if !exists {
		return nil, false
	}
	task, ok := v.(*models.Task)
	return task, ok
}
