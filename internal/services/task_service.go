package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/yukikurage/kanban-sync/internal/dto"
	"github.com/yukikurage/kanban-sync/internal/logging"
	"github.com/yukikurage/kanban-sync/internal/models"
	"github.com/yukikurage/kanban-sync/internal/realtime"
	"github.com/yukikurage/kanban-sync/internal/repository"
)

// TaskService handles task related business logic. Every write goes through
// the ConflictResolver; the service adds the audit entry and the broadcast.
type TaskService struct {
	taskRepo repository.TaskRepository
	resolver *ConflictResolver
	audit    *AuditLog
	bus      Publisher
	logger   logging.Logger
}

// NewTaskService creates a new TaskService.
func NewTaskService(taskRepo repository.TaskRepository, resolver *ConflictResolver, audit *AuditLog, bus Publisher, logger logging.Logger) *TaskService {
	return &TaskService{
		taskRepo: taskRepo,
		resolver: resolver,
		audit:    audit,
		bus:      bus,
		logger:   logger,
	}
}

// CreateTaskInput holds the fields of a new task.
type CreateTaskInput struct {
	Title          string
	Description    string
	AssignedUserID uint64
	Status         models.TaskStatus
	Priority       models.TaskPriority
	ActorID        uint64
}

// UpdateTaskInput holds a partial update. ExpectedVersion is the version the
// caller last saw; nil skips the check. Resolution is set when the update
// re-submits a previously conflicting edit.
type UpdateTaskInput struct {
	TaskID          uint64
	ExpectedVersion *int64
	Fields          TaskFields
	ActorID         uint64
	Resolution      Resolution
}

// CreateTask creates a task at version 1.
func (s *TaskService) CreateTask(ctx context.Context, input CreateTaskInput) (*models.Task, error) {
	draft := &models.Task{
		Title:          input.Title,
		Description:    input.Description,
		AssignedUserID: input.AssignedUserID,
		Status:         input.Status,
		Priority:       input.Priority,
	}

	task, err := s.resolver.Create(ctx, draft, input.ActorID, func(ctx context.Context, _, after *models.Task) {
		s.audit.Append(ctx, models.ActionCreated, input.ActorID, after, fmt.Sprintf("Created task %q", after.Title))
		s.bus.Publish(ctx, realtime.EventTaskCreated, dto.ToTaskDTO(*after))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "task created", "task_id", task.ID, "user_id", input.ActorID)
	return task, nil
}

// UpdateTask applies a partial update guarded by the caller's version.
func (s *TaskService) UpdateTask(ctx context.Context, input UpdateTaskInput) (*models.Task, error) {
	proposal := Proposal{
		TaskID:          input.TaskID,
		ExpectedVersion: input.ExpectedVersion,
		Fields:          input.Fields,
		ActorID:         input.ActorID,
	}

	task, err := s.resolver.Propose(ctx, proposal, func(ctx context.Context, before, after *models.Task) {
		details := updateDetails(before, after)
		if input.Resolution != "" {
			details = fmt.Sprintf("%s (resolved by %s)", details, input.Resolution)
		}
		s.audit.Append(ctx, models.ActionUpdated, input.ActorID, after, details)
		s.bus.Publish(ctx, realtime.EventTaskUpdated, dto.ToTaskDTO(*after))
	})
	if err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			s.logger.Info(ctx, "task update conflict", "task_id", input.TaskID, "current_version", conflict.Current.Version)
		}
		return nil, err
	}

	return task, nil
}

// ResolveConflict re-submits an edit that previously failed with conflict.
func (s *TaskService) ResolveConflict(ctx context.Context, conflict *ConflictError, mode Resolution, local models.Task, edits TaskFields, actorID uint64) (*models.Task, error) {
	proposal, err := Resubmit(conflict, mode, local, edits, actorID)
	if err != nil {
		return nil, err
	}
	return s.UpdateTask(ctx, UpdateTaskInput{
		TaskID:          proposal.TaskID,
		ExpectedVersion: proposal.ExpectedVersion,
		Fields:          proposal.Fields,
		ActorID:         actorID,
		Resolution:      mode,
	})
}

// DeleteTask removes a task permanently.
func (s *TaskService) DeleteTask(ctx context.Context, taskID, actorID uint64) error {
	_, err := s.resolver.Remove(ctx, taskID, func(ctx context.Context, before, _ *models.Task) {
		s.audit.Append(ctx, models.ActionDeleted, actorID, before, fmt.Sprintf("Deleted task %q", before.Title))
		s.bus.Publish(ctx, realtime.EventTaskDeleted, dto.TaskDeletedDTO{ID: before.ID})
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "task deleted", "task_id", taskID, "user_id", actorID)
	return nil
}

// GetTask returns a single task with user summaries.
func (s *TaskService) GetTask(ctx context.Context, taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID, "AssignedUser", "LastEditedBy")
	if err != nil {
		return nil, taskLookupError(err)
	}
	return task, nil
}

// ListTasks returns every task, newest first.
func (s *TaskService) ListTasks(ctx context.Context) ([]models.Task, error) {
	tasks, err := s.taskRepo.List(ctx)
	if err != nil {
		return nil, storageError("failed to list tasks", err)
	}
	return tasks, nil
}

func updateDetails(before, after *models.Task) string {
	switch {
	case before.Status != after.Status:
		return fmt.Sprintf("Changed status from %q to %q", before.Status, after.Status)
	case before.Title != after.Title:
		return fmt.Sprintf("Updated task title to %q", after.Title)
	default:
		return fmt.Sprintf("Updated task %q", before.Title)
	}
}
