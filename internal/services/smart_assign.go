package services

import (
	"context"
	"fmt"

	"github.com/yukikurage/kanban-sync/internal/dto"
	"github.com/yukikurage/kanban-sync/internal/logging"
	"github.com/yukikurage/kanban-sync/internal/models"
	"github.com/yukikurage/kanban-sync/internal/realtime"
	"github.com/yukikurage/kanban-sync/internal/repository"
)

// SmartAssigner reassigns a task to the user with the fewest active tasks.
type SmartAssigner struct {
	userRepo repository.UserRepository
	taskRepo repository.TaskRepository
	resolver *ConflictResolver
	audit    *AuditLog
	bus      Publisher
	logger   logging.Logger
}

func NewSmartAssigner(userRepo repository.UserRepository, taskRepo repository.TaskRepository, resolver *ConflictResolver, audit *AuditLog, bus Publisher, logger logging.Logger) *SmartAssigner {
	return &SmartAssigner{
		userRepo: userRepo,
		taskRepo: taskRepo,
		resolver: resolver,
		audit:    audit,
		bus:      bus,
		logger:   logger,
	}
}

// Pick returns the user with the fewest Todo or In Progress tasks. Ties go
// to the earliest user in ascending ID order.
func (s *SmartAssigner) Pick(ctx context.Context) (*models.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, storageError("failed to list users", err)
	}
	if len(users) == 0 {
		return nil, ErrNoEligibleUsers
	}

	counts, err := s.taskRepo.CountActiveByAssignee(ctx)
	if err != nil {
		return nil, storageError("failed to count active tasks", err)
	}

	best := 0
	for i := 1; i < len(users); i++ {
		if counts[users[i].ID] < counts[users[best].ID] {
			best = i
		}
	}
	return &users[best], nil
}

// SmartAssign commits the reassignment at whatever version the task holds
// when the write is applied.
func (s *SmartAssigner) SmartAssign(ctx context.Context, taskID, actorID uint64) (*models.Task, error) {
	if _, err := s.taskRepo.FindByID(ctx, taskID); err != nil {
		return nil, taskLookupError(err)
	}

	user, err := s.Pick(ctx)
	if err != nil {
		return nil, err
	}

	proposal := Proposal{
		TaskID:  taskID,
		Fields:  TaskFields{AssignedUserID: &user.ID},
		ActorID: actorID,
	}
	task, err := s.resolver.Propose(ctx, proposal, func(ctx context.Context, _, after *models.Task) {
		s.audit.Append(ctx, models.ActionSmartAssigned, actorID, after, fmt.Sprintf("Smart assigned to %s", user.Username))
		s.bus.Publish(ctx, realtime.EventTaskUpdated, dto.ToTaskDTO(*after))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "task smart assigned", "task_id", taskID, "assignee_id", user.ID)
	return task, nil
}
