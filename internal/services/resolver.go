package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/yukikurage/kanban-sync/internal/constants"
	"github.com/yukikurage/kanban-sync/internal/keylock"
	"github.com/yukikurage/kanban-sync/internal/models"
	"github.com/yukikurage/kanban-sync/internal/repository"
	"gorm.io/gorm"
)

// maxSwapAttempts bounds retries of server-side mutations whose compare-and-swap
// lost against a writer in another process.
const maxSwapAttempts = 3

// TaskFields is a partial set of task fields; nil means unchanged.
type TaskFields struct {
	Title          *string
	Description    *string
	AssignedUserID *uint64
	Status         *models.TaskStatus
	Priority       *models.TaskPriority
}

// Proposal is a mutation submitted to the ConflictResolver. A nil
// ExpectedVersion skips the version check and targets the live version.
type Proposal struct {
	TaskID          uint64
	ExpectedVersion *int64
	Fields          TaskFields
	ActorID         uint64
}

// CommitFunc runs after a write is durable and before the task's lock is
// released, so side effects for one task are emitted in commit order.
// before is nil for creations; after is nil for deletions.
type CommitFunc func(ctx context.Context, before, after *models.Task)

// ConflictResolver is the only writer of tasks. It validates every mutation
// against the stored version and serializes read-check-write per task ID.
type ConflictResolver struct {
	tasks repository.TaskRepository
	users repository.UserRepository
	locks *keylock.Locker[uint64]
	now   func() time.Time
}

func NewConflictResolver(tasks repository.TaskRepository, users repository.UserRepository) *ConflictResolver {
	return &ConflictResolver{
		tasks: tasks,
		users: users,
		locks: keylock.New[uint64](),
		now:   time.Now,
	}
}

// Create validates and inserts a new task at version 1.
func (r *ConflictResolver) Create(ctx context.Context, draft *models.Task, actorID uint64, onCommit CommitFunc) (*models.Task, error) {
	draft.Title = strings.TrimSpace(draft.Title)
	if err := r.checkTitle(ctx, draft.Title, 0); err != nil {
		return nil, err
	}
	if draft.Status == "" {
		draft.Status = models.TaskStatusTodo
	}
	if draft.Priority == "" {
		draft.Priority = models.TaskPriorityMedium
	}
	if !draft.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if !draft.Priority.Valid() {
		return nil, ErrInvalidPriority
	}
	if _, err := r.assignee(ctx, draft.AssignedUserID); err != nil {
		return nil, err
	}

	now := r.now()
	draft.ID = 0
	draft.CreatedAt = now
	draft.UpdatedAt = now
	draft.LastEditedByID = &actorID
	draft.Version = 1

	if err := r.tasks.Create(ctx, draft); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateTitle
		}
		return nil, storageError("failed to create task", err)
	}

	unlock := r.locks.Lock(draft.ID)
	defer unlock()

	created := r.reload(ctx, draft)
	if onCommit != nil {
		onCommit(ctx, nil, created)
	}
	return created, nil
}

// Propose applies p to the stored task. It returns the committed task, a
// *ConflictError holding the current record on a version mismatch, or a
// validation error. The version of a committed task is exactly one more
// than the version it replaced.
func (r *ConflictResolver) Propose(ctx context.Context, p Proposal, onCommit CommitFunc) (*models.Task, error) {
	unlock := r.locks.Lock(p.TaskID)
	defer unlock()

	for attempt := 1; ; attempt++ {
		current, err := r.tasks.FindByID(ctx, p.TaskID, "AssignedUser", "LastEditedBy")
		if err != nil {
			return nil, taskLookupError(err)
		}

		if p.ExpectedVersion != nil && *p.ExpectedVersion != current.Version {
			return nil, &ConflictError{Current: current, Reason: conflictReason}
		}

		next := *current
		if err := r.apply(ctx, &next, current, p.Fields); err != nil {
			return nil, err
		}
		actorID := p.ActorID
		next.UpdatedAt = r.now()
		next.LastEditedByID = &actorID
		next.Version = current.Version + 1

		swapped, err := r.tasks.UpdateIfVersion(ctx, &next, current.Version)
		if err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, ErrDuplicateTitle
			}
			return nil, storageError("failed to update task", err)
		}

		if !swapped {
			// Lost to a writer outside this process. Client proposals must
			// re-resolve; server-side ones retry on the fresh version.
			if p.ExpectedVersion == nil && attempt < maxSwapAttempts {
				continue
			}
			latest, err := r.tasks.FindByID(ctx, p.TaskID, "AssignedUser", "LastEditedBy")
			if err != nil {
				return nil, taskLookupError(err)
			}
			return nil, &ConflictError{Current: latest, Reason: conflictReason}
		}

		committed := r.reload(ctx, &next)
		if onCommit != nil {
			onCommit(ctx, current, committed)
		}
		return committed, nil
	}
}

// Remove deletes a task. Deletion is terminal; the ID is never reused.
func (r *ConflictResolver) Remove(ctx context.Context, taskID uint64, onCommit CommitFunc) (*models.Task, error) {
	unlock := r.locks.Lock(taskID)
	defer unlock()

	current, err := r.tasks.FindByID(ctx, taskID, "AssignedUser")
	if err != nil {
		return nil, taskLookupError(err)
	}

	if err := r.tasks.Delete(ctx, taskID); err != nil {
		return nil, taskLookupError(err)
	}

	if onCommit != nil {
		onCommit(ctx, current, nil)
	}
	return current, nil
}

func (r *ConflictResolver) apply(ctx context.Context, next, current *models.Task, f TaskFields) error {
	if f.Title != nil {
		title := strings.TrimSpace(*f.Title)
		if title != current.Title {
			if err := r.checkTitle(ctx, title, current.ID); err != nil {
				return err
			}
		}
		next.Title = title
	}
	if f.Description != nil {
		next.Description = *f.Description
	}
	if f.AssignedUserID != nil && *f.AssignedUserID != current.AssignedUserID {
		user, err := r.assignee(ctx, *f.AssignedUserID)
		if err != nil {
			return err
		}
		next.AssignedUserID = user.ID
		next.AssignedUser = *user
	}
	if f.Status != nil {
		if !f.Status.Valid() {
			return ErrInvalidStatus
		}
		next.Status = *f.Status
	}
	if f.Priority != nil {
		if !f.Priority.Valid() {
			return ErrInvalidPriority
		}
		next.Priority = *f.Priority
	}
	return nil
}

func (r *ConflictResolver) checkTitle(ctx context.Context, title string, excludeID uint64) error {
	if title == "" {
		return ErrTitleRequired
	}
	if constants.IsReservedTitle(title) {
		return ErrReservedTitle
	}
	taken, err := r.tasks.TitleTaken(ctx, title, excludeID)
	if err != nil {
		return storageError("failed to check title", err)
	}
	if taken {
		return ErrDuplicateTitle
	}
	return nil
}

func (r *ConflictResolver) assignee(ctx context.Context, id uint64) (*models.User, error) {
	user, err := r.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssigneeNotFound
		}
		return nil, storageError("failed to find user", err)
	}
	return user, nil
}

// reload fetches the committed row with user summaries. The write is already
// durable, so a failed read falls back to the in-memory copy.
func (r *ConflictResolver) reload(ctx context.Context, written *models.Task) *models.Task {
	task, err := r.tasks.FindByID(ctx, written.ID, "AssignedUser", "LastEditedBy")
	if err != nil {
		return written
	}
	return task
}
