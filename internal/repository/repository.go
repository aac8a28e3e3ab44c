package repository

import (
	"context"

	"github.com/yukikurage/kanban-sync/internal/models"
)

// TaskRepository defines the interface for task data access.
// Errors are returned as produced by gorm; gorm.ErrRecordNotFound marks an
// unknown identifier and gorm.ErrDuplicatedKey a title collision.
type TaskRepository interface {
	// Create inserts a new task
	Create(ctx context.Context, task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(ctx context.Context, id uint64, preload ...string) (*models.Task, error)

	// List returns every task, newest created first, with user summaries loaded
	List(ctx context.Context) ([]models.Task, error)

	// UpdateIfVersion writes the mutable fields of task only if the stored
	// version still equals expectedVersion. It reports whether the row was written.
	UpdateIfVersion(ctx context.Context, task *models.Task, expectedVersion int64) (bool, error)

	// Delete hard-deletes a task
	Delete(ctx context.Context, id uint64) error

	// TitleTaken reports whether another task (not excludeID) uses title
	TitleTaken(ctx context.Context, title string, excludeID uint64) (bool, error)

	// CountActiveByAssignee counts Todo and In Progress tasks per assigned user
	CountActiveByAssignee(ctx context.Context) (map[uint64]int64, error)
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// ExistsByUsernameOrEmail reports whether either identifier is taken
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)

	// List returns all users in a stable order (ascending ID)
	List(ctx context.Context) ([]models.User, error)

	// SetAdmin updates the admin flag and returns the updated user
	SetAdmin(ctx context.Context, id uint64, isAdmin bool) (*models.User, error)
}

// ActionLogRepository defines the interface for the audit log
type ActionLogRepository interface {
	// Create appends an entry
	Create(ctx context.Context, entry *models.ActionLog) error

	// FindByID loads one entry with the acting user
	FindByID(ctx context.Context, id uint64) (*models.ActionLog, error)

	// Recent returns up to limit entries, newest first, with the acting user loaded
	Recent(ctx context.Context, limit int) ([]models.ActionLog, error)
}
