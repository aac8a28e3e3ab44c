package services

import (
	"errors"
	"fmt"

	"github.com/yukikurage/kanban-sync/internal/models"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound     = errors.New("task not found")
	ErrAssigneeNotFound = errors.New("assigned user does not exist")
	ErrTitleRequired    = errors.New("title is required")
	ErrDuplicateTitle   = errors.New("task title must be unique")
	ErrReservedTitle    = errors.New("task title cannot match column names")
	ErrInvalidStatus    = errors.New("invalid task status")
	ErrInvalidPriority  = errors.New("invalid task priority")
	ErrNoEligibleUsers  = errors.New("no users available for assignment")

	// ErrConflict is matched by every *ConflictError.
	ErrConflict = errors.New("version conflict")

	// ErrStorageFailure wraps any error from the persistence medium other
	// than a missing record or a uniqueness violation.
	ErrStorageFailure = errors.New("storage failure")
)

const conflictReason = "Another user has modified this task. Please resolve the conflict."

// ConflictError carries the authoritative record when a proposed mutation
// was based on a stale version.
type ConflictError struct {
	Current *models.Task
	Reason  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: task %d is at version %d", ErrConflict, e.Current.ID, e.Current.Version)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

func storageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageFailure, err)
}

// taskLookupError maps a repository error from a task lookup.
func taskLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrTaskNotFound
	}
	return storageError("failed to find task", err)
}
