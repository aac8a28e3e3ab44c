package services

import (
	"errors"

	"github.com/yukikurage/kanban-sync/internal/models"
)

// Resolution is how a caller settles a conflict.
type Resolution string

const (
	// ResolutionMerge keeps the current record and layers the caller's
	// edited fields on top.
	ResolutionMerge Resolution = "merge"

	// ResolutionOverwrite re-submits the caller's own copy in full.
	ResolutionOverwrite Resolution = "overwrite"
)

var ErrInvalidResolution = errors.New("resolution must be merge or overwrite")

func (r Resolution) Valid() bool {
	return r == ResolutionMerge || r == ResolutionOverwrite
}

// Resubmit builds the follow-up proposal for a conflict. local is the
// caller's stale copy of the task and edits holds the fields it changed.
// The proposal expects the version carried by the conflict, so a further
// concurrent commit conflicts again rather than being overwritten.
func Resubmit(conflict *ConflictError, mode Resolution, local models.Task, edits TaskFields, actorID uint64) (Proposal, error) {
	var base models.Task
	switch mode {
	case ResolutionMerge:
		base = *conflict.Current
	case ResolutionOverwrite:
		base = local
	default:
		return Proposal{}, ErrInvalidResolution
	}

	fields := fieldsOf(base)
	if edits.Title != nil {
		fields.Title = edits.Title
	}
	if edits.Description != nil {
		fields.Description = edits.Description
	}
	if edits.AssignedUserID != nil {
		fields.AssignedUserID = edits.AssignedUserID
	}
	if edits.Status != nil {
		fields.Status = edits.Status
	}
	if edits.Priority != nil {
		fields.Priority = edits.Priority
	}

	version := conflict.Current.Version
	return Proposal{
		TaskID:          conflict.Current.ID,
		ExpectedVersion: &version,
		Fields:          fields,
		ActorID:         actorID,
	}, nil
}

func fieldsOf(t models.Task) TaskFields {
	return TaskFields{
		Title:          &t.Title,
		Description:    &t.Description,
		AssignedUserID: &t.AssignedUserID,
		Status:         &t.Status,
		Priority:       &t.Priority,
	}
}
