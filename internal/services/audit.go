package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/kanban-sync/internal/constants"
	"github.com/yukikurage/kanban-sync/internal/dto"
	"github.com/yukikurage/kanban-sync/internal/logging"
	"github.com/yukikurage/kanban-sync/internal/models"
	"github.com/yukikurage/kanban-sync/internal/realtime"
	"github.com/yukikurage/kanban-sync/internal/repository"
)

// Publisher broadcasts committed changes to live sessions.
type Publisher interface {
	Publish(ctx context.Context, kind realtime.EventKind, payload any) realtime.Event
}

// AuditLog is the append-only history of task mutations.
type AuditLog struct {
	repo   repository.ActionLogRepository
	bus    Publisher
	logger logging.Logger
	now    func() time.Time
}

func NewAuditLog(repo repository.ActionLogRepository, bus Publisher, logger logging.Logger) *AuditLog {
	return &AuditLog{repo: repo, bus: bus, logger: logger, now: time.Now}
}

// Append records one entry and broadcasts it. A failed append is logged and
// never undoes the mutation it describes.
func (a *AuditLog) Append(ctx context.Context, kind models.ActionKind, actorID uint64, task *models.Task, details string) {
	entry := &models.ActionLog{
		EventID:   uuid.NewString(),
		Action:    kind,
		UserID:    actorID,
		Details:   details,
		Timestamp: a.now(),
	}
	if task != nil {
		taskID := task.ID
		entry.TaskID = &taskID
		entry.TaskTitle = task.Title
	}

	if err := a.repo.Create(ctx, entry); err != nil {
		a.logger.Error(ctx, "failed to append action log", "action", kind, "user_id", actorID, "error", err)
		return
	}

	if loaded, err := a.repo.FindByID(ctx, entry.ID); err == nil {
		entry = loaded
	} else {
		a.logger.Warn(ctx, "failed to reload action log", "id", entry.ID, "error", err)
	}

	a.bus.Publish(ctx, realtime.EventActionLogged, dto.ToActionLogDTO(*entry))
}

// Recent returns at most MaxRecentActions entries, newest first. Limits
// outside 1..MaxRecentActions are clamped.
func (a *AuditLog) Recent(ctx context.Context, limit int) ([]models.ActionLog, error) {
	if limit <= 0 || limit > constants.MaxRecentActions {
		limit = constants.MaxRecentActions
	}
	entries, err := a.repo.Recent(ctx, limit)
	if err != nil {
		return nil, storageError("failed to list actions", err)
	}
	return entries, nil
}
