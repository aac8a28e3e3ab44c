package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apierrors "github.com/yukikurage/kanban-sync/internal/errors"
	"github.com/yukikurage/kanban-sync/internal/logging"
	"github.com/yukikurage/kanban-sync/internal/middleware"
	"github.com/yukikurage/kanban-sync/internal/realtime"
)

const defaultHeartbeat = 15 * time.Second

// EventsHandler streams Broadcast Bus events to the client over
// server-sent events. Each connection is one registry session.
type EventsHandler struct {
	registry  *realtime.Registry
	bus       *realtime.Bus
	logger    logging.Logger
	heartbeat time.Duration
}

func NewEventsHandler(registry *realtime.Registry, bus *realtime.Bus, logger logging.Logger) *EventsHandler {
	return &EventsHandler{
		registry:  registry,
		bus:       bus,
		logger:    logger,
		heartbeat: defaultHeartbeat,
	}
}

// Subscribe opens the stream. The first frame is "hello" with the session ID
// and the last published sequence number; clients re-list on every hello.
func (h *EventsHandler) Subscribe(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	ctx := c.Request.Context()
	sessionID := uuid.NewString()
	session, err := h.registry.Register(sessionID, &userID)
	if err != nil {
		if errors.Is(err, realtime.ErrRegistryClosed) {
			apierrors.ServiceUnavailable(c, "Server is shutting down")
			return
		}
		apierrors.InternalError(c, "Failed to open event stream")
		return
	}
	defer h.registry.Unregister(sessionID)

	h.logger.Debug(ctx, "event stream opened", "session_id", sessionID, "user_id", userID)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	c.SSEvent("hello", gin.H{
		"session_id": sessionID,
		"seq":        h.bus.Seq(),
	})
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-session.Done():
			return false
		case ev := <-session.Events():
			c.SSEvent(string(ev.Kind), ev)
			return true
		case <-ticker.C:
			_, err := fmt.Fprint(w, ": ping\n\n")
			return err == nil
		}
	})

	h.logger.Debug(ctx, "event stream closed", "session_id", sessionID)
}
