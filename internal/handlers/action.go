package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/kanban-sync/internal/constants"
	"github.com/yukikurage/kanban-sync/internal/dto"
	apierrors "github.com/yukikurage/kanban-sync/internal/errors"
	"github.com/yukikurage/kanban-sync/internal/services"
)

type ActionHandler struct {
	audit *services.AuditLog
}

func NewActionHandler(audit *services.AuditLog) *ActionHandler {
	return &ActionHandler{audit: audit}
}

// RecentActions returns the newest audit entries. ?limit is clamped to the
// feed size.
func (h *ActionHandler) RecentActions(c *gin.Context) {
	limit := constants.MaxRecentActions
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			apierrors.BadRequest(c, "Invalid limit")
			return
		}
		limit = v
	}

	entries, err := h.audit.Recent(c.Request.Context(), limit)
	if err != nil {
		apierrors.InternalError(c, "Failed to load actions")
		return
	}

	c.JSON(http.StatusOK, dto.ToActionLogDTOs(entries))
}
