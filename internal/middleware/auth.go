package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/kanban-sync/internal/auth"
	"github.com/yukikurage/kanban-sync/internal/constants"
	apierrors "github.com/yukikurage/kanban-sync/internal/errors"
	"github.com/yukikurage/kanban-sync/internal/models"
	"github.com/yukikurage/kanban-sync/internal/services"
)

// UserLookup resolves an authenticated user ID.
type UserLookup interface {
	GetUser(ctx context.Context, id uint64) (*models.User, error)
}

// RequireAuth accepts either the session cookie or an "Authorization: Bearer"
// token and loads the user into the context.
func RequireAuth(users UserLookup, jwtSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := sessionUserID(c)
		if !ok {
			userID, ok = bearerUserID(c, jwtSecret)
		}
		if !ok {
			apierrors.Unauthorized(c, "")
			return
		}

		user, err := users.GetUser(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, services.ErrUserNotFound) {
				apierrors.Unauthorized(c, "")
				return
			}
			apierrors.InternalError(c, "Failed to load user")
			return
		}

		c.Set(constants.ContextKeyUserID, user.ID)
		c.Set(constants.ContextKeyUser, user)
		c.Next()
	}
}

// RequireAdmin must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := GetUser(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			return
		}
		if !user.IsAdmin {
			apierrors.Forbidden(c, "Admin access required")
			return
		}
		c.Next()
	}
}

func sessionUserID(c *gin.Context) (uint64, bool) {
	session := sessions.Default(c)
	switch v := session.Get(constants.ContextKeyUserID).(type) {
	case uint64:
		return v, v != 0
	case uint:
		return uint64(v), v != 0
	case int:
		if v <= 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}

func bearerUserID(c *gin.Context, secret []byte) (uint64, bool) {
	header := c.GetHeader("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" || len(secret) == 0 {
		return 0, false
	}
	userID, err := auth.GetUserIDFromToken(strings.TrimSpace(token), secret)
	if err != nil {
		return 0, false
	}
	return userID, true
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}
	v, ok := userID.(uint64)
	return v, ok
}

// GetUser retrieves the current user from context
func GetUser(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get(constants.ContextKeyUser)
	if !exists {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}
