package constants

const (
	// ContextKeyUserID is the session and gin context key holding the authenticated user ID.
	ContextKeyUserID = "user_id"
	// ContextKeyUser holds the loaded *models.User once RequireAuth has resolved it.
	ContextKeyUser = "user"
	// ContextKeyTask holds the task loaded by RequireTaskEditPermission.
	ContextKeyTask = "task"

	SessionCookieName = "kanban_session"

	MinPasswordLength = 6

	// MaxRecentActions bounds the audit feed returned to clients.
	MaxRecentActions = 20

	MaxAIGeneratedTasks = 20

	DefaultEventBuffer = 64
)

// ReservedTitles are the board column names; no task may use one as its title.
var ReservedTitles = []string{"Todo", "In Progress", "Done"}

// IsReservedTitle reports whether title collides with a column name.
func IsReservedTitle(title string) bool {
	for _, r := range ReservedTitles {
		if title == r {
			return true
		}
	}
	return false
}
