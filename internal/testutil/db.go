// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/kanban-sync/internal/config"
	"github.com/yukikurage/kanban-sync/internal/database"
	"github.com/yukikurage/kanban-sync/internal/models"
	"gorm.io/gorm"
)

// NewDB opens a private in-memory sqlite database with the schema applied.
// The database is closed when the test ends.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := &config.Config{
		DBDriver: "sqlite",
		DBPath:   "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		LogLevel: "error",
	}

	db, err := database.Connect(cfg)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		_ = database.Close(db)
	})
	return db
}

// CreateUser inserts a user with a placeholder password hash.
func CreateUser(t *testing.T, db *gorm.DB, username string, isAdmin bool) *models.User {
	t.Helper()

	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hashedpassword",
		IsAdmin:      isAdmin,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateTask inserts a task at version 1 directly, bypassing the services.
func CreateTask(t *testing.T, db *gorm.DB, title string, assignee uint64, status models.TaskStatus) *models.Task {
	t.Helper()

	task := &models.Task{
		Title:          title,
		Description:    "Test Description",
		AssignedUserID: assignee,
		Status:         status,
		Priority:       models.TaskPriorityMedium,
		Version:        1,
	}
	require.NoError(t, db.Create(task).Error)
	return task
}
