package dto

import (
	"time"

	"github.com/yukikurage/kanban-sync/internal/models"
)

// UserSummaryDTO is the minimal user reference embedded in other payloads
type UserSummaryDTO struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
}

// UserDTO represents a user in API responses and user events
type UserDTO struct {
	ID        uint64    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskDTO represents a task in API responses and task events. The assignee
// is always resolved so clients never need a second fetch.
type TaskDTO struct {
	ID           uint64              `json:"id"`
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	AssignedUser UserSummaryDTO      `json:"assigned_user"`
	Status       models.TaskStatus   `json:"status"`
	Priority     models.TaskPriority `json:"priority"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
	LastEditedBy *UserSummaryDTO     `json:"last_edited_by,omitempty"`
	Version      int64               `json:"version"`
}

// ActionLogDTO represents an audit entry
type ActionLogDTO struct {
	ID        uint64            `json:"id"`
	Action    models.ActionKind `json:"action"`
	TaskID    *uint64           `json:"task_id,omitempty"`
	TaskTitle string            `json:"task_title,omitempty"`
	User      UserSummaryDTO    `json:"user"`
	Details   string            `json:"details"`
	Timestamp time.Time         `json:"timestamp"`
}

// TaskDeletedDTO is the payload of a taskDeleted event
type TaskDeletedDTO struct {
	ID uint64 `json:"id"`
}

// ConflictResponse is returned to the caller on a version mismatch. It is
// never broadcast.
type ConflictResponse struct {
	Code        string  `json:"code"`
	Message     string  `json:"message"`
	Reason      string  `json:"reason"`
	CurrentTask TaskDTO `json:"currentTask"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

// Conversion functions

// ToUserSummaryDTO converts a User model to UserSummaryDTO
func ToUserSummaryDTO(user models.User) UserSummaryDTO {
	return UserSummaryDTO{
		ID:       user.ID,
		Username: user.Username,
	}
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		IsAdmin:   user.IsAdmin,
		CreatedAt: user.CreatedAt,
	}
}

// ToUserDTOs converts a slice of users
func ToUserDTOs(users []models.User) []UserDTO {
	out := make([]UserDTO, len(users))
	for i, u := range users {
		out[i] = ToUserDTO(u)
	}
	return out
}

// ToTaskDTO converts a Task model to TaskDTO. AssignedUser must be preloaded;
// when it is not, only the ID is filled in.
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		Priority:    task.Priority,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
		Version:     task.Version,
	}

	dto.AssignedUser = ToUserSummaryDTO(task.AssignedUser)
	if dto.AssignedUser.ID == 0 {
		dto.AssignedUser.ID = task.AssignedUserID
	}

	if task.LastEditedBy != nil {
		editor := ToUserSummaryDTO(*task.LastEditedBy)
		dto.LastEditedBy = &editor
	}

	return dto
}

// ToTaskDTOs converts a slice of tasks
func ToTaskDTOs(tasks []models.Task) []TaskDTO {
	out := make([]TaskDTO, len(tasks))
	for i, t := range tasks {
		out[i] = ToTaskDTO(t)
	}
	return out
}

// ToActionLogDTO converts an ActionLog model to ActionLogDTO
func ToActionLogDTO(entry models.ActionLog) ActionLogDTO {
	dto := ActionLogDTO{
		ID:        entry.ID,
		Action:    entry.Action,
		TaskID:    entry.TaskID,
		TaskTitle: entry.TaskTitle,
		User:      ToUserSummaryDTO(entry.User),
		Details:   entry.Details,
		Timestamp: entry.Timestamp,
	}
	if dto.User.ID == 0 {
		dto.User.ID = entry.UserID
	}
	return dto
}

// ToActionLogDTOs converts a slice of audit entries
func ToActionLogDTOs(entries []models.ActionLog) []ActionLogDTO {
	out := make([]ActionLogDTO, len(entries))
	for i, e := range entries {
		out[i] = ToActionLogDTO(e)
	}
	return out
}
