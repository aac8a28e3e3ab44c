package models

import (
	"time"
)

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "Todo"
	TaskStatusInProgress TaskStatus = "In Progress"
	TaskStatusDone       TaskStatus = "Done"
)

// Valid reports whether s is one of the board columns.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

// Active reports whether a task in this status counts toward its assignee's load.
func (s TaskStatus) Active() bool {
	return s == TaskStatusTodo || s == TaskStatusInProgress
}

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "Low"
	TaskPriorityMedium TaskPriority = "Medium"
	TaskPriorityHigh   TaskPriority = "High"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

type Task struct {
	ID             uint64       `gorm:"primarykey" json:"id"`
	Title          string       `gorm:"type:varchar(255);uniqueIndex;not null" json:"title"`
	Description    string       `gorm:"type:text" json:"description"`
	AssignedUserID uint64       `gorm:"not null;index" json:"assigned_user_id"`
	Status         TaskStatus   `gorm:"type:varchar(20);not null;default:'Todo';index" json:"status"`
	Priority       TaskPriority `gorm:"type:varchar(20);not null;default:'Medium'" json:"priority"`
	CreatedAt      time.Time    `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
	LastEditedByID *uint64      `json:"last_edited_by_id"`
	Version        int64        `gorm:"not null;default:1" json:"version"`

	// Relations
	AssignedUser User  `gorm:"foreignKey:AssignedUserID" json:"assigned_user,omitempty"`
	LastEditedBy *User `gorm:"foreignKey:LastEditedByID" json:"last_edited_by,omitempty"`
}
