package models

import "time"

type ActionKind string

const (
	ActionCreated       ActionKind = "created"
	ActionUpdated       ActionKind = "updated"
	ActionDeleted       ActionKind = "deleted"
	ActionSmartAssigned ActionKind = "smart-assigned"
)

// ActionLog is an append-only audit record. TaskID is a weak reference and
// outlives the task it points to, so TaskTitle keeps a snapshot for display.
type ActionLog struct {
	ID        uint64     `gorm:"primarykey" json:"id"`
	EventID   string     `gorm:"type:varchar(36);uniqueIndex;not null" json:"event_id"`
	Action    ActionKind `gorm:"type:varchar(32);not null;index" json:"action"`
	TaskID    *uint64    `gorm:"index" json:"task_id"`
	TaskTitle string     `gorm:"type:varchar(255)" json:"task_title"`
	UserID    uint64     `gorm:"not null;index" json:"user_id"`
	Details   string     `gorm:"type:text" json:"details"`
	Timestamp time.Time  `gorm:"not null;index" json:"timestamp"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
