package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskRunning TaskStatus = "running"
	TaskDone    TaskStatus = "done"
	TaskFailed  TaskStatus = "failed"
)

// ScreeningTask records one bulk screening run for a user. The row exists for
// operational visibility; the at-most-once guarantee lives on the user row.
type ScreeningTask struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID         string       `gorm:"type:uuid;not null;index" json:"user_id"`
	Status         TaskStatus   `gorm:"not null;default:pending" json:"status"`
	ErrorMessage   *string      `json:"error_message,omitempty"`
	MatchesCreated int          `gorm:"default:0" json:"matches_created"`
	StartedAt      *time.Time   `json:"started_at,omitempty"`
	FinishedAt     *time.Time   `json:"finished_at,omitempty"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (ScreeningTask) TableName() string {
	return "screening_tasks"
}
