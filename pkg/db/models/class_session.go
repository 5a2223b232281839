package models

import (
	"time"

	"github.com/classpulse/classpulse-backend/pkg/enums"
	"github.com/google/uuid"
)

// ClassSession is a single teaching period attendance is marked against.
type ClassSession struct {
	ID             uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	SchoolID       uuid.UUID           `gorm:"column:school_id;type:uuid;not null;index"`
	TeacherID      uuid.UUID           `gorm:"column:teacher_id;type:uuid;not null;index"`
	Subject        string              `gorm:"type:text;not null"`
	GradeLevel     string              `gorm:"column:grade_level;type:text;not null"`
	Room           *string             `gorm:"type:text"`
	ScheduledStart time.Time           `gorm:"column:scheduled_start;not null"`
	ScheduledEnd   time.Time           `gorm:"column:scheduled_end;not null"`
	Status         enums.SessionStatus `gorm:"column:status;type:text;not null;default:'scheduled'"`
	OpenedAt       *time.Time          `gorm:"column:opened_at"`
	ClosedAt       *time.Time          `gorm:"column:closed_at"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
