package models

import (
	"time"

	"github.com/classpulse/classpulse-backend/pkg/enums"
	"github.com/google/uuid"
)

// AttendanceRecord stores one student's outcome for one class session.
// The (session, student) pair is unique; re-marking overwrites in place.
type AttendanceRecord struct {
	ID        uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	SessionID uuid.UUID              `gorm:"column:session_id;type:uuid;not null;uniqueIndex:ux_attendance_session_student"`
	StudentID uuid.UUID              `gorm:"column:student_id;type:uuid;not null;uniqueIndex:ux_attendance_session_student"`
	Status    enums.AttendanceStatus `gorm:"column:status;type:text;not null"`
	Note      *string                `gorm:"type:text"`
	MarkedBy  uuid.UUID              `gorm:"column:marked_by;type:uuid;not null"`
	MarkedAt  time.Time              `gorm:"column:marked_at;not null"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
