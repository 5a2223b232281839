package payloads

import (
	"time"

	"github.com/classpulse/classpulse-backend/pkg/enums"
	"github.com/google/uuid"
)

// AttendanceMarkedEvent is emitted for every attendance row written during a
// bulk mark. Downstream analytics consume it into the warehouse.
type AttendanceMarkedEvent struct {
	SessionID  uuid.UUID              `json:"session_id"`
	SchoolID   uuid.UUID              `json:"school_id"`
	StudentID  uuid.UUID              `json:"student_id"`
	Status     enums.AttendanceStatus `json:"status"`
	GradeLevel string                 `json:"grade_level"`
	Subject    string                 `json:"subject"`
	MarkedBy   uuid.UUID              `json:"marked_by"`
	MarkedAt   time.Time              `json:"marked_at"`
}

// StudentAbsentEvent is emitted when a student is marked absent or late so
// guardians get notified.
type StudentAbsentEvent struct {
	SessionID uuid.UUID              `json:"session_id"`
	SchoolID  uuid.UUID              `json:"school_id"`
	StudentID uuid.UUID              `json:"student_id"`
	Status    enums.AttendanceStatus `json:"status"`
	Subject   string                 `json:"subject"`
	MarkedAt  time.Time              `json:"marked_at"`
}

// SessionClosedEvent is emitted when a class session closes, manually or via
// the autoclose job.
type SessionClosedEvent struct {
	SessionID   uuid.UUID `json:"session_id"`
	SchoolID    uuid.UUID `json:"school_id"`
	TeacherID   uuid.UUID `json:"teacher_id"`
	Subject     string    `json:"subject"`
	ClosedAt    time.Time `json:"closed_at"`
	MarkedCount int       `json:"marked_count"`
	AutoClosed  bool      `json:"auto_closed"`
}
