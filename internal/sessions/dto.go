package sessions

import (
	"time"

	"github.com/classpulse/classpulse-backend/pkg/db/models"
	"github.com/classpulse/classpulse-backend/pkg/enums"
	"github.com/google/uuid"
)

// SessionDTO is the transport shape for a class session.
type SessionDTO struct {
	ID             uuid.UUID           `json:"id"`
	SchoolID       uuid.UUID           `json:"school_id"`
	TeacherID      uuid.UUID           `json:"teacher_id"`
	Subject        string              `json:"subject"`
	GradeLevel     string              `json:"grade_level"`
	Room           *string             `json:"room,omitempty"`
	ScheduledStart time.Time           `json:"scheduled_start"`
	ScheduledEnd   time.Time           `json:"scheduled_end"`
	Status         enums.SessionStatus `json:"status"`
	OpenedAt       *time.Time          `json:"opened_at,omitempty"`
	ClosedAt       *time.Time          `json:"closed_at,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

// CreateSessionRequest schedules a new class session.
type CreateSessionRequest struct {
	Subject        string    `json:"subject" validate:"required"`
	GradeLevel     string    `json:"grade_level" validate:"required"`
	Room           *string   `json:"room,omitempty"`
	ScheduledStart time.Time `json:"scheduled_start" validate:"required"`
	ScheduledEnd   time.Time `json:"scheduled_end" validate:"required"`
}

// ListSessionsRequest filters the teacher-scoped listing.
type ListSessionsRequest struct {
	Day    *time.Time
	Status enums.SessionStatus
	Limit  int
	Cursor string
}

// ListSessionsResponse is a cursor page of sessions.
type ListSessionsResponse struct {
	Sessions   []*SessionDTO `json:"sessions"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// FromModel converts the persistence model to its transport shape.
func FromModel(s *models.ClassSession) *SessionDTO {
	if s == nil {
		return nil
	}
	return &SessionDTO{
		ID:             s.ID,
		SchoolID:       s.SchoolID,
		TeacherID:      s.TeacherID,
		Subject:        s.Subject,
		GradeLevel:     s.GradeLevel,
		Room:           s.Room,
		ScheduledStart: s.ScheduledStart,
		ScheduledEnd:   s.ScheduledEnd,
		Status:         s.Status,
		OpenedAt:       s.OpenedAt,
		ClosedAt:       s.ClosedAt,
		CreatedAt:      s.CreatedAt,
	}
}

func fromModels(rows []models.ClassSession) []*SessionDTO {
	out := make([]*SessionDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out
}
