package attendance

import (
	"time"

	"github.com/classpulse/classpulse-backend/pkg/db/models"
	"github.com/classpulse/classpulse-backend/pkg/enums"
	"github.com/google/uuid"
)

// Mark is one student's outcome inside a bulk marking request.
type Mark struct {
	StudentID uuid.UUID              `json:"student_id" validate:"required"`
	Status    enums.AttendanceStatus `json:"status" validate:"required"`
	Note      *string                `json:"note,omitempty"`
}

// MarkRequest is the bulk attendance payload for one session.
type MarkRequest struct {
	Marks []Mark `json:"marks" validate:"required,min=1,dive"`
}

// RecordDTO is the transport shape of a stored attendance record.
type RecordDTO struct {
	ID        uuid.UUID              `json:"id"`
	SessionID uuid.UUID              `json:"session_id"`
	StudentID uuid.UUID              `json:"student_id"`
	Status    enums.AttendanceStatus `json:"status"`
	Note      *string                `json:"note,omitempty"`
	MarkedBy  uuid.UUID              `json:"marked_by"`
	MarkedAt  time.Time              `json:"marked_at"`
}

// MarkResponse reports the outcome of a bulk marking call.
type MarkResponse struct {
	SessionID uuid.UUID    `json:"session_id"`
	Marked    int          `json:"marked"`
	Records   []*RecordDTO `json:"records"`
}

// SummaryRequest bounds a per-student attendance summary.
type SummaryRequest struct {
	StudentID uuid.UUID
	From      time.Time
	To        time.Time
}

// Summary aggregates one student's attendance over a date range.
type Summary struct {
	StudentID      uuid.UUID                        `json:"student_id"`
	From           time.Time                        `json:"from"`
	To             time.Time                        `json:"to"`
	Total          int64                            `json:"total"`
	Counts         map[enums.AttendanceStatus]int64 `json:"counts"`
	AttendanceRate float64                          `json:"attendance_rate"`
}

// FromModel converts the persistence model to its transport shape.
func FromModel(r *models.AttendanceRecord) *RecordDTO {
	if r == nil {
		return nil
	}
	return &RecordDTO{
		ID:        r.ID,
		SessionID: r.SessionID,
		StudentID: r.StudentID,
		Status:    r.Status,
		Note:      r.Note,
		MarkedBy:  r.MarkedBy,
		MarkedAt:  r.MarkedAt,
	}
}

func fromModels(rows []models.AttendanceRecord) []*RecordDTO {
	out := make([]*RecordDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out
}
