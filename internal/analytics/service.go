package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/classpulse/classpulse-backend/pkg/config"
	pkgerrors "github.com/classpulse/classpulse-backend/pkg/errors"
	"github.com/classpulse/classpulse-backend/pkg/logger"
	"github.com/classpulse/classpulse-backend/pkg/outbox"
	"github.com/classpulse/classpulse-backend/pkg/outbox/payloads"
)

// AttendanceFact is one warehouse row derived from an attendance.marked event.
type AttendanceFact struct {
	EventID    string    `bigquery:"event_id"`
	SessionID  string    `bigquery:"session_id"`
	SchoolID   string    `bigquery:"school_id"`
	StudentID  string    `bigquery:"student_id"`
	Status     string    `bigquery:"status"`
	GradeLevel string    `bigquery:"grade_level"`
	Subject    string    `bigquery:"subject"`
	MarkedBy   string    `bigquery:"marked_by"`
	MarkedAt   time.Time `bigquery:"marked_at"`
	OccurredAt time.Time `bigquery:"occurred_at"`
}

type rowInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// Service turns attendance.marked events into warehouse rows. The event ID
// doubles as the BigQuery insert ID so redelivered messages dedupe on append.
type Service struct {
	inserter rowInserter
	table    string
	logg     *logger.Logger
}

// NewService constructs the analytics service.
func NewService(inserter rowInserter, cfg config.BigQueryConfig, logg *logger.Logger) (*Service, error) {
	if inserter == nil {
		return nil, fmt.Errorf("row inserter is required")
	}
	if cfg.AttendanceFactsTable == "" {
		return nil, fmt.Errorf("attendance facts table is required")
	}
	return &Service{inserter: inserter, table: cfg.AttendanceFactsTable, logg: logg}, nil
}

// HandleMarkedEvent appends one attendance fact. Malformed payloads are
// dropped since redelivery cannot fix them.
func (s *Service) HandleMarkedEvent(ctx context.Context, envelope outbox.PayloadEnvelope) error {
	var event payloads.AttendanceMarkedEvent
	if err := json.Unmarshal(envelope.Data, &event); err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "dropping malformed attendance event", err)
		}
		return nil
	}

	fact := AttendanceFact{
		EventID:    envelope.EventID,
		SessionID:  event.SessionID.String(),
		SchoolID:   event.SchoolID.String(),
		StudentID:  event.StudentID.String(),
		Status:     event.Status.String(),
		GradeLevel: event.GradeLevel,
		Subject:    event.Subject,
		MarkedBy:   event.MarkedBy.String(),
		MarkedAt:   event.MarkedAt,
		OccurredAt: envelope.OccurredAt,
	}
	saver := &bigquery.StructSaver{Struct: fact, InsertID: envelope.EventID}
	if err := s.inserter.InsertRows(ctx, s.table, []any{saver}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert attendance fact")
	}
	return nil
}
