package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/classpulse/classpulse-backend/pkg/db/models"
	"github.com/classpulse/classpulse-backend/pkg/enums"
	pkgerrors "github.com/classpulse/classpulse-backend/pkg/errors"
	"github.com/classpulse/classpulse-backend/pkg/logger"
	"github.com/classpulse/classpulse-backend/pkg/outbox"
	"github.com/classpulse/classpulse-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// maxMarksPerRequest bounds one bulk call to a classroom-sized batch.
const maxMarksPerRequest = 200

// Service defines the behavior needed by the attendance controller.
type Service interface {
	Mark(ctx context.Context, schoolID, teacherID, sessionID uuid.UUID, req MarkRequest) (*MarkResponse, error)
	ListBySession(ctx context.Context, schoolID, sessionID uuid.UUID) ([]*RecordDTO, error)
	Summarize(ctx context.Context, schoolID uuid.UUID, req SummaryRequest) (*Summary, error)
}

type attendanceRepository interface {
	UpsertTx(ctx context.Context, tx *gorm.DB, record *models.AttendanceRecord) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.AttendanceRecord, error)
	CountByStatus(ctx context.Context, studentID uuid.UUID, from, to time.Time) (map[enums.AttendanceStatus]int64, error)
}

type sessionRepository interface {
	FindByID(ctx context.Context, schoolID, id uuid.UUID) (*models.ClassSession, error)
}

type studentRepository interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Student, error)
	FindByID(ctx context.Context, schoolID, id uuid.UUID) (*models.Student, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo     attendanceRepository
	sessions sessionRepository
	students studentRepository
	tx       txRunner
	events   eventEmitter
	logg     *logger.Logger
	now      func() time.Time
}

// ServiceParams bundles the dependencies required to build an attendance service.
type ServiceParams struct {
	Repo     attendanceRepository
	Sessions sessionRepository
	Students studentRepository
	Tx       txRunner
	Events   eventEmitter
	Logger   *logger.Logger
	Now      func() time.Time
}

// NewService constructs the attendance service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("attendance repository is required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session repository is required")
	}
	if params.Students == nil {
		return nil, fmt.Errorf("student repository is required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("event emitter is required")
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{
		repo:     params.Repo,
		sessions: params.Sessions,
		students: params.Students,
		tx:       params.Tx,
		events:   params.Events,
		logg:     params.Logger,
		now:      params.Now,
	}, nil
}

// Mark bulk-writes attendance for an open session. All rows plus their outbox
// events commit in one transaction; a duplicate student in the payload keeps
// the last mark.
func (s *service) Mark(ctx context.Context, schoolID, teacherID, sessionID uuid.UUID, req MarkRequest) (*MarkResponse, error) {
	if len(req.Marks) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one mark is required")
	}
	if len(req.Marks) > maxMarksPerRequest {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("at most %d marks per request", maxMarksPerRequest))
	}

	session, err := s.sessions.FindByID(ctx, schoolID, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Session not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load session")
	}
	if session.TeacherID != teacherID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "Session belongs to another teacher")
	}
	if session.Status != enums.SessionOpen {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "Attendance can only be marked while the session is open")
	}

	marks, err := dedupeMarks(req.Marks)
	if err != nil {
		return nil, err
	}
	if err := s.checkRoster(ctx, schoolID, marks); err != nil {
		return nil, err
	}

	markedAt := s.now().UTC()
	records := make([]*models.AttendanceRecord, 0, len(marks))
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		for _, mark := range marks {
			record := &models.AttendanceRecord{
				SessionID: session.ID,
				StudentID: mark.StudentID,
				Status:    mark.Status,
				Note:      mark.Note,
				MarkedBy:  teacherID,
				MarkedAt:  markedAt,
			}
			if upsertErr := s.repo.UpsertTx(ctx, tx, record); upsertErr != nil {
				return upsertErr
			}
			records = append(records, record)

			if emitErr := s.emitMarkEvents(ctx, tx, session, record); emitErr != nil {
				return emitErr
			}
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark attendance")
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"session_id": session.ID.String(),
			"marked":     len(records),
		})
		s.logg.Info(logCtx, "attendance marked")
	}

	dtos := make([]*RecordDTO, 0, len(records))
	for _, record := range records {
		dtos = append(dtos, FromModel(record))
	}
	return &MarkResponse{SessionID: session.ID, Marked: len(dtos), Records: dtos}, nil
}

func (s *service) ListBySession(ctx context.Context, schoolID, sessionID uuid.UUID) ([]*RecordDTO, error) {
	if _, err := s.sessions.FindByID(ctx, schoolID, sessionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Session not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load session")
	}

	rows, err := s.repo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list attendance")
	}
	return fromModels(rows), nil
}

// Summarize computes a student's attendance counts and rate over [From, To).
// The rate counts present and late marks as attended.
func (s *service) Summarize(ctx context.Context, schoolID uuid.UUID, req SummaryRequest) (*Summary, error) {
	if !req.To.After(req.From) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "to must be after from")
	}
	if _, err := s.students.FindByID(ctx, schoolID, req.StudentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Student not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load student")
	}

	counts, err := s.repo.CountByStatus(ctx, req.StudentID, req.From.UTC(), req.To.UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "summarize attendance")
	}

	var total, attended int64
	for status, count := range counts {
		total += count
		if status.CountsAsAttended() {
			attended += count
		}
	}

	summary := &Summary{
		StudentID: req.StudentID,
		From:      req.From.UTC(),
		To:        req.To.UTC(),
		Total:     total,
		Counts:    counts,
	}
	if total > 0 {
		summary.AttendanceRate = float64(attended) / float64(total)
	}
	return summary, nil
}

// dedupeMarks validates statuses and keeps the last mark per student.
func dedupeMarks(marks []Mark) ([]Mark, error) {
	byStudent := make(map[uuid.UUID]int, len(marks))
	out := make([]Mark, 0, len(marks))
	for _, mark := range marks {
		if !mark.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("invalid attendance status %q", mark.Status))
		}
		if mark.StudentID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "student_id is required")
		}
		if idx, seen := byStudent[mark.StudentID]; seen {
			out[idx] = mark
			continue
		}
		byStudent[mark.StudentID] = len(out)
		out = append(out, mark)
	}
	return out, nil
}

// checkRoster verifies every marked student exists in the session's school.
func (s *service) checkRoster(ctx context.Context, schoolID uuid.UUID, marks []Mark) error {
	ids := make([]uuid.UUID, 0, len(marks))
	for _, mark := range marks {
		ids = append(ids, mark.StudentID)
	}
	rows, err := s.students.FindByIDs(ctx, ids)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load students")
	}

	known := make(map[uuid.UUID]bool, len(rows))
	for _, row := range rows {
		if row.SchoolID == schoolID {
			known[row.ID] = true
		}
	}
	for _, id := range ids {
		if !known[id] {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("student %s does not belong to this school", id))
		}
	}
	return nil
}

func (s *service) emitMarkEvents(ctx context.Context, tx *gorm.DB, session *models.ClassSession, record *models.AttendanceRecord) error {
	err := s.events.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.OutboxEventAttendanceMarked,
		AggregateType: enums.OutboxAggregateSession,
		AggregateID:   session.ID,
		OccurredAt:    record.MarkedAt,
		Data: payloads.AttendanceMarkedEvent{
			SessionID:  session.ID,
			SchoolID:   session.SchoolID,
			StudentID:  record.StudentID,
			Status:     record.Status,
			GradeLevel: session.GradeLevel,
			Subject:    session.Subject,
			MarkedBy:   record.MarkedBy,
			MarkedAt:   record.MarkedAt,
		},
	})
	if err != nil {
		return err
	}

	if record.Status != enums.AttendanceAbsent && record.Status != enums.AttendanceLate {
		return nil
	}
	return s.events.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.OutboxEventAttendanceAbsent,
		AggregateType: enums.OutboxAggregateStudent,
		AggregateID:   record.StudentID,
		OccurredAt:    record.MarkedAt,
		Data: payloads.StudentAbsentEvent{
			SessionID: session.ID,
			SchoolID:  session.SchoolID,
			StudentID: record.StudentID,
			Status:    record.Status,
			Subject:   session.Subject,
			MarkedAt:  record.MarkedAt,
		},
	})
}
