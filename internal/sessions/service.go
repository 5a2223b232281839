package sessions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/classpulse/classpulse-backend/pkg/db/models"
	"github.com/classpulse/classpulse-backend/pkg/enums"
	pkgerrors "github.com/classpulse/classpulse-backend/pkg/errors"
	"github.com/classpulse/classpulse-backend/pkg/logger"
	"github.com/classpulse/classpulse-backend/pkg/outbox"
	"github.com/classpulse/classpulse-backend/pkg/outbox/payloads"
	"github.com/classpulse/classpulse-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// autoCloseBatchSize bounds how many overdue sessions one cron tick closes.
const autoCloseBatchSize = 100

// Service defines the behavior needed by the sessions controller and the
// auto-close cron job.
type Service interface {
	Create(ctx context.Context, schoolID, teacherID uuid.UUID, req CreateSessionRequest) (*SessionDTO, error)
	Get(ctx context.Context, schoolID, id uuid.UUID) (*SessionDTO, error)
	Open(ctx context.Context, schoolID, teacherID, id uuid.UUID) (*SessionDTO, error)
	Close(ctx context.Context, schoolID, teacherID, id uuid.UUID) (*SessionDTO, error)
	ListByTeacher(ctx context.Context, schoolID, teacherID uuid.UUID, req ListSessionsRequest) (*ListSessionsResponse, error)
	AutoCloseOverdue(ctx context.Context, now time.Time) (int, error)
}

type sessionRepository interface {
	Create(ctx context.Context, session *models.ClassSession) error
	FindByID(ctx context.Context, schoolID, id uuid.UUID) (*models.ClassSession, error)
	FindByIDTx(ctx context.Context, tx *gorm.DB, schoolID, id uuid.UUID) (*models.ClassSession, error)
	TransitionTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to enums.SessionStatus, fields map[string]any) (bool, error)
	ListByTeacher(ctx context.Context, schoolID, teacherID uuid.UUID, day *time.Time, status enums.SessionStatus, cursor *pagination.Cursor, bufferedLimit int) ([]models.ClassSession, error)
	ListOverdueOpen(ctx context.Context, cutoff time.Time, limit int) ([]models.ClassSession, error)
	CountMarkedTx(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo   sessionRepository
	tx     txRunner
	events eventEmitter
	logg   *logger.Logger
	now    func() time.Time
}

// ServiceParams bundles the dependencies required to build a sessions service.
type ServiceParams struct {
	Repo   sessionRepository
	Tx     txRunner
	Events eventEmitter
	Logger *logger.Logger
	Now    func() time.Time
}

// NewService constructs the sessions service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("session repository is required")
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
		repo:   params.Repo,
		tx:     params.Tx,
		events: params.Events,
		logg:   params.Logger,
		now:    params.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, schoolID, teacherID uuid.UUID, req CreateSessionRequest) (*SessionDTO, error) {
	if !req.ScheduledEnd.After(req.ScheduledStart) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scheduled_end must be after scheduled_start")
	}

	session := &models.ClassSession{
		SchoolID:       schoolID,
		TeacherID:      teacherID,
		Subject:        strings.TrimSpace(req.Subject),
		GradeLevel:     strings.TrimSpace(req.GradeLevel),
		Room:           req.Room,
		ScheduledStart: req.ScheduledStart.UTC(),
		ScheduledEnd:   req.ScheduledEnd.UTC(),
		Status:         enums.SessionScheduled,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create session")
	}
	return FromModel(session), nil
}

func (s *service) Get(ctx context.Context, schoolID, id uuid.UUID) (*SessionDTO, error) {
	session, err := s.loadSession(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	return FromModel(session), nil
}

func (s *service) Open(ctx context.Context, schoolID, teacherID, id uuid.UUID) (*SessionDTO, error) {
	session, err := s.loadOwnedSession(ctx, schoolID, teacherID, id)
	if err != nil {
		return nil, err
	}
	if !session.Status.CanTransitionTo(enums.SessionOpen) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("Session cannot be opened from status %q", session.Status))
	}

	now := s.now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		moved, txErr := s.repo.TransitionTx(ctx, tx, session.ID, session.Status, enums.SessionOpen, map[string]any{"opened_at": now})
		if txErr != nil {
			return txErr
		}
		if !moved {
			return errStaleTransition
		}
		return nil
	})
	if err != nil {
		return nil, transitionError(err, "open session")
	}

	session.Status = enums.SessionOpen
	session.OpenedAt = &now
	return FromModel(session), nil
}

func (s *service) Close(ctx context.Context, schoolID, teacherID, id uuid.UUID) (*SessionDTO, error) {
	session, err := s.loadOwnedSession(ctx, schoolID, teacherID, id)
	if err != nil {
		return nil, err
	}
	if err := s.closeSession(ctx, session, false); err != nil {
		return nil, err
	}
	return FromModel(session), nil
}

// AutoCloseOverdue closes open sessions whose scheduled end has passed and
// returns how many were closed. Transition races with a teacher closing the
// same session are skipped, not failed.
func (s *service) AutoCloseOverdue(ctx context.Context, now time.Time) (int, error) {
	rows, err := s.repo.ListOverdueOpen(ctx, now.UTC(), autoCloseBatchSize)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list overdue sessions")
	}

	closed := 0
	for i := range rows {
		session := rows[i]
		if err := s.closeSession(ctx, &session, true); err != nil {
			typed := pkgerrors.As(err)
			if typed != nil && typed.Code() == pkgerrors.CodeConflict {
				continue
			}
			return closed, err
		}
		closed++
	}
	return closed, nil
}

func (s *service) ListByTeacher(ctx context.Context, schoolID, teacherID uuid.UUID, req ListSessionsRequest) (*ListSessionsResponse, error) {
	if req.Status != "" && !req.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid session status %q", req.Status))
	}
	cursor, err := pagination.ParseCursor(req.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}

	rows, err := s.repo.ListByTeacher(ctx, schoolID, teacherID, req.Day, req.Status, cursor, pagination.LimitWithBuffer(req.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list sessions")
	}

	trimmed, hasMore := pagination.Trim(rows, req.Limit)
	resp := &ListSessionsResponse{Sessions: fromModels(trimmed)}
	if hasMore {
		last := trimmed[len(trimmed)-1]
		resp.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return resp, nil
}

var errStaleTransition = errors.New("session status changed concurrently")

// closeSession moves the session to closed and emits session.closed in the
// same transaction. The session model is updated in place on success.
func (s *service) closeSession(ctx context.Context, session *models.ClassSession, autoClosed bool) error {
	if !session.Status.CanTransitionTo(enums.SessionClosed) {
		return pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("Session cannot be closed from status %q", session.Status))
	}

	now := s.now().UTC()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		moved, txErr := s.repo.TransitionTx(ctx, tx, session.ID, session.Status, enums.SessionClosed, map[string]any{"closed_at": now})
		if txErr != nil {
			return txErr
		}
		if !moved {
			return errStaleTransition
		}

		markedCount, txErr := s.repo.CountMarkedTx(ctx, tx, session.ID)
		if txErr != nil {
			return txErr
		}

		return s.events.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventSessionClosed,
			AggregateType: enums.OutboxAggregateSession,
			AggregateID:   session.ID,
			OccurredAt:    now,
			Data: payloads.SessionClosedEvent{
				SessionID:   session.ID,
				SchoolID:    session.SchoolID,
				TeacherID:   session.TeacherID,
				Subject:     session.Subject,
				ClosedAt:    now,
				MarkedCount: int(markedCount),
				AutoClosed:  autoClosed,
			},
		})
	})
	if err != nil {
		return transitionError(err, "close session")
	}

	if s.logg != nil && autoClosed {
		logCtx := s.logg.WithFields(ctx, map[string]any{"session_id": session.ID.String()})
		s.logg.Info(logCtx, "session auto-closed")
	}

	session.Status = enums.SessionClosed
	session.ClosedAt = &now
	return nil
}

func (s *service) loadSession(ctx context.Context, schoolID, id uuid.UUID) (*models.ClassSession, error) {
	session, err := s.repo.FindByID(ctx, schoolID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Session not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load session")
	}
	return session, nil
}

func (s *service) loadOwnedSession(ctx context.Context, schoolID, teacherID, id uuid.UUID) (*models.ClassSession, error) {
	session, err := s.loadSession(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	if session.TeacherID != teacherID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "Session belongs to another teacher")
	}
	return session, nil
}

func transitionError(err error, op string) error {
	if errors.Is(err, errStaleTransition) {
		return pkgerrors.New(pkgerrors.CodeConflict, "Session status changed, retry the request")
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}
