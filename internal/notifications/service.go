package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/classpulse/classpulse-backend/pkg/db/models"
	"github.com/classpulse/classpulse-backend/pkg/enums"
	pkgerrors "github.com/classpulse/classpulse-backend/pkg/errors"
	"github.com/classpulse/classpulse-backend/pkg/logger"
	"github.com/classpulse/classpulse-backend/pkg/outbox"
	"github.com/classpulse/classpulse-backend/pkg/outbox/payloads"
	"github.com/classpulse/classpulse-backend/pkg/pagination"
	"github.com/google/uuid"
)

// ConsumerName keys the Redis idempotency guard for absence events.
const ConsumerName = "notifications"

// Service defines guardian notification behavior: event consumption plus the
// read-side endpoints.
type Service interface {
	HandleAbsenceEvent(ctx context.Context, envelope outbox.PayloadEnvelope) error
	List(ctx context.Context, guardianID uuid.UUID, req ListRequest) (*ListResponse, error)
	UnreadCount(ctx context.Context, guardianID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, guardianID, id uuid.UUID) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type notificationRepository interface {
	InsertIgnoreDuplicate(ctx context.Context, notification *models.Notification) error
	ListByGuardian(ctx context.Context, guardianID uuid.UUID, unreadOnly bool, cursor *pagination.Cursor, bufferedLimit int) ([]models.Notification, error)
	CountUnread(ctx context.Context, guardianID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, guardianID, id uuid.UUID, at time.Time) (bool, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type guardianLookup interface {
	GuardiansOfStudent(ctx context.Context, studentID uuid.UUID) ([]uuid.UUID, error)
}

type studentLookup interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Student, error)
}

type idempotencyGuard interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

type service struct {
	repo      notificationRepository
	guardians guardianLookup
	students  studentLookup
	guard     idempotencyGuard
	logg      *logger.Logger
	now       func() time.Time
}

// ServiceParams bundles the dependencies required to build a notifications service.
type ServiceParams struct {
	Repo      notificationRepository
	Guardians guardianLookup
	Students  studentLookup
	Guard     idempotencyGuard
	Logger    *logger.Logger
	Now       func() time.Time
}

// NewService constructs the notifications service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("notification repository is required")
	}
	if params.Guardians == nil {
		return nil, fmt.Errorf("guardian lookup is required")
	}
	if params.Students == nil {
		return nil, fmt.Errorf("student lookup is required")
	}
	if params.Guard == nil {
		return nil, fmt.Errorf("idempotency guard is required")
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{
		repo:      params.Repo,
		guardians: params.Guardians,
		students:  params.Students,
		guard:     params.Guard,
		logg:      params.Logger,
		now:       params.Now,
	}, nil
}

// HandleAbsenceEvent fans an attendance.absent event out to the student's
// guardians. Replays are dropped by the Redis guard first and the
// (event_id, guardian_id) unique index second.
func (s *service) HandleAbsenceEvent(ctx context.Context, envelope outbox.PayloadEnvelope) error {
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "event id is not a UUID")
	}

	processed, err := s.guard.CheckAndMarkProcessed(ctx, ConsumerName, eventID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency check")
	}
	if processed {
		return nil
	}

	var event payloads.StudentAbsentEvent
	if err := json.Unmarshal(envelope.Data, &event); err != nil {
		// Malformed payloads never succeed on retry; drop and keep the marker.
		if s.logg != nil {
			s.logg.Error(ctx, "dropping malformed absence event", err)
		}
		return nil
	}

	if err := s.createAbsenceNotifications(ctx, envelope.EventID, event); err != nil {
		// Release the marker so the subscription redelivery can retry.
		if delErr := s.guard.Delete(ctx, ConsumerName, eventID); delErr != nil && s.logg != nil {
			s.logg.Error(ctx, "releasing idempotency marker failed", delErr)
		}
		return err
	}
	return nil
}

func (s *service) createAbsenceNotifications(ctx context.Context, eventID string, event payloads.StudentAbsentEvent) error {
	guardianIDs, err := s.guardians.GuardiansOfStudent(ctx, event.StudentID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list guardians")
	}
	if len(guardianIDs) == 0 {
		return nil
	}

	studentName := "Your child"
	if rows, lookupErr := s.students.FindByIDs(ctx, []uuid.UUID{event.StudentID}); lookupErr == nil && len(rows) == 1 {
		studentName = rows[0].FirstName + " " + rows[0].LastName
	}

	kind := enums.NotificationAbsence
	title := "Absence recorded"
	message := fmt.Sprintf("%s was marked absent in %s on %s.",
		studentName, event.Subject, event.MarkedAt.Format("Jan 2"))
	if event.Status == enums.AttendanceLate {
		kind = enums.NotificationLateArrival
		title = "Late arrival recorded"
		message = fmt.Sprintf("%s arrived late to %s on %s.",
			studentName, event.Subject, event.MarkedAt.Format("Jan 2"))
	}

	for _, guardianID := range guardianIDs {
		id := eventID
		notification := &models.Notification{
			GuardianID: guardianID,
			StudentID:  event.StudentID,
			Kind:       kind,
			Title:      title,
			Message:    message,
			EventID:    &id,
		}
		if err := s.repo.InsertIgnoreDuplicate(ctx, notification); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store notification")
		}
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"event_id":   eventID,
			"student_id": event.StudentID.String(),
			"guardians":  len(guardianIDs),
		})
		s.logg.Info(logCtx, "absence notifications created")
	}
	return nil
}

func (s *service) List(ctx context.Context, guardianID uuid.UUID, req ListRequest) (*ListResponse, error) {
	cursor, err := pagination.ParseCursor(req.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}

	rows, err := s.repo.ListByGuardian(ctx, guardianID, req.UnreadOnly, cursor, pagination.LimitWithBuffer(req.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list notifications")
	}

	trimmed, hasMore := pagination.Trim(rows, req.Limit)
	resp := &ListResponse{Notifications: fromModels(trimmed)}
	if hasMore {
		last := trimmed[len(trimmed)-1]
		resp.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return resp, nil
}

func (s *service) UnreadCount(ctx context.Context, guardianID uuid.UUID) (int64, error) {
	count, err := s.repo.CountUnread(ctx, guardianID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count unread")
	}
	return count, nil
}

func (s *service) MarkRead(ctx context.Context, guardianID, id uuid.UUID) error {
	changed, err := s.repo.MarkRead(ctx, guardianID, id, s.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark read")
	}
	if !changed {
		return pkgerrors.New(pkgerrors.CodeNotFound, "Notification not found")
	}
	return nil
}

func (s *service) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	removed, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cleanup notifications")
	}
	return removed, nil
}
