package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/classpulse/classpulse-backend/pkg/db/models"
	"github.com/classpulse/classpulse-backend/pkg/enums"
	pkgerrors "github.com/classpulse/classpulse-backend/pkg/errors"
	"github.com/classpulse/classpulse-backend/pkg/outbox"
	"github.com/classpulse/classpulse-backend/pkg/outbox/payloads"
	"github.com/classpulse/classpulse-backend/pkg/pagination"
	"github.com/google/uuid"
)

type stubNotificationRepo struct {
	rows      []models.Notification
	insertErr error
}

func (r *stubNotificationRepo) InsertIgnoreDuplicate(_ context.Context, notification *models.Notification) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	for _, existing := range r.rows {
		if existing.EventID != nil && notification.EventID != nil &&
			*existing.EventID == *notification.EventID && existing.GuardianID == notification.GuardianID {
			return nil
		}
	}
	notification.ID = uuid.New()
	notification.CreatedAt = time.Now()
	r.rows = append(r.rows, *notification)
	return nil
}

func (r *stubNotificationRepo) ListByGuardian(_ context.Context, guardianID uuid.UUID, unreadOnly bool, _ *pagination.Cursor, bufferedLimit int) ([]models.Notification, error) {
	var out []models.Notification
	for _, row := range r.rows {
		if row.GuardianID != guardianID {
			continue
		}
		if unreadOnly && row.ReadAt != nil {
			continue
		}
		out = append(out, row)
		if len(out) == bufferedLimit {
			break
		}
	}
	return out, nil
}

func (r *stubNotificationRepo) CountUnread(_ context.Context, guardianID uuid.UUID) (int64, error) {
	var count int64
	for _, row := range r.rows {
		if row.GuardianID == guardianID && row.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

func (r *stubNotificationRepo) MarkRead(_ context.Context, guardianID, id uuid.UUID, at time.Time) (bool, error) {
	for i := range r.rows {
		if r.rows[i].ID == id && r.rows[i].GuardianID == guardianID && r.rows[i].ReadAt == nil {
			r.rows[i].ReadAt = &at
			return true, nil
		}
	}
	return false, nil
}

func (r *stubNotificationRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	var kept []models.Notification
	var removed int64
	for _, row := range r.rows {
		if row.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	r.rows = kept
	return removed, nil
}

type stubGuardianLookup struct {
	byStudent map[uuid.UUID][]uuid.UUID
}

func (l *stubGuardianLookup) GuardiansOfStudent(_ context.Context, studentID uuid.UUID) ([]uuid.UUID, error) {
	return l.byStudent[studentID], nil
}

type stubStudentLookup struct {
	students map[uuid.UUID]models.Student
}

func (l *stubStudentLookup) FindByIDs(_ context.Context, ids []uuid.UUID) ([]models.Student, error) {
	var out []models.Student
	for _, id := range ids {
		if student, ok := l.students[id]; ok {
			out = append(out, student)
		}
	}
	return out, nil
}

type stubGuard struct {
	processed map[string]bool
	deleted   []string
}

func newStubGuard() *stubGuard {
	return &stubGuard{processed: map[string]bool{}}
}

func (g *stubGuard) CheckAndMarkProcessed(_ context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key := consumer + ":" + eventID.String()
	if g.processed[key] {
		return true, nil
	}
	g.processed[key] = true
	return false, nil
}

func (g *stubGuard) Delete(_ context.Context, consumer string, eventID uuid.UUID) error {
	key := consumer + ":" + eventID.String()
	delete(g.processed, key)
	g.deleted = append(g.deleted, key)
	return nil
}

type fixture struct {
	svc       Service
	repo      *stubNotificationRepo
	guard     *stubGuard
	studentID uuid.UUID
	guardians []uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	studentID := uuid.New()
	guardians := []uuid.UUID{uuid.New(), uuid.New()}

	repo := &stubNotificationRepo{}
	guard := newStubGuard()
	svc, err := NewService(ServiceParams{
		Repo:      repo,
		Guardians: &stubGuardianLookup{byStudent: map[uuid.UUID][]uuid.UUID{studentID: guardians}},
		Students: &stubStudentLookup{students: map[uuid.UUID]models.Student{
			studentID: {ID: studentID, FirstName: "Amina", LastName: "Okello"},
		}},
		Guard: guard,
		Now:   time.Now,
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return &fixture{svc: svc, repo: repo, guard: guard, studentID: studentID, guardians: guardians}
}

func absenceEnvelope(t *testing.T, studentID uuid.UUID, status enums.AttendanceStatus) outbox.PayloadEnvelope {
	t.Helper()
	data, err := json.Marshal(payloads.StudentAbsentEvent{
		SessionID: uuid.New(),
		SchoolID:  uuid.New(),
		StudentID: studentID,
		Status:    status,
		Subject:   "Mathematics",
		MarkedAt:  time.Date(2026, 3, 9, 8, 30, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now(),
		Data:       data,
	}
}

func TestHandleAbsenceEventNotifiesEveryGuardian(t *testing.T) {
	f := newFixture(t)

	envelope := absenceEnvelope(t, f.studentID, enums.AttendanceAbsent)
	if err := f.svc.HandleAbsenceEvent(context.Background(), envelope); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(f.repo.rows) != 2 {
		t.Fatalf("expected one notification per guardian, got %d", len(f.repo.rows))
	}
	row := f.repo.rows[0]
	if row.Kind != enums.NotificationAbsence {
		t.Fatalf("expected absence kind, got %s", row.Kind)
	}
	if row.EventID == nil || *row.EventID != envelope.EventID {
		t.Fatal("notification must carry the event id")
	}
}

func TestHandleAbsenceEventReplayIsDropped(t *testing.T) {
	f := newFixture(t)

	envelope := absenceEnvelope(t, f.studentID, enums.AttendanceAbsent)
	if err := f.svc.HandleAbsenceEvent(context.Background(), envelope); err != nil {
		t.Fatalf("first handle: %v", err)
	}
	if err := f.svc.HandleAbsenceEvent(context.Background(), envelope); err != nil {
		t.Fatalf("replay handle: %v", err)
	}
	if len(f.repo.rows) != 2 {
		t.Fatalf("replay must not add rows, got %d", len(f.repo.rows))
	}
}

func TestHandleAbsenceEventLateArrivalKind(t *testing.T) {
	f := newFixture(t)

	envelope := absenceEnvelope(t, f.studentID, enums.AttendanceLate)
	if err := f.svc.HandleAbsenceEvent(context.Background(), envelope); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if f.repo.rows[0].Kind != enums.NotificationLateArrival {
		t.Fatalf("expected late_arrival kind, got %s", f.repo.rows[0].Kind)
	}
}

func TestHandleAbsenceEventFailureReleasesMarker(t *testing.T) {
	f := newFixture(t)
	f.repo.insertErr = pkgerrors.New(pkgerrors.CodeInternal, "db down")

	envelope := absenceEnvelope(t, f.studentID, enums.AttendanceAbsent)
	if err := f.svc.HandleAbsenceEvent(context.Background(), envelope); err == nil {
		t.Fatal("expected failure")
	}
	if len(f.guard.deleted) != 1 {
		t.Fatal("expected the idempotency marker to be released")
	}

	// A retry after the failure must go through.
	f.repo.insertErr = nil
	if err := f.svc.HandleAbsenceEvent(context.Background(), envelope); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(f.repo.rows) != 2 {
		t.Fatalf("expected notifications on retry, got %d", len(f.repo.rows))
	}
}

func TestHandleAbsenceEventMalformedPayloadIsDropped(t *testing.T) {
	f := newFixture(t)

	envelope := outbox.PayloadEnvelope{
		Version: 1,
		EventID: uuid.NewString(),
		Data:    json.RawMessage(`{"student_id": 42}`),
	}
	if err := f.svc.HandleAbsenceEvent(context.Background(), envelope); err != nil {
		t.Fatalf("malformed payloads must be dropped, got %v", err)
	}
	if len(f.repo.rows) != 0 {
		t.Fatal("malformed payloads must not create notifications")
	}
}

func TestMarkReadIsGuardianScoped(t *testing.T) {
	f := newFixture(t)

	envelope := absenceEnvelope(t, f.studentID, enums.AttendanceAbsent)
	if err := f.svc.HandleAbsenceEvent(context.Background(), envelope); err != nil {
		t.Fatalf("handle: %v", err)
	}
	target := f.repo.rows[0]

	err := f.svc.MarkRead(context.Background(), uuid.New(), target.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for foreign guardian, got %v", err)
	}

	if err := f.svc.MarkRead(context.Background(), target.GuardianID, target.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	count, err := f.svc.UnreadCount(context.Background(), target.GuardianID)
	if err != nil {
		t.Fatalf("unread count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 unread, got %d", count)
	}
}

func TestListUnreadOnlyFiltersRead(t *testing.T) {
	f := newFixture(t)

	envelope := absenceEnvelope(t, f.studentID, enums.AttendanceAbsent)
	if err := f.svc.HandleAbsenceEvent(context.Background(), envelope); err != nil {
		t.Fatalf("handle: %v", err)
	}
	target := f.repo.rows[0]
	if err := f.svc.MarkRead(context.Background(), target.GuardianID, target.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	resp, err := f.svc.List(context.Background(), target.GuardianID, ListRequest{UnreadOnly: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(resp.Notifications) != 0 {
		t.Fatalf("expected no unread notifications, got %d", len(resp.Notifications))
	}
}

func TestDeleteOlderThanPrunes(t *testing.T) {
	f := newFixture(t)
	old := models.Notification{
		ID:         uuid.New(),
		GuardianID: f.guardians[0],
		StudentID:  f.studentID,
		Kind:       enums.NotificationAbsence,
		CreatedAt:  time.Now().AddDate(0, -2, 0),
	}
	f.repo.rows = append(f.repo.rows, old)

	removed, err := f.svc.DeleteOlderThan(context.Background(), time.Now().AddDate(0, -1, 0))
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
}
