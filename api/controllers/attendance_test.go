package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/classpulse/classpulse-backend/api/middleware"
	"github.com/classpulse/classpulse-backend/internal/attendance"
	"github.com/classpulse/classpulse-backend/internal/guardians"
	"github.com/classpulse/classpulse-backend/pkg/enums"
	pkgerrors "github.com/classpulse/classpulse-backend/pkg/errors"
	"github.com/classpulse/classpulse-backend/pkg/types"
)

type stubAttendanceService struct {
	markResp *attendance.MarkResponse
	summary  *attendance.Summary
	err      error

	gotSessionID uuid.UUID
	gotSummary   attendance.SummaryRequest
}

func (s *stubAttendanceService) Mark(_ context.Context, _, _, sessionID uuid.UUID, _ attendance.MarkRequest) (*attendance.MarkResponse, error) {
	s.gotSessionID = sessionID
	return s.markResp, s.err
}

func (s *stubAttendanceService) ListBySession(_ context.Context, _, _ uuid.UUID) ([]*attendance.RecordDTO, error) {
	return nil, s.err
}

func (s *stubAttendanceService) Summarize(_ context.Context, _ uuid.UUID, req attendance.SummaryRequest) (*attendance.Summary, error) {
	s.gotSummary = req
	return s.summary, s.err
}

type stubGuardianService struct {
	linked []uuid.UUID
	err    error
}

func (s stubGuardianService) Link(_ context.Context, _ uuid.UUID, _ guardians.LinkRequest) (*guardians.LinkDTO, error) {
	return nil, s.err
}

func (s stubGuardianService) Unlink(_ context.Context, _, _, _ uuid.UUID) error {
	return s.err
}

func (s stubGuardianService) LinkedStudentIDs(_ context.Context, _ uuid.UUID) ([]uuid.UUID, error) {
	return s.linked, s.err
}

func (s stubGuardianService) GuardiansOfStudent(_ context.Context, _ uuid.UUID) ([]uuid.UUID, error) {
	return nil, s.err
}

func actorRequest(r *http.Request, role enums.UserRole, params map[string]string) *http.Request {
	ctx := middleware.WithActor(r.Context(), uuid.New(), uuid.New(), role)

	routeCtx := chi.NewRouteContext()
	for k, v := range params {
		routeCtx.URLParams.Add(k, v)
	}
	ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
	return r.WithContext(ctx)
}

func TestAttendanceMarkReturnsRecords(t *testing.T) {
	sessionID := uuid.New()
	studentID := uuid.New()
	svc := &stubAttendanceService{markResp: &attendance.MarkResponse{SessionID: sessionID, Marked: 1}}
	handler := AttendanceMark(svc, nil)

	body := []byte(fmt.Sprintf(`{"marks":[{"student_id":"%s","status":"present"}]}`, studentID))
	req := httptest.NewRequest(http.MethodPost, "/sessions/"+sessionID.String()+"/attendance", bytes.NewReader(body))
	req = actorRequest(req, enums.UserRoleTeacher, map[string]string{"sessionId": sessionID.String()})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.gotSessionID != sessionID {
		t.Fatalf("service saw session %s, want %s", svc.gotSessionID, sessionID)
	}
	var envelope struct {
		Data attendance.MarkResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Marked != 1 {
		t.Fatalf("expected 1 marked, got %d", envelope.Data.Marked)
	}
}

func TestAttendanceMarkRejectsBadSessionID(t *testing.T) {
	handler := AttendanceMark(&stubAttendanceService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/sessions/not-a-uuid/attendance", bytes.NewReader([]byte(`{}`)))
	req = actorRequest(req, enums.UserRoleTeacher, map[string]string{"sessionId": "not-a-uuid"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestAttendanceSummaryParentMustBeLinked(t *testing.T) {
	studentID := uuid.New()
	svc := &stubAttendanceService{summary: &attendance.Summary{StudentID: studentID}}
	guards := stubGuardianService{linked: []uuid.UUID{uuid.New()}}
	handler := AttendanceSummary(svc, guards, nil)

	target := "/students/" + studentID.String() + "/attendance/summary?from=2026-01-01&to=2026-02-01"
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req = actorRequest(req, enums.UserRoleParent, map[string]string{"studentId": studentID.String()})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d: %s", rec.Code, rec.Body.String())
	}
	var envelope types.ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Code != string(pkgerrors.CodeForbidden) {
		t.Fatalf("unexpected code %s", envelope.Code)
	}
}

func TestAttendanceSummaryLinkedParentAllowed(t *testing.T) {
	studentID := uuid.New()
	svc := &stubAttendanceService{summary: &attendance.Summary{StudentID: studentID, Total: 10}}
	guards := stubGuardianService{linked: []uuid.UUID{studentID}}
	handler := AttendanceSummary(svc, guards, nil)

	target := "/students/" + studentID.String() + "/attendance/summary?from=2026-01-01&to=2026-02-01"
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req = actorRequest(req, enums.UserRoleParent, map[string]string{"studentId": studentID.String()})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.gotSummary.StudentID != studentID {
		t.Fatalf("service saw student %s, want %s", svc.gotSummary.StudentID, studentID)
	}
}

func TestAttendanceSummaryRequiresRange(t *testing.T) {
	studentID := uuid.New()
	handler := AttendanceSummary(&stubAttendanceService{}, stubGuardianService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/students/"+studentID.String()+"/attendance/summary", nil)
	req = actorRequest(req, enums.UserRoleTeacher, map[string]string{"studentId": studentID.String()})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
