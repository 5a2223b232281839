package routes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/classpulse/classpulse-backend/internal/attendance"
	"github.com/classpulse/classpulse-backend/internal/auth"
	"github.com/classpulse/classpulse-backend/internal/guardians"
	"github.com/classpulse/classpulse-backend/internal/notifications"
	"github.com/classpulse/classpulse-backend/internal/rankings"
	"github.com/classpulse/classpulse-backend/internal/sessions"
	"github.com/classpulse/classpulse-backend/internal/students"
	"github.com/classpulse/classpulse-backend/pkg/apiclient"
	pkgAuth "github.com/classpulse/classpulse-backend/pkg/auth"
	"github.com/classpulse/classpulse-backend/pkg/config"
	"github.com/classpulse/classpulse-backend/pkg/enums"
	"github.com/classpulse/classpulse-backend/pkg/outbox"
)

type fakeAuthService struct {
	login *auth.LoginResponse
	err   error
}

func (f fakeAuthService) Login(_ context.Context, _ auth.LoginRequest) (*auth.LoginResponse, error) {
	return f.login, f.err
}

func (f fakeAuthService) Refresh(_ context.Context, _ auth.RefreshRequest) (*auth.RefreshResponse, error) {
	return nil, f.err
}

func (f fakeAuthService) Logout(_ context.Context, _ string) error { return f.err }

func (f fakeAuthService) GoogleSignIn(_ context.Context, _ auth.GoogleSignInRequest) (*auth.GoogleSignInResponse, error) {
	return nil, f.err
}

func (f fakeAuthService) GoogleSignup(_ context.Context, _ auth.GoogleSignupRequest) (*auth.GoogleSignInResponse, error) {
	return nil, f.err
}

type fakeStudentService struct {
	dto  *students.StudentDTO
	list *students.ListStudentsResponse
}

func (f fakeStudentService) Create(_ context.Context, _ uuid.UUID, _ students.CreateStudentRequest) (*students.StudentDTO, error) {
	return f.dto, nil
}

func (f fakeStudentService) Get(_ context.Context, _, _ uuid.UUID) (*students.StudentDTO, error) {
	return f.dto, nil
}

func (f fakeStudentService) Update(_ context.Context, _, _ uuid.UUID, _ students.UpdateStudentRequest) (*students.StudentDTO, error) {
	return f.dto, nil
}

func (f fakeStudentService) List(_ context.Context, _ uuid.UUID, _ students.ListStudentsRequest) (*students.ListStudentsResponse, error) {
	return f.list, nil
}

func (f fakeStudentService) ListForGuardian(_ context.Context, ids []uuid.UUID) ([]*students.StudentDTO, error) {
	out := make([]*students.StudentDTO, 0, len(ids))
	for _, id := range ids {
		out = append(out, &students.StudentDTO{ID: id})
	}
	return out, nil
}

type fakeSessionService struct {
	dto *sessions.SessionDTO
}

func (f fakeSessionService) Create(_ context.Context, _, _ uuid.UUID, _ sessions.CreateSessionRequest) (*sessions.SessionDTO, error) {
	return f.dto, nil
}

func (f fakeSessionService) Get(_ context.Context, _, _ uuid.UUID) (*sessions.SessionDTO, error) {
	return f.dto, nil
}

func (f fakeSessionService) Open(_ context.Context, _, _, _ uuid.UUID) (*sessions.SessionDTO, error) {
	return f.dto, nil
}

func (f fakeSessionService) Close(_ context.Context, _, _, _ uuid.UUID) (*sessions.SessionDTO, error) {
	return f.dto, nil
}

func (f fakeSessionService) ListByTeacher(_ context.Context, _, _ uuid.UUID, _ sessions.ListSessionsRequest) (*sessions.ListSessionsResponse, error) {
	return &sessions.ListSessionsResponse{}, nil
}

func (f fakeSessionService) AutoCloseOverdue(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}

type fakeAttendanceService struct{}

func (fakeAttendanceService) Mark(_ context.Context, _, _, sessionID uuid.UUID, req attendance.MarkRequest) (*attendance.MarkResponse, error) {
	return &attendance.MarkResponse{SessionID: sessionID, Marked: len(req.Marks)}, nil
}

func (fakeAttendanceService) ListBySession(_ context.Context, _, _ uuid.UUID) ([]*attendance.RecordDTO, error) {
	return nil, nil
}

func (fakeAttendanceService) Summarize(_ context.Context, _ uuid.UUID, req attendance.SummaryRequest) (*attendance.Summary, error) {
	return &attendance.Summary{StudentID: req.StudentID}, nil
}

type fakeRankingService struct{}

func (fakeRankingService) RecordScore(_ context.Context, _, _ uuid.UUID, _ rankings.RecordScoreRequest) (*rankings.ScoreDTO, error) {
	return &rankings.ScoreDTO{}, nil
}

func (fakeRankingService) GetRanking(_ context.Context, _ uuid.UUID, term string) (*rankings.Ranking, error) {
	return &rankings.Ranking{Term: term}, nil
}

func (fakeRankingService) RefreshAll(_ context.Context) (int, error) { return 0, nil }

type fakeGuardianService struct {
	linked []uuid.UUID
}

func (f fakeGuardianService) Link(_ context.Context, _ uuid.UUID, _ guardians.LinkRequest) (*guardians.LinkDTO, error) {
	return &guardians.LinkDTO{}, nil
}

func (f fakeGuardianService) Unlink(_ context.Context, _, _, _ uuid.UUID) error { return nil }

func (f fakeGuardianService) LinkedStudentIDs(_ context.Context, _ uuid.UUID) ([]uuid.UUID, error) {
	return f.linked, nil
}

func (f fakeGuardianService) GuardiansOfStudent(_ context.Context, _ uuid.UUID) ([]uuid.UUID, error) {
	return nil, nil
}

type fakeNotificationService struct {
	unread int64
}

func (f fakeNotificationService) HandleAbsenceEvent(_ context.Context, _ outbox.PayloadEnvelope) error {
	return nil
}

func (f fakeNotificationService) List(_ context.Context, _ uuid.UUID, _ notifications.ListRequest) (*notifications.ListResponse, error) {
	return &notifications.ListResponse{}, nil
}

func (f fakeNotificationService) UnreadCount(_ context.Context, _ uuid.UUID) (int64, error) {
	return f.unread, nil
}

func (f fakeNotificationService) MarkRead(_ context.Context, _, _ uuid.UUID) error { return nil }

func (f fakeNotificationService) DeleteOlderThan(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

type allowAllSessions struct{}

func (allowAllSessions) HasSession(_ context.Context, _ string) (bool, error) { return true, nil }

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev", Port: "8080"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "classpulse", ExpirationMinutes: 60},
		AuthRateLimit: config.AuthRateLimitConfig{
			LoginWindow: 0, RegisterWindow: 0,
		},
		Attendance: config.AttendanceConfig{IdempotencyTTL: 24 * time.Hour},
	}
}

func newTestServer(t *testing.T, guards fakeGuardianService) *httptest.Server {
	t.Helper()
	router := NewRouter(RouterParams{
		Config:         testConfig(),
		SessionChecker: allowAllSessions{},
		AuthService:    fakeAuthService{login: &auth.LoginResponse{AccessToken: "access", RefreshToken: "refresh"}},
		Students:       fakeStudentService{list: &students.ListStudentsResponse{}},
		Sessions:       fakeSessionService{dto: &sessions.SessionDTO{ID: uuid.New()}},
		Attendance:     fakeAttendanceService{},
		Rankings:       fakeRankingService{},
		Guardians:      guards,
		Notifications:  fakeNotificationService{unread: 3},
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func mintToken(t *testing.T, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(config.JWTConfig{Secret: "secret", Issuer: "classpulse", ExpirationMinutes: 60}, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:   uuid.New(),
		SchoolID: uuid.New(),
		Role:     role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestRouterLoginThroughClient(t *testing.T) {
	srv := newTestServer(t, fakeGuardianService{})
	client := apiclient.New(srv.URL)

	type loginResult struct {
		AccessToken string `json:"access_token"`
	}
	result, err := apiclient.DoJSON[loginResult](context.Background(), client, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    "teacher@example.com",
		"password": "Secret123!",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.AccessToken != "access" {
		t.Fatalf("access token = %q", result.AccessToken)
	}
}

func TestRouterRejectsMissingToken(t *testing.T) {
	srv := newTestServer(t, fakeGuardianService{})
	client := apiclient.New(srv.URL)

	_, err := client.Do(context.Background(), http.MethodGet, "/api/v1/ping", nil)
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *apiclient.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", apiErr.StatusCode)
	}
	if apiErr.Envelope == nil || apiErr.Envelope.Code != "UNAUTHORIZED" {
		t.Fatalf("unexpected envelope %+v", apiErr.Envelope)
	}

	classified := apiclient.ClassifyError(err, "fallback")
	if classified.Kind != apiclient.KindEnvelope {
		t.Fatalf("kind = %s, want envelope", classified.Kind)
	}
	if classified.Message == "" || classified.Message == "fallback" {
		t.Fatalf("expected envelope message, got %q", classified.Message)
	}
}

func TestRouterEnforcesRoles(t *testing.T) {
	srv := newTestServer(t, fakeGuardianService{})
	parent := apiclient.New(srv.URL, apiclient.WithToken(mintToken(t, enums.UserRoleParent)))

	_, err := parent.Do(context.Background(), http.MethodPost, "/api/v1/sessions/", map[string]any{
		"subject":         "math",
		"grade_level":     "5",
		"scheduled_start": time.Now().Format(time.RFC3339),
		"scheduled_end":   time.Now().Add(time.Hour).Format(time.RFC3339),
	})
	if err == nil {
		t.Fatal("expected parent to be blocked from scheduling sessions")
	}
	var apiErr *apiclient.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 APIError, got %v", err)
	}
}

func TestRouterParentStudentsAndNotifications(t *testing.T) {
	linked := uuid.New()
	srv := newTestServer(t, fakeGuardianService{linked: []uuid.UUID{linked}})
	parent := apiclient.New(srv.URL, apiclient.WithToken(mintToken(t, enums.UserRoleParent)))

	roster, err := apiclient.DoJSON[[]*students.StudentDTO](context.Background(), parent, http.MethodGet, "/api/v1/me/students", nil)
	if err != nil {
		t.Fatalf("me/students: %v", err)
	}
	if len(roster) != 1 || roster[0].ID != linked {
		t.Fatalf("unexpected roster %+v", roster)
	}

	counts, err := apiclient.DoJSON[map[string]int64](context.Background(), parent, http.MethodGet, "/api/v1/me/notifications/unread-count", nil)
	if err != nil {
		t.Fatalf("unread-count: %v", err)
	}
	if counts["unread"] != 3 {
		t.Fatalf("unread = %d, want 3", counts["unread"])
	}
}

func TestRouterHealthAndPublicPing(t *testing.T) {
	srv := newTestServer(t, fakeGuardianService{})

	res, err := http.Get(srv.URL + "/health/live")
	if err != nil {
		t.Fatalf("health/live: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health/live status %d", res.StatusCode)
	}

	client := apiclient.New(srv.URL)
	if _, err := client.Do(context.Background(), http.MethodGet, "/api/public/ping", nil); err != nil {
		t.Fatalf("public ping: %v", err)
	}
}
