package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/classpulse/classpulse-backend/internal/users"
	pkgAuth "github.com/classpulse/classpulse-backend/pkg/auth"
	"github.com/classpulse/classpulse-backend/pkg/db"
	"github.com/classpulse/classpulse-backend/pkg/enums"
	pkgerrors "github.com/classpulse/classpulse-backend/pkg/errors"
	"github.com/classpulse/classpulse-backend/pkg/identity"
	"gorm.io/gorm"
)

const signupWindowExpiredDetail = "SIGNUP_WINDOW_EXPIRED"

// signupTicket holds the verified Google claims plus the timestamped ID token
// between the sign-in call and the signup call. Tickets live in memory only;
// a process restart forces re-authentication, matching the reuse window's
// no-persistence rule.
type signupTicket struct {
	token  pkgAuth.TimestampedToken
	claims identity.Claims
}

// TicketStore keeps pending signup tickets keyed by an opaque ticket ID.
type TicketStore struct {
	mtx     sync.Mutex
	tickets map[string]signupTicket
}

// NewTicketStore builds an empty ticket store.
func NewTicketStore() *TicketStore {
	return &TicketStore{tickets: make(map[string]signupTicket)}
}

func (ts *TicketStore) put(ticket signupTicket, nowMillis int64) (string, error) {
	id, err := newTicketID()
	if err != nil {
		return "", err
	}
	ts.mtx.Lock()
	defer ts.mtx.Unlock()
	ts.pruneLocked(nowMillis)
	ts.tickets[id] = ticket
	return id, nil
}

// take removes and returns the ticket; tickets are single-use.
func (ts *TicketStore) take(id string) (signupTicket, bool) {
	ts.mtx.Lock()
	defer ts.mtx.Unlock()
	ticket, ok := ts.tickets[id]
	if ok {
		delete(ts.tickets, id)
	}
	return ticket, ok
}

func (ts *TicketStore) pruneLocked(nowMillis int64) {
	for id, ticket := range ts.tickets {
		if !ticket.token.WithinWindow(nowMillis) {
			delete(ts.tickets, id)
		}
	}
}

func newTicketID() (string, error) {
	bytes := make([]byte, 24)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating ticket id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// GoogleSignIn verifies the Google ID token and either logs the user in or
// hands back a single-use signup ticket that stays valid for the token reuse
// window.
func (s *service) GoogleSignIn(ctx context.Context, req GoogleSignInRequest) (*GoogleSignInResponse, error) {
	if s.verifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "google sign-in is not configured")
	}

	claims, err := s.verifier.Verify(ctx, req.IDToken)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	user, err := s.users.FindByGoogleSubject(ctx, claims.Subject)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup google account")
	}

	// First Google sign-in from a user who already has a password account:
	// link the subject instead of forcing a duplicate signup.
	if user == nil && claims.Email != "" {
		existing, lookupErr := s.users.FindByEmail(ctx, strings.ToLower(claims.Email))
		if lookupErr != nil && !errors.Is(lookupErr, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, lookupErr, "lookup user by email")
		}
		if existing != nil {
			if !claims.EmailVerified {
				return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "Google account email is not verified")
			}
			if linkErr := s.users.LinkGoogleSubject(ctx, existing.ID, claims.Subject); linkErr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, linkErr, "link google account")
			}
			user = existing
		}
	}

	if user != nil {
		if !user.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		now, recordErr := s.recordLogin(ctx, user)
		if recordErr != nil {
			return nil, recordErr
		}
		accessToken, refreshToken, tokenErr := s.issueTokens(ctx, user, now)
		if tokenErr != nil {
			return nil, tokenErr
		}
		return &GoogleSignInResponse{
			NeedsSignup:  false,
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			User:         users.FromModel(user),
		}, nil
	}

	// Unknown account: capture the token now so the signup call can check the
	// elapsed time against the reuse window instead of re-verifying freshness.
	nowMillis := s.now().UnixMilli()
	captured := pkgAuth.CaptureTokenAt(req.IDToken, nowMillis)
	ticketID, err := s.tickets.put(signupTicket{token: captured, claims: *claims}, nowMillis)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store signup ticket")
	}

	return &GoogleSignInResponse{
		NeedsSignup:  true,
		SignupTicket: ticketID,
		ExpiresInMs:  captured.Remaining(nowMillis),
		Email:        claims.Email,
		Name:         claims.Name,
	}, nil
}

// GoogleSignup spends a signup ticket and creates the parent account. Expired
// tickets are rejected with a window-expired detail so the client can prompt
// for re-authentication.
func (s *service) GoogleSignup(ctx context.Context, req GoogleSignupRequest) (*GoogleSignInResponse, error) {
	ticket, ok := s.tickets.take(req.SignupTicket)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "Signup session not found. Please sign in again.").
			WithDetails(map[string]string{"reason": signupWindowExpiredDetail})
	}

	if !ticket.token.WithinWindow(s.now().UnixMilli()) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "Signup window expired. Please sign in again.").
			WithDetails(map[string]string{"reason": signupWindowExpiredDetail})
	}

	email := strings.ToLower(strings.TrimSpace(ticket.claims.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Google account has no email")
	}

	subject := ticket.claims.Subject
	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Email:         email,
		GoogleSubject: &subject,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Phone:         req.Phone,
		Role:          enums.UserRoleParent,
		SchoolID:      req.SchoolID,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "ux_users_email") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "An account with this email already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create account")
	}

	now, err := s.recordLogin(ctx, user)
	if err != nil {
		return nil, err
	}
	accessToken, refreshToken, err := s.issueTokens(ctx, user, now)
	if err != nil {
		return nil, err
	}

	return &GoogleSignInResponse{
		NeedsSignup:  false,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         users.FromModel(user),
	}, nil
}
