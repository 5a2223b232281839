// Package identity verifies Google-issued ID tokens for the mobile sign-in flow.
package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/classpulse/classpulse-backend/pkg/config"
	"github.com/coreos/go-oidc/v3/oidc"
)

// Claims holds the subset of Google ID token claims the auth flows consume.
type Claims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Verifier validates a raw ID token string and returns its claims.
// Services depend on this interface so tests can stub the provider.
type Verifier interface {
	Verify(ctx context.Context, rawIDToken string) (*Claims, error)
}

// GoogleVerifier validates ID tokens against Google's published JWKS.
type GoogleVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewGoogleVerifier performs issuer discovery and builds a verifier bound to the configured client ID.
func NewGoogleVerifier(ctx context.Context, cfg config.GoogleConfig) (*GoogleVerifier, error) {
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, fmt.Errorf("google client id is required")
	}

	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("creating oidc provider: %w", err)
	}

	return &GoogleVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

// Verify checks the token signature, audience, issuer, and expiry, then extracts claims.
func (v *GoogleVerifier) Verify(ctx context.Context, rawIDToken string) (*Claims, error) {
	if strings.TrimSpace(rawIDToken) == "" {
		return nil, fmt.Errorf("id token is required")
	}

	idToken, err := v.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("verifying id token: %w", err)
	}

	claims := &Claims{}
	if err := idToken.Claims(claims); err != nil {
		return nil, fmt.Errorf("extracting id token claims: %w", err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("id token missing subject")
	}

	return claims, nil
}
