package apiclient

import (
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/classpulse/classpulse-backend/pkg/types"
)

const testFallback = "Something went wrong. Please try again."

func TestClassifyErrorEnvelopeMessageWinsVerbatim(t *testing.T) {
	err := &APIError{
		StatusCode: 401,
		Envelope: &types.ErrorEnvelope{
			Success:    false,
			StatusCode: 401,
			Message:    "Invalid credentials",
		},
	}

	got := ClassifyError(err, testFallback)
	if got.Kind != KindEnvelope {
		t.Fatalf("expected envelope kind, got %s", got.Kind)
	}
	if got.Message != "Invalid credentials" {
		t.Fatalf("expected verbatim message, got %q", got.Message)
	}
}

func TestClassifyErrorNoResponseIgnoresFallback(t *testing.T) {
	transport := &url.Error{
		Op:  "Post",
		URL: "http://api.classpulse.test/v1/auth/login",
		Err: errors.New("dial tcp: connection refused"),
	}

	got := ClassifyError(transport, testFallback)
	if got.Kind != KindNetwork {
		t.Fatalf("expected network kind, got %s", got.Kind)
	}
	if got.Message != NetworkErrorMessage {
		t.Fatalf("expected fixed network message, got %q", got.Message)
	}
}

func TestClassifyErrorEnvelopeWithoutMessageUsesFallback(t *testing.T) {
	got := ClassifyError(&APIError{StatusCode: 500}, testFallback)
	if got.Kind != KindEnvelope {
		t.Fatalf("expected envelope kind, got %s", got.Kind)
	}
	if got.Message != testFallback {
		t.Fatalf("expected fallback, got %q", got.Message)
	}
}

func TestClassifyErrorGenericUsesOwnMessage(t *testing.T) {
	got := ClassifyError(fmt.Errorf("unexpected end of JSON input"), testFallback)
	if got.Kind != KindGeneric {
		t.Fatalf("expected generic kind, got %s", got.Kind)
	}
	if got.Message != "unexpected end of JSON input" {
		t.Fatalf("expected error text, got %q", got.Message)
	}
}

func TestClassifyErrorNilNeverPanics(t *testing.T) {
	got := ClassifyError(nil, testFallback)
	if got.Message != testFallback {
		t.Fatalf("expected fallback for nil error, got %q", got.Message)
	}
	if got.Kind != KindGeneric {
		t.Fatalf("expected generic kind, got %s", got.Kind)
	}
}

func TestClassifyErrorWrappedAPIError(t *testing.T) {
	inner := &APIError{
		StatusCode: 409,
		Envelope:   &types.ErrorEnvelope{Message: "Student already enrolled"},
	}
	wrapped := fmt.Errorf("marking attendance: %w", inner)

	got := ClassifyError(wrapped, testFallback)
	if got.Kind != KindEnvelope {
		t.Fatalf("expected envelope kind through wrapping, got %s", got.Kind)
	}
	if got.Message != "Student already enrolled" {
		t.Fatalf("expected envelope message, got %q", got.Message)
	}
}
