package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/classpulse/classpulse-backend/pkg/types"
)

// NetworkErrorMessage is shown whenever a request never produced a response.
const NetworkErrorMessage = "Network error. Please check your connection."

// Kind classifies a failed API call for display purposes.
type Kind string

const (
	// KindEnvelope means the backend answered with a structured error envelope.
	KindEnvelope Kind = "envelope"
	// KindNetwork means no response was received at all.
	KindNetwork Kind = "network"
	// KindGeneric covers everything else, including malformed responses.
	KindGeneric Kind = "generic"
)

// Classified is the displayable outcome of ClassifyError.
type Classified struct {
	Message string
	Kind    Kind
}

// APIError is returned when the backend answered with a non-2xx status.
// Envelope is nil when the error body could not be parsed.
type APIError struct {
	StatusCode int
	Envelope   *types.ErrorEnvelope
}

// Error implements error.
func (e *APIError) Error() string {
	if e.Envelope != nil && e.Envelope.Message != "" {
		return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Envelope.Message)
	}
	return fmt.Sprintf("api error (status %d)", e.StatusCode)
}

// ClassifyError turns any failure from an API call into a displayable message
// and a classification. It never panics and never returns an empty message.
//
// Priority order: a structured envelope message wins and is surfaced verbatim;
// a transport failure with no response at all maps to the fixed network
// message, ignoring the fallback; everything else uses the error's own text,
// then the fallback.
func ClassifyError(err error, fallback string) Classified {
	if err == nil {
		return Classified{Message: fallback, Kind: KindGeneric}
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Envelope != nil && strings.TrimSpace(apiErr.Envelope.Message) != "" {
			return Classified{Message: apiErr.Envelope.Message, Kind: KindEnvelope}
		}
		return Classified{Message: fallback, Kind: KindEnvelope}
	}

	if isNetworkError(err) {
		return Classified{Message: NetworkErrorMessage, Kind: KindNetwork}
	}

	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return Classified{Message: msg, Kind: KindGeneric}
	}
	return Classified{Message: fallback, Kind: KindGeneric}
}

func isNetworkError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
