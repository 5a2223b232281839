package types

// SuccessEnvelope is the standard wrapper around successful response payloads.
// Clients discriminate on the presence of both "success" and "data".
type SuccessEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// ErrorEnvelope is the structured failure variant. Data is always null so the
// envelope keeps the same discriminating keys as the success variant.
type ErrorEnvelope struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode"`
	Error      string `json:"error"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message"`
	Data       any    `json:"data"`
	Timestamp  string `json:"timestamp"`
	Path       string `json:"path"`
	Details    any    `json:"details,omitempty"`
}
