// Package apiclient is a thin JSON client for the ClassPulse REST API. Its
// normalizer accepts both enveloped and raw response bodies so callers get the
// effective payload without caring which shape the backend used.
package apiclient

import (
	"bytes"
	"encoding/json"
)

// Unwrap extracts the effective payload from a decoded response body. A value
// is treated as an envelope only when it is a non-nil object carrying both a
// "success" and a "data" key; the boolean value of "success" is irrelevant
// here because failure detection runs on HTTP status and ClassifyError, not
// on this function. Anything else (nil, primitives, arrays, objects missing
// either key) passes through unchanged.
func Unwrap(payload any) any {
	obj, ok := payload.(map[string]any)
	if !ok || obj == nil {
		return payload
	}
	if _, hasSuccess := obj["success"]; !hasSuccess {
		return payload
	}
	data, hasData := obj["data"]
	if !hasData {
		return payload
	}
	return data
}

// Decode unmarshals a response body into T, unwrapping the standard envelope
// when present. The shape of T itself is not validated.
func Decode[T any](body []byte) (T, error) {
	var result T

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err == nil && probe != nil {
		_, hasSuccess := probe["success"]
		data, hasData := probe["data"]
		if hasSuccess && hasData {
			if isJSONNull(data) {
				return result, nil
			}
			if err := json.Unmarshal(data, &result); err != nil {
				return result, err
			}
			return result, nil
		}
	}

	if err := json.Unmarshal(body, &result); err != nil {
		return result, err
	}
	return result, nil
}

func isJSONNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
