package apiclient

import (
	"reflect"
	"testing"
)

func TestUnwrapEnvelope(t *testing.T) {
	payload := map[string]any{
		"success": true,
		"message": "ok",
		"data":    map[string]any{"id": float64(1)},
	}

	got := Unwrap(payload)
	want := map[string]any{"id": float64(1)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Unwrap = %#v, want %#v", got, want)
	}
}

func TestUnwrapIgnoresSuccessValue(t *testing.T) {
	// An error envelope still unwraps: the discriminant is key presence only.
	payload := map[string]any{
		"success": false,
		"message": "boom",
		"data":    nil,
	}

	if got := Unwrap(payload); got != nil {
		t.Fatalf("expected nil data, got %#v", got)
	}
}

func TestUnwrapRawPassthrough(t *testing.T) {
	cases := []struct {
		name    string
		payload any
	}{
		{"raw object", map[string]any{"id": float64(1)}},
		{"missing data key", map[string]any{"success": true, "message": "ok"}},
		{"missing success key", map[string]any{"data": "x"}},
		{"nil", nil},
		{"string", "plain"},
		{"number", float64(7)},
		{"array", []any{1, 2, 3}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Unwrap(tc.payload)
			if !reflect.DeepEqual(got, tc.payload) {
				t.Fatalf("Unwrap(%#v) = %#v, want input unchanged", tc.payload, got)
			}
		})
	}
}

func TestDecodeEnvelopedBody(t *testing.T) {
	type user struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}

	body := []byte(`{"success":true,"message":"ok","data":{"id":1,"name":"Amina"}}`)
	got, err := Decode[user](body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != 1 || got.Name != "Amina" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestDecodeRawBody(t *testing.T) {
	type user struct {
		ID int `json:"id"`
	}

	got, err := Decode[user]([]byte(`{"id":42}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != 42 {
		t.Fatalf("expected id 42, got %d", got.ID)
	}
}

func TestDecodeNullData(t *testing.T) {
	type user struct {
		ID int `json:"id"`
	}

	got, err := Decode[user]([]byte(`{"success":false,"message":"nope","data":null}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != 0 {
		t.Fatalf("expected zero value, got %+v", got)
	}
}

func TestDecodeSlice(t *testing.T) {
	got, err := Decode[[]int]([]byte(`{"success":true,"message":"ok","data":[1,2,3]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 3 || got[2] != 3 {
		t.Fatalf("unexpected slice: %v", got)
	}
}
