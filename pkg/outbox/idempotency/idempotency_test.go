package idempotency

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

type stubStore struct {
	keys map[string]string
	ttls map[string]time.Duration
}

func newStubStore() *stubStore {
	return &stubStore{keys: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (s *stubStore) Get(_ context.Context, key string) (string, error) {
	return s.keys[key], nil
}

func (s *stubStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, exists := s.keys[key]; exists {
		return false, nil
	}
	s.keys[key] = value.(string)
	s.ttls[key] = ttl
	return true, nil
}

func (s *stubStore) IdempotencyKey(scope, id string) string {
	return "cp:idempotency:" + scope + ":" + id
}

func (s *stubStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.keys, key)
	}
	return nil
}

func TestCheckAndMarkProcessed(t *testing.T) {
	store := newStubStore()
	mgr, err := NewManager(store, time.Hour)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	eventID := uuid.New()

	processed, err := mgr.CheckAndMarkProcessed(context.Background(), "notifications", eventID)
	if err != nil {
		t.Fatalf("first check: %v", err)
	}
	if processed {
		t.Fatal("first observation must not be processed")
	}

	processed, err = mgr.CheckAndMarkProcessed(context.Background(), "notifications", eventID)
	if err != nil {
		t.Fatalf("second check: %v", err)
	}
	if !processed {
		t.Fatal("second observation must be processed")
	}
}

func TestProcessedKeysAreConsumerScoped(t *testing.T) {
	store := newStubStore()
	mgr, err := NewManager(store, time.Hour)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	eventID := uuid.New()
	if _, err := mgr.CheckAndMarkProcessed(context.Background(), "notifications", eventID); err != nil {
		t.Fatalf("mark notifications: %v", err)
	}

	processed, err := mgr.CheckAndMarkProcessed(context.Background(), "analytics", eventID)
	if err != nil {
		t.Fatalf("mark analytics: %v", err)
	}
	if processed {
		t.Fatal("different consumer must track the event independently")
	}

	for key := range store.keys {
		if !strings.Contains(key, "evt:processed:") {
			t.Fatalf("unexpected key shape %q", key)
		}
	}
}

func TestDeleteReleasesMarker(t *testing.T) {
	store := newStubStore()
	mgr, err := NewManager(store, time.Hour)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	eventID := uuid.New()
	if _, err := mgr.CheckAndMarkProcessed(context.Background(), "notifications", eventID); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if err := mgr.Delete(context.Background(), "notifications", eventID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	processed, err := mgr.CheckAndMarkProcessed(context.Background(), "notifications", eventID)
	if err != nil {
		t.Fatalf("re-check: %v", err)
	}
	if processed {
		t.Fatal("event must be reprocessable after delete")
	}
}

func TestNewManagerValidation(t *testing.T) {
	if _, err := NewManager(nil, time.Hour); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := NewManager(newStubStore(), -time.Second); err == nil {
		t.Fatal("expected error for negative ttl")
	}
}
