package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/classpulse/classpulse-backend/pkg/config"
	"github.com/classpulse/classpulse-backend/pkg/db/models"
	"github.com/classpulse/classpulse-backend/pkg/enums"
	"github.com/classpulse/classpulse-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
)

func testRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{
		AttendanceTopic:          "cp-attendance-events",
		AttendanceSubscription:   "cp-attendance-sub",
		NotificationTopic:        "cp-notification-events",
		NotificationSubscription: "cp-notification-sub",
	})
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return reg
}

func encodeEnvelope(t *testing.T, data any) json.RawMessage {
	t.Helper()
	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	envelope := payloads.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now(),
		Data:       payload,
	}
	encoded, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return encoded
}

func TestResolveAttendanceMarked(t *testing.T) {
	reg := testRegistry(t)
	sessionID := uuid.New()

	row := models.OutboxEvent{
		EventType:     enums.OutboxEventAttendanceMarked,
		AggregateType: enums.OutboxAggregateSession,
		AggregateID:   sessionID,
		Payload: encodeEnvelope(t, payloads.AttendanceMarkedEvent{
			SessionID: sessionID,
			StudentID: uuid.New(),
			Status:    enums.AttendancePresent,
		}),
	}

	resolved, err := reg.Resolve(row)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Descriptor.Topic != "cp-attendance-events" {
		t.Fatalf("expected attendance topic, got %s", resolved.Descriptor.Topic)
	}
	payload, ok := resolved.Payload.(*payloads.AttendanceMarkedEvent)
	if !ok {
		t.Fatalf("expected attendance payload, got %T", resolved.Payload)
	}
	if payload.SessionID != sessionID {
		t.Fatalf("session id mismatch")
	}
}

func TestResolveAbsenceRoutesToNotificationTopic(t *testing.T) {
	reg := testRegistry(t)

	row := models.OutboxEvent{
		EventType:     enums.OutboxEventAttendanceAbsent,
		AggregateType: enums.OutboxAggregateStudent,
		AggregateID:   uuid.New(),
		Payload: encodeEnvelope(t, payloads.StudentAbsentEvent{
			StudentID: uuid.New(),
			Status:    enums.AttendanceAbsent,
		}),
	}

	resolved, err := reg.Resolve(row)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Descriptor.Topic != "cp-notification-events" {
		t.Fatalf("expected notification topic, got %s", resolved.Descriptor.Topic)
	}
}

func TestResolveRejectsUnknownEventType(t *testing.T) {
	reg := testRegistry(t)

	_, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.OutboxEventType("mystery.event"),
		AggregateType: enums.OutboxAggregateSession,
		AggregateID:   uuid.New(),
	})
	var nonRetryable NonRetryableError
	if !errors.As(err, &nonRetryable) {
		t.Fatalf("expected NonRetryableError, got %v", err)
	}
}

func TestResolveRejectsAggregateMismatch(t *testing.T) {
	reg := testRegistry(t)

	_, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.OutboxEventAttendanceMarked,
		AggregateType: enums.OutboxAggregateStudent,
		AggregateID:   uuid.New(),
		Payload:       encodeEnvelope(t, payloads.AttendanceMarkedEvent{}),
	})
	var nonRetryable NonRetryableError
	if !errors.As(err, &nonRetryable) {
		t.Fatalf("expected NonRetryableError, got %v", err)
	}
}

func TestResolveRejectsEmptyPayload(t *testing.T) {
	reg := testRegistry(t)

	envelope, err := json.Marshal(payloads.PayloadEnvelope{
		Version: 1,
		EventID: uuid.NewString(),
		Data:    json.RawMessage("null"),
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}

	_, err = reg.Resolve(models.OutboxEvent{
		EventType:     enums.OutboxEventSessionClosed,
		AggregateType: enums.OutboxAggregateSession,
		AggregateID:   uuid.New(),
		Payload:       envelope,
	})
	var nonRetryable NonRetryableError
	if !errors.As(err, &nonRetryable) {
		t.Fatalf("expected NonRetryableError, got %v", err)
	}
}
