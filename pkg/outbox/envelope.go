package outbox

import (
	"github.com/classpulse/classpulse-backend/pkg/outbox/payloads"
)

// ActorRef identifies who produced the event.
type ActorRef = payloads.ActorRef

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope = payloads.PayloadEnvelope
