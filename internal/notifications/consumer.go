package notifications

import (
	"context"
	"encoding/json"

	"cloud.google.com/go/pubsub/v2"
	"github.com/classpulse/classpulse-backend/pkg/enums"
	"github.com/classpulse/classpulse-backend/pkg/logger"
	"github.com/classpulse/classpulse-backend/pkg/outbox"
)

// eventTypeAttribute is the message attribute carrying the outbox event type.
const eventTypeAttribute = "event_type"

type subscriber interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

// Consumer drains the notification subscription into guardian notifications.
type Consumer struct {
	svc  Service
	sub  subscriber
	logg *logger.Logger
}

// NewConsumer wires the notifications service to a Pub/Sub subscription.
func NewConsumer(svc Service, sub subscriber, logg *logger.Logger) *Consumer {
	return &Consumer{svc: svc, sub: sub, logg: logg}
}

// Run blocks receiving messages until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.sub.Receive(ctx, c.handle)
}

func (c *Consumer) handle(ctx context.Context, msg *pubsub.Message) {
	if msg.Attributes[eventTypeAttribute] != string(enums.OutboxEventAttendanceAbsent) {
		msg.Ack()
		return
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		if c.logg != nil {
			c.logg.Error(ctx, "dropping undecodable message", err)
		}
		msg.Ack()
		return
	}

	if err := c.svc.HandleAbsenceEvent(ctx, envelope); err != nil {
		if c.logg != nil {
			c.logg.Error(ctx, "absence notification failed", err)
		}
		msg.Nack()
		return
	}
	msg.Ack()
}
