package analytics

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

// Consumer drains the attendance subscription into the warehouse.
type Consumer struct {
	svc  *Service
	sub  subscriber
	logg *logger.Logger
}

// NewConsumer wires the analytics service to a Pub/Sub subscription.
func NewConsumer(svc *Service, sub subscriber, logg *logger.Logger) *Consumer {
	return &Consumer{svc: svc, sub: sub, logg: logg}
}

// Run blocks receiving messages until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.sub.Receive(ctx, c.handle)
}

func (c *Consumer) handle(ctx context.Context, msg *pubsub.Message) {
	if msg.Attributes[eventTypeAttribute] != string(enums.OutboxEventAttendanceMarked) {
		// The attendance topic also carries session.closed; not warehouse data.
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

	if err := c.svc.HandleMarkedEvent(ctx, envelope); err != nil {
		if c.logg != nil {
			c.logg.Error(ctx, "attendance fact insert failed", err)
		}
		msg.Nack()
		return
	}
	msg.Ack()
}
