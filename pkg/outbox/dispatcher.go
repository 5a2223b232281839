package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/classpulse/classpulse-backend/pkg/config"
	"github.com/classpulse/classpulse-backend/pkg/db/models"
	"github.com/classpulse/classpulse-backend/pkg/logger"
	"github.com/classpulse/classpulse-backend/pkg/metrics"
	"github.com/classpulse/classpulse-backend/pkg/outbox/registry"
	"github.com/google/uuid"
)

// dispatcherStore is the slice of Repository the dispatcher needs.
type dispatcherStore interface {
	FetchUnpublished(limit, maxAttempts int) ([]models.OutboxEvent, error)
	CountUnpublished() (int64, error)
	MarkPublished(id uuid.UUID) error
	MarkFailed(id uuid.UUID, err error) error
}

type eventResolver interface {
	Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type messagePublisher interface {
	PublishMessage(ctx context.Context, topic string, data []byte, attributes map[string]string) (string, error)
}

// Dispatcher drains the outbox into Pub/Sub. One dispatcher instance runs per
// publisher process; the attempt counter plus fetch cutoff keeps poisoned
// rows from wedging the queue.
type Dispatcher struct {
	store     dispatcherStore
	resolver  eventResolver
	publisher messagePublisher
	metrics   *metrics.OutboxMetrics
	logg      *logger.Logger
	cfg       config.OutboxConfig
}

// DispatcherParams bundles the dependencies required to build a dispatcher.
type DispatcherParams struct {
	Store     dispatcherStore
	Resolver  eventResolver
	Publisher messagePublisher
	Metrics   *metrics.OutboxMetrics
	Logger    *logger.Logger
	Config    config.OutboxConfig
}

// NewDispatcher constructs the outbox dispatcher.
func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Store == nil {
		return nil, errors.New("outbox store is required")
	}
	if params.Resolver == nil {
		return nil, errors.New("event resolver is required")
	}
	if params.Publisher == nil {
		return nil, errors.New("publisher is required")
	}
	if params.Config.BatchSize <= 0 {
		params.Config.BatchSize = 50
	}
	if params.Config.PollInterval <= 0 {
		params.Config.PollInterval = 500 * time.Millisecond
	}
	return &Dispatcher{
		store:     params.Store,
		resolver:  params.Resolver,
		publisher: params.Publisher,
		metrics:   params.Metrics,
		logg:      params.Logger,
		cfg:       params.Config,
	}, nil
}

// Run polls for pending rows until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := d.DispatchBatch(ctx); err != nil {
				if d.logg != nil {
					d.logg.Error(ctx, "outbox batch failed", err)
				}
			}
		}
	}
}

// DispatchBatch publishes one batch and returns how many rows went out.
// Publish failures bump the attempt counter and leave the row pending;
// non-retryable rows are failed once and dropped from future fetches by the
// max-attempts cutoff.
func (d *Dispatcher) DispatchBatch(ctx context.Context) (int, error) {
	rows, err := d.store.FetchUnpublished(d.cfg.BatchSize, d.cfg.MaxAttempts)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, row := range rows {
		if err := d.dispatchRow(ctx, row); err != nil {
			if d.metrics != nil {
				d.metrics.IncFailed(string(row.EventType))
			}
			if markErr := d.store.MarkFailed(row.ID, err); markErr != nil {
				return published, markErr
			}

			var nonRetryable registry.NonRetryableError
			if errors.As(err, &nonRetryable) {
				if d.logg != nil {
					d.logg.Error(ctx, "dropping unpublishable outbox row", err)
				}
				continue
			}
			if d.logg != nil {
				d.logg.Error(ctx, "outbox publish failed", err)
			}
			continue
		}

		if err := d.store.MarkPublished(row.ID); err != nil {
			return published, err
		}
		published++
		if d.metrics != nil {
			d.metrics.IncPublished(string(row.EventType))
		}
	}

	if d.metrics != nil {
		if pending, countErr := d.store.CountUnpublished(); countErr == nil {
			d.metrics.SetPending(int(pending))
		}
	}
	return published, nil
}

func (d *Dispatcher) dispatchRow(ctx context.Context, row models.OutboxEvent) error {
	resolved, err := d.resolver.Resolve(row)
	if err != nil {
		return err
	}

	attributes := map[string]string{
		"event_type":     string(row.EventType),
		"aggregate_type": string(row.AggregateType),
		"aggregate_id":   row.AggregateID.String(),
		"event_id":       resolved.Envelope.EventID,
	}
	messageID, err := d.publisher.PublishMessage(ctx, resolved.Descriptor.Topic, row.Payload, attributes)
	if err != nil {
		return err
	}

	if d.logg != nil {
		logCtx := d.logg.WithFields(ctx, map[string]any{
			"event_id":   resolved.Envelope.EventID,
			"event_type": row.EventType,
			"message_id": messageID,
			"topic":      resolved.Descriptor.Topic,
		})
		d.logg.Debug(logCtx, "outbox event published")
	}
	return nil
}
