package events

import (
	"context"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/travel-golobe/service-booking/internal/application"
	"github.com/travel-golobe/service-booking/internal/domain/inventory"
	"github.com/travel-golobe/service-booking/pkg/events"
	"github.com/travel-golobe/service-booking/pkg/kafka"
)

// Sweeper runs an expiration sweep. *application.ExpirationSweeper satisfies it.
type Sweeper interface {
	Sweep(ctx context.Context, kinds ...inventory.ResourceKind) application.SweepReport
}

// SweepCommandConsumer listens to booking commands and triggers expiration sweeps.
type SweepCommandConsumer struct {
	consumer *kafka.Consumer
	sweeper  Sweeper
	logger   *zap.Logger
}

// NewSweepCommandConsumer creates a new SweepCommandConsumer.
func NewSweepCommandConsumer(
	brokers []string,
	groupID string,
	sweeper Sweeper,
	logger *zap.Logger,
) *SweepCommandConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, events.TopicBookingCommands, logger)
	return &SweepCommandConsumer{
		consumer: consumer,
		sweeper:  sweeper,
		logger:   logger,
	}
}

// Start begins consuming booking commands. This blocks until the context is cancelled.
func (c *SweepCommandConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *SweepCommandConsumer) Close() error {
	return c.consumer.Close()
}

func (c *SweepCommandConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from booking command topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case events.BookingSweepRequested:
		return c.handleSweepRequested(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled booking command type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *SweepCommandConsumer) handleSweepRequested(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt events.SweepRequestedEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse SweepRequestedEvent data",
			zap.Error(err),
		)
		return nil // Don't retry malformed data
	}

	var kinds []inventory.ResourceKind
	if evt.Kind != "" {
		kind, err := inventory.ParseResourceKind(evt.Kind)
		if err != nil {
			c.logger.Error("sweep requested for unknown kind",
				zap.String("kind", evt.Kind),
			)
			return nil
		}
		kinds = append(kinds, kind)
	}

	c.logger.Info("processing sweep request",
		zap.String("kind", evt.Kind),
		zap.String("requested_by", evt.RequestedBy),
	)

	report := c.sweeper.Sweep(ctx, kinds...)

	c.logger.Info("sweep request completed",
		zap.Int("expired", report.Expired()),
		zap.Int64("purged", report.Purged),
	)
	return nil
}
