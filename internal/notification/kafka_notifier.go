// Package notification delivers booking confirmations to customers.
package notification

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/travel-golobe/service-booking/internal/application"
	"github.com/travel-golobe/service-booking/pkg/events"
	"github.com/travel-golobe/service-booking/pkg/kafka"
)

const eventSource = "service-booking"

// KafkaNotifier hands confirmations to the notification service as commands.
type KafkaNotifier struct {
	publisher application.EventPublisher
	logger    *zap.Logger
}

// NewKafkaNotifier creates a new KafkaNotifier.
func NewKafkaNotifier(publisher application.EventPublisher, logger *zap.Logger) *KafkaNotifier {
	return &KafkaNotifier{publisher: publisher, logger: logger}
}

var _ application.NotificationGateway = (*KafkaNotifier)(nil)

// SendBookingConfirmation publishes a confirmation request keyed by booking ID.
func (n *KafkaNotifier) SendBookingConfirmation(ctx context.Context, email string, snapshot application.BookingSnapshot) error {
	cloudEvent, err := kafka.NewCloudEvent(eventSource, events.NotificationBookingConfirmation, events.BookingConfirmationRequest{
		Email:         email,
		BookingID:     snapshot.BookingID,
		BookingNumber: snapshot.BookingNumber,
		Kind:          snapshot.Kind,
		Status:        snapshot.Status,
		TotalAmount:   snapshot.TotalAmount,
		Currency:      snapshot.Currency,
		ConfirmedAt:   snapshot.ConfirmedAt,
		OccurredAt:    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to create notification event: %w", err)
	}
	cloudEvent.Subject = snapshot.BookingID.String()

	if err := n.publisher.PublishEvent(ctx, events.TopicNotificationCommands, cloudEvent); err != nil {
		return err
	}
	n.logger.Debug("booking confirmation queued",
		zap.String("booking_id", snapshot.BookingID.String()),
	)
	return nil
}

// LogNotifier only logs confirmations. It is meant for local development.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a new LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendBookingConfirmation(_ context.Context, email string, snapshot application.BookingSnapshot) error {
	n.logger.Info("booking confirmation",
		zap.String("email", email),
		zap.String("booking_number", snapshot.BookingNumber),
		zap.Int64("total_amount", snapshot.TotalAmount),
	)
	return nil
}
