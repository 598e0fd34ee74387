// Package events holds the Kafka topics, CloudEvent types and payloads
// published and consumed by the booking service.
package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	TopicBookingEvents        = "booking.events"
	TopicBookingCommands      = "booking.commands"
	TopicNotificationCommands = "notification.commands"
)

const (
	BookingCreated   = "booking.created"
	BookingConfirmed = "booking.confirmed"
	BookingCancelled = "booking.cancelled"
	BookingExpired   = "booking.expired"

	// BookingSweepRequested asks the service to run the expiration sweeper now.
	BookingSweepRequested = "booking.sweep_requested"

	NotificationBookingConfirmation = "notification.booking_confirmation"
)

// BookingCreatedEvent is published after a PENDING booking commits.
type BookingCreatedEvent struct {
	BookingID     uuid.UUID `json:"booking_id"`
	BookingNumber string    `json:"booking_number"`
	UserID        uuid.UUID `json:"user_id"`
	Kind          string    `json:"kind"`
	Bundle        bool      `json:"bundle"`
	TotalAmount   int64     `json:"total_amount"`
	Currency      string    `json:"currency"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// BookingConfirmedEvent is published once per booking, when it first becomes CONFIRMED.
type BookingConfirmedEvent struct {
	BookingID     uuid.UUID `json:"booking_id"`
	BookingNumber string    `json:"booking_number"`
	UserID        uuid.UUID `json:"user_id"`
	InvoiceID     uuid.UUID `json:"invoice_id"`
	TotalAmount   int64     `json:"total_amount"`
	Currency      string    `json:"currency"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// BookingCancelledEvent is published when an owner cancels a booking.
type BookingCancelledEvent struct {
	BookingID        uuid.UUID `json:"booking_id"`
	BookingNumber    string    `json:"booking_number"`
	CancelledBy      uuid.UUID `json:"cancelled_by"`
	CapacityReleased bool      `json:"capacity_released"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// BookingExpiredEvent is published for each booking the sweeper expires.
type BookingExpiredEvent struct {
	BookingID     uuid.UUID `json:"booking_id"`
	BookingNumber string    `json:"booking_number"`
	UserID        uuid.UUID `json:"user_id"`
	Kind          string    `json:"kind"`
	PrevStatus    string    `json:"prev_status"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// SweepRequestedEvent triggers a sweep. An empty Kind sweeps every kind.
type SweepRequestedEvent struct {
	Kind        string    `json:"kind,omitempty"`
	RequestedBy string    `json:"requested_by,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// BookingConfirmationRequest asks the notification service to email a confirmation.
type BookingConfirmationRequest struct {
	Email         string     `json:"email"`
	BookingID     uuid.UUID  `json:"booking_id"`
	BookingNumber string     `json:"booking_number"`
	Kind          string     `json:"kind"`
	Status        string     `json:"status"`
	TotalAmount   int64      `json:"total_amount"`
	Currency      string     `json:"currency"`
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty"`
	OccurredAt    time.Time  `json:"occurred_at"`
}
