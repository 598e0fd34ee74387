package application

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/travel-golobe/service-booking/internal/domain/catalog"
	"github.com/travel-golobe/service-booking/pkg/kafka"
)

// EventPublisher publishes CloudEvents. *kafka.Producer satisfies it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event kafka.CloudEvent) error
}

// BookingSnapshot is the booking state handed to notification channels.
type BookingSnapshot struct {
	BookingID     uuid.UUID
	BookingNumber string
	UserName      string
	Kind          string
	Bundle        bool
	Status        string
	TotalAmount   int64
	Currency      string
	CreatedAt     time.Time
	ConfirmedAt   *time.Time
}

// NotificationGateway delivers booking confirmations. Callers treat it as
// fire-and-forget: a returned error is logged and never surfaced.
type NotificationGateway interface {
	SendBookingConfirmation(ctx context.Context, email string, snapshot BookingSnapshot) error
}

// AuditAction names a booking history entry.
type AuditAction string

const (
	AuditCreated   AuditAction = "created"
	AuditConfirmed AuditAction = "confirmed"
	AuditCancelled AuditAction = "cancelled"
	AuditExpired   AuditAction = "expired"
)

// AuditEntry is one line of a booking's history.
type AuditEntry struct {
	BookingID     uuid.UUID
	BookingNumber string
	UserID        uuid.UUID
	ActorID       *uuid.UUID
	Kind          string
	Action        AuditAction
	FromStatus    string
	ToStatus      string
	TotalAmount   int64
	Currency      string
	OccurredAt    time.Time
}

// AuditRecorder keeps booking history outside the transactional store.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// BookingHistory reads back what an AuditRecorder stored.
type BookingHistory interface {
	History(ctx context.Context, bookingID uuid.UUID) ([]AuditEntry, error)
}

// NopAuditRecorder discards entries.
type NopAuditRecorder struct{}

func (NopAuditRecorder) Record(context.Context, AuditEntry) error { return nil }

// PartnerSelector chooses the flight and hotel bundled with a tour.
type PartnerSelector interface {
	SelectFlight(ctx context.Context, tour *catalog.Tour) (*catalog.Flight, error)
	SelectHotel(ctx context.Context, tour *catalog.Tour) (*catalog.Hotel, error)
}

// RandomPartnerSelector picks uniformly among all flights and hotels,
// ignoring the tour. The pairing policy is pending product clarification.
type RandomPartnerSelector struct {
	catalog catalog.Catalog
}

// NewRandomPartnerSelector creates a RandomPartnerSelector over cat.
func NewRandomPartnerSelector(cat catalog.Catalog) *RandomPartnerSelector {
	return &RandomPartnerSelector{catalog: cat}
}

func (s *RandomPartnerSelector) SelectFlight(ctx context.Context, _ *catalog.Tour) (*catalog.Flight, error) {
	return s.catalog.RandomFlight(ctx)
}

func (s *RandomPartnerSelector) SelectHotel(ctx context.Context, _ *catalog.Tour) (*catalog.Hotel, error) {
	return s.catalog.RandomHotel(ctx)
}
