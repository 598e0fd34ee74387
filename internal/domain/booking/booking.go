package booking

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/travel-golobe/service-booking/internal/domain/inventory"
	"github.com/travel-golobe/service-booking/pkg/domain"
)

const bookingNumberChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Legs describes which resources a booking holds capacity on and how much.
// A nil ID means the leg is absent.
type Legs struct {
	FlightID       *uuid.UUID
	TicketID       *uuid.UUID
	FlightQuantity int
	FlightDate     *time.Time

	HotelID       *uuid.UUID
	RoomID        *uuid.UUID
	HotelQuantity int
	CheckInDate   *time.Time
	CheckOutDate  *time.Time

	TourID       *uuid.UUID
	TourQuantity int

	RoadVehicleID       *uuid.UUID
	RoadVehicleQuantity int
}

// Reservation is one capacity hold carried by a booking.
type Reservation struct {
	Ref      inventory.ResourceRef
	Quantity int
}

// Reservations lists every leg that holds capacity, tour first.
func (l Legs) Reservations() []Reservation {
	var out []Reservation
	if l.TourID != nil {
		out = append(out, Reservation{Ref: inventory.Ref(inventory.KindTour, *l.TourID), Quantity: l.TourQuantity})
	}
	if l.FlightID != nil {
		out = append(out, Reservation{Ref: inventory.Ref(inventory.KindFlight, *l.FlightID), Quantity: l.FlightQuantity})
	}
	if l.HotelID != nil {
		out = append(out, Reservation{Ref: inventory.Ref(inventory.KindHotel, *l.HotelID), Quantity: l.HotelQuantity})
	}
	if l.RoadVehicleID != nil {
		out = append(out, Reservation{Ref: inventory.Ref(inventory.KindRoadVehicle, *l.RoadVehicleID), Quantity: l.RoadVehicleQuantity})
	}
	return out
}

func (l Legs) validate(kind inventory.ResourceKind) error {
	switch kind {
	case inventory.KindFlight:
		if l.FlightID == nil || l.HotelID != nil || l.TourID != nil || l.RoadVehicleID != nil {
			return domain.NewValidationError("flight booking must reference exactly one flight")
		}
	case inventory.KindHotel:
		if l.HotelID == nil || l.FlightID != nil || l.TourID != nil || l.RoadVehicleID != nil {
			return domain.NewValidationError("hotel booking must reference exactly one hotel")
		}
		if l.RoomID == nil {
			return domain.NewValidationError("hotel booking requires a room")
		}
	case inventory.KindRoadVehicle:
		if l.RoadVehicleID == nil || l.FlightID != nil || l.HotelID != nil || l.TourID != nil {
			return domain.NewValidationError("road vehicle booking must reference exactly one vehicle")
		}
	case inventory.KindTour:
		if l.TourID == nil || l.RoadVehicleID != nil {
			return domain.NewValidationError("tour booking must reference a tour")
		}
		if (l.FlightID == nil) != (l.HotelID == nil) {
			return domain.NewValidationError("tour bundle must include both a flight and a hotel")
		}
		if l.HotelID != nil && l.RoomID == nil {
			return domain.NewValidationError("tour bundle hotel requires a room")
		}
	default:
		return domain.NewValidationError(fmt.Sprintf("invalid booking kind: %s", kind))
	}
	for _, r := range l.Reservations() {
		if err := inventory.ValidateQuantity(r.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// Booking is the aggregate root for the booking domain.
type Booking struct {
	id            uuid.UUID
	bookingNumber string
	userID        uuid.UUID
	kind          inventory.ResourceKind
	legs          Legs
	status        BookingStatus

	totalAmountCents int64
	currency         string

	confirmedAt *time.Time
	cancelledAt *time.Time
	expiredAt   *time.Time

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// generateBookingNumber creates a booking number in the format "BK-XXXXXX".
func generateBookingNumber() (string, error) {
	result := make([]byte, 6)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(bookingNumberChars))))
		if err != nil {
			return "", fmt.Errorf("failed to generate booking number: %w", err)
		}
		result[i] = bookingNumberChars[n.Int64()]
	}
	return "BK-" + string(result), nil
}

// NewBooking creates a new Booking aggregate with status=PENDING.
// Capacity for every leg must already be reserved by the caller.
func NewBooking(
	userID uuid.UUID,
	kind inventory.ResourceKind,
	legs Legs,
	totalAmountCents int64,
	currency string,
) (*Booking, error) {
	if userID == uuid.Nil {
		return nil, domain.NewValidationError("user ID is required")
	}
	if err := legs.validate(kind); err != nil {
		return nil, err
	}
	if totalAmountCents < 0 {
		return nil, domain.NewValidationError("total amount cannot be negative")
	}
	if strings.TrimSpace(currency) == "" {
		return nil, domain.NewValidationError("currency is required")
	}

	bookingNumber, err := generateBookingNumber()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Booking{
		id:               uuid.New(),
		bookingNumber:    bookingNumber,
		userID:           userID,
		kind:             kind,
		legs:             legs,
		status:           StatusPending,
		totalAmountCents: totalAmountCents,
		currency:         currency,
		version:          1,
		createdAt:        now,
		updatedAt:        now,
	}, nil
}

// ReconstructBooking rebuilds a Booking from persistence data (no validation).
func ReconstructBooking(
	id uuid.UUID,
	bookingNumber string,
	userID uuid.UUID,
	kind inventory.ResourceKind,
	legs Legs,
	status BookingStatus,
	totalAmountCents int64,
	currency string,
	confirmedAt *time.Time,
	cancelledAt *time.Time,
	expiredAt *time.Time,
	version int64,
	createdAt time.Time,
	updatedAt time.Time,
) *Booking {
	return &Booking{
		id:               id,
		bookingNumber:    bookingNumber,
		userID:           userID,
		kind:             kind,
		legs:             legs,
		status:           status,
		totalAmountCents: totalAmountCents,
		currency:         currency,
		confirmedAt:      confirmedAt,
		cancelledAt:      cancelledAt,
		expiredAt:        expiredAt,
		version:          version,
		createdAt:        createdAt,
		updatedAt:        updatedAt,
	}
}

// --- Getters ---

// ID returns the booking's unique identifier.
func (b *Booking) ID() uuid.UUID { return b.id }

// BookingNumber returns the human-readable booking number.
func (b *Booking) BookingNumber() string { return b.bookingNumber }

// UserID returns the owning user's ID.
func (b *Booking) UserID() uuid.UUID { return b.userID }

// Kind returns the primary resource kind. Tour bundles report KindTour.
func (b *Booking) Kind() inventory.ResourceKind { return b.kind }

// Legs returns the resource references and quantities.
func (b *Booking) Legs() Legs { return b.legs }

// IsBundle reports whether this is a tour booking carrying a flight and a hotel.
func (b *Booking) IsBundle() bool {
	return b.kind == inventory.KindTour && b.legs.FlightID != nil && b.legs.HotelID != nil
}

// Status returns the current booking status.
func (b *Booking) Status() BookingStatus { return b.status }

// TotalAmountCents returns the priced total in minor units.
func (b *Booking) TotalAmountCents() int64 { return b.totalAmountCents }

// Currency returns the currency code.
func (b *Booking) Currency() string { return b.currency }

// ConfirmedAt returns when the booking was confirmed, or nil.
func (b *Booking) ConfirmedAt() *time.Time { return b.confirmedAt }

// CancelledAt returns when the booking was cancelled, or nil.
func (b *Booking) CancelledAt() *time.Time { return b.cancelledAt }

// ExpiredAt returns when the sweeper expired the booking, or nil.
func (b *Booking) ExpiredAt() *time.Time { return b.expiredAt }

// Version returns the entity version for optimistic locking.
func (b *Booking) Version() int64 { return b.version }

// CreatedAt returns the creation timestamp.
func (b *Booking) CreatedAt() time.Time { return b.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (b *Booking) UpdatedAt() time.Time { return b.updatedAt }

// --- Behavior ---

// IsOwnedBy returns true if userID owns the booking.
func (b *Booking) IsOwnedBy(userID uuid.UUID) bool {
	return b.userID == userID
}

// Confirm transitions the booking from pending to confirmed.
// It returns false without error when the booking is already confirmed.
func (b *Booking) Confirm() (bool, error) {
	if b.status == StatusConfirmed {
		return false, nil
	}
	if !b.status.CanTransitionTo(StatusConfirmed) {
		return false, domain.NewConflictError(fmt.Sprintf("booking %s is %s and cannot be confirmed", b.bookingNumber, b.status))
	}
	now := time.Now().UTC()
	b.status = StatusConfirmed
	b.confirmedAt = &now
	b.updatedAt = now
	return true, nil
}

// Cancel transitions the booking to cancelled.
func (b *Booking) Cancel() error {
	if !b.status.CanTransitionTo(StatusCancelled) {
		return domain.NewInvalidStateError(string(b.status), string(StatusCancelled))
	}
	now := time.Now().UTC()
	b.status = StatusCancelled
	b.cancelledAt = &now
	b.updatedAt = now
	return nil
}

// Expire marks a stale booking as expired. Confirmed bookings may only be
// expired when the sweep is configured to include them.
func (b *Booking) Expire(includeConfirmed bool) error {
	switch {
	case b.status.CanTransitionTo(StatusExpired):
	case includeConfirmed && b.status == StatusConfirmed:
	default:
		return domain.NewInvalidStateError(string(b.status), string(StatusExpired))
	}
	now := time.Now().UTC()
	b.status = StatusExpired
	b.expiredAt = &now
	b.updatedAt = now
	return nil
}

// IncrementVersion bumps the version for optimistic locking.
func (b *Booking) IncrementVersion() {
	b.version++
	b.updatedAt = time.Now().UTC()
}
