package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/travel-golobe/service-booking/internal/domain/inventory"
)

// ListFilter narrows the admin booking listing. Zero values match everything.
type ListFilter struct {
	Kind   inventory.ResourceKind
	Status BookingStatus
	// Search matches a booking number or any resource ID, case-insensitively.
	Search string
}

// StaleCursor is a position in the oldest-first stale scan, ordered by
// creation time and then ID. The zero value starts at the beginning.
type StaleCursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// IsZero reports whether the cursor starts at the beginning.
func (c StaleCursor) IsZero() bool { return c.CreatedAt.IsZero() && c.ID == uuid.Nil }

// CursorAfter returns the cursor positioned just past bk.
func CursorAfter(bk *Booking) StaleCursor {
	return StaleCursor{CreatedAt: bk.CreatedAt(), ID: bk.ID()}
}

// BookingRepository defines the persistence contract for booking aggregates.
type BookingRepository interface {
	// FindByID retrieves a booking by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// FindByUserID retrieves bookings belonging to a user with pagination, newest first.
	FindByUserID(ctx context.Context, userID uuid.UUID, page, limit int) ([]*Booking, int64, error)

	// ListAll retrieves bookings matching filter with pagination (admin).
	ListAll(ctx context.Context, filter ListFilter, page, limit int) ([]*Booking, int64, error)

	// CountByStatus returns booking counts grouped by status (admin).
	CountByStatus(ctx context.Context) (map[string]int64, error)

	// FindStale returns bookings of kind in one of statuses created before
	// cutoff and positioned after the cursor, oldest first.
	FindStale(ctx context.Context, kind inventory.ResourceKind, statuses []BookingStatus, cutoff time.Time, after StaleCursor, limit int) ([]*Booking, error)

	// PurgeFinalized deletes cancelled and expired bookings last updated before cutoff.
	PurgeFinalized(ctx context.Context, cutoff time.Time) (int64, error)

	// Save persists a new booking.
	Save(ctx context.Context, booking *Booking) error

	// Update persists changes to an existing booking with optimistic locking.
	Update(ctx context.Context, booking *Booking) error
}

// InvoiceRepository persists invoice details.
type InvoiceRepository interface {
	Save(ctx context.Context, invoice *InvoiceDetail) error
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*InvoiceDetail, error)
}

// UnitOfWork exposes repositories bound to one transaction.
type UnitOfWork interface {
	Ledger() inventory.Ledger
	Bookings() BookingRepository
	Invoices() InvoiceRepository
}

// TxManager runs fn inside a transaction. Any error returned by fn rolls back
// every ledger, booking and invoice change made through the unit of work.
type TxManager interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, uow UnitOfWork) error) error
}
