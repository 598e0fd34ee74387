package booking

import (
	"time"

	"github.com/google/uuid"
)

// InvoiceDetail is the append-only record written when a booking is confirmed.
type InvoiceDetail struct {
	ID               uuid.UUID
	BookingID        uuid.UUID
	UserID           uuid.UUID
	TotalAmountCents int64
	Currency         string
	CreatedAt        time.Time
}

// NewInvoiceDetail snapshots the booking's total for its owner.
func NewInvoiceDetail(b *Booking) *InvoiceDetail {
	return &InvoiceDetail{
		ID:               uuid.New(),
		BookingID:        b.ID(),
		UserID:           b.UserID(),
		TotalAmountCents: b.TotalAmountCents(),
		Currency:         b.Currency(),
		CreatedAt:        time.Now().UTC(),
	}
}
