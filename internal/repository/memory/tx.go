package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	bookingDomain "github.com/travel-golobe/service-booking/internal/domain/booking"
	"github.com/travel-golobe/service-booking/internal/domain/inventory"
	"github.com/travel-golobe/service-booking/pkg/domain"
)

type adjustment struct {
	ref      inventory.ResourceRef
	c        *counter
	quantity int
}

type stagedUpdate struct {
	booking     *bookingDomain.Booking
	baseVersion int64
}

// txn is the journal of one transaction.
type txn struct {
	holds    []adjustment
	releases []adjustment
	inserts  map[uuid.UUID]*bookingDomain.Booking
	updates  map[uuid.UUID]stagedUpdate
	invoices []*bookingDomain.InvoiceDetail
}

type unitOfWork struct {
	store *Store
	tx    *txn
}

func (u *unitOfWork) Ledger() inventory.Ledger { return &ledger{store: u.store, tx: u.tx} }

func (u *unitOfWork) Bookings() bookingDomain.BookingRepository {
	return &bookingRepo{store: u.store, tx: u.tx}
}

func (u *unitOfWork) Invoices() bookingDomain.InvoiceRepository {
	return &invoiceRepo{store: u.store, tx: u.tx}
}

// WithinTransaction runs fn against a staged journal and applies it atomically
// when fn succeeds. On error or panic every hold is dropped.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context, uow bookingDomain.UnitOfWork) error) error {
	tx := &txn{
		inserts: make(map[uuid.UUID]*bookingDomain.Booking),
		updates: make(map[uuid.UUID]stagedUpdate),
	}
	committed := false
	defer func() {
		if !committed {
			s.rollback(tx)
		}
	}()

	if err := fn(ctx, &unitOfWork{store: s, tx: tx}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.commit(tx); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *Store) commit(tx *txn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range tx.inserts {
		if _, exists := s.bookings[id]; exists {
			return domain.NewConflictError(fmt.Sprintf("booking %s already exists", id))
		}
	}
	for id, u := range tx.updates {
		current, ok := s.bookings[id]
		if !ok {
			return domain.NewNotFoundError("Booking", id.String())
		}
		if current.Version() != u.baseVersion {
			return domain.NewConflictError("booking was modified by another transaction")
		}
	}

	for _, h := range tx.holds {
		h.c.mu.Lock()
		h.c.held -= h.quantity
		h.c.remaining -= h.quantity
		h.c.mu.Unlock()
	}
	tx.holds = nil
	for _, r := range tx.releases {
		r.c.mu.Lock()
		r.c.release(r.quantity)
		r.c.mu.Unlock()
	}
	for id, b := range tx.inserts {
		s.bookings[id] = clone(b)
	}
	for id, u := range tx.updates {
		s.bookings[id] = clone(u.booking)
	}
	for _, inv := range tx.invoices {
		cp := *inv
		s.invoices[inv.BookingID] = append(s.invoices[inv.BookingID], &cp)
	}
	return nil
}

func (s *Store) rollback(tx *txn) {
	for _, h := range tx.holds {
		h.c.mu.Lock()
		h.c.held -= h.quantity
		h.c.mu.Unlock()
	}
	tx.holds = nil
}

// clone copies a booking so callers never share state with the store.
func clone(b *bookingDomain.Booking) *bookingDomain.Booking {
	return bookingDomain.ReconstructBooking(
		b.ID(),
		b.BookingNumber(),
		b.UserID(),
		b.Kind(),
		b.Legs(),
		b.Status(),
		b.TotalAmountCents(),
		b.Currency(),
		b.ConfirmedAt(),
		b.CancelledAt(),
		b.ExpiredAt(),
		b.Version(),
		b.CreatedAt(),
		b.UpdatedAt(),
	)
}
