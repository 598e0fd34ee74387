package memory

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	bookingDomain "github.com/travel-golobe/service-booking/internal/domain/booking"
	"github.com/travel-golobe/service-booking/internal/domain/inventory"
	"github.com/travel-golobe/service-booking/pkg/domain"
)

// bookingRepo implements BookingRepository. Reads inside a transaction see
// the transaction's own staged writes first.
type bookingRepo struct {
	store *Store
	tx    *txn
}

func (r *bookingRepo) FindByID(_ context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	if r.tx != nil {
		if u, ok := r.tx.updates[id]; ok {
			return clone(u.booking), nil
		}
		if b, ok := r.tx.inserts[id]; ok {
			return clone(b), nil
		}
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	b, ok := r.store.bookings[id]
	if !ok {
		return nil, domain.NewNotFoundError("Booking", id.String())
	}
	return clone(b), nil
}

func (r *bookingRepo) FindByUserID(_ context.Context, userID uuid.UUID, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	matches := r.store.filter(func(b *bookingDomain.Booking) bool { return b.UserID() == userID })
	items, total := paginate(matches, page, limit)
	return items, total, nil
}

func (r *bookingRepo) ListAll(_ context.Context, filter bookingDomain.ListFilter, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	matches := r.store.filter(func(b *bookingDomain.Booking) bool {
		if filter.Kind != "" && b.Kind() != filter.Kind {
			return false
		}
		if filter.Status != "" && b.Status() != filter.Status {
			return false
		}
		return search == "" || matchesSearch(b, search)
	})
	items, total := paginate(matches, page, limit)
	return items, total, nil
}

func (r *bookingRepo) CountByStatus(_ context.Context) (map[string]int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	counts := make(map[string]int64)
	for _, b := range r.store.bookings {
		counts[b.Status().String()]++
	}
	return counts, nil
}

func (r *bookingRepo) FindStale(_ context.Context, kind inventory.ResourceKind, statuses []bookingDomain.BookingStatus, cutoff time.Time, after bookingDomain.StaleCursor, limit int) ([]*bookingDomain.Booking, error) {
	matches := r.store.filter(func(b *bookingDomain.Booking) bool {
		if b.Kind() != kind || !slices.Contains(statuses, b.Status()) || !b.CreatedAt().Before(cutoff) {
			return false
		}
		return after.IsZero() || compareStale(bookingDomain.CursorAfter(b), after) > 0
	})
	sort.Slice(matches, func(i, j int) bool {
		return compareStale(bookingDomain.CursorAfter(matches[i]), bookingDomain.CursorAfter(matches[j])) < 0
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (r *bookingRepo) PurgeFinalized(_ context.Context, cutoff time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for id, b := range r.store.bookings {
		if b.Status().IsTerminal() && b.UpdatedAt().Before(cutoff) {
			delete(r.store.bookings, id)
			n++
		}
	}
	return n, nil
}

func (r *bookingRepo) Save(_ context.Context, bk *bookingDomain.Booking) error {
	if r.tx != nil {
		if _, exists := r.tx.inserts[bk.ID()]; exists {
			return domain.NewConflictError(fmt.Sprintf("booking %s already exists", bk.ID()))
		}
		r.tx.inserts[bk.ID()] = clone(bk)
		return nil
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, exists := r.store.bookings[bk.ID()]; exists {
		return domain.NewConflictError(fmt.Sprintf("booking %s already exists", bk.ID()))
	}
	r.store.bookings[bk.ID()] = clone(bk)
	return nil
}

// Update applies optimistic locking: the stored version must equal bk.Version()-1.
func (r *bookingRepo) Update(ctx context.Context, bk *bookingDomain.Booking) error {
	expected := bk.Version() - 1

	if r.tx != nil {
		if b, ok := r.tx.inserts[bk.ID()]; ok {
			if b.Version() != expected {
				return domain.NewConflictError("booking was modified by another transaction")
			}
			r.tx.inserts[bk.ID()] = clone(bk)
			return nil
		}
		base := expected
		if u, ok := r.tx.updates[bk.ID()]; ok {
			if u.booking.Version() != expected {
				return domain.NewConflictError("booking was modified by another transaction")
			}
			base = u.baseVersion
		} else {
			current, err := r.FindByID(ctx, bk.ID())
			if err != nil {
				return err
			}
			if current.Version() != expected {
				return domain.NewConflictError("booking was modified by another transaction")
			}
		}
		r.tx.updates[bk.ID()] = stagedUpdate{booking: clone(bk), baseVersion: base}
		return nil
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	current, ok := r.store.bookings[bk.ID()]
	if !ok || current.Version() != expected {
		return domain.NewConflictError("booking was modified by another transaction")
	}
	r.store.bookings[bk.ID()] = clone(bk)
	return nil
}

type invoiceRepo struct {
	store *Store
	tx    *txn
}

func (r *invoiceRepo) Save(_ context.Context, inv *bookingDomain.InvoiceDetail) error {
	cp := *inv
	if r.tx != nil {
		r.tx.invoices = append(r.tx.invoices, &cp)
		return nil
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.invoices[inv.BookingID] = append(r.store.invoices[inv.BookingID], &cp)
	return nil
}

func (r *invoiceRepo) FindByBookingID(_ context.Context, bookingID uuid.UUID) ([]*bookingDomain.InvoiceDetail, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	stored := r.store.invoices[bookingID]
	out := make([]*bookingDomain.InvoiceDetail, len(stored))
	for i, inv := range stored {
		cp := *inv
		out[i] = &cp
	}
	if r.tx != nil {
		for _, inv := range r.tx.invoices {
			if inv.BookingID == bookingID {
				cp := *inv
				out = append(out, &cp)
			}
		}
	}
	return out, nil
}

// filter returns clones of committed bookings matching keep, newest first.
func (s *Store) filter(keep func(*bookingDomain.Booking) bool) []*bookingDomain.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*bookingDomain.Booking
	for _, b := range s.bookings {
		if keep(b) {
			out = append(out, clone(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt().After(out[j].CreatedAt()) })
	return out
}

// compareStale orders cursors by creation time, then by ID bytes as Postgres does.
func compareStale(a, b bookingDomain.StaleCursor) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return bytes.Compare(a.ID[:], b.ID[:])
}

func paginate(items []*bookingDomain.Booking, page, limit int) ([]*bookingDomain.Booking, int64) {
	total := int64(len(items))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		return items, total
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return []*bookingDomain.Booking{}, total
	}
	end := min(start+limit, len(items))
	return items[start:end], total
}

func matchesSearch(b *bookingDomain.Booking, search string) bool {
	candidates := []string{b.BookingNumber(), b.ID().String(), b.UserID().String()}
	legs := b.Legs()
	for _, id := range []*uuid.UUID{legs.FlightID, legs.HotelID, legs.TourID, legs.RoadVehicleID} {
		if id != nil {
			candidates = append(candidates, id.String())
		}
	}
	for _, c := range candidates {
		if strings.Contains(strings.ToLower(c), search) {
			return true
		}
	}
	return false
}
