package memory

import (
	"context"

	"github.com/travel-golobe/service-booking/internal/domain/inventory"
)

// ledger implements inventory.Ledger. With a nil tx every call commits at once;
// otherwise reservations become holds and releases are deferred to commit.
type ledger struct {
	store *Store
	tx    *txn
}

func (l *ledger) Reserve(_ context.Context, ref inventory.ResourceRef, quantity int) error {
	if err := inventory.ValidateQuantity(quantity); err != nil {
		return err
	}
	c, err := l.store.counter(ref)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	available := c.remaining - c.held
	if quantity > available {
		return inventory.NewInsufficientCapacityError(ref, quantity, available)
	}
	if l.tx == nil {
		c.remaining -= quantity
		return nil
	}
	c.held += quantity
	l.tx.holds = append(l.tx.holds, adjustment{ref: ref, c: c, quantity: quantity})
	return nil
}

func (l *ledger) Release(_ context.Context, ref inventory.ResourceRef, quantity int) error {
	if err := inventory.ValidateQuantity(quantity); err != nil {
		return err
	}
	c, err := l.store.counter(ref)
	if err != nil {
		return err
	}
	if l.tx != nil {
		l.tx.releases = append(l.tx.releases, adjustment{ref: ref, c: c, quantity: quantity})
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.release(quantity)
	return nil
}

// Remaining reports committed capacity, adjusted for this transaction's own
// pending holds and releases.
func (l *ledger) Remaining(_ context.Context, ref inventory.ResourceRef) (int, error) {
	c, err := l.store.counter(ref)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	remaining, total := c.remaining, c.total
	c.mu.Unlock()

	if l.tx != nil {
		for _, h := range l.tx.holds {
			if h.ref == ref {
				remaining -= h.quantity
			}
		}
		for _, r := range l.tx.releases {
			if r.ref == ref {
				remaining = min(total, remaining+r.quantity)
			}
		}
	}
	return remaining, nil
}

// release adds quantity back without exceeding the original capacity. Callers hold c.mu.
func (c *counter) release(quantity int) {
	c.remaining = min(c.total, c.remaining+quantity)
}
