package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bookingDomain "github.com/travel-golobe/service-booking/internal/domain/booking"
	"github.com/travel-golobe/service-booking/internal/domain/catalog"
	"github.com/travel-golobe/service-booking/internal/domain/inventory"
	"github.com/travel-golobe/service-booking/pkg/domain"
)

func seedRoadVehicle(s *Store, seats int) inventory.ResourceRef {
	id := uuid.New()
	s.AddRoadVehicle(catalog.RoadVehicle{ID: id, Name: "Limousine", PriceCents: 100, TotalSeats: seats, RemainingSeats: seats})
	return inventory.Ref(inventory.KindRoadVehicle, id)
}

func TestLedger_ConcurrentReserveNeverOversells(t *testing.T) {
	s := NewStore()
	ref := seedRoadVehicle(s, 5)
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		conflicts atomic.Int32
	)
	start := make(chan struct{})
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := s.WithinTransaction(ctx, func(ctx context.Context, uow bookingDomain.UnitOfWork) error {
				return uow.Ledger().Reserve(ctx, ref, 1)
			})
			switch {
			case err == nil:
				successes.Add(1)
			case domain.IsConflict(err):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(5), successes.Load())
	assert.Equal(t, int32(15), conflicts.Load())
	remaining, err := s.Ledger().Remaining(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}

func TestLedger_DirectReserveIsAtomic(t *testing.T) {
	s := NewStore()
	ref := seedRoadVehicle(s, 3)
	ctx := context.Background()

	var wg sync.WaitGroup
	var ok atomic.Int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Ledger().Reserve(ctx, ref, 1) == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(3), ok.Load())
}

func TestLedger_RollbackDropsHolds(t *testing.T) {
	s := NewStore()
	first := seedRoadVehicle(s, 2)
	second := seedRoadVehicle(s, 0)
	ctx := context.Background()

	err := s.WithinTransaction(ctx, func(ctx context.Context, uow bookingDomain.UnitOfWork) error {
		require.NoError(t, uow.Ledger().Reserve(ctx, first, 2))

		inTx, err := uow.Ledger().Remaining(ctx, first)
		require.NoError(t, err)
		assert.Equal(t, 0, inTx)

		outside, err := s.Ledger().Remaining(ctx, first)
		require.NoError(t, err)
		assert.Equal(t, 2, outside, "holds must not be visible outside the transaction")

		return uow.Ledger().Reserve(ctx, second, 1)
	})
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))

	remaining, err := s.Ledger().Remaining(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)

	// The released hold is reservable again.
	require.NoError(t, s.Ledger().Reserve(ctx, first, 2))
}

func TestLedger_RollbackOnPanic(t *testing.T) {
	s := NewStore()
	ref := seedRoadVehicle(s, 1)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = s.WithinTransaction(ctx, func(ctx context.Context, uow bookingDomain.UnitOfWork) error {
			require.NoError(t, uow.Ledger().Reserve(ctx, ref, 1))
			panic("boom")
		})
	})
	require.NoError(t, s.Ledger().Reserve(ctx, ref, 1))
}

func TestLedger_ReleaseNeverExceedsCapacity(t *testing.T) {
	s := NewStore()
	ref := seedRoadVehicle(s, 4)
	ctx := context.Background()

	require.NoError(t, s.Ledger().Reserve(ctx, ref, 1))
	require.NoError(t, s.Ledger().Release(ctx, ref, 3))

	remaining, err := s.Ledger().Remaining(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, 4, remaining)
}

func TestLedger_ReleaseInsideTransactionAppliesOnCommit(t *testing.T) {
	s := NewStore()
	ref := seedRoadVehicle(s, 4)
	ctx := context.Background()
	require.NoError(t, s.Ledger().Reserve(ctx, ref, 2))

	boom := errors.New("boom")
	err := s.WithinTransaction(ctx, func(ctx context.Context, uow bookingDomain.UnitOfWork) error {
		require.NoError(t, uow.Ledger().Release(ctx, ref, 2))
		return boom
	})
	require.ErrorIs(t, err, boom)
	remaining, _ := s.Ledger().Remaining(ctx, ref)
	assert.Equal(t, 2, remaining)

	require.NoError(t, s.WithinTransaction(ctx, func(ctx context.Context, uow bookingDomain.UnitOfWork) error {
		return uow.Ledger().Release(ctx, ref, 2)
	}))
	remaining, _ = s.Ledger().Remaining(ctx, ref)
	assert.Equal(t, 4, remaining)
}

func TestLedger_ValidationAndNotFound(t *testing.T) {
	s := NewStore()
	ref := seedRoadVehicle(s, 1)
	ctx := context.Background()

	assert.True(t, domain.IsValidation(s.Ledger().Reserve(ctx, ref, 0)))
	assert.True(t, domain.IsValidation(s.Ledger().Release(ctx, ref, -1)))
	assert.True(t, domain.IsNotFound(s.Ledger().Reserve(ctx, inventory.Ref(inventory.KindFlight, uuid.New()), 1)))
}

func newPendingBooking(t *testing.T, ref inventory.ResourceRef) *bookingDomain.Booking {
	t.Helper()
	id := ref.ID
	b, err := bookingDomain.NewBooking(uuid.New(), inventory.KindRoadVehicle, bookingDomain.Legs{
		RoadVehicleID:       &id,
		RoadVehicleQuantity: 1,
	}, 100, domain.CurrencyVND)
	require.NoError(t, err)
	return b
}

func TestBookings_InsertVisibleOnlyAfterCommit(t *testing.T) {
	s := NewStore()
	ref := seedRoadVehicle(s, 1)
	ctx := context.Background()
	b := newPendingBooking(t, ref)

	require.NoError(t, s.WithinTransaction(ctx, func(ctx context.Context, uow bookingDomain.UnitOfWork) error {
		require.NoError(t, uow.Bookings().Save(ctx, b))
		_, err := uow.Bookings().FindByID(ctx, b.ID())
		require.NoError(t, err)

		_, err = s.Bookings().FindByID(ctx, b.ID())
		assert.True(t, domain.IsNotFound(err))
		return nil
	}))

	got, err := s.Bookings().FindByID(ctx, b.ID())
	require.NoError(t, err)
	assert.Equal(t, b.BookingNumber(), got.BookingNumber())
}

func TestBookings_ConcurrentUpdatesConflict(t *testing.T) {
	s := NewStore()
	ref := seedRoadVehicle(s, 1)
	ctx := context.Background()
	b := newPendingBooking(t, ref)
	require.NoError(t, s.Bookings().Save(ctx, b))

	first, err := s.Bookings().FindByID(ctx, b.ID())
	require.NoError(t, err)
	second, err := s.Bookings().FindByID(ctx, b.ID())
	require.NoError(t, err)

	_, err = first.Confirm()
	require.NoError(t, err)
	first.IncrementVersion()
	require.NoError(t, s.Bookings().Update(ctx, first))

	require.NoError(t, second.Cancel())
	second.IncrementVersion()
	err = s.Bookings().Update(ctx, second)
	assert.True(t, domain.IsConflict(err))

	got, _ := s.Bookings().FindByID(ctx, b.ID())
	assert.Equal(t, bookingDomain.StatusConfirmed, got.Status())
}

func TestBookings_StagedUpdateConflictsAtCommit(t *testing.T) {
	s := NewStore()
	ref := seedRoadVehicle(s, 1)
	ctx := context.Background()
	b := newPendingBooking(t, ref)
	require.NoError(t, s.Bookings().Save(ctx, b))

	err := s.WithinTransaction(ctx, func(ctx context.Context, uow bookingDomain.UnitOfWork) error {
		inTx, err := uow.Bookings().FindByID(ctx, b.ID())
		require.NoError(t, err)
		require.NoError(t, inTx.Cancel())
		inTx.IncrementVersion()
		require.NoError(t, uow.Bookings().Update(ctx, inTx))

		// A competing writer commits first.
		outside, _ := s.Bookings().FindByID(ctx, b.ID())
		_, _ = outside.Confirm()
		outside.IncrementVersion()
		require.NoError(t, s.Bookings().Update(ctx, outside))
		return nil
	})
	assert.True(t, domain.IsConflict(err))

	got, _ := s.Bookings().FindByID(ctx, b.ID())
	assert.Equal(t, bookingDomain.StatusConfirmed, got.Status())
}

func TestBookings_FindStaleAndPurge(t *testing.T) {
	s := NewStore()
	ref := seedRoadVehicle(s, 3)
	ctx := context.Background()

	old := backdate(newPendingBooking(t, ref), 48*time.Hour)
	require.NoError(t, s.Bookings().Save(ctx, old))
	fresh := newPendingBooking(t, ref)
	require.NoError(t, s.Bookings().Save(ctx, fresh))

	cutoff := time.Now().Add(-24 * time.Hour)
	stale, err := s.Bookings().FindStale(ctx, inventory.KindRoadVehicle, []bookingDomain.BookingStatus{bookingDomain.StatusPending}, cutoff, bookingDomain.StaleCursor{}, 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, old.ID(), stale[0].ID())

	past, err := s.Bookings().FindStale(ctx, inventory.KindRoadVehicle, []bookingDomain.BookingStatus{bookingDomain.StatusPending}, cutoff, bookingDomain.CursorAfter(old), 10)
	require.NoError(t, err)
	assert.Empty(t, past)

	none, err := s.Bookings().FindStale(ctx, inventory.KindFlight, []bookingDomain.BookingStatus{bookingDomain.StatusPending}, cutoff, bookingDomain.StaleCursor{}, 10)
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, old.Expire(false))
	old.IncrementVersion()
	require.NoError(t, s.Bookings().Update(ctx, old))

	purged, err := s.Bookings().PurgeFinalized(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
	_, err = s.Bookings().FindByID(ctx, old.ID())
	assert.True(t, domain.IsNotFound(err))
	_, err = s.Bookings().FindByID(ctx, fresh.ID())
	assert.NoError(t, err)
}

func TestBookings_ListAllFiltersAndPaginates(t *testing.T) {
	s := NewStore()
	ref := seedRoadVehicle(s, 10)
	ctx := context.Background()

	var last *bookingDomain.Booking
	for i := 0; i < 3; i++ {
		last = newPendingBooking(t, ref)
		require.NoError(t, s.Bookings().Save(ctx, last))
	}

	items, total, err := s.Bookings().ListAll(ctx, bookingDomain.ListFilter{Kind: inventory.KindRoadVehicle}, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, items, 2)

	items, total, err = s.Bookings().ListAll(ctx, bookingDomain.ListFilter{Search: last.BookingNumber()[3:]}, 1, 10)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, total, int64(1))
	assert.Contains(t, bookingIDs(items), last.ID())

	_, total, err = s.Bookings().ListAll(ctx, bookingDomain.ListFilter{Kind: inventory.KindHotel}, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)

	counts, err := s.Bookings().CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts["PENDING"])
}

func TestCatalog_RandomAndRoom(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	_, err := s.RandomHotel(ctx)
	assert.True(t, domain.IsNotFound(err))

	hotelID, roomID := uuid.New(), uuid.New()
	s.AddHotel(catalog.Hotel{
		ID: hotelID, Name: "Riverside", TotalRooms: 2, RemainingRooms: 2,
		Rooms: []catalog.Room{{ID: roomID, HotelID: hotelID, Type: "double", PricePerDayCents: 50, Available: true}},
	})

	h, err := s.RandomHotel(ctx)
	require.NoError(t, err)
	assert.Equal(t, hotelID, h.ID)

	room, err := s.GetRoom(ctx, hotelID, roomID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), room.PricePerDayCents)

	_, err = s.GetRoom(ctx, hotelID, uuid.New())
	assert.True(t, domain.IsNotFound(err))
}

func backdate(b *bookingDomain.Booking, age time.Duration) *bookingDomain.Booking {
	created := b.CreatedAt().Add(-age)
	return bookingDomain.ReconstructBooking(b.ID(), b.BookingNumber(), b.UserID(), b.Kind(), b.Legs(), b.Status(),
		b.TotalAmountCents(), b.Currency(), nil, nil, nil, b.Version(), created, created)
}

func bookingIDs(items []*bookingDomain.Booking) []uuid.UUID {
	ids := make([]uuid.UUID, len(items))
	for i, b := range items {
		ids[i] = b.ID()
	}
	return ids
}
