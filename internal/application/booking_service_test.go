package application

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bookingDomain "github.com/travel-golobe/service-booking/internal/domain/booking"
	"github.com/travel-golobe/service-booking/internal/domain/catalog"
	"github.com/travel-golobe/service-booking/internal/domain/inventory"
	"github.com/travel-golobe/service-booking/pkg/domain"
	"github.com/travel-golobe/service-booking/pkg/events"
)

func remaining(t *testing.T, f *fixture, kind inventory.ResourceKind, id uuid.UUID) int {
	t.Helper()
	n, err := f.store.Ledger().Remaining(context.Background(), inventory.Ref(kind, id))
	require.NoError(t, err)
	return n
}

func TestBookFlight_Pricing(t *testing.T) {
	tests := []struct {
		name  string
		date  string
		total int64
	}{
		{name: "regular day", date: "15-01-2024", total: 200},
		{name: "holiday surcharge", date: "01-01-2024", total: 240},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			flightID := f.addFlight(100, 10)

			dto, err := f.svc.BookFlight(context.Background(), f.userID, BookFlightRequest{
				FlightID:   flightID,
				Quantity:   2,
				FlightDate: tt.date,
			})
			require.NoError(t, err)

			assert.Equal(t, tt.total, dto.TotalAmount)
			assert.Equal(t, "PENDING", dto.Status)
			assert.Equal(t, "VND", dto.Currency)
			assert.Equal(t, tt.date, dto.FlightDate)
			assert.Equal(t, 8, remaining(t, f, inventory.KindFlight, flightID))
		})
	}
}

func TestBookFlight_TicketPriceOverridesFlightPrice(t *testing.T) {
	f := newFixture(t)
	flightID := f.addFlight(100, 10)
	flight, err := f.store.GetFlight(context.Background(), flightID)
	require.NoError(t, err)

	ticketID := uuid.New()
	flight.Tickets = append(flight.Tickets, catalog.Ticket{ID: ticketID, FlightID: flightID, Class: "business", PriceCents: 150})
	f.store.AddFlight(*flight)

	dto, err := f.svc.BookFlight(context.Background(), f.userID, BookFlightRequest{
		FlightID:   flightID,
		TicketID:   &ticketID,
		Quantity:   1,
		FlightDate: "15-01-2024",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(150), dto.TotalAmount)

	missing := uuid.New()
	_, err = f.svc.BookFlight(context.Background(), f.userID, BookFlightRequest{
		FlightID:   flightID,
		TicketID:   &missing,
		Quantity:   1,
		FlightDate: "15-01-2024",
	})
	assert.True(t, domain.IsNotFound(err))
}

func TestBookFlight_RejectsBadInput(t *testing.T) {
	f := newFixture(t)
	flightID := f.addFlight(100, 1)
	ctx := context.Background()

	_, err := f.svc.BookFlight(ctx, f.userID, BookFlightRequest{FlightID: flightID, Quantity: 1, FlightDate: "2024-01-15"})
	assert.True(t, domain.IsValidation(err))

	_, err = f.svc.BookFlight(ctx, f.userID, BookFlightRequest{FlightID: flightID, Quantity: 0, FlightDate: "15-01-2024"})
	assert.True(t, domain.IsValidation(err))

	_, err = f.svc.BookFlight(ctx, f.userID, BookFlightRequest{FlightID: uuid.New(), Quantity: 1, FlightDate: "15-01-2024"})
	assert.True(t, domain.IsNotFound(err))

	_, err = f.svc.BookFlight(ctx, f.userID, BookFlightRequest{FlightID: flightID, Quantity: 1 << 62, FlightDate: "15-01-2024"})
	assert.True(t, domain.IsValidation(err))

	_, err = f.svc.BookFlight(ctx, f.userID, BookFlightRequest{FlightID: flightID, Quantity: 2, FlightDate: "15-01-2024"})
	assert.True(t, domain.IsConflict(err))
	assert.Equal(t, 1, remaining(t, f, inventory.KindFlight, flightID))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ReserveConflicts.WithLabelValues("flight")))
}

func TestBookHotel_ChargesPerNight(t *testing.T) {
	f := newFixture(t)
	hotelID, roomID := f.addHotel(50, 3)
	ctx := context.Background()

	dto, err := f.svc.BookHotel(ctx, f.userID, BookHotelRequest{
		HotelID:      hotelID,
		RoomID:       roomID,
		Quantity:     1,
		CheckInDate:  "10-01-2024",
		CheckOutDate: "12-01-2024",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(100), dto.TotalAmount)
	assert.Equal(t, "10-01-2024", dto.CheckInDate)
	assert.Equal(t, "12-01-2024", dto.CheckOutDate)
	assert.Equal(t, 2, remaining(t, f, inventory.KindHotel, hotelID))

	_, err = f.svc.BookHotel(ctx, f.userID, BookHotelRequest{
		HotelID:      hotelID,
		RoomID:       roomID,
		Quantity:     1,
		CheckInDate:  "10-01-2024",
		CheckOutDate: "10-01-2024",
	})
	assert.True(t, domain.IsValidation(err))
	assert.Equal(t, 2, remaining(t, f, inventory.KindHotel, hotelID))
}

func TestBookHotel_RejectsUnbookableRooms(t *testing.T) {
	tests := []struct {
		name      string
		available bool
		rooms     int
		otherRoom bool
		unknown   bool
		wantKind  domain.ErrorKind
	}{
		{name: "room flagged unavailable", available: false, rooms: 3, wantKind: domain.KindConflict},
		{name: "unknown room", available: true, rooms: 3, unknown: true, wantKind: domain.KindNotFound},
		{name: "room of another hotel", available: true, rooms: 3, otherRoom: true, wantKind: domain.KindNotFound},
		{name: "hotel sold out", available: true, rooms: 0, wantKind: domain.KindConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			hotelID, roomID := f.addHotelWithRoom(50, tt.rooms, tt.available)
			switch {
			case tt.unknown:
				roomID = uuid.New()
			case tt.otherRoom:
				_, roomID = f.addHotel(50, 3)
			}

			_, err := f.svc.BookHotel(context.Background(), f.userID, BookHotelRequest{
				HotelID:      hotelID,
				RoomID:       roomID,
				Quantity:     1,
				CheckInDate:  "10-01-2024",
				CheckOutDate: "12-01-2024",
			})
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, domain.KindOf(err))
			assert.Equal(t, tt.rooms, remaining(t, f, inventory.KindHotel, hotelID))
		})
	}
}

func TestBookRoadVehicle(t *testing.T) {
	f := newFixture(t)
	vehicleID := f.addRoadVehicle(30, 4)

	dto, err := f.svc.BookRoadVehicle(context.Background(), f.userID, BookRoadVehicleRequest{RoadVehicleID: vehicleID, Quantity: 3})
	require.NoError(t, err)

	assert.Equal(t, int64(90), dto.TotalAmount)
	assert.Equal(t, "road_vehicle", dto.Kind)
	assert.Equal(t, 1, remaining(t, f, inventory.KindRoadVehicle, vehicleID))
	assert.Equal(t, []string{events.BookingCreated}, f.publisher.Types())
}

func TestBookTour_BundleReservesEveryLeg(t *testing.T) {
	f := newFixture(t)
	tourID := f.addTour(300, 5, 2)
	f.partners.flightID = f.addFlight(100, 5)
	f.partners.hotelID, _ = f.addHotel(50, 5)

	dto, err := f.svc.BookTour(context.Background(), f.userID, BookTourRequest{TourID: tourID})
	require.NoError(t, err)

	assert.True(t, dto.Bundle)
	assert.Equal(t, "tour", dto.Kind)
	// tour 300 + flight 100 + hotel 50 x 2 nights
	assert.Equal(t, int64(500), dto.TotalAmount)
	assert.Equal(t, "10-03-2024", dto.CheckInDate)
	assert.Equal(t, "12-03-2024", dto.CheckOutDate)
	assert.Equal(t, 4, remaining(t, f, inventory.KindTour, tourID))
	assert.Equal(t, 4, remaining(t, f, inventory.KindFlight, f.partners.flightID))
	assert.Equal(t, 4, remaining(t, f, inventory.KindHotel, f.partners.hotelID))
}

func TestBookTour_BundleIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	tourID := f.addTour(300, 5, 2)
	f.partners.flightID = f.addFlight(100, 5)
	f.partners.hotelID, _ = f.addHotel(50, 0)

	_, err := f.svc.BookTour(context.Background(), f.userID, BookTourRequest{TourID: tourID})
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))

	assert.Equal(t, 5, remaining(t, f, inventory.KindTour, tourID))
	assert.Equal(t, 5, remaining(t, f, inventory.KindFlight, f.partners.flightID))
	assert.Equal(t, 0, remaining(t, f, inventory.KindHotel, f.partners.hotelID))

	_, total, err := f.svc.ListAllBookings(context.Background(), ListBookingsQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, f.publisher.Types())
}

func TestBookTour_BundleNeedsAnAvailableRoom(t *testing.T) {
	f := newFixture(t)
	tourID := f.addTour(300, 5, 2)
	f.partners.flightID = f.addFlight(100, 5)
	f.partners.hotelID, _ = f.addHotelWithRoom(50, 5, false)

	_, err := f.svc.BookTour(context.Background(), f.userID, BookTourRequest{TourID: tourID})
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))
	assert.Contains(t, err.Error(), "no available rooms")

	assert.Equal(t, 5, remaining(t, f, inventory.KindTour, tourID))
	assert.Equal(t, 5, remaining(t, f, inventory.KindFlight, f.partners.flightID))
	assert.Equal(t, 5, remaining(t, f, inventory.KindHotel, f.partners.hotelID))
}

func TestBookTour_TourOnlyAndQuantities(t *testing.T) {
	f := newFixture(t)
	tourID := f.addTour(300, 5, 2)
	ctx := context.Background()

	dto, err := f.svc.BookTour(ctx, f.userID, BookTourRequest{TourID: tourID, TourQuantity: 2, TourOnly: true})
	require.NoError(t, err)
	assert.False(t, dto.Bundle)
	assert.Nil(t, dto.FlightID)
	assert.Nil(t, dto.HotelID)
	assert.Equal(t, int64(600), dto.TotalAmount)
	assert.Equal(t, 3, remaining(t, f, inventory.KindTour, tourID))

	_, err = f.svc.BookTour(ctx, f.userID, BookTourRequest{TourID: tourID, TourQuantity: -1, TourOnly: true})
	assert.True(t, domain.IsValidation(err))
}

func TestConfirmBooking_WritesOneInvoiceAndNotification(t *testing.T) {
	f := newFixture(t)
	vehicleID := f.addRoadVehicle(30, 4)
	ctx := context.Background()

	created, err := f.svc.BookRoadVehicle(ctx, f.userID, BookRoadVehicleRequest{RoadVehicleID: vehicleID, Quantity: 2})
	require.NoError(t, err)

	confirmed, err := f.svc.ConfirmBooking(ctx, created.ID, f.userID)
	require.NoError(t, err)
	assert.Equal(t, "CONFIRMED", confirmed.Status)
	require.Len(t, confirmed.Invoices, 1)
	assert.Equal(t, int64(60), confirmed.Invoices[0].TotalAmount)
	assert.NotNil(t, confirmed.ConfirmedAt)

	again, err := f.svc.ConfirmBooking(ctx, created.ID, f.userID)
	require.NoError(t, err)
	assert.Equal(t, "CONFIRMED", again.Status)
	require.Len(t, again.Invoices, 1)
	assert.Equal(t, confirmed.Invoices[0].ID, again.Invoices[0].ID)

	f.svc.Drain()
	sent := f.notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "linh@example.com", sent[0].email)
	assert.Equal(t, created.BookingNumber, sent[0].snapshot.BookingNumber)
	assert.Equal(t, "Linh Tran", sent[0].snapshot.UserName)

	assert.Equal(t, []string{events.BookingCreated, events.BookingConfirmed}, f.publisher.Types())
	assert.ElementsMatch(t, []AuditAction{AuditCreated, AuditConfirmed}, f.audit.Actions())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.BookingsConfirmed))
	assert.Equal(t, 2, remaining(t, f, inventory.KindRoadVehicle, vehicleID))
}

func TestConfirmBooking_ConcurrentConfirmsWriteOneInvoice(t *testing.T) {
	f := newFixture(t)
	vehicleID := f.addRoadVehicle(30, 4)
	ctx := context.Background()

	created, err := f.svc.BookRoadVehicle(ctx, f.userID, BookRoadVehicleRequest{RoadVehicleID: vehicleID, Quantity: 1})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dto, err := f.svc.ConfirmBooking(ctx, created.ID, f.userID)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			assert.Equal(t, "CONFIRMED", dto.Status)
			assert.Len(t, dto.Invoices, 1)
		}()
	}
	wg.Wait()
	f.svc.Drain()

	got, err := f.svc.GetBooking(ctx, created.ID, f.userID, false)
	require.NoError(t, err)
	assert.Equal(t, "CONFIRMED", got.Status)
	assert.Len(t, got.Invoices, 1)
	assert.Len(t, f.notifier.Sent(), 1)
}

func TestConfirmBooking_LoserOfVersionRaceReturnsConfirmedBooking(t *testing.T) {
	f := newFixture(t)
	vehicleID := f.addRoadVehicle(30, 4)
	ctx := context.Background()

	created, err := f.svc.BookRoadVehicle(ctx, f.userID, BookRoadVehicleRequest{RoadVehicleID: vehicleID, Quantity: 1})
	require.NoError(t, err)

	var winner *BookingDTO
	racing := racingTx{inner: f.store, before: func() {
		var confirmErr error
		winner, confirmErr = f.svc.ConfirmBooking(ctx, created.ID, f.userID)
		require.NoError(t, confirmErr)
	}}

	loser, err := f.serviceWithTx(&racing).ConfirmBooking(ctx, created.ID, f.userID)
	require.NoError(t, err)
	require.NotNil(t, winner)

	assert.Equal(t, "CONFIRMED", loser.Status)
	require.Len(t, loser.Invoices, 1)
	assert.Equal(t, winner.Invoices[0].ID, loser.Invoices[0].ID)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.BookingsConfirmed))
	f.svc.Drain()
	assert.Len(t, f.notifier.Sent(), 1)
}

// racingTx runs before once, just ahead of the first booking update, to let a
// competing request commit between the read and the write.
type racingTx struct {
	inner  bookingDomain.TxManager
	before func()
	once   sync.Once
}

func (r *racingTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context, uow bookingDomain.UnitOfWork) error) error {
	return r.inner.WithinTransaction(ctx, func(ctx context.Context, uow bookingDomain.UnitOfWork) error {
		return fn(ctx, racingUnitOfWork{UnitOfWork: uow, tx: r})
	})
}

type racingUnitOfWork struct {
	bookingDomain.UnitOfWork
	tx *racingTx
}

func (u racingUnitOfWork) Bookings() bookingDomain.BookingRepository {
	return racingBookings{BookingRepository: u.UnitOfWork.Bookings(), tx: u.tx}
}

type racingBookings struct {
	bookingDomain.BookingRepository
	tx *racingTx
}

func (b racingBookings) Update(ctx context.Context, bk *bookingDomain.Booking) error {
	b.tx.once.Do(b.tx.before)
	return b.BookingRepository.Update(ctx, bk)
}

func TestConfirmBooking_RejectsFinalizedBooking(t *testing.T) {
	f := newFixture(t)
	vehicleID := f.addRoadVehicle(30, 4)
	ctx := context.Background()

	created, err := f.svc.BookRoadVehicle(ctx, f.userID, BookRoadVehicleRequest{RoadVehicleID: vehicleID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.svc.CancelBooking(ctx, created.ID, f.userID)
	require.NoError(t, err)

	_, err = f.svc.ConfirmBooking(ctx, created.ID, f.userID)
	assert.True(t, domain.IsConflict(err))

	_, err = f.svc.CancelBooking(ctx, created.ID, f.userID)
	assert.Equal(t, domain.KindInvalidState, domain.KindOf(err))

	f.svc.Drain()
	assert.Empty(t, f.notifier.Sent())
}

func TestOwnership(t *testing.T) {
	f := newFixture(t)
	vehicleID := f.addRoadVehicle(30, 4)
	ctx := context.Background()
	stranger := uuid.New()

	created, err := f.svc.BookRoadVehicle(ctx, f.userID, BookRoadVehicleRequest{RoadVehicleID: vehicleID, Quantity: 1})
	require.NoError(t, err)

	_, err = f.svc.ConfirmBooking(ctx, created.ID, stranger)
	assert.True(t, domain.IsUnauthorized(err))

	_, err = f.svc.CancelBooking(ctx, created.ID, stranger)
	assert.True(t, domain.IsUnauthorized(err))

	_, err = f.svc.GetBooking(ctx, created.ID, stranger, false)
	assert.True(t, domain.IsUnauthorized(err))

	asAdmin, err := f.svc.GetBooking(ctx, created.ID, stranger, true)
	require.NoError(t, err)
	assert.Equal(t, "PENDING", asAdmin.Status)
	assert.Equal(t, int64(1), asAdmin.Version)
	assert.Equal(t, 3, remaining(t, f, inventory.KindRoadVehicle, vehicleID))

	f.svc.Drain()
	assert.Empty(t, f.notifier.Sent())
}

func TestConfirmBooking_UnknownUser(t *testing.T) {
	f := newFixture(t)
	vehicleID := f.addRoadVehicle(30, 4)
	ctx := context.Background()
	ghost := uuid.New()

	created, err := f.svc.BookRoadVehicle(ctx, ghost, BookRoadVehicleRequest{RoadVehicleID: vehicleID, Quantity: 1})
	require.NoError(t, err)

	_, err = f.svc.ConfirmBooking(ctx, created.ID, ghost)
	assert.True(t, domain.IsNotFound(err))

	got, err := f.svc.GetBooking(ctx, created.ID, ghost, false)
	require.NoError(t, err)
	assert.Equal(t, "PENDING", got.Status)
	assert.Empty(t, got.Invoices)
}

func TestCancelBooking_Release(t *testing.T) {
	tests := []struct {
		name      string
		release   bool
		confirm   bool
		remaining int
	}{
		{name: "pending releases", release: true, remaining: 4},
		{name: "confirmed releases", release: true, confirm: true, remaining: 4},
		{name: "release disabled", release: false, remaining: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, func(o *BookingOptions) { o.ReleaseOnCancel = tt.release })
			vehicleID := f.addRoadVehicle(30, 4)
			ctx := context.Background()

			created, err := f.svc.BookRoadVehicle(ctx, f.userID, BookRoadVehicleRequest{RoadVehicleID: vehicleID, Quantity: 2})
			require.NoError(t, err)
			if tt.confirm {
				_, err = f.svc.ConfirmBooking(ctx, created.ID, f.userID)
				require.NoError(t, err)
			}

			cancelled, err := f.svc.CancelBooking(ctx, created.ID, f.userID)
			require.NoError(t, err)
			assert.Equal(t, "CANCELLED", cancelled.Status)
			assert.NotNil(t, cancelled.CancelledAt)
			assert.Equal(t, tt.remaining, remaining(t, f, inventory.KindRoadVehicle, vehicleID))
			f.svc.Drain()
		})
	}
}

func TestCancelBooking_BundleReleasesEveryLeg(t *testing.T) {
	f := newFixture(t)
	tourID := f.addTour(300, 5, 2)
	f.partners.flightID = f.addFlight(100, 5)
	f.partners.hotelID, _ = f.addHotel(50, 5)
	ctx := context.Background()

	created, err := f.svc.BookTour(ctx, f.userID, BookTourRequest{TourID: tourID, TourQuantity: 2, FlightQuantity: 2, HotelQuantity: 1})
	require.NoError(t, err)

	_, err = f.svc.CancelBooking(ctx, created.ID, f.userID)
	require.NoError(t, err)

	assert.Equal(t, 5, remaining(t, f, inventory.KindTour, tourID))
	assert.Equal(t, 5, remaining(t, f, inventory.KindFlight, f.partners.flightID))
	assert.Equal(t, 5, remaining(t, f, inventory.KindHotel, f.partners.hotelID))
	f.svc.Drain()
}

func TestListingAndStats(t *testing.T) {
	f := newFixture(t)
	vehicleID := f.addRoadVehicle(30, 10)
	flightID := f.addFlight(100, 10)
	ctx := context.Background()

	first, err := f.svc.BookRoadVehicle(ctx, f.userID, BookRoadVehicleRequest{RoadVehicleID: vehicleID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.svc.BookFlight(ctx, f.userID, BookFlightRequest{FlightID: flightID, Quantity: 1, FlightDate: "15-01-2024"})
	require.NoError(t, err)
	_, err = f.svc.BookRoadVehicle(ctx, uuid.New(), BookRoadVehicleRequest{RoadVehicleID: vehicleID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.svc.CancelBooking(ctx, first.ID, f.userID)
	require.NoError(t, err)

	mine, err := f.svc.ListUserBookings(ctx, f.userID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), mine.Total)
	assert.Len(t, mine.Items, 2)

	vehicles, total, err := f.svc.ListAllBookings(ctx, ListBookingsQuery{Kind: "road_vehicle", Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, vehicles, 2)

	cancelled, total, err := f.svc.ListAllBookings(ctx, ListBookingsQuery{Status: "CANCELLED", Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, first.ID, cancelled[0].ID)

	found, _, err := f.svc.ListAllBookings(ctx, ListBookingsQuery{Search: first.BookingNumber, Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, first.ID, found[0].ID)

	_, _, err = f.svc.ListAllBookings(ctx, ListBookingsQuery{Status: "SHIPPED", Page: 1, Limit: 10})
	assert.True(t, domain.IsValidation(err))

	stats, err := f.svc.GetBookingStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalBookings)
	assert.Equal(t, int64(2), stats.ByStatus[bookingDomain.StatusPending.String()])
	assert.Equal(t, int64(1), stats.ByStatus[bookingDomain.StatusCancelled.String()])
	f.svc.Drain()
}
