package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	bookingDomain "github.com/travel-golobe/service-booking/internal/domain/booking"
	"github.com/travel-golobe/service-booking/internal/domain/catalog"
	"github.com/travel-golobe/service-booking/internal/domain/user"
	"github.com/travel-golobe/service-booking/internal/repository/memory"
	"github.com/travel-golobe/service-booking/pkg/kafka"
	"github.com/travel-golobe/service-booking/pkg/metrics"
)

type sentNotification struct {
	email    string
	snapshot BookingSnapshot
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *fakeNotifier) SendBookingConfirmation(_ context.Context, email string, snapshot BookingSnapshot) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{email: email, snapshot: snapshot})
	return nil
}

func (n *fakeNotifier) Sent() []sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentNotification(nil), n.sent...)
}

type publishedEvent struct {
	topic string
	event kafka.CloudEvent
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *fakePublisher) PublishEvent(_ context.Context, topic string, event kafka.CloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{topic: topic, event: event})
	return nil
}

func (p *fakePublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, len(p.events))
	for i, e := range p.events {
		types[i] = e.event.Type
	}
	return types
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (a *fakeAudit) Record(_ context.Context, entry AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return nil
}

func (a *fakeAudit) Actions() []AuditAction {
	a.mu.Lock()
	defer a.mu.Unlock()
	actions := make([]AuditAction, len(a.entries))
	for i, e := range a.entries {
		actions[i] = e.Action
	}
	return actions
}

// fixedPartners always bundles the same flight and hotel, read fresh from the catalog.
type fixedPartners struct {
	catalog  catalog.Catalog
	flightID uuid.UUID
	hotelID  uuid.UUID
}

func (p fixedPartners) SelectFlight(ctx context.Context, _ *catalog.Tour) (*catalog.Flight, error) {
	return p.catalog.GetFlight(ctx, p.flightID)
}

func (p fixedPartners) SelectHotel(ctx context.Context, _ *catalog.Tour) (*catalog.Hotel, error) {
	return p.catalog.GetHotel(ctx, p.hotelID)
}

type fixture struct {
	store     *memory.Store
	svc       *BookingService
	notifier  *fakeNotifier
	publisher *fakePublisher
	audit     *fakeAudit
	metrics   *metrics.BookingMetrics
	partners  *fixedPartners
	userID    uuid.UUID

	deps BookingDeps
	opts BookingOptions
}

// serviceWithTx builds a second service over the same store that runs its
// transactions through tx.
func (f *fixture) serviceWithTx(tx bookingDomain.TxManager) *BookingService {
	deps := f.deps
	deps.Tx = tx
	return NewBookingService(deps, f.opts, zap.NewNop())
}

func newFixture(t *testing.T, tweak ...func(*BookingOptions)) *fixture {
	t.Helper()

	holidays, err := bookingDomain.ParseHolidayCalendar(time.UTC, bookingDomain.DefaultHolidays)
	require.NoError(t, err)

	store := memory.NewStore()
	userID := uuid.New()
	store.AddUser(user.User{ID: userID, Name: "Linh Tran", Email: "linh@example.com"})

	opts := DefaultBookingOptions()
	for _, fn := range tweak {
		fn(&opts)
	}

	f := &fixture{
		store:     store,
		notifier:  &fakeNotifier{},
		publisher: &fakePublisher{},
		audit:     &fakeAudit{},
		metrics:   metrics.NewBookingMetrics(prometheus.NewRegistry(), "test"),
		partners:  &fixedPartners{catalog: store},
		userID:    userID,
	}
	f.deps = BookingDeps{
		Tx:        store,
		Bookings:  store.Bookings(),
		Invoices:  store.Invoices(),
		Catalog:   store,
		Pricing:   bookingDomain.NewCalculator(holidays),
		Partners:  f.partners,
		Users:     store,
		Notifier:  f.notifier,
		Audit:     f.audit,
		Publisher: f.publisher,
		Metrics:   f.metrics,
	}
	f.opts = opts
	f.svc = NewBookingService(f.deps, opts, zap.NewNop())
	return f
}

func (f *fixture) addFlight(price int64, seats int) uuid.UUID {
	id := uuid.New()
	f.store.AddFlight(catalog.Flight{
		ID:             id,
		Code:           "VN210",
		Origin:         "HAN",
		Destination:    "SGN",
		DepartureAt:    time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC),
		PriceCents:     price,
		TotalSeats:     seats,
		RemainingSeats: seats,
	})
	return id
}

// addHotel registers a hotel with one available room priced per day.
func (f *fixture) addHotel(pricePerDay int64, rooms int) (hotelID, roomID uuid.UUID) {
	return f.addHotelWithRoom(pricePerDay, rooms, true)
}

// addHotelWithRoom registers a hotel with one room whose availability flag is given.
func (f *fixture) addHotelWithRoom(pricePerDay int64, rooms int, available bool) (hotelID, roomID uuid.UUID) {
	hotelID, roomID = uuid.New(), uuid.New()
	f.store.AddHotel(catalog.Hotel{
		ID:             hotelID,
		Name:           "Riverside",
		City:           "Da Nang",
		TotalRooms:     max(rooms, 1),
		RemainingRooms: rooms,
		Rooms: []catalog.Room{
			{ID: roomID, HotelID: hotelID, Type: "double", PricePerDayCents: pricePerDay, Available: available},
		},
	})
	return hotelID, roomID
}

func (f *fixture) addTour(price int64, slots, days int) uuid.UUID {
	id := uuid.New()
	f.store.AddTour(catalog.Tour{
		ID:              id,
		Name:            "Ha Long Bay",
		Destination:     "Quang Ninh",
		StartDate:       time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		DurationDays:    days,
		AdultPriceCents: price,
		TotalSlots:      slots,
		RemainingSlots:  slots,
	})
	return id
}

func (f *fixture) addRoadVehicle(price int64, seats int) uuid.UUID {
	id := uuid.New()
	f.store.AddRoadVehicle(catalog.RoadVehicle{
		ID:             id,
		Name:           "Limousine",
		Route:          "Hanoi - Sapa",
		PriceCents:     price,
		TotalSeats:     seats,
		RemainingSeats: seats,
	})
	return id
}
