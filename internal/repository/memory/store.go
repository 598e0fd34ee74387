// Package memory is an in-process implementation of the booking engine's
// storage contracts: catalog reads, the inventory ledger, bookings, invoices,
// users and transactions.
//
// Capacity counters sit behind one mutex each. Inside a transaction a
// reservation only places a hold on the counter (available = remaining - held);
// holds turn into decrements when the transaction commits and vanish on
// rollback, so no reader ever sees part of a multi-resource reservation.
package memory

import (
	"context"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/google/uuid"

	bookingDomain "github.com/travel-golobe/service-booking/internal/domain/booking"
	"github.com/travel-golobe/service-booking/internal/domain/catalog"
	"github.com/travel-golobe/service-booking/internal/domain/inventory"
	"github.com/travel-golobe/service-booking/internal/domain/user"
	"github.com/travel-golobe/service-booking/pkg/domain"
)

type counter struct {
	mu        sync.Mutex
	total     int
	remaining int
	held      int
}

// Store holds every record in memory. The zero value is not usable; call NewStore.
type Store struct {
	mu sync.RWMutex

	flights  map[uuid.UUID]catalog.Flight
	hotels   map[uuid.UUID]catalog.Hotel
	tours    map[uuid.UUID]catalog.Tour
	vehicles map[uuid.UUID]catalog.RoadVehicle
	users    map[uuid.UUID]user.User

	counters map[inventory.ResourceRef]*counter

	bookings map[uuid.UUID]*bookingDomain.Booking
	invoices map[uuid.UUID][]*bookingDomain.InvoiceDetail
}

var (
	_ catalog.Catalog         = (*Store)(nil)
	_ user.Directory          = (*Store)(nil)
	_ bookingDomain.TxManager = (*Store)(nil)
)

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		flights:  make(map[uuid.UUID]catalog.Flight),
		hotels:   make(map[uuid.UUID]catalog.Hotel),
		tours:    make(map[uuid.UUID]catalog.Tour),
		vehicles: make(map[uuid.UUID]catalog.RoadVehicle),
		users:    make(map[uuid.UUID]user.User),
		counters: make(map[inventory.ResourceRef]*counter),
		bookings: make(map[uuid.UUID]*bookingDomain.Booking),
		invoices: make(map[uuid.UUID][]*bookingDomain.InvoiceDetail),
	}
}

// --- Seeding ---

// AddFlight registers a flight; its seat counter starts at RemainingSeats.
func (s *Store) AddFlight(f catalog.Flight) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flights[f.ID] = f
	s.counters[inventory.Ref(inventory.KindFlight, f.ID)] = &counter{total: f.TotalSeats, remaining: f.RemainingSeats}
}

// AddHotel registers a hotel and its rooms; its room counter starts at RemainingRooms.
func (s *Store) AddHotel(h catalog.Hotel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hotels[h.ID] = h
	s.counters[inventory.Ref(inventory.KindHotel, h.ID)] = &counter{total: h.TotalRooms, remaining: h.RemainingRooms}
}

// AddTour registers a tour; its slot counter starts at RemainingSlots.
func (s *Store) AddTour(t catalog.Tour) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tours[t.ID] = t
	s.counters[inventory.Ref(inventory.KindTour, t.ID)] = &counter{total: t.TotalSlots, remaining: t.RemainingSlots}
}

// AddRoadVehicle registers a road vehicle; its seat counter starts at RemainingSeats.
func (s *Store) AddRoadVehicle(v catalog.RoadVehicle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vehicles[v.ID] = v
	s.counters[inventory.Ref(inventory.KindRoadVehicle, v.ID)] = &counter{total: v.TotalSeats, remaining: v.RemainingSeats}
}

// AddUser registers a user for the directory.
func (s *Store) AddUser(u user.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// --- catalog.Catalog ---

func (s *Store) GetFlight(_ context.Context, id uuid.UUID) (*catalog.Flight, error) {
	s.mu.RLock()
	f, ok := s.flights[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.NewNotFoundError("Flight", id.String())
	}
	f.RemainingSeats = s.committed(inventory.Ref(inventory.KindFlight, id))
	f.Tickets = append([]catalog.Ticket(nil), f.Tickets...)
	return &f, nil
}

func (s *Store) GetHotel(_ context.Context, id uuid.UUID) (*catalog.Hotel, error) {
	s.mu.RLock()
	h, ok := s.hotels[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.NewNotFoundError("Hotel", id.String())
	}
	h.RemainingRooms = s.committed(inventory.Ref(inventory.KindHotel, id))
	h.Rooms = append([]catalog.Room(nil), h.Rooms...)
	return &h, nil
}

func (s *Store) GetRoom(ctx context.Context, hotelID, roomID uuid.UUID) (*catalog.Room, error) {
	h, err := s.GetHotel(ctx, hotelID)
	if err != nil {
		return nil, err
	}
	for _, r := range h.Rooms {
		if r.ID == roomID {
			return &r, nil
		}
	}
	return nil, domain.NewNotFoundError("Room", roomID.String())
}

func (s *Store) GetTour(_ context.Context, id uuid.UUID) (*catalog.Tour, error) {
	s.mu.RLock()
	t, ok := s.tours[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.NewNotFoundError("Tour", id.String())
	}
	t.RemainingSlots = s.committed(inventory.Ref(inventory.KindTour, id))
	return &t, nil
}

func (s *Store) GetRoadVehicle(_ context.Context, id uuid.UUID) (*catalog.RoadVehicle, error) {
	s.mu.RLock()
	v, ok := s.vehicles[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.NewNotFoundError("RoadVehicle", id.String())
	}
	v.RemainingSeats = s.committed(inventory.Ref(inventory.KindRoadVehicle, id))
	return &v, nil
}

// RandomFlight picks uniformly among all flights.
func (s *Store) RandomFlight(ctx context.Context) (*catalog.Flight, error) {
	s.mu.RLock()
	id, ok := pick(s.flights)
	s.mu.RUnlock()
	if !ok {
		return nil, domain.NewNotFoundError("Flight", "any")
	}
	return s.GetFlight(ctx, id)
}

// RandomHotel picks uniformly among all hotels.
func (s *Store) RandomHotel(ctx context.Context) (*catalog.Hotel, error) {
	s.mu.RLock()
	id, ok := pick(s.hotels)
	s.mu.RUnlock()
	if !ok {
		return nil, domain.NewNotFoundError("Hotel", "any")
	}
	return s.GetHotel(ctx, id)
}

// --- user.Directory ---

func (s *Store) GetUser(_ context.Context, id uuid.UUID) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.NewNotFoundError("User", id.String())
	}
	return &u, nil
}

// --- Repositories outside a transaction ---

// Ledger returns a ledger whose operations commit immediately.
func (s *Store) Ledger() inventory.Ledger { return &ledger{store: s} }

// Bookings returns a booking repository whose writes commit immediately.
func (s *Store) Bookings() bookingDomain.BookingRepository { return &bookingRepo{store: s} }

// Invoices returns an invoice repository whose writes commit immediately.
func (s *Store) Invoices() bookingDomain.InvoiceRepository { return &invoiceRepo{store: s} }

func (s *Store) counter(ref inventory.ResourceRef) (*counter, error) {
	s.mu.RLock()
	c, ok := s.counters[ref]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.NewNotFoundError(ref.Kind.EntityName(), ref.ID.String())
	}
	return c, nil
}

func (s *Store) committed(ref inventory.ResourceRef) int {
	c, err := s.counter(ref)
	if err != nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// pick returns a uniformly random key. Keys are sorted first so the choice
// depends only on the random source, not on map iteration order.
func pick[V any](m map[uuid.UUID]V) (uuid.UUID, bool) {
	if len(m) == 0 {
		return uuid.Nil, false
	}
	keys := make([]uuid.UUID, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys[rand.IntN(len(keys))], true
}
