package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Flight is a scheduled flight with a seat counter.
type Flight struct {
	ID             uuid.UUID
	Code           string
	Origin         string
	Destination    string
	DepartureAt    time.Time
	PriceCents     int64
	TotalSeats     int
	RemainingSeats int
	Tickets        []Ticket
}

// Ticket is a fare class on a flight with its own price.
type Ticket struct {
	ID         uuid.UUID
	FlightID   uuid.UUID
	Class      string
	PriceCents int64
}

// FindTicket returns the ticket with the given ID.
func (f *Flight) FindTicket(id uuid.UUID) (Ticket, bool) {
	for _, t := range f.Tickets {
		if t.ID == id {
			return t, true
		}
	}
	return Ticket{}, false
}

// Hotel is a property whose room counter is shared by all its room types.
type Hotel struct {
	ID             uuid.UUID
	Name           string
	City           string
	TotalRooms     int
	RemainingRooms int
	Rooms          []Room
}

// Room is a bookable room type within a hotel.
type Room struct {
	ID               uuid.UUID
	HotelID          uuid.UUID
	Type             string
	PricePerDayCents int64
	Available        bool
}

// CheapestAvailableRoom returns the lowest-priced room flagged available.
func (h *Hotel) CheapestAvailableRoom() (Room, bool) {
	var (
		best  Room
		found bool
	)
	for _, r := range h.Rooms {
		if !r.Available {
			continue
		}
		if !found || r.PricePerDayCents < best.PricePerDayCents {
			best, found = r, true
		}
	}
	return best, found
}

// Tour is a packaged trip with a slot counter.
type Tour struct {
	ID              uuid.UUID
	Name            string
	Destination     string
	StartDate       time.Time
	DurationDays    int
	AdultPriceCents int64
	ChildPriceCents int64
	TotalSlots      int
	RemainingSlots  int
}

// RoadVehicle is a coach or shuttle with a seat counter.
type RoadVehicle struct {
	ID             uuid.UUID
	Name           string
	Route          string
	PriceCents     int64
	TotalSeats     int
	RemainingSeats int
}

// Catalog is the read-only view of bookable records owned by catalog management.
// Lookups of missing records return a not-found domain error.
type Catalog interface {
	GetFlight(ctx context.Context, id uuid.UUID) (*Flight, error)
	GetHotel(ctx context.Context, id uuid.UUID) (*Hotel, error)
	GetRoom(ctx context.Context, hotelID, roomID uuid.UUID) (*Room, error)
	GetTour(ctx context.Context, id uuid.UUID) (*Tour, error)
	GetRoadVehicle(ctx context.Context, id uuid.UUID) (*RoadVehicle, error)

	// RandomFlight and RandomHotel pick uniformly among all existing records.
	RandomFlight(ctx context.Context) (*Flight, error)
	RandomHotel(ctx context.Context) (*Hotel, error)
}
