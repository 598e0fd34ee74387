package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/travel-golobe/service-booking/internal/domain/catalog"
	"github.com/travel-golobe/service-booking/pkg/domain"
)

// FlightModel is the GORM model for the flights table.
type FlightModel struct {
	ID             uuid.UUID           `gorm:"type:uuid;primaryKey"`
	Code           string              `gorm:"not null;size:20;index"`
	Origin         string              `gorm:"not null;size:100"`
	Destination    string              `gorm:"not null;size:100"`
	DepartureAt    time.Time           `gorm:"not null"`
	PriceCents     int64               `gorm:"not null;check:price_cents >= 0"`
	TotalSeats     int                 `gorm:"not null;check:total_seats >= 0"`
	RemainingSeats int                 `gorm:"not null;check:remaining_seats >= 0"`
	Tickets        []FlightTicketModel `gorm:"foreignKey:FlightID"`
	CreatedAt      time.Time           `gorm:"not null"`
	UpdatedAt      time.Time           `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (FlightModel) TableName() string { return "flights" }

// FlightTicketModel is the GORM model for the flight_tickets table.
type FlightTicketModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	FlightID   uuid.UUID `gorm:"type:uuid;index;not null"`
	Class      string    `gorm:"not null;size:30"`
	PriceCents int64     `gorm:"not null;check:price_cents >= 0"`
}

// TableName returns the table name for the GORM model.
func (FlightTicketModel) TableName() string { return "flight_tickets" }

// HotelModel is the GORM model for the hotels table.
type HotelModel struct {
	ID             uuid.UUID   `gorm:"type:uuid;primaryKey"`
	Name           string      `gorm:"not null;size:200"`
	City           string      `gorm:"not null;size:100;index"`
	TotalRooms     int         `gorm:"not null;check:total_rooms >= 0"`
	RemainingRooms int         `gorm:"not null;check:remaining_rooms >= 0"`
	Rooms          []RoomModel `gorm:"foreignKey:HotelID"`
	CreatedAt      time.Time   `gorm:"not null"`
	UpdatedAt      time.Time   `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (HotelModel) TableName() string { return "hotels" }

// RoomModel is the GORM model for the rooms table.
type RoomModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	HotelID          uuid.UUID `gorm:"type:uuid;index;not null"`
	Type             string    `gorm:"not null;size:50"`
	PricePerDayCents int64     `gorm:"not null;check:price_per_day_cents >= 0"`
	Available        bool      `gorm:"not null;default:true"`
}

// TableName returns the table name for the GORM model.
func (RoomModel) TableName() string { return "rooms" }

// TourModel is the GORM model for the tours table.
type TourModel struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name            string    `gorm:"not null;size:200"`
	Destination     string    `gorm:"not null;size:100"`
	StartDate       time.Time `gorm:"not null"`
	DurationDays    int       `gorm:"not null;default:1"`
	AdultPriceCents int64     `gorm:"not null;check:adult_price_cents >= 0"`
	ChildPriceCents int64     `gorm:"not null;default:0"`
	TotalSlots      int       `gorm:"not null;check:total_slots >= 0"`
	RemainingSlots  int       `gorm:"not null;check:remaining_slots >= 0"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (TourModel) TableName() string { return "tours" }

// RoadVehicleModel is the GORM model for the road_vehicles table.
type RoadVehicleModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name           string    `gorm:"not null;size:200"`
	Route          string    `gorm:"not null;size:200"`
	PriceCents     int64     `gorm:"not null;check:price_cents >= 0"`
	TotalSeats     int       `gorm:"not null;check:total_seats >= 0"`
	RemainingSeats int       `gorm:"not null;check:remaining_seats >= 0"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (RoadVehicleModel) TableName() string { return "road_vehicles" }

// GormCatalog reads catalog records owned by catalog management.
type GormCatalog struct {
	db *gorm.DB
}

// NewGormCatalog creates a new GormCatalog.
func NewGormCatalog(db *gorm.DB) *GormCatalog {
	return &GormCatalog{db: db}
}

var _ catalog.Catalog = (*GormCatalog)(nil)

func (c *GormCatalog) GetFlight(ctx context.Context, id uuid.UUID) (*catalog.Flight, error) {
	var m FlightModel
	if err := c.db.WithContext(ctx).Preload("Tickets").Where("id = ?", id).First(&m).Error; err != nil {
		return nil, notFoundOr(err, "Flight", id.String())
	}
	return toDomainFlight(&m), nil
}

func (c *GormCatalog) GetHotel(ctx context.Context, id uuid.UUID) (*catalog.Hotel, error) {
	var m HotelModel
	if err := c.db.WithContext(ctx).Preload("Rooms").Where("id = ?", id).First(&m).Error; err != nil {
		return nil, notFoundOr(err, "Hotel", id.String())
	}
	return toDomainHotel(&m), nil
}

func (c *GormCatalog) GetRoom(ctx context.Context, hotelID, roomID uuid.UUID) (*catalog.Room, error) {
	var m RoomModel
	if err := c.db.WithContext(ctx).Where("id = ? AND hotel_id = ?", roomID, hotelID).First(&m).Error; err != nil {
		return nil, notFoundOr(err, "Room", roomID.String())
	}
	room := toDomainRoom(m)
	return &room, nil
}

func (c *GormCatalog) GetTour(ctx context.Context, id uuid.UUID) (*catalog.Tour, error) {
	var m TourModel
	if err := c.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, notFoundOr(err, "Tour", id.String())
	}
	return &catalog.Tour{
		ID:              m.ID,
		Name:            m.Name,
		Destination:     m.Destination,
		StartDate:       m.StartDate,
		DurationDays:    m.DurationDays,
		AdultPriceCents: m.AdultPriceCents,
		ChildPriceCents: m.ChildPriceCents,
		TotalSlots:      m.TotalSlots,
		RemainingSlots:  m.RemainingSlots,
	}, nil
}

func (c *GormCatalog) GetRoadVehicle(ctx context.Context, id uuid.UUID) (*catalog.RoadVehicle, error) {
	var m RoadVehicleModel
	if err := c.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, notFoundOr(err, "RoadVehicle", id.String())
	}
	return &catalog.RoadVehicle{
		ID:             m.ID,
		Name:           m.Name,
		Route:          m.Route,
		PriceCents:     m.PriceCents,
		TotalSeats:     m.TotalSeats,
		RemainingSeats: m.RemainingSeats,
	}, nil
}

// RandomFlight picks uniformly among all flights.
func (c *GormCatalog) RandomFlight(ctx context.Context) (*catalog.Flight, error) {
	var m FlightModel
	if err := c.db.WithContext(ctx).Preload("Tickets").Order("random()").First(&m).Error; err != nil {
		return nil, notFoundOr(err, "Flight", "any")
	}
	return toDomainFlight(&m), nil
}

// RandomHotel picks uniformly among all hotels.
func (c *GormCatalog) RandomHotel(ctx context.Context) (*catalog.Hotel, error) {
	var m HotelModel
	if err := c.db.WithContext(ctx).Preload("Rooms").Order("random()").First(&m).Error; err != nil {
		return nil, notFoundOr(err, "Hotel", "any")
	}
	return toDomainHotel(&m), nil
}

// --- Conversion Helpers ---

func toDomainFlight(m *FlightModel) *catalog.Flight {
	f := &catalog.Flight{
		ID:             m.ID,
		Code:           m.Code,
		Origin:         m.Origin,
		Destination:    m.Destination,
		DepartureAt:    m.DepartureAt,
		PriceCents:     m.PriceCents,
		TotalSeats:     m.TotalSeats,
		RemainingSeats: m.RemainingSeats,
	}
	for _, t := range m.Tickets {
		f.Tickets = append(f.Tickets, catalog.Ticket{ID: t.ID, FlightID: t.FlightID, Class: t.Class, PriceCents: t.PriceCents})
	}
	return f
}

func toDomainHotel(m *HotelModel) *catalog.Hotel {
	h := &catalog.Hotel{
		ID:             m.ID,
		Name:           m.Name,
		City:           m.City,
		TotalRooms:     m.TotalRooms,
		RemainingRooms: m.RemainingRooms,
	}
	for _, r := range m.Rooms {
		h.Rooms = append(h.Rooms, toDomainRoom(r))
	}
	return h
}

func toDomainRoom(m RoomModel) catalog.Room {
	return catalog.Room{
		ID:               m.ID,
		HotelID:          m.HotelID,
		Type:             m.Type,
		PricePerDayCents: m.PricePerDayCents,
		Available:        m.Available,
	}
}

// notFoundOr maps gorm.ErrRecordNotFound to a domain not-found error and wraps anything else.
func notFoundOr(err error, entity, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NewNotFoundError(entity, id)
	}
	return fmt.Errorf("failed to find %s: %w", entity, err)
}
