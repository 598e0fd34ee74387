package application

import (
	"time"

	"github.com/google/uuid"

	bookingDomain "github.com/travel-golobe/service-booking/internal/domain/booking"
)

// BookFlightRequest holds the data needed to book seats on a flight.
type BookFlightRequest struct {
	FlightID   uuid.UUID  `json:"flight_id" binding:"required"`
	TicketID   *uuid.UUID `json:"ticket_id"`
	Quantity   int        `json:"quantity" binding:"required"`
	FlightDate string     `json:"flight_date" binding:"required,ddmmyyyy"`
}

// BookHotelRequest holds the data needed to book a hotel room.
type BookHotelRequest struct {
	HotelID      uuid.UUID `json:"hotel_id" binding:"required"`
	RoomID       uuid.UUID `json:"room_id" binding:"required"`
	Quantity     int       `json:"quantity" binding:"required"`
	CheckInDate  string    `json:"check_in_date" binding:"required,ddmmyyyy"`
	CheckOutDate string    `json:"check_out_date" binding:"required,ddmmyyyy"`
}

// BookRoadVehicleRequest holds the data needed to book road vehicle seats.
type BookRoadVehicleRequest struct {
	RoadVehicleID uuid.UUID `json:"road_vehicle_id" binding:"required"`
	Quantity      int       `json:"quantity" binding:"required"`
}

// BookTourRequest holds the data needed to book a tour. Omitted quantities default to 1.
// Unless TourOnly is set, the tour is bundled with a flight and a hotel.
type BookTourRequest struct {
	TourID         uuid.UUID `json:"tour_id" binding:"required"`
	TourQuantity   int       `json:"tour_quantity"`
	FlightQuantity int       `json:"flight_quantity"`
	HotelQuantity  int       `json:"hotel_quantity"`
	TourOnly       bool      `json:"tour_only"`
}

// BookingDTO is the response representation of a booking.
type BookingDTO struct {
	ID            uuid.UUID `json:"id"`
	BookingNumber string    `json:"booking_number"`
	UserID        uuid.UUID `json:"user_id"`
	Kind          string    `json:"kind"`
	Bundle        bool      `json:"bundle"`
	Status        string    `json:"status"`

	FlightID       *uuid.UUID `json:"flight_id,omitempty"`
	TicketID       *uuid.UUID `json:"ticket_id,omitempty"`
	FlightQuantity int        `json:"flight_quantity,omitempty"`
	FlightDate     string     `json:"flight_date,omitempty"`

	HotelID       *uuid.UUID `json:"hotel_id,omitempty"`
	RoomID        *uuid.UUID `json:"room_id,omitempty"`
	HotelQuantity int        `json:"hotel_quantity,omitempty"`
	CheckInDate   string     `json:"check_in_date,omitempty"`
	CheckOutDate  string     `json:"check_out_date,omitempty"`

	TourID       *uuid.UUID `json:"tour_id,omitempty"`
	TourQuantity int        `json:"tour_quantity,omitempty"`

	RoadVehicleID       *uuid.UUID `json:"road_vehicle_id,omitempty"`
	RoadVehicleQuantity int        `json:"road_vehicle_quantity,omitempty"`

	TotalAmount int64        `json:"total_amount"`
	Currency    string       `json:"currency"`
	Invoices    []InvoiceDTO `json:"invoices,omitempty"`
	ConfirmedAt *time.Time   `json:"confirmed_at,omitempty"`
	CancelledAt *time.Time   `json:"cancelled_at,omitempty"`
	ExpiredAt   *time.Time   `json:"expired_at,omitempty"`
	Version     int64        `json:"version"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// InvoiceDTO is the response representation of an invoice detail.
type InvoiceDTO struct {
	ID          uuid.UUID `json:"id"`
	BookingID   uuid.UUID `json:"booking_id"`
	UserID      uuid.UUID `json:"user_id"`
	TotalAmount int64     `json:"total_amount"`
	Currency    string    `json:"currency"`
	CreatedAt   time.Time `json:"created_at"`
}

// BookingStatsDTO holds booking statistics for the admin dashboard.
type BookingStatsDTO struct {
	TotalBookings int64            `json:"total_bookings"`
	ByStatus      map[string]int64 `json:"by_status"`
}

// HistoryEntryDTO is the response representation of one audit entry.
type HistoryEntryDTO struct {
	Action      string     `json:"action"`
	FromStatus  string     `json:"from_status,omitempty"`
	ToStatus    string     `json:"to_status"`
	ActorID     *uuid.UUID `json:"actor_id,omitempty"`
	TotalAmount int64      `json:"total_amount"`
	Currency    string     `json:"currency"`
	OccurredAt  time.Time  `json:"occurred_at"`
}

// ToHistoryDTOs converts audit entries for the admin history view.
func ToHistoryDTOs(entries []AuditEntry) []HistoryEntryDTO {
	dtos := make([]HistoryEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = HistoryEntryDTO{
			Action:      string(e.Action),
			FromStatus:  e.FromStatus,
			ToStatus:    e.ToStatus,
			ActorID:     e.ActorID,
			TotalAmount: e.TotalAmount,
			Currency:    e.Currency,
			OccurredAt:  e.OccurredAt,
		}
	}
	return dtos
}

// ListBookingsQuery filters the admin listing.
type ListBookingsQuery struct {
	Kind   string
	Status string
	Search string
	Page   int
	Limit  int
}

func toBookingDTO(bk *bookingDomain.Booking, loc *time.Location) BookingDTO {
	legs := bk.Legs()
	dto := BookingDTO{
		ID:                  bk.ID(),
		BookingNumber:       bk.BookingNumber(),
		UserID:              bk.UserID(),
		Kind:                bk.Kind().String(),
		Bundle:              bk.IsBundle(),
		Status:              bk.Status().String(),
		FlightID:            legs.FlightID,
		TicketID:            legs.TicketID,
		FlightQuantity:      legs.FlightQuantity,
		HotelID:             legs.HotelID,
		RoomID:              legs.RoomID,
		HotelQuantity:       legs.HotelQuantity,
		TourID:              legs.TourID,
		TourQuantity:        legs.TourQuantity,
		RoadVehicleID:       legs.RoadVehicleID,
		RoadVehicleQuantity: legs.RoadVehicleQuantity,
		TotalAmount:         bk.TotalAmountCents(),
		Currency:            bk.Currency(),
		ConfirmedAt:         bk.ConfirmedAt(),
		CancelledAt:         bk.CancelledAt(),
		ExpiredAt:           bk.ExpiredAt(),
		Version:             bk.Version(),
		CreatedAt:           bk.CreatedAt(),
		UpdatedAt:           bk.UpdatedAt(),
	}
	if legs.FlightDate != nil {
		dto.FlightDate = bookingDomain.FormatDate(*legs.FlightDate, loc)
	}
	if legs.CheckInDate != nil {
		dto.CheckInDate = bookingDomain.FormatDate(*legs.CheckInDate, loc)
	}
	if legs.CheckOutDate != nil {
		dto.CheckOutDate = bookingDomain.FormatDate(*legs.CheckOutDate, loc)
	}
	return dto
}

func toInvoiceDTO(inv *bookingDomain.InvoiceDetail) InvoiceDTO {
	return InvoiceDTO{
		ID:          inv.ID,
		BookingID:   inv.BookingID,
		UserID:      inv.UserID,
		TotalAmount: inv.TotalAmountCents,
		Currency:    inv.Currency,
		CreatedAt:   inv.CreatedAt,
	}
}

func toSnapshot(bk *bookingDomain.Booking, userName string) BookingSnapshot {
	return BookingSnapshot{
		BookingID:     bk.ID(),
		BookingNumber: bk.BookingNumber(),
		UserName:      userName,
		Kind:          bk.Kind().String(),
		Bundle:        bk.IsBundle(),
		Status:        bk.Status().String(),
		TotalAmount:   bk.TotalAmountCents(),
		Currency:      bk.Currency(),
		CreatedAt:     bk.CreatedAt(),
		ConfirmedAt:   bk.ConfirmedAt(),
	}
}
