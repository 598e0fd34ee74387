package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	bookingDomain "github.com/travel-golobe/service-booking/internal/domain/booking"
	"github.com/travel-golobe/service-booking/internal/domain/inventory"
	"github.com/travel-golobe/service-booking/pkg/domain"
)

// BookingModel is the GORM model for the bookings table.
type BookingModel struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primaryKey"`
	BookingNumber       string     `gorm:"uniqueIndex;not null;size:20"`
	UserID              uuid.UUID  `gorm:"type:uuid;index;not null"`
	Kind                string     `gorm:"not null;size:20;index:idx_bookings_kind_status_created,priority:1"`
	FlightID            *uuid.UUID `gorm:"type:uuid;index"`
	TicketID            *uuid.UUID `gorm:"type:uuid"`
	FlightQuantity      int        `gorm:"not null;default:0"`
	FlightDate          *time.Time `gorm:""`
	HotelID             *uuid.UUID `gorm:"type:uuid;index"`
	RoomID              *uuid.UUID `gorm:"type:uuid"`
	HotelQuantity       int        `gorm:"not null;default:0"`
	CheckInDate         *time.Time `gorm:""`
	CheckOutDate        *time.Time `gorm:""`
	TourID              *uuid.UUID `gorm:"type:uuid;index"`
	TourQuantity        int        `gorm:"not null;default:0"`
	RoadVehicleID       *uuid.UUID `gorm:"type:uuid;index"`
	RoadVehicleQuantity int        `gorm:"not null;default:0"`
	Status              string     `gorm:"not null;size:30;index:idx_bookings_kind_status_created,priority:2"`
	TotalAmountCents    int64      `gorm:"not null"`
	Currency            string     `gorm:"not null;size:3;default:'VND'"`
	ConfirmedAt         *time.Time `gorm:""`
	CancelledAt         *time.Time `gorm:""`
	ExpiredAt           *time.Time `gorm:""`
	Version             int64      `gorm:"not null;default:1"`
	CreatedAt           time.Time  `gorm:"not null;index:idx_bookings_kind_status_created,priority:3"`
	UpdatedAt           time.Time  `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "bookings"
}

// GormBookingRepository is the GORM-based implementation of BookingRepository.
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository.
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

var _ bookingDomain.BookingRepository = (*GormBookingRepository)(nil)

// FindByID retrieves a booking by its unique identifier.
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", id.String())
		}
		return nil, fmt.Errorf("failed to find booking by ID: %w", err)
	}
	return toDomainBooking(&model)
}

// FindByUserID retrieves bookings for a specific user with pagination.
func (r *GormBookingRepository) FindByUserID(ctx context.Context, userID uuid.UUID, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count user bookings: %w", err)
	}

	var models []BookingModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to find user bookings: %w", err)
	}

	bookings, err := toDomainBookings(models)
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

// ListAll retrieves bookings matching the filter with pagination (admin).
func (r *GormBookingRepository) ListAll(ctx context.Context, filter bookingDomain.ListFilter, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	var total int64
	if err := applyListFilter(r.db.WithContext(ctx).Model(&BookingModel{}), filter).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	var models []BookingModel
	offset := (page - 1) * limit
	if err := applyListFilter(r.db.WithContext(ctx), filter).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}

	bookings, err := toDomainBookings(models)
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

// CountByStatus returns booking counts grouped by status (admin).
func (r *GormBookingRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// FindStale returns bookings of kind in one of statuses created before cutoff
// and positioned after the cursor, oldest first.
func (r *GormBookingRepository) FindStale(
	ctx context.Context,
	kind inventory.ResourceKind,
	statuses []bookingDomain.BookingStatus,
	cutoff time.Time,
	after bookingDomain.StaleCursor,
	limit int,
) ([]*bookingDomain.Booking, error) {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = s.String()
	}

	query := r.db.WithContext(ctx).
		Where("kind = ? AND status IN ? AND created_at < ?", kind.String(), names, cutoff)
	if !after.IsZero() {
		query = query.Where("(created_at, id) > (?, ?)", after.CreatedAt, after.ID)
	}

	var models []BookingModel
	if err := query.
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find stale %s bookings: %w", kind, err)
	}
	return toDomainBookings(models)
}

// PurgeFinalized deletes cancelled and expired bookings last updated before cutoff.
func (r *GormBookingRepository) PurgeFinalized(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?", []string{
			bookingDomain.StatusCancelled.String(),
			bookingDomain.StatusExpired.String(),
		}, cutoff).
		Delete(&BookingModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge finalized bookings: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Save persists a new booking.
func (r *GormBookingRepository) Save(ctx context.Context, bk *bookingDomain.Booking) error {
	if err := r.db.WithContext(ctx).Create(toBookingModel(bk)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.NewConflictError("booking already exists")
		}
		return fmt.Errorf("failed to save booking: %w", err)
	}
	return nil
}

// Update persists changes to an existing booking with optimistic locking.
func (r *GormBookingRepository) Update(ctx context.Context, bk *bookingDomain.Booking) error {
	model := toBookingModel(bk)

	// Optimistic locking: only update if the version matches (current version - 1 since IncrementVersion was called)
	expectedVersion := bk.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":             model.Status,
			"total_amount_cents": model.TotalAmountCents,
			"confirmed_at":       model.ConfirmedAt,
			"cancelled_at":       model.CancelledAt,
			"expired_at":         model.ExpiredAt,
			"version":            model.Version,
			"updated_at":         model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update booking: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.NewConflictError("booking was modified by another transaction")
	}

	return nil
}

func applyListFilter(q *gorm.DB, filter bookingDomain.ListFilter) *gorm.DB {
	if filter.Kind != "" {
		q = q.Where("kind = ?", filter.Kind.String())
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status.String())
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		q = q.Where(
			"booking_number ILIKE ? OR CAST(id AS TEXT) ILIKE ? OR CAST(user_id AS TEXT) ILIKE ? OR "+
				"CAST(flight_id AS TEXT) ILIKE ? OR CAST(hotel_id AS TEXT) ILIKE ? OR "+
				"CAST(tour_id AS TEXT) ILIKE ? OR CAST(road_vehicle_id AS TEXT) ILIKE ?",
			like, like, like, like, like, like, like,
		)
	}
	return q
}

// --- Conversion Helpers ---

func toBookingModel(bk *bookingDomain.Booking) *BookingModel {
	legs := bk.Legs()
	return &BookingModel{
		ID:                  bk.ID(),
		BookingNumber:       bk.BookingNumber(),
		UserID:              bk.UserID(),
		Kind:                bk.Kind().String(),
		FlightID:            legs.FlightID,
		TicketID:            legs.TicketID,
		FlightQuantity:      legs.FlightQuantity,
		FlightDate:          legs.FlightDate,
		HotelID:             legs.HotelID,
		RoomID:              legs.RoomID,
		HotelQuantity:       legs.HotelQuantity,
		CheckInDate:         legs.CheckInDate,
		CheckOutDate:        legs.CheckOutDate,
		TourID:              legs.TourID,
		TourQuantity:        legs.TourQuantity,
		RoadVehicleID:       legs.RoadVehicleID,
		RoadVehicleQuantity: legs.RoadVehicleQuantity,
		Status:              bk.Status().String(),
		TotalAmountCents:    bk.TotalAmountCents(),
		Currency:            bk.Currency(),
		ConfirmedAt:         bk.ConfirmedAt(),
		CancelledAt:         bk.CancelledAt(),
		ExpiredAt:           bk.ExpiredAt(),
		Version:             bk.Version(),
		CreatedAt:           bk.CreatedAt(),
		UpdatedAt:           bk.UpdatedAt(),
	}
}

func toDomainBooking(m *BookingModel) (*bookingDomain.Booking, error) {
	status, err := bookingDomain.ParseBookingStatus(m.Status)
	if err != nil {
		return nil, err
	}
	kind, err := inventory.ParseResourceKind(m.Kind)
	if err != nil {
		return nil, err
	}

	legs := bookingDomain.Legs{
		FlightID:            m.FlightID,
		TicketID:            m.TicketID,
		FlightQuantity:      m.FlightQuantity,
		FlightDate:          m.FlightDate,
		HotelID:             m.HotelID,
		RoomID:              m.RoomID,
		HotelQuantity:       m.HotelQuantity,
		CheckInDate:         m.CheckInDate,
		CheckOutDate:        m.CheckOutDate,
		TourID:              m.TourID,
		TourQuantity:        m.TourQuantity,
		RoadVehicleID:       m.RoadVehicleID,
		RoadVehicleQuantity: m.RoadVehicleQuantity,
	}

	return bookingDomain.ReconstructBooking(
		m.ID,
		m.BookingNumber,
		m.UserID,
		kind,
		legs,
		status,
		m.TotalAmountCents,
		m.Currency,
		m.ConfirmedAt,
		m.CancelledAt,
		m.ExpiredAt,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}

func toDomainBookings(models []BookingModel) ([]*bookingDomain.Booking, error) {
	bookings := make([]*bookingDomain.Booking, len(models))
	for i := range models {
		bk, err := toDomainBooking(&models[i])
		if err != nil {
			return nil, err
		}
		bookings[i] = bk
	}
	return bookings, nil
}
