package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	bookingDomain "github.com/travel-golobe/service-booking/internal/domain/booking"
)

// InvoiceDetailModel is the GORM model for the invoice_details table.
// It carries no foreign key to bookings so invoices outlive purged bookings.
type InvoiceDetailModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	BookingID        uuid.UUID `gorm:"type:uuid;index;not null"`
	UserID           uuid.UUID `gorm:"type:uuid;index;not null"`
	TotalAmountCents int64     `gorm:"not null"`
	Currency         string    `gorm:"not null;size:3"`
	CreatedAt        time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (InvoiceDetailModel) TableName() string { return "invoice_details" }

// GormInvoiceRepository is the GORM-based implementation of InvoiceRepository.
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository.
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

var _ bookingDomain.InvoiceRepository = (*GormInvoiceRepository)(nil)

func (r *GormInvoiceRepository) Save(ctx context.Context, inv *bookingDomain.InvoiceDetail) error {
	model := InvoiceDetailModel{
		ID:               inv.ID,
		BookingID:        inv.BookingID,
		UserID:           inv.UserID,
		TotalAmountCents: inv.TotalAmountCents,
		Currency:         inv.Currency,
		CreatedAt:        inv.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("failed to save invoice detail: %w", err)
	}
	return nil
}

func (r *GormInvoiceRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*bookingDomain.InvoiceDetail, error) {
	var models []InvoiceDetailModel
	if err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find invoice details: %w", err)
	}

	invoices := make([]*bookingDomain.InvoiceDetail, len(models))
	for i, m := range models {
		invoices[i] = &bookingDomain.InvoiceDetail{
			ID:               m.ID,
			BookingID:        m.BookingID,
			UserID:           m.UserID,
			TotalAmountCents: m.TotalAmountCents,
			Currency:         m.Currency,
			CreatedAt:        m.CreatedAt,
		}
	}
	return invoices, nil
}
