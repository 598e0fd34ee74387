package repository

import (
	"context"

	"gorm.io/gorm"

	bookingDomain "github.com/travel-golobe/service-booking/internal/domain/booking"
	"github.com/travel-golobe/service-booking/internal/domain/inventory"
)

// GormTxManager runs units of work inside a database transaction.
type GormTxManager struct {
	db *gorm.DB
}

// NewGormTxManager creates a new GormTxManager.
func NewGormTxManager(db *gorm.DB) *GormTxManager {
	return &GormTxManager{db: db}
}

var _ bookingDomain.TxManager = (*GormTxManager)(nil)

// WithinTransaction commits when fn returns nil and rolls back otherwise.
func (m *GormTxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context, uow bookingDomain.UnitOfWork) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &gormUnitOfWork{tx: tx})
	})
}

type gormUnitOfWork struct {
	tx *gorm.DB
}

func (u *gormUnitOfWork) Ledger() inventory.Ledger {
	return NewGormInventoryLedger(u.tx)
}

func (u *gormUnitOfWork) Bookings() bookingDomain.BookingRepository {
	return NewGormBookingRepository(u.tx)
}

func (u *gormUnitOfWork) Invoices() bookingDomain.InvoiceRepository {
	return NewGormInvoiceRepository(u.tx)
}

// Models lists every GORM model for AutoMigrate in development.
func Models() []interface{} {
	return []interface{}{
		&UserModel{},
		&FlightModel{},
		&FlightTicketModel{},
		&HotelModel{},
		&RoomModel{},
		&TourModel{},
		&RoadVehicleModel{},
		&BookingModel{},
		&InvoiceDetailModel{},
	}
}
