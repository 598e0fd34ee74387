package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/travel-golobe/service-booking/internal/domain/inventory"
	"github.com/travel-golobe/service-booking/pkg/domain"
)

type capacityColumns struct {
	table     string
	total     string
	remaining string
}

var capacityTables = map[inventory.ResourceKind]capacityColumns{
	inventory.KindFlight:      {table: "flights", total: "total_seats", remaining: "remaining_seats"},
	inventory.KindHotel:       {table: "hotels", total: "total_rooms", remaining: "remaining_rooms"},
	inventory.KindTour:        {table: "tours", total: "total_slots", remaining: "remaining_slots"},
	inventory.KindRoadVehicle: {table: "road_vehicles", total: "total_seats", remaining: "remaining_seats"},
}

// GormInventoryLedger keeps capacity in the catalog tables' remaining columns.
// Reserve is a single conditional UPDATE, so the check and the decrement are
// one atomic step under the row lock.
type GormInventoryLedger struct {
	db *gorm.DB
}

// NewGormInventoryLedger creates a new GormInventoryLedger.
func NewGormInventoryLedger(db *gorm.DB) *GormInventoryLedger {
	return &GormInventoryLedger{db: db}
}

var _ inventory.Ledger = (*GormInventoryLedger)(nil)

func (l *GormInventoryLedger) Reserve(ctx context.Context, ref inventory.ResourceRef, quantity int) error {
	if err := inventory.ValidateQuantity(quantity); err != nil {
		return err
	}
	cols, err := columnsFor(ref.Kind)
	if err != nil {
		return err
	}

	result := l.db.WithContext(ctx).
		Table(cols.table).
		Where("id = ? AND "+cols.remaining+" >= ?", ref.ID, quantity).
		Update(cols.remaining, gorm.Expr(cols.remaining+" - ?", quantity))
	if result.Error != nil {
		return fmt.Errorf("failed to reserve %s: %w", ref, result.Error)
	}
	if result.RowsAffected == 0 {
		remaining, err := l.Remaining(ctx, ref)
		if err != nil {
			return err
		}
		return inventory.NewInsufficientCapacityError(ref, quantity, remaining)
	}
	return nil
}

func (l *GormInventoryLedger) Release(ctx context.Context, ref inventory.ResourceRef, quantity int) error {
	if err := inventory.ValidateQuantity(quantity); err != nil {
		return err
	}
	cols, err := columnsFor(ref.Kind)
	if err != nil {
		return err
	}

	result := l.db.WithContext(ctx).
		Table(cols.table).
		Where("id = ?", ref.ID).
		Update(cols.remaining, gorm.Expr("LEAST("+cols.total+", "+cols.remaining+" + ?)", quantity))
	if result.Error != nil {
		return fmt.Errorf("failed to release %s: %w", ref, result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError(ref.Kind.EntityName(), ref.ID.String())
	}
	return nil
}

func (l *GormInventoryLedger) Remaining(ctx context.Context, ref inventory.ResourceRef) (int, error) {
	cols, err := columnsFor(ref.Kind)
	if err != nil {
		return 0, err
	}

	var remaining []int
	if err := l.db.WithContext(ctx).
		Table(cols.table).
		Where("id = ?", ref.ID).
		Pluck(cols.remaining, &remaining).Error; err != nil {
		return 0, fmt.Errorf("failed to read remaining capacity of %s: %w", ref, err)
	}
	if len(remaining) == 0 {
		return 0, domain.NewNotFoundError(ref.Kind.EntityName(), ref.ID.String())
	}
	return remaining[0], nil
}

func columnsFor(kind inventory.ResourceKind) (capacityColumns, error) {
	cols, ok := capacityTables[kind]
	if !ok {
		return capacityColumns{}, domain.NewValidationError(fmt.Sprintf("invalid resource kind: %s", kind))
	}
	return cols, nil
}
