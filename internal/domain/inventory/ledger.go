package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/travel-golobe/service-booking/pkg/domain"
)

// ResourceKind identifies which catalog table a capacity counter lives in.
type ResourceKind string

const (
	KindFlight      ResourceKind = "flight"
	KindHotel       ResourceKind = "hotel"
	KindTour        ResourceKind = "tour"
	KindRoadVehicle ResourceKind = "road_vehicle"
)

// AllKinds lists every bookable resource kind.
var AllKinds = []ResourceKind{KindFlight, KindHotel, KindTour, KindRoadVehicle}

// IsValid returns true if the kind is recognized.
func (k ResourceKind) IsValid() bool {
	switch k {
	case KindFlight, KindHotel, KindTour, KindRoadVehicle:
		return true
	}
	return false
}

// String returns the string representation of the kind.
func (k ResourceKind) String() string { return string(k) }

// ParseResourceKind converts a string to a ResourceKind.
func ParseResourceKind(s string) (ResourceKind, error) {
	k := ResourceKind(s)
	if !k.IsValid() {
		return "", domain.NewValidationError(fmt.Sprintf("invalid resource kind: %s", s))
	}
	return k, nil
}

// ResourceRef points at one capacity counter.
type ResourceRef struct {
	Kind ResourceKind
	ID   uuid.UUID
}

// Ref is shorthand for building a ResourceRef.
func Ref(kind ResourceKind, id uuid.UUID) ResourceRef {
	return ResourceRef{Kind: kind, ID: id}
}

func (r ResourceRef) String() string {
	return fmt.Sprintf("%s/%s", r.Kind, r.ID)
}

// Ledger is the per-resource capacity accounting contract.
//
// Reserve must be linearizable per resource: the check that quantity fits
// the remaining capacity and the decrement happen as one atomic step, so
// concurrent callers can never jointly take more than the capacity.
type Ledger interface {
	// Reserve takes quantity units, or fails with an insufficient-capacity conflict and changes nothing.
	Reserve(ctx context.Context, ref ResourceRef, quantity int) error

	// Release returns quantity units; remaining capacity never exceeds the original capacity.
	Release(ctx context.Context, ref ResourceRef, quantity int) error

	// Remaining returns the committed remaining capacity.
	Remaining(ctx context.Context, ref ResourceRef) (int, error)
}

// NewInsufficientCapacityError reports that ref cannot satisfy the request.
func NewInsufficientCapacityError(ref ResourceRef, requested, remaining int) *domain.DomainError {
	return domain.NewConflictError(fmt.Sprintf(
		"insufficient capacity for %s: requested %d, remaining %d", ref, requested, remaining))
}

// ValidateQuantity rejects non-positive quantities.
func ValidateQuantity(quantity int) error {
	if quantity <= 0 {
		return domain.NewValidationError(fmt.Sprintf("quantity must be positive, got %d", quantity))
	}
	return nil
}

// EntityName returns the display name used in not-found errors.
func (k ResourceKind) EntityName() string {
	switch k {
	case KindFlight:
		return "Flight"
	case KindHotel:
		return "Hotel"
	case KindTour:
		return "Tour"
	case KindRoadVehicle:
		return "RoadVehicle"
	}
	return "Resource"
}
