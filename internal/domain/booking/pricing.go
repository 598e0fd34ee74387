package booking

import (
	"fmt"
	"math"
	"time"

	"github.com/travel-golobe/service-booking/pkg/domain"
)

// holidaySurchargeTenths is the flight multiplier on holidays, in tenths (1.2).
const holidaySurchargeTenths = 12

// PricingStrategy defines the interface for calculating booking prices.
type PricingStrategy interface {
	FlightPrice(unitPriceCents int64, quantity int, travelDate time.Time) (int64, error)
	HotelPrice(pricePerDayCents int64, quantity int, checkIn, checkOut time.Time) (int64, error)
	RoadVehiclePrice(unitPriceCents int64, quantity int) (int64, error)
	TourPrice(adultPriceCents int64, quantity int) (int64, error)
	BundlePrice(tour, flight, hotel int64) (int64, error)
}

// Calculator is the standard pricing strategy. It does no I/O.
type Calculator struct {
	holidays HolidayCalendar
}

var _ PricingStrategy = (*Calculator)(nil)

// NewCalculator creates a Calculator that surcharges flights on the given holidays.
func NewCalculator(holidays HolidayCalendar) *Calculator {
	return &Calculator{holidays: holidays}
}

// FlightPrice is unit × quantity, times 1.2 when travelDate is a holiday.
func (c *Calculator) FlightPrice(unitPriceCents int64, quantity int, travelDate time.Time) (int64, error) {
	total, err := linePrice(unitPriceCents, quantity)
	if err != nil {
		return 0, err
	}
	if c.holidays.IsHoliday(travelDate) {
		return applyHolidaySurcharge(total)
	}
	return total, nil
}

// HotelPrice is pricePerDay × quantity × nights.
func (c *Calculator) HotelPrice(pricePerDayCents int64, quantity int, checkIn, checkOut time.Time) (int64, error) {
	nights, err := Nights(checkIn, checkOut)
	if err != nil {
		return 0, err
	}
	perNight, err := linePrice(pricePerDayCents, quantity)
	if err != nil {
		return 0, err
	}
	return multiply(perNight, int64(nights))
}

// RoadVehiclePrice is unit × quantity.
func (c *Calculator) RoadVehiclePrice(unitPriceCents int64, quantity int) (int64, error) {
	return linePrice(unitPriceCents, quantity)
}

// TourPrice is adult price × quantity.
func (c *Calculator) TourPrice(adultPriceCents int64, quantity int) (int64, error) {
	return linePrice(adultPriceCents, quantity)
}

// BundlePrice sums the already priced legs of a tour bundle.
func (c *Calculator) BundlePrice(tour, flight, hotel int64) (int64, error) {
	total := int64(0)
	for _, leg := range []int64{tour, flight, hotel} {
		if leg > math.MaxInt64-total {
			return 0, errAmountTooLarge
		}
		total += leg
	}
	return total, nil
}

// Nights returns round(|checkOut - checkIn| / 24h). A stay of zero nights is rejected.
func Nights(checkIn, checkOut time.Time) (int, error) {
	d := checkOut.Sub(checkIn)
	if d < 0 {
		d = -d
	}
	nights := int(math.Round(d.Hours() / 24))
	if nights <= 0 {
		return 0, domain.NewValidationError("invalid stay duration: check-out must be at least one night after check-in")
	}
	return nights, nil
}

func linePrice(unitPriceCents int64, quantity int) (int64, error) {
	if unitPriceCents < 0 {
		return 0, domain.NewValidationError("unit price cannot be negative")
	}
	if quantity <= 0 {
		return 0, domain.NewValidationError(fmt.Sprintf("quantity must be positive, got %d", quantity))
	}
	return multiply(unitPriceCents, int64(quantity))
}

var errAmountTooLarge = domain.NewValidationError("total amount exceeds the supported range")

// multiply returns a × b for non-negative operands, rejecting results past MaxInt64.
func multiply(a, b int64) (int64, error) {
	if a != 0 && b > math.MaxInt64/a {
		return 0, errAmountTooLarge
	}
	return a * b, nil
}

// applyHolidaySurcharge multiplies by 1.2, rounding half up to the nearest minor unit.
func applyHolidaySurcharge(cents int64) (int64, error) {
	if cents > (math.MaxInt64-5)/holidaySurchargeTenths {
		return 0, errAmountTooLarge
	}
	return (cents*holidaySurchargeTenths + 5) / 10, nil
}
