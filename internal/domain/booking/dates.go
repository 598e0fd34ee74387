package booking

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // Asia/Ho_Chi_Minh must resolve on minimal images

	"github.com/travel-golobe/service-booking/pkg/domain"
)

// DateLayout is the wire format for travel dates (dd-mm-yyyy).
const DateLayout = "02-01-2006"

// ParseDate parses a dd-mm-yyyy date as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, domain.NewValidationError(fmt.Sprintf("date %q must be in the format dd-mm-yyyy", s))
	}
	return t, nil
}

// FormatDate renders t as dd-mm-yyyy in loc.
func FormatDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}

// HolidayCalendar answers whether a date is a surcharge holiday.
// Matching is by calendar day in the calendar's location; time of day is ignored.
type HolidayCalendar struct {
	loc  *time.Location
	days map[string]struct{}
}

// NewHolidayCalendar builds a calendar from explicit dates.
func NewHolidayCalendar(loc *time.Location, dates ...time.Time) HolidayCalendar {
	c := HolidayCalendar{loc: loc, days: make(map[string]struct{}, len(dates))}
	for _, d := range dates {
		c.days[c.key(d)] = struct{}{}
	}
	return c
}

// ParseHolidayCalendar builds a calendar from dd-mm-yyyy strings.
func ParseHolidayCalendar(loc *time.Location, dates []string) (HolidayCalendar, error) {
	parsed := make([]time.Time, 0, len(dates))
	for _, s := range dates {
		if strings.TrimSpace(s) == "" {
			continue
		}
		d, err := ParseDate(s, loc)
		if err != nil {
			return HolidayCalendar{}, err
		}
		parsed = append(parsed, d)
	}
	return NewHolidayCalendar(loc, parsed...), nil
}

// DefaultHolidays are the surcharge dates used when none are configured.
var DefaultHolidays = []string{"01-01-2024", "21-01-2024"}

// IsHoliday returns true if t falls on a listed calendar day.
func (c HolidayCalendar) IsHoliday(t time.Time) bool {
	if len(c.days) == 0 {
		return false
	}
	_, ok := c.days[c.key(t)]
	return ok
}

// Location returns the calendar's time zone.
func (c HolidayCalendar) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

func (c HolidayCalendar) key(t time.Time) string {
	return t.In(c.Location()).Format("2006-01-02")
}
