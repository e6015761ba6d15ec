package touchpoint

import (
	"time"

	"github.com/AngelCh415/touchpoints/internal/models"
)

// ParseTime reads the date formats found in CRM properties and local
// datasets. See models.ParseDate.
func ParseTime(s string) (time.Time, bool) { return models.ParseDate(s) }

// ParseTimePtr is ParseTime returning nil for unknown dates.
func ParseTimePtr(s string) *time.Time {
	t, ok := ParseTime(s)
	if !ok {
		return nil
	}
	return &t
}

// DaysBetween returns whole days from a to b, floored like a calendar
// difference (negative when b precedes a).
func DaysBetween(a, b time.Time) int {
	d := b.Sub(a)
	days := int(d / (24 * time.Hour))
	if d < 0 && d%(24*time.Hour) != 0 {
		days--
	}
	return days
}
