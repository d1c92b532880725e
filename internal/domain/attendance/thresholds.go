package attendance

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Thresholds are the organization-wide standard check-in and check-out times,
// expressed as offsets from local midnight in Location.
type Thresholds struct {
	CheckIn  time.Duration
	CheckOut time.Duration
	Location *time.Location
}

// ParseThresholds reads HH:MM clock values.
func ParseThresholds(checkIn, checkOut string, loc *time.Location) (Thresholds, error) {
	in, err := parseClock(checkIn)
	if err != nil {
		return Thresholds{}, fmt.Errorf("standard check-in: %w", err)
	}
	out, err := parseClock(checkOut)
	if err != nil {
		return Thresholds{}, fmt.Errorf("standard check-out: %w", err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return Thresholds{CheckIn: in, CheckOut: out, Location: loc}, nil
}

func parseClock(value string) (time.Duration, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func (t Thresholds) location() *time.Location {
	if t.Location == nil {
		return time.UTC
	}
	return t.Location
}

// midnight returns local midnight of the calendar date carried by day.
func (t Thresholds) midnight(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.location())
}

// LateBy returns the minutes past the standard check-in extended by grace. Zero means on time.
func (t Thresholds) LateBy(day, checkIn time.Time, graceMinutes int) (bool, int) {
	limit := t.midnight(day).Add(t.CheckIn + time.Duration(graceMinutes)*time.Minute)
	if !checkIn.After(limit) {
		return false, 0
	}
	return true, int(checkIn.Sub(limit) / time.Minute)
}

func (t Thresholds) LeftEarly(day, checkOut time.Time) bool {
	return checkOut.Before(t.midnight(day).Add(t.CheckOut))
}

// RoundHours converts a duration to hours rounded to two decimals, half away from zero.
func RoundHours(d time.Duration) decimal.Decimal {
	seconds := decimal.NewFromInt(int64(d / time.Second))
	return seconds.Div(decimal.NewFromInt(3600)).Round(2)
}

// TotalHours is nil unless both timestamps exist.
func TotalHours(checkIn, checkOut *time.Time) *decimal.Decimal {
	if checkIn == nil || checkOut == nil {
		return nil
	}
	hours := RoundHours(checkOut.Sub(*checkIn))
	return &hours
}

// DateKey is the canonical calendar-date string used to join sources.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// ParseMonth returns the first and last day of a YYYY-MM month in loc.
func ParseMonth(month string, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	start, err := time.ParseInLocation("2006-01", month, loc)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidMonth
	}
	return start, start.AddDate(0, 1, -1), nil
}

// DaysIn returns the number of days in the month containing t.
func DaysIn(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
