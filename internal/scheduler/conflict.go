// Package scheduler holds the pure booking conflict and interval logic.
// Intervals are half-open [start, end): a booking ending exactly when
// another starts is not a conflict.
package scheduler

import (
	"errors"
	"time"
)

// Booking is the slice of booking state required for conflict detection.
type Booking struct {
	ID    string
	Start time.Time
	End   time.Time
}

// Conflict records an overlap between a candidate interval and an existing
// booking, suitable for surfacing to callers.
type Conflict struct {
	WithBookingID string
	Start         time.Time
	End           time.Time
}

var (
	// ErrEndBeforeStart is returned when an interval has end <= start.
	ErrEndBeforeStart = errors.New("scheduler: end must be after start")
	// ErrStartInPast is returned when an interval starts before the
	// submission instant.
	ErrStartInPast = errors.New("scheduler: start must not be in the past")
)

// Overlaps reports whether two half-open intervals intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Conflicts returns every existing booking whose interval overlaps
// [start, end). The booking identified by excludeID is skipped, which lets
// an edit re-validate without colliding with itself. Pass an empty
// excludeID when creating.
func Conflicts(existing []Booking, start, end time.Time, excludeID string) []Conflict {
	var conflicts []Conflict
	for _, booking := range existing {
		if excludeID != "" && booking.ID == excludeID {
			continue
		}
		if Overlaps(booking.Start, booking.End, start, end) {
			conflicts = append(conflicts, Conflict{
				WithBookingID: booking.ID,
				Start:         booking.Start,
				End:           booking.End,
			})
		}
	}
	return conflicts
}

// HasConflict reports whether any existing booking overlaps [start, end),
// excluding the booking identified by excludeID.
func HasConflict(existing []Booking, start, end time.Time, excludeID string) bool {
	for _, booking := range existing {
		if excludeID != "" && booking.ID == excludeID {
			continue
		}
		if Overlaps(booking.Start, booking.End, start, end) {
			return true
		}
	}
	return false
}

// ValidateInterval checks that [start, end) is a well-formed future
// interval relative to now. A start equal to now is accepted.
func ValidateInterval(start, end, now time.Time) error {
	if !end.After(start) {
		return ErrEndBeforeStart
	}
	if start.Before(now) {
		return ErrStartInPast
	}
	return nil
}
