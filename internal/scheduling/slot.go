// Package scheduling holds the recurring lesson scheduler: occurrence
// projection from weekly slots, greedy lesson packing and conflict detection
// between the recurring slots of different courses. Everything in this
// package is pure; callers supply the inputs and persist the outputs.
package scheduling

import (
	"fmt"
	"sort"
	"time"
)

// Slot is one weekly recurring teaching window for a course.
type Slot struct {
	DayOfWeek int       `json:"day_of_week"`
	StartHour int       `json:"start_hour"`
	EndHour   int       `json:"end_hour"`
	StartDate time.Time `json:"start_date"`
}

// Hours returns the slot length in whole hours.
func (s Slot) Hours() int {
	return s.EndHour - s.StartHour
}

// Label renders the slot hour range, e.g. "8h-10h".
func (s Slot) Label() string {
	return SlotLabel(s.StartHour, s.EndHour)
}

// SlotError describes an invalid slot in a submitted slot list.
type SlotError struct {
	Index   int    `json:"index"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *SlotError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("slot %d: %s", e.Index+1, e.Message)
}

var dayNames = map[int]string{
	1: "Monday",
	2: "Tuesday",
	3: "Wednesday",
	4: "Thursday",
	5: "Friday",
	6: "Saturday",
	7: "Sunday",
}

// DayName returns the English weekday name for an ISO day index (1 = Monday).
func DayName(day int) string {
	if name, ok := dayNames[day]; ok {
		return name
	}
	return fmt.Sprintf("day %d", day)
}

// SlotLabel renders an hour range the way previews display it.
func SlotLabel(startHour, endHour int) string {
	return fmt.Sprintf("%dh-%dh", startHour, endHour)
}

// ValidateSlot checks the structural invariants of a single slot.
func ValidateSlot(slot Slot) error {
	return validateSlot(0, slot)
}

// ValidateSlots checks every slot and returns the first violation found.
func ValidateSlots(slots []Slot) error {
	for i, slot := range slots {
		if err := validateSlot(i, slot); err != nil {
			return err
		}
	}
	return nil
}

func validateSlot(index int, slot Slot) error {
	if slot.DayOfWeek < 1 || slot.DayOfWeek > 7 {
		return &SlotError{Index: index, Field: "day_of_week", Message: "day of week must be between 1 and 7"}
	}
	if slot.StartHour < 0 || slot.StartHour > 23 {
		return &SlotError{Index: index, Field: "start_hour", Message: "start hour must be between 0 and 23"}
	}
	if slot.EndHour < 0 || slot.EndHour > 23 {
		return &SlotError{Index: index, Field: "end_hour", Message: "end hour must be between 0 and 23"}
	}
	if slot.EndHour <= slot.StartHour {
		return &SlotError{Index: index, Field: "end_hour", Message: "end hour must be after start hour"}
	}
	if slot.StartDate.IsZero() {
		return &SlotError{Index: index, Field: "start_date", Message: "start date is required"}
	}
	return nil
}

// SortSlots returns a copy ordered by day, start hour and end hour.
func SortSlots(slots []Slot) []Slot {
	sorted := make([]Slot, len(slots))
	copy(sorted, slots)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].DayOfWeek != sorted[j].DayOfWeek {
			return sorted[i].DayOfWeek < sorted[j].DayOfWeek
		}
		if sorted[i].StartHour != sorted[j].StartHour {
			return sorted[i].StartHour < sorted[j].StartHour
		}
		return sorted[i].EndHour < sorted[j].EndHour
	})
	return sorted
}

// isoWeekday maps time.Weekday (Sunday = 0) onto 1..7 with Sunday = 7.
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// calendarDate keeps the year, month and day of t and places midnight of
// that day in loc. No instant conversion happens.
func calendarDate(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func atHour(date time.Time, hour int) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), hour, 0, 0, 0, date.Location())
}

// daysBetween counts calendar days from a to b ignoring DST shifts.
func daysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
