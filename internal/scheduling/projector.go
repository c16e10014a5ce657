package scheduling

import (
	"errors"
	"math"
	"time"
)

// DefaultMaxWeeks bounds projection when the caller does not supply a limit.
const DefaultMaxWeeks = 520

// ErrNoSlotCapacity is returned when none of the slots has a positive duration,
// which would otherwise never satisfy an hour budget.
var ErrNoSlotCapacity = errors.New("recurring slots have no schedulable hours")

// Occurrence is one concrete calendar instance of a recurring slot.
type Occurrence struct {
	Date      time.Time `json:"date"`
	StartHour int       `json:"start_hour"`
	EndHour   int       `json:"end_hour"`
	SlotIndex int       `json:"slot_index"`
}

// Hours returns the occurrence length in whole hours.
func (o Occurrence) Hours() int {
	return o.EndHour - o.StartHour
}

// StartsAt returns the wall-clock start of the occurrence.
func (o Occurrence) StartsAt() time.Time {
	return atHour(o.Date, o.StartHour)
}

// ProjectOccurrences expands weekly slots into dated occurrences until the
// emitted hours cover totalHours. The result only depends on the arguments.
func ProjectOccurrences(slots []Slot, totalHours float64, now time.Time) ([]Occurrence, error) {
	return projectOccurrences(slots, hoursToMinutes(totalHours), now, DefaultMaxWeeks)
}

func projectOccurrences(slots []Slot, budgetMinutes int, now time.Time, maxWeeks int) ([]Occurrence, error) {
	if len(slots) == 0 || budgetMinutes <= 0 {
		return []Occurrence{}, nil
	}
	if maxWeeks <= 0 {
		maxWeeks = DefaultMaxWeeks
	}

	sorted := SortSlots(slots)
	weeklyMinutes := 0
	anchors := make([]time.Time, len(sorted))
	for i, slot := range sorted {
		if slot.Hours() > 0 {
			weeklyMinutes += slot.Hours() * 60
		}
		anchors[i] = anchorDate(slot, now)
	}
	if weeklyMinutes <= 0 {
		return nil, ErrNoSlotCapacity
	}

	occurrences := make([]Occurrence, 0, budgetMinutes/weeklyMinutes*len(sorted)+len(sorted))
	total := 0
	for week := 0; week < maxWeeks; week++ {
		for i, slot := range sorted {
			if total >= budgetMinutes {
				return occurrences, nil
			}
			if slot.Hours() <= 0 {
				continue
			}
			occurrences = append(occurrences, Occurrence{
				Date:      anchors[i].AddDate(0, 0, 7*week),
				StartHour: slot.StartHour,
				EndHour:   slot.EndHour,
				SlotIndex: i,
			})
			total += slot.Hours() * 60
		}
	}
	return occurrences, nil
}

// anchorDate returns the first date on or after the slot start date that
// falls on the slot weekday. The start date is a calendar date: its own
// year, month and day are read in now's location, whatever zone it was
// decoded in. A same-day anchor whose start hour is already behind now
// moves to the following week.
func anchorDate(slot Slot, now time.Time) time.Time {
	loc := now.Location()
	start := slot.StartDate
	if start.IsZero() {
		start = now
	}
	base := calendarDate(start, loc)
	diff := (slot.DayOfWeek - isoWeekday(base) + 7) % 7
	anchor := base.AddDate(0, 0, diff)
	if diff == 0 && atHour(anchor, slot.StartHour).Before(now) {
		anchor = anchor.AddDate(0, 0, 7)
	}
	return anchor
}

func hoursToMinutes(hours float64) int {
	if hours <= 0 {
		return 0
	}
	return int(math.Ceil(hours*60 - 1e-9))
}
