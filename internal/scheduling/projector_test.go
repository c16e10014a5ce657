package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2024-01-01 is a Monday.
var knownMonday = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

func TestProjectOccurrencesDeterministic(t *testing.T) {
	slots := []Slot{
		{DayOfWeek: 3, StartHour: 14, EndHour: 16, StartDate: knownMonday},
		{DayOfWeek: 1, StartHour: 8, EndHour: 10, StartDate: knownMonday},
		{DayOfWeek: 1, StartHour: 6, EndHour: 7, StartDate: knownMonday},
	}
	now := knownMonday.Add(5 * time.Hour)

	first, err := ProjectOccurrences(slots, 11, now)
	require.NoError(t, err)
	reversed := []Slot{slots[2], slots[1], slots[0]}
	second, err := ProjectOccurrences(reversed, 11, now)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.NotEmpty(t, first)
	assert.Equal(t, 6, first[0].StartHour, "earliest slot on the earliest day comes first")
	assert.Equal(t, 8, first[1].StartHour)
	assert.Equal(t, 14, first[2].StartHour)
}

func TestProjectOccurrencesBudgetConservation(t *testing.T) {
	slots := []Slot{
		{DayOfWeek: 2, StartHour: 9, EndHour: 12, StartDate: knownMonday},
		{DayOfWeek: 4, StartHour: 13, EndHour: 15, StartDate: knownMonday},
	}
	for _, budget := range []float64{1, 2.5, 3, 5, 7, 13.25, 40} {
		occurrences, err := ProjectOccurrences(slots, budget, knownMonday)
		require.NoError(t, err)
		require.NotEmpty(t, occurrences)

		total := 0
		for _, occ := range occurrences {
			total += occ.Hours()
		}
		assert.GreaterOrEqual(t, float64(total), budget, "budget %v", budget)
		withoutLast := total - occurrences[len(occurrences)-1].Hours()
		assert.Less(t, float64(withoutLast), budget, "budget %v", budget)
	}
}

func TestProjectOccurrencesWeeklyCadence(t *testing.T) {
	slots := []Slot{{DayOfWeek: 1, StartHour: 8, EndHour: 10, StartDate: knownMonday}}

	occurrences, err := ProjectOccurrences(slots, 6, knownMonday.Add(7*time.Hour))
	require.NoError(t, err)
	require.Len(t, occurrences, 3)
	for i, occ := range occurrences {
		assert.Equal(t, knownMonday.AddDate(0, 0, 7*i), occ.Date)
		assert.Equal(t, 0, occ.SlotIndex)
	}
	assert.Equal(t, time.Date(2024, time.January, 8, 8, 0, 0, 0, time.UTC), occurrences[1].StartsAt())
}

func TestProjectOccurrencesAnchorAdvancesToWeekday(t *testing.T) {
	// anchor on a Monday, slot on Thursday
	slots := []Slot{{DayOfWeek: 4, StartHour: 10, EndHour: 11, StartDate: knownMonday}}

	occurrences, err := ProjectOccurrences(slots, 1, knownMonday)
	require.NoError(t, err)
	require.Len(t, occurrences, 1)
	assert.Equal(t, time.Date(2024, time.January, 4, 0, 0, 0, 0, time.UTC), occurrences[0].Date)
	assert.Equal(t, 4, isoWeekday(occurrences[0].Date))
}

func TestProjectOccurrencesSameDayPastStartSkipsAWeek(t *testing.T) {
	slots := []Slot{{DayOfWeek: 1, StartHour: 8, EndHour: 10, StartDate: knownMonday}}

	before, err := ProjectOccurrences(slots, 2, knownMonday.Add(7*time.Hour))
	require.NoError(t, err)
	after, err := ProjectOccurrences(slots, 2, knownMonday.Add(9*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, knownMonday, before[0].Date)
	assert.Equal(t, knownMonday.AddDate(0, 0, 7), after[0].Date)
}

func TestProjectOccurrencesSundayAnchor(t *testing.T) {
	slots := []Slot{{DayOfWeek: 7, StartHour: 18, EndHour: 20, StartDate: knownMonday}}

	occurrences, err := ProjectOccurrences(slots, 2, knownMonday)
	require.NoError(t, err)
	require.Len(t, occurrences, 1)
	assert.Equal(t, time.Sunday, occurrences[0].Date.Weekday())
	assert.Equal(t, 7, daysBetween(knownMonday, occurrences[0].Date)+1)
}

func TestProjectOccurrencesEmptySlots(t *testing.T) {
	occurrences, err := ProjectOccurrences(nil, 10, knownMonday)
	require.NoError(t, err)
	assert.Empty(t, occurrences)
}

func TestProjectOccurrencesZeroBudget(t *testing.T) {
	slots := []Slot{{DayOfWeek: 1, StartHour: 8, EndHour: 10, StartDate: knownMonday}}
	occurrences, err := ProjectOccurrences(slots, 0, knownMonday)
	require.NoError(t, err)
	assert.Empty(t, occurrences)
}

func TestProjectOccurrencesRejectsZeroCapacity(t *testing.T) {
	slots := []Slot{
		{DayOfWeek: 1, StartHour: 8, EndHour: 8, StartDate: knownMonday},
		{DayOfWeek: 2, StartHour: 10, EndHour: 9, StartDate: knownMonday},
	}
	_, err := ProjectOccurrences(slots, 4, knownMonday)
	assert.ErrorIs(t, err, ErrNoSlotCapacity)
}

func TestProjectOccurrencesSkipsEmptySlotsAmongValidOnes(t *testing.T) {
	slots := []Slot{
		{DayOfWeek: 1, StartHour: 8, EndHour: 8, StartDate: knownMonday},
		{DayOfWeek: 2, StartHour: 8, EndHour: 9, StartDate: knownMonday},
	}
	occurrences, err := ProjectOccurrences(slots, 3, knownMonday)
	require.NoError(t, err)
	require.Len(t, occurrences, 3)
	for _, occ := range occurrences {
		assert.Equal(t, 1, occ.Hours())
		assert.Equal(t, 1, occ.SlotIndex)
	}
}

func TestProjectOccurrencesHonoursWeekLimit(t *testing.T) {
	slots := []Slot{{DayOfWeek: 1, StartHour: 8, EndHour: 9, StartDate: knownMonday}}
	occurrences, err := projectOccurrences(slots, 100*60, knownMonday, 4)
	require.NoError(t, err)
	assert.Len(t, occurrences, 4)
}

func TestProjectOccurrencesUsesNowLocation(t *testing.T) {
	loc := time.FixedZone("WIB", 7*3600)
	// the start date's own calendar day (Monday) is kept, not its WIB instant
	start := time.Date(2024, time.January, 1, 20, 0, 0, 0, time.UTC)
	slots := []Slot{{DayOfWeek: 2, StartHour: 9, EndHour: 10, StartDate: start}}

	occurrences, err := ProjectOccurrences(slots, 1, time.Date(2024, time.January, 1, 0, 0, 0, 0, loc))
	require.NoError(t, err)
	require.Len(t, occurrences, 1)
	assert.Equal(t, loc, occurrences[0].Date.Location())
	assert.Equal(t, 2, occurrences[0].Date.Day())
}

func TestProjectOccurrencesStartDateInWesternZone(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	// DATE columns decode as UTC midnight
	slots := []Slot{{DayOfWeek: 1, StartHour: 8, EndHour: 10, StartDate: knownMonday}}
	now := time.Date(2024, time.January, 1, 12, 0, 0, 0, est)

	occurrences, err := ProjectOccurrences(slots, 2, now)
	require.NoError(t, err)
	require.Len(t, occurrences, 1)
	first := occurrences[0].Date
	assert.Equal(t, time.Date(2024, time.January, 8, 0, 0, 0, 0, est), first)
	assert.False(t, atHour(first, 8).Before(now))
}

func TestProjectOccurrencesNeverBeforeStartDate(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	now := time.Date(2023, time.December, 20, 9, 0, 0, 0, est)

	for day := 1; day <= 7; day++ {
		slots := []Slot{{DayOfWeek: day, StartHour: 8, EndHour: 9, StartDate: knownMonday}}
		occurrences, err := ProjectOccurrences(slots, 1, now)
		require.NoError(t, err)
		require.Len(t, occurrences, 1)
		date := occurrences[0].Date
		assert.Equal(t, day, isoWeekday(date))
		assert.False(t, date.Before(time.Date(2024, time.January, 1, 0, 0, 0, 0, est)), "day %d anchored at %s", day, date)
		assert.True(t, date.Before(time.Date(2024, time.January, 8, 0, 0, 0, 0, est)), "day %d anchored at %s", day, date)
	}
}
