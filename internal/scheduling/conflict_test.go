package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverlapsBoundaries(t *testing.T) {
	cases := []struct {
		name string
		a, b Slot
		want bool
	}{
		{"touching end to start", Slot{DayOfWeek: 1, StartHour: 8, EndHour: 10}, Slot{DayOfWeek: 1, StartHour: 10, EndHour: 12}, false},
		{"touching start to end", Slot{DayOfWeek: 1, StartHour: 10, EndHour: 12}, Slot{DayOfWeek: 1, StartHour: 8, EndHour: 10}, false},
		{"partial overlap", Slot{DayOfWeek: 1, StartHour: 8, EndHour: 10}, Slot{DayOfWeek: 1, StartHour: 9, EndHour: 11}, true},
		{"contained", Slot{DayOfWeek: 1, StartHour: 9, EndHour: 10}, Slot{DayOfWeek: 1, StartHour: 8, EndHour: 12}, true},
		{"containing", Slot{DayOfWeek: 1, StartHour: 8, EndHour: 12}, Slot{DayOfWeek: 1, StartHour: 9, EndHour: 10}, true},
		{"identical", Slot{DayOfWeek: 5, StartHour: 13, EndHour: 15}, Slot{DayOfWeek: 5, StartHour: 13, EndHour: 15}, true},
		{"different day", Slot{DayOfWeek: 1, StartHour: 8, EndHour: 10}, Slot{DayOfWeek: 2, StartHour: 8, EndHour: 10}, false},
		{"disjoint", Slot{DayOfWeek: 3, StartHour: 7, EndHour: 8}, Slot{DayOfWeek: 3, StartHour: 14, EndHour: 16}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Overlaps(tc.a, tc.b))
			assert.Equal(t, tc.want, Overlaps(tc.b, tc.a), "overlap is symmetric")
		})
	}
}

func TestDetectConflictsAcrossCourses(t *testing.T) {
	candidates := []Slot{
		{DayOfWeek: 1, StartHour: 8, EndHour: 10, StartDate: knownMonday},
		{DayOfWeek: 3, StartHour: 13, EndHour: 15, StartDate: knownMonday},
	}
	others := []CourseSlots{
		{CourseProgressID: "course-b", Label: "Physics 11B", Slots: []Slot{
			{DayOfWeek: 1, StartHour: 9, EndHour: 11},
			{DayOfWeek: 1, StartHour: 10, EndHour: 12},
		}},
		{CourseProgressID: "course-c", Slots: []Slot{
			{DayOfWeek: 3, StartHour: 12, EndHour: 16},
			{DayOfWeek: 4, StartHour: 13, EndHour: 15},
		}},
	}

	conflicts := DetectConflicts("course-a", candidates, others)

	require.Len(t, conflicts, 2)
	assert.Equal(t, candidates[0], conflicts[0].Slot)
	assert.Equal(t, "course-b", conflicts[0].ConflictingCourseProgressID)
	assert.Equal(t, "Monday 8h-10h overlaps with Physics 11B (9h-11h)", conflicts[0].Message)
	assert.Equal(t, candidates[1], conflicts[1].Slot)
	assert.Equal(t, "course-c", conflicts[1].ConflictingCourseProgressID)
	assert.Equal(t, "Wednesday 13h-15h overlaps with course-c (12h-16h)", conflicts[1].Message)
}

func TestDetectConflictsIgnoresOwnCourseAndStartDates(t *testing.T) {
	later := knownMonday.AddDate(0, 3, 0)
	candidates := []Slot{{DayOfWeek: 2, StartHour: 8, EndHour: 10, StartDate: knownMonday}}
	others := []CourseSlots{
		{CourseProgressID: "self", Slots: []Slot{{DayOfWeek: 2, StartHour: 8, EndHour: 10}}},
		{CourseProgressID: "other", Slots: []Slot{{DayOfWeek: 2, StartHour: 9, EndHour: 10, StartDate: later}}},
	}

	conflicts := DetectConflicts("self", candidates, others)

	require.Len(t, conflicts, 1)
	assert.Equal(t, "other", conflicts[0].ConflictingCourseProgressID)
}

func TestDetectConflictsNone(t *testing.T) {
	conflicts := DetectConflicts("a", []Slot{{DayOfWeek: 1, StartHour: 8, EndHour: 10}}, nil)
	assert.NotNil(t, conflicts)
	assert.Empty(t, conflicts)
}

func TestValidateSlots(t *testing.T) {
	valid := Slot{DayOfWeek: 7, StartHour: 0, EndHour: 23, StartDate: knownMonday}
	require.NoError(t, ValidateSlot(valid))

	cases := map[string]Slot{
		"day_of_week": {DayOfWeek: 8, StartHour: 8, EndHour: 9, StartDate: knownMonday},
		"start_hour":  {DayOfWeek: 1, StartHour: -1, EndHour: 9, StartDate: knownMonday},
		"end_hour":    {DayOfWeek: 1, StartHour: 8, EndHour: 24, StartDate: knownMonday},
		"start_date":  {DayOfWeek: 1, StartHour: 8, EndHour: 9},
	}
	for field, slot := range cases {
		err := ValidateSlots([]Slot{valid, slot})
		var slotErr *SlotError
		require.ErrorAs(t, err, &slotErr, field)
		assert.Equal(t, field, slotErr.Field)
		assert.Equal(t, 1, slotErr.Index)
	}
}

func TestDayNameAndLabel(t *testing.T) {
	assert.Equal(t, "Monday", DayName(1))
	assert.Equal(t, "Sunday", DayName(7))
	assert.Equal(t, "day 9", DayName(9))
	assert.Equal(t, "14h-16h", Slot{StartHour: 14, EndHour: 16}.Label())
}
