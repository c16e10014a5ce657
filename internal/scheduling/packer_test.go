package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func mondaySlot() Slot {
	return Slot{DayOfWeek: 1, StartHour: 8, EndHour: 10, StartDate: knownMonday}
}

func TestPlanThreeHourLessonsOnOneSlot(t *testing.T) {
	lessons := []Lesson{
		{ID: "l3", Label: "Fractions", DurationMinutes: 60, Order: intPtr(3)},
		{ID: "l1", Label: "Numbers", DurationMinutes: 60, Order: intPtr(1)},
		{ID: "l2", Label: "Addition", DurationMinutes: 60, Order: intPtr(2)},
	}

	result, err := Plan(lessons, []Slot{mondaySlot()}, PlanOptions{Now: knownMonday, Policy: PolicySplit})
	require.NoError(t, err)

	require.Len(t, result.Preview, 3)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, "l1", result.Preview[0].LessonID)
	assert.Equal(t, "l2", result.Preview[1].LessonID)
	assert.Equal(t, "l3", result.Preview[2].LessonID)

	week0 := time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC)
	week1 := time.Date(2024, time.January, 8, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, week0, result.Preview[0].ScheduledDate)
	assert.Equal(t, week0, result.Preview[1].ScheduledDate)
	assert.Equal(t, week1, result.Preview[2].ScheduledDate)
	assert.Equal(t, "8h-10h", result.Preview[2].Slot)

	assert.Equal(t, 3, result.Summary.TotalLessons)
	assert.Equal(t, 3.0, result.Summary.TotalHours)
	assert.Equal(t, 2, result.Summary.WeeksNeeded)
}

func TestPlanSplitsLongLesson(t *testing.T) {
	lessons := []Lesson{{ID: "long", Label: "Project", DurationMinutes: 180, Order: intPtr(1)}}

	result, err := Plan(lessons, []Slot{mondaySlot()}, PlanOptions{Now: knownMonday, Policy: PolicySplit})
	require.NoError(t, err)

	require.Len(t, result.Preview, 2)
	assert.Equal(t, 2.0, result.Preview[0].DurationHours)
	assert.Equal(t, 1.0, result.Preview[1].DurationHours)
	assert.Equal(t, 1, result.Preview[0].Fragment)
	assert.Equal(t, 2, result.Preview[1].Fragment)
	assert.Equal(t, knownMonday.AddDate(0, 0, 7), time.Date(
		result.Preview[1].ScheduledDate.Year(), result.Preview[1].ScheduledDate.Month(), result.Preview[1].ScheduledDate.Day(),
		0, 0, 0, 0, time.UTC))

	require.Len(t, result.Warnings, 1)
	assert.Equal(t, WarningSplit, result.Warnings[0].Type)
	assert.Equal(t, "long", result.Warnings[0].LessonID)
}

func TestPackLessonsSingleSplitWarningPerLesson(t *testing.T) {
	slot := Slot{DayOfWeek: 2, StartHour: 9, EndHour: 10, StartDate: knownMonday}
	lessons := []Lesson{{ID: "a", Label: "Essay", DurationMinutes: 240}}

	occurrences, err := ProjectOccurrences([]Slot{slot}, 4, knownMonday)
	require.NoError(t, err)
	result := PackLessons(lessons, occurrences, PolicySplit)

	assert.Len(t, result.Preview, 4)
	splits := 0
	for _, w := range result.Warnings {
		if w.Type == WarningSplit {
			splits++
		}
	}
	assert.Equal(t, 1, splits)
	assert.Equal(t, 4, result.Summary.WeeksNeeded)
}

func TestPackLessonsConservesDuration(t *testing.T) {
	slots := []Slot{
		{DayOfWeek: 1, StartHour: 8, EndHour: 10, StartDate: knownMonday},
		{DayOfWeek: 3, StartHour: 13, EndHour: 16, StartDate: knownMonday},
	}
	lessons := []Lesson{
		{ID: "a", Label: "A", DurationMinutes: 45, Order: intPtr(1)},
		{ID: "b", Label: "B", DurationMinutes: 150, Order: intPtr(2)},
		{ID: "c", Label: "C", DurationMinutes: 0, Order: intPtr(3)},
		{ID: "d", Label: "D", DurationMinutes: 200},
		{ID: "e", Label: "E", DurationMinutes: 30},
	}

	result, err := Plan(lessons, slots, PlanOptions{Now: knownMonday})
	require.NoError(t, err)

	scheduled := map[string]int{}
	for _, entry := range result.Preview {
		scheduled[entry.LessonID] += entry.DurationMinutes
	}
	for _, lesson := range lessons {
		assert.Equal(t, lesson.RequiredMinutes(), scheduled[lesson.ID], "lesson %s", lesson.ID)
	}
	for _, w := range result.Warnings {
		assert.NotEqual(t, WarningNotEnoughSlots, w.Type)
	}
}

func TestPackLessonsNoSlots(t *testing.T) {
	lessons := []Lesson{
		{ID: "a", Label: "A", DurationMinutes: 60},
		{ID: "b", Label: "B", DurationMinutes: 90},
	}

	result, err := Plan(lessons, nil, PlanOptions{Now: knownMonday})
	require.NoError(t, err)

	assert.Empty(t, result.Preview)
	require.Len(t, result.Warnings, 2)
	for _, w := range result.Warnings {
		assert.Equal(t, WarningNotEnoughSlots, w.Type)
	}
	assert.Equal(t, 0, result.Summary.WeeksNeeded)
	assert.Equal(t, 2.5, result.Summary.TotalHours)
}

func TestPackLessonsRunsOutOfOccurrences(t *testing.T) {
	occurrences := []Occurrence{{Date: knownMonday, StartHour: 8, EndHour: 10}}
	lessons := []Lesson{
		{ID: "a", Label: "A", DurationMinutes: 90, Order: intPtr(1)},
		{ID: "b", Label: "B", DurationMinutes: 60, Order: intPtr(2)},
		{ID: "c", Label: "C", DurationMinutes: 60, Order: intPtr(3)},
	}

	result := PackLessons(lessons, occurrences, PolicySplit)

	require.Len(t, result.Preview, 2)
	assert.Equal(t, 30, result.Preview[1].DurationMinutes)
	require.Len(t, result.Warnings, 3)
	assert.Equal(t, Warning{LessonID: "b", Type: WarningSplit, Message: `lesson "B" will be split across multiple slots`}, result.Warnings[0])
	assert.Equal(t, "b", result.Warnings[1].LessonID)
	assert.Equal(t, WarningNotEnoughSlots, result.Warnings[1].Type)
	assert.Equal(t, "c", result.Warnings[2].LessonID)
	assert.Equal(t, 1, result.Summary.WeeksNeeded)
}

func TestPackLessonsReduceDuration(t *testing.T) {
	lessons := []Lesson{
		{ID: "short", Label: "Warmup", DurationMinutes: 60, Order: intPtr(1)},
		{ID: "long", Label: "Lab", DurationMinutes: 180, Order: intPtr(2)},
	}

	result, err := Plan(lessons, []Slot{mondaySlot()}, PlanOptions{Now: knownMonday, Policy: PolicyReduceDuration})
	require.NoError(t, err)

	require.Len(t, result.Preview, 2)
	assert.Equal(t, "short", result.Preview[0].LessonID)
	assert.Equal(t, "long", result.Preview[1].LessonID)
	assert.Equal(t, 120, result.Preview[1].DurationMinutes)
	assert.Equal(t, 8, result.Preview[1].ScheduledDate.Day(), "long lesson moves to a fresh occurrence")

	require.Len(t, result.Warnings, 1)
	assert.Equal(t, WarningDurationReduced, result.Warnings[0].Type)
	assert.Equal(t, "long", result.Warnings[0].LessonID)
}

func TestSortLessonsNullOrderLast(t *testing.T) {
	lessons := []Lesson{
		{ID: "1", Label: "Zeta"},
		{ID: "2", Label: "Alpha"},
		{ID: "3", Label: "Beta", Order: intPtr(2)},
		{ID: "4", Label: "Gamma", Order: intPtr(1)},
		{ID: "5", Label: "Delta", Order: intPtr(2)},
	}

	sorted := SortLessons(lessons)

	ids := make([]string, 0, len(sorted))
	for _, l := range sorted {
		ids = append(ids, l.ID)
	}
	assert.Equal(t, []string{"4", "3", "5", "2", "1"}, ids)
	assert.Equal(t, "1", lessons[0].ID, "input slice is left untouched")
}

func TestLessonRequiredMinutesDefault(t *testing.T) {
	assert.Equal(t, 60, Lesson{}.RequiredMinutes())
	assert.Equal(t, 60, Lesson{DurationMinutes: -5}.RequiredMinutes())
	assert.Equal(t, 25, Lesson{DurationMinutes: 25}.RequiredMinutes())
}

func TestPlanRejectsInvalidSlot(t *testing.T) {
	_, err := Plan(nil, []Slot{{DayOfWeek: 1, StartHour: 10, EndHour: 10, StartDate: knownMonday}}, PlanOptions{Now: knownMonday})

	var slotErr *SlotError
	require.ErrorAs(t, err, &slotErr)
	assert.Equal(t, "end_hour", slotErr.Field)
	assert.Equal(t, "slot 1: end hour must be after start hour", err.Error())
}
