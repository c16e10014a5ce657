package scheduling

import (
	"fmt"
	"sort"
	"time"
)

// DefaultLessonMinutes is used for lessons without a positive duration.
const DefaultLessonMinutes = 60

// LongLessonPolicy decides what happens to a lesson longer than the slot
// capacity left for it.
type LongLessonPolicy string

const (
	// PolicySplit spreads the lesson over as many occurrences as needed.
	PolicySplit LongLessonPolicy = "split"
	// PolicyReduceDuration truncates the lesson to one full occurrence.
	PolicyReduceDuration LongLessonPolicy = "reduce_duration"
)

// Valid reports whether the policy is known.
func (p LongLessonPolicy) Valid() bool {
	return p == PolicySplit || p == PolicyReduceDuration
}

// WarningType classifies packer warnings.
type WarningType string

const (
	WarningSplit           WarningType = "SPLIT"
	WarningNotEnoughSlots  WarningType = "NOT_ENOUGH_SLOTS"
	WarningDurationReduced WarningType = "DURATION_REDUCED"
)

// Lesson is an ordered unit of teaching time.
type Lesson struct {
	ID              string `json:"id"`
	Label           string `json:"label"`
	DurationMinutes int    `json:"duration_minutes"`
	Order           *int   `json:"order"`
}

// RequiredMinutes returns the duration the packer schedules for the lesson.
func (l Lesson) RequiredMinutes() int {
	if l.DurationMinutes <= 0 {
		return DefaultLessonMinutes
	}
	return l.DurationMinutes
}

// Warning is a recoverable packing problem reported back to the caller.
type Warning struct {
	LessonID string      `json:"lesson_id"`
	Type     WarningType `json:"type"`
	Message  string      `json:"message"`
}

// PreviewEntry places a lesson, or a fragment of it, on an occurrence.
type PreviewEntry struct {
	LessonID        string    `json:"lesson_id"`
	LessonLabel     string    `json:"lesson_label"`
	ScheduledDate   time.Time `json:"scheduled_date"`
	Slot            string    `json:"slot"`
	DurationHours   float64   `json:"duration_hours"`
	DurationMinutes int       `json:"duration_minutes"`
	Fragment        int       `json:"fragment"`
	StartHour       int       `json:"-"`
	EndHour         int       `json:"-"`
}

// Summary aggregates a packing run.
type Summary struct {
	TotalLessons int     `json:"total_lessons"`
	TotalHours   float64 `json:"total_hours"`
	WeeksNeeded  int     `json:"weeks_needed"`
}

// PackResult is the outcome of PackLessons.
type PackResult struct {
	Preview         []PreviewEntry `json:"preview"`
	Warnings        []Warning      `json:"warnings"`
	Summary         Summary        `json:"summary"`
	OccurrencesUsed int            `json:"occurrences_used"`
}

// SortLessons returns a copy ordered by explicit order (nil last), then label.
func SortLessons(lessons []Lesson) []Lesson {
	sorted := make([]Lesson, len(lessons))
	copy(sorted, lessons)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		switch {
		case a.Order != nil && b.Order == nil:
			return true
		case a.Order == nil && b.Order != nil:
			return false
		case a.Order != nil && b.Order != nil && *a.Order != *b.Order:
			return *a.Order < *b.Order
		}
		if a.Label != b.Label {
			return a.Label < b.Label
		}
		return a.ID < b.ID
	})
	return sorted
}

// PackLessons assigns lessons to occurrences greedily in a single pass. The
// outer loop walks occurrences, the inner loop fills the current occurrence
// until its capacity or the lessons run out.
func PackLessons(lessons []Lesson, occurrences []Occurrence, policy LongLessonPolicy) PackResult {
	if !policy.Valid() {
		policy = PolicySplit
	}
	sorted := SortLessons(lessons)
	remaining := make([]int, len(sorted))
	fragments := make([]int, len(sorted))
	splitWarned := make([]bool, len(sorted))
	totalMinutes := 0
	for i, lesson := range sorted {
		remaining[i] = lesson.RequiredMinutes()
		totalMinutes += remaining[i]
	}

	result := PackResult{
		Preview:  []PreviewEntry{},
		Warnings: []Warning{},
		Summary: Summary{
			TotalLessons: len(sorted),
			TotalHours:   minutesToHours(totalMinutes),
		},
	}

	var firstUsed, lastUsed time.Time
	cursor := 0
	for _, occ := range occurrences {
		if cursor >= len(sorted) {
			break
		}
		full := occ.Hours() * 60
		capacity := full
		for capacity > 0 && cursor < len(sorted) {
			lesson := sorted[cursor]
			need := remaining[cursor]
			if need <= capacity {
				fragments[cursor]++
				result.Preview = append(result.Preview, newPreviewEntry(lesson, occ, need, fragments[cursor]))
				capacity -= need
				remaining[cursor] = 0
				cursor++
				continue
			}

			if policy == PolicyReduceDuration {
				if capacity < full {
					// retry the lesson on a fresh occurrence
					capacity = 0
					continue
				}
				fragments[cursor]++
				result.Preview = append(result.Preview, newPreviewEntry(lesson, occ, capacity, fragments[cursor]))
				result.Warnings = append(result.Warnings, Warning{
					LessonID: lesson.ID,
					Type:     WarningDurationReduced,
					Message:  fmt.Sprintf("lesson %q reduced from %s to %s to fit a single slot", lesson.Label, formatMinutes(need), formatMinutes(capacity)),
				})
				remaining[cursor] = 0
				capacity = 0
				cursor++
				continue
			}

			fragments[cursor]++
			result.Preview = append(result.Preview, newPreviewEntry(lesson, occ, capacity, fragments[cursor]))
			remaining[cursor] -= capacity
			capacity = 0
			if !splitWarned[cursor] {
				splitWarned[cursor] = true
				result.Warnings = append(result.Warnings, Warning{
					LessonID: lesson.ID,
					Type:     WarningSplit,
					Message:  fmt.Sprintf("lesson %q will be split across multiple slots", lesson.Label),
				})
			}
		}

		if capacity < full {
			if result.OccurrencesUsed == 0 {
				firstUsed = occ.Date
			}
			lastUsed = occ.Date
			result.OccurrencesUsed++
		}
	}

	for i := cursor; i < len(sorted); i++ {
		if remaining[i] <= 0 {
			continue
		}
		result.Warnings = append(result.Warnings, Warning{
			LessonID: sorted[i].ID,
			Type:     WarningNotEnoughSlots,
			Message:  fmt.Sprintf("not enough available slots to schedule lesson %q", sorted[i].Label),
		})
	}

	if result.OccurrencesUsed > 0 {
		result.Summary.WeeksNeeded = daysBetween(firstUsed, lastUsed)/7 + 1
	}
	return result
}

func newPreviewEntry(lesson Lesson, occ Occurrence, minutes, fragment int) PreviewEntry {
	return PreviewEntry{
		LessonID:        lesson.ID,
		LessonLabel:     lesson.Label,
		ScheduledDate:   occ.StartsAt(),
		Slot:            SlotLabel(occ.StartHour, occ.EndHour),
		DurationHours:   minutesToHours(minutes),
		DurationMinutes: minutes,
		Fragment:        fragment,
		StartHour:       occ.StartHour,
		EndHour:         occ.EndHour,
	}
}

func minutesToHours(minutes int) float64 {
	return float64(minutes) / 60
}

func formatMinutes(minutes int) string {
	if minutes%60 == 0 {
		return fmt.Sprintf("%dh", minutes/60)
	}
	return fmt.Sprintf("%dh%02dm", minutes/60, minutes%60)
}
