package scheduling

import "fmt"

// CourseSlots groups the recurring slots of one course.
type CourseSlots struct {
	CourseProgressID string
	Label            string
	Slots            []Slot
}

// Conflict flags a candidate slot that collides with another course.
type Conflict struct {
	Slot                        Slot   `json:"slot"`
	ConflictingCourseProgressID string `json:"conflicting_course_progress_id"`
	Message                     string `json:"message"`
}

// Overlaps reports whether two slots share a weekday and overlapping hours.
// Ranges that only touch, such as 8h-10h and 10h-12h, do not overlap.
func Overlaps(a, b Slot) bool {
	if a.DayOfWeek != b.DayOfWeek {
		return false
	}
	s1, e1 := a.StartHour, a.EndHour
	s2, e2 := b.StartHour, b.EndHour
	return (s1 >= s2 && s1 < e2) ||
		(e1 > s2 && e1 <= e2) ||
		(s1 <= s2 && e1 >= e2)
}

// DetectConflicts compares candidate slots of courseID against the recurring
// slots of other courses. Start dates are not considered: two slots on the
// same weekday with overlapping hours conflict whatever week they start in.
func DetectConflicts(courseID string, candidates []Slot, others []CourseSlots) []Conflict {
	conflicts := make([]Conflict, 0)
	for _, candidate := range candidates {
		for _, other := range others {
			if other.CourseProgressID == courseID {
				continue
			}
			for _, existing := range other.Slots {
				if !Overlaps(candidate, existing) {
					continue
				}
				conflicts = append(conflicts, Conflict{
					Slot:                        candidate,
					ConflictingCourseProgressID: other.CourseProgressID,
					Message:                     conflictMessage(candidate, existing, other),
				})
			}
		}
	}
	return conflicts
}

func conflictMessage(candidate, existing Slot, other CourseSlots) string {
	name := other.Label
	if name == "" {
		name = other.CourseProgressID
	}
	return fmt.Sprintf("%s %s overlaps with %s (%s)",
		DayName(candidate.DayOfWeek), candidate.Label(), name, existing.Label())
}
