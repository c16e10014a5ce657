package models

import (
	"time"

	"github.com/noah-isme/lesson-planner-api/internal/scheduling"
)

// CourseProgress tracks one teacher's progress through a subject for a class.
type CourseProgress struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	ClassID     string    `db:"class_id" json:"class_id"`
	ClassName   string    `db:"class_name" json:"class_name"`
	SubjectID   string    `db:"subject_id" json:"subject_id"`
	SubjectName string    `db:"subject_name" json:"subject_name"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Label is the human readable course name used in conflict messages.
func (c CourseProgress) Label() string {
	switch {
	case c.SubjectName != "" && c.ClassName != "":
		return c.SubjectName + " " + c.ClassName
	case c.SubjectName != "":
		return c.SubjectName
	case c.ClassName != "":
		return c.ClassName
	default:
		return c.ID
	}
}

// RecurringScheduleSlot is a persisted weekly slot of a course.
type RecurringScheduleSlot struct {
	ID               string    `db:"id" json:"id"`
	CourseProgressID string    `db:"course_progress_id" json:"course_progress_id"`
	DayOfWeek        int       `db:"day_of_week" json:"day_of_week"`
	StartHour        int       `db:"start_hour" json:"start_hour"`
	EndHour          int       `db:"end_hour" json:"end_hour"`
	StartDate        time.Time `db:"start_date" json:"start_date"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// Slot converts the row into the scheduler value type.
func (s RecurringScheduleSlot) Slot() scheduling.Slot {
	return scheduling.Slot{
		DayOfWeek: s.DayOfWeek,
		StartHour: s.StartHour,
		EndHour:   s.EndHour,
		StartDate: s.StartDate,
	}
}

// SlotsOf converts persisted rows into scheduler slots.
func SlotsOf(rows []RecurringScheduleSlot) []scheduling.Slot {
	slots := make([]scheduling.Slot, 0, len(rows))
	for _, row := range rows {
		slots = append(slots, row.Slot())
	}
	return slots
}

// CourseWithSlots bundles a course with its recurring slots.
type CourseWithSlots struct {
	Course CourseProgress          `json:"course"`
	Slots  []RecurringScheduleSlot `json:"slots"`
}

// Lesson is one plannable unit of a course.
type Lesson struct {
	ID               string    `db:"id" json:"id"`
	CourseProgressID string    `db:"course_progress_id" json:"course_progress_id"`
	Label            string    `db:"label" json:"label"`
	DurationMinutes  int       `db:"duration_minutes" json:"duration_minutes"`
	SortOrder        *int      `db:"sort_order" json:"order,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// PlanningLesson converts the row into the scheduler value type.
func (l Lesson) PlanningLesson() scheduling.Lesson {
	return scheduling.Lesson{
		ID:              l.ID,
		Label:           l.Label,
		DurationMinutes: l.DurationMinutes,
		Order:           l.SortOrder,
	}
}

// LessonOccurrence is a persisted placement of a lesson (or lesson fragment).
type LessonOccurrence struct {
	ID               string    `db:"id" json:"id"`
	CourseProgressID string    `db:"course_progress_id" json:"course_progress_id"`
	LessonID         string    `db:"lesson_id" json:"lesson_id"`
	ScheduledAt      time.Time `db:"scheduled_at" json:"scheduled_at"`
	StartHour        int       `db:"start_hour" json:"start_hour"`
	EndHour          int       `db:"end_hour" json:"end_hour"`
	DurationMinutes  int       `db:"duration_minutes" json:"duration_minutes"`
	Fragment         int       `db:"fragment" json:"fragment"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// PendingCourse is a course with recurring slots and at least one lesson
// that has no occurrence yet.
type PendingCourse struct {
	CourseProgressID string `db:"course_progress_id"`
	UserID           string `db:"user_id"`
	PendingLessons   int    `db:"pending_lessons"`
}
