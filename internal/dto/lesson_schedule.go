package dto

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/lesson-planner-api/internal/scheduling"
)

const dateLayout = "2006-01-02"

// SlotInput is a recurring slot as submitted by clients.
type SlotInput struct {
	DayOfWeek int    `json:"day_of_week" validate:"required,min=1,max=7"`
	StartHour int    `json:"start_hour" validate:"min=0,max=23"`
	EndHour   int    `json:"end_hour" validate:"min=0,max=23,gtfield=StartHour"`
	StartDate string `json:"start_date" validate:"required"`
}

// ToSlot parses the start date (a calendar date or an RFC 3339 timestamp)
// in loc and returns the scheduler slot.
func (in SlotInput) ToSlot(loc *time.Location) (scheduling.Slot, error) {
	if loc == nil {
		loc = time.UTC
	}
	raw := strings.TrimSpace(in.StartDate)
	start, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		ts, tsErr := time.Parse(time.RFC3339, raw)
		if tsErr != nil {
			return scheduling.Slot{}, fmt.Errorf("start_date %q is not an ISO-8601 date", in.StartDate)
		}
		start = ts.In(loc)
	}
	return scheduling.Slot{
		DayOfWeek: in.DayOfWeek,
		StartHour: in.StartHour,
		EndHour:   in.EndHour,
		StartDate: start,
	}, nil
}

// ToSlots converts every input and reports the first unparsable entry.
func ToSlots(inputs []SlotInput, loc *time.Location) ([]scheduling.Slot, error) {
	slots := make([]scheduling.Slot, 0, len(inputs))
	for i, in := range inputs {
		slot, err := in.ToSlot(loc)
		if err != nil {
			return nil, &scheduling.SlotError{Index: i, Field: "start_date", Message: err.Error()}
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

// SlotView is a recurring slot as returned to clients.
type SlotView struct {
	ID        string `json:"id,omitempty"`
	DayOfWeek int    `json:"day_of_week"`
	DayName   string `json:"day_name"`
	StartHour int    `json:"start_hour"`
	EndHour   int    `json:"end_hour"`
	StartDate string `json:"start_date"`
	Label     string `json:"label"`
}

// NewSlotView renders a scheduler slot for responses.
func NewSlotView(id string, slot scheduling.Slot) SlotView {
	return SlotView{
		ID:        id,
		DayOfWeek: slot.DayOfWeek,
		DayName:   scheduling.DayName(slot.DayOfWeek),
		StartHour: slot.StartHour,
		EndHour:   slot.EndHour,
		StartDate: slot.StartDate.Format(dateLayout),
		Label:     slot.Label(),
	}
}

// ScheduleResponse describes a course and its recurring slots.
type ScheduleResponse struct {
	CourseProgressID string     `json:"course_progress_id"`
	ClassName        string     `json:"class_name"`
	SubjectName      string     `json:"subject_name"`
	Slots            []SlotView `json:"slots"`
	WeeklyHours      int        `json:"weekly_hours"`
}

// UpdateRecurringScheduleRequest replaces the recurring slot set of a course.
type UpdateRecurringScheduleRequest struct {
	Slots          []SlotInput `json:"slots" validate:"max=50,dive"`
	AllowConflicts bool        `json:"allow_conflicts"`
}

// ConflictCheckRequest submits candidate slots for conflict detection.
type ConflictCheckRequest struct {
	Slots []SlotInput `json:"slots" validate:"required,min=1,max=50,dive"`
}

// ConflictCheckResponse lists conflicts with other courses.
type ConflictCheckResponse struct {
	Conflicts []scheduling.Conflict `json:"conflicts"`
}

// PreviewRequest asks for a schedule preview. Without slots the stored
// recurring slots are used.
type PreviewRequest struct {
	Slots             []SlotInput `json:"slots" validate:"omitempty,max=50,dive"`
	HandleLongLessons string      `json:"handle_long_lessons" validate:"omitempty,oneof=split reduce_duration"`
}

// PreviewResponse carries a computed, unsaved schedule.
type PreviewResponse struct {
	CourseProgressID string                    `json:"course_progress_id"`
	Policy           string                    `json:"policy"`
	Source           string                    `json:"source"`
	Preview          []scheduling.PreviewEntry `json:"preview"`
	Warnings         []scheduling.Warning      `json:"warnings"`
	Summary          scheduling.Summary        `json:"summary"`
	GeneratedAt      time.Time                 `json:"generated_at"`
}

// GenerateOptions tunes persisted generation.
type GenerateOptions struct {
	RegenerateExisting bool   `json:"regenerate_existing"`
	HandleLongLessons  string `json:"handle_long_lessons" validate:"omitempty,oneof=split reduce_duration"`
}

// GenerateScheduleRequest persists lesson occurrences for a course.
type GenerateScheduleRequest struct {
	CourseProgressID string          `json:"course_progress_id" validate:"required"`
	Options          GenerateOptions `json:"options"`
}

// GenerateScheduleResponse summarises a generation run.
type GenerateScheduleResponse struct {
	CourseProgressID   string                    `json:"course_progress_id"`
	OccurrencesCreated int                       `json:"occurrences_created"`
	OccurrencesDeleted int                       `json:"occurrences_deleted"`
	SkippedLessons     int                       `json:"skipped_lessons"`
	Preview            []scheduling.PreviewEntry `json:"preview"`
	Warnings           []scheduling.Warning      `json:"warnings"`
	Summary            scheduling.Summary        `json:"summary"`
}

// ExportQuery selects the export format.
type ExportQuery struct {
	Format            string `form:"format" validate:"omitempty,oneof=csv pdf"`
	HandleLongLessons string `form:"handle_long_lessons" validate:"omitempty,oneof=split reduce_duration"`
}

// ExportFile is a rendered export ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}
