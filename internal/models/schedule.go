package models

import "github.com/noah-isme/lesson-planner-api/internal/scheduling"

// ScheduleConflictError is returned when submitted recurring slots overlap
// the slots of another course owned by the same user.
type ScheduleConflictError struct {
	Type      string                `json:"type"`
	Message   string                `json:"message"`
	Conflicts []scheduling.Conflict `json:"conflicts"`
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
