package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lesson-planner-api/internal/models"
)

// RecurringSlotRepository manages the weekly slots of a course.
type RecurringSlotRepository struct {
	db *sqlx.DB
}

// NewRecurringSlotRepository builds the repository.
func NewRecurringSlotRepository(db *sqlx.DB) *RecurringSlotRepository {
	return &RecurringSlotRepository{db: db}
}

func (r *RecurringSlotRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListByCourse returns slots ordered by day and start hour.
func (r *RecurringSlotRepository) ListByCourse(ctx context.Context, courseID string) ([]models.RecurringScheduleSlot, error) {
	const query = `SELECT id, course_progress_id, day_of_week, start_hour, end_hour, start_date, created_at
FROM recurring_schedule_slots WHERE course_progress_id = $1 ORDER BY day_of_week ASC, start_hour ASC`
	var slots []models.RecurringScheduleSlot
	if err := r.db.SelectContext(ctx, &slots, query, courseID); err != nil {
		return nil, fmt.Errorf("list recurring slots: %w", err)
	}
	return slots, nil
}

// ReplaceForCourse deletes the existing slot set of a course and inserts
// the provided one. Run it inside a transaction.
func (r *RecurringSlotRepository) ReplaceForCourse(ctx context.Context, exec sqlx.ExtContext, courseID string, slots []models.RecurringScheduleSlot) error {
	target := r.exec(exec)
	if _, err := target.ExecContext(ctx, `DELETE FROM recurring_schedule_slots WHERE course_progress_id = $1`, courseID); err != nil {
		return fmt.Errorf("delete recurring slots: %w", err)
	}

	const query = `
INSERT INTO recurring_schedule_slots (id, course_progress_id, day_of_week, start_hour, end_hour, start_date, created_at)
VALUES (:id, :course_progress_id, :day_of_week, :start_hour, :end_hour, :start_date, :created_at)`

	now := time.Now().UTC()
	for i := range slots {
		slot := &slots[i]
		if slot.ID == "" {
			slot.ID = uuid.NewString()
		}
		slot.CourseProgressID = courseID
		if slot.CreatedAt.IsZero() {
			slot.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, slot); err != nil {
			return fmt.Errorf("insert recurring slot: %w", err)
		}
	}
	return nil
}
