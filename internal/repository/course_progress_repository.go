package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lesson-planner-api/internal/models"
)

const courseProgressColumns = `id, user_id, class_id, class_name, subject_id, subject_name, created_at, updated_at`

// CourseProgressRepository reads courses and the slots of sibling courses.
type CourseProgressRepository struct {
	db *sqlx.DB
}

// NewCourseProgressRepository builds the repository.
func NewCourseProgressRepository(db *sqlx.DB) *CourseProgressRepository {
	return &CourseProgressRepository{db: db}
}

// FindByID returns a course progress row. sql.ErrNoRows is returned untouched.
func (r *CourseProgressRepository) FindByID(ctx context.Context, id string) (*models.CourseProgress, error) {
	query := `SELECT ` + courseProgressColumns + ` FROM course_progress WHERE id = $1 LIMIT 1`
	var course models.CourseProgress
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find course progress: %w", err)
	}
	return &course, nil
}

// Touch bumps updated_at for a course.
func (r *CourseProgressRepository) Touch(ctx context.Context, exec sqlx.ExtContext, id string, ts time.Time) error {
	target := exec
	if target == nil {
		target = r.db
	}
	if _, err := target.ExecContext(ctx, `UPDATE course_progress SET updated_at = $2 WHERE id = $1`, id, ts); err != nil {
		return fmt.Errorf("touch course progress: %w", err)
	}
	return nil
}

type courseSlotRow struct {
	models.CourseProgress
	SlotID        sql.NullString `db:"slot_id"`
	SlotDayOfWeek sql.NullInt32  `db:"slot_day_of_week"`
	SlotStartHour sql.NullInt32  `db:"slot_start_hour"`
	SlotEndHour   sql.NullInt32  `db:"slot_end_hour"`
	SlotStartDate sql.NullTime   `db:"slot_start_date"`
	SlotCreatedAt sql.NullTime   `db:"slot_created_at"`
}

// ListOtherSlotsByUser returns every course of the user except excludeID,
// each with its recurring slots. Courses without slots are omitted.
func (r *CourseProgressRepository) ListOtherSlotsByUser(ctx context.Context, userID, excludeID string) ([]models.CourseWithSlots, error) {
	const query = `SELECT cp.id, cp.user_id, cp.class_id, cp.class_name, cp.subject_id, cp.subject_name, cp.created_at, cp.updated_at,
s.id AS slot_id, s.day_of_week AS slot_day_of_week, s.start_hour AS slot_start_hour, s.end_hour AS slot_end_hour,
s.start_date AS slot_start_date, s.created_at AS slot_created_at
FROM course_progress cp
JOIN recurring_schedule_slots s ON s.course_progress_id = cp.id
WHERE cp.user_id = $1 AND cp.id <> $2
ORDER BY cp.id ASC, s.day_of_week ASC, s.start_hour ASC`

	var rows []courseSlotRow
	if err := r.db.SelectContext(ctx, &rows, query, userID, excludeID); err != nil {
		return nil, fmt.Errorf("list sibling course slots: %w", err)
	}

	result := make([]models.CourseWithSlots, 0)
	index := make(map[string]int)
	for _, row := range rows {
		pos, ok := index[row.ID]
		if !ok {
			pos = len(result)
			index[row.ID] = pos
			result = append(result, models.CourseWithSlots{Course: row.CourseProgress})
		}
		if !row.SlotID.Valid {
			continue
		}
		result[pos].Slots = append(result[pos].Slots, models.RecurringScheduleSlot{
			ID:               row.SlotID.String,
			CourseProgressID: row.ID,
			DayOfWeek:        int(row.SlotDayOfWeek.Int32),
			StartHour:        int(row.SlotStartHour.Int32),
			EndHour:          int(row.SlotEndHour.Int32),
			StartDate:        row.SlotStartDate.Time,
			CreatedAt:        row.SlotCreatedAt.Time,
		})
	}
	return result, nil
}

// ListPendingGeneration returns courses that have recurring slots and at
// least one lesson whose stored occurrences cover less than its duration.
func (r *CourseProgressRepository) ListPendingGeneration(ctx context.Context, limit int) ([]models.PendingCourse, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `SELECT cp.id AS course_progress_id, cp.user_id, COUNT(l.id) AS pending_lessons
FROM course_progress cp
JOIN lessons l ON l.course_progress_id = cp.id
WHERE EXISTS (SELECT 1 FROM recurring_schedule_slots s WHERE s.course_progress_id = cp.id)
AND (SELECT COALESCE(SUM(o.duration_minutes), 0) FROM lesson_occurrences o WHERE o.lesson_id = l.id) < COALESCE(NULLIF(l.duration_minutes, 0), 60)
GROUP BY cp.id, cp.user_id
ORDER BY cp.id ASC
LIMIT $1`
	var pending []models.PendingCourse
	if err := r.db.SelectContext(ctx, &pending, query, limit); err != nil {
		return nil, fmt.Errorf("list pending generation: %w", err)
	}
	return pending, nil
}
