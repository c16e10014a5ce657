package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lesson-planner-api/internal/models"
)

const occurrenceBatchSize = 500

// LessonOccurrenceRepository persists generated lesson placements.
type LessonOccurrenceRepository struct {
	db *sqlx.DB
}

// NewLessonOccurrenceRepository builds the repository.
func NewLessonOccurrenceRepository(db *sqlx.DB) *LessonOccurrenceRepository {
	return &LessonOccurrenceRepository{db: db}
}

func (r *LessonOccurrenceRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListByCourse returns occurrences in chronological order.
func (r *LessonOccurrenceRepository) ListByCourse(ctx context.Context, courseID string) ([]models.LessonOccurrence, error) {
	const query = `SELECT id, course_progress_id, lesson_id, scheduled_at, start_hour, end_hour, duration_minutes, fragment, created_at
FROM lesson_occurrences WHERE course_progress_id = $1 ORDER BY scheduled_at ASC, fragment ASC`
	var occurrences []models.LessonOccurrence
	if err := r.db.SelectContext(ctx, &occurrences, query, courseID); err != nil {
		return nil, fmt.Errorf("list lesson occurrences: %w", err)
	}
	return occurrences, nil
}

// DeleteByCourse removes every occurrence of a course and returns the
// number of rows deleted.
func (r *LessonOccurrenceRepository) DeleteByCourse(ctx context.Context, exec sqlx.ExtContext, courseID string) (int64, error) {
	res, err := r.exec(exec).ExecContext(ctx, `DELETE FROM lesson_occurrences WHERE course_progress_id = $1`, courseID)
	if err != nil {
		return 0, fmt.Errorf("delete lesson occurrences: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete lesson occurrences rows affected: %w", err)
	}
	return affected, nil
}

// BulkInsert writes occurrences in batches of multi-row inserts.
func (r *LessonOccurrenceRepository) BulkInsert(ctx context.Context, exec sqlx.ExtContext, occurrences []models.LessonOccurrence) error {
	if len(occurrences) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()
	for i := range occurrences {
		occ := &occurrences[i]
		if occ.ID == "" {
			occ.ID = uuid.NewString()
		}
		if occ.CreatedAt.IsZero() {
			occ.CreatedAt = now
		}
		if occ.Fragment == 0 {
			occ.Fragment = 1
		}
	}

	const query = `
INSERT INTO lesson_occurrences (id, course_progress_id, lesson_id, scheduled_at, start_hour, end_hour, duration_minutes, fragment, created_at)
VALUES (:id, :course_progress_id, :lesson_id, :scheduled_at, :start_hour, :end_hour, :duration_minutes, :fragment, :created_at)`

	for start := 0; start < len(occurrences); start += occurrenceBatchSize {
		end := start + occurrenceBatchSize
		if end > len(occurrences) {
			end = len(occurrences)
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, occurrences[start:end]); err != nil {
			return fmt.Errorf("insert lesson occurrences: %w", err)
		}
	}
	return nil
}
