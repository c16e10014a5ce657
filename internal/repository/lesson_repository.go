package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lesson-planner-api/internal/models"
)

// LessonRepository reads the lessons of a course.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository builds the repository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

// ListByCourse returns lessons in planning order. Lessons without an
// explicit order come last.
func (r *LessonRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Lesson, error) {
	const query = `SELECT id, course_progress_id, label, duration_minutes, sort_order, created_at, updated_at
FROM lessons WHERE course_progress_id = $1 ORDER BY sort_order ASC NULLS LAST, label ASC, id ASC`
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, courseID); err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	return lessons, nil
}
