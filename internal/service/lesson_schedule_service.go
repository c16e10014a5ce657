package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-planner-api/internal/dto"
	"github.com/noah-isme/lesson-planner-api/internal/models"
	"github.com/noah-isme/lesson-planner-api/internal/scheduling"
	"github.com/noah-isme/lesson-planner-api/pkg/cache"
	appErrors "github.com/noah-isme/lesson-planner-api/pkg/errors"
	"github.com/noah-isme/lesson-planner-api/pkg/export"
	"github.com/noah-isme/lesson-planner-api/pkg/jobs"
)

// JobTypeGenerate identifies background generation jobs.
const JobTypeGenerate = "schedule.generate"

const (
	previewSourceStored  = "stored"
	previewSourceRequest = "request"
	previewSourceCache   = "cache"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type courseProgressRepository interface {
	FindByID(ctx context.Context, id string) (*models.CourseProgress, error)
	ListOtherSlotsByUser(ctx context.Context, userID, excludeID string) ([]models.CourseWithSlots, error)
	ListPendingGeneration(ctx context.Context, limit int) ([]models.PendingCourse, error)
	Touch(ctx context.Context, exec sqlx.ExtContext, id string, ts time.Time) error
}

type recurringSlotRepository interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.RecurringScheduleSlot, error)
	ReplaceForCourse(ctx context.Context, exec sqlx.ExtContext, courseID string, slots []models.RecurringScheduleSlot) error
}

type lessonRepository interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.Lesson, error)
}

type lessonOccurrenceRepository interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.LessonOccurrence, error)
	DeleteByCourse(ctx context.Context, exec sqlx.ExtContext, courseID string) (int64, error)
	BulkInsert(ctx context.Context, exec sqlx.ExtContext, occurrences []models.LessonOccurrence) error
}

type previewCache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration)
	Invalidate(ctx context.Context, pattern string)
}

type scheduleRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
	ContentType() string
	Extension() string
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// LessonScheduleConfig tunes the scheduling service.
type LessonScheduleConfig struct {
	Location        *time.Location
	MaxWeeks        int
	DefaultPolicy   scheduling.LongLessonPolicy
	PreviewCacheTTL time.Duration
	PendingBatch    int
}

// LessonScheduleService manages recurring slots, previews, generation and
// exports for a course.
type LessonScheduleService struct {
	courses     courseProgressRepository
	slots       recurringSlotRepository
	lessons     lessonRepository
	occurrences lessonOccurrenceRepository
	tx          txProvider
	cache       previewCache
	metrics     *MetricsService
	renderers   map[string]scheduleRenderer
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         LessonScheduleConfig
	now         func() time.Time
}

// NewLessonScheduleService wires the scheduling service.
func NewLessonScheduleService(
	courses courseProgressRepository,
	slots recurringSlotRepository,
	lessons lessonRepository,
	occurrences lessonOccurrenceRepository,
	tx txProvider,
	cache previewCache,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg LessonScheduleConfig,
) *LessonScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.MaxWeeks <= 0 {
		cfg.MaxWeeks = scheduling.DefaultMaxWeeks
	}
	if !cfg.DefaultPolicy.Valid() {
		cfg.DefaultPolicy = scheduling.PolicySplit
	}
	if cfg.PreviewCacheTTL <= 0 {
		cfg.PreviewCacheTTL = 10 * time.Minute
	}
	if cfg.PendingBatch <= 0 {
		cfg.PendingBatch = 200
	}
	return &LessonScheduleService{
		courses:     courses,
		slots:       slots,
		lessons:     lessons,
		occurrences: occurrences,
		tx:          tx,
		cache:       cache,
		metrics:     metrics,
		renderers: map[string]scheduleRenderer{
			"csv": export.NewCSVExporter(),
			"pdf": export.NewPDFExporter(),
		},
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// GetSchedule returns a course with its recurring slots.
func (s *LessonScheduleService) GetSchedule(ctx context.Context, userID, courseID string) (*dto.ScheduleResponse, error) {
	course, err := s.ownedCourse(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	rows, err := s.slots.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recurring slots")
	}
	return newScheduleResponse(course, rows), nil
}

// CheckConflicts reports overlaps between candidate slots and the recurring
// slots of the owner's other courses.
func (s *LessonScheduleService) CheckConflicts(ctx context.Context, userID, courseID string, req dto.ConflictCheckRequest) (*dto.ConflictCheckResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid conflict check payload")
	}
	if _, err := s.ownedCourse(ctx, userID, courseID); err != nil {
		return nil, err
	}
	candidates, err := s.parseSlots(req.Slots)
	if err != nil {
		return nil, err
	}
	conflicts, err := s.detectConflicts(ctx, userID, courseID, candidates)
	if err != nil {
		return nil, err
	}
	return &dto.ConflictCheckResponse{Conflicts: conflicts}, nil
}

// UpdateRecurringSchedule replaces the slot set of a course. Conflicting
// slots are rejected unless the request allows them.
func (s *LessonScheduleService) UpdateRecurringSchedule(ctx context.Context, userID, courseID string, req dto.UpdateRecurringScheduleRequest) (*dto.ScheduleResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid recurring schedule payload")
	}
	course, err := s.ownedCourse(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	candidates, err := s.parseSlots(req.Slots)
	if err != nil {
		return nil, err
	}

	conflicts, err := s.detectConflicts(ctx, userID, courseID, candidates)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		if !req.AllowConflicts {
			return nil, conflictError(conflicts)
		}
		s.logger.Warn("saving recurring schedule with conflicts",
			zap.String("course_progress_id", courseID),
			zap.Int("conflicts", len(conflicts)))
	}

	rows := make([]models.RecurringScheduleSlot, 0, len(candidates))
	for _, slot := range candidates {
		rows = append(rows, models.RecurringScheduleSlot{
			CourseProgressID: courseID,
			DayOfWeek:        slot.DayOfWeek,
			StartHour:        slot.StartHour,
			EndHour:          slot.EndHour,
			StartDate:        slot.StartDate,
		})
	}

	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	persistStart := time.Now()
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.slots.ReplaceForCourse(ctx, tx, courseID, rows); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save recurring slots")
		return nil, err
	}
	if err = s.courses.Touch(ctx, tx, courseID, s.now().UTC()); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit recurring schedule")
		return nil, err
	}
	s.metrics.ObserveDBQuery("slots_replace", time.Since(persistStart))

	s.invalidatePreviews(ctx, courseID)
	s.logger.Info("recurring schedule updated",
		zap.String("course_progress_id", courseID),
		zap.Int("slots", len(rows)))
	return newScheduleResponse(course, rows), nil
}

// Preview plans the course lessons without persisting anything. Previews of
// the stored slots are cached per course, policy and day.
func (s *LessonScheduleService) Preview(ctx context.Context, userID, courseID string, req dto.PreviewRequest) (*dto.PreviewResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid preview payload")
	}
	if _, err := s.ownedCourse(ctx, userID, courseID); err != nil {
		return nil, err
	}
	policy := s.policy(req.HandleLongLessons)

	if len(req.Slots) == 0 {
		return s.storedPreview(ctx, courseID, policy)
	}

	candidates, err := s.parseSlots(req.Slots)
	if err != nil {
		return nil, err
	}
	resp, err := s.preview(ctx, courseID, candidates, policy, previewSourceRequest)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordPreview(previewSourceRequest)
	return resp, nil
}

// Generate plans the course and persists lesson occurrences in one
// transaction.
func (s *LessonScheduleService) Generate(ctx context.Context, userID string, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error) {
	resp, err := s.generate(ctx, userID, req)
	written := 0
	if resp != nil {
		written = resp.OccurrencesCreated
	}
	s.metrics.RecordGeneration(TriggerAPI, written, err)
	return resp, err
}

// GeneratePending runs a non-destructive generation for a course found by
// the refresher.
func (s *LessonScheduleService) GeneratePending(ctx context.Context, pending models.PendingCourse) (*dto.GenerateScheduleResponse, error) {
	resp, err := s.generate(ctx, pending.UserID, dto.GenerateScheduleRequest{CourseProgressID: pending.CourseProgressID})
	written := 0
	if resp != nil {
		written = resp.OccurrencesCreated
	}
	s.metrics.RecordGeneration(TriggerRefresher, written, err)
	return resp, err
}

func (s *LessonScheduleService) generate(ctx context.Context, userID string, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generate payload")
	}
	courseID := req.CourseProgressID
	if _, err := s.ownedCourse(ctx, userID, courseID); err != nil {
		return nil, err
	}

	slotRows, err := s.slots.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recurring slots")
	}
	lessonRows, err := s.lessons.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lessons")
	}
	existing, err := s.occurrences.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson occurrences")
	}

	now := s.now().In(s.cfg.Location)
	slots := models.SlotsOf(slotRows)
	lessons := make([]scheduling.Lesson, 0, len(lessonRows))
	skipped := 0
	var persisted map[string]persistedLesson
	if req.Options.RegenerateExisting || len(existing) == 0 {
		for _, row := range lessonRows {
			lessons = append(lessons, row.PlanningLesson())
		}
	} else {
		persisted = persistedByLesson(existing)
		for _, row := range lessonRows {
			lesson := row.PlanningLesson()
			done, ok := persisted[row.ID]
			if ok && done.minutes >= lesson.RequiredMinutes() {
				skipped++
				continue
			}
			if ok {
				// only the unscheduled remainder is packed again
				lesson.DurationMinutes = lesson.RequiredMinutes() - done.minutes
			}
			lessons = append(lessons, lesson)
		}
		slots, now = resumeAfter(slots, existing[len(existing)-1], now)
	}

	policy := s.policy(req.Options.HandleLongLessons)
	result, err := s.plan(lessons, slots, policy, now)
	if err != nil {
		return nil, err
	}

	rows := make([]models.LessonOccurrence, 0, len(result.Preview))
	for i := range result.Preview {
		result.Preview[i].Fragment += persisted[result.Preview[i].LessonID].lastFragment
	}
	for _, entry := range result.Preview {
		rows = append(rows, models.LessonOccurrence{
			CourseProgressID: courseID,
			LessonID:         entry.LessonID,
			ScheduledAt:      entry.ScheduledDate,
			StartHour:        entry.StartHour,
			EndHour:          entry.EndHour,
			DurationMinutes:  entry.DurationMinutes,
			Fragment:         entry.Fragment,
		})
	}

	resp := &dto.GenerateScheduleResponse{
		CourseProgressID: courseID,
		SkippedLessons:   skipped,
		Preview:          result.Preview,
		Warnings:         result.Warnings,
		Summary:          result.Summary,
	}
	if !req.Options.RegenerateExisting && len(rows) == 0 {
		return resp, nil
	}

	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	persistStart := time.Now()
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if req.Options.RegenerateExisting {
		var deleted int64
		if deleted, err = s.occurrences.DeleteByCourse(ctx, tx, courseID); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear lesson occurrences")
			return nil, err
		}
		resp.OccurrencesDeleted = int(deleted)
	}
	if err = s.occurrences.BulkInsert(ctx, tx, rows); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist lesson occurrences")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit lesson occurrences")
		return nil, err
	}
	s.metrics.ObserveDBQuery("schedule_persist", time.Since(persistStart))

	resp.OccurrencesCreated = len(rows)
	s.logger.Info("lesson occurrences generated",
		zap.String("course_progress_id", courseID),
		zap.Int("created", resp.OccurrencesCreated),
		zap.Int("deleted", resp.OccurrencesDeleted),
		zap.Int("skipped_lessons", skipped),
		zap.Int("warnings", len(result.Warnings)))
	return resp, nil
}

// Export renders the stored-slot preview of a course as CSV or PDF.
func (s *LessonScheduleService) Export(ctx context.Context, userID, courseID string, query dto.ExportQuery) (*dto.ExportFile, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export query")
	}
	format := strings.ToLower(query.Format)
	if format == "" {
		format = "csv"
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", query.Format))
	}

	course, err := s.ownedCourse(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	preview, err := s.storedPreview(ctx, courseID, s.policy(query.HandleLongLessons))
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{Headers: []string{"No", "Date", "Day", "Slot", "Lesson", "Duration (h)", "Part"}}
	for i, entry := range preview.Preview {
		date := entry.ScheduledDate.In(s.cfg.Location)
		dataset.Append(
			fmt.Sprintf("%d", i+1),
			date.Format("2006-01-02"),
			date.Weekday().String(),
			entry.Slot,
			entry.LessonLabel,
			strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", entry.DurationHours), "0"), "."),
			fmt.Sprintf("%d", entry.Fragment),
		)
	}

	payload, err := renderer.Render(dataset, "Lesson schedule: "+course.Label())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	filename := fmt.Sprintf("schedule-%s-%s.%s", slugify(course.Label()), s.now().In(s.cfg.Location).Format("20060102"), renderer.Extension())
	return &dto.ExportFile{Filename: filename, ContentType: renderer.ContentType(), Payload: payload}, nil
}

// RefreshPending enqueues a non-destructive generation job for every course
// that has recurring slots and unscheduled lessons. It returns the number of
// jobs enqueued.
func (s *LessonScheduleService) RefreshPending(ctx context.Context, queue jobEnqueuer) (int, error) {
	pending, err := s.courses.ListPendingGeneration(ctx, s.cfg.PendingBatch)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending courses")
	}
	enqueued := 0
	for _, course := range pending {
		err := queue.Enqueue(jobs.Job{
			Key:     course.CourseProgressID,
			Type:    JobTypeGenerate,
			Payload: course,
		})
		switch {
		case err == nil:
			enqueued++
		case errors.Is(err, jobs.ErrDuplicate):
			continue
		default:
			s.logger.Warn("failed to enqueue generation",
				zap.String("course_progress_id", course.CourseProgressID),
				zap.Error(err))
		}
	}
	if len(pending) > 0 {
		s.logger.Info("pending courses refreshed", zap.Int("found", len(pending)), zap.Int("enqueued", enqueued))
	}
	return enqueued, nil
}

func (s *LessonScheduleService) storedPreview(ctx context.Context, courseID string, policy scheduling.LongLessonPolicy) (*dto.PreviewResponse, error) {
	now := s.now().In(s.cfg.Location)
	// slot boundaries are whole hours, so a preview stays valid until the next one
	key := cache.Key("preview", courseID, string(policy), now.Format("2006-01-02T15"))

	var cached dto.PreviewResponse
	if s.cache != nil && s.cache.Get(ctx, key, &cached) {
		cached.Source = previewSourceCache
		s.metrics.RecordPreview(previewSourceCache)
		return &cached, nil
	}

	rows, err := s.slots.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recurring slots")
	}
	resp, err := s.preview(ctx, courseID, models.SlotsOf(rows), policy, previewSourceStored)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, key, resp, previewTTL(now, s.cfg.PreviewCacheTTL))
	}
	s.metrics.RecordPreview(previewSourceStored)
	return resp, nil
}

func (s *LessonScheduleService) preview(ctx context.Context, courseID string, slots []scheduling.Slot, policy scheduling.LongLessonPolicy, source string) (*dto.PreviewResponse, error) {
	rows, err := s.lessons.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lessons")
	}
	lessons := make([]scheduling.Lesson, 0, len(rows))
	for _, row := range rows {
		lessons = append(lessons, row.PlanningLesson())
	}

	now := s.now().In(s.cfg.Location)
	result, err := s.plan(lessons, slots, policy, now)
	if err != nil {
		return nil, err
	}
	return &dto.PreviewResponse{
		CourseProgressID: courseID,
		Policy:           string(policy),
		Source:           source,
		Preview:          result.Preview,
		Warnings:         result.Warnings,
		Summary:          result.Summary,
		GeneratedAt:      now,
	}, nil
}

func (s *LessonScheduleService) plan(lessons []scheduling.Lesson, slots []scheduling.Slot, policy scheduling.LongLessonPolicy, now time.Time) (*scheduling.Result, error) {
	start := time.Now()
	result, err := scheduling.Plan(lessons, slots, scheduling.PlanOptions{Now: now, Policy: policy, MaxWeeks: s.cfg.MaxWeeks})
	if err != nil {
		return nil, planError(err)
	}
	types := make([]string, 0, len(result.Warnings))
	for _, w := range result.Warnings {
		types = append(types, string(w.Type))
	}
	s.metrics.ObservePlan(time.Since(start), types)
	return result, nil
}

func (s *LessonScheduleService) ownedCourse(ctx context.Context, userID, courseID string) (*models.CourseProgress, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course progress not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course progress")
	}
	if course.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course progress not found")
	}
	return course, nil
}

func (s *LessonScheduleService) detectConflicts(ctx context.Context, userID, courseID string, candidates []scheduling.Slot) ([]scheduling.Conflict, error) {
	siblings, err := s.courses.ListOtherSlotsByUser(ctx, userID, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sibling course slots")
	}
	others := make([]scheduling.CourseSlots, 0, len(siblings))
	for _, sibling := range siblings {
		others = append(others, scheduling.CourseSlots{
			CourseProgressID: sibling.Course.ID,
			Label:            sibling.Course.Label(),
			Slots:            models.SlotsOf(sibling.Slots),
		})
	}
	conflicts := scheduling.DetectConflicts(courseID, candidates, others)
	s.metrics.RecordConflicts(len(conflicts))
	return conflicts, nil
}

func (s *LessonScheduleService) parseSlots(inputs []dto.SlotInput) ([]scheduling.Slot, error) {
	slots, err := dto.ToSlots(inputs, s.cfg.Location)
	if err != nil {
		return nil, planError(err)
	}
	if err := scheduling.ValidateSlots(slots); err != nil {
		return nil, planError(err)
	}
	return slots, nil
}

func (s *LessonScheduleService) policy(raw string) scheduling.LongLessonPolicy {
	policy := scheduling.LongLessonPolicy(raw)
	if !policy.Valid() {
		return s.cfg.DefaultPolicy
	}
	return policy
}

// previewTTL caps ttl at the next hour boundary after now.
func previewTTL(now time.Time, ttl time.Duration) time.Duration {
	nextHour := time.Date(now.Year(), now.Month(), now.Day(), now.Hour()+1, 0, 0, 0, now.Location())
	if untilHour := nextHour.Sub(now); untilHour < ttl {
		return untilHour
	}
	return ttl
}

func (s *LessonScheduleService) invalidatePreviews(ctx context.Context, courseID string) {
	if s.cache == nil {
		return
	}
	s.cache.Invalidate(ctx, cache.Key("preview", courseID)+":*")
}

type persistedLesson struct {
	minutes      int
	lastFragment int
}

// persistedByLesson sums the stored minutes of every lesson and records its
// highest fragment number.
func persistedByLesson(existing []models.LessonOccurrence) map[string]persistedLesson {
	out := make(map[string]persistedLesson, len(existing))
	for _, occ := range existing {
		p := out[occ.LessonID]
		p.minutes += occ.DurationMinutes
		if occ.Fragment > p.lastFragment {
			p.lastFragment = occ.Fragment
		}
		out[occ.LessonID] = p
	}
	return out
}

// resumeAfter moves slot anchors past the last persisted occurrence so new
// occurrences never land before or on it.
func resumeAfter(slots []scheduling.Slot, last models.LessonOccurrence, now time.Time) ([]scheduling.Slot, time.Time) {
	loc := now.Location()
	lastStart := last.ScheduledAt.In(loc)
	lastEnd := time.Date(lastStart.Year(), lastStart.Month(), lastStart.Day(), last.EndHour, 0, 0, 0, loc)
	lastDay := time.Date(lastStart.Year(), lastStart.Month(), lastStart.Day(), 0, 0, 0, 0, loc)

	shifted := make([]scheduling.Slot, len(slots))
	for i, slot := range slots {
		if slot.StartDate.Before(lastDay) {
			slot.StartDate = lastDay
		}
		shifted[i] = slot
	}
	if lastEnd.After(now) {
		now = lastEnd
	}
	return shifted, now
}

func planError(err error) error {
	var slotErr *scheduling.SlotError
	switch {
	case errors.As(err, &slotErr):
		return appErrors.WithDetails(appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, slotErr.Error()), slotErr)
	case errors.Is(err, scheduling.ErrNoSlotCapacity):
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to plan schedule")
	}
}

func conflictError(conflicts []scheduling.Conflict) error {
	cause := &models.ScheduleConflictError{
		Type:      "CONFLICT",
		Message:   fmt.Sprintf("%d slot conflict(s) with other courses", len(conflicts)),
		Conflicts: conflicts,
	}
	return appErrors.WithDetails(
		appErrors.Wrap(cause, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "recurring schedule conflicts with other courses"),
		conflicts,
	)
}

func newScheduleResponse(course *models.CourseProgress, rows []models.RecurringScheduleSlot) *dto.ScheduleResponse {
	resp := &dto.ScheduleResponse{
		CourseProgressID: course.ID,
		ClassName:        course.ClassName,
		SubjectName:      course.SubjectName,
		Slots:            make([]dto.SlotView, 0, len(rows)),
	}
	for _, row := range rows {
		resp.Slots = append(resp.Slots, dto.NewSlotView(row.ID, row.Slot()))
		resp.WeeklyHours += row.Slot().Hours()
	}
	return resp
}

func slugify(value string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(value) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "course"
	}
	return slug
}
