package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-planner-api/internal/dto"
	"github.com/noah-isme/lesson-planner-api/internal/models"
	appErrors "github.com/noah-isme/lesson-planner-api/pkg/errors"
	"github.com/noah-isme/lesson-planner-api/pkg/jobs"
)

type pendingGenerator interface {
	GeneratePending(ctx context.Context, pending models.PendingCourse) (*dto.GenerateScheduleResponse, error)
}

type pendingRefresher interface {
	RefreshPending(ctx context.Context, queue jobEnqueuer) (int, error)
}

// ScheduleWorker bridges queue jobs to non-destructive generation.
type ScheduleWorker struct {
	generator pendingGenerator
	logger    *zap.Logger
}

// NewScheduleWorker constructs a worker.
func NewScheduleWorker(generator pendingGenerator, logger *zap.Logger) *ScheduleWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleWorker{generator: generator, logger: logger}
}

// Handle processes a queue job. Client errors such as a deleted course are
// logged and dropped so the queue does not retry them.
func (w *ScheduleWorker) Handle(ctx context.Context, job jobs.Job) error {
	if job.Type != JobTypeGenerate {
		w.logger.Warn("unknown job type", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	pending, ok := job.Payload.(models.PendingCourse)
	if !ok {
		return fmt.Errorf("job %s: unexpected payload %T", job.ID, job.Payload)
	}

	res, err := w.generator.GeneratePending(ctx, pending)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Status < http.StatusInternalServerError {
			w.logger.Warn("generation skipped",
				zap.String("course_progress_id", pending.CourseProgressID),
				zap.String("code", appErr.Code),
				zap.String("reason", appErr.Message))
			return nil
		}
		return err
	}

	w.logger.Info("pending lessons scheduled",
		zap.String("course_progress_id", pending.CourseProgressID),
		zap.Int("created", res.OccurrencesCreated),
		zap.Int("warnings", len(res.Warnings)))
	return nil
}

// ScheduleRefresher periodically enqueues generation jobs for courses with
// unscheduled lessons.
type ScheduleRefresher struct {
	cron      *cron.Cron
	refresher pendingRefresher
	queue     jobEnqueuer
	timeout   time.Duration
	logger    *zap.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduleRefresher registers the refresh run on a cron expression
// evaluated in loc.
func NewScheduleRefresher(refresher pendingRefresher, queue jobEnqueuer, spec string, loc *time.Location, logger *zap.Logger) (*ScheduleRefresher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	r := &ScheduleRefresher{
		refresher: refresher,
		queue:     queue,
		timeout:   time.Minute,
		logger:    logger.With(zap.String("component", "schedule_refresher")),
	}
	r.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := r.cron.AddFunc(spec, r.tick); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	return r, nil
}

// Start launches the cron loop. Runs stop when ctx is cancelled or Stop is
// called.
func (r *ScheduleRefresher) Start(ctx context.Context) {
	r.mu.Lock()
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.mu.Unlock()
	r.cron.Start()
	r.logger.Info("refresher started", zap.Int("entries", len(r.cron.Entries())))
}

// Stop halts the cron loop and waits for a running refresh to return.
func (r *ScheduleRefresher) Stop() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()
	<-r.cron.Stop().Done()
	r.logger.Info("refresher stopped")
}

// RunOnce performs a single refresh and returns the number of jobs enqueued.
func (r *ScheduleRefresher) RunOnce(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.refresher.RefreshPending(ctx, r.queue)
}

func (r *ScheduleRefresher) tick() {
	r.mu.Lock()
	ctx := r.ctx
	r.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return
	}
	if _, err := r.RunOnce(ctx); err != nil {
		r.logger.Error("refresh failed", zap.Error(err))
	}
}
