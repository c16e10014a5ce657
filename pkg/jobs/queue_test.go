package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	done := make(chan string, 4)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		done <- job.Payload.(string)
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{Type: "generate", Payload: "a"}))
	require.NoError(t, q.Enqueue(Job{Type: "generate", Payload: "b"}))

	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case v := <-done:
			got[v] = true
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}
	assert.Equal(t, map[string]bool{"a": true, "b": true}, got)
}

func TestQueueRejectsDuplicateKeysUntilDone(t *testing.T) {
	release := make(chan struct{})
	finished := make(chan struct{}, 2)
	q := NewQueue("dedupe", func(ctx context.Context, job Job) error {
		<-release
		finished <- struct{}{}
		return nil
	}, QueueConfig{Workers: 1})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{Key: "course-1"}))
	assert.ErrorIs(t, q.Enqueue(Job{Key: "course-1"}), ErrDuplicate)
	assert.Equal(t, 1, q.InFlight())

	close(release)
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for job")
	}
	assert.Eventually(t, func() bool { return q.InFlight() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.NoError(t, q.Enqueue(Job{Key: "course-1"}))
}

func TestQueueRetriesThenGivesUp(t *testing.T) {
	var attempts int32
	q := NewQueue("retry", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("boom")
	}, QueueConfig{Workers: 1, MaxRetries: 2, RetryDelay: 5 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{Key: "course-2"}))

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&attempts) == 3 && q.InFlight() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("idle", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Job{}))
}
