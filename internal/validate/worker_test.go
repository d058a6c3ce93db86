package validate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type jobRecorder struct {
	mu   sync.Mutex
	seen []string
}

func (r *jobRecorder) run(_ context.Context, job Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, job.Path)
	return nil
}

func (r *jobRecorder) paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

func TestWorkerProcessesJobs(t *testing.T) {
	rec := &jobRecorder{}
	w := NewWorker(rec.run, WorkerConfig{Workers: 2, MaxQueueSize: 16}, zaptest.NewLogger(t))
	w.Start()
	defer w.Stop()

	require.Equal(t, 3, w.EnqueueBatch([]string{"a.go", "b.go", "c.go"}, PriorityNormal))
	require.Eventually(t, func() bool {
		return w.GetStats().Completed == 3
	}, 2*time.Second, 10*time.Millisecond)

	assert.ElementsMatch(t, []string{"a.go", "b.go", "c.go"}, rec.paths())
	assert.Equal(t, int64(0), w.GetStats().InQueue)
}

func TestWorkerStartStop(t *testing.T) {
	w := NewWorker(func(context.Context, Job) error { return nil }, DefaultWorkerConfig(), zaptest.NewLogger(t))
	assert.False(t, w.GetStats().IsRunning)

	w.Start()
	assert.True(t, w.GetStats().IsRunning)
	assert.False(t, w.GetStats().StartedAt.IsZero())

	w.Stop()
	assert.False(t, w.GetStats().IsRunning)
}

func TestWorkerPriorityOrder(t *testing.T) {
	rec := &jobRecorder{}
	w := NewWorker(rec.run, WorkerConfig{Workers: 1, MaxQueueSize: 16}, zaptest.NewLogger(t))

	// queue before starting so a single worker drains strictly by priority
	require.True(t, w.Enqueue(Job{Path: "low.go", Priority: PriorityLow}))
	require.True(t, w.Enqueue(Job{Path: "normal.go", Priority: PriorityNormal}))
	require.True(t, w.Enqueue(Job{Path: "high.go", Full: true, Priority: PriorityHigh}))

	w.Start()
	require.Eventually(t, func() bool {
		return w.GetStats().Completed == 3
	}, 2*time.Second, 10*time.Millisecond)
	w.Stop()

	assert.Equal(t, []string{"high.go", "normal.go", "low.go"}, rec.paths())
}

func TestWorkerDropsWhenFull(t *testing.T) {
	w := NewWorker(func(context.Context, Job) error { return nil }, WorkerConfig{Workers: 1, MaxQueueSize: 1}, zaptest.NewLogger(t))

	assert.True(t, w.Enqueue(Job{Path: "first.go", Priority: PriorityNormal}))
	assert.False(t, w.Enqueue(Job{Path: "second.go", Priority: PriorityNormal}))

	stats := w.GetStats()
	assert.Equal(t, int64(1), stats.InQueue)
	assert.Equal(t, int64(1), stats.Dropped)
}

func TestWorkerCountsFailures(t *testing.T) {
	boom := errors.New("boom")
	run := func(_ context.Context, job Job) error {
		if job.Path == "bad.go" {
			return boom
		}
		return nil
	}
	w := NewWorker(run, WorkerConfig{Workers: 1, MaxQueueSize: 8}, zaptest.NewLogger(t))
	w.Start()
	defer w.Stop()

	require.True(t, w.Enqueue(Job{Path: "bad.go", Priority: PriorityNormal}))
	require.True(t, w.Enqueue(Job{Path: "good.go", Priority: PriorityNormal}))

	require.Eventually(t, func() bool {
		s := w.GetStats()
		return s.Completed == 1 && s.Failed == 1
	}, 2*time.Second, 10*time.Millisecond)
}
