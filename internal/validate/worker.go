package validate

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Priority orders re-validation jobs. Rule and descriptor edits outrank
// source edits, which outrank everything else.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

// Job is one re-validation request. Full marks a complete re-plan and
// re-validate pass; otherwise Path names the file that changed.
type Job struct {
	Path     string
	Full     bool
	Priority Priority
}

// RunFunc executes one job. The worker keeps the stats; the callback owns
// the actual plan and validate work.
type RunFunc func(ctx context.Context, job Job) error

type WorkerConfig struct {
	Workers      int
	MaxQueueSize int
	RateLimit    int // jobs per second, 0 disables
}

func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		Workers:      2,
		MaxQueueSize: 256,
		RateLimit:    20,
	}
}

// WorkerStats is a point-in-time snapshot of worker progress.
type WorkerStats struct {
	Completed int64
	Failed    int64
	Dropped   int64
	InQueue   int64
	IsRunning bool
	StartedAt time.Time
	LastRun   time.Time
}

// Worker drains re-validation jobs from three priority queues. High-priority
// jobs always run before normal ones, normal before low; an optional rate
// limiter keeps re-validation from saturating a core during edit bursts.
type Worker struct {
	run RunFunc
	cfg WorkerConfig
	log *zap.Logger

	highQueue   chan Job
	normalQueue chan Job
	lowQueue    chan Job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	limiter *time.Ticker

	stats   WorkerStats
	statsMu sync.RWMutex
}

func NewWorker(run RunFunc, cfg WorkerConfig, log *zap.Logger) *Worker {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 256
	}
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	w := &Worker{
		run:         run,
		cfg:         cfg,
		log:         log.Named("worker"),
		highQueue:   make(chan Job, 64),
		normalQueue: make(chan Job, cfg.MaxQueueSize),
		lowQueue:    make(chan Job, cfg.MaxQueueSize*2),
		ctx:         ctx,
		cancel:      cancel,
	}
	if cfg.RateLimit > 0 {
		w.limiter = time.NewTicker(time.Second / time.Duration(cfg.RateLimit))
	}
	return w
}

func (w *Worker) Start() {
	w.statsMu.Lock()
	w.stats.IsRunning = true
	w.stats.StartedAt = time.Now()
	w.statsMu.Unlock()

	w.log.Info("validation worker started", zap.Int("workers", w.cfg.Workers))

	for i := 0; i < w.cfg.Workers; i++ {
		w.wg.Add(1)
		go w.worker(i)
	}
}

func (w *Worker) Stop() {
	w.cancel()
	if w.limiter != nil {
		w.limiter.Stop()
	}
	w.wg.Wait()

	w.statsMu.Lock()
	w.stats.IsRunning = false
	w.statsMu.Unlock()

	w.log.Info("validation worker stopped")
}

// Enqueue queues a job without blocking. A full queue drops the job and
// returns false; the watcher retries on the next batch anyway.
func (w *Worker) Enqueue(job Job) bool {
	queue := w.normalQueue
	switch job.Priority {
	case PriorityHigh:
		queue = w.highQueue
	case PriorityLow:
		queue = w.lowQueue
	}

	select {
	case queue <- job:
		atomic.AddInt64(&w.stats.InQueue, 1)
		return true
	default:
		atomic.AddInt64(&w.stats.Dropped, 1)
		w.log.Warn("queue full, job dropped", zap.String("path", job.Path))
		return false
	}
}

func (w *Worker) EnqueueBatch(paths []string, priority Priority) int {
	count := 0
	for _, p := range paths {
		if w.Enqueue(Job{Path: p, Priority: priority}) {
			count++
		}
	}
	return count
}

func (w *Worker) GetStats() WorkerStats {
	w.statsMu.RLock()
	stats := WorkerStats{
		IsRunning: w.stats.IsRunning,
		StartedAt: w.stats.StartedAt,
		LastRun:   w.stats.LastRun,
	}
	w.statsMu.RUnlock()
	stats.Completed = atomic.LoadInt64(&w.stats.Completed)
	stats.Failed = atomic.LoadInt64(&w.stats.Failed)
	stats.Dropped = atomic.LoadInt64(&w.stats.Dropped)
	stats.InQueue = atomic.LoadInt64(&w.stats.InQueue)
	return stats
}

func (w *Worker) worker(id int) {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		default:
		}

		if w.limiter != nil {
			select {
			case <-w.limiter.C:
			case <-w.ctx.Done():
				return
			}
		}

		var job Job
		select {
		case job = <-w.highQueue:
		default:
			select {
			case job = <-w.normalQueue:
			default:
				select {
				case job = <-w.lowQueue:
				default:
					time.Sleep(10 * time.Millisecond)
					continue
				}
			}
		}

		atomic.AddInt64(&w.stats.InQueue, -1)
		w.log.Debug("job picked up",
			zap.Int("worker", id),
			zap.String("path", job.Path),
			zap.Bool("full", job.Full))
		w.process(job)
	}
}

func (w *Worker) process(job Job) {
	if err := w.run(w.ctx, job); err != nil {
		atomic.AddInt64(&w.stats.Failed, 1)
		w.log.Warn("job failed", zap.String("path", job.Path), zap.Error(err))
		return
	}
	atomic.AddInt64(&w.stats.Completed, 1)
	w.statsMu.Lock()
	w.stats.LastRun = time.Now()
	w.statsMu.Unlock()
}
