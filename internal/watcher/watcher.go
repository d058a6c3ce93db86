// Package watcher keeps a project continuously validated. Filesystem events
// are debounced into batches, classified by how much they invalidate, and fed
// to the validation worker as prioritized jobs.
package watcher

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"stratum/internal/validate"
)

// Watcher follows one project root recursively. Newly created directories
// are picked up as they appear.
type Watcher struct {
	root       string
	cfg        Config
	classifier *Classifier
	worker     *validate.Worker
	debounce   *debouncer
	log        *zap.Logger

	fs   *fsnotify.Watcher
	fsMu sync.Mutex

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(root string, cfg Config, classifier *Classifier, worker *validate.Worker, log *zap.Logger) *Watcher {
	if cfg.Debounce <= 0 {
		cfg.Debounce = 300 * time.Millisecond
	}
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = 100
	}
	if log == nil {
		log = zap.NewNop()
	}
	w := &Watcher{
		root:       filepath.Clean(root),
		cfg:        cfg,
		classifier: classifier,
		worker:     worker,
		log:        log.Named("watcher"),
	}
	w.debounce = newDebouncer(cfg.Debounce, cfg.MaxBatch, w.onFlush)
	return w
}

func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fs = fs
	if err := w.addDir(w.root); err != nil {
		fs.Close()
		return err
	}
	w.walk(w.root)

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.running = true
	go w.handleEvents()

	w.log.Info("watching project", zap.String("root", w.root))
	return nil
}

func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.cancel()
	done := w.done
	w.mu.Unlock()

	w.fsMu.Lock()
	err := w.fs.Close()
	w.fsMu.Unlock()

	<-done
	w.debounce.Stop()

	w.log.Info("watcher stopped")
	return err
}

func (w *Watcher) addDir(dir string) error {
	w.fsMu.Lock()
	defer w.fsMu.Unlock()
	return w.fs.Add(dir)
}

// walk registers every non-ignored subdirectory. Failures are logged and
// skipped so one unreadable directory does not kill the watch.
func (w *Watcher) walk(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		w.log.Debug("read dir", zap.String("path", dir), zap.Error(err))
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		full := filepath.Join(dir, entry.Name())
		rel, ok := w.relPath(full)
		if !ok || w.ignored(rel) {
			continue
		}
		if err := w.addDir(full); err != nil {
			w.log.Debug("watch dir", zap.String("path", full), zap.Error(err))
			continue
		}
		w.walk(full)
	}
}

func (w *Watcher) handleEvents() {
	defer close(w.done)
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	rel, ok := w.relPath(event.Name)
	if !ok || w.ignored(rel) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addDir(event.Name); err == nil {
				w.walk(event.Name)
			}
		}
	}

	fe := convertEvent(event, rel)
	if fe == nil {
		return
	}
	w.log.Debug("file event", zap.String("path", fe.Path), zap.String("type", fe.Type.String()))
	w.debounce.Add(*fe)
}

func convertEvent(event fsnotify.Event, rel string) *FileEvent {
	var typ EventType
	switch {
	case event.Has(fsnotify.Create):
		typ = EventCreate
	case event.Has(fsnotify.Write):
		typ = EventModify
	case event.Has(fsnotify.Remove):
		typ = EventDelete
	case event.Has(fsnotify.Rename):
		typ = EventRename
	default:
		return nil
	}
	return &FileEvent{Path: rel, Type: typ, Timestamp: time.Now()}
}

// onFlush turns a debounced batch into a single validation job at the
// urgency of its most urgent event. Validation is whole-tree, so one job per
// batch is enough; the path is the triggering file, kept for logging.
func (w *Watcher) onFlush(events []FileEvent) {
	job := validate.Job{Priority: validate.PriorityLow}
	for _, ev := range events {
		prio, full := w.classifier.Classify(ev.Path)
		if full {
			job.Full = true
		}
		if job.Path == "" || prio > job.Priority {
			job.Priority = prio
			job.Path = ev.Path
		}
	}
	if job.Path == "" {
		return
	}

	w.log.Debug("change batch",
		zap.Int("events", len(events)),
		zap.String("trigger", job.Path),
		zap.Bool("full", job.Full))
	w.worker.Enqueue(job)
}

func (w *Watcher) relPath(name string) (string, bool) {
	rel, err := filepath.Rel(w.root, name)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

func (w *Watcher) ignored(rel string) bool {
	base := path.Base(rel)
	if !w.cfg.WatchHidden && base != "." && strings.HasPrefix(base, ".") {
		return true
	}
	for _, pattern := range w.cfg.IgnorePatterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}
