// Package engine wires the pipeline the CLI and the MCP tools share: rules
// and descriptor loading, planning, validation, applying, and watch mode.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"stratum/internal/descriptor"
	"stratum/internal/emit"
	"stratum/internal/layout"
	"stratum/internal/layout/templates"
	"stratum/internal/rules"
	"stratum/internal/scan"
	"stratum/internal/store"
	"stratum/internal/validate"
	"stratum/internal/watcher"
)

// ErrNoDescriptor means an operation that needs a feature descriptor was
// called without one.
var ErrNoDescriptor = errors.New("no descriptor loaded")

// Config locates the project and its inputs.
type Config struct {
	Root           string
	RulesPath      string // optional; built-in default ruleset when unset or missing
	DescriptorPath string // optional; Plan and Apply require it
	StorePath      string // defaults to .stratum/stratum.db under Root
	Scan           scan.Config
	Watch          watcher.Config
	Worker         validate.WorkerConfig
}

type Engine struct {
	cfg   Config
	store *store.Store
	log   *zap.Logger

	mu   sync.RWMutex
	rs   *rules.RuleSet
	desc *descriptor.Descriptor
}

func New(cfg Config, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{cfg: cfg, log: log.Named("engine")}
	if err := e.reload(); err != nil {
		return nil, err
	}

	path := cfg.StorePath
	if path == "" {
		path = store.DefaultPath(cfg.Root)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	e.store = st
	return e, nil
}

func (e *Engine) Close() error {
	return e.store.Close()
}

// Rules returns the active ruleset.
func (e *Engine) Rules() *rules.RuleSet {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rs
}

func (e *Engine) snapshot() (*rules.RuleSet, *descriptor.Descriptor) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rs, e.desc
}

// reload re-reads rules and descriptor from disk. A missing ruleset file
// falls back to the built-in default; a missing descriptor is an error since
// there is nothing sensible to plan without one.
func (e *Engine) reload() error {
	e.mu.RLock()
	rulesPath, descPath := e.cfg.RulesPath, e.cfg.DescriptorPath
	e.mu.RUnlock()

	rs := rules.Default()
	if rulesPath != "" {
		loaded, err := rules.Load(rulesPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
			e.log.Debug("no ruleset file, using built-in default",
				zap.String("path", rulesPath))
		case err != nil:
			return err
		default:
			rs = loaded
		}
	}

	var d *descriptor.Descriptor
	if descPath != "" {
		loaded, err := descriptor.Load(descPath)
		if err != nil {
			return err
		}
		d = loaded
	}

	e.mu.Lock()
	e.rs, e.desc = rs, d
	e.mu.Unlock()
	return nil
}

// UseDescriptor re-points the engine at another descriptor file and reloads.
// MCP clients use it to plan from a descriptor they just wrote.
func (e *Engine) UseDescriptor(path string) error {
	e.mu.Lock()
	e.cfg.DescriptorPath = path
	e.mu.Unlock()
	return e.reload()
}

// Plan computes the scaffolding plan for the current descriptor and records
// it in the manifest.
func (e *Engine) Plan(ctx context.Context) (*layout.Plan, error) {
	plan, _, err := e.plan()
	if err != nil {
		return nil, err
	}

	run, err := e.store.RecordRun(store.RunPlan, plan.DescriptorHash, plan.RulesHash)
	if err != nil {
		return nil, err
	}
	summary := fmt.Sprintf("%d files, %d dirs", len(plan.Files), len(plan.Dirs))
	if err := e.store.FinishRun(run.ID, store.StatusOK, summary); err != nil {
		return nil, err
	}

	e.log.Info("plan ready", zap.String("project", plan.Project), zap.String("summary", summary))
	return plan, nil
}

func (e *Engine) plan() (*layout.Plan, map[string][]byte, error) {
	rs, d := e.snapshot()
	if d == nil {
		return nil, nil, ErrNoDescriptor
	}
	planner, err := layout.NewPlanner(rs, templates.Builtin(), e.log)
	if err != nil {
		return nil, nil, err
	}
	plan, err := planner.Plan(d)
	if err != nil {
		return nil, nil, err
	}
	rendered, err := planner.RenderPlan(plan, d)
	if err != nil {
		return nil, nil, err
	}
	return plan, rendered, nil
}

// Apply renders the plan and writes it under the project root.
func (e *Engine) Apply(ctx context.Context, force bool) (*emit.Result, error) {
	plan, rendered, err := e.plan()
	if err != nil {
		return nil, err
	}
	em := emit.New(e.cfg.Root, e.store, e.log)
	return em.Apply(ctx, plan, rendered, emit.Options{Force: force})
}

// Validate scans the project tree and checks it against the ruleset. The
// report and its violations land in the manifest; the run status reflects
// the verdict, not whether the pass ran.
func (e *Engine) Validate(ctx context.Context) (*validate.Report, error) {
	rs, d := e.snapshot()

	tree, err := scan.NewScanner(e.cfg.Scan, e.log).Scan(ctx, e.cfg.Root)
	if err != nil {
		return nil, err
	}
	v, err := validate.New(rs, e.log)
	if err != nil {
		return nil, err
	}
	rep, err := v.Check(ctx, tree)
	if err != nil {
		return nil, err
	}

	descHash := ""
	if d != nil {
		descHash = d.Fingerprint()
	}
	run, err := e.store.RecordRun(store.RunValidate, descHash, rs.Fingerprint())
	if err != nil {
		return nil, err
	}
	if err := e.store.ReplaceViolations(run.ID, rep.Violations); err != nil {
		return nil, err
	}
	status := store.StatusOK
	if !rep.Valid {
		status = store.StatusFailed
	}
	if err := e.store.FinishRun(run.ID, status, rep.Summary); err != nil {
		return nil, err
	}
	return rep, nil
}

// Status summarizes the manifest against the tree currently on disk.
func (e *Engine) Status(ctx context.Context) (*store.Stats, error) {
	tree, err := scan.NewScanner(e.cfg.Scan, e.log).Scan(ctx, e.cfg.Root)
	if err != nil {
		return nil, err
	}
	onDisk := make(map[string]string, len(tree.Files))
	for _, f := range tree.Files {
		onDisk[f.Path] = f.Hash
	}
	return e.store.Stats(onDisk)
}

// Watch holds the project lock and keeps the tree validated until ctx is
// canceled. Returns ErrLockHeld when another watcher owns the project.
func (e *Engine) Watch(ctx context.Context) error {
	lock := watcher.NewLock(watcher.LockPath(e.cfg.Root))
	if err := lock.Acquire(); err != nil {
		return err
	}
	defer lock.Release()

	worker := validate.NewWorker(e.runJob, e.cfg.Worker, e.log)
	worker.Start()
	defer worker.Stop()

	e.mu.RLock()
	rulesPath, descPath := e.cfg.RulesPath, e.cfg.DescriptorPath
	e.mu.RUnlock()
	cls := watcher.NewClassifier(e.relToRoot(rulesPath), e.relToRoot(descPath), e.Rules())
	w := watcher.New(e.cfg.Root, e.cfg.Watch, cls, worker, e.log)
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	// full pass up front so the manifest is warm before the first event
	if _, err := e.Validate(ctx); err != nil {
		e.log.Warn("initial validation", zap.Error(err))
	}

	<-ctx.Done()
	return nil
}

// runJob services one watch-mode job. Full jobs reload rules and descriptor
// and replan before the validation pass.
func (e *Engine) runJob(ctx context.Context, job validate.Job) error {
	if job.Full {
		if err := e.reload(); err != nil {
			return fmt.Errorf("reload inputs: %w", err)
		}
		if _, err := e.Plan(ctx); err != nil && !errors.Is(err, ErrNoDescriptor) {
			return err
		}
	}
	_, err := e.Validate(ctx)
	return err
}

func (e *Engine) relToRoot(p string) string {
	if p == "" {
		return ""
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	root, err := filepath.Abs(e.cfg.Root)
	if err != nil {
		return p
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return p
	}
	return filepath.ToSlash(rel)
}
