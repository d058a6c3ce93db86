// Package emit writes planned files to disk. Writes are atomic, re-running
// an apply on unchanged input is a no-op, and files the user edited since
// the last emit are left alone and reported as conflicts instead of being
// clobbered.
package emit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"stratum/internal/layout"
	"stratum/internal/store"
)

// Options tunes one apply pass.
type Options struct {
	// Force overwrites files even when their on-disk content no longer
	// matches the manifest's last emitted state.
	Force bool
}

// Conflict is a file that was not written because the user owns its current
// content.
type Conflict struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Result lists what one apply pass did, each slice in plan order.
type Result struct {
	Written   []string   `json:"written"`
	Unchanged []string   `json:"unchanged"`
	Skipped   []string   `json:"skipped"`
	Conflicts []Conflict `json:"conflicts"`
}

// Applier is the contract the engine drives. Emitter is the local
// implementation; anything that can place rendered content may stand in.
type Applier interface {
	Apply(ctx context.Context, plan *layout.Plan, rendered map[string][]byte, opts Options) (*Result, error)
}

// Emitter writes rendered plans under a project root and records every
// touched file in the manifest store.
type Emitter struct {
	root  string
	store *store.Store
	log   *zap.Logger
}

func New(root string, st *store.Store, log *zap.Logger) *Emitter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Emitter{root: root, store: st, log: log.Named("emit")}
}

// Apply materializes a plan. Every pass is recorded as a run in the
// manifest; a hard error finishes the run as failed and returns it.
func (e *Emitter) Apply(ctx context.Context, plan *layout.Plan, rendered map[string][]byte, opts Options) (*Result, error) {
	run, err := e.store.RecordRun(store.RunApply, plan.DescriptorHash, plan.RulesHash)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	if err := e.apply(ctx, plan, rendered, opts, run.ID, res); err != nil {
		if ferr := e.store.FinishRun(run.ID, store.StatusFailed, err.Error()); ferr != nil {
			e.log.Warn("finish run", zap.Error(ferr))
		}
		return nil, err
	}

	summary := summarize(res)
	if err := e.store.FinishRun(run.ID, store.StatusOK, summary); err != nil {
		return nil, err
	}
	e.log.Info("apply complete",
		zap.String("project", plan.Project),
		zap.String("summary", summary))
	return res, nil
}

func (e *Emitter) apply(ctx context.Context, plan *layout.Plan, rendered map[string][]byte, opts Options, runID string, res *Result) error {
	for _, dir := range plan.Dirs {
		if err := os.MkdirAll(filepath.Join(e.root, filepath.FromSlash(dir)), 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}
	for _, pf := range plan.Files {
		if err := ctx.Err(); err != nil {
			return err
		}
		content, ok := rendered[pf.Path]
		if !ok {
			return fmt.Errorf("no rendered content for %s", pf.Path)
		}
		if err := e.applyFile(pf, content, opts, runID, res); err != nil {
			return err
		}
	}
	return nil
}

func (e *Emitter) applyFile(pf layout.PlannedFile, content []byte, opts Options, runID string, res *Result) error {
	abs := filepath.Join(e.root, filepath.FromSlash(pf.Path))
	want := hashBytes(content)

	disk, err := os.ReadFile(abs)
	if errors.Is(err, os.ErrNotExist) {
		return e.write(pf, abs, content, want, runID, res)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", pf.Path, err)
	}

	have := hashBytes(disk)
	if have == want {
		res.Unchanged = append(res.Unchanged, pf.Path)
		return e.record(pf, want, runID)
	}
	if pf.Mode == layout.ModeOnce {
		// seed files belong to the user after the first emit
		res.Skipped = append(res.Skipped, pf.Path)
		return nil
	}

	state, err := e.store.FileState(pf.Path)
	if err != nil {
		return err
	}
	if state != nil && state.ContentHash == have {
		// disk still holds our previous output
		return e.write(pf, abs, content, want, runID, res)
	}
	if opts.Force {
		e.log.Warn("overwriting edited file", zap.String("path", pf.Path))
		return e.write(pf, abs, content, want, runID, res)
	}

	reason := "content differs from last emitted state"
	if state == nil {
		reason = "file exists but was never emitted"
	}
	res.Conflicts = append(res.Conflicts, Conflict{Path: pf.Path, Reason: reason})
	return nil
}

func (e *Emitter) write(pf layout.PlannedFile, abs string, content []byte, hash, runID string, res *Result) error {
	if err := writeAtomic(abs, content, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", pf.Path, err)
	}
	res.Written = append(res.Written, pf.Path)
	return e.record(pf, hash, runID)
}

func (e *Emitter) record(pf layout.PlannedFile, hash, runID string) error {
	return e.store.UpsertFile(&store.FileState{
		Path:        pf.Path,
		ContentHash: hash,
		Layer:       pf.Layer,
		Template:    pf.Template,
		RunID:       runID,
	})
}

// writeAtomic lands content via a temp file and rename so readers never see
// a half-written file.
func writeAtomic(path string, content []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".stratum-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	_, werr := tmp.Write(content)
	cerr := tmp.Close()
	if werr != nil {
		os.Remove(tmpName)
		return werr
	}
	if cerr != nil {
		os.Remove(tmpName)
		return cerr
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func hashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func summarize(res *Result) string {
	parts := []string{fmt.Sprintf("%d written", len(res.Written))}
	if n := len(res.Unchanged); n > 0 {
		parts = append(parts, fmt.Sprintf("%d unchanged", n))
	}
	if n := len(res.Skipped); n > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", n))
	}
	if n := len(res.Conflicts); n > 0 {
		parts = append(parts, fmt.Sprintf("%d conflicts", n))
	}
	return strings.Join(parts, ", ")
}
