// Package store persists the scaffolding manifest: every engine run, the
// last emitted state of every managed file, and the findings of validate
// runs. The emitter reads it to tell user edits apart from its own output;
// the status command reads it to report freshness.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"stratum/internal/rules"
	"stratum/internal/validate"
)

// Run kinds.
const (
	RunPlan     = "plan"
	RunApply    = "apply"
	RunValidate = "validate"
)

// Run statuses.
const (
	StatusRunning = "running"
	StatusOK      = "ok"
	StatusFailed  = "failed"
)

// Run is one engine invocation recorded in the manifest.
type Run struct {
	ID             string    `json:"id"`
	Kind           string    `json:"kind"`
	DescriptorHash string    `json:"descriptor_hash,omitempty"`
	RulesHash      string    `json:"rules_hash,omitempty"`
	Status         string    `json:"status"`
	Summary        string    `json:"summary,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}

// FileState is the manifest's view of one emitted file. ContentHash is the
// hash of the bytes the emitter last wrote; a differing on-disk hash means
// the file was edited since.
type FileState struct {
	Path        string    `json:"path"`
	ContentHash string    `json:"content_hash"`
	Layer       string    `json:"layer,omitempty"`
	Template    string    `json:"template,omitempty"`
	RunID       string    `json:"run_id"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Stats powers the status command.
type Stats struct {
	LastRuns       map[string]*Run `json:"last_runs"`
	FileCount      int             `json:"file_count"`
	ViolationCount map[string]int  `json:"violation_count,omitempty"`
	Stale          []string        `json:"stale,omitempty"`
}

type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// DefaultPath returns the manifest location for a project root.
func DefaultPath(root string) string {
	return filepath.Join(root, ".stratum", "stratum.db")
}

func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create manifest dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			return nil, err
		}
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	lines := strings.Split(schemaSQL, "\n")
	var clean []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "--") && trimmed != "" {
			clean = append(clean, line)
		}
	}
	if _, err := s.db.Exec(strings.Join(clean, "\n")); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	_, _ = s.db.Exec(`INSERT OR IGNORE INTO schema_version (version) VALUES (?)`, SchemaVersion)
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun inserts a new run in running state and returns it.
func (s *Store) RecordRun(kind, descriptorHash, rulesHash string) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run := &Run{
		ID:             uuid.NewString(),
		Kind:           kind,
		DescriptorHash: descriptorHash,
		RulesHash:      rulesHash,
		Status:         StatusRunning,
		StartedAt:      time.Now().UTC(),
	}
	_, err := s.db.Exec(`
		INSERT INTO runs (id, kind, descriptor_hash, rules_hash, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, run.Kind, run.DescriptorHash, run.RulesHash, run.Status, run.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("record run: %w", err)
	}
	return run, nil
}

// FinishRun closes a run with its final status and summary.
func (s *Store) FinishRun(id, status, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		UPDATE runs SET status = ?, summary = ?, finished_at = ? WHERE id = ?
	`, status, summary, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// LatestRun returns the most recently recorded run of a kind, or nil when
// none exists.
func (s *Store) LatestRun(kind string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latestRun(kind)
}

func (s *Store) latestRun(kind string) (*Run, error) {
	run := &Run{}
	var descriptorHash, rulesHash, summary sql.NullString
	var startedAt, finishedAt sql.NullTime

	// rowid preserves insertion order
	err := s.db.QueryRow(`
		SELECT id, kind, descriptor_hash, rules_hash, status, summary, started_at, finished_at
		FROM runs WHERE kind = ? ORDER BY rowid DESC LIMIT 1
	`, kind).Scan(
		&run.ID, &run.Kind, &descriptorHash, &rulesHash,
		&run.Status, &summary, &startedAt, &finishedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}

	if descriptorHash.Valid {
		run.DescriptorHash = descriptorHash.String
	}
	if rulesHash.Valid {
		run.RulesHash = rulesHash.String
	}
	if summary.Valid {
		run.Summary = summary.String
	}
	if startedAt.Valid {
		run.StartedAt = startedAt.Time
	}
	if finishedAt.Valid {
		run.FinishedAt = finishedAt.Time
	}
	return run, nil
}

// UpsertFile records the emitted state of one file.
func (s *Store) UpsertFile(f *FileState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO files (path, content_hash, layer, template, run_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			content_hash = excluded.content_hash,
			layer = excluded.layer,
			template = excluded.template,
			run_id = excluded.run_id,
			updated_at = excluded.updated_at
	`, f.Path, f.ContentHash, f.Layer, f.Template, f.RunID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert file: %w", err)
	}
	return nil
}

// FileState returns the manifest entry for a path, or nil when the path was
// never emitted.
func (s *Store) FileState(path string) (*FileState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f := &FileState{}
	var layer, template, runID sql.NullString
	var updatedAt sql.NullTime

	err := s.db.QueryRow(`
		SELECT path, content_hash, layer, template, run_id, updated_at
		FROM files WHERE path = ?
	`, path).Scan(&f.Path, &f.ContentHash, &layer, &template, &runID, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file state: %w", err)
	}

	if layer.Valid {
		f.Layer = layer.String
	}
	if template.Valid {
		f.Template = template.String
	}
	if runID.Valid {
		f.RunID = runID.String
	}
	if updatedAt.Valid {
		f.UpdatedAt = updatedAt.Time
	}
	return f, nil
}

// ReplaceViolations swaps the stored findings of a run for a new set.
func (s *Store) ReplaceViolations(runID string, vs []validate.Violation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM violations WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("clear violations: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO violations (run_id, rule, severity, path, line, detail, layer_from, layer_to)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare stmt: %w", err)
	}
	defer stmt.Close()

	for _, v := range vs {
		_, err := stmt.Exec(runID, v.Rule, string(v.Severity), v.Path, v.Line, v.Detail, v.From, v.To)
		if err != nil {
			return fmt.Errorf("insert violation %s: %w", v.Rule, err)
		}
	}
	return tx.Commit()
}

// RunViolations returns the stored findings of a run ordered by path, then
// line, then rule.
func (s *Store) RunViolations(runID string) ([]validate.Violation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT rule, severity, path, line, detail, layer_from, layer_to
		FROM violations WHERE run_id = ? ORDER BY path ASC, line ASC, rule ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("run violations: %w", err)
	}
	defer rows.Close()

	var vs []validate.Violation
	for rows.Next() {
		var v validate.Violation
		var severity string
		var line sql.NullInt64
		var detail, from, to sql.NullString

		if err := rows.Scan(&v.Rule, &severity, &v.Path, &line, &detail, &from, &to); err != nil {
			return nil, fmt.Errorf("scan violation: %w", err)
		}
		v.Severity = rules.Severity(severity)
		if line.Valid {
			v.Line = int(line.Int64)
		}
		if detail.Valid {
			v.Detail = detail.String
		}
		if from.Valid {
			v.From = from.String
		}
		if to.Valid {
			v.To = to.String
		}
		vs = append(vs, v)
	}
	return vs, rows.Err()
}

// Stats summarizes the manifest. onDisk maps project-relative paths to their
// current content hashes; manifest entries missing from it or hashing
// differently are reported stale.
func (s *Store) Stats(onDisk map[string]string) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{
		LastRuns:       make(map[string]*Run),
		ViolationCount: make(map[string]int),
	}

	for _, kind := range []string{RunPlan, RunApply, RunValidate} {
		run, err := s.latestRun(kind)
		if err != nil {
			return nil, err
		}
		if run != nil {
			stats.LastRuns[kind] = run
		}
	}

	if err := s.db.QueryRow("SELECT COUNT(*) FROM files").Scan(&stats.FileCount); err != nil {
		return nil, fmt.Errorf("count files: %w", err)
	}

	if last := stats.LastRuns[RunValidate]; last != nil {
		rows, err := s.db.Query(`
			SELECT severity, COUNT(*) FROM violations WHERE run_id = ? GROUP BY severity
		`, last.ID)
		if err != nil {
			return nil, fmt.Errorf("count violations: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var severity string
			var n int
			if err := rows.Scan(&severity, &n); err != nil {
				return nil, fmt.Errorf("scan violation count: %w", err)
			}
			stats.ViolationCount[severity] = n
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}

	rows, err := s.db.Query("SELECT path, content_hash FROM files ORDER BY path ASC")
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p, hash string
		if err := rows.Scan(&p, &hash); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		if current, ok := onDisk[p]; !ok || current != hash {
			stats.Stale = append(stats.Stale, p)
		}
	}
	return stats, rows.Err()
}
