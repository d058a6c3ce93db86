package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratum/internal/rules"
	"stratum/internal/validate"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(DefaultPath(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndFinishRun(t *testing.T) {
	s := newTestStore(t)

	run, err := s.RecordRun(RunApply, "desc-hash", "rules-hash")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, StatusRunning, run.Status)
	assert.False(t, run.StartedAt.IsZero())

	require.NoError(t, s.FinishRun(run.ID, StatusOK, "4 files written"))

	got, err := s.LatestRun(RunApply)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "desc-hash", got.DescriptorHash)
	assert.Equal(t, "rules-hash", got.RulesHash)
	assert.Equal(t, StatusOK, got.Status)
	assert.Equal(t, "4 files written", got.Summary)
	assert.False(t, got.FinishedAt.IsZero())
}

func TestLatestRunPicksNewest(t *testing.T) {
	s := newTestStore(t)

	_, err := s.RecordRun(RunPlan, "a", "r")
	require.NoError(t, err)
	second, err := s.RecordRun(RunPlan, "b", "r")
	require.NoError(t, err)

	got, err := s.LatestRun(RunPlan)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, second.ID, got.ID)

	missing, err := s.LatestRun(RunValidate)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUpsertFile(t *testing.T) {
	s := newTestStore(t)
	run, err := s.RecordRun(RunApply, "d", "r")
	require.NoError(t, err)

	state := &FileState{
		Path:        "internal/domain/order.go",
		ContentHash: "aaa",
		Layer:       "domain",
		Template:    "domain",
		RunID:       run.ID,
	}
	require.NoError(t, s.UpsertFile(state))

	state.ContentHash = "bbb"
	require.NoError(t, s.UpsertFile(state))

	got, err := s.FileState("internal/domain/order.go")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "bbb", got.ContentHash)
	assert.Equal(t, "domain", got.Layer)
	assert.Equal(t, "domain", got.Template)
	assert.Equal(t, run.ID, got.RunID)
	assert.False(t, got.UpdatedAt.IsZero())

	missing, err := s.FileState("internal/domain/customer.go")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestReplaceViolations(t *testing.T) {
	s := newTestStore(t)
	run, err := s.RecordRun(RunValidate, "d", "r")
	require.NoError(t, err)

	first := []validate.Violation{
		{
			Rule:     "deps/direction",
			Severity: rules.SeverityError,
			Path:     "internal/repositories/order_repository.go",
			Line:     4,
			Detail:   "repositories may not reference services",
			From:     "repositories",
			To:       "services",
		},
		{
			Rule:     "naming/case",
			Severity: rules.SeverityWarning,
			Path:     "internal/domain/Bad.go",
			Detail:   `"Bad" is not snake case`,
		},
	}
	require.NoError(t, s.ReplaceViolations(run.ID, first))

	got, err := s.RunViolations(run.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// ordered by path, so the domain violation comes first
	assert.Equal(t, "naming/case", got[0].Rule)
	assert.Equal(t, first[0], got[1])

	require.NoError(t, s.ReplaceViolations(run.ID, first[:1]))
	got, err = s.RunViolations(run.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "deps/direction", got[0].Rule)
}

func TestStats(t *testing.T) {
	s := newTestStore(t)

	apply, err := s.RecordRun(RunApply, "d", "r")
	require.NoError(t, err)
	require.NoError(t, s.FinishRun(apply.ID, StatusOK, "ok"))

	vrun, err := s.RecordRun(RunValidate, "d", "r")
	require.NoError(t, err)
	require.NoError(t, s.ReplaceViolations(vrun.ID, []validate.Violation{
		{Rule: "deps/direction", Severity: rules.SeverityError, Path: "a.go"},
		{Rule: "naming/case", Severity: rules.SeverityWarning, Path: "b.go"},
		{Rule: "naming/suffix", Severity: rules.SeverityWarning, Path: "c.go"},
	}))

	require.NoError(t, s.UpsertFile(&FileState{Path: "internal/domain/order.go", ContentHash: "aaa", RunID: apply.ID}))
	require.NoError(t, s.UpsertFile(&FileState{Path: "internal/api/routes.go", ContentHash: "ccc", RunID: apply.ID}))
	require.NoError(t, s.UpsertFile(&FileState{Path: "go.mod", ContentHash: "ddd", RunID: apply.ID}))

	onDisk := map[string]string{
		"internal/domain/order.go": "aaa",
		"internal/api/routes.go":   "edited",
	}
	stats, err := s.Stats(onDisk)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.FileCount)
	assert.Equal(t, apply.ID, stats.LastRuns[RunApply].ID)
	assert.Equal(t, vrun.ID, stats.LastRuns[RunValidate].ID)
	assert.Nil(t, stats.LastRuns[RunPlan])
	assert.Equal(t, 1, stats.ViolationCount[string(rules.SeverityError)])
	assert.Equal(t, 2, stats.ViolationCount[string(rules.SeverityWarning)])
	// routes.go was edited, go.mod is gone from disk
	assert.Equal(t, []string{"go.mod", "internal/api/routes.go"}, stats.Stale)
}
