package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"stratum/internal/store"
	"stratum/internal/validate"
	"stratum/internal/watcher"
)

const sampleDescriptor = `project: shop
entities:
  - name: order
    plural: orders
    fields:
      - name: id
        type: uuid
      - name: total_cents
        type: int64
      - name: status
        type: string
        required: true
    operations: [create, get, list]
  - name: customer
    fields:
      - name: id
        type: uuid
      - name: email
        type: string
        unique: true
    operations: [create, get]
`

func newTestEngine(t *testing.T) (*Engine, string) {
	t.Helper()
	root := t.TempDir()

	descPath := filepath.Join(root, "shop.stratum.yaml")
	require.NoError(t, os.WriteFile(descPath, []byte(sampleDescriptor), 0o644))

	cfg := Config{Root: root, DescriptorPath: descPath}
	e, err := New(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e, root
}

func TestEngineFullPipeline(t *testing.T) {
	e, root := newTestEngine(t)
	ctx := context.Background()

	plan, err := e.Plan(ctx)
	require.NoError(t, err)
	assert.Equal(t, "shop", plan.Project)
	assert.NotEmpty(t, plan.Files)

	res, err := e.Apply(ctx, false)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Written)
	assert.Empty(t, res.Conflicts)

	for _, rel := range []string{
		"go.mod",
		"cmd/shop/main.go",
		"internal/domain/order.go",
		"internal/repositories/order_repository.go",
		"internal/repositories/order_repository_test.go",
		"internal/services/customer_service.go",
		"internal/handlers/customer_handler.go",
		"web/components/order-form.tsx",
		"web/pages/orders.tsx",
	} {
		_, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
		assert.NoError(t, err, rel)
	}

	// a freshly scaffolded tree satisfies its own rules
	rep, err := e.Validate(ctx)
	require.NoError(t, err)
	assert.True(t, rep.Valid)
	assert.Empty(t, rep.Violations)

	// re-applying the same descriptor touches nothing
	again, err := e.Apply(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, again.Written)
	assert.Empty(t, again.Conflicts)
	assert.Len(t, again.Unchanged, len(res.Written))

	stats, err := e.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(res.Written), stats.FileCount)
	assert.Empty(t, stats.Stale)
	require.NotNil(t, stats.LastRuns[store.RunPlan])
	require.NotNil(t, stats.LastRuns[store.RunApply])
	require.NotNil(t, stats.LastRuns[store.RunValidate])
	assert.Equal(t, store.StatusOK, stats.LastRuns[store.RunValidate].Status)
}

func TestEngineValidateFindsViolations(t *testing.T) {
	e, root := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Apply(ctx, false)
	require.NoError(t, err)

	// a repository reaching up into services is a reversed dependency
	bad := "package repositories\n\nimport (\n\t\"shop/internal/services\"\n)\n"
	target := filepath.Join(root, "internal", "repositories", "payment_repository.go")
	require.NoError(t, os.WriteFile(target, []byte(bad), 0o644))

	rep, err := e.Validate(ctx)
	require.NoError(t, err)
	assert.False(t, rep.Valid)

	found := false
	for _, v := range rep.Violations {
		if v.Rule == "deps/direction" && v.Path == "internal/repositories/payment_repository.go" {
			found = true
			assert.Equal(t, "repositories", v.From)
			assert.Equal(t, "services", v.To)
		}
	}
	assert.True(t, found, "expected a deps/direction violation")

	stats, err := e.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.StatusFailed, stats.LastRuns[store.RunValidate].Status)
	assert.NotZero(t, stats.ViolationCount["error"])
}

func TestEngineStaleAfterUserEdit(t *testing.T) {
	e, root := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Apply(ctx, false)
	require.NoError(t, err)

	target := filepath.Join(root, "internal", "api", "routes.go")
	require.NoError(t, os.WriteFile(target, []byte("package api\n"), 0o644))

	stats, err := e.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"internal/api/routes.go"}, stats.Stale)
}

func TestEngineRequiresDescriptorForPlan(t *testing.T) {
	root := t.TempDir()
	e, err := New(Config{Root: root}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer e.Close()

	_, err = e.Plan(context.Background())
	require.ErrorIs(t, err, ErrNoDescriptor)

	_, err = e.Apply(context.Background(), false)
	require.ErrorIs(t, err, ErrNoDescriptor)

	// validation has no descriptor dependency
	rep, err := e.Validate(context.Background())
	require.NoError(t, err)
	assert.True(t, rep.Valid)
}

func TestEngineDefaultRulesWhenFileMissing(t *testing.T) {
	root := t.TempDir()
	cfg := Config{Root: root, RulesPath: filepath.Join(root, "stratum.rules.yaml")}
	e, err := New(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer e.Close()

	assert.NotEmpty(t, e.Rules().Layers)
}

func TestEngineLoadsCustomRules(t *testing.T) {
	root := t.TempDir()
	custom := `layers:
  - name: core
    dir: internal/core
    case: snake
  - name: adapters
    dir: internal/adapters
    case: snake
    depends_on: [core]
`
	rulesPath := filepath.Join(root, "stratum.rules.yaml")
	require.NoError(t, os.WriteFile(rulesPath, []byte(custom), 0o644))

	e, err := New(Config{Root: root, RulesPath: rulesPath}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer e.Close()

	require.Len(t, e.Rules().Layers, 2)
	assert.Equal(t, "core", e.Rules().Layers[0].Name)
}

func TestEngineWatchRevalidates(t *testing.T) {
	e, root := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := e.Apply(ctx, false)
	require.NoError(t, err)

	e.cfg.Watch.Debounce = 30 * time.Millisecond
	e.cfg.Worker = validate.WorkerConfig{Workers: 1}

	done := make(chan error, 1)
	go func() { done <- e.Watch(ctx) }()

	// initial pass runs before the first event
	require.Eventually(t, func() bool {
		stats, err := e.Status(context.Background())
		return err == nil && stats.LastRuns[store.RunValidate] != nil
	}, 5*time.Second, 50*time.Millisecond)

	// a badly cased file in a layer must show up as a warning
	target := filepath.Join(root, "internal", "domain", "Invoice.go")
	require.NoError(t, os.WriteFile(target, []byte("package domain\n"), 0o644))

	require.Eventually(t, func() bool {
		stats, err := e.Status(context.Background())
		return err == nil && stats.ViolationCount["warning"] > 0
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestEngineWatchLockIsExclusive(t *testing.T) {
	e, root := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lock := watcher.NewLock(watcher.LockPath(root))
	require.NoError(t, lock.Acquire())
	defer lock.Release()

	require.ErrorIs(t, e.Watch(ctx), watcher.ErrLockHeld)
}
