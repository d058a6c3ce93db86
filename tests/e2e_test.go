package tests

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gopkg.in/yaml.v3"

	"stratum/internal/config"
	"stratum/internal/engine"
	"stratum/internal/rules"
	"stratum/internal/store"
)

const e2eDescriptor = `project: shop
entities:
  - name: product
    timestamps: true
    fields:
      - name: id
        type: uuid
      - name: name
        type: string
        required: true
      - name: price
        type: float64
    operations: [create, get, list, update, delete]
  - name: order
    fields:
      - name: id
        type: uuid
      - name: total_cents
        type: int64
    operations: [create, get, list]
`

const e2eConfig = `descriptor: shop.stratum.yaml
logger:
  level: debug
`

// seedProject lays a fresh project out the way stratum init does: ruleset,
// config and descriptor files under a temp root.
func seedProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	rulesYAML, err := yaml.Marshal(rules.Default())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "stratum.rules.yaml"), rulesYAML, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "shop.stratum.yaml"), []byte(e2eDescriptor), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "stratum.yaml"), []byte(e2eConfig), 0o644))
	return root
}

func newProjectEngine(t *testing.T, root string) *engine.Engine {
	t.Helper()
	cfg, err := config.Load(root, "")
	require.NoError(t, err)

	e, err := engine.New(cfg.EngineConfig(root), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

// TestScaffoldRoundTrip walks the whole user flow: seed a project, load its
// config, plan, apply, validate the result, and re-apply without changes.
func TestScaffoldRoundTrip(t *testing.T) {
	root := seedProject(t)
	e := newProjectEngine(t, root)
	ctx := context.Background()

	plan, err := e.Plan(ctx)
	require.NoError(t, err)
	assert.Equal(t, "shop", plan.Project)
	assert.NotEmpty(t, plan.Files)

	// planning is deterministic: the same descriptor yields the same plan
	replanned, err := e.Plan(ctx)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(plan, replanned))

	res, err := e.Apply(ctx, false)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Written)
	assert.Empty(t, res.Conflicts)
	for _, rel := range res.Written {
		_, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
		assert.NoError(t, err, rel)
	}

	// the scaffolded tree passes its own ruleset
	rep, err := e.Validate(ctx)
	require.NoError(t, err)
	assert.True(t, rep.Valid, "violations: %+v", rep.Violations)
	assert.Positive(t, rep.Checked)

	// a second apply of the same descriptor touches nothing
	again, err := e.Apply(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, again.Written)
	assert.Empty(t, again.Conflicts)
	assert.Len(t, again.Unchanged, len(res.Written))

	st, err := e.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(res.Written), st.FileCount)
	assert.Empty(t, st.Stale)
	require.NotNil(t, st.LastRuns[store.RunApply])
	assert.Equal(t, store.StatusOK, st.LastRuns[store.RunApply].Status)
	require.NotNil(t, st.LastRuns[store.RunValidate])
	assert.Equal(t, store.StatusOK, st.LastRuns[store.RunValidate].Status)
}

// TestDriftAndForceRestore covers the conflict path: a hand-edited generated
// file breaks a rule, validation reports it, a plain apply refuses to
// overwrite it and a forced apply restores the clean state.
func TestDriftAndForceRestore(t *testing.T) {
	root := seedProject(t)
	e := newProjectEngine(t, root)
	ctx := context.Background()

	_, err := e.Apply(ctx, false)
	require.NoError(t, err)

	target := filepath.Join(root, "internal", "services", "product_service.go")
	content, err := os.ReadFile(target)
	require.NoError(t, err)
	tainted := append(content, []byte("\nfunc debugEnv() string { return os.Getenv(\"DEBUG\") }\n")...)
	require.NoError(t, os.WriteFile(target, tainted, 0o644))

	rep, err := e.Validate(ctx)
	require.NoError(t, err)
	assert.False(t, rep.Valid)
	found := false
	for _, v := range rep.Violations {
		if v.Rule == "no-env-outside-config" && v.Path == "internal/services/product_service.go" {
			found = true
		}
	}
	assert.True(t, found, "violations: %+v", rep.Violations)

	st, err := e.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"internal/services/product_service.go"}, st.Stale)

	res, err := e.Apply(ctx, false)
	require.NoError(t, err)
	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, "internal/services/product_service.go", res.Conflicts[0].Path)

	forced, err := e.Apply(ctx, true)
	require.NoError(t, err)
	assert.Contains(t, forced.Written, "internal/services/product_service.go")

	rep, err = e.Validate(ctx)
	require.NoError(t, err)
	assert.True(t, rep.Valid, "violations: %+v", rep.Violations)
}

// TestDescriptorEvolution grows the descriptor after the first apply and
// checks that only the new entity's files get written.
func TestDescriptorEvolution(t *testing.T) {
	root := seedProject(t)
	e := newProjectEngine(t, root)
	ctx := context.Background()

	first, err := e.Apply(ctx, false)
	require.NoError(t, err)

	grown := e2eDescriptor + `  - name: invoice
    fields:
      - name: id
        type: uuid
      - name: amount_cents
        type: int64
    operations: [create, get]
`
	require.NoError(t, os.WriteFile(filepath.Join(root, "shop.stratum.yaml"), []byte(grown), 0o644))
	require.NoError(t, e.UseDescriptor(filepath.Join(root, "shop.stratum.yaml")))

	second, err := e.Apply(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, second.Conflicts)
	assert.Contains(t, second.Written, "internal/domain/invoice.go")
	assert.NotEmpty(t, first.Written)

	// files of entities that did not change stay untouched; shared files
	// like the route table may be regenerated
	assert.NotContains(t, second.Written, "internal/domain/product.go")
	assert.NotContains(t, second.Written, "internal/domain/order.go")

	rep, err := e.Validate(ctx)
	require.NoError(t, err)
	assert.True(t, rep.Valid, "violations: %+v", rep.Violations)
}
