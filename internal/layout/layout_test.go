package layout

import (
	"context"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratum/internal/descriptor"
	"stratum/internal/rules"
	"stratum/internal/scan"
	"stratum/internal/validate"
)

const sampleDescriptor = `project: shop
module: shop
entities:
  - name: order
    timestamps: true
    fields:
      - name: total
        type: float64
        required: true
  - name: customer
    operations: [create, get]
    fields:
      - name: email
        required: true
        unique: true
`

func testPlanner(t *testing.T) (*Planner, *descriptor.Descriptor) {
	t.Helper()
	d, err := descriptor.Parse([]byte(sampleDescriptor))
	require.NoError(t, err)
	p, err := NewPlanner(rules.Default(), nil, nil)
	require.NoError(t, err)
	return p, d
}

func TestPlanPaths(t *testing.T) {
	p, d := testPlanner(t)
	plan, err := p.Plan(d)
	require.NoError(t, err)

	files := make(map[string]PlannedFile, len(plan.Files))
	for _, f := range plan.Files {
		files[f.Path] = f
	}

	for _, want := range []string{
		"cmd/shop/main.go",
		"go.mod",
		"internal/api/routes.go",
		"internal/config/config.go",
		"internal/middlewares/logging.go",
		"internal/middlewares/recovery.go",
		"internal/domain/order.go",
		"internal/domain/customer.go",
		"internal/repositories/order_repository.go",
		"internal/repositories/order_repository_test.go",
		"internal/services/customer_service.go",
		"internal/services/customer_service_test.go",
		"internal/handlers/customer_handler_test.go",
		"web/components/order-form.tsx",
		"web/pages/orders.tsx",
		"web/pages/customers.tsx",
	} {
		_, ok := files[want]
		assert.True(t, ok, "missing %s", want)
	}
	assert.Len(t, plan.Files, 24)

	assert.Equal(t, ModeOnce, files["go.mod"].Mode)
	assert.Equal(t, ModeManaged, files["cmd/shop/main.go"].Mode)
	assert.Equal(t, "repositories", files["internal/repositories/order_repository.go"].Layer)
	assert.Equal(t, "order", files["internal/repositories/order_repository.go"].Entity)
	assert.Equal(t, "config", files["internal/config/config.go"].Layer)
	assert.Empty(t, files["go.mod"].Layer)

	assert.True(t, sort.SliceIsSorted(plan.Files, func(i, j int) bool {
		return plan.Files[i].Path < plan.Files[j].Path
	}))
}

func TestPlanDeterministic(t *testing.T) {
	p, d := testPlanner(t)

	a, err := p.Plan(d)
	require.NoError(t, err)
	b, err := p.Plan(d)
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(a, b))
}

func TestPlanHashesPinInputs(t *testing.T) {
	p, d := testPlanner(t)
	plan, err := p.Plan(d)
	require.NoError(t, err)

	assert.Equal(t, d.Fingerprint(), plan.DescriptorHash)
	assert.Equal(t, rules.Default().Fingerprint(), plan.RulesHash)
}

func TestPlanCollision(t *testing.T) {
	d, err := descriptor.Parse([]byte("project: shop\nentities:\n  - name: order\n  - name: orders\n    plural: orders\n"))
	require.NoError(t, err)

	p, err := NewPlanner(rules.Default(), nil, nil)
	require.NoError(t, err)

	_, err = p.Plan(d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collision")
}

func TestNewPlannerRejectsInvalidRules(t *testing.T) {
	rs := rules.Default()
	rs.Layers[1].DependsOn = []string{"no_such_layer"}

	_, err := NewPlanner(rs, nil, nil)
	require.Error(t, err)
}

func TestRenderPlanCoversEveryFile(t *testing.T) {
	p, d := testPlanner(t)
	plan, err := p.Plan(d)
	require.NoError(t, err)

	rendered, err := p.RenderPlan(plan, d)
	require.NoError(t, err)

	assert.Len(t, rendered, len(plan.Files))
	for path, content := range rendered {
		assert.NotEmpty(t, content, path)
	}
	assert.Contains(t, string(rendered["go.mod"]), "module shop")
	assert.Contains(t, string(rendered["internal/domain/order.go"]), "type Order struct")
	assert.Contains(t, string(rendered["web/pages/customers.tsx"]), "CustomersPage")
}

// A freshly rendered plan must pass the same ruleset it was planned under,
// with no violations of any severity.
func TestRenderedPlanSatisfiesRules(t *testing.T) {
	p, d := testPlanner(t)
	plan, err := p.Plan(d)
	require.NoError(t, err)

	rendered, err := p.RenderPlan(plan, d)
	require.NoError(t, err)

	v, err := validate.New(rules.Default(), nil)
	require.NoError(t, err)
	rep, err := v.Check(context.Background(), scan.FromFiles("shop", rendered))
	require.NoError(t, err)

	assert.True(t, rep.Valid)
	assert.Empty(t, rep.Violations)
	assert.Equal(t, len(plan.Files), rep.Checked)
}

func TestRenderDocs(t *testing.T) {
	p, d := testPlanner(t)

	docs, err := p.RenderDocs(d)
	require.NoError(t, err)

	assert.Contains(t, docs, "docs/PRD.md")
	assert.Contains(t, docs, "docs/TDD.md")
	assert.Contains(t, string(docs["docs/PRD.md"]), "# shop Product Requirements")
}

func TestPlanDirs(t *testing.T) {
	p, d := testPlanner(t)
	plan, err := p.Plan(d)
	require.NoError(t, err)

	for _, want := range []string{"cmd/shop", "internal/domain", "internal/config", "web/components", "web/pages"} {
		assert.Contains(t, plan.Dirs, want)
	}
	assert.True(t, sort.StringsAreSorted(plan.Dirs))
	assert.NotContains(t, plan.Dirs, ".")
}
