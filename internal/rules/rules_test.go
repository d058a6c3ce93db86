package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `version: 1
layers:
  - name: domain
    dir: internal/domain
    case: snake
  - name: repositories
    dir: internal/repositories
    case: snake
    suffix: _repository
    depends_on: [domain]
    require_tests: true
  - name: services
    dir: internal/services
    case: snake
    suffix: _service
    depends_on: [domain, repositories]
    require_tests: true
forbidden:
  - id: no-panic
    pattern: '\bpanic\('
    message: return errors instead
    severity: warning
    applies_to: ["internal/**/*.go"]
tests:
  colocated: true
  suffix: _test
  severity: warning
ignore:
  - vendor/**
`

func TestParse(t *testing.T) {
	rs, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Len(t, rs.Layers, 3)
	assert.Equal(t, "internal/repositories", rs.Layers[1].Dir)
	assert.Equal(t, SeverityWarning, rs.Forbidden[0].Severity)
	assert.True(t, rs.Tests.Colocated)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("version: 1\nlayerz: []\n"))
	assert.Error(t, err)
}

func TestParseEmpty(t *testing.T) {
	_, err := Parse(nil)
	assert.ErrorIs(t, err, ErrNoLayers)
}

func TestLoadDispatchesOnExtension(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(sampleYAML), 0o644))
	rs, err := Load(yamlPath)
	require.NoError(t, err)
	assert.Len(t, rs.Layers, 3)

	mdPath := filepath.Join(dir, "rules.md")
	require.NoError(t, os.WriteFile(mdPath, []byte(Default().Markdown()), 0o644))
	rs, err = Load(mdPath)
	require.NoError(t, err)
	assert.Len(t, rs.Layers, len(Default().Layers))
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(rs *RuleSet)
		wantErr string
	}{
		{
			name:    "duplicate layer name",
			mutate:  func(rs *RuleSet) { rs.Layers[1].Name = "domain"; rs.Layers[1].Dir = "internal/other" },
			wantErr: "duplicate layer name",
		},
		{
			name:    "duplicate dir",
			mutate:  func(rs *RuleSet) { rs.Layers[1].Dir = rs.Layers[0].Dir },
			wantErr: "share dir",
		},
		{
			name:    "unknown dependency",
			mutate:  func(rs *RuleSet) { rs.Layers[1].DependsOn = []string{"nowhere"} },
			wantErr: "unknown layer",
		},
		{
			name:    "self dependency",
			mutate:  func(rs *RuleSet) { rs.Layers[0].DependsOn = []string{"domain"} },
			wantErr: "depends on itself",
		},
		{
			name:    "unknown case",
			mutate:  func(rs *RuleSet) { rs.Layers[0].Case = "shouty" },
			wantErr: "unknown case",
		},
		{
			name:    "bad forbidden pattern",
			mutate:  func(rs *RuleSet) { rs.Forbidden[0].Pattern = "(" },
			wantErr: "no-panic",
		},
		{
			name: "duplicate forbidden id",
			mutate: func(rs *RuleSet) {
				rs.Forbidden = append(rs.Forbidden, ForbiddenRule{ID: "no-panic", Pattern: "x", Severity: SeverityInfo})
			},
			wantErr: "duplicate forbidden rule id",
		},
		{
			name:    "malformed ignore glob",
			mutate:  func(rs *RuleSet) { rs.Ignore = []string{"[oops"} },
			wantErr: "malformed glob",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs, err := Parse([]byte(sampleYAML))
			require.NoError(t, err)
			tt.mutate(rs)
			err = rs.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateNoLayers(t *testing.T) {
	rs := &RuleSet{Version: 1}
	assert.ErrorIs(t, rs.Validate(), ErrNoLayers)
}

func TestValidateCycle(t *testing.T) {
	rs := &RuleSet{
		Version: 1,
		Layers: []Layer{
			{Name: "a", Dir: "a", Case: CaseSnake, DependsOn: []string{"b"}},
			{Name: "b", Dir: "b", Case: CaseSnake, DependsOn: []string{"c"}},
			{Name: "c", Dir: "c", Case: CaseSnake, DependsOn: []string{"a"}},
		},
	}
	rs.Normalize()
	err := rs.Validate()
	require.ErrorIs(t, err, ErrCycle)
	assert.Contains(t, err.Error(), "->")
}

func TestLayerFor(t *testing.T) {
	rs := &RuleSet{
		Version: 1,
		Layers: []Layer{
			{Name: "api", Dir: "internal/api", Case: CaseSnake},
			{Name: "api-v2", Dir: "internal/api/v2", Case: CaseSnake},
		},
	}
	rs.Normalize()
	require.NoError(t, rs.Validate())

	l, ok := rs.LayerFor("internal/api/routes.go")
	require.True(t, ok)
	assert.Equal(t, "api", l.Name)

	// nested dirs resolve by longest prefix
	l, ok = rs.LayerFor("internal/api/v2/routes.go")
	require.True(t, ok)
	assert.Equal(t, "api-v2", l.Name)

	_, ok = rs.LayerFor("cmd/app/main.go")
	assert.False(t, ok)
}

func TestAllowed(t *testing.T) {
	rs, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.True(t, rs.Allowed("services", "repositories"))
	assert.True(t, rs.Allowed("services", "domain"), "transitive edge")
	assert.True(t, rs.Allowed("domain", "domain"), "self edge")
	assert.False(t, rs.Allowed("domain", "services"), "reverse edge")
	assert.False(t, rs.Allowed("repositories", "services"))
}

func TestDefaultIsValid(t *testing.T) {
	rs := Default()
	require.NoError(t, rs.Validate())
	assert.Equal(t, []string{"internal", "web"}, rs.LayerParents())

	// frontend depends forward only
	assert.True(t, rs.Allowed("pages", "components"))
	assert.False(t, rs.Allowed("components", "pages"))
	assert.False(t, rs.Allowed("domain", "handlers"))
}

func TestFingerprint(t *testing.T) {
	a, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	b, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	b.Layers[0].Description = "changed"
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}
