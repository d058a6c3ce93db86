package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMarkdown = "# Project Rules\n" +
	"\n" +
	"Some introductory prose the parser must skip.\n" +
	"\n" +
	"## Layers\n" +
	"\n" +
	"### L1: domain\n" +
	"\n" +
	"- dir: `internal/domain`\n" +
	"- case: snake\n" +
	"- depends on: (none)\n" +
	"\n" +
	"### L2: repositories\n" +
	"\n" +
	"- dir: `internal/repositories`\n" +
	"- case: snake\n" +
	"- suffix: `_repository`\n" +
	"- depends on: domain\n" +
	"- require tests: yes\n" +
	"\n" +
	"### L3: services\n" +
	"\n" +
	"- dir: `internal/services`\n" +
	"- suffix: `_service`\n" +
	"- depends on: domain, repositories\n" +
	"\n" +
	"## Forbidden\n" +
	"\n" +
	"### F1: no-env-outside-config\n" +
	"\n" +
	"- pattern: `\\bos\\.Getenv\\(`\n" +
	"- message: read configuration through the config layer\n" +
	"- severity: error\n" +
	"- applies to: internal/**/*.go\n" +
	"\n" +
	"## Testing\n" +
	"\n" +
	"- colocated: yes\n" +
	"- suffix: `_test`\n" +
	"\n" +
	"## Ignore\n" +
	"\n" +
	"- `vendor/**`\n" +
	"- `node_modules/**`\n"

func TestParseMarkdown(t *testing.T) {
	rs, err := ParseMarkdown([]byte(sampleMarkdown))
	require.NoError(t, err)

	require.Len(t, rs.Layers, 3)
	assert.Equal(t, "domain", rs.Layers[0].Name)
	assert.Equal(t, "internal/domain", rs.Layers[0].Dir)
	assert.Empty(t, rs.Layers[0].DependsOn)

	repos := rs.Layers[1]
	assert.Equal(t, "_repository", repos.Suffix)
	assert.Equal(t, []string{"domain"}, repos.DependsOn)
	assert.True(t, repos.RequireTests)

	services := rs.Layers[2]
	assert.Equal(t, CaseSnake, services.Case, "case defaults to snake")
	assert.Equal(t, []string{"domain", "repositories"}, services.DependsOn)

	require.Len(t, rs.Forbidden, 1)
	assert.Equal(t, "no-env-outside-config", rs.Forbidden[0].ID)
	assert.Equal(t, `\bos\.Getenv\(`, rs.Forbidden[0].Pattern)
	assert.Equal(t, SeverityError, rs.Forbidden[0].Severity)

	assert.True(t, rs.Tests.Colocated)
	assert.Equal(t, "_test", rs.Tests.Suffix)
	assert.Equal(t, []string{"vendor/**", "node_modules/**"}, rs.Ignore)
}

func TestParseMarkdownOrdersByNumber(t *testing.T) {
	doc := "## Layers\n" +
		"### L2: services\n" +
		"- dir: internal/services\n" +
		"- depends on: domain\n" +
		"### L1: domain\n" +
		"- dir: internal/domain\n"

	rs, err := ParseMarkdown([]byte(doc))
	require.NoError(t, err)
	require.Len(t, rs.Layers, 2)
	assert.Equal(t, "domain", rs.Layers[0].Name)
	assert.Equal(t, "services", rs.Layers[1].Name)
}

func TestParseMarkdownInvalid(t *testing.T) {
	doc := "## Layers\n" +
		"### L1: domain\n" +
		"- dir: internal/domain\n" +
		"- depends on: missing\n"

	_, err := ParseMarkdown([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown layer")
}

func TestMarkdownRoundTrip(t *testing.T) {
	orig := Default()
	reparsed, err := ParseMarkdown([]byte(orig.Markdown()))
	require.NoError(t, err)
	assert.Equal(t, orig.Fingerprint(), reparsed.Fingerprint())
}
