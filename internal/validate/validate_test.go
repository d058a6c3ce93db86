package validate

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"stratum/internal/rules"
	"stratum/internal/scan"
)

func checkTree(t *testing.T, rs *rules.RuleSet, files map[string]string) *Report {
	t.Helper()
	v, err := New(rs, zaptest.NewLogger(t))
	require.NoError(t, err)
	raw := make(map[string][]byte, len(files))
	for p, content := range files {
		raw[p] = []byte(content)
	}
	rep, err := v.Check(context.Background(), scan.FromFiles("/tmp/project", raw))
	require.NoError(t, err)
	return rep
}

// cleanProject is a minimal tree that satisfies every default rule.
func cleanProject() map[string]string {
	files := make(map[string]string)
	files["go.mod"] = "module shop\n"
	files["cmd/shop/main.go"] = "package main\n\nimport \"os\"\n\nfunc main() {\n\t_ = os.Getenv(\"PORT\")\n}\n"
	files["internal/domain/order.go"] = "package domain\n\ntype Order struct {\n\tID string\n}\n"
	files["internal/repositories/order_repository.go"] = "package repositories\n\nimport (\n\t\"context\"\n\t\"database/sql\"\n\n\t\"shop/internal/domain\"\n)\n"
	files["internal/repositories/order_repository_test.go"] = "package repositories\n"
	files["internal/services/order_service.go"] = "package services\n\nimport (\n\t\"shop/internal/domain\"\n\t\"shop/internal/repositories\"\n)\n"
	files["internal/services/order_service_test.go"] = "package services\n"
	files["internal/handlers/order_handler.go"] = "package handlers\n\nimport (\n\t\"net/http\"\n\n\t\"shop/internal/services\"\n)\n"
	files["internal/handlers/order_handler_test.go"] = "package handlers\n"
	files["internal/api/routes.go"] = "package api\n\nimport (\n\t\"shop/internal/handlers\"\n\t\"shop/internal/middlewares\"\n)\n"
	files["web/components/order-form.tsx"] = "import { useState } from \"react\"\n\nexport function OrderForm() {\n\treturn null\n}\n"
	files["web/pages/orders.tsx"] = "import { OrderForm } from \"../components/order-form\"\n"
	return files
}

func TestCheckCleanProject(t *testing.T) {
	files := cleanProject()
	rep := checkTree(t, rules.Default(), files)

	assert.True(t, rep.Valid)
	assert.Empty(t, rep.Violations)
	assert.Equal(t, len(files), rep.Checked)
	assert.Equal(t, fmt.Sprintf("%d files checked, no violations", len(files)), rep.Summary)
}

func TestCheckReverseDependency(t *testing.T) {
	files := make(map[string]string)
	files["internal/repositories/report_repository.go"] = "package repositories\n\nimport (\n\t\"shop/internal/services\"\n)\n"
	files["internal/repositories/report_repository_test.go"] = "package repositories\n"
	rep := checkTree(t, rules.Default(), files)

	require.Len(t, rep.Violations, 1)
	v := rep.Violations[0]
	assert.Equal(t, "deps/direction", v.Rule)
	assert.Equal(t, rules.SeverityError, v.Severity)
	assert.Equal(t, "internal/repositories/report_repository.go", v.Path)
	assert.Equal(t, 4, v.Line)
	assert.Equal(t, "repositories", v.From)
	assert.Equal(t, "services", v.To)
	assert.False(t, rep.Valid)
	assert.Equal(t, 1, rep.Count(rules.SeverityError))
}

func TestCheckNamingViolations(t *testing.T) {
	files := make(map[string]string)
	files["internal/domain/OrderItem.go"] = "package domain\n"
	files["internal/services/order_helper.go"] = "package services\n"
	files["internal/services/order_helper_test.go"] = "package services\n"
	rep := checkTree(t, rules.Default(), files)

	require.Len(t, rep.Violations, 3)
	assert.Equal(t, "naming/case", rep.Violations[0].Rule)
	assert.Equal(t, "internal/domain/OrderItem.go", rep.Violations[0].Path)
	assert.Equal(t, "naming/suffix", rep.Violations[1].Rule)
	assert.Equal(t, "internal/services/order_helper.go", rep.Violations[1].Path)
	assert.Equal(t, "naming/suffix", rep.Violations[2].Rule)
	assert.Equal(t, "internal/services/order_helper_test.go", rep.Violations[2].Path)

	// warnings only, so the tree still validates
	assert.True(t, rep.Valid)
	assert.Equal(t, 3, rep.Count(rules.SeverityWarning))
}

func TestCheckMissingTestCompanion(t *testing.T) {
	files := make(map[string]string)
	files["internal/repositories/order_repository.go"] = "package repositories\n"
	rep := checkTree(t, rules.Default(), files)

	require.Len(t, rep.Violations, 1)
	v := rep.Violations[0]
	assert.Equal(t, "tests/colocated", v.Rule)
	assert.Equal(t, rules.SeverityWarning, v.Severity)
	assert.Contains(t, v.Detail, "order_repository_test.go")
	assert.True(t, rep.Valid)
}

func TestCheckForbiddenConstructs(t *testing.T) {
	files := make(map[string]string)
	files["internal/services/order_service.go"] = "package services\n\nimport \"os\"\n\nfunc dsn() string {\n\treturn os.Getenv(\"DSN\")\n}\n"
	files["internal/services/order_service_test.go"] = "package services\n"
	files["internal/config/config.go"] = "package config\n\nimport \"os\"\n\nfunc addr() string {\n\treturn os.Getenv(\"ADDR\")\n}\n"
	rep := checkTree(t, rules.Default(), files)

	require.Len(t, rep.Violations, 1)
	v := rep.Violations[0]
	assert.Equal(t, "forbidden/no-env-outside-config", v.Rule)
	assert.Equal(t, rules.SeverityError, v.Severity)
	assert.Equal(t, "internal/services/order_service.go", v.Path)
	assert.Equal(t, 6, v.Line)
	assert.Equal(t, "read configuration through the config layer", v.Detail)
	assert.False(t, rep.Valid)
}

func TestCheckOrphanFiles(t *testing.T) {
	files := make(map[string]string)
	files["internal/util/strings.go"] = "package util\n"
	files["scripts/deploy.py"] = "import os\n"
	files["web/static/app.css"] = "body {}\n"
	rep := checkTree(t, rules.Default(), files)

	require.Len(t, rep.Violations, 1)
	v := rep.Violations[0]
	assert.Equal(t, "layout/orphan", v.Rule)
	assert.Equal(t, rules.SeverityInfo, v.Severity)
	assert.Equal(t, "internal/util/strings.go", v.Path)
	assert.True(t, rep.Valid)
	assert.Equal(t, 3, rep.Checked)
}

func TestCheckIgnoredFiles(t *testing.T) {
	files := make(map[string]string)
	files["vendor/pkg/code.go"] = "package pkg\n\nimport \"shop/internal/services\"\n"
	files["node_modules/lib/util.js"] = "const s = require(\"../../internal/services/x\")\n"
	rep := checkTree(t, rules.Default(), files)

	assert.Empty(t, rep.Violations)
	assert.Equal(t, 0, rep.Checked)
}

func TestCheckReportOrdering(t *testing.T) {
	files := make(map[string]string)
	files["internal/domain/Bad.go"] = "package domain\n\nimport \"net/http\"\n\nvar c = http.DefaultClient\n"
	files["internal/repositories/bad_repository.go"] = "package repositories\n\nimport (\n\t\"shop/internal/handlers\"\n)\n"
	rep := checkTree(t, rules.Default(), files)

	require.Len(t, rep.Violations, 4)
	type key struct {
		path string
		line int
		rule string
	}
	var got []key
	for _, v := range rep.Violations {
		got = append(got, key{v.Path, v.Line, v.Rule})
	}
	assert.Equal(t, []key{
		{"internal/domain/Bad.go", 0, "naming/case"},
		{"internal/domain/Bad.go", 3, "forbidden/no-transport-in-domain"},
		{"internal/repositories/bad_repository.go", 0, "tests/colocated"},
		{"internal/repositories/bad_repository.go", 4, "deps/direction"},
	}, got)
	assert.Equal(t, "2 files checked: 2 errors, 2 warnings", rep.Summary)

	again := checkTree(t, rules.Default(), files)
	assert.Equal(t, rep, again)
}

func TestCheckContextCanceled(t *testing.T) {
	v, err := New(rules.Default(), zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = v.Check(ctx, scan.FromFiles("/tmp/project", map[string][]byte{
		"internal/domain/order.go": []byte("package domain\n"),
	}))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRejectsInvalidRuleset(t *testing.T) {
	rs := rules.Default()
	rs.Layers = nil

	_, err := New(rs, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ruleset")
}
