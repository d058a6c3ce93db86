package scan

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func writeTestFile(t *testing.T, root, rel string, content []byte) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, content, 0o644))
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "internal/domain/order.go", []byte("package domain\n"))
	writeTestFile(t, root, "internal/services/order_service.go", []byte("package services\n"))
	writeTestFile(t, root, "vendor/dep/dep.go", []byte("package dep\n"))
	writeTestFile(t, root, ".git/config", []byte("[core]\n"))
	writeTestFile(t, root, ".github/workflows/ci.yaml", []byte("on: push\n"))
	writeTestFile(t, root, ".stratum/stratum.db", []byte{0x00, 0x01})

	s := NewScanner(Config{IgnorePatterns: []string{"vendor/**"}}, zaptest.NewLogger(t))
	tree, err := s.Scan(context.Background(), root)
	require.NoError(t, err)

	var paths []string
	for _, f := range tree.Files {
		paths = append(paths, f.Path)
	}
	assert.Equal(t, []string{
		".github/workflows/ci.yaml",
		"internal/domain/order.go",
		"internal/services/order_service.go",
	}, paths, "hidden dirs skipped except allowlist, ignore globs pruned")

	for _, f := range tree.Files {
		assert.NotEmpty(t, f.Hash)
		assert.NotNil(t, f.Content)
		assert.False(t, f.Truncated)
	}
}

func TestScanTruncatesLargeFiles(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "big.bin", make([]byte, 2048))
	writeTestFile(t, root, "small.txt", []byte("ok"))

	s := NewScanner(Config{MaxFileSize: 1024}, zaptest.NewLogger(t))
	tree, err := s.Scan(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, tree.Files, 2)

	big := tree.Files[0]
	require.Equal(t, "big.bin", big.Path)
	assert.True(t, big.Truncated)
	assert.Nil(t, big.Content)
	assert.NotEmpty(t, big.Hash, "truncated files still hash for staleness checks")
}

func TestScanDecodesUTF16(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "notes.txt", utf16le("entity: order", true))

	s := NewScanner(Config{}, zaptest.NewLogger(t))
	tree, err := s.Scan(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, tree.Files, 1)
	assert.Equal(t, "entity: order", string(tree.Files[0].Content))
}

func TestScanCancellation(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "a.txt", []byte("a"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewScanner(Config{}, zaptest.NewLogger(t))
	_, err := s.Scan(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScanRejectsFileRoot(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "a.txt", []byte("a"))

	s := NewScanner(Config{}, zaptest.NewLogger(t))
	_, err := s.Scan(context.Background(), filepath.Join(root, "a.txt"))
	assert.ErrorContains(t, err, "not a directory")
}

func TestFromFiles(t *testing.T) {
	tree := FromFiles("demo", map[string][]byte{
		"internal/domain/order.go": []byte("package domain\n"),
		"cmd/demo/main.go":         []byte("package main\n"),
	})

	require.Len(t, tree.Files, 2)
	assert.Equal(t, "cmd/demo/main.go", tree.Files[0].Path, "sorted by path")
	assert.Equal(t, "internal/domain/order.go", tree.Files[1].Path)
	assert.NotEmpty(t, tree.Files[0].Hash)
}
