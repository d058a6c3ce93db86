// Package scan reads project trees into memory so the validator can check
// them. Contents are decoded to UTF-8 and hashed; ignore globs and a hidden
// directory policy keep vendored bulk out.
package scan

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Config controls a Scanner.
type Config struct {
	IgnorePatterns []string
	MaxFileSize    int64
	Workers        int
}

const (
	DefaultMaxFileSize = int64(1 << 20)
	defaultWorkers     = 8
)

// hidden directories that still hold checkable project files
var hiddenAllowlist = map[string]bool{
	".github": true,
	".vscode": true,
}

// File is one scanned file. Content holds UTF-8 normalized text and is nil
// for files over the size limit; Hash always covers the raw on-disk bytes.
type File struct {
	Path      string
	Size      int64
	Hash      string
	Content   []byte
	Truncated bool
}

// Tree is a scanned project, files sorted by path.
type Tree struct {
	Root  string
	Files []*File
}

type Scanner struct {
	cfg Config
	log *zap.Logger
}

func NewScanner(cfg Config, log *zap.Logger) *Scanner {
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{cfg: cfg, log: log.Named("scan")}
}

// Scan walks root and loads every regular file not excluded by the hidden
// directory policy or the ignore globs. Loading is bounded-concurrent and
// honors ctx cancellation.
func (s *Scanner) Scan(ctx context.Context, root string) (*Tree, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scan root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan root %s: not a directory", root)
	}

	var rels []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if p == root {
				return nil
			}
			name := d.Name()
			if strings.HasPrefix(name, ".") && !hiddenAllowlist[name] {
				return filepath.SkipDir
			}
			rel, _ := filepath.Rel(root, p)
			if s.ignoredDir(filepath.ToSlash(rel)) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, _ := filepath.Rel(root, p)
		rel = filepath.ToSlash(rel)
		if s.ignored(rel) {
			return nil
		}
		rels = append(rels, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	sort.Strings(rels)

	files := make([]*File, len(rels))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, rel := range rels {
		i, rel := i, rel
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f, err := s.loadFile(root, rel)
			if err != nil {
				return err
			}
			files[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.log.Debug("scan complete", zap.String("root", root), zap.Int("files", len(files)))
	return &Tree{Root: root, Files: files}, nil
}

func (s *Scanner) loadFile(root, rel string) (*File, error) {
	abs := filepath.Join(root, filepath.FromSlash(rel))
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", rel, err)
	}

	f := &File{Path: rel, Size: info.Size()}
	if info.Size() > s.cfg.MaxFileSize {
		hash, err := hashFile(abs)
		if err != nil {
			return nil, err
		}
		f.Hash = hash
		f.Truncated = true
		return f, nil
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rel, err)
	}
	sum := sha256.Sum256(data)
	f.Hash = hex.EncodeToString(sum[:])
	text, _ := ToUTF8(data)
	f.Content = []byte(text)
	return f, nil
}

func hashFile(path string) (string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer fh.Close()

	h := sha256.New()
	if _, err := io.Copy(h, fh); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (s *Scanner) ignored(rel string) bool {
	for _, pattern := range s.cfg.IgnorePatterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// ignoredDir prunes directories whose whole subtree is ignored, so walks skip
// vendor trees instead of matching every file inside them.
func (s *Scanner) ignoredDir(rel string) bool {
	for _, pattern := range s.cfg.IgnorePatterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		if dir, found := strings.CutSuffix(pattern, "/**"); found {
			if ok, _ := doublestar.Match(dir, rel); ok {
				return true
			}
		}
	}
	return false
}

// FromFiles builds a Tree from in-memory rendered content, so a plan can be
// validated before anything touches disk through the same code path as an
// on-disk tree.
func FromFiles(root string, files map[string][]byte) *Tree {
	t := &Tree{Root: root, Files: make([]*File, 0, len(files))}
	for p, content := range files {
		sum := sha256.Sum256(content)
		text, _ := ToUTF8(content)
		t.Files = append(t.Files, &File{
			Path:    filepath.ToSlash(p),
			Size:    int64(len(content)),
			Hash:    hex.EncodeToString(sum[:]),
			Content: []byte(text),
		})
	}
	sort.Slice(t.Files, func(i, j int) bool { return t.Files[i].Path < t.Files[j].Path })
	return t
}
