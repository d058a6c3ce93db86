// Package rules models layering and naming constraints for a project tree:
// which directories form layers, which layers may depend on which, how files
// inside each layer are named, and which constructs are forbidden where.
package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Case names a filename casing convention.
type Case string

const (
	CaseSnake  Case = "snake"
	CaseKebab  Case = "kebab"
	CaseCamel  Case = "camel"
	CasePascal Case = "pascal"
)

func (c Case) valid() bool {
	switch c {
	case CaseSnake, CaseKebab, CaseCamel, CasePascal:
		return true
	}
	return false
}

// Severity grades a violation.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Rank orders severities; higher is worse.
func (s Severity) Rank() int {
	switch s {
	case SeverityError:
		return 2
	case SeverityWarning:
		return 1
	case SeverityInfo:
		return 0
	}
	return -1
}

func (s Severity) valid() bool { return s.Rank() >= 0 }

// ParseSeverity normalizes a severity label.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return SeverityError, nil
	case "warning", "warn":
		return SeverityWarning, nil
	case "info":
		return SeverityInfo, nil
	}
	return "", fmt.Errorf("unknown severity %q", s)
}

// Layer is one architectural layer rooted at a project-relative directory.
// DependsOn lists the layers this one may reference; the allowed dependency
// direction is the transitive closure of these edges.
type Layer struct {
	Name         string   `yaml:"name"`
	Dir          string   `yaml:"dir"`
	Case         Case     `yaml:"case,omitempty"`
	Suffix       string   `yaml:"suffix,omitempty"`
	DependsOn    []string `yaml:"depends_on,omitempty"`
	RequireTests bool     `yaml:"require_tests,omitempty"`
	Description  string   `yaml:"description,omitempty"`
}

// ForbiddenRule bans a construct by regular expression. AppliesTo narrows the
// rule to files matching the globs (all files when empty); ExemptLayers lists
// layers the rule does not apply to.
type ForbiddenRule struct {
	ID           string   `yaml:"id"`
	Pattern      string   `yaml:"pattern"`
	Message      string   `yaml:"message,omitempty"`
	Severity     Severity `yaml:"severity,omitempty"`
	AppliesTo    []string `yaml:"applies_to,omitempty"`
	ExemptLayers []string `yaml:"exempt_layers,omitempty"`
}

// TestRule configures the co-located test convention.
type TestRule struct {
	Colocated bool     `yaml:"colocated"`
	Suffix    string   `yaml:"suffix,omitempty"`
	Severity  Severity `yaml:"severity,omitempty"`
}

// RuleSet is a complete constraint set for one project.
type RuleSet struct {
	Version   int             `yaml:"version"`
	Layers    []Layer         `yaml:"layers"`
	Forbidden []ForbiddenRule `yaml:"forbidden,omitempty"`
	Tests     TestRule        `yaml:"tests,omitempty"`
	Ignore    []string        `yaml:"ignore,omitempty"`
}

var (
	ErrNoLayers = errors.New("ruleset has no layers")
	ErrCycle    = errors.New("layer dependency cycle")
)

// Normalize fills defaults and canonicalizes paths. Parse and ParseMarkdown
// call it before Validate.
func (rs *RuleSet) Normalize() {
	if rs.Version == 0 {
		rs.Version = 1
	}
	for i := range rs.Layers {
		l := &rs.Layers[i]
		l.Name = strings.TrimSpace(l.Name)
		l.Dir = strings.Trim(filepath.ToSlash(strings.TrimSpace(l.Dir)), "/")
		if l.Case == "" {
			l.Case = CaseSnake
		}
		for j := range l.DependsOn {
			l.DependsOn[j] = strings.TrimSpace(l.DependsOn[j])
		}
	}
	for i := range rs.Forbidden {
		f := &rs.Forbidden[i]
		f.ID = strings.TrimSpace(f.ID)
		if f.Severity == "" {
			f.Severity = SeverityWarning
		}
	}
	if rs.Tests.Suffix == "" {
		rs.Tests.Suffix = "_test"
	}
	if rs.Tests.Severity == "" {
		rs.Tests.Severity = SeverityWarning
	}
}

// Validate checks the ruleset for structural soundness: unique layer names and
// dirs, known dependency targets, an acyclic dependency graph, compilable
// forbidden patterns, well-formed globs and known severities. A ruleset that
// fails Validate must not be handed to the planner or the validator.
func (rs *RuleSet) Validate() error {
	if len(rs.Layers) == 0 {
		return ErrNoLayers
	}

	byName := make(map[string]bool, len(rs.Layers))
	dirs := make(map[string]string, len(rs.Layers))
	for i := range rs.Layers {
		l := &rs.Layers[i]
		if l.Name == "" {
			return fmt.Errorf("layer %d: name is required", i)
		}
		if byName[l.Name] {
			return fmt.Errorf("duplicate layer name %q", l.Name)
		}
		byName[l.Name] = true
		if l.Dir == "" {
			return fmt.Errorf("layer %q: dir is required", l.Name)
		}
		if owner, dup := dirs[l.Dir]; dup {
			return fmt.Errorf("layers %q and %q share dir %q", owner, l.Name, l.Dir)
		}
		dirs[l.Dir] = l.Name
		if !l.Case.valid() {
			return fmt.Errorf("layer %q: unknown case %q", l.Name, l.Case)
		}
	}

	for _, l := range rs.Layers {
		for _, dep := range l.DependsOn {
			if dep == l.Name {
				return fmt.Errorf("layer %q depends on itself", l.Name)
			}
			if !byName[dep] {
				return fmt.Errorf("layer %q depends on unknown layer %q", l.Name, dep)
			}
		}
	}

	if cycle := rs.findCycle(); len(cycle) > 0 {
		return fmt.Errorf("%w: %s", ErrCycle, strings.Join(cycle, " -> "))
	}

	ids := make(map[string]bool, len(rs.Forbidden))
	for _, f := range rs.Forbidden {
		if f.ID == "" {
			return errors.New("forbidden rule: id is required")
		}
		if ids[f.ID] {
			return fmt.Errorf("duplicate forbidden rule id %q", f.ID)
		}
		ids[f.ID] = true
		if f.Pattern == "" {
			return fmt.Errorf("forbidden rule %q: pattern is required", f.ID)
		}
		if _, err := regexp.Compile(f.Pattern); err != nil {
			return fmt.Errorf("forbidden rule %q: %w", f.ID, err)
		}
		if !f.Severity.valid() {
			return fmt.Errorf("forbidden rule %q: unknown severity %q", f.ID, f.Severity)
		}
		for _, g := range f.AppliesTo {
			if !doublestar.ValidatePattern(g) {
				return fmt.Errorf("forbidden rule %q: malformed glob %q", f.ID, g)
			}
		}
		for _, name := range f.ExemptLayers {
			if !byName[name] {
				return fmt.Errorf("forbidden rule %q: unknown exempt layer %q", f.ID, name)
			}
		}
	}

	if !rs.Tests.Severity.valid() {
		return fmt.Errorf("tests: unknown severity %q", rs.Tests.Severity)
	}
	for _, g := range rs.Ignore {
		if !doublestar.ValidatePattern(g) {
			return fmt.Errorf("ignore: malformed glob %q", g)
		}
	}

	return nil
}

// findCycle returns one dependency cycle as a layer name path, or nil.
func (rs *RuleSet) findCycle() []string {
	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(rs.Layers))
	deps := make(map[string][]string, len(rs.Layers))
	for _, l := range rs.Layers {
		deps[l.Name] = l.DependsOn
	}

	var stack []string
	var cycle []string

	var visit func(name string) bool
	visit = func(name string) bool {
		color[name] = gray
		stack = append(stack, name)
		for _, dep := range deps[name] {
			switch color[dep] {
			case white:
				if visit(dep) {
					return true
				}
			case gray:
				for i, n := range stack {
					if n == dep {
						cycle = append(append([]string{}, stack[i:]...), dep)
						return true
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[name] = black
		return false
	}

	for _, l := range rs.Layers {
		if color[l.Name] == white && visit(l.Name) {
			return cycle
		}
	}
	return nil
}

// Layer returns the layer with the given name.
func (rs *RuleSet) Layer(name string) (*Layer, bool) {
	for i := range rs.Layers {
		if rs.Layers[i].Name == name {
			return &rs.Layers[i], true
		}
	}
	return nil, false
}

// LayerFor maps a project-relative path to the layer owning it by longest
// directory prefix. Paths outside every layer dir belong to no layer.
func (rs *RuleSet) LayerFor(rel string) (*Layer, bool) {
	rel = strings.TrimPrefix(path.Clean(filepath.ToSlash(rel)), "./")
	var best *Layer
	bestLen := -1
	for i := range rs.Layers {
		dir := rs.Layers[i].Dir
		if rel == dir || strings.HasPrefix(rel, dir+"/") {
			if len(dir) > bestLen {
				best = &rs.Layers[i]
				bestLen = len(dir)
			}
		}
	}
	return best, best != nil
}

// Allowed reports whether layer from may reference layer to. The allowed set
// is the transitive closure of DependsOn; a layer may always reference itself.
func (rs *RuleSet) Allowed(from, to string) bool {
	if from == to {
		return true
	}
	seen := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		l, ok := rs.Layer(cur)
		if !ok {
			continue
		}
		for _, dep := range l.DependsOn {
			if dep == to {
				return true
			}
			if !seen[dep] {
				seen[dep] = true
				queue = append(queue, dep)
			}
		}
	}
	return false
}

// LayerParents returns the sorted top-level directories that contain layer
// dirs, e.g. "internal" and "web" for the default ruleset.
func (rs *RuleSet) LayerParents() []string {
	seen := make(map[string]bool)
	var parents []string
	for _, l := range rs.Layers {
		parent := l.Dir
		if i := strings.Index(parent, "/"); i > 0 {
			parent = parent[:i]
		}
		if !seen[parent] {
			seen[parent] = true
			parents = append(parents, parent)
		}
	}
	sort.Strings(parents)
	return parents
}

// Fingerprint returns a stable sha256 hex digest of the normalized ruleset.
func (rs *RuleSet) Fingerprint() string {
	data, err := yaml.Marshal(rs)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
