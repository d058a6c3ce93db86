// Package validate checks a project tree against a ruleset: filename
// conventions per layer, dependency direction between layers, forbidden
// constructs, test co-location and orphaned files. Reports are ordered
// deterministically so repeated runs diff cleanly.
package validate

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"stratum/internal/naming"
	"stratum/internal/rules"
	"stratum/internal/scan"
)

// Violation is one rule breach. From and To carry layer names for dependency
// violations; Line is zero for violations that concern the file as a whole.
type Violation struct {
	Rule     string         `json:"rule"`
	Severity rules.Severity `json:"severity"`
	Path     string         `json:"path"`
	Line     int            `json:"line,omitempty"`
	Detail   string         `json:"detail"`
	From     string         `json:"from,omitempty"`
	To       string         `json:"to,omitempty"`
}

// Report is the outcome of one validation pass. Valid means no
// error-severity violations; warnings and notices do not fail a tree.
type Report struct {
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations"`
	Checked    int         `json:"checked"`
	Summary    string      `json:"summary"`
}

// Count returns the number of violations at the given severity.
func (r *Report) Count(sev rules.Severity) int {
	n := 0
	for _, v := range r.Violations {
		if v.Severity == sev {
			n++
		}
	}
	return n
}

// worst returns the highest severity present, or "" for a clean report.
func (r *Report) worst() rules.Severity {
	var w rules.Severity
	for _, v := range r.Violations {
		if v.Severity.Rank() > w.Rank() {
			w = v.Severity
		}
	}
	return w
}

func (r *Report) add(vs ...Violation) {
	r.Violations = append(r.Violations, vs...)
}

func (r *Report) summarize() string {
	if len(r.Violations) == 0 {
		return fmt.Sprintf("%d files checked, no violations", r.Checked)
	}
	var parts []string
	for _, sev := range []rules.Severity{rules.SeverityError, rules.SeverityWarning, rules.SeverityInfo} {
		if n := r.Count(sev); n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, sevLabel(sev, n)))
		}
	}
	return fmt.Sprintf("%d files checked: %s", r.Checked, strings.Join(parts, ", "))
}

func sevLabel(sev rules.Severity, n int) string {
	var base string
	switch sev {
	case rules.SeverityError:
		base = "error"
	case rules.SeverityWarning:
		base = "warning"
	default:
		base = "notice"
	}
	if n == 1 {
		return base
	}
	return base + "s"
}

type compiledRule struct {
	rule rules.ForbiddenRule
	re   *regexp.Regexp
}

func (c *compiledRule) appliesTo(rel string) bool {
	if len(c.rule.AppliesTo) == 0 {
		return true
	}
	for _, g := range c.rule.AppliesTo {
		if ok, _ := doublestar.Match(g, rel); ok {
			return true
		}
	}
	return false
}

func (c *compiledRule) exempts(layerName string) bool {
	for _, name := range c.rule.ExemptLayers {
		if name == layerName {
			return true
		}
	}
	return false
}

func (c *compiledRule) detail() string {
	if c.rule.Message != "" {
		return c.rule.Message
	}
	return fmt.Sprintf("matches forbidden pattern %q", c.rule.Pattern)
}

// Validator checks trees against one ruleset. It is safe for concurrent use
// once constructed.
type Validator struct {
	rs        *rules.RuleSet
	forbidden []compiledRule
	parents   map[string]bool
	log       *zap.Logger
}

// New builds a Validator. The ruleset is validated first so every forbidden
// pattern is known to compile.
func New(rs *rules.RuleSet, log *zap.Logger) (*Validator, error) {
	if err := rs.Validate(); err != nil {
		return nil, fmt.Errorf("ruleset: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	compiled := make([]compiledRule, len(rs.Forbidden))
	for i, f := range rs.Forbidden {
		compiled[i] = compiledRule{rule: f, re: regexp.MustCompile(f.Pattern)}
	}
	parents := make(map[string]bool)
	for _, p := range rs.LayerParents() {
		parents[p] = true
	}
	return &Validator{rs: rs, forbidden: compiled, parents: parents, log: log.Named("validate")}, nil
}

// Check validates every file in the tree and returns a report sorted by
// path, then line, then rule. Files matching the ruleset's ignore globs are
// excluded from checking and from the checked count.
func (v *Validator) Check(ctx context.Context, tree *scan.Tree) (*Report, error) {
	rep := &Report{}

	paths := make(map[string]bool, len(tree.Files))
	checkable := make([]*scan.File, 0, len(tree.Files))
	for _, f := range tree.Files {
		if v.ignored(f.Path) {
			continue
		}
		paths[f.Path] = true
		checkable = append(checkable, f)
	}

	for _, f := range checkable {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		layer, inLayer := v.rs.LayerFor(f.Path)
		layerName := ""
		if inLayer {
			layerName = layer.Name
			rep.add(v.checkNaming(f, layer)...)
			rep.add(v.checkDeps(f, layer)...)
			rep.add(v.checkTests(f, layer, paths)...)
		} else {
			rep.add(v.checkOrphan(f)...)
		}
		rep.add(v.checkForbidden(f, layerName)...)
	}

	rep.Checked = len(checkable)
	sort.Slice(rep.Violations, func(i, j int) bool {
		a, b := rep.Violations[i], rep.Violations[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Rule < b.Rule
	})
	rep.Valid = rep.Count(rules.SeverityError) == 0
	rep.Summary = rep.summarize()

	switch rep.worst() {
	case rules.SeverityError:
		v.log.Warn("validation failed",
			zap.Int("files", rep.Checked),
			zap.Int("violations", len(rep.Violations)))
	case rules.SeverityWarning, rules.SeverityInfo:
		v.log.Info("validation passed with findings",
			zap.Int("files", rep.Checked),
			zap.Int("violations", len(rep.Violations)))
	default:
		v.log.Debug("validation passed", zap.Int("files", rep.Checked))
	}
	return rep, nil
}

// checkNaming verifies the file stem against the layer's case convention and
// suffix. Test companions are checked on the stem they accompany, so
// "order_repository_test.go" is graded as "order_repository". Hidden files
// are not subject to naming conventions.
func (v *Validator) checkNaming(f *scan.File, layer *rules.Layer) []Violation {
	base := path.Base(f.Path)
	if strings.HasPrefix(base, ".") {
		return nil
	}
	stem := strings.TrimSuffix(base, path.Ext(base))
	if v.isTest(stem) {
		stem = strings.TrimSuffix(stem, v.rs.Tests.Suffix)
	}

	var out []Violation
	if !naming.Check(string(layer.Case), stem) {
		out = append(out, Violation{
			Rule:     "naming/case",
			Severity: rules.SeverityWarning,
			Path:     f.Path,
			Detail:   fmt.Sprintf("%q is not %s case", stem, layer.Case),
		})
	}
	if layer.Suffix != "" && !strings.HasSuffix(stem, layer.Suffix) {
		out = append(out, Violation{
			Rule:     "naming/suffix",
			Severity: rules.SeverityWarning,
			Path:     f.Path,
			Detail:   fmt.Sprintf("files in %s must end with %q", layer.Name, layer.Suffix),
		})
	}
	return out
}

// checkDeps extracts references from the file and flags edges that leave the
// allowed dependency closure. Self references and references that resolve to
// no layer are ignored.
func (v *Validator) checkDeps(f *scan.File, layer *rules.Layer) []Violation {
	lang := languageFor(f.Path)
	if lang == "" || f.Content == nil {
		return nil
	}
	var out []Violation
	for _, ref := range extractRefs(f.Content, lang) {
		to, ok := v.resolveTarget(f.Path, ref.target, lang)
		if !ok || to.Name == layer.Name {
			continue
		}
		if !v.rs.Allowed(layer.Name, to.Name) {
			out = append(out, Violation{
				Rule:     "deps/direction",
				Severity: rules.SeverityError,
				Path:     f.Path,
				Line:     ref.line,
				Detail:   fmt.Sprintf("%s may not reference %s", layer.Name, to.Name),
				From:     layer.Name,
				To:       to.Name,
			})
		}
	}
	return out
}

// checkTests requires a co-located test companion for every source file in a
// layer that demands tests. Test files themselves and non-source assets are
// exempt.
func (v *Validator) checkTests(f *scan.File, layer *rules.Layer, paths map[string]bool) []Violation {
	if !v.rs.Tests.Colocated || !layer.RequireTests {
		return nil
	}
	ext := path.Ext(f.Path)
	if languageFor(f.Path) == "" {
		return nil
	}
	base := path.Base(f.Path)
	stem := strings.TrimSuffix(base, ext)
	if v.isTest(stem) {
		return nil
	}
	companion := path.Join(path.Dir(f.Path), stem+v.rs.Tests.Suffix+ext)
	if paths[companion] {
		return nil
	}
	return []Violation{{
		Rule:     "tests/colocated",
		Severity: v.rs.Tests.Severity,
		Path:     f.Path,
		Detail:   fmt.Sprintf("missing test companion %s", path.Base(companion)),
	}}
}

// checkOrphan notices source files that sit under a layer parent directory
// without belonging to any layer.
func (v *Validator) checkOrphan(f *scan.File) []Violation {
	if languageFor(f.Path) == "" {
		return nil
	}
	top := f.Path
	if i := strings.Index(top, "/"); i > 0 {
		top = top[:i]
	}
	if !v.parents[top] {
		return nil
	}
	return []Violation{{
		Rule:     "layout/orphan",
		Severity: rules.SeverityInfo,
		Path:     f.Path,
		Detail:   fmt.Sprintf("file is under %s but belongs to no layer", top),
	}}
}

// checkForbidden scans file content line by line against the forbidden
// patterns whose globs match and whose exemptions do not.
func (v *Validator) checkForbidden(f *scan.File, layerName string) []Violation {
	if f.Content == nil {
		return nil
	}
	var out []Violation
	var lines []string
	for i := range v.forbidden {
		fr := &v.forbidden[i]
		if !fr.appliesTo(f.Path) || fr.exempts(layerName) {
			continue
		}
		if lines == nil {
			lines = strings.Split(string(f.Content), "\n")
		}
		for n, line := range lines {
			if fr.re.MatchString(line) {
				out = append(out, Violation{
					Rule:     "forbidden/" + fr.rule.ID,
					Severity: fr.rule.Severity,
					Path:     f.Path,
					Line:     n + 1,
					Detail:   fr.detail(),
				})
			}
		}
	}
	return out
}

func (v *Validator) isTest(stem string) bool {
	return strings.HasSuffix(stem, v.rs.Tests.Suffix)
}

func (v *Validator) ignored(rel string) bool {
	for _, pattern := range v.rs.Ignore {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}
