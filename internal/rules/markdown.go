package rules

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	sectionRe     = regexp.MustCompile(`^##\s+(.+?)\s*$`)
	layerItemRe   = regexp.MustCompile(`^###\s*L(\d+)\s*:\s*(.+?)\s*$`)
	forbidItemRe  = regexp.MustCompile(`^###\s*F(\d+)\s*:\s*(.+?)\s*$`)
	bulletFieldRe = regexp.MustCompile(`^[-*]\s+([A-Za-z][A-Za-z ]*?)\s*:\s*(.*?)\s*$`)
	plainBulletRe = regexp.MustCompile(`^[-*]\s+(.+?)\s*$`)
)

// ParseMarkdown reads the markdown rules dialect of the source rule documents:
// a "## Layers" section of "### L<n>: name" items and a "## Forbidden" section
// of "### F<n>: id" items, each followed by "- field: value" bullets, plus
// "## Testing" and "## Ignore" sections. Unrecognized prose is skipped, so the
// document can stay readable. The result is normalized and validated like a
// YAML ruleset.
func ParseMarkdown(data []byte) (*RuleSet, error) {
	rs := &RuleSet{Version: 1}

	type numberedLayer struct {
		n     int
		layer Layer
	}
	type numberedRule struct {
		n    int
		rule ForbiddenRule
	}
	var layers []numberedLayer
	var forbidden []numberedRule

	section := ""
	var curLayer *numberedLayer
	var curRule *numberedRule

	flush := func() {
		if curLayer != nil {
			layers = append(layers, *curLayer)
			curLayer = nil
		}
		if curRule != nil {
			forbidden = append(forbidden, *curRule)
			curRule = nil
		}
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t")

		if m := sectionRe.FindStringSubmatch(line); m != nil {
			flush()
			section = strings.ToLower(strings.TrimSpace(m[1]))
			continue
		}

		switch section {
		case "layers":
			if m := layerItemRe.FindStringSubmatch(line); m != nil {
				flush()
				n, _ := strconv.Atoi(m[1])
				curLayer = &numberedLayer{n: n, layer: Layer{Name: cleanValue(m[2])}}
				continue
			}
			if curLayer == nil {
				continue
			}
			if key, value, ok := bulletField(line); ok {
				applyLayerField(&curLayer.layer, key, value)
			}

		case "forbidden":
			if m := forbidItemRe.FindStringSubmatch(line); m != nil {
				flush()
				n, _ := strconv.Atoi(m[1])
				curRule = &numberedRule{n: n, rule: ForbiddenRule{ID: cleanValue(m[2])}}
				continue
			}
			if curRule == nil {
				continue
			}
			if key, value, ok := bulletField(line); ok {
				applyForbiddenField(&curRule.rule, key, value)
			}

		case "testing", "tests":
			if key, value, ok := bulletField(line); ok {
				applyTestField(&rs.Tests, key, value)
			}

		case "ignore":
			if m := plainBulletRe.FindStringSubmatch(line); m != nil {
				if v := cleanValue(m[1]); v != "" {
					rs.Ignore = append(rs.Ignore, v)
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parse rules markdown: %w", err)
	}
	flush()

	sort.SliceStable(layers, func(i, j int) bool { return layers[i].n < layers[j].n })
	for _, nl := range layers {
		rs.Layers = append(rs.Layers, nl.layer)
	}
	sort.SliceStable(forbidden, func(i, j int) bool { return forbidden[i].n < forbidden[j].n })
	for _, nr := range forbidden {
		rs.Forbidden = append(rs.Forbidden, nr.rule)
	}

	rs.Normalize()
	if err := rs.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ruleset: %w", err)
	}
	return rs, nil
}

func bulletField(line string) (key, value string, ok bool) {
	m := bulletFieldRe.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	key = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(m[1])), " ", "_")
	return key, cleanValue(m[2]), true
}

func cleanValue(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "`")
	return strings.TrimSpace(s)
}

func applyLayerField(l *Layer, key, value string) {
	switch key {
	case "dir", "directory":
		l.Dir = value
	case "case", "naming":
		l.Case = Case(strings.ToLower(value))
	case "suffix":
		l.Suffix = value
	case "depends_on", "depends":
		l.DependsOn = splitList(value)
	case "require_tests", "tests":
		l.RequireTests = parseFlag(value)
	case "description":
		l.Description = value
	}
}

func applyForbiddenField(f *ForbiddenRule, key, value string) {
	switch key {
	case "pattern":
		f.Pattern = value
	case "message":
		f.Message = value
	case "severity":
		if sev, err := ParseSeverity(value); err == nil {
			f.Severity = sev
		}
	case "applies_to":
		f.AppliesTo = splitList(value)
	case "exempt_layers", "exempt":
		f.ExemptLayers = splitList(value)
	}
}

func applyTestField(tr *TestRule, key, value string) {
	switch key {
	case "colocated", "colocate":
		tr.Colocated = parseFlag(value)
	case "suffix":
		tr.Suffix = value
	case "severity":
		if sev, err := ParseSeverity(value); err == nil {
			tr.Severity = sev
		}
	}
}

func splitList(value string) []string {
	if value == "" || strings.EqualFold(value, "none") || strings.EqualFold(value, "(none)") {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = cleanValue(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseFlag(value string) bool {
	switch strings.ToLower(value) {
	case "yes", "y", "true", "on", "required":
		return true
	}
	return false
}

// Markdown renders the ruleset in the dialect ParseMarkdown reads. Parsing
// the output yields an equivalent ruleset, so generated RULES.md documents
// stay authoritative.
func (rs *RuleSet) Markdown() string {
	var b strings.Builder
	b.WriteString("# Architecture Rules\n\n")
	b.WriteString("## Layers\n\n")
	for i, l := range rs.Layers {
		fmt.Fprintf(&b, "### L%d: %s\n\n", i+1, l.Name)
		fmt.Fprintf(&b, "- dir: `%s`\n", l.Dir)
		fmt.Fprintf(&b, "- case: %s\n", l.Case)
		if l.Suffix != "" {
			fmt.Fprintf(&b, "- suffix: `%s`\n", l.Suffix)
		}
		if len(l.DependsOn) > 0 {
			fmt.Fprintf(&b, "- depends on: %s\n", strings.Join(l.DependsOn, ", "))
		} else {
			b.WriteString("- depends on: (none)\n")
		}
		if l.RequireTests {
			b.WriteString("- require tests: yes\n")
		}
		if l.Description != "" {
			fmt.Fprintf(&b, "- description: %s\n", l.Description)
		}
		b.WriteString("\n")
	}

	if len(rs.Forbidden) > 0 {
		b.WriteString("## Forbidden\n\n")
		for i, f := range rs.Forbidden {
			fmt.Fprintf(&b, "### F%d: %s\n\n", i+1, f.ID)
			fmt.Fprintf(&b, "- pattern: `%s`\n", f.Pattern)
			if f.Message != "" {
				fmt.Fprintf(&b, "- message: %s\n", f.Message)
			}
			fmt.Fprintf(&b, "- severity: %s\n", f.Severity)
			if len(f.AppliesTo) > 0 {
				fmt.Fprintf(&b, "- applies to: %s\n", strings.Join(f.AppliesTo, ", "))
			}
			if len(f.ExemptLayers) > 0 {
				fmt.Fprintf(&b, "- exempt layers: %s\n", strings.Join(f.ExemptLayers, ", "))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("## Testing\n\n")
	fmt.Fprintf(&b, "- colocated: %s\n", flagLabel(rs.Tests.Colocated))
	fmt.Fprintf(&b, "- suffix: `%s`\n", rs.Tests.Suffix)
	fmt.Fprintf(&b, "- severity: %s\n", rs.Tests.Severity)

	if len(rs.Ignore) > 0 {
		b.WriteString("\n## Ignore\n\n")
		for _, g := range rs.Ignore {
			fmt.Fprintf(&b, "- `%s`\n", g)
		}
	}

	return b.String()
}

func flagLabel(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
