// Package report renders engine results as plain text for the CLI and for
// MCP tool output.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"stratum/internal/emit"
	"stratum/internal/layout"
	"stratum/internal/rules"
	"stratum/internal/store"
	"stratum/internal/validate"
)

// Plan lists what an apply would put on disk.
func Plan(p *layout.Plan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "plan for %s (module %s): %d dirs, %d files\n",
		p.Project, p.Module, len(p.Dirs), len(p.Files))
	for _, f := range p.Files {
		b.WriteString("  " + f.Path)
		if f.Layer != "" {
			b.WriteString("  [" + f.Layer + "]")
		}
		if f.Mode == layout.ModeOnce {
			b.WriteString("  (once)")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Validation renders a report, one violation per line, worst first within a
// path so errors are hard to miss.
func Validation(r *validate.Report) string {
	var b strings.Builder
	for _, v := range r.Violations {
		loc := v.Path
		if v.Line > 0 {
			loc = fmt.Sprintf("%s:%d", v.Path, v.Line)
		}
		fmt.Fprintf(&b, "%s: %s: %s", v.Severity, loc, v.Detail)
		if v.From != "" && v.To != "" {
			fmt.Fprintf(&b, " (%s -> %s)", v.From, v.To)
		}
		fmt.Fprintf(&b, " [%s]\n", v.Rule)
	}
	if len(r.Violations) > 0 {
		b.WriteString("\n")
	}
	b.WriteString(r.Summary + "\n")
	return b.String()
}

// Apply renders an emit result.
func Apply(res *emit.Result) string {
	var b strings.Builder
	for _, p := range res.Written {
		b.WriteString("  wrote " + p + "\n")
	}
	for _, p := range res.Skipped {
		b.WriteString("  kept " + p + " (seed file exists)\n")
	}
	for _, c := range res.Conflicts {
		b.WriteString("  conflict " + c.Path + ": " + c.Reason + "\n")
	}
	fmt.Fprintf(&b, "%d written, %d unchanged, %d skipped, %d conflicts\n",
		len(res.Written), len(res.Unchanged), len(res.Skipped), len(res.Conflicts))
	return b.String()
}

// Status renders manifest stats: last run per kind, tracked files, violation
// counts from the latest validation, and files that drifted since their last
// emit.
func Status(s *store.Stats) string {
	var b strings.Builder

	for _, kind := range []string{store.RunPlan, store.RunApply, store.RunValidate} {
		run := s.LastRuns[kind]
		if run == nil {
			fmt.Fprintf(&b, "%-9s never run\n", kind)
			continue
		}
		fmt.Fprintf(&b, "%-9s %s, %s", kind, run.Status, age(run.StartedAt))
		if run.Summary != "" {
			b.WriteString(": " + run.Summary)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\n%d files tracked\n", s.FileCount)

	if len(s.ViolationCount) > 0 {
		sevs := make([]string, 0, len(s.ViolationCount))
		for sev := range s.ViolationCount {
			sevs = append(sevs, sev)
		}
		sort.Slice(sevs, func(i, j int) bool {
			return rules.Severity(sevs[i]).Rank() > rules.Severity(sevs[j]).Rank()
		})
		parts := make([]string, 0, len(sevs))
		for _, sev := range sevs {
			parts = append(parts, fmt.Sprintf("%d %s", s.ViolationCount[sev], sev))
		}
		b.WriteString("last validation: " + strings.Join(parts, ", ") + "\n")
	}

	if len(s.Stale) > 0 {
		fmt.Fprintf(&b, "%d files changed since last apply:\n", len(s.Stale))
		for _, p := range s.Stale {
			b.WriteString("  " + p + "\n")
		}
	}
	return b.String()
}

func age(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// Truncate caps content at roughly maxLen bytes, cutting at line boundaries
// and appending an omission marker. The bool reports whether anything was
// cut.
func Truncate(content string, maxLen int) (string, bool) {
	if maxLen <= 0 || len(content) <= maxLen {
		return content, false
	}

	lines := strings.Split(content, "\n")
	kept := 0
	total := 0
	for _, line := range lines {
		if total+len(line)+1 > maxLen {
			break
		}
		total += len(line) + 1
		kept++
	}

	if kept == 0 {
		// one line longer than the whole budget
		return content[:maxLen] + "\n... (truncated)", true
	}
	return strings.Join(lines[:kept], "\n") +
		fmt.Sprintf("\n... (%d more lines)", len(lines)-kept), true
}
