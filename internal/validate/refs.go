package validate

import (
	"path"
	"regexp"
	"strings"

	"stratum/internal/rules"
)

// reference is one extracted import target with the line it appeared on.
type reference struct {
	target string
	line   int
}

// languageFor maps a file extension to the reference-extraction language.
// Files with no language carry no checkable references.
func languageFor(p string) string {
	switch strings.ToLower(path.Ext(p)) {
	case ".go":
		return "go"
	case ".ts", ".tsx":
		return "typescript"
	case ".js", ".jsx", ".mjs":
		return "javascript"
	case ".py":
		return "python"
	}
	return ""
}

var (
	goImportLine = regexp.MustCompile(`^\s*import\s+(?:[A-Za-z_.][A-Za-z0-9_]*\s+)?"([^"]+)"`)
	goBlockEntry = regexp.MustCompile(`^\s*(?:[A-Za-z_.][A-Za-z0-9_]*\s+)?"([^"]+)"`)

	tsImportFrom = regexp.MustCompile(`^\s*(?:import|export)\b[^'"]*from\s+['"]([^'"]+)['"]`)
	tsImportBare = regexp.MustCompile(`^\s*import\s+['"]([^'"]+)['"]`)
	tsRequire    = regexp.MustCompile(`\brequire\(\s*['"]([^'"]+)['"]\s*\)`)

	pyFromImport = regexp.MustCompile(`^\s*from\s+(\.*[A-Za-z_][\w.]*|\.+)\s+import\b`)
	pyImport     = regexp.MustCompile(`^\s*import\s+([A-Za-z_][\w.]*)`)
)

// extractRefs pulls import targets out of source text with per-language line
// patterns. Regex-level extraction resolves layer edges without a parser for
// every language.
func extractRefs(content []byte, language string) []reference {
	lines := strings.Split(string(content), "\n")
	var refs []reference

	switch language {
	case "go":
		inBlock := false
		for i, line := range lines {
			trimmed := strings.TrimSpace(line)
			if inBlock {
				if trimmed == ")" {
					inBlock = false
					continue
				}
				if m := goBlockEntry.FindStringSubmatch(line); m != nil {
					refs = append(refs, reference{target: m[1], line: i + 1})
				}
				continue
			}
			if strings.HasPrefix(trimmed, "import (") {
				inBlock = true
				continue
			}
			if m := goImportLine.FindStringSubmatch(line); m != nil {
				refs = append(refs, reference{target: m[1], line: i + 1})
			}
		}

	case "typescript", "javascript":
		for i, line := range lines {
			if m := tsImportFrom.FindStringSubmatch(line); m != nil {
				refs = append(refs, reference{target: m[1], line: i + 1})
			} else if m := tsImportBare.FindStringSubmatch(line); m != nil {
				refs = append(refs, reference{target: m[1], line: i + 1})
			} else if m := tsRequire.FindStringSubmatch(line); m != nil {
				refs = append(refs, reference{target: m[1], line: i + 1})
			}
		}

	case "python":
		for i, line := range lines {
			if m := pyFromImport.FindStringSubmatch(line); m != nil {
				refs = append(refs, reference{target: m[1], line: i + 1})
			} else if m := pyImport.FindStringSubmatch(line); m != nil {
				refs = append(refs, reference{target: m[1], line: i + 1})
			}
		}
	}
	return refs
}

// resolveTarget maps an import target to the layer it refers to. Relative
// specifiers resolve against the importing file's directory; module-style
// targets match when a layer dir appears as a run of path segments, so
// "shop/internal/services" finds the services layer regardless of the module
// name in front.
func (v *Validator) resolveTarget(fromPath, target, language string) (*rules.Layer, bool) {
	if language == "python" {
		if strings.HasPrefix(target, ".") {
			dots := 0
			for dots < len(target) && target[dots] == '.' {
				dots++
			}
			rest := strings.ReplaceAll(target[dots:], ".", "/")
			dir := path.Dir(fromPath)
			for i := 1; i < dots; i++ {
				dir = path.Dir(dir)
			}
			return v.rs.LayerFor(path.Join(dir, rest))
		}
		target = strings.ReplaceAll(target, ".", "/")
	}
	if strings.HasPrefix(target, ".") {
		return v.rs.LayerFor(path.Join(path.Dir(fromPath), target))
	}
	return v.layerForModule(target)
}

// layerForModule finds the layer whose dir occurs in a module-style import
// path, preferring the longest dir so nested layer dirs win.
func (v *Validator) layerForModule(target string) (*rules.Layer, bool) {
	var best *rules.Layer
	bestLen := -1
	for i := range v.rs.Layers {
		l := &v.rs.Layers[i]
		dir := l.Dir
		if len(dir) <= bestLen {
			continue
		}
		if target == dir || strings.HasPrefix(target, dir+"/") ||
			strings.HasSuffix(target, "/"+dir) || strings.Contains(target, "/"+dir+"/") {
			best = l
			bestLen = len(dir)
		}
	}
	return best, best != nil
}
