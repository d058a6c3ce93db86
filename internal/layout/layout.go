// Package layout turns a ruleset and a feature descriptor into a concrete
// file plan: which files go where, rendered from which template, under
// which layer. Plans are deterministic so repeated runs compare equal.
package layout

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"

	"stratum/internal/descriptor"
	"stratum/internal/layout/templates"
	"stratum/internal/naming"
	"stratum/internal/rules"
)

// Mode tells the emitter how to treat a planned file.
type Mode string

const (
	// ModeManaged files are written and tracked in the manifest; re-apply
	// rewrites them when content changes and flags drift as a conflict.
	ModeManaged Mode = "managed"
	// ModeOnce files are written only when absent, then left alone.
	ModeOnce Mode = "once"
)

// PlannedFile is one file the plan wants on disk.
type PlannedFile struct {
	Path     string `json:"path"`
	Layer    string `json:"layer,omitempty"`
	Template string `json:"template"`
	Entity   string `json:"entity,omitempty"`
	Mode     Mode   `json:"mode"`
}

// Plan is the full set of files and directories scaffolding will produce.
// DescriptorHash and RulesHash pin the inputs the plan was computed from.
type Plan struct {
	Project        string        `json:"project"`
	Module         string        `json:"module"`
	DescriptorHash string        `json:"descriptor_hash"`
	RulesHash      string        `json:"rules_hash"`
	Files          []PlannedFile `json:"files"`
	Dirs           []string      `json:"dirs"`
}

// Planner maps descriptors onto a ruleset's layout.
type Planner struct {
	rs  *rules.RuleSet
	reg *templates.Registry
	log *zap.Logger
}

// NewPlanner validates the ruleset once up front; a ruleset that fails
// validation cannot produce a coherent plan.
func NewPlanner(rs *rules.RuleSet, reg *templates.Registry, log *zap.Logger) (*Planner, error) {
	if err := rs.Validate(); err != nil {
		return nil, fmt.Errorf("ruleset: %w", err)
	}
	if reg == nil {
		reg = templates.Builtin()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Planner{rs: rs, reg: reg, log: log.Named("layout")}, nil
}

// Plan produces the file plan for a normalized descriptor. Output is sorted
// by path and collisions between planned paths are refused.
func (p *Planner) Plan(d *descriptor.Descriptor) (*Plan, error) {
	plan := &Plan{
		Project:        d.Project,
		Module:         d.Module,
		DescriptorHash: d.Fingerprint(),
		RulesHash:      p.rs.Fingerprint(),
	}

	claimed := make(map[string]string)
	add := func(f PlannedFile) error {
		by := f.Template
		if f.Entity != "" {
			by += ":" + f.Entity
		}
		if prev, dup := claimed[f.Path]; dup {
			return fmt.Errorf("plan collision on %s: claimed by %s and %s", f.Path, prev, by)
		}
		claimed[f.Path] = by
		plan.Files = append(plan.Files, f)
		return nil
	}

	for _, def := range p.reg.ProjectLevel() {
		f := PlannedFile{
			Path:     expandPath(def.Path, d.Project),
			Template: def.Name,
			Mode:     ModeManaged,
		}
		if def.Once {
			f.Mode = ModeOnce
		}
		if layer, ok := p.rs.LayerFor(f.Path); ok {
			f.Layer = layer.Name
		}
		if err := add(f); err != nil {
			return nil, err
		}
	}

	for _, e := range d.Entities {
		for i := range p.rs.Layers {
			layer := &p.rs.Layers[i]
			for _, def := range p.reg.ForLayer(layer.Name) {
				stem, err := stemFor(e, layer, def)
				if err != nil {
					return nil, err
				}
				if err := add(PlannedFile{
					Path:     path.Join(layer.Dir, stem+def.Ext),
					Layer:    layer.Name,
					Template: def.Name,
					Entity:   e.Name,
					Mode:     ModeManaged,
				}); err != nil {
					return nil, err
				}
				if !layer.RequireTests || def.Companion == "" {
					continue
				}
				if _, ok := p.reg.Lookup(def.Companion); !ok {
					return nil, fmt.Errorf("template %s names unregistered companion %s", def.Name, def.Companion)
				}
				if err := add(PlannedFile{
					Path:     path.Join(layer.Dir, stem+p.rs.Tests.Suffix+def.Ext),
					Layer:    layer.Name,
					Template: def.Companion,
					Entity:   e.Name,
					Mode:     ModeManaged,
				}); err != nil {
					return nil, err
				}
			}
		}
	}

	sort.Slice(plan.Files, func(i, j int) bool { return plan.Files[i].Path < plan.Files[j].Path })
	plan.Dirs = p.dirs(plan.Files)
	p.log.Debug("planned layout",
		zap.String("project", plan.Project),
		zap.Int("files", len(plan.Files)),
		zap.Int("dirs", len(plan.Dirs)))
	return plan, nil
}

// RenderPlan renders every planned file, keyed by project-relative path.
func (p *Planner) RenderPlan(plan *Plan, d *descriptor.Descriptor) (map[string][]byte, error) {
	byName := make(map[string]descriptor.Entity, len(d.Entities))
	for _, e := range d.Entities {
		byName[e.Name] = e
	}

	out := make(map[string][]byte, len(plan.Files))
	for _, f := range plan.Files {
		data := templates.Data{
			Project:  plan.Project,
			Module:   plan.Module,
			Entities: d.Entities,
		}
		if f.Entity != "" {
			e, ok := byName[f.Entity]
			if !ok {
				return nil, fmt.Errorf("plan references unknown entity %q", f.Entity)
			}
			data.Entity = e
		}
		content, err := p.reg.Render(f.Template, data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Path, err)
		}
		out[f.Path] = content
	}
	return out, nil
}

// RenderDocs renders the project documents init writes once, keyed by path.
func (p *Planner) RenderDocs(d *descriptor.Descriptor) (map[string][]byte, error) {
	out := make(map[string][]byte)
	for _, def := range p.reg.Docs() {
		content, err := p.reg.Render(def.Name, templates.Data{
			Project:  d.Project,
			Module:   d.Module,
			Entities: d.Entities,
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", def.Name, err)
		}
		out[expandPath(def.Path, d.Project)] = content
	}
	return out, nil
}

// dirs collects every layer dir plus the parent of every planned file,
// deduplicated and sorted. Empty layer dirs still get created so the
// documented structure exists even before it has content.
func (p *Planner) dirs(files []PlannedFile) []string {
	set := make(map[string]bool)
	for _, l := range p.rs.Layers {
		set[l.Dir] = true
	}
	for _, f := range files {
		if dir := path.Dir(f.Path); dir != "." {
			set[dir] = true
		}
	}
	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// stemFor derives a file stem from the entity using the layer's case and
// suffix. The combined stem must still satisfy the layer's case, otherwise
// the plan would fail its own naming checks.
func stemFor(e descriptor.Entity, layer *rules.Layer, def *templates.Definition) (string, error) {
	base := e.Name
	if def.UsePlural {
		base = e.Plural
	}
	stem := caseFunc(layer.Case)(base) + layer.Suffix + def.StemSuffix
	if !naming.Check(string(layer.Case), stem) {
		return "", fmt.Errorf("layer %s: stem %q does not satisfy %s case", layer.Name, stem, layer.Case)
	}
	return stem, nil
}

func caseFunc(c rules.Case) func(string) string {
	switch c {
	case rules.CaseKebab:
		return naming.Kebab
	case rules.CaseCamel:
		return naming.Camel
	case rules.CasePascal:
		return naming.Pascal
	default:
		return naming.Snake
	}
}

func expandPath(p, project string) string {
	return strings.ReplaceAll(p, "{project}", naming.Snake(project))
}
