// Package templates holds the content generators behind planned files: Go
// backend skeletons, frontend stubs and project documents, all rendered
// through text/template with casing helpers shared with the planner.
package templates

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"stratum/internal/descriptor"
	"stratum/internal/naming"
)

// Definition binds a template to the files it produces. Entity templates
// (PerEntity) render once per entity into their Layer's dir; the others
// render once per plan at Path. Doc templates are only emitted by init.
// Companion templates are reachable through Lookup only and ride along
// with their owner when the layer requires tests.
type Definition struct {
	Name       string
	Layer      string
	Path       string // fixed project-relative path; "{project}" expands
	Ext        string
	PerEntity  bool
	UsePlural  bool   // file stem derives from the entity plural
	StemSuffix string // extra stem text before Ext, e.g. "-form"
	Companion  string // test template emitted when the layer requires tests
	Doc        bool
	Once       bool // write only when absent, never overwrite
	body       string
}

// Data is the rendering context. Entity is set for PerEntity templates,
// Entities always carries the full normalized list.
type Data struct {
	Project  string
	Module   string
	Entity   descriptor.Entity
	Entities []descriptor.Entity
}

// Registry maps template names to parsed templates.
type Registry struct {
	defs map[string]*Definition
	tpl  *template.Template
}

// New parses the definitions into a registry. Names must be unique.
func New(defs []*Definition) (*Registry, error) {
	r := &Registry{
		defs: make(map[string]*Definition, len(defs)),
		tpl:  template.New("stratum").Funcs(funcMap),
	}
	for _, def := range defs {
		if def.Name == "" {
			return nil, fmt.Errorf("template without a name")
		}
		if _, dup := r.defs[def.Name]; dup {
			return nil, fmt.Errorf("duplicate template %q", def.Name)
		}
		if _, err := r.tpl.New(def.Name).Parse(def.body); err != nil {
			return nil, fmt.Errorf("parse template %q: %w", def.Name, err)
		}
		r.defs[def.Name] = def
	}
	return r, nil
}

// Builtin returns the registry covering the default layered web ruleset.
// The built-in bodies are compile-time constants, so a parse failure is a
// programming error.
func Builtin() *Registry {
	r, err := New(builtinDefs())
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name string) (*Definition, bool) {
	def, ok := r.defs[name]
	return def, ok
}

// ForLayer returns the entity templates targeting the named layer, sorted by
// template name.
func (r *Registry) ForLayer(layer string) []*Definition {
	var out []*Definition
	for _, def := range r.defs {
		if def.PerEntity && !def.Doc && def.Layer == layer {
			out = append(out, def)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ProjectLevel returns the once-per-plan templates, sorted by name.
func (r *Registry) ProjectLevel() []*Definition {
	var out []*Definition
	for _, def := range r.defs {
		if !def.PerEntity && !def.Doc {
			out = append(out, def)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Docs returns the document templates emitted by init, sorted by name.
func (r *Registry) Docs() []*Definition {
	var out []*Definition
	for _, def := range r.defs {
		if def.Doc {
			out = append(out, def)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Render executes the named template. Output always ends with exactly one
// trailing newline.
func (r *Registry) Render(name string, data Data) ([]byte, error) {
	if _, ok := r.defs[name]; !ok {
		return nil, fmt.Errorf("unknown template %q", name)
	}
	var buf bytes.Buffer
	if err := r.tpl.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render %q: %w", name, err)
	}
	out := bytes.TrimRight(buf.Bytes(), "\n")
	return append(out, '\n'), nil
}

// goInitialisms follow the usual Go review conventions for generated field
// names.
var goInitialisms = map[string]string{
	"id":   "ID",
	"url":  "URL",
	"uri":  "URI",
	"api":  "API",
	"http": "HTTP",
	"sql":  "SQL",
	"json": "JSON",
	"db":   "DB",
	"uuid": "UUID",
}

func goField(name string) string {
	words := naming.Split(name)
	for i, w := range words {
		if up, ok := goInitialisms[w]; ok {
			words[i] = up
		} else {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, "")
}

func goType(t string) string {
	switch t {
	case "int":
		return "int"
	case "int64":
		return "int64"
	case "float64":
		return "float64"
	case "bool":
		return "bool"
	case "time":
		return "time.Time"
	default: // string, text, uuid
		return "string"
	}
}

func tsType(t string) string {
	switch t {
	case "int", "int64", "float64":
		return "number"
	case "bool":
		return "boolean"
	default:
		return "string"
	}
}

func sqlType(t string) string {
	switch t {
	case "int", "int64":
		return "INTEGER"
	case "float64":
		return "REAL"
	case "bool":
		return "INTEGER"
	case "time":
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

// human turns an identifier into prose: "order_item" becomes "order item".
func human(s string) string {
	return strings.ReplaceAll(naming.Snake(s), "_", " ")
}

// recv is the receiver letter generated methods use.
func recv(e descriptor.Entity) string {
	return e.Name[:1]
}

func hasOp(e descriptor.Entity, op string) bool {
	return e.Has(descriptor.Operation(op))
}

// canUpdate reports whether an update path is generated at all: the entity
// must ask for it and carry at least one updatable column.
func canUpdate(e descriptor.Entity) bool {
	return e.Has(descriptor.OpUpdate) && len(updatable(e)) > 0
}

func needsTime(e descriptor.Entity) bool {
	for _, f := range e.Fields {
		if f.Type == "time" {
			return true
		}
	}
	return false
}

// validatable filters the fields whose Required flag turns into a Validate
// check: assigned ids and bookkeeping timestamps are excluded, and bool has
// no usable zero test.
func validatable(e descriptor.Entity) []descriptor.Field {
	var out []descriptor.Field
	for _, f := range e.Fields {
		if !f.Required || f.Type == "bool" {
			continue
		}
		switch f.Name {
		case "id", "created_at", "updated_at":
			continue
		}
		out = append(out, f)
	}
	return out
}

// updatable lists the columns an UPDATE may touch: everything except the key
// and the creation timestamp.
func updatable(e descriptor.Entity) []descriptor.Field {
	var out []descriptor.Field
	for _, f := range e.Fields {
		if f.Name == "id" || f.Name == "created_at" {
			continue
		}
		out = append(out, f)
	}
	return out
}

// fixtureSet is every field test fixtures assign: all of them minus the
// timestamps the service layer owns.
func fixtureSet(e descriptor.Entity) []descriptor.Field {
	var out []descriptor.Field
	for _, f := range e.Fields {
		if e.Timestamps && (f.Name == "created_at" || f.Name == "updated_at") {
			continue
		}
		out = append(out, f)
	}
	return out
}

// formFields is the subset a generated form edits: fixtures minus the id.
func formFields(e descriptor.Entity) []descriptor.Field {
	var out []descriptor.Field
	for _, f := range fixtureSet(e) {
		if f.Name == "id" {
			continue
		}
		out = append(out, f)
	}
	return out
}

func fixtureValue(f descriptor.Field) string {
	switch f.Type {
	case "int", "int64":
		return "1"
	case "float64":
		return "1.5"
	case "bool":
		return "true"
	case "time":
		return "time.Now().UTC()"
	case "uuid":
		return `"00000000-0000-0000-0000-000000000001"`
	default:
		return fmt.Sprintf("%q", "sample "+human(f.Name))
	}
}

func fixtureNeedsTime(e descriptor.Entity) bool {
	for _, f := range fixtureSet(e) {
		if f.Type == "time" {
			return true
		}
	}
	return false
}

// requiredCheck renders the zero test guarding a required field.
func requiredCheck(r string, f descriptor.Field) string {
	field := r + "." + goField(f.Name)
	switch f.Type {
	case "int", "int64", "float64":
		return field + " == 0"
	case "time":
		return field + ".IsZero()"
	default:
		return field + ` == ""`
	}
}

// structFields renders the aligned field block of a generated struct.
func structFields(e descriptor.Entity) string {
	names := make([]string, len(e.Fields))
	types := make([]string, len(e.Fields))
	maxName, maxType := 0, 0
	for i, f := range e.Fields {
		names[i] = goField(f.Name)
		types[i] = goType(f.Type)
		if len(names[i]) > maxName {
			maxName = len(names[i])
		}
		if len(types[i]) > maxType {
			maxType = len(types[i])
		}
	}
	var b strings.Builder
	for i, f := range e.Fields {
		fmt.Fprintf(&b, "\t%-*s %-*s %s\n", maxName, names[i], maxType, types[i], tag(f.Name))
	}
	return b.String()
}

// fixtureFields renders the aligned assignments of a test fixture literal.
func fixtureFields(e descriptor.Entity, includeID bool) string {
	fields := fixtureSet(e)
	if !includeID {
		kept := fields[:0]
		for _, f := range fields {
			if f.Name != "id" {
				kept = append(kept, f)
			}
		}
		fields = kept
	}
	maxKey := 0
	for _, f := range fields {
		if n := len(goField(f.Name)) + 1; n > maxKey {
			maxKey = n
		}
	}
	var b strings.Builder
	for _, f := range fields {
		fmt.Fprintf(&b, "\t\t%-*s %s,\n", maxKey, goField(f.Name)+":", fixtureValue(f))
	}
	return b.String()
}

// schemaColumns renders the column list of a generated CREATE TABLE.
func schemaColumns(e descriptor.Entity) string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		col := f.Name + " " + sqlType(f.Type)
		if f.Name == "id" {
			col += " PRIMARY KEY"
		} else {
			if f.Required {
				col += " NOT NULL"
			}
			if f.Unique {
				col += " UNIQUE"
			}
		}
		parts = append(parts, col)
	}
	return strings.Join(parts, ", ")
}

func columnList(fields []descriptor.Field) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return strings.Join(names, ", ")
}

func placeholderList(fields []descriptor.Field) string {
	marks := make([]string, len(fields))
	for i := range fields {
		marks[i] = "?"
	}
	return strings.Join(marks, ", ")
}

func argList(r string, fields []descriptor.Field) string {
	args := make([]string, len(fields))
	for i, f := range fields {
		args[i] = r + "." + goField(f.Name)
	}
	return strings.Join(args, ", ")
}

func scanList(r string, fields []descriptor.Field) string {
	args := make([]string, len(fields))
	for i, f := range fields {
		args[i] = "&" + r + "." + goField(f.Name)
	}
	return strings.Join(args, ", ")
}

func setClause(fields []descriptor.Field) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.Name + " = ?"
	}
	return strings.Join(parts, ", ")
}

// urlPath is the REST collection path segment for an entity.
func urlPath(e descriptor.Entity) string {
	return naming.Kebab(e.Plural)
}

// tag renders a struct tag, keeping backquotes out of template bodies.
func tag(name string) string {
	return "`json:\"" + name + "\"`"
}

var funcMap = template.FuncMap{
	"snake":  naming.Snake,
	"kebab":  naming.Kebab,
	"camel":  naming.Camel,
	"pascal": naming.Pascal,
	"plural": naming.Pluralize,
	"lower":  strings.ToLower,
	"upper":  strings.ToUpper,
	"human":  human,

	"gofield": goField,
	"gotype":  goType,
	"tstype":  tsType,
	"sqltype": sqlType,
	"tag":     tag,
	"recv":    recv,

	"hasOp":            hasOp,
	"canUpdate":        canUpdate,
	"needsTime":        needsTime,
	"validatable":      validatable,
	"updatable":        updatable,
	"formFields":       formFields,
	"requiredCheck":    requiredCheck,
	"fixtureFields":    fixtureFields,
	"fixtureNeedsTime": fixtureNeedsTime,

	"structFields":  structFields,
	"schemaColumns": schemaColumns,
	"cols":          columnList,
	"marks":         placeholderList,
	"args":          argList,
	"scans":         scanList,
	"sets":          setClause,
	"urlpath":       urlPath,
}
