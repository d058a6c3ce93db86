// Package descriptor parses feature descriptors: the human-authored list of
// entities, fields and operations a project should be scaffolded from.
package descriptor

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"stratum/internal/naming"
)

// Operation is one scaffolded capability of an entity.
type Operation string

const (
	OpCreate Operation = "create"
	OpGet    Operation = "get"
	OpList   Operation = "list"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// operationOrder fixes the canonical ordering Normalize emits.
var operationOrder = []Operation{OpCreate, OpGet, OpList, OpUpdate, OpDelete}

var knownOps = map[Operation]bool{
	OpCreate: true,
	OpGet:    true,
	OpList:   true,
	OpUpdate: true,
	OpDelete: true,
}

var fieldTypes = map[string]bool{
	"string":  true,
	"int":     true,
	"int64":   true,
	"float64": true,
	"bool":    true,
	"time":    true,
	"uuid":    true,
	"text":    true,
}

// reservedEntityNames are identifiers generated code always has in scope:
// Go keywords plus the packages generated files import. An entity with one
// of these names would shadow them.
var reservedEntityNames = map[string]bool{
	"break": true, "case": true, "chan": true, "const": true,
	"continue": true, "default": true, "defer": true, "else": true,
	"fallthrough": true, "for": true, "func": true, "go": true,
	"goto": true, "if": true, "import": true, "interface": true,
	"map": true, "package": true, "range": true, "return": true,
	"select": true, "struct": true, "switch": true, "type": true,
	"var": true,

	"api": true, "config": true, "context": true, "domain": true,
	"errors": true, "fmt": true, "handlers": true, "hex": true,
	"http": true, "json": true, "log": true, "main": true,
	"middlewares": true, "rand": true, "repositories": true,
	"services": true, "sql": true, "time": true,
}

// Field is one attribute of an entity.
type Field struct {
	Name     string `yaml:"name" validate:"required"`
	Type     string `yaml:"type,omitempty"`
	Required bool   `yaml:"required,omitempty"`
	Unique   bool   `yaml:"unique,omitempty"`
}

// Entity describes one domain object to scaffold.
type Entity struct {
	Name       string      `yaml:"name" validate:"required"`
	Plural     string      `yaml:"plural,omitempty"`
	Fields     []Field     `yaml:"fields,omitempty" validate:"dive"`
	Operations []Operation `yaml:"operations,omitempty"`
	Timestamps bool        `yaml:"timestamps,omitempty"`
}

// Has reports whether the entity carries the operation.
func (e Entity) Has(op Operation) bool {
	for _, o := range e.Operations {
		if o == op {
			return true
		}
	}
	return false
}

// Descriptor is a parsed feature list.
type Descriptor struct {
	Project  string   `yaml:"project" validate:"required"`
	Module   string   `yaml:"module,omitempty"`
	Entities []Entity `yaml:"entities" validate:"min=1,dive"`
}

var ErrEmpty = errors.New("empty descriptor")

var structValidate = validator.New()

// Validate checks the raw descriptor before normalization: struct tags, valid
// identifier names, case-insensitively unique entities, unique fields, known
// operations and field types.
func (d *Descriptor) Validate() error {
	if err := structValidate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("descriptor: %s", formatValidationErrors(verrs))
		}
		return err
	}

	seen := make(map[string]bool, len(d.Entities))
	for _, e := range d.Entities {
		key := naming.Snake(e.Name)
		if key == "" || !naming.IsSnake(key) {
			return fmt.Errorf("entity %q: name does not normalize to a valid identifier", e.Name)
		}
		if reservedEntityNames[key] {
			return fmt.Errorf("entity %q: name is reserved", key)
		}
		if seen[key] {
			return fmt.Errorf("duplicate entity %q", key)
		}
		seen[key] = true

		fieldNames := make(map[string]bool, len(e.Fields))
		for _, f := range e.Fields {
			fkey := naming.Snake(f.Name)
			if fkey == "" || !naming.IsSnake(fkey) {
				return fmt.Errorf("entity %q: field %q is not a valid identifier", key, f.Name)
			}
			if fieldNames[fkey] {
				return fmt.Errorf("entity %q: duplicate field %q", key, fkey)
			}
			fieldNames[fkey] = true
			if ft := strings.ToLower(strings.TrimSpace(f.Type)); ft != "" && !fieldTypes[ft] {
				return fmt.Errorf("entity %q: field %q has unknown type %q", key, fkey, f.Type)
			}
		}

		for _, op := range e.Operations {
			normalized := Operation(strings.ToLower(strings.TrimSpace(string(op))))
			if !knownOps[normalized] {
				return fmt.Errorf("entity %q: unknown operation %q", key, op)
			}
		}
	}
	return nil
}

// Normalize canonicalizes the descriptor in place so planning is
// deterministic: names to snake_case, entities sorted by name, operations
// deduplicated into the fixed CRUD order (all five when none are given),
// plurals derived when empty, the implicit id field placed first and
// timestamp fields appended last. Normalize is idempotent.
func (d *Descriptor) Normalize() {
	d.Project = strings.TrimSpace(d.Project)
	d.Module = strings.TrimSpace(d.Module)
	if d.Module == "" {
		d.Module = naming.Snake(d.Project)
	}

	for i := range d.Entities {
		e := &d.Entities[i]
		e.Name = naming.Snake(e.Name)
		if e.Plural == "" {
			e.Plural = naming.Pluralize(e.Name)
		} else {
			e.Plural = naming.Snake(e.Plural)
		}
		e.Operations = normalizeOps(e.Operations)
		e.Fields = normalizeFields(e.Fields, e.Timestamps)
	}

	sort.Slice(d.Entities, func(i, j int) bool { return d.Entities[i].Name < d.Entities[j].Name })
}

func normalizeOps(ops []Operation) []Operation {
	if len(ops) == 0 {
		return append([]Operation(nil), operationOrder...)
	}
	have := make(map[Operation]bool, len(ops))
	for _, op := range ops {
		have[Operation(strings.ToLower(strings.TrimSpace(string(op))))] = true
	}
	out := make([]Operation, 0, len(have))
	for _, op := range operationOrder {
		if have[op] {
			out = append(out, op)
		}
	}
	return out
}

func normalizeFields(fields []Field, timestamps bool) []Field {
	var id *Field
	rest := make([]Field, 0, len(fields))
	for _, f := range fields {
		f.Name = naming.Snake(f.Name)
		f.Type = strings.ToLower(strings.TrimSpace(f.Type))
		if f.Type == "" {
			f.Type = "string"
		}
		switch f.Name {
		case "id":
			cp := f
			id = &cp
		case "created_at", "updated_at":
			if timestamps {
				continue
			}
			rest = append(rest, f)
		default:
			rest = append(rest, f)
		}
	}
	if id == nil {
		id = &Field{Name: "id", Type: "uuid", Required: true, Unique: true}
	}

	out := append([]Field{*id}, rest...)
	if timestamps {
		out = append(out,
			Field{Name: "created_at", Type: "time", Required: true},
			Field{Name: "updated_at", Type: "time", Required: true},
		)
	}
	return out
}

// Fingerprint returns a stable sha256 hex digest of the descriptor. Call it
// on a normalized descriptor: two descriptors that normalize equal always
// fingerprint equal.
func (d *Descriptor) Fingerprint() string {
	data, err := yaml.Marshal(d)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func formatValidationErrors(errs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Namespace()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s needs at least %s item(s)", fe.Namespace(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s fails constraint %s", fe.Namespace(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
