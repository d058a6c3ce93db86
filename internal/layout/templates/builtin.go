package templates

// builtinDefs lists every built-in template. Entity templates follow the
// default ruleset's layers; the suffix and casing of generated file names
// come from the ruleset at planning time, not from these definitions.
func builtinDefs() []*Definition {
	return []*Definition{
		{Name: "domain", Layer: "domain", Ext: ".go", PerEntity: true, body: domainBody},
		{Name: "repository", Layer: "repositories", Ext: ".go", PerEntity: true, Companion: "repository_test", body: repositoryBody},
		{Name: "repository_test", PerEntity: true, body: repositoryTestBody},
		{Name: "service", Layer: "services", Ext: ".go", PerEntity: true, Companion: "service_test", body: serviceBody},
		{Name: "service_test", PerEntity: true, body: serviceTestBody},
		{Name: "handler", Layer: "handlers", Ext: ".go", PerEntity: true, Companion: "handler_test", body: handlerBody},
		{Name: "handler_test", PerEntity: true, body: handlerTestBody},
		{Name: "component", Layer: "components", Ext: ".tsx", PerEntity: true, StemSuffix: "-form", body: componentBody},
		{Name: "page", Layer: "pages", Ext: ".tsx", PerEntity: true, UsePlural: true, body: pageBody},

		{Name: "config", Path: "internal/config/config.go", body: configBody},
		{Name: "gomod", Path: "go.mod", Once: true, body: gomodBody},
		{Name: "main", Path: "cmd/{project}/main.go", body: mainBody},
		{Name: "middleware_logging", Path: "internal/middlewares/logging.go", body: middlewareLoggingBody},
		{Name: "middleware_recovery", Path: "internal/middlewares/recovery.go", body: middlewareRecoveryBody},
		{Name: "routes", Path: "internal/api/routes.go", body: routesBody},

		{Name: "prd", Path: "docs/PRD.md", Doc: true, body: prdBody},
		{Name: "tdd", Path: "docs/TDD.md", Doc: true, body: tddBody},
	}
}

const domainBody = `package domain

import (
	"errors"
{{- if validatable .Entity}}
	"fmt"
{{- end}}
{{- if needsTime .Entity}}
	"time"
{{- end}}
)

// Err{{pascal .Entity.Name}}NotFound marks lookups for a {{human .Entity.Name}} that does not exist.
var Err{{pascal .Entity.Name}}NotFound = errors.New("{{human .Entity.Name}} not found")

// Err{{pascal .Entity.Name}}Invalid wraps every {{human .Entity.Name}} validation failure.
var Err{{pascal .Entity.Name}}Invalid = errors.New("invalid {{human .Entity.Name}}")

// {{pascal .Entity.Name}} is the {{human .Entity.Name}} domain model.
type {{pascal .Entity.Name}} struct {
{{structFields .Entity}}}

// Validate checks the fields callers must supply.
func ({{recv .Entity}} *{{pascal .Entity.Name}}) Validate() error {
{{- range validatable .Entity}}
	if {{requiredCheck (recv $.Entity) .}} {
		return fmt.Errorf("%w: {{human .Name}} is required", Err{{pascal $.Entity.Name}}Invalid)
	}
{{- end}}
	return nil
}
`

const repositoryBody = `package repositories

import (
	"context"
	"database/sql"
{{- if or (hasOp .Entity "get") (hasOp .Entity "delete") (canUpdate .Entity)}}
	"errors"
{{- end}}

	"{{.Module}}/internal/domain"
)

const {{camel .Entity.Name}}Schema = "CREATE TABLE IF NOT EXISTS {{.Entity.Plural}} ({{schemaColumns .Entity}})"

// Ensure{{pascal .Entity.Name}}Schema creates the {{.Entity.Plural}} table when it is missing.
func Ensure{{pascal .Entity.Name}}Schema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, {{camel .Entity.Name}}Schema)
	return err
}

// {{pascal .Entity.Name}}Repository persists {{human .Entity.Plural}}.
type {{pascal .Entity.Name}}Repository interface {
{{- if hasOp .Entity "create"}}
	Create(ctx context.Context, {{camel .Entity.Name}} *domain.{{pascal .Entity.Name}}) error
{{- end}}
{{- if hasOp .Entity "get"}}
	Get(ctx context.Context, id string) (*domain.{{pascal .Entity.Name}}, error)
{{- end}}
{{- if hasOp .Entity "list"}}
	List(ctx context.Context) ([]*domain.{{pascal .Entity.Name}}, error)
{{- end}}
{{- if canUpdate .Entity}}
	Update(ctx context.Context, {{camel .Entity.Name}} *domain.{{pascal .Entity.Name}}) error
{{- end}}
{{- if hasOp .Entity "delete"}}
	Delete(ctx context.Context, id string) error
{{- end}}
}

type {{camel .Entity.Name}}Repository struct {
	db *sql.DB
}

// New{{pascal .Entity.Name}}Repository returns the SQL-backed {{pascal .Entity.Name}}Repository.
func New{{pascal .Entity.Name}}Repository(db *sql.DB) {{pascal .Entity.Name}}Repository {
	return &{{camel .Entity.Name}}Repository{db: db}
}
{{- if hasOp .Entity "create"}}

func (r *{{camel .Entity.Name}}Repository) Create(ctx context.Context, {{camel .Entity.Name}} *domain.{{pascal .Entity.Name}}) error {
	const query = "INSERT INTO {{.Entity.Plural}} ({{cols .Entity.Fields}}) VALUES ({{marks .Entity.Fields}})"
	_, err := r.db.ExecContext(ctx, query, {{args (camel .Entity.Name) .Entity.Fields}})
	return err
}
{{- end}}
{{- if hasOp .Entity "get"}}

func (r *{{camel .Entity.Name}}Repository) Get(ctx context.Context, id string) (*domain.{{pascal .Entity.Name}}, error) {
	const query = "SELECT {{cols .Entity.Fields}} FROM {{.Entity.Plural}} WHERE id = ?"
	var {{camel .Entity.Name}} domain.{{pascal .Entity.Name}}
	err := r.db.QueryRowContext(ctx, query, id).Scan({{scans (camel .Entity.Name) .Entity.Fields}})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Err{{pascal .Entity.Name}}NotFound
	}
	if err != nil {
		return nil, err
	}
	return &{{camel .Entity.Name}}, nil
}
{{- end}}
{{- if hasOp .Entity "list"}}

func (r *{{camel .Entity.Name}}Repository) List(ctx context.Context) ([]*domain.{{pascal .Entity.Name}}, error) {
	const query = "SELECT {{cols .Entity.Fields}} FROM {{.Entity.Plural}} ORDER BY {{if .Entity.Timestamps}}created_at{{else}}id{{end}}"
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.{{pascal .Entity.Name}}
	for rows.Next() {
		var {{camel .Entity.Name}} domain.{{pascal .Entity.Name}}
		if err := rows.Scan({{scans (camel .Entity.Name) .Entity.Fields}}); err != nil {
			return nil, err
		}
		out = append(out, &{{camel .Entity.Name}})
	}
	return out, rows.Err()
}
{{- end}}
{{- if canUpdate .Entity}}

func (r *{{camel .Entity.Name}}Repository) Update(ctx context.Context, {{camel .Entity.Name}} *domain.{{pascal .Entity.Name}}) error {
	const query = "UPDATE {{.Entity.Plural}} SET {{sets (updatable .Entity)}} WHERE id = ?"
	res, err := r.db.ExecContext(ctx, query, {{args (camel .Entity.Name) (updatable .Entity)}}, {{camel .Entity.Name}}.ID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.Err{{pascal .Entity.Name}}NotFound
	}
	return nil
}
{{- end}}
{{- if hasOp .Entity "delete"}}

func (r *{{camel .Entity.Name}}Repository) Delete(ctx context.Context, id string) error {
	const query = "DELETE FROM {{.Entity.Plural}} WHERE id = ?"
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.Err{{pascal .Entity.Name}}NotFound
	}
	return nil
}
{{- end}}
`

const serviceBody = `package services

import (
	"context"
{{- if hasOp .Entity "create"}}
	"crypto/rand"
	"encoding/hex"
{{- end}}
{{- if and .Entity.Timestamps (or (hasOp .Entity "create") (canUpdate .Entity))}}
	"time"
{{- end}}

	"{{.Module}}/internal/domain"
	"{{.Module}}/internal/repositories"
)

// {{pascal .Entity.Name}}Service applies the business rules around {{human .Entity.Plural}}.
type {{pascal .Entity.Name}}Service struct {
	repo repositories.{{pascal .Entity.Name}}Repository
}

// New{{pascal .Entity.Name}}Service returns a service backed by repo.
func New{{pascal .Entity.Name}}Service(repo repositories.{{pascal .Entity.Name}}Repository) *{{pascal .Entity.Name}}Service {
	return &{{pascal .Entity.Name}}Service{repo: repo}
}
{{- if hasOp .Entity "create"}}

func (s *{{pascal .Entity.Name}}Service) newID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// Create validates the {{human .Entity.Name}}, assigns identity and stores it.
func (s *{{pascal .Entity.Name}}Service) Create(ctx context.Context, {{camel .Entity.Name}} *domain.{{pascal .Entity.Name}}) error {
	if err := {{camel .Entity.Name}}.Validate(); err != nil {
		return err
	}
	if {{camel .Entity.Name}}.ID == "" {
		{{camel .Entity.Name}}.ID = s.newID()
	}
{{- if .Entity.Timestamps}}
	now := time.Now().UTC()
	{{camel .Entity.Name}}.CreatedAt = now
	{{camel .Entity.Name}}.UpdatedAt = now
{{- end}}
	return s.repo.Create(ctx, {{camel .Entity.Name}})
}
{{- end}}
{{- if hasOp .Entity "get"}}

// Get returns the {{human .Entity.Name}} with the given id.
func (s *{{pascal .Entity.Name}}Service) Get(ctx context.Context, id string) (*domain.{{pascal .Entity.Name}}, error) {
	return s.repo.Get(ctx, id)
}
{{- end}}
{{- if hasOp .Entity "list"}}

// List returns every stored {{human .Entity.Name}}.
func (s *{{pascal .Entity.Name}}Service) List(ctx context.Context) ([]*domain.{{pascal .Entity.Name}}, error) {
	return s.repo.List(ctx)
}
{{- end}}
{{- if canUpdate .Entity}}

// Update validates the {{human .Entity.Name}} and persists the change.
func (s *{{pascal .Entity.Name}}Service) Update(ctx context.Context, {{camel .Entity.Name}} *domain.{{pascal .Entity.Name}}) error {
	if err := {{camel .Entity.Name}}.Validate(); err != nil {
		return err
	}
{{- if .Entity.Timestamps}}
	{{camel .Entity.Name}}.UpdatedAt = time.Now().UTC()
{{- end}}
	return s.repo.Update(ctx, {{camel .Entity.Name}})
}
{{- end}}
{{- if hasOp .Entity "delete"}}

// Delete removes the {{human .Entity.Name}} with the given id.
func (s *{{pascal .Entity.Name}}Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
{{- end}}
`

const handlerBody = `package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"{{.Module}}/internal/domain"
)

// {{pascal .Entity.Name}}Service is the service surface the handler drives.
type {{pascal .Entity.Name}}Service interface {
{{- if hasOp .Entity "create"}}
	Create(ctx context.Context, {{camel .Entity.Name}} *domain.{{pascal .Entity.Name}}) error
{{- end}}
{{- if hasOp .Entity "get"}}
	Get(ctx context.Context, id string) (*domain.{{pascal .Entity.Name}}, error)
{{- end}}
{{- if hasOp .Entity "list"}}
	List(ctx context.Context) ([]*domain.{{pascal .Entity.Name}}, error)
{{- end}}
{{- if canUpdate .Entity}}
	Update(ctx context.Context, {{camel .Entity.Name}} *domain.{{pascal .Entity.Name}}) error
{{- end}}
{{- if hasOp .Entity "delete"}}
	Delete(ctx context.Context, id string) error
{{- end}}
}

// {{pascal .Entity.Name}}Handler serves the {{human .Entity.Name}} HTTP endpoints.
type {{pascal .Entity.Name}}Handler struct {
	service {{pascal .Entity.Name}}Service
}

// New{{pascal .Entity.Name}}Handler returns a handler around service.
func New{{pascal .Entity.Name}}Handler(service {{pascal .Entity.Name}}Service) *{{pascal .Entity.Name}}Handler {
	return &{{pascal .Entity.Name}}Handler{service: service}
}

func (h *{{pascal .Entity.Name}}Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func (h *{{pascal .Entity.Name}}Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.Err{{pascal .Entity.Name}}NotFound):
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.Err{{pascal .Entity.Name}}Invalid):
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
{{- if hasOp .Entity "create"}}

// Create stores the {{human .Entity.Name}} carried in the request body.
func (h *{{pascal .Entity.Name}}Handler) Create(w http.ResponseWriter, r *http.Request) {
	var {{camel .Entity.Name}} domain.{{pascal .Entity.Name}}
	if err := json.NewDecoder(r.Body).Decode(&{{camel .Entity.Name}}); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := h.service.Create(r.Context(), &{{camel .Entity.Name}}); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, {{camel .Entity.Name}})
}
{{- end}}
{{- if hasOp .Entity "get"}}

// Get serves a single {{human .Entity.Name}} by id.
func (h *{{pascal .Entity.Name}}Handler) Get(w http.ResponseWriter, r *http.Request) {
	{{camel .Entity.Name}}, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, {{camel .Entity.Name}})
}
{{- end}}
{{- if hasOp .Entity "list"}}

// List serves every {{human .Entity.Name}}.
func (h *{{pascal .Entity.Name}}Handler) List(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}
{{- end}}
{{- if canUpdate .Entity}}

// Update replaces the {{human .Entity.Name}} identified by the path id.
func (h *{{pascal .Entity.Name}}Handler) Update(w http.ResponseWriter, r *http.Request) {
	var {{camel .Entity.Name}} domain.{{pascal .Entity.Name}}
	if err := json.NewDecoder(r.Body).Decode(&{{camel .Entity.Name}}); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	{{camel .Entity.Name}}.ID = r.PathValue("id")
	if err := h.service.Update(r.Context(), &{{camel .Entity.Name}}); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, {{camel .Entity.Name}})
}
{{- end}}
{{- if hasOp .Entity "delete"}}

// Delete removes the {{human .Entity.Name}} identified by the path id.
func (h *{{pascal .Entity.Name}}Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
{{- end}}
`

const routesBody = `package api

import (
	"net/http"

	"{{.Module}}/internal/handlers"
	"{{.Module}}/internal/middlewares"
)

// Router wires every handler behind the shared middleware chain.
type Router struct {
	mux *http.ServeMux
}

// NewRouter registers all entity routes.
func NewRouter({{range $i, $e := .Entities}}{{if $i}}, {{end}}{{camel $e.Name}}Handler *handlers.{{pascal $e.Name}}Handler{{end}}) *Router {
	mux := http.NewServeMux()
{{range .Entities}}
{{- if hasOp . "create"}}
	mux.HandleFunc("POST /{{urlpath .}}", {{camel .Name}}Handler.Create)
{{- end}}
{{- if hasOp . "get"}}
	mux.HandleFunc("GET /{{urlpath .}}/{id}", {{camel .Name}}Handler.Get)
{{- end}}
{{- if hasOp . "list"}}
	mux.HandleFunc("GET /{{urlpath .}}", {{camel .Name}}Handler.List)
{{- end}}
{{- if canUpdate .}}
	mux.HandleFunc("PUT /{{urlpath .}}/{id}", {{camel .Name}}Handler.Update)
{{- end}}
{{- if hasOp . "delete"}}
	mux.HandleFunc("DELETE /{{urlpath .}}/{id}", {{camel .Name}}Handler.Delete)
{{- end}}
{{end}}
	return &Router{mux: mux}
}

// Handler returns the routed mux wrapped in recovery and request logging.
func (r *Router) Handler() http.Handler {
	return middlewares.Recovery(middlewares.Logging(r.mux))
}
`

const configBody = `package config

import "os"

// Config carries the runtime settings read from the environment.
type Config struct {
	Addr         string
	DatabasePath string
}

// Load reads configuration with defaults suited to local runs.
func Load() Config {
	return Config{
		Addr:         envOr("{{upper (snake .Project)}}_ADDR", ":8080"),
		DatabasePath: envOr("{{upper (snake .Project)}}_DB", "{{snake .Project}}.db"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
`

const mainBody = `package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	_ "modernc.org/sqlite"

	"{{.Module}}/internal/api"
	"{{.Module}}/internal/config"
	"{{.Module}}/internal/handlers"
	"{{.Module}}/internal/repositories"
	"{{.Module}}/internal/services"
)

func main() {
	cfg := config.Load()

	db, err := sql.Open("sqlite", cfg.DatabasePath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
{{- range .Entities}}

	if err := repositories.Ensure{{pascal .Name}}Schema(ctx, db); err != nil {
		log.Fatalf("create {{human .Plural}} schema: %v", err)
	}
	{{camel .Name}}Repo := repositories.New{{pascal .Name}}Repository(db)
	{{camel .Name}}Service := services.New{{pascal .Name}}Service({{camel .Name}}Repo)
	{{camel .Name}}Handler := handlers.New{{pascal .Name}}Handler({{camel .Name}}Service)
{{- end}}

	router := api.NewRouter({{range $i, $e := .Entities}}{{if $i}}, {{end}}{{camel $e.Name}}Handler{{end}})

	log.Printf("listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, router.Handler()); err != nil {
		log.Fatal(err)
	}
}
`

const gomodBody = `module {{.Module}}

go 1.24.0

require modernc.org/sqlite v1.29.1
`

const middlewareLoggingBody = `package middlewares

import (
	"log"
	"net/http"
	"time"
)

// Logging writes one line per request with method, path and duration.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}
`

const middlewareRecoveryBody = `package middlewares

import (
	"log"
	"net/http"
)

// Recovery converts panics into 500 responses.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("panic: %v", rec)
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
`
