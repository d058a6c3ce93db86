package templates

// Companion bodies render the colocated tests next to generated files.
// Conditions mirror the owning template exactly, otherwise a skipped
// operation would leave a test referring to a method that was never
// generated.

const repositoryTestBody = `package repositories

import (
	"context"
	"database/sql"
{{- if or (hasOp .Entity "get") (hasOp .Entity "delete") (canUpdate .Entity)}}
	"errors"
{{- end}}
	"testing"
{{- if and (hasOp .Entity "create") (fixtureNeedsTime .Entity)}}
	"time"
{{- end}}

	_ "modernc.org/sqlite"
{{- if or (hasOp .Entity "create") (hasOp .Entity "get") (hasOp .Entity "delete") (canUpdate .Entity)}}

	"{{.Module}}/internal/domain"
{{- end}}
)

func new{{pascal .Entity.Name}}TestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := Ensure{{pascal .Entity.Name}}Schema(context.Background(), db); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}
{{- if hasOp .Entity "create"}}

func sample{{pascal .Entity.Name}}() *domain.{{pascal .Entity.Name}} {
	return &domain.{{pascal .Entity.Name}}{
{{fixtureFields .Entity true}}	}
}
{{- end}}
{{- if and (hasOp .Entity "create") (not (hasOp .Entity "get"))}}

func Test{{pascal .Entity.Name}}RepositoryCreate(t *testing.T) {
	db := new{{pascal .Entity.Name}}TestDB(t)
	repo := New{{pascal .Entity.Name}}Repository(db)

	if err := repo.Create(context.Background(), sample{{pascal .Entity.Name}}()); err != nil {
		t.Fatalf("create: %v", err)
	}
}
{{- end}}
{{- if and (hasOp .Entity "create") (hasOp .Entity "get")}}

func Test{{pascal .Entity.Name}}RepositoryCreateAndGet(t *testing.T) {
	db := new{{pascal .Entity.Name}}TestDB(t)
	repo := New{{pascal .Entity.Name}}Repository(db)
	ctx := context.Background()

	{{camel .Entity.Name}} := sample{{pascal .Entity.Name}}()
	if err := repo.Create(ctx, {{camel .Entity.Name}}); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.Get(ctx, {{camel .Entity.Name}}.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != {{camel .Entity.Name}}.ID {
		t.Fatalf("got id %q, want %q", got.ID, {{camel .Entity.Name}}.ID)
	}
}
{{- end}}
{{- if hasOp .Entity "get"}}

func Test{{pascal .Entity.Name}}RepositoryGetMissing(t *testing.T) {
	db := new{{pascal .Entity.Name}}TestDB(t)
	repo := New{{pascal .Entity.Name}}Repository(db)

	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, domain.Err{{pascal .Entity.Name}}NotFound) {
		t.Fatalf("got %v, want domain.Err{{pascal .Entity.Name}}NotFound", err)
	}
}
{{- end}}
{{- if and (hasOp .Entity "create") (hasOp .Entity "list")}}

func Test{{pascal .Entity.Name}}RepositoryList(t *testing.T) {
	db := new{{pascal .Entity.Name}}TestDB(t)
	repo := New{{pascal .Entity.Name}}Repository(db)
	ctx := context.Background()

	if err := repo.Create(ctx, sample{{pascal .Entity.Name}}()); err != nil {
		t.Fatalf("create: %v", err)
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("got %d rows, want 1", len(all))
	}
}
{{- end}}
{{- if and (hasOp .Entity "list") (not (hasOp .Entity "create"))}}

func Test{{pascal .Entity.Name}}RepositoryListEmpty(t *testing.T) {
	db := new{{pascal .Entity.Name}}TestDB(t)
	repo := New{{pascal .Entity.Name}}Repository(db)

	all, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("got %d rows, want 0", len(all))
	}
}
{{- end}}
{{- if and (hasOp .Entity "create") (canUpdate .Entity)}}

func Test{{pascal .Entity.Name}}RepositoryUpdate(t *testing.T) {
	db := new{{pascal .Entity.Name}}TestDB(t)
	repo := New{{pascal .Entity.Name}}Repository(db)
	ctx := context.Background()

	{{camel .Entity.Name}} := sample{{pascal .Entity.Name}}()
	if err := repo.Create(ctx, {{camel .Entity.Name}}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Update(ctx, {{camel .Entity.Name}}); err != nil {
		t.Fatalf("update: %v", err)
	}
}
{{- end}}
{{- if canUpdate .Entity}}

func Test{{pascal .Entity.Name}}RepositoryUpdateMissing(t *testing.T) {
	db := new{{pascal .Entity.Name}}TestDB(t)
	repo := New{{pascal .Entity.Name}}Repository(db)

	err := repo.Update(context.Background(), &domain.{{pascal .Entity.Name}}{ID: "missing"})
	if !errors.Is(err, domain.Err{{pascal .Entity.Name}}NotFound) {
		t.Fatalf("got %v, want domain.Err{{pascal .Entity.Name}}NotFound", err)
	}
}
{{- end}}
{{- if and (hasOp .Entity "create") (hasOp .Entity "delete")}}

func Test{{pascal .Entity.Name}}RepositoryDelete(t *testing.T) {
	db := new{{pascal .Entity.Name}}TestDB(t)
	repo := New{{pascal .Entity.Name}}Repository(db)
	ctx := context.Background()

	{{camel .Entity.Name}} := sample{{pascal .Entity.Name}}()
	if err := repo.Create(ctx, {{camel .Entity.Name}}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Delete(ctx, {{camel .Entity.Name}}.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
}
{{- end}}
{{- if hasOp .Entity "delete"}}

func Test{{pascal .Entity.Name}}RepositoryDeleteMissing(t *testing.T) {
	db := new{{pascal .Entity.Name}}TestDB(t)
	repo := New{{pascal .Entity.Name}}Repository(db)

	err := repo.Delete(context.Background(), "missing")
	if !errors.Is(err, domain.Err{{pascal .Entity.Name}}NotFound) {
		t.Fatalf("got %v, want domain.Err{{pascal .Entity.Name}}NotFound", err)
	}
}
{{- end}}
`

const serviceTestBody = `package services

import (
	"context"
{{- if or (hasOp .Entity "get") (hasOp .Entity "delete") (canUpdate .Entity)}}
	"errors"
{{- end}}
	"testing"
{{- if and (or (hasOp .Entity "create") (canUpdate .Entity)) (fixtureNeedsTime .Entity)}}
	"time"
{{- end}}

	"{{.Module}}/internal/domain"
)

type fake{{pascal .Entity.Name}}Repository struct {
	rows map[string]*domain.{{pascal .Entity.Name}}
}

func newFake{{pascal .Entity.Name}}Repository() *fake{{pascal .Entity.Name}}Repository {
	return &fake{{pascal .Entity.Name}}Repository{rows: make(map[string]*domain.{{pascal .Entity.Name}})}
}
{{- if hasOp .Entity "create"}}

func (f *fake{{pascal .Entity.Name}}Repository) Create(ctx context.Context, {{camel .Entity.Name}} *domain.{{pascal .Entity.Name}}) error {
	f.rows[{{camel .Entity.Name}}.ID] = {{camel .Entity.Name}}
	return nil
}
{{- end}}
{{- if hasOp .Entity "get"}}

func (f *fake{{pascal .Entity.Name}}Repository) Get(ctx context.Context, id string) (*domain.{{pascal .Entity.Name}}, error) {
	{{camel .Entity.Name}}, ok := f.rows[id]
	if !ok {
		return nil, domain.Err{{pascal .Entity.Name}}NotFound
	}
	return {{camel .Entity.Name}}, nil
}
{{- end}}
{{- if hasOp .Entity "list"}}

func (f *fake{{pascal .Entity.Name}}Repository) List(ctx context.Context) ([]*domain.{{pascal .Entity.Name}}, error) {
	out := make([]*domain.{{pascal .Entity.Name}}, 0, len(f.rows))
	for _, row := range f.rows {
		out = append(out, row)
	}
	return out, nil
}
{{- end}}
{{- if canUpdate .Entity}}

func (f *fake{{pascal .Entity.Name}}Repository) Update(ctx context.Context, {{camel .Entity.Name}} *domain.{{pascal .Entity.Name}}) error {
	if _, ok := f.rows[{{camel .Entity.Name}}.ID]; !ok {
		return domain.Err{{pascal .Entity.Name}}NotFound
	}
	f.rows[{{camel .Entity.Name}}.ID] = {{camel .Entity.Name}}
	return nil
}
{{- end}}
{{- if hasOp .Entity "delete"}}

func (f *fake{{pascal .Entity.Name}}Repository) Delete(ctx context.Context, id string) error {
	if _, ok := f.rows[id]; !ok {
		return domain.Err{{pascal .Entity.Name}}NotFound
	}
	delete(f.rows, id)
	return nil
}
{{- end}}
{{- if hasOp .Entity "create"}}

func Test{{pascal .Entity.Name}}ServiceCreate(t *testing.T) {
	repo := newFake{{pascal .Entity.Name}}Repository()
	service := New{{pascal .Entity.Name}}Service(repo)

{{- if formFields .Entity}}
	{{camel .Entity.Name}} := &domain.{{pascal .Entity.Name}}{
{{fixtureFields .Entity false}}	}
{{- else}}
	{{camel .Entity.Name}} := &domain.{{pascal .Entity.Name}}{}
{{- end}}
	if err := service.Create(context.Background(), {{camel .Entity.Name}}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if {{camel .Entity.Name}}.ID == "" {
		t.Fatal("expected a generated id")
	}
{{- if .Entity.Timestamps}}
	if {{camel .Entity.Name}}.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}
{{- end}}
	if len(repo.rows) != 1 {
		t.Fatalf("stored %d rows, want 1", len(repo.rows))
	}
}
{{- end}}
{{- if and (hasOp .Entity "create") (validatable .Entity)}}

func Test{{pascal .Entity.Name}}ServiceCreateInvalid(t *testing.T) {
	service := New{{pascal .Entity.Name}}Service(newFake{{pascal .Entity.Name}}Repository())

	if err := service.Create(context.Background(), &domain.{{pascal .Entity.Name}}{}); err == nil {
		t.Fatal("expected a validation error")
	}
}
{{- end}}
{{- if hasOp .Entity "get"}}

func Test{{pascal .Entity.Name}}ServiceGetMissing(t *testing.T) {
	service := New{{pascal .Entity.Name}}Service(newFake{{pascal .Entity.Name}}Repository())

	_, err := service.Get(context.Background(), "missing")
	if !errors.Is(err, domain.Err{{pascal .Entity.Name}}NotFound) {
		t.Fatalf("got %v, want domain.Err{{pascal .Entity.Name}}NotFound", err)
	}
}
{{- end}}
{{- if hasOp .Entity "list"}}

func Test{{pascal .Entity.Name}}ServiceList(t *testing.T) {
	repo := newFake{{pascal .Entity.Name}}Repository()
	repo.rows["a"] = &domain.{{pascal .Entity.Name}}{ID: "a"}
	service := New{{pascal .Entity.Name}}Service(repo)

	all, err := service.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("got %d rows, want 1", len(all))
	}
}
{{- end}}
{{- if canUpdate .Entity}}

func Test{{pascal .Entity.Name}}ServiceUpdateMissing(t *testing.T) {
	service := New{{pascal .Entity.Name}}Service(newFake{{pascal .Entity.Name}}Repository())

	{{camel .Entity.Name}} := &domain.{{pascal .Entity.Name}}{
{{fixtureFields .Entity true}}	}
	err := service.Update(context.Background(), {{camel .Entity.Name}})
	if !errors.Is(err, domain.Err{{pascal .Entity.Name}}NotFound) {
		t.Fatalf("got %v, want domain.Err{{pascal .Entity.Name}}NotFound", err)
	}
}
{{- end}}
{{- if hasOp .Entity "delete"}}

func Test{{pascal .Entity.Name}}ServiceDelete(t *testing.T) {
	repo := newFake{{pascal .Entity.Name}}Repository()
	repo.rows["a"] = &domain.{{pascal .Entity.Name}}{ID: "a"}
	service := New{{pascal .Entity.Name}}Service(repo)

	if err := service.Delete(context.Background(), "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(repo.rows) != 0 {
		t.Fatalf("stored %d rows, want 0", len(repo.rows))
	}
}
{{- end}}
`

const handlerTestBody = `package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
{{- if or (hasOp .Entity "create") (canUpdate .Entity)}}
	"strings"
{{- end}}
	"testing"

	"{{.Module}}/internal/domain"
)

type stub{{pascal .Entity.Name}}Service struct{}
{{- if hasOp .Entity "create"}}

func (s *stub{{pascal .Entity.Name}}Service) Create(ctx context.Context, {{camel .Entity.Name}} *domain.{{pascal .Entity.Name}}) error {
	{{camel .Entity.Name}}.ID = "stub-id"
	return nil
}
{{- end}}
{{- if hasOp .Entity "get"}}

func (s *stub{{pascal .Entity.Name}}Service) Get(ctx context.Context, id string) (*domain.{{pascal .Entity.Name}}, error) {
	if id == "missing" {
		return nil, domain.Err{{pascal .Entity.Name}}NotFound
	}
	return &domain.{{pascal .Entity.Name}}{ID: id}, nil
}
{{- end}}
{{- if hasOp .Entity "list"}}

func (s *stub{{pascal .Entity.Name}}Service) List(ctx context.Context) ([]*domain.{{pascal .Entity.Name}}, error) {
	return nil, nil
}
{{- end}}
{{- if canUpdate .Entity}}

func (s *stub{{pascal .Entity.Name}}Service) Update(ctx context.Context, {{camel .Entity.Name}} *domain.{{pascal .Entity.Name}}) error {
	return nil
}
{{- end}}
{{- if hasOp .Entity "delete"}}

func (s *stub{{pascal .Entity.Name}}Service) Delete(ctx context.Context, id string) error {
	return nil
}
{{- end}}
{{- if hasOp .Entity "create"}}

func Test{{pascal .Entity.Name}}HandlerCreate(t *testing.T) {
	handler := New{{pascal .Entity.Name}}Handler(&stub{{pascal .Entity.Name}}Service{})

	req := httptest.NewRequest(http.MethodPost, "/{{urlpath .Entity}}", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
}

func Test{{pascal .Entity.Name}}HandlerCreateBadBody(t *testing.T) {
	handler := New{{pascal .Entity.Name}}Handler(&stub{{pascal .Entity.Name}}Service{})

	req := httptest.NewRequest(http.MethodPost, "/{{urlpath .Entity}}", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
{{- end}}
{{- if hasOp .Entity "get"}}

func Test{{pascal .Entity.Name}}HandlerGet(t *testing.T) {
	handler := New{{pascal .Entity.Name}}Handler(&stub{{pascal .Entity.Name}}Service{})

	req := httptest.NewRequest(http.MethodGet, "/{{urlpath .Entity}}/abc", nil)
	req.SetPathValue("id", "abc")
	rec := httptest.NewRecorder()
	handler.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func Test{{pascal .Entity.Name}}HandlerGetMissing(t *testing.T) {
	handler := New{{pascal .Entity.Name}}Handler(&stub{{pascal .Entity.Name}}Service{})

	req := httptest.NewRequest(http.MethodGet, "/{{urlpath .Entity}}/missing", nil)
	req.SetPathValue("id", "missing")
	rec := httptest.NewRecorder()
	handler.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
{{- end}}
{{- if hasOp .Entity "list"}}

func Test{{pascal .Entity.Name}}HandlerList(t *testing.T) {
	handler := New{{pascal .Entity.Name}}Handler(&stub{{pascal .Entity.Name}}Service{})

	req := httptest.NewRequest(http.MethodGet, "/{{urlpath .Entity}}", nil)
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}
{{- end}}
{{- if canUpdate .Entity}}

func Test{{pascal .Entity.Name}}HandlerUpdate(t *testing.T) {
	handler := New{{pascal .Entity.Name}}Handler(&stub{{pascal .Entity.Name}}Service{})

	req := httptest.NewRequest(http.MethodPut, "/{{urlpath .Entity}}/abc", strings.NewReader("{}"))
	req.SetPathValue("id", "abc")
	rec := httptest.NewRecorder()
	handler.Update(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}
{{- end}}
{{- if hasOp .Entity "delete"}}

func Test{{pascal .Entity.Name}}HandlerDelete(t *testing.T) {
	handler := New{{pascal .Entity.Name}}Handler(&stub{{pascal .Entity.Name}}Service{})

	req := httptest.NewRequest(http.MethodDelete, "/{{urlpath .Entity}}/abc", nil)
	req.SetPathValue("id", "abc")
	rec := httptest.NewRecorder()
	handler.Delete(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
}
{{- end}}
`
