package templates

const prdBody = `# {{.Project}} Product Requirements

## Overview

{{.Project}} manages {{range $i, $e := .Entities}}{{if $i}}, {{end}}{{human $e.Plural}}{{end}} through a JSON HTTP API
with a small web frontend. Every entity is backed by its own SQLite table.

## Entities
{{range .Entities}}
### {{pascal .Name}}

| Field | Type | Required | Unique |
| ----- | ---- | -------- | ------ |
{{- range .Fields}}
| {{.Name}} | {{.Type}} | {{if .Required}}yes{{else}}no{{end}} | {{if .Unique}}yes{{else}}no{{end}} |
{{- end}}

Operations: {{range $i, $op := .Operations}}{{if $i}}, {{end}}{{$op}}{{end}}.
{{end}}
## Out of Scope

- Authentication and authorization
- Pagination and filtering
- Schema migrations beyond initial table creation
`

const tddBody = `# {{.Project}} Technical Design

## Architecture

The backend is layered. Requests enter through handlers, business rules live
in services and persistence sits behind repositories. Dependencies point
strictly inward: handlers use services, services use repositories, and every
layer may use the domain models.

## Layout

    cmd/{{snake .Project}}/    entry point and wiring
    internal/config/        environment configuration
    internal/domain/        models and validation
    internal/repositories/  SQL persistence, one file per entity
    internal/services/      business logic, one file per entity
    internal/handlers/      HTTP endpoints, one file per entity
    internal/middlewares/   request logging and panic recovery
    internal/api/           route registration
    web/components/         form components
    web/pages/              page views

## Storage

SQLite through modernc.org/sqlite. Tables are created at startup when
missing.
{{range .Entities}}
- {{.Plural}}: {{cols .Fields}}
{{- end}}

## API
{{range .Entities}}
{{- if hasOp . "create"}}
- POST /{{urlpath .}}
{{- end}}
{{- if hasOp . "get"}}
- GET /{{urlpath .}}/{id}
{{- end}}
{{- if hasOp . "list"}}
- GET /{{urlpath .}}
{{- end}}
{{- if canUpdate .}}
- PUT /{{urlpath .}}/{id}
{{- end}}
{{- if hasOp . "delete"}}
- DELETE /{{urlpath .}}/{id}
{{- end}}
{{- end}}

Route patterns rely on Go 1.22 method matching in net/http.

## Testing

Repository tests run against in-memory SQLite. Service tests use map-backed
fakes. Handler tests drive httptest recorders against stub services.
`
