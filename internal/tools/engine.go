package tools

import (
	"context"
	"encoding/json"

	"stratum/internal/engine"
)

// engineTool binds a tool's metadata to an engine-backed run function.
type engineTool struct {
	name        string
	title       string
	description string
	schema      json.RawMessage
	annotations map[string]bool
	run         func(ctx context.Context, input json.RawMessage) (interface{}, error)
}

func (t *engineTool) Name() string                 { return t.name }
func (t *engineTool) Title() string                { return t.title }
func (t *engineTool) Description() string          { return t.description }
func (t *engineTool) Schema() json.RawMessage      { return t.schema }
func (t *engineTool) Annotations() map[string]bool { return t.annotations }

func (t *engineTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	return t.run(ctx, input)
}

// decodeInput tolerates missing or null arguments; tools with no required
// fields accept an empty call.
func decodeInput(input json.RawMessage, v interface{}) error {
	if len(input) == 0 || string(input) == "null" {
		return nil
	}
	if err := json.Unmarshal(input, v); err != nil {
		return NewInvalidInputError(err)
	}
	return nil
}

type planInput struct {
	Descriptor string `json:"descriptor"`
}

type applyInput struct {
	Descriptor string `json:"descriptor"`
	Force      bool   `json:"force"`
}

// NewEngineTools returns the tool set the MCP server exposes, all bound to
// one engine and through it to one project root.
func NewEngineTools(e *engine.Engine) []Tool {
	return []Tool{
		newPlanTool(e),
		newValidateTool(e),
		newApplyTool(e),
		newStatusTool(e),
		newRulesTool(e),
	}
}

func newPlanTool(e *engine.Engine) Tool {
	return &engineTool{
		name:        "plan",
		title:       "Plan scaffolding",
		description: "Compute the directories and files the current descriptor would generate, without writing anything",
		schema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"descriptor": {
					"type": "string",
					"description": "Path to a project descriptor; defaults to the one the server was started with"
				}
			}
		}`),
		annotations: ReadOnlyAnnotations(),
		run: func(ctx context.Context, input json.RawMessage) (interface{}, error) {
			var in planInput
			if err := decodeInput(input, &in); err != nil {
				return nil, err
			}
			if in.Descriptor != "" {
				if err := e.UseDescriptor(in.Descriptor); err != nil {
					return nil, err
				}
			}
			return e.Plan(ctx)
		},
	}
}

func newValidateTool(e *engine.Engine) Tool {
	return &engineTool{
		name:        "validate",
		title:       "Validate architecture",
		description: "Check every source file in the project against the layer rules and report violations",
		schema: json.RawMessage(`{
			"type": "object",
			"properties": {}
		}`),
		annotations: ReadOnlyAnnotations(),
		run: func(ctx context.Context, input json.RawMessage) (interface{}, error) {
			return e.Validate(ctx)
		},
	}
}

func newApplyTool(e *engine.Engine) Tool {
	return &engineTool{
		name:        "apply",
		title:       "Apply scaffolding",
		description: "Write the planned files to disk; unchanged files are left alone and user-edited files are reported as conflicts unless force is set",
		schema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"descriptor": {
					"type": "string",
					"description": "Path to a project descriptor; defaults to the one the server was started with"
				},
				"force": {
					"type": "boolean",
					"description": "Overwrite files that were edited since the last apply"
				}
			}
		}`),
		annotations: SafeWriteAnnotations(),
		run: func(ctx context.Context, input json.RawMessage) (interface{}, error) {
			var in applyInput
			if err := decodeInput(input, &in); err != nil {
				return nil, err
			}
			if in.Descriptor != "" {
				if err := e.UseDescriptor(in.Descriptor); err != nil {
					return nil, err
				}
			}
			return e.Apply(ctx, in.Force)
		},
	}
}

func newStatusTool(e *engine.Engine) Tool {
	return &engineTool{
		name:        "status",
		title:       "Project status",
		description: "Report the last plan, apply and validate runs, tracked files, and files edited since the last apply",
		schema: json.RawMessage(`{
			"type": "object",
			"properties": {}
		}`),
		annotations: ReadOnlyAnnotations(),
		run: func(ctx context.Context, input json.RawMessage) (interface{}, error) {
			return e.Status(ctx)
		},
	}
}

func newRulesTool(e *engine.Engine) Tool {
	return &engineTool{
		name:        "rules",
		title:       "Show rules",
		description: "Render the active layer rules as markdown, suitable for pasting into project documentation",
		schema: json.RawMessage(`{
			"type": "object",
			"properties": {}
		}`),
		annotations: ReadOnlyAnnotations(),
		run: func(ctx context.Context, input json.RawMessage) (interface{}, error) {
			rs := e.Rules()
			return map[string]string{
				"fingerprint": rs.Fingerprint(),
				"markdown":    rs.Markdown(),
			}, nil
		},
	}
}
