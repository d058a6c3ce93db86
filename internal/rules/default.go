package rules

// Default returns the built-in ruleset for a layered web application: a Go
// backend split into config, domain, repositories, services, handlers,
// middlewares and api layers, plus a kebab-cased component/page frontend.
func Default() *RuleSet {
	rs := &RuleSet{
		Version: 1,
		Layers: []Layer{
			{
				Name:        "config",
				Dir:         "internal/config",
				Case:        CaseSnake,
				Description: "environment loading and typed settings",
			},
			{
				Name:        "domain",
				Dir:         "internal/domain",
				Case:        CaseSnake,
				Description: "entities and business invariants",
			},
			{
				Name:         "repositories",
				Dir:          "internal/repositories",
				Case:         CaseSnake,
				Suffix:       "_repository",
				DependsOn:    []string{"domain"},
				RequireTests: true,
				Description:  "persistence behind interfaces",
			},
			{
				Name:         "services",
				Dir:          "internal/services",
				Case:         CaseSnake,
				Suffix:       "_service",
				DependsOn:    []string{"domain", "repositories"},
				RequireTests: true,
				Description:  "use cases orchestrating repositories",
			},
			{
				Name:         "handlers",
				Dir:          "internal/handlers",
				Case:         CaseSnake,
				Suffix:       "_handler",
				DependsOn:    []string{"domain", "services"},
				RequireTests: true,
				Description:  "HTTP endpoints translating requests to service calls",
			},
			{
				Name:        "middlewares",
				Dir:         "internal/middlewares",
				Case:        CaseSnake,
				DependsOn:   []string{"config", "services"},
				Description: "cross-cutting request filters",
			},
			{
				Name:        "api",
				Dir:         "internal/api",
				Case:        CaseSnake,
				DependsOn:   []string{"handlers", "middlewares"},
				Description: "route registration",
			},
			{
				Name:        "components",
				Dir:         "web/components",
				Case:        CaseKebab,
				Description: "reusable frontend components",
			},
			{
				Name:        "pages",
				Dir:         "web/pages",
				Case:        CaseKebab,
				DependsOn:   []string{"components"},
				Description: "frontend route views",
			},
		},
		Forbidden: []ForbiddenRule{
			{
				ID:           "no-env-outside-config",
				Pattern:      `\bos\.(Getenv|LookupEnv)\(`,
				Message:      "read configuration through the config layer",
				Severity:     SeverityError,
				AppliesTo:    []string{"internal/**/*.go"},
				ExemptLayers: []string{"config"},
			},
			{
				ID:           "no-sql-outside-repositories",
				Pattern:      `"database/sql"`,
				Message:      "database access belongs to the repositories layer",
				Severity:     SeverityError,
				AppliesTo:    []string{"internal/**/*.go"},
				ExemptLayers: []string{"repositories"},
			},
			{
				ID:        "no-transport-in-domain",
				Pattern:   `"net/http"`,
				Message:   "domain code must not know the transport",
				Severity:  SeverityError,
				AppliesTo: []string{"internal/domain/**/*.go"},
			},
			{
				ID:        "no-print-debug",
				Pattern:   `\bfmt\.Print(ln|f)?\(`,
				Message:   "use the injected logger",
				Severity:  SeverityWarning,
				AppliesTo: []string{"internal/**/*.go"},
			},
		},
		Tests: TestRule{
			Colocated: true,
			Suffix:    "_test",
			Severity:  SeverityWarning,
		},
		Ignore: []string{
			"vendor/**",
			"node_modules/**",
			"dist/**",
			"build/**",
		},
	}
	rs.Normalize()
	return rs
}
