package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"stratum/internal/descriptor"
	"stratum/internal/layout"
	"stratum/internal/naming"
	"stratum/internal/rules"
)

const rulesFileHeader = `# Architecture rules for this project. Layers, allowed dependencies and
# forbidden patterns live here; delete the file to fall back to the built-in
# defaults (shown by "stratum rules").
`

const configSample = `# stratum configuration. Every key is optional; values shown are the
# defaults. Environment variables override the file (STRATUM_LOGGER_LEVEL,
# STRATUM_VALIDATE_FAIL_ON, ...).
#
# rules: stratum.rules.yaml
# descriptor: ""
#
# logger:
#   level: info
#   format: console
#
# watch:
#   debounce: 300ms
#
# validate:
#   fail_on: error
`

func descriptorSample(project string) []byte {
	return []byte(fmt.Sprintf(`# Feature descriptor for %s. "stratum plan" shows what it generates,
# "stratum apply" writes it.
project: %s
entities:
  - name: example
    timestamps: true
    fields:
      - name: id
        type: uuid
      - name: title
        type: string
        required: true
    operations: [create, get, list]
`, project, project))
}

// initCmd seeds a project with the ruleset, config, a starter descriptor and
// the project documents. Existing files are left alone, so re-running init
// never clobbers local edits.
func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [project-name]",
		Short: "Seed a project with rules, config, descriptor and docs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := naming.Snake(filepath.Base(projectDir))
			if len(args) == 1 {
				name = naming.Snake(args[0])
			}
			if name == "" {
				name = "project"
			}

			created := 0
			seed := func(rel string, content []byte) error {
				path := filepath.Join(projectDir, rel)
				if _, err := os.Stat(path); err == nil {
					fmt.Printf("  exists   %s\n", rel)
					return nil
				}
				if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
					return err
				}
				if err := os.WriteFile(path, content, 0o644); err != nil {
					return err
				}
				fmt.Printf("  created  %s\n", rel)
				created++
				return nil
			}

			rs := rules.Default()
			rulesYAML, err := yaml.Marshal(rs)
			if err != nil {
				return err
			}
			if err := seed("stratum.rules.yaml", append([]byte(rulesFileHeader), rulesYAML...)); err != nil {
				return err
			}
			if err := seed("stratum.yaml", []byte(configSample)); err != nil {
				return err
			}

			descPath, err := initDescriptorPath(name)
			if err != nil {
				return err
			}
			descRel, err := filepath.Rel(projectDir, descPath)
			if err != nil {
				descRel = descPath
			}
			if err := seed(descRel, descriptorSample(name)); err != nil {
				return err
			}

			d, err := descriptor.Load(descPath)
			if err != nil {
				return err
			}
			planner, err := layout.NewPlanner(rs, nil, log)
			if err != nil {
				return err
			}
			docs, err := planner.RenderDocs(d)
			if err != nil {
				return err
			}
			docs["docs/RULES.md"] = []byte(rs.Markdown())

			paths := make([]string, 0, len(docs))
			for p := range docs {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			for _, p := range paths {
				if err := seed(filepath.FromSlash(p), docs[p]); err != nil {
					return err
				}
			}

			fmt.Printf("initialized %s: %d file(s) created\n", name, created)
			return nil
		},
	}
}

// initDescriptorPath resolves where the starter descriptor lives: the
// --descriptor flag, then the configured path, then a sole existing
// *.stratum.yaml, then a fresh <name>.stratum.yaml.
func initDescriptorPath(name string) (string, error) {
	if descFlag != "" {
		return absPath(descFlag), nil
	}
	if cfg.Descriptor != "" {
		return absPath(cfg.Descriptor), nil
	}
	found, err := discoverDescriptor(projectDir)
	if err != nil {
		return "", err
	}
	if found != "" {
		return found, nil
	}
	return filepath.Join(projectDir, name+".stratum.yaml"), nil
}
