package rules

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a ruleset from disk. Markdown files go through ParseMarkdown;
// everything else parses as strict YAML.
func Load(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ruleset: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return ParseMarkdown(data)
	default:
		return Parse(data)
	}
}

// Parse decodes a YAML ruleset, rejecting unknown keys, then normalizes and
// validates it.
func Parse(data []byte) (*RuleSet, error) {
	var rs RuleSet
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&rs); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoLayers
		}
		return nil, fmt.Errorf("parse ruleset: %w", err)
	}
	rs.Normalize()
	if err := rs.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ruleset: %w", err)
	}
	return &rs, nil
}
