package descriptor

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"stratum/internal/scan"
)

// Load reads and parses a descriptor file.
func Load(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read descriptor: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML descriptor, rejecting unknown keys. Bytes run through
// the encoding detector first so descriptors saved as UTF-16 or with a BOM
// parse cleanly. The result is validated and normalized.
func Parse(data []byte) (*Descriptor, error) {
	text, _ := scan.ToUTF8(data)

	var d Descriptor
	dec := yaml.NewDecoder(strings.NewReader(text))
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("parse descriptor: %w", err)
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	d.Normalize()
	return &d, nil
}
