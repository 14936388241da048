package taxonomy

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SupportedVersion is the only schema version Load accepts.
const SupportedVersion = 1

//go:embed disciplines.yaml
var defaultTable []byte

// File is the on-disk schema of a discipline table.
type File struct {
	Version int         `yaml:"version"`
	Groups  []GroupSpec `yaml:"groups"`
}

// Loader reads a discipline table from a YAML file, or the embedded
// default when no path is configured.
type Loader struct {
	filePath string
}

// NewLoader creates a loader. An empty path selects the embedded table.
func NewLoader(filePath string) *Loader {
	return &Loader{filePath: filePath}
}

// Load reads, validates and indexes the table.
func (l *Loader) Load() (*Taxonomy, error) {
	data := defaultTable
	if l.filePath != "" {
		raw, err := os.ReadFile(l.filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read taxonomy file: %w", err)
		}
		data = raw
	}
	return Parse(data)
}

// Parse builds a taxonomy from YAML bytes.
func Parse(data []byte) (*Taxonomy, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse taxonomy yaml: %w", err)
	}
	if f.Version != SupportedVersion {
		return nil, fmt.Errorf("unsupported taxonomy version %d (want %d)", f.Version, SupportedVersion)
	}
	if len(f.Groups) == 0 {
		return nil, fmt.Errorf("taxonomy has no groups")
	}
	return New(f.Version, f.Groups)
}

// Default returns the embedded table. It panics if the embedded file is
// invalid, which is a build defect.
func Default() *Taxonomy {
	t, err := Parse(defaultTable)
	if err != nil {
		panic(fmt.Sprintf("embedded taxonomy is invalid: %v", err))
	}
	return t
}
