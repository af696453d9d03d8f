package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Loader handles loading and validation of range source definitions
type Loader struct {
	sourcesDir string
}

// NewLoader creates a new range source loader
func NewLoader(sourcesDir string) *Loader {
	return &Loader{sourcesDir: sourcesDir}
}

// LoadAll loads all YAML source definitions from the sources directory,
// keyed by source name. A missing directory yields an empty map.
func (l *Loader) LoadAll() (map[string]*RangeSource, error) {
	sources := make(map[string]*RangeSource)

	if _, err := os.Stat(l.sourcesDir); os.IsNotExist(err) {
		return sources, nil
	}

	files, err := filepath.Glob(filepath.Join(l.sourcesDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YAML files: %w", err)
	}

	ymlFiles, err := filepath.Glob(filepath.Join(l.sourcesDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YML files: %w", err)
	}
	files = append(files, ymlFiles...)

	for _, file := range files {
		source, err := l.loadFile(file)
		if err != nil {
			return nil, fmt.Errorf("error loading %s: %w", file, err)
		}

		if err := l.validate(source); err != nil {
			return nil, fmt.Errorf("invalid source %s: %w", file, err)
		}

		if _, exists := sources[source.Name]; exists {
			return nil, fmt.Errorf("duplicate source name %q in %s", source.Name, file)
		}

		sources[source.Name] = source
		slog.Debug("Loaded range source", "name", source.Name, "file", file)
	}

	return sources, nil
}

// loadFile loads a single YAML source definition file
func (l *Loader) loadFile(path string) (*RangeSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var source RangeSource
	if err := yaml.Unmarshal(data, &source); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if source.Name == "" {
		base := filepath.Base(path)
		source.Name = base[:len(base)-len(filepath.Ext(base))]
	}

	return &source, nil
}

// validate validates the source definition
func (l *Loader) validate(source *RangeSource) error {
	if source.SpreadsheetID == "" {
		return fmt.Errorf("spreadsheet_id is required")
	}
	if source.Range == "" {
		return fmt.Errorf("range is required")
	}
	if source.IDColumn < 0 {
		return fmt.Errorf("id_column must be non-negative")
	}
	return nil
}
