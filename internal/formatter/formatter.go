// Package formatter renders parsed bug reports as JSON, YAML or tables.
package formatter

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/costlens/bugreport-ops/internal/types"
)

// Formatter defines the interface for formatting parsed bug reports
type Formatter interface {
	Format(reports []types.ParsedBugReport) (string, error)
}

// Type represents the type of formatter
type Type string

const (
	// TypeJSON formats reports as JSON
	TypeJSON Type = "json"
	// TypeYAML formats reports as YAML
	TypeYAML Type = "yaml"
	// TypeTable formats reports as tables
	TypeTable Type = "table"
)

// New returns the formatter for the given type
func New(t Type) (Formatter, error) {
	switch t {
	case TypeJSON:
		return &JSON{}, nil
	case TypeYAML:
		return &YAML{}, nil
	case TypeTable:
		return &Table{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", t)
	}
}

// JSON implements JSON formatting
type JSON struct{}

// Format formats reports as JSON
func (j *JSON) Format(reports []types.ParsedBugReport) (string, error) {
	bytes, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return "", fmt.Errorf("error formatting as JSON: %w", err)
	}
	return string(bytes), nil
}

// YAML implements YAML formatting
type YAML struct{}

// Format formats reports as YAML
func (y *YAML) Format(reports []types.ParsedBugReport) (string, error) {
	bytes, err := yaml.Marshal(reports)
	if err != nil {
		return "", fmt.Errorf("error formatting as YAML: %w", err)
	}
	return string(bytes), nil
}
