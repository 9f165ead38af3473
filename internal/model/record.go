// Package model defines the core domain types for bucket classification.
package model

import (
	"fmt"
	"strings"
)

// Record is one applicant to evaluate: an opaque identifier and its field values.
type Record struct {
	Fields map[string]string
	ID     string
}

// FieldMapping selects an input field and optionally renames it to the
// question the applicant answered.
type FieldMapping struct {
	Field string `mapstructure:"field" yaml:"field"`
	Label string `mapstructure:"label" yaml:"label,omitempty"`
}

// DisplayLabel returns the label shown to the model.
func (f FieldMapping) DisplayLabel() string {
	if strings.TrimSpace(f.Label) != "" {
		return f.Label
	}
	return f.Field
}

// Value returns the record value for the field, or "" when absent.
func (r Record) Value(field string) string {
	if r.Fields == nil {
		return ""
	}
	return r.Fields[field]
}

// Validate ensures the record can be evaluated.
func (r Record) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("record ID is required")
	}
	return nil
}

// FieldNames returns the source field names of the mappings in order.
func FieldNames(mappings []FieldMapping) []string {
	names := make([]string, 0, len(mappings))
	for _, m := range mappings {
		names = append(names, m.Field)
	}
	return names
}
