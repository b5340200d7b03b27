// Copyright 2026 The Slotenbot Authors
// SPDX-License-Identifier: Apache-2.0

package intake

import (
	"fmt"
	"regexp"
	"strings"
)

// identifierPattern constrains field names to column-safe identifiers.
// Field names become SQLite column names in the report store, so they
// are validated here once and never interpolated from user input.
var identifierPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Field is one step of the intake conversation: the column it fills,
// the label used in report summaries, the question asked in chat, and
// an optional format check.
type Field struct {
	// Name is the column-safe identifier (e.g., "client_name").
	Name string

	// Label is the short human name used when formatting a completed
	// report (e.g., "Klant").
	Label string

	// Prompt is the question sent to the user for this step.
	Prompt string

	// Pattern is an optional regular expression the trimmed answer
	// must match, anchored on both ends. Empty means any non-empty
	// answer is accepted.
	Pattern string

	compiled *regexp.Regexp
}

// Schema is the ordered list of fields a complete report must carry.
// It is the single source of truth for both the conversation engine's
// prompts and the report store's column set. A Schema is immutable
// after construction.
type Schema struct {
	fields []Field
}

// NewSchema validates and compiles an ordered field list. Names must
// be unique lowercase identifiers; patterns must compile.
func NewSchema(fields []Field) (Schema, error) {
	if len(fields) == 0 {
		return Schema{}, fmt.Errorf("intake: schema needs at least one field")
	}

	seen := make(map[string]bool, len(fields))
	compiled := make([]Field, len(fields))
	for i, field := range fields {
		if !identifierPattern.MatchString(field.Name) {
			return Schema{}, fmt.Errorf("intake: field name %q is not a valid identifier", field.Name)
		}
		if seen[field.Name] {
			return Schema{}, fmt.Errorf("intake: duplicate field name %q", field.Name)
		}
		seen[field.Name] = true

		if field.Label == "" {
			return Schema{}, fmt.Errorf("intake: field %q has no label", field.Name)
		}
		if field.Prompt == "" {
			return Schema{}, fmt.Errorf("intake: field %q has no prompt", field.Name)
		}

		compiled[i] = field
		if field.Pattern != "" {
			expr, err := regexp.Compile("^(?:" + field.Pattern + ")$")
			if err != nil {
				return Schema{}, fmt.Errorf("intake: field %q pattern: %w", field.Name, err)
			}
			compiled[i].compiled = expr
		}
	}

	return Schema{fields: compiled}, nil
}

// DefaultSchema returns the locksmith intake fields: who, where, what
// was done, material used, and when.
func DefaultSchema() Schema {
	schema, err := NewSchema([]Field{
		{Name: "client_name", Label: "Klant", Prompt: "👤 Naam van de klant:"},
		{Name: "address", Label: "Adres", Prompt: "📍 Adres van de interventie:"},
		{Name: "description", Label: "Beschrijving", Prompt: "🔧 Beschrijving van het werk:"},
		{Name: "material", Label: "Materiaal", Prompt: "📦 Gebruikt materiaal:"},
		{Name: "date", Label: "Datum", Prompt: "📅 Datum van de interventie:"},
	})
	if err != nil {
		panic("intake: default schema invalid: " + err.Error())
	}
	return schema
}

// Len returns the number of required fields.
func (s Schema) Len() int { return len(s.fields) }

// Field returns the field at step index i. Panics if out of range.
func (s Schema) Field(i int) Field { return s.fields[i] }

// Fields returns a copy of the ordered field list.
func (s Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Names returns the ordered field names.
func (s Schema) Names() []string {
	names := make([]string, len(s.fields))
	for i, field := range s.fields {
		names[i] = field.Name
	}
	return names
}

// Validate checks an answer for the field at the given step and
// returns the normalized (trimmed) value. Fails with *ValidationError
// when the answer is empty after trimming or does not match the
// field's pattern.
func (s Schema) Validate(step int, answer string) (string, error) {
	field := s.fields[step]

	value := strings.TrimSpace(answer)
	if value == "" {
		return "", &ValidationError{Field: field.Name, Reason: "antwoord mag niet leeg zijn"}
	}
	if field.compiled != nil && !field.compiled.MatchString(value) {
		return "", &ValidationError{Field: field.Name, Reason: "antwoord heeft niet het verwachte formaat"}
	}
	return value, nil
}
