// Copyright 2026 The Slotenbot Authors
// SPDX-License-Identifier: Apache-2.0

package intake_test

import (
	"errors"
	"testing"

	"github.com/slotenwacht/slotenbot/intake"
)

func TestNewSchemaRejectsBadNames(t *testing.T) {
	tests := []string{"", "Client", "client name", "1field", "client-name", "DROP TABLE"}
	for _, name := range tests {
		_, err := intake.NewSchema([]intake.Field{
			{Name: name, Label: "X", Prompt: "X?"},
		})
		if err == nil {
			t.Errorf("NewSchema accepted invalid name %q", name)
		}
	}
}

func TestNewSchemaRejectsDuplicates(t *testing.T) {
	_, err := intake.NewSchema([]intake.Field{
		{Name: "address", Label: "Adres", Prompt: "Adres?"},
		{Name: "address", Label: "Adres 2", Prompt: "Nog een adres?"},
	})
	if err == nil {
		t.Fatal("NewSchema accepted duplicate field names")
	}
}

func TestNewSchemaRejectsEmpty(t *testing.T) {
	if _, err := intake.NewSchema(nil); err == nil {
		t.Fatal("NewSchema accepted an empty field list")
	}
}

func TestNewSchemaRejectsBadPattern(t *testing.T) {
	_, err := intake.NewSchema([]intake.Field{
		{Name: "date", Label: "Datum", Prompt: "Datum?", Pattern: "(["},
	})
	if err == nil {
		t.Fatal("NewSchema accepted an invalid pattern")
	}
}

func TestValidateTrimsAnswers(t *testing.T) {
	schema := testSchema(t)

	value, err := schema.Validate(0, "  Dupont  ")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if value != "Dupont" {
		t.Errorf("value = %q, want %q", value, "Dupont")
	}
}

func TestValidateRejectsWhitespaceOnly(t *testing.T) {
	schema := testSchema(t)

	for _, answer := range []string{"", "   ", "\t\n"} {
		_, err := schema.Validate(0, answer)
		var validationErr *intake.ValidationError
		if !errors.As(err, &validationErr) {
			t.Fatalf("Validate(%q) error = %v, want *ValidationError", answer, err)
		}
		if validationErr.Field != "client_name" {
			t.Errorf("Field = %q, want client_name", validationErr.Field)
		}
	}
}

func TestValidatePattern(t *testing.T) {
	schema, err := intake.NewSchema([]intake.Field{
		{Name: "date", Label: "Datum", Prompt: "Datum?", Pattern: `\d{2}-\d{2}-\d{4}`},
	})
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}

	if _, err := schema.Validate(0, "03-09-2026"); err != nil {
		t.Errorf("valid date rejected: %v", err)
	}
	if _, err := schema.Validate(0, "gisteren"); err == nil {
		t.Error("non-matching answer accepted")
	}
	// Anchoring: a match embedded in extra text must not pass.
	if _, err := schema.Validate(0, "op 03-09-2026 ergens"); err == nil {
		t.Error("embedded match accepted; pattern should be anchored")
	}
}

func TestDefaultSchemaOrder(t *testing.T) {
	schema := intake.DefaultSchema()
	want := []string{"client_name", "address", "description", "material", "date"}
	got := schema.Names()
	if len(got) != len(want) {
		t.Fatalf("len(fields) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("field %d = %q, want %q", i, got[i], want[i])
		}
	}
}

// testSchema returns the three-field schema used across the package
// tests.
func testSchema(t *testing.T) intake.Schema {
	t.Helper()
	schema, err := intake.NewSchema([]intake.Field{
		{Name: "client_name", Label: "Klant", Prompt: "👤 Naam van de klant:"},
		{Name: "address", Label: "Adres", Prompt: "📍 Adres van de interventie:"},
		{Name: "outcome", Label: "Resultaat", Prompt: "🔧 Resultaat van de interventie:"},
	})
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	return schema
}
