package metadata

import (
	"strings"
	"testing"
)

func newValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	return v
}

func TestValidateAcceptsWellFormedPayload(t *testing.T) {
	v := newValidator(t)
	payload := `{
		"name": "Widget Mk II",
		"description": "Second revision",
		"media_uri": "https://cdn.example.com/widget.png",
		"attributes": {"weight": 2.5, "rare": true, "finish": "matte"}
	}`
	if err := v.Validate([]byte(payload)); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateAllowsEmptyPayload(t *testing.T) {
	v := newValidator(t)
	for _, payload := range [][]byte{nil, {}, []byte("   \n")} {
		if err := v.Validate(payload); err != nil {
			t.Fatalf("empty payload rejected: %v", err)
		}
	}
}

func TestValidateRejectsMalformedJSON(t *testing.T) {
	v := newValidator(t)
	err := v.Validate([]byte(`{"name": `))
	if err == nil || !strings.Contains(err.Error(), "not valid JSON") {
		t.Fatalf("expected JSON error, got %v", err)
	}
}

func TestValidateEnforcesSchema(t *testing.T) {
	v := newValidator(t)
	cases := []struct {
		label   string
		payload string
	}{
		{"missing name", `{"description": "no name"}`},
		{"empty name", `{"name": ""}`},
		{"unknown field", `{"name": "x", "color": "red"}`},
		{"nested attribute", `{"name": "x", "attributes": {"nested": {"a": 1}}}`},
		{"non-object", `["not", "an", "object"]`},
	}
	for _, tc := range cases {
		if err := v.Validate([]byte(tc.payload)); err == nil {
			t.Fatalf("%s: expected schema rejection", tc.label)
		}
	}
}

func TestNewValidatorFromSchema(t *testing.T) {
	custom := `{"type": "object", "required": ["sku"]}`
	v, err := NewValidatorFromSchema(custom)
	if err != nil {
		t.Fatalf("NewValidatorFromSchema: %v", err)
	}
	if err := v.Validate([]byte(`{"sku": "A-1"}`)); err != nil {
		t.Fatalf("custom schema rejected valid doc: %v", err)
	}
	if err := v.Validate([]byte(`{}`)); err == nil {
		t.Fatalf("custom schema accepted doc missing sku")
	}

	if _, err := NewValidatorFromSchema(`{"type": 42}`); err == nil {
		t.Fatalf("expected compile error for bad schema")
	}
}
