package postgres

import (
	"database/sql"
	"encoding/json"
	"testing"
)

func TestNullIfEmptyJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  json.RawMessage
		want interface{}
	}{
		{name: "nil", raw: nil, want: nil},
		{name: "null literal", raw: json.RawMessage(`null`), want: nil},
		{name: "boolean", raw: json.RawMessage(`false`), want: nil},
		{name: "string", raw: json.RawMessage(`""`), want: nil},
		{name: "object", raw: json.RawMessage(`{"endpoint":"https://push.example/1"}`), want: `{"endpoint":"https://push.example/1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nullIfEmptyJSON(tt.raw); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestScanHelpers(t *testing.T) {
	if nullIfEmpty("") != nil || nullIfEmpty("+911234567890") != "+911234567890" {
		t.Fatalf("unexpected nullIfEmpty result")
	}
	if nullStringPtr(sql.NullString{}) != nil {
		t.Fatalf("expected nil for invalid NullString")
	}
	if got := nullStringPtr(sql.NullString{String: "x", Valid: true}); got == nil || *got != "x" {
		t.Fatalf("unexpected pointer %v", got)
	}
	if isValidUUID("not-a-uuid") || !isValidUUID("7c9e6679-7425-40de-944b-e07fc1f90ae7") {
		t.Fatalf("unexpected uuid validation")
	}
	if normalizeEmail("  Owner@Example.COM ") != "owner@example.com" {
		t.Fatalf("email not normalized")
	}
}
