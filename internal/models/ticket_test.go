package models

import (
	"encoding/json"
	"testing"
)

func TestParseStatus(t *testing.T) {
	cases := []struct {
		raw   string
		valid bool
	}{
		{"waiting", true},
		{"next", true},
		{"serving", true},
		{"completed", true},
		{"cancelled", true},
		{"called", false},
		{"NEXT", false},
		{"", false},
	}
	for _, tt := range cases {
		status, ok := ParseStatus(tt.raw)
		if ok != tt.valid {
			t.Fatalf("ParseStatus(%q) ok=%v, want %v", tt.raw, ok, tt.valid)
		}
		if ok && string(status) != tt.raw {
			t.Fatalf("ParseStatus(%q)=%q", tt.raw, status)
		}
	}
}

func TestTicketLabel(t *testing.T) {
	if got := (Ticket{ID: "5f0c9a3e-1d2b-4c6f-9e7a-0123456abcde"}).Label(); got != "abcde" {
		t.Fatalf("expected abcde, got %q", got)
	}
	if got := (Ticket{ID: "abc"}).Label(); got != "abc" {
		t.Fatalf("expected short id unchanged, got %q", got)
	}
}

func TestHasPushSubscription(t *testing.T) {
	cases := []struct {
		raw  json.RawMessage
		want bool
	}{
		{nil, false},
		{json.RawMessage(""), false},
		{json.RawMessage("null"), false},
		{json.RawMessage("  null "), false},
		{json.RawMessage("false"), false},
		{json.RawMessage(`""`), false},
		{json.RawMessage("0"), false},
		{json.RawMessage(`"x"`), false},
		{json.RawMessage(`[{"endpoint":"https://push.example/abc"}]`), false},
		{json.RawMessage(`{"endpoint":`), false},
		{json.RawMessage(" {} "), true},
		{json.RawMessage(`{"endpoint":"https://push.example/abc","keys":{"p256dh":"k","auth":"a"}}`), true},
	}
	for _, tt := range cases {
		if got := HasPushSubscription(tt.raw); got != tt.want {
			t.Fatalf("HasPushSubscription(%q)=%v, want %v", tt.raw, got, tt.want)
		}
	}
}
