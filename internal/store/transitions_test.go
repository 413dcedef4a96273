package store

import (
	"testing"

	"qrtrack/internal/models"
)

func TestAllowed(t *testing.T) {
	cases := []struct {
		from  models.Status
		to    models.Status
		valid bool
	}{
		{models.StatusWaiting, models.StatusNext, true},
		{models.StatusNext, models.StatusNext, true},
		{models.StatusNext, models.StatusServing, true},
		{models.StatusServing, models.StatusCompleted, true},
		{models.StatusWaiting, models.StatusCancelled, true},
		{models.StatusCompleted, models.StatusWaiting, true},
		{models.StatusCancelled, models.StatusNext, true},
		{models.Status("called"), models.StatusNext, false},
		{models.StatusWaiting, models.Status("done"), false},
	}

	for _, tt := range cases {
		if got := Allowed(tt.from, tt.to); got != tt.valid {
			t.Fatalf("Allowed(%q, %q)=%v, want %v", tt.from, tt.to, got, tt.valid)
		}
	}
}
