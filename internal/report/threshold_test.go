package report

import (
	"testing"

	"github.com/varalys/trello-watchman/internal/types"
)

func TestShouldFail(t *testing.T) {
	fs := []types.Finding{{Severity: types.SevMed}}
	cases := map[string]bool{
		"low":      true,
		"medium":   true,
		"":         true,
		"high":     false,
		"critical": false,
	}
	for failOn, want := range cases {
		if got := ShouldFail(fs, failOn); got != want {
			t.Errorf("ShouldFail(%q) = %v, want %v", failOn, got, want)
		}
	}
	if ShouldFail(nil, "low") {
		t.Error("no findings must never fail")
	}
}
