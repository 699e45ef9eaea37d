package textutil_test

import (
	"testing"

	"reelsmith/internal/textutil"
)

func TestSanitizeToken(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"Why Wolves Rebuilt a River", "why_wolves_rebuilt_a_river"},
		{"  deep-sea   creatures!  ", "deep-sea_creatures"},
		{"C'est la vie?", "c_est_la_vie"},
		{"", "video"},
		{"???", "video"},
		{"already_safe_token", "already_safe_token"},
	}
	for _, tc := range cases {
		if got := textutil.SanitizeToken(tc.input); got != tc.want {
			t.Errorf("SanitizeToken(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}
