package language_test

import (
	"testing"

	"recap/internal/language"
)

func TestToISO2(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"en", "en"},
		{"ENG", "en"},
		{"english", "en"},
		{"fre", "fr"},
		{"fra", "fr"},
		{" de ", "de"},
		{"xx", "xx"},
		{"klingon", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := language.ToISO2(tc.input); got != tc.want {
			t.Errorf("ToISO2(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestToISO3(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"en", "eng"},
		{"french", "fra"},
		{"ger", "deu"},
		{"qqq", "qqq"},
		{"x", "und"},
		{"", "und"},
	}
	for _, tc := range cases {
		if got := language.ToISO3(tc.input); got != tc.want {
			t.Errorf("ToISO3(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	if got := language.DisplayName("spa"); got != "Spanish" {
		t.Errorf("DisplayName(spa) = %q", got)
	}
	if got := language.DisplayName(""); got != "Unknown" {
		t.Errorf("DisplayName(empty) = %q", got)
	}
	if got := language.DisplayName("zz"); got != "ZZ" {
		t.Errorf("DisplayName(zz) = %q", got)
	}
}
