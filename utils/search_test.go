package utils

import "testing"

func TestNormalizeSearchTerm(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Ümläut", "umlaut"},
		{"  TrimMe  ", "trimme"},
		{"café", "cafe"},
		{"Жозе", "zhoze"},
		{"plain", "plain"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := NormalizeSearchTerm(tc.in); got != tc.want {
			t.Errorf("NormalizeSearchTerm(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
