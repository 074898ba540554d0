package util

import "testing"

func TestSlug(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "simple", input: "t1", want: "t1"},
		{name: "uppercase", input: "Write Docs", want: "write-docs"},
		{name: "keeps underscores and hyphens", input: "build_api-v2", want: "build_api-v2"},
		{name: "punctuation becomes hyphens", input: "Ship it!? Now", want: "ship-it---now"},
		{name: "trims hyphens", input: "  --edge--  ", want: "edge"},
		{name: "path separators", input: "../etc/passwd", want: "etc-passwd"},
		{name: "unicode letters", input: "Café Über", want: "café-über"},
		{name: "empty", input: "", want: "task"},
		{name: "only symbols", input: "!!!", want: "task"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slug(tt.input); got != tt.want {
				t.Errorf("Slug(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
