package markdown

import (
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	r := New()

	tests := []struct {
		name     string
		src      string
		contains []string
		absent   []string
	}{
		{"emphasis", "Build a **rover**", []string{"<strong>rover</strong>"}, nil},
		{"list", "- motors\n- sensors", []string{"<li>motors</li>", "<li>sensors</li>"}, nil},
		{"table", "| a | b |\n|---|---|\n| 1 | 2 |", []string{"<table>"}, nil},
		{"raw html dropped", "<script>alert(1)</script>", nil, []string{"<script>"}},
		{"hard wraps", "line one\nline two", []string{"<br>"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := r.Render(tt.src)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			for _, s := range tt.contains {
				if !strings.Contains(string(out), s) {
					t.Errorf("output %q missing %q", out, s)
				}
			}
			for _, s := range tt.absent {
				if strings.Contains(string(out), s) {
					t.Errorf("output %q should not contain %q", out, s)
				}
			}
		})
	}
}

func TestMustRenderEmpty(t *testing.T) {
	if out := New().MustRender(""); out != "" {
		t.Errorf("MustRender(\"\") = %q", out)
	}
}
