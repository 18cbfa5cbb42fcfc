package tui

import (
	"reflect"
	"strings"
	"testing"
)

func TestRenderWelcome(t *testing.T) {
	out := renderWelcome("1.2.3", "", "", 80)
	if !strings.Contains(out, "ThinkChat") {
		t.Error("welcome missing product name")
	}
	if !strings.Contains(out, "v1.2.3") {
		t.Error("welcome missing version")
	}
	if !strings.Contains(out, "/login") {
		t.Error("welcome without server should hint at /login")
	}
}

func TestRenderWelcomeConfigured(t *testing.T) {
	out := renderWelcome("1.0.0", "https://api.example.com", "gpt-4o-mini", 80)
	if !strings.Contains(out, "api.example.com") {
		t.Error("welcome missing server")
	}
	if !strings.Contains(out, "gpt-4o-mini") {
		t.Error("welcome missing model")
	}
	if strings.Contains(out, "/login") {
		t.Error("configured welcome should not show the login hint")
	}
}

func TestRenderBubbleASCIIArt(t *testing.T) {
	art := renderBubbleASCIIArt()
	if art == "" {
		t.Fatal("empty logo")
	}

	lines := strings.Split(art, "\n")
	if strings.TrimSpace(lines[0]) == "" || strings.TrimSpace(lines[len(lines)-1]) == "" {
		t.Error("logo has empty edge lines")
	}
}

func TestTrimEmptyEdgeLines(t *testing.T) {
	tests := []struct {
		in   []string
		want []string
	}{
		{[]string{"", "a", ""}, []string{"a"}},
		{[]string{"a", "", "b"}, []string{"a", "", "b"}},
		{[]string{"", "  ", ""}, []string{}},
		{[]string{}, []string{}},
	}

	for _, tt := range tests {
		got := trimEmptyEdgeLines(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("trimEmptyEdgeLines(%q) = %q, want %q", tt.in, got, tt.want)
			continue
		}
		if len(got) > 0 && !reflect.DeepEqual(got, tt.want) {
			t.Errorf("trimEmptyEdgeLines(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCountLeadingSpaces(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"abc", 0},
		{"  abc", 2},
		{"    ", 4},
	}

	for _, tt := range tests {
		if got := countLeadingSpaces(tt.in); got != tt.want {
			t.Errorf("countLeadingSpaces(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
