package utils

import (
	"testing"
	"unicode/utf8"
)

func TestTruncate(t *testing.T) {
	if Truncate("hello", 10) != "hello" {
		t.Error("short string unchanged")
	}
	if Truncate("hello world", 5) != "hello..." {
		t.Errorf("got %s", Truncate("hello world", 5))
	}
	if Truncate("x", 0) != "x" {
		t.Error("maxLen 0 returns as-is")
	}
}

func TestTruncate_runeBoundaries(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"Réduction CO₂", 3, "Réd..."},
		{"日本語テキスト", 2, "日本..."},
		{"日本語", 3, "日本語"},
		{"héllo", 5, "héllo"},
	}
	for _, tt := range tests {
		got := Truncate(tt.in, tt.max)
		if got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("Truncate(%q, %d) split a rune: %q", tt.in, tt.max, got)
		}
	}
}
