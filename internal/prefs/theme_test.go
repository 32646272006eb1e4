package prefs

import (
	"context"
	"errors"
	"testing"
)

func TestParseTheme(t *testing.T) {
	tests := []struct {
		in      string
		want    Theme
		wantErr bool
	}{
		{"light", Light, false},
		{"dark", Dark, false},
		{"Dark", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTheme(tt.in)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Fatalf("ParseTheme(%q) = %q, %v", tt.in, got, err)
			}
			if err != nil && !errors.Is(err, ErrInvalidTheme) {
				t.Fatalf("expected ErrInvalidTheme, got %v", err)
			}
		})
	}
}

func TestToggleRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if got, _ := s.Get(ctx, Dark); got != Dark {
		t.Fatalf("expected fallback, got %q", got)
	}
	next, err := Toggle(ctx, s, Light)
	if err != nil || next != Dark {
		t.Fatalf("expected dark, got %q %v", next, err)
	}
	next, _ = Toggle(ctx, s, Light)
	if next != Light {
		t.Fatalf("expected light, got %q", next)
	}
	if err := s.Set(ctx, "blue"); err == nil {
		t.Fatal("expected invalid theme to be rejected")
	}
}
