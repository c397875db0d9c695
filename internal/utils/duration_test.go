package utils

import (
	"testing"
	"time"
)

func TestParseHumanDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"30m":   30 * time.Minute,
		"12h":   12 * time.Hour,
		"3d":    72 * time.Hour,
		"1w":    7 * 24 * time.Hour,
		"1d12h": 36 * time.Hour,
		" 2H ":  2 * time.Hour,
	}
	for input, want := range cases {
		got, err := ParseHumanDuration(input)
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		if got != want {
			t.Fatalf("parse %q: got %v want %v", input, got, want)
		}
	}
}

func TestParseHumanDurationRejects(t *testing.T) {
	for _, input := range []string{"", "h", "10", "5x", "1d12", "-3h"} {
		if _, err := ParseHumanDuration(input); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	cases := map[time.Duration]string{
		30 * time.Minute:               "30m",
		36 * time.Hour:                 "1d12h",
		7 * 24 * time.Hour:             "1w",
		0:                              "0m",
		8*24*time.Hour + 5*time.Minute: "1w1d5m",
	}
	for input, want := range cases {
		if got := FormatDuration(input); got != want {
			t.Fatalf("format %v: got %q want %q", input, got, want)
		}
	}
}
