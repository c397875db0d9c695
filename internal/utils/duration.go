package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

var unitDurations = map[byte]time.Duration{
	'm': time.Minute,
	'h': time.Hour,
	'd': 24 * time.Hour,
	'w': 7 * 24 * time.Hour,
}

// ParseHumanDuration converts strings like "30m", "12h", "3d" or compound
// forms like "1d12h" into a duration. Units are minutes, hours, days and
// weeks.
func ParseHumanDuration(input string) (time.Duration, error) {
	trimmed := strings.ToLower(strings.TrimSpace(input))
	if trimmed == "" {
		return 0, fmt.Errorf("empty duration")
	}

	var total time.Duration
	i := 0
	for i < len(trimmed) {
		start := i
		for i < len(trimmed) && unicode.IsDigit(rune(trimmed[i])) {
			i++
		}
		if start == i {
			return 0, fmt.Errorf("invalid duration %q", input)
		}
		value, err := strconv.ParseInt(trimmed[start:i], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", input)
		}
		if i >= len(trimmed) {
			return 0, fmt.Errorf("duration %q is missing a unit", input)
		}
		unit, ok := unitDurations[trimmed[i]]
		if !ok {
			return 0, fmt.Errorf("unknown duration unit %q", string(trimmed[i]))
		}
		i++
		total += time.Duration(value) * unit
	}
	if total <= 0 {
		return 0, fmt.Errorf("duration %q must be positive", input)
	}
	return total, nil
}

// FormatDuration renders a duration in the same human form accepted by
// ParseHumanDuration, largest units first.
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "0m"
	}
	var b strings.Builder
	for _, part := range []struct {
		unit time.Duration
		tag  string
	}{
		{7 * 24 * time.Hour, "w"},
		{24 * time.Hour, "d"},
		{time.Hour, "h"},
		{time.Minute, "m"},
	} {
		if d >= part.unit {
			b.WriteString(strconv.FormatInt(int64(d/part.unit), 10))
			b.WriteString(part.tag)
			d %= part.unit
		}
	}
	if b.Len() == 0 {
		return "0m"
	}
	return b.String()
}
