package ocr

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var timePattern = regexp.MustCompile(`\b(\d{1,2}):(\d{2})(?:\s*([AaPp])\.?[Mm]\.?)?`)

// extractDate returns the first M/D/YY or M/D/YYYY date as YYYY-MM-DD and
// whether one was found. A malformed date falls back to now.
func extractDate(lines []string, now time.Time) (string, bool) {
	for _, line := range lines {
		m := datePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		date, err := normalizeDate(m[1], m[2], m[3])
		if err != nil {
			slog.Warn("Malformed receipt date, using current date", "date", m[0], "error", err)
			return now.Format(dateLayout), false
		}
		return date, true
	}
	return now.Format(dateLayout), false
}

// normalizeDate converts month, day and a 2 or 4 digit year to YYYY-MM-DD.
// Two digit years are taken to be in the 2000s.
func normalizeDate(month, day, year string) (string, error) {
	m, err := strconv.Atoi(month)
	if err != nil {
		return "", fmt.Errorf("parsing month: %w", err)
	}
	d, err := strconv.Atoi(day)
	if err != nil {
		return "", fmt.Errorf("parsing day: %w", err)
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return "", fmt.Errorf("parsing year: %w", err)
	}
	if len(year) == 2 {
		y += 2000
	}

	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes out-of-range values, so round-trip to validate
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return "", fmt.Errorf("invalid date %s/%s/%s", month, day, year)
	}
	return t.Format(dateLayout), nil
}

// extractTime returns the first valid H:MM time as 24h HH:MM
func extractTime(lines []string) string {
	for _, line := range lines {
		for _, m := range timePattern.FindAllStringSubmatch(line, -1) {
			if t, ok := normalizeTime(m[1], m[2], m[3]); ok {
				return t
			}
		}
	}
	return ""
}

func normalizeTime(hour, minute, meridiem string) (string, bool) {
	h, err := strconv.Atoi(hour)
	if err != nil {
		return "", false
	}
	mins, err := strconv.Atoi(minute)
	if err != nil || mins > 59 {
		return "", false
	}

	switch strings.ToLower(meridiem) {
	case "a":
		if h < 1 || h > 12 {
			return "", false
		}
		if h == 12 {
			h = 0
		}
	case "p":
		if h < 1 || h > 12 {
			return "", false
		}
		if h != 12 {
			h += 12
		}
	default:
		if h > 23 {
			return "", false
		}
	}

	return fmt.Sprintf("%02d:%02d", h, mins), true
}
