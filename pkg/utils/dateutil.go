// Package utils provides common utility functions for newspulse.
package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/avelek/newspulse/pkg/models"
)

// DaysAgo returns the calendar date n days before today (UTC).
func DaysAgo(n int) models.Date {
	return models.Today().AddDays(-n)
}

// Raw timestamp layouts seen across the wire formats the sources return.
const (
	layoutCompact     = "20060102"
	layoutGKGStamp    = "20060102150405"
	layoutDocAPIStamp = "20060102T150405Z"
)

// ParseDayStamp normalizes a source-native timestamp string to a calendar
// date. It accepts the compact forms used by the news archive ("20240102",
// "20240102153000", "20240102T153000Z"), plain "2006-01-02", RFC3339, and
// Unix seconds.
func ParseDayStamp(s string) (models.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return models.Date{}, fmt.Errorf("empty timestamp")
	}

	if isDigits(s) {
		switch len(s) {
		case len(layoutCompact):
			if t, err := time.Parse(layoutCompact, s); err == nil {
				return models.DateOf(t), nil
			}
		case len(layoutGKGStamp):
			if t, err := time.Parse(layoutGKGStamp, s); err == nil {
				return models.DateOf(t), nil
			}
		default:
			// Unix seconds.
			sec, err := strconv.ParseInt(s, 10, 64)
			if err == nil {
				return models.DateOf(time.Unix(sec, 0).UTC()), nil
			}
		}
		return models.Date{}, fmt.Errorf("unrecognized numeric timestamp %q", s)
	}

	for _, layout := range []string{"2006-01-02", layoutDocAPIStamp, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return models.DateOf(t), nil
		}
	}
	return models.Date{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// FormatDayStamp renders a date in the compact "20060102" form.
func FormatDayStamp(d models.Date) string {
	return d.Compact()
}
