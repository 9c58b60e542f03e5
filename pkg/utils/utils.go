package utils

import (
	"fmt"
	"time"
)

// FormatRoundedUnit renders seconds in its largest whole unit: 45s, 12m, 3h.
func FormatRoundedUnit(seconds int64) string {
	if seconds < 0 {
		seconds = -seconds
	}
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	if seconds >= 3600 {
		return fmt.Sprintf("%dh", seconds/3600)
	}
	return fmt.Sprintf("%dm", seconds/60)
}

// FormatHours renders fractional hours as hours and minutes, e.g. 2h05m.
func FormatHours(hours float64) string {
	if hours < 0 {
		hours = -hours
	}
	d := time.Duration(hours * float64(time.Hour)).Round(time.Minute)
	h := int64(d / time.Hour)
	m := int64((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%dh%02dm", h, m)
}

// FormatPercent renders an optional percentage, "-" when absent.
func FormatPercent(p *int) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%d%%", *p)
}
