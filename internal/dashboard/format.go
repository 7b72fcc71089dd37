package dashboard

import (
	"fmt"
	"math"
	"time"
)

// FormatDuration renders seconds using the largest non-zero unit and the
// unit below it: "1d 0h", "3h 12m", "1m 30s", "42s".
func FormatDuration(sec int64) string {
	if sec <= 0 {
		return "0s"
	}

	d := sec / 86400
	h := sec % 86400 / 3600
	m := sec % 3600 / 60
	s := sec % 60

	switch {
	case d > 0:
		return fmt.Sprintf("%dd %dh", d, h)
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

func FormatRelative(ts int64, now time.Time) string {
	diff := now.Unix() - ts
	switch {
	case diff < 60:
		return "just now"
	case diff < 3600:
		return fmt.Sprintf("%dm ago", diff/60)
	case diff < 86400:
		return fmt.Sprintf("%dh ago", diff/3600)
	default:
		return fmt.Sprintf("%dd ago", diff/86400)
	}
}

const timestampLayout = "2006-01-02 15:04:05 MST"

// FormatTimestamp renders epoch seconds in loc, or local time when loc is
// nil.
func FormatTimestamp(ts int64, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return time.Unix(ts, 0).In(loc).Format(timestampLayout)
}

func FormatPercent(ratio float64) string {
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		ratio = 0
	}
	return fmt.Sprintf("%.2f%%", ratio*100)
}
