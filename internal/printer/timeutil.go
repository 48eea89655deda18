package printer

import (
	"fmt"
	"time"
)

// timestamp renders an absolute time in UTC for the status view.
func timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}

// age renders a compact relative time for list rows ("42s", "3m", "5h",
// "12d"). Coarse on purpose, list rows only need enough resolution to tell
// instances apart.
func age(t, now time.Time) string {
	d := now.Sub(t)
	if d < 0 {
		d = 0
	}

	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

// uptime renders how long a running instance has been up, second resolution.
func uptime(started, now time.Time) string {
	d := now.Sub(started)
	if d < 0 {
		d = 0
	}
	return d.Round(time.Second).String()
}
