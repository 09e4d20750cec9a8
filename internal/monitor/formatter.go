package monitor

import "fmt"

// FormatRate renders a per-minute rate with one decimal.
func FormatRate(perMin float64) string {
	return fmt.Sprintf("%.1f ops/min", perMin)
}

// FormatLatency renders seconds, switching to milliseconds below one second.
func FormatLatency(seconds float64) string {
	if seconds < 1 {
		return fmt.Sprintf("%.1fms", seconds*1e3)
	}
	return fmt.Sprintf("%.1fs", seconds)
}

// FormatPercentage renders a ratio where 1 is 100%.
func FormatPercentage(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}

var byteUnits = []string{"KB", "MB", "GB", "TB"}

// FormatMemory renders a byte count in binary units.
func FormatMemory(bytes uint64) string {
	if bytes < 1024 {
		return fmt.Sprintf("%d B", bytes)
	}
	v := float64(bytes) / 1024
	unit := 0
	for v >= 1024 && unit < len(byteUnits)-1 {
		v /= 1024
		unit++
	}
	return fmt.Sprintf("%.1f %s", v, byteUnits[unit])
}

// FormatDuration renders whole minutes of uptime, with days and hours once
// they are non-zero.
func FormatDuration(seconds int64) string {
	days, rem := seconds/86400, seconds%86400
	hours, mins := rem/3600, rem%3600/60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, mins)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, mins)
	default:
		return fmt.Sprintf("%dm", mins)
	}
}
