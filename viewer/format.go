package viewer

import "fmt"

// FormatWatchTime renders a minute total as "<H>h <M>m". Floor division, no
// rounding; inputs are non-negative by ledger invariant.
func FormatWatchTime(mins int64) string {
	return fmt.Sprintf("%dh %dm", mins/60, mins%60)
}
