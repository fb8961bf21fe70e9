package jobs

import "fmt"

// FormatETA renders a service ETA in seconds: negative is "pending", zero is
// "complete", anything else is MM:SS.
func FormatETA(seconds int) string {
	switch {
	case seconds < 0:
		return "pending"
	case seconds == 0:
		return "complete"
	default:
		return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
	}
}
