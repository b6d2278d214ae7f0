package monitor

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseClock converts a colon-separated clock ("HH:MM:SS" or "MM:SS") to
// seconds. Fields are read right to left, each weighted by a power of 60.
func ParseClock(text string) (int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, fmt.Errorf("empty clock string")
	}

	fields := strings.Split(text, ":")
	total := 0
	weight := 1
	for i := len(fields) - 1; i >= 0; i-- {
		n, err := strconv.Atoi(strings.TrimSpace(fields[i]))
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid clock field %q in %q", fields[i], text)
		}
		total += n * weight
		weight *= 60
	}
	return total, nil
}

// FormatClock renders seconds as HH:MM:SS, the format MPC-HC uses.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds/60)%60, seconds%60)
}
