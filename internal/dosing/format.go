package dosing

import (
	"fmt"
	"math"
	"strconv"
)

// FormatTimeUntilNext renders a wait in hours for display. Zero and negative
// waits read "Ready now".
func FormatTimeUntilNext(h float64) string {
	if h <= 0 {
		return "Ready now"
	}

	if h < 1 {
		m := int(math.Round(h * 60))
		if m < 1 {
			m = 1
		}
		return plural(float64(m), "minute")
	}

	if h < 24 {
		return plural(math.Round(h*10)/10, "hour")
	}

	days := math.Floor(h / 24)
	rem := math.Round(math.Mod(h, 24)*10) / 10
	if rem >= 24 {
		days++
		rem = 0
	}
	if rem == 0 {
		return plural(days, "day")
	}
	return plural(days, "day") + " " + plural(rem, "hour")
}

func plural(n float64, unit string) string {
	s := strconv.FormatFloat(n, 'f', -1, 64)
	if n == 1 {
		return fmt.Sprintf("%s %s", s, unit)
	}
	return fmt.Sprintf("%s %ss", s, unit)
}
