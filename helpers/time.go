package helpers

import "time"

// IntMillisecondDefault converts config integer to duration, zero means default.
func IntMillisecondDefault(x int, def time.Duration) time.Duration {
	if x == 0 {
		return def
	}
	return time.Duration(x) * time.Millisecond
}

// DurationMs truncates to whole milliseconds, negative clamps to 0.
func DurationMs(d time.Duration) int {
	if d < 0 {
		return 0
	}
	return int(d / time.Millisecond)
}
