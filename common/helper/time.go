package helper

import (
	"time"
)

// CalcElapsedTime return the elapsed time in milliseconds (ms)
func CalcElapsedTime(start time.Time) int64 {
	elapsed := time.Since(start)
	ms := elapsed.Milliseconds()
	if ms == 0 && elapsed > 0 {
		// Ensure non-zero latency for sub-millisecond operations so reports do not show 0
		return 1
	}
	return ms
}

// CalcElapsedTimeFloat returns the elapsed time in fractional milliseconds for
// records that keep sub-millisecond precision.
func CalcElapsedTimeFloat(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

// FormatTimestamp renders t the way result documents expect call timestamps.
func FormatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339)
}
