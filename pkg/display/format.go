package display

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// Elapsed formats d as [HH:MM:SS].
func Elapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	s := int64(d / time.Second)
	return fmt.Sprintf("[%02d:%02d:%02d]", s/3600, (s/60)%60, s%60)
}

// Rate returns the throughput of current bytes over elapsed, in bytes per second.
func Rate(current int64, elapsed time.Duration) float64 {
	if elapsed <= 0 || current <= 0 {
		return 0
	}
	return float64(current) / elapsed.Seconds()
}

// ETA estimates the time left to reach total at the given rate.
// It returns -1 when no estimate is possible.
func ETA(current, total int64, rate float64) time.Duration {
	if total <= 0 || rate <= 0 {
		return -1
	}
	if current >= total {
		return 0
	}
	left := float64(total-current) / rate
	return time.Duration(left * float64(time.Second)).Round(time.Second)
}

// Counts renders "1.2 MB / 3.4 MB", or just "1.2 MB" when total is unknown.
func Counts(current, total int64) string {
	if total <= 0 {
		return humanize.Bytes(uint64(max(current, 0)))
	}
	return fmt.Sprintf("%s / %s", humanize.Bytes(uint64(max(current, 0))), humanize.Bytes(uint64(total)))
}

// Throughput renders "(400 kB/s, 4s)". The ETA part is omitted when unknown.
func Throughput(rate float64, eta time.Duration) string {
	r := humanize.Bytes(uint64(rate)) + "/s"
	if eta < 0 {
		return "(" + r + ")"
	}
	return fmt.Sprintf("(%s, %s)", r, eta)
}
