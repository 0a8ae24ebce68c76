package delivery

import "time"

const maxBackoff = 60 * time.Minute

// Backoff maps the attempt count reached after a transient failure to the
// delay before the row becomes eligible again: 2^attempts minutes, capped
// at one hour. Attempts below 1 are treated as 1.
func Backoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	d := time.Duration(1<<uint(attempts)) * time.Minute
	if d > maxBackoff || d <= 0 {
		return maxBackoff
	}
	return d
}
