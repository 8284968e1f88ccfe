package auth

import "time"

// DateToUTC normalizes a timestamp to the canonical clock. Every expiry
// comparison in this package happens in UTC to avoid timezone skew.
func DateToUTC(t time.Time) time.Time {
	return t.UTC()
}

// IsWithinThresholdPeriod checks if the given time is within the threshold
func IsWithinThresholdPeriod(t time.Time, pattern string) (bool, error) {
	duration, err := time.ParseDuration(pattern)
	if err != nil {
		return false, err
	}

	threshold := time.Now().Add(-duration)
	if t.After(threshold) {
		return true, nil
	}

	return false, nil
}

// IsOutsideThresholdPeriod is the negation of IsWithinThresholdPeriod
func IsOutsideThresholdPeriod(t time.Time, pattern string) (bool, error) {
	valid, err := IsWithinThresholdPeriod(t, pattern)
	if err != nil {
		return false, err
	}

	return !valid, nil
}

// DaysBetween returns the absolute difference between two instants
// measured in whole days, after truncating both to the canonical clock.
func DaysBetween(a, b time.Time) int {
	diff := DateToUTC(a).Sub(DateToUTC(b))
	if diff < 0 {
		diff = -diff
	}
	return int(diff / (24 * time.Hour))
}
