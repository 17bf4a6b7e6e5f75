package academic

import "time"

// SetNow replaces the clock and returns a function restoring it.
func SetNow(now time.Time) func() {
	prev := nowFunc
	nowFunc = func() time.Time { return now }
	return func() { nowFunc = prev }
}
