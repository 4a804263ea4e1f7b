package location

import "time"

// Attempt is one geolocation acquisition tier. Timeout and MaximumAge are
// passed to the capability; Watchdog bounds how long the caller waits
// before abandoning the attempt.
type Attempt struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaximumAge   time.Duration
	Watchdog     time.Duration
}

// Policy is the ordered attempt list a single acquisition runs through;
// the first attempt to resolve wins
type Policy struct {
	Attempts []Attempt
}

// DefaultPolicy tries a low-accuracy, long-timeout attempt first (most
// compatible, may return a cached fix), then falls back to high accuracy
// with a shorter timeout and no cache.
func DefaultPolicy() Policy {
	return Policy{
		Attempts: []Attempt{
			{HighAccuracy: false, Timeout: 15 * time.Second, MaximumAge: time.Minute, Watchdog: 20 * time.Second},
			{HighAccuracy: true, Timeout: 10 * time.Second, MaximumAge: 0, Watchdog: 15 * time.Second},
		},
	}
}
