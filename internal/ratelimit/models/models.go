package models

import "time"

// Class groups requests that share a budget.
type Class string

const (
	// ClassWrite covers mutating requests. NIN initiations and uploads land
	// here, and each one may cost an oracle or blob call.
	ClassWrite Class = "write"
	ClassRead  Class = "read"
)

// Limit allows Requests per sliding Window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// Result is the outcome of one check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the whole number of seconds until the window frees a slot,
// never less than one.
func (r Result) RetryAfter(now time.Time) int {
	secs := int(r.ResetAt.Sub(now).Round(time.Second) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
