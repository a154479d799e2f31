package engine

import "time"

// Snapshot holds the settled result of one dataset fetch.
type Snapshot struct {
	Dataset   string
	Records   []Value
	FetchedAt time.Time
	Err       error
}

func (s Snapshot) Count() int { return len(s.Records) }

// Stale reports whether the snapshot is older than the freshness window.
func (s Snapshot) Stale(now time.Time, window time.Duration) bool {
	return s.FetchedAt.IsZero() || now.Sub(s.FetchedAt) >= window
}

// ErrorText is the message a table renders verbatim, or "".
func (s Snapshot) ErrorText() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}
