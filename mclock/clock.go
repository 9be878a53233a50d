// Package mclock is the single choke point for timestamp assignment,
// matching the teacher's "one time.Now() call per batch" hot-path discipline.
package mclock

import "time"

// Timestamp is monotonic microseconds since the Unix epoch.
type Timestamp int64

// Now samples the wall clock once. The marketdata parser calls it once per
// message and reuses the value for that message's tick; the matching engine
// calls it once per Trade it builds.
func Now() Timestamp {
	return Timestamp(time.Now().UnixMicro())
}

func (t Timestamp) Time() time.Time {
	return time.UnixMicro(int64(t))
}

func (t Timestamp) String() string {
	return t.Time().UTC().Format(time.RFC3339Nano)
}
