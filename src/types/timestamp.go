package types

import "time"

// Timestamp is milliseconds since the Unix epoch.
type Timestamp uint64

// Now ...
func Now() Timestamp {
	return FromTime(time.Now())
}

// FromTime ...
func FromTime(t time.Time) Timestamp {
	return Timestamp(t.UnixNano() / int64(time.Millisecond))
}

// Time converts back to a time.Time in UTC.
func (t Timestamp) Time() time.Time {
	return time.Unix(0, int64(t)*int64(time.Millisecond)).UTC()
}

// Add ...
func (t Timestamp) Add(d time.Duration) Timestamp {
	return t + Timestamp(d/time.Millisecond)
}

// String ...
func (t Timestamp) String() string {
	return t.Time().Format(time.RFC3339Nano)
}
