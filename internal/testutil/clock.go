package testutil

import "time"

// Clock hands out deterministic, increasing install timestamps for package
// fixtures.
type Clock struct {
	current time.Time
	step    time.Duration
}

// NewClock returns a clock starting at a fixed UTC time.
func NewClock() *Clock {
	return &Clock{
		current: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		step:    time.Minute,
	}
}

// Next returns the next timestamp as Unix seconds, the unit package headers
// store.
func (c *Clock) Next() uint32 {
	c.current = c.current.Add(c.step)

	return uint32(c.current.Unix())
}
