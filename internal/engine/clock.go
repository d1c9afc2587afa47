package engine

// stepClock is the logical clock of one run. Executed jobs are stamped
// 1, 2, 3, ... so two runs over the same input produce identical reports.
type stepClock struct {
	now int64
}

// Tick advances the clock and returns the new time.
func (c *stepClock) Tick() int64 {
	c.now++
	return c.now
}

// Now returns the time of the last tick, 0 before the first.
func (c *stepClock) Now() int64 {
	return c.now
}
