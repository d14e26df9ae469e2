package core

import "time"

// Clock measures seconds since Start. Delta is the time between the two most recent updates.
type Clock struct {
	start   time.Time
	elapsed float64
	delta   float64
}

func NewClock() *Clock {
	return &Clock{}
}

// Starts the clock and resets elapsed time.
func (c *Clock) Start() {
	c.start = time.Now()
	c.elapsed = 0
	c.delta = 0
}

// Updates the clock. Has no effect on a clock that was never started.
func (c *Clock) Update() {
	if c.start.IsZero() {
		return
	}
	now := time.Since(c.start).Seconds()
	c.delta = now - c.elapsed
	c.elapsed = now
}

// Stops the clock. Does not reset elapsed time.
func (c *Clock) Stop() {
	c.start = time.Time{}
}

func (c *Clock) Elapsed() float64 {
	return c.elapsed
}

func (c *Clock) Delta() float64 {
	return c.delta
}
