package ode

import "fmt"

// Counter counts derivative evaluations against an optional cap.
type Counter struct {
	count int
	max   int
}

// NewCounter returns a counter limited to max increments. A non positive
// max means no limit.
func NewCounter(max int) *Counter {
	return &Counter{max: max}
}

// Increment records one more evaluation. It fails without counting when the
// cap is already reached.
func (c *Counter) Increment() error {
	if c.max > 0 && c.count >= c.max {
		return fmt.Errorf("%w (%d)", ErrMaxEvaluations, c.max)
	}
	c.count++
	return nil
}

func (c *Counter) Count() int { return c.count }

func (c *Counter) Max() int { return c.max }

// Reset zeroes the count and installs a new cap.
func (c *Counter) Reset(max int) {
	c.count = 0
	c.max = max
}
