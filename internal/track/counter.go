package track

import "time"

// FixCounter counts fixes and estimates how many were lost. Fixes are
// bucketed by wall-clock second; each completed second that delivered fewer
// than rateHz fixes adds the shortfall to the lost count.
//
// The first second of the stream is a warm-up and is never scored, since
// logging can start at any sub-second offset. The last second is never
// scored either because nothing closes it. A second with no fixes at all is
// never seen and so never scored.
type FixCounter struct {
	rateHz int

	total     int
	lost      int
	perSecond int

	started     bool
	firstSecond time.Time
	prevSecond  time.Time
}

// NewFixCounter returns a counter expecting rateHz fixes per second.
func NewFixCounter(rateHz int) *FixCounter {
	return &FixCounter{rateHz: rateHz}
}

// Update accounts for one fix.
func (c *FixCounter) Update(fix Fix) {
	second := fix.Time.Truncate(time.Second)
	c.total++

	if !c.started {
		c.started = true
		c.firstSecond = second
		c.prevSecond = second
		return
	}

	if second.Equal(c.prevSecond) {
		c.perSecond++
		return
	}

	if !c.prevSecond.Equal(c.firstSecond) {
		c.lost += max(0, c.rateHz-c.perSecond)
	}
	c.prevSecond = second
	c.perSecond = 1
}

// Total returns the number of fixes seen.
func (c *FixCounter) Total() int { return c.total }

// Lost returns the estimated number of missing fixes.
func (c *FixCounter) Lost() int { return c.lost }
