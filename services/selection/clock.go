package selection

import "sync/atomic"

// Clock issues strictly increasing version numbers for one session. It
// is safe to call from concurrent dispatch paths, duplicates are never
// produced (gaps are fine).
type Clock struct {
	v atomic.Int64
}

// NewClock returns a clock whose next version will be start+1.
func NewClock(start int64) *Clock {
	c := &Clock{}
	c.v.Store(start)
	return c
}

func (c *Clock) Next() int64 {
	return c.v.Add(1)
}

func (c *Clock) Current() int64 {
	return c.v.Load()
}

// Advance raises the clock to at least `to`. It never lowers it, so a
// corrupt-store fallback to version 0 cannot reset the session counter.
func (c *Clock) Advance(to int64) {
	for {
		cur := c.v.Load()
		if cur >= to || c.v.CompareAndSwap(cur, to) {
			return
		}
	}
}
