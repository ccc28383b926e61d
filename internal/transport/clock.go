// Package transport tracks where the playhead is and what the editor is
// doing with it: idle, playing, scrubbing, or recording. It owns the
// document clock, which maps wall time onto the timeline at a configurable
// rate so that slow-motion recording and normal playback share one
// mechanism.
package transport

import (
	"time"

	"scribl/internal/times"
)

// Clock converts wall time to timeline time. It keeps a snapshot pair
// (wall instant, timeline position) plus a rate factor; the current
// position is the snapshot interpolated forward at that rate. Changing the
// rate re-snapshots first, so position is continuous across rate changes.
//
// Not safe for concurrent use; the editor's command sequence serializes
// access.
type Clock struct {
	now func() time.Time

	wall    time.Time
	logical times.Time
	factor  float64
}

// NewClock returns a stopped clock at timeline zero. now is the wall time
// source; nil means time.Now. Tests inject a fake to step time manually.
func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	c := &Clock{now: now}
	c.wall = now()
	return c
}

// Now returns the current timeline position.
func (c *Clock) Now() times.Time {
	if c.factor == 0 {
		return c.logical
	}
	elapsed := times.DiffFromDuration(c.now().Sub(c.wall))
	return c.logical.Add(elapsed.Scaled(c.factor))
}

// Factor returns the clock's current rate.
func (c *Clock) Factor() float64 { return c.factor }

// SetFactor changes the clock's rate. The position at the moment of the
// call is preserved: a clock running at 1.0 that switches to 0.125 keeps
// advancing from where it was, eight times slower.
func (c *Clock) SetFactor(factor float64) {
	c.logical = c.Now()
	c.wall = c.now()
	c.factor = factor
}

// JumpTo moves the clock to a timeline position without changing its rate.
func (c *Clock) JumpTo(t times.Time) {
	c.logical = t
	c.wall = c.now()
}
