package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scribl/internal/times"
)

// fakeClock is a manually stepped wall time source.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) now() time.Time { return f.t }

func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func TestClockStoppedHoldsPosition(t *testing.T) {
	fc := newFakeClock()
	c := NewClock(fc.now)

	assert.Equal(t, times.Zero, c.Now())
	fc.advance(time.Hour)
	assert.Equal(t, times.Zero, c.Now())
}

func TestClockRuns(t *testing.T) {
	fc := newFakeClock()
	c := NewClock(fc.now)

	c.SetFactor(1)
	fc.advance(2 * time.Second)
	assert.Equal(t, times.FromSeconds(2), c.Now())
}

func TestClockRateChangeIsContinuous(t *testing.T) {
	fc := newFakeClock()
	c := NewClock(fc.now)

	c.SetFactor(1)
	fc.advance(time.Second)
	c.SetFactor(0.125)
	fc.advance(8 * time.Second)

	// One second at full rate, then eight seconds at one eighth.
	assert.Equal(t, times.FromSeconds(2), c.Now())
}

func TestClockJumpKeepsRate(t *testing.T) {
	fc := newFakeClock()
	c := NewClock(fc.now)

	c.SetFactor(1)
	c.JumpTo(times.FromSeconds(10))
	fc.advance(time.Second)
	assert.Equal(t, times.FromSeconds(11), c.Now())
}

func TestTransportExclusivity(t *testing.T) {
	fc := newFakeClock()
	tr := New(fc.now)

	require.NoError(t, tr.BeginPlay())
	assert.Equal(t, Playing, tr.Action().Kind)

	// Every other Begin is rejected without disturbing playback.
	assert.ErrorIs(t, tr.BeginPlay(), ErrActionConflict)
	assert.ErrorIs(t, tr.BeginScrub(), ErrActionConflict)
	assert.ErrorIs(t, tr.BeginRecord(1, 1), ErrActionConflict)
	assert.ErrorIs(t, tr.BeginDenoise(1), ErrActionConflict)
	assert.ErrorIs(t, tr.Seek(0), ErrActionConflict)
	assert.Equal(t, Playing, tr.Action().Kind)

	tr.Stop()
	assert.Equal(t, Idle, tr.Action().Kind)
	tr.Stop() // idempotent
	assert.Equal(t, Idle, tr.Action().Kind)
}

func TestTransportPlayAdvancesPlayhead(t *testing.T) {
	fc := newFakeClock()
	tr := New(fc.now)

	require.NoError(t, tr.Seek(times.FromSeconds(5)))
	require.NoError(t, tr.BeginPlay())
	fc.advance(3 * time.Second)
	tr.Stop()

	assert.Equal(t, times.FromSeconds(8), tr.Playhead())
	fc.advance(time.Minute)
	assert.Equal(t, times.FromSeconds(8), tr.Playhead())
}

func TestTransportRecordAtReducedSpeed(t *testing.T) {
	fc := newFakeClock()
	tr := New(fc.now)

	require.NoError(t, tr.BeginRecord(7, 1.0/3))
	assert.Equal(t, Recording, tr.Action().Kind)
	assert.Equal(t, times.Zero, tr.RecordStart())

	fc.advance(3 * time.Second)
	assert.Equal(t, times.FromSeconds(1), tr.Playhead())

	// Speed change mid-take keeps the playhead continuous.
	require.NoError(t, tr.SetFactor(1))
	fc.advance(time.Second)
	tr.Stop()
	assert.Equal(t, times.FromSeconds(2), tr.Playhead())
}

func TestTransportScrub(t *testing.T) {
	fc := newFakeClock()
	tr := New(fc.now)

	assert.ErrorIs(t, tr.ScrubTo(0), ErrActionConflict)

	require.NoError(t, tr.BeginScrub())
	require.NoError(t, tr.ScrubTo(times.FromSeconds(4)))
	fc.advance(time.Minute)
	assert.Equal(t, times.FromSeconds(4), tr.Playhead())

	tr.Stop()
	assert.Equal(t, times.FromSeconds(4), tr.Playhead())
}
