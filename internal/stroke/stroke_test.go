package stroke

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scribl/internal/times"
)

func strokeAt(t times.Time, color string) Stroke {
	return Stroke{
		Points: []Point{
			{X: 0, Y: 0, T: t},
			{X: 1, Y: 1, T: t.Add(times.DiffFromMicros(100_000))},
		},
		Width: 0.002,
		Color: color,
	}
}

func TestCommitRejectsEmpty(t *testing.T) {
	st := NewStore()
	_, err := st.Commit(Stroke{})
	assert.Error(t, err)
	assert.Equal(t, 0, st.Len())
}

func TestUpToOrdering(t *testing.T) {
	st := NewStore()

	// Commit out of timeline order; same start commits keep commit order.
	_, err := st.Commit(strokeAt(times.FromSeconds(2), "b"))
	require.NoError(t, err)
	_, err = st.Commit(strokeAt(times.FromSeconds(1), "a"))
	require.NoError(t, err)
	_, err = st.Commit(strokeAt(times.FromSeconds(2), "c"))
	require.NoError(t, err)

	got := st.UpTo(times.FromSeconds(10)).Collect()
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].Color)
	assert.Equal(t, "b", got[1].Color)
	assert.Equal(t, "c", got[2].Color)
}

func TestUpToMonotoneAndIdempotent(t *testing.T) {
	st := NewStore()
	for i := 1; i <= 5; i++ {
		_, err := st.Commit(strokeAt(times.FromSeconds(float64(i)), "x"))
		require.NoError(t, err)
	}

	prev := 0
	for _, sec := range []float64{0, 0.5, 1, 2.5, 3, 100} {
		n := len(st.UpTo(times.FromSeconds(sec)).Collect())
		assert.GreaterOrEqual(t, n, prev, "result size must be non-decreasing in t")
		prev = n

		// Idempotent for a fixed store.
		again := len(st.UpTo(times.FromSeconds(sec)).Collect())
		assert.Equal(t, n, again)
	}
	assert.Equal(t, 5, prev)
}

func TestCursorReset(t *testing.T) {
	st := NewStore()
	_, err := st.Commit(strokeAt(times.FromSeconds(1), "a"))
	require.NoError(t, err)

	c := st.UpTo(times.FromSeconds(2))
	first := c.Collect()
	c.Reset()
	second := c.Collect()
	assert.Equal(t, first, second)
}

func TestRemoveRestore(t *testing.T) {
	st := NewStore()
	ref, err := st.Commit(strokeAt(times.FromSeconds(1), "a"))
	require.NoError(t, err)
	_, err = st.Commit(strokeAt(times.FromSeconds(2), "b"))
	require.NoError(t, err)

	removed, err := st.Remove(ref)
	require.NoError(t, err)
	assert.Equal(t, "a", removed.Color)
	assert.Equal(t, 1, st.Len())

	_, err = st.Remove(ref)
	assert.ErrorIs(t, err, ErrNotFound)

	st.Restore(ref, removed)
	got := st.UpTo(times.FromSeconds(10)).Collect()
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Color)
}

func TestCommittedStrokeIsIsolatedFromCaller(t *testing.T) {
	st := NewStore()
	s := strokeAt(times.FromSeconds(1), "a")
	_, err := st.Commit(s)
	require.NoError(t, err)

	s.Points[0].X = 999

	got := st.UpTo(times.FromSeconds(2)).Collect()
	assert.Equal(t, 0.0, got[0].Points[0].X)
}

func TestScenarioTwoStrokesWithinWindow(t *testing.T) {
	st := NewStore()
	_, err := st.Commit(strokeAt(times.FromSeconds(1), "first"))
	require.NoError(t, err)
	_, err = st.Commit(strokeAt(times.FromSeconds(2), "second"))
	require.NoError(t, err)

	got := st.UpTo(times.FromSeconds(2.5)).Collect()
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Color)
	assert.Equal(t, "second", got[1].Color)
}

func TestStrokeSpan(t *testing.T) {
	s := strokeAt(times.FromSeconds(1), "a")
	span := s.Span()
	assert.Equal(t, times.FromSeconds(1), span.Start)
	assert.Equal(t, times.FromSeconds(1).Add(times.DiffFromMicros(100_000)), span.End)
}
