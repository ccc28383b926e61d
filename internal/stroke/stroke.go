// Package stroke implements the append-only store of committed drawing
// strokes, indexed by their position on the document timeline.
package stroke

import (
	"errors"

	"scribl/internal/times"
)

// ErrNotFound is returned when a stroke reference does not resolve.
var ErrNotFound = errors.New("stroke: not found")

// Point is a single sampled pen position. T is the timeline position at which
// the point was drawn, not a wall-clock time.
type Point struct {
	X float64    `json:"x"`
	Y float64    `json:"y"`
	T times.Time `json:"t"`
}

// Stroke is one committed freehand gesture: an ordered sequence of points
// plus the pen metadata captured at commit time. Strokes are immutable once
// committed; they leave the store only through undo of the commit that
// created them.
type Stroke struct {
	Points []Point `json:"points"`
	Width  float64 `json:"width"`
	Color  string  `json:"color"`
}

// Start returns the timeline position of the first point.
func (s Stroke) Start() times.Time {
	if len(s.Points) == 0 {
		return times.Zero
	}
	return s.Points[0].T
}

// End returns the timeline position of the last point.
func (s Stroke) End() times.Time {
	if len(s.Points) == 0 {
		return times.Zero
	}
	return s.Points[len(s.Points)-1].T
}

// Span returns the timeline interval the stroke covers.
func (s Stroke) Span() times.Span {
	return times.Span{Start: s.Start(), End: s.End()}
}

// clone returns a deep copy, so committed strokes cannot be mutated through
// a caller-retained point slice.
func (s Stroke) clone() Stroke {
	out := s
	out.Points = make([]Point, len(s.Points))
	copy(out.Points, s.Points)
	return out
}

// Ref identifies a committed stroke within its store. Refs are handed to the
// undo machinery; drawing input never removes strokes directly.
type Ref struct {
	seq uint64
}

type entry struct {
	seq    uint64
	stroke Stroke
}

// Store is the append-only collection of committed strokes, kept ordered by
// (start time, commit order). It is not safe for concurrent use; the editor's
// command sequence serializes access.
type Store struct {
	entries []entry
	nextSeq uint64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{nextSeq: 1}
}

// Len returns the number of committed strokes.
func (st *Store) Len() int { return len(st.entries) }

// Commit appends a stroke to the store and returns a reference usable by the
// undo machinery to remove it again.
func (st *Store) Commit(s Stroke) (Ref, error) {
	if len(s.Points) == 0 {
		return Ref{}, errors.New("stroke: empty stroke")
	}
	seq := st.nextSeq
	st.nextSeq++
	st.insert(entry{seq: seq, stroke: s.clone()})
	return Ref{seq: seq}, nil
}

// insert places e at its ordered position: ascending start time, with commit
// order (seq) as the stable tie-break.
func (st *Store) insert(e entry) {
	i := len(st.entries)
	for i > 0 {
		prev := st.entries[i-1]
		if prev.stroke.Start() < e.stroke.Start() ||
			(prev.stroke.Start() == e.stroke.Start() && prev.seq < e.seq) {
			break
		}
		i--
	}
	st.entries = append(st.entries, entry{})
	copy(st.entries[i+1:], st.entries[i:])
	st.entries[i] = e
}

// Remove deletes the stroke identified by ref and returns it. It is invoked
// only by undo; user-facing drawing input has no path to it.
func (st *Store) Remove(ref Ref) (Stroke, error) {
	for i, e := range st.entries {
		if e.seq == ref.seq {
			st.entries = append(st.entries[:i], st.entries[i+1:]...)
			return e.stroke, nil
		}
	}
	return Stroke{}, ErrNotFound
}

// Restore reinserts a stroke previously removed by undo, under its original
// reference, so a redo reproduces the exact pre-undo state.
func (st *Store) Restore(ref Ref, s Stroke) {
	st.insert(entry{seq: ref.seq, stroke: s.clone()})
}

// Strokes returns a deep copy of all committed strokes in timeline order.
// Used for save snapshots.
func (st *Store) Strokes() []Stroke {
	out := make([]Stroke, len(st.entries))
	for i, e := range st.entries {
		out[i] = e.stroke.clone()
	}
	return out
}

// UpTo returns a restartable cursor over strokes whose start time is at or
// before t, in (start time, commit order) order. The cursor is lazy: it reads
// the store as it advances, so it must not outlive mutations.
func (st *Store) UpTo(t times.Time) *Cursor {
	return &Cursor{store: st, limit: t}
}

// Cursor iterates over a time-bounded prefix of a Store.
type Cursor struct {
	store *Store
	limit times.Time
	idx   int
}

// Next returns the next stroke, or false when the sequence is exhausted.
func (c *Cursor) Next() (Stroke, bool) {
	if c.idx >= len(c.store.entries) {
		return Stroke{}, false
	}
	e := c.store.entries[c.idx]
	if e.stroke.Start() > c.limit {
		return Stroke{}, false
	}
	c.idx++
	return e.stroke, true
}

// Reset rewinds the cursor to the beginning of the sequence.
func (c *Cursor) Reset() { c.idx = 0 }

// Collect drains the cursor into a slice. Mostly a convenience for render
// collaborators and tests.
func (c *Cursor) Collect() []Stroke {
	var out []Stroke
	for {
		s, ok := c.Next()
		if !ok {
			return out
		}
		out = append(out, s)
	}
}
