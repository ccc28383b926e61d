// Package times defines the transport clock units shared by strokes and audio.
//
// Everything in a scribl document is positioned on a single timeline measured
// in microseconds from the start of the document. Time is the position on that
// timeline, Diff is a (possibly negative) distance between two positions, and
// Span is a half-open interval. Keeping the unit integral makes save files
// stable and keeps stroke/audio index math exact.
package times

import "time"

// Time is a position on the document timeline, in microseconds from the
// beginning. It is never negative; arithmetic that would go below zero
// saturates at zero.
type Time int64

// Diff is the signed difference between two Times, in microseconds.
type Diff int64

// Zero is the beginning of the document timeline.
const Zero Time = 0

// FromMicros builds a Time from a microsecond count, clamping at zero.
func FromMicros(us int64) Time {
	if us < 0 {
		return 0
	}
	return Time(us)
}

// Micros returns the microsecond count of t.
func (t Time) Micros() int64 { return int64(t) }

// Seconds returns t as floating-point seconds.
func (t Time) Seconds() float64 { return float64(t) / 1e6 }

// FromSeconds builds a Time from floating-point seconds, clamping at zero.
func FromSeconds(s float64) Time {
	return FromMicros(int64(s * 1e6))
}

// Add returns t shifted by d, saturating at zero.
func (t Time) Add(d Diff) Time {
	return FromMicros(int64(t) + int64(d))
}

// Sub returns the signed distance from u to t.
func (t Time) Sub(u Time) Diff { return Diff(int64(t) - int64(u)) }

// AsAudioIdx converts t to a sample index at the given sample rate.
func (t Time) AsAudioIdx(sampleRate int) int {
	return int(float64(t) / 1e6 * float64(sampleRate))
}

// FromAudioIdx converts a sample index at the given sample rate to a Time.
func FromAudioIdx(idx int64, sampleRate int) Time {
	return FromMicros(int64(float64(idx) * 1e6 / float64(sampleRate)))
}

// DiffFromMicros builds a Diff from a microsecond count.
func DiffFromMicros(us int64) Diff { return Diff(us) }

// DiffFromDuration converts a wall-clock duration to a timeline distance.
func DiffFromDuration(d time.Duration) Diff { return Diff(d.Microseconds()) }

// Micros returns the microsecond count of d.
func (d Diff) Micros() int64 { return int64(d) }

// Seconds returns d as floating-point seconds.
func (d Diff) Seconds() float64 { return float64(d) / 1e6 }

// Duration converts d to a wall-clock duration.
func (d Diff) Duration() time.Duration {
	return time.Duration(d) * time.Microsecond
}

// Scaled returns d scaled by the given factor. Recording and scanning run the
// logical clock at a different rate than the wall clock, so elapsed wall time
// is scaled by the action's factor before being added to the timeline.
func (d Diff) Scaled(factor float64) Diff {
	return Diff(float64(d) * factor)
}

// AsAudioIdx converts d, interpreted as an offset from the start of an audio
// buffer, to a signed sample index at the given sample rate.
func (d Diff) AsAudioIdx(sampleRate int) int {
	return int(float64(d) / 1e6 * float64(sampleRate))
}

// DiffFromAudioIdx converts a signed sample count to a timeline distance.
func DiffFromAudioIdx(idx int, sampleRate int) Diff {
	return Diff(float64(idx) * 1e6 / float64(sampleRate))
}

// Span is the half-open interval [Start, End) on the document timeline.
type Span struct {
	Start Time `json:"start"`
	End   Time `json:"end"`
}

// Length returns the distance covered by the span.
func (s Span) Length() Diff { return s.End.Sub(s.Start) }

// Contains reports whether t lies inside the span.
func (s Span) Contains(t Time) bool { return t >= s.Start && t < s.End }

// Union returns the smallest span covering both s and o.
func (s Span) Union(o Span) Span {
	out := s
	if o.Start < out.Start {
		out.Start = o.Start
	}
	if o.End > out.End {
		out.End = o.End
	}
	return out
}

// Min returns the earlier of a and b.
func Min(a, b Time) Time {
	if a < b {
		return a
	}
	return b
}

// Max returns the later of a and b.
func Max(a, b Time) Time {
	if a > b {
		return a
	}
	return b
}
