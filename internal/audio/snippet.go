// Package audio implements the audio side of a scribl document: snippet
// recording sessions, denoise jobs, and mixing for playback and export.
//
// Captured audio is raw 16-bit mono PCM at 44100 Hz. Buffers are speed
// neutral: the recording speed is applied as a sample remap at playback, so
// it can be changed after the fact without re-recording.
package audio

import (
	"errors"
	"fmt"
	"sort"

	"scribl/internal/config"
	"scribl/internal/times"
)

// SampleRate is the sample rate of all captured and mixed audio.
const SampleRate = 44100

// ErrSnippetNotFound is returned for ids that are not in the collection.
var ErrSnippetNotFound = errors.New("audio: snippet not found")

// SnippetID identifies one audio snippet. Ids increase monotonically within
// a document and are never reused, so a stale id from a cancelled job can
// never alias a live snippet.
type SnippetID uint64

// Status is the denoise processing status of a snippet.
type Status string

const (
	// StatusPending means a denoise pass is still owed to this snippet.
	StatusPending Status = "pending"
	// StatusSucceeded means the buffer holds its final form.
	StatusSucceeded Status = "succeeded"
	// StatusFailed means denoise failed; the buffer holds the original
	// capture untouched.
	StatusFailed Status = "failed"
)

// Snippet is one recorded audio segment positioned on the document timeline.
type Snippet struct {
	ID       SnippetID             `json:"id"`
	Start    times.Time            `json:"start"`
	Duration times.Diff            `json:"duration"`
	Speed    config.RecordingSpeed `json:"speed"`
	Denoise  config.DenoiseSetting `json:"denoise"`
	Status   Status                `json:"status"`

	// Gain is the playback multiplier applied when mixing.
	Gain float64 `json:"gain"`

	// Buf is the speed-neutral capture, 16-bit mono PCM at SampleRate.
	Buf []int16 `json:"buf"`
}

// playbackLen returns the number of samples the snippet occupies at playback,
// after the speed remap is applied.
func (s Snippet) playbackLen() int {
	f := s.Speed.Factor()
	if f == 0 || f == 1 {
		return len(s.Buf)
	}
	return resampledLen(len(s.Buf), f)
}

// End returns the timeline position just past the snippet's audible samples.
func (s Snippet) End() times.Time {
	return s.Start.Add(times.DiffFromAudioIdx(s.playbackLen(), SampleRate))
}

// clone returns a deep copy of the snippet.
func (s Snippet) clone() Snippet {
	out := s
	out.Buf = make([]int16, len(s.Buf))
	copy(out.Buf, s.Buf)
	return out
}

// Snippets is the collection of committed snippets in a document, keyed by
// id. It is not safe for concurrent use; the editor's command sequence
// serializes access.
type Snippets struct {
	last     SnippetID
	snippets map[SnippetID]*Snippet
}

// NewSnippets returns an empty collection.
func NewSnippets() *Snippets {
	return &Snippets{snippets: make(map[SnippetID]*Snippet)}
}

// Reserve allocates the next snippet id without inserting anything. A
// recording session reserves its id up front so that CurrentAction can name
// the snippet being recorded before it is committed.
func (sn *Snippets) Reserve() SnippetID {
	sn.last++
	return sn.last
}

// Insert adds a snippet under its own id. The id must have been reserved
// here (or come from a save file); inserting an id twice is an error.
func (sn *Snippets) Insert(s Snippet) error {
	if s.ID == 0 {
		return errors.New("audio: snippet has no id")
	}
	if _, ok := sn.snippets[s.ID]; ok {
		return fmt.Errorf("audio: snippet %d already present", s.ID)
	}
	if s.ID > sn.last {
		sn.last = s.ID
	}
	c := s.clone()
	sn.snippets[s.ID] = &c
	return nil
}

// Remove deletes a snippet and returns it.
func (sn *Snippets) Remove(id SnippetID) (Snippet, error) {
	s, ok := sn.snippets[id]
	if !ok {
		return Snippet{}, ErrSnippetNotFound
	}
	delete(sn.snippets, id)
	return *s, nil
}

// Get returns a copy of the snippet with the given id.
func (sn *Snippets) Get(id SnippetID) (Snippet, error) {
	s, ok := sn.snippets[id]
	if !ok {
		return Snippet{}, ErrSnippetNotFound
	}
	return s.clone(), nil
}

// Len returns the number of snippets.
func (sn *Snippets) Len() int { return len(sn.snippets) }

// IDs returns all snippet ids in ascending order.
func (sn *Snippets) IDs() []SnippetID {
	out := make([]SnippetID, 0, len(sn.snippets))
	for id := range sn.snippets {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// All returns deep copies of all snippets in id order. Used for save
// snapshots.
func (sn *Snippets) All() []Snippet {
	out := make([]Snippet, 0, len(sn.snippets))
	for _, id := range sn.IDs() {
		out = append(out, sn.snippets[id].clone())
	}
	return out
}

// SwapBuffer atomically replaces a snippet's buffer and status, returning
// the previous buffer and status so the swap can be undone. This is the only
// way a denoise result becomes visible to playback.
func (sn *Snippets) SwapBuffer(id SnippetID, buf []int16, status Status) ([]int16, Status, error) {
	s, ok := sn.snippets[id]
	if !ok {
		return nil, "", ErrSnippetNotFound
	}
	oldBuf, oldStatus := s.Buf, s.Status
	s.Buf = buf
	s.Status = status
	return oldBuf, oldStatus, nil
}

// SetStatus updates only the processing status.
func (sn *Snippets) SetStatus(id SnippetID, status Status) error {
	s, ok := sn.snippets[id]
	if !ok {
		return ErrSnippetNotFound
	}
	s.Status = status
	return nil
}

// Shift moves a snippet along the timeline.
func (sn *Snippets) Shift(id SnippetID, d times.Diff) error {
	s, ok := sn.snippets[id]
	if !ok {
		return ErrSnippetNotFound
	}
	s.Start = s.Start.Add(d)
	return nil
}

// EndTime returns the end of the last audible sample across all snippets.
func (sn *Snippets) EndTime() times.Time {
	end := times.Zero
	for _, s := range sn.snippets {
		end = times.Max(end, s.End())
	}
	return end
}

// MixTo mixes every snippet overlapping the window starting at from into
// out, which holds len(out) samples at SampleRate. Samples are gain-scaled,
// speed-remapped, and added with saturation.
func (sn *Snippets) MixTo(out []int16, from times.Time) {
	winStart := from.AsAudioIdx(SampleRate)
	winEnd := winStart + len(out)

	for _, id := range sn.IDs() {
		s := sn.snippets[id]
		buf := s.Buf
		if f := s.Speed.Factor(); f != 0 && f != 1 {
			buf = Resample(buf, f)
		}

		snipStart := s.Start.AsAudioIdx(SampleRate)
		snipEnd := snipStart + len(buf)

		lo := max(winStart, snipStart)
		hi := min(winEnd, snipEnd)
		for i := lo; i < hi; i++ {
			mixed := int32(out[i-winStart]) + int32(float64(buf[i-snipStart])*s.Gain)
			out[i-winStart] = clampSample(mixed)
		}
	}
}

func clampSample(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
