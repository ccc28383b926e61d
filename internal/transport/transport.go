package transport

import (
	"errors"
	"fmt"
	"time"

	"scribl/internal/audio"
	"scribl/internal/times"
)

// ErrActionConflict is returned when an operation needs the transport idle
// but it is not. Callers decide the action order; the transport never
// pre-empts one action for another.
var ErrActionConflict = errors.New("transport: another action is in progress")

// Kind is the discriminant of an Action.
type Kind int

const (
	// Idle means the playhead is parked and nothing is running.
	Idle Kind = iota
	// Playing means the playhead advances at normal rate with audio.
	Playing
	// Scrubbing means the playhead follows explicit position updates.
	Scrubbing
	// Recording means a snippet capture is running and the playhead
	// advances at the session's recording speed.
	Recording
	// Denoising means a denoise job is in flight for a snippet. The
	// playhead is parked until the job completes.
	Denoising
)

func (k Kind) String() string {
	switch k {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Scrubbing:
		return "scrubbing"
	case Recording:
		return "recording"
	case Denoising:
		return "denoising"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Action is what the transport is currently doing. Snippet is set while
// Kind is Recording or Denoising, naming the snippet the action concerns.
type Action struct {
	Kind    Kind
	Snippet audio.SnippetID
}

// Transport is the playhead state machine. Exactly one action runs at a
// time; every Begin requires Idle and fails with ErrActionConflict
// otherwise, and Stop always returns to Idle. Not safe for concurrent use.
type Transport struct {
	clock  *Clock
	action Action

	// recStart is the playhead where the running recording began.
	recStart times.Time
}

// New returns an idle transport at timeline zero. now is the wall time
// source passed through to the clock; nil means time.Now.
func New(now func() time.Time) *Transport {
	return &Transport{clock: NewClock(now)}
}

// Action returns the current action.
func (tr *Transport) Action() Action { return tr.action }

// Playhead returns the current playhead position.
func (tr *Transport) Playhead() times.Time { return tr.clock.Now() }

// BeginPlay starts playback from the current playhead at normal rate.
func (tr *Transport) BeginPlay() error {
	if tr.action.Kind != Idle {
		return fmt.Errorf("begin play while %s: %w", tr.action.Kind, ErrActionConflict)
	}
	tr.action = Action{Kind: Playing}
	tr.clock.SetFactor(1)
	return nil
}

// BeginScrub puts the playhead under explicit control. While scrubbing the
// clock does not advance on its own; ScrubTo moves it.
func (tr *Transport) BeginScrub() error {
	if tr.action.Kind != Idle {
		return fmt.Errorf("begin scrub while %s: %w", tr.action.Kind, ErrActionConflict)
	}
	tr.action = Action{Kind: Scrubbing}
	tr.clock.SetFactor(0)
	return nil
}

// ScrubTo moves the playhead during a scrub.
func (tr *Transport) ScrubTo(t times.Time) error {
	if tr.action.Kind != Scrubbing {
		return fmt.Errorf("scrub while %s: %w", tr.action.Kind, ErrActionConflict)
	}
	tr.clock.JumpTo(t)
	return nil
}

// BeginRecord starts a recording action for the reserved snippet id,
// advancing the playhead at the given speed factor. A factor of zero holds
// the playhead still while drawing is captured frame by frame.
func (tr *Transport) BeginRecord(id audio.SnippetID, factor float64) error {
	if tr.action.Kind != Idle {
		return fmt.Errorf("begin record while %s: %w", tr.action.Kind, ErrActionConflict)
	}
	tr.action = Action{Kind: Recording, Snippet: id}
	tr.recStart = tr.clock.Now()
	tr.clock.SetFactor(factor)
	return nil
}

// BeginDenoise marks a denoise job in flight for the snippet. The playhead
// does not move; the action exists to keep playback and recording out of
// the way until the job's result is applied.
func (tr *Transport) BeginDenoise(id audio.SnippetID) error {
	if tr.action.Kind != Idle {
		return fmt.Errorf("begin denoise while %s: %w", tr.action.Kind, ErrActionConflict)
	}
	tr.action = Action{Kind: Denoising, Snippet: id}
	tr.clock.SetFactor(0)
	return nil
}

// RecordStart returns where the running recording began. Valid only while
// Kind is Recording.
func (tr *Transport) RecordStart() times.Time { return tr.recStart }

// SetFactor changes the playhead rate of the running recording. Used when
// the recording speed setting changes mid-take.
func (tr *Transport) SetFactor(factor float64) error {
	if tr.action.Kind != Recording {
		return fmt.Errorf("set factor while %s: %w", tr.action.Kind, ErrActionConflict)
	}
	tr.clock.SetFactor(factor)
	return nil
}

// Stop ends the current action and parks the playhead where it is. Stop on
// an idle transport is a no-op; it never fails.
func (tr *Transport) Stop() {
	tr.clock.SetFactor(0)
	tr.action = Action{Kind: Idle}
}

// Seek moves the parked playhead. Seeking requires Idle; moving the
// playhead during another action goes through that action's own mechanism.
func (tr *Transport) Seek(t times.Time) error {
	if tr.action.Kind != Idle {
		return fmt.Errorf("seek while %s: %w", tr.action.Kind, ErrActionConflict)
	}
	tr.clock.JumpTo(t)
	return nil
}
