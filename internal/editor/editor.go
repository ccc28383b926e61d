// Package editor holds the aggregate root of an open document: settings,
// strokes, audio, transport, zoom, and the undo history. Every command goes
// through one mutex, and every command that needs the transport idle checks
// the current action before touching anything, so no interleaving of
// commands can observe a half-applied edit.
package editor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"scribl/internal/asyncop"
	"scribl/internal/audio"
	"scribl/internal/config"
	"scribl/internal/logging"
	"scribl/internal/stroke"
	"scribl/internal/times"
	"scribl/internal/transport"
)

// Editor is one open document plus its session state. All exported methods
// are safe for concurrent use; they serialize on the command mutex.
type Editor struct {
	mu  sync.Mutex
	log *logging.Logger

	settings config.Settings
	strokes  *stroke.Store
	pipeline *audio.Pipeline
	tracker  *asyncop.Tracker
	tr       *transport.Transport
	history  *history
	zoom     float64

	device   audio.Device
	audioCfg config.AudioConfig
}

// New returns an editor over an empty document. dev supplies capture
// sources; now is the wall time source (nil means time.Now).
func New(cfg config.Config, dev audio.Device, now func() time.Time, log *logging.Logger) *Editor {
	if log == nil {
		log = logging.Default()
	}
	log = log.WithComponent("editor")
	tracker := asyncop.NewTracker(log)
	settings := cfg.Session.Clamped()
	return &Editor{
		log:      log,
		settings: settings,
		strokes:  stroke.NewStore(),
		pipeline: audio.NewPipeline(dev, settings, cfg.Audio, tracker, log),
		tracker:  tracker,
		tr:       transport.New(now),
		history:  newHistory(),
		zoom:     config.MinZoom,
		device:   dev,
		audioCfg: cfg.Audio,
	}
}

// Settings returns the current session settings.
func (e *Editor) Settings() config.Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// SetPenSize sets the pen size for subsequent strokes, clamped to bounds.
func (e *Editor) SetPenSize(size float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings.PenSize = size
	e.settings = e.settings.Clamped()
	e.pipeline.SetSettings(e.settings)
}

// SetPenColor sets the pen color for subsequent strokes.
func (e *Editor) SetPenColor(color string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings.PenColor = color
	e.pipeline.SetSettings(e.settings)
}

// SetDenoise selects the denoise setting applied to future recordings.
func (e *Editor) SetDenoise(s config.DenoiseSetting) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !s.Valid() {
		return fmt.Errorf("editor: unknown denoise setting %q", s)
	}
	e.settings.Denoise = s
	e.pipeline.SetSettings(e.settings)
	return nil
}

// SetRecordingSpeed changes the recording speed. If a recording is running
// the playhead rate follows immediately; the playhead stays continuous.
func (e *Editor) SetRecordingSpeed(speed config.RecordingSpeed) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings.RecordingSpeed = speed
	e.settings = e.settings.Clamped()
	e.pipeline.SetSettings(e.settings)
	if e.tr.Action().Kind == transport.Recording {
		e.tr.SetFactor(e.settings.RecordingSpeed.Factor())
	}
}

// Zoom returns the current timeline zoom level.
func (e *Editor) Zoom() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.zoom
}

// SetZoom changes the timeline zoom, clamped to bounds; out-of-range
// requests are clamped, never rejected. The change is undoable. A zoom
// change made while recording folds into the take's undo unit, keeping the
// trailing transient run unbroken.
func (e *Editor) SetZoom(level float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	next := config.ClampZoom(level)
	if next != e.zoom {
		e.history.push(unit{
			edits: []edit{{
				kind:     editSetZoom,
				zoomPrev: e.zoom,
				zoomNext: next,
			}},
			transient: e.tr.Action().Kind == transport.Recording,
		})
		e.zoom = next
	}
	return e.zoom
}

// ZoomIn steps the timeline zoom up one notch.
func (e *Editor) ZoomIn() float64 { return e.SetZoom(config.ZoomIn(e.Zoom())) }

// ZoomOut steps the timeline zoom down one notch.
func (e *Editor) ZoomOut() float64 { return e.SetZoom(config.ZoomOut(e.Zoom())) }

// Playhead returns the current playhead position.
func (e *Editor) Playhead() times.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tr.Playhead()
}

// Action returns the transport's current action.
func (e *Editor) Action() transport.Action {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tr.Action()
}

// BeginPlay starts playback from the current playhead. Fails with
// ErrActionConflict unless idle.
func (e *Editor) BeginPlay() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tr.BeginPlay()
}

// BeginScrub puts the playhead under explicit control.
func (e *Editor) BeginScrub() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tr.BeginScrub()
}

// ScrubTo moves the playhead during a scrub.
func (e *Editor) ScrubTo(t times.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tr.ScrubTo(t)
}

// Seek moves the parked playhead; requires idle.
func (e *Editor) Seek(t times.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tr.Seek(t)
}

// StartRecording acquires the input device and begins a recording action at
// the current playhead. Fails with ErrActionConflict unless idle and with
// ErrDeviceUnavailable when no capture source can be acquired; either
// failure leaves the document untouched.
func (e *Editor) StartRecording(ctx context.Context) (audio.SnippetID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if k := e.tr.Action().Kind; k != transport.Idle {
		return 0, fmt.Errorf("start recording while %s: %w", k, transport.ErrActionConflict)
	}

	start := e.tr.Playhead()
	id, err := e.pipeline.StartRecording(ctx, start)
	if err != nil {
		return 0, err
	}
	if err := e.tr.BeginRecord(id, e.settings.RecordingSpeed.Factor()); err != nil {
		e.pipeline.CancelRecording(id)
		return 0, err
	}
	return id, nil
}

// StopRecording finalizes the running recording into a committed snippet
// and returns it. The stroke edits made during the take and the snippet's
// creation collapse into a single undoable unit.
func (e *Editor) StopRecording() (audio.Snippet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopRecordingLocked()
}

func (e *Editor) stopRecordingLocked() (audio.Snippet, error) {
	act := e.tr.Action()
	if act.Kind != transport.Recording {
		return audio.Snippet{}, fmt.Errorf("stop recording while %s: %w", act.Kind, transport.ErrActionConflict)
	}

	e.tr.Stop()
	s, err := e.pipeline.StopRecording(act.Snippet, e.tr.Playhead())
	if err != nil {
		e.history.collapseTransients()
		return audio.Snippet{}, err
	}

	e.history.collapseTransients(edit{kind: editCreateSnippet, snippet: s})
	return s, nil
}

// CommitStroke commits a finished drawing gesture with the current pen
// settings. Point times are absolute timeline positions supplied by the
// drawing surface. While recording, the commit is a transient undo unit
// that collapses into the take when recording stops.
func (e *Editor) CommitStroke(points []stroke.Point) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := stroke.Stroke{
		Points: points,
		Width:  e.settings.PenSize,
		Color:  e.settings.PenColor,
	}
	ref, err := e.strokes.Commit(s)
	if err != nil {
		return err
	}

	e.history.push(unit{
		edits:     []edit{{kind: editCommitStroke, strokeRef: ref, stroke: s}},
		transient: e.tr.Action().Kind == transport.Recording,
	})
	return nil
}

// StrokesUpTo returns a cursor over committed strokes starting at or before
// t, for rendering.
func (e *Editor) StrokesUpTo(t times.Time) *stroke.Cursor {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.strokes.UpTo(t)
}

// RunDenoise dispatches a denoise job for the snippet and enters the
// denoising action until the result is applied by ProcessCompletions.
// Fails with ErrActionConflict unless idle.
func (e *Editor) RunDenoise(ctx context.Context, id audio.SnippetID) (asyncop.JobID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.tr.BeginDenoise(id); err != nil {
		return "", err
	}
	jobID, err := e.pipeline.RunDenoise(ctx, id)
	if err != nil {
		e.tr.Stop()
		return "", err
	}
	return jobID, nil
}

// PollJob reports a background job's status without consuming it.
func (e *Editor) PollJob(id asyncop.JobID) (asyncop.Status, error) {
	return e.tracker.Poll(id)
}

// ProcessCompletions applies finished denoise jobs to the document and
// returns what changed. Successful swaps become undoable edits; a denoising
// action whose job finished returns the transport to idle. Callers poll
// this from their event loop.
func (e *Editor) ProcessCompletions() []audio.Completion {
	e.mu.Lock()
	defer e.mu.Unlock()

	done := e.pipeline.ProcessCompletions()
	for _, c := range done {
		if c.Status == audio.StatusSucceeded {
			now, err := e.pipeline.Snippets().Get(c.ID)
			if err != nil {
				continue
			}
			e.history.push(unit{edits: []edit{{
				kind:       editSwapBuffer,
				snippetID:  c.ID,
				prevBuf:    c.PrevBuf,
				prevStatus: c.PrevStatus,
				nextBuf:    now.Buf,
				nextStatus: now.Status,
			}}})
		}
		if act := e.tr.Action(); act.Kind == transport.Denoising && act.Snippet == c.ID {
			e.tr.Stop()
		}
	}
	return done
}

// DeleteSnippet removes a snippet from the document, cancelling any
// in-flight denoise job for it. The removal is undoable. Requires idle:
// snippet edits during a take would break the take's single undo unit.
func (e *Editor) DeleteSnippet(id audio.SnippetID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if act := e.tr.Action(); act.Kind != transport.Idle {
		return fmt.Errorf("delete snippet while %s: %w", act.Kind, transport.ErrActionConflict)
	}

	e.pipeline.CancelDenoise(id)
	s, err := e.pipeline.Snippets().Remove(id)
	if err != nil {
		return err
	}
	e.history.push(unit{edits: []edit{{kind: editDeleteSnippet, snippet: s}}})
	return nil
}

// ShiftSnippet moves a snippet along the timeline; undoable. Requires idle.
func (e *Editor) ShiftSnippet(id audio.SnippetID, d times.Diff) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if act := e.tr.Action(); act.Kind != transport.Idle {
		return fmt.Errorf("shift snippet while %s: %w", act.Kind, transport.ErrActionConflict)
	}

	if err := e.pipeline.Snippets().Shift(id, d); err != nil {
		return err
	}
	e.history.push(unit{edits: []edit{{kind: editShiftSnippet, snippetID: id, shift: d}}})
	return nil
}

// MixTo mixes the document's audio into out starting at from.
func (e *Editor) MixTo(out []int16, from times.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pipeline.Snippets().MixTo(out, from)
}

// Strokes returns copies of all committed strokes in timeline order.
func (e *Editor) Strokes() []stroke.Stroke {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.strokes.Strokes()
}

// Snippets returns copies of all committed snippets in id order.
func (e *Editor) Snippets() []audio.Snippet {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pipeline.Snippets().All()
}

// Snippet returns a copy of one snippet.
func (e *Editor) Snippet(id audio.SnippetID) (audio.Snippet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pipeline.Snippets().Get(id)
}

// Snapshot is the render-facing view of session state.
type Snapshot struct {
	Playhead    times.Time
	Action      transport.Action
	Zoom        float64
	PendingJobs []asyncop.JobID
	Strokes     int
	Snippets    int
}

// Snapshot returns a consistent view of the session for collaborators.
func (e *Editor) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		Playhead:    e.tr.Playhead(),
		Action:      e.tr.Action(),
		Zoom:        e.zoom,
		PendingJobs: e.tracker.Pending(),
		Strokes:     e.strokes.Len(),
		Snippets:    e.pipeline.Snippets().Len(),
	}
}

// Stop ends whatever action is running and parks the playhead. A running
// recording is committed as by StopRecording; stopping while idle is a
// no-op.
func (e *Editor) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.tr.Action().Kind == transport.Recording {
		_, err := e.stopRecordingLocked()
		return err
	}
	e.tr.Stop()
	return nil
}

// Replace installs a fully constructed document, discarding the current
// one. A running recording is cancelled and its capture dropped; pending
// denoise jobs are cancelled; the undo history and playhead reset. Invoked
// by load only after the incoming document validated completely.
func (e *Editor) Replace(strokes []stroke.Stroke, snippets []audio.Snippet, settings config.Settings) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	store := stroke.NewStore()
	for _, s := range strokes {
		if _, err := store.Commit(s); err != nil {
			return fmt.Errorf("install strokes: %w", err)
		}
	}
	coll := audio.NewSnippets()
	for _, s := range snippets {
		if err := coll.Insert(s); err != nil {
			return fmt.Errorf("install snippets: %w", err)
		}
	}

	if act := e.tr.Action(); act.Kind == transport.Recording {
		e.pipeline.CancelRecording(act.Snippet)
	}
	for _, id := range e.pipeline.Snippets().IDs() {
		e.pipeline.CancelDenoise(id)
	}
	e.tr.Stop()

	e.settings = settings.Clamped()
	e.strokes = store
	e.pipeline = audio.NewPipeline(e.device, e.settings, e.audioCfg, e.tracker, e.log)
	for _, s := range coll.All() {
		if err := e.pipeline.Snippets().Insert(s); err != nil {
			return fmt.Errorf("install snippets: %w", err)
		}
	}
	e.history = newHistory()
	if err := e.tr.Seek(times.Zero); err != nil {
		return err
	}
	e.log.Info("document replaced", "strokes", len(strokes), "snippets", len(snippets))
	return nil
}

// Close cancels background work and waits for tasks to finish.
func (e *Editor) Close() {
	e.mu.Lock()
	if act := e.tr.Action(); act.Kind == transport.Recording {
		e.pipeline.CancelRecording(act.Snippet)
	}
	for _, id := range e.pipeline.Snippets().IDs() {
		e.pipeline.CancelDenoise(id)
	}
	e.tr.Stop()
	e.mu.Unlock()

	e.tracker.Wait()
}
