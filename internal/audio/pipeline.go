package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"scribl/internal/asyncop"
	"scribl/internal/config"
	"scribl/internal/logging"
	"scribl/internal/times"
)

// captureChunk is the read granularity of the capture task.
const captureChunk = 1024

// ErrRecordingInterrupted reports a capture source failing mid-take. The
// partial buffer is discarded and no snippet is committed.
var ErrRecordingInterrupted = errors.New("audio: recording interrupted")

// Pipeline manages snippet recording sessions and denoise jobs, and owns the
// document's snippet collection. Commands come in on the editor's command
// sequence; capture and denoise run as background tasks that operate on
// buffers handed off by ownership transfer and report back only through the
// async tracker.
type Pipeline struct {
	device     Device
	deviceName string
	threshold  float64
	tracker    *asyncop.Tracker
	log        *logging.Logger

	snippets *Snippets

	mu       sync.Mutex
	settings config.Settings
	rec      *captureSession
	denoise  map[SnippetID]*denoiseJob

	// denoiseFn is swapped out by tests to force failures.
	denoiseFn func(ctx context.Context, buf []int16, setting config.DenoiseSetting, threshold float64) ([]int16, error)
}

// NewPipeline builds a pipeline capturing from dev with the given session
// settings.
func NewPipeline(dev Device, settings config.Settings, audioCfg config.AudioConfig, tracker *asyncop.Tracker, log *logging.Logger) *Pipeline {
	if log == nil {
		log = logging.Default()
	}
	return &Pipeline{
		device:     dev,
		deviceName: audioCfg.InputDevice,
		threshold:  audioCfg.GateThreshold,
		settings:   settings,
		tracker:    tracker,
		log:        log.WithComponent("audio"),
		snippets:   NewSnippets(),
		denoise:    make(map[SnippetID]*denoiseJob),
		denoiseFn:  Denoise,
	}
}

// Snippets returns the pipeline's snippet collection.
func (p *Pipeline) Snippets() *Snippets { return p.snippets }

// SetSettings replaces the session settings stamped onto subsequently
// committed snippets. Called from the editor's command sequence whenever a
// session setting changes.
func (p *Pipeline) SetSettings(s config.Settings) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settings = s
}

// captureSession is one in-flight recording: a background task draining a
// Source into a private buffer until stopped.
type captureSession struct {
	id     SnippetID
	start  times.Time
	src    Source
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	buf []int16
	err error
}

func (cs *captureSession) run(ctx context.Context) {
	defer close(cs.done)
	defer cs.src.Close()

	chunk := make([]int16, captureChunk)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := cs.src.Read(chunk)
		if n > 0 {
			cs.mu.Lock()
			cs.buf = append(cs.buf, chunk[:n]...)
			cs.mu.Unlock()
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				cs.mu.Lock()
				cs.err = err
				cs.mu.Unlock()
			}
			return
		}
	}
}

// take stops the session and transfers ownership of the captured buffer.
func (cs *captureSession) take() ([]int16, error) {
	cs.cancel()
	<-cs.done
	cs.mu.Lock()
	defer cs.mu.Unlock()
	buf := cs.buf
	cs.buf = nil
	return buf, cs.err
}

// StartRecording acquires the input device, reserves a snippet id, and
// starts the capture task. It returns as soon as the task is dispatched.
// The snippet is provisional until StopRecording commits it.
func (p *Pipeline) StartRecording(ctx context.Context, start times.Time) (SnippetID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.rec != nil {
		return 0, fmt.Errorf("audio: recording %d still active", p.rec.id)
	}

	src, err := p.device.Open(p.deviceName)
	if err != nil {
		return 0, fmt.Errorf("acquire input: %w", err)
	}

	id := p.snippets.Reserve()
	sessCtx, cancel := context.WithCancel(ctx)
	cs := &captureSession{
		id:     id,
		start:  start,
		src:    src,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	p.rec = cs
	go cs.run(sessCtx)

	p.log.Info("recording started", "snippet_id", uint64(id), "start_us", start.Micros())
	return id, nil
}

// StopRecording stops the capture task and commits the finished snippet.
// now is the playhead at the moment of stopping; the snippet's duration is
// the elapsed timeline distance since recording began. The committed status
// is pending when the session's denoise setting is on, succeeded otherwise.
func (p *Pipeline) StopRecording(id SnippetID, now times.Time) (Snippet, error) {
	p.mu.Lock()
	cs := p.rec
	if cs == nil || cs.id != id {
		p.mu.Unlock()
		return Snippet{}, fmt.Errorf("audio: recording %d not active", id)
	}
	p.rec = nil
	settings := p.settings
	p.mu.Unlock()

	buf, err := cs.take()
	if err != nil {
		return Snippet{}, fmt.Errorf("%w: %w", ErrRecordingInterrupted, err)
	}

	status := StatusSucceeded
	if settings.Denoise != config.DenoiseOff {
		status = StatusPending
	}

	s := Snippet{
		ID:       id,
		Start:    cs.start,
		Duration: now.Sub(cs.start),
		Speed:    settings.RecordingSpeed,
		Denoise:  settings.Denoise,
		Status:   status,
		Gain:     1,
		Buf:      buf,
	}
	if err := p.snippets.Insert(s); err != nil {
		return Snippet{}, err
	}

	p.log.Info("recording stopped",
		"snippet_id", uint64(id),
		"duration_us", s.Duration.Micros(),
		"samples", len(buf),
		"status", string(status))
	return s, nil
}

// CancelRecording stops the capture task and discards its buffer. No
// snippet is committed. Used when a load replaces the live document while a
// recording is active.
func (p *Pipeline) CancelRecording(id SnippetID) {
	p.mu.Lock()
	cs := p.rec
	if cs == nil || cs.id != id {
		p.mu.Unlock()
		return
	}
	p.rec = nil
	p.mu.Unlock()

	cs.take()
	p.log.Info("recording cancelled", "snippet_id", uint64(id))
}

// denoiseJob pairs a tracker entry with the buffer the job produced. The
// result is written by the job goroutine before it reports, and read by
// ProcessCompletions after the tracker shows a terminal status.
type denoiseJob struct {
	jobID asyncop.JobID

	mu     sync.Mutex
	result []int16
}

// RunDenoise dispatches a background denoise job for the snippet. The job
// works on a private copy of the buffer; the live snippet is untouched until
// ProcessCompletions applies a successful result. Returns immediately after
// dispatch.
func (p *Pipeline) RunDenoise(ctx context.Context, id SnippetID) (asyncop.JobID, error) {
	s, err := p.snippets.Get(id)
	if err != nil {
		return "", err
	}
	if s.Denoise == config.DenoiseOff {
		return "", fmt.Errorf("audio: snippet %d has denoise off", id)
	}

	p.mu.Lock()
	if _, ok := p.denoise[id]; ok {
		p.mu.Unlock()
		return "", fmt.Errorf("audio: denoise already running for snippet %d", id)
	}
	job := &denoiseJob{}
	p.denoise[id] = job
	p.mu.Unlock()

	buf, setting, threshold := s.Buf, s.Denoise, p.threshold
	job.jobID = p.tracker.Dispatch(ctx, func(ctx context.Context) error {
		out, err := p.denoiseFn(ctx, buf, setting, threshold)
		if err != nil {
			return err
		}
		job.mu.Lock()
		job.result = out
		job.mu.Unlock()
		return nil
	})

	p.log.Info("denoise dispatched", "snippet_id", uint64(id), "job_id", string(job.jobID))
	return job.jobID, nil
}

// CancelDenoise cancels any in-flight denoise job for the snippet. A result
// arriving after cancellation is discarded silently.
func (p *Pipeline) CancelDenoise(id SnippetID) {
	p.mu.Lock()
	job, ok := p.denoise[id]
	if ok {
		delete(p.denoise, id)
	}
	p.mu.Unlock()

	if ok {
		p.tracker.Cancel(job.jobID)
	}
}

// DenoiseJob returns the tracker id of the snippet's in-flight denoise job.
func (p *Pipeline) DenoiseJob(id SnippetID) (asyncop.JobID, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	job, ok := p.denoise[id]
	if !ok {
		return "", false
	}
	return job.jobID, true
}

// Completion is the outcome of one finished denoise job, applied on the
// command sequence.
type Completion struct {
	ID     SnippetID
	Status Status
	Reason string

	// PrevBuf and PrevStatus are set for successful completions so the
	// buffer swap can be undone.
	PrevBuf    []int16
	PrevStatus Status
}

// ProcessCompletions applies every finished denoise job to the snippet
// collection and returns what changed. A successful job's buffer replaces
// the snippet's atomically; a failed job leaves the original buffer
// untouched and marks the snippet failed. Results for snippets that were
// deleted in the meantime are discarded. Must be called from the editor's
// command sequence: this is the only point where background results become
// visible to playback.
func (p *Pipeline) ProcessCompletions() []Completion {
	p.mu.Lock()
	finished := make(map[SnippetID]*denoiseJob)
	for id, job := range p.denoise {
		st, err := p.tracker.Poll(job.jobID)
		if err != nil || st.Terminal() {
			finished[id] = job
			delete(p.denoise, id)
		}
	}
	p.mu.Unlock()

	var out []Completion
	for id, job := range finished {
		st, err := p.tracker.Consume(job.jobID)
		if err != nil {
			// Cancelled elsewhere; nothing to apply.
			continue
		}

		if _, err := p.snippets.Get(id); err != nil {
			p.log.Debug("discarding result for deleted snippet", "snippet_id", uint64(id))
			continue
		}

		switch st.State {
		case asyncop.Succeeded:
			job.mu.Lock()
			result := job.result
			job.mu.Unlock()

			prevBuf, prevStatus, err := p.snippets.SwapBuffer(id, result, StatusSucceeded)
			if err != nil {
				continue
			}
			out = append(out, Completion{
				ID:         id,
				Status:     StatusSucceeded,
				PrevBuf:    prevBuf,
				PrevStatus: prevStatus,
			})
			p.log.Info("denoise applied", "snippet_id", uint64(id))

		case asyncop.Failed:
			if err := p.snippets.SetStatus(id, StatusFailed); err != nil {
				continue
			}
			out = append(out, Completion{ID: id, Status: StatusFailed, Reason: st.Reason})
			p.log.Warn("denoise failed", "snippet_id", uint64(id), "reason", st.Reason)
		}
	}
	return out
}

// PendingDenoise reports whether any denoise job is still in flight.
func (p *Pipeline) PendingDenoise() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.denoise) > 0
}

// WaitIdle blocks until all dispatched background tasks have returned.
// Intended for shutdown and tests.
func (p *Pipeline) WaitIdle() { p.tracker.Wait() }
