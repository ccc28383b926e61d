// Package asyncop tracks the status of background jobs so the editor can
// poll completion without blocking its command sequence.
//
// The tracker performs no computation of its own: jobs run on their own
// goroutines, operate only on data handed to them by ownership transfer, and
// communicate back exclusively through their terminal status here. The
// control sequence never waits on a job inline; it polls.
package asyncop

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"scribl/internal/logging"
)

// Tracker errors.
var (
	// ErrJobNotFinished is returned by Consume for a job that is still
	// pending. The caller retries later; nothing is mutated.
	ErrJobNotFinished = errors.New("asyncop: job not finished")

	// ErrUnknownJob is returned for ids that were never dispatched or were
	// already consumed or cancelled.
	ErrUnknownJob = errors.New("asyncop: unknown job")
)

// JobID identifies one dispatched background job.
type JobID string

// State is the lifecycle stage of a job.
type State int

const (
	// Pending means the job is dispatched but has not reported yet.
	Pending State = iota
	// Succeeded means the job reported success.
	Succeeded
	// Failed means the job reported an error.
	Failed
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Status is the observable status of a job. Reason is set only for Failed.
type Status struct {
	State  State
	Reason string
}

// Terminal reports whether the job has finished, either way.
func (s Status) Terminal() bool { return s.State != Pending }

type job struct {
	status Status
	cancel context.CancelFunc
}

// Tracker registers background jobs and records their terminal status.
// All methods are safe for concurrent use.
type Tracker struct {
	mu   sync.Mutex
	jobs map[JobID]*job
	wg   sync.WaitGroup
	log  *logging.Logger
}

// NewTracker returns an empty tracker.
func NewTracker(log *logging.Logger) *Tracker {
	if log == nil {
		log = logging.Default()
	}
	return &Tracker{
		jobs: make(map[JobID]*job),
		log:  log.WithComponent("asyncop"),
	}
}

// Dispatch registers a Pending entry and starts run on a new goroutine.
// It returns immediately; completion is observed via Poll.
func (t *Tracker) Dispatch(ctx context.Context, run func(ctx context.Context) error) JobID {
	id := JobID(uuid.NewString())
	jobCtx, cancel := context.WithCancel(ctx)

	t.mu.Lock()
	t.jobs[id] = &job{status: Status{State: Pending}, cancel: cancel}
	t.mu.Unlock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer cancel()
		t.report(id, run(jobCtx))
	}()

	t.log.Debug("job dispatched", "job_id", string(id))
	return id
}

// report records a job's terminal status. A job reports exactly once: a
// second report for a live id is a programming-contract violation and
// panics. Reports for ids that were cancelled or already consumed are
// discarded silently (the stale-result policy).
func (t *Tracker) report(id JobID, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	j, ok := t.jobs[id]
	if !ok {
		t.log.Debug("discarding stale job result", "job_id", string(id))
		return
	}
	if j.status.Terminal() {
		panic(fmt.Sprintf("asyncop: job %s reported twice", id))
	}
	if err != nil {
		j.status = Status{State: Failed, Reason: err.Error()}
		t.log.Warn("job failed", "job_id", string(id), "reason", err.Error())
	} else {
		j.status = Status{State: Succeeded}
		t.log.Debug("job succeeded", "job_id", string(id))
	}
}

// Poll returns the current status of a job without blocking.
func (t *Tracker) Poll(id JobID) (Status, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	j, ok := t.jobs[id]
	if !ok {
		return Status{}, ErrUnknownJob
	}
	return j.status, nil
}

// Consume removes a terminal entry and returns its status. Consuming a
// Pending entry is an error and leaves the entry in place.
func (t *Tracker) Consume(id JobID) (Status, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	j, ok := t.jobs[id]
	if !ok {
		return Status{}, ErrUnknownJob
	}
	if !j.status.Terminal() {
		return Status{}, ErrJobNotFinished
	}
	delete(t.jobs, id)
	return j.status, nil
}

// Cancel stops a job's context and forgets the entry. A completion arriving
// after Cancel is discarded silently.
func (t *Tracker) Cancel(id JobID) {
	t.mu.Lock()
	j, ok := t.jobs[id]
	if ok {
		delete(t.jobs, id)
	}
	t.mu.Unlock()

	if ok {
		j.cancel()
		t.log.Debug("job cancelled", "job_id", string(id))
	}
}

// Pending returns the ids of jobs that have not reported yet.
func (t *Tracker) Pending() []JobID {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []JobID
	for id, j := range t.jobs {
		if !j.status.Terminal() {
			out = append(out, id)
		}
	}
	return out
}

// Wait blocks until every dispatched goroutine has returned. Intended for
// shutdown and tests, not for the command sequence.
func (t *Tracker) Wait() { t.wg.Wait() }
