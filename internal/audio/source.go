package audio

import (
	"errors"
	"io"
	"math"
	"sync"
	"time"
)

// ErrDeviceUnavailable is returned when no capture source can be acquired.
var ErrDeviceUnavailable = errors.New("audio: input device unavailable")

// Source delivers captured PCM samples. Raw device I/O lives behind this
// interface; the engine itself never talks to hardware. Read follows the
// io.Reader contract (returns io.EOF when the source is exhausted).
type Source interface {
	Read(p []int16) (int, error)
	Close() error
}

// Device acquires capture sources by name. The empty name selects the
// system default. Acquisition failures surface as ErrDeviceUnavailable.
type Device interface {
	Open(name string) (Source, error)
}

// SimulatedDevice is a Device producing synthetic capture data. It backs
// tests and the demo command; a real input driver is an external
// collaborator wired in by the embedding application.
type SimulatedDevice struct {
	// Unavailable makes every Open fail, for exercising the
	// device-unavailable path.
	Unavailable bool

	// Samples, when non-nil, is returned by sources verbatim. Otherwise
	// sources generate a 440 Hz tone indefinitely.
	Samples []int16
}

// Open returns a new simulated source.
func (d *SimulatedDevice) Open(name string) (Source, error) {
	if d.Unavailable {
		return nil, ErrDeviceUnavailable
	}
	if d.Samples != nil {
		buf := make([]int16, len(d.Samples))
		copy(buf, d.Samples)
		return &bufferSource{samples: buf}, nil
	}
	return &toneSource{}, nil
}

// bufferSource replays a fixed sample buffer, then reports io.EOF.
type bufferSource struct {
	mu      sync.Mutex
	samples []int16
	pos     int
	closed  bool
}

func (s *bufferSource) Read(p []int16) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.pos >= len(s.samples) {
		return 0, io.EOF
	}
	n := copy(p, s.samples[s.pos:])
	s.pos += n
	return n, nil
}

func (s *bufferSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// toneSource generates a quiet 440 Hz sine indefinitely, paced to real
// time the way a live input device delivers samples.
type toneSource struct {
	mu     sync.Mutex
	phase  float64
	closed bool
}

func (s *toneSource) Read(p []int16) (int, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, io.EOF
	}
	const step = 2 * math.Pi * 440 / SampleRate
	for i := range p {
		p[i] = int16(0.1 * 32767 * math.Sin(s.phase))
		s.phase += step
	}
	s.mu.Unlock()

	time.Sleep(time.Duration(len(p)) * time.Second / SampleRate)
	return len(p), nil
}

func (s *toneSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
