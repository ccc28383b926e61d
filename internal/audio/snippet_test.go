package audio

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scribl/internal/config"
	"scribl/internal/times"
)

func TestSnippetsReserveMonotonic(t *testing.T) {
	sn := NewSnippets()

	a := sn.Reserve()
	b := sn.Reserve()
	require.Greater(t, b, a)

	// Removing a snippet never frees its id for reuse.
	require.NoError(t, sn.Insert(Snippet{ID: b, Gain: 1, Buf: []int16{1}, Status: StatusSucceeded}))
	_, err := sn.Remove(b)
	require.NoError(t, err)
	c := sn.Reserve()
	assert.Greater(t, c, b)
}

func TestSnippetsInsertGetIsolation(t *testing.T) {
	sn := NewSnippets()
	id := sn.Reserve()
	buf := []int16{1, 2, 3}
	require.NoError(t, sn.Insert(Snippet{ID: id, Gain: 1, Buf: buf, Status: StatusSucceeded, Speed: config.SpeedNormal}))

	// Mutating the caller's slice must not touch the stored snippet.
	buf[0] = 99
	got, err := sn.Get(id)
	require.NoError(t, err)
	assert.Equal(t, int16(1), got.Buf[0])

	// And mutating the returned copy must not touch the store either.
	got.Buf[1] = 77
	again, err := sn.Get(id)
	require.NoError(t, err)
	assert.Equal(t, int16(2), again.Buf[1])
}

func TestSwapBufferAtomic(t *testing.T) {
	sn := NewSnippets()
	id := sn.Reserve()
	require.NoError(t, sn.Insert(Snippet{ID: id, Gain: 1, Buf: []int16{1, 2}, Status: StatusPending, Speed: config.SpeedNormal}))

	prev, prevStatus, err := sn.SwapBuffer(id, []int16{9, 8}, StatusSucceeded)
	require.NoError(t, err)
	assert.Equal(t, []int16{1, 2}, prev)
	assert.Equal(t, StatusPending, prevStatus)

	got, err := sn.Get(id)
	require.NoError(t, err)
	assert.Equal(t, []int16{9, 8}, got.Buf)
	assert.Equal(t, StatusSucceeded, got.Status)
}

func TestMixToGainAndPlacement(t *testing.T) {
	sn := NewSnippets()
	id := sn.Reserve()
	buf := make([]int16, SampleRate) // one second of full-scale-ish signal
	for i := range buf {
		buf[i] = 1000
	}
	require.NoError(t, sn.Insert(Snippet{
		ID:     id,
		Start:  times.FromSeconds(1),
		Gain:   0.5,
		Buf:    buf,
		Status: StatusSucceeded,
		Speed:  config.SpeedNormal,
	}))

	out := make([]int16, 2*SampleRate)
	sn.MixTo(out, 0)

	// Silence before the snippet starts, attenuated signal after.
	assert.Equal(t, int16(0), out[SampleRate-1])
	assert.Equal(t, int16(500), out[SampleRate])
	assert.Equal(t, int16(500), out[2*SampleRate-1])
}

func TestMixToSaturates(t *testing.T) {
	sn := NewSnippets()
	for i := 0; i < 2; i++ {
		id := sn.Reserve()
		buf := []int16{math.MaxInt16, math.MinInt16}
		require.NoError(t, sn.Insert(Snippet{ID: id, Gain: 1, Buf: buf, Status: StatusSucceeded, Speed: config.SpeedNormal}))
	}

	out := make([]int16, 2)
	sn.MixTo(out, 0)
	assert.Equal(t, int16(math.MaxInt16), out[0])
	assert.Equal(t, int16(math.MinInt16), out[1])
}

func TestMixToSpeedStretches(t *testing.T) {
	sn := NewSnippets()
	id := sn.Reserve()
	// Half-speed recording plays back over twice as many samples.
	require.NoError(t, sn.Insert(Snippet{
		ID:     id,
		Gain:   1,
		Buf:    make([]int16, SampleRate),
		Status: StatusSucceeded,
		Speed:  config.RecordingSpeed(0.5),
	}))

	s, err := sn.Get(id)
	require.NoError(t, err)
	assert.Equal(t, times.FromSeconds(2), s.End())
}

func TestResample(t *testing.T) {
	t.Run("identity at factor one", func(t *testing.T) {
		in := []int16{1, 2, 3, 4}
		out := Resample(in, 1)
		assert.Equal(t, in, out)
		out[0] = 42
		assert.Equal(t, int16(1), in[0])
	})

	t.Run("half factor doubles length", func(t *testing.T) {
		in := []int16{0, 99}
		out := Resample(in, 0.5)
		require.Len(t, out, 4)
		assert.Equal(t, int16(0), out[0])
		assert.Equal(t, int16(33), out[1])
		assert.Equal(t, int16(66), out[2])
		assert.Equal(t, int16(99), out[3])
	})
}

func TestDenoise(t *testing.T) {
	ctx := context.Background()

	noisy := make([]int16, 4*gateFrame)
	for i := range noisy {
		noisy[i] = 100 // well below the gate threshold
	}
	loud := make([]int16, 4*gateFrame)
	for i := range loud {
		loud[i] = 20000
	}

	t.Run("off is an error", func(t *testing.T) {
		_, err := Denoise(ctx, noisy, config.DenoiseOff, DefaultGateThreshold)
		assert.Error(t, err)
	})

	t.Run("empty buffer is an error", func(t *testing.T) {
		_, err := Denoise(ctx, nil, config.DenoiseLight, DefaultGateThreshold)
		assert.Error(t, err)
	})

	t.Run("aggressive silences quiet frames", func(t *testing.T) {
		out, err := Denoise(ctx, noisy, config.DenoiseAggressive, DefaultGateThreshold)
		require.NoError(t, err)
		require.Len(t, out, len(noisy))
		// Interior frames are fully gated; edges may carry fade.
		assert.Equal(t, int16(0), out[2*gateFrame])
	})

	t.Run("light attenuates quiet frames", func(t *testing.T) {
		out, err := Denoise(ctx, noisy, config.DenoiseLight, DefaultGateThreshold)
		require.NoError(t, err)
		assert.Equal(t, int16(25), out[2*gateFrame])
	})

	t.Run("loud frames pass through", func(t *testing.T) {
		out, err := Denoise(ctx, loud, config.DenoiseAggressive, DefaultGateThreshold)
		require.NoError(t, err)
		assert.Equal(t, int16(20000), out[2*gateFrame])
	})

	t.Run("cancellation", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := Denoise(cancelled, noisy, config.DenoiseLight, DefaultGateThreshold)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
