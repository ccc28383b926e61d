package audio

import (
	"context"
	"errors"
	"math"

	"scribl/internal/config"
)

// gateFrame is the number of samples classified together by the noise gate.
// About 10 ms at 44100 Hz.
const gateFrame = 480

// DefaultGateThreshold is the normalized RMS level below which a frame is
// treated as background noise.
const DefaultGateThreshold = 0.02

// lightAttenuation is the multiplier applied to noise frames in the light
// setting; the aggressive setting silences them outright.
const lightAttenuation = 0.25

// Denoise returns a gated copy of buf, leaving buf untouched. Frames whose
// normalized RMS falls below threshold are attenuated (light) or silenced
// (aggressive), with a one-frame linear fade at each transition to avoid
// clicks. Calling it with DenoiseOff or an empty buffer is an error: the
// pipeline must never dispatch a no-op job.
func Denoise(ctx context.Context, buf []int16, setting config.DenoiseSetting, threshold float64) ([]int16, error) {
	if setting == config.DenoiseOff {
		return nil, errors.New("audio: denoise dispatched with denoise off")
	}
	if len(buf) == 0 {
		return nil, errors.New("audio: denoise of empty buffer")
	}
	if threshold <= 0 {
		threshold = DefaultGateThreshold
	}

	floor := 0.0
	if setting == config.DenoiseLight {
		floor = lightAttenuation
	}

	// Per-frame gate decision: 1 for speech, floor for noise.
	nFrames := (len(buf) + gateFrame - 1) / gateFrame
	gains := make([]float64, nFrames)
	for f := 0; f < nFrames; f++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lo := f * gateFrame
		hi := min(lo+gateFrame, len(buf))
		if frameRMS(buf[lo:hi]) >= threshold {
			gains[f] = 1
		} else {
			gains[f] = floor
		}
	}

	out := make([]int16, len(buf))
	for i := range buf {
		f := i / gateFrame
		g := gains[f]
		// Linear fade across a frame whose neighbor has a different gain.
		if next := f + 1; next < nFrames && gains[next] != g {
			t := float64(i-f*gateFrame) / float64(gateFrame)
			g = g*(1-t) + gains[next]*t
		}
		out[i] = int16(float64(buf[i]) * g)
	}
	return out, nil
}

// frameRMS returns the RMS level of the frame normalized to [0, 1].
func frameRMS(frame []int16) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		v := float64(s) / 32768.0
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(frame)))
}
