package encode

import (
	"context"
	"fmt"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
	"gopkg.in/hraban/opus.v2"

	"scribl/internal/audio"
)

const (
	// Opus operates at 48 kHz; the mixdown is resampled up on the way in.
	opusSampleRate = 48000
	opusChannels   = 1

	// 20 ms frames.
	opusFrameSize = opusSampleRate / 50

	// DefaultOpusBitrate suits mono voice recordings.
	DefaultOpusBitrate = 64000

	oggPayloadType = 111
	oggSSRC        = 0x5343_5242
)

// Progress reports export progress as frames encoded out of the total.
type Progress func(done, total int)

// ExportOgg encodes the mixdown to an Ogg/Opus file at path. The context
// cancels a long export between frames; a cancelled export leaves a partial
// file behind for the caller to remove.
func ExportOgg(ctx context.Context, path string, pcm []int16, bitrate int, progress Progress) error {
	if len(pcm) == 0 {
		return fmt.Errorf("export ogg: empty mixdown")
	}
	if bitrate <= 0 {
		bitrate = DefaultOpusBitrate
	}

	resampled := audio.Resample(pcm, float64(audio.SampleRate)/float64(opusSampleRate))

	enc, err := opus.NewEncoder(opusSampleRate, opusChannels, opus.AppAudio)
	if err != nil {
		return fmt.Errorf("create opus encoder: %w", err)
	}
	if err := enc.SetBitrate(bitrate); err != nil {
		return fmt.Errorf("set opus bitrate: %w", err)
	}

	ogg, err := oggwriter.New(path, opusSampleRate, opusChannels)
	if err != nil {
		return fmt.Errorf("create ogg writer: %w", err)
	}
	defer ogg.Close()

	total := (len(resampled) + opusFrameSize - 1) / opusFrameSize
	frame := make([]int16, opusFrameSize)
	opusBuf := make([]byte, 4000)

	var seq uint16
	var timestamp uint32
	for f := 0; f < total; f++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("export ogg: %w", err)
		}

		// Last frame zero-pads to a full 20 ms.
		lo := f * opusFrameSize
		n := copy(frame, resampled[lo:min(lo+opusFrameSize, len(resampled))])
		for i := n; i < opusFrameSize; i++ {
			frame[i] = 0
		}

		written, err := enc.Encode(frame, opusBuf)
		if err != nil {
			return fmt.Errorf("encode frame %d: %w", f, err)
		}

		pkt := &rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				PayloadType:    oggPayloadType,
				SequenceNumber: seq,
				Timestamp:      timestamp,
				SSRC:           oggSSRC,
			},
			Payload: opusBuf[:written],
		}
		if err := ogg.WriteRTP(pkt); err != nil {
			return fmt.Errorf("write frame %d: %w", f, err)
		}

		seq++
		timestamp += opusFrameSize
		if progress != nil {
			progress(f+1, total)
		}
	}

	return ogg.Close()
}
