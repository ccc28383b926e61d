// Package encode exports a document's mixed soundtrack to standard audio
// containers: WAV for raw interchange and Ogg/Opus for compact sharing.
package encode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"scribl/internal/audio"
	"scribl/internal/times"
)

const (
	wavChannels       = 1
	wavBytesPerSample = 2
	wavBitsPerSample  = 16
)

// Mixdown renders the full document soundtrack from time zero through the
// last audible sample.
func Mixdown(snippets *audio.Snippets) []int16 {
	n := snippets.EndTime().AsAudioIdx(audio.SampleRate)
	if n == 0 {
		return nil
	}
	out := make([]int16, n)
	snippets.MixTo(out, times.Zero)
	return out
}

// WriteWAV writes pcm as a mono 16-bit RIFF/WAVE stream at the document
// sample rate.
func WriteWAV(w io.Writer, pcm []int16) error {
	data := make([]byte, len(pcm)*wavBytesPerSample)
	for i, s := range pcm {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}

	var buf bytes.Buffer
	bps := audio.SampleRate * wavChannels * wavBytesPerSample

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(data)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(wavChannels))
	binary.Write(&buf, binary.LittleEndian, uint32(audio.SampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(bps))
	binary.Write(&buf, binary.LittleEndian, uint16(wavChannels*wavBytesPerSample))
	binary.Write(&buf, binary.LittleEndian, uint16(wavBitsPerSample))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	return nil
}
