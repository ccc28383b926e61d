package save

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scribl/internal/audio"
	"scribl/internal/config"
	"scribl/internal/stroke"
	"scribl/internal/times"
)

func sampleState() ([]stroke.Stroke, []audio.Snippet, config.Settings) {
	strokes := []stroke.Stroke{
		{
			Points: []stroke.Point{
				{X: 0.1, Y: 0.2, T: times.FromSeconds(1)},
				{X: 0.3, Y: 0.4, T: times.FromSeconds(1.5)},
			},
			Width: 0.004,
			Color: "#ffffff",
		},
	}
	snippets := []audio.Snippet{
		{
			ID:       1,
			Start:    times.FromSeconds(0.5),
			Duration: times.FromSeconds(2).Sub(times.Zero),
			Speed:    config.SpeedNormal,
			Denoise:  config.DenoiseLight,
			Status:   audio.StatusSucceeded,
			Gain:     1,
			Buf:      []int16{0, 100, -100, 32767, -32768},
		},
	}
	return strokes, snippets, config.DefaultSettings()
}

func TestRoundTrip(t *testing.T) {
	strokes, snippets, settings := sampleState()
	f := New(strokes, snippets, settings)

	data, err := Encode(f)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, f, got)
}

func TestWriteReadFile(t *testing.T) {
	strokes, snippets, settings := sampleState()
	f := New(strokes, snippets, settings)
	path := filepath.Join(t.TempDir(), "doc.scb")

	require.NoError(t, WriteFile(path, f))
	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, f, got)

	// No temp file left behind.
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestDecodeRejectsNewerVersion(t *testing.T) {
	strokes, snippets, settings := sampleState()
	f := New(strokes, snippets, settings)
	f.Version = CurrentVersion + 1
	data, err := Encode(f)
	require.NoError(t, err)

	_, err = Decode(data)
	assert.ErrorIs(t, err, ErrVersionMismatch)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":        "{",
		"missing version": `{"scribl": {"strokes": [], "snippets": [], "settings": {}}}`,
		"bad color": `{
			"version": 1,
			"scribl": {
				"strokes": [{"points": [{"x": 0, "y": 0, "t": 0}], "width": 0.004, "color": "white"}],
				"snippets": [],
				"settings": {"pen_size": 0.004, "pen_color": "#ffffff", "recording_speed": 1, "denoise": "off"}
			}
		}`,
		"negative start": `{
			"version": 1,
			"scribl": {
				"strokes": [],
				"snippets": [{"id": 1, "start": -5, "duration": 0, "speed": 1, "denoise": "off", "status": "succeeded", "gain": 1, "buf": []}],
				"settings": {"pen_size": 0.004, "pen_color": "#ffffff", "recording_speed": 1, "denoise": "off"}
			}
		}`,
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(doc))
			assert.ErrorIs(t, err, ErrSchemaInvalid)
		})
	}
}

func TestMigrateV0(t *testing.T) {
	// Version 0 snippets carried no denoise, status, or gain fields.
	doc := `{
		"version": 0,
		"scribl": {
			"strokes": [],
			"snippets": [{"id": 1, "start": 0, "duration": 1000000, "speed": 1, "buf": [1, 2, 3]}],
			"settings": {"pen_size": 0.004, "pen_color": "#ffffff", "recording_speed": 1, "denoise": "light"}
		}
	}`

	f, err := Decode([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, f.Version)
	require.Len(t, f.Scribl.Snippets, 1)
	s := f.Scribl.Snippets[0]

	// The snippet inherits the document-level denoise setting and is
	// treated as already processed.
	assert.Equal(t, config.DenoiseLight, s.Denoise)
	assert.Equal(t, audio.StatusSucceeded, s.Status)
	assert.Equal(t, 1.0, s.Gain)
	assert.Equal(t, []int16{1, 2, 3}, s.Buf)

	// A migrated document equals one written directly at the current
	// version with the same content.
	direct := New(nil, []audio.Snippet{{
		ID:       1,
		Duration: times.FromSeconds(1).Sub(times.Zero),
		Speed:    config.SpeedNormal,
		Denoise:  config.DenoiseLight,
		Status:   audio.StatusSucceeded,
		Gain:     1,
		Buf:      []int16{1, 2, 3},
	}}, config.Settings{
		PenSize:        0.004,
		PenColor:       "#ffffff",
		RecordingSpeed: config.SpeedNormal,
		Denoise:        config.DenoiseLight,
	})
	assert.Equal(t, direct.Scribl, f.Scribl)
}
