// Package save implements the persisted document format: a versioned JSON
// envelope around the document's strokes, snippets, and settings. The
// envelope is pure data; callers decide where bytes go, and the path
// helpers here only add the atomic temp-then-rename dance.
package save

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"scribl/internal/audio"
	"scribl/internal/config"
	"scribl/internal/stroke"
)

// CurrentVersion is the format version this build writes.
const CurrentVersion = 1

// ErrVersionMismatch is returned when a file's version is newer than this
// build supports.
var ErrVersionMismatch = errors.New("save: format version newer than supported")

// ErrSchemaInvalid is returned when a file fails schema validation.
var ErrSchemaInvalid = errors.New("save: document does not match schema")

// State is the persisted subset of a document: content, not session state.
// Playhead, undo history, and in-flight jobs never serialize.
type State struct {
	Strokes  []stroke.Stroke `json:"strokes"`
	Snippets []audio.Snippet `json:"snippets"`
	Settings config.Settings `json:"settings"`
}

// File is the versioned on-disk envelope.
type File struct {
	Version int   `json:"version"`
	Scribl  State `json:"scribl"`
}

// New wraps a document snapshot in a current-version envelope.
func New(strokes []stroke.Stroke, snippets []audio.Snippet, settings config.Settings) File {
	if strokes == nil {
		strokes = []stroke.Stroke{}
	}
	if snippets == nil {
		snippets = []audio.Snippet{}
	}
	return File{
		Version: CurrentVersion,
		Scribl:  State{Strokes: strokes, Snippets: snippets, Settings: settings},
	}
}

// Encode serializes the envelope.
func Encode(f File) ([]byte, error) {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

// Decode parses, validates, and migrates a document. Files written by
// older versions pass through the registered migrations; a version newer
// than CurrentVersion fails with ErrVersionMismatch, and a payload that
// does not match the format schema fails with ErrSchemaInvalid. Decode
// never returns a partially valid document.
func Decode(data []byte) (File, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return File{}, fmt.Errorf("parse document: %w: %v", ErrSchemaInvalid, err)
	}

	version, ok := rawVersion(raw)
	if !ok {
		return File{}, fmt.Errorf("missing or non-integer version: %w", ErrSchemaInvalid)
	}
	if version > CurrentVersion {
		return File{}, fmt.Errorf("version %d (supported <= %d): %w", version, CurrentVersion, ErrVersionMismatch)
	}

	raw, err := migrate(raw, version)
	if err != nil {
		return File{}, err
	}

	if err := validate(raw); err != nil {
		return File{}, fmt.Errorf("%w: %v", ErrSchemaInvalid, err)
	}

	// Round-trip through JSON again so the typed decode sees the migrated
	// payload.
	migrated, err := json.Marshal(raw)
	if err != nil {
		return File{}, fmt.Errorf("re-encode migrated document: %w", err)
	}
	var f File
	if err := json.Unmarshal(migrated, &f); err != nil {
		return File{}, fmt.Errorf("decode document: %w: %v", ErrSchemaInvalid, err)
	}
	if err := f.Scribl.Settings.Validate(); err != nil {
		return File{}, fmt.Errorf("settings: %w: %v", ErrSchemaInvalid, err)
	}
	return f, nil
}

func rawVersion(raw map[string]any) (int, bool) {
	v, ok := raw["version"].(float64)
	if !ok || v != float64(int(v)) {
		return 0, false
	}
	return int(v), true
}

// WriteFile persists the envelope atomically: the bytes land in a temp
// file next to the target and replace it with a rename, so a crash never
// leaves a half-written document.
func WriteFile(path string, f File) error {
	data, err := Encode(f)
	if err != nil {
		return err
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}

// ReadFile reads and decodes a document from disk.
func ReadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read document: %w", err)
	}
	return Decode(data)
}
