package save

import (
	"fmt"
)

// A migration rewrites a version-v generic payload into version v+1 form.
// Migrations run in order until the payload reaches CurrentVersion, so a
// reader only ever decodes current-form documents.
type migration func(raw map[string]any) (map[string]any, error)

var migrations = map[int]migration{
	0: migrateV0,
}

func migrate(raw map[string]any, version int) (map[string]any, error) {
	for v := version; v < CurrentVersion; v++ {
		step, ok := migrations[v]
		if !ok {
			return nil, fmt.Errorf("no migration from version %d: %w", v, ErrVersionMismatch)
		}
		out, err := step(raw)
		if err != nil {
			return nil, fmt.Errorf("migrate v%d document: %w", v, err)
		}
		out["version"] = float64(v + 1)
		raw = out
	}
	return raw, nil
}

// migrateV0 handles documents written before snippets carried their own
// denoise setting: every snippet inherits the document-level setting, and
// snippets without a processing status are treated as final.
func migrateV0(raw map[string]any) (map[string]any, error) {
	scribl, ok := raw["scribl"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("missing scribl payload: %w", ErrSchemaInvalid)
	}

	denoise := "off"
	if settings, ok := scribl["settings"].(map[string]any); ok {
		if d, ok := settings["denoise"].(string); ok && d != "" {
			denoise = d
		}
	}

	snippets, _ := scribl["snippets"].([]any)
	for _, item := range snippets {
		snip, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if _, ok := snip["denoise"]; !ok {
			snip["denoise"] = denoise
		}
		if _, ok := snip["status"]; !ok {
			snip["status"] = "succeeded"
		}
		if _, ok := snip["gain"]; !ok {
			snip["gain"] = 1.0
		}
	}
	return raw, nil
}
