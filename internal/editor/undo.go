package editor

import (
	"errors"
	"fmt"

	"scribl/internal/audio"
	"scribl/internal/stroke"
	"scribl/internal/times"
	"scribl/internal/transport"
)

// ErrUndoStackEmpty is returned by Undo and Redo when there is nothing to
// apply. The document is not mutated.
var ErrUndoStackEmpty = errors.New("editor: undo stack empty")

// maxUndo bounds the history; the oldest permanent unit is dropped when a
// new one would exceed it.
const maxUndo = 128

// editKind discriminates the inverse-operation variants kept on the undo
// stack. Each edit records both directions so undo and redo are pure
// lookups, never recomputation.
type editKind int

const (
	// editCommitStroke records a stroke commit; undo removes it.
	editCommitStroke editKind = iota
	// editCreateSnippet records a finished recording; undo removes the
	// snippet.
	editCreateSnippet
	// editDeleteSnippet records a snippet deletion; undo restores it.
	editDeleteSnippet
	// editSwapBuffer records an applied denoise result; undo restores the
	// original capture.
	editSwapBuffer
	// editSetZoom records a zoom change.
	editSetZoom
	// editShiftSnippet records a timeline move.
	editShiftSnippet
)

// edit is one reversible mutation. Only the fields its kind names are set.
type edit struct {
	kind editKind

	strokeRef stroke.Ref
	stroke    stroke.Stroke

	snippet   audio.Snippet
	snippetID audio.SnippetID

	prevBuf    []int16
	prevStatus audio.Status
	nextBuf    []int16
	nextStatus audio.Status

	shift times.Diff

	zoomPrev float64
	zoomNext float64
}

// unit is one undoable step: usually a single edit, but a recording take
// collapses its stroke commits and snippet creation into one unit.
// Transient units exist only while their recording runs.
type unit struct {
	edits     []edit
	transient bool
}

// history is a linear undo/redo stack pair. Redo entries are discarded
// whenever a new unit is pushed.
type history struct {
	undo []unit
	redo []unit
}

func newHistory() *history {
	return &history{}
}

func (h *history) push(u unit) {
	h.undo = append(h.undo, u)
	h.redo = nil
	if len(h.undo) > maxUndo {
		h.undo = h.undo[1:]
	}
}

// collapseTransients folds every trailing transient unit, plus any extra
// edits, into one permanent unit in commit order. Called when a recording
// stops so the whole take undoes as one step. With no transients and no
// extras it is a no-op.
func (h *history) collapseTransients(extra ...edit) {
	i := len(h.undo)
	for i > 0 && h.undo[i-1].transient {
		i--
	}
	var edits []edit
	for _, u := range h.undo[i:] {
		edits = append(edits, u.edits...)
	}
	edits = append(edits, extra...)
	h.undo = h.undo[:i]
	if len(edits) > 0 {
		h.push(unit{edits: edits})
	}
}

func (h *history) popUndo() (unit, error) {
	if len(h.undo) == 0 {
		return unit{}, ErrUndoStackEmpty
	}
	u := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, u)
	return u, nil
}

func (h *history) popRedo() (unit, error) {
	if len(h.redo) == 0 {
		return unit{}, ErrUndoStackEmpty
	}
	u := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, u)
	return u, nil
}

// Undo reverses the most recent undoable unit. Fails with
// ErrUndoStackEmpty when there is nothing to undo; the document is
// untouched on failure. Allowed while idle or recording (strokes of the
// running take undo individually); any other action rejects with
// ErrActionConflict, since undoing a snippet mid-play or mid-denoise would
// pull state out from under the transport.
func (e *Editor) Undo() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkUndoAction("undo"); err != nil {
		return err
	}

	u, err := e.history.popUndo()
	if err != nil {
		return err
	}
	// Inverses apply in reverse commit order.
	for i := len(u.edits) - 1; i >= 0; i-- {
		if err := e.applyInverse(u.edits[i]); err != nil {
			return err
		}
	}
	return nil
}

// Redo re-applies the most recently undone unit. Fails with
// ErrUndoStackEmpty when there is nothing to redo, and with
// ErrActionConflict under the same gating as Undo.
func (e *Editor) Redo() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkUndoAction("redo"); err != nil {
		return err
	}

	u, err := e.history.popRedo()
	if err != nil {
		return err
	}
	for _, ed := range u.edits {
		if err := e.applyForward(ed); err != nil {
			return err
		}
	}
	return nil
}

// checkUndoAction enforces the history's action gate under the command
// mutex.
func (e *Editor) checkUndoAction(verb string) error {
	k := e.tr.Action().Kind
	if k != transport.Idle && k != transport.Recording {
		return fmt.Errorf("%s while %s: %w", verb, k, transport.ErrActionConflict)
	}
	return nil
}

func (e *Editor) applyInverse(ed edit) error {
	switch ed.kind {
	case editCommitStroke:
		_, err := e.strokes.Remove(ed.strokeRef)
		return err
	case editCreateSnippet:
		e.pipeline.CancelDenoise(ed.snippet.ID)
		_, err := e.pipeline.Snippets().Remove(ed.snippet.ID)
		return err
	case editDeleteSnippet:
		return e.pipeline.Snippets().Insert(ed.snippet)
	case editSwapBuffer:
		_, _, err := e.pipeline.Snippets().SwapBuffer(ed.snippetID, ed.prevBuf, ed.prevStatus)
		return err
	case editSetZoom:
		e.zoom = ed.zoomPrev
		return nil
	case editShiftSnippet:
		return e.pipeline.Snippets().Shift(ed.snippetID, -ed.shift)
	default:
		return fmt.Errorf("editor: unknown edit kind %d", ed.kind)
	}
}

func (e *Editor) applyForward(ed edit) error {
	switch ed.kind {
	case editCommitStroke:
		e.strokes.Restore(ed.strokeRef, ed.stroke)
		return nil
	case editCreateSnippet:
		return e.pipeline.Snippets().Insert(ed.snippet)
	case editDeleteSnippet:
		e.pipeline.CancelDenoise(ed.snippet.ID)
		_, err := e.pipeline.Snippets().Remove(ed.snippet.ID)
		return err
	case editSwapBuffer:
		_, _, err := e.pipeline.Snippets().SwapBuffer(ed.snippetID, ed.nextBuf, ed.nextStatus)
		return err
	case editSetZoom:
		e.zoom = ed.zoomNext
		return nil
	case editShiftSnippet:
		return e.pipeline.Snippets().Shift(ed.snippetID, ed.shift)
	default:
		return fmt.Errorf("editor: unknown edit kind %d", ed.kind)
	}
}
