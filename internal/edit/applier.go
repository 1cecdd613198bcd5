package edit

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/sergi/go-diff/diffmatchpatch"

	"codeberg.org/codemate/server/internal/editor"
	apperrors "codeberg.org/codemate/server/internal/errors"
	"codeberg.org/codemate/server/internal/logger"
)

// PendingEdit is the minimal state needed to reverse exactly one applied
// edit: the target, the line range the new code occupies, and the content
// it replaced. At most one is actionable at a time; a newer apply replaces
// the older one.
type PendingEdit struct {
	TargetPath      string
	Range           editor.Range
	PreviousContent string

	generation uint64
}

// Applier extracts assistant code into workspace files and remembers
// enough to undo the most recent apply once.
type Applier struct {
	mu         sync.Mutex
	host       editor.Host
	pending    *PendingEdit
	generation uint64
}

func NewApplier(host editor.Host) *Applier {
	return &Applier{host: host}
}

// Preview renders a line diff of the file's current content against the
// proposed content. It never mutates state, so a surface can show the diff
// repeatedly before deciding to apply or cancel.
func (a *Applier) Preview(path, newContent string) (string, error) {
	current, err := a.host.ReadFile(path)
	if err != nil {
		// a missing file previews as all-additions; scoping errors propagate
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}

		current = ""
	}

	return renderDiff(path, current, newContent), nil
}

// Apply writes the proposed content to the path and records a PendingEdit
// for the whole file. The write goes through the Editor Host, so the same
// workspace containment check as /edit applies.
func (a *Applier) Apply(path, newContent string) (string, error) {
	previous, err := a.host.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}

		previous = ""
	}

	if err := a.host.WriteFile(path, newContent); err != nil {
		return "", err
	}

	a.recordPending(PendingEdit{
		TargetPath:      path,
		PreviousContent: previous,
	})

	logger.Info("applied edit", "path", path, "bytes", len(newContent))

	return fmt.Sprintf("Applied changes to %s. Type 'undo' to revert.", path), nil
}

// ApplyInline writes a code block over the active selection or the whole
// active file and records a PendingEdit for the exact region replaced.
func (a *Applier) ApplyInline(target, code string) (string, error) {
	switch target {
	case TargetSelection:
		return a.applyToSelection(code)
	case TargetCurrentFile:
		return a.applyToActiveFile(code)
	default:
		return "", fmt.Errorf("unknown inline apply target %q", target)
	}
}

func (a *Applier) applyToSelection(code string) (string, error) {
	sel, ok := a.host.Selection()
	if !ok {
		return "", fmt.Errorf("%w: no active selection to apply the code to", apperrors.ErrResolutionMiss)
	}

	if err := a.host.ReplaceRange(sel.Path, sel.Range, code); err != nil {
		return "", err
	}

	// the replacement may occupy a different number of lines than the
	// selection did; the pending range tracks the new extent so undo
	// replaces exactly the inserted code
	applied := editor.Range{
		StartLine: sel.Range.StartLine,
		EndLine:   sel.Range.StartLine + lineCount(code) - 1,
	}

	a.recordPending(PendingEdit{
		TargetPath:      sel.Path,
		Range:           applied,
		PreviousContent: sel.Text,
	})

	logger.Info("applied inline edit to selection",
		"path", sel.Path,
		"start_line", sel.Range.StartLine,
		"end_line", sel.Range.EndLine,
	)

	return fmt.Sprintf("Applied changes to selection in %s. Type 'undo' to revert.", sel.Path), nil
}

func (a *Applier) applyToActiveFile(code string) (string, error) {
	doc, ok := a.host.ActiveFile()
	if !ok {
		return "", fmt.Errorf("%w: no active file to apply the code to", apperrors.ErrResolutionMiss)
	}

	previous, err := a.host.ReadFile(doc.Path)
	if err != nil {
		return "", err
	}

	if err := a.host.WriteFile(doc.Path, code); err != nil {
		return "", err
	}

	a.recordPending(PendingEdit{
		TargetPath:      doc.Path,
		PreviousContent: previous,
	})

	logger.Info("applied inline edit to active file", "path", doc.Path)

	return fmt.Sprintf("Applied changes to %s. Type 'undo' to revert.", doc.Path), nil
}

// Undo reverts the recorded PendingEdit and clears it. With nothing
// pending it reports false and changes nothing, so a second undo is a
// defined no-op.
func (a *Applier) Undo() (string, bool) {
	a.mu.Lock()
	pending := a.pending
	a.pending = nil
	a.mu.Unlock()

	if pending == nil {
		return "", false
	}

	if err := a.host.ReplaceRange(pending.TargetPath, pending.Range, pending.PreviousContent); err != nil {
		logger.ErrorErr(err, "failed to undo edit", "path", pending.TargetPath)
		return fmt.Sprintf("Failed to undo changes to %s: %v", pending.TargetPath, err), true
	}

	logger.Info("undid edit", "path", pending.TargetPath)

	return fmt.Sprintf("Reverted changes to %s.", pending.TargetPath), true
}

// whether an undo opportunity currently exists
func (a *Applier) HasPending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.pending != nil
}

func (a *Applier) recordPending(p PendingEdit) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.generation++
	p.generation = a.generation
	a.pending = &p
}

// line diff rendered in unified style: context, removals, additions
func renderDiff(path, before, after string) string {
	dmp := diffmatchpatch.New()
	beforeChars, afterChars, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(beforeChars, afterChars, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- a/%s\n+++ b/%s\n", path, path)

	for _, diff := range diffs {
		prefix := " "

		switch diff.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}

		chunkLines := strings.Split(diff.Text, "\n")
		if len(chunkLines) > 0 && chunkLines[len(chunkLines)-1] == "" {
			chunkLines = chunkLines[:len(chunkLines)-1]
		}

		for _, line := range chunkLines {
			sb.WriteString(prefix)
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func lineCount(text string) int {
	if text == "" {
		return 1
	}

	return strings.Count(strings.TrimSuffix(text, "\n"), "\n") + 1
}
