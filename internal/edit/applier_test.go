package edit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/codemate/server/internal/editor"
	apperrors "codeberg.org/codemate/server/internal/errors"
)

func newTestHost(t *testing.T) (*editor.WorkspaceHost, string) {
	t.Helper()

	root := t.TempDir()

	return editor.NewWorkspaceHost(root), root
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()

	require.NoError(t, os.WriteFile(filepath.Join(root, rel), []byte(content), 0o644))
}

func readFile(t *testing.T, root, rel string) string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(root, rel))
	require.NoError(t, err)

	return string(data)
}

func TestExtractProposalStructured(t *testing.T) {
	text := "Here is the fix.\n\n```edit:v1\n{\"path\": \"src/main.go\"}\npackage main\n\nfunc main() {}\n```\n"

	p, ok := ExtractProposal(text)
	require.True(t, ok)
	assert.Equal(t, "src/main.go", p.Path)
	assert.Equal(t, "package main\n\nfunc main() {}", p.Code)
	assert.Empty(t, p.InlineTarget)
}

func TestExtractProposalStructuredBadHeaderFallsThrough(t *testing.T) {
	// a malformed header disqualifies the structured path; the plain-text
	// scan still finds nothing actionable here
	text := "```edit:v1\nnot json\ncode\n```"

	_, ok := ExtractProposal(text)
	assert.False(t, ok)
}

func TestExtractProposalReplaceContentMarker(t *testing.T) {
	text := "Replace content of notes.md with:\n```markdown\n# New notes\n```"

	p, ok := ExtractProposal(text)
	require.True(t, ok)
	assert.Equal(t, "notes.md", p.Path)
	assert.Equal(t, "# New notes", p.Code)
}

func TestExtractProposalInlineSelection(t *testing.T) {
	text := "Apply this to your selection:\n```go\nx := 2\n```"

	p, ok := ExtractProposal(text)
	require.True(t, ok)
	assert.Empty(t, p.Path)
	assert.Equal(t, TargetSelection, p.InlineTarget)
	assert.Equal(t, "x := 2", p.Code)
}

func TestExtractProposalInlineCurrentFile(t *testing.T) {
	text := "Here is the updated current file:\n```go\npackage main\n```"

	p, ok := ExtractProposal(text)
	require.True(t, ok)
	assert.Equal(t, TargetCurrentFile, p.InlineTarget)
}

func TestExtractProposalNoMarkerNoAffordance(t *testing.T) {
	_, ok := ExtractProposal("An example:\n```go\nfmt.Println(1)\n```")
	assert.False(t, ok)

	_, ok = ExtractProposal("No code here at all.")
	assert.False(t, ok)
}

func TestPreviewShowsLineDiff(t *testing.T) {
	host, root := newTestHost(t)
	writeFile(t, root, "main.go", "line one\nline two\n")

	a := NewApplier(host)

	diff, err := a.Preview("main.go", "line one\nline changed\n")
	require.NoError(t, err)

	assert.Contains(t, diff, "--- a/main.go")
	assert.Contains(t, diff, "+++ b/main.go")
	assert.Contains(t, diff, " line one")
	assert.Contains(t, diff, "-line two")
	assert.Contains(t, diff, "+line changed")

	// preview is repeatable and records nothing
	assert.False(t, a.HasPending())
}

func TestPreviewMissingFileIsAllAdditions(t *testing.T) {
	host, _ := newTestHost(t)
	a := NewApplier(host)

	diff, err := a.Preview("new.go", "package main\n")
	require.NoError(t, err)
	assert.Contains(t, diff, "+package main")
}

func TestPreviewScopingErrorPropagates(t *testing.T) {
	host, _ := newTestHost(t)
	a := NewApplier(host)

	_, err := a.Preview("../outside.go", "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrScoping)
}

func TestApplyThenUndoRestoresFile(t *testing.T) {
	host, root := newTestHost(t)
	writeFile(t, root, "notes.md", "original content")

	a := NewApplier(host)

	notice, err := a.Apply("notes.md", "new content")
	require.NoError(t, err)
	assert.Contains(t, notice, "notes.md")
	assert.Equal(t, "new content", readFile(t, root, "notes.md"))
	assert.True(t, a.HasPending())

	msg, ok := a.Undo()
	require.True(t, ok)
	assert.Contains(t, msg, "notes.md")
	assert.Equal(t, "original content", readFile(t, root, "notes.md"))
	assert.False(t, a.HasPending())
}

func TestApplyScopingErrorLeavesNoPending(t *testing.T) {
	host, _ := newTestHost(t)
	a := NewApplier(host)

	_, err := a.Apply("../escape.md", "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrScoping)
	assert.False(t, a.HasPending())
}

func TestUndoWithNothingPendingIsNoOp(t *testing.T) {
	host, _ := newTestHost(t)
	a := NewApplier(host)

	_, ok := a.Undo()
	assert.False(t, ok)

	// a second undo after a consumed one is equally inert
	writeFile(t, host.Root(), "f.txt", "a")
	_, err := a.Apply("f.txt", "b")
	require.NoError(t, err)

	_, ok = a.Undo()
	require.True(t, ok)

	_, ok = a.Undo()
	assert.False(t, ok)
}

func TestApplyInlineSelectionThenUndo(t *testing.T) {
	host, root := newTestHost(t)
	writeFile(t, root, "demo.ts", "a\nx=1\nc\n")

	host.SetSelection(editor.Selection{
		Path:  "demo.ts",
		Text:  "x=1",
		Range: editor.Range{StartLine: 2, EndLine: 2},
	})

	a := NewApplier(host)

	notice, err := a.ApplyInline(TargetSelection, "x=2")
	require.NoError(t, err)
	assert.Contains(t, notice, "demo.ts")
	assert.Equal(t, "a\nx=2\nc\n", readFile(t, root, "demo.ts"))

	msg, ok := a.Undo()
	require.True(t, ok)
	assert.Contains(t, msg, "demo.ts")
	assert.Equal(t, "a\nx=1\nc\n", readFile(t, root, "demo.ts"))
}

func TestApplyInlineTrailingNewlineThenUndo(t *testing.T) {
	host, root := newTestHost(t)
	writeFile(t, root, "demo.ts", "a\nx=1\nc\n")

	host.SetSelection(editor.Selection{
		Path:  "demo.ts",
		Text:  "x=1",
		Range: editor.Range{StartLine: 2, EndLine: 2},
	})

	a := NewApplier(host)

	// assistant code blocks usually end with a newline; it must not become
	// an extra blank line in the file or survive the undo
	_, err := a.ApplyInline(TargetSelection, "x=2\n")
	require.NoError(t, err)
	assert.Equal(t, "a\nx=2\nc\n", readFile(t, root, "demo.ts"))

	_, ok := a.Undo()
	require.True(t, ok)
	assert.Equal(t, "a\nx=1\nc\n", readFile(t, root, "demo.ts"))
}

func TestApplyInlineSelectionUndoIsIdempotentAcrossRepeats(t *testing.T) {
	host, root := newTestHost(t)
	original := "a\nx=1\nc\n"
	writeFile(t, root, "demo.ts", original)

	sel := editor.Selection{
		Path:  "demo.ts",
		Text:  "x=1",
		Range: editor.Range{StartLine: 2, EndLine: 2},
	}

	a := NewApplier(host)

	for range 2 {
		host.SetSelection(sel)

		_, err := a.ApplyInline(TargetSelection, "x=2")
		require.NoError(t, err)

		_, ok := a.Undo()
		require.True(t, ok)
	}

	assert.Equal(t, original, readFile(t, root, "demo.ts"))
}

func TestApplyInlineMultilineReplacement(t *testing.T) {
	host, root := newTestHost(t)
	writeFile(t, root, "demo.ts", "a\nx=1\nc\n")

	host.SetSelection(editor.Selection{
		Path:  "demo.ts",
		Text:  "x=1",
		Range: editor.Range{StartLine: 2, EndLine: 2},
	})

	a := NewApplier(host)

	_, err := a.ApplyInline(TargetSelection, "x=1\ny=2")
	require.NoError(t, err)
	assert.Equal(t, "a\nx=1\ny=2\nc\n", readFile(t, root, "demo.ts"))

	_, ok := a.Undo()
	require.True(t, ok)
	assert.Equal(t, "a\nx=1\nc\n", readFile(t, root, "demo.ts"))
}

func TestApplyInlineSelectionWithoutSelection(t *testing.T) {
	host, _ := newTestHost(t)
	a := NewApplier(host)

	_, err := a.ApplyInline(TargetSelection, "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrResolutionMiss)
	assert.Contains(t, err.Error(), "no active selection")
}

func TestApplyInlineCurrentFileThenUndo(t *testing.T) {
	host, root := newTestHost(t)
	writeFile(t, root, "app.py", "print('old')\n")
	host.SetActiveFile("app.py")

	a := NewApplier(host)

	_, err := a.ApplyInline(TargetCurrentFile, "print('new')\n")
	require.NoError(t, err)
	assert.Equal(t, "print('new')\n", readFile(t, root, "app.py"))

	_, ok := a.Undo()
	require.True(t, ok)
	assert.Equal(t, "print('old')\n", readFile(t, root, "app.py"))
}

func TestApplyInlineUnknownTarget(t *testing.T) {
	host, _ := newTestHost(t)
	a := NewApplier(host)

	_, err := a.ApplyInline("clipboard", "x")
	require.Error(t, err)
}

func TestNewerApplyReplacesOlderPending(t *testing.T) {
	host, root := newTestHost(t)
	writeFile(t, root, "one.txt", "first")
	writeFile(t, root, "two.txt", "second")

	a := NewApplier(host)

	_, err := a.Apply("one.txt", "changed one")
	require.NoError(t, err)

	_, err = a.Apply("two.txt", "changed two")
	require.NoError(t, err)

	// only the most recent target stays alive for undo
	_, ok := a.Undo()
	require.True(t, ok)
	assert.Equal(t, "second", readFile(t, root, "two.txt"))
	assert.Equal(t, "changed one", readFile(t, root, "one.txt"))
}
