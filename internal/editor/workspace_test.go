package editor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "codeberg.org/codemate/server/internal/errors"
)

func newTestHost(t *testing.T) *WorkspaceHost {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.md"), []byte("hello"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "main.go"), []byte("package main\n"), 0o644))

	return NewWorkspaceHost(root)
}

func TestResolvePathRejectsTraversal(t *testing.T) {
	host := newTestHost(t)

	_, err := host.ResolvePath("../outside.txt")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrScoping)
}

func TestResolvePathRejectsAbsoluteEscape(t *testing.T) {
	host := newTestHost(t)

	_, err := host.ResolvePath("/etc/passwd")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrScoping)
}

func TestResolvePathAcceptsNestedFile(t *testing.T) {
	host := newTestHost(t)

	abs, err := host.ResolvePath("src/main.go")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(host.Root(), "src", "main.go"), abs)
}

func TestReadWriteRoundTrip(t *testing.T) {
	host := newTestHost(t)

	require.NoError(t, host.WriteFile("notes.md", "New content"))

	content, err := host.ReadFile("notes.md")
	require.NoError(t, err)
	assert.Equal(t, "New content", content)
}

func TestWriteFileScopingError(t *testing.T) {
	host := newTestHost(t)

	err := host.WriteFile("../escape.txt", "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrScoping)
	assert.NoFileExists(t, filepath.Join(filepath.Dir(host.Root()), "escape.txt"))
}

func TestReplaceRangeWholeFile(t *testing.T) {
	host := newTestHost(t)

	require.NoError(t, host.ReplaceRange("notes.md", Range{}, "replaced"))

	content, err := host.ReadFile("notes.md")
	require.NoError(t, err)
	assert.Equal(t, "replaced", content)
}

func TestReplaceRangeLines(t *testing.T) {
	host := newTestHost(t)
	require.NoError(t, host.WriteFile("multi.txt", "one\ntwo\nthree\nfour"))

	require.NoError(t, host.ReplaceRange("multi.txt", Range{StartLine: 2, EndLine: 3}, "TWO\nTHREE"))

	content, err := host.ReadFile("multi.txt")
	require.NoError(t, err)
	assert.Equal(t, "one\nTWO\nTHREE\nfour", content)
}

func TestReplaceRangeTrailingNewline(t *testing.T) {
	host := newTestHost(t)
	require.NoError(t, host.WriteFile("multi.txt", "one\ntwo\nthree\n"))

	// a single trailing newline on the replacement never becomes a blank line
	require.NoError(t, host.ReplaceRange("multi.txt", Range{StartLine: 2, EndLine: 2}, "TWO\n"))

	content, err := host.ReadFile("multi.txt")
	require.NoError(t, err)
	assert.Equal(t, "one\nTWO\nthree\n", content)
}

func TestReplaceRangeOutOfBounds(t *testing.T) {
	host := newTestHost(t)

	err := host.ReplaceRange("notes.md", Range{StartLine: 10, EndLine: 12}, "x")
	require.Error(t, err)
}

func TestListFilesSkipsHiddenAndCaps(t *testing.T) {
	host := newTestHost(t)
	require.NoError(t, os.WriteFile(filepath.Join(host.Root(), ".hidden"), []byte(""), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(host.Root(), "node_modules", "pkg"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(host.Root(), "node_modules", "pkg", "index.js"), []byte(""), 0o644))

	files, err := host.ListFiles(50)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"notes.md", "src/main.go"}, files)

	capped, err := host.ListFiles(1)
	require.NoError(t, err)
	assert.Len(t, capped, 1)
}

func TestSelectionRequiresCapturedText(t *testing.T) {
	host := newTestHost(t)

	_, ok := host.Selection()
	assert.False(t, ok)

	host.SetSelection(Selection{Path: "demo.ts", Text: "x=1", Range: Range{StartLine: 3, EndLine: 3}})

	sel, ok := host.Selection()
	require.True(t, ok)
	assert.Equal(t, "x=1", sel.Text)

	host.ClearSelection()
	_, ok = host.Selection()
	assert.False(t, ok)
}

func TestActiveFileLanguageID(t *testing.T) {
	host := newTestHost(t)

	host.SetActiveFile("src/main.go")

	doc, ok := host.ActiveFile()
	require.True(t, ok)
	assert.Equal(t, "go", doc.LanguageID)

	assert.Equal(t, "typescript", LanguageID("demo.ts"))
	assert.Equal(t, "plaintext", LanguageID("README"))
}

func TestWorkspaceInfo(t *testing.T) {
	host := newTestHost(t)

	info, ok := host.WorkspaceInfo()
	require.True(t, ok)
	assert.Equal(t, filepath.Base(host.Root()), info.Name)
	assert.Contains(t, info.Folders, "src")
}
