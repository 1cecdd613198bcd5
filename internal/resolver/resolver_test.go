package resolver

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/codemate/server/internal/editor"
)

func newTestHost(t *testing.T) *editor.WorkspaceHost {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "demo.ts"), []byte("let x = 1\n"), 0o644))

	return editor.NewWorkspaceHost(root)
}

func TestResolveSelectionMarker(t *testing.T) {
	host := newTestHost(t)
	host.SetSelection(editor.Selection{
		Path:  "demo.ts",
		Text:  "x=1",
		Range: editor.Range{StartLine: 3, EndLine: 3},
	})

	result := New(host).Resolve("fix [selection]", nil, nil)

	assert.Contains(t, result.DisplayText, "**📝 demo.ts:3-3**")
	assert.NotContains(t, result.DisplayText, "[selection]")

	// the provider-facing prompt re-embeds the raw question and carries the
	// selection content inside a fenced context block
	assert.Contains(t, result.PromptText, "Context:")
	assert.Contains(t, result.PromptText, "```\nx=1\n```")
	assert.Contains(t, result.PromptText, "Question:\nfix [selection]")

	require.Len(t, result.Used, 1)
	assert.Equal(t, KindSelection, result.Used[0].Kind)
}

func TestResolveSelectionMarkerWithoutSelection(t *testing.T) {
	host := newTestHost(t)

	result := New(host).Resolve("fix [selection]", nil, nil)

	assert.Equal(t, "fix (no active selection)", result.DisplayText)
	assert.Equal(t, "fix [selection]", result.PromptText, "no context resolved, prompt stays raw")
	assert.Empty(t, result.Used)
}

func TestResolveFileMarker(t *testing.T) {
	host := newTestHost(t)
	host.SetActiveFile("demo.ts")

	result := New(host).Resolve("explain [file]", nil, nil)

	assert.Contains(t, result.DisplayText, "**📄 demo.ts**")
	assert.Contains(t, result.PromptText, "let x = 1")
	require.Len(t, result.Used, 1)
	assert.Equal(t, KindFile, result.Used[0].Kind)
}

func TestResolveFileMarkerWithoutActiveFileIsSkipped(t *testing.T) {
	host := newTestHost(t)

	result := New(host).Resolve("explain [file]", nil, nil)

	// no resolvable source: the file marker is skipped silently, unlike the
	// selection marker which degrades to a visible note
	assert.Equal(t, "explain [file]", result.DisplayText)
	assert.Empty(t, result.Used)
}

func TestResolveWorkspaceMarker(t *testing.T) {
	host := newTestHost(t)

	result := New(host).Resolve("describe [workspace]", nil, nil)

	assert.Contains(t, result.DisplayText, "**📁 ")
	assert.Contains(t, result.PromptText, "Workspace: ")
	require.Len(t, result.Used, 1)
	assert.Equal(t, KindWorkspace, result.Used[0].Kind)
}

func TestResolveMarkerOrderIsFixed(t *testing.T) {
	host := newTestHost(t)
	host.SetActiveFile("demo.ts")
	host.SetSelection(editor.Selection{
		Path:  "demo.ts",
		Text:  "x=1",
		Range: editor.Range{StartLine: 1, EndLine: 1},
	})

	result := New(host).Resolve("[workspace] [file] [selection]", nil, nil)

	require.Len(t, result.Used, 3)
	assert.Equal(t, KindSelection, result.Used[0].Kind)
	assert.Equal(t, KindFile, result.Used[1].Kind)
	assert.Equal(t, KindWorkspace, result.Used[2].Kind)
}

func TestResolveFileBubbleRereadsAtSendTime(t *testing.T) {
	host := newTestHost(t)

	bubble := ContextItem{
		Icon:    IconFile,
		Name:    "demo.ts",
		Path:    "demo.ts",
		Content: "stale content",
		Kind:    KindFile,
	}

	result := New(host).Resolve("check this", []ContextItem{bubble}, nil)

	require.Len(t, result.Used, 1)
	assert.Equal(t, "let x = 1\n", result.Used[0].Content)
	assert.NotContains(t, result.PromptText, "stale content")
}

func TestResolveSelectionBubbleKeepsCapturedContent(t *testing.T) {
	host := newTestHost(t)

	bubble := ContextItem{
		Icon:    IconSelection,
		Name:    "demo.ts:1-1",
		Content: "captured at selection time",
		Kind:    KindSelection,
	}

	result := New(host).Resolve("check this", []ContextItem{bubble}, nil)

	require.Len(t, result.Used, 1)
	assert.Equal(t, "captured at selection time", result.Used[0].Content)
}

func TestResolveMissingFileBubbleIsDropped(t *testing.T) {
	host := newTestHost(t)

	bubble := ContextItem{
		Icon: IconFile,
		Name: "gone.ts",
		Path: "gone.ts",
		Kind: KindFile,
	}

	result := New(host).Resolve("check this", []ContextItem{bubble}, nil)

	assert.Empty(t, result.Used)
	assert.Equal(t, "check this", result.PromptText)
}

func TestResolveInlineReferences(t *testing.T) {
	host := newTestHost(t)

	inline := map[string]string{
		"foo.ts:10-20": "function foo() {}",
	}

	result := New(host).Resolve("refactor foo.ts:10-20 please", nil, inline)

	assert.Contains(t, result.DisplayText, "**📝 foo.ts:10-20**")
	assert.Contains(t, result.PromptText, "function foo() {}")
	require.Len(t, result.Used, 1)
}

func TestResolvePromptTemplateShape(t *testing.T) {
	host := newTestHost(t)
	host.SetSelection(editor.Selection{
		Path:  "demo.ts",
		Text:  "x=1",
		Range: editor.Range{StartLine: 3, EndLine: 3},
	})
	host.SetActiveFile("demo.ts")

	result := New(host).Resolve("fix [selection] in [file]", nil, nil)

	// Context section precedes the Question section, items separated by
	// blank lines, question text is the original raw input
	ctxIdx := indexOf(t, result.PromptText, "Context:")
	qIdx := indexOf(t, result.PromptText, "Question:")
	assert.Less(t, ctxIdx, qIdx)
	assert.Contains(t, result.PromptText, "**📝 demo.ts:3-3:**")
	assert.Contains(t, result.PromptText, "**📄 demo.ts:**")
	assert.Contains(t, result.PromptText, "Question:\nfix [selection] in [file]")
}

func indexOf(t *testing.T, haystack, needle string) int {
	t.Helper()

	idx := strings.Index(haystack, needle)
	require.GreaterOrEqual(t, idx, 0, "expected %q in prompt", needle)

	return idx
}
