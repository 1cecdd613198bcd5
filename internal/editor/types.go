package editor

// a 1-based, inclusive line range inside a document
type Range struct {
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`
}

// whether the range covers the entire document
func (r Range) WholeFile() bool {
	return r.StartLine <= 0 && r.EndLine <= 0
}

// the document currently focused in the editor
type Document struct {
	// path relative to the workspace root
	Path string `json:"path"`

	// editor language identifier (e.g. "go", "typescript")
	LanguageID string `json:"language_id"`
}

// a captured text selection
type Selection struct {
	// path of the document the selection was made in
	Path string `json:"path"`

	// the selected text, captured at selection time
	Text string `json:"text"`

	Range Range `json:"range"`
}

// workspace metadata
type Workspace struct {
	Name    string   `json:"name"`
	Root    string   `json:"root"`
	Folders []string `json:"folders"`
}

// Host is the editor-side collaborator: it supplies active-document state,
// selection ranges, workspace metadata, and scoped file access. The
// controller calls it, never reimplements it.
type Host interface {
	ActiveFile() (Document, bool)
	Selection() (Selection, bool)
	WorkspaceInfo() (Workspace, bool)

	// ReadFile and WriteFile take paths relative to the workspace root and
	// fail with a scoping error when the resolved path escapes it
	ReadFile(path string) (string, error)
	WriteFile(path, content string) error

	// replaces a line range (or the whole file when the range is zero)
	ReplaceRange(path string, r Range, text string) error

	// returns workspace-relative file paths, capped at limit
	ListFiles(limit int) ([]string, error)
}
