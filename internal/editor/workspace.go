package editor

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"codeberg.org/codemate/server/internal/errors"
)

// directories skipped during workspace walks
var skippedDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
}

var languageIDs = map[string]string{
	".go":   "go",
	".ts":   "typescript",
	".tsx":  "typescriptreact",
	".js":   "javascript",
	".jsx":  "javascriptreact",
	".py":   "python",
	".rs":   "rust",
	".rb":   "ruby",
	".java": "java",
	".c":    "c",
	".cpp":  "cpp",
	".h":    "c",
	".css":  "css",
	".html": "html",
	".json": "json",
	".yaml": "yaml",
	".yml":  "yaml",
	".md":   "markdown",
	".sql":  "sql",
	".sh":   "shellscript",
}

// WorkspaceHost implements Host on top of a single workspace root on disk.
// Active file and selection are mutable state fed by surfaces.
type WorkspaceHost struct {
	root string

	mu         sync.RWMutex
	activeFile *Document
	selection  *Selection
}

func NewWorkspaceHost(root string) *WorkspaceHost {
	return &WorkspaceHost{root: root}
}

func (h *WorkspaceHost) Root() string {
	return h.root
}

// records the document a surface reports as focused
func (h *WorkspaceHost) SetActiveFile(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if path == "" {
		h.activeFile = nil
		return
	}

	h.activeFile = &Document{
		Path:       filepath.ToSlash(path),
		LanguageID: LanguageID(path),
	}
}

// records the selection a surface reports
func (h *WorkspaceHost) SetSelection(sel Selection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.selection = &sel
}

func (h *WorkspaceHost) ClearSelection() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.selection = nil
}

func (h *WorkspaceHost) ActiveFile() (Document, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.activeFile == nil {
		return Document{}, false
	}

	return *h.activeFile, true
}

func (h *WorkspaceHost) Selection() (Selection, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.selection == nil || h.selection.Text == "" {
		return Selection{}, false
	}

	return *h.selection, true
}

func (h *WorkspaceHost) WorkspaceInfo() (Workspace, bool) {
	if h.root == "" {
		return Workspace{}, false
	}

	folders := make([]string, 0, 8)

	entries, err := os.ReadDir(h.root)
	if err == nil {
		for _, entry := range entries {
			if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") && !skippedDirs[entry.Name()] {
				folders = append(folders, entry.Name())
			}
		}
	}

	return Workspace{
		Name:    filepath.Base(h.root),
		Root:    h.root,
		Folders: folders,
	}, true
}

// resolves a workspace-relative (or absolute) path and rejects anything
// that escapes the root
func (h *WorkspaceHost) ResolvePath(path string) (string, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return "", fmt.Errorf("path is required")
	}

	var candidate string
	if filepath.IsAbs(p) {
		candidate = p
	} else {
		candidate = filepath.Join(h.root, p)
	}

	absRoot, err := filepath.Abs(h.root)
	if err != nil {
		return "", err
	}

	absCandidate, err := filepath.Abs(candidate)
	if err != nil {
		return "", err
	}

	rel, err := filepath.Rel(absRoot, absCandidate)
	if err != nil {
		return "", err
	}

	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", errors.ErrScoping, path)
	}

	return absCandidate, nil
}

func (h *WorkspaceHost) ReadFile(path string) (string, error) {
	abs, err := h.ResolvePath(path)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	return string(data), nil
}

func (h *WorkspaceHost) WriteFile(path, content string) error {
	abs, err := h.ResolvePath(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", path, err)
	}

	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

func (h *WorkspaceHost) ReplaceRange(path string, r Range, text string) error {
	if r.WholeFile() {
		return h.WriteFile(path, text)
	}

	current, err := h.ReadFile(path)
	if err != nil {
		return err
	}

	lines := strings.Split(current, "\n")
	if r.StartLine < 1 || r.StartLine > len(lines) || r.EndLine < r.StartLine {
		return fmt.Errorf("range %d-%d out of bounds for %s", r.StartLine, r.EndLine, path)
	}

	end := r.EndLine
	if end > len(lines) {
		end = len(lines)
	}

	// the replace is line oriented; a single trailing newline on the
	// replacement would otherwise insert a spurious blank line
	replaced := make([]string, 0, len(lines))
	replaced = append(replaced, lines[:r.StartLine-1]...)
	replaced = append(replaced, strings.Split(strings.TrimSuffix(text, "\n"), "\n")...)
	replaced = append(replaced, lines[end:]...)

	return h.WriteFile(path, strings.Join(replaced, "\n"))
}

func (h *WorkspaceHost) ListFiles(limit int) ([]string, error) {
	if limit <= 0 {
		limit = 200
	}

	files := make([]string, 0, limit)

	err := filepath.WalkDir(h.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}

		name := d.Name()

		if d.IsDir() {
			if path != h.root && (strings.HasPrefix(name, ".") || skippedDirs[name]) {
				return filepath.SkipDir
			}

			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}

		rel, relErr := filepath.Rel(h.root, path)
		if relErr != nil {
			return nil
		}

		files = append(files, filepath.ToSlash(rel))

		if len(files) >= limit {
			return fs.SkipAll
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk workspace: %w", err)
	}

	sort.Strings(files)

	return files, nil
}

// maps a file extension to an editor language identifier
func LanguageID(path string) string {
	if id, ok := languageIDs[strings.ToLower(filepath.Ext(path))]; ok {
		return id
	}

	return "plaintext"
}
