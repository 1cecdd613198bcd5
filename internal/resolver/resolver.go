package resolver

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"codeberg.org/codemate/server/internal/editor"
	"codeberg.org/codemate/server/internal/logger"
)

// context source kinds
const (
	KindSelection = "selection"
	KindFile      = "file"
	KindWorkspace = "workspace"
)

// icons per source kind
const (
	IconSelection = "📝"
	IconFile      = "📄"
	IconWorkspace = "📁"
)

// literal markers users can type into a message
const (
	markerSelection = "[selection]"
	markerFile      = "[file]"
	markerWorkspace = "[workspace]"
)

// a resolved, named block of editor-derived text eligible for inclusion in
// a prompt. Items live for a single prompt build and are then discarded.
type ContextItem struct {
	Icon    string `json:"icon"`
	Name    string `json:"name"`
	Path    string `json:"path,omitempty"` // workspace-relative, file kind only
	Content string `json:"content"`
	Kind    string `json:"kind"`
}

// the outcome of resolving one outgoing message
type Result struct {
	// raw text with markers substituted by bolded labels; what history shows
	DisplayText string

	// the provider-facing prompt: aggregated context block plus the
	// original, unmodified question
	PromptText string

	// every context item that contributed to the prompt
	Used []ContextItem
}

// Resolver turns raw user input plus attached context descriptors into a
// single enriched prompt. Resolution never raises a user-facing error: an
// unresolved source degrades to an informational substitution or is dropped.
type Resolver struct {
	host editor.Host
}

func New(host editor.Host) *Resolver {
	return &Resolver{host: host}
}

// resolve(rawText, contextItems, inlineReferences) -> (prompt, used items)
//
// Markers are substituted for display purposes only; the provider-facing
// prompt always re-embeds the raw question under a Question: section.
func (r *Resolver) Resolve(raw string, items []ContextItem, inline map[string]string) Result {
	display := raw
	used := make([]ContextItem, 0, len(items)+len(inline)+3)

	// bracket markers, fixed order: selection, then file, then workspace.
	// An unresolvable selection degrades to a visible note; unresolvable
	// file/workspace markers are skipped untouched.
	if strings.Contains(display, markerSelection) {
		if item, ok := r.selectionItem(); ok {
			display = strings.ReplaceAll(display, markerSelection, boldLabel(item))
			used = append(used, item)
		} else {
			display = strings.ReplaceAll(display, markerSelection, "(no active selection)")
		}
	}

	if strings.Contains(display, markerFile) {
		if item, ok := r.activeFileItem(); ok {
			display = strings.ReplaceAll(display, markerFile, boldLabel(item))
			used = append(used, item)
		}
	}

	if strings.Contains(display, markerWorkspace) {
		if item, ok := r.workspaceItem(); ok {
			display = strings.ReplaceAll(display, markerWorkspace, boldLabel(item))
			used = append(used, item)
		}
	}

	// explicit context bubbles: file bubbles re-read at send time,
	// selection bubbles reuse captured content verbatim
	for _, item := range items {
		resolved, ok := r.refreshBubble(item)
		if !ok {
			continue
		}

		used = append(used, resolved)
	}

	// inline references: label occurrences become bolded labels, captured
	// content joins the context block. Labels are walked in sorted order so
	// the prompt is deterministic.
	labels := make([]string, 0, len(inline))
	for label := range inline {
		labels = append(labels, label)
	}

	sort.Strings(labels)

	for _, label := range labels {
		content := inline[label]
		if content == "" {
			continue
		}

		item := ContextItem{
			Icon:    IconSelection,
			Name:    label,
			Content: content,
			Kind:    KindSelection,
		}

		if strings.Contains(display, label) {
			display = strings.ReplaceAll(display, label, boldLabel(item))
		}

		used = append(used, item)
	}

	prompt := raw
	if len(used) > 0 {
		prompt = buildPrompt(raw, used)
	}

	return Result{
		DisplayText: display,
		PromptText:  prompt,
		Used:        used,
	}
}

func (r *Resolver) selectionItem() (ContextItem, bool) {
	sel, ok := r.host.Selection()
	if !ok {
		return ContextItem{}, false
	}

	name := fmt.Sprintf("%s:%d-%d", filepath.Base(sel.Path), sel.Range.StartLine, sel.Range.EndLine)

	return ContextItem{
		Icon:    IconSelection,
		Name:    name,
		Content: sel.Text,
		Kind:    KindSelection,
	}, true
}

func (r *Resolver) activeFileItem() (ContextItem, bool) {
	doc, ok := r.host.ActiveFile()
	if !ok {
		return ContextItem{}, false
	}

	content, err := r.host.ReadFile(doc.Path)
	if err != nil {
		logger.Warn("failed to read active file for context", "path", doc.Path, "error", err)
		return ContextItem{}, false
	}

	return ContextItem{
		Icon:    IconFile,
		Name:    filepath.Base(doc.Path),
		Path:    doc.Path,
		Content: content,
		Kind:    KindFile,
	}, true
}

func (r *Resolver) workspaceItem() (ContextItem, bool) {
	info, ok := r.host.WorkspaceInfo()
	if !ok {
		return ContextItem{}, false
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Workspace: %s\nRoot: %s\n", info.Name, info.Root)

	if len(info.Folders) > 0 {
		fmt.Fprintf(&sb, "Folders: %s\n", strings.Join(info.Folders, ", "))
	}

	return ContextItem{
		Icon:    IconWorkspace,
		Name:    info.Name,
		Content: sb.String(),
		Kind:    KindWorkspace,
	}, true
}

// file bubbles are refreshed from disk at send time; selection and
// workspace bubbles keep their captured content
func (r *Resolver) refreshBubble(item ContextItem) (ContextItem, bool) {
	if item.Kind != KindFile {
		if item.Content == "" {
			return ContextItem{}, false
		}

		return item, true
	}

	path := item.Path
	if path == "" {
		path = item.Name
	}

	content, err := r.host.ReadFile(path)
	if err != nil {
		// treated as "no context available", never aborts the turn
		logger.Warn("failed to refresh file context", "path", path, "error", err)
		return ContextItem{}, false
	}

	item.Content = content

	return item, true
}

func buildPrompt(raw string, used []ContextItem) string {
	var sb strings.Builder

	sb.WriteString("Context:\n\n")

	for i, item := range used {
		if i > 0 {
			sb.WriteString("\n")
		}

		fmt.Fprintf(&sb, "**%s %s:**\n```\n%s\n```\n", item.Icon, item.Name, item.Content)
	}

	sb.WriteString("\nQuestion:\n")
	sb.WriteString(raw)

	return sb.String()
}

func boldLabel(item ContextItem) string {
	return fmt.Sprintf("**%s %s**", item.Icon, item.Name)
}
