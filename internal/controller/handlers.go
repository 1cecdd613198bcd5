package controller

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"codeberg.org/codemate/server/internal/history"
	"codeberg.org/codemate/server/internal/resolver"
	"codeberg.org/codemate/server/internal/surface"
)

// cap on file suggestion results per request
const maxFileSuggestions = 20

// HandlePreviewEdit drives the preview/apply flow for a proposed file
// edit: diff renders and returns to the proposed state (repeatable), apply
// performs the scoped write, cancel discards.
func (c *Controller) HandlePreviewEdit(s Sink, payload json.RawMessage) error {
	var p surface.PreviewEditPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("invalid previewEdit payload: %w", err)
	}

	if p.FilePath == "" {
		s.SendError("bad_request", "filePath is required", "")
		return nil
	}

	action := p.Action
	if action == "" {
		action = surface.EditActionDiff
	}

	switch action {
	case surface.EditActionDiff:
		diff, err := c.applier.Preview(p.FilePath, p.NewContent)
		if err != nil {
			c.appendAndBroadcast(history.Message{
				Role:    history.RoleSystem,
				Content: fmt.Sprintf("Cannot preview changes to %s: %v", p.FilePath, err),
			})

			return nil
		}

		msg, err := surface.NewMessage(surface.TypeEditPreview, surface.EditPreviewPayload{
			FilePath: p.FilePath,
			Diff:     diff,
		})
		if err != nil {
			return err
		}

		return s.Send(msg)

	case surface.EditActionApply:
		notice, err := c.applier.Apply(p.FilePath, p.NewContent)
		if err != nil {
			notice = fmt.Sprintf("Cannot apply changes to %s: %v", p.FilePath, err)
		}

		c.appendAndBroadcast(history.Message{Role: history.RoleSystem, Content: notice})

		return nil

	case surface.EditActionCancel:
		return nil

	default:
		s.SendError("bad_request", "unknown preview action", action)
		return nil
	}
}

// HandleApplyInline writes a code block over the selection or the active
// file and reports the outcome as a system notice.
func (c *Controller) HandleApplyInline(s Sink, payload json.RawMessage) error {
	var p surface.ApplyInlinePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("invalid applyInline payload: %w", err)
	}

	notice, err := c.applier.ApplyInline(p.Target, p.CodeBlock)
	if err != nil {
		notice = fmt.Sprintf("Cannot apply code: %v", err)
	}

	c.appendAndBroadcast(history.Message{Role: history.RoleSystem, Content: notice})

	return nil
}

// local send commands: the editor state goes into history as a user
// message with no provider round-trip and no loading phase

func (c *Controller) HandleSendCurrentFile(s Sink) error {
	doc, ok := c.host.ActiveFile()
	if !ok {
		c.appendAndBroadcast(history.Message{Role: history.RoleSystem, Content: "No active file to send."})
		return nil
	}

	content, err := c.host.ReadFile(doc.Path)
	if err != nil {
		c.appendAndBroadcast(history.Message{
			Role:    history.RoleSystem,
			Content: fmt.Sprintf("Cannot read %s: %v", doc.Path, err),
		})

		return nil
	}

	c.appendAndBroadcast(history.Message{
		Role:    history.RoleUser,
		Content: fmt.Sprintf("Current file %s:\n```%s\n%s\n```", doc.Path, doc.LanguageID, content),
	})

	return nil
}

func (c *Controller) HandleSendSelection(s Sink) error {
	sel, ok := c.host.Selection()
	if !ok {
		c.appendAndBroadcast(history.Message{Role: history.RoleSystem, Content: "No active selection to send."})
		return nil
	}

	name := fmt.Sprintf("%s:%d-%d", filepath.Base(sel.Path), sel.Range.StartLine, sel.Range.EndLine)

	c.appendAndBroadcast(history.Message{
		Role:    history.RoleUser,
		Content: fmt.Sprintf("Selection %s:\n```\n%s\n```", name, sel.Text),
	})

	return nil
}

func (c *Controller) HandleSendWorkspaceInfo(s Sink) error {
	info, ok := c.host.WorkspaceInfo()
	if !ok {
		c.appendAndBroadcast(history.Message{Role: history.RoleSystem, Content: "No workspace is open."})
		return nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Workspace %s (root %s)", info.Name, info.Root)

	if len(info.Folders) > 0 {
		fmt.Fprintf(&sb, "\nFolders: %s", strings.Join(info.Folders, ", "))
	}

	c.appendAndBroadcast(history.Message{Role: history.RoleUser, Content: sb.String()})

	return nil
}

// context bubble commands: the resolved item goes back to the requesting
// surface only, as an addContext event

func (c *Controller) HandleAddCurrentFileContext(s Sink) error {
	doc, ok := c.host.ActiveFile()
	if !ok {
		s.SendError("not_found", "no active file", "")
		return nil
	}

	content, err := c.host.ReadFile(doc.Path)
	if err != nil {
		s.SendError("server_error", "failed to read active file", err.Error())
		return nil
	}

	return c.sendAddContext(s, resolver.ContextItem{
		Icon:    resolver.IconFile,
		Name:    filepath.Base(doc.Path),
		Path:    doc.Path,
		Content: content,
		Kind:    resolver.KindFile,
	})
}

func (c *Controller) HandleAddSelectionContext(s Sink) error {
	sel, ok := c.host.Selection()
	if !ok {
		s.SendError("not_found", "no active selection", "")
		return nil
	}

	name := fmt.Sprintf("%s:%d-%d", filepath.Base(sel.Path), sel.Range.StartLine, sel.Range.EndLine)

	return c.sendAddContext(s, resolver.ContextItem{
		Icon:    resolver.IconSelection,
		Name:    name,
		Content: sel.Text,
		Kind:    resolver.KindSelection,
	})
}

func (c *Controller) HandleAddWorkspaceContext(s Sink) error {
	info, ok := c.host.WorkspaceInfo()
	if !ok {
		s.SendError("not_found", "no workspace open", "")
		return nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Workspace: %s\nRoot: %s\n", info.Name, info.Root)

	if len(info.Folders) > 0 {
		fmt.Fprintf(&sb, "Folders: %s\n", strings.Join(info.Folders, ", "))
	}

	return c.sendAddContext(s, resolver.ContextItem{
		Icon:    resolver.IconWorkspace,
		Name:    info.Name,
		Content: sb.String(),
		Kind:    resolver.KindWorkspace,
	})
}

func (c *Controller) sendAddContext(s Sink, item resolver.ContextItem) error {
	fullName := item.Path
	if fullName == "" {
		fullName = item.Name
	}

	msg, err := surface.NewMessage(surface.TypeAddContext, surface.AddContextPayload{
		ContextType: item.Kind,
		Name:        item.Name,
		FullName:    fullName,
		Content:     item.Content,
		Icon:        item.Icon,
	})
	if err != nil {
		return err
	}

	return s.Send(msg)
}

// HandleShowContextMenu reports which context sources are currently
// available so a surface can render its own menu.
func (c *Controller) HandleShowContextMenu(s Sink) error {
	_, hasSelection := c.host.Selection()
	_, hasFile := c.host.ActiveFile()
	_, hasWorkspace := c.host.WorkspaceInfo()

	msg, err := surface.NewMessage(surface.TypeContextMenu, surface.ContextMenuPayload{
		Sources: []surface.ContextMenuSource{
			{Kind: resolver.KindSelection, Label: "Selection", Icon: resolver.IconSelection, Available: hasSelection},
			{Kind: resolver.KindFile, Label: "Current file", Icon: resolver.IconFile, Available: hasFile},
			{Kind: resolver.KindWorkspace, Label: "Workspace", Icon: resolver.IconWorkspace, Available: hasWorkspace},
		},
	})
	if err != nil {
		return err
	}

	return s.Send(msg)
}

func (c *Controller) HandleRequestHistory(s Sink) error {
	c.sendHistoryTo(s)
	return nil
}

// HandleRequestFileSuggestions answers an @-mention completion request
// with matching workspace files and the caller's cursor position echoed
// back.
func (c *Controller) HandleRequestFileSuggestions(s Sink, payload json.RawMessage) error {
	var p surface.RequestFileSuggestionsPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("invalid requestFileSuggestions payload: %w", err)
	}

	files, err := c.host.ListFiles(200)
	if err != nil {
		s.SendError("server_error", "failed to list workspace files", err.Error())
		return nil
	}

	query := strings.ToLower(strings.TrimSpace(p.Query))
	matches := make([]string, 0, maxFileSuggestions)

	for _, f := range files {
		if query != "" && !strings.Contains(strings.ToLower(f), query) {
			continue
		}

		matches = append(matches, f)

		if len(matches) >= maxFileSuggestions {
			break
		}
	}

	msg, err := surface.NewMessage(surface.TypeShowFileSuggestions, surface.ShowFileSuggestionsPayload{
		Files:     matches,
		CursorPos: p.CursorPos,
	})
	if err != nil {
		return err
	}

	return s.Send(msg)
}

// HandleAddFileToContext resolves a picked file into a context item and
// asks the surface to insert its label into the input area.
func (c *Controller) HandleAddFileToContext(s Sink, payload json.RawMessage) error {
	var p surface.AddFileToContextPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("invalid addFileToContext payload: %w", err)
	}

	content, err := c.host.ReadFile(p.FilePath)
	if err != nil {
		s.SendError("not_found", "failed to read file", err.Error())
		return nil
	}

	item := resolver.ContextItem{
		Icon:    resolver.IconFile,
		Name:    filepath.Base(p.FilePath),
		Path:    p.FilePath,
		Content: content,
		Kind:    resolver.KindFile,
	}

	msg, err := surface.NewMessage(surface.TypeInsertLabel, surface.InsertLabelPayload{
		Label:       item.Name,
		ContextItem: item,
	})
	if err != nil {
		return err
	}

	return s.Send(msg)
}

// HandleEditorState records the focus and selection a surface reports.
func (c *Controller) HandleEditorState(payload json.RawMessage) error {
	var p surface.EditorStatePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("invalid editorState payload: %w", err)
	}

	c.host.SetActiveFile(p.ActiveFile)

	if p.Selection != nil && p.Selection.Text != "" {
		c.host.SetSelection(*p.Selection)
	} else {
		c.host.ClearSelection()
	}

	return nil
}
