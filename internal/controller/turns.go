package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"codeberg.org/codemate/server/internal/edit"
	"codeberg.org/codemate/server/internal/history"
	"codeberg.org/codemate/server/internal/llm"
	"codeberg.org/codemate/server/internal/logger"
	"codeberg.org/codemate/server/internal/surface"
)

func (c *Controller) HandleSetProvider(s Sink, payload json.RawMessage) error {
	var p surface.SetProviderPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("invalid setProvider payload: %w", err)
	}

	provider := llm.Provider(p.Provider)
	if !llm.ValidProvider(provider) {
		s.SendError("bad_request", "unknown provider", p.Provider)
		return nil
	}

	c.mu.Lock()
	c.provider = provider
	c.mu.Unlock()

	logger.Info("provider switched", "provider", provider)

	return nil
}

// HandleUserMessage runs one conversation turn: undo interception, command
// prefixes, then the resolve/append/dispatch sequence.
func (c *Controller) HandleUserMessage(ctx context.Context, s Sink, payload json.RawMessage) error {
	var p surface.UserMessagePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("invalid userMessage payload: %w", err)
	}

	text := strings.TrimSpace(p.Text)
	if text == "" {
		return nil
	}

	// an "undo" utterance consumes the pending edit; with nothing pending
	// it falls through as an ordinary chat message
	if strings.EqualFold(text, "undo") && c.applier.HasPending() {
		c.appendAndBroadcast(history.Message{Role: history.RoleUser, Content: text})

		notice, _ := c.applier.Undo()
		c.appendAndBroadcast(history.Message{Role: history.RoleSystem, Content: notice})

		return nil
	}

	// command prefixes never reach a provider and have no loading phase
	if reply, ok := c.runCommand(text); ok {
		c.appendAndBroadcast(history.Message{Role: history.RoleUser, Content: text})
		c.appendAndBroadcast(history.Message{Role: history.RoleSystem, Content: reply})

		return nil
	}

	// single-in-flight gate: a second userMessage while a provider call is
	// outstanding is rejected, never interleaved
	if !c.tryBeginTurn() {
		c.appendAndBroadcast(history.Message{
			Role:    history.RoleError,
			Content: "A request is already in progress. Please wait for it to finish.",
		})

		return nil
	}

	defer c.endTurn()

	// prior turns are captured before this message is appended; the prompt
	// re-embeds the question itself
	turns := conversationTurns(c.store)

	resolved := c.resolver.Resolve(text, p.ContextItems, p.InlineReferences)

	c.appendAndBroadcast(history.Message{Role: history.RoleUser, Content: resolved.DisplayText})
	c.appendAndBroadcast(history.Message{Role: history.RoleLoading, Content: "Thinking..."})

	prompt := resolved.PromptText
	if c.includeContext {
		if block := c.currentContextBlock(); block != "" {
			prompt = block + "\n\n" + prompt
		}
	}

	provider := c.currentProvider()

	reply, err := c.dispatcher.Dispatch(ctx, provider, prompt, turns)

	c.store.ClearLoading()

	if err != nil {
		logger.ErrorErr(err, "provider call failed", "provider", provider)
		c.store.Append(history.Message{Role: history.RoleError, Content: err.Error()})
	} else {
		c.store.Append(history.Message{Role: history.RoleAI, Content: reply})
	}

	c.broadcastHistory()

	if err == nil {
		c.advertiseProposal(reply)
	}

	return nil
}

// surfaces get an apply affordance when the reply carries an edit proposal
func (c *Controller) advertiseProposal(reply string) {
	p, ok := edit.ExtractProposal(reply)
	if !ok {
		return
	}

	msg, err := surface.NewMessage(surface.TypeEditProposal, surface.EditProposalPayload{
		Path:         p.Path,
		Code:         p.Code,
		InlineTarget: p.InlineTarget,
	})
	if err != nil {
		logger.ErrorErr(err, "failed to build editProposal message")
		return
	}

	c.broadcast.BroadcastAll(msg)
}

// the fixed Current Context block prepended to every provider call:
// workspace name, active file, language, and selection range when present
func (c *Controller) currentContextBlock() string {
	var lines []string

	if info, ok := c.host.WorkspaceInfo(); ok {
		lines = append(lines, fmt.Sprintf("Workspace: %s", info.Name))
	}

	if doc, ok := c.host.ActiveFile(); ok {
		lines = append(lines, fmt.Sprintf("Active file: %s (%s)", doc.Path, doc.LanguageID))
	}

	if sel, ok := c.host.Selection(); ok {
		lines = append(lines, fmt.Sprintf("Selection: %s lines %d-%d", sel.Path, sel.Range.StartLine, sel.Range.EndLine))
	}

	if len(lines) == 0 {
		return ""
	}

	return "Current Context:\n" + strings.Join(lines, "\n")
}

// prior user/ai turns in the provider role vocabulary's source form
func conversationTurns(store *history.Store) []llm.Message {
	msgs := store.ConversationTurns()
	turns := make([]llm.Message, 0, len(msgs))

	for _, m := range msgs {
		turns = append(turns, llm.Message{Role: m.Role, Content: m.Content})
	}

	return turns
}
