package controller

import (
	"context"
	"sync"

	"codeberg.org/codemate/server/internal/config"
	"codeberg.org/codemate/server/internal/edit"
	"codeberg.org/codemate/server/internal/editor"
	"codeberg.org/codemate/server/internal/history"
	"codeberg.org/codemate/server/internal/llm"
	"codeberg.org/codemate/server/internal/logger"
	"codeberg.org/codemate/server/internal/resolver"
	"codeberg.org/codemate/server/internal/surface"
)

// dispatches a prompt to the selected provider
type Dispatcher interface {
	Dispatch(ctx context.Context, provider llm.Provider, prompt string, turns []llm.Message) (string, error)
}

// pushes a message to every live surface
type Broadcaster interface {
	BroadcastAll(msg *surface.Message)
}

// the surface a reply goes back to
type Sink interface {
	Send(msg *surface.Message) error
	SendError(code, message, details string)
}

// the editor host plus the mutable focus/selection state surfaces feed
type Host interface {
	editor.Host
	SetActiveFile(path string)
	SetSelection(sel editor.Selection)
	ClearSelection()
}

// Controller owns the conversation: the history store, the active provider
// selection, the pending edit, and the single-in-flight dispatch gate. Both
// surfaces share one controller instance.
type Controller struct {
	cfg        config.Config
	broadcast  Broadcaster
	store      *history.Store
	host       Host
	resolver   *resolver.Resolver
	applier    *edit.Applier
	dispatcher Dispatcher

	mu       sync.Mutex
	provider llm.Provider
	inFlight bool

	// the Current Context block can be suppressed per controller, not per
	// call; surfaces have no say in it
	includeContext bool

	welcomeOnce sync.Once
}

func New(cfg config.Config, broadcast Broadcaster, host Host, dispatcher Dispatcher) *Controller {
	return &Controller{
		cfg:            cfg,
		broadcast:      broadcast,
		store:          history.NewStore(),
		host:           host,
		resolver:       resolver.New(host),
		applier:        edit.NewApplier(host),
		dispatcher:     dispatcher,
		provider:       llm.Provider(cfg.DefaultProvider),
		includeContext: true,
	}
}

func (c *Controller) History() *history.Store {
	return c.store
}

// RegisterHandlers wires every inbound surface message type to the
// controller. Provider calls run in the hub's handler goroutines, so the
// hub loop stays free while a call is outstanding.
func (c *Controller) RegisterHandlers(hub *surface.Hub) {
	hub.RegisterHandler(surface.TypeSetProvider, func(h *surface.Hub, s *surface.Surface, msg *surface.Message) error {
		return c.HandleSetProvider(s, msg.Payload)
	})

	hub.RegisterHandler(surface.TypeUserMessage, func(h *surface.Hub, s *surface.Surface, msg *surface.Message) error {
		return c.HandleUserMessage(context.Background(), s, msg.Payload)
	})

	hub.RegisterHandler(surface.TypePreviewEdit, func(h *surface.Hub, s *surface.Surface, msg *surface.Message) error {
		return c.HandlePreviewEdit(s, msg.Payload)
	})

	hub.RegisterHandler(surface.TypeSendCurrentFile, func(h *surface.Hub, s *surface.Surface, msg *surface.Message) error {
		return c.HandleSendCurrentFile(s)
	})

	hub.RegisterHandler(surface.TypeSendSelection, func(h *surface.Hub, s *surface.Surface, msg *surface.Message) error {
		return c.HandleSendSelection(s)
	})

	hub.RegisterHandler(surface.TypeSendWorkspaceInfo, func(h *surface.Hub, s *surface.Surface, msg *surface.Message) error {
		return c.HandleSendWorkspaceInfo(s)
	})

	hub.RegisterHandler(surface.TypeAddCurrentFileContext, func(h *surface.Hub, s *surface.Surface, msg *surface.Message) error {
		return c.HandleAddCurrentFileContext(s)
	})

	hub.RegisterHandler(surface.TypeAddSelectionContext, func(h *surface.Hub, s *surface.Surface, msg *surface.Message) error {
		return c.HandleAddSelectionContext(s)
	})

	hub.RegisterHandler(surface.TypeAddWorkspaceContext, func(h *surface.Hub, s *surface.Surface, msg *surface.Message) error {
		return c.HandleAddWorkspaceContext(s)
	})

	hub.RegisterHandler(surface.TypeShowContextMenu, func(h *surface.Hub, s *surface.Surface, msg *surface.Message) error {
		return c.HandleShowContextMenu(s)
	})

	hub.RegisterHandler(surface.TypeRequestHistory, func(h *surface.Hub, s *surface.Surface, msg *surface.Message) error {
		return c.HandleRequestHistory(s)
	})

	hub.RegisterHandler(surface.TypeRequestFileSuggestions, func(h *surface.Hub, s *surface.Surface, msg *surface.Message) error {
		return c.HandleRequestFileSuggestions(s, msg.Payload)
	})

	hub.RegisterHandler(surface.TypeAddFileToContext, func(h *surface.Hub, s *surface.Surface, msg *surface.Message) error {
		return c.HandleAddFileToContext(s, msg.Payload)
	})

	hub.RegisterHandler(surface.TypeApplyInline, func(h *surface.Hub, s *surface.Surface, msg *surface.Message) error {
		return c.HandleApplyInline(s, msg.Payload)
	})

	hub.RegisterHandler(surface.TypeEditorState, func(h *surface.Hub, s *surface.Surface, msg *surface.Message) error {
		return c.HandleEditorState(msg.Payload)
	})

	hub.RegisterHandler(surface.TypePing, func(h *surface.Hub, s *surface.Surface, msg *surface.Message) error {
		pong, err := surface.NewMessage(surface.TypePong, nil)
		if err != nil {
			return err
		}

		return s.Send(pong)
	})

	hub.OnSurfaceRegistered(func(s *surface.Surface) {
		c.OnSurfaceConnected(s)
	})
}

// OnSurfaceConnected greets the first surface and brings any surface up to
// date with the current history.
func (c *Controller) OnSurfaceConnected(s Sink) {
	c.welcomeOnce.Do(func() {
		if !c.cfg.ShowWelcome {
			return
		}

		c.appendAndBroadcast(history.Message{
			Role:    history.RoleSystem,
			Content: "Welcome! Ask a question, or reference editor state with [selection], [file], or [workspace].",
		})
	})

	c.sendHistoryTo(s)
}

// current provider selection, read fresh at each dispatch
func (c *Controller) currentProvider() llm.Provider {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.provider
}

// claims the single-in-flight slot; reports false when a turn is already
// outstanding
func (c *Controller) tryBeginTurn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inFlight {
		return false
	}

	c.inFlight = true

	return true
}

func (c *Controller) endTurn() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.inFlight = false
}

// appends a message and pushes the fresh snapshot to every surface
func (c *Controller) appendAndBroadcast(msg history.Message) {
	c.store.Append(msg)
	c.broadcastHistory()
}

func (c *Controller) broadcastHistory() {
	msg, err := surface.NewMessage(surface.TypeHistory, surface.HistoryPayload{
		History: c.store.Snapshot(),
	})
	if err != nil {
		logger.ErrorErr(err, "failed to build history broadcast")
		return
	}

	c.broadcast.BroadcastAll(msg)
}

func (c *Controller) sendHistoryTo(s Sink) {
	msg, err := surface.NewMessage(surface.TypeHistory, surface.HistoryPayload{
		History: c.store.Snapshot(),
	})
	if err != nil {
		logger.ErrorErr(err, "failed to build history snapshot")
		return
	}

	if err := s.Send(msg); err != nil {
		logger.Warn("failed to send history snapshot", "error", err)
	}
}
