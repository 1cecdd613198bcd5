package surface

import (
	"time"

	"codeberg.org/codemate/server/internal/logger"
)

func NewHub() *Hub {
	return &Hub{
		surfaces:   make(map[string]*Surface),
		Register:   make(chan *Surface),
		Unregister: make(chan *Surface),
		Inbound:    make(chan *Message, 256),
		handlers:   make(map[string]MessageHandler),
		shutdown:   make(chan struct{}),
	}
}

// registers a handler for a specific message type
func (h *Hub) RegisterHandler(messageType string, handler MessageHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[messageType] = handler
}

// sets callback to be called after a surface connects (e.g. to push the
// current history and a welcome notice)
func (h *Hub) OnSurfaceRegistered(callback func(s *Surface)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onSurfaceRegistered = callback
}

// starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case s := <-h.Register:
			h.registerSurface(s)

		case s := <-h.Unregister:
			h.unregisterSurface(s)

		case msg := <-h.Inbound:
			h.handleMessage(msg)

		case <-h.shutdown:
			h.closeAllConnections()
			return
		}
	}
}

func (h *Hub) registerSurface(s *Surface) {
	h.mu.Lock()
	h.surfaces[s.ID] = s
	callback := h.onSurfaceRegistered
	h.mu.Unlock()

	logger.Info("surface registered",
		"surface_id", s.ID,
		"kind", s.Kind,
	)

	if callback != nil {
		go callback(s)
	}
}

func (h *Hub) unregisterSurface(s *Surface) {
	h.mu.Lock()

	if _, exists := h.surfaces[s.ID]; !exists {
		h.mu.Unlock()
		return
	}

	delete(h.surfaces, s.ID)
	h.mu.Unlock()

	s.Close()

	logger.Info("surface unregistered",
		"surface_id", s.ID,
		"kind", s.Kind,
	)
}

// processes an inbound message
func (h *Hub) handleMessage(msg *Message) {
	h.mu.RLock()
	sender, senderExists := h.surfaces[msg.SurfaceID]
	handler, handlerExists := h.handlers[msg.Type]
	h.mu.RUnlock()

	if !senderExists {
		logger.Warn("sender surface not found for message",
			"surface_id", msg.SurfaceID,
			"message_type", msg.Type,
		)
		return
	}

	if !handlerExists {
		logger.Warn("unhandled message type received",
			"message_type", msg.Type,
			"surface_id", sender.ID,
		)

		sender.SendError("bad_request", "unsupported message type", "message type not recognized")
		return
	}

	// run handler asynchronously so a slow provider call never blocks the
	// hub loop; other inbound events keep flowing meanwhile
	go func() {
		if err := handler(h, sender, msg); err != nil {
			logger.ErrorErr(err, "handler error",
				"message_type", msg.Type,
				"surface_id", sender.ID,
			)

			sender.SendError("server_error", "failed to process message", err.Error())
		}
	}()
}

// BroadcastAll sends a message to every live surface. A closed or absent
// surface is silently skipped; one surface's failure never blocks another.
func (h *Hub) BroadcastAll(msg *Message) {
	h.mu.RLock()
	targets := make([]*Surface, 0, len(h.surfaces))

	for _, s := range h.surfaces {
		targets = append(targets, s)
	}

	h.mu.RUnlock()

	for _, s := range targets {
		if s.IsClosed() {
			continue
		}

		if err := s.Send(msg); err != nil {
			logger.Warn("failed to send message to surface",
				"surface_id", s.ID,
				"message_type", msg.Type,
				"error", err,
			)
		}
	}
}

func (h *Hub) SurfaceCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.surfaces)
}

// Shutdown stops the run loop and closes every surface. Safe to call more
// than once; only the first call takes effect.
func (h *Hub) Shutdown() {
	h.shutdownOnce.Do(func() {
		close(h.shutdown)
	})
}

func (h *Hub) closeAllConnections() {
	h.mu.Lock()

	logger.Info("notifying surfaces of server shutdown")

	shutdownMsg, err := NewMessage(TypeServerShutdown, ServerShutdownPayload{
		Reason: "server is shutting down",
	})
	if err == nil {
		for _, s := range h.surfaces {
			if sendErr := s.Send(shutdownMsg); sendErr != nil {
				logger.Warn("failed to send shutdown notification",
					"surface_id", s.ID,
					"error", sendErr,
				)
			}
		}
	}

	h.mu.Unlock()

	// give surfaces time to receive the shutdown message
	time.Sleep(100 * time.Millisecond)

	h.mu.Lock()
	defer h.mu.Unlock()

	logger.Info("closing all surface connections")

	for id, s := range h.surfaces {
		s.Close()
		logger.Debug("closed surface", "surface_id", id)
	}

	h.surfaces = make(map[string]*Surface)
}
