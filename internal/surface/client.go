package surface

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"codeberg.org/codemate/server/internal/errors"
	"codeberg.org/codemate/server/internal/logger"
)

// creates a new surface connection
func NewSurface(id, kind string, conn *websocket.Conn, hub *Hub) *Surface {
	return &Surface{
		ID:   id,
		Kind: kind,
		conn: conn,
		hub:  hub,
		send: make(chan []byte, 256),
	}
}

// reads messages from the websocket connection to the hub for processing
func (s *Surface) ReadPump() {
	defer func() {
		s.hub.Unregister <- s
		s.conn.Close() //nolint:errcheck,gosec // G104: defer cleanup
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck,gosec // G104: websocket setup
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck,gosec // G104: pong handler
		return nil
	})

	for {
		_, messageBytes, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket error",
					"surface_id", s.ID,
					"error", err,
				)
			}

			break
		}

		var msg Message
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			logger.ErrorErr(err, "failed to unmarshal message",
				"surface_id", s.ID,
			)

			s.SendError("bad_request", "invalid message format", err.Error())
			continue
		}

		msg.SurfaceID = s.ID
		msg.Timestamp = time.Now()

		s.hub.Inbound <- &msg
	}
}

// writes messages from the hub to the websocket connection
func (s *Surface) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		s.conn.Close() //nolint:errcheck,gosec // G104: defer cleanup
	}()

	for {
		select {
		case message, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck,gosec // G104: websocket timing

			if !ok {
				// hub closed the channel
				s.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck,gosec // G104: close message
				return
			}

			w, err := s.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}

			w.Write(message) //nolint:errcheck,gosec // G104: websocket write

			// add queued messages to the current websocket message
			n := len(s.send)

			for range n {
				w.Write([]byte{'\n'}) //nolint:errcheck,gosec // G104: websocket write
				w.Write(<-s.send)     //nolint:errcheck,gosec // G104: websocket write
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck,gosec // G104: websocket ping timing

			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sends a message to the surface
func (s *Surface) Send(msg *Message) (err error) {
	// recover from panic if channel is closed
	defer func() {
		if r := recover(); r != nil {
			err = ErrConnectionClosed
		}
	}()

	s.mu.RLock()

	if s.closed {
		s.mu.RUnlock()
		return ErrConnectionClosed
	}

	s.mu.RUnlock()

	messageBytes, marshalErr := json.Marshal(msg)
	if marshalErr != nil {
		return marshalErr
	}

	select {
	case s.send <- messageBytes:
		return nil
	default:
		// channel is full, send error directly to websocket before closing
		s.sendBufferOverflowError()
		s.Close()
		return ErrConnectionClosed
	}
}

// sends buffer overflow error directly to websocket (bypassing the full channel)
func (s *Surface) sendBufferOverflowError() {
	errorMsg, err := NewMessage(TypeError, errors.ErrorResponse{
		Error:   "buffer_overflow",
		Message: "message buffer full, connection will be closed",
		Details: "too many messages queued, please reconnect",
	})
	if err != nil {
		return
	}

	errorBytes, err := json.Marshal(errorMsg)
	if err != nil {
		return
	}

	if s.conn == nil {
		return
	}

	s.conn.SetWriteDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck,gosec
	s.conn.WriteMessage(websocket.TextMessage, errorBytes)   //nolint:errcheck,gosec
}

// sends an error message to the surface
func (s *Surface) SendError(code, message, details string) {
	errorMsg, err := NewMessage(TypeError, errors.ErrorResponse{
		Error:   code,
		Message: message,
		Details: details,
	})
	if err != nil {
		logger.ErrorErr(err, "failed to create error message",
			"surface_id", s.ID,
			"error_code", code,
		)
		return
	}

	s.Send(errorMsg) //nolint:errcheck,gosec // G104: best effort error notification
}

// closes the surface connection
func (s *Surface) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.send)
	}
}

// checks if the surface is closed
func (s *Surface) IsClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.closed
}
