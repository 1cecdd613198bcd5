package websocket

import (
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"codeberg.org/codemate/server/internal/errors"
	"codeberg.org/codemate/server/internal/logger"
	"codeberg.org/codemate/server/internal/surface"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     surface.CheckOrigin,
}

// handles surface WebSocket connections. Both the persistent panel and the
// detachable panel connect here and are treated symmetrically.
func WebSocketHandler(hub *surface.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		var params ConnectParams
		if err := c.ShouldBindQuery(&params); err != nil {
			errors.BadRequest(c, "invalid parameters", err)
			return
		}

		kind := params.Kind
		if kind == "" {
			kind = surface.KindPanel
		}

		if kind != surface.KindPanel && kind != surface.KindDetachable {
			errors.BadRequest(c, "unknown surface kind", nil)
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.ErrorErr(err, "failed to upgrade websocket connection")
			return
		}

		s := surface.NewSurface(surface.GenerateSurfaceID(), kind, conn, hub)

		hub.Register <- s

		go s.WritePump()
		go s.ReadPump()
	}
}
