package websocket

import (
	"github.com/gin-gonic/gin"

	"codeberg.org/codemate/server/internal/surface"
)

func RegisterRoutes(router *gin.RouterGroup, hub *surface.Hub) {
	router.GET("/ws", WebSocketHandler(hub))
}
