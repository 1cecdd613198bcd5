package history

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"codeberg.org/codemate/server/internal/history"
)

// read-only snapshot of the conversation log; surfaces normally receive
// history over the WebSocket, this endpoint exists for polling fallbacks
// and debugging
func Handler(store *history.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"history": store.Snapshot(),
		})
	}
}

func RegisterRoutes(router *gin.RouterGroup, store *history.Store) {
	router.GET("/history", Handler(store))
}
