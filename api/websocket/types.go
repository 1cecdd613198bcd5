package websocket

type ConnectParams struct {
	// panel (default) or detachable
	Kind string `form:"kind" binding:"max=32"`
}
