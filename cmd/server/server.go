package main

import (
	"github.com/gin-gonic/gin"

	"codeberg.org/codemate/server/internal/config"
	"codeberg.org/codemate/server/internal/controller"
	"codeberg.org/codemate/server/internal/editor"
	"codeberg.org/codemate/server/internal/llm"
	"codeberg.org/codemate/server/internal/secrets"
	"codeberg.org/codemate/server/internal/surface"
)

// Server holds the wired application: one hub, one controller, one
// workspace host, shared by every surface connection.
type Server struct {
	cfg        *config.Config
	router     *gin.Engine
	hub        *surface.Hub
	host       *editor.WorkspaceHost
	controller *controller.Controller
}

func NewServer(cfg *config.Config) (*Server, error) {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	hub := surface.NewHub()
	host := editor.NewWorkspaceHost(cfg.WorkspaceRoot)
	dispatcher := llm.NewDispatcher(secrets.NewStore())

	ctrl := controller.New(*cfg, hub, host, dispatcher)
	ctrl.RegisterHandlers(hub)

	srv := &Server{
		cfg:        cfg,
		router:     router,
		hub:        hub,
		host:       host,
		controller: ctrl,
	}

	RegisterRoutes(router, srv)

	return srv, nil
}
