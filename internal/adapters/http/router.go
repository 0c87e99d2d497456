package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Pages/internal/adapters/signal"
	"github.com/dkeye/Pages/internal/app"
	"github.com/dkeye/Pages/internal/auth"
	"github.com/dkeye/Pages/internal/config"
	"github.com/dkeye/Pages/internal/store"
)

// API bundles everything the HTTP surface needs.
type API struct {
	Auth     *auth.Service
	Store    *store.Store
	Presence *app.Presence
	Registry *app.Registry
	Signal   *signal.Controller
}

func SetupRouter(ctx context.Context, cfg *config.Config, api *API) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	if cfg.AllowedOrigin == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.AllowedOrigin}
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	r.Use(cors.New(corsCfg))

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "connections": api.Registry.Count()})
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	apiGroup := r.Group("/api")
	apiGroup.POST("/auth/register", api.handleRegister)
	apiGroup.POST("/auth/login", api.handleLogin)

	authed := apiGroup.Group("", AuthMiddleware(api.Auth))
	authed.GET("/documents", api.handleListDocuments)
	authed.POST("/documents", api.handleCreateDocument)
	authed.GET("/documents/:id", api.handleGetDocument)
	authed.PUT("/documents/:id", api.handleUpdateDocument)
	authed.POST("/documents/:id/collaborators", api.handleAddCollaborator)
	authed.GET("/documents/:id/presence", api.handleDocumentPresence)
	authed.GET("/presence", api.handlePresenceOverview)

	r.GET("/ws", AuthMiddleware(api.Auth), func(c *gin.Context) {
		api.Signal.HandleWS(ctx, c)
	})

	return r
}
