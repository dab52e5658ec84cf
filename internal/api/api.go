// Package api exposes the daemon's debug/observability HTTP surface:
// health, live-session listing, Prometheus metrics, and a websocket
// endpoint that spawns and attaches to a local shell session.
package api

import (
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/openmux/shellbridge/internal/api/middleware"
	"github.com/openmux/shellbridge/internal/monitoring"
	"github.com/openmux/shellbridge/internal/server"
)

// API wires the debug endpoints over a session registry.
type API struct {
	log         *zap.Logger
	registry    *server.Registry
	metrics     *monitoring.Metrics
	shellTokens []string
}

// New creates the debug API. shellTokens is the command template used for
// websocket-spawned shells.
func New(log *zap.Logger, registry *server.Registry, metrics *monitoring.Metrics, shellTokens []string) *API {
	return &API{
		log:         log,
		registry:    registry,
		metrics:     metrics,
		shellTokens: shellTokens,
	}
}

// Router builds the gin engine with all debug routes.
func (a *API) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(nil))
	router.Use(middleware.RateLimit(50, 100))

	router.GET("/healthz", a.health)
	router.GET("/api/sessions", a.listSessions)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(
		a.metrics.Registry(), promhttp.HandlerOpts{})))
	router.GET("/ws/shell", a.attachShell)

	return router
}

// Serve runs the debug listener until the listener is closed.
func (a *API) Serve(listener net.Listener) error {
	return http.Serve(listener, a.Router())
}

func (a *API) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a *API) listSessions(c *gin.Context) {
	sessions := a.registry.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"sessions": sessions,
		"count":    len(sessions),
	})
}
