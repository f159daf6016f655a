// Package wsserver serves the REST status surface and the per-client
// WebSocket handler (component I). Grounded on the teacher's
// api/routes.go (CORSMiddleware, route grouping) and api/websocket.go
// (Client/WebSocketHub shape), adapted from the teacher's per-device
// multi-hub model to this rebuild's single-session model.
package wsserver

import (
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/scrcpyhost/scrcpy-host/internal/bridge"
	"github.com/scrcpyhost/scrcpy-host/internal/broadcast"
	"github.com/scrcpyhost/scrcpy-host/internal/control"
	"github.com/scrcpyhost/scrcpy-host/internal/session"
)

//go:embed viewer/index.html
var viewerHTML []byte

// Server wires the broadcaster, session state, and control multiplexer
// into a gin.Engine exposing spec.md §6's browser-facing surface plus
// SPEC_FULL.md §4.N's read-only status additions.
type Server struct {
	router      *gin.Engine
	broadcaster *broadcast.Broadcaster
	state       *session.State
	mux         *control.Multiplexer
	device      bridge.DeviceInfo
	audit       *AuditRing
	upgrader    upgrader
	log         logrus.FieldLogger
}

// New constructs a Server. device is the probed snapshot from
// SPEC_FULL.md §3; it is exposed read-only and never mutates the
// streaming pipeline.
func New(b *broadcast.Broadcaster, state *session.State, mux *control.Multiplexer, device bridge.DeviceInfo, log logrus.FieldLogger) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		router:      gin.New(),
		broadcaster: b,
		state:       state,
		mux:         mux,
		device:      device,
		audit:       NewAuditRing(),
		log:         log,
	}
	s.upgrader = newUpgrader()
	s.routes()
	return s
}

// Router returns the gin.Engine for binding to an http.Server.
func (s *Server) Router() *gin.Engine { return s.router }

func (s *Server) routes() {
	s.router.Use(corsMiddleware())

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	s.router.GET("/api/device", func(c *gin.Context) {
		c.JSON(http.StatusOK, successResponse(s.device))
	})

	s.router.GET("/api/status", func(c *gin.Context) {
		_, _, geo := s.state.Snapshot()
		c.JSON(http.StatusOK, successResponse(gin.H{
			"connected_clients": s.broadcaster.SubscriberCount(),
			"width":             geo.Width,
			"height":            geo.Height,
			"device_width":      geo.DeviceWidth,
			"device_height":     geo.DeviceHeight,
			"is_landscape":      geo.IsLandscape,
			"recent_events":     s.audit.Recent(),
		}))
	})

	s.router.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", viewerHTML)
	})

	s.router.GET("/ws", func(c *gin.Context) {
		s.handleWebSocket(c)
	})
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
