package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/membus/membus/internal/api/middleware"
	"github.com/membus/membus/internal/bus"
	"github.com/membus/membus/internal/config"
	"github.com/membus/membus/internal/logging"
	"github.com/membus/membus/internal/monitoring"
)

// Server wraps the debug HTTP server and its dependencies.
type Server struct {
	log      *logging.Logger
	registry *bus.Registry
	metrics  *monitoring.Metrics
	promReg  *prometheus.Registry
	router   *gin.Engine
	httpSrv  *http.Server
}

// New assembles the router. registry and metrics are owned by the
// caller; the server only reads from them.
func New(log *logging.Logger, registry *bus.Registry, metrics *monitoring.Metrics, promReg *prometheus.Registry, cfg *config.Config) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}
	if metrics != nil {
		router.Use(monitoring.Middleware(metrics))
	}

	s := &Server{
		log:      log,
		registry: registry,
		metrics:  metrics,
		promReg:  promReg,
		router:   router,
	}
	s.routes()
	return s
}

// Router exposes the gin engine for tests.
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) routes() {
	s.router.GET("/health", s.health)
	if s.promReg != nil {
		s.router.GET("/metrics", gin.WrapH(
			promhttp.HandlerFor(s.promReg, promhttp.HandlerOpts{})))
	}

	conns := s.router.Group("/connections")
	{
		conns.GET("", s.listConnections)
		conns.POST("", s.register)
		conns.DELETE("/:id", s.disconnect)
		conns.POST("/:id/messages", s.deliver)
		conns.POST("/:id/receive", s.receive)
	}
}

func (s *Server) health(c *gin.Context) {
	if s.metrics != nil {
		s.metrics.UpdateUptime()
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listConnections(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"connections": s.registry.List()})
}

type registerRequest struct {
	PID        uint32 `json:"pid" binding:"required"`
	BufferSize uint64 `json:"buffer_size"`
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conn, err := s.registry.Register(req.PID, req.BufferSize)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, conn.Stats())
}

func (s *Server) disconnect(c *gin.Context) {
	if !s.registry.Disconnect(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such connection"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"disconnected": true})
}

type deliverRequest struct {
	From uint32 `json:"from"`
	Data string `json:"data" binding:"required"`
}

// deliver pushes a loopback message through the real allocate/pin/copy
// path into the connection's buffer.
func (s *Server) deliver(c *gin.Context) {
	conn, ok := s.registry.Lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such connection"})
		return
	}

	var req deliverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := conn.Deliver(c.Request.Context(), req.From,
		strings.NewReader(req.Data), uint64(len(req.Data)))
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"offset": msg.Slot.Offset,
		"length": msg.Slot.Length,
	})
}

// receive pops the oldest message, copies it out of the receiver's
// buffer, and releases its slot.
func (s *Server) receive(c *gin.Context) {
	conn, ok := s.registry.Lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such connection"})
		return
	}

	msg, ok := conn.Receive()
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}

	data, err := conn.Read(msg)
	conn.Release(msg)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"from":   msg.From,
		"offset": msg.Slot.Offset,
		"length": msg.Slot.Length,
		"data":   string(data),
	})
}

// Run starts the HTTP server and blocks until it exits.
func (s *Server) Run(addr string) error {
	s.httpSrv = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
	s.log.Info("debug API listening", zap.String("addr", addr))
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close shuts the HTTP server down and disconnects every connection.
func (s *Server) Close() error {
	s.registry.Close()
	if s.httpSrv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpSrv.Shutdown(ctx)
}
