// Package status provides the optional HTTP endpoint reporting forwarder
// health and per-forwarding delivery counters.
package status

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ForwardingStatus is the reported state of one forwarding.
type ForwardingStatus struct {
	Name      string `json:"name"`
	Delivered int64  `json:"delivered"`
}

// Snapshot is the point-in-time state reported by /api/status.
type Snapshot struct {
	Version     string             `json:"version"`
	HMC         string             `json:"hmc"`
	Label       string             `json:"label"`
	LiveState   string             `json:"live_state"`
	Forwardings []ForwardingStatus `json:"forwardings"`
}

// Server serves the status HTTP API.
type Server struct {
	addr      string
	snapshot  func() Snapshot
	server    *http.Server
	listener  net.Listener
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// NewServer creates a status server; snapshot is called per request.
func NewServer(addr string, snapshot func() Snapshot) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:     addr,
		snapshot: snapshot,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.handleHealth)
	r.GET("/api/status", s.handleStatus)

	s.server = &http.Server{
		Handler:           r,
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.startTime = time.Now()

	go s.server.Serve(listener)
	return nil
}

// Addr returns the bound listen address; valid after Start.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Stop gracefully shuts down the status server.
func (s *Server) Stop() error {
	s.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.snapshot())
}
