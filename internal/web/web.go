// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package web serves the live dashboard, its WebSocket feed and the
// metrics endpoint.
package web

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Thermoquad/wxlistener/internal/metrics"
	"github.com/Thermoquad/wxlistener/internal/poller"
	"github.com/Thermoquad/wxlistener/pkg/gw1000"
)

//go:embed index.html
var indexHTML []byte

// Defaults
const (
	DefaultHost = "0.0.0.0"
	DefaultPort = 18888

	currentTimeout  = 5 * time.Second
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = pongWait * 9 / 10
	subscribeBuffer = 16
	shutdownTimeout = 5 * time.Second
)

// Message is sent to WebSocket clients and returned by /api/v1/current.json
type Message struct {
	Timestamp string            `json:"timestamp"`
	Data      map[string]string `json:"data,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// NewMessage formats a poll event for display
func NewMessage(ev poller.Event) Message {
	msg := Message{Timestamp: ev.Time.UTC().Format(time.RFC3339Nano)}
	if ev.Err != nil {
		msg.Error = fmt.Sprintf("Failed to fetch data: %v", ev.Err)
		return msg
	}
	if ev.Reading != nil {
		msg.Data = gw1000.FormatFields(ev.Reading.Data)
	} else {
		msg.Data = map[string]string{}
	}
	return msg
}

// Server is the dashboard HTTP server
type Server struct {
	events   *poller.Broadcaster
	metrics  *metrics.Metrics
	logger   *slog.Logger
	upgrader websocket.Upgrader
	engine   *gin.Engine

	currentTimeout time.Duration
}

// New builds the router. m may be nil, in which case /metrics is not served.
func New(events *poller.Broadcaster, m *metrics.Metrics, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		events:  events,
		metrics: m,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		currentTimeout: currentTimeout,
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/", s.handleIndex)
	r.GET("/ws", s.handleWebSocket)
	r.GET("/api/v1/current.json", s.handleCurrent)
	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	s.engine = r
	return s
}

// Handler exposes the router
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on addr until ctx ends
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("web server listening", "addr", addr)

	select {
	case err := <-errCh:
		return fmt.Errorf("web server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web server shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web server: %w", err)
	}
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("http request",
			"client", c.ClientIP(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (s *Server) handleIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}

func (s *Server) handleCurrent(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.currentTimeout)
	defer cancel()

	ev, err := s.events.Latest(ctx)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"error": "Timeout waiting for data"})
		return
	}
	c.JSON(http.StatusOK, NewMessage(ev))
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "client", c.ClientIP(), "error", err)
		return
	}
	s.logger.Info("websocket connection established", "client", c.ClientIP())

	events, unsubscribe := s.events.Subscribe(subscribeBuffer)
	done := make(chan struct{})
	go s.readPump(conn, done)
	s.writePump(conn, events, done)

	unsubscribe()
	_ = conn.Close()
	s.logger.Info("websocket connection closed", "client", c.ClientIP())
}

// readPump discards client frames and closes done when the peer goes away
func (s *Server) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writePump(conn *websocket.Conn, events <-chan poller.Event, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(NewMessage(ev)); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
