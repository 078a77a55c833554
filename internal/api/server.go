package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/clipdesk/clipdesk-agent/internal/chat"
	"github.com/clipdesk/clipdesk-agent/internal/handoff"
	"github.com/clipdesk/clipdesk-agent/internal/history"
	"github.com/clipdesk/clipdesk-agent/internal/preview"
	"github.com/clipdesk/clipdesk-agent/internal/store"
	"github.com/clipdesk/clipdesk-agent/internal/workflow"
)

const Version = "0.1.0"

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// ServerConfig wires the local API. History and Chat may be nil, in which
// case their routes answer with empty results or 503.
type ServerConfig struct {
	Port      int
	Session   *workflow.Session
	Previews  *preview.Registry
	Handoff   *handoff.Handoff
	History   history.Repository
	Chat      *chat.Service
	Tokens    store.KV
	ExportDir string
	RateLimit int
	Logger    *slog.Logger
	StartTime time.Time
	DeviceID  string
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
