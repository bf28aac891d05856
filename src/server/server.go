// Package server exposes conversations and the ledger over a small JSON API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/elee1766/procurebot/src/aisdk"
	"github.com/elee1766/procurebot/src/app"
	"github.com/elee1766/procurebot/src/executor"
	"github.com/elee1766/procurebot/src/ledger"
	"github.com/elee1766/procurebot/src/session"
)

// Conversation is one chat the server keeps open.
type Conversation interface {
	ID() string
	Session() *session.Session
	Send(ctx context.Context, input *aisdk.Message, sink executor.EventSink) (*executor.RunResult, error)
}

// Opener starts or restores conversations.
type Opener func(ctx context.Context, opts app.ChatOptions) (Conversation, error)

// AppOpener adapts an App to an Opener.
func AppOpener(a *app.App) Opener {
	return func(ctx context.Context, opts app.ChatOptions) (Conversation, error) {
		chat, err := a.OpenChat(ctx, opts)
		if err != nil {
			return nil, err
		}
		return chat, nil
	}
}

// Opts holds configuration for the API server.
type Opts struct {
	Addr   string
	Open   Opener
	Ledger *ledger.Store
	Logger *slog.Logger
}

// Server routes API requests to open conversations.
type Server struct {
	open   Opener
	ledger *ledger.Store
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*entry
}

// entry serializes loops on one conversation.
type entry struct {
	conv Conversation
	busy sync.Mutex
}

// New creates a server.
func New(opts Opts) (*Server, error) {
	if opts.Open == nil {
		return nil, fmt.Errorf("server: opener is required")
	}
	if opts.Ledger == nil {
		return nil, fmt.Errorf("server: ledger is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		open:     opts.Open,
		ledger:   opts.Ledger,
		logger:   logger.With("component", "server"),
		sessions: make(map[string]*entry),
	}, nil
}

// Handler returns the gin router.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), s.logRequests())
	s.registerRoutes(router)
	return router
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func Start(ctx context.Context, opts Opts) error {
	srv, err := New(opts)
	if err != nil {
		return err
	}
	addr := opts.Addr
	if addr == "" {
		addr = "127.0.0.1:8080"
	}

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
	}()

	srv.logger.Info("api listening", "addr", addr)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (s *Server) lookup(id string) (*entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	return e, ok
}

func (s *Server) add(conv Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[conv.ID()]; !ok {
		s.sessions[conv.ID()] = &entry{conv: conv}
	}
}
