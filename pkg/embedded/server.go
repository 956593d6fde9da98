// Package embedded provides an embeddable Overcast server for in-process
// use, e.g. a chat bot that hosts its own overlay endpoint.
package embedded

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mistakeknot/overcast/internal/broker"
	"github.com/mistakeknot/overcast/internal/bus"
	"github.com/mistakeknot/overcast/internal/core"
	"github.com/mistakeknot/overcast/internal/httpapi"
	"github.com/mistakeknot/overcast/internal/ws"
)

// Config configures the embedded server
type Config struct {
	// Port is the HTTP port to listen on. If 0, defaults to 7340.
	Port int

	// Host is the host to bind to. If empty, defaults to 127.0.0.1.
	Host string

	// Overlays are preregistered before the server starts accepting
	// connections. Note the registry is still cleared when the last display
	// disconnects; use Broker().Add to re-register.
	Overlays []core.OverlayDefinition

	// Logger, if set, replaces the default stderr logger.
	Logger *zerolog.Logger
}

// Server is an embedded Overcast server
type Server struct {
	cfg     Config
	brk     *broker.Broker
	hub     *ws.Hub
	http    *http.Server
	started bool
	mu      sync.Mutex
}

// New creates a new embedded Overcast server
func New(cfg Config) (*Server, error) {
	if cfg.Port == 0 {
		cfg.Port = 7340
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}

	eventBus := bus.New(log)
	brk := broker.New(eventBus, log)
	hub := ws.NewHub(brk, log)
	static := httpapi.NewMounts()
	brk.WithBroadcaster(hub).WithStaticExposer(static)

	if res := brk.Add(nil, cfg.Overlays...); len(res.Rejected) > 0 {
		return nil, fmt.Errorf("preregister overlays: %d rejected", len(res.Rejected))
	}

	router := httpapi.NewRouter(httpapi.NewService(brk), hub.Handler(), static)
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	return &Server{
		cfg:  cfg,
		brk:  brk,
		hub:  hub,
		http: &http.Server{Addr: addr, Handler: router},
	}, nil
}

// Start starts the embedded server in a goroutine
func (s *Server) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "overcast server error: %v\n", err)
		}
	}()

	// Wait a moment for the server to start
	time.Sleep(50 * time.Millisecond)
	return nil
}

// Stop stops the embedded server gracefully
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.http.Shutdown(ctx)
}

// Addr returns the server's listen address
func (s *Server) Addr() string {
	return s.http.Addr
}

// URL returns the base URL for the server
func (s *Server) URL() string {
	return fmt.Sprintf("http://%s", s.http.Addr)
}

// Broker returns the underlying broker for direct in-process triggering.
func (s *Server) Broker() *broker.Broker {
	return s.brk
}
