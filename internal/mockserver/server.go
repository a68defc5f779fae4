// Package mockserver assembles the mock endpoints, the session
// control-plane and their shared recorder into one running HTTP server.
package mockserver

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/autopp/serverify/internal/api"
	"github.com/autopp/serverify/internal/recorder"
	"github.com/autopp/serverify/internal/routeconfig"
)

// Server owns the recorder's database handle and the serving goroutine.
type Server struct {
	addr    net.Addr
	srv     *http.Server
	db      *sql.DB
	serveCh chan error
}

// Start builds a fresh in-memory store, initialises the recorder, composes
// the router and begins serving on ln. The caller must have registered the
// "sqlite" database/sql driver.
func Start(ctx context.Context, routes []routeconfig.RouteDefinition, ln net.Listener, logger zerolog.Logger) (*Server, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	// An in-memory database vanishes when its last connection closes, so
	// the pool is pinned to a single connection.
	db.SetMaxOpenConns(1)

	rec := recorder.New(db)
	if err := rec.Init(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialising recorder: %w", err)
	}

	router := api.NewRouter(api.RouterConfig{
		Recorder: rec,
		Routes:   routes,
		Logger:   logger,
	})

	srv := &http.Server{Handler: router}
	serveCh := make(chan error, 1)
	go func() {
		err := srv.Serve(ln)
		if err == http.ErrServerClosed {
			err = nil
		}
		serveCh <- err
	}()

	return &Server{addr: ln.Addr(), srv: srv, db: db, serveCh: serveCh}, nil
}

// Addr returns the listener's local address.
func (s *Server) Addr() net.Addr {
	return s.addr
}

// Shutdown stops accepting new connections, waits for in-flight handlers,
// then closes the store. It propagates the serving goroutine's result.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownErr := s.srv.Shutdown(ctx)

	serveErr := <-s.serveCh

	if err := s.db.Close(); err != nil && shutdownErr == nil {
		shutdownErr = fmt.Errorf("closing store: %w", err)
	}

	if serveErr != nil {
		return serveErr
	}
	return shutdownErr
}
