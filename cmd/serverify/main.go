package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/autopp/serverify/internal/config"
	"github.com/autopp/serverify/internal/mockserver"
	"github.com/autopp/serverify/internal/routeconfig"
)

const (
	exitOK          = 0
	exitServerError = 1
	exitConfigError = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("serverify", flag.ContinueOnError)
	port := fs.String("port", "", "port to listen on (default 8080, or $PORT)")
	if err := fs.Parse(args); err != nil {
		return exitConfigError
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return exitConfigError
	}
	if *port == "" {
		*port = cfg.Port
	}

	configPath := fs.Arg(0)
	if configPath == "" {
		fmt.Fprintln(os.Stderr, "usage: serverify [--port <port>] <config_path>")
		return exitConfigError
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading config: %v\n", err)
		return exitConfigError
	}

	routes, err := routeconfig.Parse(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parsing config: %v\n", err)
		return exitConfigError
	}

	logger := newLogger(cfg.LogLevel)

	if err := serve(routes, *port, logger); err != nil {
		logger.Error().Err(err).Msg("server failed")
		return exitServerError
	}
	return exitOK
}

func newLogger(level string) zerolog.Logger {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(parsed).With().Timestamp().Logger()
}

func serve(routes []routeconfig.RouteDefinition, port string, logger zerolog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ln, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("listening on :%s: %w", port, err)
	}

	srv, err := mockserver.Start(ctx, routes, ln, logger)
	if err != nil {
		return err
	}
	logger.Info().Stringer("addr", srv.Addr()).Msg("serverify listening")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info().Stringer("signal", sig).Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}
