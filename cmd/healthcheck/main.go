// Command healthcheck probes a running serverify instance, for use as a
// container health check. It exits 0 when the liveness endpoint answers
// 200 and 1 otherwise.
package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/autopp/serverify/internal/config"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("healthcheck", flag.ContinueOnError)
	port := fs.String("port", "", "port serverify listens on (default 8080, or $PORT)")
	path := fs.String("path", "/health", "liveness endpoint path")
	timeout := fs.Duration("timeout", 5*time.Second, "probe timeout")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *port == "" {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "healthcheck: %v\n", err)
			return 1
		}
		*port = cfg.Port
	}

	client := &http.Client{Timeout: *timeout}
	resp, err := client.Get(fmt.Sprintf("http://localhost:%s%s", *port, *path))
	if err != nil {
		fmt.Fprintf(os.Stderr, "healthcheck: %v\n", err)
		return 1
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "healthcheck: %s answered %d\n", *path, resp.StatusCode)
		return 1
	}
	return 0
}
