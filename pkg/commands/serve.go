package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"SystemMonitor/pkg/engine"
	"SystemMonitor/pkg/logging"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"s"},
		Short:   "Run HTTP server exposing the monitor's health",
		Long: `Run the sampler and an HTTP server describing the monitor itself.

Endpoints:
  /          Status page with links
  /metrics   Prometheus metrics about the sampling engine
  /healthz   200 while snapshots are fresh, 503 otherwise

Example:
  sysmon serve --listen :9464
  sysmon serve --listen 127.0.0.1:9090 -i 5s`,
		RunE: runServe,
	}

	Cfg.AddCollectionFlags(cmd)
	Cfg.AddServeFlags(cmd)

	return cmd
}

type healthServer struct {
	engine *engine.Engine
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logging.WithComponent("serve")

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	eng, err := startEngine(reg)
	if err != nil {
		return err
	}
	defer eng.Stop()

	server := &healthServer{engine: eng}

	// Setup routes
	mux := http.NewServeMux()
	mux.HandleFunc("/", server.handleIndex)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/healthz", server.handleHealth)

	httpServer := &http.Server{
		Addr:              Cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", Cfg.ListenAddr).Msg("starting metrics server")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down metrics server")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	return httpServer.Shutdown(shutdownCtx)
}

func (s *healthServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head><title>SystemMonitor</title></head>
<body>
<h1>SystemMonitor</h1>
<ul>
<li><a href="/metrics">Metrics</a> - Sampling engine instrumentation</li>
<li><a href="/healthz">Health</a> - Snapshot freshness</li>
</ul>
</body>
</html>`)
}

func (s *healthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Health(); err != nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok", "session": s.engine.Session().String()})
}

func writeJSONResponse(w http.ResponseWriter, status int, data interface{}) {
	body, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		http.Error(w, fmt.Sprintf("JSON error: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}
