package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"SystemMonitor/pkg/engine"
)

// startEngine builds an engine from Cfg and starts it. The caller must Stop it.
func startEngine(reg prometheus.Registerer) (*engine.Engine, error) {
	ecfg, err := engine.FromConfig(Cfg)
	if err != nil {
		return nil, err
	}

	var opts []engine.Option
	if reg != nil {
		opts = append(opts, engine.WithRegistry(reg))
	}
	eng, err := engine.New(ecfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	if err := eng.Start(); err != nil {
		return nil, fmt.Errorf("failed to start engine: %w", err)
	}
	return eng, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
