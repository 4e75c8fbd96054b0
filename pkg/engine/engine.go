// Package engine wires the counter sources, the sampler and the publisher
// into a single component with a Start/Stop lifecycle.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"SystemMonitor/pkg/collecting"
	"SystemMonitor/pkg/config"
	"SystemMonitor/pkg/logging"
	"SystemMonitor/pkg/metrics"
	"SystemMonitor/pkg/publishing"
	"SystemMonitor/pkg/sampling"
	"SystemMonitor/pkg/telemetry"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// HostInfoTimeout bounds the one-off host identification read in Start.
const HostInfoTimeout = 5 * time.Second

// Config describes what the engine samples and how.
type Config struct {
	Interval          time.Duration
	Categories        []metrics.Category
	Normalization     metrics.CPUNormalization
	ProcessWorkers    int
	ConcurrentReaders bool
	Adapter           string
	ProcRoot          string
}

// FromConfig converts the command configuration.
func FromConfig(c *config.Config) (Config, error) {
	cats, err := c.EnabledCategories()
	if err != nil {
		return Config{}, err
	}
	norm, err := c.Normalization()
	if err != nil {
		return Config{}, err
	}
	return Config{
		Interval:          c.Interval,
		Categories:        cats,
		Normalization:     norm,
		ProcessWorkers:    c.ProcessWorkers,
		ConcurrentReaders: c.ConcurrentReaders,
		Adapter:           c.Adapter,
		ProcRoot:          c.ProcRoot,
	}, nil
}

type state int

const (
	stateNew state = iota
	stateRunning
	stateStopped
)

// Option configures an Engine.
type Option func(*Engine)

// WithSources replaces the OS adapters, typically with fakes in tests.
func WithSources(src *collecting.Sources) Option {
	return func(e *Engine) { e.src = src }
}

// WithClock sets the time source driving the sampler.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithRegistry registers the engine's own metrics with reg.
func WithRegistry(reg prometheus.Registerer) Option {
	return func(e *Engine) { e.reg = reg }
}

// Engine samples the host periodically and publishes immutable snapshots.
// All methods are safe for concurrent use.
type Engine struct {
	cfg     Config
	src     *collecting.Sources
	clock   clock.Clock
	reg     prometheus.Registerer
	session uuid.UUID
	metrics *telemetry.Metrics
	pub     *publishing.Publisher
	log     zerolog.Logger

	mu      sync.Mutex
	state   state
	info    metrics.HostInfo
	sampler *sampling.Sampler
	cancel  context.CancelFunc
	done    chan struct{}
	stopped chan struct{}
}

// New builds an engine. Nothing is read from the OS until Start.
func New(cfg Config, opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:     cfg,
		session: uuid.New(),
		stopped: make(chan struct{}),
		log:     logging.WithComponent("engine"),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.src == nil {
		src, err := collecting.New(cfg.Adapter, cfg.ProcRoot)
		if err != nil {
			return nil, fmt.Errorf("create sources: %w", err)
		}
		e.src = src
	}
	if e.clock == nil {
		e.clock = clock.New()
	}
	if e.cfg.Interval <= 0 {
		e.cfg.Interval = sampling.DefaultInterval
	}
	if len(e.cfg.Categories) == 0 {
		e.cfg.Categories = metrics.AllCategories()
	}
	if e.cfg.Normalization == "" {
		e.cfg.Normalization = metrics.DefaultNormalization
	}
	e.metrics = telemetry.New(e.reg)
	e.pub = publishing.New(e.metrics)
	return e, nil
}

// Start reads the static host information and begins sampling. The first
// cycle runs immediately. Starting twice, or after Stop, is an error.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case stateRunning:
		return metrics.ErrEngineAlreadyStarted
	case stateStopped:
		return metrics.ErrEngineStopped
	}

	e.info = e.readHostInfo()
	numCPU := e.info.LogicalCPUs
	if numCPU < 1 {
		numCPU = runtime.NumCPU()
	}

	e.sampler = sampling.New(sampling.Config{
		Interval:          e.cfg.Interval,
		Categories:        e.cfg.Categories,
		Normalization:     e.cfg.Normalization,
		ProcessWorkers:    e.cfg.ProcessWorkers,
		ConcurrentReaders: e.cfg.ConcurrentReaders,
		NumCPU:            numCPU,
		Session:           e.session,
		Clock:             e.clock,
		Metrics:           e.metrics,
	}, e.src, e.pub)

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.done = make(chan struct{})
	e.state = stateRunning

	go func(s *sampling.Sampler, done chan struct{}) {
		defer close(done)
		if err := s.Run(ctx); err != nil && !errors.Is(err, sampling.ErrStopped) {
			e.log.Error().Err(err).Msg("sampler exited")
		}
	}(e.sampler, e.done)

	e.log.Info().
		Str("session", e.session.String()).
		Str("hostname", e.info.Hostname).
		Str("adapter", e.src.Name).
		Int("cpus", numCPU).
		Msg("engine started")
	return nil
}

func (e *Engine) readHostInfo() metrics.HostInfo {
	ctx, cancel := context.WithTimeout(context.Background(), HostInfoTimeout)
	defer cancel()

	info, err := e.src.Host.Info(ctx)
	if err != nil {
		e.log.Warn().Err(err).Msg("host info incomplete")
	}
	if info.Hostname == "" {
		info.Hostname, _ = os.Hostname()
	}
	if info.Platform == "" {
		info.Platform = runtime.GOOS
	}
	return info
}

// Stop halts sampling, waits for an in-flight cycle and releases the
// subscribers. It is idempotent; an engine that was never started becomes
// stopped as well.
func (e *Engine) Stop() {
	e.mu.Lock()
	prev := e.state
	e.state = stateStopped
	cancel, done, s := e.cancel, e.done, e.sampler
	e.mu.Unlock()

	if prev == stateStopped {
		return
	}
	close(e.stopped)
	if prev == stateRunning {
		s.Stop()
		cancel()
		<-done
	}
	e.pub.Close()
	e.log.Info().Msg("engine stopped")
}

// Running reports whether the engine is between Start and Stop.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == stateRunning
}

func (e *Engine) checkStarted() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == stateNew {
		return metrics.ErrEngineNotStarted
	}
	return nil
}

// CurrentSnapshot returns the latest snapshot. It is nil until the first
// cycle completes. The last snapshot stays readable after Stop.
func (e *Engine) CurrentSnapshot() (*metrics.Snapshot, error) {
	if err := e.checkStarted(); err != nil {
		return nil, err
	}
	return e.pub.Current(), nil
}

// PreviousSnapshot returns the snapshot published before the current one.
func (e *Engine) PreviousSnapshot() (*metrics.Snapshot, error) {
	if err := e.checkStarted(); err != nil {
		return nil, err
	}
	return e.pub.Previous(), nil
}

// Subscribe registers cb for every future snapshot. Subscribing before Start
// is allowed; subscribing after Stop is not.
func (e *Engine) Subscribe(cb publishing.Callback) (uuid.UUID, error) {
	id, err := e.pub.Subscribe(cb)
	if errors.Is(err, publishing.ErrClosed) {
		return uuid.Nil, metrics.ErrEngineStopped
	}
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// Unsubscribe removes a subscription. Unknown handles are ignored.
func (e *Engine) Unsubscribe(id uuid.UUID) bool {
	return e.pub.Unsubscribe(id)
}

// Await blocks until a snapshot satisfying match is published, ctx is done or
// the engine stops.
func (e *Engine) Await(ctx context.Context, match func(*metrics.Snapshot) bool) (*metrics.Snapshot, error) {
	found := make(chan *metrics.Snapshot, 1)
	id, err := e.Subscribe(func(snap *metrics.Snapshot) {
		if match(snap) {
			select {
			case found <- snap:
			default:
			}
		}
	})
	if err != nil {
		return nil, err
	}
	defer e.Unsubscribe(id)

	select {
	case snap := <-found:
		return snap, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-e.stopped:
		return nil, metrics.ErrEngineStopped
	}
}

// HostInfo returns the static host identification read by Start.
func (e *Engine) HostInfo() metrics.HostInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.info
}

// Session identifies this engine instance in every snapshot.
func (e *Engine) Session() uuid.UUID { return e.session }

// Interval returns the effective sampling interval.
func (e *Engine) Interval() time.Duration { return e.cfg.Interval }

// Metrics exposes the engine's self-instrumentation.
func (e *Engine) Metrics() *telemetry.Metrics { return e.metrics }

// MaxSnapshotAge is how many intervals may pass without a new snapshot before
// Health reports the engine as stalled.
const MaxSnapshotAge = 3

// Health reports nil while the engine is running and publishing on schedule.
func (e *Engine) Health() error {
	e.mu.Lock()
	st := e.state
	e.mu.Unlock()

	switch st {
	case stateNew:
		return metrics.ErrEngineNotStarted
	case stateStopped:
		return metrics.ErrEngineStopped
	}

	snap := e.pub.Current()
	if snap == nil {
		return nil
	}
	limit := MaxSnapshotAge * e.cfg.Interval
	if age := e.clock.Since(snap.Timestamp); age > limit {
		return fmt.Errorf("last snapshot is %v old (limit %v)", age.Round(time.Millisecond), limit)
	}
	return nil
}
