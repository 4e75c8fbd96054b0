// Package sampling drives periodic collection and assembles snapshots.
package sampling

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"time"

	"SystemMonitor/pkg/collecting"
	"SystemMonitor/pkg/counters"
	"SystemMonitor/pkg/logging"
	"SystemMonitor/pkg/metrics"
	"SystemMonitor/pkg/telemetry"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrCycleInProgress = errors.New("sampling cycle already in progress")
	ErrStopped         = errors.New("sampler stopped")
)

type State int32

const (
	StateIdle State = iota
	StateSampling
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSampling:
		return "sampling"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Publisher receives every assembled snapshot.
type Publisher interface {
	Publish(*metrics.Snapshot)
}

const DefaultInterval = 2 * time.Second

type Config struct {
	Interval          time.Duration
	Categories        []metrics.Category
	Normalization     metrics.CPUNormalization
	ProcessWorkers    int
	ConcurrentReaders bool
	// NumCPU is used for whole-machine normalization until a CPU reading
	// reports the core count.
	NumCPU  int
	Session uuid.UUID
	Clock   clock.Clock
	Metrics *telemetry.Metrics
}

// Sampler owns the counter store. Only one cycle runs at a time; a cycle
// requested while another is running is rejected with ErrCycleInProgress.
type Sampler struct {
	cfg     Config
	src     *collecting.Sources
	pub     Publisher
	store   *counters.Store
	clock   clock.Clock
	metrics *telemetry.Metrics
	log     zerolog.Logger
	enabled map[metrics.Category]bool

	state atomic.Int32

	// Everything below is touched only by the goroutine holding StateSampling.
	seq          uint64
	last         *metrics.Snapshot
	numCPU       int
	procEntities map[int32]metrics.EntityID
	// procLast holds the last metrics reported for every pid in procEntities.
	procLast map[int32]metrics.ProcessMetric
}

func New(cfg Config, src *collecting.Sources, pub Publisher) *Sampler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.New(nil)
	}
	if cfg.Normalization == "" {
		cfg.Normalization = metrics.DefaultNormalization
	}
	if len(cfg.Categories) == 0 {
		cfg.Categories = metrics.AllCategories()
	}
	if cfg.NumCPU < 1 {
		cfg.NumCPU = runtime.NumCPU()
	}

	s := &Sampler{
		cfg:          cfg,
		src:          src,
		pub:          pub,
		store:        counters.NewStore(),
		clock:        cfg.Clock,
		metrics:      cfg.Metrics,
		log:          logging.WithComponent("sampler"),
		enabled:      make(map[metrics.Category]bool, len(cfg.Categories)),
		numCPU:       cfg.NumCPU,
		procEntities: make(map[int32]metrics.EntityID),
		procLast:     make(map[int32]metrics.ProcessMetric),
	}
	for _, c := range cfg.Categories {
		s.enabled[c] = true
	}
	return s
}

func (s *Sampler) State() State { return State(s.state.Load()) }

// Run samples immediately and then on every tick until ctx is done. The
// sampler is Stopped when Run returns.
func (s *Sampler) Run(ctx context.Context) error {
	defer s.state.Store(int32(StateStopped))
	if s.State() == StateStopped {
		return ErrStopped
	}

	ticker := s.clock.Ticker(s.cfg.Interval)
	defer ticker.Stop()

	s.log.Info().
		Dur("interval", s.cfg.Interval).
		Interface("categories", s.cfg.Categories).
		Str("normalization", string(s.cfg.Normalization)).
		Str("adapter", s.src.Name).
		Msg("sampler started")

	s.tick(ctx, ticker)
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Uint64("cycles", s.seq).Msg("sampler stopped")
			return nil
		case <-ticker.C:
			s.tick(ctx, ticker)
		}
	}
}

func (s *Sampler) tick(ctx context.Context, ticker *clock.Ticker) {
	snap, err := s.Cycle(ctx)
	if err != nil {
		if errors.Is(err, ErrCycleInProgress) {
			s.metrics.SkippedTicks.Inc()
		}
		return
	}
	// A cycle that outlived the interval overlapped later ticks; those are
	// skipped, not run back to back.
	if overrun := int(snap.CycleDuration / s.cfg.Interval); overrun > 0 {
		select {
		case <-ticker.C:
		default:
		}
		s.metrics.SkippedTicks.Add(float64(overrun))
		s.log.Warn().Dur("took", snap.CycleDuration).Int("skipped", overrun).Msg("sampling cycle overran interval")
	}
}

// Cycle runs one sampling cycle and publishes its snapshot.
func (s *Sampler) Cycle(ctx context.Context) (*metrics.Snapshot, error) {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateSampling)) {
		if s.State() == StateStopped {
			return nil, ErrStopped
		}
		return nil, ErrCycleInProgress
	}
	defer s.state.CompareAndSwap(int32(StateSampling), int32(StateIdle))

	// One reference timestamp for every counter of this cycle.
	now := s.clock.Now()
	s.store.BeginCycle()

	r := s.gather(ctx)

	s.seq++
	snap := &metrics.Snapshot{
		Session:       s.cfg.Session,
		Sequence:      s.seq,
		Timestamp:     now,
		Normalization: s.cfg.Normalization,
		Categories:    s.categories(),
	}
	prev := s.last
	if prev == nil {
		prev = &metrics.Snapshot{}
	}

	if s.enabled[metrics.CategoryCPU] {
		s.applyCPU(now, r.cpu, snap, prev)
	}
	if s.enabled[metrics.CategoryMemory] {
		s.applyMemory(r.mem, snap, prev)
	}
	if s.enabled[metrics.CategoryProcesses] {
		s.applyProcesses(now, r.procs, snap, prev)
	}
	if s.enabled[metrics.CategoryNetwork] {
		s.applyNetwork(now, r.ifaces, snap, prev)
	}

	pruned := s.store.Prune()
	snap.CycleDuration = s.clock.Since(now)

	s.metrics.Cycles.Inc()
	s.metrics.CycleDuration.Observe(snap.CycleDuration.Seconds())
	s.metrics.TrackedCounters.Set(float64(s.store.Len()))
	s.metrics.PrunedCounters.Add(float64(pruned))

	s.log.Debug().
		Uint64("seq", snap.Sequence).
		Int("processes", len(snap.Processes)).
		Int("exited", len(snap.Exited)).
		Int("interfaces", len(snap.Interfaces)).
		Int("pruned", pruned).
		Bool("stale", snap.Stale.Any()).
		Dur("took", snap.CycleDuration).
		Msg("cycle complete")

	s.last = snap
	if s.pub != nil {
		s.pub.Publish(snap)
	}
	return snap, nil
}

// Stop makes the sampler terminal. A running cycle finishes; later cycles
// are refused.
func (s *Sampler) Stop() {
	s.state.Store(int32(StateStopped))
}

func (s *Sampler) categories() []metrics.Category {
	out := make([]metrics.Category, 0, len(s.enabled))
	for _, c := range metrics.AllCategories() {
		if s.enabled[c] {
			out = append(out, c)
		}
	}
	return out
}

func (s *Sampler) readerFailed(reader string, err error) {
	s.metrics.ReaderFailures.WithLabelValues(reader).Inc()
	s.log.Warn().Err(err).Str("reader", reader).Msg("no data this cycle, keeping previous values")
}

func sample(id metrics.EntityID, kind metrics.CounterKind, v uint64, at time.Time) metrics.RawCounterSample {
	return metrics.RawCounterSample{Entity: id, Kind: kind, Value: v, Timestamp: at}
}
