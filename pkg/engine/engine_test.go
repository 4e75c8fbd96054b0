package engine

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"SystemMonitor/pkg/collecting"
	"SystemMonitor/pkg/config"
	"SystemMonitor/pkg/logging"
	"SystemMonitor/pkg/metrics"
	"SystemMonitor/pkg/publishing"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logging.Nop()
	os.Exit(m.Run())
}

// stubOS advances every counter by a fixed step on each read.
type stubOS struct {
	mu    sync.Mutex
	reads uint64
}

func (s *stubOS) step() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	return s.reads
}

func (s *stubOS) ReadCPU(context.Context) (collecting.CPUReading, error) {
	n := s.step()
	core := collecting.CPUTicks{User: 25 * n, Idle: 75 * n}
	return collecting.CPUReading{
		Total:   collecting.CPUTicks{User: 50 * n, Idle: 150 * n},
		PerCore: []collecting.CPUTicks{core, core},
	}, nil
}

func (s *stubOS) ReadMemory(context.Context) (collecting.MemoryReading, error) {
	return collecting.MemoryReading{PageSize: 4096, TotalPages: 1000, FreePages: 400, UsedPages: 600}, nil
}

func (s *stubOS) Info(context.Context) (metrics.HostInfo, error) {
	return metrics.HostInfo{Hostname: "stub", Platform: "test", LogicalCPUs: 2}, nil
}

func (s *stubOS) ListPIDs(context.Context) ([]int32, error) {
	return []int32{1}, nil
}

func (s *stubOS) ReadProcess(_ context.Context, pid int32) (collecting.ProcessReading, error) {
	s.mu.Lock()
	n := s.reads
	s.mu.Unlock()
	return collecting.ProcessReading{PID: pid, Name: "init", CPUTicks: 10 * n, TicksPerSecond: 100}, nil
}

func (s *stubOS) ReadInterfaces(context.Context) ([]collecting.InterfaceReading, error) {
	s.mu.Lock()
	n := s.reads
	s.mu.Unlock()
	return []collecting.InterfaceReading{{Name: "en0", BytesIn: 1000 * n, BytesOut: 500 * n}}, nil
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *clock.Mock) {
	t.Helper()
	clk := clock.NewMock()
	clk.Set(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	stub := &stubOS{}
	src := &collecting.Sources{Name: "stub", Host: stub, Processes: stub, Interfaces: stub}
	opts = append([]Option{WithSources(src), WithClock(clk)}, opts...)

	e, err := New(Config{Interval: time.Second}, opts...)
	require.NoError(t, err)
	t.Cleanup(e.Stop)
	return e, clk
}

func waitForSequence(t *testing.T, e *Engine, seq uint64) *metrics.Snapshot {
	t.Helper()
	var snap *metrics.Snapshot
	require.Eventually(t, func() bool {
		cur, err := e.CurrentSnapshot()
		if err != nil || cur == nil {
			return false
		}
		snap = cur
		return cur.Sequence >= seq
	}, 2*time.Second, time.Millisecond)
	return snap
}

func TestLifecycle(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.CurrentSnapshot()
	assert.ErrorIs(t, err, metrics.ErrEngineNotStarted)
	_, err = e.PreviousSnapshot()
	assert.ErrorIs(t, err, metrics.ErrEngineNotStarted)
	assert.ErrorIs(t, e.Health(), metrics.ErrEngineNotStarted)
	assert.False(t, e.Running())

	require.NoError(t, e.Start())
	assert.True(t, e.Running())
	assert.ErrorIs(t, e.Start(), metrics.ErrEngineAlreadyStarted)
	assert.Equal(t, "stub", e.HostInfo().Hostname)
	assert.Equal(t, 2, e.HostInfo().LogicalCPUs)

	waitForSequence(t, e, 1)
	assert.NoError(t, e.Health())

	e.Stop()
	e.Stop()
	assert.False(t, e.Running())
	assert.ErrorIs(t, e.Start(), metrics.ErrEngineStopped)
	assert.ErrorIs(t, e.Health(), metrics.ErrEngineStopped)

	_, err = e.Subscribe(func(*metrics.Snapshot) {})
	assert.ErrorIs(t, err, metrics.ErrEngineStopped)

	// the final snapshot stays readable
	snap, err := e.CurrentSnapshot()
	require.NoError(t, err)
	assert.NotNil(t, snap)
}

func TestStopBeforeStart(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Stop()
	assert.ErrorIs(t, e.Start(), metrics.ErrEngineStopped)
}

func TestSnapshotsAdvanceWithClock(t *testing.T) {
	e, clk := newTestEngine(t)
	require.NoError(t, e.Start())

	first := waitForSequence(t, e, 1)
	assert.Equal(t, e.Session(), first.Session)
	require.Len(t, first.Interfaces, 1)
	assert.Equal(t, metrics.BasisFirstSample, first.Interfaces[0].Basis)

	clk.Add(time.Second)
	second := waitForSequence(t, e, 2)

	prev, err := e.PreviousSnapshot()
	require.NoError(t, err)
	assert.Equal(t, first, prev)

	require.Len(t, second.Interfaces, 1)
	assert.Equal(t, metrics.BasisComputed, second.Interfaces[0].Basis)
	assert.InDelta(t, 1000, second.Interfaces[0].BytesInPerSecond, 1e-9)
	assert.InDelta(t, 500, second.Interfaces[0].BytesOutPerSecond, 1e-9)
	assert.InDelta(t, 25, second.Host.CPUPercentTotal, 1e-9)
	assert.Equal(t, uint64(600*4096), second.Host.MemoryUsedBytes)
}

func TestSubscribeBeforeStart(t *testing.T) {
	e, _ := newTestEngine(t)

	got := make(chan *metrics.Snapshot, 4)
	id, err := e.Subscribe(func(s *metrics.Snapshot) { got <- s })
	require.NoError(t, err)

	require.NoError(t, e.Start())
	select {
	case snap := <-got:
		assert.Equal(t, uint64(1), snap.Sequence)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot delivered")
	}

	assert.True(t, e.Unsubscribe(id))
	assert.False(t, e.Unsubscribe(id))
}

func TestSubscribeNilCallback(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.Subscribe(nil)
	assert.ErrorIs(t, err, publishing.ErrNilCallback)
	assert.NotErrorIs(t, err, metrics.ErrEngineStopped)
}

func TestAwait(t *testing.T) {
	e, clk := newTestEngine(t)
	require.NoError(t, e.Start())
	waitForSequence(t, e, 1)

	done := make(chan *metrics.Snapshot, 1)
	go func() {
		snap, err := e.Await(context.Background(), func(s *metrics.Snapshot) bool { return s.Sequence >= 2 })
		assert.NoError(t, err)
		done <- snap
	}()

	require.Eventually(t, func() bool {
		clk.Add(time.Second)
		select {
		case snap := <-done:
			assert.GreaterOrEqual(t, snap.Sequence, uint64(2))
			return true
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAwaitEndsOnStopAndCancel(t *testing.T) {
	e, _ := newTestEngine(t)
	require.NoError(t, e.Start())

	never := func(*metrics.Snapshot) bool { return false }

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := e.Await(ctx, never)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	errs := make(chan error, 1)
	go func() {
		_, err := e.Await(context.Background(), never)
		errs <- err
	}()
	time.Sleep(10 * time.Millisecond)
	e.Stop()

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, metrics.ErrEngineStopped)
	case <-time.After(2 * time.Second):
		t.Fatal("Await did not return after Stop")
	}
}

func TestRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	e, _ := newTestEngine(t, WithRegistry(reg))
	require.NoError(t, e.Start())
	waitForSequence(t, e, 1)

	assert.GreaterOrEqual(t, testutil.ToFloat64(e.Metrics().Cycles), 1.0)

	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "sysmon_cycles_total")
}

func TestFromConfig(t *testing.T) {
	c := config.New()
	c.Categories = []string{"cpu", "net"}
	c.CPUNormalization = "whole-machine"
	c.ConcurrentReaders = true

	cfg, err := FromConfig(c)
	require.NoError(t, err)
	assert.Equal(t, []metrics.Category{metrics.CategoryCPU, metrics.CategoryNetwork}, cfg.Categories)
	assert.Equal(t, metrics.NormalizeWholeMachine, cfg.Normalization)
	assert.True(t, cfg.ConcurrentReaders)
	assert.Equal(t, config.DefaultInterval, cfg.Interval)

	c.Categories = []string{"gpu"}
	_, err = FromConfig(c)
	assert.Error(t, err)
}

func TestNewRejectsUnknownAdapter(t *testing.T) {
	_, err := New(Config{Adapter: "wmi"})
	assert.Error(t, err)
}
