package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"SystemMonitor/pkg/collecting"
	"SystemMonitor/pkg/config"
	"SystemMonitor/pkg/engine"
	"SystemMonitor/pkg/exporting"
	"SystemMonitor/pkg/logging"
	"SystemMonitor/pkg/metrics"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logging.Nop()
	os.Exit(m.Run())
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0B"},
		{1023, "1023B"},
		{1024, "1.0KiB"},
		{1536, "1.5KiB"},
		{10 << 20, "10.0MiB"},
		{3 << 30, "3.0GiB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatBytes(tt.in), "formatBytes(%v)", tt.in)
	}
}

func watchSnapshot() *metrics.Snapshot {
	return &metrics.Snapshot{
		Sequence:   3,
		Timestamp:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Categories: metrics.AllCategories(),
		Host: metrics.HostMetric{
			CPUPercentTotal:   37.5,
			PerCoreCPUPercent: []float64{25, 50},
			MemoryTotalBytes:  8 << 30,
			MemoryUsedBytes:   2 << 30,
		},
		Processes: []metrics.ProcessMetric{
			{PID: 1, Name: "init", CPUPercent: 0.1, CPUBasis: metrics.BasisComputed},
			{PID: 500, Name: "worker", CPUPercent: 150, CPUBasis: metrics.BasisComputed, ResidentMemoryBytes: 64 << 20},
			{PID: 900, Name: "newcomer", CPUBasis: metrics.BasisFirstSample},
		},
		Exited: []metrics.ProcessMetric{{PID: 42, State: metrics.LifecycleJustVanished}},
		Interfaces: []metrics.NetworkInterfaceMetric{
			{Name: "en0", BytesInPerSecond: 10000, PacketsInPerSecond: 12},
			{Name: "lo", BytesInPerSecond: 5},
		},
		Stale: metrics.Staleness{Network: true},
	}
}

func TestRenderSnapshot(t *testing.T) {
	var buf bytes.Buffer
	renderSnapshot(&buf, watchSnapshot(), 2, false)
	out := buf.String()

	assert.Contains(t, out, "#3  12:00:00.000  (stale data)")
	assert.Contains(t, out, "CPU   37.5%  cores: 25 50")
	assert.Contains(t, out, "MEM  2.0GiB / 8.0GiB used")
	assert.Contains(t, out, "worker")
	assert.Contains(t, out, "init")
	assert.NotContains(t, out, "newcomer")
	assert.Contains(t, out, "1 exited")
	assert.Contains(t, out, "en0")
	assert.Contains(t, out, "9.8KiB")
	assert.NotContains(t, out, "lo ")

	buf.Reset()
	renderSnapshot(&buf, watchSnapshot(), -1, true)
	assert.Contains(t, buf.String(), "newcomer")
	assert.Contains(t, buf.String(), "lo")
}

func TestRenderSnapshotSkipsDisabledCategories(t *testing.T) {
	snap := watchSnapshot()
	snap.Categories = []metrics.Category{metrics.CategoryMemory}

	var buf bytes.Buffer
	renderSnapshot(&buf, snap, 5, false)
	out := buf.String()

	assert.Contains(t, out, "MEM")
	assert.NotContains(t, out, "CPU ")
	assert.NotContains(t, out, "PID")
	assert.NotContains(t, out, "IFACE")
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "12.5", formatPercent(12.5, metrics.BasisComputed))
	assert.Equal(t, "-", formatPercent(0, metrics.BasisFirstSample))
}

// staticOS reports the same readings forever.
type staticOS struct{}

func (staticOS) ReadCPU(context.Context) (collecting.CPUReading, error) {
	core := collecting.CPUTicks{User: 10, Idle: 90}
	return collecting.CPUReading{Total: core, PerCore: []collecting.CPUTicks{core}}, nil
}

func (staticOS) ReadMemory(context.Context) (collecting.MemoryReading, error) {
	return collecting.MemoryReading{PageSize: 4096, TotalPages: 10, UsedPages: 5, FreePages: 5}, nil
}

func (staticOS) Info(context.Context) (metrics.HostInfo, error) {
	return metrics.HostInfo{Hostname: "static", LogicalCPUs: 1}, nil
}

func (staticOS) ListPIDs(context.Context) ([]int32, error) { return nil, nil }

func (staticOS) ReadProcess(context.Context, int32) (collecting.ProcessReading, error) {
	return collecting.ProcessReading{}, metrics.ErrEntityGone
}

func (staticOS) ReadInterfaces(context.Context) ([]collecting.InterfaceReading, error) {
	return []collecting.InterfaceReading{{Name: "en0"}}, nil
}

func TestHealthServer(t *testing.T) {
	src := &collecting.Sources{Name: "static", Host: staticOS{}, Processes: staticOS{}, Interfaces: staticOS{}}
	eng, err := engine.New(engine.Config{Interval: time.Second}, engine.WithSources(src), engine.WithClock(clock.NewMock()))
	require.NoError(t, err)
	t.Cleanup(eng.Stop)

	server := &healthServer{engine: eng}

	rec := httptest.NewRecorder()
	server.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "engine not started")

	require.NoError(t, eng.Start())
	require.Eventually(t, func() bool {
		snap, _ := eng.CurrentSnapshot()
		return snap != nil
	}, 2*time.Second, time.Millisecond)

	rec = httptest.NewRecorder()
	server.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), eng.Session().String())

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])

	rec = httptest.NewRecorder()
	server.handleIndex(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// metrics stay in-process; only engine health is served
	rec = httptest.NewRecorder()
	server.handleIndex(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/healthz")
	assert.NotContains(t, rec.Body.String(), "/snapshot")
}

func TestWriteSnapshotsStopsOnInterrupt(t *testing.T) {
	clk := clock.NewMock()
	src := &collecting.Sources{Name: "static", Host: staticOS{}, Processes: staticOS{}, Interfaces: staticOS{}}
	eng, err := engine.New(engine.Config{Interval: time.Second}, engine.WithSources(src), engine.WithClock(clk))
	require.NoError(t, err)
	t.Cleanup(eng.Stop)
	require.NoError(t, eng.Start())

	seq := func() uint64 {
		snap, _ := eng.CurrentSnapshot()
		if snap == nil {
			return 0
		}
		return snap.Sequence
	}
	require.Eventually(t, func() bool { return seq() == 1 }, 2*time.Second, time.Millisecond)
	clk.Add(time.Second)
	require.Eventually(t, func() bool { return seq() == 2 }, 2*time.Second, time.Millisecond)

	var out bytes.Buffer
	exp, err := exporting.NewStreamExporter(&out, "json")
	require.NoError(t, err)

	// the first snapshot is written at once, the second never arrives
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	written, err := writeSnapshots(ctx, eng, exp, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	require.NoError(t, exp.Close())
	var doc exporting.Document
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	assert.Equal(t, uint64(2), doc.Snapshot.Sequence)
}

func TestRootRejectsInvalidConfig(t *testing.T) {
	t.Cleanup(func() { *Cfg = *config.New() })

	tests := []struct {
		args    []string
		wantErr string
	}{
		{[]string{"snapshot", "--format", "xml"}, "invalid output format"},
		{[]string{"watch", "--interval", "1ms"}, "interval must be at least"},
		{[]string{"serve", "--categories", "gpu"}, "unknown metric category"},
	}

	for _, tt := range tests {
		t.Run(tt.args[0], func(t *testing.T) {
			root := NewRootCmd()
			root.SetArgs(tt.args)
			root.SetOut(&bytes.Buffer{})
			err := root.Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
