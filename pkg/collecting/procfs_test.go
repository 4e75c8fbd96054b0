//go:build linux

package collecting

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"SystemMonitor/pkg/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureBootTime = 1700000000

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func pidStat(pid, ppid int, comm string, utime, stime, starttime, rss uint64) string {
	fields := []string{
		fmt.Sprint(pid), "(" + comm + ")", "S", fmt.Sprint(ppid),
		"1", "1", "0", "-1", "4194560", "100", "0", "0", "0",
		fmt.Sprint(utime), fmt.Sprint(stime), "0", "0", "20", "0", "1", "0",
		fmt.Sprint(starttime), "1024000", fmt.Sprint(rss), "18446744073709551615",
	}
	for len(fields) < 52 {
		fields = append(fields, "0")
	}
	return strings.Join(fields, " ") + "\n"
}

func newFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "stat"), fmt.Sprintf(`cpu  1000 20 300 8000 100 10 5 0 0 0
cpu0 600 10 200 3900 50 5 3 0 0 0
cpu1 400 10 100 4100 50 5 2 0 0 0
ctxt 123456
btime %d
processes 4321
procs_running 2
procs_blocked 0
`, fixtureBootTime))

	writeFile(t, filepath.Join(root, "meminfo"), `MemTotal:       16000000 kB
MemFree:         4000000 kB
MemAvailable:   10000000 kB
Buffers:          200000 kB
Cached:          5000000 kB
Active:          6000000 kB
Inactive:        3000000 kB
Unevictable:       40000 kB
SwapTotal:       2000000 kB
SwapFree:        1500000 kB
`)

	writeFile(t, filepath.Join(root, "net", "dev"), `Inter-|   Receive                                                |  Transmit
 face |bytes    packets errs drop fifo frame compressed multicast|bytes    packets errs drop fifo colls carrier compressed
    lo:    5000      50    0    0    0     0          0         0     5000      50    0    0    0     0       0          0
  eth0: 1000000    1200    0    0    0     0          0         0   250000     800    0    0    0     0       0          0
`)

	writeFile(t, filepath.Join(root, "1", "stat"), pidStat(1, 0, "init", 50, 25, 10, 300))
	writeFile(t, filepath.Join(root, "500", "stat"), pidStat(500, 1, "stress worker", 150, 50, 500, 1000))
	return root
}

func TestProcfsReadCPU(t *testing.T) {
	p, err := NewProcfs(newFixture(t))
	require.NoError(t, err)

	r, err := p.ReadCPU(context.Background())
	require.NoError(t, err)

	assert.Equal(t, CPUTicks{User: 1000, Nice: 20, System: 300, Idle: 8000, IOWait: 100, IRQ: 10, SoftIRQ: 5}, r.Total)
	require.Len(t, r.PerCore, 2)
	assert.Equal(t, uint64(600), r.PerCore[0].User)
	assert.Equal(t, uint64(4100), r.PerCore[1].Idle)
	assert.Equal(t, uint64(1335), r.Total.Busy())
	assert.Equal(t, uint64(9435), r.Total.Total())
}

func TestProcfsReadMemory(t *testing.T) {
	p, err := NewProcfs(newFixture(t))
	require.NoError(t, err)

	r, err := p.ReadMemory(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(16000000*1024), r.Bytes(r.TotalPages))
	assert.Equal(t, uint64(4000000*1024), r.Bytes(r.FreePages))
	assert.Equal(t, uint64(6000000*1024), r.Bytes(r.UsedPages))
	assert.Equal(t, uint64(40000*1024), r.Bytes(r.WiredPages))
	assert.Equal(t, uint64(2000000*1024), r.SwapTotalBytes)
	assert.Equal(t, uint64(500000*1024), r.SwapUsedBytes)
}

func TestProcfsReadInterfaces(t *testing.T) {
	p, err := NewProcfs(newFixture(t))
	require.NoError(t, err)

	ifaces, err := p.ReadInterfaces(context.Background())
	require.NoError(t, err)
	require.Len(t, ifaces, 2)

	assert.Equal(t, "eth0", ifaces[0].Name)
	assert.Equal(t, uint64(1000000), ifaces[0].BytesIn)
	assert.Equal(t, uint64(250000), ifaces[0].BytesOut)
	assert.Equal(t, uint64(1200), ifaces[0].PacketsIn)
	assert.Equal(t, uint64(800), ifaces[0].PacketsOut)
	assert.Equal(t, "lo", ifaces[1].Name, "loopback is reported, filtering is up to consumers")
}

func TestProcfsProcesses(t *testing.T) {
	p, err := NewProcfs(newFixture(t))
	require.NoError(t, err)
	ctx := context.Background()

	pids, err := p.ListPIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int32{1, 500}, pids)

	r, err := p.ReadProcess(ctx, 500)
	require.NoError(t, err)
	assert.Equal(t, "stress worker", r.Name)
	assert.Equal(t, int32(1), r.PPID)
	assert.True(t, r.HasParent)
	assert.Equal(t, uint64(200), r.CPUTicks)
	assert.Equal(t, float64(100), r.TicksPerSecond)
	assert.Equal(t, uint64(1000*os.Getpagesize()), r.ResidentBytes)
	assert.Equal(t, time.Unix(fixtureBootTime, 0).Add(5*time.Second), r.StartTime)

	r, err = p.ReadProcess(ctx, 1)
	require.NoError(t, err)
	assert.False(t, r.HasParent)
}

func TestProcfsVanishedProcess(t *testing.T) {
	p, err := NewProcfs(newFixture(t))
	require.NoError(t, err)

	_, err = p.ReadProcess(context.Background(), 4242)
	require.Error(t, err)
	assert.True(t, errors.Is(err, metrics.ErrEntityGone))

	var qe *metrics.QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "pid 4242", qe.Entity)
	assert.Equal(t, "gone", metrics.FailureReason(err))
}

func TestProcfsMissingFileIsClassified(t *testing.T) {
	root := t.TempDir()
	p, err := NewProcfs(root)
	require.NoError(t, err)

	_, err = p.ReadMemory(context.Background())
	require.Error(t, err)
	var qe *metrics.QueryError
	assert.ErrorAs(t, err, &qe)
}

func TestProcfsCancelledContext(t *testing.T) {
	p, err := NewProcfs(newFixture(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.ReadCPU(ctx)
	assert.ErrorIs(t, err, metrics.ErrTransientQuery)
}

func TestProcfsInfo(t *testing.T) {
	p, err := NewProcfs(newFixture(t))
	require.NoError(t, err)

	info, err := p.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, info.LogicalCPUs)
	assert.Equal(t, "linux", info.Platform)
	assert.Equal(t, time.Unix(fixtureBootTime, 0), info.BootTime)
	assert.NotEmpty(t, info.Kernel)
}
