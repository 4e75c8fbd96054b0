package collecting

import (
	"context"
	"os"
	"testing"

	"SystemMonitor/pkg/logging"
)

func init() {
	logging.Nop()
}

func benchSources(b *testing.B, adapter string) *Sources {
	b.Helper()
	if adapter == AdapterProcfs {
		if _, err := os.Stat("/proc/stat"); err != nil {
			b.Skip("no /proc on this host")
		}
	}
	s, err := New(adapter, "")
	if err != nil {
		b.Skip(err)
	}
	return s
}

func benchmarkHost(b *testing.B, adapter string) {
	s := benchSources(b, adapter)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.Host.ReadCPU(ctx)
		_, _ = s.Host.ReadMemory(ctx)
	}
}

func benchmarkInterfaces(b *testing.B, adapter string) {
	s := benchSources(b, adapter)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.Interfaces.ReadInterfaces(ctx)
	}
}

func benchmarkProcesses(b *testing.B, adapter string) {
	s := benchSources(b, adapter)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pids, err := s.Processes.ListPIDs(ctx)
		if err != nil {
			b.Fatal(err)
		}
		for _, pid := range pids {
			_, _ = s.Processes.ReadProcess(ctx, pid)
		}
	}
}

func BenchmarkProcfs_Host(b *testing.B)         { benchmarkHost(b, AdapterProcfs) }
func BenchmarkProcfs_Interfaces(b *testing.B)   { benchmarkInterfaces(b, AdapterProcfs) }
func BenchmarkProcfs_Processes(b *testing.B)    { benchmarkProcesses(b, AdapterProcfs) }
func BenchmarkGopsutil_Host(b *testing.B)       { benchmarkHost(b, AdapterGopsutil) }
func BenchmarkGopsutil_Interfaces(b *testing.B) { benchmarkInterfaces(b, AdapterGopsutil) }
func BenchmarkGopsutil_Processes(b *testing.B)  { benchmarkProcesses(b, AdapterGopsutil) }
