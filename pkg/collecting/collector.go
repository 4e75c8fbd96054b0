// Package collecting reads raw host, process and network counters from the
// operating system. Readers are stateless: every delta is computed by the
// sampler from the values they return.
package collecting

import (
	"context"
	"time"

	"SystemMonitor/pkg/metrics"
)

// HostCounterReader reads host-wide CPU ticks and memory statistics.
type HostCounterReader interface {
	ReadCPU(ctx context.Context) (CPUReading, error)
	ReadMemory(ctx context.Context) (MemoryReading, error)
	Info(ctx context.Context) (metrics.HostInfo, error)
}

// ProcessEnumerator lists visible pids and queries each one. ReadProcess may
// be called from several goroutines at once.
type ProcessEnumerator interface {
	ListPIDs(ctx context.Context) ([]int32, error)
	ReadProcess(ctx context.Context, pid int32) (ProcessReading, error)
}

// NetworkInterfaceReader reports cumulative counters for every interface it
// can enumerate, loopback included.
type NetworkInterfaceReader interface {
	ReadInterfaces(ctx context.Context) ([]InterfaceReading, error)
}

// Sources bundles one adapter per reader.
type Sources struct {
	Name       string
	Host       HostCounterReader
	Processes  ProcessEnumerator
	Interfaces NetworkInterfaceReader
}

// CPUTicks are cumulative scheduler ticks of one CPU or of all CPUs.
type CPUTicks struct {
	User    uint64 `json:"user"`
	Nice    uint64 `json:"nice"`
	System  uint64 `json:"system"`
	Idle    uint64 `json:"idle"`
	IOWait  uint64 `json:"iowait"`
	IRQ     uint64 `json:"irq"`
	SoftIRQ uint64 `json:"softirq"`
	Steal   uint64 `json:"steal"`
}

// Busy counts every non-idle tick.
func (t CPUTicks) Busy() uint64 {
	return t.User + t.Nice + t.System + t.IRQ + t.SoftIRQ + t.Steal
}

func (t CPUTicks) Total() uint64 {
	return t.Busy() + t.Idle + t.IOWait
}

type CPUReading struct {
	Total   CPUTicks
	PerCore []CPUTicks
}

// MemoryReading is expressed in pages of PageSize bytes, swap in bytes.
type MemoryReading struct {
	PageSize       uint64
	TotalPages     uint64
	FreePages      uint64
	UsedPages      uint64
	ActivePages    uint64
	InactivePages  uint64
	WiredPages     uint64
	SwapTotalBytes uint64
	SwapUsedBytes  uint64
}

func (m MemoryReading) Bytes(pages uint64) uint64 { return pages * m.PageSize }

type ProcessReading struct {
	PID       int32
	PPID      int32
	HasParent bool
	Name      string
	// StartTime is zero when the platform cannot report it.
	StartTime      time.Time
	CPUTicks       uint64
	TicksPerSecond float64
	ResidentBytes  uint64
}

type InterfaceReading struct {
	Name       string
	BytesIn    uint64
	BytesOut   uint64
	PacketsIn  uint64
	PacketsOut uint64
}

// ticks converts CPU seconds, as both adapters' libraries report them, back
// into scheduler ticks.
func ticks(seconds float64) uint64 {
	if seconds <= 0 {
		return 0
	}
	return uint64(seconds*jiffiesPerSecond + 0.5)
}
