package metrics

import (
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LifecycleState of a process as seen by the sampler.
type LifecycleState string

const (
	LifecycleAlive        LifecycleState = "alive"
	LifecycleJustVanished LifecycleState = "justVanished"
)

// ProcessMetric is the per-process section of a snapshot.
type ProcessMetric struct {
	PID       int32     `json:"pid"`
	ParentPID int32     `json:"parentPid,omitempty"`
	HasParent bool      `json:"hasParent"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"startTime,omitempty"`

	// CPUPercent follows the configured normalization. CPUCorePercent is
	// always relative to a single core and is never clamped above.
	CPUPercent     float64   `json:"cpuPercent"`
	CPUCorePercent float64   `json:"cpuCorePercent"`
	CPUBasis       RateBasis `json:"cpuBasis"`

	ResidentMemoryBytes uint64         `json:"residentMemoryBytes"`
	State               LifecycleState `json:"state"`
}

// NetworkInterfaceMetric holds the throughput of one interface.
type NetworkInterfaceMetric struct {
	Name                string    `json:"name"`
	BytesInPerSecond    float64   `json:"bytesInPerSecond"`
	BytesOutPerSecond   float64   `json:"bytesOutPerSecond"`
	PacketsInPerSecond  float64   `json:"packetsInPerSecond"`
	PacketsOutPerSecond float64   `json:"packetsOutPerSecond"`
	Basis               RateBasis `json:"basis"`
}

// HostMetric holds host-wide CPU and memory figures.
type HostMetric struct {
	CPUPercentTotal   float64   `json:"cpuPercentTotal"`
	PerCoreCPUPercent []float64 `json:"perCoreCpuPercent"`
	MemoryTotalBytes  uint64    `json:"memoryTotalBytes"`
	MemoryUsedBytes   uint64    `json:"memoryUsedBytes"`
	MemoryFreeBytes   uint64    `json:"memoryFreeBytes"`
	MemoryWiredBytes  uint64    `json:"memoryWiredBytes"`
	SwapTotalBytes    uint64    `json:"swapTotalBytes"`
	SwapUsedBytes     uint64    `json:"swapUsedBytes"`
}

// Staleness flags sections that were carried over from the previous cycle
// because their reader failed.
type Staleness struct {
	HostCPU    bool `json:"hostCpu"`
	HostMemory bool `json:"hostMemory"`
	Processes  bool `json:"processes"`
	Network    bool `json:"network"`
}

// Any reports whether any section is stale.
func (s Staleness) Any() bool {
	return s.HostCPU || s.HostMemory || s.Processes || s.Network
}

// Snapshot is the result of one sampling cycle. It is immutable once
// published: consumers must not modify it or the slices it holds. Use Clone
// to obtain a private copy.
type Snapshot struct {
	Session       uuid.UUID        `json:"session"`
	Sequence      uint64           `json:"sequence"`
	Timestamp     time.Time        `json:"timestamp"`
	CycleDuration time.Duration    `json:"cycleDuration"`
	Normalization CPUNormalization `json:"cpuNormalization"`
	Categories    []Category       `json:"categories"`

	Host       HostMetric               `json:"host"`
	Processes  []ProcessMetric          `json:"processes"`
	Exited     []ProcessMetric          `json:"exited,omitempty"`
	Interfaces []NetworkInterfaceMetric `json:"interfaces"`
	Stale      Staleness                `json:"stale"`
}

// Has reports whether the category was collected for this snapshot.
func (s *Snapshot) Has(c Category) bool {
	return slices.Contains(s.Categories, c)
}

// Clone returns a deep copy that the caller may modify.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	c.Categories = slices.Clone(s.Categories)
	c.Host.PerCoreCPUPercent = slices.Clone(s.Host.PerCoreCPUPercent)
	c.Processes = slices.Clone(s.Processes)
	c.Exited = slices.Clone(s.Exited)
	c.Interfaces = slices.Clone(s.Interfaces)
	return &c
}

// FindProcess looks up a live process by pid.
func (s *Snapshot) FindProcess(pid int32) (ProcessMetric, bool) {
	i := sort.Search(len(s.Processes), func(i int) bool { return s.Processes[i].PID >= pid })
	if i < len(s.Processes) && s.Processes[i].PID == pid {
		return s.Processes[i], true
	}
	return ProcessMetric{}, false
}

// TopProcessesByCPU returns up to n processes ordered by descending CPU usage.
func (s *Snapshot) TopProcessesByCPU(n int) []ProcessMetric {
	return topProcesses(s.Processes, n, func(a, b ProcessMetric) bool {
		return a.CPUPercent > b.CPUPercent
	})
}

// TopProcessesByMemory returns up to n processes ordered by descending RSS.
func (s *Snapshot) TopProcessesByMemory(n int) []ProcessMetric {
	return topProcesses(s.Processes, n, func(a, b ProcessMetric) bool {
		return a.ResidentMemoryBytes > b.ResidentMemoryBytes
	})
}

func topProcesses(procs []ProcessMetric, n int, less func(a, b ProcessMetric) bool) []ProcessMetric {
	sorted := slices.Clone(procs)
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })
	if n >= 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// FilterInterfaces returns the interfaces for which keep returns true.
// Filtering is a consumer policy; the engine always reports every interface.
func (s *Snapshot) FilterInterfaces(keep func(NetworkInterfaceMetric) bool) []NetworkInterfaceMetric {
	out := make([]NetworkInterfaceMetric, 0, len(s.Interfaces))
	for _, iface := range s.Interfaces {
		if keep(iface) {
			out = append(out, iface)
		}
	}
	return out
}

// WithoutLoopback returns all non-loopback interfaces.
func (s *Snapshot) WithoutLoopback() []NetworkInterfaceMetric {
	return s.FilterInterfaces(func(iface NetworkInterfaceMetric) bool {
		return !IsLoopback(iface.Name)
	})
}

// IsLoopback reports whether an interface name denotes a loopback device.
func IsLoopback(name string) bool {
	return name == "lo" || strings.HasPrefix(name, "lo0") || strings.HasPrefix(strings.ToLower(name), "loopback")
}
