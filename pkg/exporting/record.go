package exporting

import (
	"time"

	"SystemMonitor/pkg/metrics"
)

// Document is the unit written by every format: static host identity plus
// one snapshot.
type Document struct {
	Host     metrics.HostInfo  `json:"host"`
	Snapshot *metrics.Snapshot `json:"snapshot"`
}

// Record is a single flattened row.
type Record = map[string]interface{}

// Row kinds.
const (
	KindHost      = "host"
	KindCore      = "core"
	KindProcess   = "process"
	KindExited    = "exited"
	KindInterface = "interface"
)

type columnType int

const (
	typeString columnType = iota
	typeInt
	typeFloat
	typeBool
)

type column struct {
	name string
	typ  columnType
}

// columns is the fixed schema shared by the tabular formats. Columns that do
// not apply to a row kind are left empty.
var columns = []column{
	{"kind", typeString},
	{"session", typeString},
	{"sequence", typeInt},
	{"timestamp", typeString},
	{"hostname", typeString},
	{"stale", typeBool},
	{"core", typeInt},
	{"cpu_percent", typeFloat},
	{"cpu_core_percent", typeFloat},
	{"cpu_basis", typeString},
	{"memory_total_bytes", typeInt},
	{"memory_used_bytes", typeInt},
	{"memory_free_bytes", typeInt},
	{"memory_wired_bytes", typeInt},
	{"swap_total_bytes", typeInt},
	{"swap_used_bytes", typeInt},
	{"pid", typeInt},
	{"ppid", typeInt},
	{"name", typeString},
	{"start_time", typeString},
	{"rss_bytes", typeInt},
	{"state", typeString},
	{"bytes_in_per_sec", typeFloat},
	{"bytes_out_per_sec", typeFloat},
	{"packets_in_per_sec", typeFloat},
	{"packets_out_per_sec", typeFloat},
	{"basis", typeString},
}

// ColumnNames returns the tabular column names in output order.
func ColumnNames() []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.name
	}
	return names
}

// Flatten turns a document into rows: one host row, one row per core, one per
// live and exited process and one per interface. Sections for categories that
// were not collected are omitted.
func Flatten(doc *Document) []Record {
	snap := doc.Snapshot
	if snap == nil {
		return nil
	}

	base := func(kind string) Record {
		return Record{
			"kind":      kind,
			"session":   snap.Session.String(),
			"sequence":  int64(snap.Sequence),
			"timestamp": snap.Timestamp.UTC().Format(time.RFC3339Nano),
			"hostname":  doc.Host.Hostname,
		}
	}

	var records []Record
	if snap.Has(metrics.CategoryCPU) || snap.Has(metrics.CategoryMemory) {
		r := base(KindHost)
		r["stale"] = snap.Stale.HostCPU || snap.Stale.HostMemory
		if snap.Has(metrics.CategoryCPU) {
			r["cpu_percent"] = snap.Host.CPUPercentTotal
		}
		if snap.Has(metrics.CategoryMemory) {
			r["memory_total_bytes"] = int64(snap.Host.MemoryTotalBytes)
			r["memory_used_bytes"] = int64(snap.Host.MemoryUsedBytes)
			r["memory_free_bytes"] = int64(snap.Host.MemoryFreeBytes)
			r["memory_wired_bytes"] = int64(snap.Host.MemoryWiredBytes)
			r["swap_total_bytes"] = int64(snap.Host.SwapTotalBytes)
			r["swap_used_bytes"] = int64(snap.Host.SwapUsedBytes)
		}
		records = append(records, r)
	}

	if snap.Has(metrics.CategoryCPU) {
		for i, pct := range snap.Host.PerCoreCPUPercent {
			r := base(KindCore)
			r["stale"] = snap.Stale.HostCPU
			r["core"] = int64(i)
			r["cpu_percent"] = pct
			records = append(records, r)
		}
	}

	if snap.Has(metrics.CategoryProcesses) {
		for _, p := range snap.Processes {
			records = append(records, processRecord(base(KindProcess), p, snap.Stale.Processes))
		}
		for _, p := range snap.Exited {
			records = append(records, processRecord(base(KindExited), p, snap.Stale.Processes))
		}
	}

	if snap.Has(metrics.CategoryNetwork) {
		for _, iface := range snap.Interfaces {
			r := base(KindInterface)
			r["stale"] = snap.Stale.Network
			r["name"] = iface.Name
			r["bytes_in_per_sec"] = iface.BytesInPerSecond
			r["bytes_out_per_sec"] = iface.BytesOutPerSecond
			r["packets_in_per_sec"] = iface.PacketsInPerSecond
			r["packets_out_per_sec"] = iface.PacketsOutPerSecond
			r["basis"] = string(iface.Basis)
			records = append(records, r)
		}
	}
	return records
}

func processRecord(r Record, p metrics.ProcessMetric, stale bool) Record {
	r["stale"] = stale
	r["pid"] = int64(p.PID)
	if p.HasParent {
		r["ppid"] = int64(p.ParentPID)
	}
	r["name"] = p.Name
	if !p.StartTime.IsZero() {
		r["start_time"] = p.StartTime.UTC().Format(time.RFC3339Nano)
	}
	r["cpu_percent"] = p.CPUPercent
	r["cpu_core_percent"] = p.CPUCorePercent
	r["cpu_basis"] = string(p.CPUBasis)
	r["rss_bytes"] = int64(p.ResidentMemoryBytes)
	r["state"] = string(p.State)
	return r
}
