package metrics

import (
	"strconv"
	"time"
)

// EntityID identifies anything tracked across cycles: a CPU core, a process
// instance, a network interface.
type EntityID string

// HostCPUEntity returns the entity for the aggregate CPU (core < 0) or one core.
func HostCPUEntity(core int) EntityID {
	if core < 0 {
		return "cpu"
	}
	return EntityID("cpu" + strconv.Itoa(core))
}

// ProcessEntity returns the entity for a process instance. When the start
// time is known it is part of the identity so a reused pid is a new entity.
func ProcessEntity(pid int32, start time.Time) EntityID {
	id := "proc/" + strconv.FormatInt(int64(pid), 10)
	if start.IsZero() {
		return EntityID(id)
	}
	return EntityID(id + "@" + strconv.FormatInt(start.UnixMilli(), 10))
}

// InterfaceEntity returns the entity for a network interface.
func InterfaceEntity(name string) EntityID {
	return EntityID("if/" + name)
}

// CounterKind is the category of a monotonic raw measurement.
type CounterKind uint8

const (
	KindCPUBusyTicks CounterKind = iota + 1
	KindCPUTotalTicks
	KindProcessCPUTicks
	KindBytesIn
	KindBytesOut
	KindPacketsIn
	KindPacketsOut
)

func (k CounterKind) String() string {
	switch k {
	case KindCPUBusyTicks:
		return "cpu_busy_ticks"
	case KindCPUTotalTicks:
		return "cpu_total_ticks"
	case KindProcessCPUTicks:
		return "process_cpu_ticks"
	case KindBytesIn:
		return "bytes_in"
	case KindBytesOut:
		return "bytes_out"
	case KindPacketsIn:
		return "packets_in"
	case KindPacketsOut:
		return "packets_out"
	}
	return "unknown"
}

// Category returns the metric category whose reader produces this kind.
func (k CounterKind) Category() Category {
	switch k {
	case KindCPUBusyTicks, KindCPUTotalTicks:
		return CategoryCPU
	case KindProcessCPUTicks:
		return CategoryProcesses
	default:
		return CategoryNetwork
	}
}

// Unit returns the unit of a rate derived from this kind.
func (k CounterKind) Unit() Unit {
	switch k {
	case KindBytesIn, KindBytesOut:
		return UnitBytesPerSecond
	case KindPacketsIn, KindPacketsOut:
		return UnitPerSecond
	default:
		return UnitTicksPerSecond
	}
}

// CounterKey addresses one entry of the counter store.
type CounterKey struct {
	Entity EntityID
	Kind   CounterKind
}

// RawCounterSample is one observation of a monotonic counter. Value only
// decreases when the entity was recreated or the counter wrapped.
type RawCounterSample struct {
	Entity    EntityID
	Kind      CounterKind
	Value     uint64
	Timestamp time.Time
}

// Key returns the store key of the sample.
func (s RawCounterSample) Key() CounterKey {
	return CounterKey{Entity: s.Entity, Kind: s.Kind}
}

// RateBasis tells how a RateResult was obtained.
type RateBasis string

const (
	BasisFirstSample   RateBasis = "first-sample"
	BasisComputed      RateBasis = "computed"
	BasisResetDetected RateBasis = "reset-detected"
)

// Unit of a RateResult value.
type Unit string

const (
	UnitPerSecond      Unit = "1/s"
	UnitBytesPerSecond Unit = "B/s"
	UnitTicksPerSecond Unit = "ticks/s"
	UnitPercent        Unit = "%"
)

// RateResult is a derived, non-negative rate. Only BasisComputed carries a
// meaningful value; the other bases always report zero.
type RateResult struct {
	Value float64   `json:"value"`
	Unit  Unit      `json:"unit"`
	Basis RateBasis `json:"basis"`
}

// Computed reports whether a rate could be derived this cycle.
func (r RateResult) Computed() bool {
	return r.Basis == BasisComputed
}
