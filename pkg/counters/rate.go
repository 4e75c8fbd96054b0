package counters

import (
	"SystemMonitor/pkg/metrics"
)

// ComputeRate derives a per-second rate from two samples of the same counter.
// A nil previous sample, a decreasing counter and a non-positive elapsed time
// all yield a zero value with the matching basis.
func ComputeRate(prev *metrics.RawCounterSample, cur metrics.RawCounterSample) metrics.RateResult {
	res := metrics.RateResult{Unit: cur.Kind.Unit(), Basis: metrics.BasisFirstSample}
	if prev == nil {
		return res
	}
	if cur.Value < prev.Value {
		res.Basis = metrics.BasisResetDetected
		return res
	}
	elapsed := cur.Timestamp.Sub(prev.Timestamp).Seconds()
	if elapsed <= 0 {
		return res
	}
	res.Value = float64(cur.Value-prev.Value) / elapsed
	res.Basis = metrics.BasisComputed
	return res
}

// CPUPercent derives busy percentage from busy and total tick counters:
// busyDelta / totalDelta * 100, clamped to [0, 100].
func CPUPercent(prevBusy, prevTotal *metrics.RawCounterSample, curBusy, curTotal metrics.RawCounterSample) metrics.RateResult {
	res := metrics.RateResult{Unit: metrics.UnitPercent, Basis: metrics.BasisFirstSample}
	if prevBusy == nil || prevTotal == nil {
		return res
	}
	if curBusy.Value < prevBusy.Value || curTotal.Value < prevTotal.Value {
		res.Basis = metrics.BasisResetDetected
		return res
	}
	if !curTotal.Timestamp.After(prevTotal.Timestamp) {
		return res
	}
	res.Basis = metrics.BasisComputed
	totalDelta := curTotal.Value - prevTotal.Value
	if totalDelta == 0 {
		return res
	}
	res.Value = clamp(float64(curBusy.Value-prevBusy.Value)/float64(totalDelta)*100, 0, 100)
	return res
}

// ProcessCPUPercent turns a process tick rate into percentages. core treats
// one fully busy core as 100% and is not capped above; configured follows
// norm, where whole-machine divides by numCPU and clamps to [0, 100].
func ProcessCPUPercent(ticksPerSec, ticksPerSecond float64, numCPU int, norm metrics.CPUNormalization) (configured, core float64) {
	if ticksPerSecond <= 0 {
		return 0, 0
	}
	core = clamp(ticksPerSec/ticksPerSecond*100, 0, -1)
	if norm != metrics.NormalizeWholeMachine {
		return core, core
	}
	if numCPU < 1 {
		numCPU = 1
	}
	return clamp(core/float64(numCPU), 0, 100), core
}

// clamp bounds v to [lo, hi]; hi < lo disables the upper bound.
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if hi >= lo && v > hi {
		return hi
	}
	return v
}
