package sampling

import (
	"time"

	"SystemMonitor/pkg/metrics"
)

func (s *Sampler) applyCPU(now time.Time, r cpuResult, snap, prev *metrics.Snapshot) {
	if r.err != nil {
		s.readerFailed("cpu", r.err)
		snap.Stale.HostCPU = true
		snap.Host.CPUPercentTotal = prev.Host.CPUPercentTotal
		snap.Host.PerCoreCPUPercent = prev.Host.PerCoreCPUPercent
		s.store.Retain(metrics.CategoryCPU)
		return
	}

	total := s.store.ObserveCPU(
		sample(metrics.HostCPUEntity(-1), metrics.KindCPUBusyTicks, r.reading.Total.Busy(), now),
		sample(metrics.HostCPUEntity(-1), metrics.KindCPUTotalTicks, r.reading.Total.Total(), now),
	)
	snap.Host.CPUPercentTotal = total.Value

	if n := len(r.reading.PerCore); n > 0 {
		s.numCPU = n
	}
	cores := make([]float64, len(r.reading.PerCore))
	for i, c := range r.reading.PerCore {
		res := s.store.ObserveCPU(
			sample(metrics.HostCPUEntity(i), metrics.KindCPUBusyTicks, c.Busy(), now),
			sample(metrics.HostCPUEntity(i), metrics.KindCPUTotalTicks, c.Total(), now),
		)
		cores[i] = res.Value
		// Whole-machine shares add up to the total.
		if s.cfg.Normalization == metrics.NormalizeWholeMachine {
			cores[i] /= float64(len(cores))
		}
	}
	snap.Host.PerCoreCPUPercent = cores
}

func (s *Sampler) applyMemory(r memResult, snap, prev *metrics.Snapshot) {
	if r.err != nil {
		s.readerFailed("memory", r.err)
		snap.Stale.HostMemory = true
		h := prev.Host
		snap.Host.MemoryTotalBytes = h.MemoryTotalBytes
		snap.Host.MemoryUsedBytes = h.MemoryUsedBytes
		snap.Host.MemoryFreeBytes = h.MemoryFreeBytes
		snap.Host.MemoryWiredBytes = h.MemoryWiredBytes
		snap.Host.SwapTotalBytes = h.SwapTotalBytes
		snap.Host.SwapUsedBytes = h.SwapUsedBytes
		return
	}

	m := r.reading
	snap.Host.MemoryTotalBytes = m.Bytes(m.TotalPages)
	snap.Host.MemoryUsedBytes = m.Bytes(m.UsedPages)
	snap.Host.MemoryFreeBytes = m.Bytes(m.FreePages)
	snap.Host.MemoryWiredBytes = m.Bytes(m.WiredPages)
	snap.Host.SwapTotalBytes = m.SwapTotalBytes
	snap.Host.SwapUsedBytes = m.SwapUsedBytes
}
