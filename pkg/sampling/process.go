package sampling

import (
	"errors"
	"sort"
	"time"

	"SystemMonitor/pkg/counters"
	"SystemMonitor/pkg/metrics"
)

// applyProcesses turns per-pid readings into metrics. A pid whose query
// failed is omitted from the snapshot. If it was not reported gone its
// baseline is kept, so one denied or transient read does not reset it.
// Tracked processes that are no longer listed, reported gone, or whose
// identity changed through pid reuse are listed once as Exited, carrying
// the last values reported for them.
func (s *Sampler) applyProcesses(now time.Time, r procsResult, snap, prev *metrics.Snapshot) {
	if r.listErr != nil {
		s.readerFailed("processes", r.listErr)
		snap.Stale.Processes = true
		snap.Processes = prev.Processes
		s.store.Retain(metrics.CategoryProcesses)
		return
	}

	entities := make(map[int32]metrics.EntityID, len(r.results))
	last := make(map[int32]metrics.ProcessMetric, len(r.results))
	alive := make([]metrics.ProcessMetric, 0, len(r.results))

	for _, res := range r.results {
		if res.err != nil {
			s.metrics.ProcessQueryFailures.WithLabelValues(metrics.FailureReason(res.err)).Inc()
			s.log.Debug().Err(res.err).Int32("pid", res.pid).Msg("process omitted this cycle")
			if errors.Is(res.err, metrics.ErrEntityGone) {
				continue
			}
			if id, ok := s.procEntities[res.pid]; ok {
				s.store.TouchEntity(id)
				entities[res.pid] = id
				if m, ok := s.procLast[res.pid]; ok {
					last[res.pid] = m
				}
			}
			continue
		}

		p := res.reading
		id := metrics.ProcessEntity(p.PID, p.StartTime)
		entities[p.PID] = id

		rate := s.store.Observe(sample(id, metrics.KindProcessCPUTicks, p.CPUTicks, now))
		cpu, core := counters.ProcessCPUPercent(rate.Value, p.TicksPerSecond, s.numCPU, s.cfg.Normalization)

		m := metrics.ProcessMetric{
			PID:                 p.PID,
			ParentPID:           p.PPID,
			HasParent:           p.HasParent,
			Name:                p.Name,
			StartTime:           p.StartTime,
			CPUPercent:          cpu,
			CPUCorePercent:      core,
			CPUBasis:            rate.Basis,
			ResidentMemoryBytes: p.ResidentBytes,
			State:               metrics.LifecycleAlive,
		}
		alive = append(alive, m)
		last[p.PID] = m
	}

	for pid, old := range s.procLast {
		if id, ok := entities[pid]; ok && id == metrics.ProcessEntity(old.PID, old.StartTime) {
			continue
		}
		gone := old
		gone.State = metrics.LifecycleJustVanished
		snap.Exited = append(snap.Exited, gone)
	}
	sort.Slice(snap.Exited, func(i, j int) bool { return snap.Exited[i].PID < snap.Exited[j].PID })

	snap.Processes = alive
	s.procEntities = entities
	s.procLast = last
}
