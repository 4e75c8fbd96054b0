package sampling

import (
	"time"

	"SystemMonitor/pkg/metrics"
)

func (s *Sampler) applyNetwork(now time.Time, r ifaceResult, snap, prev *metrics.Snapshot) {
	if r.err != nil {
		s.readerFailed("network", r.err)
		snap.Stale.Network = true
		snap.Interfaces = prev.Interfaces
		s.store.Retain(metrics.CategoryNetwork)
		return
	}

	out := make([]metrics.NetworkInterfaceMetric, 0, len(r.readings))
	for _, iface := range r.readings {
		id := metrics.InterfaceEntity(iface.Name)
		bytesIn := s.store.Observe(sample(id, metrics.KindBytesIn, iface.BytesIn, now))
		bytesOut := s.store.Observe(sample(id, metrics.KindBytesOut, iface.BytesOut, now))
		pktsIn := s.store.Observe(sample(id, metrics.KindPacketsIn, iface.PacketsIn, now))
		pktsOut := s.store.Observe(sample(id, metrics.KindPacketsOut, iface.PacketsOut, now))

		out = append(out, metrics.NetworkInterfaceMetric{
			Name:                iface.Name,
			BytesInPerSecond:    bytesIn.Value,
			BytesOutPerSecond:   bytesOut.Value,
			PacketsInPerSecond:  pktsIn.Value,
			PacketsOutPerSecond: pktsOut.Value,
			Basis:               worstBasis(bytesIn, bytesOut, pktsIn, pktsOut),
		})
	}
	snap.Interfaces = out
}

// worstBasis reports reset-detected if any counter reset, first-sample if any
// had no baseline, computed otherwise.
func worstBasis(results ...metrics.RateResult) metrics.RateBasis {
	basis := metrics.BasisComputed
	for _, r := range results {
		switch r.Basis {
		case metrics.BasisResetDetected:
			return r.Basis
		case metrics.BasisFirstSample:
			basis = r.Basis
		}
	}
	return basis
}
