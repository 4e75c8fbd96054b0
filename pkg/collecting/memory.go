//go:build linux

package collecting

import (
	"context"

	"github.com/prometheus/procfs"
)

func (p *Procfs) ReadMemory(ctx context.Context) (MemoryReading, error) {
	if err := ctx.Err(); err != nil {
		return MemoryReading{}, classify("read memory", "", err)
	}
	mi, err := p.fs.Meminfo()
	if err != nil {
		return MemoryReading{}, classify("read memory", "", err)
	}
	return p.fromMeminfo(mi), nil
}

func (p *Procfs) fromMeminfo(mi procfs.Meminfo) MemoryReading {
	pages := func(kb *uint64) uint64 {
		if kb == nil {
			return 0
		}
		return *kb * bytesPerKilobyte / p.pageSize
	}
	kb := func(v *uint64) uint64 {
		if v == nil {
			return 0
		}
		return *v
	}

	r := MemoryReading{
		PageSize:      p.pageSize,
		TotalPages:    pages(mi.MemTotal),
		FreePages:     pages(mi.MemFree),
		ActivePages:   pages(mi.Active),
		InactivePages: pages(mi.Inactive),
		// Linux has no wired counter; unevictable memory is the closest match.
		WiredPages:     pages(mi.Unevictable),
		SwapTotalBytes: kb(mi.SwapTotal) * bytesPerKilobyte,
	}

	if mi.MemAvailable != nil {
		r.UsedPages = r.TotalPages - min(pages(mi.MemAvailable), r.TotalPages)
	} else {
		reclaimable := pages(mi.Buffers) + pages(mi.Cached) + pages(mi.SReclaimable)
		r.UsedPages = r.TotalPages - min(r.FreePages+reclaimable, r.TotalPages)
	}

	swapFree := kb(mi.SwapFree) * bytesPerKilobyte
	if swapFree <= r.SwapTotalBytes {
		r.SwapUsedBytes = r.SwapTotalBytes - swapFree
	}
	return r
}
