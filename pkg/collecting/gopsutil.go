package collecting

import (
	"context"
	"os"
	"runtime"
	"sort"
	"time"

	"SystemMonitor/pkg/logging"
	"SystemMonitor/pkg/metrics"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	psnet "github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
)

// Gopsutil is the portable adapter used on every platform without a proc
// filesystem. CPU times come back in seconds and are converted to ticks at
// jiffiesPerSecond.
type Gopsutil struct {
	pageSize uint64
	log      zerolog.Logger
}

func NewGopsutil() *Gopsutil {
	return &Gopsutil{
		pageSize: uint64(os.Getpagesize()),
		log:      logging.WithComponent("collecting.gopsutil"),
	}
}

func newGopsutilSources() *Sources {
	g := NewGopsutil()
	return &Sources{Name: AdapterGopsutil, Host: g, Processes: g, Interfaces: g}
}

func (g *Gopsutil) ReadCPU(ctx context.Context) (CPUReading, error) {
	total, err := cpu.TimesWithContext(ctx, false)
	if err != nil {
		return CPUReading{}, classify("read cpu", "", err)
	}
	if len(total) == 0 {
		return CPUReading{}, classify("read cpu", "", metrics.ErrTransientQuery)
	}
	r := CPUReading{Total: timesToTicks(total[0])}

	perCore, err := cpu.TimesWithContext(ctx, true)
	if err != nil {
		g.log.Debug().Err(err).Msg("per-core cpu times unavailable")
		return r, nil
	}
	r.PerCore = make([]CPUTicks, 0, len(perCore))
	for _, t := range perCore {
		r.PerCore = append(r.PerCore, timesToTicks(t))
	}
	return r, nil
}

func (g *Gopsutil) ReadMemory(ctx context.Context) (MemoryReading, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return MemoryReading{}, classify("read memory", "", err)
	}
	pages := func(b uint64) uint64 { return b / g.pageSize }
	r := MemoryReading{
		PageSize:      g.pageSize,
		TotalPages:    pages(vm.Total),
		FreePages:     pages(vm.Free),
		UsedPages:     pages(vm.Used),
		ActivePages:   pages(vm.Active),
		InactivePages: pages(vm.Inactive),
		WiredPages:    pages(vm.Wired),
	}

	if sw, err := mem.SwapMemoryWithContext(ctx); err == nil {
		r.SwapTotalBytes = sw.Total
		r.SwapUsedBytes = sw.Used
	} else {
		g.log.Debug().Err(err).Msg("swap usage unavailable")
	}
	return r, nil
}

func (g *Gopsutil) Info(ctx context.Context) (metrics.HostInfo, error) {
	info := metrics.HostInfo{Platform: runtime.GOOS, Kernel: unknownValue, LogicalCPUs: runtime.NumCPU()}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil && n > 0 {
		info.LogicalCPUs = n
	}
	hi, err := host.InfoWithContext(ctx)
	if err != nil {
		info.Hostname, _ = os.Hostname()
		return info, classify("read host info", "", err)
	}
	info.Hostname = hi.Hostname
	if hi.Platform != "" {
		info.Platform = hi.Platform + " " + hi.PlatformVersion
	}
	if hi.KernelVersion != "" {
		info.Kernel = hi.OS + " " + hi.KernelVersion + " " + hi.KernelArch
	}
	info.BootTime = time.Unix(int64(hi.BootTime), 0)
	return info, nil
}

func (g *Gopsutil) ListPIDs(ctx context.Context) ([]int32, error) {
	pids, err := process.PidsWithContext(ctx)
	if err != nil {
		return nil, classify("list processes", "", err)
	}
	return pids, nil
}

func (g *Gopsutil) ReadProcess(ctx context.Context, pid int32) (ProcessReading, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return ProcessReading{}, classify("read process", pidEntity(pid), err)
	}
	times, err := p.TimesWithContext(ctx)
	if err != nil {
		return ProcessReading{}, classify("read process", pidEntity(pid), err)
	}
	mi, err := p.MemoryInfoWithContext(ctx)
	if err != nil {
		return ProcessReading{}, classify("read process", pidEntity(pid), err)
	}

	r := ProcessReading{
		PID:            pid,
		CPUTicks:       ticks(times.User) + ticks(times.System),
		TicksPerSecond: jiffiesPerSecond,
		ResidentBytes:  mi.RSS,
	}
	// Name, parent and start time are best effort; a process without them is
	// still reported.
	if name, err := p.NameWithContext(ctx); err == nil {
		r.Name = name
	}
	if ppid, err := p.PpidWithContext(ctx); err == nil {
		r.PPID = ppid
		r.HasParent = ppid > 0
	}
	if ms, err := p.CreateTimeWithContext(ctx); err == nil && ms > 0 {
		r.StartTime = time.UnixMilli(ms)
	}
	return r, nil
}

func (g *Gopsutil) ReadInterfaces(ctx context.Context) ([]InterfaceReading, error) {
	stats, err := psnet.IOCountersWithContext(ctx, true)
	if err != nil {
		return nil, classify("read interfaces", "", err)
	}
	out := make([]InterfaceReading, 0, len(stats))
	for _, s := range stats {
		out = append(out, InterfaceReading{
			Name:       s.Name,
			BytesIn:    s.BytesRecv,
			BytesOut:   s.BytesSent,
			PacketsIn:  s.PacketsRecv,
			PacketsOut: s.PacketsSent,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func timesToTicks(t cpu.TimesStat) CPUTicks {
	return CPUTicks{
		User:    ticks(t.User),
		Nice:    ticks(t.Nice),
		System:  ticks(t.System),
		Idle:    ticks(t.Idle),
		IOWait:  ticks(t.Iowait),
		IRQ:     ticks(t.Irq),
		SoftIRQ: ticks(t.Softirq),
		Steal:   ticks(t.Steal),
	}
}
