//go:build linux

package collecting

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sort"

	"SystemMonitor/pkg/metrics"

	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"
)

func (p *Procfs) ReadCPU(ctx context.Context) (CPUReading, error) {
	if err := ctx.Err(); err != nil {
		return CPUReading{}, classify("read cpu", "", err)
	}
	st, err := p.fs.Stat()
	if err != nil {
		return CPUReading{}, classify("read cpu", "", err)
	}

	cores := make([]int64, 0, len(st.CPU))
	for id := range st.CPU {
		cores = append(cores, id)
	}
	sort.Slice(cores, func(i, j int) bool { return cores[i] < cores[j] })

	r := CPUReading{
		Total:   toTicks(st.CPUTotal),
		PerCore: make([]CPUTicks, 0, len(cores)),
	}
	for _, id := range cores {
		r.PerCore = append(r.PerCore, toTicks(st.CPU[id]))
	}
	return r, nil
}

func (p *Procfs) Info(ctx context.Context) (metrics.HostInfo, error) {
	info := metrics.HostInfo{
		Platform:    runtime.GOOS,
		Kernel:      getKernelInfo(),
		LogicalCPUs: runtime.NumCPU(),
	}
	info.Hostname, _ = os.Hostname()

	st, err := p.fs.Stat()
	if err != nil {
		return info, classify("read host info", "", err)
	}
	if len(st.CPU) > 0 {
		info.LogicalCPUs = len(st.CPU)
	}
	info.BootTime, _ = p.bootTime()
	return info, ctx.Err()
}

func toTicks(s procfs.CPUStat) CPUTicks {
	return CPUTicks{
		User:    ticks(s.User),
		Nice:    ticks(s.Nice),
		System:  ticks(s.System),
		Idle:    ticks(s.Idle),
		IOWait:  ticks(s.Iowait),
		IRQ:     ticks(s.IRQ),
		SoftIRQ: ticks(s.SoftIRQ),
		Steal:   ticks(s.Steal),
	}
}

func getKernelInfo() string {
	var uname unix.Utsname
	if err := unix.Uname(&uname); err != nil {
		return unknownValue
	}

	toString := func(data any) string {
		var b []byte
		switch v := data.(type) {
		case [65]int8:
			for _, c := range v {
				b = append(b, byte(c))
			}
		case [65]uint8:
			b = v[:]
		}
		return unix.ByteSliceToString(b)
	}

	return fmt.Sprintf("%s %s %s",
		toString(uname.Sysname),
		toString(uname.Release),
		toString(uname.Machine))
}
