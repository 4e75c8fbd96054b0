//go:build linux

package collecting

import (
	"context"
	"time"
)

func (p *Procfs) ListPIDs(ctx context.Context) ([]int32, error) {
	if err := ctx.Err(); err != nil {
		return nil, classify("list processes", "", err)
	}
	procs, err := p.fs.AllProcs()
	if err != nil {
		return nil, classify("list processes", "", err)
	}
	pids := make([]int32, 0, len(procs))
	for _, proc := range procs {
		pids = append(pids, int32(proc.PID))
	}
	return pids, nil
}

func (p *Procfs) ReadProcess(ctx context.Context, pid int32) (ProcessReading, error) {
	if err := ctx.Err(); err != nil {
		return ProcessReading{}, classify("read process", pidEntity(pid), err)
	}
	proc, err := p.fs.Proc(int(pid))
	if err != nil {
		return ProcessReading{}, classify("read process", pidEntity(pid), err)
	}
	st, err := proc.Stat()
	if err != nil {
		return ProcessReading{}, classify("read process", pidEntity(pid), err)
	}

	r := ProcessReading{
		PID:            pid,
		PPID:           int32(st.PPID),
		HasParent:      st.PPID > 0,
		Name:           st.Comm,
		CPUTicks:       uint64(st.UTime) + uint64(st.STime),
		TicksPerSecond: jiffiesPerSecond,
	}
	if rss := st.ResidentMemory(); rss > 0 {
		r.ResidentBytes = uint64(rss)
	}

	if boot, err := p.bootTime(); err == nil {
		r.StartTime = boot.Add(time.Duration(st.Starttime) * (time.Second / jiffiesPerSecond))
	} else {
		p.log.Debug().Err(err).Int32("pid", pid).Msg("process start time unavailable")
	}
	return r, nil
}
