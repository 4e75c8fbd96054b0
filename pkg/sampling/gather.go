package sampling

import (
	"context"
	"fmt"
	"sort"

	"SystemMonitor/pkg/collecting"
	"SystemMonitor/pkg/metrics"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
)

type cpuResult struct {
	reading collecting.CPUReading
	err     error
}

type memResult struct {
	reading collecting.MemoryReading
	err     error
}

type procResult struct {
	pid     int32
	reading collecting.ProcessReading
	err     error
}

type procsResult struct {
	// listErr means the enumeration itself failed; results is then empty.
	listErr error
	results []procResult
}

type ifaceResult struct {
	readings []collecting.InterfaceReading
	err      error
}

type readings struct {
	cpu    cpuResult
	mem    memResult
	procs  procsResult
	ifaces ifaceResult
}

// gather queries every enabled reader, sequentially or concurrently. Readers
// only return raw values; nothing here touches the counter store, so the
// concurrent mode keeps the single-writer rule.
func (s *Sampler) gather(ctx context.Context) readings {
	var r readings
	var tasks []func()

	if s.enabled[metrics.CategoryCPU] {
		tasks = append(tasks, func() {
			r.cpu.err = guard(func() error {
				var err error
				r.cpu.reading, err = s.src.Host.ReadCPU(ctx)
				return err
			})
		})
	}
	if s.enabled[metrics.CategoryMemory] {
		tasks = append(tasks, func() {
			r.mem.err = guard(func() error {
				var err error
				r.mem.reading, err = s.src.Host.ReadMemory(ctx)
				return err
			})
		})
	}
	if s.enabled[metrics.CategoryProcesses] {
		tasks = append(tasks, func() {
			r.procs = s.gatherProcesses(ctx)
		})
	}
	if s.enabled[metrics.CategoryNetwork] {
		tasks = append(tasks, func() {
			r.ifaces.err = guard(func() error {
				var err error
				r.ifaces.readings, err = s.src.Interfaces.ReadInterfaces(ctx)
				return err
			})
		})
	}

	if !s.cfg.ConcurrentReaders {
		for _, task := range tasks {
			task()
		}
		return r
	}

	var wg conc.WaitGroup
	for _, task := range tasks {
		wg.Go(task)
	}
	wg.Wait()
	return r
}

func (s *Sampler) gatherProcesses(ctx context.Context) procsResult {
	var pids []int32
	if err := guard(func() error {
		var err error
		pids, err = s.src.Processes.ListPIDs(ctx)
		return err
	}); err != nil {
		return procsResult{listErr: err}
	}

	read := func(pid int32) procResult {
		res := procResult{pid: pid}
		res.err = guard(func() error {
			var err error
			res.reading, err = s.src.Processes.ReadProcess(ctx, pid)
			return err
		})
		return res
	}

	var results []procResult
	if workers := s.cfg.ProcessWorkers; workers > 1 && len(pids) > 1 {
		p := pool.NewWithResults[procResult]().WithMaxGoroutines(workers)
		for _, pid := range pids {
			pid := pid
			p.Go(func() procResult { return read(pid) })
		}
		results = p.Wait()
	} else {
		results = make([]procResult, 0, len(pids))
		for _, pid := range pids {
			results = append(results, read(pid))
		}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].pid < results[j].pid })
	return procsResult{results: results}
}

// guard turns a panicking reader into a transient failure for this cycle.
func guard(f func() error) error {
	var err error
	if rec := panics.Try(func() { err = f() }); rec != nil {
		return &metrics.QueryError{Op: "reader panic", Err: fmt.Errorf("%w: %w", metrics.ErrTransientQuery, rec.AsError())}
	}
	return err
}
