package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"SystemMonitor/pkg/metrics"
)

var watchAll bool

// NewWatchCmd creates the watch subcommand.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "watch",
		Aliases: []string{"w"},
		Short:   "Live terminal summary until interrupted",
		Long: `Print a summary of every snapshot: host CPU and memory, the busiest
processes and the throughput of each network interface. Runs until Ctrl+C.

Example:
  sysmon watch
  sysmon watch -i 1s -n 5 --cpu-normalization whole-machine`,
		RunE: runWatch,
	}

	Cfg.AddCollectionFlags(cmd)
	Cfg.AddDisplayFlags(cmd)

	cmd.Flags().BoolVar(&watchAll, "all-interfaces", false, "Include loopback interfaces")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	eng, err := startEngine(nil)
	if err != nil {
		return err
	}
	defer eng.Stop()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	out := cmd.OutOrStdout()
	host := eng.HostInfo()
	fmt.Fprintf(out, "%s (%s %s, %d CPUs), every %v\n", host.Hostname, host.Platform, host.Kernel, host.LogicalCPUs, eng.Interval())

	id, err := eng.Subscribe(func(snap *metrics.Snapshot) {
		renderSnapshot(out, snap, Cfg.TopN, watchAll)
	})
	if err != nil {
		return err
	}
	defer eng.Unsubscribe(id)

	<-ctx.Done()
	return nil
}

// renderSnapshot writes a human-readable summary of snap.
func renderSnapshot(out io.Writer, snap *metrics.Snapshot, top int, allInterfaces bool) {
	var b strings.Builder
	fmt.Fprintf(&b, "\n#%d  %s", snap.Sequence, snap.Timestamp.Format("15:04:05.000"))
	if snap.Stale.Any() {
		b.WriteString("  (stale data)")
	}
	b.WriteString("\n")

	if snap.Has(metrics.CategoryCPU) {
		fmt.Fprintf(&b, "CPU  %5.1f%%  cores:", snap.Host.CPUPercentTotal)
		for _, pct := range snap.Host.PerCoreCPUPercent {
			fmt.Fprintf(&b, " %.0f", pct)
		}
		b.WriteString("\n")
	}
	if snap.Has(metrics.CategoryMemory) {
		fmt.Fprintf(&b, "MEM  %s / %s used, %s wired, swap %s / %s\n",
			formatBytes(float64(snap.Host.MemoryUsedBytes)),
			formatBytes(float64(snap.Host.MemoryTotalBytes)),
			formatBytes(float64(snap.Host.MemoryWiredBytes)),
			formatBytes(float64(snap.Host.SwapUsedBytes)),
			formatBytes(float64(snap.Host.SwapTotalBytes)))
	}

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', tabwriter.AlignRight)
	if snap.Has(metrics.CategoryProcesses) {
		fmt.Fprintf(tw, "PID\tCPU%%\tRSS\tNAME\t\n")
		for _, p := range snap.TopProcessesByCPU(top) {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t\n", p.PID, formatPercent(p.CPUPercent, p.CPUBasis), formatBytes(float64(p.ResidentMemoryBytes)), p.Name)
		}
		if len(snap.Exited) > 0 {
			fmt.Fprintf(tw, "\t\t\t%d exited\t\n", len(snap.Exited))
		}
	}
	if snap.Has(metrics.CategoryNetwork) {
		ifaces := snap.WithoutLoopback()
		if allInterfaces {
			ifaces = snap.Interfaces
		}
		fmt.Fprintf(tw, "IFACE\tIN/s\tOUT/s\tPKT IN/s\tPKT OUT/s\t\n")
		for _, iface := range ifaces {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%.0f\t%.0f\t\n", iface.Name,
				formatBytes(iface.BytesInPerSecond), formatBytes(iface.BytesOutPerSecond),
				iface.PacketsInPerSecond, iface.PacketsOutPerSecond)
		}
	}
	_ = tw.Flush()

	_, _ = io.WriteString(out, b.String())
}

func formatPercent(v float64, basis metrics.RateBasis) string {
	if basis != metrics.BasisComputed {
		return "-"
	}
	return fmt.Sprintf("%.1f", v)
}

func formatBytes(v float64) string {
	const unit = 1024
	if v < unit {
		return fmt.Sprintf("%.0fB", v)
	}
	div, exp := float64(unit), 0
	for n := v / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", v/div, "KMGTPE"[exp])
}
