package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"SystemMonitor/pkg/engine"
	"SystemMonitor/pkg/exporting"
	"SystemMonitor/pkg/logging"
	"SystemMonitor/pkg/metrics"
)

var snapshotCount int

// NewSnapshotCmd creates the snapshot subcommand.
func NewSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "snapshot",
		Aliases: []string{"ss"},
		Short:   "Capture computed snapshots",
		Long: `Start the sampler, wait until rates can be computed (the second cycle) and
write the resulting snapshot(s).

The format is taken from --format, or from the output file's extension when
--format is not given.

Example:
  sysmon snapshot
  sysmon snapshot -f yaml --categories cpu,memory
  sysmon snapshot --count 10 -i 500ms -o samples.parquet`,
		RunE: runSnapshot,
	}

	Cfg.AddCollectionFlags(cmd)
	Cfg.AddOutputFlags(cmd)

	cmd.Flags().IntVar(&snapshotCount, "count", 1, "Number of snapshots to write")

	return cmd
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	if snapshotCount < 1 {
		return fmt.Errorf("count must be at least 1, got %d", snapshotCount)
	}

	format := Cfg.OutputFormat
	if !cmd.Flags().Changed("format") && Cfg.OutputFile != "" {
		if f, ok := exporting.GetByPath(Cfg.OutputFile); ok {
			format = f.Name()
		}
	}
	exp, err := exporting.NewExporter(Cfg.OutputFile, format)
	if err != nil {
		return fmt.Errorf("failed to create exporter: %w", err)
	}

	eng, err := startEngine(nil)
	if err != nil {
		_ = exp.Close()
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	written, err := writeSnapshots(ctx, eng, exp, snapshotCount)
	eng.Stop()
	if cerr := exp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	log := logging.WithComponent("snapshot")
	if exp.Path() != "" {
		log.Info().Str("path", exp.Path()).Str("format", exp.Format()).Int("snapshots", written).Msg("snapshot written")
	}
	return nil
}

// writeSnapshots writes n snapshots, starting with the first one that carries
// computed rates. Each write waits for a newer sequence than the last.
func writeSnapshots(ctx context.Context, eng *engine.Engine, exp *exporting.Exporter, n int) (int, error) {
	next := uint64(2)
	for i := 0; i < n; i++ {
		want := next
		snap, err := eng.Await(ctx, func(s *metrics.Snapshot) bool { return s.Sequence >= want })
		if err != nil {
			if errors.Is(err, context.Canceled) && i > 0 {
				log := logging.WithComponent("snapshot")
				log.Warn().Int("written", i).Msg("interrupted")
				return i, nil
			}
			return i, fmt.Errorf("waiting for snapshot: %w", err)
		}
		if err := exp.Write(&exporting.Document{Host: eng.HostInfo(), Snapshot: snap}); err != nil {
			return i, fmt.Errorf("failed to write snapshot: %w", err)
		}
		next = snap.Sequence + 1
	}
	return n, nil
}
