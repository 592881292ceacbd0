package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/seqmine/internal/engine"
	"github.com/roach88/seqmine/internal/metrics"
)

// ProcessOptions holds flags for the process command.
type ProcessOptions struct {
	*RootOptions
	Reprocess       bool
	IgnoreBlacklist bool
	Capacity        int
	MetricsAddr     string
}

// NewProcessCommand creates the process command.
func NewProcessCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProcessOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Guess closed forms for pending sequences",
		Long: `Run the mining pass over the job store.

The job store is created on first use with one row per identifier up to
--capacity. Each pending sequence is resolved through the content cache,
guessed, verified and classified; rows are committed in batches. The run
aborts after engine.max_consecutive_failures fetch failures in a row.

Example:
  seqmine process --db ./seqmine.db
  seqmine process --reprocess --metrics-addr :9100`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, opts)
		},
	}
	addProcessFlags(cmd, opts)
	return cmd
}

func addProcessFlags(cmd *cobra.Command, opts *ProcessOptions) {
	cmd.Flags().BoolVar(&opts.Reprocess, "reprocess", false, "revisit fetched but unsolved sequences")
	cmd.Flags().BoolVar(&opts.IgnoreBlacklist, "ignore-blacklist", false, "process blacklisted sequences too")
	cmd.Flags().IntVar(&opts.Capacity, "capacity", 0, "job store size when it is created (overrides config)")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (overrides config)")
}

func runProcess(cmd *cobra.Command, opts *ProcessOptions) error {
	e, err := setup(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	if err := e.ensureSchema(ctx, opts.Capacity); err != nil {
		return err
	}
	bl, err := e.blacklist(ctx)
	if err != nil {
		return err
	}
	res, err := e.resolver()
	if err != nil {
		return err
	}
	orc, err := e.oracle()
	if err != nil {
		return err
	}

	addr := e.cfg.MetricsAddr
	if opts.MetricsAddr != "" {
		addr = opts.MetricsAddr
	}
	if addr != "" {
		slog.Info("serving metrics", "addr", addr)
		go serveMetrics(ctx, e.metrics, addr)
	}

	mopts := []engine.MinerOption{
		engine.WithReporter(engine.NewReporter(e.statusWriter(cmd), opts.Quiet)),
		engine.WithMetrics(e.metrics),
	}
	if opts.RunIDs != nil {
		mopts = append(mopts, engine.WithRunIDs(opts.RunIDs))
	}
	miner := engine.NewMiner(e.store, res, orc, bl, engine.Options{
		Reprocess:              opts.Reprocess,
		IgnoreBlacklist:        opts.IgnoreBlacklist,
		CommitEvery:            e.cfg.Engine.CommitEvery,
		MaxConsecutiveFailures: e.cfg.Engine.MaxConsecutiveFailures,
	}, mopts...)

	sum, runErr := miner.Run(ctx)
	var exitErr *ExitError
	switch {
	case runErr == nil:
	case engine.IsFailureAbort(runErr):
		exitErr = WrapExitError(ExitFailure, "run aborted", runErr)
	case isCancel(runErr):
		slog.Info("run interrupted", "run", sum.RunID)
	default:
		exitErr = WrapExitError(ExitFailure, "run failed", runErr)
	}
	if e.opts.Format == "json" {
		if exitErr != nil {
			_ = e.out.Error(exitErr)
			return exitErr
		}
		if err := e.out.Success(sum); err != nil {
			return err
		}
	}
	if exitErr != nil {
		return exitErr
	}
	return nil
}

// serveMetrics runs the metrics endpoint until ctx ends. A listener that
// cannot start is logged; the run carries on without metrics.
func serveMetrics(ctx context.Context, m *metrics.Metrics, addr string) {
	if err := m.Serve(ctx, addr); err != nil {
		slog.Error("metrics server failed", "addr", addr, "error", err)
	}
}
