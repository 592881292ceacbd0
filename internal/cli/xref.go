package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/seqmine/internal/xref"
)

type xrefResult struct {
	Snapshot string `json:"snapshot"`
	xref.Stats
}

func (r xrefResult) Text() string {
	return fmt.Sprintf("corpus %d: completed %d, skipped %d, compared %d, matches %d, new %d",
		r.Corpus, r.Completed, r.Skipped, r.Compared, r.Matches, r.Inserted)
}

// NewXrefCommand creates the xref command.
func NewXrefCommand(rootOpts *RootOptions) *cobra.Command {
	var snapshot string

	cmd := &cobra.Command{
		Use:   "xref",
		Short: "Find sequences that share a formula",
		Long: `Compare the formulas of every pair of sequences and record pairs with a
symbolically equal formula. Progress is kept in a snapshot file, so an
interrupted run resumes where it stopped and a later run only compares
pairs involving sequences that gained formulas since.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer e.Close()

			ctx, cancel := signalContext(cmd)
			defer cancel()

			if snapshot == "" {
				snapshot = e.cfg.Xref.Snapshot
			}
			bl, err := e.blacklist(ctx)
			if err != nil {
				return err
			}
			orc, err := e.oracle()
			if err != nil {
				return err
			}

			snap, err := xref.OpenSnapshot(snapshot)
			if err != nil {
				if errors.Is(err, xref.ErrLocked) {
					return WrapExitError(ExitCommandError, "snapshot in use", err)
				}
				return WrapExitError(ExitCommandError, "failed to open snapshot", err)
			}
			defer func() {
				if err := snap.Close(); err != nil {
					slog.Error("error closing snapshot", "error", err)
				}
			}()

			stats, err := xref.New(e.store, orc, bl, e.metrics).Run(ctx, snap)
			if err != nil && !isCancel(err) {
				return WrapExitError(ExitFailure, "cross-reference run failed", err)
			}
			if err != nil {
				slog.Info("cross-reference run interrupted", "completed", stats.Completed)
			}
			return e.out.Success(xrefResult{Snapshot: snapshot, Stats: stats})
		},
	}
	cmd.Flags().StringVar(&snapshot, "snapshot", "", "snapshot file (overrides config)")
	return cmd
}
