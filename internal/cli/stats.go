package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/seqmine/internal/store"
)

type statsResult struct {
	Capacity int `json:"capacity"`
	store.Stats
	Recent []store.Run `json:"recent_runs"`
}

func (r statsResult) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "sequences:        %d (capacity %d)\n", r.Total, r.Capacity)
	fmt.Fprintf(&b, "fetched:          %d\n", r.Fetched)
	fmt.Fprintf(&b, "solved:           %d\n", r.Solved)
	fmt.Fprintf(&b, "new:              %d\n", r.New)
	fmt.Fprintf(&b, "verified:         %d passed, %d failed\n", r.Verified, r.VerifyFailed)
	fmt.Fprintf(&b, "blacklisted:      %d\n", r.Blacklisted)
	fmt.Fprintf(&b, "cross-references: %d\n", r.CrossReferences)
	fmt.Fprintf(&b, "runs:             %d", r.Stats.Runs)
	for _, run := range r.Recent {
		fmt.Fprintf(&b, "\n  %s %-9s %-8s %s processed %d, found %d, new %d",
			run.ID, run.Mode, run.Status, run.StartedAt.Format("2006-01-02 15:04:05"),
			run.Processed, run.Found, run.New)
	}
	return b.String()
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	var recent int

	cmd := &cobra.Command{
		Use:           "stats",
		Short:         "Summarise the job store",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			capacity, _, err := e.store.Capacity(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read store", err)
			}
			st, err := e.store.Stats(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read store", err)
			}
			runs, err := e.store.Runs(ctx, recent)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read runs", err)
			}
			return e.out.Success(statsResult{Capacity: capacity, Stats: st, Recent: runs})
		},
	}
	cmd.Flags().IntVar(&recent, "runs", 5, "number of recent runs to list")
	return cmd
}
