package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/seqmine/internal/engine"
)

type verifyResult struct {
	engine.VerifySummary
}

func (r verifyResult) Text() string {
	return fmt.Sprintf("run %s %s: checked %d, passed %d, failed %d",
		r.RunID, r.Status, r.Checked, r.Passed, r.Failed)
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check stored closed forms against their terms",
		Long: `Evaluate every stored closed form over the sequence's terms and record
whether it reproduces them. Rows already judged are skipped unless --all
is given.`,
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

			orc, err := e.oracle()
			if err != nil {
				return err
			}
			sum, err := engine.NewVerifier(e.store, orc, rootOpts.RunIDs, nil).Run(ctx, all)
			if err != nil && !isCancel(err) {
				return WrapExitError(ExitFailure, "verification failed", err)
			}
			return e.out.Success(verifyResult{sum})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "re-verify rows that were already checked")
	return cmd
}
