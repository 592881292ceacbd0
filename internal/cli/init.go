package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/seqmine/internal/blacklist"
)

// InitResult reports the outcome of init.
type InitResult struct {
	Database string `json:"database"`
	Capacity int    `json:"capacity"`
	Created  bool   `json:"created"`
}

func (r InitResult) Text() string {
	if !r.Created {
		return fmt.Sprintf("%s already initialised (capacity %d)", r.Database, r.Capacity)
	}
	return fmt.Sprintf("initialised %s with %d sequences", r.Database, r.Capacity)
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	var capacity int

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the job store",
		Long: `Create the job store with one empty row per identifier up to --capacity
and record the default blacklist. Running init on an initialised store
changes nothing.`,
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
			if capacity <= 0 {
				capacity = e.cfg.Capacity
			}
			created, err := e.store.CreateSchema(ctx, capacity, blacklist.Defaults)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to create schema", err)
			}
			res := InitResult{Database: e.cfg.Database, Capacity: capacity, Created: created}
			if !created {
				if c, ok, err := e.store.Capacity(ctx); err == nil && ok {
					res.Capacity = c
				}
			}
			return e.out.Success(res)
		},
	}
	cmd.Flags().IntVar(&capacity, "capacity", 0, "number of sequences (overrides config)")
	return cmd
}
