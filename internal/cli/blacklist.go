package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/seqmine/internal/ir"
)

// NewBlacklistCommand creates the blacklist command group.
func NewBlacklistCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blacklist",
		Short: "Manage sequences excluded from processing",
	}
	cmd.AddCommand(newBlacklistAddCommand(rootOpts))
	cmd.AddCommand(newBlacklistListCommand(rootOpts))
	return cmd
}

type blacklistAddResult struct {
	IDs   []ir.ID `json:"ids"`
	Added int     `json:"added"`
}

func (r blacklistAddResult) Text() string {
	return fmt.Sprintf("added %d of %d ids", r.Added, len(r.IDs))
}

func newBlacklistAddCommand(rootOpts *RootOptions) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "add <text...>",
		Short: "Blacklist every id mentioned in the arguments",
		Long: `Add every sequence id appearing in the arguments to the blacklist. The
arguments are free text, so a pasted catalog line works as well as a list
of ids. Existing entries are left as they are.

Example:
  seqmine blacklist add A000796 A001113
  seqmine blacklist add "Decimal expansion of Pi (A000796), see also A002117"`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := ir.ExtractIDs(strings.Join(args, " "))
			if len(ids) == 0 {
				return NewExitError(ExitCommandError, "no sequence ids found in arguments")
			}

			e, err := setup(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer e.Close()

			added, err := e.store.AddBlacklist(cmd.Context(), ids, reason)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to update blacklist", err)
			}
			return e.out.Success(blacklistAddResult{IDs: ids, Added: added})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "manual", "reason recorded with the entries")
	return cmd
}

type blacklistListResult struct {
	IDs []ir.ID `json:"ids"`
}

func (r blacklistListResult) Text() string {
	lines := make([]string, len(r.IDs))
	for i, id := range r.IDs {
		lines[i] = string(id)
	}
	return strings.Join(lines, "\n")
}

func newBlacklistListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "Print the effective blacklist",
		Long:          `Print the built-in, configured and stored blacklist entries, sorted.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer e.Close()

			bl, err := e.blacklist(cmd.Context())
			if err != nil {
				return err
			}
			return e.out.Success(blacklistListResult{IDs: bl.IDs()})
		},
	}
}
