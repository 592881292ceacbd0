package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/seqmine/internal/catalog"
	"github.com/roach88/seqmine/internal/engine"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Database   string
	CacheDir   string
	Verbose    bool
	Quiet      bool
	Format     string // "json" | "text"

	// Source overrides the remote catalog (for testing).
	// If nil, an HTTP client built from the configuration is used.
	Source catalog.Source

	// RunIDs overrides the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the seqmine CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	popts := &ProcessOptions{RootOptions: opts}

	cmd := &cobra.Command{
		Use:   "seqmine",
		Short: "seqmine - closed forms for integer sequences",
		Long: `Mine an integer-sequence catalog for closed-form formulas.

Without a subcommand seqmine runs the process pass: every pending sequence
is fetched (from the local cache when possible), handed to the guessing
oracle, verified against its terms and classified as new or already known.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if opts.Verbose && opts.Quiet {
				return NewExitError(ExitCommandError, "--verbose and --quiet are mutually exclusive")
			}
			return nil
		},
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, popts)
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite job store (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.CacheDir, "cache-dir", "", "content cache directory (overrides config)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().BoolVarP(&opts.Quiet, "quiet", "q", false, "suppress discovery and progress output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	// The bare command is the process pass.
	addProcessFlags(cmd, popts)

	cmd.AddCommand(NewProcessCommand(opts))
	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewDownloadCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))
	cmd.AddCommand(NewBlacklistCommand(opts))
	cmd.AddCommand(NewXrefCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))

	return cmd
}
