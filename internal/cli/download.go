package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/seqmine/internal/engine"
	"github.com/roach88/seqmine/internal/ir"
)

type downloadResult struct {
	engine.DownloadSummary
}

func (r downloadResult) Text() string {
	s := fmt.Sprintf("requested %d: cached %d, fetched %d, failed %d",
		r.Requested, r.Cached, r.Fetched, len(r.Failed))
	if len(r.Failed) > 0 {
		ids := make([]string, len(r.Failed))
		for i, id := range r.Failed {
			ids[i] = string(id)
		}
		s += "\nfailed: " + strings.Join(ids, " ")
	}
	return s
}

// NewDownloadCommand creates the download command.
func NewDownloadCommand(rootOpts *RootOptions) *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "download <from> <to>",
		Short: "Fill the content cache for a range of sequences",
		Long: `Fetch every sequence numbered from..to (inclusive) into the content cache
without guessing. Bounds are plain numbers or ids.

Example:
  seqmine download 1 5000
  seqmine download A000001 A000100 --workers 8`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseBound(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid range", err)
			}
			to, err := parseBound(args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid range", err)
			}
			if from < 1 || to > ir.MaxIDNumber || from > to {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid range %d..%d", from, to))
			}

			e, err := setup(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer e.Close()

			ctx, cancel := signalContext(cmd)
			defer cancel()

			res, err := e.resolver()
			if err != nil {
				return err
			}
			if workers <= 0 {
				workers = e.cfg.Engine.DownloadWorkers
			}
			sum, err := engine.NewDownloader(res, workers).Run(ctx, from, to)
			if err != nil && !isCancel(err) {
				return WrapExitError(ExitFailure, "download failed", err)
			}
			if err != nil {
				slog.Info("download interrupted", "cached", sum.Cached, "fetched", sum.Fetched)
			}
			if err := e.out.Success(downloadResult{sum}); err != nil {
				return err
			}
			if len(sum.Failed) > 0 {
				return NewExitError(ExitFailure, fmt.Sprintf("%d sequences could not be fetched", len(sum.Failed)))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent fetches (overrides config)")
	return cmd
}
