package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/seqmine/internal/blacklist"
	"github.com/roach88/seqmine/internal/cache"
	"github.com/roach88/seqmine/internal/catalog"
	"github.com/roach88/seqmine/internal/config"
	"github.com/roach88/seqmine/internal/ir"
	"github.com/roach88/seqmine/internal/metrics"
	"github.com/roach88/seqmine/internal/oracle"
	"github.com/roach88/seqmine/internal/store"
)

// env is what a command needs once flags are parsed: the merged
// configuration, an open job store and the resources opened on demand.
type env struct {
	opts    *RootOptions
	cfg     config.Config
	store   *store.Store
	metrics *metrics.Metrics
	out     *OutputFormatter
	closers []func() error
}

// setup configures logging, loads the configuration and opens the store.
// The caller must Close the env.
func setup(cmd *cobra.Command, opts *RootOptions) (*env, error) {
	configureLogging(cmd.ErrOrStderr(), opts)

	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	if dir := filepath.Dir(cfg.Database); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to create database directory", err)
		}
	}
	slog.Debug("opening database", "path", cfg.Database)
	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	return &env{
		opts:    opts,
		cfg:     cfg,
		store:   st,
		metrics: metrics.New(),
		out:     &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()},
		closers: []func() error{st.Close},
	}, nil
}

// Close releases everything opened through e, most recent first.
func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			slog.Error("error closing resource", "error", err)
		}
	}
	e.closers = nil
}

// statusWriter is where progress and discovery lines go. JSON output keeps
// stdout for the final document.
func (e *env) statusWriter(cmd *cobra.Command) io.Writer {
	if e.opts.Format == "json" {
		return cmd.ErrOrStderr()
	}
	return cmd.OutOrStdout()
}

func configureLogging(w io.Writer, opts *RootOptions) {
	logLevel := slog.LevelInfo
	switch {
	case opts.Verbose:
		logLevel = slog.LevelDebug
	case opts.Quiet:
		logLevel = slog.LevelWarn
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// loadConfig reads --config and applies the flag overrides on top.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return cfg, err
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	if opts.CacheDir != "" {
		cfg.CacheDir = opts.CacheDir
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// resolver opens the content cache in front of the catalog source.
func (e *env) resolver() (*cache.Resolver, error) {
	c, err := cache.Open(e.cfg.CacheDir)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open cache", err)
	}
	e.closers = append(e.closers, c.Close)

	src := e.opts.Source
	if src == nil {
		src = catalog.NewClient(e.cfg.ClientConfig())
	}
	return cache.NewResolver(c, src, e.metrics), nil
}

// oracle builds the adapter around the configured guesser: an external
// helper when oracle.command is set, the built-in guesser otherwise.
func (e *env) oracle() (*oracle.Adapter, error) {
	var g oracle.Guesser = oracle.Native{}
	if len(e.cfg.Oracle.Command) > 0 {
		algorithms := e.cfg.Oracle.Algorithms
		if len(algorithms) == 0 {
			algorithms = oracle.Native{}.Algorithms()
		}
		p, err := oracle.NewProcess(e.cfg.Oracle.Command, algorithms)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to configure oracle", err)
		}
		e.closers = append(e.closers, p.Close)
		g = p
	}
	a, err := oracle.NewAdapter(g, nil, e.cfg.AdapterConfig(), e.metrics)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to configure oracle", err)
	}
	return a, nil
}

// blacklist assembles the defaults, the configured ids and the stored
// table.
func (e *env) blacklist(ctx context.Context) (blacklist.Set, error) {
	bl, err := blacklist.Load(ctx, e.store, e.cfg.BlacklistIDs())
	if err != nil {
		return bl, WrapExitError(ExitCommandError, "failed to load blacklist", err)
	}
	return bl, nil
}

// ensureSchema creates the job table on first use.
func (e *env) ensureSchema(ctx context.Context, capacity int) error {
	if capacity <= 0 {
		capacity = e.cfg.Capacity
	}
	created, err := e.store.CreateSchema(ctx, capacity, blacklist.Defaults)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create schema", err)
	}
	if created {
		slog.Info("job store initialised", "capacity", capacity)
	}
	return nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
// Use command's context if available (for testing), otherwise create one.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan) // Prevent signal handler leak
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()
	return ctx, cancel
}

// isCancel reports whether err is an interrupted run rather than a failure.
func isCancel(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// parseBound accepts a plain number or a full id such as A000045.
func parseBound(s string) (int, error) {
	if strings.HasPrefix(s, "A") {
		id, err := ir.ParseID(s)
		if err != nil {
			return 0, err
		}
		return id.Number(), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid sequence number %q", s)
	}
	return n, nil
}
