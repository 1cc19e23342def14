// Command crossref samples works and members from the Crossref API into a
// SQL store, exports them to Parquet and loads the exports into DuckDB.
//
// Usage:
//
//	crossref [-config FILE] [-database NAME] [-v] [-validate] <command> [flags]
//
// Commands: insert-samples, insert-members, drop-works, drop-members,
// export-parquet, load-parquet.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"crossref/internal/config"
	"crossref/internal/metrics"
	"crossref/internal/metrics/datadog"
	"crossref/internal/metrics/prompush"

	// register all backends with the storage registry.
	_ "crossref/internal/storage/all"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "crossref: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}

// run parses global flags, prepares logging and metrics and dispatches to
// the named command.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("crossref", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.String("config", "", "config file (.json, .yaml or .yml)")
	database := fs.String("database", "", "database/schema name (overrides storage.database)")
	verbose := fs.Bool("v", false, "enable debug logs")
	validate := fs.Bool("validate", false, "validate the configuration and exit")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: crossref [flags] <command> [command flags]\n\ncommands:\n")
		for _, c := range commands {
			fmt.Fprintf(fs.Output(), "  %-16s %s\n", c.name, c.help)
		}
		fmt.Fprintf(fs.Output(), "\nflags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	log := newLogger(stderr, *verbose)
	slog.SetDefault(log)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	if *database != "" {
		cfg.Storage.Database = *database
	}

	issues := config.Validate(cfg)
	for _, iss := range issues {
		if iss.Severity == config.SeverityError {
			log.Error("config", "path", iss.Path, "msg", iss.Message)
		} else {
			log.Warn("config", "path", iss.Path, "msg", iss.Message)
		}
	}
	if config.HasErrors(issues) {
		return fmt.Errorf("configuration is invalid: %s", *cfgPath)
	}
	if *validate {
		fmt.Fprintln(stdout, "configuration is valid")
		return nil
	}

	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}
	cmd, ok := lookupCommand(fs.Arg(0))
	if !ok {
		fs.Usage()
		return fmt.Errorf("unknown command %q", fs.Arg(0))
	}

	flush := setupMetrics(cfg, log)
	defer flush()

	a := &app{cfg: cfg, log: log, stdout: stdout}
	start := time.Now()
	err = cmd.run(ctx, a, fs.Args()[1:])
	metrics.RecordStep(cfg.Job, cmd.name, err, time.Since(start))
	if err != nil {
		return fmt.Errorf("%s: %w", cmd.name, err)
	}
	log.Debug("done", "command", cmd.name, "elapsed", time.Since(start).Truncate(time.Millisecond))
	return nil
}

// newLogger builds a tint handler on w. Colour is enabled only when w is a
// terminal.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
		if !noColor {
			w = colorable.NewColorable(f)
		}
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    noColor,
	}))
}

// setupMetrics installs the configured metrics backend and returns the
// function that flushes it. Backend errors fall back to the nop backend.
func setupMetrics(cfg config.Config, log *slog.Logger) func() {
	var (
		b   metrics.Backend
		err error
	)
	switch cfg.Metrics.Backend {
	case "", "none":
		log.Debug("metrics: disabled")
		return func() {}
	case "pushgateway":
		b, err = prompush.NewBackend(cfg.Job, cfg.Metrics.PushgatewayURL)
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       cfg.Metrics.DatadogAddr,
			Namespace:  "crossref.",
			GlobalTags: []string{"job:" + cfg.Job},
		})
	default:
		err = fmt.Errorf("unknown backend %q", cfg.Metrics.Backend)
	}
	if err != nil {
		log.Warn("metrics: init failed, using nop", "backend", cfg.Metrics.Backend, "err", err)
		return func() {}
	}

	log.Debug("metrics: enabled", "backend", cfg.Metrics.Backend, "job", cfg.Job)
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics: flush failed", "err", err)
		}
	}
}
