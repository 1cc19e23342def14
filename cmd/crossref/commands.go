package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"crossref/internal/analysis"
	"crossref/internal/config"
	"crossref/internal/datasource/crossref"
	"crossref/internal/datasource/httpds"
	"crossref/internal/export"
	"crossref/internal/quarantine"
	"crossref/internal/records"
	"crossref/internal/schema"
	"crossref/internal/storage"
)

// app carries what every command needs.
type app struct {
	cfg    config.Config
	log    *slog.Logger
	stdout io.Writer

	// prompter overrides the terminal prompter (tests).
	prompter storage.Prompter
}

type command struct {
	name string
	help string
	run  func(ctx context.Context, a *app, args []string) error
}

var commands = []command{
	{"insert-samples", "fetch random work samples and insert them", insertSamples},
	{"insert-members", "fetch members referenced by works but not stored yet", insertMembers},
	{"drop-works", "drop and recreate the works table", dropTable(records.WorkDefinition)},
	{"drop-members", "drop and recreate the members table", dropTable(records.MemberDefinition)},
	{"export-parquet", "export distinct rows of a table to Parquet", exportParquet},
	{"load-parquet", "load exported Parquet files into DuckDB", loadParquet},
}

func lookupCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

// tables maps the --table choices to record definitions.
var tables = map[string]*schema.Definition{
	"works":   records.WorkDefinition,
	"members": records.MemberDefinition,
}

func tableDef(name string) (*schema.Definition, error) {
	def, ok := tables[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: unknown table %q (want works or members)", storage.ErrPrecondition, name)
	}
	return def, nil
}

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func (a *app) sink() (quarantine.Sink, error) {
	return quarantine.NewFileSink(a.cfg.Quarantine.Dir)
}

func (a *app) openStore(ctx context.Context, sink quarantine.Sink) (*storage.Gateway, error) {
	opts := []storage.Option{
		storage.WithLogger(a.log),
		storage.WithJob(a.cfg.Job),
	}
	if a.prompter != nil {
		opts = append(opts, storage.WithPrompter(a.prompter))
	}
	return storage.Open(ctx, storage.Config{
		Kind:     a.cfg.Storage.Kind,
		DSN:      a.cfg.Storage.DSN,
		Database: a.cfg.Storage.Database,
	}, sink, opts...)
}

func (a *app) client(mailto string) (*crossref.Client, error) {
	f := a.cfg.Fetch
	if mailto == "" {
		mailto = f.Mailto
	}
	return crossref.New(crossref.Config{
		BaseURL:       f.BaseURL,
		Mailto:        mailto,
		Workers:       f.Workers,
		RatePerSecond: f.RatePerSecond,
		Job:           a.cfg.Job,
		HTTP: httpds.Config{
			Timeout:    f.Timeout.D(),
			MaxRetries: f.MaxRetries,
		},
	}, a.log)
}

// insertSamples streams decoded works from the sample fan-out into batched
// inserts.
func insertSamples(ctx context.Context, a *app, args []string) error {
	fs := newFlags("insert-samples")
	samples := fs.Int("samples", 0, "number of sample requests (100 works each)")
	hasRefs := fs.Bool("has-references", false, "only sample works that have references")
	mailto := fs.String("mailto", "", "contact address for the polite pool (overrides fetch.mailto)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *samples <= 0 {
		return fmt.Errorf("%w: --samples must be > 0", storage.ErrPrecondition)
	}

	sink, err := a.sink()
	if err != nil {
		return err
	}
	gw, err := a.openStore(ctx, sink)
	if err != nil {
		return err
	}
	defer gw.Close()
	if _, err := gw.CreateTable(ctx, records.WorkDefinition); err != nil {
		return err
	}
	client, err := a.client(*mailto)
	if err != nil {
		return err
	}
	dec := records.NewDecoder(sink, a.cfg.Job)
	dec.Logger = a.log

	recs := make(chan schema.Record, a.cfg.Runtime.BatchSize)
	var total int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := storage.LoadBatches(gctx, recs, a.cfg.Runtime.BatchSize, gw.InsertBatch, a.log)
		total = n
		return err
	})
	g.Go(func() error {
		defer close(recs)
		return client.Samples(gctx, *hasRefs, *samples, func(items []map[string]any) error {
			works, err := dec.Works(items, *hasRefs)
			if err != nil {
				return err
			}
			for _, w := range works {
				select {
				case recs <- w:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	})
	if err := g.Wait(); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "inserted %d works into %s\n", total, gw.Table(records.WorkDefinition))
	return nil
}

// insertMembers fetches the members that stored works reference but the
// members table lacks.
func insertMembers(ctx context.Context, a *app, args []string) error {
	fs := newFlags("insert-members")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sink, err := a.sink()
	if err != nil {
		return err
	}
	gw, err := a.openStore(ctx, sink)
	if err != nil {
		return err
	}
	defer gw.Close()
	for _, def := range []*schema.Definition{records.WorkDefinition, records.MemberDefinition} {
		if _, err := gw.CreateTable(ctx, def); err != nil {
			return err
		}
	}

	ids, err := gw.MissingKeys(ctx, records.WorkDefinition, "member", records.MemberDefinition, "id")
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("%w: no member ids are missing; run insert-samples first", storage.ErrInsufficientData)
	}
	a.log.Info("insert-members: fetching", "members", len(ids))

	client, err := a.client("")
	if err != nil {
		return err
	}
	dec := records.NewDecoder(sink, a.cfg.Job)
	dec.Logger = a.log

	var inserted int
	err = client.Members(ctx, ids, func(item map[string]any) error {
		m, err := dec.Member(item)
		if err != nil {
			return err
		}
		if err := gw.InsertOne(ctx, m); err != nil {
			return err
		}
		inserted++
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "inserted %d of %d members into %s\n", inserted, len(ids), gw.Table(records.MemberDefinition))
	return nil
}

func dropTable(def *schema.Definition) func(context.Context, *app, []string) error {
	return func(ctx context.Context, a *app, args []string) error {
		fs := newFlags("drop")
		yes := fs.Bool("yes", false, "skip the confirmation prompt")
		if err := fs.Parse(args); err != nil {
			return err
		}

		gw, err := a.openStore(ctx, quarantine.Discard{})
		if err != nil {
			return err
		}
		defer gw.Close()

		done, err := gw.RecreateTable(ctx, def, !*yes)
		if err != nil {
			return err
		}
		if !done {
			fmt.Fprintln(a.stdout, "aborted")
			return nil
		}
		fmt.Fprintf(a.stdout, "recreated %s\n", gw.Table(def))
		return nil
	}
}

func exportParquet(ctx context.Context, a *app, args []string) error {
	fs := newFlags("export-parquet")
	table := fs.String("table", "", "table to export: works or members")
	outfile := fs.String("outfile", "", "output path; .parquet is appended when missing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	def, err := tableDef(*table)
	if err != nil {
		return err
	}
	if strings.TrimSpace(*outfile) == "" {
		return fmt.Errorf("%w: --outfile is required", storage.ErrPrecondition)
	}

	gw, err := a.openStore(ctx, quarantine.Discard{})
	if err != nil {
		return err
	}
	defer gw.Close()

	res, err := export.Export(ctx, gw, def, *outfile, export.WithJob(a.cfg.Job), export.WithLogger(a.log))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "wrote %d rows to %s (xxh3 %016x)\n", res.Rows, res.Path, res.Checksum)
	return nil
}

// loadParquet loads exported snapshots into a DuckDB file and prints a
// short preview of each table.
func loadParquet(ctx context.Context, a *app, args []string) error {
	fs := newFlags("load-parquet")
	works := fs.String("works", "", "works parquet file (required)")
	members := fs.String("members", "", "members parquet file")
	database := fs.String("database", "", "DuckDB database file (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *works == "" || *database == "" {
		return fmt.Errorf("%w: --works and --database are required", storage.ErrPrecondition)
	}

	db, err := analysis.Open(filepath.Clean(*database), a.log)
	if err != nil {
		return err
	}
	defer db.Close()

	inputs := []struct {
		def  *schema.Definition
		path string
	}{
		{records.WorkDefinition, *works},
		{records.MemberDefinition, *members},
	}
	var errs []error
	for _, in := range inputs {
		if in.path == "" {
			continue
		}
		n, err := db.Load(ctx, in.def, in.path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		rows, err := db.Preview(ctx, in.def.Table(), 2)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		fmt.Fprintf(a.stdout, "loaded %d rows into %s\n", n, in.def.Table())
		for _, r := range rows {
			fmt.Fprintf(a.stdout, "  %v\n", r)
		}
	}
	return errors.Join(errs...)
}
