// Package export writes the distinct rows of a stored table to Parquet.
//
// Rows are deduplicated in the store, loaded into an Arrow table whose
// columns follow the record definition and written with Snappy compression.
package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/zeebo/xxh3"

	"crossref/internal/metrics"
	"crossref/internal/schema"
	"crossref/internal/storage"
)

// Result describes a finished export.
type Result struct {
	Path     string
	Rows     int64
	Checksum uint64 // xxh3 of the written file
}

type options struct {
	job string
	log *slog.Logger
}

// Option customizes Export.
type Option func(*options)

// WithJob sets the job label used for metrics.
func WithJob(job string) Option {
	return func(o *options) { o.job = job }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// Export writes the distinct rows of def's table to outfile (normalized to a
// .parquet path).
func Export(ctx context.Context, gw *storage.Gateway, def *schema.Definition, outfile string, opts ...Option) (res Result, err error) {
	o := options{log: slog.Default()}
	for _, fn := range opts {
		fn(&o)
	}
	start := time.Now()
	defer func() { metrics.RecordStep(o.job, "export", err, time.Since(start)) }()

	path, err := PrepareOutfile(outfile)
	if err != nil {
		return Result{}, err
	}

	tbl, err := Fetch(ctx, gw, def)
	if err != nil {
		return Result{}, err
	}
	defer tbl.Release()

	if err := WriteParquet(tbl, path); err != nil {
		return Result{}, err
	}
	sum, err := checksum(path)
	if err != nil {
		return Result{}, err
	}

	res = Result{Path: path, Rows: tbl.NumRows(), Checksum: sum}
	metrics.RecordRow(o.job, "exported", res.Rows)
	o.log.Info("export: wrote parquet", "table", def.Table(), "path", path, "rows", res.Rows, "xxh3", fmt.Sprintf("%016x", sum))
	return res, nil
}

func checksum(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("export: checksum %s: %w", path, err)
	}
	defer f.Close()

	h := xxh3.New()
	if _, err := io.Copy(h, f); err != nil {
		return 0, fmt.Errorf("export: checksum %s: %w", path, err)
	}
	return h.Sum64(), nil
}
