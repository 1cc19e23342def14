package export

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// rowGroupSize caps rows per Parquet row group.
const rowGroupSize = 64 * 1024

// WriteParquet writes tbl to path, replacing any existing file.
func WriteParquet(tbl arrow.Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", path, err)
	}
	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	if err := pqarrow.WriteTable(tbl, f, rowGroupSize, props, pqarrow.DefaultWriterProps()); err != nil {
		f.Close()
		return fmt.Errorf("export: write %s: %w", path, err)
	}
	// The parquet writer closes its sink; a second close is harmless.
	if err := f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("export: close %s: %w", path, err)
	}
	return nil
}

// ReadParquet loads a Parquet file into memory. The caller must Release the
// table.
func ReadParquet(ctx context.Context, path string) (arrow.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("export: open %s: %w", path, err)
	}
	defer f.Close()

	mem := memory.NewGoAllocator()
	tbl, err := pqarrow.ReadTable(ctx, f, parquet.NewReaderProperties(mem), pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, fmt.Errorf("export: read %s: %w", path, err)
	}
	return tbl, nil
}
