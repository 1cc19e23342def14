package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"crossref/internal/schema"
)

// InsertFn inserts one batch; Gateway.InsertBatch satisfies it.
type InsertFn func(ctx context.Context, recs []schema.Record) error

// LoadBatches drains records from in, groups them into batches of batchSize
// and calls insert for each non-empty batch. It returns the number of
// records in successfully inserted batches and the first error.
//
// Progress is logged on each flush. Cancellation returns ctx.Err().
func LoadBatches(
	ctx context.Context,
	in <-chan schema.Record,
	batchSize int,
	insert InsertFn,
	log *slog.Logger,
) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("%w: batchSize must be > 0", ErrPrecondition)
	}
	if insert == nil {
		return 0, fmt.Errorf("%w: insert must not be nil", ErrPrecondition)
	}
	if log == nil {
		log = slog.Default()
	}

	var (
		total       int64
		batches     int64
		batch       = make([]schema.Record, 0, batchSize)
		start       = time.Now()
		lastFlushTS = start
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n := int64(len(batch))
		err := insert(ctx, batch)
		// The callee may keep the slice (quarantine payloads), so start fresh.
		batch = make([]schema.Record, 0, batchSize)
		if err != nil {
			log.Error("loader: batch failed", "batch", batches+1, "rows", n, "total", total, "err", err)
			return err
		}

		total += n
		batches++
		now := time.Now()
		sinceLast := now.Sub(lastFlushTS)
		rps := float64(0)
		if sinceLast > 0 {
			rps = float64(n) / sinceLast.Seconds()
		}
		log.Info("loader: batch inserted",
			"batch", batches,
			"rows", n,
			"total", total,
			"rps", int64(rps),
			"elapsed", now.Sub(start).Truncate(time.Millisecond),
		)
		lastFlushTS = now
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()

		case rec, ok := <-in:
			if !ok {
				if err := flush(); err != nil {
					return total, err
				}
				log.Debug("loader: input closed", "batches", batches, "total", total)
				return total, nil
			}
			batch = append(batch, rec)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return total, err
				}
			}
		}
	}
}
