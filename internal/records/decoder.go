// Package records holds the Crossref record kinds (works and members), their
// definitions, and the decoders that turn raw API items into typed records.
//
// Decoders fail loudly: every failure is written to the quarantine sink
// together with the raw item before the error is returned to the caller.
package records

import (
	"fmt"
	"log/slog"

	"crossref/internal/metrics"
	"crossref/internal/quarantine"
)

// DecodeError wraps a decoder failure with the record kind it concerns.
type DecodeError struct {
	Kind string // "work" or "member"
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("records: decode %s: %v", e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decoder decodes raw items and quarantines failures.
type Decoder struct {
	Sink   quarantine.Sink
	Job    string
	Logger *slog.Logger
}

// NewDecoder returns a Decoder writing failures to sink.
func NewDecoder(sink quarantine.Sink, job string) *Decoder {
	if sink == nil {
		sink = quarantine.Discard{}
	}
	return &Decoder{Sink: sink, Job: job, Logger: slog.Default()}
}

// Work decodes one /works item.
func (d *Decoder) Work(item map[string]any, hasRefs bool) (Work, error) {
	w, err := DecodeWork(item, hasRefs)
	if err != nil {
		return Work{}, d.fail("work", quarantine.CategoryDecodeWork, item, err)
	}
	metrics.RecordRow(d.Job, "decoded", 1)
	return w, nil
}

// Works decodes a batch. The first failure aborts the batch.
func (d *Decoder) Works(items []map[string]any, hasRefs bool) ([]Work, error) {
	out := make([]Work, 0, len(items))
	for _, it := range items {
		w, err := d.Work(it, hasRefs)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

// Member decodes one /members item.
func (d *Decoder) Member(item map[string]any) (Member, error) {
	m, err := DecodeMember(item)
	if err != nil {
		return Member{}, d.fail("member", quarantine.CategoryDecodeMember, item, err)
	}
	metrics.RecordRow(d.Job, "decoded", 1)
	return m, nil
}

func (d *Decoder) fail(kind, category string, item map[string]any, cause error) error {
	derr := &DecodeError{Kind: kind, Err: cause}
	metrics.RecordRow(d.Job, "quarantined", 1)
	if qerr := d.Sink.Record(category, derr, item); qerr != nil {
		d.logger().Error("quarantine write failed", "category", category, "err", qerr)
		return fmt.Errorf("%w (quarantine: %v)", derr, qerr)
	}
	d.logger().Warn("item quarantined", "category", category, "err", cause)
	return derr
}

func (d *Decoder) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}
