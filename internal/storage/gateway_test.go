package storage_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"crossref/internal/quarantine"
	"crossref/internal/records"
	"crossref/internal/schema"
	"crossref/internal/storage"
	_ "crossref/internal/storage/sqlite"
)

func openSQLite(t *testing.T, sink quarantine.Sink, opts ...storage.Option) *storage.Gateway {
	t.Helper()
	opts = append([]storage.Option{storage.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	g, err := storage.Open(context.Background(), storage.Config{
		Kind:     "sqlite",
		DSN:      filepath.Join(t.TempDir(), "crossref.db"),
		Database: "crossref",
	}, sink, opts...)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { g.Close() })
	return g
}

func ptr[T any](v T) *T { return &v }

func work(doi string, member *string) records.Work {
	created := time.Date(2019, 10, 1, 16, 59, 28, 0, time.UTC)
	deposited := time.Date(2020, 10, 1, 15, 50, 12, 0, time.UTC)
	return records.Work{
		DOI:               doi,
		Created:           created,
		Deposited:         deposited,
		DepositDelayDays:  records.DelayDays(created, deposited),
		HasRefs:           true,
		CitationsIncoming: ptr(int64(2)),
		Member:            member,
		WorkType:          ptr("journal-article"),
	}
}

func member(id string) records.Member {
	return records.Member{ID: id, Name: "Member " + id, TotalDOIs: 10, ReferencesCurrent: 0.5}
}

func count(t *testing.T, g *storage.Gateway, def *schema.Definition) int {
	t.Helper()
	rows, err := g.Query(context.Background(), "SELECT COUNT(*) FROM "+g.Table(def))
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	defer rows.Close()
	var n int
	if !rows.Next() {
		t.Fatalf("COUNT returned no rows")
	}
	if err := rows.Scan(&n); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	return n
}

func TestOpen_UnknownKind(t *testing.T) {
	t.Parallel()

	_, err := storage.Open(context.Background(), storage.Config{Kind: "oracle", DSN: "x"}, nil)
	if !errors.Is(err, storage.ErrUnknownKind) {
		t.Fatalf("error = %v, want ErrUnknownKind", err)
	}
}

// TestCreateTable reports the store's columns in declared order.
func TestCreateTable(t *testing.T) {
	t.Parallel()

	g := openSQLite(t, nil)
	cols, err := g.CreateTable(context.Background(), records.WorkDefinition)
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	var names, types []string
	for _, c := range cols {
		names = append(names, c.Name)
		types = append(types, c.Type)
	}
	if !reflect.DeepEqual(names, records.WorkDefinition.Columns()) {
		t.Fatalf("columns = %v, want %v", names, records.WorkDefinition.Columns())
	}
	want := []string{"TEXT", "INTEGER", "INTEGER", "INTEGER", "INTEGER", "INTEGER", "INTEGER", "TEXT", "TEXT"}
	if !reflect.DeepEqual(types, want) {
		t.Fatalf("types = %v, want %v", types, want)
	}

	// Idempotent.
	if _, err := g.CreateTable(context.Background(), records.WorkDefinition); err != nil {
		t.Fatalf("second CreateTable: %v", err)
	}
}

func TestInsertBatch_Preconditions(t *testing.T) {
	t.Parallel()

	g := openSQLite(t, quarantine.NewMemory())
	ctx := context.Background()

	if err := g.InsertBatch(ctx, nil); !errors.Is(err, storage.ErrPrecondition) {
		t.Fatalf("empty batch error = %v", err)
	}
	mixed := []schema.Record{work("10.1/a", nil), member("1")}
	if err := g.InsertBatch(ctx, mixed); !errors.Is(err, storage.ErrPrecondition) {
		t.Fatalf("mixed batch error = %v", err)
	}
}

// TestInsertBatch_DuplicatesAreKept stores the same record twice; dedup is
// the exporter's job.
func TestInsertBatch_DuplicatesAreKept(t *testing.T) {
	t.Parallel()

	g := openSQLite(t, quarantine.NewMemory())
	ctx := context.Background()
	if _, err := g.CreateTable(ctx, records.WorkDefinition); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	w := work("10.5840/ancientphil201434222", ptr("3884"))
	if err := g.InsertOne(ctx, w); err != nil {
		t.Fatalf("InsertOne: %v", err)
	}
	if err := g.InsertBatch(ctx, []schema.Record{w}); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
	if n := count(t, g, records.WorkDefinition); n != 2 {
		t.Fatalf("row count = %d, want 2", n)
	}
}

// TestInsertBatch_EncodesValues stores timestamps as epoch seconds and nulls
// as NULL.
func TestInsertBatch_EncodesValues(t *testing.T) {
	t.Parallel()

	g := openSQLite(t, quarantine.NewMemory())
	ctx := context.Background()
	if _, err := g.CreateTable(ctx, records.WorkDefinition); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	w := work("10.1/x", nil)
	if err := g.InsertOne(ctx, w); err != nil {
		t.Fatalf("InsertOne: %v", err)
	}

	rows, err := g.Query(ctx, `SELECT "deposited", "has_refs", "member" IS NULL FROM `+g.Table(records.WorkDefinition))
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	defer rows.Close()
	if !rows.Next() {
		t.Fatalf("no rows")
	}
	var deposited, hasRefs int64
	var memberNull bool
	if err := rows.Scan(&deposited, &hasRefs, &memberNull); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if deposited != w.Deposited.Unix() || hasRefs != 1 || !memberNull {
		t.Fatalf("stored = %d, %d, %v", deposited, hasRefs, memberNull)
	}
}

// TestInsertBatch_FailureQuarantines writes the batch to the sink and
// returns *InsertError.
func TestInsertBatch_FailureQuarantines(t *testing.T) {
	t.Parallel()

	sink := quarantine.NewMemory()
	g := openSQLite(t, sink)

	// No table: the insert fails in the store.
	err := g.InsertOne(context.Background(), work("10.1/missing", nil))
	var ierr *storage.InsertError
	if !errors.As(err, &ierr) {
		t.Fatalf("error = %v, want *InsertError", err)
	}
	if ierr.Rows != 1 || !strings.Contains(ierr.Table, "creativework") {
		t.Fatalf("InsertError = %+v", ierr)
	}

	e, ok := sink.Get(quarantine.CategoryInsert)
	if !ok {
		t.Fatalf("no quarantine entry")
	}
	payload, ok := e.Payload.([]map[string]any)
	if !ok || len(payload) != 1 || payload[0]["doi"] != "10.1/missing" {
		t.Fatalf("payload = %#v", e.Payload)
	}
	if payload[0]["deposited"] != "2020-10-01T15:50:12Z" {
		t.Fatalf("timestamp payload = %v", payload[0]["deposited"])
	}
}

type badRecord struct{}

func (badRecord) Definition() *schema.Definition { return records.MemberDefinition }
func (badRecord) Values() []any                  { return []any{"1"} }

func TestInsertBatch_ValidationFailureQuarantines(t *testing.T) {
	t.Parallel()

	sink := quarantine.NewMemory()
	g := openSQLite(t, sink)
	ctx := context.Background()
	if _, err := g.CreateTable(ctx, records.MemberDefinition); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	err := g.InsertOne(ctx, badRecord{})
	var ierr *storage.InsertError
	if !errors.As(err, &ierr) {
		t.Fatalf("error = %v, want *InsertError", err)
	}
	if sink.Calls() != 1 {
		t.Fatalf("quarantine calls = %d, want 1", sink.Calls())
	}
	if n := count(t, g, records.MemberDefinition); n != 0 {
		t.Fatalf("rows = %d, want 0", n)
	}
}

// TestMissingKeys: facts {A, A, B, NULL} against secondary {A} yield {B}.
func TestMissingKeys(t *testing.T) {
	t.Parallel()

	g := openSQLite(t, quarantine.NewMemory())
	ctx := context.Background()
	for _, def := range []*schema.Definition{records.WorkDefinition, records.MemberDefinition} {
		if _, err := g.CreateTable(ctx, def); err != nil {
			t.Fatalf("CreateTable(%s): %v", def.Name(), err)
		}
	}

	facts := []schema.Record{
		work("10.1/1", ptr("A")),
		work("10.1/2", ptr("A")),
		work("10.1/3", ptr("B")),
		work("10.1/4", nil),
	}
	if err := g.InsertBatch(ctx, facts); err != nil {
		t.Fatalf("InsertBatch(works): %v", err)
	}
	if err := g.InsertOne(ctx, member("A")); err != nil {
		t.Fatalf("InsertOne(member): %v", err)
	}

	got, err := g.MissingKeys(ctx, records.WorkDefinition, "member", records.MemberDefinition, "id")
	if err != nil {
		t.Fatalf("MissingKeys: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"B"}) {
		t.Fatalf("MissingKeys = %v, want [B]", got)
	}

	if err := g.InsertOne(ctx, member("B")); err != nil {
		t.Fatalf("InsertOne(member): %v", err)
	}
	got, err = g.MissingKeys(ctx, records.WorkDefinition, "member", records.MemberDefinition, "id")
	if err != nil || len(got) != 0 {
		t.Fatalf("MissingKeys after insert = %v, %v; want empty", got, err)
	}
}

func TestMissingKeys_UnknownField(t *testing.T) {
	t.Parallel()

	g := openSQLite(t, nil)
	tests := []struct {
		factKey, secondaryKey string
	}{
		{"publisher", "id"},
		{"member", "member_id"},
		{"citations_outgoing", "id"},
	}
	for _, tt := range tests {
		_, err := g.MissingKeys(context.Background(), records.WorkDefinition, tt.factKey, records.MemberDefinition, tt.secondaryKey)
		if !errors.Is(err, storage.ErrPrecondition) {
			t.Fatalf("MissingKeys(%s, %s) error = %v, want ErrPrecondition", tt.factKey, tt.secondaryKey, err)
		}
	}
}

func TestRecreateTable(t *testing.T) {
	t.Parallel()

	var answer bool
	var asked string
	prompt := storage.PrompterFunc(func(q string) (bool, error) {
		asked = q
		return answer, nil
	})
	g := openSQLite(t, quarantine.NewMemory(), storage.WithPrompter(prompt))
	ctx := context.Background()
	if _, err := g.CreateTable(ctx, records.MemberDefinition); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if err := g.InsertOne(ctx, member("1")); err != nil {
		t.Fatalf("InsertOne: %v", err)
	}

	done, err := g.RecreateTable(ctx, records.MemberDefinition, true)
	if err != nil || done {
		t.Fatalf("declined RecreateTable = %v, %v", done, err)
	}
	if !strings.Contains(asked, "crossrefmember") {
		t.Fatalf("prompt %q does not name the table", asked)
	}
	if n := count(t, g, records.MemberDefinition); n != 1 {
		t.Fatalf("rows after decline = %d, want 1", n)
	}

	answer = true
	if done, err := g.RecreateTable(ctx, records.MemberDefinition, true); err != nil || !done {
		t.Fatalf("approved RecreateTable = %v, %v", done, err)
	}
	if n := count(t, g, records.MemberDefinition); n != 0 {
		t.Fatalf("rows after recreate = %d, want 0", n)
	}

	// confirm=false skips the prompter entirely.
	asked = ""
	if done, err := g.RecreateTable(ctx, records.MemberDefinition, false); err != nil || !done {
		t.Fatalf("unconfirmed RecreateTable = %v, %v", done, err)
	}
	if asked != "" {
		t.Fatalf("prompter was called with confirm=false")
	}
}

func TestTerminalPrompter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		tty     bool
		input   string
		want    bool
		wantErr error
	}{
		{"not a terminal", false, "y\n", false, storage.ErrNotConfirmed},
		{"yes", true, "yes\n", true, nil},
		{"y without newline", true, "Y", true, nil},
		{"default no", true, "\n", false, nil},
		{"other", true, "nope\n", false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := &storage.TerminalPrompter{In: strings.NewReader(tt.input), Out: io.Discard, IsTTY: tt.tty}
			got, err := p.Confirm("Drop?")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("Confirm = %v, %v; want %v", got, err, tt.want)
			}
		})
	}
}

func TestKinds(t *testing.T) {
	t.Parallel()

	found := false
	for _, k := range storage.Kinds() {
		if k == "sqlite" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Kinds() = %v, missing sqlite", storage.Kinds())
	}
}
