package quarantine

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

// TestNewFileSink_CreatesDir verifies that missing parent directories are
// created and an empty directory is rejected.
func TestNewFileSink_CreatesDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "log", "nested")
	s, err := NewFileSink(dir)
	if err != nil {
		t.Fatalf("NewFileSink: %v", err)
	}
	if fi, err := os.Stat(s.Dir()); err != nil || !fi.IsDir() {
		t.Fatalf("dir not created: %v", err)
	}

	if _, err := NewFileSink("  "); err == nil {
		t.Fatalf("expected error for empty dir")
	}
}

// TestFileSink_OverwritesPerCategory checks that a second failure of the same
// category replaces the first, while other categories are untouched.
func TestFileSink_OverwritesPerCategory(t *testing.T) {
	t.Parallel()

	s, err := NewFileSink(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSink: %v", err)
	}
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	if err := s.Record(CategoryDecodeWork, errors.New("first"), map[string]any{"DOI": "1"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := s.Record(CategoryInsert, errors.New("boom"), []any{"x"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := s.Record(CategoryDecodeWork, errors.New("second"), map[string]any{"DOI": "2"}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	e, err := s.Read(CategoryDecodeWork)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if e.Error != "second" {
		t.Fatalf("Error = %q, want second", e.Error)
	}
	if !e.Time.Equal(fixed) {
		t.Fatalf("Time = %v, want %v", e.Time, fixed)
	}
	if e.ID == "" || e.Category != CategoryDecodeWork {
		t.Fatalf("unexpected entry header: %+v", e)
	}
	if want := map[string]any{"DOI": "2"}; !reflect.DeepEqual(e.Payload, want) {
		t.Fatalf("Payload = %#v, want %#v", e.Payload, want)
	}

	cats, err := s.Categories()
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if want := []string{CategoryDecodeWork, CategoryInsert}; !reflect.DeepEqual(cats, want) {
		t.Fatalf("Categories = %v, want %v", cats, want)
	}
}

func TestFileSink_InvalidCategory(t *testing.T) {
	t.Parallel()

	s, err := NewFileSink(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSink: %v", err)
	}
	for _, c := range []string{"", "../escape", `a\b`} {
		if err := s.Record(c, errors.New("x"), nil); err == nil {
			t.Fatalf("Record(%q) expected error", c)
		}
	}
}

func TestMemory(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	_ = m.Record(CategoryInsert, errors.New("a"), 1)
	_ = m.Record(CategoryInsert, errors.New("b"), 2)

	e, ok := m.Get(CategoryInsert)
	if !ok || e.Error != "b" || e.Payload != 2 {
		t.Fatalf("Get = %+v, %v", e, ok)
	}
	if m.Calls() != 2 {
		t.Fatalf("Calls = %d, want 2", m.Calls())
	}
	if _, ok := m.Get(CategoryDecodeMember); ok {
		t.Fatalf("unexpected entry for %s", CategoryDecodeMember)
	}
}
