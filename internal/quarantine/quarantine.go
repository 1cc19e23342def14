// Package quarantine records failed payloads to a caller-owned side channel.
//
// A Sink is constructed once by the top-level process and passed explicitly to
// the decoders and the storage gateway. Each failure category keeps at most
// one live entry: a new failure overwrites the previous entry of the same
// category, so the directory always shows the most recent fault per kind.
package quarantine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Failure categories.
const (
	CategoryDecodeWork   = "decode_work"
	CategoryDecodeMember = "decode_member"
	CategoryInsert       = "insert"
)

// Entry is one quarantined failure.
type Entry struct {
	ID       string    `json:"id"`
	Category string    `json:"category"`
	Error    string    `json:"error"`
	Time     time.Time `json:"time"`
	Payload  any       `json:"payload"`
}

// Sink accepts quarantine entries.
type Sink interface {
	Record(category string, cause error, payload any) error
}

func newEntry(category string, cause error, payload any, now time.Time) Entry {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return Entry{
		ID:       uuid.NewString(),
		Category: category,
		Error:    msg,
		Time:     now,
		Payload:  payload,
	}
}

// FileSink writes entries as indented JSON to <dir>/<category>.json.
type FileSink struct {
	dir string
	now func() time.Time
	mu  sync.Mutex
}

// NewFileSink creates dir if needed. Existing entries are left in place.
func NewFileSink(dir string) (*FileSink, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("quarantine: directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("quarantine: create dir %s: %w", dir, err)
	}
	return &FileSink{dir: dir, now: time.Now}, nil
}

// Dir returns the sink directory.
func (s *FileSink) Dir() string { return s.dir }

// Path returns the file holding the live entry for category.
func (s *FileSink) Path(category string) string {
	return filepath.Join(s.dir, category+".json")
}

// Record overwrites the entry for category. The file is written to a
// temporary name and renamed so readers never observe a partial document.
func (s *FileSink) Record(category string, cause error, payload any) error {
	if strings.TrimSpace(category) == "" || strings.ContainsAny(category, `/\`) {
		return fmt.Errorf("quarantine: invalid category %q", category)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e := newEntry(category, cause, payload, s.now().UTC())
	b, err := json.MarshalIndent(e, "", "    ")
	if err != nil {
		return fmt.Errorf("quarantine: encode %s entry: %w", category, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+category+"-*.json")
	if err != nil {
		return fmt.Errorf("quarantine: create temp: %w", err)
	}
	if _, err := tmp.Write(append(b, '\n')); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("quarantine: write %s entry: %w", category, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("quarantine: close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path(category)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("quarantine: publish %s entry: %w", category, err)
	}
	return nil
}

// Read loads the live entry for category. Payload is decoded loosely
// (maps, slices, float64 numbers).
func (s *FileSink) Read(category string) (Entry, error) {
	var e Entry
	b, err := os.ReadFile(s.Path(category))
	if err != nil {
		return e, fmt.Errorf("quarantine: read %s: %w", category, err)
	}
	if err := json.Unmarshal(b, &e); err != nil {
		return e, fmt.Errorf("quarantine: decode %s: %w", category, err)
	}
	return e, nil
}

// Categories lists the categories that currently hold an entry.
func (s *FileSink) Categories() ([]string, error) {
	ents, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("quarantine: list %s: %w", s.dir, err)
	}
	var out []string
	for _, de := range ents {
		name := de.Name()
		if de.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".json" {
			continue
		}
		out = append(out, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(out)
	return out, nil
}

// Memory keeps entries in memory, one per category. Useful in tests and for
// dry runs.
type Memory struct {
	mu      sync.Mutex
	entries map[string]Entry
	calls   int
}

// NewMemory returns an empty in-memory sink.
func NewMemory() *Memory {
	return &Memory{entries: map[string]Entry{}}
}

// Record stores the entry, replacing any previous entry of the category.
func (m *Memory) Record(category string, cause error, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[category] = newEntry(category, cause, payload, time.Now().UTC())
	m.calls++
	return nil
}

// Get returns the live entry for category.
func (m *Memory) Get(category string) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[category]
	return e, ok
}

// Calls returns the total number of Record calls.
func (m *Memory) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Discard drops every entry.
type Discard struct{}

func (Discard) Record(string, error, any) error { return nil }
