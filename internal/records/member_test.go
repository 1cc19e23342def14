package records

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

const memberJSON = `{
  "id": 3884,
  "primary-name": "Philosophy Documentation Center",
  "counts": {"total-dois": 6},
  "breakdowns": {"dois-by-issued-year": [[2020, 2], [2019, 1], [2010, 3]]},
  "counts-type": {"all": {"journal-article": 5, "book-chapter": 1}},
  "coverage": {"references-current": 0.25}
}`

func memberItem(t *testing.T) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(memberJSON), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return m
}

func TestDecodeMember(t *testing.T) {
	t.Parallel()

	m, err := DecodeMember(memberItem(t))
	if err != nil {
		t.Fatalf("DecodeMember: %v", err)
	}
	if m.ID != "3884" || m.Name != "Philosophy Documentation Center" || m.TotalDOIs != 6 {
		t.Fatalf("unexpected identity fields: %+v", m)
	}
	if *m.CreationLatest != 2020 || *m.CreationEarliest != 2010 {
		t.Fatalf("latest/earliest = %d/%d", *m.CreationLatest, *m.CreationEarliest)
	}
	// Expanded multiset: 2020,2020,2019,2010,2010,2010.
	years := []float64{2020, 2020, 2019, 2010, 2010, 2010}
	var logSum, sum float64
	for _, y := range years {
		logSum += math.Log(y)
		sum += y
	}
	mean := sum / 6
	var ss float64
	for _, y := range years {
		ss += (y - mean) * (y - mean)
	}
	if want := int64(math.Round(math.Exp(logSum / 6))); *m.CreationMean != want {
		t.Fatalf("CreationMean = %d, want %d", *m.CreationMean, want)
	}
	if want := ss / 6; math.Abs(*m.CreationPVariance-want) > 1e-9 {
		t.Fatalf("CreationPVariance = %v, want %v", *m.CreationPVariance, want)
	}
	if m.JournalArticles != 5 || m.BookChapters != 1 || m.ProceedingsArticles != 0 {
		t.Fatalf("per-type counts = %d/%d/%d", m.JournalArticles, m.BookChapters, m.ProceedingsArticles)
	}
	if m.ReferencesCurrent != 0.25 {
		t.Fatalf("ReferencesCurrent = %v", m.ReferencesCurrent)
	}
	if err := MemberDefinition.Validate(m.Values()); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

// TestDecodeMember_EmptyDistribution yields null statistics instead of a
// division by zero. Years listed with a zero count contribute nothing, so
// they leave the range null as well.
func TestDecodeMember_EmptyDistribution(t *testing.T) {
	t.Parallel()

	tests := map[string][]any{
		"no years":   {},
		"zero count": {[]any{float64(2020), float64(0)}},
		"all zero":   {[]any{float64(2021), float64(0)}, []any{float64(2019), float64(0)}},
	}
	for name, dist := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			item := memberItem(t)
			item["breakdowns"] = map[string]any{"dois-by-issued-year": dist}

			m, err := DecodeMember(item)
			if err != nil {
				t.Fatalf("DecodeMember: %v", err)
			}
			if m.CreationMean != nil || m.CreationPVariance != nil || m.CreationEarliest != nil || m.CreationLatest != nil {
				t.Fatalf("expected null statistics, got %+v", m)
			}
			if err := MemberDefinition.Validate(m.Values()); err != nil {
				t.Fatalf("Validate: %v", err)
			}
		})
	}
}

func TestDecodeMember_NormalizesName(t *testing.T) {
	t.Parallel()

	item := memberItem(t)
	item["primary-name"] = "Universite\u0301"
	m, err := DecodeMember(item)
	if err != nil {
		t.Fatalf("DecodeMember: %v", err)
	}
	if m.Name != "Universit\u00e9" {
		t.Fatalf("Name = %q, want NFC form", m.Name)
	}
}

func TestDecodeMember_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(map[string]any)
		want   error
	}{
		{"missing id", func(m map[string]any) { delete(m, "id") }, ErrMissingKey},
		{"missing counts", func(m map[string]any) { delete(m, "counts") }, ErrMissingKey},
		{"missing counts-type.all", func(m map[string]any) { m["counts-type"] = map[string]any{} }, ErrMissingKey},
		{"missing coverage", func(m map[string]any) { delete(m, "coverage") }, ErrMissingKey},
		{"bad distribution", func(m map[string]any) {
			m["breakdowns"] = map[string]any{"dois-by-issued-year": []any{[]any{float64(2020)}}}
		}, ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			item := memberItem(t)
			tt.mutate(item)
			if _, err := DecodeMember(item); !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	if s, err := Describe(nil); err != nil || s != nil {
		t.Fatalf("Describe(nil) = %v, %v", s, err)
	}
	if s, err := Describe([]YearCount{{Year: 2000, Count: 0}}); err != nil || s != nil {
		t.Fatalf("Describe(zero counts) = %v, %v", s, err)
	}
	s, err := Describe([]YearCount{{Year: 4, Count: 1}, {Year: 16, Count: 1}})
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if math.Abs(s.GeometricMean-8) > 1e-9 || s.PVariance != 36 || s.N != 2 {
		t.Fatalf("Describe = %+v", s)
	}
	if _, err := Describe([]YearCount{{Year: 0, Count: 1}}); !errors.Is(err, ErrMalformed) {
		t.Fatalf("Describe(year 0) error = %v", err)
	}
}
