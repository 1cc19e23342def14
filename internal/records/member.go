package records

import (
	"fmt"
	"math"

	"golang.org/x/text/unicode/norm"

	"crossref/internal/schema"
)

// MemberDefinition is the stored shape of a Crossref member (publisher).
// The id is kept as text so that it joins directly against work.member.
var MemberDefinition = schema.MustDefine("CrossrefMember",
	schema.Field{Name: "id", Type: schema.String},
	schema.Field{Name: "name", Type: schema.String},
	schema.Field{Name: "total_dois", Type: schema.Int64},
	schema.Field{Name: "creation_pvariance", Type: schema.Float64, Nullable: true},
	schema.Field{Name: "creation_mean", Type: schema.Int64, Nullable: true},
	schema.Field{Name: "creation_earliest", Type: schema.Int64, Nullable: true},
	schema.Field{Name: "creation_latest", Type: schema.Int64, Nullable: true},
	schema.Field{Name: "references_current", Type: schema.Float64},
	schema.Field{Name: "journal_articles", Type: schema.Int64, Default: int64(0)},
	schema.Field{Name: "book_chapters", Type: schema.Int64, Default: int64(0)},
	schema.Field{Name: "proceedings_articles", Type: schema.Int64, Default: int64(0)},
)

// Member is one Crossref member with statistics over its DOIs.
type Member struct {
	ID                  string
	Name                string
	TotalDOIs           int64
	CreationPVariance   *float64
	CreationMean        *int64
	CreationEarliest    *int64
	CreationLatest      *int64
	ReferencesCurrent   float64
	JournalArticles     int64
	BookChapters        int64
	ProceedingsArticles int64
}

func (m Member) Definition() *schema.Definition { return MemberDefinition }

func (m Member) Values() []any {
	return []any{
		m.ID,
		m.Name,
		m.TotalDOIs,
		schema.Opt(m.CreationPVariance),
		schema.Opt(m.CreationMean),
		schema.Opt(m.CreationEarliest),
		schema.Opt(m.CreationLatest),
		m.ReferencesCurrent,
		m.JournalArticles,
		m.BookChapters,
		m.ProceedingsArticles,
	}
}

// DecodeMember parses the "message" object of a /members/{id} response.
func DecodeMember(item map[string]any) (Member, error) {
	var m Member

	rawID, err := require(item, "id")
	if err != nil {
		return Member{}, err
	}
	id, ok := toText(rawID)
	if !ok {
		return Member{}, fmt.Errorf("%w: id: want string or integer, got %T", ErrMalformed, rawID)
	}
	m.ID = id

	name, err := requireString(item, "primary-name")
	if err != nil {
		return Member{}, err
	}
	m.Name = norm.NFC.String(name)

	if m.TotalDOIs, err = requireInt(item, "counts.total-dois"); err != nil {
		return Member{}, err
	}

	rawYears, err := require(item, "breakdowns.dois-by-issued-year")
	if err != nil {
		return Member{}, err
	}
	years, err := parseYearCounts(rawYears)
	if err != nil {
		return Member{}, err
	}
	stats, err := Describe(years)
	if err != nil {
		return Member{}, err
	}
	// An empty or all-zero distribution leaves every statistic null.
	if stats != nil {
		// The API lists the newest year first.
		latest, earliest := years[0].Year, years[len(years)-1].Year
		m.CreationLatest, m.CreationEarliest = &latest, &earliest
		mean := int64(math.Round(stats.GeometricMean))
		pvar := stats.PVariance
		m.CreationMean, m.CreationPVariance = &mean, &pvar
	}

	if _, err := require(item, "counts-type.all"); err != nil {
		return Member{}, err
	}
	counts := []struct {
		key string
		dst *int64
	}{
		{"counts-type.all.journal-article", &m.JournalArticles},
		{"counts-type.all.book-chapter", &m.BookChapters},
		{"counts-type.all.proceedings-article", &m.ProceedingsArticles},
	}
	for _, c := range counts {
		n, err := optionalInt(item, c.key)
		if err != nil {
			return Member{}, err
		}
		if n != nil {
			*c.dst = *n
		}
	}

	if m.ReferencesCurrent, err = requireFloat(item, "coverage.references-current"); err != nil {
		return Member{}, err
	}
	return m, nil
}

func parseYearCounts(v any) ([]YearCount, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: breakdowns.dois-by-issued-year: want list, got %T", ErrMalformed, v)
	}
	out := make([]YearCount, 0, len(list))
	for i, e := range list {
		pair, ok := e.([]any)
		if !ok || len(pair) != 2 {
			return nil, fmt.Errorf("%w: breakdowns.dois-by-issued-year[%d]: want [year, count]", ErrMalformed, i)
		}
		y, ok1 := toInt64(pair[0])
		c, ok2 := toInt64(pair[1])
		if !ok1 || !ok2 || c < 0 {
			return nil, fmt.Errorf("%w: breakdowns.dois-by-issued-year[%d]: %v", ErrMalformed, i, pair)
		}
		out = append(out, YearCount{Year: y, Count: c})
	}
	return out, nil
}
