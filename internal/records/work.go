package records

import (
	"time"

	"crossref/internal/schema"
)

// WorkDefinition is the stored shape of a Crossref work sample.
var WorkDefinition = schema.MustDefine("CreativeWork",
	schema.Field{Name: "doi", Type: schema.String},
	schema.Field{Name: "deposited", Type: schema.Timestamp},
	schema.Field{Name: "created", Type: schema.Timestamp},
	schema.Field{Name: "deposit_delay_days", Type: schema.Int64},
	schema.Field{Name: "has_refs", Type: schema.Bool},
	schema.Field{Name: "citations_incoming", Type: schema.Int64, Nullable: true},
	schema.Field{Name: "citations_outgoing", Type: schema.Int64, Default: int64(0)},
	schema.Field{Name: "member", Type: schema.String, Nullable: true},
	schema.Field{Name: "work_type", Type: schema.String, Nullable: true},
)

// Work is one creative work (article, chapter, ...).
type Work struct {
	DOI               string
	Deposited         time.Time
	Created           time.Time
	DepositDelayDays  int64
	HasRefs           bool
	CitationsIncoming *int64
	CitationsOutgoing int64
	Member            *string
	WorkType          *string
}

func (w Work) Definition() *schema.Definition { return WorkDefinition }

func (w Work) Values() []any {
	return []any{
		w.DOI,
		w.Deposited,
		w.Created,
		w.DepositDelayDays,
		w.HasRefs,
		schema.Opt(w.CitationsIncoming),
		w.CitationsOutgoing,
		schema.Opt(w.Member),
		schema.Opt(w.WorkType),
	}
}

// DecodeWork parses a raw /works item. hasRefs is the has-references filter
// the item was requested with; the response itself does not carry it.
func DecodeWork(item map[string]any, hasRefs bool) (Work, error) {
	var w Work
	var err error

	if w.DOI, err = requireString(item, "DOI"); err != nil {
		return Work{}, err
	}
	if w.Created, err = requireTime(item, "created"); err != nil {
		return Work{}, err
	}
	if w.Deposited, err = requireTime(item, "deposited"); err != nil {
		return Work{}, err
	}
	if w.WorkType, err = optionalText(item, "type"); err != nil {
		return Work{}, err
	}
	if w.Member, err = optionalText(item, "member"); err != nil {
		return Work{}, err
	}
	if w.CitationsIncoming, err = optionalInt(item, "is-referenced-by-count"); err != nil {
		return Work{}, err
	}
	outgoing, err := optionalInt(item, "references-count")
	if err != nil {
		return Work{}, err
	}
	if outgoing != nil {
		w.CitationsOutgoing = *outgoing
	}

	w.HasRefs = hasRefs
	w.DepositDelayDays = DelayDays(w.Created, w.Deposited)
	return w, nil
}

// DelayDays returns the whole number of 24h periods from created to
// deposited, floored. Time of day counts: a deposit earlier in the day than
// the creation loses the final partial day.
func DelayDays(created, deposited time.Time) int64 {
	const day = 24 * time.Hour
	d := deposited.Sub(created)
	days := int64(d / day)
	if d < 0 && d%day != 0 {
		days--
	}
	return days
}
