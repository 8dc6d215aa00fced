package domain

import (
	"errors"
	"time"
)

// Batch is the raw output of one provider for one run.
type Batch struct {
	Source  Source
	Records []Value
}

// Options parameterize a reconciliation run.
type Options struct {
	Airport Airport
	Policy  Policy
	Order   Order
	Now     time.Time
}

// Drop reasons reported in Stats.Dropped.
const (
	DropNoTime     = "no_time"
	DropNoIdentity = "no_identity"
	DropInvalid    = "invalid"
)

// Stats describe what happened to the input of a run.
type Stats struct {
	Fetched    map[Source]int `json:"fetched"`
	Normalized int            `json:"normalized"`
	Dropped    map[string]int `json:"dropped,omitempty"`
	Enriched   int            `json:"enriched"`
	Merged     int            `json:"merged"`
	Filtered   int            `json:"filtered"`
}

// Timetable is the reconciled, filtered and ordered result of a run.
type Timetable struct {
	RunID       string      `json:"run_id,omitempty"`
	GeneratedAt time.Time   `json:"generated_at"`
	Window      Window      `json:"window"`
	Historical  bool        `json:"historical"`
	Rows        []FlightRow `json:"rows"`
	Stats       Stats       `json:"stats"`
}

// Reconcile turns raw provider batches into the timetable for w. Records are
// normalized one at a time and a bad record only ever drops itself. The
// tracking summary enriches the other sources; its entries become timetable
// rows themselves only for historical windows or when no other source
// produced any row.
func Reconcile(batches []Batch, w Window, opts Options) (Timetable, error) {
	if err := w.Validate(); err != nil {
		return Timetable{}, err
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.Policy == (Policy{}) {
		opts.Policy = DefaultPolicy()
	}

	tt := Timetable{
		GeneratedAt: opts.Now.UTC(),
		Window:      w,
		Historical:  w.Historical(opts.Now),
		Stats: Stats{
			Fetched: make(map[Source]int, len(batches)),
			Dropped: make(map[string]int),
		},
	}

	var rows, summaryRows []FlightRow
	var summaryRecords []Value
	for _, b := range batches {
		tt.Stats.Fetched[b.Source] += len(b.Records)
		if b.Source == SourceSummary {
			summaryRecords = append(summaryRecords, b.Records...)
		}
		for _, rec := range b.Records {
			row, err := Normalize(rec, b.Source, opts.Airport)
			if err != nil {
				tt.Stats.Dropped[dropReason(err)]++
				continue
			}
			tt.Stats.Normalized++
			if b.Source == SourceSummary {
				summaryRows = append(summaryRows, row)
			} else {
				rows = append(rows, row)
			}
		}
	}

	if len(summaryRecords) > 0 {
		idx := BuildSummaryIndex(summaryRecords, opts.Airport)
		for i := range rows {
			enriched := idx.Enrich(rows[i])
			if !rowsEqual(enriched, rows[i]) {
				tt.Stats.Enriched++
			}
			rows[i] = enriched
		}
	}
	if tt.Historical || len(rows) == 0 {
		rows = append(rows, summaryRows...)
	}

	merged := Deduplicate(rows)
	tt.Stats.Merged = len(rows) - len(merged)

	kept := FilterWindow(merged, w)
	tt.Stats.Filtered = len(merged) - len(kept)

	SortRows(kept, opts.Order)
	for i := range kept {
		kept[i].DisplayStatus = DisplayStatus(kept[i], opts.Now, opts.Policy)
	}
	tt.Rows = kept
	return tt, nil
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, ErrNoTime):
		return DropNoTime
	case errors.Is(err, ErrNoIdentity):
		return DropNoIdentity
	default:
		return DropInvalid
	}
}

func rowsEqual(a, b FlightRow) bool {
	return KeysOf(a) == KeysOf(b) &&
		a.Registration == b.Registration &&
		a.AcType == b.AcType &&
		a.DivertedTo == b.DivertedTo &&
		a.Status == b.Status &&
		len(a.Codeshares) == len(b.Codeshares)
}
