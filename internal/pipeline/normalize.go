package pipeline

import (
	"fmt"

	"github.com/avelek/newspulse/internal/source"
	"github.com/avelek/newspulse/pkg/models"
)

// Reducer collapses multiple same-day records into one value.
type Reducer string

const (
	ReduceMean Reducer = "mean"
	ReduceSum  Reducer = "sum"
	ReduceLast Reducer = "last"
)

// ParseReducer validates a reducer name from config. The empty string
// means mean.
func ParseReducer(s string) (Reducer, error) {
	switch Reducer(s) {
	case ReduceMean, ReduceSum, ReduceLast:
		return Reducer(s), nil
	case "":
		return ReduceMean, nil
	}
	return "", fmt.Errorf("unknown reducer %q", s)
}

// IntegrityError reports a record the owning source could not parse.
// Unparseable data inside a successfully fetched payload means the
// pipeline's picture of the source format is wrong, so normalization
// halts instead of guessing.
type IntegrityError struct {
	Source string
	Record models.Record
	Err    error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity: source %s record {%s %s}: %v",
		e.Source, e.Record.Stamp, e.Record.Value, e.Err)
}

func (e *IntegrityError) Unwrap() error { return e.Err }

// Normalize parses every fetched record through its source and reduces
// them into one DailyRecord per day of the requested range, in order.
// Days with no records come back Present=false; a gap is never written
// as a zero value. Records dated outside the range are dropped.
func Normalize(src source.Source, fetched []Fetched, r models.DateRange, reducer Reducer) ([]models.DailyRecord, error) {
	type bucket struct {
		sum   float64
		last  float64
		count int
	}
	buckets := make(map[models.Date]*bucket)

	for _, f := range fetched {
		if f.Result.Status != models.StatusOK {
			continue
		}
		for _, rec := range f.Result.Records {
			day, value, err := src.ParseRecord(rec)
			if err != nil {
				return nil, &IntegrityError{Source: src.Name(), Record: rec, Err: err}
			}
			if !r.Contains(day) {
				// Sources may pad the chunk boundary (daily API buckets,
				// feed items at the window edge).
				continue
			}
			b := buckets[day]
			if b == nil {
				b = &bucket{}
				buckets[day] = b
			}
			b.sum += value
			b.last = value
			b.count++
		}
	}

	days := r.Dates()
	out := make([]models.DailyRecord, 0, len(days))
	for _, day := range days {
		rec := models.DailyRecord{Date: day}
		if b, ok := buckets[day]; ok && b.count > 0 {
			rec.Present = true
			rec.Count = b.count
			switch reducer {
			case ReduceSum:
				rec.Value = b.sum
			case ReduceLast:
				rec.Value = b.last
			default:
				rec.Value = b.sum / float64(b.count)
			}
		}
		out = append(out, rec)
	}
	return out, nil
}
