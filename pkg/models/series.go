package models

import "encoding/json"

// SourceKind identifies which of the two pipeline sides a value belongs to.
type SourceKind string

const (
	KindSentiment SourceKind = "sentiment"
	KindPrice     SourceKind = "price"
)

// FetchStatus describes how a chunk fetch ended.
type FetchStatus string

const (
	StatusOK      FetchStatus = "ok"
	StatusEmpty   FetchStatus = "empty"
	StatusFailed  FetchStatus = "failed"
	StatusSkipped FetchStatus = "skipped" // never attempted, run was cancelled
)

// Record is one source-native raw record: a timestamp in the source's own
// format plus the source's value encoding (a composite tone string, a
// formatted close price). Only the owning source knows how to parse it.
type Record struct {
	Stamp string `json:"stamp"`
	Value string `json:"value"`
}

// RawResult is the outcome of fetching one chunk from a source. It is
// created by a source client, persisted by the cache, and consumed by the
// normalizer; it is never mutated after creation.
type RawResult struct {
	Status  FetchStatus `json:"status"`
	Records []Record    `json:"records,omitempty"`
	Reason  string      `json:"reason,omitempty"` // set when Status is failed
}

// DailyRecord is the canonical per-day, per-source value after parsing and
// aggregation. Present=false marks an explicit gap; a gap is never encoded
// as a zero value.
type DailyRecord struct {
	Date    Date    `json:"date"`
	Value   float64 `json:"value"`
	Present bool    `json:"present"`
	Count   int     `json:"count,omitempty"` // raw records aggregated into this day
}

// Sample is an optional float: either a present value or an explicit
// absence. The zero Sample is absent. It marshals to a JSON number or null.
type Sample struct {
	Value   float64
	Present bool
}

// Present wraps v as a present Sample.
func Present(v float64) Sample {
	return Sample{Value: v, Present: true}
}

// MarshalJSON emits the value, or null when absent.
func (s Sample) MarshalJSON() ([]byte, error) {
	if !s.Present {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

// UnmarshalJSON accepts a number or null.
func (s *Sample) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = Sample{}
		return nil
	}
	if err := json.Unmarshal(b, &s.Value); err != nil {
		return err
	}
	s.Present = true
	return nil
}

// AlignedRow is one calendar day of the merged study table. SentimentLags[k-1]
// holds the sentiment value k days earlier; it is populated by the lag
// transformer and empty before that.
type AlignedRow struct {
	Date          Date     `json:"date"`
	Sentiment     Sample   `json:"sentiment"`
	Close         Sample   `json:"close"`
	PriceChange   Sample   `json:"price_change"`
	SentimentLags []Sample `json:"sentiment_lags,omitempty"`
}
