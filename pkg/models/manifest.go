package models

import "time"

// ChunkOutcome records how one chunk fetch ended, for the per-chunk log and
// the run manifest.
type ChunkOutcome struct {
	Chunk    Chunk       `json:"chunk"`
	Status   FetchStatus `json:"status"`
	CacheHit bool        `json:"cache_hit"`
	Attempts int         `json:"attempts"`
	Err      string      `json:"error,omitempty"`
}

// GapSpan is a contiguous run of days with no usable value for one source.
type GapSpan struct {
	Source SourceKind `json:"source"`
	From   Date       `json:"from"`
	To     Date       `json:"to"`
	Reason string     `json:"reason,omitempty"`
}

// RunManifest is the user-visible record of one study run: what was
// requested, how every chunk fetch ended, and which date spans came out as
// gaps. It is written next to the aligned table so a partially unavailable
// range is never mistaken for a complete one.
type RunManifest struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Range      DateRange      `json:"range"`
	Keyword    string         `json:"keyword"`
	Ticker     string         `json:"ticker"`
	Outcomes   []ChunkOutcome `json:"outcomes"`
	Gaps       []GapSpan      `json:"gaps"`
}

// FailedChunks returns the outcomes that ended in failure or were skipped.
func (m *RunManifest) FailedChunks() []ChunkOutcome {
	var out []ChunkOutcome
	for _, o := range m.Outcomes {
		if o.Status == StatusFailed || o.Status == StatusSkipped {
			out = append(out, o)
		}
	}
	return out
}

// CacheHits counts outcomes served from the chunk cache.
func (m *RunManifest) CacheHits() int {
	n := 0
	for _, o := range m.Outcomes {
		if o.CacheHit {
			n++
		}
	}
	return n
}
