// Package pipeline turns a date range into fetch chunks, drains them
// against a source with caching and retries, and reduces the raw records
// into the aligned daily table the analysis layer consumes.
package pipeline

import (
	"fmt"

	"github.com/avelek/newspulse/pkg/models"
)

// Plan splits a date range into contiguous, non-overlapping chunks of at
// most maxSpan days each. Every day of the range lands in exactly one
// chunk; the final chunk absorbs the remainder and may be shorter.
func Plan(r models.DateRange, src models.SourceKind, maxSpan int) ([]models.Chunk, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if maxSpan < 1 {
		return nil, fmt.Errorf("chunk span must be at least one day, got %d", maxSpan)
	}

	var chunks []models.Chunk
	for start := r.Start; !start.After(r.End); {
		end := start.AddDays(maxSpan - 1)
		if end.After(r.End) {
			end = r.End
		}
		chunks = append(chunks, models.Chunk{
			Range:  models.DateRange{Start: start, End: end},
			Source: src,
		})
		start = end.AddDays(1)
	}
	return chunks, nil
}
