package pipeline

import "github.com/avelek/newspulse/pkg/models"

// Gaps collapses the absent days of a normalized series into spans for
// the run manifest. Consecutive absent days with the same cause share a
// span; a change of cause starts a new one.
func Gaps(kind models.SourceKind, daily []models.DailyRecord, outcomes []models.ChunkOutcome) []models.GapSpan {
	var gaps []models.GapSpan
	var open *models.GapSpan

	for _, rec := range daily {
		if rec.Present {
			if open != nil {
				gaps = append(gaps, *open)
				open = nil
			}
			continue
		}
		reason := gapReason(rec.Date, outcomes)
		if open != nil && open.Reason == reason {
			open.To = rec.Date
			continue
		}
		if open != nil {
			gaps = append(gaps, *open)
		}
		open = &models.GapSpan{Source: kind, From: rec.Date, To: rec.Date, Reason: reason}
	}
	if open != nil {
		gaps = append(gaps, *open)
	}
	return gaps
}

// gapReason attributes one absent day to its chunk's fate.
func gapReason(day models.Date, outcomes []models.ChunkOutcome) string {
	for _, o := range outcomes {
		if o.Chunk.Range.Contains(day) {
			switch o.Status {
			case models.StatusFailed:
				return "chunk fetch failed"
			case models.StatusSkipped:
				return "chunk skipped"
			}
		}
	}
	return "no data from source"
}
