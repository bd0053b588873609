package pipeline

import "github.com/avelek/newspulse/pkg/models"

// WithLags populates SentimentLags on every row: lags[k-1] holds the
// sentiment k days earlier. Rows are one per calendar day, so a k-row
// shift is a k-day shift. Absence moves with the value, so a gap in the
// base series is a gap at every lag, and the first k rows have no lag-k
// value at all.
func WithLags(rows []models.AlignedRow, maxLag int) []models.AlignedRow {
	if maxLag < 1 {
		return rows
	}
	for i := range rows {
		lags := make([]models.Sample, maxLag)
		for k := 1; k <= maxLag; k++ {
			if j := i - k; j >= 0 {
				lags[k-1] = rows[j].Sentiment
			}
		}
		rows[i].SentimentLags = lags
	}
	return rows
}
