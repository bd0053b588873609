package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/avelek/newspulse/pkg/models"
)

// WriteAlignedCSV writes the aligned table, one row per calendar day.
// Absent samples become empty cells so spreadsheet tools read them as
// missing rather than zero.
func WriteAlignedCSV(w io.Writer, rows []models.AlignedRow, maxLag int) error {
	cw := csv.NewWriter(w)

	header := []string{"date", "sentiment", "close", "price_change"}
	for k := 1; k <= maxLag; k++ {
		header = append(header, fmt.Sprintf("sentiment_lag_%d", k))
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, row := range rows {
		rec := []string{
			row.Date.String(),
			cell(row.Sentiment),
			cell(row.Close),
			cell(row.PriceChange),
		}
		for k := 1; k <= maxLag; k++ {
			var s models.Sample
			if k <= len(row.SentimentLags) {
				s = row.SentimentLags[k-1]
			}
			rec = append(rec, cell(s))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// cell formats an optional value, empty when absent.
func cell(s models.Sample) string {
	if !s.Present {
		return ""
	}
	return strconv.FormatFloat(s.Value, 'f', -1, 64)
}
