package pipeline

import (
	"errors"
	"fmt"
	"sort"

	"github.com/avelek/newspulse/pkg/models"
)

// ErrDuplicateDate reports a day appearing twice in one input series.
var ErrDuplicateDate = errors.New("duplicate date in series")

// Merge union-joins the two daily series into one table sorted by date.
// PriceChange(t) is close(t) minus the nearest earlier present close;
// the first present close has no change. Absent inputs stay absent,
// never zero-filled.
func Merge(sentiment, price []models.DailyRecord) ([]models.AlignedRow, error) {
	senti, err := index(models.KindSentiment, sentiment)
	if err != nil {
		return nil, err
	}
	px, err := index(models.KindPrice, price)
	if err != nil {
		return nil, err
	}

	seen := make(map[models.Date]bool, len(senti)+len(px))
	var days []models.Date
	for _, rec := range sentiment {
		if !seen[rec.Date] {
			seen[rec.Date] = true
			days = append(days, rec.Date)
		}
	}
	for _, rec := range price {
		if !seen[rec.Date] {
			seen[rec.Date] = true
			days = append(days, rec.Date)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	rows := make([]models.AlignedRow, 0, len(days))
	var prevClose models.Sample
	for _, day := range days {
		row := models.AlignedRow{Date: day}
		if rec, ok := senti[day]; ok && rec.Present {
			row.Sentiment = models.Present(rec.Value)
		}
		if rec, ok := px[day]; ok && rec.Present {
			row.Close = models.Present(rec.Value)
			if prevClose.Present {
				row.PriceChange = models.Present(rec.Value - prevClose.Value)
			}
			prevClose = row.Close
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// index maps a series by date, rejecting duplicates.
func index(kind models.SourceKind, series []models.DailyRecord) (map[models.Date]models.DailyRecord, error) {
	m := make(map[models.Date]models.DailyRecord, len(series))
	for _, rec := range series {
		if _, dup := m[rec.Date]; dup {
			return nil, fmt.Errorf("%w: %s series has %s twice", ErrDuplicateDate, kind, rec.Date)
		}
		m[rec.Date] = rec
	}
	return m, nil
}
