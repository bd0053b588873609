package gdelt

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/avelek/newspulse/internal/infra"
	"github.com/avelek/newspulse/internal/source"
	"github.com/avelek/newspulse/pkg/models"
	"github.com/avelek/newspulse/pkg/utils"
)

const docBaseURL = "https://api.gdeltproject.org/api/v2/doc/doc"

// DocClient queries the GDELT DOC 2.0 API's average-tone timeline for the
// chunk range. The API aggregates tone server-side, so each returned point
// is already one tone value per day (sub-daily points for short ranges;
// the normalizer's reducer folds those into days).
type DocClient struct {
	cfg     Config
	limiter *infra.RateLimiter
}

// NewDoc creates a DOC API client.
func NewDoc(cfg Config) *DocClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = docBaseURL
	}
	if cfg.RateLimit <= 0 {
		// The DOC API asks for gentle use; about one request every five
		// seconds keeps it happy.
		cfg.RateLimit = 12
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = time.Minute
	}
	return &DocClient{
		cfg:     cfg,
		limiter: infra.NewRateLimiter(cfg.RateLimit, cfg.RateWindow),
	}
}

// Kind reports the sentiment side of the pipeline.
func (c *DocClient) Kind() models.SourceKind { return models.KindSentiment }

// Name returns the source name used in logs and the manifest.
func (c *DocClient) Name() string { return "gdelt-doc" }

// Fetch retrieves the tone timeline covering the chunk range.
func (c *DocClient) Fetch(ctx context.Context, chunk models.Chunk) (models.RawResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return models.RawResult{}, err
	}

	query := c.cfg.Keyword
	if c.cfg.Country != "" {
		query += " sourcecountry:" + c.cfg.Country
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("mode", "timelinetone")
	params.Set("format", "json")
	params.Set("startdatetime", chunk.Range.Start.Compact()+"000000")
	params.Set("enddatetime", chunk.Range.End.Compact()+"235959")

	var resp docTimelineResponse
	if err := fetchJSON(ctx, c.cfg.BaseURL+"?"+params.Encode(), &resp); err != nil {
		return models.RawResult{}, fmt.Errorf("doc timeline %s: %w", chunk.Range, err)
	}

	var records []models.Record
	for _, series := range resp.Timeline {
		for _, pt := range series.Data {
			records = append(records, models.Record{
				Stamp: pt.Date,
				Value: strconv.FormatFloat(pt.Value, 'f', -1, 64),
			})
		}
	}
	return source.Result(records), nil
}

// ClassifyFailure applies the shared HTTP classification.
func (c *DocClient) ClassifyFailure(err error) source.FailureKind {
	return source.Classify(err)
}

// ParseRecord resolves the point date and its tone value.
func (c *DocClient) ParseRecord(rec models.Record) (models.Date, float64, error) {
	day, err := utils.ParseDayStamp(rec.Stamp)
	if err != nil {
		return models.Date{}, 0, err
	}
	v, err := strconv.ParseFloat(rec.Value, 64)
	if err != nil {
		return models.Date{}, 0, fmt.Errorf("tone value %q: %w", rec.Value, err)
	}
	return day, v, nil
}
