// Package yahoo implements the price source client backed by Yahoo
// Finance's public v8 chart API. Free, no API key; one daily bar per
// trading day, so a single chunk can safely span months.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/avelek/newspulse/internal/infra"
	"github.com/avelek/newspulse/internal/source"
	"github.com/avelek/newspulse/pkg/models"
	"github.com/avelek/newspulse/pkg/utils"
)

const chartBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// Config controls the chart client.
type Config struct {
	Ticker     string        // e.g. "DJT"
	Interval   string        // bar interval, "1d" for daily studies
	BaseURL    string        // endpoint override, used by tests
	RateLimit  int           // requests allowed per RateWindow
	RateWindow time.Duration // rate limit window
}

// Client fetches daily bars from the chart API and keeps the adjusted
// close per bar (raw close when no adjusted series is returned).
type Client struct {
	cfg     Config
	limiter *infra.RateLimiter
}

// New creates a chart API client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = chartBaseURL
	}
	if cfg.Interval == "" {
		cfg.Interval = "1d"
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 30
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = time.Minute
	}
	return &Client{
		cfg:     cfg,
		limiter: infra.NewRateLimiter(cfg.RateLimit, cfg.RateWindow),
	}
}

// Kind reports the price side of the pipeline.
func (c *Client) Kind() models.SourceKind { return models.KindPrice }

// Name returns the source name used in logs and the manifest.
func (c *Client) Name() string { return "yahoo" }

// Fetch retrieves the daily bars covering the chunk range.
func (c *Client) Fetch(ctx context.Context, chunk models.Chunk) (models.RawResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return models.RawResult{}, err
	}

	// The chart API treats period2 as exclusive; push it one day past the
	// chunk end so the end day's bar is included.
	period1 := chunk.Range.Start.Time().Unix()
	period2 := chunk.Range.End.AddDays(1).Time().Unix()
	reqURL := fmt.Sprintf("%s/%s?period1=%d&period2=%d&interval=%s",
		c.cfg.BaseURL, url.PathEscape(c.cfg.Ticker), period1, period2, c.cfg.Interval)

	var resp chartResponse
	if err := c.fetchJSON(ctx, reqURL, &resp); err != nil {
		return models.RawResult{}, fmt.Errorf("yahoo chart %s: %w", c.cfg.Ticker, err)
	}

	if resp.Chart.Error != nil {
		return models.RawResult{}, fmt.Errorf("yahoo chart %s: %w: %s",
			c.cfg.Ticker, source.ErrRejected, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return source.Result(nil), nil
	}

	return source.Result(parseBars(resp.Chart.Result[0])), nil
}

// parseBars converts chart data to raw records, skipping null bars (halted
// or not-yet-settled days come back as nulls).
func parseBars(result chartResult) []models.Record {
	if len(result.Indicators.Quote) == 0 {
		return nil
	}
	q := result.Indicators.Quote[0]
	var adjCloses []*float64
	if len(result.Indicators.AdjClose) > 0 {
		adjCloses = result.Indicators.AdjClose[0].AdjClose
	}

	records := make([]models.Record, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		var px *float64
		if i < len(adjCloses) && adjCloses[i] != nil {
			px = adjCloses[i]
		} else if i < len(q.Close) && q.Close[i] != nil {
			px = q.Close[i]
		}
		if px == nil {
			continue
		}
		records = append(records, models.Record{
			Stamp: strconv.FormatInt(ts, 10),
			Value: strconv.FormatFloat(*px, 'f', -1, 64),
		})
	}
	return records
}

// fetchJSON performs a GET request and decodes the response into dest.
func (c *Client) fetchJSON(ctx context.Context, url string, dest any) error {
	data, _, err := infra.DoGet(ctx, url, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("%w: %v", source.ErrBadPayload, err)
	}
	return nil
}

// ClassifyFailure applies the shared HTTP classification.
func (c *Client) ClassifyFailure(err error) source.FailureKind {
	return source.Classify(err)
}

// ParseRecord resolves the bar's trading day and price.
func (c *Client) ParseRecord(rec models.Record) (models.Date, float64, error) {
	day, err := utils.ParseDayStamp(rec.Stamp)
	if err != nil {
		return models.Date{}, 0, err
	}
	px, err := strconv.ParseFloat(rec.Value, 64)
	if err != nil {
		return models.Date{}, 0, fmt.Errorf("price value %q: %w", rec.Value, err)
	}
	return day, px, nil
}
