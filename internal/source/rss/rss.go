// Package rss implements a sentiment source backed by news RSS feeds.
//
// Feeds only expose a recent window of items, so chunks that lie in
// the past typically come back EMPTY. The variant exists for live studies
// where the run window overlaps the feed horizon; backfills should use
// one of the GDELT variants instead.
package rss

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/avelek/newspulse/internal/infra"
	"github.com/avelek/newspulse/internal/source"
	"github.com/avelek/newspulse/pkg/models"
	"github.com/avelek/newspulse/pkg/utils"
)

// Feed identifies a single RSS endpoint.
type Feed struct {
	Name string
	URL  string
}

// DefaultFeeds lists general market-news RSS feeds polled when the
// config does not name its own.
var DefaultFeeds = []Feed{
	{
		Name: "Yahoo Finance",
		URL:  "https://finance.yahoo.com/news/rssindex",
	},
	{
		Name: "CNBC Top News",
		URL:  "https://search.cnbc.com/rs/search/combinedcms/view.xml?partnerId=wrss01&id=100003114",
	},
	{
		Name: "MarketWatch Top Stories",
		URL:  "http://feeds.marketwatch.com/marketwatch/topstories/",
	},
}

// Config holds the feed-source settings.
type Config struct {
	Keyword    string
	Feeds      []Feed
	RateLimit  int
	RateWindow time.Duration
}

// Client fetches feed items and scores their headlines.
type Client struct {
	cfg     Config
	limiter *infra.RateLimiter
	parser  *gofeed.Parser
}

// New creates an RSS sentiment source.
func New(cfg Config) *Client {
	if len(cfg.Feeds) == 0 {
		cfg.Feeds = DefaultFeeds
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 2
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = time.Second
	}
	return &Client{
		cfg:     cfg,
		limiter: infra.NewRateLimiter(cfg.RateLimit, cfg.RateWindow),
		parser:  gofeed.NewParser(),
	}
}

// Kind reports the series this source produces.
func (c *Client) Kind() models.SourceKind { return models.KindSentiment }

// Name returns the source identifier.
func (c *Client) Name() string { return "rss" }

// Fetch polls every configured feed and keeps the items published
// inside the chunk's window.
func (c *Client) Fetch(ctx context.Context, chunk models.Chunk) (models.RawResult, error) {
	var records []models.Record
	var lastErr error

	for _, feed := range c.cfg.Feeds {
		items, err := c.fetchFeed(ctx, feed, chunk.Range)
		if err != nil {
			// One dead feed should not sink the rest.
			lastErr = err
			continue
		}
		records = append(records, items...)
	}

	if len(records) == 0 && lastErr != nil {
		return models.RawResult{}, lastErr
	}
	return source.Result(records), nil
}

// fetchFeed parses one feed and scores the items inside the window.
func (c *Client) fetchFeed(ctx context.Context, feed Feed, window models.DateRange) ([]models.Record, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	parsed, err := c.parser.ParseURLWithContext(feed.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse RSS %s: %w", feed.Name, err)
	}

	keyword := strings.ToLower(c.cfg.Keyword)

	var records []models.Record
	for _, item := range parsed.Items {
		if item.PublishedParsed == nil {
			continue
		}
		day := models.DateOf(item.PublishedParsed.UTC())
		if !window.Contains(day) {
			continue
		}

		text := item.Title
		if item.Description != "" {
			text += " " + CleanHTML(item.Description)
		}
		if keyword != "" && !strings.Contains(strings.ToLower(text), keyword) {
			continue
		}

		records = append(records, models.Record{
			Stamp: item.PublishedParsed.UTC().Format("20060102150405"),
			Value: fmt.Sprintf("%.4f", ScoreHeadline(text)),
		})
	}

	return records, nil
}

// ClassifyFailure sorts fetch errors into transient and permanent.
func (c *Client) ClassifyFailure(err error) source.FailureKind {
	return source.Classify(err)
}

// ParseRecord converts a scored item into a dated observation.
func (c *Client) ParseRecord(rec models.Record) (models.Date, float64, error) {
	day, err := utils.ParseDayStamp(rec.Stamp)
	if err != nil {
		return models.Date{}, 0, fmt.Errorf("rss stamp %q: %w", rec.Stamp, err)
	}
	score, err := strconv.ParseFloat(rec.Value, 64)
	if err != nil {
		return models.Date{}, 0, fmt.Errorf("rss score %q: %w", rec.Value, err)
	}
	return day, score, nil
}
