package study

import (
	"fmt"
	"strings"
	"time"

	"github.com/avelek/newspulse/internal/config"
	"github.com/avelek/newspulse/internal/source"
	"github.com/avelek/newspulse/internal/source/gdelt"
	"github.com/avelek/newspulse/internal/source/rss"
	"github.com/avelek/newspulse/internal/source/yahoo"
	"github.com/avelek/newspulse/pkg/models"
	"github.com/avelek/newspulse/pkg/utils"
)

// newSentimentSource builds the configured sentiment source variant.
func newSentimentSource(cfg *config.Config) (source.Source, error) {
	gcfg := gdelt.Config{
		Keyword:    cfg.Study.Keyword,
		Country:    cfg.Study.Country,
		ToneField:  cfg.Sentiment.ToneField,
		BaseURL:    cfg.Sentiment.BaseURL,
		RateLimit:  cfg.Sentiment.RateLimit,
		RateWindow: time.Minute,
	}

	variant := strings.TrimPrefix(strings.ToLower(cfg.Sentiment.Variant), "gdelt-")
	switch variant {
	case "doc", "":
		return gdelt.NewDoc(gcfg), nil
	case "gkg":
		return gdelt.NewGKG(gcfg), nil
	case "rss":
		feeds := make([]rss.Feed, 0, len(cfg.Sentiment.Feeds))
		for _, u := range cfg.Sentiment.Feeds {
			feeds = append(feeds, rss.Feed{Name: u, URL: u})
		}
		return rss.New(rss.Config{
			Keyword:    cfg.Study.Keyword,
			Feeds:      feeds,
			RateLimit:  cfg.Sentiment.RateLimit,
			RateWindow: time.Minute,
		}), nil
	}
	return nil, fmt.Errorf("unknown sentiment variant %q", cfg.Sentiment.Variant)
}

// newPriceSource builds the daily price source.
func newPriceSource(cfg *config.Config) source.Source {
	return yahoo.New(yahoo.Config{
		Ticker:     cfg.Study.Ticker,
		Interval:   cfg.Price.Interval,
		BaseURL:    cfg.Price.BaseURL,
		RateLimit:  cfg.Price.RateLimit,
		RateWindow: time.Minute,
	})
}

// namespace scopes cache keys by source and filter, so studies with
// different keywords or tickers never reuse each other's entries.
func (s *Study) namespace(src source.Source) string {
	if src.Kind() == models.KindPrice {
		return fmt.Sprintf("%s/%s-%s", src.Name(), utils.Slug(s.cfg.Study.Ticker), s.cfg.Price.Interval)
	}
	ns := fmt.Sprintf("%s/%s", src.Name(), utils.Slug(s.cfg.Study.Keyword))
	if s.cfg.Study.Country != "" {
		ns += "-" + utils.Slug(s.cfg.Study.Country)
	}
	return ns
}
