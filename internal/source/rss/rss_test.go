package rss

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/avelek/newspulse/pkg/models"
)

func feedXML(items ...string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>` +
		`<rss version="2.0"><channel><title>Test Feed</title><link>https://example.com</link>` +
		strings.Join(items, "") +
		`</channel></rss>`
}

func item(title, desc, pubDate string) string {
	s := "<item><title>" + title + "</title>"
	if desc != "" {
		s += "<description><![CDATA[" + desc + "]]></description>"
	}
	if pubDate != "" {
		s += "<pubDate>" + pubDate + "</pubDate>"
	}
	return s + "</item>"
}

func serveFeed(t *testing.T, xml string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		if _, err := w.Write([]byte(xml)); err != nil {
			t.Errorf("write feed: %v", err)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func sentimentChunk(t *testing.T, start, end string) models.Chunk {
	t.Helper()
	r, err := models.NewDateRange(models.MustParseDate(start), models.MustParseDate(end))
	if err != nil {
		t.Fatalf("range %s..%s: %v", start, end, err)
	}
	return models.Chunk{Range: r, Source: models.KindSentiment}
}

func TestFetchFiltersAndScores(t *testing.T) {
	srv := serveFeed(t, feedXML(
		item("Acme shares surge on record profit", "", "Tue, 02 Jan 2024 14:30:00 GMT"),
		item("Quarterly results announced", "<p>Acme posts <b>strong</b> growth</p>", "Wed, 03 Jan 2024 09:15:00 GMT"),
		item("Unrelated company wins award", "", "Wed, 03 Jan 2024 10:00:00 GMT"),
		item("Acme year in review", "", "Wed, 20 Dec 2023 09:00:00 GMT"),
		item("Acme update without a date", "", ""),
	))

	c := New(Config{
		Keyword: "acme",
		Feeds:   []Feed{{Name: "test", URL: srv.URL}},
	})

	res, err := c.Fetch(context.Background(), sentimentChunk(t, "2024-01-01", "2024-01-05"))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.Status != models.StatusOK {
		t.Fatalf("Status = %v", res.Status)
	}
	if len(res.Records) != 2 {
		t.Fatalf("got %d records, want 2 (in-window keyword matches): %+v", len(res.Records), res.Records)
	}

	if res.Records[0].Stamp != "20240102143000" {
		t.Errorf("record 0 stamp = %q", res.Records[0].Stamp)
	}

	// Both surviving headlines carry positive vocabulary.
	for i, rec := range res.Records {
		day, score, err := c.ParseRecord(rec)
		if err != nil {
			t.Fatalf("ParseRecord(%d): %v", i, err)
		}
		if day.IsZero() {
			t.Errorf("record %d has zero day", i)
		}
		if score <= 0 {
			t.Errorf("record %d score = %v, want positive", i, score)
		}
	}
}

func TestFetchNoMatchesIsEmpty(t *testing.T) {
	srv := serveFeed(t, feedXML(
		item("General market wrap", "", "Tue, 02 Jan 2024 14:30:00 GMT"),
	))

	c := New(Config{Keyword: "acme", Feeds: []Feed{{Name: "test", URL: srv.URL}}})
	res, err := c.Fetch(context.Background(), sentimentChunk(t, "2024-01-01", "2024-01-05"))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.Status != models.StatusEmpty {
		t.Errorf("Status = %v, want %v", res.Status, models.StatusEmpty)
	}
}

func TestFetchToleratesDeadFeed(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "feed retired", http.StatusInternalServerError)
	}))
	defer dead.Close()
	alive := serveFeed(t, feedXML(
		item("Acme stock gains on upgrade", "", "Tue, 02 Jan 2024 14:30:00 GMT"),
	))

	c := New(Config{Keyword: "acme", Feeds: []Feed{
		{Name: "dead", URL: dead.URL},
		{Name: "alive", URL: alive.URL},
	}})

	res, err := c.Fetch(context.Background(), sentimentChunk(t, "2024-01-01", "2024-01-05"))
	if err != nil {
		t.Fatalf("Fetch with one live feed: %v", err)
	}
	if len(res.Records) != 1 {
		t.Fatalf("got %d records, want 1 from the live feed", len(res.Records))
	}
}

func TestFetchAllFeedsDead(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusInternalServerError)
	}))
	defer dead.Close()

	c := New(Config{Keyword: "acme", Feeds: []Feed{{Name: "dead", URL: dead.URL}}})
	if _, err := c.Fetch(context.Background(), sentimentChunk(t, "2024-01-01", "2024-01-05")); err == nil {
		t.Fatal("Fetch succeeded with every feed failing")
	}
}

func TestParseRecordErrors(t *testing.T) {
	c := New(Config{Keyword: "acme"})
	if _, _, err := c.ParseRecord(models.Record{Stamp: "whenever", Value: "0.5"}); err == nil {
		t.Error("bad stamp parsed without error")
	}
	if _, _, err := c.ParseRecord(models.Record{Stamp: "20240102143000", Value: "bullish"}); err == nil {
		t.Error("bad score parsed without error")
	}
}

func TestNewDefaults(t *testing.T) {
	c := New(Config{Keyword: "acme"})
	if len(c.cfg.Feeds) != len(DefaultFeeds) {
		t.Errorf("feeds = %d, want the default list", len(c.cfg.Feeds))
	}
	if c.cfg.RateLimit != 2 || c.cfg.RateWindow != time.Second {
		t.Errorf("rate = %d/%v, want 2/s", c.cfg.RateLimit, c.cfg.RateWindow)
	}
	if c.Kind() != models.KindSentiment || c.Name() != "rss" {
		t.Errorf("identity = %v/%q", c.Kind(), c.Name())
	}
}

func TestScoreHeadline(t *testing.T) {
	approx := func(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

	tests := []struct {
		name string
		text string
		want float64
	}{
		{"strong positive", "Markets rally as tech stocks surge", 1.0},
		{"strong negative", "Shares plunge amid fraud investigation", -1.0},
		{"no keywords", "Company reports quarterly earnings", 0},
		{"thin evidence damped", "Record profit", 0.3},
		{"mixed leans negative", "Stock gains despite lawsuit concern", -1.0 / 3.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScoreHeadline(tt.text); !approx(got, tt.want) {
				t.Errorf("ScoreHeadline(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestScoreHeadlineBounds(t *testing.T) {
	texts := []string{
		"surge soar rally breakout upgrade outperform record high",
		"crash plunge slump fraud scandal bankruptcy crisis selloff",
		"",
	}
	for _, text := range texts {
		got := ScoreHeadline(text)
		if got < -1 || got > 1 {
			t.Errorf("ScoreHeadline(%q) = %v, outside [-1, 1]", text, got)
		}
	}
}

func TestCleanHTML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"<p>Hello <b>world</b></p>", "Hello world"},
		{"plain text stays", "plain text stays"},
		{"", ""},
		{"  <div> padded </div>  ", "padded"},
	}
	for _, tt := range tests {
		if got := CleanHTML(tt.in); got != tt.want {
			t.Errorf("CleanHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
