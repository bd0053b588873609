package study

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/avelek/newspulse/internal/cache"
	"github.com/avelek/newspulse/internal/config"
	"github.com/avelek/newspulse/internal/pipeline"
	"github.com/avelek/newspulse/pkg/models"
)

// docServer fakes the DOC tone timeline endpoint: one tone point per day
// listed in tones, an empty timeline for any other day.
func docServer(t *testing.T, tones map[string]float64, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if q := r.URL.Query().Get("query"); !strings.Contains(q, "acme") {
			t.Errorf("query %q does not carry the keyword", q)
		}
		start := r.URL.Query().Get("startdatetime")
		if len(start) < 8 {
			http.Error(w, "bad startdatetime", http.StatusBadRequest)
			return
		}
		day := start[:8]

		type point struct {
			Date  string  `json:"date"`
			Value float64 `json:"value"`
		}
		data := []point{}
		if tone, ok := tones[day]; ok {
			data = append(data, point{Date: day + "T120000Z", Value: tone})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"timeline": []map[string]any{{"series": "Average Tone", "data": data}},
		})
	}))
}

// chartServer fakes the v8 chart endpoint with one bar per listed day.
func chartServer(t *testing.T, days []string, closes []float64, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/ACME" {
			t.Errorf("unexpected chart path %s", r.URL.Path)
		}
		ts := make([]int64, len(days))
		for i, d := range days {
			ts[i] = models.MustParseDate(d).Time().Add(12 * time.Hour).Unix()
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"chart": map[string]any{
				"result": []map[string]any{{
					"meta":      map[string]any{"symbol": "ACME", "currency": "USD"},
					"timestamp": ts,
					"indicators": map[string]any{
						"quote":    []map[string]any{{"close": closes}},
						"adjclose": []map[string]any{{"adjclose": closes}},
					},
				}},
				"error": nil,
			},
		})
	}))
}

func testConfig(t *testing.T, sentiURL, priceURL string) *config.Config {
	t.Helper()
	return &config.Config{
		Study: config.StudyConfig{
			Keyword: "acme", Country: "US", Ticker: "ACME",
			Start: "2024-01-01", End: "2024-01-05",
		},
		Sentiment: config.SentimentConfig{
			Variant: "doc", ChunkDays: 1, Reducer: "mean",
			RateLimit: 600, BaseURL: sentiURL,
		},
		Price: config.PriceConfig{
			Interval: "1d", ChunkDays: 365, RateLimit: 600, BaseURL: priceURL,
		},
		Fetch: config.FetchConfig{
			Concurrency: 4, MaxRetries: 0, TimeoutSec: 5,
			BackoffBaseMS: 1, BackoffMaxMS: 2,
		},
		Cache:   config.CacheConfig{Backend: "memory"},
		Align:   config.AlignConfig{MaxLag: 2},
		Output:  config.OutputConfig{Dir: t.TempDir()},
		Logging: config.LoggingConfig{Level: "info"},
	}
}

// Five calendar days; 2024-01-03 has no articles and no trading.
var (
	testTones = map[string]float64{
		"20240101": 1.5,
		"20240102": -2.25,
		"20240104": 0.75,
		"20240105": 3,
	}
	testBarDays = []string{"2024-01-01", "2024-01-02", "2024-01-04", "2024-01-05"}
	testCloses  = []float64{100, 102, 101, 104}
)

func TestStudyRunEndToEnd(t *testing.T) {
	var sentiCalls, priceCalls atomic.Int64
	senti := docServer(t, testTones, &sentiCalls)
	defer senti.Close()
	price := chartServer(t, testBarDays, testCloses, &priceCalls)
	defer price.Close()

	cfg := testConfig(t, senti.URL, price.URL)
	st, err := New(cfg, cache.NewMemStore(), zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	res, err := st.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	// One row per calendar day of the window.
	if len(res.Rows) != 5 {
		t.Fatalf("expected 5 aligned rows, got %d", len(res.Rows))
	}

	row2 := res.Rows[1] // 2024-01-02
	if !row2.Sentiment.Present || row2.Sentiment.Value != -2.25 {
		t.Errorf("2024-01-02 sentiment: got %+v, want -2.25", row2.Sentiment)
	}
	if !row2.PriceChange.Present || row2.PriceChange.Value != 2 {
		t.Errorf("2024-01-02 price change: got %+v, want 2", row2.PriceChange)
	}

	row3 := res.Rows[2] // 2024-01-03: no articles, no trading
	if row3.Sentiment.Present || row3.Close.Present || row3.PriceChange.Present {
		t.Errorf("2024-01-03 should be fully absent, got %+v", row3)
	}

	row4 := res.Rows[3] // 2024-01-04: change bridges the 01-03 gap
	if !row4.PriceChange.Present || row4.PriceChange.Value != -1 {
		t.Errorf("2024-01-04 price change: got %+v, want -1 (101 after 102)", row4.PriceChange)
	}
	if len(row4.SentimentLags) != 2 {
		t.Fatalf("expected 2 lag columns, got %d", len(row4.SentimentLags))
	}
	if row4.SentimentLags[0].Present {
		t.Errorf("lag 1 on 2024-01-04 should inherit the 01-03 gap")
	}
	if !row4.SentimentLags[1].Present || row4.SentimentLags[1].Value != -2.25 {
		t.Errorf("lag 2 on 2024-01-04: got %+v, want -2.25", row4.SentimentLags[1])
	}

	// Pairwise-complete sample sizes: 4 close days, 3 change days.
	if res.Stats.Close.N != 4 {
		t.Errorf("close correlation N: got %d, want 4", res.Stats.Close.N)
	}
	if res.Stats.Change.N != 3 {
		t.Errorf("change correlation N: got %d, want 3", res.Stats.Change.N)
	}
	if !res.Stats.Close.Pearson.Present {
		t.Error("close correlation should be computable")
	}
	if res.Stats.BestLag == nil || res.Stats.BestLag.Lag != 0 {
		t.Errorf("best lag: got %+v, want lag 0 (the lead pairs are too sparse)", res.Stats.BestLag)
	}

	// Exactly one network call per chunk: five daily sentiment chunks,
	// one year-sized price chunk.
	if got := sentiCalls.Load(); got != 5 {
		t.Errorf("sentiment calls: got %d, want 5", got)
	}
	if got := priceCalls.Load(); got != 1 {
		t.Errorf("price calls: got %d, want 1", got)
	}

	if res.Manifest.RunID == "" {
		t.Error("manifest should carry a run id")
	}
	if len(res.Manifest.Outcomes) != 6 {
		t.Errorf("manifest outcomes: got %d, want 6", len(res.Manifest.Outcomes))
	}
	if res.Manifest.CacheHits() != 0 {
		t.Errorf("first run cache hits: got %d, want 0", res.Manifest.CacheHits())
	}
	if len(res.Manifest.Gaps) != 2 {
		t.Fatalf("manifest gaps: got %+v, want one per source for 01-03", res.Manifest.Gaps)
	}
	for _, gap := range res.Manifest.Gaps {
		if gap.From.String() != "2024-01-03" || gap.To.String() != "2024-01-03" {
			t.Errorf("gap span: got %s..%s, want 2024-01-03 only", gap.From, gap.To)
		}
		if gap.Reason != "no data from source" {
			t.Errorf("gap reason: got %q", gap.Reason)
		}
	}

	for _, path := range []string{
		res.Artifacts.AlignedCSV,
		res.Artifacts.ResultsJSON,
		res.Artifacts.ManifestJSON,
		res.Artifacts.HTML,
	} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("artifact %s not written: %v", path, err)
		}
	}
}

func TestStudySecondRunServedFromCache(t *testing.T) {
	var sentiCalls, priceCalls atomic.Int64
	senti := docServer(t, testTones, &sentiCalls)
	defer senti.Close()
	price := chartServer(t, testBarDays, testCloses, &priceCalls)
	defer price.Close()

	cfg := testConfig(t, senti.URL, price.URL)
	st, err := New(cfg, cache.NewMemStore(), zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	first, err := st.Run(context.Background())
	if err != nil {
		t.Fatalf("first Run() error: %v", err)
	}
	second, err := st.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run() error: %v", err)
	}

	// The empty 01-03 sentiment chunk counts too: all six entries must
	// come back from the cache without touching the network again.
	if got := sentiCalls.Load(); got != 5 {
		t.Errorf("sentiment calls after two runs: got %d, want 5", got)
	}
	if got := priceCalls.Load(); got != 1 {
		t.Errorf("price calls after two runs: got %d, want 1", got)
	}
	if second.Manifest.CacheHits() != 6 {
		t.Errorf("second run cache hits: got %d, want 6", second.Manifest.CacheHits())
	}

	if len(first.Rows) != len(second.Rows) {
		t.Fatalf("row counts differ between runs: %d vs %d", len(first.Rows), len(second.Rows))
	}
	for i := range first.Rows {
		if first.Rows[i].Date != second.Rows[i].Date ||
			first.Rows[i].Sentiment != second.Rows[i].Sentiment ||
			first.Rows[i].Close != second.Rows[i].Close {
			t.Errorf("row %d differs between cold and warm runs", i)
		}
	}
}

func TestStudyFetchPrewarmsOneSource(t *testing.T) {
	var sentiCalls, priceCalls atomic.Int64
	senti := docServer(t, testTones, &sentiCalls)
	defer senti.Close()
	price := chartServer(t, testBarDays, testCloses, &priceCalls)
	defer price.Close()

	cfg := testConfig(t, senti.URL, price.URL)
	st, err := New(cfg, cache.NewMemStore(), zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	manifest, err := st.Fetch(context.Background(), models.KindSentiment)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if len(manifest.Outcomes) != 5 {
		t.Errorf("prewarm outcomes: got %d, want 5", len(manifest.Outcomes))
	}
	if priceCalls.Load() != 0 {
		t.Errorf("prewarming sentiment should not touch the price source")
	}

	res, err := st.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if got := sentiCalls.Load(); got != 5 {
		t.Errorf("sentiment calls after prewarm + run: got %d, want 5", got)
	}
	if res.Manifest.CacheHits() != 5 {
		t.Errorf("run after prewarm cache hits: got %d, want 5", res.Manifest.CacheHits())
	}
}

func TestStudyRunAbsorbsFailedChunks(t *testing.T) {
	var sentiCalls, priceCalls atomic.Int64
	senti := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sentiCalls.Add(1)
		day := r.URL.Query().Get("startdatetime")[:8]
		if day == "20240103" {
			http.Error(w, "upstream exploded", http.StatusInternalServerError)
			return
		}
		tone := testTones[day]
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"timeline": []map[string]any{{
				"series": "Average Tone",
				"data":   []map[string]any{{"date": day + "T120000Z", "value": tone}},
			}},
		})
	}))
	defer senti.Close()
	price := chartServer(t, []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05"},
		[]float64{100, 102, 103, 101, 104}, &priceCalls)
	defer price.Close()

	cfg := testConfig(t, senti.URL, price.URL)
	st, err := New(cfg, cache.NewMemStore(), zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	res, err := st.Run(context.Background())
	if err != nil {
		t.Fatalf("a failed chunk must degrade to a gap, not abort the run: %v", err)
	}

	failed := res.Manifest.FailedChunks()
	if len(failed) != 1 {
		t.Fatalf("failed chunks: got %d, want 1", len(failed))
	}
	if failed[0].Status != models.StatusFailed || failed[0].Err == "" {
		t.Errorf("failed outcome not recorded: %+v", failed[0])
	}

	var sentiGaps []models.GapSpan
	for _, gap := range res.Manifest.Gaps {
		if gap.Source == models.KindSentiment {
			sentiGaps = append(sentiGaps, gap)
		}
	}
	if len(sentiGaps) != 1 || sentiGaps[0].Reason != "chunk fetch failed" {
		t.Errorf("sentiment gaps: got %+v, want one failed-fetch span", sentiGaps)
	}

	row3 := res.Rows[2]
	if row3.Sentiment.Present {
		t.Error("2024-01-03 sentiment should be absent after the failed fetch")
	}
	if !row3.Close.Present || row3.Close.Value != 103 {
		t.Errorf("2024-01-03 close should still be present: %+v", row3.Close)
	}
}

func TestStudyRunAbortsOnIntegrityError(t *testing.T) {
	var calls atomic.Int64
	senti := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"timeline": []map[string]any{{
				"series": "Average Tone",
				"data":   []map[string]any{{"date": "not a timestamp", "value": 1.0}},
			}},
		})
	}))
	defer senti.Close()
	price := chartServer(t, testBarDays, testCloses, &calls)
	defer price.Close()

	cfg := testConfig(t, senti.URL, price.URL)
	st, err := New(cfg, cache.NewMemStore(), zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	_, err = st.Run(context.Background())
	if err == nil {
		t.Fatal("an unparseable record must abort the run")
	}
	var ierr *pipeline.IntegrityError
	if !errors.As(err, &ierr) {
		t.Fatalf("expected an integrity error, got %v", err)
	}
	if ierr.Source != "gdelt-doc" {
		t.Errorf("integrity error source: got %q, want %q", ierr.Source, "gdelt-doc")
	}
}

func TestNewRejectsUnknownVariant(t *testing.T) {
	cfg := testConfig(t, "http://localhost", "http://localhost")
	cfg.Sentiment.Variant = "telepathy"
	if _, err := New(cfg, cache.NewMemStore(), zerolog.Nop()); err == nil {
		t.Error("New() should reject an unknown sentiment variant")
	}
}

func TestNamespaceKeepsStudiesApart(t *testing.T) {
	cfgA := testConfig(t, "http://localhost", "http://localhost")
	cfgB := testConfig(t, "http://localhost", "http://localhost")
	cfgB.Study.Keyword = "zenith"
	cfgB.Study.Ticker = "ZEN"

	a, err := New(cfgA, cache.NewMemStore(), zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	b, err := New(cfgB, cache.NewMemStore(), zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if a.namespace(a.sentiment) == b.namespace(b.sentiment) {
		t.Error("different keywords must produce different sentiment namespaces")
	}
	if a.namespace(a.price) == b.namespace(b.price) {
		t.Error("different tickers must produce different price namespaces")
	}
	if !strings.Contains(a.namespace(a.sentiment), "acme") {
		t.Errorf("sentiment namespace %q should carry the keyword", a.namespace(a.sentiment))
	}
}
