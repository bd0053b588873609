// Package study runs one end-to-end correlation study: plan the chunk
// fetches for both sources, execute them concurrently against the
// shared cache, normalize and align the two daily series, compute the
// statistics and write the report artifacts.
package study

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/avelek/newspulse/internal/analysis"
	"github.com/avelek/newspulse/internal/cache"
	"github.com/avelek/newspulse/internal/config"
	"github.com/avelek/newspulse/internal/pipeline"
	"github.com/avelek/newspulse/internal/report"
	"github.com/avelek/newspulse/internal/source"
	"github.com/avelek/newspulse/pkg/models"
)

// Study owns one configured run: the two sources, the shared chunk
// cache and the output settings.
type Study struct {
	cfg       *config.Config
	store     cache.Store
	sentiment source.Source
	price     source.Source
	log       zerolog.Logger
}

// Result is everything one run produced.
type Result struct {
	Rows      []models.AlignedRow
	Stats     analysis.Results
	Manifest  models.RunManifest
	Artifacts report.Artifacts
}

// New wires a study from configuration. The caller owns store and
// closes it after the run.
func New(cfg *config.Config, store cache.Store, log zerolog.Logger) (*Study, error) {
	senti, err := newSentimentSource(cfg)
	if err != nil {
		return nil, err
	}
	return &Study{
		cfg:       cfg,
		store:     store,
		sentiment: senti,
		price:     newPriceSource(cfg),
		log:       log,
	}, nil
}

// sideResult is one source's share of a run.
type sideResult struct {
	daily    []models.DailyRecord
	outcomes []models.ChunkOutcome
}

// Run executes the full study and writes the report artifacts into the
// configured output directory.
func (s *Study) Run(ctx context.Context) (*Result, error) {
	r, err := s.cfg.Study.Range()
	if err != nil {
		return nil, err
	}
	reducer, err := pipeline.ParseReducer(s.cfg.Sentiment.Reducer)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("range", r.String()).
		Str("keyword", s.cfg.Study.Keyword).
		Str("ticker", s.cfg.Study.Ticker).
		Str("sentiment_source", s.sentiment.Name()).
		Msg("study starting")

	manifest := models.RunManifest{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Range:     r,
		Keyword:   s.cfg.Study.Keyword,
		Ticker:    s.cfg.Study.Ticker,
	}

	var sentiSide, priceSide sideResult

	g, gctx := errgroup.WithContext(ctx)

	// 1. News sentiment series.
	g.Go(func() error {
		var err error
		sentiSide, err = s.runSide(gctx, s.sentiment, s.cfg.Sentiment.ChunkDays, reducer, r)
		return err
	})

	// 2. Daily price series. Always reduced with "last": with sub-daily
	// bars the final close of the day is the day's close.
	g.Go(func() error {
		var err error
		priceSide, err = s.runSide(gctx, s.price, s.cfg.Price.ChunkDays, pipeline.ReduceLast, r)
		return err
	})

	// Integrity failures abort the run; fetch failures were already
	// absorbed into chunk outcomes by the executor.
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rows, err := pipeline.Merge(sentiSide.daily, priceSide.daily)
	if err != nil {
		return nil, err
	}
	rows = pipeline.WithLags(rows, s.cfg.Align.MaxLag)

	stats := analysis.Analyze(rows, s.cfg.Align.MaxLag)

	manifest.Outcomes = append(sentiSide.outcomes, priceSide.outcomes...)
	manifest.Gaps = append(
		pipeline.Gaps(models.KindSentiment, sentiSide.daily, sentiSide.outcomes),
		pipeline.Gaps(models.KindPrice, priceSide.daily, priceSide.outcomes)...)
	manifest.FinishedAt = time.Now().UTC()

	if s.cfg.Output.PDF && !report.IsPDFSupported() {
		s.log.Warn().Msg("pdf requested but no render engine found, writing html only")
	}

	art, err := report.Write(report.Config{
		Dir:    s.cfg.Output.Dir,
		Title:  s.cfg.Output.Title,
		MaxLag: s.cfg.Align.MaxLag,
		PDF:    s.cfg.Output.PDF,
	}, rows, stats, manifest)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("run_id", manifest.RunID).
		Int("rows", len(rows)).
		Int("cache_hits", manifest.CacheHits()).
		Int("failed_chunks", len(manifest.FailedChunks())).
		Str("report", art.HTML).
		Msg("study finished")

	return &Result{Rows: rows, Stats: stats, Manifest: manifest, Artifacts: art}, nil
}

// Fetch pre-warms the cache for the selected sources without running
// the analysis. With no kinds given, both sources are fetched.
func (s *Study) Fetch(ctx context.Context, kinds ...models.SourceKind) (models.RunManifest, error) {
	r, err := s.cfg.Study.Range()
	if err != nil {
		return models.RunManifest{}, err
	}
	if len(kinds) == 0 {
		kinds = []models.SourceKind{models.KindSentiment, models.KindPrice}
	}

	manifest := models.RunManifest{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Range:     r,
		Keyword:   s.cfg.Study.Keyword,
		Ticker:    s.cfg.Study.Ticker,
	}

	for _, kind := range kinds {
		src, chunkDays := s.sentiment, s.cfg.Sentiment.ChunkDays
		if kind == models.KindPrice {
			src, chunkDays = s.price, s.cfg.Price.ChunkDays
		}

		chunks, err := pipeline.Plan(r, kind, chunkDays)
		if err != nil {
			return models.RunManifest{}, fmt.Errorf("plan %s: %w", src.Name(), err)
		}
		exec := pipeline.NewExecutor(src, s.store, s.executorConfig(src))
		for _, f := range exec.Run(ctx, chunks) {
			manifest.Outcomes = append(manifest.Outcomes, f.Outcome)
		}
	}

	manifest.FinishedAt = time.Now().UTC()
	return manifest, nil
}

// runSide plans, fetches and normalizes one source's series.
func (s *Study) runSide(ctx context.Context, src source.Source, chunkDays int, reducer pipeline.Reducer, r models.DateRange) (sideResult, error) {
	chunks, err := pipeline.Plan(r, src.Kind(), chunkDays)
	if err != nil {
		return sideResult{}, fmt.Errorf("plan %s: %w", src.Name(), err)
	}

	exec := pipeline.NewExecutor(src, s.store, s.executorConfig(src))
	fetched := exec.Run(ctx, chunks)

	outcomes := make([]models.ChunkOutcome, len(fetched))
	for i, f := range fetched {
		outcomes[i] = f.Outcome
	}

	daily, err := pipeline.Normalize(src, fetched, r, reducer)
	if err != nil {
		return sideResult{}, err
	}
	return sideResult{daily: daily, outcomes: outcomes}, nil
}

func (s *Study) executorConfig(src source.Source) pipeline.ExecutorConfig {
	f := s.cfg.Fetch
	return pipeline.ExecutorConfig{
		Namespace:   s.namespace(src),
		Concurrency: f.Concurrency,
		MaxRetries:  f.MaxRetries,
		Timeout:     time.Duration(f.TimeoutSec) * time.Second,
		BackoffBase: time.Duration(f.BackoffBaseMS) * time.Millisecond,
		BackoffMax:  time.Duration(f.BackoffMaxMS) * time.Millisecond,
		Logger:      s.log,
	}
}
