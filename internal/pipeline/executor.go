package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/avelek/newspulse/internal/cache"
	"github.com/avelek/newspulse/internal/infra"
	"github.com/avelek/newspulse/internal/source"
	"github.com/avelek/newspulse/pkg/models"
)

// Fetched pairs one chunk's outcome with the records it yielded.
type Fetched struct {
	Outcome models.ChunkOutcome
	Result  models.RawResult
}

// ExecutorConfig controls the fetch side of a run.
type ExecutorConfig struct {
	// Namespace scopes cache keys so studies with different filters
	// never read each other's entries.
	Namespace   string
	Concurrency int
	MaxRetries  int
	// Timeout bounds a single fetch attempt, not the whole chunk.
	Timeout     time.Duration
	BackoffBase time.Duration
	BackoffMax  time.Duration
	Logger      zerolog.Logger
}

// Executor drains a chunk plan against one source, consulting the cache
// before touching the network. Chunk failures are recorded in the
// outcome, never raised; a run always produces one result per chunk.
type Executor struct {
	src   source.Source
	store cache.Store
	cfg   ExecutorConfig
	sleep func(context.Context, time.Duration) error
}

// NewExecutor creates an executor for one source.
func NewExecutor(src source.Source, store cache.Store, cfg ExecutorConfig) *Executor {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 500 * time.Millisecond
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = 30 * time.Second
	}
	return &Executor{src: src, store: store, cfg: cfg, sleep: sleepCtx}
}

// Run executes the plan and returns one entry per chunk, in plan order.
// When the context is cancelled, chunks not yet started come back
// SKIPPED rather than blocking the shutdown.
func (e *Executor) Run(ctx context.Context, chunks []models.Chunk) []Fetched {
	results := make([]Fetched, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)

	for i, chunk := range chunks {
		g.Go(func() error {
			results[i] = e.fetchOne(gctx, chunk)
			return nil // failures live in the outcome
		})
	}

	_ = g.Wait()
	return results
}

// fetchOne resolves a single chunk: cache first, then up to
// MaxRetries+1 fetch attempts with capped exponential backoff between
// them.
func (e *Executor) fetchOne(ctx context.Context, chunk models.Chunk) Fetched {
	log := e.cfg.Logger.With().
		Str("source", e.src.Name()).
		Str("chunk", chunk.Key()).
		Logger()

	outcome := models.ChunkOutcome{Chunk: chunk}

	select {
	case <-ctx.Done():
		outcome.Status = models.StatusSkipped
		outcome.Err = ctx.Err().Error()
		return Fetched{Outcome: outcome}
	default:
	}

	key := cache.Key(e.cfg.Namespace, chunk)
	if entry, ok, err := e.store.Get(ctx, key); err != nil {
		log.Warn().Err(err).Msg("cache read failed, fetching instead")
	} else if ok {
		outcome.Status = entry.Result.Status
		outcome.CacheHit = true
		log.Debug().Str("status", string(entry.Result.Status)).Msg("cache hit")
		return Fetched{Outcome: outcome, Result: entry.Result}
	}

	var lastErr error
	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := infra.Backoff(e.cfg.BackoffBase, e.cfg.BackoffMax, attempt-1)
			log.Debug().Dur("delay", delay).Int("attempt", attempt+1).Msg("retrying after backoff")
			if err := e.sleep(ctx, delay); err != nil {
				outcome.Status = models.StatusSkipped
				outcome.Err = err.Error()
				return Fetched{Outcome: outcome}
			}
		}
		outcome.Attempts = attempt + 1

		result, err := e.fetchAttempt(ctx, chunk)
		if err == nil {
			outcome.Status = result.Status
			e.put(ctx, key, chunk, result, log)
			log.Info().
				Str("status", string(result.Status)).
				Int("records", len(result.Records)).
				Msg("chunk fetched")
			return Fetched{Outcome: outcome, Result: result}
		}
		lastErr = err

		if ctx.Err() != nil {
			// The run was cancelled, not the source misbehaving.
			outcome.Status = models.StatusSkipped
			outcome.Err = ctx.Err().Error()
			return Fetched{Outcome: outcome}
		}
		if e.src.ClassifyFailure(err) == source.FailurePermanent {
			log.Error().Err(err).Msg("permanent failure, not retrying")
			break
		}
		log.Warn().Err(err).Int("attempt", attempt+1).Msg("transient failure")
	}

	outcome.Status = models.StatusFailed
	outcome.Err = lastErr.Error()
	log.Error().Err(lastErr).Int("attempts", outcome.Attempts).Msg("chunk failed")
	return Fetched{
		Outcome: outcome,
		Result:  models.RawResult{Status: models.StatusFailed, Reason: lastErr.Error()},
	}
}

// fetchAttempt runs one fetch under the per-attempt timeout.
func (e *Executor) fetchAttempt(ctx context.Context, chunk models.Chunk) (models.RawResult, error) {
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}
	return e.src.Fetch(ctx, chunk)
}

// put persists a terminal result. Failed results never reach here, so a
// later run retries them instead of replaying the failure.
func (e *Executor) put(ctx context.Context, key string, chunk models.Chunk, result models.RawResult, log zerolog.Logger) {
	entry := cache.Entry{Chunk: chunk, Result: result, FetchedAt: time.Now().UTC()}
	if err := e.store.Put(ctx, key, entry); err != nil {
		log.Warn().Err(err).Msg("cache write failed")
	}
}

// sleepCtx sleeps for d unless the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
