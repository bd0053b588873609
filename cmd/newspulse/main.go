// newspulse: news-sentiment vs stock-price correlation studies.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/avelek/newspulse/internal/analysis"
	"github.com/avelek/newspulse/internal/cache"
	"github.com/avelek/newspulse/internal/config"
	"github.com/avelek/newspulse/internal/report"
	"github.com/avelek/newspulse/internal/schedule"
	"github.com/avelek/newspulse/internal/study"
	"github.com/avelek/newspulse/pkg/logger"
	"github.com/avelek/newspulse/pkg/models"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger
var (
	cfg *config.Config
	log zerolog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "newspulse",
	Short: "Correlate news sentiment with stock prices",
	Long: `newspulse fetches GDELT news sentiment and daily equity prices for a
keyword/ticker pair, aligns the two series on a calendar-day axis and
reports correlation, lead-lag and regression statistics.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Logging.Level = level
		}
		log = logger.New(logger.Config{Level: cfg.Logging.Level, Pretty: cfg.Logging.Pretty})
		logger.SetGlobalLogger(log)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(statusCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("newspulse %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Run Command ---

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full correlation study",
	Long: `Fetch both series over the study window, align them by calendar day,
compute the statistics and write the report artifacts.

Examples:
  newspulse run
  newspulse run --keyword tesla --ticker TSLA --days 60
  newspulse run --start 2024-01-01 --end 2024-03-31 --source gkg --pdf`,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyStudyFlags(cmd)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		st, store, err := buildStudy()
		if err != nil {
			return err
		}
		defer store.Close()

		fmt.Printf("🔍 Studying %q vs %s\n", cfg.Study.Keyword, cfg.Study.Ticker)

		res, err := st.Run(ctx)
		if err != nil {
			return err
		}
		printSummary(res)
		return nil
	},
}

func init() {
	addStudyFlags(runCmd)
}

// --- Fetch Command ---

var fetchCmd = &cobra.Command{
	Use:   "fetch [sentiment|price]",
	Short: "Fetch and cache source data without running the analysis",
	Long: `Pre-warm the chunk cache for one or both sources. A later run over the
same window is then served entirely from cache.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		applyStudyFlags(cmd)

		var kinds []models.SourceKind
		if len(args) == 1 {
			switch args[0] {
			case "sentiment":
				kinds = append(kinds, models.KindSentiment)
			case "price":
				kinds = append(kinds, models.KindPrice)
			default:
				return fmt.Errorf("unknown source %q (want sentiment or price)", args[0])
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		st, store, err := buildStudy()
		if err != nil {
			return err
		}
		defer store.Close()

		manifest, err := st.Fetch(ctx, kinds...)
		if err != nil {
			return err
		}

		failed := len(manifest.FailedChunks())
		fmt.Printf("📦 %d chunks processed (%d from cache, %d failed)\n",
			len(manifest.Outcomes), manifest.CacheHits(), failed)
		if failed > 0 {
			fmt.Println("⚠️  Failed chunks are not cached; re-run fetch to retry them.")
		}
		return nil
	},
}

func init() {
	addStudyFlags(fetchCmd)
}

// --- Cache Commands ---

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the chunk cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache backend and entry count",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := cache.Open(cfg.Cache.Backend, cfg.Cache.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := store.Len(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("💾 Cache: %s (%s)\n", cfg.Cache.Backend, cfg.Cache.Path)
		fmt.Printf("   Entries: %d\n", n)
		return nil
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete every cached chunk",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := cache.Open(cfg.Cache.Backend, cfg.Cache.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		n, _ := store.Len(context.Background())
		if err := store.Purge(context.Background()); err != nil {
			return err
		}
		fmt.Printf("🗑️  Purged %d cached chunks\n", n)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
}

// --- Watch Command ---

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run the study on a cron schedule",
	Long: `Run the study now and then again on a cron schedule, keeping the cache
and the report artifacts current as the window rolls forward.

Examples:
  newspulse watch
  newspulse watch --schedule "0 22 * * MON-FRI"
  newspulse watch --schedule "@every 6h" --keyword tesla --ticker TSLA`,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyStudyFlags(cmd)
		spec, _ := cmd.Flags().GetString("schedule")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		st, store, err := buildStudy()
		if err != nil {
			return err
		}
		defer store.Close()

		sched := schedule.New(ctx, log)
		job := studyJob{st: st}
		if err := sched.AddJob(spec, job); err != nil {
			return fmt.Errorf("bad --schedule: %w", err)
		}

		fmt.Printf("⏰ Watching %q vs %s on schedule %q (Ctrl-C to stop)\n",
			cfg.Study.Keyword, cfg.Study.Ticker, spec)
		if err := sched.RunNow(job); err != nil {
			log.Error().Err(err).Msg("initial run failed")
		}

		sched.Start()
		<-ctx.Done()
		sched.Stop()
		return nil
	},
}

func init() {
	addStudyFlags(watchCmd)
	watchCmd.Flags().String("schedule", "0 22 * * *", "cron schedule for re-runs")
}

// studyJob adapts a study to the scheduler's job contract.
type studyJob struct {
	st *study.Study
}

func (j studyJob) Name() string { return "study" }

func (j studyJob) Run(ctx context.Context) error {
	res, err := j.st.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("📈 Report updated: %s\n", res.Artifacts.HTML)
	return nil
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and cache status",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  newspulse Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:    %s (%s)\n", version, commit)
		fmt.Println()

		country := cfg.Study.Country
		if country == "" {
			country = "any"
		}
		fmt.Println("  Study:")
		fmt.Printf("    Keyword:    %q (country: %s)\n", cfg.Study.Keyword, country)
		fmt.Printf("    Ticker:     %s\n", cfg.Study.Ticker)
		if r, err := cfg.Study.Range(); err != nil {
			fmt.Printf("    Window:     invalid (%v)\n", err)
		} else {
			fmt.Printf("    Window:     %s (%d days)\n", r, r.Days())
		}
		fmt.Printf("    Sentiment:  %s (reducer: %s)\n", cfg.Sentiment.Variant, cfg.Sentiment.Reducer)
		fmt.Printf("    Price:      %s bars, max lag %dd\n", cfg.Price.Interval, cfg.Align.MaxLag)
		fmt.Println()

		fmt.Println("  Cache:")
		fmt.Printf("    Backend:    %s (%s)\n", cfg.Cache.Backend, cfg.Cache.Path)
		if store, err := cache.Open(cfg.Cache.Backend, cfg.Cache.Path); err == nil {
			if n, lerr := store.Len(context.Background()); lerr == nil {
				fmt.Printf("    Entries:    %d\n", n)
			}
			store.Close()
		}
		fmt.Println()

		fmt.Println("  Output:")
		fmt.Printf("    Directory:  %s\n", cfg.Output.Dir)
		fmt.Printf("    PDF:        %s\n", pdfStatus())
		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}

// --- Helpers ---

// buildStudy opens the configured cache backend and wires a study on it.
// The caller closes the returned store.
func buildStudy() (*study.Study, cache.Store, error) {
	store, err := cache.Open(cfg.Cache.Backend, cfg.Cache.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open cache: %w", err)
	}
	st, err := study.New(cfg, store, log)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return st, store, nil
}

// addStudyFlags registers the window/source overrides shared by run,
// fetch and watch.
func addStudyFlags(cmd *cobra.Command) {
	cmd.Flags().String("keyword", "", "news keyword to track")
	cmd.Flags().String("country", "", "source-country filter for news")
	cmd.Flags().String("ticker", "", "equity ticker to compare against")
	cmd.Flags().String("start", "", "window start date (YYYY-MM-DD)")
	cmd.Flags().String("end", "", "window end date (YYYY-MM-DD)")
	cmd.Flags().Int("days", 0, "lookback window in days ending today")
	cmd.Flags().String("source", "", "sentiment source variant (gkg, doc, rss)")
	cmd.Flags().Int("concurrency", 0, "parallel chunk fetches")
	cmd.Flags().Int("max-lag", 0, "sentiment lead days to test")
	cmd.Flags().String("out", "", "report output directory")
	cmd.Flags().Bool("pdf", false, "also export report.pdf")
}

// applyStudyFlags copies explicitly set flags over the loaded config.
func applyStudyFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	if f.Changed("keyword") {
		cfg.Study.Keyword, _ = f.GetString("keyword")
	}
	if f.Changed("country") {
		cfg.Study.Country, _ = f.GetString("country")
	}
	if f.Changed("ticker") {
		cfg.Study.Ticker, _ = f.GetString("ticker")
	}
	if f.Changed("start") {
		cfg.Study.Start, _ = f.GetString("start")
	}
	if f.Changed("end") {
		cfg.Study.End, _ = f.GetString("end")
	}
	if f.Changed("days") {
		cfg.Study.LookbackDays, _ = f.GetInt("days")
		// An explicit lookback wins over configured fixed dates.
		cfg.Study.Start, cfg.Study.End = "", ""
	}
	if f.Changed("source") {
		cfg.Sentiment.Variant, _ = f.GetString("source")
	}
	if f.Changed("concurrency") {
		cfg.Fetch.Concurrency, _ = f.GetInt("concurrency")
	}
	if f.Changed("max-lag") {
		cfg.Align.MaxLag, _ = f.GetInt("max-lag")
	}
	if f.Changed("out") {
		cfg.Output.Dir, _ = f.GetString("out")
	}
	if f.Changed("pdf") {
		cfg.Output.PDF, _ = f.GetBool("pdf")
	}
}

// printSummary renders the study result as a terminal box.
func printSummary(res *study.Result) {
	stats := res.Stats
	m := res.Manifest

	fmt.Println()
	fmt.Println("═══════════════════════════════════════")
	fmt.Printf("  %q vs %s\n", m.Keyword, m.Ticker)
	fmt.Println("═══════════════════════════════════════")
	fmt.Printf("  Window:      %s (%d days)\n", m.Range, m.Range.Days())
	fmt.Printf("  Rows:        %d aligned days\n", len(res.Rows))
	fmt.Println()
	fmt.Printf("  Sentiment vs close:   r=%s  rho=%s  (n=%d)\n",
		fmtSample(stats.Close.Pearson), fmtSample(stats.Close.Spearman), stats.Close.N)
	fmt.Printf("  Sentiment vs change:  r=%s  p=%s  (n=%d)\n",
		fmtSample(stats.Change.Pearson), fmtSample(stats.Change.PValue), stats.Change.N)
	if stats.BestLag != nil {
		fmt.Printf("  Best lead:            %s\n", describeLag(*stats.BestLag))
	}
	fmt.Printf("  Regression:           beta=%s  R2=%s\n",
		fmtSample(stats.Regression.Beta), fmtSample(stats.Regression.R2))
	fmt.Println()

	failed := len(m.FailedChunks())
	fmt.Printf("  Chunks:      %d (%d cached, %d failed)\n", len(m.Outcomes), m.CacheHits(), failed)
	if len(m.Gaps) > 0 {
		fmt.Printf("  Gaps:        %d spans (see manifest.json)\n", len(m.Gaps))
	}
	fmt.Printf("  Report:      %s\n", res.Artifacts.HTML)
	fmt.Println("═══════════════════════════════════════")
	if failed > 0 {
		fmt.Printf("⚠️  %d chunks failed; statistics cover the available days only.\n", failed)
	}
}

func describeLag(lc analysis.LagCorrelation) string {
	if lc.Lag == 0 {
		return fmt.Sprintf("same day (r=%s)", fmtSample(lc.Pearson))
	}
	return fmt.Sprintf("sentiment leads by %dd (r=%s)", lc.Lag, fmtSample(lc.Pearson))
}

func fmtSample(s models.Sample) string {
	if !s.Present {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", s.Value)
}

func pdfStatus() string {
	if !cfg.Output.PDF {
		return "off"
	}
	if report.IsPDFSupported() {
		return fmt.Sprintf("on (%s)", report.DetectPDFEngine())
	}
	return "requested, no engine installed"
}
