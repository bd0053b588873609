package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/avelek/newspulse/internal/analysis"
	"github.com/avelek/newspulse/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Artifact Writer: aligned.csv, results.json, manifest.json, report.html
// ════════════════════════════════════════════════════════════════════

// Config controls artifact generation.
type Config struct {
	Dir      string      // output directory, created if missing
	Title    string      // page title (default derived from the run)
	MaxLag   int         // lag columns in the CSV
	PDF      bool        // also export report.pdf when an engine is installed
	ChartCfg ChartConfig // chart rendering config
}

// Artifacts lists the files one run produced.
type Artifacts struct {
	AlignedCSV   string `json:"aligned_csv"`
	ResultsJSON  string `json:"results_json"`
	ManifestJSON string `json:"manifest_json"`
	HTML         string `json:"html"`
}

// Write renders every artifact into cfg.Dir and returns their paths.
func Write(cfg Config, rows []models.AlignedRow, res analysis.Results, manifest models.RunManifest) (Artifacts, error) {
	if cfg.Dir == "" {
		cfg.Dir = "."
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return Artifacts{}, fmt.Errorf("create output dir: %w", err)
	}

	art := Artifacts{
		AlignedCSV:   filepath.Join(cfg.Dir, "aligned.csv"),
		ResultsJSON:  filepath.Join(cfg.Dir, "results.json"),
		ManifestJSON: filepath.Join(cfg.Dir, "manifest.json"),
		HTML:         filepath.Join(cfg.Dir, "report.html"),
	}

	f, err := os.Create(art.AlignedCSV)
	if err != nil {
		return Artifacts{}, fmt.Errorf("create %s: %w", art.AlignedCSV, err)
	}
	if err := WriteAlignedCSV(f, rows, cfg.MaxLag); err != nil {
		f.Close()
		return Artifacts{}, fmt.Errorf("write aligned table: %w", err)
	}
	if err := f.Close(); err != nil {
		return Artifacts{}, err
	}

	if err := writeJSON(art.ResultsJSON, res); err != nil {
		return Artifacts{}, fmt.Errorf("write results: %w", err)
	}
	if err := writeJSON(art.ManifestJSON, manifest); err != nil {
		return Artifacts{}, fmt.Errorf("write manifest: %w", err)
	}

	html, err := GenerateHTML(cfg, rows, res, manifest)
	if err != nil {
		return Artifacts{}, err
	}
	if err := os.WriteFile(art.HTML, []byte(html), 0o644); err != nil {
		return Artifacts{}, fmt.Errorf("write report page: %w", err)
	}

	if cfg.PDF && IsPDFSupported() {
		if err := ExportPDF(html, filepath.Join(cfg.Dir, "report.pdf")); err != nil {
			return Artifacts{}, fmt.Errorf("export pdf: %w", err)
		}
	}

	return art, nil
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

// ════════════════════════════════════════════════════════════════════
// Report Data: flattened for template rendering
// ════════════════════════════════════════════════════════════════════

// ReportData is the template model passed to the HTML template.
type ReportData struct {
	Title       string
	Keyword     string
	Ticker      string
	RangeLabel  string
	GeneratedAt string
	RunID       string

	Rows         int
	Pairs        int
	Pearson      string
	PearsonClass string
	Spearman     string
	PValue       string
	BestLag      string

	HasFailures  bool
	FailedChunks int

	SeriesChart template.HTML
	LagChart    template.HTML

	RegN      int
	Alpha     string
	Beta      string
	R2        string
	StdErr    string
	RegPValue string

	Gaps     []GapRow
	Outcomes []OutcomeRow
}

// GapRow is a flattened gap span for template rendering.
type GapRow struct {
	Source string
	From   string
	To     string
	Reason string
}

// OutcomeRow is a flattened chunk outcome for template rendering.
type OutcomeRow struct {
	Chunk    string
	Status   string
	Attempts int
	Cache    string
	Err      string
}

// GenerateHTML renders the self-contained report page.
func GenerateHTML(cfg Config, rows []models.AlignedRow, res analysis.Results, manifest models.RunManifest) (string, error) {
	data := buildReportData(cfg, rows, res, manifest)

	tmpl, err := template.New("report").Parse(ReportTemplate)
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}
	return buf.String(), nil
}

func buildReportData(cfg Config, rows []models.AlignedRow, res analysis.Results, manifest models.RunManifest) ReportData {
	failed := manifest.FailedChunks()

	data := ReportData{
		Title:       cfg.Title,
		Keyword:     manifest.Keyword,
		Ticker:      manifest.Ticker,
		RangeLabel:  manifest.Range.String(),
		GeneratedAt: time.Now().UTC().Format("02 Jan 2006 15:04 UTC"),
		RunID:       manifest.RunID,

		Rows:         len(rows),
		Pairs:        res.Change.N,
		Pearson:      fmtSample(res.Change.Pearson, "%.4f"),
		PearsonClass: signClass(res.Change.Pearson),
		Spearman:     fmtSample(res.Change.Spearman, "%.4f"),
		PValue:       fmtSample(res.Change.PValue, "%.4g"),
		BestLag:      fmtBestLag(res.BestLag),

		HasFailures:  len(failed) > 0,
		FailedChunks: len(failed),

		SeriesChart: template.HTML(SeriesChart(rows, cfg.ChartCfg)),
		LagChart:    template.HTML(LagChart(res.Change, res.SentimentLeads, cfg.ChartCfg)),

		RegN:      res.Regression.N,
		Alpha:     fmtSample(res.Regression.Alpha, "%.5f"),
		Beta:      fmtSample(res.Regression.Beta, "%.5f"),
		R2:        fmtSample(res.Regression.R2, "%.4f"),
		StdErr:    fmtSample(res.Regression.StdErr, "%.5f"),
		RegPValue: fmtSample(res.Regression.PValue, "%.4g"),
	}

	if data.Title == "" {
		data.Title = fmt.Sprintf("%q vs %s", manifest.Keyword, manifest.Ticker)
	}

	for _, g := range manifest.Gaps {
		data.Gaps = append(data.Gaps, GapRow{
			Source: string(g.Source),
			From:   g.From.String(),
			To:     g.To.String(),
			Reason: g.Reason,
		})
	}

	for _, o := range manifest.Outcomes {
		cacheLabel := ""
		if o.CacheHit {
			cacheLabel = "hit"
		}
		data.Outcomes = append(data.Outcomes, OutcomeRow{
			Chunk:    o.Chunk.String(),
			Status:   string(o.Status),
			Attempts: o.Attempts,
			Cache:    cacheLabel,
			Err:      o.Err,
		})
	}

	return data
}

// fmtSample formats an optional statistic, "n/a" when absent.
func fmtSample(s models.Sample, format string) string {
	if !s.Present {
		return "n/a"
	}
	return fmt.Sprintf(format, s.Value)
}

func signClass(s models.Sample) string {
	switch {
	case !s.Present:
		return ""
	case s.Value > 0:
		return "positive"
	case s.Value < 0:
		return "negative"
	}
	return ""
}

func fmtBestLag(lc *analysis.LagCorrelation) string {
	if lc == nil || !lc.Pearson.Present {
		return "n/a"
	}
	return fmt.Sprintf("%dd (r=%.3f)", lc.Lag, lc.Pearson.Value)
}
