package gdelt

import (
	"archive/zip"
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/avelek/newspulse/internal/infra"
	"github.com/avelek/newspulse/internal/source"
	"github.com/avelek/newspulse/pkg/models"
	"github.com/avelek/newspulse/pkg/utils"
)

const gkgBaseURL = "http://data.gdeltproject.org/gkg"

// Columns of the tab-separated GKG daily export.
const (
	gkgColDate = 0
	gkgColTone = 7
)

// GKGClient fetches GDELT's daily Global Knowledge Graph export files, one
// zip per calendar day. Rows are filtered by keyword and reduced to their
// date and composite tone columns; everything else in the export is
// discarded before the result ever reaches the cache.
type GKGClient struct {
	cfg     Config
	limiter *infra.RateLimiter
}

// NewGKG creates a GKG export client.
func NewGKG(cfg Config) *GKGClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = gkgBaseURL
	}
	if cfg.ToneField < 0 {
		cfg.ToneField = DefaultToneField
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 30
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = time.Minute
	}
	return &GKGClient{
		cfg:     cfg,
		limiter: infra.NewRateLimiter(cfg.RateLimit, cfg.RateWindow),
	}
}

// Kind reports the sentiment side of the pipeline.
func (c *GKGClient) Kind() models.SourceKind { return models.KindSentiment }

// Name returns the source name used in logs and the manifest.
func (c *GKGClient) Name() string { return "gdelt-gkg" }

// Fetch downloads the export file for every day of the chunk and returns
// the keyword-matching rows.
func (c *GKGClient) Fetch(ctx context.Context, chunk models.Chunk) (models.RawResult, error) {
	var records []models.Record
	for _, day := range chunk.Range.Dates() {
		if err := c.limiter.Wait(ctx); err != nil {
			return models.RawResult{}, err
		}
		recs, err := c.fetchDay(ctx, day)
		if err != nil {
			return models.RawResult{}, fmt.Errorf("gkg export %s: %w", day, err)
		}
		records = append(records, recs...)
	}
	return source.Result(records), nil
}

func (c *GKGClient) fetchDay(ctx context.Context, day models.Date) ([]models.Record, error) {
	url := fmt.Sprintf("%s/%s.gkg.csv.zip", c.cfg.BaseURL, day.Compact())
	data, _, err := infra.DoGet(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: open archive: %v", source.ErrBadPayload, err)
	}
	if len(zr.File) == 0 {
		return nil, fmt.Errorf("%w: archive has no entries", source.ErrBadPayload)
	}

	f, err := zr.File[0].Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open archive entry: %v", source.ErrBadPayload, err)
	}
	defer f.Close()

	return c.scanRows(f)
}

// scanRows filters the tab-separated export down to keyword-matching rows
// and lifts out the date and composite tone columns. Rows with too few
// columns are other record shapes in the export and are skipped.
func (c *GKGClient) scanRows(r io.Reader) ([]models.Record, error) {
	sc := bufio.NewScanner(r)
	// The SOURCEURLS column can run very long.
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)

	keyword := strings.ToLower(c.cfg.Keyword)
	var records []models.Record
	first := true
	for sc.Scan() {
		line := sc.Text()
		if first {
			first = false
			if strings.HasPrefix(line, "DATE\t") {
				continue // header row
			}
		}
		if keyword != "" && !strings.Contains(strings.ToLower(line), keyword) {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) <= gkgColTone {
			continue
		}
		records = append(records, models.Record{
			Stamp: fields[gkgColDate],
			Value: fields[gkgColTone],
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan export: %w", err)
	}
	return records, nil
}

// ClassifyFailure applies the shared HTTP classification.
func (c *GKGClient) ClassifyFailure(err error) source.FailureKind {
	return source.Classify(err)
}

// ParseRecord resolves the row date and the configured tone component.
func (c *GKGClient) ParseRecord(rec models.Record) (models.Date, float64, error) {
	day, err := utils.ParseDayStamp(rec.Stamp)
	if err != nil {
		return models.Date{}, 0, err
	}
	v, err := toneComponent(rec.Value, c.cfg.ToneField)
	if err != nil {
		return models.Date{}, 0, err
	}
	return day, v, nil
}
