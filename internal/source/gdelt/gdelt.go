// Package gdelt implements the news-sentiment source clients backed by the
// GDELT project. Two variants exist: GKGClient pulls the daily Global
// Knowledge Graph export files and keeps the composite tone string per
// matching row, DocClient queries the DOC 2.0 API's tone timeline. Both
// satisfy the source capability interface, so the pipeline does not care
// which one a study runs with.
package gdelt

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/avelek/newspulse/internal/infra"
	"github.com/avelek/newspulse/internal/source"
)

// DefaultToneField is the index of the component read out of the composite
// tone string when the config does not pick one.
const DefaultToneField = 2

// Config controls both client variants.
type Config struct {
	Keyword    string        // case-insensitive topic filter, e.g. "trump"
	Country    string        // optional source-country filter for the DOC API, e.g. "US"
	ToneField  int           // component index into the composite tone string
	BaseURL    string        // endpoint override, used by tests
	RateLimit  int           // requests allowed per RateWindow
	RateWindow time.Duration // rate limit window
}

// fetchJSON performs a GET request and decodes the response into dest.
func fetchJSON(ctx context.Context, url string, dest any) error {
	data, _, err := infra.DoGet(ctx, url, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("%w: %v", source.ErrBadPayload, err)
	}
	return nil
}

// toneComponent pulls one numeric component out of the composite tone
// string ("tone,positive,negative,polarity,...").
func toneComponent(composite string, idx int) (float64, error) {
	parts := strings.Split(composite, ",")
	if idx < 0 || idx >= len(parts) {
		return 0, fmt.Errorf("tone string %q has no component %d", composite, idx)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(parts[idx]), 64)
	if err != nil {
		return 0, fmt.Errorf("tone component %d of %q: %w", idx, composite, err)
	}
	return v, nil
}
