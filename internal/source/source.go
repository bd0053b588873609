// Package source defines the capability boundary between the fetch pipeline
// and the external data services. Each concrete source (the news-sentiment
// archive, the price API, the RSS fallback) implements Source; the planner
// and executor are written once against this interface and never inspect a
// source-specific response shape; that work belongs to ParseRecord.
package source

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/avelek/newspulse/internal/infra"
	"github.com/avelek/newspulse/pkg/models"
)

// Source is the fixed capability every external data service implements.
type Source interface {
	// Kind reports which pipeline side this source feeds.
	Kind() models.SourceKind

	// Name returns the short source name used in logs and the manifest.
	Name() string

	// Fetch retrieves the raw records for one chunk. It is network bound
	// and may fail transiently (rate limit, timeout) or permanently
	// (malformed request).
	Fetch(ctx context.Context, chunk models.Chunk) (models.RawResult, error)

	// ClassifyFailure maps a Fetch error to its retry class.
	ClassifyFailure(err error) FailureKind

	// ParseRecord converts one raw record into a calendar day and a value.
	// A failure here is a data-integrity problem, not a fetch problem.
	ParseRecord(rec models.Record) (models.Date, float64, error)
}

// FailureKind classifies a fetch error for the retry policy.
type FailureKind int

const (
	// FailureTransient covers timeouts, rate limits and server errors;
	// the executor retries these with backoff.
	FailureTransient FailureKind = iota
	// FailurePermanent covers malformed requests and undecodable payloads;
	// never retried.
	FailurePermanent
)

func (k FailureKind) String() string {
	if k == FailurePermanent {
		return "permanent"
	}
	return "transient"
}

// ErrBadPayload marks a response body the client could not decode. The
// identical request would return the same body again, so it classifies as
// permanent.
var ErrBadPayload = errors.New("undecodable response payload")

// ErrRejected marks a request the service understood and refused (unknown
// ticker, invalid filter). Permanent: retrying cannot fix the request.
var ErrRejected = errors.New("request rejected by source")

// Classify is the default failure classification shared by the HTTP-backed
// sources: HTTP 429 and 5xx transient, other HTTP statuses permanent,
// network timeouts transient, undecodable payloads permanent. Unknown
// errors default to transient so a flaky network never turns into a
// permanent gap.
func Classify(err error) FailureKind {
	var httpErr *infra.ErrHTTP
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500 {
			return FailureTransient
		}
		return FailurePermanent
	}
	if errors.Is(err, ErrBadPayload) || errors.Is(err, ErrRejected) {
		return FailurePermanent
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTransient
	}
	return FailureTransient
}

// Result wraps records as a fetch result: EMPTY when nothing matched, OK
// otherwise.
func Result(records []models.Record) models.RawResult {
	if len(records) == 0 {
		return models.RawResult{Status: models.StatusEmpty}
	}
	return models.RawResult{Status: models.StatusOK, Records: records}
}
