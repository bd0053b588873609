package rss

import (
	"math"
	"strings"
)

// ------------------------------------------------------------------
// Keyword-based headline scorer (offline, deterministic).
// Scores land in the same -1..+1 band as GDELT tone after scaling,
// which keeps the downstream daily reducer source-agnostic.
// ------------------------------------------------------------------

// positive / negative keyword dictionaries (lowercase).
var positiveWords = map[string]float64{
	"rally": 0.6, "surge": 0.7, "soar": 0.7, "upbeat": 0.5,
	"positive": 0.4, "growth": 0.4, "upgrade": 0.6, "outperform": 0.6,
	"strong": 0.4, "recovery": 0.5, "breakout": 0.6, "boost": 0.5,
	"record high": 0.7, "all-time high": 0.7, "beat": 0.5,
	"exceeds": 0.5, "expansion": 0.4, "profit": 0.3, "wins": 0.5,
	"breakthrough": 0.6, "optimism": 0.5, "gains": 0.4,
}

var negativeWords = map[string]float64{
	"crash": 0.8, "plunge": 0.7, "slump": 0.6, "tumble": 0.6,
	"negative": 0.4, "downgrade": 0.6, "underperform": 0.6,
	"weak": 0.4, "decline": 0.5, "loss": 0.4, "selloff": 0.7,
	"fall": 0.4, "correction": 0.5, "fraud": 0.8, "scandal": 0.7,
	"probe": 0.5, "investigation": 0.5, "lawsuit": 0.5, "ban": 0.5,
	"crisis": 0.7, "fears": 0.5, "warning": 0.5, "concern": 0.3,
	"layoffs": 0.6, "bankruptcy": 0.8,
}

// ScoreHeadline returns a sentiment score for a headline, from -1.0
// (very negative) to +1.0 (very positive). Headlines with no keyword
// hits score 0.
func ScoreHeadline(text string) float64 {
	lower := strings.ToLower(text)

	posScore := 0.0
	negScore := 0.0

	for word, weight := range positiveWords {
		if strings.Contains(lower, word) {
			posScore += weight
		}
	}

	for word, weight := range negativeWords {
		if strings.Contains(lower, word) {
			negScore += weight
		}
	}

	total := posScore + negScore
	if total == 0 {
		return 0
	}

	// Net score normalized to -1..+1, damped for thin evidence so a
	// single keyword cannot pin the scale.
	net := (posScore - negScore) / total
	damp := math.Min(total, 1.0)
	return net * damp
}
