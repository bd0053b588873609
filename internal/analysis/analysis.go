// Package analysis computes correlation and regression statistics over
// the aligned daily table. Every statistic is computed on pairwise
// complete observations only: a day enters a given statistic exactly
// when both of its inputs are present. Statistics that cannot be
// computed (too few pairs, zero variance) come out absent, never zero.
package analysis

import "github.com/avelek/newspulse/pkg/models"

// MinSamples is the smallest pair count any statistic is computed on.
const MinSamples = 3

// Correlation holds Pearson and Spearman coefficients for one pairing,
// with the two-sided p-value of the Pearson coefficient.
type Correlation struct {
	N        int           `json:"n"`
	Pearson  models.Sample `json:"pearson"`
	Spearman models.Sample `json:"spearman"`
	PValue   models.Sample `json:"p_value"`
}

// LagCorrelation is a Correlation at a day offset.
type LagCorrelation struct {
	Lag int `json:"lag"`
	Correlation
}

// Regression holds an ordinary least squares fit of price change
// against sentiment.
type Regression struct {
	N      int           `json:"n"`
	Alpha  models.Sample `json:"alpha"`
	Beta   models.Sample `json:"beta"`
	R2     models.Sample `json:"r2"`
	StdErr models.Sample `json:"std_err"`
	PValue models.Sample `json:"p_value"`
}

// Results is the full statistical output of one study run.
type Results struct {
	Close          Correlation      `json:"sentiment_vs_close"`
	Change         Correlation      `json:"sentiment_vs_change"`
	SentimentLeads []LagCorrelation `json:"sentiment_leads,omitempty"`
	PriceLeads     []LagCorrelation `json:"price_leads,omitempty"`
	Regression     Regression       `json:"regression"`
	BestLag        *LagCorrelation  `json:"best_lag,omitempty"`
}

// Analyze computes the full result set over the aligned table. Lag k
// pairs a value k rows earlier with the current row; rows are one per
// calendar day, so that is a k-day lead.
func Analyze(rows []models.AlignedRow, maxLag int) Results {
	sentiClose := collect(rows, 0, sentimentOf, closeOf)
	sentiChange := collect(rows, 0, sentimentOf, changeOf)

	res := Results{
		Close:      correlate(sentiClose),
		Change:     correlate(sentiChange),
		Regression: regress(sentiChange.x, sentiChange.y),
	}

	for k := 1; k <= maxLag; k++ {
		lead := collect(rows, k, sentimentOf, changeOf)
		res.SentimentLeads = append(res.SentimentLeads, LagCorrelation{
			Lag:         k,
			Correlation: correlate(lead),
		})
		trail := collect(rows, k, changeOf, sentimentOf)
		res.PriceLeads = append(res.PriceLeads, LagCorrelation{
			Lag:         k,
			Correlation: correlate(trail),
		})
	}

	res.BestLag = bestLag(res)
	return res
}

// pairSet is the x/y vectors of pairwise complete observations.
type pairSet struct {
	x, y []float64
}

func sentimentOf(r models.AlignedRow) models.Sample { return r.Sentiment }
func closeOf(r models.AlignedRow) models.Sample     { return r.Close }
func changeOf(r models.AlignedRow) models.Sample    { return r.PriceChange }

// collect gathers pairs (a(t-lag), b(t)) over the rows, keeping only
// days where both sides are present.
func collect(rows []models.AlignedRow, lag int, a, b func(models.AlignedRow) models.Sample) pairSet {
	var p pairSet
	for i := lag; i < len(rows); i++ {
		av := a(rows[i-lag])
		bv := b(rows[i])
		if !av.Present || !bv.Present {
			continue
		}
		p.x = append(p.x, av.Value)
		p.y = append(p.y, bv.Value)
	}
	return p
}

// correlate computes both coefficients and the Pearson p-value for one
// pair set.
func correlate(p pairSet) Correlation {
	c := Correlation{N: len(p.x)}
	c.Pearson = pearson(p.x, p.y)
	c.Spearman = spearman(p.x, p.y)
	c.PValue = pValue(c.Pearson, c.N)
	return c
}

// bestLag picks the strongest absolute Pearson correlation among the
// contemporaneous pairing and the sentiment-leading lags. Nil when
// nothing was computable.
func bestLag(res Results) *LagCorrelation {
	var best *LagCorrelation
	consider := func(lc LagCorrelation) {
		if !lc.Pearson.Present {
			return
		}
		if best == nil || abs(lc.Pearson.Value) > abs(best.Pearson.Value) {
			c := lc
			best = &c
		}
	}

	consider(LagCorrelation{Lag: 0, Correlation: res.Change})
	for _, lc := range res.SentimentLeads {
		consider(lc)
	}
	return best
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
