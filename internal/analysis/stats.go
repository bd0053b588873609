package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/avelek/newspulse/pkg/models"
)

// pearson returns the Pearson coefficient, absent when it is undefined
// (too few pairs, or a constant series making the variance zero).
func pearson(x, y []float64) models.Sample {
	if len(x) < MinSamples {
		return models.Sample{}
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return models.Sample{}
	}
	return models.Present(r)
}

// spearman correlates the rank transforms of both series. Ties receive
// the average of the ranks they occupy.
func spearman(x, y []float64) models.Sample {
	if len(x) < MinSamples {
		return models.Sample{}
	}
	return pearson(ranks(x), ranks(y))
}

// ranks maps values to 1-based ranks, averaging over ties.
func ranks(v []float64) []float64 {
	idx := make([]int, len(v))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return v[idx[a]] < v[idx[b]] })

	r := make([]float64, len(v))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && v[idx[j+1]] == v[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			r[idx[k]] = avg
		}
		i = j + 1
	}
	return r
}

// pValue is the two-sided p for a Pearson coefficient at sample size n,
// under the t distribution with n-2 degrees of freedom.
func pValue(r models.Sample, n int) models.Sample {
	if !r.Present || n < MinSamples {
		return models.Sample{}
	}
	den := 1 - r.Value*r.Value
	if den <= 0 {
		// |r| = 1, the fit is exact.
		return models.Present(0)
	}
	t := r.Value * math.Sqrt(float64(n-2)/den)
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 2)}
	return models.Present(2 * (1 - dist.CDF(math.Abs(t))))
}

// regress fits y = alpha + beta*x by ordinary least squares and derives
// the slope's standard error and two-sided p-value.
func regress(x, y []float64) Regression {
	reg := Regression{N: len(x)}
	if len(x) < MinSamples {
		return reg
	}

	alpha, beta := stat.LinearRegression(x, y, nil, false)
	if math.IsNaN(alpha) || math.IsNaN(beta) {
		return reg
	}
	reg.Alpha = models.Present(alpha)
	reg.Beta = models.Present(beta)

	if r2 := stat.RSquared(x, y, nil, alpha, beta); !math.IsNaN(r2) {
		reg.R2 = models.Present(r2)
	}

	n := float64(len(x))
	meanX := stat.Mean(x, nil)
	var sse, sxx float64
	for i := range x {
		resid := y[i] - (alpha + beta*x[i])
		sse += resid * resid
		dx := x[i] - meanX
		sxx += dx * dx
	}
	if sxx == 0 {
		return reg
	}

	se := math.Sqrt(sse / (n - 2) / sxx)
	reg.StdErr = models.Present(se)
	switch {
	case se > 0:
		t := beta / se
		dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: n - 2}
		reg.PValue = models.Present(2 * (1 - dist.CDF(math.Abs(t))))
	case beta != 0:
		// Exact fit with a nonzero slope.
		reg.PValue = models.Present(0)
	}
	return reg
}
