package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// TestResult is the outcome of a contingency-table significance test.
type TestResult struct {
	Method    string // "chisq" or "fisher"
	Statistic float64
	DF        int // 0 for Fisher
	PValue    float64
	OddsRatio float64 // NaN unless Fisher
	Expected  [][]float64
	Yates     bool
}

// ChiSquareTest runs Pearson's chi-square test of independence. Tables of
// exactly 2x2 get the Yates continuity correction. Degenerate tables (a
// zero margin, or any expected count below 1) are an error; for small
// expected counts Fisher's exact test is the right tool.
func ChiSquareTest(ct *ContingencyTable) (*TestResult, error) {
	r, c := len(ct.RowLevels), len(ct.ColLevels)
	if r < 2 || c < 2 {
		return nil, fmt.Errorf("chi-square: need at least a 2x2 table, got %dx%d", r, c)
	}
	for i, total := range ct.RowTotals {
		if total == 0 {
			return nil, fmt.Errorf("chi-square: row %q has a zero margin", ct.RowLevels[i])
		}
	}
	for j, total := range ct.ColTotals {
		if total == 0 {
			return nil, fmt.Errorf("chi-square: column %q has a zero margin", ct.ColLevels[j])
		}
	}

	yates := r == 2 && c == 2
	n := float64(ct.N)
	expected := make([][]float64, r)
	statistic := 0.0
	for i := 0; i < r; i++ {
		expected[i] = make([]float64, c)
		for j := 0; j < c; j++ {
			e := float64(ct.RowTotals[i]) * float64(ct.ColTotals[j]) / n
			if e < 1 {
				return nil, fmt.Errorf(
					"chi-square: expected count %.3f for (%s, %s) is below 1; use Fisher's exact test",
					e, ct.RowLevels[i], ct.ColLevels[j])
			}
			expected[i][j] = e

			d := math.Abs(float64(ct.Counts[i][j]) - e)
			if yates {
				d = math.Max(0, d-0.5)
			}
			statistic += d * d / e
		}
	}

	df := (r - 1) * (c - 1)
	dist := distuv.ChiSquared{K: float64(df)}
	return &TestResult{
		Method:    "chisq",
		Statistic: statistic,
		DF:        df,
		PValue:    dist.Survival(statistic),
		OddsRatio: math.NaN(),
		Expected:  expected,
		Yates:     yates,
	}, nil
}

// FisherExact runs Fisher's exact test on a 2x2 table. The two-sided
// p-value sums the hypergeometric probabilities of every table with the
// same margins that is no more likely than the observed one. Non-2x2
// tables are an error; use the chi-square test for those.
func FisherExact(ct *ContingencyTable) (*TestResult, error) {
	if len(ct.RowLevels) != 2 || len(ct.ColLevels) != 2 {
		return nil, fmt.Errorf("fisher: need a 2x2 table, got %dx%d; use the chi-square test",
			len(ct.RowLevels), len(ct.ColLevels))
	}

	a := ct.Counts[0][0]
	b := ct.Counts[0][1]
	c := ct.Counts[1][0]
	d := ct.Counts[1][1]
	if ct.N == 0 {
		return nil, fmt.Errorf("fisher: empty table")
	}

	r1, c1, n := a+b, a+c, ct.N

	// Hypergeometric point probability of each table with the same margins,
	// parameterized by the top-left cell x.
	logP := func(x int) float64 {
		return logChoose(r1, x) + logChoose(n-r1, c1-x) - logChoose(n, c1)
	}

	lo := max(0, c1-(n-r1))
	hi := min(r1, c1)
	observed := logP(a)

	// Tolerance absorbs float noise when an alternate table has exactly the
	// observed probability, matching R's fisher.test.
	const relEps = 1e-7
	cutoff := observed + math.Log1p(relEps)

	p := 0.0
	for x := lo; x <= hi; x++ {
		if lp := logP(x); lp <= cutoff {
			p += math.Exp(lp)
		}
	}
	p = math.Min(p, 1)

	odds := math.NaN()
	switch {
	case b*c > 0:
		odds = float64(a*d) / float64(b*c)
	case a*d > 0:
		odds = math.Inf(1)
	}

	return &TestResult{
		Method:    "fisher",
		Statistic: math.Exp(observed),
		PValue:    p,
		OddsRatio: odds,
	}, nil
}

// logChoose is log(n choose k) via log-gamma.
func logChoose(n, k int) float64 {
	if k < 0 || k > n {
		return math.Inf(-1)
	}
	ln, _ := math.Lgamma(float64(n + 1))
	lk, _ := math.Lgamma(float64(k + 1))
	lnk, _ := math.Lgamma(float64(n - k + 1))
	return ln - lk - lnk
}
