package criteria

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Contingency summarises a 2x2 table [[a, b], [c, d]]: odds ratio with a
// Wald interval and the common-language effect size.
type Contingency struct {
	Table     [2][2]float64 `json:"table"`
	Corrected bool          `json:"corrected"`
	OddsRatio float64       `json:"odds_ratio"`
	LogOR     float64       `json:"log_or"`
	SE        float64       `json:"se"`
	Level     float64       `json:"level"`
	CILower   float64       `json:"ci_lower"`
	CIUpper   float64       `json:"ci_upper"`
	// D is the Cohen's d equivalent of the log odds ratio.
	D    float64 `json:"d"`
	CLES float64 `json:"cles"`
}

// NewContingency computes the summary at the given confidence level. When
// any cell is zero, 0.5 is added to all four cells first (Haldane-Anscombe).
func NewContingency(table [2][2]float64, level float64) Contingency {
	c := Contingency{Table: table, Level: level}
	t := table
	if t[0][0] == 0 || t[0][1] == 0 || t[1][0] == 0 || t[1][1] == 0 {
		c.Corrected = true
		for i := range t {
			for j := range t[i] {
				t[i][j] += 0.5
			}
		}
	}
	a, b, cc, d := t[0][0], t[0][1], t[1][0], t[1][1]

	c.OddsRatio = (a * d) / (b * cc)
	c.LogOR = math.Log(c.OddsRatio)
	c.SE = math.Sqrt(1/a + 1/b + 1/cc + 1/d)
	z := distuv.UnitNormal.Quantile(1 - (1-level)/2)
	c.CILower = math.Exp(c.LogOR - z*c.SE)
	c.CIUpper = math.Exp(c.LogOR + z*c.SE)

	c.D = c.LogOR * math.Sqrt(3) / math.Pi
	c.CLES = distuv.UnitNormal.CDF(c.D / math.Sqrt2)
	return c
}
