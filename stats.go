package stripclust

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/stat"
)

// Summary describes the accepted clusters of a pass.
type Summary struct {
	Candidates int
	Accepted   int

	MeanCharge   float64
	StdDevCharge float64
	MeanWidth    float64
	StdDevWidth  float64
}

// Summarize computes cluster statistics for res. Means and deviations are
// zero when nothing was accepted; deviations are zero for a single cluster.
func Summarize(res *Result) Summary {
	acc := res.Accepted()
	s := Summary{Candidates: res.NSeeds(), Accepted: len(acc)}
	if len(acc) == 0 {
		return s
	}

	charge := make([]float64, len(acc))
	width := make([]float64, len(acc))
	for i, c := range acc {
		charge[i] = float64(c.Charge)
		width[i] = float64(c.Width())
	}
	s.MeanCharge, s.StdDevCharge = meanStdDev(charge)
	s.MeanWidth, s.StdDevWidth = meanStdDev(width)
	return s
}

func meanStdDev(x []float64) (mean, std float64) {
	if len(x) == 1 {
		return x[0], 0
	}
	return stat.MeanStdDev(x, nil)
}

// Write prints the summary in one line.
func (s Summary) Write(w io.Writer) error {
	_, err := fmt.Fprintf(w, " clusters %d accepted %d charge %.2f±%.2f width %.2f±%.2f\n",
		s.Candidates, s.Accepted, s.MeanCharge, s.StdDevCharge, s.MeanWidth, s.StdDevWidth)
	return err
}
