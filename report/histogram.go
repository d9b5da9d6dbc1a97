// Package report renders cluster distributions of a clustering pass.
package report

import (
	"errors"
	"fmt"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/LynnColeArt/stripclust"
)

// ErrNoClusters is returned when a pass has no accepted clusters to plot.
var ErrNoClusters = errors.New("report: no accepted clusters")

// Histogram file names written by WriteHistograms.
const (
	ChargeFile = "cluster_charge.png"
	WidthFile  = "cluster_width.png"
)

const (
	chargeBins = 50
	plotWidth  = 8 * vg.Inch
	plotHeight = 5 * vg.Inch
)

// WriteHistograms saves charge and width histograms of the accepted
// clusters of res into dir and returns the written paths.
func WriteHistograms(dir string, res *stripclust.Result) ([]string, error) {
	acc := res.Accepted()
	if len(acc) == 0 {
		return nil, ErrNoClusters
	}

	charge := make(plotter.Values, len(acc))
	width := make(plotter.Values, len(acc))
	maxWidth := 1
	for i, c := range acc {
		charge[i] = float64(c.Charge)
		width[i] = float64(c.Width())
		maxWidth = max(maxWidth, c.Width())
	}

	chargePath := filepath.Join(dir, ChargeFile)
	if err := saveHist(chargePath, "Cluster charge", "charge [ADC]", charge, chargeBins); err != nil {
		return nil, fmt.Errorf("save charge histogram: %w", err)
	}
	widthPath := filepath.Join(dir, WidthFile)
	if err := saveHist(widthPath, "Cluster width", "strips", width, maxWidth); err != nil {
		return nil, fmt.Errorf("save width histogram: %w", err)
	}
	return []string{chargePath, widthPath}, nil
}

func saveHist(path, title, xlabel string, v plotter.Values, bins int) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = "clusters"

	h, err := plotter.NewHist(v, bins)
	if err != nil {
		return err
	}
	p.Add(h)
	return p.Save(plotWidth, plotHeight, path)
}
