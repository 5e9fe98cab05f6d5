package photontrace

import (
	"bufio"
	"fmt"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// WriteFluenceReport writes both spec.md §6's plain-text fluences.txt dump
// (radial bin center, normalized fluence) and a companion log-scale line
// chart, fluence.png, grounded on banshee-data-velocity.report's
// gridplotter.go (plot.New/plotter.NewLine/vg.Inch Save idiom), adapted
// from a multi-series time plot to a single-series radial fluence curve.
func WriteFluenceReport(m *Medium, textPath, chartPath string, totalPhotons int) error {
	cplanar := m.Cplanar()
	dr := m.RadialBinSize()
	muA := m.TopLayerAbsorption()

	pts := make(plotter.XYs, 0, len(cplanar))

	f, err := os.Create(textPath)
	if err != nil {
		return fmt.Errorf("photontrace: creating fluence text report: %w", err)
	}
	w := bufio.NewWriter(f)
	for i, deposited := range cplanar {
		r := (Real(i) + 0.5) * dr
		fluence := deposited / (Real(totalPhotons) * dr * muA)
		fmt.Fprintf(w, "%.5f %.3e\n", r, fluence)
		pts = append(pts, plotter.XY{X: r, Y: fluence})
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("photontrace: writing fluence text report: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("photontrace: closing fluence text report: %w", err)
	}

	if chartPath == "" {
		return nil
	}

	p := plot.New()
	p.Title.Text = "Radial planar fluence"
	p.X.Label.Text = "r (cm)"
	p.Y.Label.Text = "fluence (normalized)"
	p.Y.Scale = plot.LogScale{}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("photontrace: building fluence chart line: %w", err)
	}
	line.Width = vg.Points(1.5)
	p.Add(line)

	if err := p.Save(10*vg.Inch, 6*vg.Inch, chartPath); err != nil {
		return fmt.Errorf("photontrace: saving fluence chart: %w", err)
	}
	return nil
}
