package storage

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const figureSize = 15 * vg.Centimeter

var palette = []color.Color{
	color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
	color.RGBA{R: 0x94, G: 0x67, B: 0xbd, A: 0xff},
	color.RGBA{R: 0x8c, G: 0x56, B: 0x4b, A: 0xff},
}

// SaveFigure renders the error norm and command components of tr against time
// and writes the image to path. The format follows the file extension.
func SaveFigure(tr *Trace, title, path string) error {
	if len(tr.Times) == 0 {
		return fmt.Errorf("no data to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "time (s)"
	p.Add(plotter.NewGrid())

	if err := addLine(p, "|error|", tr.Times, tr.ErrorNorms, 0); err != nil {
		return err
	}
	for i := range tr.Commands[0] {
		if err := addLine(p, fmt.Sprintf("u%d", i), tr.Times, column(tr.Commands, i), i+1); err != nil {
			return err
		}
	}

	if err := p.Save(figureSize, figureSize, path); err != nil {
		return fmt.Errorf("could not save plot: %w", err)
	}
	return nil
}

func addLine(p *plot.Plot, name string, x, y []float64, idx int) error {
	xys := make(plotter.XYs, len(x))
	for i := range x {
		xys[i].X = x[i]
		xys[i].Y = y[i]
	}
	l, err := plotter.NewLine(xys)
	if err != nil {
		return fmt.Errorf("could not create line %s: %w", name, err)
	}
	l.Color = palette[idx%len(palette)]
	p.Add(l)
	p.Legend.Add(name, l)
	return nil
}

func column(rows [][]float64, i int) []float64 {
	col := make([]float64, len(rows))
	for j, r := range rows {
		if i < len(r) {
			col[j] = r[i]
		}
	}
	return col
}
