package report

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/font/opentype"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"lianjia-rentals/models"
	"lianjia-rentals/utils"
)

const customTypeface = "report"

// Summary lists the PNG files written by one Render call and the views that
// could not be drawn.
type Summary struct {
	Written []string
	Failed  []string
}

// Renderer draws aggregate views as PNG charts, one file per view.
type Renderer struct {
	dir    string
	logger *utils.Logger
}

// NewRenderer prepares the output directory. When fontPath is set the font is
// registered as the default for every chart so CJK labels render; a font that
// cannot be loaded is logged and the built-in font is used instead.
func NewRenderer(dir, fontPath string, logger *utils.Logger) (*Renderer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("report: create output dir: %w", err)
	}

	if fontPath != "" {
		if err := useFont(fontPath); err != nil {
			logger.Warn("[report] Could not load font %s, using default: %v", fontPath, err)
		} else {
			logger.Info("[report] Using font %s", fontPath)
		}
	}

	return &Renderer{dir: dir, logger: logger}, nil
}

func useFont(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	face, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font: %w", err)
	}

	f := font.Font{Typeface: customTypeface}
	font.DefaultCache.Add(font.Collection{{Font: f, Face: face}})
	plot.DefaultFont = f
	plotter.DefaultFont = f
	return nil
}

// Render draws every view. A view that fails, including one that makes the
// plotting library panic, is logged and the remaining views are still drawn.
func (r *Renderer) Render(views []models.View) Summary {
	var sum Summary
	for _, v := range views {
		path, err := r.renderView(v)
		if err != nil {
			r.logger.Error("[report] Failed to render %s: %v", v.Name, err)
			sum.Failed = append(sum.Failed, v.Name)
			continue
		}
		r.logger.Debug("[report] Wrote %s", path)
		sum.Written = append(sum.Written, path)
	}

	r.logger.Info("[report] Rendered %d charts to %s (%d failed)", len(sum.Written), r.dir, len(sum.Failed))
	return sum
}

func (r *Renderer) renderView(v models.View) (path string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic while drawing: %v", rec)
		}
	}()

	p, width, height, err := buildPlot(v)
	if err != nil {
		return "", err
	}

	path = filepath.Join(r.dir, v.Name+".png")
	if err := p.Save(width, height, path); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}
	return path, nil
}

func buildPlot(v models.View) (*plot.Plot, vg.Length, vg.Length, error) {
	p := plot.New()
	p.Title.Text = v.Title
	p.X.Label.Text = v.XLabel
	p.Y.Label.Text = v.YLabel

	width, height := 12*vg.Inch, 6*vg.Inch

	var err error
	switch v.Kind {
	case models.ViewBar:
		err = addBars(p, v, false)
	case models.ViewHBar:
		err = addBars(p, v, true)
		if len(v.Labels) > 20 {
			height = 10 * vg.Inch
		}
	case models.ViewBox:
		err = addBoxes(p, v)
	case models.ViewScatter:
		err = addScatter(p, v)
	case models.ViewHeatMap:
		err = addHeatMap(p, v)
		height = 8 * vg.Inch
	default:
		err = fmt.Errorf("unknown view kind %d", v.Kind)
	}
	if err != nil {
		return nil, 0, 0, err
	}
	return p, width, height, nil
}

func barWidth(n int) vg.Length {
	return vg.Points(math.Max(4, math.Min(20, 400/float64(n))))
}

// addBars draws one bar per label. Horizontal charts list the first label at
// the top.
func addBars(p *plot.Plot, v models.View, horizontal bool) error {
	if len(v.Labels) != len(v.Values) {
		return fmt.Errorf("%d labels for %d values", len(v.Labels), len(v.Values))
	}

	labels := append([]string(nil), v.Labels...)
	values := append(plotter.Values(nil), v.Values...)
	if horizontal {
		for i, j := 0, len(labels)-1; i < j; i, j = i+1, j-1 {
			labels[i], labels[j] = labels[j], labels[i]
			values[i], values[j] = values[j], values[i]
		}
	}

	bars, err := plotter.NewBarChart(values, barWidth(len(values)))
	if err != nil {
		return err
	}
	bars.Horizontal = horizontal
	bars.Color = plotutil.Color(0)
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)

	if horizontal {
		p.NominalY(labels...)
	} else {
		p.NominalX(labels...)
	}
	return nil
}

func addBoxes(p *plot.Plot, v models.View) error {
	if len(v.Labels) != len(v.Groups) {
		return fmt.Errorf("%d labels for %d groups", len(v.Labels), len(v.Groups))
	}

	w := barWidth(len(v.Groups))
	for i, g := range v.Groups {
		box, err := plotter.NewBoxPlot(w, float64(i), plotter.Values(g))
		if err != nil {
			return fmt.Errorf("group %s: %w", v.Labels[i], err)
		}
		box.FillColor = plotutil.Color(i)
		p.Add(box)
	}
	p.NominalX(v.Labels...)
	return nil
}

func addScatter(p *plot.Plot, v models.View) error {
	for i, s := range v.Series {
		xys := make(plotter.XYs, len(s.X))
		for j := range s.X {
			xys[j].X = s.X[j]
			xys[j].Y = s.Y[j]
		}

		sc, err := plotter.NewScatter(xys)
		if err != nil {
			return fmt.Errorf("series %s: %w", s.Label, err)
		}
		sc.GlyphStyle.Color = plotutil.Color(i)
		sc.GlyphStyle.Shape = plotutil.Shape(i)
		sc.GlyphStyle.Radius = vg.Points(2)
		p.Add(sc)
		p.Legend.Add(s.Label, sc)
	}
	p.Legend.Top = true
	return nil
}

// grid adapts a view's cell matrix to plotter.GridXYZ. Columns and rows sit
// on integer coordinates so nominal axis labels line up with them.
type grid struct {
	cells [][]float64
	cols  int
}

func (g grid) Dims() (c, r int)   { return g.cols, len(g.cells) }
func (g grid) Z(c, r int) float64 { return g.cells[r][c] }
func (g grid) X(c int) float64    { return float64(c) }
func (g grid) Y(r int) float64    { return float64(r) }

func addHeatMap(p *plot.Plot, v models.View) error {
	if len(v.Cells) != len(v.RowLabels) {
		return fmt.Errorf("%d rows for %d row labels", len(v.Cells), len(v.RowLabels))
	}
	for i, row := range v.Cells {
		if len(row) != len(v.ColLabels) {
			return fmt.Errorf("row %s has %d cells, want %d", v.RowLabels[i], len(row), len(v.ColLabels))
		}
	}

	hm := plotter.NewHeatMap(grid{cells: v.Cells, cols: len(v.ColLabels)}, palette.Heat(12, 1))
	hm.NaN = plotutil.Color(7)
	p.Add(hm)
	p.NominalX(v.ColLabels...)
	p.NominalY(v.RowLabels...)
	return nil
}
