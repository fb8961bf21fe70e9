package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// PlotOptions controls PlotAngles.
type PlotOptions struct {
	Title string
	// Joints limits the plot to these names; empty plots every joint.
	Joints []string
	Width  vg.Length
	Height vg.Length
}

// PlotAngles renders each joint's angle from identity over time. The image
// format follows the file extension: png, jpg, svg, pdf, eps, tif or webp.
func (r *Recorder) PlotAngles(path string, opts PlotOptions) error {
	if r.Len() == 0 {
		return fmt.Errorf("plot %s: no samples recorded", path)
	}
	indexes, err := r.jointIndexes(opts.Joints)
	if err != nil {
		return err
	}
	if opts.Width <= 0 {
		opts.Width = 10 * vg.Inch
	}
	if opts.Height <= 0 {
		opts.Height = 6 * vg.Inch
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = "angle from rest (deg)"
	p.Y.Min = 0
	p.Y.Max = 180
	p.Add(plotter.NewGrid())

	for n, j := range indexes {
		pts := make(plotter.XYs, len(r.samples))
		for i, s := range r.samples {
			pts[i].X = s.Time
			pts[i].Y = AngleDegrees(s.Rotations[j])
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("plot joint %s: %w", r.joints[j], err)
		}
		line.Color = plotutil.Color(n)
		line.Dashes = plotutil.Dashes(n / len(plotutil.DefaultColors))
		p.Add(line)
		p.Legend.Add(r.joints[j], line)
	}
	p.Legend.Top = true

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".webp") {
		return saveWebP(p, opts.Width, opts.Height, path)
	}
	if err := p.Save(opts.Width, opts.Height, path); err != nil {
		return fmt.Errorf("save plot %s: %w", path, err)
	}
	return nil
}

// saveWebP rasterizes the plot and encodes it as lossless WebP.
func saveWebP(p *plot.Plot, width, height vg.Length, path string) error {
	canvas := vgimg.New(width, height)
	p.Draw(draw.New(canvas))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save plot %s: %w", path, err)
	}
	if err := nativewebp.Encode(f, canvas.Image(), nil); err != nil {
		f.Close()
		return fmt.Errorf("encode webp %s: %w", path, err)
	}
	return f.Close()
}

func (r *Recorder) jointIndexes(names []string) ([]int, error) {
	if len(names) == 0 {
		out := make([]int, len(r.joints))
		for i := range out {
			out[i] = i
		}
		return out, nil
	}
	lookup := make(map[string]int, len(r.joints))
	for i, name := range r.joints {
		lookup[name] = i
	}
	out := make([]int, 0, len(names))
	for _, name := range names {
		i, ok := lookup[name]
		if !ok {
			return nil, fmt.Errorf("plot: unknown joint %q", name)
		}
		out = append(out, i)
	}
	return out, nil
}
