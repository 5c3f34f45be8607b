// Package report renders offline PNG plots of joint angle series, used by the
// replay tool and ad-hoc session review.
package report

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ptpal-data/ptpal/internal/posedb"
)

// Series is one joint's angle trace across frames. NaN marks frames where the
// joint was not measurable; those points are skipped, leaving a gap.
type Series struct {
	Name   string
	Values []float64
}

// SeriesFromRecords converts stored angle records into plottable series, one
// per joint, in a fixed display order.
func SeriesFromRecords(records []posedb.AngleRecord) []Series {
	joints := []struct {
		name string
		get  func(posedb.AngleRecord) *float64
	}{
		{"shoulder_left", func(r posedb.AngleRecord) *float64 { return r.ShoulderLeft }},
		{"shoulder_right", func(r posedb.AngleRecord) *float64 { return r.ShoulderRight }},
		{"elbow_left", func(r posedb.AngleRecord) *float64 { return r.ElbowLeft }},
		{"elbow_right", func(r posedb.AngleRecord) *float64 { return r.ElbowRight }},
		{"hip_left", func(r posedb.AngleRecord) *float64 { return r.HipLeft }},
		{"hip_right", func(r posedb.AngleRecord) *float64 { return r.HipRight }},
		{"knee_left", func(r posedb.AngleRecord) *float64 { return r.KneeLeft }},
		{"knee_right", func(r posedb.AngleRecord) *float64 { return r.KneeRight }},
	}

	out := make([]Series, 0, len(joints))
	for _, j := range joints {
		values := make([]float64, len(records))
		for i, rec := range records {
			if v := j.get(rec); v != nil {
				values[i] = *v
			} else {
				values[i] = math.NaN()
			}
		}
		out = append(out, Series{Name: j.name, Values: values})
	}
	return out
}

// SaveAnglePlot writes a PNG line plot of the series to outPath. Series with
// no measurable frames are dropped from the legend rather than drawn empty.
func SaveAnglePlot(title string, series []Series, outPath string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Angle (deg)"
	p.Y.Min = 0
	p.Y.Max = 180

	colors := generateColors(len(series))

	drawn := 0
	for i, s := range series {
		pts := make(plotter.XYs, 0, len(s.Values))
		for frame, v := range s.Values {
			if math.IsNaN(v) {
				continue
			}
			pts = append(pts, plotter.XY{X: float64(frame), Y: v})
		}
		if len(pts) == 0 {
			continue
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("series %s: %w", s.Name, err)
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(s.Name, line)
		drawn++
	}
	if drawn == 0 {
		return fmt.Errorf("no measurable angles to plot")
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output dir: %w", err)
		}
	}
	if err := p.Save(14*vg.Inch, 6*vg.Inch, outPath); err != nil {
		return fmt.Errorf("save angle plot: %w", err)
	}
	return nil
}

// FormatTimestamp generates a timestamp string for output file naming.
func FormatTimestamp(t time.Time) string {
	return t.Format("20060102_150405")
}

// generateColors creates a palette of distinct colors for the joint lines.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range).
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64

	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}

	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
