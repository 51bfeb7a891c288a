// Package chart renders the recent-temperature bar chart.
package chart

import (
	"bytes"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/i474232898/weather-tracker/internal/weather"
)

var skyBlue = color.RGBA{R: 135, G: 206, B: 235, A: 255}

const (
	chartWidth  = 10 * vg.Inch
	chartHeight = 6 * vg.Inch
)

// TemperatureBars draws one bar per observation (city on x, temperature on
// y) in the order given and returns the PNG bytes.
func TemperatureBars(observations []weather.Observation) ([]byte, error) {
	p := plot.New()
	p.Title.Text = "Recent City Temperatures"
	p.X.Label.Text = "City"
	p.Y.Label.Text = "Temperature (°C)"

	if len(observations) > 0 {
		values := make(plotter.Values, len(observations))
		names := make([]string, len(observations))
		for i, o := range observations {
			values[i] = o.Temperature
			names[i] = o.City
		}

		bars, err := plotter.NewBarChart(values, vg.Points(30))
		if err != nil {
			return nil, fmt.Errorf("bar chart: %w", err)
		}
		bars.Color = skyBlue
		bars.LineStyle.Width = 0

		p.Add(bars)
		p.NominalX(names...)
		p.X.Tick.Label.Rotation = math.Pi / 4
	}

	w, err := p.WriterTo(chartWidth, chartHeight, "png")
	if err != nil {
		return nil, fmt.Errorf("png canvas: %w", err)
	}

	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
