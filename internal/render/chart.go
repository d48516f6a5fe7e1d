// Package render serializes labeled value series as chart images. It is the
// image half of the presentation adapter and imposes no semantics on the
// values it draws.
package render

import (
	"fmt"
	"io"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
)

// LabeledValue is one bar in a series.
type LabeledValue struct {
	Label string
	Value float64
}

// BarPNG renders the series as a PNG bar chart. Non-finite values draw as
// zero-height bars. The y-axis tops out at 15% above the maximum value, with
// a small floor so an all-zero series still renders.
func BarPNG(w io.Writer, title string, series []LabeledValue) error {
	if len(series) == 0 {
		return fmt.Errorf("empty series")
	}

	maxVal := 0.01
	bars := make([]chart.Value, len(series))
	for i, lv := range series {
		v := lv.Value
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		if v > maxVal {
			maxVal = v
		}
		bars[i] = chart.Value{Label: lv.Label, Value: v}
	}

	c := chart.BarChart{
		Title:    title,
		Width:    800,
		Height:   500,
		BarWidth: 60,
		YAxis: chart.YAxis{
			Name: "Proportion",
			Range: &chart.ContinuousRange{
				Min: 0,
				Max: maxVal * 1.15,
			},
		},
		Bars: bars,
	}

	if err := c.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("rendering chart: %w", err)
	}
	return nil
}
