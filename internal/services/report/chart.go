package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/rmarchal/folioval/internal/models"
)

// RenderPortfolioChart renders a PNG line chart of the portfolio history.
// Two series: Market Value (blue solid) and Invested Capital (gray dashed).
// Returns raw PNG bytes.
func RenderPortfolioChart(snapshots []models.PortfolioSnapshot) ([]byte, error) {
	if len(snapshots) < 2 {
		return nil, fmt.Errorf("need at least 2 data points, got %d", len(snapshots))
	}

	xValues := make([]time.Time, len(snapshots))
	valueY := make([]float64, len(snapshots))
	investedY := make([]float64, len(snapshots))

	for i, s := range snapshots {
		xValues[i] = s.Date
		valueY[i] = s.TotalValue
		investedY[i] = s.TotalInvested
	}

	return renderLineChart("Portfolio Value", xValues, valueY, investedY)
}

// RenderInstrumentChart renders the same value-versus-invested chart for a
// single instrument's position history.
func RenderInstrumentChart(series *models.InstrumentSeries) ([]byte, error) {
	if len(series.Positions) < 2 {
		return nil, fmt.Errorf("need at least 2 data points, got %d", len(series.Positions))
	}

	xValues := make([]time.Time, len(series.Positions))
	valueY := make([]float64, len(series.Positions))
	investedY := make([]float64, len(series.Positions))

	for i, p := range series.Positions {
		xValues[i] = p.Date
		valueY[i] = p.MarketValue
		investedY[i] = p.Invested
	}

	return renderLineChart(series.Instrument.Name, xValues, valueY, investedY)
}

func renderLineChart(title string, xValues []time.Time, valueY, investedY []float64) ([]byte, error) {
	valueSeries := chart.TimeSeries{
		Name: "Market Value",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("2563eb"), // blue-600
			StrokeWidth: 2.5,
		},
		XValues: xValues,
		YValues: valueY,
	}

	investedSeries := chart.TimeSeries{
		Name: "Invested Capital",
		Style: chart.Style{
			StrokeColor:     drawing.ColorFromHex("9ca3af"), // gray-400
			StrokeWidth:     1.5,
			StrokeDashArray: []float64{5.0, 3.0},
		},
		XValues: xValues,
		YValues: investedY,
	}

	graph := chart.Chart{
		Title:  title,
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("Jan 06")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		Series: []chart.Series{
			valueSeries,
			investedSeries,
		},
	}

	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}
