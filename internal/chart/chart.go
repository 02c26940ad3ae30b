// Package chart renders calculation results to PNG files.
package chart

import (
	"fmt"
	"os"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/RogerMarsh/chesscalc/internal/calc"
)

// RenderDistribution writes a bar chart of the higher-rated player's
// score percentage per performance-difference interval.
func RenderDistribution(intervals []*calc.Interval, path string) error {
	if len(intervals) == 0 {
		return fmt.Errorf("no intervals to chart")
	}
	bars := make([]chart.Value, 0, len(intervals))
	for _, iv := range intervals {
		total := iv.Wins + iv.Draws + iv.Losses
		score := 0.0
		if total > 0 {
			score = 100 * (float64(iv.Wins) + float64(iv.Draws)/2) / float64(total)
		}
		bars = append(bars, chart.Value{
			Value: score,
			Label: fmt.Sprintf("%.0f-%.0f", iv.Base, iv.Base+iv.Width),
		})
	}
	bc := chart.BarChart{
		Title:      "Score % of higher-rated player by performance gap",
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		Height:     512,
		BarWidth:   40,
		Bars:       bars,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: 100},
		},
	}
	return renderPNG(&bc, path)
}

// RenderPerformances writes a bar chart of person performances,
// ordered as given.
func RenderPerformances(persons []*calc.Person, path string) error {
	if len(persons) == 0 {
		return fmt.Errorf("no persons to chart")
	}
	bars := make([]chart.Value, 0, len(persons))
	for _, person := range persons {
		bars = append(bars, chart.Value{
			Value: person.Performance(),
			Label: person.Name,
		})
	}
	bc := chart.BarChart{
		Title:      "Calculated performances",
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		Height:     512,
		BarWidth:   40,
		Bars:       bars,
	}
	return renderPNG(&bc, path)
}

func renderPNG(bc *chart.BarChart, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := bc.Render(chart.PNG, f); err != nil {
		f.Close()
		return fmt.Errorf("render chart: %w", err)
	}
	return f.Close()
}
