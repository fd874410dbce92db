// Package report shapes route analytics into payloads the dashboard can
// render directly: chart series and a GeoJSON map.
package report

import (
	"fmt"

	"github.com/ukydev/supply-chain-analytics/internal/models"
)

// ChartKind is the chart type requested by the dashboard.
type ChartKind string

const (
	ChartLine      ChartKind = "line"
	ChartBar       ChartKind = "bar"
	ChartRadar     ChartKind = "radar"
	ChartDoughnut  ChartKind = "doughnut"
	ChartPolarArea ChartKind = "polarArea"
)

// Dataset labels used by the per-segment charts.
const (
	LabelEmissions = "Emissions (kg CO2)"
	LabelCost      = "Cost ($)"
	LabelDistance  = "Distance (km)"
)

// ParseChartKind maps a query value to a ChartKind, defaulting to a line
// chart for anything it does not recognise.
func ParseChartKind(s string) ChartKind {
	switch k := ChartKind(s); k {
	case ChartLine, ChartBar, ChartRadar, ChartDoughnut, ChartPolarArea:
		return k
	default:
		return ChartLine
	}
}

// Totals reports whether the kind plots route totals rather than one point
// per segment.
func (k ChartKind) Totals() bool {
	return k == ChartDoughnut || k == ChartPolarArea
}

// Dataset is one plotted series.
type Dataset struct {
	Label string    `json:"label,omitempty"`
	Data  []float64 `json:"data"`
}

// ChartData is the chart payload.
type ChartData struct {
	Kind     ChartKind `json:"type"`
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

// Chart builds chart series for the analytics record.
func Chart(a models.SupplyChainAnalytics, kind ChartKind) ChartData {
	data := ChartData{Kind: kind, Labels: []string{}, Datasets: []Dataset{}}
	if a.IsEmpty() {
		return data
	}

	if kind.Totals() {
		data.Labels = []string{"Emissions", "Cost", "Distance"}
		data.Datasets = []Dataset{{Data: []float64{a.Emission, a.Cost, a.Distance}}}
		return data
	}

	n := len(a.SegmentAnalytics)
	emissions := make([]float64, n)
	costs := make([]float64, n)
	distances := make([]float64, n)
	data.Labels = make([]string, n)
	for i, s := range a.SegmentAnalytics {
		data.Labels[i] = fmt.Sprintf("Segment %d", i+1)
		emissions[i] = s.Emission
		costs[i] = s.Cost
		distances[i] = s.Distance
	}
	data.Datasets = []Dataset{
		{Label: LabelEmissions, Data: emissions},
		{Label: LabelCost, Data: costs},
		{Label: LabelDistance, Data: distances},
	}
	return data
}
