package cycle

import (
	"fmt"

	"github.com/hupe1980/where2work/internal/layout"
	"github.com/hupe1980/where2work/internal/roster"
	"github.com/hupe1980/where2work/internal/selection"
)

// Empty-state messages and captions shown with each chart.
const (
	ShortlistEmptyMessage = "Your shortlist is empty. Click on bubbles in the 'All Companies' chart below to add companies."
	PoolEmptyMessage      = "All companies have been added to your shortlist!"

	ShortlistCaption = "Click on any bubble to remove it from your shortlist"
	PoolCaption      = "Click on any bubble to add it to your shortlist"

	// AxisTitle labels the horizontal axis.
	AxisTitle = "Employee Band Size"
)

// Tooltip is the hover metadata of one marker.
type Tooltip struct {
	Company  string `json:"company"`
	Type     string `json:"type"`
	Location string `json:"location"`
	Industry string `json:"industry"`
	Band     string `json:"band"`
}

// Marker is one clickable bubble. Index is its position in the chart's
// marker list and is the only handle a click carries back.
type Marker struct {
	Index   int     `json:"index"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Label   string  `json:"label,omitempty"`
	Tooltip Tooltip `json:"tooltip"`
}

// ChartView is everything the render surface needs for one chart.
type ChartView struct {
	Chart        selection.Chart `json:"chart"`
	Title        string          `json:"title"`
	Count        int             `json:"count"`
	Empty        bool            `json:"empty"`
	EmptyMessage string          `json:"emptyMessage,omitempty"`
	Caption      string          `json:"caption,omitempty"`
	AxisTitle    string          `json:"axisTitle"`
	Markers      []Marker        `json:"markers"`
	Ticks        []layout.Tick   `json:"ticks"`
	XRange       [2]float64      `json:"xRange"`
	YRange       [2]float64      `json:"yRange"`

	entities []roster.Entity
}

// Title returns the heading of a chart holding count entities, e.g.
// "Your Shortlist (1 company)".
func Title(chart selection.Chart, count int) string {
	noun := "companies"
	if count == 1 {
		noun = "company"
	}

	name := "All Companies"
	if chart == selection.ChartShortlist {
		name = "Your Shortlist"
	}

	return fmt.Sprintf("%s (%d %s)", name, count, noun)
}

// newChartView builds the view of one partition from its layout.
func newChartView(chart selection.Chart, entities []roster.Entity, res *layout.Result) *ChartView {
	v := &ChartView{
		Chart:     chart,
		Title:     Title(chart, len(entities)),
		Count:     len(entities),
		Empty:     len(entities) == 0,
		AxisTitle: AxisTitle,
		Markers:   make([]Marker, len(entities)),
		Ticks:     res.Ticks,
		XRange:    res.XRange,
		YRange:    res.YRange,
		entities:  entities,
	}

	switch {
	case v.Empty && chart == selection.ChartShortlist:
		v.EmptyMessage = ShortlistEmptyMessage
	case v.Empty:
		v.EmptyMessage = PoolEmptyMessage
	case chart == selection.ChartShortlist:
		v.Caption = ShortlistCaption
	default:
		v.Caption = PoolCaption
	}

	for i, ent := range entities {
		m := Marker{
			Index: i,
			X:     res.Points[i].X,
			Y:     res.Points[i].Y,
			Tooltip: Tooltip{
				Company:  ent.LegalName,
				Type:     ent.TypeLabel,
				Location: ent.HeadquartersLocation,
				Industry: ent.IndustryDescription,
				Band:     ent.Band,
			},
		}

		// Only shortlisted bubbles carry a visible name.
		if chart == selection.ChartShortlist {
			m.Label = ent.LegalName
		}

		v.Markers[i] = m
	}

	return v
}

// Resolve maps a marker index to the legal name it was drawn for.
func (v *ChartView) Resolve(index int) (string, bool) {
	if v == nil || index < 0 || index >= len(v.entities) {
		return "", false
	}

	return v.entities[index].LegalName, true
}

// Entities returns the partition behind the chart, in marker order.
func (v *ChartView) Entities() []roster.Entity {
	return v.entities
}
