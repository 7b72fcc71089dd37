package dashboard

import (
	"time"

	"OfficeSLAMonitor/internal/models"
)

// Filter is what a viewer has selected.
type Filter struct {
	Range       RangeOption
	Office      string
	AutoRefresh bool
}

// View is everything one render of the dashboard needs.
type View struct {
	Seq       uint64
	Now       time.Time
	Filter    Filter
	Ranges    []RangeOption
	Offices   []string
	Known     []string
	Window    models.Window
	Rows      []models.SlaRow
	Attention []models.SlaRow
	Summary   Summary
	Map       MapView
	Sparkline Sparkline
	ReportURL string
	Error     string
}

type viewInput struct {
	seq       uint64
	now       time.Time
	filter    Filter
	known     []string
	resp      *models.SlaResponse
	samples   []models.StoredSample
	locations Locations
	reportURL string
	err       error
}

func buildView(in viewInput) View {
	v := View{
		Seq:     in.seq,
		Now:     in.now,
		Filter:  in.filter,
		Ranges:  Ranges,
		Offices: OfficeOptions(in.known, in.filter.Office),
		Known:   in.known,
		Window:  in.filter.Range.Window(in.now),
	}

	if in.err != nil {
		v.Error = in.err.Error()
		v.Map = RenderMap(nil, in.locations)
		return v
	}
	if in.resp == nil {
		v.Map = RenderMap(nil, in.locations)
		return v
	}

	v.Window = in.resp.Window
	v.Rows = SortRows(in.resp.SLA)
	v.Attention = AttentionRows(in.resp.SLA, in.now)
	v.Summary = Summarize(in.resp.SLA)
	v.Map = RenderMap(OfficePoints(in.resp.SLA), in.locations)
	v.Sparkline = RenderSparkline(in.samples, DefaultViewport)
	v.ReportURL = in.reportURL
	return v
}
