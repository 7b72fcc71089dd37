// Package report renders SLA rows as a printable PDF.
package report

import (
	"fmt"
	"io"
	"time"

	"OfficeSLAMonitor/internal/models"

	"github.com/jung-kurt/gofpdf"
)

var columns = []struct {
	title string
	width float64
	align string
}{
	{"Office", 48, "L"},
	{"State", 22, "C"},
	{"Up", 24, "R"},
	{"Degraded", 24, "R"},
	{"Down", 24, "R"},
	{"Strict", 18, "R"},
	{"Lenient", 18, "R"},
}

var stateFill = map[models.State][3]int{
	models.StateUp:       {220, 245, 226},
	models.StateDegraded: {255, 243, 205},
	models.StateDown:     {253, 222, 222},
}

// SLA writes a one-table report of resp to w. Times are rendered in loc.
func SLA(w io.Writer, resp *models.SlaResponse, loc *time.Location, generated time.Time) error {
	if loc == nil {
		loc = time.UTC
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Office SLA report", false)
	pdf.SetAuthor("office-sla-monitor", false)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Office SLA report", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Window: %s - %s",
		time.Unix(resp.Window.TStart, 0).In(loc).Format("2006-01-02 15:04"),
		time.Unix(resp.Window.TEnd, 0).In(loc).Format("2006-01-02 15:04 MST"),
	), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Generated: "+generated.In(loc).Format(time.RFC1123), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for _, c := range columns {
		pdf.CellFormat(c.width, 7, c.title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	if len(resp.SLA) == 0 {
		pdf.CellFormat(totalWidth(), 7, "No data in this window", "1", 1, "C", false, 0, "")
	}

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	var up, deg, down, total int64
	for _, row := range resp.SLA {
		state := rowState(row)
		fill := stateFill[state]
		pdf.SetFillColor(fill[0], fill[1], fill[2])

		cells := []string{
			row.Office,
			string(state),
			hours(row.SecUp),
			hours(row.SecDeg),
			hours(row.SecDown),
			percent(row.UptimeStrict),
			percent(row.UptimeLenient),
		}
		for i, c := range columns {
			pdf.CellFormat(c.width, 6, tr(cells[i]), "1", 0, c.align, i == 1, 0, "")
		}
		pdf.Ln(-1)

		up += row.SecUp
		deg += row.SecDeg
		down += row.SecDown
		total += row.SecTotal
	}

	if len(resp.SLA) > 0 {
		denom := float64(max(total, 1))
		pdf.SetFont("Helvetica", "B", 9)
		summary := []string{
			"All offices", "",
			hours(up), hours(deg), hours(down),
			percent(float64(up) / denom),
			percent(float64(up+deg) / denom),
		}
		for i, c := range columns {
			pdf.CellFormat(c.width, 6, summary[i], "1", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	return nil
}

func rowState(row models.SlaRow) models.State {
	if row.CurrentState != nil && row.CurrentState.Known() {
		return *row.CurrentState
	}
	switch {
	case row.SecDown > 0:
		return models.StateDown
	case row.SecDeg > 0:
		return models.StateDegraded
	default:
		return models.StateUp
	}
}

func totalWidth() float64 {
	var w float64
	for _, c := range columns {
		w += c.width
	}
	return w
}

func hours(sec int64) string {
	return fmt.Sprintf("%.1f h", float64(sec)/3600)
}

func percent(ratio float64) string {
	return fmt.Sprintf("%.2f%%", ratio*100)
}
