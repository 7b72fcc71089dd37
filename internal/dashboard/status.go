package dashboard

import (
	"sort"
	"time"

	"OfficeSLAMonitor/internal/models"
)

// RecoveryGrace is how long a recovered office stays in the attention
// table.
const RecoveryGrace = 300 * time.Second

// ResolveState picks the state shown for a row. A known current state
// wins; otherwise any downtime in the window means down and any degraded
// time means degraded.
func ResolveState(row models.SlaRow) models.State {
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

type Summary struct {
	SecUp    int64
	SecDeg   int64
	SecDown  int64
	SecTotal int64
	Strict   float64
	Lenient  float64
	Offices  int
	Down     int
	Degraded int
}

func Summarize(rows []models.SlaRow) Summary {
	var s Summary
	for _, r := range rows {
		s.SecUp += r.SecUp
		s.SecDeg += r.SecDeg
		s.SecDown += r.SecDown
		s.SecTotal += r.SecTotal
		switch ResolveState(r) {
		case models.StateDown:
			s.Down++
		case models.StateDegraded:
			s.Degraded++
		}
	}
	s.Offices = len(rows)

	denom := float64(s.SecTotal)
	if denom == 0 {
		denom = 1
	}
	s.Strict = clamp01(float64(s.SecUp) / denom)
	s.Lenient = clamp01(float64(s.SecUp+s.SecDeg) / denom)
	return s
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}

// SortRows orders a copy of rows worst state first, then by name.
func SortRows(rows []models.SlaRow) []models.SlaRow {
	out := append([]models.SlaRow(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := ResolveState(out[i]).Severity(), ResolveState(out[j]).Severity()
		if si != sj {
			return si < sj
		}
		return out[i].Office < out[j].Office
	})
	return out
}

// NeedsAttention keeps every office that is not up, and up offices that
// recovered from an incident within RecoveryGrace.
func NeedsAttention(row models.SlaRow, now time.Time) bool {
	if ResolveState(row) != models.StateUp {
		return true
	}
	if row.PreviousState == nil || !row.PreviousState.Incident() || row.CurrentAt == nil {
		return false
	}
	return now.Unix()-*row.CurrentAt <= int64(RecoveryGrace/time.Second)
}

func AttentionRows(rows []models.SlaRow, now time.Time) []models.SlaRow {
	var out []models.SlaRow
	for _, r := range SortRows(rows) {
		if NeedsAttention(r, now) {
			out = append(out, r)
		}
	}
	return out
}

// OfficePoint is what the map knows about one office.
type OfficePoint struct {
	Office       string
	Status       models.State
	Gateway      *bool
	MX           *bool
	IPsec        *bool
	LastSampleTS *int64
}

func OfficePoints(rows []models.SlaRow) []OfficePoint {
	points := make([]OfficePoint, 0, len(rows))
	for _, r := range rows {
		points = append(points, OfficePoint{
			Office:       r.Office,
			Status:       ResolveState(r),
			Gateway:      r.LatestGateway,
			MX:           r.LatestMX,
			IPsec:        r.LatestIPsec,
			LastSampleTS: r.LatestSampleTS,
		})
	}
	return points
}
