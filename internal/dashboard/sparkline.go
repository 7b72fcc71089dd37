package dashboard

import (
	"fmt"
	"math"
	"strings"

	"OfficeSLAMonitor/internal/models"
)

type Viewport struct {
	Width   float64
	Height  float64
	Padding float64
}

var DefaultViewport = Viewport{Width: 600, Height: 120, Padding: 4}

type SparkPath struct {
	Name  string
	Color string
	D     string
	Max   float64
	Last  float64
}

type Sparkline struct {
	Width  float64
	Height float64
	Paths  []SparkPath
}

func (s Sparkline) Empty() bool { return len(s.Paths) == 0 }

type series struct {
	name   string
	color  string
	values []float64
}

func rtt(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// RenderSparkline draws gateway, firewall and local latency as paths over
// vp. Missing or non-finite values sit at the series maximum; a series
// with no finite value is left out.
func RenderSparkline(samples []models.StoredSample, vp Viewport) Sparkline {
	out := Sparkline{Width: vp.Width, Height: vp.Height}
	if len(samples) == 0 {
		return out
	}

	all := []series{
		{name: "gateway", color: "#2563eb"},
		{name: "firewall", color: "#9333ea"},
		{name: "local", color: "#0d9488"},
	}
	for _, s := range samples {
		all[0].values = append(all[0].values, rtt(s.GatewayRTTMs))
		all[1].values = append(all[1].values, rtt(s.MXRTTMs))
		all[2].values = append(all[2].values, rtt(s.TunnelRTTMs))
	}

	for _, s := range all {
		if p, ok := renderSeries(s, vp); ok {
			out.Paths = append(out.Paths, p)
		}
	}
	return out
}

func renderSeries(s series, vp Viewport) (SparkPath, bool) {
	peak := math.Inf(-1)
	for _, v := range s.values {
		if isFinite(v) && v > peak {
			peak = v
		}
	}
	if math.IsInf(peak, -1) {
		return SparkPath{}, false
	}

	innerW := vp.Width - 2*vp.Padding
	innerH := vp.Height - 2*vp.Padding
	step := 0.0
	if len(s.values) > 1 {
		step = innerW / float64(len(s.values)-1)
	}

	var b strings.Builder
	last := peak
	for i, v := range s.values {
		if !isFinite(v) {
			v = peak
		}
		last = v

		ratio := 0.0
		if peak > 0 {
			ratio = max(v, 0) / peak
		}
		x := vp.Padding + float64(i)*step
		if len(s.values) == 1 {
			x = vp.Width / 2
		}
		y := vp.Padding + (1-ratio)*innerH

		cmd := "L"
		if i == 0 {
			cmd = "M"
		}
		fmt.Fprintf(&b, "%s%.1f,%.1f", cmd, x, y)
	}

	return SparkPath{Name: s.name, Color: s.color, D: b.String(), Max: peak, Last: last}, true
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
