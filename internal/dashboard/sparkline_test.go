package dashboard

import (
	"math"
	"strings"
	"testing"

	"OfficeSLAMonitor/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func sample(gw, mx, tun *float64) models.StoredSample {
	return models.StoredSample{Office: "NYC", Sample: models.Sample{GatewayRTTMs: gw, MXRTTMs: mx, TunnelRTTMs: tun}}
}

func TestRenderSparkline(t *testing.T) {
	vp := Viewport{Width: 100, Height: 50, Padding: 0}
	s := RenderSparkline([]models.StoredSample{
		sample(f64(10), nil, f64(1)),
		sample(f64(20), nil, nil),
		sample(nil, nil, f64(2)),
	}, vp)

	require.Len(t, s.Paths, 2, "the all-missing firewall series is dropped")
	gw := s.Paths[0]
	assert.Equal(t, "gateway", gw.Name)
	assert.Equal(t, 20.0, gw.Max)
	// 10 is half way down, 20 and the missing sample sit at the top
	assert.Equal(t, "M0.0,25.0L50.0,0.0L100.0,0.0", gw.D)
	assert.Equal(t, 20.0, gw.Last)

	local := s.Paths[1]
	assert.Equal(t, "local", local.Name)
	assert.Equal(t, "M0.0,25.0L50.0,0.0L100.0,0.0", local.D)
}

func TestRenderSparklineNonFinite(t *testing.T) {
	vp := Viewport{Width: 10, Height: 10, Padding: 1}
	s := RenderSparkline([]models.StoredSample{
		sample(f64(4), nil, nil),
		sample(f64(math.Inf(1)), nil, nil),
		sample(f64(math.NaN()), nil, nil),
	}, vp)

	require.Len(t, s.Paths, 1)
	assert.Equal(t, 4.0, s.Paths[0].Max)
	assert.Equal(t, "M1.0,1.0L5.0,1.0L9.0,1.0", s.Paths[0].D)
	assert.NotContains(t, s.Paths[0].D, "NaN")
}

func TestRenderSparklineEdgeCases(t *testing.T) {
	assert.True(t, RenderSparkline(nil, DefaultViewport).Empty())

	one := RenderSparkline([]models.StoredSample{sample(f64(3), nil, nil)}, Viewport{Width: 100, Height: 20})
	require.Len(t, one.Paths, 1)
	assert.True(t, strings.HasPrefix(one.Paths[0].D, "M50.0,"))

	zero := RenderSparkline([]models.StoredSample{sample(f64(0), nil, nil), sample(f64(0), nil, nil)}, Viewport{Width: 10, Height: 10})
	require.Len(t, zero.Paths, 1)
	assert.Equal(t, "M0.0,10.0L10.0,10.0", zero.Paths[0].D)
}
