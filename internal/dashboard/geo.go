package dashboard

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"OfficeSLAMonitor/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed locations.yaml
var defaultLocations []byte

type LatLon struct {
	Lat float64 `yaml:"lat"`
	Lon float64 `yaml:"lon"`
}

// Locations maps lower-cased office names to coordinates.
type Locations map[string]LatLon

func (l Locations) Lookup(office string) (LatLon, bool) {
	p, ok := l[strings.ToLower(office)]
	return p, ok
}

func DefaultLocations() Locations {
	locs, err := parseLocations(bytes.NewReader(defaultLocations))
	if err != nil {
		panic(fmt.Sprintf("embedded locations: %v", err))
	}
	return locs
}

// LoadLocations reads a locations file; an empty path gives the built-in
// table.
func LoadLocations(path string) (Locations, error) {
	if path == "" {
		return DefaultLocations(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open locations file: %w", err)
	}
	defer f.Close()
	return parseLocations(f)
}

func parseLocations(r io.Reader) (Locations, error) {
	raw := map[string]LatLon{}
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("can't decode locations: %w", err)
	}

	locs := make(Locations, len(raw))
	for name, p := range raw {
		if p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
			return nil, fmt.Errorf("location %q out of range", name)
		}
		locs[strings.ToLower(name)] = p
	}
	return locs, nil
}

// Albers equal-area conic tuned for the contiguous United States.
const (
	MapWidth  = 960
	MapHeight = 600

	albersScale = 1070
	albersTX    = 480
	albersTY    = 250
)

var albers = newConic(29.5, 45.5, -96, 38.7)

type conic struct {
	n, c, rho0, lon0 float64
}

func newConic(par1, par2, lon0, lat0 float64) conic {
	p1, p2 := radians(par1), radians(par2)
	n := (math.Sin(p1) + math.Sin(p2)) / 2
	c := math.Cos(p1)*math.Cos(p1) + 2*n*math.Sin(p1)
	return conic{
		n:    n,
		c:    c,
		rho0: math.Sqrt(c-2*n*math.Sin(radians(lat0))) / n,
		lon0: lon0,
	}
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// Project returns viewport coordinates and whether the point lands inside
// the map.
func Project(p LatLon) (x, y float64, ok bool) {
	rho := math.Sqrt(albers.c-2*albers.n*math.Sin(radians(p.Lat))) / albers.n
	theta := albers.n * radians(p.Lon-albers.lon0)
	px := rho * math.Sin(theta)
	py := albers.rho0 - rho*math.Cos(theta)

	x = albersTX + albersScale*px
	y = albersTY - albersScale*py
	ok = x >= 0 && x <= MapWidth && y >= 0 && y <= MapHeight
	return x, y, ok
}

// Coarse outline of the lower 48, clockwise from the north-west.
var usOutline = []LatLon{
	{48.4, -124.7}, {49.0, -122.8}, {49.0, -95.2}, {49.4, -94.8}, {48.0, -89.6},
	{46.5, -84.8}, {45.3, -82.4}, {42.6, -82.5}, {43.3, -79.0}, {44.0, -76.0},
	{45.0, -74.7}, {45.0, -71.5}, {46.7, -70.0}, {47.1, -67.8}, {44.8, -67.0},
	{43.6, -70.2}, {41.6, -70.6}, {40.6, -73.9}, {39.6, -74.0}, {38.5, -75.5},
	{36.9, -76.0}, {35.2, -75.5}, {34.5, -77.0}, {33.2, -79.0}, {31.7, -81.0},
	{30.3, -81.4}, {26.8, -80.0}, {25.2, -80.4}, {25.9, -81.8}, {27.9, -82.6},
	{30.0, -84.0}, {30.4, -86.5}, {30.2, -89.5}, {29.0, -89.4}, {29.2, -91.0},
	{29.7, -93.8}, {29.3, -94.7}, {27.7, -97.2}, {25.9, -97.2}, {26.4, -99.1},
	{29.8, -101.4}, {29.0, -103.0}, {29.6, -104.5}, {31.8, -106.5}, {31.3, -108.2},
	{31.3, -111.1}, {32.5, -114.8}, {32.5, -117.1}, {34.0, -118.5}, {34.6, -120.6},
	{37.5, -122.5}, {39.8, -123.8}, {42.0, -124.2}, {46.2, -124.0},
}

func outlinePath() string {
	var b strings.Builder
	for i, p := range usOutline {
		x, y, _ := Project(p)
		if i == 0 {
			fmt.Fprintf(&b, "M%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&b, "L%.1f,%.1f", x, y)
		}
	}
	b.WriteString("Z")
	return b.String()
}

var statusColors = map[models.State]string{
	models.StateUp:       "#16a34a",
	models.StateDegraded: "#f59e0b",
	models.StateDown:     "#dc2626",
}

func StatusColor(s models.State) string {
	if c, ok := statusColors[s]; ok {
		return c
	}
	return "#6b7280"
}

type Detail struct {
	Label string
	Value string
}

type Marker struct {
	Office       string
	Status       models.State
	Color        string
	X, Y         float64
	Details      []Detail
	LastSampleTS *int64
}

type MapView struct {
	Width   int
	Height  int
	Outline string
	Markers []Marker
	// Unplaced lists offices without a usable coordinate.
	Unplaced []string
}

func Reachability(v *bool) string {
	switch {
	case v == nil:
		return "Unknown"
	case *v:
		return "Online"
	default:
		return "Offline"
	}
}

// RenderMap places one marker per office with a known coordinate inside
// the viewport. Other offices are skipped.
func RenderMap(points []OfficePoint, locs Locations) MapView {
	v := MapView{Width: MapWidth, Height: MapHeight, Outline: outlinePath()}
	for _, p := range points {
		loc, ok := locs.Lookup(p.Office)
		if !ok {
			v.Unplaced = append(v.Unplaced, p.Office)
			continue
		}
		x, y, ok := Project(loc)
		if !ok {
			v.Unplaced = append(v.Unplaced, p.Office)
			continue
		}
		v.Markers = append(v.Markers, Marker{
			Office: p.Office,
			Status: p.Status,
			Color:  StatusColor(p.Status),
			X:      x,
			Y:      y,
			Details: []Detail{
				{Label: "Gateway", Value: Reachability(p.Gateway)},
				{Label: "MX", Value: Reachability(p.MX)},
				{Label: "IPsec", Value: Reachability(p.IPsec)},
			},
			LastSampleTS: p.LastSampleTS,
		})
	}
	return v
}
