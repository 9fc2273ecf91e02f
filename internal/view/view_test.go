package view

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/joeblew999/plat-csvmap/internal/basemap"
	"github.com/joeblew999/plat-csvmap/internal/ingest"
)

func newSession(t *testing.T) *Session {
	t.Helper()
	return NewSession("test", basemap.Builtin(), nil)
}

func load(t *testing.T, s *Session, csv string) *State {
	t.Helper()
	st, err := s.Load(context.Background(), strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return st
}

func TestInitialState(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	st := s.State()
	if st.Revision != 0 || len(st.Records) != 0 || st.Loaded {
		t.Fatalf("initial state = %+v", st)
	}
	if st.Basemap.ID != "carto-dark" {
		t.Fatalf("initial basemap = %q, want carto-dark", st.Basemap.ID)
	}

	sc := Compose(st)
	if sc.Count != 0 || len(sc.Points.Markers) != 0 {
		t.Fatalf("empty session has markers: %+v", sc.Points)
	}
	if sc.View != InitialView {
		t.Fatalf("view = %+v", sc.View)
	}
	if InitialView.Longitude != 104.1954 || InitialView.Latitude != 35.8617 || InitialView.Zoom != 4 || InitialView.Pitch != 45 || InitialView.Bearing != 0 {
		t.Fatalf("InitialView = %+v", InitialView)
	}
}

func TestComposeMarkers(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	st := load(t, s, "lng,lat,value\n116.4,39.9,10\n121.47,31.23,\n")
	sc := Compose(st)

	if sc.Points.ID != PointLayerID || sc.Points.FillColor != [3]int{255, 50, 50} || !sc.Points.Pickable {
		t.Fatalf("point layer = %+v", sc.Points)
	}
	if sc.Points.RadiusMinPixels != 3 {
		t.Fatalf("RadiusMinPixels = %d", sc.Points.RadiusMinPixels)
	}
	if len(sc.Points.Markers) != 2 {
		t.Fatalf("markers = %d, want 2", len(sc.Points.Markers))
	}

	m0, m1 := sc.Points.Markers[0], sc.Points.Markers[1]
	if m0.Position == nil || m0.Position[0] != 116.4 || m0.Position[1] != 39.9 {
		t.Fatalf("marker 0 position = %v", m0.Position)
	}
	if m0.Radius != 20000 {
		t.Fatalf("marker 0 radius = %v, want 20000", m0.Radius)
	}
	if m1.Radius != 2000 {
		t.Fatalf("marker 1 radius = %v, want 2000", m1.Radius)
	}
	if m0.Radius != 10*m1.Radius {
		t.Fatal("value 10 should draw ten times the default radius")
	}
}

func TestRadiusFallsBackToDefault(t *testing.T) {
	t.Parallel()

	cases := []struct {
		value string
		want  float64
	}{
		{"", 2000},
		{"0", 2000},
		{"big", 2000},
		{"0.5", 1000},
		{"-2", -4000},
	}
	for _, tc := range cases {
		cols := []string{FieldLng, FieldLat, FieldValue}
		rec := ingest.NewRecord(cols, []ingest.Value{ingest.Num(1), ingest.Num(2), ingest.Coerce(tc.value)})
		if got := Radius(rec); got != tc.want {
			t.Errorf("Radius(value=%q) = %v, want %v", tc.value, got, tc.want)
		}
	}
}

func TestNonNumericCoordinatesAreNotPlaced(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	st := load(t, s, "lng,lat,value\na,b,c\n1,2,3\n")
	sc := Compose(st)
	if sc.Count != 2 || len(sc.Points.Markers) != 2 {
		t.Fatalf("count = %d markers = %d, want 2 and 2", sc.Count, len(sc.Points.Markers))
	}
	if sc.Points.Markers[0].Position != nil {
		t.Fatal("text coordinates should leave the marker unplaced")
	}

	fc := GeoJSON(st.Records)
	if len(fc.Features) != 1 {
		t.Fatalf("features = %d, want 1", len(fc.Features))
	}
	if fc.Features[0].ID != 1 {
		t.Fatalf("feature id = %v, want record index 1", fc.Features[0].ID)
	}
	if fc.Features[0].Properties[RadiusProperty] != 6000.0 {
		t.Fatalf("radius property = %v", fc.Features[0].Properties[RadiusProperty])
	}
}

func TestLoadReplacesDataset(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	load(t, s, "lng,lat\n1,1\n2,2\n3,3\n")
	st := load(t, s, "lng,lat\n9,9\n")
	if len(st.Records) != 1 {
		t.Fatalf("records = %d, want 1 after second load", len(st.Records))
	}
	if f, _ := st.Records[0].Get("lng").Float(); f != 9 {
		t.Fatalf("record from first file survived: lng=%v", f)
	}
	if got := ComposePanel(s.Registry(), st).Message; got != "Loaded 1 records" {
		t.Fatalf("message = %q", got)
	}
}

func TestEmptyLoadShowsNoMessage(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	st := load(t, s, "lng,lat,value\n")
	if !st.Loaded || len(st.Records) != 0 {
		t.Fatalf("state = %+v", st)
	}
	if got := ComposePanel(s.Registry(), st).Message; got != "" {
		t.Fatalf("message = %q, want none for a file without records", got)
	}
}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) { return 0, errors.New("permission denied") }

func TestFailedLoadKeepsPreviousDataset(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	before := load(t, s, "lng,lat\n1,1\n")

	st, err := s.Load(context.Background(), brokenReader{})
	if err == nil {
		t.Fatal("expected load error")
	}
	if st != before || s.State() != before {
		t.Fatal("failed load replaced the state")
	}
}

func TestSelectBasemap(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	before := s.State()

	if _, err := s.SelectBasemap("nope"); !errors.Is(err, basemap.ErrNotFound) {
		t.Fatalf("unknown id err = %v", err)
	}
	if s.State() != before {
		t.Fatal("unknown basemap changed the state")
	}

	st, err := s.SelectBasemap("osm-standard")
	if err != nil {
		t.Fatal(err)
	}
	if st.Basemap.ID != "osm-standard" || st.Revision != before.Revision+1 {
		t.Fatalf("state = %+v", st)
	}
}

func TestComposePerDeliveryMode(t *testing.T) {
	t.Parallel()

	reg := basemap.Builtin()
	st := Initial(reg)

	vec := Compose(st)
	if vec.Style != "https://basemaps.cartocdn.com/gl/dark-matter-gl-style/style.json" || vec.Raster != nil {
		t.Fatalf("vector scene = style %q raster %+v", vec.Style, vec.Raster)
	}

	osm, _ := reg.Get("osm-standard")
	xyz := Compose(st.WithBasemap(osm))
	if xyz.Style != "" || xyz.Raster == nil {
		t.Fatalf("xyz scene = style %q raster %+v", xyz.Style, xyz.Raster)
	}
	if xyz.Raster.Tiles != "https://c.tile.openstreetmap.org/{z}/{x}/{y}.png" || xyz.Raster.TileSize != 256 {
		t.Fatalf("xyz raster = %+v", xyz.Raster)
	}

	gs, _ := reg.Get("local-geoserver")
	wms := Compose(st.WithBasemap(gs))
	if wms.Style != "" || wms.Raster == nil {
		t.Fatalf("wms scene = style %q raster %+v", wms.Style, wms.Raster)
	}
	if wms.Raster.Tiles != "/tiles/local-geoserver/{z}/{x}/{y}" {
		t.Fatalf("wms tiles = %q", wms.Raster.Tiles)
	}
}

func TestSwitchingBasemapKeepsPoints(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	load(t, s, "lng,lat,value\n1,2,3\n")
	st, err := s.SelectBasemap("local-geoserver")
	if err != nil {
		t.Fatal(err)
	}
	if sc := Compose(st); len(sc.Points.Markers) != 1 || sc.Points.Markers[0].Radius != 6000 {
		t.Fatalf("points changed across basemap switch: %+v", sc.Points)
	}
}

func TestPick(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	sc := Compose(load(t, s, "lng,lat\n1,1\n2,2\n"))
	if i, ok := sc.Pick(1); !ok || i != 1 {
		t.Fatalf("Pick(1) = %d, %v", i, ok)
	}
	if _, ok := sc.Pick(2); ok {
		t.Fatal("Pick past the end should miss")
	}
	if _, ok := sc.Pick(-1); ok {
		t.Fatal("Pick(-1) should miss")
	}
}

// evalRadius evaluates the circle radius stop for zoom z against props.
func evalRadius(t *testing.T, expr []any, z int, props map[string]any) float64 {
	t.Helper()
	if got := expr[3+2*z]; got != z {
		t.Fatalf("stop %d has zoom %v", z, got)
	}
	var eval func(e any) float64
	eval = func(e any) float64 {
		switch v := e.(type) {
		case int:
			return float64(v)
		case float64:
			return v
		case []any:
			arg := func(i int) float64 { return eval(v[i]) }
			switch v[0] {
			case "get":
				f, _ := props[v[1].(string)].(float64)
				return f
			case "to-number":
				return arg(1)
			case "*":
				return arg(1) * arg(2)
			case "/":
				return arg(1) / arg(2)
			case "max":
				return math.Max(arg(1), arg(2))
			case "cos":
				return math.Cos(arg(1))
			}
		}
		t.Fatalf("cannot evaluate %v", e)
		return 0
	}
	return eval(expr[4+2*z])
}

func TestCircleRadiusKeepsProportions(t *testing.T) {
	t.Parallel()

	expr := CircleRadius(RadiusMinPixels)
	if len(expr) != 3+2*(MaxDrawZoom+1) {
		t.Fatalf("expression has %d elements, want a stop per zoom", len(expr))
	}
	small := map[string]any{FieldLat: 0.0, RadiusProperty: 0.5 * RadiusScale}
	large := map[string]any{FieldLat: 0.0, RadiusProperty: 5 * RadiusScale}

	// both below the floor at zoom 0
	if s, l := evalRadius(t, expr, 0, small), evalRadius(t, expr, 0, large); s != RadiusMinPixels || l != RadiusMinPixels {
		t.Fatalf("zoom 0 radii = %v, %v, want the %d px floor", s, l, RadiusMinPixels)
	}

	s := evalRadius(t, expr, 10, small)
	l := evalRadius(t, expr, 10, large)
	if s <= RadiusMinPixels {
		t.Fatalf("zoom 10 small radius = %v, want above the floor", s)
	}
	if ratio := l / s; math.Abs(ratio-10) > 1e-9 {
		t.Fatalf("large/small = %v, want 10", ratio)
	}
	if want := 1000 / (MetresPerPixelZ0 / 1024); math.Abs(s-want) > 1e-9 {
		t.Fatalf("zoom 10 radius = %v px, want %v", s, want)
	}

	north := map[string]any{FieldLat: 60.0, RadiusProperty: 0.5 * RadiusScale}
	if n := evalRadius(t, expr, 10, north); math.Abs(n-2*s) > 1e-6 {
		t.Fatalf("radius at 60N = %v, want %v", n, 2*s)
	}
}

func TestEventsFollowRevisions(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	ch := s.Events().Subscribe()
	defer s.Events().Unsubscribe(ch)

	load(t, s, "lng,lat\n1,1\n")
	if _, err := s.SelectBasemap("osm-standard"); err != nil {
		t.Fatal(err)
	}

	for i, want := range []Event{{Revision: 1, Kind: KindDataset}, {Revision: 2, Kind: KindBasemap}} {
		select {
		case got := <-ch:
			if got != want {
				t.Fatalf("event %d = %+v, want %+v", i, got, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("event %d not delivered", i)
		}
	}
}

func TestConcurrentCommitsAllLand(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Load(context.Background(), strings.NewReader("lng,lat\n1,1\n")); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if got := s.State().Revision; got != 20 {
		t.Fatalf("revision = %d, want 20", got)
	}
}

func TestSessionsEvictIdle(t *testing.T) {
	t.Parallel()

	ss := NewSessions(basemap.Builtin(), 8, 50*time.Millisecond, nil)
	s := ss.Open()
	ch := s.Events().Subscribe()

	if got, ok := ss.Get(s.ID); !ok || got != s {
		t.Fatal("new session not found")
	}

	deadline := time.After(2 * time.Second)
	for {
		if _, ok := ss.Get(s.ID); !ok {
			break
		}
		select {
		case <-deadline:
			t.Fatal("idle session never evicted")
		case <-time.After(100 * time.Millisecond):
		}
	}

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed subscriber channel")
		}
	case <-time.After(time.Second):
		t.Fatal("eviction did not close subscribers")
	}
}
