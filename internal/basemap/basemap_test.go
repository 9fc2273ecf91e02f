package basemap

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/paulmach/orb/maptile"
	"gopkg.in/yaml.v3"
)

func TestBuiltinRegistry(t *testing.T) {
	t.Parallel()

	r := Builtin()
	want := []struct {
		id   string
		mode Mode
	}{
		{"carto-dark", ModeVector},
		{"osm-standard", ModeXYZ},
		{"local-geoserver", ModeWMS},
	}
	list := r.List()
	if len(list) != len(want) {
		t.Fatalf("len(List())=%d want %d", len(list), len(want))
	}
	for i, w := range want {
		if list[i].ID != w.id || list[i].Source.Mode() != w.mode {
			t.Fatalf("entry %d = %s/%s, want %s/%s", i, list[i].ID, list[i].Source.Mode(), w.id, w.mode)
		}
		got, ok := r.Get(w.id)
		if !ok || got.ID != w.id {
			t.Fatalf("Get(%q) = %+v, %v", w.id, got, ok)
		}
	}
	if r.First().ID != "carto-dark" {
		t.Fatalf("First()=%q want carto-dark", r.First().ID)
	}
	if _, err := r.Lookup("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Lookup(nope) err=%v want ErrNotFound", err)
	}
}

func TestParseRejectsInvalidTables(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		doc  string
		want string
	}{
		{"empty", "basemaps: []", "empty"},
		{"missing id", "basemaps:\n  - mode: vector\n    url: http://x/style.json", "missing id"},
		{"unknown mode", "basemaps:\n  - id: a\n    mode: mbtiles\n    url: http://x", "unknown mode"},
		{"xyz without tokens", "basemaps:\n  - id: a\n    mode: xyz\n    url: http://x/{z}/{x}.png", "lacks {y}"},
		{"wms without bbox", "basemaps:\n  - id: a\n    mode: wms\n    url: http://x/wms?BBOX=", "lacks {bbox}"},
		{"duplicate", "basemaps:\n  - id: a\n    mode: vector\n    url: http://x\n  - id: a\n    mode: vector\n    url: http://y", "duplicate"},
		{"bad yaml", "basemaps: [", "decode"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tc.doc))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Parse err=%v, want it to mention %q", err, tc.want)
			}
		})
	}
}

func TestRegistryYAMLRoundTrip(t *testing.T) {
	t.Parallel()

	out, err := yaml.Marshal(Builtin())
	if err != nil {
		t.Fatal(err)
	}
	r, err := Parse(out)
	if err != nil {
		t.Fatalf("Parse(marshalled builtin): %v", err)
	}
	a, b := Builtin().Entries(), r.Entries()
	if len(a) != len(b) {
		t.Fatalf("round trip lost entries: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("entry %d: %+v != %+v", i, a[i], b[i])
		}
	}
}

func TestTileURLSubstitutesTileIndex(t *testing.T) {
	t.Parallel()

	b, _ := Builtin().Get("osm-standard")
	got, err := TileURL(b, maptile.New(3, 5, 4))
	if err != nil {
		t.Fatal(err)
	}
	if want := "https://c.tile.openstreetmap.org/4/3/5.png"; got != want {
		t.Fatalf("TileURL=%q want %q", got, want)
	}
}

func TestTileURLRewritesBoundingBox(t *testing.T) {
	t.Parallel()

	b, _ := Builtin().Get("local-geoserver")
	tile := maptile.New(1, 0, 1)
	got, err := TileURL(b, tile)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, TokenBBox) {
		t.Fatalf("bbox token left in %q", got)
	}
	_, bbox, ok := strings.Cut(got, "&BBOX=")
	if !ok {
		t.Fatalf("TileURL=%q has no BBOX parameter", got)
	}
	parts := strings.Split(bbox, ",")
	if len(parts) != 4 {
		t.Fatalf("BBOX=%q, want west,south,east,north", bbox)
	}
	west, _ := strconv.ParseFloat(parts[0], 64)
	south, _ := strconv.ParseFloat(parts[1], 64)
	east, _ := strconv.ParseFloat(parts[2], 64)
	north, _ := strconv.ParseFloat(parts[3], 64)
	if west != 0 || east != 180 || math.Abs(south) > 1e-9 || math.Abs(north-85.0511287798) > 1e-6 {
		t.Fatalf("BBOX=%q, want 0,0,180,85.0511...", bbox)
	}
	if want := "BBOX=" + FormatBBox(tile.Bound()); !strings.HasSuffix(got, want) {
		t.Fatalf("TileURL=%q, want suffix %q", got, want)
	}
}

func TestFormatBBoxOrder(t *testing.T) {
	t.Parallel()

	bound := maptile.New(0, 0, 0).Bound()
	parts := strings.Split(FormatBBox(bound), ",")
	if len(parts) != 4 {
		t.Fatalf("FormatBBox gave %d parts", len(parts))
	}
	if parts[0] != "-180" || parts[2] != "180" {
		t.Fatalf("west/east = %s/%s, want -180/180", parts[0], parts[2])
	}
	if !strings.HasPrefix(parts[1], "-85.0511") || !strings.HasPrefix(parts[3], "85.0511") {
		t.Fatalf("south/north = %s/%s", parts[1], parts[3])
	}
}

func TestTileURLVectorHasNoTiles(t *testing.T) {
	t.Parallel()

	b := Builtin().First()
	if _, err := TileURL(b, maptile.New(0, 0, 0)); !errors.Is(err, ErrNoTiles) {
		t.Fatalf("err=%v want ErrNoTiles", err)
	}
	if b.Raster() {
		t.Fatal("vector basemap reported as raster")
	}
}
