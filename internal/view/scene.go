package view

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-csvmap/internal/basemap"
	"github.com/joeblew999/plat-csvmap/internal/ingest"
)

// Point layer constants.
const (
	PointLayerID     = "csv-points-layer"
	RadiusScale      = 2000.0 // metres per unit of magnitude
	DefaultMagnitude = 1.0
	RadiusMinPixels  = 3

	FieldLng   = "lng"
	FieldLat   = "lat"
	FieldValue = "value"

	// RadiusProperty carries the marker radius on GeoJSON features.
	RadiusProperty = "csvmap:radius"
)

// FillColor is the RGB fill of every marker.
var FillColor = [3]int{255, 50, 50}

// TileGatewayPrefix is where bounding-box basemaps are served as z/x/y tiles.
const TileGatewayPrefix = "/tiles/"

// RasterTileSize is the edge length of raster tiles in pixels.
const RasterTileSize = 256

// Ground resolution used to turn marker radii into pixels.
const (
	MetresPerPixelZ0 = 78271.517 // 512 px world at the equator
	MaxDrawZoom      = 22
)

// Camera is a map viewpoint.
type Camera struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Zoom      float64 `json:"zoom"`
	Pitch     float64 `json:"pitch"`
	Bearing   float64 `json:"bearing"`
}

// InitialView is the camera pose when a page opens.
var InitialView = Camera{Longitude: 104.1954, Latitude: 35.8617, Zoom: 4, Pitch: 45, Bearing: 0}

// Marker is the drawable form of one record.
type Marker struct {
	Index int `json:"index"`
	// Position is nil when lng or lat is not a number; such a marker is
	// kept in the layer but not placed.
	Position *orb.Point `json:"position"`
	Radius   float64    `json:"radius" doc:"Radius in metres"`
}

// PointLayer is the scatter layer drawn above the basemap.
type PointLayer struct {
	ID              string   `json:"id"`
	FillColor       [3]int   `json:"fillColor"`
	RadiusMinPixels int      `json:"radiusMinPixels"`
	Pickable        bool     `json:"pickable"`
	Markers         []Marker `json:"markers"`
	CircleRadius    []any    `json:"circleRadius" doc:"Map engine expression for the drawn radius in pixels"`
}

// RasterLayer is a tiled image layer below the points.
type RasterLayer struct {
	ID       string `json:"id"`
	Basemap  string `json:"basemap"`
	Tiles    string `json:"tiles" doc:"Tile URL template with {z}, {x} and {y}"`
	TileSize int    `json:"tileSize"`
}

// Scene is everything the map engine needs to draw one revision.
type Scene struct {
	Revision uint64 `json:"revision"`
	Basemap  string `json:"basemap"`
	// Style is the vector style document URL; empty means a blank style.
	Style  string       `json:"style"`
	Raster *RasterLayer `json:"raster,omitempty"`
	Points PointLayer   `json:"points"`
	Count  int          `json:"count"`
	View   Camera       `json:"view"`
}

// Compose derives the scene for s. It has no side effects.
func Compose(s *State) Scene {
	sc := Scene{
		Revision: s.Revision,
		Basemap:  s.Basemap.ID,
		Points:   Points(s.Records),
		Count:    len(s.Records),
		View:     InitialView,
	}
	switch src := s.Basemap.Source.(type) {
	case basemap.VectorStyle:
		sc.Style = src.StyleURL
	case basemap.TileIndex:
		sc.Raster = rasterLayer(s.Basemap.ID, src.Template)
	case basemap.BoundingBox:
		sc.Raster = rasterLayer(s.Basemap.ID, GatewayTemplate(s.Basemap.ID))
	}
	return sc
}

// GatewayTemplate is the z/x/y template under which the tile gateway serves id.
func GatewayTemplate(id string) string {
	return TileGatewayPrefix + id + "/" + basemap.TokenZ + "/" + basemap.TokenX + "/" + basemap.TokenY
}

func rasterLayer(id, tiles string) *RasterLayer {
	return &RasterLayer{ID: id + "-layer", Basemap: id, Tiles: tiles, TileSize: RasterTileSize}
}

// Points builds the point layer, one marker per record in order.
func Points(recs ingest.Records) PointLayer {
	markers := make([]Marker, len(recs))
	for i, r := range recs {
		markers[i] = Marker{Index: i, Position: Position(r), Radius: Radius(r)}
	}
	return PointLayer{
		ID:              PointLayerID,
		FillColor:       FillColor,
		RadiusMinPixels: RadiusMinPixels,
		Pickable:        true,
		Markers:         markers,
		CircleRadius:    CircleRadius(RadiusMinPixels),
	}
}

// CircleRadius is the map engine expression drawing each feature at its
// radius in metres, never below minPixels. Every integer zoom has its own
// clamped stop; base 2 interpolation between unclamped stops is exact.
func CircleRadius(minPixels int) []any {
	expr := []any{"interpolate", []any{"exponential", 2}, []any{"zoom"}}
	lat := []any{"*", []any{"to-number", []any{"get", FieldLat}, 0}, math.Pi / 180}
	for z := 0; z <= MaxDrawZoom; z++ {
		perPixel := []any{"/", []any{"*", MetresPerPixelZ0, []any{"cos", lat}}, math.Exp2(float64(z))}
		expr = append(expr, z, []any{"max", minPixels, []any{"/", []any{"get", RadiusProperty}, perPixel}})
	}
	return expr
}

// Position returns [lng, lat] when both are numbers.
func Position(r ingest.Record) *orb.Point {
	lng, ok := r.Get(FieldLng).Float()
	if !ok {
		return nil
	}
	lat, ok := r.Get(FieldLat).Float()
	if !ok {
		return nil
	}
	return &orb.Point{lng, lat}
}

// Radius is the marker radius in metres. A missing, zero or non-numeric
// magnitude counts as DefaultMagnitude.
func Radius(r ingest.Record) float64 {
	m, ok := r.Get(FieldValue).Float()
	if !ok || m == 0 {
		m = DefaultMagnitude
	}
	return m * RadiusScale
}

// Pick returns the record index drawn by marker i.
func (sc Scene) Pick(i int) (int, bool) {
	if i < 0 || i >= len(sc.Points.Markers) {
		return 0, false
	}
	return sc.Points.Markers[i].Index, true
}

// GeoJSON renders the placed markers as a feature collection. Feature ids
// are record indexes; properties are the record's cells plus the radius.
func GeoJSON(recs ingest.Records) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, r := range recs {
		p := Position(r)
		if p == nil {
			continue
		}
		f := geojson.NewFeature(*p)
		f.ID = i
		f.Properties = r.Map()
		f.Properties[RadiusProperty] = Radius(r)
		fc.Append(f)
	}
	return fc
}
