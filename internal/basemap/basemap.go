// Package basemap holds the registry of background maps the viewer can
// draw beneath the point layer.
//
// Each basemap has exactly one delivery mode, modelled as a closed set of
// [Source] implementations:
//
//   - [VectorStyle]: a style document handed to the map engine as-is
//   - [TileIndex]: a raster service addressed by {z}/{x}/{y}
//   - [BoundingBox]: a raster service addressed by a {bbox} query (WMS)
package basemap

import (
	"fmt"
	"strings"
)

// Mode names a delivery mode. It is the string form used in registry files
// and API responses.
type Mode string

const (
	ModeVector Mode = "vector"
	ModeXYZ    Mode = "xyz"
	ModeWMS    Mode = "wms"
)

// Tokens substituted into raster URL templates.
const (
	TokenZ    = "{z}"
	TokenX    = "{x}"
	TokenY    = "{y}"
	TokenBBox = "{bbox}"
)

// Source is how a basemap's imagery is obtained. The implementations in
// this package are the only ones; the unexported method keeps the set closed.
type Source interface {
	Mode() Mode
	Locator() string
	source()
}

// VectorStyle is a pre-styled vector basemap referenced by its style document URL.
type VectorStyle struct {
	StyleURL string
}

func (VectorStyle) Mode() Mode        { return ModeVector }
func (s VectorStyle) Locator() string { return s.StyleURL }
func (VectorStyle) source()           {}

// TileIndex is a raster tile service whose URL carries {z}, {x} and {y}.
type TileIndex struct {
	Template string
}

func (TileIndex) Mode() Mode        { return ModeXYZ }
func (s TileIndex) Locator() string { return s.Template }
func (TileIndex) source()           {}

// BoundingBox is a raster image service whose URL carries a {bbox} token,
// replaced per tile with west,south,east,north in degrees.
type BoundingBox struct {
	Template string
}

func (BoundingBox) Mode() Mode        { return ModeWMS }
func (s BoundingBox) Locator() string { return s.Template }
func (BoundingBox) source()           {}

// Basemap is one registry entry.
type Basemap struct {
	ID     string
	Name   string
	Source Source
}

// Entry is the flat form of a Basemap used in registry files and API bodies.
type Entry struct {
	ID   string `yaml:"id" json:"id" doc:"Basemap identifier" example:"carto-dark"`
	Name string `yaml:"name" json:"name" doc:"Display name" example:"Carto Dark Matter"`
	Mode Mode   `yaml:"mode" json:"mode" enum:"vector,xyz,wms" doc:"Delivery mode" example:"vector"`
	URL  string `yaml:"url" json:"url" doc:"Style document URL or raster URL template"`
}

// Entry returns the flat form of b.
func (b Basemap) Entry() Entry {
	return Entry{ID: b.ID, Name: b.Name, Mode: b.Source.Mode(), URL: b.Source.Locator()}
}

// Raster reports whether b is drawn from raster tiles.
func (b Basemap) Raster() bool {
	switch b.Source.(type) {
	case TileIndex, BoundingBox:
		return true
	}
	return false
}

// FromEntry validates e and builds the Basemap it describes.
func FromEntry(e Entry) (Basemap, error) {
	if strings.TrimSpace(e.ID) == "" {
		return Basemap{}, fmt.Errorf("basemap: missing id")
	}
	if e.URL == "" {
		return Basemap{}, fmt.Errorf("basemap %q: missing url", e.ID)
	}
	name := e.Name
	if name == "" {
		name = e.ID
	}

	var src Source
	switch e.Mode {
	case ModeVector:
		src = VectorStyle{StyleURL: e.URL}
	case ModeXYZ:
		for _, tok := range []string{TokenZ, TokenX, TokenY} {
			if !strings.Contains(e.URL, tok) {
				return Basemap{}, fmt.Errorf("basemap %q: xyz url lacks %s", e.ID, tok)
			}
		}
		src = TileIndex{Template: e.URL}
	case ModeWMS:
		if !strings.Contains(e.URL, TokenBBox) {
			return Basemap{}, fmt.Errorf("basemap %q: wms url lacks %s", e.ID, TokenBBox)
		}
		src = BoundingBox{Template: e.URL}
	default:
		return Basemap{}, fmt.Errorf("basemap %q: unknown mode %q", e.ID, e.Mode)
	}
	return Basemap{ID: e.ID, Name: name, Source: src}, nil
}
