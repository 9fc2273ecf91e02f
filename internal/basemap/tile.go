package basemap

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// ErrNoTiles is returned when a tile URL is requested for a vector basemap.
var ErrNoTiles = errors.New("basemap: vector style has no raster tiles")

// TileURL resolves the upstream URL for one tile of a raster basemap.
func TileURL(b Basemap, t maptile.Tile) (string, error) {
	switch s := b.Source.(type) {
	case TileIndex:
		return s.URL(t), nil
	case BoundingBox:
		return s.URL(t), nil
	case VectorStyle:
		return "", ErrNoTiles
	}
	return "", fmt.Errorf("basemap %q: unsupported source %T", b.ID, b.Source)
}

// URL substitutes the tile's zoom, column and row into the template.
func (s TileIndex) URL(t maptile.Tile) string {
	return strings.NewReplacer(
		TokenZ, strconv.FormatUint(uint64(t.Z), 10),
		TokenX, strconv.FormatUint(uint64(t.X), 10),
		TokenY, strconv.FormatUint(uint64(t.Y), 10),
	).Replace(s.Template)
}

// URL replaces the bbox token with the tile's geographic extent.
func (s BoundingBox) URL(t maptile.Tile) string {
	return strings.ReplaceAll(s.Template, TokenBBox, FormatBBox(t.Bound()))
}

// FormatBBox renders a bound as west,south,east,north.
func FormatBBox(b orb.Bound) string {
	parts := [4]float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]}
	out := make([]string, len(parts))
	for i, v := range parts {
		out[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(out, ",")
}
