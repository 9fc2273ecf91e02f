package tiles

import (
	"fmt"

	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
)

// MVTContentType is the media type of encoded point tiles.
const MVTContentType = "application/vnd.mapbox-vector-tile"

// PointTile encodes the features of fc that fall inside t as a single-layer
// Mapbox vector tile. Feature properties are carried over unchanged. An
// empty tile encodes to zero bytes.
func PointTile(fc *geojson.FeatureCollection, t maptile.Tile, layerName string) ([]byte, error) {
	bound := t.Bound()
	in := geojson.NewFeatureCollection()
	for _, f := range fc.Features {
		if !bound.Contains(f.Geometry.Bound().Center()) {
			continue
		}
		// ProjectToTile rewrites geometry in place
		clone := geojson.NewFeature(f.Geometry.Bound().Center())
		clone.ID = f.ID
		for k, v := range f.Properties {
			clone.Properties[k] = v
		}
		in.Append(clone)
	}
	if len(in.Features) == 0 {
		return []byte{}, nil
	}

	layer := mvt.NewLayer(layerName, in)
	layer.ProjectToTile(t)

	data, err := mvt.Marshal(mvt.Layers{layer})
	if err != nil {
		return nil, fmt.Errorf("tiles: encode %v: %w", t, err)
	}
	return data, nil
}
