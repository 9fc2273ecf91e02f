// Package tiles serves raster basemaps as z/x/y tiles.
//
// Tile-index basemaps are fetched from their own template; bounding-box
// basemaps get their {bbox} token rewritten with the tile's extent. Either
// way the upstream image is relayed to the map engine unchanged.
package tiles

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb/maptile"

	"github.com/joeblew999/plat-csvmap/internal/basemap"
)

// Mux patterns the gateway is mounted under.
const (
	Pattern          = "GET /tiles/{basemap}/{z}/{x}/{y}"
	PreflightPattern = "OPTIONS /tiles/{basemap}/{z}/{x}/{y}"
)

// MaxZoom is the deepest zoom level the gateway accepts.
const MaxZoom = 24

// relayed upstream response headers
var passHeaders = []string{"Content-Type", "Cache-Control", "Expires", "Last-Modified", "ETag"}

// Gateway relays raster tiles from upstream services.
type Gateway struct {
	registry *basemap.Registry
	client   *http.Client
	log      *slog.Logger
}

// NewGateway creates a gateway for the basemaps in reg. A nil client uses a
// client with a 30 second timeout.
func NewGateway(reg *basemap.Registry, client *http.Client, log *slog.Logger) *Gateway {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Gateway{registry: reg, client: client, log: log}
}

// ParseTile reads z, x and y path segments. A trailing image extension on y
// is ignored.
func ParseTile(z, x, y string) (maptile.Tile, error) {
	if i := strings.IndexByte(y, '.'); i >= 0 {
		y = y[:i]
	}
	zoom, err := strconv.ParseUint(z, 10, 8)
	if err != nil || zoom > MaxZoom {
		return maptile.Tile{}, fmt.Errorf("tiles: bad zoom %q", z)
	}
	col, err := strconv.ParseUint(x, 10, 32)
	if err != nil {
		return maptile.Tile{}, fmt.Errorf("tiles: bad column %q", x)
	}
	row, err := strconv.ParseUint(y, 10, 32)
	if err != nil {
		return maptile.Tile{}, fmt.Errorf("tiles: bad row %q", y)
	}
	n := uint64(1) << zoom
	if col >= n || row >= n {
		return maptile.Tile{}, fmt.Errorf("tiles: %s/%s/%s outside the zoom %d grid", z, x, y, zoom)
	}
	return maptile.New(uint32(col), uint32(row), maptile.Zoom(zoom)), nil
}

// ServeHTTP handles GET, HEAD and OPTIONS on /tiles/{basemap}/{z}/{x}/{y}.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	id := r.PathValue("basemap")
	b, err := g.registry.Lookup(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if !b.Raster() {
		http.Error(w, fmt.Sprintf("basemap %q: %v", id, basemap.ErrNoTiles), http.StatusNotFound)
		return
	}
	t, err := ParseTile(r.PathValue("z"), r.PathValue("x"), r.PathValue("y"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	upstream, err := basemap.TileURL(b, t)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, upstream, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	resp, err := g.client.Do(req)
	if err != nil {
		g.log.Warn("tile fetch failed", "basemap", id, "tile", t, "error", err)
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		g.log.Warn("tile fetch rejected", "basemap", id, "tile", t, "status", resp.StatusCode)
		http.Error(w, "upstream returned "+resp.Status, http.StatusBadGateway)
		return
	}

	for _, h := range passHeaders {
		if v := resp.Header.Get(h); v != "" {
			w.Header().Set(h, v)
		}
	}
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		g.log.Debug("tile relay interrupted", "basemap", id, "tile", t, "error", err)
	}
}
