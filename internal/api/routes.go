// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"encoding/json"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-csvmap/internal/basemap"
	"github.com/joeblew999/plat-csvmap/internal/tiles"
	"github.com/joeblew999/plat-csvmap/internal/view"
)

// SessionCookie names the cookie carrying the page session id.
const SessionCookie = "csvmap_session"

// Services holds the dependencies for API handlers.
type Services struct {
	Registry *basemap.Registry
	Sessions *view.Sessions
}

// Session resolves the session named by the cookie, or a 404 when it has
// expired or never existed.
func (s *Services) Session(id string) (*view.Session, error) {
	if id == "" {
		return nil, huma.Error404NotFound("no session; reload the page")
	}
	sess, ok := s.Sessions.Get(id)
	if !ok {
		return nil, huma.Error404NotFound("session expired; reload the page")
	}
	return sess, nil
}

// Types

// SessionInput carries the page session cookie.
type SessionInput struct {
	Session string `cookie:"csvmap_session" doc:"Page session id, set by GET /"`
}

type BasemapIDInput struct {
	ID string `path:"id" doc:"Basemap ID" example:"osm-standard"`
}

type IndexInput struct {
	SessionInput
	Index int `path:"index" minimum:"0" doc:"Record index in file order"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

type RecordBody struct {
	Index    int            `json:"index" doc:"Record index in file order"`
	Position *orb.Point     `json:"position" doc:"[lng, lat], null when either is not a number"`
	Radius   float64        `json:"radius" doc:"Marker radius in metres"`
	Cells    map[string]any `json:"cells" doc:"Cell values by column; absent cells are null"`
}

type TileInput struct {
	SessionInput
	Z string `path:"z" doc:"Zoom level"`
	X string `path:"x" doc:"Tile column"`
	Y string `path:"y" doc:"Tile row, optionally suffixed with .mvt"`
}

type PointsOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterBasemaps registers registry routes.
func (h *APIHandler) RegisterBasemaps(api huma.API) {
	huma.Get(api, "/api/v1/basemaps", h.GetBasemaps, huma.OperationTags("basemaps"))
	huma.Get(api, "/api/v1/basemaps/{id}", h.GetBasemap, huma.OperationTags("basemaps"))
}

// RegisterView registers read access to the session's composed view.
func (h *APIHandler) RegisterView(api huma.API) {
	huma.Get(api, "/api/v1/view/scene", h.GetScene, huma.OperationTags("view"))
	huma.Get(api, "/api/v1/view/points", h.GetPoints, huma.OperationTags("view"))
	huma.Get(api, "/api/v1/view/points/{index}", h.GetPoint, huma.OperationTags("view"))
	huma.Get(api, "/api/v1/view/tiles/{z}/{x}/{y}", h.GetPointTile, huma.OperationTags("view"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: "1.0.0"}}, nil
}

func (h *APIHandler) GetBasemaps(ctx context.Context, input *struct{}) (*struct{ Body []basemap.Entry }, error) {
	return &struct{ Body []basemap.Entry }{Body: h.svc.Registry.Entries()}, nil
}

func (h *APIHandler) GetBasemap(ctx context.Context, input *BasemapIDInput) (*struct{ Body basemap.Entry }, error) {
	b, ok := h.svc.Registry.Get(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("basemap not found")
	}
	return &struct{ Body basemap.Entry }{Body: b.Entry()}, nil
}

func (h *APIHandler) GetScene(ctx context.Context, input *SessionInput) (*struct{ Body view.Scene }, error) {
	sess, err := h.svc.Session(input.Session)
	if err != nil {
		return nil, err
	}
	return &struct{ Body view.Scene }{Body: view.Compose(sess.State())}, nil
}

func (h *APIHandler) GetPoints(ctx context.Context, input *SessionInput) (*PointsOutput, error) {
	sess, err := h.svc.Session(input.Session)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(view.GeoJSON(sess.State().Records))
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to encode points", err)
	}
	return &PointsOutput{ContentType: "application/geo+json", Body: body}, nil
}

func (h *APIHandler) GetPoint(ctx context.Context, input *IndexInput) (*struct{ Body RecordBody }, error) {
	sess, err := h.svc.Session(input.Session)
	if err != nil {
		return nil, err
	}
	st := sess.State()
	i, ok := view.Compose(st).Pick(input.Index)
	if !ok {
		return nil, huma.Error404NotFound("record not found")
	}
	r := st.Records[i]
	return &struct{ Body RecordBody }{Body: RecordBody{
		Index:    i,
		Position: view.Position(r),
		Radius:   view.Radius(r),
		Cells:    r.Map(),
	}}, nil
}

// GetPointTile encodes the session's points inside one tile as a vector tile.
func (h *APIHandler) GetPointTile(ctx context.Context, input *TileInput) (*PointsOutput, error) {
	sess, err := h.svc.Session(input.Session)
	if err != nil {
		return nil, err
	}
	t, err := tiles.ParseTile(input.Z, input.X, input.Y)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	body, err := tiles.PointTile(view.GeoJSON(sess.State().Records), t, view.PointLayerID)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to encode tile", err)
	}
	return &PointsOutput{ContentType: tiles.MVTContentType, Body: body}, nil
}
