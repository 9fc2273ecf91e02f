package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

type InfoHandler struct {
	version  string
	sessions func() int
}

func NewInfoHandler(version string, sessions func() int) *InfoHandler {
	return &InfoHandler{version: version, sessions: sessions}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string   `json:"name" doc:"Service name"`
	Version  string   `json:"version" doc:"Service version"`
	Sessions int      `json:"sessions" doc:"Open page sessions"`
	Features []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:     "plat-csvmap",
		Version:  h.version,
		Sessions: h.sessions(),
		Features: []string{"csv", "vector-style", "xyz", "wms", "duckdb"},
	}}, nil
}
