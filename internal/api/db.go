package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-csvmap/internal/db"
)

// DBHandler runs SQL over the session's loaded records.
type DBHandler struct {
	svc *Services
}

// NewDBHandler creates a new database handler.
func NewDBHandler(svc *Services) *DBHandler {
	return &DBHandler{svc: svc}
}

// RegisterRoutes registers database routes with Huma.
func (h *DBHandler) RegisterRoutes(api huma.API) {
	huma.Post(api, "/api/v1/query", h.Query, huma.OperationTags("query"))
}

// QueryInput is the input for SQL queries.
type QueryInput struct {
	SessionInput
	Body struct {
		Query string `json:"query" required:"true" minLength:"1" doc:"SQL query over the records table" example:"SELECT count(*) FROM records"`
	}
}

// QueryBody is the response for SQL queries.
type QueryBody struct {
	Columns []string         `json:"columns" doc:"Column names"`
	Rows    []map[string]any `json:"rows" doc:"Query results"`
	Count   int              `json:"count" doc:"Number of rows returned"`
}

// Query executes a SQL query against an in-memory copy of the records.
func (h *DBHandler) Query(ctx context.Context, input *QueryInput) (*struct{ Body QueryBody }, error) {
	sess, err := h.svc.Session(input.Session)
	if err != nil {
		return nil, err
	}
	res, err := db.Query(ctx, sess.State().Records, input.Body.Query)
	if err != nil {
		return nil, huma.Error400BadRequest("Query failed: " + err.Error())
	}
	return &struct{ Body QueryBody }{Body: QueryBody{
		Columns: res.Columns,
		Rows:    res.Rows,
		Count:   len(res.Rows),
	}}, nil
}
