package api

import (
	"fmt"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// links maps operation paths to their RFC 8288 Link header values.
var links = map[string][]string{
	"/health": {
		`</api/v1/info>; rel="info"`,
		`</api/v1/basemaps>; rel="basemaps"`,
		`</api/v1/view/scene>; rel="scene"`,
	},
	"/api/v1/info": {
		`</health>; rel="health"`,
		`</api/v1/basemaps>; rel="basemaps"`,
	},
	"/api/v1/basemaps": {
		`</api/v1/view/scene>; rel="scene"`,
	},
	"/api/v1/basemaps/{id}": {
		`</api/v1/basemaps>; rel="collection"`,
	},
	"/api/v1/view/scene": {
		`</api/v1/view/points>; rel="points"`,
		`</api/v1/basemaps>; rel="basemaps"`,
	},
	"/api/v1/view/points": {
		`</api/v1/view/scene>; rel="scene"`,
		`</api/v1/query>; rel="search"`,
	},
	"/api/v1/view/tiles/{z}/{x}/{y}": {
		`</api/v1/view/points>; rel="alternate"`,
	},
	"/api/v1/view/points/{index}": {
		`</api/v1/view/points>; rel="collection"`,
	},
}

// LinkTransformer returns a Huma Transformer that injects RFC 8288 Link headers.
func LinkTransformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}

		for _, link := range links[op.Path] {
			ctx.AppendHeader("Link", link)
		}

		// Item endpoints get a self link
		if strings.Contains(op.Path, "{") {
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, ctx.URL().Path))
		}

		return v, nil
	}
}
