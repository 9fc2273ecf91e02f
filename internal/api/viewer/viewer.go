// Package viewer serves the Datastar endpoints behind the control panel.
package viewer

import (
	"context"
	"log/slog"
	"mime/multipart"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-csvmap/internal/api"
	"github.com/joeblew999/plat-csvmap/internal/basemap"
	"github.com/joeblew999/plat-csvmap/internal/humastar"
	"github.com/joeblew999/plat-csvmap/internal/templates"
	"github.com/joeblew999/plat-csvmap/internal/view"
)

// SceneChanged is the browser event telling the map to redraw.
const SceneChanged = "scene-changed"

// FileField is the multipart field holding the selected file.
const FileField = "file"

// Handler serves basemap selection, dataset import and the event stream.
type Handler struct {
	humastar.Handler
	svc       *api.Services
	maxUpload int64
}

// NewHandler creates the control panel handler. maxUpload bounds the
// request body of a dataset import in bytes.
func NewHandler(svc *api.Services, renderer *templates.Renderer, log *slog.Logger, maxUpload int64) *Handler {
	return &Handler{
		Handler:   humastar.Handler{Renderer: renderer, Log: log},
		svc:       svc,
		maxUpload: maxUpload,
	}
}

func (h *Handler) RegisterRoutes(a huma.API) {
	huma.Post(a, "/api/v1/view/basemap", h.SelectBasemap, huma.OperationTags("viewer"))
	huma.Register(a, huma.Operation{
		OperationID:  "import-dataset",
		Method:       "POST",
		Path:         "/api/v1/view/dataset",
		Summary:      "Import a CSV dataset",
		Tags:         []string{"viewer"},
		MaxBodyBytes: h.maxUpload,
	}, h.ImportDataset)
	huma.Get(a, "/api/v1/view/events", h.Events, huma.OperationTags("viewer"))
}

type SelectBasemapInput struct {
	api.SessionInput
	humastar.SignalsInput
}

// SelectBasemap switches the active basemap to the "basemap" signal.
func (h *Handler) SelectBasemap(ctx context.Context, input *SelectBasemapInput) (*huma.StreamResponse, error) {
	sess, err := h.svc.Session(input.Session)
	if err != nil {
		return nil, err
	}
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	if !signals.Has("basemap") {
		return nil, huma.Error400BadRequest("missing basemap signal")
	}
	id := signals.String("basemap")

	return h.Stream(func(sse humastar.SSE) {
		st, err := sess.SelectBasemap(id)
		if err != nil {
			// Keep the dropdown on the basemap that is still active.
			sse.Signals(map[string]any{"basemap": st.Basemap.ID})
			sse.Error(err.Error())
			return
		}
		h.sendPanel(sse, sess.Registry(), st)
	}), nil
}

type ImportDatasetInput struct {
	api.SessionInput
	RawBody multipart.Form
}

// ImportDataset parses the uploaded file and replaces the session dataset.
// No file is a no-op. A file that cannot be read keeps the previous
// dataset; the failure is only logged.
func (h *Handler) ImportDataset(ctx context.Context, input *ImportDatasetInput) (*huma.StreamResponse, error) {
	sess, err := h.svc.Session(input.Session)
	if err != nil {
		return nil, err
	}
	files := input.RawBody.File[FileField]

	return h.Stream(func(sse humastar.SSE) {
		if len(files) == 0 {
			return
		}
		fh := files[0]
		log := h.Logger().With("session", sess.ID, "file", fh.Filename, "size", fh.Size)

		f, err := fh.Open()
		if err != nil {
			log.Error("open upload", "error", err)
			return
		}
		defer f.Close()

		st, err := sess.Load(sse.Context(), f)
		if err != nil {
			log.Error("load dataset", "error", err)
			return
		}
		h.sendPanel(sse, sess.Registry(), st)
	}), nil
}

// Events streams panel updates and scene notifications for one session
// until the page goes away or the session is evicted.
func (h *Handler) Events(ctx context.Context, input *api.SessionInput) (*huma.StreamResponse, error) {
	sess, err := h.svc.Session(input.Session)
	if err != nil {
		return nil, err
	}
	return h.Stream(func(sse humastar.SSE) {
		ch := sess.Events().Subscribe()
		defer sess.Events().Unsubscribe(ch)

		st := sess.State()
		sent := st.Revision
		// the page may predate this stream, so resync the whole panel
		p := view.ComposePanel(sess.Registry(), st)
		sse.Signals(p.Signals())
		if html := h.Render(templates.FragmentPanel, p); html != "" {
			sse.Replace(html, "#panel")
		}
		sse.DispatchCustomEvent(SceneChanged, map[string]any{"revision": sent})

		for {
			select {
			case <-sse.Context().Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				st := sess.State()
				if st.Revision == sent {
					continue // coalesced into an earlier notification
				}
				sent = st.Revision
				h.sendPanel(sse, sess.Registry(), st)
				sse.DispatchCustomEvent(SceneChanged, map[string]any{
					"revision": st.Revision,
					"kind":     ev.Kind,
				})
			}
		}
	}), nil
}

func (h *Handler) sendPanel(sse humastar.SSE, reg *basemap.Registry, st *view.State) {
	p := view.ComposePanel(reg, st)
	sse.Signals(p.Signals())
	if html := h.Render(templates.FragmentStatus, p); html != "" {
		sse.Replace(html, "#status")
	}
}
