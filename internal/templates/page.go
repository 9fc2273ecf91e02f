package templates

import (
	"encoding/json"
	"io"

	"github.com/joeblew999/plat-csvmap/internal/view"
)

// Template names.
const (
	PageViewer     = "viewer"
	FragmentPanel  = "panel"
	FragmentStatus = "status"
)

// ViewerPage is the data behind the viewer page.
type ViewerPage struct {
	Title        string
	Panel        view.Panel
	Signals      string
	PointLayerID string
	View         view.Camera
}

// NewViewerPage builds the page for a session's current state.
func NewViewerPage(title string, p view.Panel) ViewerPage {
	signals, _ := json.Marshal(p.Signals())
	return ViewerPage{
		Title:        title,
		Panel:        p,
		Signals:      string(signals),
		PointLayerID: view.PointLayerID,
		View:         view.InitialView,
	}
}

// Viewer writes the full page.
func (r *Renderer) Viewer(w io.Writer, page ViewerPage) error {
	return r.Execute(w, PageViewer, page)
}
