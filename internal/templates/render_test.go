package templates

import (
	"bytes"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/joeblew999/plat-csvmap/internal/basemap"
	"github.com/joeblew999/plat-csvmap/internal/view"
)

func TestEmbeddedViewerPage(t *testing.T) {
	t.Parallel()

	r, err := Embedded()
	if err != nil {
		t.Fatal(err)
	}
	reg := basemap.Builtin()
	page := NewViewerPage("csvmap", view.ComposePanel(reg, view.Initial(reg)))

	var buf bytes.Buffer
	if err := r.Viewer(&buf, page); err != nil {
		t.Fatal(err)
	}
	html := buf.String()
	for _, want := range []string{
		`<option value="carto-dark" selected>Carto Dark Matter</option>`,
		`<option value="osm-standard">OpenStreetMap Standard</option>`,
		`accept=".csv"`,
		`@get('/api/v1/view/events')`,
		`data-signals=`,
		`"circle-radius": scene.points.circleRadius`,
		`pending = points;`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("page lacks %s", want)
		}
	}
}

func TestStatusFragment(t *testing.T) {
	t.Parallel()

	r, err := Embedded()
	if err != nil {
		t.Fatal(err)
	}
	out, err := r.Render(FragmentStatus, view.Panel{Message: view.LoadedMessage(3)})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Loaded 3 records") {
		t.Fatalf("status = %q", out)
	}
}

func TestPanelFragment(t *testing.T) {
	t.Parallel()

	r, err := Embedded()
	if err != nil {
		t.Fatal(err)
	}
	reg := basemap.Builtin()
	out, err := r.Render(FragmentPanel, view.ComposePanel(reg, view.Initial(reg)))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`id="panel"`, `id="status"`, `<option value="carto-dark" selected>`} {
		if !strings.Contains(out, want) {
			t.Errorf("panel lacks %s", want)
		}
	}
}

func TestNewFromFS(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"fragments/a.html": {Data: []byte(`{{define "a"}}{{.}}{{end}}`)},
		"pages/b.html":     {Data: []byte(`{{define "b"}}<b>{{template "a" .}}</b>{{end}}`)},
	}
	r, err := New(fsys)
	if err != nil {
		t.Fatal(err)
	}
	got, err := r.Render("b", "x")
	if err != nil {
		t.Fatal(err)
	}
	if got != "<b>x</b>" {
		t.Fatalf("render = %q", got)
	}
}
