package view

import (
	"fmt"

	"github.com/joeblew999/plat-csvmap/internal/basemap"
	"github.com/joeblew999/plat-csvmap/internal/ingest"
)

// Option is one entry of the basemap dropdown.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// Panel is the control panel for a state.
type Panel struct {
	Basemap  string
	Options  []Option
	Accept   string
	Message  string // empty until a load has brought in records
	Count    int
	Revision uint64
}

// ComposePanel derives the control panel from the registry and s.
func ComposePanel(reg *basemap.Registry, s *State) Panel {
	list := reg.List()
	p := Panel{
		Basemap:  s.Basemap.ID,
		Options:  make([]Option, len(list)),
		Accept:   ingest.Extension,
		Count:    len(s.Records),
		Revision: s.Revision,
	}
	for i, b := range list {
		p.Options[i] = Option{Value: b.ID, Label: b.Name, Selected: b.ID == s.Basemap.ID}
	}
	if s.Loaded && len(s.Records) > 0 {
		p.Message = LoadedMessage(len(s.Records))
	}
	return p
}

// LoadedMessage is the success line shown after a load.
func LoadedMessage(n int) string {
	return fmt.Sprintf("Loaded %d records", n)
}

// Signals is the Datastar signal form of the panel.
func (p Panel) Signals() map[string]any {
	return map[string]any{
		"basemap":  p.Basemap,
		"message":  p.Message,
		"count":    p.Count,
		"revision": p.Revision,
	}
}
