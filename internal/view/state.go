// Package view holds per-session view state and derives the scene the map
// engine draws from it.
//
// A [Session] owns one immutable [State] per revision. Every user action
// builds a new State and swaps it in; nothing mutates a State after it has
// been installed. [Compose] turns a State into a [Scene] without side effects.
package view

import (
	"github.com/joeblew999/plat-csvmap/internal/basemap"
	"github.com/joeblew999/plat-csvmap/internal/ingest"
)

// State is one revision of a session's view.
type State struct {
	Revision uint64
	Records  ingest.Records
	Basemap  basemap.Basemap
	// Loaded is set once any dataset load has completed.
	Loaded bool
}

// Initial returns revision zero: no records and the registry's first basemap.
func Initial(reg *basemap.Registry) *State {
	return &State{Records: ingest.Records{}, Basemap: reg.First()}
}

// WithBasemap returns the next revision with b active.
func (s *State) WithBasemap(b basemap.Basemap) *State {
	return &State{Revision: s.Revision + 1, Records: s.Records, Basemap: b, Loaded: s.Loaded}
}

// WithRecords returns the next revision with recs as the dataset.
func (s *State) WithRecords(recs ingest.Records) *State {
	return &State{Revision: s.Revision + 1, Records: recs, Basemap: s.Basemap, Loaded: true}
}
