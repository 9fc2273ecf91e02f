package view

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/joeblew999/plat-csvmap/internal/basemap"
	"github.com/joeblew999/plat-csvmap/internal/ingest"
)

// Session is the view of one open page.
type Session struct {
	ID string

	registry *basemap.Registry
	state    atomic.Pointer[State]
	bus      *Bus
	log      *slog.Logger
}

// NewSession starts a session at the initial state.
func NewSession(id string, reg *basemap.Registry, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	s := &Session{
		ID:       id,
		registry: reg,
		bus:      NewBus(),
		log:      log.With("session", id),
	}
	s.state.Store(Initial(reg))
	return s
}

// State returns the current revision.
func (s *Session) State() *State { return s.state.Load() }

// Registry returns the basemaps this session can choose from.
func (s *Session) Registry() *basemap.Registry { return s.registry }

// Events returns the session's revision bus.
func (s *Session) Events() *Bus { return s.bus }

// commit installs the revision built by next from the current state and
// announces it. A concurrent commit makes next run again on the newer state.
func (s *Session) commit(kind string, next func(*State) *State) *State {
	for {
		cur := s.state.Load()
		ns := next(cur)
		if s.state.CompareAndSwap(cur, ns) {
			s.bus.Publish(Event{Revision: ns.Revision, Kind: kind})
			return ns
		}
	}
}

// SelectBasemap makes the basemap with the given id active. An unknown id
// leaves the state untouched.
func (s *Session) SelectBasemap(id string) (*State, error) {
	b, err := s.registry.Lookup(id)
	if err != nil {
		return s.State(), err
	}
	ns := s.commit(KindBasemap, func(cur *State) *State { return cur.WithBasemap(b) })
	s.log.Debug("basemap selected", "basemap", id, "revision", ns.Revision)
	return ns, nil
}

// Load parses r and, on success, replaces the dataset wholesale. A failed
// parse leaves the previous dataset in place. When two loads overlap, the
// one that finishes last wins.
func (s *Session) Load(ctx context.Context, r io.Reader) (*State, error) {
	start := time.Now()
	var res ingest.Result
	select {
	case res = <-ingest.Start(ctx, r):
	case <-ctx.Done():
		return s.State(), ctx.Err()
	}
	if res.Err != nil {
		return s.State(), fmt.Errorf("view: load dataset: %w", res.Err)
	}
	ns := s.commit(KindDataset, func(cur *State) *State { return cur.WithRecords(res.Records) })
	s.log.Info("dataset loaded",
		"records", len(res.Records),
		"revision", ns.Revision,
		"took", time.Since(start))
	return ns, nil
}

// Close releases the session's subscribers.
func (s *Session) Close() { s.bus.Close() }

// Sessions is the table of open sessions. Sessions idle longer than the
// configured TTL are evicted.
type Sessions struct {
	registry *basemap.Registry
	cache    *expirable.LRU[string, *Session]
	log      *slog.Logger
}

// NewSessions creates a table holding at most size sessions.
func NewSessions(reg *basemap.Registry, size int, ttl time.Duration, log *slog.Logger) *Sessions {
	if log == nil {
		log = slog.Default()
	}
	ss := &Sessions{registry: reg, log: log}
	ss.cache = expirable.NewLRU[string, *Session](size, func(id string, s *Session) {
		s.Close()
		log.Debug("session evicted", "session", id)
	}, ttl)
	return ss
}

// Open creates a fresh session.
func (ss *Sessions) Open() *Session {
	s := NewSession(uuid.NewString(), ss.registry, ss.log)
	ss.cache.Add(s.ID, s)
	return s
}

// Get returns a live session and refreshes its idle timer.
func (ss *Sessions) Get(id string) (*Session, bool) {
	s, ok := ss.cache.Get(id)
	if !ok {
		return nil, false
	}
	ss.cache.Add(id, s)
	return s, true
}

// Len reports the number of live sessions.
func (ss *Sessions) Len() int { return ss.cache.Len() }
