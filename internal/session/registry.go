package session

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dgnsrekt/diffjam/internal/diff"
	"github.com/dgnsrekt/diffjam/internal/gate"
	"github.com/dgnsrekt/diffjam/internal/normalize"
	"github.com/dgnsrekt/diffjam/internal/types"
	"github.com/google/uuid"
)

// Event is published whenever a delivery produces a visible report.
type Event struct {
	SessionID string    `json:"session_id"`
	Key       string    `json:"key"`
	Report    string    `json:"report"`
	Changed   bool      `json:"changed"`
	At        time.Time `json:"at"`
}

// Listener receives events synchronously; it must not block.
type Listener func(Event)

// Result is the outcome of one delivery.
type Result struct {
	SessionID string `json:"session_id"`
	Visible   bool   `json:"visible"`
	Report    string `json:"report"`
}

// Registry maps session keys to sessions. Keys are free-form; capture uses
// "METHOD URL".
type Registry struct {
	gate       *gate.Gate
	normalizer normalize.Normalizer

	mu        sync.RWMutex
	sessions  map[string]*Session // id -> session
	listeners []Listener
}

func NewRegistry(g *gate.Gate, n normalize.Normalizer) *Registry {
	return &Registry{
		gate:       g,
		normalizer: n,
		sessions:   make(map[string]*Session),
	}
}

// SessionID is the stable ID for a key.
func SessionID(key string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

// Subscribe adds a listener for visible reports.
func (r *Registry) Subscribe(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// Open returns the session for key, creating it when needed. A session
// created editable stays editable; Deliver also honours the flag per call.
func (r *Registry) Open(key string, editable bool) *Session {
	id := SessionID(key)

	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s
	}
	s = New(id, key, r.gate, r.normalizer, editable)
	r.sessions[id] = s
	slog.Info("Session opened", "session_id", id, "key", key, "editable", editable)
	return s
}

// Deliver feeds p to the session for key and publishes the report when the
// diff view applies. An editable delivery is tracked but never visible.
func (r *Registry) Deliver(key string, p types.Payload, editable bool) Result {
	s := r.Open(key, editable)
	res := Result{SessionID: s.ID()}
	if !s.DeliverAs(p, editable) {
		res.Report = s.Report()
		return res
	}

	res.Visible = true
	res.Report = s.Report()
	r.publish(Event{
		SessionID: s.ID(),
		Key:       key,
		Report:    res.Report,
		Changed:   res.Report != diff.NoChanges,
		At:        time.Now().UTC(),
	})
	return res
}

func (r *Registry) publish(evt Event) {
	r.mu.RLock()
	listeners := append([]Listener(nil), r.listeners...)
	r.mu.RUnlock()
	for _, l := range listeners {
		l(evt)
	}
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Remove drops a session.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

// List returns session infos, most recently updated first.
func (r *Registry) List() []Info {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	infos := make([]Info, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].UpdatedAt.Equal(infos[j].UpdatedAt) {
			return infos[i].Key < infos[j].Key
		}
		return infos[i].UpdatedAt.After(infos[j].UpdatedAt)
	})
	return infos
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
