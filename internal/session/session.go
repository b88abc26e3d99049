// Package session ties the snapshot tracker, normalizer and diff renderer
// together behind the pane contract a host drives.
package session

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dgnsrekt/diffjam/internal/classify"
	"github.com/dgnsrekt/diffjam/internal/diff"
	"github.com/dgnsrekt/diffjam/internal/gate"
	"github.com/dgnsrekt/diffjam/internal/normalize"
	"github.com/dgnsrekt/diffjam/internal/snapshot"
	"github.com/dgnsrekt/diffjam/internal/types"
)

// Pane is what a host asks of a diff view: should it be shown for this
// payload, take the payload, and hand back the rendered report.
type Pane interface {
	ShouldShow(p types.Payload) bool
	OnPayload(p types.Payload)
	Report() string
}

// Info is a point-in-time view of a session.
type Info struct {
	ID           string    `json:"id"`
	Key          string    `json:"key"`
	State        string    `json:"state"`
	Editable     bool      `json:"editable"`
	Visible      bool      `json:"visible"`
	Changed      bool      `json:"changed"`
	Observations int       `json:"observations"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Session is one diff view over a stream of payloads.
type Session struct {
	id         string
	key        string
	gate       *gate.Gate
	normalizer normalize.Normalizer

	// deliverMu serializes whole observe-then-render cycles.
	deliverMu sync.Mutex

	mu           sync.Mutex
	tracker      *snapshot.Tracker
	report       string
	previousText string
	currentText  string
	visible      bool
	observations int
	updatedAt    time.Time
}

var _ Pane = (*Session)(nil)

// New creates a session. All sessions built on the same gate share its state.
func New(id, key string, g *gate.Gate, n normalize.Normalizer, editable bool) *Session {
	return &Session{
		id:         id,
		key:        key,
		gate:       g,
		normalizer: n,
		tracker:    snapshot.NewTracker(g, editable),
	}
}

func (s *Session) ID() string  { return s.id }
func (s *Session) Key() string { return s.key }

// ShouldShow observes p and reports whether the diff view applies to it.
func (s *Session) ShouldShow(p types.Payload) bool {
	return s.observe(p, s.gate.IsOn(), false)
}

// OnPayload renders the report for p against the previous snapshot.
func (s *Session) OnPayload(p types.Payload) {
	s.render(p, s.gate.IsOn())
}

func (s *Session) observe(p types.Payload, gateOn, editable bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	visible := s.tracker.ObserveAs(p, gateOn, editable)
	if !p.Empty() && gateOn {
		s.observations++
		s.updatedAt = time.Now().UTC()
	}
	s.visible = visible
	return visible
}

func (s *Session) render(p types.Payload, gateOn bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pair := s.tracker.Pair()
	if !gateOn || pair.State != snapshot.Full || p.Empty() {
		s.report = diff.NoChanges
		s.previousText, s.currentText = "", ""
		return
	}

	s.previousText = s.text(pair.Previous)
	s.currentText = s.text(p)
	s.report = diff.Render(s.previousText, s.currentText)
	slog.Debug("Diff rendered", "session_id", s.id, "changed", s.report != diff.NoChanges)
}

// Report returns the last rendered report, or diff.NoChanges.
func (s *Session) Report() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.report == "" {
		return diff.NoChanges
	}
	return s.report
}

// ReportAs renders the last compared texts in the given format.
func (s *Session) ReportAs(format string) string {
	if format != diff.FormatUnified {
		return s.Report()
	}
	s.mu.Lock()
	prev, curr := s.previousText, s.currentText
	s.mu.Unlock()
	return diff.Unified(s.key+" (previous)", s.key+" (current)", prev, curr)
}

// Deliver runs one full observation: visibility check, then rendering when
// the view applies. Concurrent deliveries to one session run one at a time.
func (s *Session) Deliver(p types.Payload) bool {
	return s.DeliverAs(p, false)
}

// DeliverAs is Deliver for a payload shown in a pane that may be editable.
// Editable deliveries are recorded but never rendered. The gate is read once,
// so a toggle mid-delivery cannot split the decision.
func (s *Session) DeliverAs(p types.Payload, editable bool) bool {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	on := s.gate.IsOn()
	if !s.observe(p, on, editable) {
		return false
	}
	s.render(p, on)
	return true
}

// Reset forgets both snapshots and the last report.
func (s *Session) Reset() {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tracker.Reset()
	s.report = ""
	s.previousText, s.currentText = "", ""
	s.visible = false
	s.updatedAt = time.Now().UTC()
}

// Pair returns a copy of the tracked snapshots.
func (s *Session) Pair() snapshot.Pair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Pair()
}

func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		ID:           s.id,
		Key:          s.key,
		State:        s.tracker.Pair().State.String(),
		Editable:     s.tracker.Editable(),
		Visible:      s.visible,
		Changed:      s.report != "" && s.report != diff.NoChanges,
		Observations: s.observations,
		UpdatedAt:    s.updatedAt,
	}
}

// Text is the comparable form of p: normalized JSON when the body looks
// structured, the plain body otherwise. A non-nil error still comes with
// usable text; it only says normalization fell short.
func Text(n normalize.Normalizer, p types.Payload) (string, error) {
	if !classify.IsStructured(p) {
		return string(p.Body()), nil
	}
	return n.Normalize(p)
}

func (s *Session) text(p types.Payload) string {
	text, err := Text(s.normalizer, p)
	LogTextError(err, "session_id", s.id)
	return text
}

// LogTextError records why normalization fell back to plain text. A missing
// JSON boundary is routine and logs at debug; a parse failure logs at warn.
func LogTextError(err error, attrs ...any) {
	var parseErr *normalize.ParseError
	switch {
	case err == nil:
	case errors.Is(err, normalize.ErrNoJSONBoundary):
		slog.Debug("No JSON boundary in structured body, comparing as text", attrs...)
	case errors.As(err, &parseErr):
		slog.Warn("Problem parsing data in body, comparing unformatted", append(attrs, "offset", parseErr.Offset, "error", parseErr.Err)...)
	default:
		slog.Warn("Normalize failed, comparing unformatted", append(attrs, "error", err)...)
	}
}
