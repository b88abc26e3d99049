// Package controller implements the operations behind the HTTP API on top of
// the session registry and the shared toggle gate.
package controller

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/dgnsrekt/diffjam/internal/diff"
	"github.com/dgnsrekt/diffjam/internal/gate"
	"github.com/dgnsrekt/diffjam/internal/httpmsg"
	"github.com/dgnsrekt/diffjam/internal/normalize"
	"github.com/dgnsrekt/diffjam/internal/session"
	"github.com/dgnsrekt/diffjam/internal/types"
)

// GateState is the toggle gate as shown to clients.
type GateState struct {
	On    bool   `json:"on"`
	Label string `json:"label"`
}

// DeliverRequest feeds one raw HTTP message into a session. Raw and RawBase64
// are mutually exclusive. A nil BodyOffset means "find the blank line".
type DeliverRequest struct {
	Key        string
	Raw        string
	RawBase64  string
	BodyOffset *int
	IsRequest  bool
	Editable   bool
}

// DiffRequest compares two messages without touching any session.
type DiffRequest struct {
	Previous string
	Current  string
	// RawBody treats both inputs as bare bodies with no header section.
	RawBody bool
	Format  string
	Lenient bool
}

// Report is a rendered report in a given format.
type Report struct {
	SessionID string    `json:"session_id,omitempty"`
	Format    string    `json:"format"`
	Changed   bool      `json:"changed"`
	Report    string    `json:"report"`
	Warnings  []string  `json:"warnings,omitempty"` // inputs compared unformatted
	At        time.Time `json:"at"`
}

// Service wraps the session registry and gate.
type Service struct {
	registry   *session.Registry
	gate       *gate.Gate
	normalizer normalize.Normalizer
	tabs       TabLister
}

// TabLister lists the browser tabs capture is attached to.
type TabLister interface {
	List() []types.TabInfo
}

func NewService(registry *session.Registry, g *gate.Gate, n normalize.Normalizer) *Service {
	return &Service{registry: registry, gate: g, normalizer: n}
}

// WithTabs sets where ListTabs reads from. Without it no tabs are listed.
func (s *Service) WithTabs(tabs TabLister) *Service {
	s.tabs = tabs
	return s
}

// ListTabs returns the attached browser tabs, never nil.
func (s *Service) ListTabs(ctx context.Context) ([]types.TabInfo, error) {
	if s.tabs == nil {
		return []types.TabInfo{}, nil
	}
	tabs := s.tabs.List()
	if tabs == nil {
		tabs = []types.TabInfo{}
	}
	return tabs, nil
}

func (s *Service) requireNonEmpty(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return newError(CodeValidation, fieldName+" is required", nil)
	}
	return nil
}

func (s *Service) checkFormat(format string) (string, error) {
	switch format {
	case "", diff.FormatGrouped:
		return diff.FormatGrouped, nil
	case diff.FormatUnified:
		return diff.FormatUnified, nil
	}
	return "", newError(CodeValidation, fmt.Sprintf("unknown format %q (want %s or %s)", format, diff.FormatGrouped, diff.FormatUnified), nil)
}

func (s *Service) session(id string) (*session.Session, error) {
	if err := s.requireNonEmpty(id, "session_id"); err != nil {
		return nil, err
	}
	sess, ok := s.registry.Get(strings.TrimSpace(id))
	if !ok {
		return nil, newError(CodeSessionNotFound, "session "+id+" not found", nil)
	}
	return sess, nil
}

func (s *Service) GateStatus(ctx context.Context) (GateState, error) {
	return GateState{On: s.gate.IsOn(), Label: s.gate.Label()}, nil
}

// ToggleGate flips the gate for every session at once.
func (s *Service) ToggleGate(ctx context.Context) (GateState, error) {
	on := s.gate.Toggle()
	return GateState{On: on, Label: s.gate.Label()}, nil
}

func (s *Service) ListSessions(ctx context.Context) ([]session.Info, error) {
	return s.registry.List(), nil
}

func (s *Service) GetSession(ctx context.Context, id string) (session.Info, error) {
	sess, err := s.session(id)
	if err != nil {
		return session.Info{}, err
	}
	return sess.Info(), nil
}

func (s *Service) GetReport(ctx context.Context, id, format string) (Report, error) {
	format, err := s.checkFormat(format)
	if err != nil {
		return Report{}, err
	}
	sess, err := s.session(id)
	if err != nil {
		return Report{}, err
	}
	text := sess.ReportAs(format)
	return Report{
		SessionID: sess.ID(),
		Format:    format,
		Changed:   text != diff.NoChanges,
		Report:    text,
		At:        sess.Info().UpdatedAt,
	}, nil
}

// ResetSession forgets both snapshots of a session.
func (s *Service) ResetSession(ctx context.Context, id string) (session.Info, error) {
	sess, err := s.session(id)
	if err != nil {
		return session.Info{}, err
	}
	sess.Reset()
	return sess.Info(), nil
}

func (s *Service) Deliver(ctx context.Context, req DeliverRequest) (session.Result, error) {
	if err := s.requireNonEmpty(req.Key, "key"); err != nil {
		return session.Result{}, err
	}
	raw, err := decodeRaw(req.Raw, req.RawBase64)
	if err != nil {
		return session.Result{}, err
	}

	offset := httpmsg.FindBodyOffset(raw)
	if req.BodyOffset != nil {
		offset = *req.BodyOffset
		if offset < 0 || offset > len(raw) {
			return session.Result{}, newError(CodeValidation, fmt.Sprintf("body_offset %d outside message of %d bytes", offset, len(raw)), nil)
		}
	}

	p := types.NewPayload(raw, offset, req.IsRequest)
	return s.registry.Deliver(strings.TrimSpace(req.Key), p, req.Editable), nil
}

// Diff renders previous against current the same way a session does once
// both snapshots are filled, ignoring the gate.
func (s *Service) Diff(ctx context.Context, req DiffRequest) (Report, error) {
	format, err := s.checkFormat(req.Format)
	if err != nil {
		return Report{}, err
	}
	n := s.normalizer
	if req.Lenient {
		n.Lenient = true
	}

	var warnings []string
	texts := [2]string{}
	for i, raw := range [2]string{req.Previous, req.Current} {
		side := [2]string{"previous", "current"}[i]
		text, err := session.Text(n, messagePayload([]byte(raw), req.RawBody))
		if err != nil {
			session.LogTextError(err, "side", side)
			warnings = append(warnings, side+": "+err.Error())
		}
		texts[i] = text
	}
	previous, current := texts[0], texts[1]

	var text string
	if req.Previous == req.Current {
		text = diff.NoChanges
	} else {
		text = diff.RenderFormat(format, previous, current)
	}
	return Report{
		Format:  format,
		Changed: text != diff.NoChanges,
		Report:   text,
		Warnings: warnings,
		At:       time.Now().UTC(),
	}, nil
}

func messagePayload(raw []byte, rawBody bool) types.Payload {
	if rawBody {
		return types.NewPayload(raw, 0, false)
	}
	return types.NewPayload(raw, httpmsg.FindBodyOffset(raw), false)
}

func decodeRaw(raw, rawBase64 string) ([]byte, error) {
	if raw != "" && rawBase64 != "" {
		return nil, newError(CodeValidation, "raw and raw_base64 are mutually exclusive", nil)
	}
	if rawBase64 == "" {
		return []byte(raw), nil
	}
	data, err := base64.StdEncoding.DecodeString(rawBase64)
	if err != nil {
		return nil, newError(CodeDecodeFailure, "raw_base64 is not valid base64", err)
	}
	return data, nil
}
