// Package api exposes the gate, the diff sessions and the report stream over
// HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/dgnsrekt/diffjam/internal/controller"
	"github.com/dgnsrekt/diffjam/internal/relay"
	"github.com/dgnsrekt/diffjam/internal/session"
	"github.com/dgnsrekt/diffjam/internal/types"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Service interface {
	GateStatus(ctx context.Context) (controller.GateState, error)
	ToggleGate(ctx context.Context) (controller.GateState, error)
	ListSessions(ctx context.Context) ([]session.Info, error)
	GetSession(ctx context.Context, id string) (session.Info, error)
	GetReport(ctx context.Context, id, format string) (controller.Report, error)
	ResetSession(ctx context.Context, id string) (session.Info, error)
	Deliver(ctx context.Context, req controller.DeliverRequest) (session.Result, error)
	Diff(ctx context.Context, req controller.DiffRequest) (controller.Report, error)
	ListTabs(ctx context.Context) ([]types.TabInfo, error)
}

type sessionIDInput struct {
	SessionID string `path:"session_id"`
}

type sessionInfoOutput struct {
	Body session.Info
}

type reportOutput struct {
	Body controller.Report
}

// NewServer builds the router. broker may be nil, in which case the stream
// routes are not mounted.
func NewServer(svc Service, broker *relay.Broker) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("Diff JAM API", "1.0.0")
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	router.Get("/docs", htmlPage(docsHTML))
	router.Get("/docs/stream", htmlPage(streamDocsHTML))

	if broker != nil {
		router.Get(streamPathPrefix, relay.SSEHandler(broker))
		router.Get(streamPathPrefix+"/ws", relay.WSHandler(broker))
	}

	registerGateHandlers(api, svc)
	registerSessionHandlers(api, svc)
	registerDiffHandlers(api, svc)
	registerTabHandlers(api, svc)

	return router
}

func htmlPage(page string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(page)); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	}
}

func registerGateHandlers(api huma.API, svc Service) {
	type gateOutput struct {
		Body controller.GateState
	}
	huma.Register(api, huma.Operation{OperationID: "get-gate", Method: http.MethodGet, Path: "/api/v1/gate", Summary: "Get the Diff JAM toggle state", Tags: []string{"Gate"}},
		func(ctx context.Context, input *struct{}) (*gateOutput, error) {
			st, err := svc.GateStatus(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			return &gateOutput{Body: st}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "toggle-gate", Method: http.MethodPost, Path: "/api/v1/gate/toggle", Summary: "Flip the Diff JAM toggle for all sessions", Tags: []string{"Gate"}},
		func(ctx context.Context, input *struct{}) (*gateOutput, error) {
			st, err := svc.ToggleGate(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			return &gateOutput{Body: st}, nil
		})
}

func registerTabHandlers(api huma.API, svc Service) {
	type listTabsOutput struct {
		Body struct {
			Tabs []types.TabInfo `json:"tabs"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-tabs", Method: http.MethodGet, Path: "/api/v1/tabs", Summary: "List browser tabs attached for capture", Tags: []string{"Capture"}},
		func(ctx context.Context, input *struct{}) (*listTabsOutput, error) {
			tabs, err := svc.ListTabs(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &listTabsOutput{}
			out.Body.Tabs = tabs
			return out, nil
		})
}

func registerSessionHandlers(api huma.API, svc Service) {
	type listSessionsOutput struct {
		Body struct {
			Sessions []session.Info `json:"sessions"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-sessions", Method: http.MethodGet, Path: "/api/v1/sessions", Summary: "List diff sessions, most recent first", Tags: []string{"Sessions"}},
		func(ctx context.Context, input *struct{}) (*listSessionsOutput, error) {
			infos, err := svc.ListSessions(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &listSessionsOutput{}
			out.Body.Sessions = infos
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "get-session", Method: http.MethodGet, Path: "/api/v1/sessions/{session_id}", Summary: "Get one session", Tags: []string{"Sessions"}},
		func(ctx context.Context, input *sessionIDInput) (*sessionInfoOutput, error) {
			info, err := svc.GetSession(ctx, input.SessionID)
			if err != nil {
				return nil, mapErr(err)
			}
			return &sessionInfoOutput{Body: info}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "get-session-report", Method: http.MethodGet, Path: "/api/v1/sessions/{session_id}/report", Summary: "Get the last report of a session", Tags: []string{"Sessions"}},
		func(ctx context.Context, input *struct {
			SessionID string `path:"session_id"`
			Format    string `query:"format" default:"grouped" enum:"grouped,unified" doc:"Report layout"`
		}) (*reportOutput, error) {
			rep, err := svc.GetReport(ctx, input.SessionID, input.Format)
			if err != nil {
				return nil, mapErr(err)
			}
			return &reportOutput{Body: rep}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "reset-session", Method: http.MethodDelete, Path: "/api/v1/sessions/{session_id}", Summary: "Forget both snapshots of a session", Tags: []string{"Sessions"}},
		func(ctx context.Context, input *sessionIDInput) (*sessionInfoOutput, error) {
			info, err := svc.ResetSession(ctx, input.SessionID)
			if err != nil {
				return nil, mapErr(err)
			}
			return &sessionInfoOutput{Body: info}, nil
		})

	type deliverOutput struct {
		Body session.Result
	}
	huma.Register(api, huma.Operation{OperationID: "deliver-payload", Method: http.MethodPost, Path: "/api/v1/sessions/deliver", Summary: "Feed one raw HTTP message into a session", Tags: []string{"Sessions"}},
		func(ctx context.Context, input *struct {
			Body struct {
				Key        string `json:"key" required:"true" doc:"Session key, e.g. \"GET https://api.example.com/v1/orders\""`
				Raw        string `json:"raw,omitempty" doc:"Raw message text"`
				RawBase64  string `json:"raw_base64,omitempty" doc:"Raw message bytes, base64"`
				BodyOffset *int   `json:"body_offset,omitempty" doc:"Start of the body; found from the blank line when omitted"`
				IsRequest  bool   `json:"is_request,omitempty"`
				Editable   bool   `json:"editable,omitempty"`
			}
		}) (*deliverOutput, error) {
			res, err := svc.Deliver(ctx, controller.DeliverRequest{
				Key:        input.Body.Key,
				Raw:        input.Body.Raw,
				RawBase64:  input.Body.RawBase64,
				BodyOffset: input.Body.BodyOffset,
				IsRequest:  input.Body.IsRequest,
				Editable:   input.Body.Editable,
			})
			if err != nil {
				return nil, mapErr(err)
			}
			return &deliverOutput{Body: res}, nil
		})
}

func registerDiffHandlers(api huma.API, svc Service) {
	huma.Register(api, huma.Operation{OperationID: "diff", Method: http.MethodPost, Path: "/api/v1/diff", Summary: "Compare two messages without a session", Tags: []string{"Diff"}},
		func(ctx context.Context, input *struct {
			Body struct {
				Previous string `json:"previous"`
				Current  string `json:"current"`
				RawBody  bool   `json:"raw_body,omitempty" doc:"Inputs are bare bodies"`
				Format   string `json:"format,omitempty" enum:"grouped,unified"`
				Lenient  bool   `json:"lenient,omitempty" doc:"Accept comments and trailing commas"`
			}
		}) (*reportOutput, error) {
			rep, err := svc.Diff(ctx, controller.DiffRequest{
				Previous: input.Body.Previous,
				Current:  input.Body.Current,
				RawBody:  input.Body.RawBody,
				Format:   input.Body.Format,
				Lenient:  input.Body.Lenient,
			})
			if err != nil {
				return nil, mapErr(err)
			}
			return &reportOutput{Body: rep}, nil
		})
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *controller.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case controller.CodeValidation:
			return huma.Error400BadRequest(coded.Message)
		case controller.CodeSessionNotFound:
			return huma.Error404NotFound(coded.Message)
		case controller.CodeDecodeFailure:
			return huma.Error422UnprocessableEntity(coded.Message)
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	return huma.Error500InternalServerError(err.Error())
}
