package capture

import (
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/chromedp/cdproto/network"
	"github.com/dgnsrekt/diffjam/internal/config"
	"github.com/dgnsrekt/diffjam/internal/diff"
	"github.com/dgnsrekt/diffjam/internal/httpmsg"
	"github.com/dgnsrekt/diffjam/internal/session"
	"github.com/dgnsrekt/diffjam/internal/storage"
	"github.com/dgnsrekt/diffjam/internal/types"
)

// Sink receives captured responses. *session.Registry satisfies it.
type Sink interface {
	Deliver(key string, p types.Payload, editable bool) session.Result
}

// Journal stores raw captures. Optional.
type Journal interface {
	WriteCapture(rec *types.HTTPCapture) error
}

// HTTPCapture correlates CDP network events into complete responses and
// feeds them to diff sessions as read-only response panes.
type HTTPCapture struct {
	sink         Sink
	journal      Journal
	tabRegistry  types.TabInfoProvider
	watch        *config.WatchConfig
	maxBodyBytes int

	pending   map[string]*pendingExchange
	pendingMu sync.Mutex

	// deliveries tracks body fetches still running, for Close.
	deliveries sync.WaitGroup
	done       chan struct{}

	// lastInKey holds, per session key, a channel closed once the most
	// recently finished exchange has been delivered. Bodies are fetched in
	// parallel but each key delivers in loading-finished order.
	lastInKey map[string]chan struct{}
	orderMu   sync.Mutex
}

type pendingExchange struct {
	types.PendingRequest
	perTab bool
}

// NewHTTPCapture starts the stale-request sweeper. journal may be nil.
func NewHTTPCapture(sink Sink, journal Journal, tabRegistry types.TabInfoProvider, watch *config.WatchConfig, maxBodyBytes int) *HTTPCapture {
	h := &HTTPCapture{
		sink:         sink,
		journal:      journal,
		tabRegistry:  tabRegistry,
		watch:        watch,
		maxBodyBytes: maxBodyBytes,
		pending:      make(map[string]*pendingExchange),
		done:         make(chan struct{}),
		lastInKey:    make(map[string]chan struct{}),
	}
	go h.cleanupLoop()
	return h
}

// Close stops the sweeper and waits for in-flight deliveries.
func (h *HTTPCapture) Close() {
	close(h.done)
	h.deliveries.Wait()
}

func (h *HTTPCapture) OnRequestWillBeSent(tabID string, ev *network.EventRequestWillBeSent) {
	rule, ok := h.watch.Match(ev.Request.Method, ev.Request.URL)
	if !ok {
		return
	}

	capture := &types.HTTPCapture{
		Timestamp: time.Now().UTC(),
		RequestID: string(ev.RequestID),
		TabID:     tabID,
		URL:       ev.Request.URL,
		Method:    ev.Request.Method,
	}

	h.pendingMu.Lock()
	h.pending[string(ev.RequestID)] = &pendingExchange{
		PendingRequest: types.PendingRequest{Capture: capture, Timestamp: time.Now()},
		perTab:         rule.PerTab,
	}
	h.pendingMu.Unlock()
}

func (h *HTTPCapture) OnResponseReceived(tabID string, ev *network.EventResponseReceived) {
	h.pendingMu.Lock()
	defer h.pendingMu.Unlock()

	pending, ok := h.pending[string(ev.RequestID)]
	if !ok || ev.Response == nil {
		return
	}
	pending.Capture.Status = int(ev.Response.Status)
	pending.Capture.StatusText = ev.Response.StatusText
	pending.Capture.Protocol = ev.Response.Protocol
	pending.Capture.Headers = headerMapToStringMap(ev.Response.Headers)
	pending.ResourceType = string(ev.Type)
}

// OnLoadingFinished fetches the body off the event goroutine and delivers the
// finished response.
func (h *HTTPCapture) OnLoadingFinished(tabID string, ev *network.EventLoadingFinished, getBody func() ([]byte, error)) {
	h.pendingMu.Lock()
	pending, ok := h.pending[string(ev.RequestID)]
	if ok {
		delete(h.pending, string(ev.RequestID))
	}
	h.pendingMu.Unlock()

	if !ok || pending.Capture.Status == 0 || getBody == nil {
		return
	}
	if !storage.IsDiffableResourceType(pending.ResourceType) {
		slog.Debug("Skipping static resource", "request_id", ev.RequestID, "resource_type", pending.ResourceType)
		return
	}

	key := h.sessionKey(tabID, pending)
	pending.Capture.SessionKey = key.String()

	prev, turn := h.takeTurn(key.String())
	h.deliveries.Add(1)
	go func() {
		defer h.deliveries.Done()
		defer h.endTurn(key.String(), turn)

		body, err := getBody()
		if prev != nil {
			<-prev
		}
		if err != nil {
			slog.Debug("Failed to get response body", "request_id", ev.RequestID, "error", err)
			return
		}
		h.deliver(key, pending.Capture, body)
	}()
}

// takeTurn queues a delivery for key. prev is nil when nothing is queued
// ahead; turn must be passed to endTurn once the delivery is done.
func (h *HTTPCapture) takeTurn(key string) (prev <-chan struct{}, turn chan struct{}) {
	turn = make(chan struct{})
	h.orderMu.Lock()
	defer h.orderMu.Unlock()
	if last, ok := h.lastInKey[key]; ok {
		prev = last
	}
	h.lastInKey[key] = turn
	return prev, turn
}

func (h *HTTPCapture) endTurn(key string, turn chan struct{}) {
	close(turn)
	h.orderMu.Lock()
	defer h.orderMu.Unlock()
	if h.lastInKey[key] == turn {
		delete(h.lastInKey, key)
	}
}

func (h *HTTPCapture) OnLoadingFailed(tabID string, ev *network.EventLoadingFailed) {
	h.pendingMu.Lock()
	delete(h.pending, string(ev.RequestID))
	h.pendingMu.Unlock()
}

func (h *HTTPCapture) deliver(key types.SessionKey, capture *types.HTTPCapture, body []byte) {
	c := capBody(body, h.maxBodyBytes)
	body = c.body
	capture.BodySize = c.originalSize
	if c.truncated() {
		capture.Truncated = true
		capture.SHA256 = c.sha256
		slog.Warn("Response body truncated before diffing", "request_id", capture.RequestID, "original_size", c.originalSize, "kept_size", len(body), "sha256", c.sha256)
	}

	if h.journal != nil {
		if err := h.journal.WriteCapture(capture); err != nil {
			slog.Debug("Capture journal write failed", "request_id", capture.RequestID, "error", err)
		}
	}

	if !utf8.Valid(body) {
		slog.Debug("Skipping binary response body", "request_id", capture.RequestID, "url", capture.URL)
		return
	}

	raw := httpmsg.BuildResponse(protocolLine(capture.Protocol), capture.Status, capture.StatusText, capture.Headers, body)
	payload := types.NewPayload(raw, httpmsg.FindBodyOffset(raw), false)

	res := h.sink.Deliver(key.String(), payload, false)
	if res.Visible {
		slog.Info("Response diff ready", "session_id", res.SessionID, "key", key.String(), "changed", res.Report != diff.NoChanges)
	}
}

func (h *HTTPCapture) sessionKey(tabID string, pending *pendingExchange) types.SessionKey {
	key := types.SessionKey{Method: pending.Capture.Method, URL: pending.Capture.URL}
	if !pending.perTab {
		return key
	}
	key.Tab = storage.BrowserIDFromTargetID(tabID)
	if h.tabRegistry != nil {
		if info, ok := h.tabRegistry.GetByStringID(tabID); ok {
			key.Tab = info.BrowserID
		}
	}
	return key
}

func (h *HTTPCapture) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.cleanupStale(time.Now().Add(-5 * time.Minute))
		case <-h.done:
			return
		}
	}
}

func (h *HTTPCapture) cleanupStale(threshold time.Time) {
	h.pendingMu.Lock()
	defer h.pendingMu.Unlock()

	for id, pending := range h.pending {
		if pending.Timestamp.Before(threshold) {
			delete(h.pending, id)
		}
	}
}

// PendingCount is the number of requests still waiting for completion.
func (h *HTTPCapture) PendingCount() int {
	h.pendingMu.Lock()
	defer h.pendingMu.Unlock()
	return len(h.pending)
}

func protocolLine(protocol string) string {
	switch strings.ToLower(protocol) {
	case "h2", "http/2", "http/2.0":
		return "HTTP/2"
	case "h3", "http/3":
		return "HTTP/3"
	case "http/1.0":
		return "HTTP/1.0"
	}
	return "HTTP/1.1"
}

func headerMapToStringMap(headers map[string]any) map[string]string {
	result := make(map[string]string, len(headers))
	for k, v := range headers {
		if s, ok := v.(string); ok {
			result[k] = s
		}
	}
	return result
}
