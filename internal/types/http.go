package types

import (
	"strings"
	"time"
)

// HTTPCapture is a captured response as written to the capture journal.
type HTTPCapture struct {
	Timestamp  time.Time         `json:"timestamp"`
	RequestID  string            `json:"request_id"`
	TabID      string            `json:"tab_id"`
	SessionKey string            `json:"session_key"`
	URL        string            `json:"url"`
	Method     string            `json:"method"`
	Status     int               `json:"status"`
	StatusText string            `json:"status_text"`
	Protocol   string            `json:"protocol,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	BodySize   int               `json:"body_size"`
	Truncated  bool              `json:"truncated,omitempty"`
	SHA256     string            `json:"sha256,omitempty"`
}

// ReportRecord is one rendered diff as written to the report journal.
type ReportRecord struct {
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`
	Key       string    `json:"key"`
	Changed   bool      `json:"changed"`
	Report    string    `json:"report"`
}

// PendingRequest tracks an in-flight request waiting for its body.
type PendingRequest struct {
	Capture      *HTTPCapture
	Timestamp    time.Time
	ResourceType string
}

// SessionKey identifies the stream of exchanges one diff session compares.
// Tab is empty when sessions are shared across tabs.
type SessionKey struct {
	Method string
	URL    string
	Tab    string
}

// String renders "METHOD URL" with an optional " #tab" suffix.
func (k SessionKey) String() string {
	s := strings.ToUpper(k.Method) + " " + k.URL
	if k.Tab != "" {
		s += " #" + k.Tab
	}
	return s
}

// ParseSessionKey reverses String. Keys that do not follow the layout come
// back with everything in URL.
func ParseSessionKey(s string) SessionKey {
	method, rest, ok := strings.Cut(s, " ")
	if !ok || method == "" || strings.ToUpper(method) != method {
		return SessionKey{URL: s}
	}
	k := SessionKey{Method: method, URL: rest}
	if i := strings.LastIndex(rest, " #"); i >= 0 {
		k.URL, k.Tab = rest[:i], rest[i+2:]
	}
	return k
}
