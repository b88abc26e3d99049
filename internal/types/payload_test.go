package types

import (
	"reflect"
	"testing"
)

func TestNewPayloadClampsOffset(t *testing.T) {
	raw := []byte("abc")
	if p := NewPayload(raw, -4, false); p.BodyOffset != 0 {
		t.Fatalf("BodyOffset = %d; want 0", p.BodyOffset)
	}
	if p := NewPayload(raw, 10, false); p.BodyOffset != 3 || len(p.Body()) != 0 {
		t.Fatalf("BodyOffset = %d body=%q; want 3 and empty body", p.BodyOffset, p.Body())
	}
}

func TestPayloadParts(t *testing.T) {
	raw := []byte("HTTP/1.1 200 OK\r\nContent-Type: application/json\r\nX-Trace: a\r\nx-trace: b\r\n\r\n{\"a\":1}")
	p := NewPayload(raw, len(raw)-7, false)

	if got := string(p.Body()); got != `{"a":1}` {
		t.Fatalf("Body() = %q", got)
	}
	wantHeaders := []string{"HTTP/1.1 200 OK", "Content-Type: application/json", "X-Trace: a", "x-trace: b"}
	if got := p.Headers(); !reflect.DeepEqual(got, wantHeaders) {
		t.Fatalf("Headers() = %q; want %q", got, wantHeaders)
	}
	if got := p.HeaderValues("X-TRACE"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("HeaderValues() = %q", got)
	}
}

func TestPayloadEqualUsesWholeMessage(t *testing.T) {
	a := NewPayload([]byte("H: 1\n\nbody"), 6, false)
	b := NewPayload([]byte("H: 2\n\nbody"), 6, false)
	if a.Equal(b) {
		t.Fatalf("payloads differing only in headers must not be equal")
	}
	if !a.Equal(NewPayload([]byte("H: 1\n\nbody"), 0, true)) {
		t.Fatalf("same bytes must be equal")
	}
	if !(Payload{}).Empty() || a.Empty() {
		t.Fatalf("Empty() wrong")
	}
}

func TestSessionKeyRoundTrip(t *testing.T) {
	tests := []struct {
		key  SessionKey
		want string
	}{
		{key: SessionKey{Method: "get", URL: "https://api.example.com/v1/items?page=2"}, want: "GET https://api.example.com/v1/items?page=2"},
		{key: SessionKey{Method: "POST", URL: "https://api.example.com/q", Tab: "A1B2C3D4"}, want: "POST https://api.example.com/q #A1B2C3D4"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Fatalf("String() = %q; want %q", got, tt.want)
			}
			back := ParseSessionKey(tt.want)
			if back.String() != tt.want {
				t.Fatalf("ParseSessionKey(%q) = %+v", tt.want, back)
			}
		})
	}

	if k := ParseSessionKey("free form key"); k.URL != "free form key" || k.Method != "" {
		t.Fatalf("free-form key parsed as %+v", k)
	}
}
