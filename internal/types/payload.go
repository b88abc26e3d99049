package types

import (
	"bytes"
	"strings"
)

// Payload is one captured HTTP message (start line, headers and body) as the
// host observed it. BodyOffset is the index where the body begins.
type Payload struct {
	Raw        []byte
	BodyOffset int
	IsRequest  bool
}

// NewPayload wraps raw message bytes. The offset is clamped into range.
func NewPayload(raw []byte, bodyOffset int, isRequest bool) Payload {
	if bodyOffset < 0 {
		bodyOffset = 0
	}
	if bodyOffset > len(raw) {
		bodyOffset = len(raw)
	}
	return Payload{Raw: raw, BodyOffset: bodyOffset, IsRequest: isRequest}
}

// Empty reports whether there is nothing to observe.
func (p Payload) Empty() bool {
	return len(p.Raw) == 0
}

// Equal compares the full raw content byte for byte.
func (p Payload) Equal(other Payload) bool {
	return bytes.Equal(p.Raw, other.Raw)
}

func (p Payload) offset() int {
	switch {
	case p.BodyOffset < 0:
		return 0
	case p.BodyOffset > len(p.Raw):
		return len(p.Raw)
	}
	return p.BodyOffset
}

// Body returns the bytes from the body offset to the end.
func (p Payload) Body() []byte {
	return p.Raw[p.offset():]
}

// Headers returns the raw header lines, start line first, in wire order.
// Blank separator lines are dropped.
func (p Payload) Headers() []string {
	head := string(p.Raw[:p.offset()])
	var lines []string
	for _, line := range strings.Split(head, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// HeaderValues returns the values of every header called name
// (case-insensitive), without the leading space.
func (p Payload) HeaderValues(name string) []string {
	prefix := strings.ToLower(name) + ":"
	var values []string
	for _, line := range p.Headers() {
		if strings.HasPrefix(strings.ToLower(line), prefix) {
			values = append(values, strings.TrimSpace(line[len(prefix):]))
		}
	}
	return values
}
