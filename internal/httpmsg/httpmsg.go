// Package httpmsg builds and inspects raw HTTP/1.x message bytes.
package httpmsg

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
)

var startLinePrefixes = [][]byte{
	[]byte("HTTP/"),
	[]byte("GET "), []byte("POST "), []byte("PUT "), []byte("PATCH "),
	[]byte("DELETE "), []byte("HEAD "), []byte("OPTIONS "),
}

// FindBodyOffset returns the index just past the first blank line. Without a
// blank line, a message that opens with a start line is all head and anything
// else is treated as a bare body.
func FindBodyOffset(raw []byte) int {
	crlf := bytes.Index(raw, []byte("\r\n\r\n"))
	lf := bytes.Index(raw, []byte("\n\n"))
	switch {
	case crlf >= 0 && (lf < 0 || crlf < lf):
		return crlf + 4
	case lf >= 0:
		return lf + 2
	}
	if HasStartLine(raw) {
		return len(raw)
	}
	return 0
}

// HasStartLine reports whether raw opens with a request or status line.
func HasStartLine(raw []byte) bool {
	for _, prefix := range startLinePrefixes {
		if bytes.HasPrefix(raw, prefix) {
			return true
		}
	}
	return false
}

// BuildResponse serializes a response message. Header names are sorted so the
// same response always produces the same bytes.
func BuildResponse(proto string, status int, statusText string, headers map[string]string, body []byte) []byte {
	if proto == "" {
		proto = "HTTP/1.1"
	}
	if statusText == "" {
		statusText = defaultStatusText(status)
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "%s %d %s\r\n", proto, status, statusText)
	writeHeaders(&b, headers)
	b.WriteString("\r\n")
	b.Write(body)
	return b.Bytes()
}

func writeHeaders(b *bytes.Buffer, headers map[string]string) {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})
	for _, name := range names {
		// CDP folds repeated headers with newlines.
		for _, value := range strings.Split(headers[name], "\n") {
			b.WriteString(name)
			b.WriteString(": ")
			b.WriteString(value)
			b.WriteString("\r\n")
		}
	}
}

func defaultStatusText(status int) string {
	if text := http.StatusText(status); text != "" {
		return text
	}
	return strconv.Itoa(status)
}
