// Package normalize rewrites JSON bodies into a stable pretty form so that
// diffs show content changes rather than formatting changes.
package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dgnsrekt/diffjam/internal/types"
	"github.com/tidwall/jsonc"
)

const indent = "    "

// ErrNoJSONBoundary means the body holds neither '{' nor '['.
var ErrNoJSONBoundary = errors.New("normalize: no JSON boundary in body")

// ParseError is returned with the unmodified text when the JSON suffix does
// not parse. It is recoverable.
type ParseError struct {
	Offset int
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("normalize: parse JSON at body offset %d: %v", e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Normalizer turns a structured payload into comparable text.
// Lenient accepts JSONC input (comments and trailing commas).
type Normalizer struct {
	Lenient bool
}

// Split cuts body at the earliest '{' or '['. Everything before is garbage.
func Split(body string) (garbage, clean string, ok bool) {
	boundary := strings.IndexAny(body, "{[")
	if boundary < 0 {
		return "", "", false
	}
	return body[:boundary], body[boundary:], true
}

// HeaderBlock joins header lines, each followed by a line break.
func HeaderBlock(headers []string) string {
	var b strings.Builder
	for _, h := range headers {
		b.WriteString(h)
		b.WriteByte('\n')
	}
	return b.String()
}

// Normalize returns headers + garbage + "\n" + pretty JSON. The returned text
// is always usable: with ErrNoJSONBoundary it is the plain body, with a
// *ParseError it is headers + garbage + the JSON text untouched.
func (n Normalizer) Normalize(p types.Payload) (string, error) {
	body := string(p.Body())
	garbage, clean, ok := Split(body)
	if !ok {
		return body, ErrNoJSONBoundary
	}

	headers := HeaderBlock(p.Headers())
	pretty, err := n.Pretty([]byte(clean))
	if err != nil {
		return headers + garbage + clean, &ParseError{Offset: len(garbage), Err: err}
	}
	return headers + garbage + "\n" + pretty, nil
}

// Pretty re-indents one JSON document with four spaces, keeping key order.
func (n Normalizer) Pretty(src []byte) (string, error) {
	if n.Lenient {
		src = jsonc.ToJSON(src)
	}
	src = bytes.TrimSpace(src)
	if !json.Valid(src) {
		// Unmarshal gives a more useful message than Valid.
		var v any
		if err := json.Unmarshal(src, &v); err != nil {
			return "", err
		}
		return "", errors.New("invalid JSON")
	}

	var out bytes.Buffer
	if err := json.Indent(&out, src, "", indent); err != nil {
		return "", err
	}
	return out.String(), nil
}
