// Package classify decides whether captured payloads are worth comparing and
// whether their bodies should be treated as JSON.
package classify

import (
	"slices"
	"strings"

	"github.com/dgnsrekt/diffjam/internal/types"
)

// SupportedContentTypes are matched as case-insensitive substrings of any
// Content-Type header value.
var SupportedContentTypes = []string{
	"application/json",
	"text/json",
	"text/x-json",
	"text/html",
}

// Only the first body character is compared, so "[{" never matches on its own.
var jsonMagicMarks = []string{"{", "[", "[{"}

// IsStructured reports whether the body looks like JSON, ignoring any declared
// content type: the trimmed body must be longer than two bytes and open with a
// JSON magic mark.
func IsStructured(p types.Payload) bool {
	body := strings.TrimSpace(string(p.Body()))
	if len(body) <= 2 {
		return false
	}
	return slices.Contains(jsonMagicMarks, body[:1])
}

// HasSupportedContentType reports whether a Content-Type header names one of
// SupportedContentTypes.
func HasSupportedContentType(p types.Payload) bool {
	for _, value := range p.HeaderValues("Content-Type") {
		value = strings.ToLower(value)
		for _, allowed := range SupportedContentTypes {
			if strings.Contains(value, allowed) {
				return true
			}
		}
	}
	return false
}

// IsComparable prefers the declared content type and falls back to the magic
// byte check.
func IsComparable(p types.Payload) bool {
	if HasSupportedContentType(p) {
		return true
	}
	return IsStructured(p)
}
