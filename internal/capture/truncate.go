package capture

import (
	"crypto/sha256"
	"encoding/hex"
	"unicode/utf8"
)

// capped is a response body after the size cap was applied.
type capped struct {
	body         []byte
	originalSize int
	// sha256 of the full body, set only when it was cut.
	sha256 string
}

func (c capped) truncated() bool { return c.sha256 != "" }

// capBody keeps at most maxBytes of body. A cut never splits a UTF-8 sequence,
// so a capped text body is still valid text for the diff. maxBytes <= 0 keeps
// everything.
func capBody(body []byte, maxBytes int) capped {
	out := capped{body: body, originalSize: len(body)}
	if maxBytes <= 0 || len(body) <= maxBytes {
		return out
	}
	sum := sha256.Sum256(body)
	out.sha256 = hex.EncodeToString(sum[:])

	cut := maxBytes
	for cut > 0 && cut < len(body) && !utf8.RuneStart(body[cut]) {
		cut--
	}
	out.body = body[:cut]
	return out
}
