package capture

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"unicode/utf8"
)

func TestCapBody(t *testing.T) {
	input := []byte(`{"id":1,"name":"diff"}`)
	sum := sha256.Sum256(input)
	fullHash := hex.EncodeToString(sum[:])

	tests := []struct {
		name          string
		limit         int
		wantOut       string
		wantTruncated bool
	}{
		{name: "unlimited", limit: 0, wantOut: string(input)},
		{name: "exact_limit", limit: len(input), wantOut: string(input)},
		{name: "cut", limit: 7, wantOut: `{"id":1`, wantTruncated: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := capBody(input, tt.limit)
			if string(c.body) != tt.wantOut {
				t.Fatalf("body = %q; want %q", c.body, tt.wantOut)
			}
			if c.truncated() != tt.wantTruncated {
				t.Fatalf("truncated = %v; want %v", c.truncated(), tt.wantTruncated)
			}
			if c.originalSize != len(input) {
				t.Fatalf("originalSize = %d; want %d", c.originalSize, len(input))
			}
			if tt.wantTruncated && c.sha256 != fullHash {
				t.Fatalf("sha256 = %q; want %q", c.sha256, fullHash)
			}
		})
	}
}

func TestCapBodyKeepsRunesWhole(t *testing.T) {
	input := []byte(`{"k":"héllo"}`)
	// 'é' is two bytes starting at index 7; a limit of 8 lands inside it.
	c := capBody(input, 8)
	if string(c.body) != `{"k":"h` {
		t.Fatalf("body = %q", c.body)
	}
	if !utf8.Valid(c.body) {
		t.Fatalf("capped body is not valid UTF-8")
	}
}
