package storage

import (
	"net/url"
	"strings"
)

// TransformURLToPathSegment turns a URL into a filesystem-safe segment built
// from its host and path, e.g. "api.example.com_v1_orders".
func TransformURLToPathSegment(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	path := strings.Trim(parsed.Path, "/")
	parts := make([]string, 0, 2)
	if host := parsed.Hostname(); host != "" {
		parts = append(parts, host)
	}
	if path != "" {
		parts = append(parts, path)
	}
	if len(parts) == 0 {
		return "root", nil
	}
	return sanitizeSegment(strings.Join(parts, "_")), nil
}

func sanitizeSegment(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// BrowserIDFromTargetID returns the first 8 chars of a CDP target ID.
func BrowserIDFromTargetID(targetID string) string {
	if len(targetID) >= 8 {
		return targetID[:8]
	}
	return targetID
}

// IsDiffableResourceType reports whether a CDP resource type carries
// API-style or document responses worth comparing. Static assets are skipped.
func IsDiffableResourceType(resourceType string) bool {
	switch resourceType {
	case "XHR", "Fetch", "Document", "EventSource", "Other", "":
		return true
	}
	return false
}
