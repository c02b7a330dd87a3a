package parser

import "strings"

const (
	csrfStartMarker = `<meta name="csrf-token" content="`
	csrfEndMarker   = `" />`
)

// ExtractCSRFToken locates the CSRF token between the fixed meta-tag markers.
// found is false when either marker is missing.
func ExtractCSRFToken(body string) (token string, found bool) {
	start := strings.Index(body, csrfStartMarker)
	if start < 0 {
		return "", false
	}
	start += len(csrfStartMarker)

	end := strings.Index(body[start:], csrfEndMarker)
	if end < 0 {
		return "", false
	}
	return body[start : start+end], true
}
