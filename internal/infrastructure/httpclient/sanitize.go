package httpclient

import (
	"net/url"
	"strings"
)

const maskedValue = "***"

// sensitiveParams is the denylist of query parameter names whose values are
// masked before a URL reaches any log call.
var sensitiveParams = map[string]bool{
	"api-key":    true,
	"token":      true,
	"auth":       true,
	"access_key": true,
}

// SanitizeURL masks credential-bearing query parameters and any path segment
// that looks like an embedded token. A URL that fails to parse is returned
// unchanged.
func SanitizeURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	query := parsed.Query()
	changed := false
	for name := range query {
		if sensitiveParams[strings.ToLower(name)] {
			query.Set(name, maskedValue)
			changed = true
		}
	}
	if changed {
		parsed.RawQuery = query.Encode()
	}

	if parsed.Path != "" {
		segments := strings.Split(parsed.Path, "/")
		for i, segment := range segments {
			if looksLikeToken(segment) {
				segments[i] = maskedValue
				changed = true
			}
		}
		if changed {
			parsed.Path = strings.Join(segments, "/")
			parsed.RawPath = ""
		}
	}

	if !changed {
		return raw
	}
	return parsed.String()
}

// looksLikeToken flags long hex strings (>=16 chars) and long mixed
// alphanumeric strings (>=20 chars, '-' and '_' allowed).
func looksLikeToken(segment string) bool {
	if len(segment) >= 16 && isHex(segment) {
		return true
	}
	if len(segment) < 20 {
		return false
	}
	hasLetter := false
	hasDigit := false
	for _, r := range segment {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			hasLetter = true
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return hasLetter && hasDigit
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
