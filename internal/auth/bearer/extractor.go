// internal/auth/bearer/extractor.go
package bearer

import "strings"

const bearerPrefix = "Bearer "

// ExtractToken returns the token from an Authorization header value.
// Only the case-sensitive "Bearer " scheme is recognized; an empty token
// counts as missing.
func ExtractToken(header string) (string, bool) {
	token, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}
