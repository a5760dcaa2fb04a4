package util

import (
	"regexp"
	"strings"
)

var (
	// Matches "Bearer <token>" (JWTs and opaque tokens).
	bearerTokenRe = regexp.MustCompile(`(?i)\bBearer\s+[^\s"']+`)

	// key=value and key: value forms that leak through SDK error strings.
	apiKeyKVRe = regexp.MustCompile(`(?i)\b(x-api-key|x-goog-api-key|api[_-]?key|(gemini|anthropic|openai)[_-]?api[_-]?key)\b\s*[:=]\s*[^\s"',]+`)

	// Provider key literals: Anthropic (sk-ant-...), OpenAI (sk-...), Google (AIza...).
	providerKeyRe = regexp.MustCompile(`\b(sk-ant-[A-Za-z0-9_\-]{8,}|sk-[A-Za-z0-9_\-]{16,}|AIza[0-9A-Za-z_\-]{30,})`)
)

// RedactSecrets removes secret-bearing substrings from oracle failure reasons
// before they are written into result notes or logs.
func RedactSecrets(s string) string {
	if s == "" {
		return ""
	}
	out := s
	out = bearerTokenRe.ReplaceAllString(out, "Bearer <redacted>")
	out = apiKeyKVRe.ReplaceAllString(out, "<redacted_kv>")
	out = providerKeyRe.ReplaceAllString(out, "<redacted_key>")
	return strings.TrimSpace(out)
}
