package llm

import (
	"regexp"
)

var (
	reDataURL = regexp.MustCompile(`(?is)\bdata:(image|video|audio|font|application)/[a-z0-9+.-]+;base64,[a-z0-9+/=\r\n]+`)
	reB64Run  = regexp.MustCompile(`[A-Za-z0-9+/]{512,}={0,2}`)
)

// RedactMedia replaces inline media payloads and long base64 runs with a
// marker. Prompt logs use it so embedded assets do not bloat them.
func RedactMedia(s string) string {
	s = reDataURL.ReplaceAllString(s, "[REDACTED media]")
	return reB64Run.ReplaceAllString(s, "[REDACTED base64]")
}
