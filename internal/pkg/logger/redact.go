package logger

import (
	"regexp"
	"strings"
)

var emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// piiKeyHints marks field keys whose values are subscriber addresses.
var piiKeyHints = []string{"email", "recipient", "subscriber"}

// RedactEmail masks the local part of an address for safe logging, keeping
// the domain and just enough of the name to correlate log lines:
// "vic_ji_i@gmail.com" becomes "vi***@gmail.com". Anything that does not
// look like an address is masked entirely.
func RedactEmail(addr string) string {
	local, domain, ok := strings.Cut(addr, "@")
	if !ok || domain == "" {
		return "***@***"
	}
	if len(local) <= 2 {
		return "***@" + domain
	}
	return local[:2] + "***@" + domain
}

// redactPIIValue masks subscriber addresses in a log field. Fields keyed by
// a PII hint are masked outright; any other field has embedded addresses
// masked, which keeps error chains that quote user input safe to log.
func redactPIIValue(key, val string) string {
	key = strings.ToLower(key)
	for _, hint := range piiKeyHints {
		if strings.Contains(key, hint) {
			return RedactEmail(val)
		}
	}
	return emailRegex.ReplaceAllStringFunc(val, RedactEmail)
}
