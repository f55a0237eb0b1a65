package logger

import "strings"

// RedactURL strips the query string from a URL for safe logging.
// Photo URLs handed to the pipeline embed provider API keys as query
// parameters, so the query is dropped wholesale rather than filtered.
// "https://host/media?key=secret" → "https://host/media?***"
func RedactURL(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[:i] + "?***"
	}
	return raw
}

func redactValue(key, val string) string {
	key = strings.ToLower(key)
	// URL-carrying fields get their query strings dropped
	if strings.Contains(key, "url") || strings.Contains(key, "photo") {
		return RedactURL(val)
	}
	// Credential-ish fields are masked entirely
	if strings.Contains(key, "password") || strings.Contains(key, "secret") || strings.Contains(key, "api_key") {
		return "***"
	}
	return val
}
