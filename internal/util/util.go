// Package util holds log redaction helpers for panel request data.
package util

import (
	"net/url"
	"strings"
)

const (
	sessionTokenPrefix = "tvp_"
	redacted           = "***"
)

// HideSecret obscures a secret for logging. Session tokens keep their prefix
// and last four characters; values of eight characters or fewer, such as
// TOTP codes and short passwords, are fully redacted.
func HideSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if strings.HasPrefix(secret, sessionTokenPrefix) && len(secret) > len(sessionTokenPrefix)+8 {
		return sessionTokenPrefix + redacted + secret[len(secret)-4:]
	}
	if len(secret) <= 8 {
		return redacted
	}
	return secret[:2] + redacted + secret[len(secret)-2:]
}

// IsSensitiveField reports whether a form field or query parameter carries a
// credential: passwords, TOTP codes, session tokens and secrets.
func IsSensitiveField(key string) bool {
	key = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(key)), "[]")
	switch key {
	case "":
		return false
	case "pass", "code", "authorization":
		return true
	}
	for _, marker := range []string{"password", "totp", "token", "secret"} {
		if strings.Contains(key, marker) {
			return true
		}
	}
	return false
}

// MaskFields returns a copy of a bound request body with credentials hidden.
// The generic update body names its column in "field" and carries the data in
// "value", so "value" is hidden when "field" is sensitive.
func MaskFields(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for key, value := range fields {
		if IsSensitiveField(key) {
			value = HideSecret(strings.TrimSpace(value))
		}
		out[key] = value
	}
	if value, ok := out["value"]; ok && IsSensitiveField(fields["field"]) {
		out["value"] = HideSecret(strings.TrimSpace(value))
	}
	return out
}

// MaskSensitiveQuery hides credential parameters within a raw query string,
// e.g. a session token passed to a download link.
func MaskSensitiveQuery(raw string) string {
	if raw == "" {
		return ""
	}
	parts := strings.Split(raw, "&")
	changed := false
	for i, part := range parts {
		key, value, _ := strings.Cut(part, "=")
		decodedKey, err := url.QueryUnescape(key)
		if err != nil {
			decodedKey = key
		}
		if !IsSensitiveField(decodedKey) {
			continue
		}
		decodedValue, err := url.QueryUnescape(value)
		if err != nil {
			decodedValue = value
		}
		parts[i] = key + "=" + url.QueryEscape(HideSecret(strings.TrimSpace(decodedValue)))
		changed = true
	}
	if !changed {
		return raw
	}
	return strings.Join(parts, "&")
}
