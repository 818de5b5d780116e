package slogx

import (
	"log/slog"
	"regexp"
	"slices"
	"strings"
)

var emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

// MaskPII redacts anything shaped like an email address in s. Server error
// descriptions routinely echo the username back.
func MaskPII(s string) string {
	return emailPattern.ReplaceAllStringFunc(s, maskIdentifier)
}

// maskIdentifier keeps the first character and the domain so log lines stay
// useful for support without carrying the full identifier.
func maskIdentifier(v string) string {
	if v == "" {
		return v
	}
	local, domain, ok := strings.Cut(v, "@")
	if !ok {
		return v[:1] + "***"
	}
	if local == "" {
		return "***@" + domain
	}
	return local[:1] + "***@" + domain
}

func maskAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindString {
		return a
	}
	if slices.Contains(PIIKeys, a.Key) {
		return slog.String(a.Key, maskIdentifier(a.Value.String()))
	}
	if a.Key == "error_description" || a.Key == slog.MessageKey {
		return slog.String(a.Key, MaskPII(a.Value.String()))
	}
	return a
}
