// Package urlutil contains helpers for dependency URLs.
package urlutil

import (
	"net/url"
	"strings"
)

const mask = "xxxxx"

var sensitiveParams = []string{"password", "passwd", "pwd", "secret", "token", "key"}

// Redact returns rawURL with credentials masked so it can be logged or
// reported in check metadata. Strings that do not parse as a URL are
// replaced entirely.
func Redact(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" {
		return "[invalid url]"
	}

	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), mask)
		}
	}

	if u.RawQuery != "" {
		q := u.Query()
		for name := range q {
			if isSensitive(name) {
				q.Set(name, mask)
			}
		}
		u.RawQuery = q.Encode()
	}

	return u.String()
}

// Host returns the host[:port] part of rawURL, or "" if it has none.
func Host(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

func isSensitive(param string) bool {
	lower := strings.ToLower(param)
	for _, s := range sensitiveParams {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
