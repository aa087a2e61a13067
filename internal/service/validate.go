package service

import (
	"net/url"
	"regexp"
)

// urlPattern is a deliberately permissive pre-filter: absolute http/https,
// a dotted hostname with a 2-6 letter top-level label, localhost, or a
// dotted-quad IPv4 address, then an optional port and path/query. It does
// not try to bound real-world TLDs precisely.
var urlPattern = regexp.MustCompile(`^(?i)https?://` +
	`(?:(?:[A-Z0-9](?:[A-Z0-9-]{0,61}[A-Z0-9])?\.)+[A-Z]{2,6}\.?` +
	`|localhost` +
	`|\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})` +
	`(?::\d+)?` +
	`(?:/?|[/?]\S+)$`)

var aliasPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,20}$`)

// isValidURL reports whether rawURL is acceptable as an original URL.
// The pattern match is backed by a structural parse requiring both a
// scheme and a host component.
func isValidURL(rawURL string) bool {
	if !urlPattern.MatchString(rawURL) {
		return false
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	return u.Scheme != "" && u.Host != ""
}

// isValidAlias reports whether alias is a well-formed custom short code:
// 3-20 characters, letters, digits, hyphens and underscores only.
func isValidAlias(alias string) bool {
	return aliasPattern.MatchString(alias)
}
