// Package models defines the domain models shared between the service and
// persistence layers: shortened URLs, their click events and aggregated stats.
package models

import "time"

// URL represents a shortened URL and its associated metadata.
type URL struct {
	// ID is the unique identifier for the shortened URL record.
	ID int64
	// ShortCode is the short code or key associated with the original URL.
	ShortCode string
	// OriginalURL is the original, full-length URL that the short code points to.
	OriginalURL string
	// ClickCount tracks the number of times the shortened URL has been resolved.
	ClickCount int64
	// CreatedAt is the timestamp indicating when the shortened URL was created.
	CreatedAt time.Time
	// ExpiresAt is the optional expiration timestamp; nil means the URL never expires.
	ExpiresAt *time.Time
	// LastAccessed is the timestamp of the most recent successful redirect, nil if never accessed.
	LastAccessed *time.Time
}

// Expired reports whether the URL has an expiration timestamp in the past
// relative to now. Timestamps are compared in UTC.
func (u *URL) Expired(now time.Time) bool {
	return u.ExpiresAt != nil && u.ExpiresAt.Before(now.UTC())
}

// Click represents a single recorded visit to a shortened URL.
type Click struct {
	// ID is the unique identifier for the click record.
	ID int64
	// URLID references the shortened URL this click belongs to.
	URLID int64
	// IPAddress is the client address captured at redirect time, empty if unknown.
	IPAddress string
	// UserAgent is the client's User-Agent header captured at redirect time.
	UserAgent string
	// Referer is the client's Referer header, empty if the request had none.
	Referer string
	// ClickedAt is the timestamp when the click was recorded.
	ClickedAt time.Time
}

// ClickInfo carries the client metadata captured from an incoming redirect request.
type ClickInfo struct {
	IPAddress string
	UserAgent string
	Referer   string
}

// URLStats combines a shortened URL with its most recent click history.
type URLStats struct {
	URL URL
	// RecentClicks holds the latest click records, newest first.
	RecentClicks []Click
}
