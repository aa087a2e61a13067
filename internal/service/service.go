// Package service contains the core URL shortening business logic: short
// code allocation, redirect resolution with click recording, stats, listing
// and deletion.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/itsemekaeze/url-shortener/internal/database"
	"github.com/itsemekaeze/url-shortener/internal/models"
)

var (
	// ErrInvalidURL is returned when the original URL fails validation.
	ErrInvalidURL = errors.New("invalid url format")
	// ErrInvalidAlias is returned when a custom alias is malformed or outside 3-20 characters.
	ErrInvalidAlias = errors.New("invalid custom alias")
	// ErrURLExpired is returned when resolving a short code whose expiration timestamp has passed.
	ErrURLExpired = errors.New("url expired")
	// ErrMaxRetriesExceeded is returned when the maximum number of retries for generating a short code is exceeded.
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded for generating short code")
)

// shortCodeAlphabet is the 62-character alphanumeric alphabet used for
// generated short codes. Codes are not security tokens, so the generator
// only needs to be uniform, not cryptographically strong.
const shortCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// recentClickLimit bounds the click history returned by GetURLStats.
const recentClickLimit = 10

// URLRepository defines the interface for working with URLs at the business logic layer.
type URLRepository interface {
	// Create inserts a new shortened URL. A duplicate short code must be
	// reported as database.ErrShortCodeExists.
	Create(ctx context.Context, shortCode, originalURL string, expiresAt *time.Time) (*models.URL, error)

	// GetByShortCode retrieves a URL by its short code without side effects.
	GetByShortCode(ctx context.Context, shortCode string) (*models.URL, error)

	// RegisterClick atomically records a click and increments the URL's
	// click counter, returning the updated URL.
	RegisterClick(ctx context.Context, urlID int64, click models.ClickInfo) (*models.URL, error)

	// RecentClicks returns up to limit click records for the URL, newest first.
	RecentClicks(ctx context.Context, urlID int64, limit int) ([]models.Click, error)

	// List returns a page of URL records.
	List(ctx context.Context, skip, limit int) ([]models.URL, error)

	// Delete removes a URL and, via cascade, its click records.
	Delete(ctx context.Context, shortCode string) error
}

// URLService provides methods to manage URL shortening operations.
// The service uses a URLRepository interface to interact with the underlying database.
type URLService struct {
	repo            URLRepository
	shortCodeLength int
}

// NewURLService creates a new instance of URLService with the provided repository and short code length.
func NewURLService(repo URLRepository, shortCodeLength int) *URLService {
	return &URLService{
		repo:            repo,
		shortCodeLength: shortCodeLength,
	}
}

// ShortenURL creates a shortened URL for originalURL. When customAlias is
// non-empty it is used as the short code after shape validation; otherwise
// a random code is generated with a bounded number of retries. The insert
// itself is the uniqueness check: the repository translates a duplicate-key
// failure into database.ErrShortCodeExists, which either surfaces as an
// alias conflict or triggers another generation attempt.
func (s *URLService) ShortenURL(ctx context.Context, originalURL, customAlias string, expiresAt *time.Time) (*models.URL, error) {
	const op = "service.URLService.ShortenURL"
	const maxRetries = 10

	if !isValidURL(originalURL) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidURL)
	}

	if customAlias != "" {
		if !isValidAlias(customAlias) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidAlias)
		}

		url, err := s.repo.Create(ctx, customAlias, originalURL, expiresAt)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to shorten url: %w", op, err)
		}

		return url, nil
	}

	for i := 0; i < maxRetries; i++ {
		shortCode, err := gonanoid.Generate(shortCodeAlphabet, s.shortCodeLength)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to generate short code: %w", op, err)
		}

		url, err := s.repo.Create(ctx, shortCode, originalURL, expiresAt)
		if err != nil {
			if errors.Is(err, database.ErrShortCodeExists) {
				continue
			}

			return nil, fmt.Errorf("%s: failed to shorten url: %w", op, err)
		}

		return url, nil
	}

	return nil, fmt.Errorf("%s: %w", op, ErrMaxRetriesExceeded)
}

// ResolveShortCode resolves a short code into its URL record, recording the
// click and bumping the counters on success. Lookup failure and expiration
// are terminal: no click is recorded for them.
func (s *URLService) ResolveShortCode(ctx context.Context, shortCode string, click models.ClickInfo) (*models.URL, error) {
	const op = "service.URLService.ResolveShortCode"

	url, err := s.repo.GetByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve short code: %w", op, err)
	}

	if url.Expired(time.Now()) {
		return nil, fmt.Errorf("%s: %w", op, ErrURLExpired)
	}

	url, err = s.repo.RegisterClick(ctx, url.ID, click)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to register click: %w", op, err)
	}

	return url, nil
}

// GetURLStats retrieves the URL's metadata together with its most recent
// click records, newest first. Read-only.
func (s *URLService) GetURLStats(ctx context.Context, shortCode string) (*models.URLStats, error) {
	const op = "service.URLService.GetURLStats"

	url, err := s.repo.GetByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url stats: %w", op, err)
	}

	clicks, err := s.repo.RecentClicks(ctx, url.ID, recentClickLimit)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get recent clicks: %w", op, err)
	}

	return &models.URLStats{
		URL:          *url,
		RecentClicks: clicks,
	}, nil
}

// ListURLs returns a page of URL records.
func (s *URLService) ListURLs(ctx context.Context, skip, limit int) ([]models.URL, error) {
	const op = "service.URLService.ListURLs"

	urls, err := s.repo.List(ctx, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list urls: %w", op, err)
	}

	return urls, nil
}

// DeleteURL removes the URL associated with the provided short code along
// with all its click records.
func (s *URLService) DeleteURL(ctx context.Context, shortCode string) error {
	const op = "service.URLService.DeleteURL"

	err := s.repo.Delete(ctx, shortCode)
	if err != nil {
		return fmt.Errorf("%s: failed to delete url: %w", op, err)
	}

	return nil
}
