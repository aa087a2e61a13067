// Package postgres implements the persistence layer for shortened URLs and
// their click records on top of PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/itsemekaeze/url-shortener/internal/database"
	"github.com/itsemekaeze/url-shortener/internal/models"
)

type urlRecord struct {
	ID           int64        `db:"id"`
	ShortCode    string       `db:"short_code"`
	OriginalURL  string       `db:"original_url"`
	ClickCount   int64        `db:"click_count"`
	CreatedAt    time.Time    `db:"created_at"`
	ExpiresAt    sql.NullTime `db:"expires_at"`
	LastAccessed sql.NullTime `db:"last_accessed"`
}

func (r *urlRecord) ToURL() *models.URL {
	url := &models.URL{
		ID:          r.ID,
		ShortCode:   r.ShortCode,
		OriginalURL: r.OriginalURL,
		ClickCount:  r.ClickCount,
		CreatedAt:   r.CreatedAt,
	}

	if r.ExpiresAt.Valid {
		t := r.ExpiresAt.Time
		url.ExpiresAt = &t
	}
	if r.LastAccessed.Valid {
		t := r.LastAccessed.Time
		url.LastAccessed = &t
	}

	return url
}

type clickRecord struct {
	ID        int64     `db:"id"`
	URLID     int64     `db:"url_id"`
	IPAddress string    `db:"ip_address"`
	UserAgent string    `db:"user_agent"`
	Referer   string    `db:"referer"`
	ClickedAt time.Time `db:"clicked_at"`
}

func (r *clickRecord) ToClick() models.Click {
	return models.Click{
		ID:        r.ID,
		URLID:     r.URLID,
		IPAddress: r.IPAddress,
		UserAgent: r.UserAgent,
		Referer:   r.Referer,
		ClickedAt: r.ClickedAt,
	}
}

// URLRepository provides access to the urls and clicks tables.
type URLRepository struct {
	db *sqlx.DB
}

func NewURLRepository(db *sqlx.DB) *URLRepository {
	return &URLRepository{
		db: db,
	}
}

// Create inserts a new url record. The unique index on short_code is the
// correctness backstop for concurrent creation: a duplicate insert is
// translated to database.ErrShortCodeExists.
func (r *URLRepository) Create(ctx context.Context, shortCode, originalURL string, expiresAt *time.Time) (*models.URL, error) {
	const op = "database.postgres.URLRepository.Create"

	rec := new(urlRecord)
	query := `INSERT INTO urls(short_code, original_url, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, short_code, original_url, click_count, created_at, expires_at, last_accessed`

	err := r.db.GetContext(ctx, rec, query, shortCode, originalURL, expiresAt)
	if err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrShortCodeExists)
		}

		return nil, fmt.Errorf("%s: failed to create url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

// GetByShortCode retrieves a url record without modifying it.
func (r *URLRepository) GetByShortCode(ctx context.Context, shortCode string) (*models.URL, error) {
	const op = "database.postgres.URLRepository.GetByShortCode"

	rec := new(urlRecord)
	query := `SELECT id, short_code, original_url, click_count, created_at, expires_at, last_accessed
		FROM urls
		WHERE short_code = $1`

	err := r.db.GetContext(ctx, rec, query, shortCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

// RegisterClick records one click and bumps the url counters as a single
// transaction. The increment happens inside the UPDATE statement, so two
// concurrent redirects against the same code never lose an update.
func (r *URLRepository) RegisterClick(ctx context.Context, urlID int64, click models.ClickInfo) (*models.URL, error) {
	const op = "database.postgres.URLRepository.RegisterClick"

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer tx.Rollback()

	insertQuery := `INSERT INTO clicks(url_id, ip_address, user_agent, referer)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''))`

	if _, err := tx.ExecContext(ctx, insertQuery, urlID, click.IPAddress, click.UserAgent, click.Referer); err != nil {
		return nil, fmt.Errorf("%s: failed to create click record: %w", op, err)
	}

	rec := new(urlRecord)
	updateQuery := `UPDATE urls
		SET click_count = click_count + 1, last_accessed = now()
		WHERE id = $1
		RETURNING id, short_code, original_url, click_count, created_at, expires_at, last_accessed`

	if err := tx.GetContext(ctx, rec, updateQuery, urlID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to update url record: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	return rec.ToURL(), nil
}

// RecentClicks returns up to limit click records for the url, newest first.
func (r *URLRepository) RecentClicks(ctx context.Context, urlID int64, limit int) ([]models.Click, error) {
	const op = "database.postgres.URLRepository.RecentClicks"

	var recs []clickRecord
	query := `SELECT id, url_id, COALESCE(ip_address, '') AS ip_address,
			COALESCE(user_agent, '') AS user_agent, COALESCE(referer, '') AS referer, clicked_at
		FROM clicks
		WHERE url_id = $1
		ORDER BY clicked_at DESC
		LIMIT $2`

	if err := r.db.SelectContext(ctx, &recs, query, urlID, limit); err != nil {
		return nil, fmt.Errorf("%s: failed to get click records: %w", op, err)
	}

	clicks := make([]models.Click, 0, len(recs))
	for i := range recs {
		clicks = append(clicks, recs[i].ToClick())
	}

	return clicks, nil
}

// List returns a page of url records in store-default order.
func (r *URLRepository) List(ctx context.Context, skip, limit int) ([]models.URL, error) {
	const op = "database.postgres.URLRepository.List"

	var recs []urlRecord
	query := `SELECT id, short_code, original_url, click_count, created_at, expires_at, last_accessed
		FROM urls
		OFFSET $1 LIMIT $2`

	if err := r.db.SelectContext(ctx, &recs, query, skip, limit); err != nil {
		return nil, fmt.Errorf("%s: failed to list url records: %w", op, err)
	}

	urls := make([]models.URL, 0, len(recs))
	for i := range recs {
		urls = append(urls, *recs[i].ToURL())
	}

	return urls, nil
}

// Delete removes a url record by short code. Click records are removed by
// the ON DELETE CASCADE constraint on clicks.url_id.
func (r *URLRepository) Delete(ctx context.Context, shortCode string) error {
	const op = "database.postgres.URLRepository.Delete"

	query := `DELETE FROM urls WHERE short_code = $1`

	res, err := r.db.ExecContext(ctx, query, shortCode)
	if err != nil {
		return fmt.Errorf("%s: failed to delete url record: %w", op, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get number of affected rows: %w", op, err)
	}

	if rowsAffected != 1 {
		return fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
	}

	return nil
}
