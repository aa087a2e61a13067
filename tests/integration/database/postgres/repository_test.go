package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/itsemekaeze/url-shortener/internal/config"
	"github.com/itsemekaeze/url-shortener/internal/database"
	"github.com/itsemekaeze/url-shortener/internal/database/postgres"
	"github.com/itsemekaeze/url-shortener/internal/models"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func setupPostgres(t testing.TB) config.Postgres {
	t.Helper()

	ctx := context.Background()

	pgUser := "test"
	pgPassword := "test"
	pgDB := "url_shortener"

	pgCont, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image: "postgres:16-alpine",
			Env: map[string]string{
				"POSTGRES_USER":     pgUser,
				"POSTGRES_PASSWORD": pgPassword,
				"POSTGRES_DB":       pgDB,
			},
			ExposedPorts: []string{"5432/tcp"},
			WaitingFor:   wait.ForExposedPort(),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := pgCont.Terminate(ctx); err != nil {
			t.Fatalf("Failed to terminate postgres container: %v", err)
		}
	})

	pgHost, err := pgCont.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	pgPort, err := pgCont.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	return config.Postgres{
		User:     pgUser,
		Password: pgPassword,
		Host:     pgHost,
		Port:     pgPort.Int(),
		DB:       pgDB,
		SSLMode:  "disable",
	}
}

func runMigrations(t testing.TB, cfg config.Postgres) {
	t.Helper()

	migrationPath := "file://../../../../migrations"

	m, err := migrate.New(migrationPath, cfg.DSN())
	if err != nil {
		t.Fatalf("Failed to initialize migrations: %v", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("Failed to run migrations: %v", err)
	}
}

func setupURLRepository(t testing.TB) (*postgres.URLRepository, *sqlx.DB) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cfg := setupPostgres(t)
	runMigrations(t, cfg)

	db, err := sqlx.Connect("pgx", cfg.DSN())
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Fatalf("Failed to close database: %v", err)
		}
	})

	return postgres.NewURLRepository(db), db
}

func TestURLRepository(t *testing.T) {
	repo, db := setupURLRepository(t)
	ctx := context.Background()

	click := models.ClickInfo{
		IPAddress: "192.0.2.1",
		UserAgent: "integration-agent",
		Referer:   "https://referer.example.com",
	}

	t.Run("create and duplicate short code", func(t *testing.T) {
		url, err := repo.Create(ctx, "dup123", "https://example.com/a", nil)

		require.NoError(t, err)
		assert.Equal(t, "dup123", url.ShortCode)
		assert.Zero(t, url.ClickCount)
		assert.False(t, url.CreatedAt.IsZero())
		assert.Nil(t, url.ExpiresAt)
		assert.Nil(t, url.LastAccessed)

		dup, err := repo.Create(ctx, "dup123", "https://example.com/b", nil)

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrShortCodeExists)
		assert.Nil(t, dup)
	})

	t.Run("sequential clicks increment exactly once each", func(t *testing.T) {
		url, err := repo.Create(ctx, "click1", "https://example.com/clicks", nil)
		require.NoError(t, err)

		const n = 5

		for i := 0; i < n; i++ {
			updated, err := repo.RegisterClick(ctx, url.ID, click)

			require.NoError(t, err)
			assert.Equal(t, int64(i+1), updated.ClickCount)
			assert.NotNil(t, updated.LastAccessed)
		}

		var clickRows int
		err = db.GetContext(ctx, &clickRows, `SELECT COUNT(*) FROM clicks WHERE url_id = $1`, url.ID)
		require.NoError(t, err)
		assert.Equal(t, n, clickRows)
	})

	t.Run("recent clicks bounded and newest first", func(t *testing.T) {
		url, err := repo.Create(ctx, "recent", "https://example.com/recent", nil)
		require.NoError(t, err)

		for i := 0; i < 12; i++ {
			_, err := db.ExecContext(ctx,
				`INSERT INTO clicks(url_id, user_agent, clicked_at) VALUES ($1, $2, $3)`,
				url.ID, "agent", time.Now().UTC().Add(time.Duration(i)*time.Second))
			require.NoError(t, err)
		}

		clicks, err := repo.RecentClicks(ctx, url.ID, 10)

		require.NoError(t, err)
		assert.Len(t, clicks, 10)
		for i := 1; i < len(clicks); i++ {
			assert.False(t, clicks[i].ClickedAt.After(clicks[i-1].ClickedAt))
		}
	})

	t.Run("delete cascades to clicks", func(t *testing.T) {
		url, err := repo.Create(ctx, "doomed", "https://example.com/doomed", nil)
		require.NoError(t, err)

		_, err = repo.RegisterClick(ctx, url.ID, click)
		require.NoError(t, err)

		require.NoError(t, repo.Delete(ctx, "doomed"))

		_, err = repo.GetByShortCode(ctx, "doomed")
		assert.ErrorIs(t, err, database.ErrURLNotFound)

		var clickRows int
		err = db.GetContext(ctx, &clickRows, `SELECT COUNT(*) FROM clicks WHERE url_id = $1`, url.ID)
		require.NoError(t, err)
		assert.Zero(t, clickRows)

		assert.ErrorIs(t, repo.Delete(ctx, "doomed"), database.ErrURLNotFound)
	})

	t.Run("expiration round trip", func(t *testing.T) {
		expiresAt := time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)

		url, err := repo.Create(ctx, "stale1", "https://example.com/stale", &expiresAt)

		require.NoError(t, err)
		require.NotNil(t, url.ExpiresAt)
		assert.True(t, url.ExpiresAt.Equal(expiresAt))
		assert.True(t, url.Expired(time.Now()))
	})

	t.Run("list pagination", func(t *testing.T) {
		urls, err := repo.List(ctx, 0, 2)

		require.NoError(t, err)
		assert.Len(t, urls, 2)

		rest, err := repo.List(ctx, 2, 100)

		require.NoError(t, err)
		assert.NotEmpty(t, rest)
	})
}
