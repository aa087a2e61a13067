// Package http provides the HTTP delivery layer for the URL shortener
// service: the chi router, middleware stack and request handlers.
package http

import (
	"context"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"

	"github.com/itsemekaeze/url-shortener/internal/models"
)

// URLService defines the interface for the core URL shortening business logic.
type URLService interface {
	// ShortenURL creates a shortened version of the provided original URL,
	// using customAlias as the short code when non-empty.
	ShortenURL(ctx context.Context, originalURL, customAlias string, expiresAt *time.Time) (*models.URL, error)

	// ResolveShortCode retrieves the URL for a given short code, recording
	// the click on success.
	ResolveShortCode(ctx context.Context, shortCode string, click models.ClickInfo) (*models.URL, error)

	// GetURLStats retrieves the URL's metadata and its recent click history.
	GetURLStats(ctx context.Context, shortCode string) (*models.URLStats, error)

	// ListURLs returns a page of URL records.
	ListURLs(ctx context.Context, skip, limit int) ([]models.URL, error)

	// DeleteURL removes the URL and all its click records.
	DeleteURL(ctx context.Context, shortCode string) error
}

// getValidate initializes a new validator instance for validating incoming request payloads.
// It customizes tag name extraction from struct fields to match JSON tags.
func getValidate() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return validate
}

// NewRouter initializes and returns a new HTTP router with all routes and middleware configured.
func NewRouter(logger *httplog.Logger, urlSvc URLService, baseURL string) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*"},
		AllowedMethods:   []string{"POST", "GET", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		validate := getValidate()

		r.Get("/ping", handlePing)
		r.Post("/shorten", handleShortenURL(urlSvc, validate, baseURL))

		r.Route("/urls", func(r chi.Router) {
			r.Get("/", handleListURLs(urlSvc, baseURL))

			r.Route("/{shortCode}", func(r chi.Router) {
				r.Get("/stats", handleGetURLStats(urlSvc, baseURL))
				r.Get("/qr", handleQRCode(baseURL))
				r.Delete("/", handleDeleteURL(urlSvc))
			})
		})
	})

	r.Get("/", handleRoot)
	r.Get("/{shortCode}", handleRedirect(urlSvc))

	return r
}
