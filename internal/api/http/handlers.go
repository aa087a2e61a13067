package http

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/skip2/go-qrcode"

	"github.com/itsemekaeze/url-shortener/internal/database"
	"github.com/itsemekaeze/url-shortener/internal/models"
	"github.com/itsemekaeze/url-shortener/internal/service"
	"github.com/itsemekaeze/url-shortener/pkg/response"
)

// handlePing handles health check requests to ensure the server is running.
func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "pong")
}

// handleRoot serves the service metadata and endpoint discovery document.
func handleRoot(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]any{
		"message": "URL Shortener API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"shorten":  "POST /api/v1/shorten",
			"redirect": "GET /{shortCode}",
			"stats":    "GET /api/v1/urls/{shortCode}/stats",
			"list":     "GET /api/v1/urls",
			"delete":   "DELETE /api/v1/urls/{shortCode}",
			"qrcode":   "GET /api/v1/urls/{shortCode}/qr",
		},
	})
}

// shortenRequest represents the request payload for creating a shortened URL.
type shortenRequest struct {
	OriginalURL string     `json:"original_url" validate:"required,min=1,max=2048"`
	CustomAlias string     `json:"custom_alias,omitempty" validate:"omitempty,min=3,max=20"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// urlResponse represents the response payload for a shortened URL operation.
type urlResponse struct {
	ID           int64      `json:"id"`
	OriginalURL  string     `json:"original_url"`
	ShortCode    string     `json:"short_code"`
	ShortURL     string     `json:"short_url"`
	ClickCount   int64      `json:"click_count"`
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	LastAccessed *time.Time `json:"last_accessed,omitempty"`
}

// clickResponse represents one click record in the stats payload.
type clickResponse struct {
	ID        int64     `json:"id"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Referer   string    `json:"referer,omitempty"`
	ClickedAt time.Time `json:"clicked_at"`
}

// statsResponse combines URL metadata with its bounded click history.
type statsResponse struct {
	urlResponse
	RecentClicks []clickResponse `json:"recent_clicks"`
}

// toURLResponse converts a URL model from the business layer into a response payload.
func toURLResponse(url *models.URL, baseURL string) urlResponse {
	return urlResponse{
		ID:           url.ID,
		OriginalURL:  url.OriginalURL,
		ShortCode:    url.ShortCode,
		ShortURL:     baseURL + "/" + url.ShortCode,
		ClickCount:   url.ClickCount,
		CreatedAt:    url.CreatedAt,
		ExpiresAt:    url.ExpiresAt,
		LastAccessed: url.LastAccessed,
	}
}

func toStatsResponse(stats *models.URLStats, baseURL string) statsResponse {
	resp := statsResponse{
		urlResponse:  toURLResponse(&stats.URL, baseURL),
		RecentClicks: make([]clickResponse, 0, len(stats.RecentClicks)),
	}

	for _, c := range stats.RecentClicks {
		resp.RecentClicks = append(resp.RecentClicks, clickResponse{
			ID:        c.ID,
			IPAddress: c.IPAddress,
			UserAgent: c.UserAgent,
			Referer:   c.Referer,
			ClickedAt: c.ClickedAt,
		})
	}

	return resp
}

// handleShortenURL handles POST requests to shorten a URL.
//
// The request must contain a valid URL and may carry a custom alias and an
// expiration timestamp. The handler validates the input shape, calls the URL
// shortening service and returns the created record with its short URL.
func handleShortenURL(svc URLService, validate *validator.Validate, baseURL string) http.HandlerFunc {
	const op = "api.http.handleShortenURL"
	const successMsg = "The URL has been shortened successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		var req shortenRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		url, err := svc.ShortenURL(r.Context(), req.OriginalURL, req.CustomAlias, req.ExpiresAt)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrInvalidURL):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.InvalidURLResponse)
			case errors.Is(err, service.ErrInvalidAlias):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.InvalidAliasResponse)
			case errors.Is(err, database.ErrShortCodeExists):
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, response.AliasConflictResponse)
			default:
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.ServerErrorResponse)
			}
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.SuccessResponse(successMsg, toURLResponse(url, baseURL)))
	}
}

// clientIP returns the client address without the TCP port. RemoteAddr is
// "ip:port" for direct connections and a bare IP once the real IP middleware
// has rewritten it from a proxy header.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// handleRedirect handles GET requests on short codes.
//
// On success the client is redirected to the original URL with a temporary
// redirect, so future requests re-resolve through the service instead of
// being cached. The click is recorded with the client's address, user agent
// and referer before redirecting.
func handleRedirect(svc URLService) http.HandlerFunc {
	const op = "api.http.handleRedirect"

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		userAgent := r.UserAgent()
		if userAgent == "" {
			userAgent = "Unknown"
		}

		click := models.ClickInfo{
			IPAddress: clientIP(r),
			UserAgent: userAgent,
			Referer:   r.Referer(),
		}

		url, err := svc.ResolveShortCode(r.Context(), shortCode, click)
		if err != nil {
			switch {
			case errors.Is(err, database.ErrURLNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
			case errors.Is(err, service.ErrURLExpired):
				render.Status(r, http.StatusGone)
				render.JSON(w, r, response.URLExpiredResponse)
			default:
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.ServerErrorResponse)
			}
			return
		}

		http.Redirect(w, r, url.OriginalURL, http.StatusTemporaryRedirect)
	}
}

// handleGetURLStats handles GET requests to retrieve usage statistics for a shortened URL.
//
// The handler returns the URL's metadata together with its most recent
// clicks, newest first, or a 404 error if the short code doesn't exist.
func handleGetURLStats(svc URLService, baseURL string) http.HandlerFunc {
	const op = "api.http.handleGetURLStats"
	const successMsg = "The URL statistics retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		stats, err := svc.GetURLStats(r.Context(), shortCode)
		if err != nil {
			if errors.Is(err, database.ErrURLNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toStatsResponse(stats, baseURL)))
	}
}

const (
	defaultListLimit = 100
)

// handleListURLs handles GET requests for a page of shortened URLs.
//
// Pagination comes from the skip and limit query parameters; malformed or
// negative values fall back to the defaults.
func handleListURLs(svc URLService, baseURL string) http.HandlerFunc {
	const op = "api.http.handleListURLs"
	const successMsg = "The URLs retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		skip := parseQueryInt(r, "skip", 0)
		limit := parseQueryInt(r, "limit", defaultListLimit)

		urls, err := svc.ListURLs(r.Context(), skip, limit)
		if err != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		data := make([]urlResponse, 0, len(urls))
		for i := range urls {
			data = append(data, toURLResponse(&urls[i], baseURL))
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, data))
	}
}

// handleDeleteURL handles DELETE requests to remove a shortened URL.
//
// Click records are removed together with the URL. The handler returns 204
// with no body on success or a 404 error if the short code doesn't exist.
func handleDeleteURL(svc URLService) http.HandlerFunc {
	const op = "api.http.handleDeleteURL"

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		err := svc.DeleteURL(r.Context(), shortCode)
		if err != nil {
			if errors.Is(err, database.ErrURLNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

const qrCodeSize = 256

// handleQRCode handles GET requests for a QR code image of the short URL.
func handleQRCode(baseURL string) http.HandlerFunc {
	const op = "api.http.handleQRCode"

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")
		shortURL := baseURL + "/" + shortCode

		png, err := qrcode.Encode(shortURL, qrcode.Medium, qrCodeSize)
		if err != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Disposition", "inline; filename=qrcode.png")
		w.WriteHeader(http.StatusOK)
		w.Write(png)
	}
}

func parseQueryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}

	return v
}
