package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/itsemekaeze/url-shortener/internal/models"
)

type MockURLRepository struct {
	mock.Mock
}

func (r *MockURLRepository) Create(ctx context.Context, shortCode, originalURL string, expiresAt *time.Time) (*models.URL, error) {
	args := r.Called(ctx, shortCode, originalURL, expiresAt)
	url, _ := args.Get(0).(*models.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) GetByShortCode(ctx context.Context, shortCode string) (*models.URL, error) {
	args := r.Called(ctx, shortCode)
	url, _ := args.Get(0).(*models.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) RegisterClick(ctx context.Context, urlID int64, click models.ClickInfo) (*models.URL, error) {
	args := r.Called(ctx, urlID, click)
	url, _ := args.Get(0).(*models.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) RecentClicks(ctx context.Context, urlID int64, limit int) ([]models.Click, error) {
	args := r.Called(ctx, urlID, limit)
	clicks, _ := args.Get(0).([]models.Click)
	return clicks, args.Error(1)
}

func (r *MockURLRepository) List(ctx context.Context, skip, limit int) ([]models.URL, error) {
	args := r.Called(ctx, skip, limit)
	urls, _ := args.Get(0).([]models.URL)
	return urls, args.Error(1)
}

func (r *MockURLRepository) Delete(ctx context.Context, shortCode string) error {
	args := r.Called(ctx, shortCode)
	return args.Error(0)
}
