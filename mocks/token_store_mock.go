package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"blogapi/models"
)

type TokenStore struct{ mock.Mock }

func (m *TokenStore) Create(ctx context.Context, t *models.AccessToken) error {
	return m.Called(ctx, t).Error(0)
}

func (m *TokenStore) FindByHash(ctx context.Context, hash string) (*models.AccessToken, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AccessToken), args.Error(1)
}

func (m *TokenStore) Touch(ctx context.Context, id uint, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *TokenStore) DeleteForUser(ctx context.Context, userID uint) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}
