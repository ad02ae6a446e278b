package auth

import (
	"context"
	"time"

	"gorm.io/gorm"

	"blogapi/models"
)

var ErrNotFound = gorm.ErrRecordNotFound

// UserStore abstracts user and role persistence.
type UserStore interface {
	// FindByEmail returns the user with the given email, or ErrNotFound.
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// FindRoleByName returns the role with the given name, or ErrNotFound.
	FindRoleByName(ctx context.Context, name string) (*models.Role, error)
	// CreateWithToken persists a new user and its first token atomically.
	CreateWithToken(ctx context.Context, u *models.User, t *models.AccessToken) error
}

// TokenStore abstracts access token persistence.
type TokenStore interface {
	Create(ctx context.Context, t *models.AccessToken) error
	// FindByHash returns the token with its user and role loaded, or ErrNotFound.
	// A soft-deleted owner leaves User zero valued.
	FindByHash(ctx context.Context, hash string) (*models.AccessToken, error)
	Touch(ctx context.Context, id uint, at time.Time) error
	// DeleteForUser removes every token belonging to userID.
	DeleteForUser(ctx context.Context, userID uint) (int64, error)
}

// GormUserStore implements UserStore using GORM.
type GormUserStore struct{ DB *gorm.DB }

func (s *GormUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.DB.WithContext(ctx).Preload("Role").Where("email = ?", email).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *GormUserStore) FindRoleByName(ctx context.Context, name string) (*models.Role, error) {
	var r models.Role
	if err := s.DB.WithContext(ctx).Where("name = ?", name).First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *GormUserStore) CreateWithToken(ctx context.Context, u *models.User, t *models.AccessToken) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Role").Create(u).Error; err != nil {
			return err
		}
		t.UserID = u.ID
		return tx.Omit("User").Create(t).Error
	})
}

// GormTokenStore implements TokenStore using GORM.
type GormTokenStore struct{ DB *gorm.DB }

func (s *GormTokenStore) Create(ctx context.Context, t *models.AccessToken) error {
	return s.DB.WithContext(ctx).Omit("User").Create(t).Error
}

func (s *GormTokenStore) FindByHash(ctx context.Context, hash string) (*models.AccessToken, error) {
	var t models.AccessToken
	err := s.DB.WithContext(ctx).
		Preload("User").
		Preload("User.Role").
		Where("token_hash = ?", hash).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *GormTokenStore) Touch(ctx context.Context, id uint, at time.Time) error {
	return s.DB.WithContext(ctx).
		Model(&models.AccessToken{}).
		Where("id = ?", id).
		UpdateColumn("last_used_at", at).Error
}

func (s *GormTokenStore) DeleteForUser(ctx context.Context, userID uint) (int64, error) {
	res := s.DB.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.AccessToken{})
	return res.RowsAffected, res.Error
}
