package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"blogapi/common"
	"blogapi/models"
)

const (
	tokenName = "auth_token"
	tokenType = "Bearer"

	MsgBadCredentials  = "The provided credentials are incorrect."
	MsgEmailTaken      = "The email has already been taken."
	MsgUnauthenticated = "Unauthenticated."
)

// IssuedToken is what register and login hand back to the client.
type IssuedToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Service issues, resolves and revokes bearer tokens.
type Service struct {
	users  UserStore
	tokens TokenStore
	hasher PasswordHasher
	now    func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

func NewService(users UserStore, tokens TokenStore, hasher PasswordHasher) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		hasher: hasher,
		now:    time.Now,
	}
}

// Register creates a user with the default role and issues its first token.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*IssuedToken, error) {
	if _, err := s.users.FindByEmail(ctx, in.Email); err == nil {
		return nil, emailTaken()
	} else if !errors.Is(err, ErrNotFound) {
		return nil, s.fail("register", err)
	}

	role, err := s.users.FindRoleByName(ctx, models.RoleUser)
	if errors.Is(err, ErrNotFound) {
		return nil, common.ValidationError("The default user role does not exist.")
	}
	if err != nil {
		return nil, s.fail("register", err)
	}

	hash, err := s.hasher.Hash([]byte(in.Password))
	if err != nil {
		return nil, s.fail("register", err)
	}

	raw, digest, err := generateToken()
	if err != nil {
		return nil, s.fail("register", err)
	}

	user := &models.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		RoleID:       role.ID,
	}
	token := &models.AccessToken{Name: tokenName, TokenHash: digest}

	if err := s.users.CreateWithToken(ctx, user, token); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, emailTaken()
		}
		return nil, s.fail("register", err)
	}

	slog.Info("user registered", "event", "auth_register", "module", "auth", "user_id", user.ID)
	return &IssuedToken{AccessToken: raw, TokenType: tokenType}, nil
}

// Login returns a fresh token, or nil when the email is unknown or the
// password does not match. Both cases take the same path through bcrypt.
func (s *Service) Login(ctx context.Context, email, password string) (*IssuedToken, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, s.fail("login", err)
	}

	if user == nil {
		_ = s.hasher.Compare(s.placeholderHash(), []byte(password))
		return nil, nil
	}
	if err := s.hasher.Compare([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil
	}

	raw, digest, err := generateToken()
	if err != nil {
		return nil, s.fail("login", err)
	}
	if err := s.tokens.Create(ctx, &models.AccessToken{UserID: user.ID, Name: tokenName, TokenHash: digest}); err != nil {
		return nil, s.fail("login", err)
	}

	slog.Info("user logged in", "event", "auth_login", "module", "auth", "user_id", user.ID)
	return &IssuedToken{AccessToken: raw, TokenType: tokenType}, nil
}

// Logout revokes every token the user holds, not only the one in use.
func (s *Service) Logout(ctx context.Context, user *models.User) error {
	n, err := s.tokens.DeleteForUser(ctx, user.ID)
	if err != nil {
		return s.fail("logout", err)
	}
	slog.Info("user logged out", "event", "auth_logout", "module", "auth", "user_id", user.ID, "revoked", n)
	return nil
}

// Authenticate resolves a raw bearer token to its user.
func (s *Service) Authenticate(ctx context.Context, raw string) (*models.User, error) {
	if raw == "" {
		return nil, common.AuthenticationError(MsgUnauthenticated)
	}

	token, err := s.tokens.FindByHash(ctx, hashToken(raw))
	if errors.Is(err, ErrNotFound) {
		return nil, common.AuthenticationError(MsgUnauthenticated)
	}
	if err != nil {
		return nil, s.fail("authenticate", err)
	}
	if token.User.ID == 0 {
		return nil, common.AuthenticationError(MsgUnauthenticated)
	}

	if err := s.tokens.Touch(ctx, token.ID, s.now()); err != nil {
		slog.Warn("could not stamp token usage", "event", "auth_token_touch_failed", "module", "auth", "token_id", token.ID, "error", err)
	}

	user := token.User
	return &user, nil
}

func (s *Service) placeholderHash() []byte {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash([]byte("placeholder-password"))
		if err != nil {
			slog.Error("could not build placeholder hash", "event", "auth_placeholder_hash_failed", "module", "auth", "error", err)
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

func (s *Service) fail(op string, err error) error {
	slog.Error("auth operation failed", "event", "auth_"+op+"_failed", "module", "auth", "error", err)
	return common.ProcessingError(err)
}

func emailTaken() *common.Error {
	return &common.Error{
		Kind:    common.KindValidation,
		Message: MsgEmailTaken,
		Data:    map[string]any{"errors": map[string][]string{"email": {MsgEmailTaken}}},
	}
}
