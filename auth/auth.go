package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"blogapi/common"
	"blogapi/models"
)

const userContextKey = "auth_user"

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=255"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthModule struct {
	service *Service
}

func NewAuthModule(service *Service) *AuthModule {
	return &AuthModule{service: service}
}

func (a *AuthModule) Register(c *gin.Context) {
	var req RegisterRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	token, err := a.service.Register(c.Request.Context(), RegisterInput{
		Name:     req.Name,
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
	})
	if err != nil {
		common.Fail(c, err)
		return
	}

	common.Success(c, http.StatusCreated, token, "User registered successfully")
}

func (a *AuthModule) Login(c *gin.Context) {
	var req LoginRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	token, err := a.service.Login(c.Request.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		common.Fail(c, err)
		return
	}
	if token == nil {
		common.Fail(c, common.AuthenticationError(MsgBadCredentials))
		return
	}

	common.Success(c, http.StatusOK, token, "Login successful")
}

func (a *AuthModule) Logout(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		common.Fail(c, common.AuthenticationError(MsgUnauthenticated))
		return
	}

	if err := a.service.Logout(c.Request.Context(), user); err != nil {
		common.Fail(c, err)
		return
	}

	common.Success(c, http.StatusOK, nil, "Logged out successfully")
}

// Me echoes the authenticated user.
func (a *AuthModule) Me(c *gin.Context) {
	user, _ := CurrentUser(c)
	common.Success(c, http.StatusOK, user, "User access granted")
}

func (a *AuthModule) Admin(c *gin.Context) {
	user, _ := CurrentUser(c)
	common.Success(c, http.StatusOK, user, "Admin access granted")
}

// RequireAuth resolves the bearer token and stores the user on the context.
func (a *AuthModule) RequireAuth(c *gin.Context) {
	user, err := a.service.Authenticate(c.Request.Context(), bearerToken(c))
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.Set(userContextKey, user)
	c.Next()
}

// RequireRole only lets through users whose role name is exactly role.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok || user.Role.Name != role {
			common.Fail(c, common.AuthorizationError("Unauthorized access"))
			return
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get(userContextKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}

// SetCurrentUser is used by tests and other middleware that authenticate
// by other means.
func SetCurrentUser(c *gin.Context, user *models.User) {
	c.Set(userContextKey, user)
}

func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
