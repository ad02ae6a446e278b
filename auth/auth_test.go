package auth_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"blogapi/auth"
	"blogapi/common"
	"blogapi/database"
	"blogapi/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.RunMigrations(db))
	require.NoError(t, database.SeedRoles(db))
	return db
}

func setupTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)

	service := auth.NewService(&auth.GormUserStore{DB: db}, &auth.GormTokenStore{DB: db}, auth.BcryptHasher{Cost: bcrypt.MinCost})
	module := auth.NewAuthModule(service)

	router := gin.New()
	router.POST("/register", module.Register)
	router.POST("/login", module.Login)
	router.POST("/logout", module.RequireAuth, module.Logout)
	router.GET("/user", module.RequireAuth, auth.RequireRole(models.RoleUser), module.Me)
	router.GET("/admin", module.RequireAuth, auth.RequireRole(models.RoleAdmin), module.Admin)
	return router
}

func createTestUser(t *testing.T, db *gorm.DB, email, roleName string) *models.User {
	var role models.Role
	require.NoError(t, db.Where("name = ?", roleName).First(&role).Error)

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{Name: "Test", Email: email, PasswordHash: string(hash), RoleID: role.ID}
	require.NoError(t, db.Create(user).Error)
	return user
}

func doJSON(router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func issuedToken(t *testing.T, w *httptest.ResponseRecorder) string {
	var token auth.IssuedToken
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &token))
	require.NotEmpty(t, token.AccessToken)
	return token.AccessToken
}

func TestRegister(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	w := doJSON(router, http.MethodPost, "/register", "", gin.H{
		"name": "Alice", "email": "alice@example.com", "password": "password123",
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	env := decode(t, w)
	assert.Equal(t, common.StatusSuccess, env.Status)
	assert.Equal(t, "User registered successfully", env.Message)
	token := issuedToken(t, w)

	var stored models.AccessToken
	require.NoError(t, db.First(&stored).Error)
	assert.NotEqual(t, token, stored.TokenHash)
	assert.Len(t, stored.TokenHash, 64)

	w = doJSON(router, http.MethodGet, "/user", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var me models.User
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &me))
	assert.Equal(t, "alice@example.com", me.Email)
	assert.Equal(t, models.RoleUser, me.Role.Name)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	createTestUser(t, db, "taken@example.com", models.RoleUser)

	w := doJSON(router, http.MethodPost, "/register", "", gin.H{
		"name": "Bob", "email": "taken@example.com", "password": "password123",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	env := decode(t, w)
	assert.Equal(t, common.StatusError, env.Status)
	assert.Equal(t, auth.MsgEmailTaken, env.Message)
	assert.Contains(t, string(env.Data), `"email"`)
}

func TestRegister_Validation(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	tests := []struct {
		name    string
		body    gin.H
		message string
	}{
		{"missing name", gin.H{"email": "a@example.com", "password": "password123"}, "The name field is required."},
		{"bad email", gin.H{"name": "A", "email": "nope", "password": "password123"}, "The email field must be a valid email address."},
		{"short password", gin.H{"name": "A", "email": "a@example.com", "password": "short"}, "The password field must be at least 8 characters."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(router, http.MethodPost, "/register", "", tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
			assert.Equal(t, tt.message, decode(t, w).Message)
		})
	}

	var count int64
	db.Model(&models.User{}).Count(&count)
	assert.Zero(t, count)
}

func TestLogin(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	createTestUser(t, db, "bob@example.com", models.RoleUser)

	w := doJSON(router, http.MethodPost, "/login", "", gin.H{"email": "bob@example.com", "password": "password123"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Login successful", decode(t, w).Message)
	token := issuedToken(t, w)

	w = doJSON(router, http.MethodGet, "/user", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogin_FailuresLookTheSame(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	createTestUser(t, db, "bob@example.com", models.RoleUser)

	wrongPassword := doJSON(router, http.MethodPost, "/login", "", gin.H{"email": "bob@example.com", "password": "not-the-password"})
	unknownEmail := doJSON(router, http.MethodPost, "/login", "", gin.H{"email": "ghost@example.com", "password": "password123"})

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	assert.JSONEq(t, wrongPassword.Body.String(), unknownEmail.Body.String())
	assert.Equal(t, auth.MsgBadCredentials, decode(t, wrongPassword).Message)

	var count int64
	db.Model(&models.AccessToken{}).Count(&count)
	assert.Zero(t, count)
}

func TestLogout_RevokesEveryToken(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	createTestUser(t, db, "bob@example.com", models.RoleUser)

	creds := gin.H{"email": "bob@example.com", "password": "password123"}
	first := issuedToken(t, doJSON(router, http.MethodPost, "/login", "", creds))
	second := issuedToken(t, doJSON(router, http.MethodPost, "/login", "", creds))

	w := doJSON(router, http.MethodPost, "/logout", first, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Logged out successfully", decode(t, w).Message)

	for _, token := range []string{first, second} {
		w := doJSON(router, http.MethodGet, "/user", token, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, auth.MsgUnauthenticated, decode(t, w).Message)
	}
}

func TestRequireAuth(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"wrong scheme", "Basic abc"},
		{"unknown token", "Bearer does-not-exist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/user", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, auth.MsgUnauthenticated, decode(t, w).Message)
		})
	}
}

func TestRequireAuth_SoftDeletedUser(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "bob@example.com", models.RoleUser)

	token := issuedToken(t, doJSON(router, http.MethodPost, "/login", "", gin.H{"email": "bob@example.com", "password": "password123"}))
	require.NoError(t, db.Delete(user).Error)

	w := doJSON(router, http.MethodGet, "/user", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	createTestUser(t, db, "user@example.com", models.RoleUser)
	createTestUser(t, db, "admin@example.com", models.RoleAdmin)

	userToken := issuedToken(t, doJSON(router, http.MethodPost, "/login", "", gin.H{"email": "user@example.com", "password": "password123"}))
	adminToken := issuedToken(t, doJSON(router, http.MethodPost, "/login", "", gin.H{"email": "admin@example.com", "password": "password123"}))

	w := doJSON(router, http.MethodGet, "/admin", userToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Unauthorized access", decode(t, w).Message)

	w = doJSON(router, http.MethodGet, "/admin", adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Admin access granted", decode(t, w).Message)

	// roles are matched exactly, admins do not inherit user routes
	w = doJSON(router, http.MethodGet, "/user", adminToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestTokenLastUsedIsStamped(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	createTestUser(t, db, "bob@example.com", models.RoleUser)

	token := issuedToken(t, doJSON(router, http.MethodPost, "/login", "", gin.H{"email": "bob@example.com", "password": "password123"}))

	var before models.AccessToken
	require.NoError(t, db.First(&before).Error)
	assert.Nil(t, before.LastUsedAt)

	doJSON(router, http.MethodGet, "/user", token, nil)

	var after models.AccessToken
	require.NoError(t, db.First(&after).Error)
	assert.NotNil(t, after.LastUsedAt)
}
