package ratelimit

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogapi/auth"
	"blogapi/models"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(limit int) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	l := New(limit, time.Minute)
	l.now = clock.now
	return l, clock
}

func TestLimiter_Allow(t *testing.T) {
	l, _ := newTestLimiter(3)

	for i := 1; i <= 3; i++ {
		d := l.Allow("k")
		assert.True(t, d.Allowed, "hit %d", i)
		assert.Equal(t, 3-i, d.Remaining)
		assert.Equal(t, 3, d.Limit)
	}

	d := l.Allow("k")
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, time.Minute, d.RetryAfter)

	assert.True(t, l.Allow("other").Allowed)
}

func TestLimiter_WindowResets(t *testing.T) {
	l, clock := newTestLimiter(2)
	l.Allow("k")
	l.Allow("k")

	clock.advance(40 * time.Second)
	d := l.Allow("k")
	assert.False(t, d.Allowed)
	assert.Equal(t, 20*time.Second, d.RetryAfter)

	clock.advance(20 * time.Second)
	assert.True(t, l.Allow("k").Allowed)
}

func TestLimiter_Reset(t *testing.T) {
	l, _ := newTestLimiter(1)
	l.Allow("k")
	require.False(t, l.Allow("k").Allowed)

	l.Reset("k")
	assert.True(t, l.Allow("k").Allowed)
}

func TestLimiter_Sweep(t *testing.T) {
	l, clock := newTestLimiter(5)
	for i := 0; i < 20; i++ {
		l.Allow(fmt.Sprintf("key-%d", i))
	}

	assert.Zero(t, l.Sweep())

	clock.advance(time.Minute)
	l.Allow("fresh")
	assert.Equal(t, 20, l.Sweep())
	assert.Zero(t, l.Sweep())
}

func TestLimiter_Concurrent(t *testing.T) {
	l := New(100, time.Minute)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("shared").Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, allowed)
}

func setupTestRouter(p *Policies, as *models.User) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	withUser := func(c *gin.Context) {
		if as != nil {
			auth.SetCurrentUser(c, as)
		}
		c.Next()
	}
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }

	router.POST("/login", p.Login(), ok)
	router.GET("/posts", withUser, p.API(), ok)
	router.GET("/admin", withUser, p.Authenticated(), ok)
	return router
}

func hit(router *gin.Engine, method, path, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = ip + ":1234"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestLoginThrottle(t *testing.T) {
	router := setupTestRouter(NewPolicies(Limits{API: 60, Login: 5, AuthUser: 100, AuthGuest: 10}), nil)

	for i := 1; i <= 5; i++ {
		w := hit(router, http.MethodPost, "/login", "10.0.0.1")
		require.Equal(t, http.StatusOK, w.Code, "attempt %d", i)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
	}

	w := hit(router, http.MethodPost, "/login", "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), MsgTooManyAttempts)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// other clients keep their own budget
	w = hit(router, http.MethodPost, "/login", "10.0.0.2")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoginThrottle_IgnoresForwardedFor(t *testing.T) {
	router := setupTestRouter(NewPolicies(Limits{API: 60, Login: 1, AuthUser: 100, AuthGuest: 10}), nil)
	require.NoError(t, router.SetTrustedProxies(nil))

	hit(router, http.MethodPost, "/login", "10.0.0.1")

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestAPIThrottle_KeysByUser(t *testing.T) {
	policies := NewPolicies(Limits{API: 2, Login: 5, AuthUser: 100, AuthGuest: 10})
	alice := setupTestRouter(policies, &models.User{ID: 1})
	bob := setupTestRouter(policies, &models.User{ID: 2})

	assert.Equal(t, http.StatusOK, hit(alice, http.MethodGet, "/posts", "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, hit(alice, http.MethodGet, "/posts", "10.0.0.2").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(alice, http.MethodGet, "/posts", "10.0.0.3").Code)

	// same IP, different user
	assert.Equal(t, http.StatusOK, hit(bob, http.MethodGet, "/posts", "10.0.0.1").Code)
}

func TestAuthenticatedThrottle(t *testing.T) {
	policies := NewPolicies(Limits{API: 60, Login: 5, AuthUser: 3, AuthGuest: 1})
	user := setupTestRouter(policies, &models.User{ID: 1})
	guest := setupTestRouter(policies, nil)

	w := hit(user, http.MethodGet, "/admin", "10.0.0.1")
	assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))

	w = hit(guest, http.MethodGet, "/admin", "10.0.0.9")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, http.StatusTooManyRequests, hit(guest, http.MethodGet, "/admin", "10.0.0.9").Code)
}
