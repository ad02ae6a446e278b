package ratelimit

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"blogapi/auth"
	"blogapi/common"
)

const MsgTooManyAttempts = "Too Many Attempts."

type Limits struct {
	API       int
	Login     int
	AuthUser  int
	AuthGuest int
}

// Policies are the named throttles routes can opt into.
type Policies struct {
	api       *Limiter
	login     *Limiter
	authUser  *Limiter
	authGuest *Limiter
}

func NewPolicies(limits Limits) *Policies {
	return &Policies{
		api:       New(limits.API, time.Minute),
		login:     New(limits.Login, time.Minute),
		authUser:  New(limits.AuthUser, time.Minute),
		authGuest: New(limits.AuthGuest, time.Minute),
	}
}

// API throttles by user id when authenticated, otherwise by client IP.
func (p *Policies) API() gin.HandlerFunc {
	return throttle(func(c *gin.Context) (*Limiter, string) {
		if user, ok := auth.CurrentUser(c); ok {
			return p.api, "api:user:" + strconv.FormatUint(uint64(user.ID), 10)
		}
		return p.api, "api:ip:" + c.ClientIP()
	})
}

// Login throttles by client IP only.
func (p *Policies) Login() gin.HandlerFunc {
	return throttle(func(c *gin.Context) (*Limiter, string) {
		return p.login, "login:ip:" + c.ClientIP()
	})
}

// Authenticated gives known users a larger allowance than anonymous callers.
func (p *Policies) Authenticated() gin.HandlerFunc {
	return throttle(func(c *gin.Context) (*Limiter, string) {
		if user, ok := auth.CurrentUser(c); ok {
			return p.authUser, "authenticated:user:" + strconv.FormatUint(uint64(user.ID), 10)
		}
		return p.authGuest, "authenticated:ip:" + c.ClientIP()
	})
}

func (p *Policies) RunJanitor(ctx context.Context, interval time.Duration) {
	for _, l := range []*Limiter{p.api, p.login, p.authUser, p.authGuest} {
		go l.RunJanitor(ctx, interval)
	}
}

func throttle(pick func(c *gin.Context) (*Limiter, string)) gin.HandlerFunc {
	return func(c *gin.Context) {
		limiter, key := pick(c)
		d := limiter.Allow(key)

		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))

		if !d.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(d.RetryAfter.Seconds()))))
			common.Fail(c, common.RateLimitError(MsgTooManyAttempts))
			return
		}
		c.Next()
	}
}
