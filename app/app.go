package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"blogapi/auth"
	"blogapi/comments"
	"blogapi/common"
	"blogapi/email"
	"blogapi/models"
	"blogapi/notify"
	"blogapi/policy"
	"blogapi/posts"
	"blogapi/ratelimit"
)

// App holds the wired modules and the background workers they depend on.
type App struct {
	Router     *gin.Engine
	Dispatcher *notify.Dispatcher
	Throttles  *ratelimit.Policies

	db     *gorm.DB
	logger *slog.Logger
	cancel context.CancelFunc
}

type Option func(*options)

type options struct {
	sink notify.Sink
}

// WithSink overrides the notification sink chosen from the config.
func WithSink(sink notify.Sink) Option {
	return func(o *options) { o.sink = sink }
}

func New(cfg common.Config, db *gorm.DB, logger *slog.Logger, opts ...Option) *App {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.sink == nil {
		o.sink = NewSink(cfg, logger)
	}

	guard := policy.NewGuard()
	paging := common.Paging{
		DefaultLimit: cfg.DefaultPageSize,
		MaxLimit:     cfg.MaxPageSize,
		BaseURL:      cfg.AppURL,
	}

	dispatcher := notify.NewDispatcher(o.sink, cfg.NotifyQueueSize, logger)
	throttles := ratelimit.NewPolicies(ratelimit.Limits{
		API:       cfg.RateLimitAPI,
		Login:     cfg.RateLimitLogin,
		AuthUser:  cfg.RateLimitAuthUser,
		AuthGuest: cfg.RateLimitAuthGuest,
	})

	authService := auth.NewService(
		&auth.GormUserStore{DB: db},
		&auth.GormTokenStore{DB: db},
		auth.BcryptHasher{Cost: cfg.BcryptCost},
	)
	authModule := auth.NewAuthModule(authService)
	postsModule := posts.NewPostsModule(posts.NewService(&posts.GormRepository{DB: db}, guard), paging)
	commentsModule := comments.NewCommentsModule(comments.NewService(&comments.GormRepository{DB: db}, guard, dispatcher), paging)

	router := gin.New()
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		logger.Warn("invalid trusted proxies, trusting none", "event", "config_trusted_proxies_invalid", "module", "app", "error", err)
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(gin.Recovery(), common.RequestLogger(logger))

	a := &App{
		Router:     router,
		Dispatcher: dispatcher,
		Throttles:  throttles,
		db:         db,
		logger:     logger,
	}

	router.GET("/health", a.health)
	for _, prefix := range []string{"/", "/api"} {
		g := router.Group(prefix)

		g.POST("/register", throttles.API(), authModule.Register)
		g.POST("/login", throttles.Login(), authModule.Login)
		g.POST("/logout", authModule.RequireAuth, authModule.Logout)

		users := g.Group("", authModule.RequireAuth, auth.RequireRole(models.RoleUser), throttles.API())
		users.GET("/user", authModule.Me)
		postsModule.RegisterRoutes(users)
		commentsModule.RegisterRoutes(users)

		g.GET("/admin", authModule.RequireAuth, auth.RequireRole(models.RoleAdmin), throttles.Authenticated(), authModule.Admin)
	}

	router.NoRoute(func(c *gin.Context) {
		common.Failure(c, http.StatusNotFound, "Not found.", nil)
	})

	return a
}

// NewSink picks the notification sink named by NOTIFY_SINK.
func NewSink(cfg common.Config, logger *slog.Logger) notify.Sink {
	switch cfg.NotifySink {
	case "email":
		return notify.EmailSink{Mailer: email.NewEmailService(email.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			User:     cfg.SMTP.User,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})}
	default:
		return notify.LogSink{Logger: logger}
	}
}

// Start launches the notification worker and the rate limit janitor.
func (a *App) Start(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)
	a.Dispatcher.Start(ctx)
	a.Throttles.RunJanitor(ctx, time.Minute)
}

// Stop drains pending notifications and stops the background workers.
func (a *App) Stop() {
	a.Dispatcher.Stop()
	if a.cancel != nil {
		a.cancel()
	}
}

func (a *App) health(c *gin.Context) {
	if err := common.Ping(c.Request.Context(), a.db); err != nil {
		a.logger.Error("health check failed", "event", "health_failed", "module", "app", "error", err)
		common.Failure(c, http.StatusServiceUnavailable, "Database unavailable.", nil)
		return
	}
	common.Success(c, http.StatusOK, gin.H{"database": "ok"}, "OK")
}
