// Package cleanblog is a small multi-user blog built with Go, Echo, and templ.
// Visitors read posts, registered users comment, and a single administrator
// (the first registered account) writes, edits and deletes posts.
//
// Sites provide their templates through ViewFuncs; cleanblog owns the
// handlers, middleware, sessions and the SQLite store.
package cleanblog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ViewFuncs holds the templ components cleanblog renders. Every component
// receives the per-request Page.
type ViewFuncs struct {
	Home        func(page Page, posts []BlogPost) templ.Component
	About       func(page Page) templ.Component
	Contact     func(page Page) templ.Component
	Post        func(page Page, post BlogPost, comments []Comment, form CommentForm) templ.Component
	PostForm    func(page Page, form PostForm) templ.Component
	Register    func(page Page, form RegisterForm) templ.Component
	Login       func(page Page, form LoginForm) templ.Component
	AdminImages func(page Page, images []Image) templ.Component
	NotFound    func(page Page) templ.Component
	Forbidden   func(page Page) templ.Component
	ServerError func(page Page) templ.Component
}

// App is the application context. It is built once at startup and every
// handler is a method on it.
type App struct {
	Config SiteConfig
	Echo   *echo.Echo
	Store  *Store
	Cache  *PostCache
	Views  ViewFuncs
	Logger *zap.Logger

	loginLimiter *LoginLimiter
	writeLimiter *WriteLimiter
	customRoutes []func(*App)
	staticDir    string
	stopWorkers  context.CancelFunc
}

// New creates a new App with the given configuration and view functions.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	a := &App{
		Config:    cfg,
		Echo:      e,
		Views:     views,
		staticDir: "public",
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Setup opens the store and registers middleware and routes without starting
// the listener.
func (a *App) Setup() error {
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("cleanblog: SessionSecret is required")
	}
	if a.Logger == nil {
		logger, err := NewLogger(a.Config.Log)
		if err != nil {
			return fmt.Errorf("cleanblog: init logger: %w", err)
		}
		a.Logger = logger
	}

	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("cleanblog: init store: %w", err)
	}
	a.Store = store
	a.Cache = NewPostCache(a.Store, a.Config.PostCacheTTL)

	a.loginLimiter = NewLoginLimiter(a.Config.LoginMaxAttempts, a.Config.LoginWindow)
	a.writeLimiter = NewWriteLimiter(a.Config.WriteRatePerMinute)
	ctx, cancel := context.WithCancel(context.Background())
	a.stopWorkers = cancel
	go a.loginLimiter.Run(ctx)

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

// Start sets the app up and serves until Shutdown is called.
func (a *App) Start() error {
	if err := a.Setup(); err != nil {
		return err
	}
	a.Logger.Info("listening", zap.String("addr", a.Config.Addr), zap.String("db", a.Config.DatabasePath))
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully and releases resources.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Echo.Shutdown(ctx)
	if cerr := a.Close(); err == nil {
		err = cerr
	}
	return err
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.Static("/public", a.staticDir)
	e.GET("/healthz", handleHealth)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)

	e.GET("/", a.handleHome)
	e.GET("/about", a.handleAbout)
	e.GET("/contact", a.handleContact)
	e.GET("/post", a.handlePost)
	e.POST("/post", a.handleComment, a.writeLimiter.Middleware, a.requireLogin(commentLoginFlash))

	e.GET("/register", a.handleRegisterForm)
	e.POST("/register", a.handleRegister, a.writeLimiter.Middleware)
	e.GET("/login", a.handleLoginForm)
	e.POST("/login", a.handleLogin)
	e.GET("/logout", handleLogout)

	admin := a.requireAdmin
	e.GET("/new-post", a.handleNewPostForm, admin)
	e.POST("/new-post", a.handleNewPost, admin)
	e.GET("/edit-post", a.handleEditPostForm, admin)
	e.POST("/edit-post", a.handleEditPost, admin)
	e.GET("/delete", a.handleDeletePost, admin)
	e.GET("/admin/images", a.handleImageList, admin)
	e.POST("/admin/images/upload", a.handleImageUpload, admin)
	e.DELETE("/admin/images/:filename", a.handleImageDelete, admin)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.stopWorkers != nil {
		a.stopWorkers()
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MustEnv returns the value of the environment variable key, or fatally exits if empty.
func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("cleanblog: required environment variable %s is not set", key)
	}
	return v
}
