// Copyright (c) 2025-2026 Alexander Waller
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/walleralexander/yamleditor/internal/config"
	"github.com/walleralexander/yamleditor/internal/files"
	"github.com/walleralexander/yamleditor/internal/handler"
	"github.com/walleralexander/yamleditor/internal/middleware"
	"github.com/walleralexander/yamleditor/internal/ratelimit"
	"github.com/walleralexander/yamleditor/internal/session"
	"github.com/walleralexander/yamleditor/internal/store"
	"github.com/walleralexander/yamleditor/web"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "yamleditor - web editor for YAML, Markdown, JSON and text files\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EDITOR_SESSION_SECRET    Session encryption key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EDITOR_DB_PATH           SQLite database path (default: ./data/editor.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EDITOR_FILES_DIR         Directory holding the editable files (default: ./data/files)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EDITOR_SERVER_PORT       Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EDITOR_ENV               Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EDITOR_ADMIN_PASSWORD    Initial admin password used when seeding (default: admin123)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}
	if *showVersion {
		_, _ = fmt.Printf("yamleditor %s (commit: %s, built: %s)\n", appVersion, appGitCommit, appBuildTime)
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Ensure data directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	ctx := context.Background()
	if err := store.Seed(ctx, db, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		return fmt.Errorf("seeding database: %w", err)
	}

	queries := store.New(db)

	fileManager, err := files.NewManager(cfg.FilesDir, cfg.AllowedExtensions, cfg.MaxBackups)
	if err != nil {
		return fmt.Errorf("initializing file store: %w", err)
	}
	slog.Info("file store initialized", "dir", fileManager.BasePath(), "extensions", cfg.AllowedExtensions)

	sessionLifetime := time.Duration(cfg.SessionLifetime) * time.Second
	sessionManager := session.New(db, sessionLifetime, cfg.IsDevelopment())
	slog.Info("session manager initialized", "lifetime", sessionLifetime)

	limiter := ratelimit.New(queries, cfg.MaxLoginAttempts, time.Duration(cfg.LockoutTime)*time.Second)
	slog.Info("login rate limiter initialized",
		"max_attempts", cfg.MaxLoginAttempts,
		"lockout_time", time.Duration(cfg.LockoutTime)*time.Second,
	)

	// Per-IP token bucket in front of the persistent attempt log
	requestLimiter := middleware.NewRequestRateLimiter(10.0, 20)

	csrfMiddleware := middleware.CSRF(middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), cfg.IsDevelopment(), cfg.ServerAddr()))

	authHandler := handler.NewAuthHandler(queries, sessionManager, limiter, sessionLifetime)
	filesHandler := handler.NewFilesHandler(fileManager)
	usersHandler := handler.NewUsersHandler(queries, cfg.AdminUsername, cfg.PasswordMinLength)
	passwordHandler := handler.NewPasswordHandler(queries, cfg.PasswordMinLength)
	previewHandler := handler.NewPreviewHandler()
	validateHandler := handler.NewValidateHandler()
	pagesHandler := handler.NewPagesHandler(sessionManager)
	healthHandler := handler.NewHealthHandler(db, sessionManager, cfg.FilesDir, sessionLifetime)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(sessionManager.LoadAndSave)

	// Cross-origin protection for the HTML form routes. The JSON API is
	// exempted here and guarded by the per-session X-CSRF-Token instead.
	r.Use(middleware.SkipCSRF("/api", "/health", "/static"))
	r.Use(csrfMiddleware)

	// Static assets
	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		return fmt.Errorf("getting static fs: %w", err)
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	r.Get("/health", healthHandler.Health)

	// Auth routes
	r.Group(func(r chi.Router) {
		r.Use(requestLimiter.HTMLMiddleware())
		r.Get("/login", authHandler.LoginForm)
		r.Post("/login", authHandler.Login)
		r.Get("/logout", authHandler.Logout)
		r.Post("/logout", authHandler.Logout)
	})

	// Pages
	r.With(middleware.RequireLogin(sessionManager, sessionLifetime)).
		Get("/", pagesHandler.Editor)
	r.With(middleware.RequireAdmin(sessionManager, sessionLifetime)).
		Get("/admin", pagesHandler.Admin)

	// JSON API
	r.Route("/api", func(r chi.Router) {
		r.Use(requestLimiter.Middleware())
		r.Use(middleware.RequireLoginJSON(sessionManager, sessionLifetime))
		r.Use(middleware.RequireCSRFToken(sessionManager))

		r.Get("/session", authHandler.Session)

		r.Route("/files", func(r chi.Router) {
			r.Get("/", filesHandler.Get)
			r.Post("/", filesHandler.Create)
			r.Put("/", filesHandler.Update)
			r.Patch("/", filesHandler.Rename)
			r.Delete("/", filesHandler.Delete)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.RequireAdminJSON())
			r.Get("/", usersHandler.Get)
			r.Post("/", usersHandler.Create)
			r.Put("/", usersHandler.Update)
			r.Delete("/", usersHandler.Delete)
		})

		r.Post("/password", passwordHandler.Change)
		r.Post("/preview", previewHandler.Render)
		r.Post("/validate", validateHandler.Check)
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
