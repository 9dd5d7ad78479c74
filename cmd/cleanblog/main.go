package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/eringen/cleanblog"
	"github.com/eringen/cleanblog/views"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "serve":
		if err := runServe(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("cleanblog %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func runServe() error {
	cfg, err := cleanblog.ConfigFromEnv()
	if err != nil {
		return err
	}
	logger, err := cleanblog.NewLogger(cfg.Log)
	if err != nil {
		return err
	}

	app := cleanblog.New(cfg, views.Default(),
		cleanblog.WithStaticDir(cleanblog.EnvOr("STATIC_DIR", "public")),
		cleanblog.WithLogger(logger),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- app.Start() }()

	select {
	case err := <-errc:
		_ = app.Close()
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
		return err
	}
	return nil
}

func printUsage() {
	fmt.Println(`cleanblog - a small multi-user blog built with Go, Echo, and templ

Usage:
  cleanblog [command]

Commands:
  serve      Run the web server (default)
  version    Print the cleanblog version
  help       Show this help message

Environment:
  SESSION_SECRET (required), SITE_NAME, SITE_URL, SITE_DESCRIPTION,
  SITE_AUTHOR, ADDR, DATABASE_PATH, STATIC_DIR, COOKIE_SECURE,
  POST_CACHE_TTL, LOGIN_MAX_ATTEMPTS, WRITE_RATE_PER_MINUTE, LOG_LEVEL,
  LOG_PATH, LOG_MAX_SIZE_MB, LOG_MAX_BACKUPS, LOG_MAX_AGE_DAYS, LOG_COMPRESS`)
}
