package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"pplxbridge/internal/api"
	"pplxbridge/internal/browser"
	"pplxbridge/internal/config"
	"pplxbridge/internal/pplx"
	"pplxbridge/internal/profile"
	"pplxbridge/internal/proxy"
	"pplxbridge/internal/ratelimit"
	"pplxbridge/internal/session"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found, using system environment")
	}

	cfg := config.Load()
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	log.Info("starting pplxbridge", "addr", cfg.Addr, "mode", cfg.BrowserMode)

	profiles, err := profile.NewManager(cfg.ProfileDir, cfg.SnapshotDir)
	if err != nil {
		log.Fatal("profile manager init failed", "error", err)
	}
	log.Info("profile ready", "dir", profiles.Dir())

	var launcher browser.Launcher
	switch cfg.BrowserMode {
	case "docker":
		dockerLauncher, err := browser.NewDockerLauncher(cfg, profiles)
		if err != nil {
			log.Fatal("docker launcher init failed", "error", err)
		}
		defer dockerLauncher.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		if err := dockerLauncher.EnsureImage(ctx); err != nil {
			cancel()
			log.Fatal("chrome image unavailable", "error", err)
		}
		cancel()
		launcher = dockerLauncher
	case "local":
		launcher = browser.NewLocalLauncher(cfg, profiles)
	default:
		log.Fatal("unknown BROWSER_MODE", "mode", cfg.BrowserMode)
	}

	sessions := session.NewManager(launcher)
	asker := pplx.NewClient(sessions)
	proxyServer := proxy.NewServer(sessions)
	limiter := ratelimit.NewLimiter(cfg.RateLimit, cfg.RateBurst)

	handler := api.NewHandler(asker, sessions, profiles)
	router := handler.SetupRoutes(proxyServer, limiter, cfg.RateLimit)

	srv := &http.Server{
		Addr:        cfg.Addr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// No write timeout: the ask pipeline's polling ceilings add up to
		// well over ten minutes of legitimate wall-clock time
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", "error", err)
	}

	log.Info("stopped")
}
