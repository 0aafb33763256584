package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timemachinetv/timemachine/internal/config"
	"github.com/timemachinetv/timemachine/internal/media"
	"github.com/timemachinetv/timemachine/internal/ratelimit"
	"github.com/timemachinetv/timemachine/internal/request"
	"github.com/timemachinetv/timemachine/internal/server"
	"github.com/timemachinetv/timemachine/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration failed: %v", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

	store := session.NewStore(session.StoreConfig{
		BaseURL:   cfg.GenerationBaseURL,
		Defaults:  defaultForm(cfg),
		NewPlayer: playerFactory(cfg),
		TTL:       cfg.SessionTTL,
	})
	if cfg.MediaProbe {
		log.Printf("media probe enabled (timeout %s)", cfg.MediaProbeTimeout)
	} else {
		log.Println("media events reported by the browser")
	}

	limiter := ratelimit.NewLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	backgroundCtx, backgroundCancel := context.WithCancel(context.Background())
	defer backgroundCancel()
	store.StartCleanupLoop(backgroundCtx, time.Minute)
	limiter.StartPruneLoop(backgroundCtx, 5*time.Minute)

	srv := server.New(server.Config{
		Sessions:      store,
		BaseURL:       cfg.BaseURL,
		MediaProbe:    cfg.MediaProbe,
		SubmitLimiter: limiter,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("timemachine listening on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-shutdownCh
	log.Println("shutting down...")
	backgroundCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown failed: %v", err)
	}
	log.Println("shutdown complete")
}

func defaultForm(cfg *config.Config) request.Params {
	form := request.DefaultParams()
	form.Prompt = "A cinematic short of an old city street at dusk, filmic, moody lighting"
	form.Key = cfg.DefaultKey
	return form
}

func playerFactory(cfg *config.Config) session.PlayerFactory {
	if !cfg.MediaProbe {
		return func(media.Notifier) media.Player { return media.NewRemote() }
	}
	client := &http.Client{Timeout: cfg.MediaProbeTimeout}
	return func(n media.Notifier) media.Player { return media.NewProber(client, n) }
}
