package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/cmlabs-hris/feedstore-go/internal/config"
	"github.com/cmlabs-hris/feedstore-go/internal/domain/feed"
	"github.com/cmlabs-hris/feedstore-go/internal/mockfeed"
	"github.com/cmlabs-hris/feedstore-go/internal/pkg/token"
	"github.com/go-chi/httplog/v3"
)

// mockfeed runs the in-memory feed API for local development. It seeds a
// small inbox and keeps pushing a new notification every few seconds so
// feedwatch has something to tail.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	logFormat := httplog.SchemaECS.Concise(false)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "mockfeed"),
		slog.String("env", cfg.App.Env),
	)

	tokens := token.NewTokenService(cfg.Feed.APIKey, cfg.Feed.APISecret, cfg.Feed.TokenTTL)
	srv := mockfeed.NewServer(tokens)

	srv.Feed().Seed([]*feed.Notification{
		{Title: "Welcome to the feed", Category: "onboarding"},
		{Title: "Your weekly digest is ready", Category: "digest"},
		{Title: "Invoice #1042 is due", Category: "billing"},
	})

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		n := 0
		for range ticker.C {
			n++
			srv.Feed().Push(&feed.Notification{
				Title:    fmt.Sprintf("Ping #%d", n),
				Category: "demo",
			})
		}
	}()

	port := fmt.Sprintf(":%d", cfg.App.Port)
	logger.Info("mock feed listening", slog.String("addr", port))
	if err := http.ListenAndServe(port, srv.Router(logger)); err != nil {
		logger.Error("server error", slog.Any("error", err))
		os.Exit(1)
	}
}
