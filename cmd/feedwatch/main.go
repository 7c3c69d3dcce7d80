package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cmlabs-hris/feedstore-go/internal/client/rest"
	"github.com/cmlabs-hris/feedstore-go/internal/config"
	"github.com/cmlabs-hris/feedstore-go/internal/domain/feed"
	"github.com/cmlabs-hris/feedstore-go/internal/live"
	"github.com/cmlabs-hris/feedstore-go/internal/pkg/token"
	"github.com/cmlabs-hris/feedstore-go/internal/store"
)

// feedwatch prints the current inbox, then tails the feed: every
// realtime hint triggers a catch-up fetch and the newly arrived
// notifications are printed. All store calls happen on this goroutine;
// the store is not safe for concurrent use.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil)).With(
		slog.String("app", "feedwatch"),
		slog.String("env", cfg.App.Env),
	)

	tokens := token.NewTokenService(cfg.Feed.APIKey, cfg.Feed.APISecret, cfg.Feed.TokenTTL)
	client := rest.NewClient(cfg.Feed.BaseURL, cfg.Feed.UserEmail, tokens, nil)

	s := store.New(client, client, store.Config{
		Predicate: feed.All(),
		PageSize:  cfg.Feed.PageSize,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listener, err := live.NewListener(cfg.Feed.BaseURL, func() (string, error) {
		return client.Token()
	})
	if err != nil {
		logger.Error("invalid feed base URL", slog.Any("error", err))
		os.Exit(1)
	}
	go func() {
		_ = listener.Run(ctx)
	}()

	edges, err := s.Refresh(ctx)
	if err != nil {
		logger.Error("initial refresh failed", slog.Any("error", err))
		os.Exit(1)
	}

	fmt.Printf("inbox: %d notifications (%d unread, %d unseen)\n",
		s.TotalCount(), s.UnreadCount(), s.UnseenCount())
	for _, e := range edges {
		printNotification(e.Notification)
	}

	logger.Info("tailing feed", slog.String("base_url", cfg.Feed.BaseURL))

	for {
		select {
		case evt, ok := <-listener.Events():
			if !ok {
				return
			}
			if evt.Event != "notification" {
				continue
			}
			newer, err := s.FetchAllNewer(ctx)
			if err != nil {
				logger.Error("catch-up fetch failed", slog.Any("error", err))
				continue
			}
			for _, e := range newer {
				printNotification(e.Notification)
			}
		case <-ctx.Done():
			return
		}
	}
}

func printNotification(n *feed.Notification) {
	state := " "
	if n.IsRead() {
		state = "r"
	}
	if n.IsArchived() {
		state = "a"
	}
	fmt.Printf("[%s] %s  %s  %s\n", state, n.SentAt.Format("2006-01-02 15:04"), n.ID, n.Title)
}
