// Package live consumes the feed's realtime websocket channel. Events
// are hints that something changed upstream; the host reacts by asking
// the store to catch up (FetchAllNewer), never by mutating state from
// the event payload directly.
package live

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
	readTimeout    = 90 * time.Second
)

// Event is one realtime hint from the feed.
type Event struct {
	Event string            `json:"event"`
	Data  map[string]string `json:"data,omitempty"`
}

// TokenFunc mints a fresh token for each (re)connect; websocket upgrade
// requests cannot carry an Authorization header from a browser, so the
// token travels as a query parameter.
type TokenFunc func() (string, error)

// Listener maintains a websocket subscription to the feed, reconnecting
// with capped backoff until its context is cancelled.
type Listener struct {
	endpoint string
	tokenFn  TokenFunc
	dialer   *websocket.Dialer
	logger   *slog.Logger
	events   chan Event
}

// NewListener creates a listener for the feed at baseURL (http or https;
// the scheme is rewritten for the websocket dial).
func NewListener(baseURL string, tokenFn TokenFunc) (*Listener, error) {
	endpoint, err := wsEndpoint(baseURL)
	if err != nil {
		return nil, err
	}
	return &Listener{
		endpoint: endpoint,
		tokenFn:  tokenFn,
		dialer:   websocket.DefaultDialer,
		logger:   slog.Default(),
		events:   make(chan Event, 16),
	}, nil
}

// Events returns the channel realtime hints are delivered on. It is
// closed when Run returns.
func (l *Listener) Events() <-chan Event {
	return l.events
}

// Run connects and reads until ctx is cancelled. Connection failures and
// dropped sockets are retried with capped backoff; the only terminal
// condition is cancellation.
func (l *Listener) Run(ctx context.Context) error {
	defer close(l.events)

	backoff := initialBackoff
	for {
		err := l.listenOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.logger.Debug("feed connection dropped, reconnecting",
			slog.Duration("backoff", backoff), slog.Any("error", err))

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// listenOnce dials, then reads events until the connection drops or ctx
// is cancelled.
func (l *Listener) listenOnce(ctx context.Context) error {
	tok, err := l.tokenFn()
	if err != nil {
		return fmt.Errorf("failed to mint token: %w", err)
	}

	conn, resp, err := l.dialer.DialContext(ctx, l.endpoint+"?token="+url.QueryEscape(tok), nil)
	if err != nil {
		return fmt.Errorf("websocket dial failed: %w", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	conn.SetPingHandler(func(appData string) error {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	// Unblock the read loop on cancellation.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var evt Event
		if err := json.Unmarshal(payload, &evt); err != nil {
			// Unknown frames are ignored; the channel only carries hints.
			continue
		}

		select {
		case l.events <- evt:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func wsEndpoint(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = "/api/v1/ws"
	return u.String(), nil
}
