package mockfeed

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/feedstore-go/internal/domain/feed"
	"github.com/cmlabs-hris/feedstore-go/internal/pkg/token"
	"github.com/cmlabs-hris/feedstore-go/internal/pkg/wshub"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
	"github.com/gorilla/websocket"
)

// Server is an in-memory feed API used as a development stand-in for the
// real notification service and as the fixture for integration tests. It
// speaks the same wire contract as internal/client/rest.
type Server struct {
	feed     *Feed
	hub      *wshub.Hub
	tokens   token.Service
	upgrader websocket.Upgrader
}

// NewServer creates a mock feed server validating tokens with tokens.
func NewServer(tokens token.Service) *Server {
	hub := wshub.NewHub()
	return &Server{
		feed:   NewFeed(hub),
		hub:    hub,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Feed exposes the backing feed so tests and the mockfeed binary can
// seed and push notifications.
func (s *Server) Feed() *Feed {
	return s.feed
}

// Router builds the chi router for the feed API. logger may be nil for
// tests that don't want request logs.
func (s *Server) Router(logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:           300,
		AllowCredentials: false,
	}))

	if logger != nil {
		r.Use(httplog.RequestLogger(logger, &httplog.Options{
			Level:  slog.LevelDebug,
			Schema: httplog.SchemaECS,
		}))
	}

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {
		// Websocket auth uses a token query parameter; browsers cannot
		// set custom headers on upgrade requests.
		r.Get("/ws", s.handleWS)

		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(s.tokens.JWTAuth()))
			r.Use(s.apiTokenRequired)

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", s.handlePage)
				r.Post("/actions/{action}", s.handleBulkAction)
				r.Post("/{id}/{action}", s.handleAction)
				r.Delete("/{id}", s.handleDelete)
			})
		})
	})

	return r
}

// apiTokenRequired rejects requests whose bearer token is missing,
// invalid, or not an API token.
func (s *Server) apiTokenRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || tok == nil {
			unauthorized(w, "invalid or missing token")
			return
		}
		if tokenType, ok := claims["type"].(string); !ok || tokenType != "api" {
			unauthorized(w, "invalid token type")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handlePage serves one page of the feed under the requested predicate
// and cursor directive.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	req := feed.PageRequest{
		After:  q.Get("after"),
		Before: q.Get("before"),
	}
	if req.After != "" && req.Before != "" {
		badRequest(w, "after and before are mutually exclusive")
		return
	}
	if v := q.Get("page_size"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size < 1 {
			badRequest(w, "invalid page_size")
			return
		}
		req.Size = size
	}

	predicate, err := predicateFromQuery(q)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	page, err := s.feed.Page(predicate, req)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	success(w, page)
}

// handleAction performs a single-item action.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	kind := feed.ActionKind(chi.URLParam(r, "action"))
	if kind.IsBulk() || !validKind(kind) {
		badRequest(w, "invalid action")
		return
	}

	itemID := chi.URLParam(r, "id")
	found, err := s.feed.Apply(kind, itemID)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if !found {
		notFound(w, "notification not found")
		return
	}

	successWithMessage(w, "action applied")
}

// handleBulkAction performs a feed-wide action.
func (s *Server) handleBulkAction(w http.ResponseWriter, r *http.Request) {
	kind := feed.ActionKind(chi.URLParam(r, "action"))
	if !kind.IsBulk() {
		badRequest(w, "invalid bulk action")
		return
	}

	if _, err := s.feed.Apply(kind, ""); err != nil {
		badRequest(w, err.Error())
		return
	}

	successWithMessage(w, "action applied")
}

// handleDelete removes a notification. Deleting an unknown ID succeeds;
// the remote state the caller asked for already holds.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	s.feed.Delete(chi.URLParam(r, "id"))
	successWithMessage(w, "notification deleted")
}

// handleWS upgrades to a websocket and streams realtime events until the
// client goes away.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		unauthorized(w, "missing token")
		return
	}

	userEmail, err := s.tokens.ValidateAPIToken(tokenStr)
	if err != nil {
		unauthorized(w, "invalid token")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	events, cleanup := s.hub.Subscribe(userEmail)
	defer cleanup()

	// Drain client frames so close and pong handling keep working.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-keepalive.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func predicateFromQuery(q map[string][]string) (feed.Predicate, error) {
	var p feed.Predicate

	get := func(key string) string {
		if vs, ok := q[key]; ok && len(vs) > 0 {
			return vs[0]
		}
		return ""
	}

	var err error
	if p.Read, err = triState(get("read")); err != nil {
		return p, err
	}
	if p.Seen, err = triState(get("seen")); err != nil {
		return p, err
	}
	if p.Archived, err = triState(get("archived")); err != nil {
		return p, err
	}

	if v := get("categories"); v != "" {
		p.Categories = strings.Split(v, ",")
	}
	if v := get("topics"); v != "" {
		p.Topics = strings.Split(v, ",")
	}

	return p, nil
}

func triState(v string) (*bool, error) {
	switch v {
	case "":
		return nil, nil
	case "true", "1":
		b := true
		return &b, nil
	case "false", "0":
		b := false
		return &b, nil
	default:
		return nil, strconv.ErrSyntax
	}
}

func validKind(kind feed.ActionKind) bool {
	for _, k := range feed.AllActionKinds() {
		if k == kind {
			return true
		}
	}
	return false
}
