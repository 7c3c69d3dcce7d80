// Package rest implements the feed collaborator interfaces over the
// notification feed HTTP API. It owns request construction, bearer-token
// auth and payload decoding; callers (the store) treat every failure it
// returns as an opaque remote failure.
package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/feedstore-go/internal/domain/feed"
	"github.com/cmlabs-hris/feedstore-go/internal/pkg/token"
)

// Client talks to the feed API. It implements feed.Fetcher and
// feed.Executor and performs no retries; retry policy belongs to the
// caller or the transport it injects.
type Client struct {
	baseURL    string
	userEmail  string
	tokens     token.Service
	httpClient *http.Client
}

// envelope mirrors the API's response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewClient creates a feed API client. httpClient may be nil, in which
// case a client with a 30 second timeout is used.
func NewClient(baseURL, userEmail string, tokens token.Service, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userEmail:  userEmail,
		tokens:     tokens,
		httpClient: httpClient,
	}
}

// Token mints a fresh API token, e.g. for websocket upgrade requests
// that cannot carry an Authorization header.
func (c *Client) Token() (string, error) {
	tok, _, err := c.tokens.Mint(c.userEmail)
	if err != nil {
		return "", fmt.Errorf("failed to mint API token: %w", err)
	}
	return tok, nil
}

// FetchPage retrieves one page of the feed under the predicate.
func (c *Client) FetchPage(ctx context.Context, predicate feed.Predicate, req feed.PageRequest) (*feed.PageResult, error) {
	q := url.Values{}
	if req.Size > 0 {
		q.Set("page_size", strconv.Itoa(req.Size))
	}
	if req.After != "" {
		q.Set("after", req.After)
	}
	if req.Before != "" {
		q.Set("before", req.Before)
	}
	encodePredicate(q, predicate)

	var page feed.PageResult
	if err := c.do(ctx, http.MethodGet, "/api/v1/notifications?"+q.Encode(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// PerformAction executes a single-item or bulk action. itemID is empty
// for bulk kinds.
func (c *Client) PerformAction(ctx context.Context, kind feed.ActionKind, itemID string) error {
	var path string
	if kind.IsBulk() {
		path = fmt.Sprintf("/api/v1/notifications/actions/%s", url.PathEscape(string(kind)))
	} else {
		path = fmt.Sprintf("/api/v1/notifications/%s/%s", url.PathEscape(itemID), url.PathEscape(string(kind)))
	}
	return c.do(ctx, http.MethodPost, path, nil)
}

// DeleteItem removes a notification remotely.
func (c *Client) DeleteItem(ctx context.Context, itemID string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/notifications/"+url.PathEscape(itemID), nil)
}

// do issues one authenticated request and decodes the envelope's data
// into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	tok, _, err := c.tokens.Mint(c.userEmail)
	if err != nil {
		return fmt.Errorf("failed to mint API token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("malformed response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success {
		if env.Error != nil {
			return fmt.Errorf("feed API error %s: %s", env.Error.Code, env.Error.Message)
		}
		return fmt.Errorf("feed API error: status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("malformed page payload: %w", err)
		}
	}
	return nil
}

func encodePredicate(q url.Values, p feed.Predicate) {
	if p.Read != nil {
		q.Set("read", strconv.FormatBool(*p.Read))
	}
	if p.Seen != nil {
		q.Set("seen", strconv.FormatBool(*p.Seen))
	}
	if p.Archived != nil {
		q.Set("archived", strconv.FormatBool(*p.Archived))
	}
	if len(p.Categories) > 0 {
		q.Set("categories", strings.Join(p.Categories, ","))
	}
	if len(p.Topics) > 0 {
		q.Set("topics", strings.Join(p.Topics, ","))
	}
}
