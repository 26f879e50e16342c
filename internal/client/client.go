// Package client is a typed Go client for the choreo JSON API and its
// realtime channel.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/krishnaganguri/choreo-sweep-sub000/internal/model"
)

// familyHeader selects the family a request acts in.
const familyHeader = "X-Family-ID"

// publicPaths answer 401 for bad credentials rather than an expired token.
var publicPaths = map[string]bool{
	"/api/auth/signup":          true,
	"/api/auth/signin":          true,
	"/api/auth/refresh":         true,
	"/api/auth/reset-password":  true,
	"/api/auth/update-password": true,
}

// ErrNoSession is returned by calls that need a signed-in user when the
// client holds no session.
var ErrNoSession = errors.New("client: not signed in")

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("choreo api: %d %s", e.Status, e.Message)
}

// StatusCode returns the HTTP status behind err, or 0 if err is not an
// APIError.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger

	mu       sync.RWMutex
	session  *model.Session
	familyID string

	lmu       sync.Mutex
	nextSubID int
	listeners map[int]func(model.AuthEvent)
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = l
	}
}

// New creates a client for the server at baseURL, e.g. "https://home.example.com".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  slog.Default(),

		listeners: make(map[int]func(model.AuthEvent)),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "client")
	return c
}

// Session returns the cached session, or nil when signed out.
func (c *Client) Session() *model.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// SetSession replaces the cached session, e.g. one restored from disk.
func (c *Client) SetSession(s *model.Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

// SetFamily selects the family subsequent requests act in. An empty id
// falls back to the user's current family.
func (c *Client) SetFamily(familyID string) {
	c.mu.Lock()
	c.familyID = familyID
	c.mu.Unlock()
}

// OnAuthStateChange registers fn for every change of the session held by
// this client, whether caused locally or pushed over the realtime channel.
// It returns a func that removes fn.
func (c *Client) OnAuthStateChange(fn func(model.AuthEvent)) (unsubscribe func()) {
	c.lmu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.listeners[id] = fn
	c.lmu.Unlock()
	return func() {
		c.lmu.Lock()
		delete(c.listeners, id)
		c.lmu.Unlock()
	}
}

func (c *Client) emit(ev model.AuthEvent) {
	c.lmu.Lock()
	fns := make([]func(model.AuthEvent), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.lmu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// clearSession drops the stored session and reports SIGNED_OUT if there
// was one.
func (c *Client) clearSession() {
	c.mu.Lock()
	old := c.session
	c.session = nil
	c.mu.Unlock()
	if old != nil {
		c.emit(model.AuthEvent{Type: model.AuthEventSignedOut, UserID: old.UserID, SessionID: old.ID})
	}
}

func (c *Client) accessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return ""
	}
	return c.session.AccessToken
}

func (c *Client) refreshToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return ""
	}
	return c.session.RefreshToken
}

// do sends a JSON request and decodes a JSON response into out when out is
// non-nil. An expired access token is refreshed once and the request sent
// again.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized && !publicPaths[path] && c.refreshToken() != "" {
		resp.Body.Close()
		if err := c.Refresh(ctx); err != nil {
			return err
		}
		if resp, err = c.send(ctx, method, path, body); err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.accessToken(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	c.mu.RLock()
	if c.familyID != "" {
		req.Header.Set(familyHeader, c.familyID)
	}
	c.mu.RUnlock()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	var payload struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		apiErr.Message = payload.Error
		apiErr.Fields = payload.Fields
	}
	return apiErr
}
