package client

import (
	"context"
	"fmt"
	"net/url"

	ws "github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/krishnaganguri/choreo-sweep-sub000/internal/model"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/websocket"
)

const realtimeReadLimit = 1 << 20

// Listen opens the realtime channel and calls fn for every message until
// ctx is cancelled or the connection drops. It returns nil after
// cancellation. fn runs on the listening goroutine and may be nil. Auth
// messages are also applied to the stored session and passed to
// OnAuthStateChange listeners.
func (c *Client) Listen(ctx context.Context, fn func(websocket.Message)) error {
	tok := c.accessToken()
	if tok == "" {
		return ErrNoSession
	}
	u, err := c.realtimeURL(tok)
	if err != nil {
		return err
	}

	// Dial honours ctx; an http.Client timeout would cut the stream.
	hc := *c.http
	hc.Timeout = 0
	conn, _, err := ws.Dial(ctx, u, &ws.DialOptions{HTTPClient: &hc})
	if err != nil {
		return fmt.Errorf("dial realtime: %w", err)
	}
	defer conn.CloseNow()
	conn.SetReadLimit(realtimeReadLimit)
	c.logger.Debug("realtime connected")

	for {
		var msg websocket.Message
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if ctx.Err() != nil || ws.CloseStatus(err) == ws.StatusNormalClosure {
				return nil
			}
			return fmt.Errorf("read realtime: %w", err)
		}
		if msg.Type == websocket.TypeAuth && msg.Event != nil {
			c.applyRemote(*msg.Event)
		}
		if fn != nil {
			fn(msg)
		}
	}
}

// applyRemote handles an auth event pushed by the server. A sign-out only
// ends the stored session when it names it or names no session at all.
func (c *Client) applyRemote(ev model.AuthEvent) {
	if ev.Type == model.AuthEventSignedOut {
		cur := c.Session()
		if cur == nil || (ev.SessionID != "" && ev.SessionID != cur.ID) {
			return
		}
		c.clearSession()
		return
	}
	c.emit(ev)
}

func (c *Client) realtimeURL(token string) (string, error) {
	u, err := url.Parse(c.baseURL + "/ws")
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	q := u.Query()
	q.Set("access_token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
