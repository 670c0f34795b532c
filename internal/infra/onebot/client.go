package onebot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/buytheway/buytheway-bridge/internal/biz/domain"
	"github.com/buytheway/buytheway-bridge/internal/infra/backoff"
)

// ErrNotConnected is returned by actions while no connection is open
var ErrNotConnected = errors.New("onebot: not connected")

const (
	actionTimeout = 10 * time.Second
	writeTimeout  = 5 * time.Second
)

// Client is a OneBot v11 forward WebSocket client.
// It reconnects on its own and correlates action responses by echo.
type Client struct {
	url    string
	token  string
	logger *slog.Logger
	dialer *websocket.Dialer

	connMu  sync.Mutex
	conn    *websocket.Conn
	writeMu sync.Mutex

	seq       int64
	pending   map[string]chan *ActionResponse
	pendingMu sync.Mutex

	events chan domain.RawEvent
	selfID atomic.Int64
}

// NewClient creates a new client for the runtime at url
func NewClient(url, token string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		url:     url,
		token:   token,
		logger:  logger,
		dialer:  websocket.DefaultDialer,
		pending: make(map[string]chan *ActionResponse),
		events:  make(chan domain.RawEvent, 256),
	}
}

// Events returns the stream of inbound message events.
// It satisfies repo.EventSource.
func (c *Client) Events(ctx context.Context) (<-chan domain.RawEvent, error) {
	return c.events, nil
}

// SelfID returns the bot account id reported by the runtime, or 0
func (c *Client) SelfID() int64 {
	return c.selfID.Load()
}

// Connected reports whether a connection is open
func (c *Client) Connected() bool {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn != nil
}

// Run keeps a connection open until ctx is done
func (c *Client) Run(ctx context.Context) error {
	return backoff.Reconnect(ctx, c.logger, "onebot", c.session)
}

// session dials once and reads until the connection fails
func (c *Client) session(ctx context.Context) error {
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	conn, resp, err := c.dialer.DialContext(ctx, c.url, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: %w (http %d)", c.url, err, resp.StatusCode)
		}
		return fmt.Errorf("dial %s: %w", c.url, err)
	}
	c.logger.Info("Connected to OneBot runtime", "url", c.url)

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	// unblock the read when ctx ends
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	err = c.readLoop(ctx, conn)

	c.connMu.Lock()
	c.conn = nil
	c.connMu.Unlock()
	conn.Close()
	c.failPending()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	c.logger.Warn("OneBot connection lost", "error", err)
	return err
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.handleFrame(ctx, data)
	}
}

func (c *Client) handleFrame(ctx context.Context, data []byte) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var frame map[string]any
	if err := dec.Decode(&frame); err != nil {
		c.logger.Warn("Dropping malformed OneBot frame", "error", err)
		return
	}

	if echo, ok := frame["echo"].(string); ok && echo != "" {
		var resp ActionResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			c.logger.Warn("Dropping malformed action response", "echo", echo, "error", err)
			return
		}
		c.pendingMu.Lock()
		if ch, ok := c.pending[echo]; ok {
			ch <- &resp
			delete(c.pending, echo)
		}
		c.pendingMu.Unlock()
		return
	}

	event := domain.RawEvent(frame)
	if id := domain.AnyInt64(frame["self_id"]); id != 0 {
		c.selfID.Store(id)
	}
	if event.String("post_type") != "message" {
		return
	}

	select {
	case c.events <- event:
	case <-ctx.Done():
	}
}

// failPending wakes every waiting action with ErrNotConnected
func (c *Client) failPending() {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for echo, ch := range c.pending {
		close(ch)
		delete(c.pending, echo)
	}
}

// Call performs an action and returns its data
func (c *Client) Call(ctx context.Context, action string, params any) (json.RawMessage, error) {
	c.connMu.Lock()
	conn := c.conn
	c.connMu.Unlock()
	if conn == nil {
		return nil, ErrNotConnected
	}

	echo := action + ":" + strconv.FormatInt(atomic.AddInt64(&c.seq, 1), 10)
	respChan := make(chan *ActionResponse, 1)
	c.pendingMu.Lock()
	c.pending[echo] = respChan
	c.pendingMu.Unlock()

	if err := c.write(conn, actionRequest{Action: action, Params: params, Echo: echo}); err != nil {
		c.pendingMu.Lock()
		delete(c.pending, echo)
		c.pendingMu.Unlock()
		return nil, fmt.Errorf("send %s: %w", action, err)
	}

	timer := time.NewTimer(actionTimeout)
	defer timer.Stop()

	select {
	case resp, ok := <-respChan:
		if !ok {
			return nil, ErrNotConnected
		}
		if err := resp.Err(); err != nil {
			return nil, err
		}
		return resp.Data, nil
	case <-timer.C:
		c.pendingMu.Lock()
		delete(c.pending, echo)
		c.pendingMu.Unlock()
		return nil, fmt.Errorf("action %s timed out", action)
	case <-ctx.Done():
		c.pendingMu.Lock()
		delete(c.pending, echo)
		c.pendingMu.Unlock()
		return nil, ctx.Err()
	}
}

func (c *Client) write(conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// SendPrivateMsg sends a message to a contact
func (c *Client) SendPrivateMsg(ctx context.Context, userID int64, message []Segment) (int64, error) {
	return c.send(ctx, "send_private_msg", SendPrivateMsgParams{UserID: userID, Message: message})
}

// SendGroupMsg sends a message to a group
func (c *Client) SendGroupMsg(ctx context.Context, groupID int64, message []Segment) (int64, error) {
	return c.send(ctx, "send_group_msg", SendGroupMsgParams{GroupID: groupID, Message: message})
}

func (c *Client) send(ctx context.Context, action string, params any) (int64, error) {
	data, err := c.Call(ctx, action, params)
	if err != nil {
		return 0, err
	}
	var result SendMsgResult
	if len(data) > 0 {
		_ = json.Unmarshal(data, &result)
	}
	return result.MessageID, nil
}
