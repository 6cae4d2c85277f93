package hass

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	defaultDialTimeout = 10 * time.Second
	defaultWriteWait   = 10 * time.Second
	authTimeout        = 10 * time.Second
	maxMessageSize     = 32 * 1024 * 1024
)

type wsMessage struct {
	ID        int64           `json:"id,omitempty"`
	Type      string          `json:"type"`
	Success   *bool           `json:"success,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     *CommandError   `json:"error,omitempty"`
	HAVersion string          `json:"ha_version,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// WSClient issues commands over the Home Assistant WebSocket API. The
// connection is dialed lazily and redialed on the next command after a drop.
type WSClient struct {
	url    string
	token  string
	dialer websocket.Dialer
	log    zerolog.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	pending   map[int64]chan wsMessage
	nextID    int64
	haVersion string

	writeMu sync.Mutex // gorilla/websocket allows one concurrent writer
}

// NewWSClient creates a client for the instance at baseURL (http or ws scheme).
func NewWSClient(baseURL, token string, log zerolog.Logger) (*WSClient, error) {
	wsURL, err := websocketURL(baseURL)
	if err != nil {
		return nil, err
	}
	return &WSClient{
		url:   wsURL,
		token: token,
		dialer: websocket.Dialer{
			HandshakeTimeout: defaultDialTimeout,
		},
		log: log.With().Str("component", "hass_ws").Logger(),
	}, nil
}

func websocketURL(base string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", fmt.Errorf("parsing home assistant url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported home assistant url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("home assistant url %q has no host", base)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/websocket"
	return u.String(), nil
}

// HAVersion returns the version reported during the last handshake.
func (c *WSClient) HAVersion() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.haVersion
}

// EntityRegistry lists the entity registry.
func (c *WSClient) EntityRegistry(ctx context.Context) ([]EntityEntry, error) {
	var out []EntityEntry
	if err := c.call(ctx, "config/entity_registry/list", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeviceRegistry lists the device registry.
func (c *WSClient) DeviceRegistry(ctx context.Context) ([]DeviceEntry, error) {
	var out []DeviceEntry
	if err := c.call(ctx, "config/device_registry/list", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AreaRegistry lists the area registry.
func (c *WSClient) AreaRegistry(ctx context.Context) ([]AreaEntry, error) {
	var out []AreaEntry
	if err := c.call(ctx, "config/area_registry/list", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// States returns the current state of every entity.
func (c *WSClient) States(ctx context.Context) ([]State, error) {
	var out []State
	if err := c.call(ctx, "get_states", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *WSClient) call(ctx context.Context, cmdType string, fields map[string]any, out any) error {
	raw, err := c.command(ctx, cmdType, fields)
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding %s result: %w", cmdType, err)
	}
	return nil
}

func (c *WSClient) command(ctx context.Context, cmdType string, fields map[string]any) (json.RawMessage, error) {
	conn, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	id, ch, err := c.register(conn)
	if err != nil {
		return nil, err
	}

	payload := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		payload[k] = v
	}
	payload["id"] = id
	payload["type"] = cmdType

	c.writeMu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(defaultWriteWait))
	err = conn.WriteJSON(payload)
	c.writeMu.Unlock()
	if err != nil {
		c.forget(id)
		c.drop(conn, err)
		return nil, fmt.Errorf("sending %s: %w", cmdType, err)
	}

	select {
	case msg, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("%s: %w", cmdType, ErrDisconnected)
		}
		if msg.Success == nil || !*msg.Success {
			if msg.Error != nil {
				return nil, msg.Error
			}
			return nil, &CommandError{Code: "unknown_error", Message: cmdType + " failed"}
		}
		return msg.Result, nil
	case <-ctx.Done():
		c.forget(id)
		return nil, ctx.Err()
	}
}

func (c *WSClient) connect(ctx context.Context) (*websocket.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return c.conn, nil
	}

	c.log.Debug().Str("url", c.url).Msg("connecting to home assistant")
	conn, resp, err := c.dialer.DialContext(ctx, c.url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to home assistant: %w", err)
	}
	conn.SetReadLimit(maxMessageSize)

	version, err := c.authenticate(ctx, conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	c.conn = conn
	c.pending = make(map[int64]chan wsMessage)
	c.haVersion = version
	c.log.Info().Str("ha_version", version).Msg("connected to home assistant")

	go c.readLoop(conn)
	return conn, nil
}

func (c *WSClient) authenticate(ctx context.Context, conn *websocket.Conn) (string, error) {
	deadline := time.Now().Add(authTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetReadDeadline(deadline)
	_ = conn.SetWriteDeadline(deadline)
	defer func() {
		_ = conn.SetReadDeadline(time.Time{})
		_ = conn.SetWriteDeadline(time.Time{})
	}()

	var msg wsMessage
	if err := conn.ReadJSON(&msg); err != nil {
		return "", fmt.Errorf("reading auth request: %w", err)
	}
	if msg.Type != "auth_required" {
		return "", fmt.Errorf("unexpected handshake message %q", msg.Type)
	}

	if err := conn.WriteJSON(map[string]string{"type": "auth", "access_token": c.token}); err != nil {
		return "", fmt.Errorf("sending auth: %w", err)
	}

	msg = wsMessage{}
	if err := conn.ReadJSON(&msg); err != nil {
		return "", fmt.Errorf("reading auth result: %w", err)
	}
	switch msg.Type {
	case "auth_ok":
		return msg.HAVersion, nil
	case "auth_invalid":
		return "", fmt.Errorf("%w: %s", ErrAuthInvalid, msg.Message)
	default:
		return "", fmt.Errorf("unexpected handshake message %q", msg.Type)
	}
}

func (c *WSClient) register(conn *websocket.Conn) (int64, chan wsMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != conn {
		return 0, nil, ErrDisconnected
	}
	c.nextID++
	ch := make(chan wsMessage, 1)
	c.pending[c.nextID] = ch
	return c.nextID, ch, nil
}

func (c *WSClient) forget(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, id)
}

func (c *WSClient) readLoop(conn *websocket.Conn) {
	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			c.drop(conn, err)
			return
		}
		if msg.Type != "result" {
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[msg.ID]
		delete(c.pending, msg.ID)
		c.mu.Unlock()
		if ok {
			ch <- msg
		}
	}
}

// drop discards conn and fails every command still waiting on it.
func (c *WSClient) drop(conn *websocket.Conn, cause error) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
		for id, ch := range c.pending {
			close(ch)
			delete(c.pending, id)
		}
		if !errors.Is(cause, net.ErrClosed) && !websocket.IsCloseError(cause, websocket.CloseNormalClosure) {
			c.log.Warn().Err(cause).Msg("home assistant connection lost")
		}
	}
	c.mu.Unlock()
	_ = conn.Close()
}

// Close terminates the connection, if any.
func (c *WSClient) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	c.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()
	c.drop(conn, net.ErrClosed)
	return nil
}
