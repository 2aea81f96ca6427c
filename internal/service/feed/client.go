package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"SigRoute/internal/domain/models"
	drepo "SigRoute/internal/domain/repository"
)

// Client implements an EventStream backed by a WebSocket event feed.
// The feed pushes classified events as JSON frames; the client subscribes
// to configured categories and normalizes timestamps to unix seconds.
type Client struct {
	apiKey         string
	websocketURL   string
	categories     []string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	connected bool
}

// New creates a new WebSocket EventStream.
func New(apiKey, websocketURL string, categories []string, reconnectDelay, pingInterval time.Duration) drepo.EventStream {
	return &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		categories:     categories,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := c.websocketURL
	if c.apiKey != "" {
		u = fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("feed connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	return nil
}

// Subscribe subscribes to the configured event categories.
func (c *Client) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("feed not connected")
	}
	for _, cat := range c.categories {
		msg := map[string]string{"type": "subscribe", "category": cat}
		if err := c.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", cat, err)
		}
	}
	return nil
}

// feed frame schema: {"category": ..., "origin_id": ..., "t": unix}
type frame struct {
	Category string `json:"category"`
	OriginID string `json:"origin_id"`
	T        int64  `json:"t"`
}

// Read starts the read loop and returns event and error channels. The
// loop stops on context cancellation or connection error; errors surface
// on the error channel so the caller can trigger a reconnect.
func (c *Client) Read(ctx context.Context) (<-chan *models.RawEvent, <-chan error) {
	evCh := make(chan *models.RawEvent, 256)
	errCh := make(chan error, 1)

	go func() {
		defer close(evCh)
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()

		go func() {
			for range ticker.C {
				if !c.connected {
					return
				}
				_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			_, data, err := c.conn.ReadMessage()
			if err != nil {
				c.connected = false
				errCh <- fmt.Errorf("feed read: %w", err)
				return
			}

			var f frame
			if err := json.Unmarshal(data, &f); err != nil || f.Category == "" {
				continue
			}
			ts := f.T
			if ts > 1e11 { // ms
				ts = ts / 1000
			}
			evCh <- &models.RawEvent{
				Category:  f.Category,
				OriginID:  f.OriginID,
				Timestamp: ts,
			}
		}
	}()

	return evCh, errCh
}

// Reconnect waits the configured delay, reconnects, and resubscribes.
func (c *Client) Reconnect(ctx context.Context) error {
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.connected = false

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.reconnectDelay):
	}

	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected reports connection state.
func (c *Client) IsConnected() bool { return c.connected }
