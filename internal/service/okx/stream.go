package okx

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"wickengine/pkg/logger"

	"github.com/gorilla/websocket"
)

// wsEnvelope is the common shape of OKX public-channel frames. Event frames
// acknowledge subscriptions or report errors; data frames carry the payload.
type wsEnvelope struct {
	Event string `json:"event"`
	Code  string `json:"code"`
	Msg   string `json:"msg"`
	Arg   struct {
		Channel string `json:"channel"`
		InstID  string `json:"instId"`
	} `json:"arg"`
	Data []json.RawMessage `json:"data"`
}

type subRequest struct {
	Op   string   `json:"op"`
	Args []subArg `json:"args"`
}

type subArg struct {
	Channel string `json:"channel"`
	InstID  string `json:"instId"`
}

// wsClient owns one OKX websocket connection and its reconnect policy.
// Both concrete streams embed it and differ only in channel name and frame
// parsing.
type wsClient struct {
	url     string
	channel string
	symbols []string
	log     *logger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool

	backoff *backoff
}

func newWSClient(url, channel string, symbols []string, log *logger.Logger) *wsClient {
	return &wsClient{
		url:     url,
		channel: channel,
		symbols: symbols,
		log:     log,
		backoff: newBackoff(),
	}
}

// Connect dials the endpoint. A successful dial resets the backoff budget.
func (c *wsClient) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("okx %s dial: %w", c.channel, err)
	}
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	c.backoff.reset()
	c.log.Info("okx stream connected",
		logger.String("channel", c.channel),
		logger.String("url", c.url))
	return nil
}

// Subscribe sends one subscription request covering every configured symbol.
func (c *wsClient) Subscribe(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("okx %s: not connected", c.channel)
	}

	args := make([]subArg, 0, len(c.symbols))
	for _, s := range c.symbols {
		args = append(args, subArg{Channel: c.channel, InstID: s})
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(subRequest{Op: "subscribe", Args: args}); err != nil {
		return fmt.Errorf("okx %s subscribe: %w", c.channel, err)
	}
	c.log.Info("okx subscribed",
		logger.String("channel", c.channel),
		logger.Strings("symbols", c.symbols))
	return nil
}

// Close tears the connection down and marks the stream disconnected.
func (c *wsClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

func (c *wsClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// reconnect redials with exponential backoff until success or budget
// exhaustion. Returns nil on success.
func (c *wsClient) reconnect(ctx context.Context) error {
	_ = c.Close()
	for {
		delay, ok := c.backoff.next()
		if !ok {
			return fmt.Errorf("okx %s: reconnect attempts exhausted", c.channel)
		}
		c.log.Warn("okx reconnecting",
			logger.String("channel", c.channel),
			logger.Duration("delay", delay),
			logger.Int("attempt", c.backoff.attempts))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		if err := c.Connect(ctx); err != nil {
			c.log.Error("okx reconnect failed",
				logger.String("channel", c.channel),
				logger.Error(err))
			continue
		}
		if err := c.Subscribe(ctx); err != nil {
			c.log.Error("okx resubscribe failed",
				logger.String("channel", c.channel),
				logger.Error(err))
			continue
		}
		return nil
	}
}

// pingLoop keeps the connection alive. OKX closes idle public sockets after
// 30 seconds without traffic.
func (c *wsClient) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			conn := c.conn
			c.mu.Unlock()
			if conn != nil {
				_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				_ = conn.WriteMessage(websocket.TextMessage, []byte("ping"))
			}
		}
	}
}

// readLoop pulls frames, hands data frames to handle, and drives the
// reconnect policy on transport errors. It returns the unrecoverable error
// that ended the stream, or nil on context cancellation.
func (c *wsClient) readLoop(ctx context.Context, handle func(env *wsEnvelope)) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			if err := c.reconnect(ctx); err != nil {
				return err
			}
			continue
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Warn("okx read error",
				logger.String("channel", c.channel),
				logger.Error(err))
			if err := c.reconnect(ctx); err != nil {
				return err
			}
			continue
		}

		// OKX answers text pings with the literal "pong".
		if string(raw) == "pong" {
			continue
		}

		var env wsEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.log.Warn("okx frame decode failed",
				logger.String("channel", c.channel),
				logger.Error(err))
			continue
		}
		switch env.Event {
		case "":
			if len(env.Data) > 0 {
				handle(&env)
			}
		case "error":
			c.log.Error("okx subscription error",
				logger.String("channel", c.channel),
				logger.String("code", env.Code),
				logger.String("msg", env.Msg))
		default:
			// subscribe acks and channel-conn-count notices
		}
	}
}
