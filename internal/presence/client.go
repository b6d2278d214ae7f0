// Package presence publishes Rich Presence activities to a local Discord
// client over its IPC socket (unix socket or Windows named pipe).
package presence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/genricoloni/mpcpresence/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultIOTimeout = 5 * time.Second
	defaultAttempts  = 3
	retryDelay       = 2 * time.Second
)

// ErrNotConnected is returned when no Discord client can be reached.
var ErrNotConnected = errors.New("discord ipc not connected")

// DialFunc opens a raw connection to the Discord IPC endpoint.
type DialFunc func(ctx context.Context) (net.Conn, error)

// Client implements domain.Publisher over Discord IPC.
type Client struct {
	logger   *zap.Logger
	clientID string
	attempts uint
	delay    time.Duration
	timeout  time.Duration
	dial     DialFunc
	pid      int
	nonce    func() string

	mu   sync.Mutex
	conn net.Conn
}

// Option configures a Client.
type Option func(*Client)

// WithAttempts sets how many times Connect tries before giving up.
func WithAttempts(n uint) Option {
	return func(c *Client) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// WithRetryDelay sets the pause between connect attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		c.delay = d
	}
}

// WithDialer replaces the platform dialer (for testing).
func WithDialer(d DialFunc) Option {
	return func(c *Client) {
		c.dial = d
	}
}

// WithIOTimeout bounds every request/response exchange.
func WithIOTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// NewClient creates a publisher for the given Discord application ID.
func NewClient(logger *zap.Logger, clientID string, opts ...Option) *Client {
	c := &Client{
		logger:   logger,
		clientID: clientID,
		attempts: defaultAttempts,
		delay:    retryDelay,
		timeout:  defaultIOTimeout,
		dial:     dialIPC,
		pid:      os.Getpid(),
		nonce:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect dials Discord and performs the handshake, retrying on failure.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	err := retry.Do(
		func() error { return c.connectLocked(ctx) },
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("Discord connection attempt failed",
				zap.Uint("attempt", n+1),
				zap.Error(err))
		}),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	return nil
}

// Update replaces the published activity.
func (c *Client) Update(ctx context.Context, a domain.Activity) error {
	return c.setActivity(ctx, toWire(a))
}

// Clear removes the published activity.
func (c *Client) Clear(ctx context.Context) error {
	return c.setActivity(ctx, nil)
}

// Close sends the close opcode and releases the socket. Safe to call twice.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	if err := writeFrame(c.conn, opClose, struct{}{}); err != nil {
		c.logger.Debug("Failed to send close frame", zap.Error(err))
	}
	err := c.conn.Close()
	c.conn = nil
	c.logger.Info("Discord connection closed")
	return err
}

// connectLocked performs one dial and handshake. c.mu must be held.
func (c *Client) connectLocked(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}

	c.setDeadline(ctx, conn)
	if err := writeFrame(conn, opHandshake, handshake{Version: 1, ClientID: c.clientID}); err != nil {
		conn.Close()
		return err
	}

	op, body, err := readFrame(conn)
	if err != nil {
		conn.Close()
		return err
	}
	if op == opClose {
		conn.Close()
		return fmt.Errorf("handshake rejected: %s", closeReason(body))
	}

	var ready message
	if err := json.Unmarshal(body, &ready); err != nil {
		conn.Close()
		return fmt.Errorf("invalid handshake reply: %w", err)
	}
	if ready.Evt != "READY" {
		conn.Close()
		return fmt.Errorf("unexpected handshake reply %q", ready.Evt)
	}

	c.conn = conn
	c.logger.Info("Connected to Discord", zap.String("client_id", c.clientID))
	return nil
}

func (c *Client) setActivity(ctx context.Context, a *activity) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// A dropped connection is re-established once, without retries.
	if c.conn == nil {
		c.logger.Info("Reconnecting to Discord")
		if err := c.connectLocked(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrNotConnected, err)
		}
	}

	nonce := c.nonce()
	cmd := message{
		Cmd:   "SET_ACTIVITY",
		Nonce: nonce,
		Args:  setActivityArgs{PID: c.pid, Activity: a},
	}

	if err := c.exchange(ctx, cmd); err != nil {
		var rpcErr *RPCError
		if !errors.As(err, &rpcErr) {
			c.dropLocked()
		}
		return err
	}
	return nil
}

// exchange sends cmd and waits for the reply with the same nonce.
func (c *Client) exchange(ctx context.Context, cmd message) error {
	c.setDeadline(ctx, c.conn)
	if err := writeFrame(c.conn, opFrame, cmd); err != nil {
		return err
	}

	for {
		op, body, err := readFrame(c.conn)
		if err != nil {
			return err
		}

		switch op {
		case opPing:
			if err := writeRaw(c.conn, opPong, body); err != nil {
				return err
			}
			continue
		case opClose:
			return fmt.Errorf("connection closed by discord: %s", closeReason(body))
		case opFrame:
		default:
			continue
		}

		var reply message
		if err := json.Unmarshal(body, &reply); err != nil {
			return fmt.Errorf("invalid reply: %w", err)
		}
		if reply.Nonce != cmd.Nonce {
			continue
		}
		if reply.Evt == "ERROR" {
			var data errorData
			_ = json.Unmarshal(reply.Data, &data)
			return &RPCError{Code: data.Code, Message: data.Message}
		}
		return nil
	}
}

func (c *Client) dropLocked() {
	if c.conn == nil {
		return
	}
	_ = c.conn.Close()
	c.conn = nil
	c.logger.Warn("Discord connection lost, will reconnect on next update")
}

func (c *Client) setDeadline(ctx context.Context, conn net.Conn) {
	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)
}

// RPCError is an ERROR event returned by Discord for a command.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("discord rpc error %d: %s", e.Code, e.Message)
}

func writeRaw(conn net.Conn, op uint32, body []byte) error {
	if len(body) == 0 {
		body = []byte("{}")
	}
	return writeFrame(conn, op, json.RawMessage(body))
}

func closeReason(body []byte) string {
	var data errorData
	if err := json.Unmarshal(body, &data); err != nil || data.Message == "" {
		return string(body)
	}
	return fmt.Sprintf("%d %s", data.Code, data.Message)
}
