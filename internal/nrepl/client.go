package nrepl

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// DefaultTimeout bounds each client round trip when ctx has no deadline.
const DefaultTimeout = 10 * time.Second

// ErrUnexpectedResponse is returned when a response lacks an expected field.
var ErrUnexpectedResponse = errors.New("nrepl: unexpected response")

// Client speaks the REPL protocol over one connection. Calls are
// serialised; each waits for its own response.
type Client struct {
	conn   net.Conn
	framer *framer

	mu     sync.Mutex
	nextID int64
}

// Dial connects to a REPL server.
func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("nrepl: dialing %s: %w", addr, err)
	}
	return &Client{conn: conn, framer: newFramer(conn)}, nil
}

// Clone creates a session on this connection.
func (c *Client) Clone(ctx context.Context) (int64, error) {
	resp, err := c.roundTrip(ctx, map[string]any{"op": OpClone})
	if err != nil {
		return 0, err
	}
	return intValue(resp, "new-session")
}

// Eval evaluates code in session and returns the printed value. Errors
// raised by the code come back as a value starting with "Error".
func (c *Client) Eval(ctx context.Context, session int64, code string) (string, error) {
	resp, err := c.roundTrip(ctx, map[string]any{
		"op":      OpEval,
		"session": session,
		"code":    code,
	})
	if err != nil {
		return "", err
	}
	value, ok := resp["value"].(string)
	if !ok {
		return "", fmt.Errorf("%w: missing value", ErrUnexpectedResponse)
	}
	return value, nil
}

// Describe returns the operations the server supports.
func (c *Client) Describe(ctx context.Context) ([]string, error) {
	resp, err := c.roundTrip(ctx, map[string]any{"op": OpDescribe})
	if err != nil {
		return nil, err
	}
	list, ok := resp["ops"].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: missing ops", ErrUnexpectedResponse)
	}
	ops := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			ops = append(ops, s)
		}
	}
	return ops, nil
}

// LsSessions lists the sessions open on this connection.
func (c *Client) LsSessions(ctx context.Context) ([]int64, error) {
	resp, err := c.roundTrip(ctx, map[string]any{"op": OpLsSessions})
	if err != nil {
		return nil, err
	}
	list, ok := resp["sessions"].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: missing sessions", ErrUnexpectedResponse)
	}
	ids := make([]int64, 0, len(list))
	for _, v := range list {
		if id, ok := v.(int64); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Close ends session. The server sends nothing back.
func (c *Client) Close(ctx context.Context, session int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.send(ctx, map[string]any{"op": OpClose, "session": session})
}

// Disconnect closes the connection.
func (c *Client) Disconnect() error {
	return c.conn.Close()
}

func (c *Client) roundTrip(ctx context.Context, req map[string]any) (map[string]any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Cancellation interrupts a blocked read.
	stop := context.AfterFunc(ctx, func() {
		c.conn.SetDeadline(time.Now()) //nolint:errcheck // Best effort
	})
	defer stop()

	if err := c.send(ctx, req); err != nil {
		return nil, err
	}

	frame, err := c.framer.next()
	if err != nil {
		return nil, fmt.Errorf("nrepl: reading response: %w", err)
	}
	return decodeResponse(frame)
}

// send writes req with a fresh id, setting the connection deadline from
// ctx for the whole exchange.
func (c *Client) send(ctx context.Context, req map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(DefaultTimeout)
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return err
	}

	c.nextID++
	req["id"] = c.nextID
	if err := writeMessage(c.conn, req); err != nil {
		return fmt.Errorf("nrepl: sending %v: %w", req["op"], err)
	}
	return nil
}

func intValue(m map[string]any, key string) (int64, error) {
	v, ok := m[key].(int64)
	if !ok {
		return 0, fmt.Errorf("%w: missing %s", ErrUnexpectedResponse, key)
	}
	return v, nil
}
