// ABOUTME: Remote control WebSocket client
// ABOUTME: Performs the handshake, correlates replies by id and surfaces pushed events
package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ErrClosed is returned by Send after the connection has gone away
var ErrClosed = errors.New("remote connection closed")

// CommandError is a server/error reply to a command
type CommandError struct {
	Code    string
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("remote %s: %s", e.Code, e.Message)
}

// Client is one control session
type Client struct {
	conn   *websocket.Conn
	hello  ServerHello
	logger *slog.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan Message
	closed  bool

	events chan Event
	done   chan struct{}
}

// Dial connects to a server at addr (host:port) and performs the handshake
func Dial(ctx context.Context, addr, name string) (*Client, error) {
	u := url.URL{Scheme: "ws", Host: addr, Path: Path}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	id := uuid.New()
	c := &Client{
		conn:    conn,
		pending: make(map[string]chan Message),
		events:  make(chan Event, 16),
		done:    make(chan struct{}),
		logger:  slog.Default().With("remote client uuid", id),
	}

	if err := c.handshake(id.String(), name); err != nil {
		conn.Close()
		return nil, fmt.Errorf("handshake failed: %w", err)
	}

	go c.readMessages()
	return c, nil
}

func (c *Client) handshake(clientID, name string) error {
	hello, err := NewMessage(TypeClientHello, "", ClientHello{
		ClientID: clientID,
		Name:     name,
		Version:  ProtocolVersion,
	})
	if err != nil {
		return err
	}
	if err := c.write(hello); err != nil {
		return fmt.Errorf("failed to send client/hello: %w", err)
	}

	c.conn.SetReadDeadline(time.Now().Add(helloTimeout))
	var msg Message
	if err := c.conn.ReadJSON(&msg); err != nil {
		return fmt.Errorf("failed to read server/hello: %w", err)
	}
	c.conn.SetReadDeadline(time.Time{})

	switch msg.Type {
	case TypeServerHello:
		return msg.Decode(&c.hello)
	case TypeError:
		var e ErrorPayload
		if err := msg.Decode(&e); err != nil {
			return err
		}
		return &CommandError{Code: e.Error, Message: e.Message}
	default:
		return fmt.Errorf("expected %s, got %s", TypeServerHello, msg.Type)
	}
}

// Hello returns the server's handshake reply
func (c *Client) Hello() ServerHello {
	return c.hello
}

// Events delivers pushed player events; it is closed with the connection
func (c *Client) Events() <-chan Event {
	return c.events
}

// Send issues cmd and waits for the matching status or error reply
func (c *Client) Send(ctx context.Context, cmd Command) (Status, error) {
	id := uuid.NewString()
	msg, err := NewMessage(TypeCommand, id, cmd)
	if err != nil {
		return Status{}, err
	}

	reply := make(chan Message, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Status{}, ErrClosed
	}
	c.pending[id] = reply
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.write(msg); err != nil {
		return Status{}, fmt.Errorf("failed to send %s: %w", cmd.Action, err)
	}

	select {
	case m := <-reply:
		if m.Type == TypeError {
			var e ErrorPayload
			if err := m.Decode(&e); err != nil {
				return Status{}, err
			}
			return Status{}, &CommandError{Code: e.Error, Message: e.Message}
		}
		var st Status
		if err := m.Decode(&st); err != nil {
			return Status{}, err
		}
		return st, nil
	case <-c.done:
		return Status{}, ErrClosed
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
}

func (c *Client) write(msg Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	return c.conn.WriteJSON(msg)
}

func (c *Client) readMessages() {
	defer c.shutdown()

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("control read failed", "error", err)
			}
			return
		}

		if msg.ID != "" {
			c.mu.Lock()
			reply, ok := c.pending[msg.ID]
			c.mu.Unlock()
			if ok {
				reply <- msg
				continue
			}
		}

		switch msg.Type {
		case TypeEvent:
			var ev Event
			if err := msg.Decode(&ev); err != nil {
				c.logger.Warn("bad event", "error", err)
				continue
			}
			select {
			case c.events <- ev:
			default:
				c.logger.Warn("event queue full, dropping event", "kind", ev.Kind)
			}
		default:
			c.logger.Debug("unsolicited message", "type", msg.Type)
		}
	}
}

func (c *Client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	close(c.events)
}

// Close ends the session
func (c *Client) Close() error {
	c.writeMu.Lock()
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()
	err := c.conn.Close()
	<-c.done
	return err
}
