package websocketPkg

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"AccessAI/internal/api/session"
	"AccessAI/internal/mode"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
)

type ISessionClient interface {
	Send(ev session.EventRequest) error
	Next(timeout time.Duration) (mode.Directive, error)
	Token() uint64
	Close() error
}

type sessionClient struct {
	conn         *websocket.Conn
	mu           sync.Mutex
	pingInterval time.Duration
	writeTimeout time.Duration
	token        uint64
	done         chan struct{}
	closeOnce    sync.Once
}

// SessionURL builds the websocket address of a mode session from the server
// base address, e.g. http://localhost:5000.
func SessionURL(base string, kind string, caps mode.Capabilities) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http", "":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/session/ws"

	q := u.Query()
	q.Set("mode", kind)
	q.Set("speech_input", strconv.FormatBool(caps.SpeechInput))
	q.Set("speech_output", strconv.FormatBool(caps.SpeechOutput))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func DialSession(ctx context.Context, base string, kind string, caps mode.Capabilities) (ISessionClient, error) {
	addr, err := SessionURL(base, kind, caps)
	if err != nil {
		return nil, err
	}

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.DialContext(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	c := &sessionClient{
		conn:         conn,
		pingInterval: 30 * time.Second,
		writeTimeout: 5 * time.Second,
		done:         make(chan struct{}),
	}

	conn.SetPingHandler(func(appData string) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.writeTimeout))
	})

	go c.keepAlive()
	return c, nil
}

// Send writes one event. Events without a token are stamped with the token
// of the session, once it is known.
func (c *sessionClient) Send(ev session.EventRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ev.Token == 0 {
		ev.Token = c.token
	}

	data, err := jsoniter.Marshal(ev)
	if err != nil {
		return err
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("error sending event: %w", err)
	}
	return nil
}

// Next blocks until the server sends a directive or the timeout passes. Zero
// means no timeout.
func (c *sessionClient) Next(timeout time.Duration) (mode.Directive, error) {
	deadline := time.Time{}
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return mode.Directive{}, err
	}

	_, message, err := c.conn.ReadMessage()
	if err != nil {
		return mode.Directive{}, err
	}

	var d mode.Directive
	if err := jsoniter.Unmarshal(message, &d); err != nil {
		return mode.Directive{}, fmt.Errorf("error decoding directive: %w", err)
	}

	if d.Token != 0 {
		c.mu.Lock()
		c.token = d.Token
		c.mu.Unlock()
	}
	return d, nil
}

func (c *sessionClient) Token() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *sessionClient) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		c.mu.Lock()
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(c.writeTimeout),
		)
		c.mu.Unlock()

		err = c.conn.Close()
	})
	return err
}

func (c *sessionClient) keepAlive() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(c.writeTimeout))
			c.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
