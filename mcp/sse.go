package mcp

import (
	"fmt"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

const keepAliveInterval = 15 * time.Second

// TooManySSEError describes a session that already holds
// maxSSEConnections open streams (spec §6.2, `MCP_TOO_MANY_SSE`). The
// router does not return it: handleSSE answers such a request with a 429
// JSON-RPC error carrying `MCP_TOO_MANY_SSE`.
type TooManySSEError struct{ SessionID string }

func (e *TooManySSEError) Error() string {
	return "too many SSE connections for session " + e.SessionID
}

// SSEConnection is the minimal capability a transport needs to push
// server-initiated events to one client stream.
type SSEConnection interface {
	Send(event, data string) error
	Close() error
	IsClosed() bool
}

// echoSSEConnection adapts an echo.Context's underlying ResponseWriter
// into an SSEConnection, flushing after every write.
type echoSSEConnection struct {
	mu     sync.Mutex
	c      echo.Context
	closed bool
}

func newEchoSSEConnection(c echo.Context) *echoSSEConnection {
	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().WriteHeader(200)
	return &echoSSEConnection{c: c}
}

func (s *echoSSEConnection) Send(event, data string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("write to closed SSE connection")
	}
	if event != "" {
		if _, err := fmt.Fprintf(s.c.Response(), "event: %s\n", event); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(s.c.Response(), "data: %s\n\n", data); err != nil {
		return err
	}
	s.c.Response().Flush()
	return nil
}

func (s *echoSSEConnection) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *echoSSEConnection) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// ServeSSE blocks, writing a keep-alive comment every 15s, until the
// request context is cancelled (client disconnect), done is closed (server
// shutdown, spec §5), or a keep-alive write fails. Call sites are expected to have
// already reserved a slot via SessionStore.TryAcquireSSE and to release it
// on return.
func ServeSSE(c echo.Context, done <-chan struct{}) error {
	conn := newEchoSSEConnection(c)
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return conn.Close()
		case <-done:
			return conn.Close()
		case <-ticker.C:
			if _, err := fmt.Fprint(c.Response(), ": keep-alive\n\n"); err != nil {
				return conn.Close()
			}
			c.Response().Flush()
		}
	}
}
