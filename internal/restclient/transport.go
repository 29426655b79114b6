package restclient

import (
	"context"
	"net"
	"net/http"
	"time"
)

// DefaultIdleTimeout aborts a CMS call whose socket sees no traffic for this
// long.
const DefaultIdleTimeout = 30 * time.Second

// idleTimeoutConn pushes the read/write deadline forward on every I/O call,
// turning the absolute deadlines of net.Conn into an idle timeout.
type idleTimeoutConn struct {
	net.Conn
	timeout time.Duration
}

func (c *idleTimeoutConn) Read(b []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Read(b)
}

func (c *idleTimeoutConn) Write(b []byte) (int, error) {
	if err := c.Conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Write(b)
}

// NewHTTPClient returns an http.Client whose connections time out after idle
// without traffic.
func NewHTTPClient(idle time.Duration) *http.Client {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	dialer := &net.Dialer{Timeout: idle, KeepAlive: 30 * time.Second}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		return &idleTimeoutConn{Conn: conn, timeout: idle}, nil
	}
	transport.IdleConnTimeout = idle

	return &http.Client{Transport: transport}
}
