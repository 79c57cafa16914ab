package transport

import (
	"context"
	"net"
	"time"
)

// TCPDialer connects straight to the endpoint.
type TCPDialer struct {
	Timeout   time.Duration
	KeepAlive time.Duration // zero uses the net package default
}

func (d *TCPDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	nd := net.Dialer{Timeout: d.Timeout, KeepAlive: d.KeepAlive}
	return nd.DialContext(ctx, network, address)
}

// Close does nothing; a TCPDialer holds no connections.
func (d *TCPDialer) Close() error { return nil }
