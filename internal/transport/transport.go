// Package transport moves request and response bytes between the job
// session and the REST endpoint.
//
// Dialers handle how a connection is opened: directly over TCP or
// through an SSH jump host.  The Adapter layers HTTP on top, decodes
// gzip bodies and feeds the diagnostic tap, but never interprets
// status codes: a non-2xx response is returned like any other and only
// I/O failures become errors.
package transport

import (
	"context"
	"net"
)

// Dialer opens the connections the Adapter's HTTP transport uses.
type Dialer interface {
	Dial(ctx context.Context, network, address string) (net.Conn, error)
	// Close releases whatever the dialer keeps open between dials,
	// such as an SSH connection to a jump host.
	Close() error
}
