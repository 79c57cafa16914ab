// Package tunnel reaches the REST endpoint through an SSH jump host,
// for instances that are only routable from inside a private network.
package tunnel

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	bqerr "bulkq/internal/errors"
	"bulkq/util"
)

const (
	defaultPort    = 22
	defaultTimeout = 30 * time.Second
)

// Config describes the jump host and how to authenticate to it.
type Config struct {
	User           string
	Host           string
	Port           int
	KeyFile        string // "~/" is expanded
	PasswordPrompt bool
	Agent          bool
	StrictHostKey  bool
	KnownHosts     string // default ~/.ssh/known_hosts
	Timeout        time.Duration
}

// Addr returns the jump host's host:port.
func (c Config) Addr() string { return util.FormatAddr(c.Host, c.Port) }

func (c Config) String() string { return c.User + "@" + c.Addr() }

// Gateway holds one SSH connection to the jump host and forwards TCP
// connections through it.  It is safe for concurrent use.
type Gateway struct {
	cfg    Config
	logger *util.Logger

	mu     sync.Mutex
	client *ssh.Client
}

// New returns a Gateway for cfg.  Nothing is dialled until Open.
func New(cfg Config, logger *util.Logger) *Gateway {
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Gateway{cfg: cfg, logger: logger}
}

// Config returns the effective configuration.
func (g *Gateway) Config() Config { return g.cfg }

// Open dials the jump host and completes the SSH handshake.  Cancelling
// ctx interrupts a handshake in progress.
func (g *Gateway) Open(ctx context.Context) error {
	fail := func(op string, err error) error {
		return bqerr.WrapSSH(op, g.cfg.Host, g.cfg.Port, err)
	}

	auth, err := authMethods(g.cfg)
	if err != nil {
		return fail("auth", err)
	}
	hostKeys, err := hostKeyCallback(g.cfg)
	if err != nil {
		return fail("hostkey", err)
	}

	addr := g.cfg.Addr()
	g.logger.Debug("ssh: dialing %s as %s", addr, g.cfg.User)

	d := net.Dialer{Timeout: g.cfg.Timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fail("dial", err)
	}

	_ = conn.SetDeadline(time.Now().Add(g.cfg.Timeout))
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Unix(1, 0)) })
	sc, chans, reqs, err := ssh.NewClientConn(conn, addr, &ssh.ClientConfig{
		User:            g.cfg.User,
		Auth:            auth,
		HostKeyCallback: hostKeys,
		Timeout:         g.cfg.Timeout,
	})
	stop()
	if ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		if sc != nil {
			sc.Close()
		}
		conn.Close()
		return fail("handshake", err)
	}
	_ = conn.SetDeadline(time.Time{})

	client := ssh.NewClient(sc, chans, reqs)
	g.mu.Lock()
	old := g.client
	g.client = client
	g.mu.Unlock()
	if old != nil {
		old.Close()
	}

	go g.watch(client)
	return nil
}

// Up reports whether the SSH connection is established.
func (g *Gateway) Up() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.client != nil
}

// Dial opens a connection to address on the far side of the jump host.
// ssh.Client.Dial ignores contexts, so a cancelled ctx abandons the dial
// and closes the connection if it arrives later.
func (g *Gateway) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	g.mu.Lock()
	client := g.client
	g.mu.Unlock()
	if client == nil {
		return nil, bqerr.ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		c, err := client.Dial(network, address)
		ch <- result{c, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("ssh forward to %s: %w", address, r.err)
		}
		g.logger.Debug("ssh: forwarded %s %s", network, address)
		return r.conn, nil
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.conn != nil {
				r.conn.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

// Close tears down the SSH connection.  Closing a closed Gateway is a
// no-op.
func (g *Gateway) Close() error {
	g.mu.Lock()
	client := g.client
	g.client = nil
	g.mu.Unlock()
	if client == nil {
		return nil
	}
	return client.Close()
}

// watch clears the client when the server side drops it, so the next
// Open reconnects.
func (g *Gateway) watch(client *ssh.Client) {
	err := client.Wait()

	g.mu.Lock()
	if g.client == client {
		g.client = nil
	}
	g.mu.Unlock()

	g.logger.Debug("ssh: connection to %s closed: %v", g.cfg.Addr(), err)
}
