package transport

import (
	"context"
	"net"
	"sync"

	"bulkq/internal/metrics"
	"bulkq/tunnel"
	"bulkq/util"
)

// gateway is the part of *tunnel.Gateway the dialer relies on.
type gateway interface {
	Open(ctx context.Context) error
	Up() bool
	Dial(ctx context.Context, network, address string) (net.Conn, error)
	Close() error
}

// SSHDialer reaches the endpoint through an SSH jump host.  The SSH
// connection is opened on the first Dial and reopened on a later Dial
// if the jump host dropped it.
type SSHDialer struct {
	gw      gateway
	label   string
	logger  *util.Logger
	metrics *metrics.Collector

	mu sync.Mutex // serialises Open
}

// NewSSHDialer returns a dialer forwarding through the jump host in cfg.
func NewSSHDialer(cfg tunnel.Config, logger *util.Logger, m *metrics.Collector) *SSHDialer {
	gw := tunnel.New(cfg, logger)
	return &SSHDialer{gw: gw, label: gw.Config().String(), logger: logger, metrics: m}
}

func (d *SSHDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	if err := d.ensureOpen(ctx); err != nil {
		return nil, err
	}
	return d.gw.Dial(ctx, network, address)
}

func (d *SSHDialer) ensureOpen(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gw.Up() {
		return nil
	}

	d.logger.Verbose("opening SSH tunnel via %s", d.label)
	if err := d.gw.Open(ctx); err != nil {
		return err
	}
	d.metrics.TunnelConnected()
	d.logger.Verbose("SSH tunnel via %s is up", d.label)
	return nil
}

// Close shuts the SSH connection, if any.
func (d *SSHDialer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gw.Close()
}
