package dialer

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/frankli0324/go-incoming/internal/model"
)

// Dialers handle pretty much everything related to the actual connection.
type Dialer interface {
	// Dial returns an abstract stream for writing the request and reading responses.
	// the implementation of this stream could be specific to protocols.
	Dial(ctx context.Context, r *model.PreparedRequest) (io.ReadWriteCloser, error)
	Unwrap() Dialer
}

type CoreDialer struct {
	ResolveConfig *ResolveConfig

	TLSConfig *tls.Config // the config to use
	Timeout   time.Duration
}

type ResolveConfig struct {
	Network     string            // one of "ip4", "ip6", default is "ip"
	StaticHosts map[string]string // resembles /etc/hosts
}

func (c *ResolveConfig) Clone() *ResolveConfig {
	if c == nil {
		return nil
	}
	hosts := make(map[string]string, len(c.StaticHosts))
	for k, v := range c.StaticHosts {
		hosts[k] = v
	}
	return &ResolveConfig{
		Network:     c.Network,
		StaticHosts: hosts,
	}
}

// resolve returns the network and address to dial for host:port.
func (c *ResolveConfig) resolve(host, port string) (string, string) {
	if c == nil {
		return "tcp", net.JoinHostPort(host, port)
	}
	network := "tcp"
	switch c.Network {
	case "ip4":
		network = "tcp4"
	case "ip6":
		network = "tcp6"
	}
	if static, ok := c.StaticHosts[host]; ok {
		host = static
	}
	return network, net.JoinHostPort(host, port)
}

var schemes = map[string]string{
	"http": "80", "https": "443",
}

func (d *CoreDialer) Clone() *CoreDialer {
	return &CoreDialer{
		ResolveConfig: d.ResolveConfig.Clone(),
		TLSConfig:     d.TLSConfig.Clone(),
		Timeout:       d.Timeout,
	}
}

func (d *CoreDialer) Unwrap() Dialer {
	return nil
}

func (d *CoreDialer) Dial(ctx context.Context, r *model.PreparedRequest) (io.ReadWriteCloser, error) {
	port, ok := schemes[r.U.Scheme]
	if !ok {
		return nil, errors.Errorf("unsupported scheme %q", r.U.Scheme)
	}
	if p := r.U.Port(); p != "" {
		port = p
	}
	network, hp := d.ResolveConfig.resolve(r.U.Hostname(), port)

	dialer := net.Dialer{Timeout: d.Timeout}
	conn, err := dialer.DialContext(ctx, network, hp)
	if err != nil {
		return nil, errors.Wrap(err, "dial "+hp)
	}
	if r.U.Scheme == "https" {
		config := d.TLSConfig.Clone()
		if config == nil {
			config = &tls.Config{}
		}
		if config.ServerName == "" {
			config.ServerName = r.U.Hostname()
		}
		c := tls.Client(conn, config)
		if err := c.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, errors.Wrap(err, "tls handshake")
		}
		return c, nil
	}
	return conn, nil
}
