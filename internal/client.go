package internal

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/frankli0324/go-incoming/internal/dialer"
	"github.com/frankli0324/go-incoming/internal/model"
	"github.com/frankli0324/go-incoming/internal/transport"
)

type PreparedRequest = model.PreparedRequest

type Handler = func(ctx context.Context, req *PreparedRequest) (*model.Response, error)
type Middleware func(next Handler) Handler

var defaultDialer = &dialer.CoreDialer{
	TLSConfig: &tls.Config{
		NextProtos: []string{"http/1.1"},
	},
	Timeout: 30 * time.Second,
}

// Client sends one request per connection. The zero value dials with
// [dialer.CoreDialer] and speaks HTTP/1.1.
type Client struct {
	middlewares []Middleware
	dialer      dialer.Dialer
	transport   transport.Transport
}

// Use appends mw to the end of the chain. The last "Use"d mw executes first
func (c *Client) Use(mws ...Middleware) {
	c.middlewares = append(c.middlewares, mws...)
}

// UseDialer replaces the dialer with the one returned by wrap, which is
// handed the current dialer.
func (c *Client) UseDialer(wrap func(dialer.Dialer) dialer.Dialer) {
	c.dialer = wrap(c.getDialer())
}

// UseCoreDialer is like UseDialer, with a private copy of the default
// [dialer.CoreDialer] to configure.
func (c *Client) UseCoreDialer(wrap func(*dialer.CoreDialer) dialer.Dialer) {
	c.dialer = wrap(defaultDialer.Clone())
}

func (c *Client) UseTransport(t transport.Transport) {
	c.transport = t
}

func (c *Client) getDialer() dialer.Dialer {
	if c.dialer != nil {
		return c.dialer
	}
	return defaultDialer
}

func (c *Client) getTransport() transport.Transport {
	if c.transport != nil {
		return c.transport
	}
	return transport.HTTP1{}
}

func (c *Client) Do(req *model.Request) (*model.Response, error) {
	return c.CtxDo(context.Background(), req)
}

func (c *Client) CtxDo(ctx context.Context, req *model.Request) (*model.Response, error) {
	pr, err := req.Prepare()
	if err != nil {
		return nil, err
	}
	next := func(ctx context.Context, pr *PreparedRequest) (*model.Response, error) {
		conn, err := c.getDialer().Dial(ctx, pr)
		if err != nil {
			return nil, err
		}
		if deadline, ok := ctx.Deadline(); ok {
			if dc, ok := conn.(interface{ SetDeadline(time.Time) error }); ok {
				dc.SetDeadline(deadline)
			}
		}
		resp := &model.Response{}
		if err := c.getTransport().RoundTrip(ctx, conn, pr, resp); err != nil {
			conn.Close()
			return nil, err
		}
		return resp, nil
	}
	for _, mw := range c.middlewares {
		next = mw(next)
	}
	return next(ctx, pr)
}
