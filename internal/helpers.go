package internal

import (
	"crypto/tls"

	"github.com/frankli0324/go-incoming/internal/dialer"
	"github.com/frankli0324/go-incoming/internal/transport"
)

// UseH2C switches the client to HTTP/2 with prior knowledge. Every
// [dialer.CoreDialer] in the dialer chain offers only "h2" over TLS.
func (c *Client) UseH2C() {
	c.UseTransport(transport.H2C{})
	c.useCoreDialers(func(d *dialer.CoreDialer) {
		if d.TLSConfig == nil {
			d.TLSConfig = &tls.Config{}
		}
		d.TLSConfig.NextProtos = []string{"h2"}
	})
}

// DisableH2 goes back to HTTP/1.1 and reports whether HTTP/2 was in use.
func (c *Client) DisableH2() (ok bool) {
	if _, h2 := c.transport.(transport.H2C); h2 {
		c.transport = nil
		ok = true
	}
	c.useCoreDialers(func(d *dialer.CoreDialer) {
		if d.TLSConfig == nil {
			return
		}
		np := d.TLSConfig.NextProtos
		for i := range np {
			if np[i] == "h2" {
				d.TLSConfig.NextProtos = append(np[:i:i], np[i+1:]...)
				ok = true
				break
			}
		}
	})
	return
}

func (c *Client) useCoreDialers(do func(d *dialer.CoreDialer)) {
	c.UseDialer(func(d dialer.Dialer) dialer.Dialer {
		if d == dialer.Dialer(defaultDialer) {
			d = defaultDialer.Clone() // never touch the shared default
		}
		for cd := d; cd != nil; cd = cd.Unwrap() {
			if core, ok := cd.(*dialer.CoreDialer); ok {
				do(core)
			}
		}
		return d
	})
}
