package dialer

import (
	"github.com/frankli0324/go-incoming/internal/dialer"
)

// Dialers are responsible for creating underlying streams that http requests could
// be written to and responses could be read from. for example, opening a raw TCP
// connection for HTTP/1.1 requests.
//
// Unlike [net/http.Transport], A Dialer MUST NOT hold active connection states,
// which means a Dialer must be able to be swapped out from a Client without
// pain. Like [net/http.Transport], it SHOULD hold the connection related configs
// like *[crypto/tls.Config].
type Dialer = dialer.Dialer

// CoreDialer is the default implementation of the [Dialer] interface. It would
// be used by a zero value Client.
type CoreDialer = dialer.CoreDialer
