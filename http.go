// Package incoming provides a one-shot, fully buffered HTTP message and a
// small client that can send it.
//
// A [Message] is built once with [NewMessage] and read once, either as a
// chunk sequence with [Message.Chunks] or as a request body. Reading it a
// second time gives nothing back: Chunks is simply empty, while body
// readers and request preparation fail with [ErrStreamConsumed].
package incoming

import (
	"net/http"

	"github.com/frankli0324/go-incoming/internal"
	"github.com/frankli0324/go-incoming/internal/model"
	"github.com/frankli0324/go-incoming/internal/transport"
)

type Client = internal.Client
type Header = http.Header
type Message = model.Message
type MessageInit = model.MessageInit
type State = model.State
type Request = model.Request
type PreparedRequest = model.PreparedRequest
type Response = model.Response

type Handler = internal.Handler
type Middleware = internal.Middleware
type Metrics = internal.Metrics

type Transport = transport.Transport
type HTTP1 = transport.HTTP1
type H2C = transport.H2C

const (
	StateUndrained = model.StateUndrained
	StateDraining  = model.StateDraining
	StateDrained   = model.StateDrained
)

var (
	ErrMissingMethod         = model.ErrMissingMethod
	ErrMissingURL            = model.ErrMissingURL
	ErrInvalidMethod         = model.ErrInvalidMethod
	ErrInvalidHeader         = model.ErrInvalidHeader
	ErrStreamConsumed        = model.ErrStreamConsumed
	ErrContentLengthMismatch = model.ErrContentLengthMismatch
)

var NoBody = http.NoBody

var (
	NewMessage     = model.NewMessage
	MessageRequest = model.MessageRequest
	LogMiddleware  = internal.LogMiddleware
	NewMetrics     = internal.NewMetrics
)
