package model

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/net/http/httpguts"
)

// State is the drain state of a [Message]. A message only ever moves
// forward: undrained, draining, drained.
type State int32

const (
	StateUndrained State = iota
	StateDraining
	StateDrained
)

func (s State) String() string {
	switch s {
	case StateUndrained:
		return "undrained"
	case StateDraining:
		return "draining"
	case StateDrained:
		return "drained"
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

// MessageInit holds the fields a [Message] is built from.
type MessageInit struct {
	Method string
	URL    string
	Header http.Header
	// Body is copied by NewMessage. nil means the message has no payload,
	// while an empty non-nil slice is a present, zero-length payload.
	Body       []byte
	RemoteAddr string
}

// Message is a fully buffered incoming HTTP message. Its payload is fixed
// at construction and can be consumed exactly once, either with
// [Message.Chunks] or through the reader returned by [Message.Body].
//
// Header keys are kept exactly as supplied, they are not canonicalized.
type Message struct {
	method     string
	url        string
	header     http.Header
	body       []byte
	remoteAddr string

	state atomic.Int32
}

// NewMessage validates init and builds a Message from it. When a body is
// present and the header carries no content-length, one is added with the
// body's byte length. A caller supplied content-length is never touched.
func NewMessage(init MessageInit) (*Message, error) {
	if init.Method == "" {
		return nil, ErrMissingMethod
	}
	if !httpguts.ValidHeaderFieldName(init.Method) { // method = token
		return nil, errors.WithMessagef(ErrInvalidMethod, "%q", init.Method)
	}
	if init.URL == "" {
		return nil, ErrMissingURL
	}

	header := make(http.Header, len(init.Header)+1)
	for k, v := range init.Header {
		if !httpguts.ValidHeaderFieldName(k) {
			return nil, errors.WithMessagef(ErrInvalidHeader, "name %q", k)
		}
		for _, vv := range v {
			if !httpguts.ValidHeaderFieldValue(vv) {
				return nil, errors.WithMessagef(ErrInvalidHeader, "value of %q", k)
			}
		}
		header[k] = append([]string(nil), v...)
	}

	m := &Message{
		method:     init.Method,
		url:        init.URL,
		header:     header,
		body:       bytes.Clone(init.Body),
		remoteAddr: init.RemoteAddr,
	}
	// See https://httpwg.org/specs/rfc9110.html#field.content-length
	if m.body != nil && lookup(header, "content-length") == nil {
		header["content-length"] = []string{strconv.Itoa(len(m.body))}
	}
	return m, nil
}

func lookup(h http.Header, name string) []string {
	for k, v := range h {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return nil
}

func (m *Message) Method() string { return m.method }
func (m *Message) URL() string    { return m.url }

// Header returns a copy of the message header.
func (m *Message) Header() http.Header { return m.header.Clone() }

func (m *Message) RemoteAddr() string { return m.remoteAddr }

// IP is an alias of RemoteAddr.
func (m *Message) IP() string { return m.remoteAddr }

func (m *Message) HTTPVersion() string { return "1.1" }
func (m *Message) Proto() string       { return "HTTP/1.1" }
func (m *Message) ProtoMajor() int     { return 1 }
func (m *Message) ProtoMinor() int     { return 1 }

// Complete is always true: the payload is fully buffered and nothing else
// will arrive.
func (m *Message) Complete() bool { return true }

func (m *Message) HasBody() bool { return m.body != nil }

// Len is the byte length of the payload, 0 when there is none.
func (m *Message) Len() int { return len(m.body) }

// ContentLength returns the declared content-length of the message, or -1
// when the header has none or it does not parse.
func (m *Message) ContentLength() int64 {
	v := lookup(m.header, "content-length")
	if len(v) == 0 {
		return -1
	}
	cl, err := strconv.ParseInt(strings.TrimSpace(v[0]), 10, 64)
	if err != nil || cl < 0 {
		return -1
	}
	return cl
}

func (m *Message) State() State { return State(m.state.Load()) }

// Disturbed reports whether any consumer has started reading the message.
func (m *Message) Disturbed() bool { return m.State() != StateUndrained }

// claim makes the caller the only consumer of the message.
func (m *Message) claim() bool {
	return m.state.CompareAndSwap(int32(StateUndrained), int32(StateDraining))
}

func (m *Message) finish() { m.state.Store(int32(StateDrained)) }
