package model

import (
	"io"
	"net/http"
)

type Request struct {
	Method string
	URL    string
	Body   interface{}
	Header http.Header
}

// MessageRequest builds a request that carries m as its body, with the
// method, url and header of the message.
func MessageRequest(m *Message) *Request {
	return &Request{
		Method: m.Method(),
		URL:    m.URL(),
		Header: m.Header(),
		Body:   m,
	}
}

type Response struct {
	Proto      string
	Status     string
	StatusCode int
	Header     http.Header

	ContentLength int64
	Body          io.ReadCloser
}
