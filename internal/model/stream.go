package model

import (
	"bytes"
	"io"
	"iter"
	"net/http"
)

// Chunks returns the drain sequence of the message. Building the sequence
// consumes nothing; ranging over it claims the message and yields the
// whole payload as a single chunk, then ends. A message without payload
// yields nothing.
//
// Once the message has been claimed, by an earlier range or by a reader
// from [Message.Body], the sequence is empty. Stopping the range early
// still leaves the message drained.
func (m *Message) Chunks() iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		if !m.claim() {
			return
		}
		defer m.finish()
		if len(m.body) > 0 {
			yield(bytes.Clone(m.body))
		}
	}
}

// Body converts the message into a pull based byte stream. The conversion
// itself reads nothing: the first Read claims the message. Readers that
// lose the claim fail every Read with [ErrStreamConsumed] instead of
// reporting an empty body.
//
// Closing a reader that has not been read from drops the payload.
func (m *Message) Body() io.ReadCloser {
	return &bodyReader{m: m}
}

type bodyReader struct {
	m   *Message
	off int

	claimed bool
	closed  bool
}

func (r *bodyReader) acquire() error {
	if r.closed {
		return http.ErrBodyReadAfterClose
	}
	if !r.claimed {
		if !r.m.claim() {
			return ErrStreamConsumed
		}
		r.claimed = true
	}
	return nil
}

func (r *bodyReader) Read(p []byte) (int, error) {
	if err := r.acquire(); err != nil {
		return 0, err
	}
	if r.off >= len(r.m.body) {
		r.m.finish()
		return 0, io.EOF
	}
	n := copy(p, r.m.body[r.off:])
	r.off += n
	return n, nil
}

// WriteTo lets io.Copy hand the remaining payload to w in one write.
func (r *bodyReader) WriteTo(w io.Writer) (int64, error) {
	if err := r.acquire(); err != nil {
		return 0, err
	}
	defer r.m.finish()
	if r.off >= len(r.m.body) {
		return 0, nil
	}
	n, err := w.Write(r.m.body[r.off:])
	r.off += n
	return int64(n), err
}

func (r *bodyReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.claimed || r.m.claim() {
		r.m.finish()
	}
	return nil
}
