package transport

import (
	"io"
	"net/http"

	"github.com/frankli0324/go-incoming/internal/model"
)

type bodyCloser struct {
	io.Reader
	close func() error
}

func (b bodyCloser) Close() error {
	return b.close()
}

// claimBody takes ownership of a one-shot message body before anything
// reaches the wire, so a consumed message fails the request cleanly
// instead of leaving a header without its body behind.
func claimBody(req *model.PreparedRequest, body io.Reader) error {
	if _, ok := req.Request.Body.(*model.Message); !ok {
		return nil
	}
	if _, err := body.Read(nil); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// bodyless reports whether a response to req with the given status must
// not carry a body.
func bodyless(req *model.PreparedRequest, status int) bool {
	if req.Method == http.MethodHead {
		return true
	}
	return (100 <= status && status <= 199) ||
		status == http.StatusNoContent ||
		status == http.StatusNotModified
}
