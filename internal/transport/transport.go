package transport

import (
	"context"
	"io"

	"github.com/frankli0324/go-incoming/internal/model"
)

// Transport writes a prepared request to rw and reads the response back
// from it. rw is owned by the response body once RoundTrip succeeds.
type Transport interface {
	RoundTrip(ctx context.Context, rw io.ReadWriteCloser, req *model.PreparedRequest, resp *model.Response) error
}
