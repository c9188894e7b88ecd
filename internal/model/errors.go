package model

import "github.com/pkg/errors"

var (
	ErrMissingMethod = errors.New("incoming: message method is required")
	ErrMissingURL    = errors.New("incoming: message url is required")
	ErrInvalidMethod = errors.New("incoming: invalid method token")
	ErrInvalidHeader = errors.New("incoming: invalid header field")

	// ErrStreamConsumed is returned when a one-shot body is read, or used to
	// build a request, after some other consumer has already claimed it.
	ErrStreamConsumed = errors.New("stream already consumed")

	ErrContentLengthMismatch = errors.New("conflicting value between body size and content-length request header")
)
