package internal

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/frankli0324/go-incoming/internal/model"
)

var sensitive = map[string]struct{}{
	"authorization":       {},
	"proxy-authorization": {},
	"cookie":              {},
	"x-api-key":           {},
}

// safeHeaders returns the first value of each header with sensitive
// values redacted.
func safeHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) == 0 {
			continue
		}
		if _, ok := sensitive[strings.ToLower(k)]; ok {
			out[k] = "<redacted>"
			continue
		}
		out[k] = v[0]
	}
	return out
}

// LogMiddleware logs a summary of every request once its response header
// has been read, or once it failed.
func LogMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, req *PreparedRequest) (*model.Response, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			attrs := []any{
				"method", req.Method,
				"url", req.U.Redacted(),
				"content_length", req.ContentLength,
				"headers", safeHeaders(req.Header),
				"duration", time.Since(start),
			}
			if m, ok := req.Request.Body.(*model.Message); ok {
				attrs = append(attrs, "remote", m.RemoteAddr())
			}
			if err != nil {
				logger.ErrorContext(ctx, "request_failed", append(attrs, "error", err)...)
				return nil, err
			}
			logger.InfoContext(ctx, "request_done", append(attrs, "status", resp.StatusCode, "proto", resp.Proto)...)
			return resp, nil
		}
	}
}
