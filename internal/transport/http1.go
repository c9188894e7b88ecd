package transport

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/frankli0324/go-incoming/internal/model"
	"github.com/frankli0324/go-incoming/internal/transport/chunked"
)

// HTTP1 speaks HTTP/1.1, one request per connection.
type HTTP1 struct{}

func (t HTTP1) RoundTrip(ctx context.Context, rw io.ReadWriteCloser, req *model.PreparedRequest, resp *model.Response) error {
	if err := t.Write(rw, req); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.Read(rw, req, resp)
}

func (t HTTP1) Write(w io.Writer, r *model.PreparedRequest) error {
	body, err := r.GetBody() // can write body
	if err != nil {
		return errors.WithMessage(err, "get request body")
	}
	if body != nil {
		defer body.Close() // request body is ALWAYS closed
		if err := claimBody(r, body); err != nil {
			return errors.WithMessage(err, "claim request body")
		}
	}
	isChunked := body != nil && r.ContentLength == -1

	if err := t.writeHeader(w, r, isChunked); err != nil {
		return errors.WithMessage(err, "write request header")
	}
	if body == nil {
		return nil
	}
	if isChunked {
		cw := chunked.NewChunkedWriter(w)
		if _, err := io.Copy(cw, body); err != nil {
			return errors.WithMessage(err, "write request body")
		}
		return cw.CloseWithTrailer(nil)
	}
	n, err := io.Copy(w, body)
	if err != nil {
		return errors.WithMessage(err, "write request body")
	}
	if n != r.ContentLength {
		return errors.Errorf("http: ContentLength=%d with Body length %d", r.ContentLength, n)
	}
	return nil
}

// writeHeader writes the status and header part of an http 1.1 request
// e.g.:
//
//	GET / HTTP/1.1\r\n
//	Host: www.google.com\r\n
//	X-Xx-Yy: cccccc\r\n
//	\r\n
func (t HTTP1) writeHeader(w io.Writer, r *model.PreparedRequest, isChunked bool) error {
	header := bufio.NewWriter(w) // default bufsize is 4096

	if _, err := header.WriteString(r.Method); err != nil {
		return err
	}
	header.WriteByte(' ')
	header.WriteString(r.U.RequestURI())
	header.WriteString(" HTTP/1.1\r\n")

	header.WriteString("Host: ")
	header.WriteString(r.HeaderHost)
	header.WriteString("\r\n")
	if r.ContentLength != -1 {
		header.WriteString("Content-Length: ")
		header.WriteString(strconv.FormatInt(r.ContentLength, 10))
		header.WriteString("\r\n")
	} else if isChunked {
		header.WriteString("Transfer-Encoding: chunked\r\n")
	}
	for k, v := range r.Header {
		if isChunked && strings.EqualFold(k, "transfer-encoding") {
			continue
		}
		for _, v := range v {
			header.WriteString(k)
			header.WriteString(": ")
			header.WriteString(v)
			if _, err := header.WriteString("\r\n"); err != nil {
				return err
			}
		}
	}
	if _, err := header.WriteString("\r\n"); err != nil {
		return err
	}
	return header.Flush()
}

func (t HTTP1) Read(r io.Reader, req *model.PreparedRequest, resp *model.Response) (err error) {
	closer := io.NopCloser
	if cr, ok := r.(io.Closer); ok {
		closer = func(r io.Reader) io.ReadCloser { return bodyCloser{r, cr.Close} }
	}
	tp := textproto.NewReader(bufio.NewReader(r))

	line, err := tp.ReadLine()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return errors.WithMessage(err, "read status line")
	}
	proto, status, ok := strings.Cut(line, " ")
	if !ok {
		return errors.New("malformed HTTP response")
	}
	resp.Proto = proto
	resp.Status = strings.TrimLeft(status, " ")

	statusCode, _, _ := strings.Cut(resp.Status, " ")
	if len(statusCode) != 3 {
		return errors.New("malformed HTTP status code " + statusCode)
	}
	resp.StatusCode, err = strconv.Atoi(statusCode)
	if err != nil || resp.StatusCode < 0 {
		return errors.New("malformed HTTP status code")
	}

	// Parse the response headers.
	mimeHeader, err := tp.ReadMIMEHeader()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return errors.WithMessage(err, "read response header")
	}
	if hp, ok := mimeHeader["Pragma"]; ok && len(hp) > 0 && hp[0] == "no-cache" {
		if _, presentcc := mimeHeader["Cache-Control"]; !presentcc {
			mimeHeader["Cache-Control"] = []string{"no-cache"}
		}
	}
	resp.Header = http.Header(mimeHeader)

	return t.readTransfer(tp.R, req, resp, closer)
}

func (t HTTP1) readTransfer(r io.Reader, req *model.PreparedRequest, resp *model.Response, closer func(io.Reader) io.ReadCloser) error {
	contentLens := resp.Header["Content-Length"]

	// Hardening against HTTP request smuggling, taken from standard library
	if len(contentLens) > 1 {
		// Per RFC 7230 Section 3.3.2
		first := textproto.TrimString(contentLens[0])
		for _, ct := range contentLens[1:] {
			if first != textproto.TrimString(ct) {
				return errors.Errorf("http: message cannot contain multiple Content-Length headers; got %q", contentLens)
			}
		}

		// deduplicate Content-Length
		resp.Header.Del("Content-Length")
		resp.Header.Add("Content-Length", first)

		contentLens = resp.Header["Content-Length"]
	}

	cl := int64(-1)
	if len(contentLens) > 0 {
		// Logic based on Content-Length
		n, err := strconv.ParseUint(contentLens[0], 10, 63)
		if err == nil {
			cl = int64(n)
		}
	}

	if bodyless(req, resp.StatusCode) {
		closer(nil).Close()
		resp.ContentLength = 0
		resp.Body = http.NoBody
		return nil
	}

	if resp.Header.Get("Transfer-Encoding") == "chunked" {
		resp.ContentLength = -1
		resp.Body = closer(chunked.NewChunkedReader(r))
		return nil
	}

	resp.Header.Del("Content-Length")
	resp.ContentLength = cl
	switch {
	case cl > 0:
		resp.Body = closer(io.LimitReader(r, cl))
	case cl == 0:
		closer(nil).Close()
		resp.Body = http.NoBody
	default: // delimited by connection close
		resp.Body = closer(r)
	}
	return nil
}
