package transport

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/hpack"

	"github.com/frankli0324/go-incoming/internal/model"
)

const (
	h2StreamID      = 1 // one request per connection, always the first client stream
	h2FrameSize     = 16384
	h2InitialWindow = 65535
)

// H2C speaks HTTP/2 with prior knowledge, one request per connection.
type H2C struct{}

func (t H2C) RoundTrip(ctx context.Context, rw io.ReadWriteCloser, req *model.PreparedRequest, resp *model.Response) error {
	c := newH2Conn(rw)
	if err := c.writeRequest(ctx, req); err != nil {
		return err
	}
	return c.readResponse(ctx, req, resp)
}

type h2Conn struct {
	rw   io.ReadWriteCloser
	wbuf *bufio.Writer
	*http2.Framer

	hbuf bytes.Buffer
	henc *hpack.Encoder

	connWindow, streamWindow int64
	peerInitialWindow        int64

	// response parts that arrived while the request body was still being
	// sent, in which case the peer may also stop reading it
	headers  *http2.MetaHeadersFrame
	early    []byte
	earlyEOF bool
	reset    bool
}

func newH2Conn(rw io.ReadWriteCloser) *h2Conn {
	wbuf := bufio.NewWriter(rw)
	framer := http2.NewFramer(wbuf, rw)
	framer.ReadMetaHeaders = hpack.NewDecoder(4096, nil)
	framer.MaxHeaderListSize = 10 << 20

	c := &h2Conn{
		rw:     rw,
		wbuf:   wbuf,
		Framer: framer,

		connWindow:        h2InitialWindow,
		streamWindow:      h2InitialWindow,
		peerInitialWindow: h2InitialWindow,
	}
	c.henc = hpack.NewEncoder(&c.hbuf)
	return c
}

func (c *h2Conn) writeRequest(ctx context.Context, req *model.PreparedRequest) error {
	body, err := req.GetBody()
	if err != nil {
		return errors.WithMessage(err, "get request body")
	}
	if body != nil {
		defer body.Close()
		if err := claimBody(req, body); err != nil {
			return errors.WithMessage(err, "claim request body")
		}
	}
	hasBody := body != nil

	if _, err := c.wbuf.WriteString(http2.ClientPreface); err != nil {
		return errors.Wrap(err, "write preface")
	}
	if err := c.WriteSettings(http2.Setting{ID: http2.SettingEnablePush, Val: 0}); err != nil {
		return errors.Wrap(err, "write settings")
	}
	if err := c.writeHeaders(req, hasBody); err != nil {
		return errors.WithMessage(err, "write request header")
	}
	if hasBody {
		if err := c.writeBody(ctx, body); err != nil {
			return errors.WithMessage(err, "write request body")
		}
	}
	return c.wbuf.Flush()
}

// encodeHeaders encodes HEADERS frame BlockFragment for given request
func (c *h2Conn) encodeHeaders(req *model.PreparedRequest, hasBody bool) []byte {
	c.hbuf.Reset()
	f := func(name, value string) {
		c.henc.WriteField(hpack.HeaderField{Name: name, Value: value})
	}

	f(":method", req.Method)
	f(":authority", req.HeaderHost)
	if req.Method != http.MethodConnect {
		scheme := req.U.Scheme
		if scheme == "" {
			scheme = "http"
		}
		f(":scheme", scheme)
		f(":path", req.U.RequestURI())
	}
	for k, v := range req.Header {
		k = strings.ToLower(k)
		switch k {
		// connection-specific, not allowed in HTTP/2
		case "connection", "keep-alive", "proxy-connection", "transfer-encoding", "upgrade":
			continue
		}
		for _, v := range v {
			f(k, v)
		}
	}
	if hasBody && req.ContentLength != -1 {
		f("content-length", strconv.FormatInt(req.ContentLength, 10))
	}
	return c.hbuf.Bytes()
}

func (c *h2Conn) writeHeaders(req *model.PreparedRequest, hasBody bool) error {
	block := c.encodeHeaders(req, hasBody)
	first := true
	for first || len(block) > 0 {
		frag := block
		if len(frag) > h2FrameSize {
			frag = frag[:h2FrameSize]
		}
		block = block[len(frag):]
		endHeaders := len(block) == 0

		var err error
		if first {
			err = c.WriteHeaders(http2.HeadersFrameParam{
				StreamID:      h2StreamID,
				BlockFragment: frag,
				EndStream:     !hasBody,
				EndHeaders:    endHeaders,
			})
			first = false
		} else {
			err = c.WriteContinuation(h2StreamID, endHeaders, frag)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *h2Conn) writeBody(ctx context.Context, body io.Reader) error {
	buf := make([]byte, h2FrameSize)
	for {
		n, rerr := body.Read(buf)
		data := buf[:n]
		for len(data) > 0 {
			if err := c.awaitWindow(ctx); err != nil {
				return err
			}
			if c.reset {
				return nil
			}
			allowed := int64(len(data))
			allowed = min(allowed, c.connWindow, c.streamWindow)
			if err := c.WriteData(h2StreamID, false, data[:allowed]); err != nil {
				return err
			}
			c.connWindow -= allowed
			c.streamWindow -= allowed
			data = data[allowed:]
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return rerr
		}
	}
	if c.reset {
		return nil
	}
	return c.WriteData(h2StreamID, true, nil)
}

// awaitWindow processes peer frames until there is room to send data.
func (c *h2Conn) awaitWindow(ctx context.Context) error {
	for !c.reset && (c.connWindow <= 0 || c.streamWindow <= 0) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.wbuf.Flush(); err != nil {
			return err
		}
		f, err := c.ReadFrame()
		if err != nil {
			return errors.Wrap(err, "read frame")
		}
		if err := c.handle(f); err != nil {
			return err
		}
	}
	return nil
}

// handle processes a frame that is not part of the response body.
func (c *h2Conn) handle(f http2.Frame) error {
	switch f := f.(type) {
	case *http2.SettingsFrame:
		if f.IsAck() {
			return nil
		}
		err := f.ForeachSetting(func(s http2.Setting) error {
			if s.ID == http2.SettingInitialWindowSize {
				c.streamWindow += int64(s.Val) - c.peerInitialWindow
				c.peerInitialWindow = int64(s.Val)
			}
			return nil
		})
		if err != nil {
			return err
		}
		if err := c.WriteSettingsAck(); err != nil {
			return err
		}
		return c.wbuf.Flush()
	case *http2.WindowUpdateFrame:
		switch f.StreamID {
		case 0:
			c.connWindow += int64(f.Increment)
		case h2StreamID:
			c.streamWindow += int64(f.Increment)
		}
	case *http2.PingFrame:
		if f.IsAck() {
			return nil
		}
		if err := c.WritePing(true, f.Data); err != nil {
			return err
		}
		return c.wbuf.Flush()
	case *http2.GoAwayFrame:
		if f.LastStreamID < h2StreamID || f.ErrCode != http2.ErrCodeNo {
			return http2.ConnectionError(f.ErrCode)
		}
	case *http2.RSTStreamFrame:
		if f.StreamID != h2StreamID {
			return nil
		}
		if f.ErrCode == http2.ErrCodeNo && c.headers != nil {
			// the response is complete without the rest of the request body
			c.reset = true
			return nil
		}
		return http2.StreamError{StreamID: h2StreamID, Code: f.ErrCode}
	case *http2.MetaHeadersFrame:
		if f.StreamID == h2StreamID && c.headers == nil {
			c.headers = f
		}
	case *http2.DataFrame:
		if f.StreamID != h2StreamID {
			return nil
		}
		c.early = append(c.early, f.Data()...)
		c.earlyEOF = c.earlyEOF || f.StreamEnded()
		return c.refill(f.Length, f.StreamEnded())
	}
	return nil
}

// refill gives n bytes of receive window back to the peer.
func (c *h2Conn) refill(n uint32, ended bool) error {
	if n == 0 {
		return nil
	}
	if err := c.WriteWindowUpdate(0, n); err != nil {
		return err
	}
	if !ended {
		if err := c.WriteWindowUpdate(h2StreamID, n); err != nil {
			return err
		}
	}
	return c.wbuf.Flush()
}

func (c *h2Conn) readResponse(ctx context.Context, req *model.PreparedRequest, resp *model.Response) error {
	for {
		for c.headers == nil {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := c.ReadFrame()
			if err != nil {
				return errors.Wrap(err, "read frame")
			}
			if err := c.handle(f); err != nil {
				return err
			}
		}
		status := c.headers.PseudoValue("status")
		code, err := strconv.Atoi(status)
		if err != nil || len(status) != 3 {
			return errors.New("malformed HTTP/2 status code " + status)
		}
		if code >= 100 && code <= 199 && !c.headers.StreamEnded() {
			c.headers = nil // informational, the final response follows
			continue
		}
		resp.Proto = "HTTP/2.0"
		resp.StatusCode = code
		resp.Status = status + " " + http.StatusText(code)
		break
	}

	resp.Header = make(http.Header)
	for _, f := range c.headers.RegularFields() {
		resp.Header.Add(f.Name, f.Value)
	}
	resp.ContentLength = -1
	if v := resp.Header.Get("Content-Length"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			resp.ContentLength = n
		}
	}
	resp.Header.Del("Content-Length")

	if (c.headers.StreamEnded() && len(c.early) == 0) || bodyless(req, resp.StatusCode) {
		c.rw.Close()
		resp.Body = http.NoBody
		if resp.ContentLength == -1 {
			resp.ContentLength = 0
		}
		return nil
	}
	b := &h2Body{c: c, buf: c.early}
	if c.earlyEOF {
		b.err = io.EOF
	}
	resp.Body = b
	return nil
}

// h2Body reads DATA frames of the response, giving the flow control
// window back as data arrives. Closing it closes the connection.
type h2Body struct {
	c   *h2Conn
	buf []byte
	err error
}

func (b *h2Body) Read(p []byte) (int, error) {
	for len(b.buf) == 0 {
		if b.err != nil {
			return 0, b.err
		}
		f, err := b.c.ReadFrame()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			b.err = err
			continue
		}
		switch f := f.(type) {
		case *http2.DataFrame:
			if f.StreamID != h2StreamID {
				continue
			}
			b.buf = append(b.buf[:0], f.Data()...)
			if f.StreamEnded() {
				b.err = io.EOF
			}
			if err := b.c.refill(f.Length, f.StreamEnded()); err != nil && b.err == nil {
				b.err = err
			}
		case *http2.MetaHeadersFrame: // trailers
			if f.StreamID == h2StreamID && f.StreamEnded() {
				b.err = io.EOF
			}
		default:
			if err := b.c.handle(f); err != nil {
				b.err = err
			}
		}
	}
	n := copy(p, b.buf)
	b.buf = b.buf[n:]
	return n, nil
}

func (b *h2Body) Close() error {
	return b.c.rw.Close()
}
