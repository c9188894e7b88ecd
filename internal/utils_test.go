package internal_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/frankli0324/go-incoming/internal"
	"github.com/frankli0324/go-incoming/internal/dialer"
	"github.com/frankli0324/go-incoming/internal/model"
)

type CombinedReadWriteCloser struct {
	io.Reader
	io.Writer
	io.Closer
}

type TestDialer struct {
	io.ReadWriteCloser
}

// Dial implements dialer.Dialer.
func (t *TestDialer) Dial(ctx context.Context, r *model.PreparedRequest) (io.ReadWriteCloser, error) {
	return t.ReadWriteCloser, nil
}

// Unwrap implements dialer.Dialer.
func (t *TestDialer) Unwrap() dialer.Dialer {
	return nil
}

// SendSingleRequest sends req through a client wired to an in-memory
// connection and returns what the client wrote to it.
func SendSingleRequest(t *testing.T, req *model.Request) io.Reader {
	readResponse, writeResponse := io.Pipe()
	go io.Copy(writeResponse, strings.NewReader("HTTP/1.1 200 OK\r\nContent-Length: 0\r\nConnection: close\r\n\r\n"))

	readRequest, writeRequest := io.Pipe()
	c := &internal.Client{}
	c.UseDialer(func(dialer.Dialer) dialer.Dialer {
		return &TestDialer{CombinedReadWriteCloser{
			Reader: readResponse,
			Writer: writeRequest,
			Closer: writeRequest,
		}}
	})
	go func() {
		resp, err := c.CtxDo(context.Background(), req)
		if err != nil {
			t.Error(err)
			return
		}
		resp.Body.Close()
	}()
	return readRequest
}

func mustMessage(init model.MessageInit) *model.Message {
	m, err := model.NewMessage(init)
	if err != nil {
		panic(err)
	}
	return m
}

func scenarioMessage(url string) *model.Message {
	return mustMessage(model.MessageInit{
		Method:     "POST",
		URL:        url,
		Header:     http.Header{"content-type": {"text/plain"}},
		Body:       []byte("Incoming Message hello world"),
		RemoteAddr: "127.0.0.1",
	})
}
