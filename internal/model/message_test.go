package model_test

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/frankli0324/go-incoming/internal/model"
)

func TestNewMessageContentLength(t *testing.T) {
	bodies := [][]byte{
		[]byte("a"),
		[]byte("Incoming Message hello world"),
		make([]byte, 70000),
		{},
	}
	for _, body := range bodies {
		m, err := model.NewMessage(model.MessageInit{
			Method: "POST",
			URL:    "https://example.com",
			Header: http.Header{"content-type": {"text/plain"}},
			Body:   body,
		})
		require.NoError(t, err)
		require.Equal(t, []string{strconv.Itoa(len(body))}, m.Header()["content-length"])
		require.Equal(t, []string{"text/plain"}, m.Header()["content-type"])
		require.Equal(t, int64(len(body)), m.ContentLength())
	}
}

func TestNewMessageKeepsDeclaredContentLength(t *testing.T) {
	for _, key := range []string{"content-length", "Content-Length"} {
		m, err := model.NewMessage(model.MessageInit{
			Method: "POST",
			URL:    "https://example.com",
			Header: http.Header{key: {"5"}},
			Body:   []byte("much longer than five bytes"),
		})
		require.NoError(t, err)
		h := m.Header()
		require.Len(t, h, 1)
		require.Equal(t, []string{"5"}, h[key])
		require.Equal(t, int64(5), m.ContentLength())
	}
}

func TestNewMessageWithoutBody(t *testing.T) {
	header := http.Header{"content-type": {"text/plain"}}
	m, err := model.NewMessage(model.MessageInit{
		Method: "GET",
		URL:    "/",
		Header: header,
	})
	require.NoError(t, err)
	require.False(t, m.HasBody())
	require.Equal(t, header, m.Header())
	require.Equal(t, int64(-1), m.ContentLength())
}

func TestNewMessageDoesNotAliasInput(t *testing.T) {
	header := http.Header{}
	body := []byte("hello")
	m, err := model.NewMessage(model.MessageInit{
		Method: "PUT", URL: "/x", Header: header, Body: body,
	})
	require.NoError(t, err)
	require.Empty(t, header, "caller header must not gain content-length")

	body[0] = 'j'
	m.Header()["content-length"][0] = "99"

	var got []byte
	for c := range m.Chunks() {
		got = append(got, c...)
	}
	require.Equal(t, "hello", string(got))
	require.Equal(t, int64(5), m.ContentLength())
}

func TestNewMessageMetadata(t *testing.T) {
	m, err := model.NewMessage(model.MessageInit{
		Method: "POST", URL: "https://example.com", RemoteAddr: "127.0.0.1",
	})
	require.NoError(t, err)
	require.Equal(t, "POST", m.Method())
	require.Equal(t, "https://example.com", m.URL())
	require.Equal(t, "127.0.0.1", m.RemoteAddr())
	require.Equal(t, "127.0.0.1", m.IP())
	require.Equal(t, "1.1", m.HTTPVersion())
	require.Equal(t, "HTTP/1.1", m.Proto())
	require.Equal(t, 1, m.ProtoMajor())
	require.Equal(t, 1, m.ProtoMinor())
	require.True(t, m.Complete())
	require.Equal(t, model.StateUndrained, m.State())
}

func TestNewMessageErrors(t *testing.T) {
	cases := map[string]struct {
		init model.MessageInit
		err  error
	}{
		"MissingMethod": {model.MessageInit{URL: "/"}, model.ErrMissingMethod},
		"MissingURL":    {model.MessageInit{Method: "GET"}, model.ErrMissingURL},
		"MethodNotToken": {
			model.MessageInit{Method: "GE T", URL: "/"}, model.ErrInvalidMethod,
		},
		"HeaderName": {
			model.MessageInit{Method: "GET", URL: "/", Header: http.Header{"bad name": {"v"}}},
			model.ErrInvalidHeader,
		},
		"HeaderValue": {
			model.MessageInit{Method: "GET", URL: "/", Header: http.Header{"x": {"a\r\nb"}}},
			model.ErrInvalidHeader,
		},
	}
	for name, c := range cases {
		c := c
		t.Run(name, func(t *testing.T) {
			m, err := model.NewMessage(c.init)
			require.Nil(t, m)
			require.True(t, errors.Is(err, c.err), "got %v", err)
		})
	}
}

func TestStateString(t *testing.T) {
	require.Equal(t, "undrained", model.StateUndrained.String())
	require.Equal(t, "draining", model.StateDraining.String())
	require.Equal(t, "drained", model.StateDrained.String())
	require.Equal(t, "State(7)", model.State(7).String())
}
