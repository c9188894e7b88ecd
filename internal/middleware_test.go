package internal_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/frankli0324/go-incoming/internal"
	"github.com/frankli0324/go-incoming/internal/dialer"
	"github.com/frankli0324/go-incoming/internal/model"
)

func TestLogMiddleware(t *testing.T) {
	server := httptest.NewServer(echo)
	defer server.Close()

	var buf bytes.Buffer
	c := &internal.Client{}
	c.Use(internal.LogMiddleware(slog.New(slog.NewJSONHandler(&buf, nil))))

	m := mustMessage(model.MessageInit{
		Method:     "POST",
		URL:        server.URL,
		Header:     http.Header{"Authorization": {"Bearer secret"}, "content-type": {"text/plain"}},
		Body:       []byte("hello"),
		RemoteAddr: "127.0.0.1",
	})
	roundTrip(t, c, model.MessageRequest(m))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "request_done", entry["msg"])
	require.Equal(t, "POST", entry["method"])
	require.Equal(t, float64(200), entry["status"])
	require.Equal(t, float64(5), entry["content_length"])
	require.Equal(t, "127.0.0.1", entry["remote"])
	headers := entry["headers"].(map[string]any)
	require.Equal(t, "<redacted>", headers["Authorization"])
	require.Equal(t, "text/plain", headers["content-type"])
	require.NotContains(t, buf.String(), "secret")
}

func TestLogMiddlewareError(t *testing.T) {
	var buf bytes.Buffer
	c := &internal.Client{}
	c.UseDialer(func(dialer.Dialer) dialer.Dialer { return &failDialer{} })
	c.Use(internal.LogMiddleware(slog.New(slog.NewTextHandler(&buf, nil))))

	_, err := c.CtxDo(context.Background(), &model.Request{Method: "GET", URL: "http://example.com"})
	require.Error(t, err)
	require.Contains(t, buf.String(), "level=ERROR")
	require.Contains(t, buf.String(), "msg=request_failed")
	require.Contains(t, buf.String(), "should not dial")
}

func TestMetricsMiddleware(t *testing.T) {
	server := httptest.NewServer(echo)
	defer server.Close()

	reg := prometheus.NewRegistry()
	metrics, err := internal.NewMetrics(reg)
	require.NoError(t, err)

	c := &internal.Client{}
	c.Use(metrics.Middleware())
	roundTrip(t, c, model.MessageRequest(scenarioMessage(server.URL)))
	roundTrip(t, c, &model.Request{Method: "GET", URL: server.URL})

	failing := &internal.Client{}
	failing.UseDialer(func(dialer.Dialer) dialer.Dialer { return &failDialer{} })
	failing.Use(metrics.Middleware())
	_, err = failing.CtxDo(context.Background(), &model.Request{Method: "GET", URL: server.URL})
	require.Error(t, err)

	expected := `
# HELP incoming_requests_total Requests sent, by method and response status code.
# TYPE incoming_requests_total counter
incoming_requests_total{code="200",method="GET"} 1
incoming_requests_total{code="200",method="POST"} 1
incoming_requests_total{code="error",method="GET"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "incoming_requests_total"))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	found := map[string]bool{}
	for _, mf := range mfs {
		found[mf.GetName()] = true
		switch mf.GetName() {
		case "incoming_request_body_bytes":
			// requests without a known body size are not observed
			require.Equal(t, uint64(1), mf.GetMetric()[0].GetHistogram().GetSampleCount())
			require.Equal(t, float64(28), mf.GetMetric()[0].GetHistogram().GetSampleSum())
		case "incoming_request_duration_seconds":
			require.Equal(t, uint64(3), mf.GetMetric()[0].GetHistogram().GetSampleCount())
		}
	}
	require.True(t, found["incoming_request_body_bytes"])
	require.True(t, found["incoming_request_duration_seconds"])
}

func TestMetricsRegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := internal.NewMetrics(reg)
	require.NoError(t, err)
	_, err = internal.NewMetrics(reg)
	require.Error(t, err)
}
