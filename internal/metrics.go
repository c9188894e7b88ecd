package internal

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/frankli0324/go-incoming/internal/model"
)

// Metrics counts requests sent through a [Client].
type Metrics struct {
	requests  *prometheus.CounterVec
	bodyBytes prometheus.Histogram
	duration  prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incoming",
			Name:      "requests_total",
			Help:      "Requests sent, by method and response status code.",
		}, []string{"method", "code"}),
		bodyBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "incoming",
			Name:      "request_body_bytes",
			Help:      "Declared size of request bodies.",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "incoming",
			Name:      "request_duration_seconds",
			Help:      "Time until the response header was read.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	for _, c := range []prometheus.Collector{m.requests, m.bodyBytes, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) Middleware() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *PreparedRequest) (*model.Response, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			m.duration.Observe(time.Since(start).Seconds())

			code := "error"
			if err == nil {
				code = strconv.Itoa(resp.StatusCode)
			}
			m.requests.WithLabelValues(req.Method, code).Inc()
			if req.ContentLength >= 0 {
				m.bodyBytes.Observe(float64(req.ContentLength))
			}
			return resp, err
		}
	}
}
