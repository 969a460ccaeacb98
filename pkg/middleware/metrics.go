package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "projecthub"

// Metrics はHTTPリクエストのPrometheusメトリクスを保持する。
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	authFailures    *prometheus.CounterVec
}

// NewMetrics は指定したレジストリにメトリクスを登録する。
// 同じレジストリに2回登録するとパニックになる。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "処理したHTTPリクエスト数。",
		}, []string{"method", "route", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTPリクエストの処理時間（秒）。",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		authFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "auth_failures_total",
			Help:      "Auth Gateで拒否したリクエスト数（種別ごと）。",
		}, []string{"kind"}),
	}
}

// Handler はリクエスト数・処理時間・認証失敗数を記録するGinミドルウェアを返す。
// ラベルのカーディナリティを抑えるため、パスではなくルートのパターンを使う。
func (m *Metrics) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method

		m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())

		if kind := c.GetString(authFailureKey); kind != "" {
			m.authFailures.WithLabelValues(kind).Inc()
		}
	}
}
