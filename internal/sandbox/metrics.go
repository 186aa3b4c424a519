package sandbox

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry *prometheus.Registry

	ordersCreated   prometheus.Counter
	ivrCalls        *prometheus.CounterVec
	statusPolls     *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &metrics{
		registry: reg,
		ordersCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "homeservices_sandbox_orders_created_total",
			Help: "The total number of orders created",
		}),
		ivrCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "homeservices_sandbox_ivr_calls_total",
			Help: "The total number of IVR call requests, by result",
		}, []string{"result"}),
		statusPolls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "homeservices_sandbox_status_polls_total",
			Help: "The total number of order status requests, by returned status",
		}, []string{"status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "homeservices_sandbox_request_duration_seconds",
			Help:    "Time spent serving API requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),
	}
}

func (m *metrics) handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

func (m *metrics) middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		status := c.Response().Status
		if he, ok := err.(*echo.HTTPError); ok {
			status = he.Code
		}
		m.requestDuration.
			WithLabelValues(c.Request().Method, c.Path(), strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
		return err
	}
}
