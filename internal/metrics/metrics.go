// Package metrics holds the Prometheus collectors for the sync layer.
package metrics

import (
	"errors"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once
	registerErr  error

	ChangeEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "consigna_change_events_total",
		Help: "Row change notifications received from the store",
	}, []string{"table", "event"})

	RefetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "consigna_refetch_total",
		Help: "Full collection re-fetches by trigger",
	}, []string{"table", "trigger"}) // trigger: initial|write|notification

	SubscribeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "consigna_subscribe_total",
		Help: "Change-notification subscription attempts",
	}, []string{"result"})

	StoreErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "consigna_store_errors_total",
		Help: "Failed remote store calls by table and operation",
	}, []string{"table", "op"})

	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "consigna_active_sessions",
		Help: "Authenticated sessions with a live inventory",
	})

	ActiveSubscriptions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "consigna_active_subscriptions",
		Help: "Change-notification subscriptions currently registered",
	})

	SaleNotificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "consigna_sale_notifications_total",
		Help: "Outbound sale notification attempts",
	}, []string{"result"}) // result: sent|skipped|error

	RateLimitedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "consigna_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	}, []string{"prefix"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "consigna_http_request_duration_seconds",
		Help:    "HTTP request latency by route pattern",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Register adds every collector to registry (the default registerer when nil)
// and returns the /metrics handler. Safe to call more than once.
func Register(registry prometheus.Registerer) (http.Handler, error) {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	registerOnce.Do(func() {
		for _, c := range []prometheus.Collector{
			ChangeEventsTotal,
			RefetchTotal,
			SubscribeTotal,
			StoreErrorsTotal,
			ActiveSessions,
			ActiveSubscriptions,
			SaleNotificationsTotal,
			RateLimitedTotal,
			HTTPRequestDuration,
		} {
			if err := registerCollector(registry, c); err != nil {
				registerErr = err
				return
			}
		}
	})
	if registerErr != nil {
		return nil, registerErr
	}

	return promhttp.Handler(), nil
}

func registerCollector(registry prometheus.Registerer, c prometheus.Collector) error {
	if err := registry.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			return nil
		}
		return err
	}
	return nil
}

// ResultLabel maps an error to the "result" label value
func ResultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
