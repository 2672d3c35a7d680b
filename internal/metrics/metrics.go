// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the site's collectors so tests can use a private registry.
type Metrics struct {
	HTTPRequestDuration *prometheus.HistogramVec
	ContactSubmissions  *prometheus.CounterVec
	MailSent            *prometheus.CounterVec
	MailQueueDepth      prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
			},
			[]string{"method", "path", "status"},
		),
		ContactSubmissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contact_submissions_total",
				Help: "Contact form submissions by outcome",
			},
			[]string{"outcome"}, // stored, invalid, limited, failed
		),
		MailSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mail_sent_total",
				Help: "Outgoing mail by kind and status",
			},
			[]string{"kind", "status"},
		),
		MailQueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "mail_queue_depth",
				Help: "Mails waiting to be sent",
			},
		),
	}
	reg.MustRegister(m.HTTPRequestDuration, m.ContactSubmissions, m.MailSent, m.MailQueueDepth)
	return m
}

// ObserveRequest records one HTTP request. path should be the route pattern,
// not the raw URL, to keep label cardinality bounded.
func (m *Metrics) ObserveRequest(method, path string, status int, d time.Duration) {
	m.HTTPRequestDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(d.Seconds())
}

// Contact counts one contact form outcome.
func (m *Metrics) Contact(outcome string) {
	m.ContactSubmissions.WithLabelValues(outcome).Inc()
}

// Mail counts one mail send attempt.
func (m *Metrics) Mail(kind string, err error) {
	status := "success"
	if err != nil {
		status = "failed"
	}
	m.MailSent.WithLabelValues(kind, status).Inc()
}
