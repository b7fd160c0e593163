package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/serenity-care/dispatch/core/metrics"
)

// PromSink records dispatch activity in Prometheus metrics.
type PromSink struct {
	notifications *prometheus.CounterVec
	claims        *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	activeGaps    prometheus.Gauge
	pending       prometheus.Gauge
}

// NewPromSink registers dispatch metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (coremetrics.Sink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (coremetrics.Sink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_notifications_total",
		Help: "Total number of coverage notifications attempted",
	}, []string{"channel", "state", "urgency"})
	claims := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_claims_total",
		Help: "Total number of worker responses resolved",
	}, []string{"accepted", "won"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dispatch_response_latency_seconds",
		Help:    "Time between notification send and worker response",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"accepted"})
	activeGaps := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dispatch_active_gaps",
		Help: "Coverage gaps found by the most recent detection pass",
	})
	pending := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dispatch_pending_notifications",
		Help: "Notifications awaiting a worker response",
	})

	if err := reg.Register(notifications); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			notifications = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(claims); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			claims = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(latency); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			latency = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(activeGaps); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			activeGaps = are.ExistingCollector.(prometheus.Gauge)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(pending); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			pending = are.ExistingCollector.(prometheus.Gauge)
		} else {
			return nil, err
		}
	}

	return &PromSink{
		notifications: notifications,
		claims:        claims,
		latency:       latency,
		activeGaps:    activeGaps,
		pending:       pending,
	}, nil
}

// RecordNotifications increments the counter for each attempt in the wave.
func (s *PromSink) RecordNotifications(recs []coremetrics.NotificationRecord) error {
	for _, r := range recs {
		s.notifications.WithLabelValues(string(r.Channel), string(r.State), r.Urgency.String()).Inc()
	}
	return nil
}

// RecordClaim counts the resolution and observes the response latency.
func (s *PromSink) RecordClaim(rec coremetrics.ClaimRecord) error {
	accepted := strconv.FormatBool(rec.Accepted)
	s.claims.WithLabelValues(accepted, strconv.FormatBool(rec.Won)).Inc()
	s.latency.WithLabelValues(accepted).Observe(rec.Latency.Seconds())
	return nil
}

// RecordGapCount sets the active gap gauge.
func (s *PromSink) RecordGapCount(active int) error {
	if s.activeGaps != nil {
		s.activeGaps.Set(float64(active))
	}
	return nil
}

// RecordPending sets the in-flight notification gauge.
func (s *PromSink) RecordPending(count int) error {
	if s.pending != nil {
		s.pending.Set(float64(count))
	}
	return nil
}
