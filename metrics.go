package mfs

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics provides Prometheus metrics for redirector requests and find
// sessions. All methods are nil-safe: calls on a nil *Metrics are no-ops.
type Metrics struct {
	// Operations counts requests labeled by operation and result. Result is
	// "ok", "not_handled" or the DOS error name.
	Operations *prometheus.CounterVec

	// SessionsOpened counts find sessions handed out.
	SessionsOpened prometheus.Counter

	// SessionsClosed counts released find sessions labeled by reason.
	// Reason values: "close", "exhausted", "owner_exit".
	SessionsClosed *prometheus.CounterVec

	// ActiveSessions tracks the number of occupied find handles.
	ActiveSessions prometheus.Gauge
}

// NewMetrics creates and registers redirector metrics with reg. If reg is
// nil the metrics are created but not registered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mfs",
			Subsystem: "redirector",
			Name:      "operations_total",
			Help:      "Total number of redirector requests by operation and result",
		}, []string{"op", "result"}),
		SessionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mfs",
			Subsystem: "find_sessions",
			Name:      "opened_total",
			Help:      "Total number of find sessions opened",
		}),
		SessionsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mfs",
			Subsystem: "find_sessions",
			Name:      "closed_total",
			Help:      "Total number of find sessions closed",
		}, []string{"reason"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mfs",
			Subsystem: "find_sessions",
			Name:      "active",
			Help:      "Current number of open find sessions",
		}),
	}
	if reg != nil {
		collectors := []prometheus.Collector{
			m.Operations,
			m.SessionsOpened,
			m.SessionsClosed,
			m.ActiveSessions,
		}
		for _, c := range collectors {
			if err := reg.Register(c); err != nil {
				if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
					panic(err)
				}
			}
		}
	}
	return m
}

func (m *Metrics) observe(op string, err error) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(op, resultLabel(err)).Inc()
}

func (m *Metrics) sessionOpened(active int) {
	if m == nil {
		return
	}
	m.SessionsOpened.Inc()
	m.ActiveSessions.Set(float64(active))
}

func (m *Metrics) sessionClosed(reason string, n, active int) {
	if m == nil || n == 0 {
		return
	}
	m.SessionsClosed.WithLabelValues(reason).Add(float64(n))
	m.ActiveSessions.Set(float64(active))
}

func resultLabel(err error) string {
	var errno Errno
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotHandled):
		return "not_handled"
	case errors.As(err, &errno):
		return errno.String()
	}
	return "error"
}
