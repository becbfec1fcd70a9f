package api

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	commandsTotal      *prometheus.CounterVec
	commandDuration    *prometheus.HistogramVec
	activeSessions     prometheus.Gauge
	notificationsTotal *prometheus.CounterVec
}

func newMetrics(registerer prometheus.Registerer) *metrics {
	m := &metrics{
		commandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wifid_commands_total",
				Help: "Total commands answered by type and outcome",
			},
			[]string{"type", "outcome"}, // success|error
		),
		commandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wifid_command_duration_seconds",
				Help:    "Time from receiving a command to its reply",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"type"},
		),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wifid_active_sessions",
			Help: "Number of connected control sessions",
		}),
		notificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wifid_notifications_total",
				Help: "Total notifications sent by kind",
			},
			[]string{"kind"},
		),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.commandsTotal,
			m.commandDuration,
			m.activeSessions,
			m.notificationsTotal,
		)
	}

	return m
}
