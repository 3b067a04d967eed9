package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the two core operations.
var (
	verificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "monoinstall",
		Name:      "license_verifications_total",
		Help:      "License verification attempts by outcome.",
	}, []string{"outcome"})

	installRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "monoinstall",
		Name:      "install_runs_total",
		Help:      "Install runs by result.",
	}, []string{"result"})

	progressEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "monoinstall",
		Name:      "install_progress_events_total",
		Help:      "Progress events emitted by install phase.",
	}, []string{"phase"})
)
