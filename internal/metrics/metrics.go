// Package metrics exposes the daemon's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PollCycles = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "visitwatch",
		Name:      "poll_cycles_total",
		Help:      "Completed poll cycles.",
	})
	RecordsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "visitwatch",
		Name:      "records_emitted_total",
		Help:      "Newly observed visits emitted, by browser.",
	}, []string{"browser"})
	SourceErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "visitwatch",
		Name:      "source_errors_total",
		Help:      "Extraction failures, by source.",
	}, []string{"source"})
	SinkErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "visitwatch",
		Name:      "sink_errors_total",
		Help:      "Record log write failures.",
	})
)
