package candidate

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const metricNamespace = "quicaccept"

var (
	candidatesPromoted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "candidates_promoted_total",
			Help:      "Candidates promoted to a connection",
		},
		[]string{"ip_version"},
	)
	candidatesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "candidates_dropped_total",
			Help:      "Candidates dropped before promotion",
		},
		[]string{"ip_version", "reason"},
	)
	datagramsReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "datagrams_received_total",
			Help:      "Inbound datagrams seen at the candidate boundary",
		},
		[]string{"ip_version"},
	)
	candidatesActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Name:      "candidates_active",
			Help:      "Candidates currently buffering, not yet promoted or dropped",
		},
	)
)

// RegisterMetrics registers every candidate-package metric with registerer.
// Calling it more than once with the same registerer is harmless; an
// AlreadyRegisteredError is swallowed since the collectors are already
// package-level singletons.
func RegisterMetrics(registerer prometheus.Registerer) {
	for _, c := range [...]prometheus.Collector{
		candidatesPromoted,
		candidatesDropped,
		datagramsReceived,
		candidatesActive,
	} {
		if err := registerer.Register(c); err != nil {
			if ok := errors.As(err, &prometheus.AlreadyRegisteredError{}); !ok {
				panic(err)
			}
		}
	}
}

// DropReason labels why a candidate was dropped, for the candidatesDropped
// counter's "reason" label.
type DropReason string

const (
	DropReasonTooShort          DropReason = "too_short"
	DropReasonProtocolViolation DropReason = "protocol_violation"
	DropReasonIdleTimeout       DropReason = "idle_timeout"
	DropReasonDecryptFailed     DropReason = "decrypt_failed"
)

func recordDatagramReceived(ipVersion string) {
	datagramsReceived.WithLabelValues(ipVersion).Inc()
}

func recordPromoted(ipVersion string) {
	candidatesPromoted.WithLabelValues(ipVersion).Inc()
	candidatesActive.Dec()
}

func recordDropped(ipVersion string, reason DropReason) {
	candidatesDropped.WithLabelValues(ipVersion, string(reason)).Inc()
	candidatesActive.Dec()
}

func recordCreated() {
	candidatesActive.Inc()
}
