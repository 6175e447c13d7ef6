package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ScanMetrics tracks the redemption workflow from submission to resolution.
type ScanMetrics struct {
	submitted *prometheus.CounterVec
	resolved  *prometheus.CounterVec
	credited  prometheus.Counter
}

// NewScanMetrics registers the scan workflow metrics on the provided registerer.
func NewScanMetrics(reg prometheus.Registerer) *ScanMetrics {
	if reg == nil {
		return &ScanMetrics{}
	}
	submitted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bottlespin",
		Name:      "scan_requests_submitted",
		Help:      "Scan requests accepted for review.",
	}, []string{"kind"})
	resolved := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bottlespin",
		Name:      "scan_requests_resolved",
		Help:      "Scan requests resolved by an admin.",
	}, []string{"outcome"})
	credited := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bottlespin",
		Name:      "scan_rewards_credited",
		Help:      "Ledger credits issued from approved scans.",
	})
	reg.MustRegister(submitted, resolved, credited)
	return &ScanMetrics{
		submitted: submitted,
		resolved:  resolved,
		credited:  credited,
	}
}

// IncSubmitted counts a submission by code kind.
func (s *ScanMetrics) IncSubmitted(kind string) {
	if s == nil || s.submitted == nil {
		return
	}
	s.submitted.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncResolved counts a resolution by outcome (approved or rejected).
func (s *ScanMetrics) IncResolved(outcome string) {
	if s == nil || s.resolved == nil {
		return
	}
	s.resolved.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncCredited counts a ledger credit issued from an approval.
func (s *ScanMetrics) IncCredited() {
	if s == nil || s.credited == nil {
		return
	}
	s.credited.Inc()
}
