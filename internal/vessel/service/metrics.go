package service

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jmerrifield20/seasense/internal/reconcile"
)

// Metrics counts assessment outcomes. A nil *Metrics records nothing.
type Metrics struct {
	assessments       *prometheus.CounterVec
	cacheLookups      *prometheus.CounterVec
	predicateFailures prometheus.Counter
	alerts            *prometheus.CounterVec
	webhookDeliveries *prometheus.CounterVec
	ledgerAppends     prometheus.Counter
}

// NewMetrics registers the assessment collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		assessments: f.NewCounterVec(prometheus.CounterOpts{
			Name: "seasense_assessments_total",
			Help: "Vessel assessments by reconciliation status and threat level.",
		}, []string{"resolution", "level"}),
		cacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "seasense_lookup_cache_total",
			Help: "Registry lookup cache results by backend.",
		}, []string{"backend", "result"}),
		predicateFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "seasense_predicate_failures_total",
			Help: "Rule predicates that panicked during scoring.",
		}),
		alerts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "seasense_alerts_total",
			Help: "Threat alerts by delivery status (success, failure, suppressed).",
		}, []string{"status"}),
		webhookDeliveries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "seasense_webhook_deliveries_total",
			Help: "Alert webhook POST attempts by outcome.",
		}, []string{"status"}),
		ledgerAppends: f.NewCounter(prometheus.CounterOpts{
			Name: "seasense_ledger_entries_total",
			Help: "Assessment ledger entries appended.",
		}),
	}
}

// RecordAssessment counts one assessment.
func (m *Metrics) RecordAssessment(status reconcile.Status, level int, predicateFailures int) {
	if m == nil {
		return
	}
	m.assessments.WithLabelValues(string(status), strconv.Itoa(level)).Inc()
	if predicateFailures > 0 {
		m.predicateFailures.Add(float64(predicateFailures))
	}
}

// LookupCacheHit implements reconcile.CacheObserver.
func (m *Metrics) LookupCacheHit(backend string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(backend, "hit").Inc()
}

// LookupCacheMiss implements reconcile.CacheObserver.
func (m *Metrics) LookupCacheMiss(backend string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(backend, "miss").Inc()
}

// RecordAlert counts an alert delivery attempt.
func (m *Metrics) RecordAlert(success bool) {
	if m == nil {
		return
	}
	m.alerts.WithLabelValues(statusLabel(success)).Inc()
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// RecordAlertSuppressed counts an alert skipped because the vessel was
// already alerted at the same level.
func (m *Metrics) RecordAlertSuppressed() {
	if m == nil {
		return
	}
	m.alerts.WithLabelValues("suppressed").Inc()
}

// RecordWebhookDelivery counts one webhook POST attempt. It has the
// alerts.DeliveryFunc signature.
func (m *Metrics) RecordWebhookDelivery(success bool) {
	if m == nil {
		return
	}
	m.webhookDeliveries.WithLabelValues(statusLabel(success)).Inc()
}

// RecordLedgerAppend counts an appended ledger entry.
func (m *Metrics) RecordLedgerAppend() {
	if m == nil {
		return
	}
	m.ledgerAppends.Inc()
}

var _ reconcile.CacheObserver = (*Metrics)(nil)
