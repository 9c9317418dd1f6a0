package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// TrackingLookupsTotal counts tracking lookups by type and result source.
	TrackingLookupsTotal *prometheus.CounterVec
	// TrackingFallbacksTotal counts lookups that fell back to mock data.
	TrackingFallbacksTotal *prometheus.CounterVec
	// VendorCallsTotal counts outbound vendor API calls by operation and outcome.
	VendorCallsTotal *prometheus.CounterVec
	// TrackingWebhookTotal counts inbound vendor webhook processing outcomes.
	TrackingWebhookTotal *prometheus.CounterVec
	// RefreshRunsTotal counts background re-enrichment runs by outcome.
	RefreshRunsTotal *prometheus.CounterVec
	// DomainEventsTotal counts emitted domain events by topic.
	DomainEventsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		TrackingLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracking_lookups_total",
			Help:      "Count of tracking lookups by shipment type and result source.",
		}, []string{"type", "source"})
		TrackingFallbacksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracking_fallbacks_total",
			Help:      "Count of lookups that fell back to synthesized data.",
		}, []string{"type"})
		VendorCallsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vendor_calls_total",
			Help:      "Count of outbound vendor API calls by operation and result.",
		}, []string{"provider", "operation", "result"})
		TrackingWebhookTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracking_webhook_total",
			Help:      "Count of processed vendor webhooks by outcome.",
		}, []string{"provider", "result"})
		RefreshRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_runs_total",
			Help:      "Count of background shipment refresh runs by outcome.",
		}, []string{"result"})
		DomainEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "domain_events_total",
			Help:      "Count of emitted domain events by topic.",
		}, []string{"topic"})

		for _, collector := range []**prometheus.CounterVec{
			&TrackingLookupsTotal, &TrackingFallbacksTotal, &VendorCallsTotal,
			&TrackingWebhookTotal, &RefreshRunsTotal, &DomainEventsTotal,
		} {
			registerDomainCounter(reg, collector)
		}
	})
}

func registerDomainCounter(reg prometheus.Registerer, collector **prometheus.CounterVec) {
	if err := reg.Register(*collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				*collector = existing
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
