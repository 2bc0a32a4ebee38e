package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "api_http_requests_total", Help: "HTTP requests"},
		[]string{"method", "path", "status"},
	)
	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	CampaignsLaunchedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "campaigns_launched_total", Help: "Campaigns moved to ACTIVE"},
	)
	DeliveriesEnqueuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "deliveries_enqueued_total", Help: "Delivery rows created at launch"},
	)
	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "domain_events_total", Help: "Domain events recorded by outcome"},
		[]string{"type", "outcome"},
	)

	SchedulerTicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "scheduler_ticks_total", Help: "Scheduler ticks by outcome"},
		[]string{"outcome"},
	)
	SchedulerTickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scheduler_tick_duration_seconds",
			Help:    "Time spent in one scheduler tick",
			Buckets: prometheus.DefBuckets,
		},
	)
	CampaignPromotionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "scheduler_campaign_promotions_total", Help: "Due campaign promotions by outcome"},
		[]string{"outcome"},
	)
	DeliveriesDispatchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "deliveries_dispatched_total", Help: "Dispatch attempts by channel and outcome"},
		[]string{"channel", "outcome"},
	)
	DeliveriesRequeuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "deliveries_requeued_total", Help: "Failed deliveries reset to pending"},
	)
	DispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "delivery_dispatch_duration_seconds",
			Help:    "Time spent in one channel adapter call",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"channel"},
	)
)

func init() {
	prometheus.MustRegister(
		APIRequestsTotal, APIRequestDuration,
		CampaignsLaunchedTotal, DeliveriesEnqueuedTotal, EventsPublishedTotal,
		SchedulerTicksTotal, SchedulerTickDuration, CampaignPromotionsTotal,
		DeliveriesDispatchedTotal, DeliveriesRequeuedTotal, DispatchDuration,
	)
}

func Handler() http.Handler { return promhttp.Handler() }
