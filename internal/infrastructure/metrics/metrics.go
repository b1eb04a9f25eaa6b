// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SalesCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pdv_sales_completed_total",
		Help: "Sales finalized by the payment flow.",
	}, []string{"terminal", "method"})

	SalesAmount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pdv_sales_amount_total",
		Help: "Sum of sale totals.",
	}, []string{"terminal"})

	SalesPendingRecord = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pdv_sales_pending_record",
		Help: "Sales waiting to be written to the database.",
	})

	PaymentRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pdv_payment_rejections_total",
		Help: "Payment confirmations refused, by reason.",
	}, []string{"reason"})

	PrintJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pdv_print_jobs_total",
		Help: "Settled print jobs.",
	}, []string{"device", "kind", "status"})

	FiscalEmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pdv_fiscal_emissions_total",
		Help: "Fiscal submissions by final status.",
	}, []string{"doc_type", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pdv_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)
