package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Total number of orders placed",
	})

	OrdersRevisedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_revised_total",
		Help: "Total number of order updates by outcome: stock_moved, no_stock_change or quantity_skipped",
	}, []string{"outcome"})

	OrdersReleasedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_released_total",
		Help: "Total number of orders deleted with their stock released",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of failed order operations",
	}, []string{"reason"})

	InventoryRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_rejections_total",
		Help: "Total number of order operations rejected for insufficient stock",
	}, []string{"operation"})

	InventoryStockLevel = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "inventory_stock_level",
		Help: "Last observed stock quantity per item",
	}, []string{"item_id"})

	ItemCacheRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "item_cache_requests_total",
		Help: "Item cache lookups by result",
	}, []string{"result"})

	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_published_total",
		Help: "Total number of domain events published",
	}, []string{"type"})

	EventsConsumedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_consumed_total",
		Help: "Total number of domain events consumed",
	}, []string{"type"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
