package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	productRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_product_rejections_total",
		Help: "Product writes rejected by validation, by backend and reason code",
	}, []string{"backend", "reason"})

	backRefMismatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_backref_mismatch_total",
		Help: "Product writes whose category back-reference update modified fewer categories than expected",
	}, []string{"backend"})

	lostUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_lost_updates_total",
		Help: "Product updates that matched no record after the product was read",
	}, []string{"backend"})
)
