// Package services – domain metrics.
package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// wishesCreated counts successful wish creations.
	wishesCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wishes_created_total",
		Help: "Total number of wishes created.",
	})

	// broadcastFailures counts swallowed broadcast publish errors. A rising
	// rate means clients are falling back to snapshot reconciliation.
	broadcastFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wishes_broadcast_failures_total",
		Help: "Total number of failed (and swallowed) broadcast publishes.",
	})
)

func init() {
	prometheus.MustRegister(wishesCreated, broadcastFailures)
}
