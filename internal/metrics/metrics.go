package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeSuccess     = "success"
	OutcomeEmpty       = "empty"
	OutcomeError       = "error"
	OutcomeRateLimited = "rate_limited"
	OutcomeNotFound    = "not_found"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "steamcal_http_requests_total",
		Help: "Requests made to Steam endpoints.",
	}, []string{"endpoint", "outcome"})

	WishlistStrategies = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "steamcal_wishlist_strategy_total",
		Help: "Wishlist retrieval attempts per strategy.",
	}, []string{"strategy", "outcome"})

	Lookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "steamcal_lookups_total",
		Help: "Game release lookups by outcome.",
	}, []string{"outcome"})

	EventsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "steamcal_events_written_total",
		Help: "Calendar event files written.",
	})
)

// WriteTextfile dumps the default registry in the node-exporter textfile format.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}
