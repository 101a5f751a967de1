package realtime

import "github.com/prometheus/client_golang/prometheus"

var (
	eventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_events_published_total",
			Help: "Change-feed events published, by table and type.",
		},
		[]string{"table", "type"},
	)

	// eventsDropped counts events discarded because a subscriber buffer was full.
	eventsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_events_dropped_total",
			Help: "Change-feed events dropped for slow subscribers.",
		},
		[]string{"table"},
	)

	subscribers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "feed_subscribers",
			Help: "Current number of change-feed subscribers.",
		},
		[]string{"table"},
	)
)

func init() {
	prometheus.MustRegister(eventsPublished, eventsDropped, subscribers)
}
