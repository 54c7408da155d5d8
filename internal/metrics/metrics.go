// Package metrics wires the Prometheus counters and gauges the
// gateway exposes at /metrics. The teacher's go.mod declared
// client_golang but never imported it; here it backs real
// instrumentation of rooms, sessions, fan-out, and filter sync.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RoomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "swapwatch_rooms_active",
		Help: "Number of rooms created and not yet cleaned up.",
	})

	WebSocketSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "swapwatch_websocket_sessions",
		Help: "Number of live WebSocket sessions across all rooms.",
	})

	SwapEventsFannedOut = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapwatch_swap_events_fanned_out_total",
		Help: "Swap events delivered to a room via notifySwap, by outcome.",
	}, []string{"outcome"})

	FilterSyncFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swapwatch_filter_sync_failures_total",
		Help: "Filter sync PATCH attempts that did not succeed.",
	})

	WebhookRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapwatch_webhook_requests_total",
		Help: "Inbound webhook requests, by outcome.",
	}, []string{"outcome"})
)
