package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Connections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ws_active_connections",
		Help: "Active websocket connections",
	})
	MessagesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_sent_total",
		Help: "Messages accepted and persisted",
	})
	MessagesDelivered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_delivered_total",
		Help: "Live payloads handed to a recipient channel",
	})
	MessagesDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_dropped_total",
		Help: "Live payloads dropped on full client buffers",
	})
)

func Init() {
	prometheus.MustRegister(Connections, MessagesSent, MessagesDelivered, MessagesDropped)
}

// Handler returns an http.Handler for Prometheus scraping; it is served on
// a side listener, not through the fiber app.
func Handler() http.Handler {
	return promhttp.Handler()
}
