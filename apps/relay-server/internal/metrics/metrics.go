package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector defines the metrics surface the relay server's components
// report through.
type Collector interface {
	ClientConnected(clientID string)
	ClientDisconnected(clientID string)
	SDPNegotiationFailed(clientID, reason string)
	UpMessageReceived(clientID string)
	UpMessageDecodeError(clientID string)
	DownMessageTagged(clientID string)
	DownMessageOversize(clientID string, size int)

	Handler() http.Handler
}

// PrometheusCollector implements Collector using client_golang.
type PrometheusCollector struct {
	activeClients       prometheus.Gauge
	clientConnects      *prometheus.CounterVec
	clientDisconnects   *prometheus.CounterVec
	sdpFailures         *prometheus.CounterVec
	upMessagesReceived  *prometheus.CounterVec
	upMessageDecodeErr  *prometheus.CounterVec
	downMessagesTagged  *prometheus.CounterVec
	downMessageOversize *prometheus.CounterVec
	downMessageSize     prometheus.Histogram
}

// NewPrometheusCollector registers and returns a PrometheusCollector.
func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		activeClients: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "xrrelay_active_clients",
			Help: "Number of connected XR clients",
		}),
		clientConnects: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "xrrelay_client_connects_total",
			Help: "Total number of client connect events",
		}, []string{"client_id"}),
		clientDisconnects: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "xrrelay_client_disconnects_total",
			Help: "Total number of client disconnect events",
		}, []string{"client_id"}),
		sdpFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "xrrelay_sdp_negotiation_failures_total",
			Help: "Total number of SDP negotiation failures",
		}, []string{"client_id", "reason"}),
		upMessagesReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "xrrelay_up_messages_received_total",
			Help: "Total number of UpMessages received on the data channel",
		}, []string{"client_id"}),
		upMessageDecodeErr: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "xrrelay_up_message_decode_errors_total",
			Help: "Total number of UpMessage decode failures",
		}, []string{"client_id"}),
		downMessagesTagged: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "xrrelay_down_messages_tagged_total",
			Help: "Total number of marker packets tagged with a DownMessage extension",
		}, []string{"client_id"}),
		downMessageOversize: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "xrrelay_down_message_oversize_total",
			Help: "Total number of DownMessages that exceeded the RTP extension size limit",
		}, []string{"client_id"}),
		downMessageSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "xrrelay_down_message_size_bytes",
			Help:    "Size of DownMessage payloads that exceeded the RTP extension limit",
			Buckets: prometheus.LinearBuckets(255, 64, 8),
		}),
	}
}

func (c *PrometheusCollector) ClientConnected(clientID string) {
	c.clientConnects.WithLabelValues(clientID).Inc()
	c.activeClients.Inc()
}

func (c *PrometheusCollector) ClientDisconnected(clientID string) {
	c.clientDisconnects.WithLabelValues(clientID).Inc()
	c.activeClients.Dec()
}

func (c *PrometheusCollector) SDPNegotiationFailed(clientID, reason string) {
	c.sdpFailures.WithLabelValues(clientID, reason).Inc()
}

func (c *PrometheusCollector) UpMessageReceived(clientID string) {
	c.upMessagesReceived.WithLabelValues(clientID).Inc()
}

func (c *PrometheusCollector) UpMessageDecodeError(clientID string) {
	c.upMessageDecodeErr.WithLabelValues(clientID).Inc()
}

func (c *PrometheusCollector) DownMessageTagged(clientID string) {
	c.downMessagesTagged.WithLabelValues(clientID).Inc()
}

func (c *PrometheusCollector) DownMessageOversize(clientID string, size int) {
	c.downMessageOversize.WithLabelValues(clientID).Inc()
	c.downMessageSize.Observe(float64(size))
}

func (c *PrometheusCollector) Handler() http.Handler {
	return promhttp.Handler()
}
