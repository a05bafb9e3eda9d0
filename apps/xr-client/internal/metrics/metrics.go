package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/collabora-pluto/xrrelay/apps/xr-client/internal/pipeline"
)

// Collector is the metrics surface the client's frame loop reports
// through.
type Collector interface {
	IterationResult(result pipeline.Result)
	TelemetrySendFailed()
	WaitSwapchainSlow()
	Handler() http.Handler
}

// PrometheusCollector implements Collector using client_golang.
type PrometheusCollector struct {
	iterations      *prometheus.CounterVec
	telemetryErrors prometheus.Counter
	slowSwapchain   prometheus.Counter
}

// NewPrometheusCollector registers and returns a PrometheusCollector.
func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		iterations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "xrclient_frame_iterations_total",
			Help: "Total number of render loop iterations by result",
		}, []string{"result"}),
		telemetryErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "xrclient_telemetry_send_errors_total",
			Help: "Total number of failed telemetry sends",
		}),
		slowSwapchain: promauto.NewCounter(prometheus.CounterOpts{
			Name: "xrclient_slow_wait_swapchain_total",
			Help: "Total number of WaitSwapchainImage calls exceeding the 2ms warning threshold",
		}),
	}
}

func (c *PrometheusCollector) IterationResult(result pipeline.Result) {
	c.iterations.WithLabelValues(result.String()).Inc()
}

func (c *PrometheusCollector) TelemetrySendFailed() {
	c.telemetryErrors.Inc()
}

func (c *PrometheusCollector) WaitSwapchainSlow() {
	c.slowSwapchain.Inc()
}

func (c *PrometheusCollector) Handler() http.Handler {
	return promhttp.Handler()
}
