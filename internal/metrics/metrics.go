// Package metrics provides the Prometheus metrics for the camera-actuator
// control surface: request-level counters/histograms for the HTTP API and
// counters for the parameter sweeps and reboots the manager performs.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus collector this manager registers.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	ConfigUpdatesTotal   *prometheus.CounterVec
	ParamWritesTotal     *prometheus.CounterVec
	AutopilotReboots     prometheus.Counter
	LuaScriptExports     *prometheus.CounterVec
}

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// GetMetrics returns the process-wide metrics instance, registering its
// collectors with the default registry on first use.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = initializeMetrics()
	})
	return globalMetrics
}

func initializeMetrics() *Metrics {
	m := &Metrics{}

	m.RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "radcam",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total HTTP requests handled by the control surface.",
		},
		[]string{"route", "method", "status"},
	)

	m.RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "radcam",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request handling duration.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"route", "method"},
	)

	m.ConfigUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "radcam",
			Subsystem: "actuators",
			Name:      "config_updates_total",
			Help:      "Total UpdateConfig calls by outcome.",
		},
		[]string{"outcome"},
	)

	m.ParamWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "radcam",
			Subsystem: "actuators",
			Name:      "param_writes_total",
			Help:      "Total autopilot parameter writes issued during a config sweep.",
		},
		[]string{"group"},
	)

	m.AutopilotReboots = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "radcam",
			Subsystem: "actuators",
			Name:      "autopilot_reboots_total",
			Help:      "Total autopilot reboots triggered by a config update (overwrite, or a channel or function change).",
		},
	)

	m.LuaScriptExports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "radcam",
			Subsystem: "script",
			Name:      "lua_exports_total",
			Help:      "Total Lua control script export attempts by outcome.",
		},
		[]string{"outcome"},
	)

	return m
}

// ObserveRequest records one HTTP request's outcome and duration.
func ObserveRequest(route, method, status string, duration time.Duration) {
	m := GetMetrics()
	m.RequestsTotal.WithLabelValues(route, method, status).Inc()
	m.RequestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordConfigUpdate records one UpdateConfig outcome.
func RecordConfigUpdate(outcome string) {
	GetMetrics().ConfigUpdatesTotal.WithLabelValues(outcome).Inc()
}

// RecordParamWrite records one parameter actually written during a sweep.
func RecordParamWrite(group string) {
	GetMetrics().ParamWritesTotal.WithLabelValues(group).Inc()
}

// RecordAutopilotReboot records a reboot trigger.
func RecordAutopilotReboot() {
	GetMetrics().AutopilotReboots.Inc()
}

// RecordLuaScriptExport records one Lua script export attempt.
func RecordLuaScriptExport(outcome string) {
	GetMetrics().LuaScriptExports.WithLabelValues(outcome).Inc()
}
