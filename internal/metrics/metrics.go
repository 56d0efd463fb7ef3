// Package metrics holds the Prometheus collectors for engine commands.
//
// Collectors are registered on the default registry at init through
// promauto; Handler serves them.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// commandsTotal counts engine commands by command and result code
	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harnessgraph_commands_total",
		Help: "Total engine commands by command and result",
	}, []string{"command", "result"})

	// commandDuration tracks command latency including the transaction
	commandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "harnessgraph_command_duration_seconds",
		Help:    "Engine command duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
	}, []string{"command"})

	// cascadeAdvanced tracks how many sub-assemblies one cascade advanced
	cascadeAdvanced = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "harnessgraph_cascade_advanced",
		Help:    "Sub-assemblies advanced per cascading transition",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
	})

	// validationErrorsTotal counts rejected documents by finding code
	validationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harnessgraph_validation_errors_total",
		Help: "Total document validation findings by code",
	}, []string{"code"})
)

// ObserveCommand records one finished command. result is "ok" or an error code.
func ObserveCommand(command, result string, elapsed time.Duration) {
	commandsTotal.WithLabelValues(command, result).Inc()
	commandDuration.WithLabelValues(command).Observe(elapsed.Seconds())
}

// ObserveCascade records the size of one cascade report.
func ObserveCascade(advanced int) {
	cascadeAdvanced.Observe(float64(advanced))
}

// ObserveValidationError counts one validation finding.
func ObserveValidationError(code string) {
	validationErrorsTotal.WithLabelValues(code).Inc()
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
