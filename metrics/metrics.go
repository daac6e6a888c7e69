package metrics

import (
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus collects engine events of every open map. It implements
// ndmf.Metrics, a nil *Prometheus is a valid no-op.
type Prometheus struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	blocks     *prometheus.GaugeVec
}

// New creates the collectors on a private registry that also exposes the Go
// runtime and process metrics.
func New() *Prometheus {

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Prometheus{
		registry: reg,
		operations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ndmf_operations_total",
				Help: "Total number of map operations by result",
			},
			[]string{"map", "op", "result"}, // result: "ok", "error"
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ndmf_operation_duration_seconds",
				Help:    "Map operation duration in seconds",
				Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"map", "op"},
		),
		blocks: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ndmf_blocks",
				Help: "Number of blocks in the map file by state",
			},
			[]string{"map", "state"}, // "used", "free"
		),
	}
}

func (p *Prometheus) Registry() *prometheus.Registry {
	if p == nil {
		return nil
	}
	return p.registry
}

// Handler serves the registry in the Prometheus text format. Compression is
// left to the HTTP layer.
func (p *Prometheus) Handler() http.Handler {
	if p == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{DisableCompression: true})
}

func (p *Prometheus) ObserveOperation(path, operation string, duration time.Duration, err error) {
	if p == nil {
		return
	}

	name := MapName(path)
	result := "ok"
	if err != nil {
		result = "error"
	}

	p.operations.WithLabelValues(name, operation, result).Inc()
	p.duration.WithLabelValues(name, operation).Observe(duration.Seconds())
}

func (p *Prometheus) RecordBlocks(path string, total, free int) {
	if p == nil {
		return
	}

	name := MapName(path)
	p.blocks.WithLabelValues(name, "used").Set(float64(total - free))
	p.blocks.WithLabelValues(name, "free").Set(float64(free))
}

// Forget drops every series of a map, used when it is dropped
func (p *Prometheus) Forget(path string) {
	if p == nil {
		return
	}

	labels := prometheus.Labels{"map": MapName(path)}
	p.operations.DeletePartialMatch(labels)
	p.duration.DeletePartialMatch(labels)
	p.blocks.DeletePartialMatch(labels)
}

// MapName is the label value for the map stored at path
func MapName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
