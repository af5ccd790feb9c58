package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SweepCollector bundles Prometheus metrics describing sweep progress.
type SweepCollector struct {
	gatherer prometheus.Gatherer

	Cells         *prometheus.CounterVec
	CellDuration  *prometheus.HistogramVec
	Rows          *prometheus.CounterVec
	SweepDuration *prometheus.HistogramVec
	Minimum       *prometheus.GaugeVec
}

// NewSweepCollector registers sweep metrics against the provided registerer,
// defaulting to the global Prometheus registry when nil.
func NewSweepCollector(reg prometheus.Registerer) (*SweepCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	cells, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sweep_cells_total",
		Help: "Grid cells evaluated, labeled by pulsar and outcome (defined, infeasible, failed).",
	}, []string{"pulsar", "outcome"}), "sweep_cells_total")
	if err != nil {
		return nil, err
	}

	cellDuration, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sweep_cell_duration_seconds",
		Help:    "Time spent evaluating a single grid cell.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"pulsar"}), "sweep_cell_duration_seconds")
	if err != nil {
		return nil, err
	}

	rows, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sweep_rows_total",
		Help: "Center-frequency rows completed.",
	}, []string{"pulsar"}), "sweep_rows_total")
	if err != nil {
		return nil, err
	}

	sweepDuration, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sweep_duration_seconds",
		Help:    "Wall time of a complete sweep.",
		Buckets: prometheus.ExponentialBuckets(0.1, 4, 8),
	}, []string{"pulsar"}), "sweep_duration_seconds")
	if err != nil {
		return nil, err
	}

	minimum, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sweep_minimum_uncertainty_microseconds",
		Help: "Smallest timing uncertainty found by the last sweep.",
	}, []string{"pulsar"}), "sweep_minimum_uncertainty_microseconds")
	if err != nil {
		return nil, err
	}

	return &SweepCollector{
		gatherer:      gatherer,
		Cells:         cells,
		CellDuration:  cellDuration,
		Rows:          rows,
		SweepDuration: sweepDuration,
		Minimum:       minimum,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SweepCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ForPulsar returns an observer recording events under the pulsar's label.
func (c *SweepCollector) ForPulsar(name string) *PulsarObserver {
	return &PulsarObserver{collector: c, pulsar: name}
}

// PulsarObserver records the progress of one pulsar's sweep. A nil
// collector turns every method into a no-op.
type PulsarObserver struct {
	collector *SweepCollector
	pulsar    string
}

// CellEvaluated counts one cell and its evaluation time.
func (o *PulsarObserver) CellEvaluated(outcome string, elapsed time.Duration) {
	if o == nil || o.collector == nil {
		return
	}
	o.collector.Cells.WithLabelValues(o.pulsar, outcome).Inc()
	o.collector.CellDuration.WithLabelValues(o.pulsar).Observe(elapsed.Seconds())
}

// RowCompleted counts one finished row.
func (o *PulsarObserver) RowCompleted() {
	if o == nil || o.collector == nil {
		return
	}
	o.collector.Rows.WithLabelValues(o.pulsar).Inc()
}

// SweepFinished records the sweep wall time and, when found, the minimum.
func (o *PulsarObserver) SweepFinished(elapsed time.Duration, minimum float64, ok bool) {
	if o == nil || o.collector == nil {
		return
	}
	o.collector.SweepDuration.WithLabelValues(o.pulsar).Observe(elapsed.Seconds())
	if ok {
		o.collector.Minimum.WithLabelValues(o.pulsar).Set(minimum)
	}
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
