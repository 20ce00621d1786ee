package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signalsfoundry/tier-analyzer/model"
)

// AnalysisCollector bundles Prometheus metrics for analysis runs and
// provides a ready-to-use /metrics handler. It implements the core
// runner's RunObserver.
type AnalysisCollector struct {
	gatherer prometheus.Gatherer

	Runs         *prometheus.CounterVec
	RunDurations *prometheus.HistogramVec
	TierRecords  *prometheus.CounterVec

	DatasetSites   prometheus.Gauge
	DatasetSectors prometheus.Gauge
}

// NewAnalysisCollector registers the analysis metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewAnalysisCollector(reg prometheus.Registerer) (*AnalysisCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "analysis_runs_total",
		Help: "Total number of analysis runs, labeled by method and outcome status.",
	}, []string{"method", "status"})
	runs, err := registerCounterVec(reg, runs, "analysis_runs_total")
	if err != nil {
		return nil, err
	}

	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "analysis_run_duration_seconds",
		Help:    "Analysis run latency in seconds, labeled by method.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"method"})
	durations, err = registerHistogramVec(reg, durations, "analysis_run_duration_seconds")
	if err != nil {
		return nil, err
	}

	records := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "analysis_tier_records_total",
		Help: "Total number of tier records produced, labeled by method.",
	}, []string{"method"})
	records, err = registerCounterVec(reg, records, "analysis_tier_records_total")
	if err != nil {
		return nil, err
	}

	sites, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "analysis_dataset_sites",
		Help: "Number of sites in the most recently loaded dataset.",
	}), "analysis_dataset_sites")
	if err != nil {
		return nil, err
	}
	sectors, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "analysis_dataset_sectors",
		Help: "Number of sectors in the most recently loaded dataset.",
	}), "analysis_dataset_sectors")
	if err != nil {
		return nil, err
	}

	return &AnalysisCollector{
		gatherer:       gatherer,
		Runs:           runs,
		RunDurations:   durations,
		TierRecords:    records,
		DatasetSites:   sites,
		DatasetSectors: sectors,
	}, nil
}

// ObserveRun records the outcome of one analysis run. It satisfies the
// core runner's RunObserver interface.
func (c *AnalysisCollector) ObserveRun(method model.Method, status string, elapsed time.Duration, records int) {
	if c == nil {
		return
	}
	if c.Runs != nil {
		c.Runs.WithLabelValues(string(method), status).Inc()
	}
	if c.RunDurations != nil {
		c.RunDurations.WithLabelValues(string(method)).Observe(elapsed.Seconds())
	}
	if c.TierRecords != nil && records > 0 {
		c.TierRecords.WithLabelValues(string(method)).Add(float64(records))
	}
}

// SetDatasetCounts drives the dataset gauges after an index build.
func (c *AnalysisCollector) SetDatasetCounts(sites, sectors int) {
	if c == nil {
		return
	}
	if c.DatasetSites != nil {
		c.DatasetSites.Set(float64(sites))
	}
	if c.DatasetSectors != nil {
		c.DatasetSectors.Set(float64(sectors))
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *AnalysisCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
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

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
