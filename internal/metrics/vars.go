package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ScansTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "expiryscan_scans_total",
		Help: "Completed scans by mode",
	}, []string{"mode"})

	ScanDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "expiryscan_scan_duration_seconds",
		Help:    "Wall time of one scan, fetch through delivery",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
	}, []string{"mode"})

	SourceFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "expiryscan_source_failures_total",
		Help: "Adapter calls that failed or missed the scan deadline",
	}, []string{"platform"})

	MarketsFetched = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "expiryscan_markets_fetched",
		Help: "Markets returned by each adapter in the last scan",
	}, []string{"platform"})

	SourceLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "expiryscan_source_latency_seconds",
		Help:    "Time for one adapter to settle",
		Buckets: prometheus.DefBuckets,
	}, []string{"platform"})

	Opportunities = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "expiryscan_opportunities_total",
		Help: "Classified opportunities by kind",
	}, []string{"kind"})

	Alerts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "expiryscan_alerts_total",
		Help: "Alerts raised by severity",
	}, []string{"severity"})

	SinkFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "expiryscan_sink_failures_total",
		Help: "Report deliveries that failed, by sink",
	}, []string{"sink"})
)

func init() {
	prometheus.MustRegister(
		ScansTotal,
		ScanDuration,
		SourceFailures,
		MarketsFetched,
		SourceLatency,
		Opportunities,
		Alerts,
		SinkFailures,
	)
}
