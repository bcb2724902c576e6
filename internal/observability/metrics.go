package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecommendationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "outfit",
		Name:      "recommendations_total",
		Help:      "Pipeline runs by usage and outcome (matched, no_match, failed)",
	}, []string{"usage", "outcome"})

	PipelineFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "outfit",
		Name:      "pipeline_failures_total",
		Help:      "Pipeline failures by stage and error kind",
	}, []string{"stage", "kind"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "outfit",
		Name:      "stage_duration_seconds",
		Help:      "Duration of recommendation pipeline stages",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"stage"})

	InferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "outfit",
		Name:      "inference_duration_seconds",
		Help:      "Duration of ML inference calls",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"model"})

	OutfitGroups = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "outfit",
		Name:      "outfit_groups",
		Help:      "Number of outfit groups assembled per recommendation",
		Buckets:   prometheus.LinearBuckets(0, 1, 11),
	})

	DatasetLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "outfit",
		Name:      "dataset_loads_total",
		Help:      "Dataset fetches that missed the cache",
	}, []string{"dataset"})

	ColorNameLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "outfit",
		Name:      "color_name_lookups_total",
		Help:      "Color name lookups by result (hit, fetched, error)",
	}, []string{"result"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "outfit",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "outfit",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
