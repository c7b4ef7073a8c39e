// Package metrics holds the Prometheus instruments of the form-check service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterFrames             *prometheus.CounterVec
	CounterVerdicts           *prometheus.CounterVec
	CounterReps               *prometheus.CounterVec
	CounterSets               *prometheus.CounterVec
	CounterCues               *prometheus.CounterVec
	CounterRequests           *prometheus.CounterVec
	CounterHandleRequestPanic prometheus.Counter
	CounterDetectorErrors     prometheus.Counter

	// gauges
	GaugeAnalyzing     prometheus.Gauge
	GaugeCaptureFPS    prometheus.Gauge
	GaugeSubscribers   prometheus.Gauge
	GaugeCurrentSetRep prometheus.Gauge

	// histograms
	HistFrameDuration   prometheus.Histogram
	HistRequestDuration prometheus.Histogram
}

func NewTestManager() *Manager {
	return NewManager("formcheck", "test", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("formcheck", "test", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterOpts := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		}
	}
	gaugeOpts := func(name, help string) prometheus.GaugeOpts {
		return prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		}
	}

	return &Manager{
		CounterFrames: factory.NewCounterVec(
			counterOpts("frames_processed", "The total number of frames evaluated"),
			[]string{"movement"},
		),
		CounterVerdicts: factory.NewCounterVec(
			counterOpts("verdicts", "The total number of verdicts by kind"),
			[]string{"movement", "kind"},
		),
		CounterReps: factory.NewCounterVec(
			counterOpts("reps", "The total number of counted repetitions"),
			[]string{"movement"},
		),
		CounterSets: factory.NewCounterVec(
			counterOpts("sets_finished", "The total number of finished sets"),
			[]string{"movement"},
		),
		CounterCues: factory.NewCounterVec(
			counterOpts("cues_executed", "The total number of cue plugin runs"),
			[]string{"event", "status"},
		),
		CounterRequests: factory.NewCounterVec(
			counterOpts("request", "The total number of incoming requests"),
			[]string{"method", "status"},
		),
		CounterHandleRequestPanic: factory.NewCounter(
			counterOpts("handle_request_panic", "The total number of serve request panics"),
		),
		CounterDetectorErrors: factory.NewCounter(
			counterOpts("detector_errors", "The total number of failed pose detections"),
		),

		GaugeAnalyzing: factory.NewGauge(
			gaugeOpts("analyzing", "1 while analysis is running"),
		),
		GaugeCaptureFPS: factory.NewGauge(
			gaugeOpts("capture_fps", "Current capture frame rate"),
		),
		GaugeSubscribers: factory.NewGauge(
			gaugeOpts("status_subscribers", "Current number of status subscribers"),
		),
		GaugeCurrentSetRep: factory.NewGauge(
			gaugeOpts("current_set_reps", "Repetitions in the current set"),
		),

		HistFrameDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			Name:      "frame_duration_seconds",
			Help:      "Time to detect and evaluate one frame in seconds",
		}),
		HistRequestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Buckets: []float64{
				0.00001, 0.0001, 0.001, 0.01, 0.1, 1, 10, 60,
			},
			Name: "request_duration_seconds",
			Help: "Total duration of requests in seconds",
		}),
	}
}
