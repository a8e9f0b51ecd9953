package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Retraining runs by outcome (skipped, retrained, failed)
	RetrainRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "automl_retrain_runs_total",
		Help: "Total feedback retraining runs by outcome",
	}, []string{"outcome"})

	RetrainDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "automl_retrain_duration_seconds",
		Help:    "Duration of feedback retraining runs",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
	})

	// Holdout accuracy of the latest model per name
	ModelAccuracy = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "automl_model_accuracy",
		Help: "Holdout accuracy of the most recently trained model",
	}, []string{"model"})

	Predictions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "automl_predictions_total",
		Help: "Total predictions served by model",
	}, []string{"model"})

	FeedbackCorrections = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "automl_feedback_corrections_total",
		Help: "Total user corrections recorded",
	})
)

var initOnce sync.Once

// Init registers all collectors with the default registry
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RetrainRuns,
			RetrainDuration,
			ModelAccuracy,
			Predictions,
			FeedbackCorrections,
		)
	})
}

// Recorder feeds service events into the collectors
type Recorder struct{}

// ObserveRetrain records one retraining run
func (Recorder) ObserveRetrain(status string, duration time.Duration) {
	RetrainRuns.WithLabelValues(status).Inc()
	RetrainDuration.Observe(duration.Seconds())
}

// ObserveModelAccuracy sets the accuracy gauge for a model
func (Recorder) ObserveModelAccuracy(model string, accuracy float64) {
	ModelAccuracy.WithLabelValues(model).Set(accuracy)
}

// IncPrediction counts one served prediction
func (Recorder) IncPrediction(model string) {
	Predictions.WithLabelValues(model).Inc()
}
