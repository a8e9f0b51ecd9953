package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	var r Recorder

	before := testutil.ToFloat64(RetrainRuns.WithLabelValues("retrained"))
	r.ObserveRetrain("retrained", 2*time.Second)
	assert.Equal(t, before+1, testutil.ToFloat64(RetrainRuns.WithLabelValues("retrained")))

	r.ObserveModelAccuracy("iris_rf_model", 0.75)
	assert.Equal(t, 0.75, testutil.ToFloat64(ModelAccuracy.WithLabelValues("iris_rf_model")))

	before = testutil.ToFloat64(Predictions.WithLabelValues("iris_rf_model"))
	r.IncPrediction("iris_rf_model")
	r.IncPrediction("iris_rf_model")
	assert.Equal(t, before+2, testutil.ToFloat64(Predictions.WithLabelValues("iris_rf_model")))
}

func TestInitIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Init()
		Init()
	})
}
