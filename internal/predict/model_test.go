package predict

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/rain-prediction-api/internal/weather"
)

func fptr(f float64) *float64 { return &f }

func fullObservation() weather.Observation {
	return weather.Observation{
		ObservationID: 1,
		LocationID:    1,
		MinTemp:       fptr(12.5),
		MaxTemp:       fptr(24.0),
		Rainfall:      fptr(0.2),
		WindSpeed3pm:  fptr(30.0),
		Humidity9am:   fptr(70.0),
		Humidity3pm:   fptr(55.0),
		Pressure9am:   fptr(1015.0),
		Pressure3pm:   fptr(1012.0),
		Cloud3pm:      fptr(6.0),
		Temp3pm:       fptr(22.0),
	}
}

func TestFeaturesComplete(t *testing.T) {
	features, missing := Features(fullObservation())
	assert.Empty(t, missing)
	assert.Len(t, features, 10)
	assert.Equal(t, 12.5, features[FeatureMinTemp])
	assert.Equal(t, 30.0, features[FeatureWindGustSpeed])
}

func TestFeaturesReportsMissingSorted(t *testing.T) {
	obs := fullObservation()
	obs.Temp3pm = nil
	obs.Cloud3pm = nil

	_, missing := Features(obs)
	assert.Equal(t, []string{FeatureCloud3pm, FeatureTemp3pm}, missing)
}

func TestProbabilityAndThreshold(t *testing.T) {
	m := &Model{Bias: 0, Weights: map[string]float64{FeatureRainfall: 1}}

	p := m.Probability(map[string]float64{FeatureRainfall: 0})
	assert.InDelta(t, 0.5, p, 1e-9)
	assert.True(t, m.Predict(map[string]float64{FeatureRainfall: 0}))

	assert.Greater(t, m.Probability(map[string]float64{FeatureRainfall: 5}), 0.5)
	assert.Less(t, m.Probability(map[string]float64{FeatureRainfall: -5}), 0.5)
	assert.False(t, m.Predict(map[string]float64{FeatureRainfall: -5}))
}

func TestLoadModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"bias": -1.5,
		"weights": {"Rainfall": 0.8, "Humidity3pm": 0.05}
	}`), 0o644))

	m, err := LoadModel(path)
	require.NoError(t, err)
	assert.Equal(t, -1.5, m.Bias)
	assert.Len(t, m.Weights, 2)
}

func TestLoadModelRejectsEmptyWeights(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"bias": 0.1}`), 0o644))

	_, err := LoadModel(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no weights")
}

func TestLoadModelMissingFile(t *testing.T) {
	_, err := LoadModel(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}
