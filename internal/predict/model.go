package predict

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/i474232898/rain-prediction-api/internal/weather"
)

// Model is a logistic regression over the observation features, with
// coefficients trained offline and shipped as a JSON file. Training itself
// is out of scope here; this only applies the stored weights.
type Model struct {
	Bias    float64            `json:"bias"`
	Weights map[string]float64 `json:"weights"`
}

// Feature names, matching the columns the model was trained on.
const (
	FeatureMinTemp       = "MinTemp"
	FeatureMaxTemp       = "MaxTemp"
	FeatureRainfall      = "Rainfall"
	FeatureWindGustSpeed = "WindGustSpeed"
	FeatureHumidity9am   = "Humidity9am"
	FeatureHumidity3pm   = "Humidity3pm"
	FeaturePressure9am   = "Pressure9am"
	FeaturePressure3pm   = "Pressure3pm"
	FeatureCloud3pm      = "Cloud3pm"
	FeatureTemp3pm       = "Temp3pm"
)

// LoadModel reads model coefficients from a JSON file.
func LoadModel(path string) (*Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}
	var m Model
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse model file: %w", err)
	}
	if len(m.Weights) == 0 {
		return nil, fmt.Errorf("model file %s declares no weights", path)
	}
	return &m, nil
}

// Features extracts the model's input vector from an observation. The second
// return value names any features the observation is missing; prediction
// cannot run with an incomplete vector.
func Features(obs weather.Observation) (map[string]float64, []string) {
	raw := map[string]*float64{
		FeatureMinTemp:       obs.MinTemp,
		FeatureMaxTemp:       obs.MaxTemp,
		FeatureRainfall:      obs.Rainfall,
		FeatureWindGustSpeed: obs.WindSpeed3pm,
		FeatureHumidity9am:   obs.Humidity9am,
		FeatureHumidity3pm:   obs.Humidity3pm,
		FeaturePressure9am:   obs.Pressure9am,
		FeaturePressure3pm:   obs.Pressure3pm,
		FeatureCloud3pm:      obs.Cloud3pm,
		FeatureTemp3pm:       obs.Temp3pm,
	}

	features := make(map[string]float64, len(raw))
	var missing []string
	for name, value := range raw {
		if value == nil {
			missing = append(missing, name)
			continue
		}
		features[name] = *value
	}
	sort.Strings(missing)
	return features, missing
}

// Predict returns true when the model calls rain for tomorrow.
func (m *Model) Predict(features map[string]float64) bool {
	return m.Probability(features) >= 0.5
}

// Probability returns the model's rain probability for the feature vector.
func (m *Model) Probability(features map[string]float64) float64 {
	z := m.Bias
	for name, weight := range m.Weights {
		z += weight * features[name]
	}
	return 1.0 / (1.0 + math.Exp(-z))
}
