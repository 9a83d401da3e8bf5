package weather

import (
	"fmt"
	"strings"
	"time"
)

// Collection names shared by the document store, the schema contracts and the
// referential validator. The relational tables use the same names.
const (
	CollectionLocations    = "locations"
	CollectionObservations = "weather_observations"
	CollectionPredictions  = "rain_predictions"
	CollectionCounters     = "counters"
)

// Counter keys used by the sequence allocator, one per entity type.
const (
	CounterLocations    = "locations"
	CounterObservations = "observations"
	CounterPredictions  = "predictions"
)

// DateTime is a time.Time that also accepts date-only values ("2006-01-02")
// in JSON. A date-only value parses to midnight UTC of that day.
type DateTime struct {
	time.Time
}

// UnmarshalJSON accepts either a calendar date or an RFC3339 timestamp.
func (d *DateTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	if ts, err := time.Parse("2006-01-02", s); err == nil {
		d.Time = ts.UTC()
		return nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("invalid date %q; use YYYY-MM-DD or RFC3339", s)
	}
	d.Time = ts.UTC()
	return nil
}

// MarshalJSON emits RFC3339 UTC, or null for the zero value.
func (d DateTime) MarshalJSON() ([]byte, error) {
	if d.Time.IsZero() {
		return []byte(`null`), nil
	}
	return []byte(`"` + d.Time.UTC().Format(time.RFC3339) + `"`), nil
}

// Location is the canonical shape of a tracked place. The identity field is
// assigned by the store: a serial column relationally, the sequence allocator
// in the document store.
type Location struct {
	LocationID int     `json:"location_id"`
	Name       string  `json:"name" validate:"required"`
	State      *string `json:"state"`
}

// Observation is a single day of meteorological readings for a location.
// Everything beyond the date and the location reference is optional; absent
// readings stay nil end to end.
type Observation struct {
	ObservationID int      `json:"observation_id"`
	LocationID    int      `json:"location_id" validate:"required"`
	Date          DateTime `json:"date"`

	MinTemp      *float64 `json:"min_temp"`
	MaxTemp      *float64 `json:"max_temp"`
	Rainfall     *float64 `json:"rainfall"`
	Humidity9am  *float64 `json:"humidity_9am"`
	Humidity3pm  *float64 `json:"humidity_3pm"`
	Pressure9am  *float64 `json:"pressure_9am"`
	Pressure3pm  *float64 `json:"pressure_3pm"`
	WindSpeed9am *float64 `json:"wind_speed_9am"`
	WindSpeed3pm *float64 `json:"wind_speed_3pm"`
	WindDir9am   *string  `json:"wind_dir_9am"`
	WindDir3pm   *string  `json:"wind_dir_3pm"`
	Cloud9am     *float64 `json:"cloud_9am"`
	Cloud3pm     *float64 `json:"cloud_3pm"`
	Temp9am      *float64 `json:"temp_9am"`
	Temp3pm      *float64 `json:"temp_3pm"`
	RainToday    *bool    `json:"rain_today"`
	RainTomorrow *bool    `json:"rain_tomorrow"`
}

// Prediction is a rain/no-rain call against one observation. LocationID is
// denormalized from the observation's location at write time in the document
// store; relationally it is derivable via join and not stored. PredictedAt is
// always server-assigned and refreshed on every update.
type Prediction struct {
	PredictionID  int       `json:"prediction_id"`
	ObservationID int       `json:"observation_id" validate:"required"`
	LocationID    int       `json:"location_id,omitempty"`
	WillItRain    bool      `json:"will_it_rain"`
	PredictedAt   time.Time `json:"predicted_at"`
}
