package weather

import "time"

// Mapping between canonical records and the document shape. The document side
// owns two normalizations: calendar dates are promoted to a timestamp at
// midnight UTC, and the store-internal "_id" field never survives a read.
// The relational mapping lives in the postgres store, where column order is
// pinned to the table DDL.

// Document renders the location in its document shape. The identity must
// already be assigned by the allocator.
func (l Location) Document() Document {
	return Document{
		"location_id": l.LocationID,
		"name":        l.Name,
		"state":       stringOrNil(l.State),
	}
}

// LocationFromDocument maps a stored document back to the canonical record,
// dropping anything the schema does not know about ("_id" included).
func LocationFromDocument(d Document) Location {
	return Location{
		LocationID: docInt(d, "location_id"),
		Name:       docString(d, "name"),
		State:      docStringPtr(d, "state"),
	}
}

// Document renders the observation in its document shape with the date
// promoted to a timestamp.
func (o Observation) Document() Document {
	return Document{
		"observation_id": o.ObservationID,
		"location_id":    o.LocationID,
		"date":           promoteDate(o.Date.Time),
		"min_temp":       floatOrNil(o.MinTemp),
		"max_temp":       floatOrNil(o.MaxTemp),
		"rainfall":       floatOrNil(o.Rainfall),
		"humidity_9am":   floatOrNil(o.Humidity9am),
		"humidity_3pm":   floatOrNil(o.Humidity3pm),
		"pressure_9am":   floatOrNil(o.Pressure9am),
		"pressure_3pm":   floatOrNil(o.Pressure3pm),
		"wind_speed_9am": floatOrNil(o.WindSpeed9am),
		"wind_speed_3pm": floatOrNil(o.WindSpeed3pm),
		"wind_dir_9am":   stringOrNil(o.WindDir9am),
		"wind_dir_3pm":   stringOrNil(o.WindDir3pm),
		"cloud_9am":      floatOrNil(o.Cloud9am),
		"cloud_3pm":      floatOrNil(o.Cloud3pm),
		"temp_9am":       floatOrNil(o.Temp9am),
		"temp_3pm":       floatOrNil(o.Temp3pm),
		"rain_today":     boolOrNil(o.RainToday),
		"rain_tomorrow":  boolOrNil(o.RainTomorrow),
	}
}

// ObservationFromDocument maps a stored document back to the canonical record.
func ObservationFromDocument(d Document) Observation {
	return Observation{
		ObservationID: docInt(d, "observation_id"),
		LocationID:    docInt(d, "location_id"),
		Date:          DateTime{docTime(d, "date")},
		MinTemp:       docFloatPtr(d, "min_temp"),
		MaxTemp:       docFloatPtr(d, "max_temp"),
		Rainfall:      docFloatPtr(d, "rainfall"),
		Humidity9am:   docFloatPtr(d, "humidity_9am"),
		Humidity3pm:   docFloatPtr(d, "humidity_3pm"),
		Pressure9am:   docFloatPtr(d, "pressure_9am"),
		Pressure3pm:   docFloatPtr(d, "pressure_3pm"),
		WindSpeed9am:  docFloatPtr(d, "wind_speed_9am"),
		WindSpeed3pm:  docFloatPtr(d, "wind_speed_3pm"),
		WindDir9am:    docStringPtr(d, "wind_dir_9am"),
		WindDir3pm:    docStringPtr(d, "wind_dir_3pm"),
		Cloud9am:      docFloatPtr(d, "cloud_9am"),
		Cloud3pm:      docFloatPtr(d, "cloud_3pm"),
		Temp9am:       docFloatPtr(d, "temp_9am"),
		Temp3pm:       docFloatPtr(d, "temp_3pm"),
		RainToday:     docBoolPtr(d, "rain_today"),
		RainTomorrow:  docBoolPtr(d, "rain_tomorrow"),
	}
}

// Document renders the prediction in its document shape, including the
// denormalized location_id.
func (p Prediction) Document() Document {
	return Document{
		"prediction_id":  p.PredictionID,
		"location_id":    p.LocationID,
		"observation_id": p.ObservationID,
		"will_it_rain":   p.WillItRain,
		"predicted_at":   p.PredictedAt.UTC(),
	}
}

// PredictionFromDocument maps a stored document back to the canonical record.
func PredictionFromDocument(d Document) Prediction {
	return Prediction{
		PredictionID:  docInt(d, "prediction_id"),
		LocationID:    docInt(d, "location_id"),
		ObservationID: docInt(d, "observation_id"),
		WillItRain:    docBool(d, "will_it_rain"),
		PredictedAt:   docTime(d, "predicted_at"),
	}
}

// promoteDate normalizes a value to UTC; a date-only value ends up as
// midnight UTC of that day, matching the document schema's timestamp typing.
func promoteDate(t time.Time) time.Time {
	return t.UTC()
}

func stringOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func floatOrNil(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func boolOrNil(b *bool) any {
	if b == nil {
		return nil
	}
	return *b
}

// The doc* helpers tolerate the integer widths different drivers hand back
// (int, int32, int64) so no driver-native type leaks past the mapper.

func docInt(d Document, key string) int {
	switch v := d[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func docString(d Document, key string) string {
	if s, ok := d[key].(string); ok {
		return s
	}
	return ""
}

func docStringPtr(d Document, key string) *string {
	if s, ok := d[key].(string); ok {
		return &s
	}
	return nil
}

func docFloatPtr(d Document, key string) *float64 {
	switch v := d[key].(type) {
	case float64:
		return &v
	case float32:
		f := float64(v)
		return &f
	case int32:
		f := float64(v)
		return &f
	case int64:
		f := float64(v)
		return &f
	}
	return nil
}

func docBool(d Document, key string) bool {
	b, _ := d[key].(bool)
	return b
}

func docBoolPtr(d Document, key string) *bool {
	if b, ok := d[key].(bool); ok {
		return &b
	}
	return nil
}

func docTime(d Document, key string) time.Time {
	if t, ok := d[key].(time.Time); ok {
		return t.UTC()
	}
	return time.Time{}
}
