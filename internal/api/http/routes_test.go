package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/rain-prediction-api/internal/store/memory"
	"github.com/i474232898/rain-prediction-api/internal/weather"
)

// fakeRelational is a map-backed relational store for handler tests.
type fakeRelational struct {
	nextLocation int
	locations    map[int]weather.Location
}

func newFakeRelational() *fakeRelational {
	return &fakeRelational{locations: make(map[int]weather.Location)}
}

func (f *fakeRelational) CreateLocation(ctx context.Context, loc weather.Location) (weather.Location, error) {
	f.nextLocation++
	loc.LocationID = f.nextLocation
	f.locations[loc.LocationID] = loc
	return loc, nil
}

func (f *fakeRelational) GetLocation(ctx context.Context, id int) (weather.Location, error) {
	loc, ok := f.locations[id]
	if !ok {
		return weather.Location{}, &weather.NotFoundError{Collection: weather.CollectionLocations, ID: id}
	}
	return loc, nil
}

func (f *fakeRelational) ListLocations(ctx context.Context) ([]weather.Location, error) {
	out := make([]weather.Location, 0, len(f.locations))
	for _, loc := range f.locations {
		out = append(out, loc)
	}
	return out, nil
}

func (f *fakeRelational) UpdateLocation(ctx context.Context, loc weather.Location) (weather.Location, error) {
	if _, ok := f.locations[loc.LocationID]; !ok {
		return weather.Location{}, &weather.NotFoundError{Collection: weather.CollectionLocations, ID: loc.LocationID}
	}
	f.locations[loc.LocationID] = loc
	return loc, nil
}

func (f *fakeRelational) DeleteLocation(ctx context.Context, id int) error {
	if _, ok := f.locations[id]; !ok {
		return &weather.NotFoundError{Collection: weather.CollectionLocations, ID: id}
	}
	delete(f.locations, id)
	return nil
}

func (f *fakeRelational) CreateObservation(ctx context.Context, obs weather.Observation) (weather.Observation, error) {
	return obs, nil
}

func (f *fakeRelational) GetObservation(ctx context.Context, id int) (weather.Observation, error) {
	return weather.Observation{}, &weather.NotFoundError{Collection: weather.CollectionObservations, ID: id}
}

func (f *fakeRelational) ListObservations(ctx context.Context) ([]weather.Observation, error) {
	return nil, nil
}

func (f *fakeRelational) UpdateObservation(ctx context.Context, obs weather.Observation) (weather.Observation, error) {
	return obs, nil
}

func (f *fakeRelational) DeleteObservation(ctx context.Context, id int) error { return nil }

func (f *fakeRelational) CreatePrediction(ctx context.Context, pred weather.Prediction) (weather.Prediction, error) {
	return pred, nil
}

func (f *fakeRelational) GetPrediction(ctx context.Context, id int) (weather.Prediction, error) {
	return weather.Prediction{}, &weather.NotFoundError{Collection: weather.CollectionPredictions, ID: id}
}

func (f *fakeRelational) ListPredictions(ctx context.Context) ([]weather.Prediction, error) {
	return nil, nil
}

func (f *fakeRelational) UpdatePrediction(ctx context.Context, pred weather.Prediction) (weather.Prediction, error) {
	return pred, nil
}

func (f *fakeRelational) DeletePrediction(ctx context.Context, id int) error { return nil }

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	store := memory.New()
	for _, schema := range weather.CollectionSchemas() {
		require.NoError(t, store.ApplyValidator(context.Background(), schema))
	}
	svc := weather.NewService(store, store)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterRoutes(app, newFakeRelational(), svc, 0)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &payload), "body: %s", raw)
	}
	return resp.StatusCode, payload
}

func TestMongoCreateLocationEnvelope(t *testing.T) {
	app := newTestApp(t)

	status, payload := doJSON(t, app, "POST", "/mongo/locations",
		`{"name": "Sydney", "state": "NSW"}`)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Location 'Sydney' created successfully with ID 1", payload["message"])

	data, ok := payload["data"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 1, data["location_id"])
	assert.Equal(t, "Sydney", data["name"])
	assert.Equal(t, "NSW", data["state"])
	assert.NotContains(t, data, "_id")
}

func TestMongoCreateLocationMissingName(t *testing.T) {
	app := newTestApp(t)

	status, payload := doJSON(t, app, "POST", "/mongo/locations", `{"state": "NSW"}`)

	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, true, payload["error"])
	assert.Contains(t, payload["message"], "Name")
}

func TestMongoGetLocationNotFound(t *testing.T) {
	app := newTestApp(t)

	status, payload := doJSON(t, app, "GET", "/mongo/locations/99", "")

	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, true, payload["error"])
	assert.Equal(t, "Location with ID 99 not found", payload["message"])
}

func TestMongoObservationFlow(t *testing.T) {
	app := newTestApp(t)

	status, _ := doJSON(t, app, "POST", "/mongo/locations", `{"name": "Sydney"}`)
	require.Equal(t, fiber.StatusOK, status)

	status, payload := doJSON(t, app, "POST", "/mongo/observations",
		`{"location_id": 1, "date": "2023-01-01", "min_temp": 12.5, "rain_today": false}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Weather observation created successfully with ID 1", payload["message"])

	data := payload["data"].(map[string]any)
	assert.EqualValues(t, 1, data["observation_id"])
	assert.EqualValues(t, 1, data["location_id"])
	assert.Equal(t, "2023-01-01T00:00:00Z", data["date"])

	status, payload = doJSON(t, app, "GET", "/mongo/observations", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Found 1 weather observations", payload["message"])
}

func TestMongoObservationUnknownLocation(t *testing.T) {
	app := newTestApp(t)

	status, payload := doJSON(t, app, "POST", "/mongo/observations",
		`{"location_id": 42, "date": "2023-01-01"}`)

	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "Location with ID 42 not found", payload["message"])
}

func TestMongoPredictionFlow(t *testing.T) {
	app := newTestApp(t)

	status, _ := doJSON(t, app, "POST", "/mongo/locations", `{"name": "Sydney"}`)
	require.Equal(t, fiber.StatusOK, status)
	status, _ = doJSON(t, app, "POST", "/mongo/observations",
		`{"location_id": 1, "date": "2023-01-01"}`)
	require.Equal(t, fiber.StatusOK, status)

	status, payload := doJSON(t, app, "POST", "/mongo/predictions",
		`{"observation_id": 1, "will_it_rain": true}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Created prediction (ID: 1) for location 1: rain expected", payload["message"])

	data := payload["data"].(map[string]any)
	assert.EqualValues(t, 1, data["prediction_id"])
	assert.EqualValues(t, 1, data["location_id"])
	assert.Equal(t, true, data["will_it_rain"])
	assert.NotEmpty(t, data["predicted_at"])
}

func TestMongoPredictionMissingWillItRain(t *testing.T) {
	app := newTestApp(t)

	status, payload := doJSON(t, app, "POST", "/mongo/predictions",
		`{"observation_id": 1}`)

	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Contains(t, payload["message"], "WillItRain")
}

func TestMongoDeleteLocationEnvelope(t *testing.T) {
	app := newTestApp(t)

	status, _ := doJSON(t, app, "POST", "/mongo/locations", `{"name": "Sydney"}`)
	require.Equal(t, fiber.StatusOK, status)

	status, payload := doJSON(t, app, "DELETE", "/mongo/locations/1", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Location 'Sydney' (ID: 1) deleted successfully", payload["message"])
	assert.Nil(t, payload["data"])
}

func TestRelationalLocationBareRecords(t *testing.T) {
	app := newTestApp(t)

	status, payload := doJSON(t, app, "POST", "/locations", `{"name": "Sydney", "state": "NSW"}`)
	assert.Equal(t, fiber.StatusOK, status)

	// Bare record, no envelope.
	assert.NotContains(t, payload, "message")
	assert.EqualValues(t, 1, payload["location_id"])
	assert.Equal(t, "Sydney", payload["name"])

	req := httptest.NewRequest("DELETE", "/locations/1", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestRelationalGetLocationNotFound(t *testing.T) {
	app := newTestApp(t)

	status, payload := doJSON(t, app, "GET", "/locations/5", "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "Location with ID 5 not found", payload["message"])
}

func TestInvalidIDParam(t *testing.T) {
	app := newTestApp(t)

	status, payload := doJSON(t, app, "GET", "/mongo/locations/abc", "")
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Contains(t, payload["message"], "id must be an integer")
}

func TestObservationRequiresDate(t *testing.T) {
	app := newTestApp(t)

	status, _ := doJSON(t, app, "POST", "/mongo/locations", `{"name": "Sydney"}`)
	require.Equal(t, fiber.StatusOK, status)

	status, payload := doJSON(t, app, "POST", "/mongo/observations", `{"location_id": 1}`)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Contains(t, payload["message"], "date")
}
