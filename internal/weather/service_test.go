package weather_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/rain-prediction-api/internal/store/memory"
	"github.com/i474232898/rain-prediction-api/internal/weather"
)

func newService(t *testing.T) (*weather.Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	ctx := context.Background()
	for _, schema := range weather.CollectionSchemas() {
		require.NoError(t, store.ApplyValidator(ctx, schema))
	}
	return weather.NewService(store, store), store
}

func strPtr(s string) *string { return &s }

func date(s string) weather.DateTime {
	ts, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return weather.DateTime{Time: ts.UTC()}
}

func TestAllocatorConcurrentCallersGetDistinctIDs(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	const n = 100
	ids := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := store.IncrementAndGet(ctx, weather.CounterObservations)
			assert.NoError(t, err)
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int]bool, n)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		assert.GreaterOrEqual(t, id, 1)
		assert.LessOrEqual(t, id, n, "gap detected: id %d issued for %d successful calls", id, n)
		seen[id] = true
	}
	assert.Len(t, seen, n)
}

func TestCreateObservationWithUnknownLocationAllocatesNothing(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	_, err := svc.CreateObservation(ctx, weather.Observation{LocationID: 42, Date: date("2023-01-01")})

	var notFound *weather.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, weather.CollectionLocations, notFound.Collection)
	assert.Equal(t, 42, notFound.ID)

	// No document was written and no observation ID was burned.
	docs, err := store.FindMany(ctx, weather.CollectionObservations, weather.Document{})
	require.NoError(t, err)
	assert.Empty(t, docs)

	next, err := store.IncrementAndGet(ctx, weather.CounterObservations)
	require.NoError(t, err)
	assert.Equal(t, 1, next)
}

func TestCreatePredictionValidatesTransitively(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	// Unknown observation fails before anything is allocated.
	_, err := svc.CreatePrediction(ctx, weather.Prediction{ObservationID: 9, WillItRain: true})
	var notFound *weather.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, weather.CollectionObservations, notFound.Collection)

	loc, err := svc.CreateLocation(ctx, weather.Location{Name: "Sydney", State: strPtr("NSW")})
	require.NoError(t, err)
	obs, err := svc.CreateObservation(ctx, weather.Observation{LocationID: loc.LocationID, Date: date("2023-01-01")})
	require.NoError(t, err)

	// Delete the location: the observation's reference now dangles, so a
	// new prediction against it must fail the transitive location check.
	_, err = svc.DeleteLocation(ctx, loc.LocationID)
	require.NoError(t, err)

	_, err = svc.CreatePrediction(ctx, weather.Prediction{ObservationID: obs.ObservationID, WillItRain: true})
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, weather.CollectionLocations, notFound.Collection)
	assert.Equal(t, loc.LocationID, notFound.ID)

	// The failed attempts must not have consumed prediction IDs.
	pred, err := svc.CreatePrediction(ctx, weather.Prediction{ObservationID: obs.ObservationID, WillItRain: false})
	assert.Error(t, err) // still dangling
	assert.Zero(t, pred.PredictionID)
}

func TestLifecycleScenario(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	loc, err := svc.CreateLocation(ctx, weather.Location{Name: "Sydney", State: strPtr("NSW")})
	require.NoError(t, err)
	assert.Equal(t, 1, loc.LocationID)

	obs, err := svc.CreateObservation(ctx, weather.Observation{
		LocationID: loc.LocationID,
		Date:       date("2023-01-01"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, obs.ObservationID)

	pred, err := svc.CreatePrediction(ctx, weather.Prediction{
		ObservationID: obs.ObservationID,
		WillItRain:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, pred.PredictionID)
	assert.Equal(t, 1, pred.LocationID, "location copied transitively from the observation")
	assert.True(t, pred.WillItRain)
	assert.WithinDuration(t, time.Now().UTC(), pred.PredictedAt, 5*time.Second)

	// Deleting the location succeeds unconditionally and leaves the
	// observation's reference dangling.
	_, err = svc.DeleteLocation(ctx, loc.LocationID)
	require.NoError(t, err)

	dangling, err := svc.GetObservation(ctx, obs.ObservationID)
	require.NoError(t, err)
	assert.Equal(t, 1, dangling.LocationID)
}

func TestPredictionNoOpUpdateSkipsRevalidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	loc, err := svc.CreateLocation(ctx, weather.Location{Name: "Darwin", State: strPtr("NT")})
	require.NoError(t, err)
	obs, err := svc.CreateObservation(ctx, weather.Observation{LocationID: loc.LocationID, Date: date("2023-06-15")})
	require.NoError(t, err)
	pred, err := svc.CreatePrediction(ctx, weather.Prediction{ObservationID: obs.ObservationID, WillItRain: false})
	require.NoError(t, err)

	// Break the chain entirely.
	_, err = svc.DeleteObservation(ctx, obs.ObservationID)
	require.NoError(t, err)

	// An update that keeps observation_id unchanged must still succeed;
	// unchanged references are not re-validated.
	updated, err := svc.UpdatePrediction(ctx, pred.PredictionID, weather.Prediction{
		ObservationID: obs.ObservationID,
		WillItRain:    true,
	})
	require.NoError(t, err)
	assert.True(t, updated.WillItRain)
	assert.Equal(t, loc.LocationID, updated.LocationID)
	assert.False(t, updated.PredictedAt.Before(pred.PredictedAt), "predicted_at refreshed on update")

	// Changing the reference re-validates it and fails on the deleted
	// observation.
	_, err = svc.UpdatePrediction(ctx, pred.PredictionID, weather.Prediction{
		ObservationID: obs.ObservationID + 100,
		WillItRain:    true,
	})
	var notFound *weather.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, weather.CollectionObservations, notFound.Collection)
}

func TestObservationRoundTrip(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	loc, err := svc.CreateLocation(ctx, weather.Location{Name: "Perth", State: strPtr("WA")})
	require.NoError(t, err)

	minTemp := 12.5
	dir := "NW"
	rainToday := false
	in := weather.Observation{
		LocationID: loc.LocationID,
		Date:       date("2023-03-04"),
		MinTemp:    &minTemp,
		WindDir9am: &dir,
		RainToday:  &rainToday,
	}
	created, err := svc.CreateObservation(ctx, in)
	require.NoError(t, err)

	got, err := svc.GetObservation(ctx, created.ObservationID)
	require.NoError(t, err)

	assert.Equal(t, loc.LocationID, got.LocationID)
	assert.Equal(t, time.Date(2023, 3, 4, 0, 0, 0, 0, time.UTC), got.Date.Time, "date promoted to midnight UTC")
	require.NotNil(t, got.MinTemp)
	assert.Equal(t, minTemp, *got.MinTemp)
	require.NotNil(t, got.WindDir9am)
	assert.Equal(t, dir, *got.WindDir9am)
	require.NotNil(t, got.RainToday)
	assert.False(t, *got.RainToday)
	assert.Nil(t, got.MaxTemp, "absent readings stay nil")

	// The stored document carries an internal identity, but it never
	// reaches the mapped record.
	raw, err := store.FindOne(ctx, weather.CollectionObservations,
		weather.Document{"observation_id": created.ObservationID})
	require.NoError(t, err)
	assert.Contains(t, raw, "_id")
}

func TestUpdateObservationValidatesLocation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	loc, err := svc.CreateLocation(ctx, weather.Location{Name: "Hobart"})
	require.NoError(t, err)
	obs, err := svc.CreateObservation(ctx, weather.Observation{LocationID: loc.LocationID, Date: date("2023-02-02")})
	require.NoError(t, err)

	_, err = svc.UpdateObservation(ctx, obs.ObservationID, weather.Observation{
		LocationID: 999,
		Date:       date("2023-02-02"),
	})
	var notFound *weather.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, weather.CollectionLocations, notFound.Collection)
	assert.Equal(t, 999, notFound.ID)
}
