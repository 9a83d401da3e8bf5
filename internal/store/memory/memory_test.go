package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/rain-prediction-api/internal/store/memory"
	"github.com/i474232898/rain-prediction-api/internal/weather"
)

func guardedStore(t *testing.T) *memory.Store {
	t.Helper()
	s := memory.New()
	for _, schema := range weather.CollectionSchemas() {
		require.NoError(t, s.ApplyValidator(context.Background(), schema))
	}
	return s
}

func TestInsertRejectsMissingRequiredField(t *testing.T) {
	s := guardedStore(t)
	ctx := context.Background()

	err := s.InsertOne(ctx, weather.CollectionLocations, weather.Document{
		"location_id": 1,
		"state":       "NSW",
	})

	var verr *weather.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, weather.CollectionLocations, verr.Collection)
	assert.Contains(t, verr.Fields, "name")

	docs, err := s.FindMany(ctx, weather.CollectionLocations, weather.Document{})
	require.NoError(t, err)
	assert.Empty(t, docs, "rejected document must not be stored")
}

func TestInsertAcceptsNullAndAbsentNullableField(t *testing.T) {
	s := guardedStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertOne(ctx, weather.CollectionLocations, weather.Document{
		"location_id": 1,
		"name":        "Sydney",
		"state":       nil,
	}))
	require.NoError(t, s.InsertOne(ctx, weather.CollectionLocations, weather.Document{
		"location_id": 2,
		"name":        "Canberra",
	}))
}

func TestInsertRejectsTypeViolation(t *testing.T) {
	s := guardedStore(t)
	ctx := context.Background()

	err := s.InsertOne(ctx, weather.CollectionLocations, weather.Document{
		"location_id": "one",
		"name":        "Sydney",
	})

	var verr *weather.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "location_id")
	assert.Equal(t, "fields violate the schema contract", verr.Reason)
}

func TestInsertWithoutValidatorIsUnconstrained(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	// No validator applied: anything goes, matching a collection that the
	// best-effort schema setup could not reach.
	require.NoError(t, s.InsertOne(ctx, weather.CollectionLocations, weather.Document{
		"location_id": "one",
	}))
}

func TestUpdateRevalidatesMergedDocument(t *testing.T) {
	s := guardedStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertOne(ctx, weather.CollectionLocations, weather.Document{
		"location_id": 1,
		"name":        "Sydney",
	}))

	_, err := s.UpdateOne(ctx, weather.CollectionLocations,
		weather.Document{"location_id": 1},
		weather.Document{"name": nil})
	var verr *weather.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name")

	// The original document is untouched after a rejected update.
	doc, err := s.FindOne(ctx, weather.CollectionLocations, weather.Document{"location_id": 1})
	require.NoError(t, err)
	assert.Equal(t, "Sydney", doc["name"])
}

func TestUpdateReportsMatchedCount(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	matched, err := s.UpdateOne(ctx, weather.CollectionLocations,
		weather.Document{"location_id": 7},
		weather.Document{"name": "nowhere"})
	require.NoError(t, err)
	assert.Zero(t, matched)
}

func TestObservationSchemaDateField(t *testing.T) {
	s := guardedStore(t)
	ctx := context.Background()

	base := weather.Document{
		"observation_id": 1,
		"location_id":    1,
		"date":           time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.InsertOne(ctx, weather.CollectionObservations, base))

	bad := weather.Document{
		"observation_id": 2,
		"location_id":    1,
		"date":           "2023-01-01",
	}
	err := s.InsertOne(ctx, weather.CollectionObservations, bad)
	var verr *weather.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "date")
}

func TestCounterStartsAtOneAndIncrements(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		got, err := s.IncrementAndGet(ctx, weather.CounterLocations)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	// Counters for other entity types are independent.
	got, err := s.IncrementAndGet(ctx, weather.CounterPredictions)
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	// Counters are plain documents in the counters collection, so batch
	// tooling can seed them through the document contract.
	doc, err := s.FindOne(ctx, weather.CollectionCounters, weather.Document{"_id": weather.CounterLocations})
	require.NoError(t, err)
	assert.EqualValues(t, 3, doc["sequence_value"])
}

func TestCounterRespectsSeededValue(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	require.NoError(t, s.InsertOne(ctx, weather.CollectionCounters, weather.Document{
		"_id":            weather.CounterObservations,
		"sequence_value": 40,
	}))

	got, err := s.IncrementAndGet(ctx, weather.CounterObservations)
	require.NoError(t, err)
	assert.Equal(t, 41, got)
}

func TestDeleteManyAndFilters(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		require.NoError(t, s.InsertOne(ctx, weather.CollectionPredictions, weather.Document{
			"prediction_id": i,
			"location_id":   1,
		}))
	}
	require.NoError(t, s.InsertOne(ctx, weather.CollectionPredictions, weather.Document{
		"prediction_id": 4,
		"location_id":   2,
	}))

	deleted, err := s.DeleteMany(ctx, weather.CollectionPredictions, weather.Document{"location_id": 1})
	require.NoError(t, err)
	assert.EqualValues(t, 3, deleted)

	remaining, err := s.FindMany(ctx, weather.CollectionPredictions, weather.Document{})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.EqualValues(t, 4, remaining[0]["prediction_id"])
}

func TestFindOneMissingReturnsSentinel(t *testing.T) {
	s := memory.New()

	_, err := s.FindOne(context.Background(), weather.CollectionLocations, weather.Document{"location_id": 1})
	assert.ErrorIs(t, err, weather.ErrNoDocument)
}

func TestIntegerWidthTolerantMatching(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	require.NoError(t, s.InsertOne(ctx, weather.CollectionLocations, weather.Document{
		"location_id": int64(5),
		"name":        "Cairns",
	}))

	doc, err := s.FindOne(ctx, weather.CollectionLocations, weather.Document{"location_id": 5})
	require.NoError(t, err)
	assert.Equal(t, "Cairns", doc["name"])
}
