package migrate

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/rain-prediction-api/internal/weather"
)

// Source is the slice of the relational store the batch reads from.
type Source interface {
	ListLocations(ctx context.Context) ([]weather.Location, error)
	ListObservations(ctx context.Context) ([]weather.Observation, error)
	ListPredictions(ctx context.Context) ([]weather.Prediction, error)
}

// Report summarizes one migration run.
type Report struct {
	RunID        string    `json:"run_id"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	Locations    int       `json:"locations"`
	Observations int       `json:"observations"`
	Predictions  int       `json:"predictions"`
}

// VerifyReport lists every reconciliation problem found; empty means the
// copy checks out.
type VerifyReport struct {
	Issues []string
}

// OK reports whether verification found no problems.
func (r VerifyReport) OK() bool { return len(r.Issues) == 0 }

// Migrator performs the one-directional bulk copy from the relational store
// into the document store. It goes through the same document contracts as
// the API, so copied records satisfy the schema validators and the sequence
// counters stay ahead of the copied IDs.
type Migrator struct {
	source Source
	docs   weather.DocumentStore
	runID  string
}

// New creates a Migrator tagged with a fresh run ID.
func New(source Source, docs weather.DocumentStore) *Migrator {
	return &Migrator{
		source: source,
		docs:   docs,
		runID:  uuid.NewString(),
	}
}

// Run copies all three entities in dependency order, clearing each target
// collection first. The run is recorded in the migration_runs collection.
func (m *Migrator) Run(ctx context.Context) (Report, error) {
	report := Report{
		RunID:     m.runID,
		StartedAt: time.Now().UTC(),
	}

	locations, err := m.copyLocations(ctx)
	if err != nil {
		return report, err
	}
	report.Locations = locations

	observations, obsLocations, err := m.copyObservations(ctx)
	if err != nil {
		return report, err
	}
	report.Observations = observations

	predictions, err := m.copyPredictions(ctx, obsLocations)
	if err != nil {
		return report, err
	}
	report.Predictions = predictions

	report.FinishedAt = time.Now().UTC()

	record := weather.Document{
		"run_id":       report.RunID,
		"started_at":   report.StartedAt,
		"finished_at":  report.FinishedAt,
		"locations":    report.Locations,
		"observations": report.Observations,
		"predictions":  report.Predictions,
	}
	if err := m.docs.InsertOne(ctx, "migration_runs", record); err != nil {
		return report, fmt.Errorf("record migration run: %w", err)
	}
	return report, nil
}

func (m *Migrator) copyLocations(ctx context.Context) (int, error) {
	log.Println("migrate: copying locations")

	locations, err := m.source.ListLocations(ctx)
	if err != nil {
		return 0, fmt.Errorf("list locations: %w", err)
	}

	if _, err := m.docs.DeleteMany(ctx, weather.CollectionLocations, weather.Document{}); err != nil {
		return 0, fmt.Errorf("clear locations: %w", err)
	}

	maxID := 0
	for _, loc := range locations {
		if err := m.docs.InsertOne(ctx, weather.CollectionLocations, loc.Document()); err != nil {
			return 0, fmt.Errorf("copy location %d: %w", loc.LocationID, err)
		}
		if loc.LocationID > maxID {
			maxID = loc.LocationID
		}
	}
	if err := m.seedCounter(ctx, weather.CounterLocations, maxID); err != nil {
		return 0, err
	}

	log.Printf("migrate: copied %d locations", len(locations))
	return len(locations), nil
}

func (m *Migrator) copyObservations(ctx context.Context) (int, map[int]int, error) {
	log.Println("migrate: copying observations")

	observations, err := m.source.ListObservations(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("list observations: %w", err)
	}

	if _, err := m.docs.DeleteMany(ctx, weather.CollectionObservations, weather.Document{}); err != nil {
		return 0, nil, fmt.Errorf("clear observations: %w", err)
	}

	maxID := 0
	obsLocations := make(map[int]int, len(observations))
	for _, obs := range observations {
		if err := m.docs.InsertOne(ctx, weather.CollectionObservations, obs.Document()); err != nil {
			return 0, nil, fmt.Errorf("copy observation %d: %w", obs.ObservationID, err)
		}
		obsLocations[obs.ObservationID] = obs.LocationID
		if obs.ObservationID > maxID {
			maxID = obs.ObservationID
		}
	}
	if err := m.seedCounter(ctx, weather.CounterObservations, maxID); err != nil {
		return 0, nil, err
	}

	log.Printf("migrate: copied %d observations", len(observations))
	return len(observations), obsLocations, nil
}

func (m *Migrator) copyPredictions(ctx context.Context, obsLocations map[int]int) (int, error) {
	log.Println("migrate: copying predictions")

	predictions, err := m.source.ListPredictions(ctx)
	if err != nil {
		return 0, fmt.Errorf("list predictions: %w", err)
	}

	if _, err := m.docs.DeleteMany(ctx, weather.CollectionPredictions, weather.Document{}); err != nil {
		return 0, fmt.Errorf("clear predictions: %w", err)
	}

	maxID := 0
	for _, pred := range predictions {
		// The document model denormalizes the location; relationally it is
		// only reachable through the observation.
		pred.LocationID = obsLocations[pred.ObservationID]
		if err := m.docs.InsertOne(ctx, weather.CollectionPredictions, pred.Document()); err != nil {
			return 0, fmt.Errorf("copy prediction %d: %w", pred.PredictionID, err)
		}
		if pred.PredictionID > maxID {
			maxID = pred.PredictionID
		}
	}
	if err := m.seedCounter(ctx, weather.CounterPredictions, maxID); err != nil {
		return 0, err
	}

	log.Printf("migrate: copied %d predictions", len(predictions))
	return len(predictions), nil
}

// seedCounter fast-forwards a sequence counter past the highest copied ID so
// post-migration allocations cannot collide with migrated records.
func (m *Migrator) seedCounter(ctx context.Context, key string, value int) error {
	matched, err := m.docs.UpdateOne(ctx, weather.CollectionCounters,
		weather.Document{"_id": key},
		weather.Document{"sequence_value": value},
	)
	if err != nil {
		return fmt.Errorf("seed counter %s: %w", key, err)
	}
	if matched == 0 {
		counter := weather.Document{"_id": key, "sequence_value": value}
		if err := m.docs.InsertOne(ctx, weather.CollectionCounters, counter); err != nil {
			return fmt.Errorf("seed counter %s: %w", key, err)
		}
	}
	return nil
}

// Verify reconciles counts per collection and spot-checks the first record
// of each entity against the source.
func (m *Migrator) Verify(ctx context.Context) (VerifyReport, error) {
	var report VerifyReport

	locations, err := m.source.ListLocations(ctx)
	if err != nil {
		return report, fmt.Errorf("list locations: %w", err)
	}
	report.checkCount(ctx, m.docs, weather.CollectionLocations, len(locations))
	if len(locations) > 0 {
		sample, err := m.docs.FindOne(ctx, weather.CollectionLocations,
			weather.Document{"location_id": locations[0].LocationID})
		if err != nil {
			report.addIssue("locations: sample %d missing from document store", locations[0].LocationID)
		} else {
			copied := weather.LocationFromDocument(sample)
			if copied.Name != locations[0].Name {
				report.addIssue("locations: sample %d name mismatch (%q vs %q)",
					locations[0].LocationID, locations[0].Name, copied.Name)
			}
		}
	}

	observations, err := m.source.ListObservations(ctx)
	if err != nil {
		return report, fmt.Errorf("list observations: %w", err)
	}
	report.checkCount(ctx, m.docs, weather.CollectionObservations, len(observations))
	if len(observations) > 0 {
		sample, err := m.docs.FindOne(ctx, weather.CollectionObservations,
			weather.Document{"observation_id": observations[0].ObservationID})
		if err != nil {
			report.addIssue("observations: sample %d missing from document store", observations[0].ObservationID)
		} else {
			copied := weather.ObservationFromDocument(sample)
			if copied.LocationID != observations[0].LocationID {
				report.addIssue("observations: sample %d location mismatch (%d vs %d)",
					observations[0].ObservationID, observations[0].LocationID, copied.LocationID)
			}
		}
	}

	predictions, err := m.source.ListPredictions(ctx)
	if err != nil {
		return report, fmt.Errorf("list predictions: %w", err)
	}
	report.checkCount(ctx, m.docs, weather.CollectionPredictions, len(predictions))

	return report, nil
}

func (r *VerifyReport) checkCount(ctx context.Context, docs weather.DocumentStore, collection string, want int) {
	stored, err := docs.FindMany(ctx, collection, weather.Document{})
	if err != nil {
		r.addIssue("%s: count query failed: %v", collection, err)
		return
	}
	if len(stored) != want {
		r.addIssue("%s: count mismatch (source %d, document store %d)", collection, want, len(stored))
	}
}

func (r *VerifyReport) addIssue(format string, args ...any) {
	r.Issues = append(r.Issues, fmt.Sprintf(format, args...))
}
