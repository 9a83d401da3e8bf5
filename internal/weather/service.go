package weather

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Service orchestrates the document-store side of the API: sequence
// allocation, referential validation and the record mapping around every
// write. All relational traffic goes straight to the RelationalStore; the
// two stores share no transaction, so the existence checks here are advisory
// gatekeeping rather than database-level constraints.
type Service struct {
	docs     DocumentStore
	counters CounterStore
}

// NewService creates a new Service.
func NewService(docs DocumentStore, counters CounterStore) *Service {
	return &Service{
		docs:     docs,
		counters: counters,
	}
}

// idField returns the logical identity field for a collection.
func idField(collection string) string {
	switch collection {
	case CollectionLocations:
		return "location_id"
	case CollectionObservations:
		return "observation_id"
	case CollectionPredictions:
		return "prediction_id"
	}
	return "_id"
}

// Exists reports whether the given entity is present in the document store.
func (s *Service) Exists(ctx context.Context, collection string, id int) (bool, error) {
	_, err := s.docs.FindOne(ctx, collection, Document{idField(collection): id})
	if err != nil {
		if errors.Is(err, ErrNoDocument) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Require fails with a NotFoundError naming the collection and id when the
// entity is absent. Every write that depends on a reference calls this before
// any ID is allocated, so a failed check never burns a sequence value.
func (s *Service) Require(ctx context.Context, collection string, id int) error {
	ok, err := s.Exists(ctx, collection, id)
	if err != nil {
		return err
	}
	if !ok {
		return &NotFoundError{Collection: collection, ID: id}
	}
	return nil
}

// next allocates the next sequence ID for an entity type. There is no
// rollback: if the write that follows fails, the value stays consumed.
func (s *Service) next(ctx context.Context, key string) (int, error) {
	id, err := s.counters.IncrementAndGet(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("allocate %s id: %w", key, err)
	}
	return id, nil
}

// CreateLocation mints an ID and persists the location.
func (s *Service) CreateLocation(ctx context.Context, loc Location) (Location, error) {
	id, err := s.next(ctx, CounterLocations)
	if err != nil {
		return Location{}, err
	}
	loc.LocationID = id

	if err := s.docs.InsertOne(ctx, CollectionLocations, loc.Document()); err != nil {
		return Location{}, err
	}
	return s.GetLocation(ctx, id)
}

// ListLocations returns every stored location.
func (s *Service) ListLocations(ctx context.Context) ([]Location, error) {
	docs, err := s.docs.FindMany(ctx, CollectionLocations, Document{})
	if err != nil {
		return nil, err
	}
	locs := make([]Location, 0, len(docs))
	for _, d := range docs {
		locs = append(locs, LocationFromDocument(d))
	}
	return locs, nil
}

// GetLocation returns one location by its logical id.
func (s *Service) GetLocation(ctx context.Context, id int) (Location, error) {
	d, err := s.docs.FindOne(ctx, CollectionLocations, Document{"location_id": id})
	if err != nil {
		if errors.Is(err, ErrNoDocument) {
			return Location{}, &NotFoundError{Collection: CollectionLocations, ID: id}
		}
		return Location{}, err
	}
	return LocationFromDocument(d), nil
}

// UpdateLocation replaces the mutable fields of a location.
func (s *Service) UpdateLocation(ctx context.Context, id int, loc Location) (Location, error) {
	fields := Document{
		"name":  loc.Name,
		"state": stringOrNil(loc.State),
	}
	matched, err := s.docs.UpdateOne(ctx, CollectionLocations, Document{"location_id": id}, fields)
	if err != nil {
		return Location{}, err
	}
	if matched == 0 {
		return Location{}, &NotFoundError{Collection: CollectionLocations, ID: id}
	}
	return s.GetLocation(ctx, id)
}

// DeleteLocation removes a location unconditionally and returns the deleted
// record. Dependent observations keep their now-dangling location_id; delete
// never cascades and never fails because of dependents.
func (s *Service) DeleteLocation(ctx context.Context, id int) (Location, error) {
	loc, err := s.GetLocation(ctx, id)
	if err != nil {
		return Location{}, err
	}
	deleted, err := s.docs.DeleteOne(ctx, CollectionLocations, Document{"location_id": id})
	if err != nil {
		return Location{}, err
	}
	if deleted == 0 {
		return Location{}, &NotFoundError{Collection: CollectionLocations, ID: id}
	}
	return loc, nil
}

// CreateObservation validates the referenced location, then mints an ID and
// persists the observation.
func (s *Service) CreateObservation(ctx context.Context, obs Observation) (Observation, error) {
	if err := s.Require(ctx, CollectionLocations, obs.LocationID); err != nil {
		return Observation{}, err
	}

	id, err := s.next(ctx, CounterObservations)
	if err != nil {
		return Observation{}, err
	}
	obs.ObservationID = id

	if err := s.docs.InsertOne(ctx, CollectionObservations, obs.Document()); err != nil {
		return Observation{}, err
	}
	return s.GetObservation(ctx, id)
}

// ListObservations returns every stored observation.
func (s *Service) ListObservations(ctx context.Context) ([]Observation, error) {
	docs, err := s.docs.FindMany(ctx, CollectionObservations, Document{})
	if err != nil {
		return nil, err
	}
	obs := make([]Observation, 0, len(docs))
	for _, d := range docs {
		obs = append(obs, ObservationFromDocument(d))
	}
	return obs, nil
}

// GetObservation returns one observation by its logical id.
func (s *Service) GetObservation(ctx context.Context, id int) (Observation, error) {
	d, err := s.docs.FindOne(ctx, CollectionObservations, Document{"observation_id": id})
	if err != nil {
		if errors.Is(err, ErrNoDocument) {
			return Observation{}, &NotFoundError{Collection: CollectionObservations, ID: id}
		}
		return Observation{}, err
	}
	return ObservationFromDocument(d), nil
}

// UpdateObservation validates the referenced location and replaces every
// mutable field of the observation.
func (s *Service) UpdateObservation(ctx context.Context, id int, obs Observation) (Observation, error) {
	if err := s.Require(ctx, CollectionLocations, obs.LocationID); err != nil {
		return Observation{}, err
	}

	fields := obs.Document()
	delete(fields, "observation_id")

	matched, err := s.docs.UpdateOne(ctx, CollectionObservations, Document{"observation_id": id}, fields)
	if err != nil {
		return Observation{}, err
	}
	if matched == 0 {
		return Observation{}, &NotFoundError{Collection: CollectionObservations, ID: id}
	}
	return s.GetObservation(ctx, id)
}

// DeleteObservation removes an observation unconditionally and returns the
// deleted record. Dependent predictions are left dangling.
func (s *Service) DeleteObservation(ctx context.Context, id int) (Observation, error) {
	obs, err := s.GetObservation(ctx, id)
	if err != nil {
		return Observation{}, err
	}
	deleted, err := s.docs.DeleteOne(ctx, CollectionObservations, Document{"observation_id": id})
	if err != nil {
		return Observation{}, err
	}
	if deleted == 0 {
		return Observation{}, &NotFoundError{Collection: CollectionObservations, ID: id}
	}
	return obs, nil
}

// CreatePrediction resolves the observation, transitively validates the
// observation's location, then mints an ID and persists the prediction with
// the location denormalized and predicted_at server-assigned. Client-supplied
// identity or timestamp values are ignored.
func (s *Service) CreatePrediction(ctx context.Context, pred Prediction) (Prediction, error) {
	obs, err := s.GetObservation(ctx, pred.ObservationID)
	if err != nil {
		return Prediction{}, err
	}
	if err := s.Require(ctx, CollectionLocations, obs.LocationID); err != nil {
		return Prediction{}, err
	}

	id, err := s.next(ctx, CounterPredictions)
	if err != nil {
		return Prediction{}, err
	}
	pred.PredictionID = id
	pred.LocationID = obs.LocationID
	pred.PredictedAt = time.Now().UTC()

	if err := s.docs.InsertOne(ctx, CollectionPredictions, pred.Document()); err != nil {
		return Prediction{}, err
	}
	return s.GetPrediction(ctx, id)
}

// ListPredictions returns every stored prediction.
func (s *Service) ListPredictions(ctx context.Context) ([]Prediction, error) {
	docs, err := s.docs.FindMany(ctx, CollectionPredictions, Document{})
	if err != nil {
		return nil, err
	}
	preds := make([]Prediction, 0, len(docs))
	for _, d := range docs {
		preds = append(preds, PredictionFromDocument(d))
	}
	return preds, nil
}

// GetPrediction returns one prediction by its logical id.
func (s *Service) GetPrediction(ctx context.Context, id int) (Prediction, error) {
	d, err := s.docs.FindOne(ctx, CollectionPredictions, Document{"prediction_id": id})
	if err != nil {
		if errors.Is(err, ErrNoDocument) {
			return Prediction{}, &NotFoundError{Collection: CollectionPredictions, ID: id}
		}
		return Prediction{}, err
	}
	return PredictionFromDocument(d), nil
}

// UpdatePrediction replaces the prediction's fields and refreshes
// predicted_at. The reference chain is only re-validated when observation_id
// actually changes, so a no-op update on a dangling prediction still
// succeeds; when it does change, the new observation's location is checked
// transitively and location_id is re-copied from it.
func (s *Service) UpdatePrediction(ctx context.Context, id int, pred Prediction) (Prediction, error) {
	existing, err := s.GetPrediction(ctx, id)
	if err != nil {
		return Prediction{}, err
	}

	locationID := existing.LocationID
	if pred.ObservationID != existing.ObservationID {
		obs, err := s.GetObservation(ctx, pred.ObservationID)
		if err != nil {
			return Prediction{}, err
		}
		if err := s.Require(ctx, CollectionLocations, obs.LocationID); err != nil {
			return Prediction{}, err
		}
		locationID = obs.LocationID
	}

	fields := Document{
		"observation_id": pred.ObservationID,
		"location_id":    locationID,
		"will_it_rain":   pred.WillItRain,
		"predicted_at":   time.Now().UTC(),
	}
	matched, err := s.docs.UpdateOne(ctx, CollectionPredictions, Document{"prediction_id": id}, fields)
	if err != nil {
		return Prediction{}, err
	}
	if matched == 0 {
		return Prediction{}, &NotFoundError{Collection: CollectionPredictions, ID: id}
	}
	return s.GetPrediction(ctx, id)
}

// DeletePrediction removes a prediction unconditionally and returns the
// deleted record.
func (s *Service) DeletePrediction(ctx context.Context, id int) (Prediction, error) {
	pred, err := s.GetPrediction(ctx, id)
	if err != nil {
		return Prediction{}, err
	}
	deleted, err := s.docs.DeleteOne(ctx, CollectionPredictions, Document{"prediction_id": id})
	if err != nil {
		return Prediction{}, err
	}
	if deleted == 0 {
		return Prediction{}, &NotFoundError{Collection: CollectionPredictions, ID: id}
	}
	return pred, nil
}
