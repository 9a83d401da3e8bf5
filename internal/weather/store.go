package weather

import "context"

// Document is the schemaless record shape exchanged with the document store.
type Document map[string]any

// DocumentStore is the contract the MongoDB store (and the in-memory store
// used in tests and local development) must satisfy. Lookups that match
// nothing return ErrNoDocument; update and delete report how many documents
// they touched instead of failing.
type DocumentStore interface {
	FindOne(ctx context.Context, collection string, filter Document) (Document, error)
	FindMany(ctx context.Context, collection string, filter Document) ([]Document, error)
	InsertOne(ctx context.Context, collection string, doc Document) error
	UpdateOne(ctx context.Context, collection string, filter, fields Document) (matched int64, err error)
	DeleteOne(ctx context.Context, collection string, filter Document) (deleted int64, err error)
	DeleteMany(ctx context.Context, collection string, filter Document) (deleted int64, err error)

	// ApplyValidator installs a schema contract on a collection under strict
	// validation. Callers treat failures as warnings, not fatal errors.
	ApplyValidator(ctx context.Context, schema CollectionSchema) error
}

// CounterStore issues monotonically increasing integers per entity type.
// IncrementAndGet must be a single atomic store operation with upsert
// semantics: an absent counter is created and returns 1.
type CounterStore interface {
	IncrementAndGet(ctx context.Context, key string) (int, error)
}

// RelationalStore is the contract the PostgreSQL store must satisfy. Identity
// is assigned by the store's native sequences; create calls ignore any id on
// the input. Missing rows surface as *NotFoundError.
type RelationalStore interface {
	CreateLocation(ctx context.Context, loc Location) (Location, error)
	ListLocations(ctx context.Context) ([]Location, error)
	GetLocation(ctx context.Context, id int) (Location, error)
	UpdateLocation(ctx context.Context, loc Location) (Location, error)
	DeleteLocation(ctx context.Context, id int) error

	CreateObservation(ctx context.Context, obs Observation) (Observation, error)
	ListObservations(ctx context.Context) ([]Observation, error)
	GetObservation(ctx context.Context, id int) (Observation, error)
	UpdateObservation(ctx context.Context, obs Observation) (Observation, error)
	DeleteObservation(ctx context.Context, id int) error

	CreatePrediction(ctx context.Context, pred Prediction) (Prediction, error)
	ListPredictions(ctx context.Context) ([]Prediction, error)
	GetPrediction(ctx context.Context, id int) (Prediction, error)
	UpdatePrediction(ctx context.Context, pred Prediction) (Prediction, error)
	DeletePrediction(ctx context.Context, id int) error
}
