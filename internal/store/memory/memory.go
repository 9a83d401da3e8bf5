package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/rain-prediction-api/internal/weather"
)

// Store is a concurrency-safe in-memory implementation of the document and
// counter store contracts. It backs the unit tests and local development
// without a MongoDB instance, and enforces any applied schema contract the
// way the real store would: at write time, under strict validation.
type Store struct {
	mu sync.Mutex

	// key: collection name, value: insertion-ordered documents
	collections map[string][]weather.Document
	schemas     map[string]weather.CollectionSchema
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		collections: make(map[string][]weather.Document),
		schemas:     make(map[string]weather.CollectionSchema),
	}
}

// FindOne returns a copy of the first document matching the filter.
func (s *Store) FindOne(ctx context.Context, collection string, filter weather.Document) (weather.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, doc := range s.collections[collection] {
		if matches(doc, filter) {
			return clone(doc), nil
		}
	}
	return nil, weather.ErrNoDocument
}

// FindMany returns copies of every document matching the filter.
func (s *Store) FindMany(ctx context.Context, collection string, filter weather.Document) ([]weather.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []weather.Document
	for _, doc := range s.collections[collection] {
		if matches(doc, filter) {
			result = append(result, clone(doc))
		}
	}
	return result, nil
}

// InsertOne validates the document against the collection's schema contract
// (when one has been applied) and appends it. Like the real store, an
// internal identity field is attached on insert; it must never survive the
// mapper on the way back out.
func (s *Store) InsertOne(ctx context.Context, collection string, doc weather.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := clone(doc)
	if _, ok := stored["_id"]; !ok {
		stored["_id"] = uuid.NewString()
	}

	if err := s.validate(collection, stored); err != nil {
		return err
	}

	s.collections[collection] = append(s.collections[collection], stored)
	return nil
}

// UpdateOne applies the field set to the first matching document and reports
// how many documents matched. The merged document is re-validated.
func (s *Store) UpdateOne(ctx context.Context, collection string, filter, fields weather.Document) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, doc := range s.collections[collection] {
		if !matches(doc, filter) {
			continue
		}
		merged := clone(doc)
		for k, v := range fields {
			merged[k] = v
		}
		if err := s.validate(collection, merged); err != nil {
			return 0, err
		}
		s.collections[collection][i] = merged
		return 1, nil
	}
	return 0, nil
}

// DeleteOne removes the first matching document and reports how many were
// deleted.
func (s *Store) DeleteOne(ctx context.Context, collection string, filter weather.Document) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.collections[collection]
	for i, doc := range docs {
		if matches(doc, filter) {
			s.collections[collection] = append(docs[:i:i], docs[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

// DeleteMany removes every matching document.
func (s *Store) DeleteMany(ctx context.Context, collection string, filter weather.Document) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []weather.Document
	var deleted int64
	for _, doc := range s.collections[collection] {
		if matches(doc, filter) {
			deleted++
			continue
		}
		kept = append(kept, doc)
	}
	s.collections[collection] = kept
	return deleted, nil
}

// ApplyValidator installs the schema contract for a collection. Idempotent.
func (s *Store) ApplyValidator(ctx context.Context, schema weather.CollectionSchema) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.schemas[schema.Collection] = schema
	return nil
}

// IncrementAndGet atomically bumps the counter document for the given key,
// creating it on first use. Counters live in the counters collection like
// they do in MongoDB, so batch tools can seed them through the document
// contract.
func (s *Store) IncrementAndGet(ctx context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.collections[weather.CollectionCounters]
	for _, doc := range docs {
		if doc["_id"] == key {
			next := asInt(doc["sequence_value"]) + 1
			doc["sequence_value"] = next
			return next, nil
		}
	}

	counter := weather.Document{"_id": key, "sequence_value": 1}
	s.collections[weather.CollectionCounters] = append(docs, counter)
	return 1, nil
}

// validate checks a full document against the collection's schema contract.
func (s *Store) validate(collection string, doc weather.Document) error {
	schema, ok := s.schemas[collection]
	if !ok {
		return nil
	}

	var offending []string
	for _, field := range schema.Required {
		if v, present := doc[field]; !present || v == nil {
			offending = append(offending, field)
		}
	}
	if len(offending) > 0 {
		return &weather.ValidationError{
			Collection: collection,
			Fields:     offending,
			Reason:     "missing required fields",
		}
	}

	for field, rule := range schema.Fields {
		v, present := doc[field]
		if !present {
			continue
		}
		if v == nil {
			if rule.Nullable {
				continue
			}
			offending = append(offending, field)
			continue
		}
		if !typeMatches(rule.Type, v) {
			offending = append(offending, field)
		}
	}
	if len(offending) > 0 {
		return &weather.ValidationError{
			Collection: collection,
			Fields:     offending,
			Reason:     "fields violate the schema contract",
		}
	}
	return nil
}

func typeMatches(bsonType string, v any) bool {
	switch bsonType {
	case weather.TypeInt:
		switch v.(type) {
		case int, int32, int64:
			return true
		}
	case weather.TypeDouble:
		switch v.(type) {
		case float64, float32:
			return true
		}
	case weather.TypeString:
		_, ok := v.(string)
		return ok
	case weather.TypeBool:
		_, ok := v.(bool)
		return ok
	case weather.TypeDate:
		_, ok := v.(time.Time)
		return ok
	}
	return false
}

// matches performs equality matching on every filter field, tolerating mixed
// integer widths the way a BSON comparison would.
func matches(doc, filter weather.Document) bool {
	for k, want := range filter {
		got, ok := doc[k]
		if !ok {
			return false
		}
		if !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b any) bool {
	if ai, ok := intValue(a); ok {
		if bi, ok := intValue(b); ok {
			return ai == bi
		}
		return false
	}
	return a == b
}

func intValue(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}

func asInt(v any) int {
	n, ok := intValue(v)
	if !ok {
		panic(fmt.Sprintf("counter value is not an integer: %T", v))
	}
	return int(n)
}

func clone(doc weather.Document) weather.Document {
	out := make(weather.Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
