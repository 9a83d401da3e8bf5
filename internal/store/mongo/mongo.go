package mongo

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/i474232898/rain-prediction-api/internal/weather"
)

// Server error code MongoDB returns when a write violates a collection's
// $jsonSchema validator.
const codeDocumentValidationFailure = 121

// Collection absent when running collMod.
const codeNamespaceNotFound = 26

// Store implements the document and counter store contracts on MongoDB.
type Store struct {
	db *mongo.Database
}

// Connect dials MongoDB, verifies the connection with a ping and returns the
// store plus a disconnect function the caller must run on shutdown.
func Connect(ctx context.Context, uri, dbName string) (*Store, func(context.Context) error, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return &Store{db: client.Database(dbName)}, client.Disconnect, nil
}

// FindOne returns the first document matching the filter.
func (s *Store) FindOne(ctx context.Context, collection string, filter weather.Document) (weather.Document, error) {
	var doc bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M(filter)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, weather.ErrNoDocument
		}
		return nil, storageErr(err)
	}
	return normalize(doc), nil
}

// FindMany returns every document matching the filter.
func (s *Store) FindMany(ctx context.Context, collection string, filter weather.Document) ([]weather.Document, error) {
	cur, err := s.db.Collection(collection).Find(ctx, bson.M(filter))
	if err != nil {
		return nil, storageErr(err)
	}
	defer cur.Close(ctx)

	var docs []weather.Document
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, storageErr(err)
		}
		docs = append(docs, normalize(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, storageErr(err)
	}
	return docs, nil
}

// InsertOne persists a document. Schema validator rejections surface as
// ValidationError so callers can tell a contract violation from a
// connectivity failure.
func (s *Store) InsertOne(ctx context.Context, collection string, doc weather.Document) error {
	if _, err := s.db.Collection(collection).InsertOne(ctx, bson.M(doc)); err != nil {
		return writeErr(collection, err)
	}
	return nil
}

// UpdateOne applies a $set of the given fields to the first matching document.
func (s *Store) UpdateOne(ctx context.Context, collection string, filter, fields weather.Document) (int64, error) {
	res, err := s.db.Collection(collection).UpdateOne(ctx, bson.M(filter), bson.M{"$set": bson.M(fields)})
	if err != nil {
		return 0, writeErr(collection, err)
	}
	return res.MatchedCount, nil
}

// DeleteOne removes the first matching document.
func (s *Store) DeleteOne(ctx context.Context, collection string, filter weather.Document) (int64, error) {
	res, err := s.db.Collection(collection).DeleteOne(ctx, bson.M(filter))
	if err != nil {
		return 0, storageErr(err)
	}
	return res.DeletedCount, nil
}

// DeleteMany removes every matching document.
func (s *Store) DeleteMany(ctx context.Context, collection string, filter weather.Document) (int64, error) {
	res, err := s.db.Collection(collection).DeleteMany(ctx, bson.M(filter))
	if err != nil {
		return 0, storageErr(err)
	}
	return res.DeletedCount, nil
}

// ApplyValidator installs the schema contract on a collection with collMod
// under strict validation, creating the collection with the validator when
// it does not exist yet. Idempotent.
func (s *Store) ApplyValidator(ctx context.Context, schema weather.CollectionSchema) error {
	validator := jsonSchema(schema)

	cmd := bson.D{
		{Key: "collMod", Value: schema.Collection},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "strict"},
	}
	err := s.db.RunCommand(ctx, cmd).Err()
	if err == nil {
		return nil
	}

	var srvErr mongo.ServerError
	if errors.As(err, &srvErr) && srvErr.HasErrorCode(codeNamespaceNotFound) {
		opts := options.CreateCollection().
			SetValidator(validator).
			SetValidationLevel("strict")
		if err := s.db.CreateCollection(ctx, schema.Collection, opts); err != nil {
			return storageErr(err)
		}
		return nil
	}
	return storageErr(err)
}

// EnsureSchemas applies every declared contract, downgrading failures to
// warnings: schema enforcement is defense in depth, never a reason to refuse
// to serve traffic.
func (s *Store) EnsureSchemas(ctx context.Context) {
	for _, schema := range weather.CollectionSchemas() {
		if err := s.ApplyValidator(ctx, schema); err != nil {
			log.Printf("WARN: could not set up schema validation for %s: %v", schema.Collection, err)
		}
	}
}

// IncrementAndGet atomically bumps the per-entity-type counter document and
// returns the new value, creating the counter on first use. This is a single
// findAndModify round trip, never a read followed by a write.
func (s *Store) IncrementAndGet(ctx context.Context, key string) (int, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter struct {
		SequenceValue int64 `bson:"sequence_value"`
	}
	err := s.db.Collection(weather.CollectionCounters).FindOneAndUpdate(
		ctx,
		bson.M{"_id": key},
		bson.M{"$inc": bson.M{"sequence_value": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, storageErr(err)
	}
	return int(counter.SequenceValue), nil
}

// jsonSchema translates a declarative contract into the $jsonSchema document
// MongoDB expects, appending "null" to the type list of nullable fields.
func jsonSchema(schema weather.CollectionSchema) bson.M {
	properties := bson.M{}
	for field, rule := range schema.Fields {
		if rule.Nullable {
			properties[field] = bson.M{"bsonType": bson.A{rule.Type, "null"}}
		} else {
			properties[field] = bson.M{"bsonType": rule.Type}
		}
	}
	return bson.M{"$jsonSchema": bson.M{
		"bsonType":   "object",
		"required":   schema.Required,
		"properties": properties,
	}}
}

// normalize converts driver-native values into plain Go values so nothing
// BSON-specific leaks past the store boundary.
func normalize(doc bson.M) weather.Document {
	out := make(weather.Document, len(doc))
	for k, v := range doc {
		switch t := v.(type) {
		case primitive.DateTime:
			out[k] = t.Time().UTC()
		case primitive.ObjectID:
			out[k] = t.Hex()
		default:
			out[k] = v
		}
	}
	return out
}

func writeErr(collection string, err error) error {
	var srvErr mongo.ServerError
	if errors.As(err, &srvErr) && srvErr.HasErrorCode(codeDocumentValidationFailure) {
		return &weather.ValidationError{
			Collection: collection,
			Reason:     "document failed schema validation",
		}
	}
	return storageErr(err)
}

func storageErr(err error) error {
	return &weather.StorageError{Store: "mongodb", Err: err}
}
