package weather

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoDocument is returned by document store lookups when no document
// matches the filter. Callers translate it into a NotFoundError.
var ErrNoDocument = errors.New("no matching document")

// NotFoundError reports that a referenced or targeted entity is absent. It
// carries the collection and id so handlers can name them in the response.
type NotFoundError struct {
	Collection string
	ID         int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %d not found", entityName(e.Collection), e.ID)
}

// ValidationError reports a schema contract rejection or a malformed request.
type ValidationError struct {
	Collection string
	Fields     []string
	Reason     string
}

func (e *ValidationError) Error() string {
	msg := e.Reason
	if msg == "" {
		msg = "validation failed"
	}
	if e.Collection != "" {
		msg = e.Collection + ": " + msg
	}
	if len(e.Fields) > 0 {
		msg += " (" + strings.Join(e.Fields, ", ") + ")"
	}
	return msg
}

// StorageError wraps a driver-level failure from either store.
type StorageError struct {
	Store string
	Err   error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s error: %v", e.Store, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// entityName maps a collection name to the singular noun used in messages.
func entityName(collection string) string {
	switch collection {
	case CollectionLocations:
		return "Location"
	case CollectionObservations:
		return "Observation"
	case CollectionPredictions:
		return "Prediction"
	}
	return collection
}
