package backends

import (
	"context"
	"fmt"

	"github.com/alexcesaro/statsd"
	"github.com/ghetzel/go-stockutil/log"
	"github.com/ghetzel/refcheck/dal"
	"github.com/ghetzel/refcheck/filter"
)

var stats, _ = statsd.New()

// Whether backends should register every collection they find when initialized.
var DefaultAutoregister = false

type Backend interface {
	Initialize() error
	String() string
	GetConnectionString() *dal.ConnectionString
	RegisterCollection(collection *dal.Collection)
	GetCollection(name string) (*dal.Collection, error)
	ListCollections() ([]string, error)
	Exists(ctx context.Context, collection string, id interface{}) bool
	Retrieve(ctx context.Context, collection string, id interface{}, fields ...string) (*dal.Record, error)
	Insert(ctx context.Context, collection string, records *dal.RecordSet) error
	Update(ctx context.Context, collection string, records *dal.RecordSet) error
	Delete(ctx context.Context, collection string, ids ...interface{}) error
	Find(ctx context.Context, collection string, flt *filter.Filter) (*dal.RecordSet, error)
	Flush() error
}

// Create a backend for the given connection string.  The scheme selects the backend type; a "cache"
// option wraps the backend in a record cache holding that many records.
func MakeBackend(connection dal.ConnectionString) (Backend, error) {
	var backend Backend

	log.Debugf("Creating backend for connection string %q", connection.String())

	switch connection.Backend() {
	case `memory`, `mem`:
		backend = NewMemoryBackend(connection)
	case `mongodb`, `mongo`:
		backend = NewMongoBackend(connection)
	default:
		return nil, fmt.Errorf("Unknown backend type %q", connection.Backend())
	}

	if size := connection.OptInt(`cache`, 0); size > 0 {
		if caching, err := NewCachingBackend(backend, int(size)); err == nil {
			backend = caching
		} else {
			return nil, err
		}
	}

	return backend, nil
}

func recordNotFound(collection string, id interface{}) error {
	return fmt.Errorf("%s record %v does not exist", collection, id)
}

func recordAlreadyExists(collection string, id interface{}) error {
	return fmt.Errorf("%s record %v already exists", collection, id)
}
