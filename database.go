package refcheck

import (
	"context"
	"fmt"
	"sync"

	"github.com/ghetzel/go-stockutil/log"
	"github.com/ghetzel/refcheck/backends"
	"github.com/ghetzel/refcheck/dal"
	"github.com/ghetzel/refcheck/exists"
	"github.com/ghetzel/refcheck/filter"
	"github.com/ghetzel/refcheck/mapper"
)

type DB interface {
	backends.Backend
	exists.Resolver
	AttachCollection(*dal.Collection) (*mapper.Model, error)
	Model(name string) (*mapper.Model, bool)
	Models() []*mapper.Model
	ApplySchemata(fileOrDirPath string) error
	GetBackend() backends.Backend
}

type db struct {
	backends.Backend
	models   []*mapper.Model
	modelsMu sync.RWMutex
}

func newdb(backend backends.Backend) *db {
	return &db{
		Backend: backend,
		models:  make([]*mapper.Model, 0),
	}
}

func (self *db) GetBackend() backends.Backend {
	return self.Backend
}

// Locate a registered collection and return a Finder that queries it through this database's backend.
func (self *db) Resolve(name string) (exists.Finder, bool) {
	if _, err := self.GetCollection(name); err == nil {
		return exists.FinderFunc(func(ctx context.Context, flt *filter.Filter) (*dal.RecordSet, error) {
			return self.Find(ctx, name, flt)
		}), true
	} else if !dal.IsCollectionNotFoundErr(err) {
		log.Warningf("refcheck: cannot resolve collection %q: %v", name, err)
	}

	return nil, false
}

// Register the collection with the backend, attach existence validators to its reference fields, and
// return a model for reading and writing its records.  References are resolved when records are
// validated, so collections may be attached in any order.
func (self *db) AttachCollection(collection *dal.Collection) (*mapper.Model, error) {
	if collection == nil {
		return nil, fmt.Errorf("cannot attach nil Collection")
	}

	self.modelsMu.Lock()
	defer self.modelsMu.Unlock()

	for _, model := range self.models {
		if model.GetCollection().Name == collection.Name {
			return nil, fmt.Errorf("Collection %q is already registered", collection.Name)
		}
	}

	if err := collection.Check(); err != nil {
		return nil, err
	}

	if err := collection.Plugin(exists.Plugin(self)); err != nil {
		return nil, err
	}

	model := mapper.NewModel(self.Backend, collection)
	self.models = append(self.models, model)
	return model, nil
}

func (self *db) Model(name string) (*mapper.Model, bool) {
	self.modelsMu.RLock()
	defer self.modelsMu.RUnlock()

	for _, model := range self.models {
		if model.GetCollection().Name == name {
			return model, true
		}
	}

	return nil, false
}

func (self *db) Models() []*mapper.Model {
	self.modelsMu.RLock()
	defer self.modelsMu.RUnlock()

	return append([]*mapper.Model{}, self.models...)
}

// Load every schema definition at the given path and attach the collections it describes.
func (self *db) ApplySchemata(fileOrDirPath string) error {
	if collections, err := LoadSchemata(fileOrDirPath); err == nil {
		for _, collection := range collections {
			if _, err := self.AttachCollection(collection); err != nil {
				return err
			}
		}

		log.Infof("Loaded %d definitions from %v", len(collections), fileOrDirPath)
		return nil
	} else {
		return err
	}
}
