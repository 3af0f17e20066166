package backends

import (
	"context"
	"fmt"

	"github.com/ghetzel/refcheck/dal"
	"github.com/ghetzel/refcheck/filter"
	lru "github.com/hashicorp/golang-lru"
)

var DefaultCacheSize = 1024

// Wraps another backend, caching the records returned by Retrieve.  Cached records are dropped when they
// are updated or deleted through this backend.  Queries are never cached.
type CachingBackend struct {
	backend Backend
	cache   *lru.ARCCache
}

func NewCachingBackend(parent Backend, size int) (*CachingBackend, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}

	if arc, err := lru.NewARC(size); err == nil {
		return &CachingBackend{
			backend: parent,
			cache:   arc,
		}, nil
	} else {
		return nil, err
	}
}

func (self *CachingBackend) ResetCache() {
	self.cache.Purge()
}

func (self *CachingBackend) Retrieve(ctx context.Context, collection string, id interface{}, fields ...string) (*dal.Record, error) {
	key := cacheKey(collection, id)

	if recordI, ok := self.cache.Get(key); ok {
		stats.Increment(`refcheck.backends.cache.hit`)
		return recordI.(*dal.Record).Project(fields...), nil
	}

	stats.Increment(`refcheck.backends.cache.miss`)

	if record, err := self.backend.Retrieve(ctx, collection, id); err == nil {
		self.cache.Add(key, record)
		return record.Project(fields...), nil
	} else {
		return nil, err
	}
}

func (self *CachingBackend) Update(ctx context.Context, collection string, records *dal.RecordSet) error {
	for _, record := range records.Records {
		if record != nil {
			self.cache.Remove(cacheKey(collection, record.ID))
		}
	}

	return self.backend.Update(ctx, collection, records)
}

func (self *CachingBackend) Delete(ctx context.Context, collection string, ids ...interface{}) error {
	for _, id := range ids {
		self.cache.Remove(cacheKey(collection, id))
	}

	return self.backend.Delete(ctx, collection, ids...)
}

func (self *CachingBackend) String() string {
	return fmt.Sprintf("cached:%v", self.backend)
}

// passthrough the remaining functions to fulfill the Backend interface
// -------------------------------------------------------------------------------------------------
func (self *CachingBackend) Initialize() error {
	return self.backend.Initialize()
}

func (self *CachingBackend) GetConnectionString() *dal.ConnectionString {
	return self.backend.GetConnectionString()
}

func (self *CachingBackend) RegisterCollection(c *dal.Collection) {
	self.backend.RegisterCollection(c)
}

func (self *CachingBackend) GetCollection(name string) (*dal.Collection, error) {
	return self.backend.GetCollection(name)
}

func (self *CachingBackend) ListCollections() ([]string, error) {
	return self.backend.ListCollections()
}

func (self *CachingBackend) Exists(ctx context.Context, collection string, id interface{}) bool {
	if self.cache.Contains(cacheKey(collection, id)) {
		return true
	}

	return self.backend.Exists(ctx, collection, id)
}

func (self *CachingBackend) Insert(ctx context.Context, collection string, records *dal.RecordSet) error {
	return self.backend.Insert(ctx, collection, records)
}

func (self *CachingBackend) Find(ctx context.Context, collection string, flt *filter.Filter) (*dal.RecordSet, error) {
	return self.backend.Find(ctx, collection, flt)
}

func (self *CachingBackend) Flush() error {
	return self.backend.Flush()
}

func cacheKey(collection string, id interface{}) string {
	return fmt.Sprintf("%s:%v", collection, id)
}
