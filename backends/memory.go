package backends

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/ghetzel/go-stockutil/log"
	"github.com/ghetzel/go-stockutil/typeutil"
	"github.com/ghetzel/refcheck/dal"
	"github.com/ghetzel/refcheck/filter"
	"github.com/google/uuid"
	cmap "github.com/orcaman/concurrent-map"
)

type memoryEntry struct {
	seq    int64
	record *dal.Record
}

type memoryCollection struct {
	definition *dal.Collection
	records    cmap.ConcurrentMap
}

// An in-process document store.  Records are kept in insertion order and every read returns a copy.
type MemoryBackend struct {
	conn        *dal.ConnectionString
	collections cmap.ConcurrentMap
	seq         int64
}

func NewMemoryBackend(connection dal.ConnectionString) *MemoryBackend {
	return &MemoryBackend{
		conn:        &connection,
		collections: cmap.New(),
	}
}

func (self *MemoryBackend) Initialize() error {
	return nil
}

func (self *MemoryBackend) String() string {
	return `memory`
}

func (self *MemoryBackend) GetConnectionString() *dal.ConnectionString {
	return self.conn
}

func (self *MemoryBackend) RegisterCollection(collection *dal.Collection) {
	if collection == nil {
		return
	}

	if existing, ok := self.collection(collection.Name); ok {
		existing.definition = collection
	} else {
		self.collections.Set(collection.Name, &memoryCollection{
			definition: collection,
			records:    cmap.New(),
		})
	}

	log.Debugf("[%v] register collection %v", self, collection.Name)
}

func (self *MemoryBackend) GetCollection(name string) (*dal.Collection, error) {
	if c, ok := self.collection(name); ok {
		return c.definition, nil
	}

	return nil, dal.CollectionNotFound
}

func (self *MemoryBackend) ListCollections() ([]string, error) {
	names := self.collections.Keys()
	sort.Strings(names)
	return names, nil
}

func (self *MemoryBackend) Exists(ctx context.Context, name string, id interface{}) bool {
	if c, ok := self.collection(name); ok {
		return c.records.Has(memoryKey(id))
	}

	return false
}

func (self *MemoryBackend) Retrieve(ctx context.Context, name string, id interface{}, fields ...string) (*dal.Record, error) {
	if c, ok := self.collection(name); ok {
		if entry, ok := c.get(id); ok {
			return entry.record.Project(fields...), nil
		}

		return nil, recordNotFound(name, id)
	}

	return nil, dal.CollectionNotFound
}

func (self *MemoryBackend) Insert(ctx context.Context, name string, records *dal.RecordSet) error {
	c, ok := self.collection(name)

	if !ok {
		if self.conn.OptBool(`autoregister`, true) {
			self.RegisterCollection(dal.NewCollection(name))
			c, _ = self.collection(name)
		} else {
			return dal.CollectionNotFound
		}
	}

	for _, record := range records.Records {
		if record == nil {
			continue
		}

		c.definition.FillDefaults(record)

		if record.ID == nil || typeutil.IsZero(record.ID) {
			record.ID = uuid.New().String()
		}

		entry := &memoryEntry{
			seq:    atomic.AddInt64(&self.seq, 1),
			record: record.Project(),
		}

		if !c.records.SetIfAbsent(memoryKey(record.ID), entry) {
			return recordAlreadyExists(name, record.ID)
		}
	}

	return nil
}

func (self *MemoryBackend) Update(ctx context.Context, name string, records *dal.RecordSet) error {
	if c, ok := self.collection(name); ok {
		for _, record := range records.Records {
			if record == nil {
				continue
			} else if record.ID == nil {
				return fmt.Errorf("Cannot update record without an ID")
			}

			if existing, ok := c.get(record.ID); ok {
				c.records.Set(memoryKey(record.ID), &memoryEntry{
					seq:    existing.seq,
					record: record.Project(),
				})
			} else {
				return recordNotFound(name, record.ID)
			}
		}

		return nil
	}

	return dal.CollectionNotFound
}

func (self *MemoryBackend) Delete(ctx context.Context, name string, ids ...interface{}) error {
	if c, ok := self.collection(name); ok {
		for _, id := range ids {
			c.records.Remove(memoryKey(id))
		}

		return nil
	}

	return dal.CollectionNotFound
}

func (self *MemoryBackend) Find(ctx context.Context, name string, flt *filter.Filter) (*dal.RecordSet, error) {
	defer stats.NewTiming().Send(`refcheck.backends.memory.find_time`)

	c, ok := self.collection(name)

	if !ok {
		return nil, dal.CollectionNotFound
	} else if flt == nil {
		flt = filter.All()
	}

	entries := make([]*memoryEntry, 0)

	for _, item := range c.records.Items() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if entry, ok := item.(*memoryEntry); ok && flt.MatchesRecord(entry.record) {
			entries = append(entries, entry)
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].seq < entries[j].seq
	})

	if len(flt.Sort) > 0 {
		sort.SliceStable(entries, func(i, j int) bool {
			return lessBySortFields(entries[i].record, entries[j].record, flt.Sort)
		})
	}

	if flt.Offset > 0 {
		if flt.Offset >= len(entries) {
			entries = nil
		} else {
			entries = entries[flt.Offset:]
		}
	}

	if flt.Limit > 0 && len(entries) > flt.Limit {
		entries = entries[:flt.Limit]
	}

	results := dal.NewRecordSet()

	for _, entry := range entries {
		results.Push(entry.record.Project(flt.Fields...))
	}

	if typeutil.V(flt.Option(`autopopulate`, true)).Bool() {
		if err := PopulateRelationships(ctx, self, c.definition, results.Records...); err != nil {
			return nil, err
		}
	}

	return results, nil
}

func (self *MemoryBackend) Flush() error {
	return nil
}

func (self *MemoryBackend) collection(name string) (*memoryCollection, bool) {
	if cI, ok := self.collections.Get(name); ok {
		if c, ok := cI.(*memoryCollection); ok {
			return c, true
		}
	}

	return nil, false
}

func (self *memoryCollection) get(id interface{}) (*memoryEntry, bool) {
	if eI, ok := self.records.Get(memoryKey(id)); ok {
		if entry, ok := eI.(*memoryEntry); ok {
			return entry, true
		}
	}

	return nil, false
}

func memoryKey(id interface{}) string {
	return fmt.Sprintf("%v", id)
}

func lessBySortFields(a *dal.Record, b *dal.Record, fields []string) bool {
	for _, field := range fields {
		descending := strings.HasPrefix(field, `-`)
		field = strings.TrimPrefix(strings.TrimPrefix(field, `-`), `+`)

		av := fmt.Sprintf("%v", a.GetNested(field))
		bv := fmt.Sprintf("%v", b.GetNested(field))

		if av == bv {
			continue
		} else if descending {
			return av > bv
		} else {
			return av < bv
		}
	}

	return false
}
