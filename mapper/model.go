package mapper

// The mapper package provides a simplified, high-level interface for
// interacting with database objects.  Every write is validated against
// the collection's schema before it reaches the backend.

import (
	"context"
	"fmt"

	"github.com/ghetzel/go-stockutil/log"
	"github.com/ghetzel/go-stockutil/sliceutil"
	"github.com/ghetzel/go-stockutil/typeutil"
	"github.com/ghetzel/refcheck/backends"
	"github.com/ghetzel/refcheck/dal"
	"github.com/ghetzel/refcheck/filter"
)

type Mapper interface {
	GetBackend() backends.Backend
	GetCollection() *dal.Collection
	Validate(ctx context.Context, from interface{}) (*dal.Record, error)
	Exists(ctx context.Context, id interface{}) bool
	Create(ctx context.Context, from interface{}) (*dal.Record, error)
	Get(ctx context.Context, id interface{}, fields ...string) (*dal.Record, error)
	Update(ctx context.Context, from interface{}) (*dal.Record, error)
	CreateOrUpdate(ctx context.Context, id interface{}, from interface{}) (*dal.Record, error)
	Delete(ctx context.Context, ids ...interface{}) error
	Find(ctx context.Context, flt interface{}) (*dal.RecordSet, error)
	All(ctx context.Context) (*dal.RecordSet, error)
}

type Model struct {
	Mapper
	db         backends.Backend
	collection *dal.Collection
}

func NewModel(db backends.Backend, collection *dal.Collection) *Model {
	model := new(Model)

	model.db = db
	model.collection = collection

	if model.collection.Fields == nil {
		model.collection.Fields = make([]dal.Field, 0)
	}

	if v := collection.IdentityField; v == `` {
		model.collection.IdentityField = dal.DefaultIdentityField
	}

	db.RegisterCollection(collection)

	return model
}

func (self *Model) GetBackend() backends.Backend {
	return self.db
}

func (self *Model) GetCollection() *dal.Collection {
	return self.collection
}

// Builds a record from the given struct, map, or dal.Record and runs every validator attached to the
// collection against it.  Validators that refresh their values leave the refreshed values in the
// returned record.
//
func (self *Model) Validate(ctx context.Context, from interface{}) (*dal.Record, error) {
	if record, err := self.collection.MakeRecord(from); err == nil {
		if err := self.collection.ValidateRecord(ctx, record); err == nil {
			return record, nil
		} else {
			return record, err
		}
	} else {
		return nil, err
	}
}

// Tests whether a record exists for the given ID.
//
func (self *Model) Exists(ctx context.Context, id interface{}) bool {
	return self.db.Exists(ctx, self.collection.Name, id)
}

// Validates and saves a new instance of the model from the given struct, map, or dal.Record.  Reference
// fields are always stored as identities, even if validation replaced them with the records they refer
// to.  The validated record is returned.
//
func (self *Model) Create(ctx context.Context, from interface{}) (*dal.Record, error) {
	if record, err := self.Validate(ctx, from); err == nil {
		stored := self.storable(record)

		if err := self.db.Insert(ctx, self.collection.Name, dal.NewRecordSet(stored)); err == nil {
			record.ID = stored.ID
			return record, nil
		} else {
			return nil, err
		}
	} else {
		return nil, err
	}
}

// Retrieves the record identified by the given ID.
//
func (self *Model) Get(ctx context.Context, id interface{}, fields ...string) (*dal.Record, error) {
	return self.db.Retrieve(ctx, self.collection.Name, id, fields...)
}

// Validates and saves an existing instance of the model from the given struct, map, or dal.Record.
//
func (self *Model) Update(ctx context.Context, from interface{}) (*dal.Record, error) {
	if record, err := self.Validate(ctx, from); err == nil {
		if record.ID == nil {
			return nil, fmt.Errorf("cannot update %s record without an ID", self.collection.Name)
		}

		if err := self.db.Update(ctx, self.collection.Name, dal.NewRecordSet(self.storable(record))); err == nil {
			return record, nil
		} else {
			return nil, err
		}
	} else {
		return nil, err
	}
}

// Creates or updates an instance of the model depending on whether it exists or not.
//
func (self *Model) CreateOrUpdate(ctx context.Context, id interface{}, from interface{}) (*dal.Record, error) {
	if id == nil || !self.Exists(ctx, id) {
		return self.Create(ctx, from)
	} else {
		return self.Update(ctx, from)
	}
}

// Delete instances of the model identified by the given IDs
//
func (self *Model) Delete(ctx context.Context, ids ...interface{}) error {
	return self.db.Delete(ctx, self.collection.Name, ids...)
}

// Perform a query for instances of the model that match the given filter.Filter, filter string, or map
// of field values.
//
func (self *Model) Find(ctx context.Context, flt interface{}) (*dal.RecordSet, error) {
	if f, err := self.filterFromInterface(flt); err == nil {
		f.IdentityField = self.collection.GetIdentityFieldName()
		return self.db.Find(ctx, self.collection.Name, f)
	} else {
		return nil, err
	}
}

func (self *Model) All(ctx context.Context) (*dal.RecordSet, error) {
	return self.Find(ctx, filter.All())
}

func (self *Model) filterFromInterface(in interface{}) (*filter.Filter, error) {
	if f, ok := in.(filter.Filter); ok {
		return f.Copy(), nil
	} else if f, ok := in.(*filter.Filter); ok {
		if f == nil {
			return filter.All(), nil
		}

		return f.Copy(), nil
	} else if fMap, ok := in.(map[string]interface{}); ok {
		return filter.FromMap(fMap)
	} else if fStr, ok := in.(string); ok {
		return filter.Parse(fStr)
	} else if in == nil {
		return filter.All(), nil
	} else {
		return nil, fmt.Errorf("Expected filter.Filter, map[string]interface{}, or string; got: %T", in)
	}
}

// Return a copy of the record in which every reference field holds identities rather than records.
func (self *Model) storable(record *dal.Record) *dal.Record {
	stored := record.Project()

	for _, field := range self.collection.Fields {
		if value, ok := stored.Fields[field.Name]; ok {
			stored.Fields[field.Name] = depopulate(&field, value)
		}
	}

	return stored
}

func depopulate(field *dal.Field, value interface{}) interface{} {
	if value == nil {
		return nil
	}

	if field.IsReference() {
		if typeutil.IsArray(value) {
			ids := make([]interface{}, 0)

			for _, item := range sliceutil.Sliceify(value) {
				ids = append(ids, dal.IdentityOf(item))
			}

			return ids
		}

		return dal.IdentityOf(value)
	}

	embedded := field.EmbeddedFields()

	if len(embedded) == 0 {
		return value
	}

	if typeutil.IsArray(value) {
		items := make([]interface{}, 0)

		for _, item := range sliceutil.Sliceify(value) {
			items = append(items, depopulateDocument(embedded, item))
		}

		return items
	}

	return depopulateDocument(embedded, value)
}

func depopulateDocument(fields []dal.Field, value interface{}) interface{} {
	if doc, ok := value.(map[string]interface{}); ok {
		out := make(map[string]interface{})

		for k, v := range doc {
			out[k] = v
		}

		for i := range fields {
			if v, ok := out[fields[i].Name]; ok {
				out[fields[i].Name] = depopulate(&fields[i], v)
			}
		}

		return out
	}

	log.Debugf("mapper: not descending into embedded value of type %T", value)
	return value
}
