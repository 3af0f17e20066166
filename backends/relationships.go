package backends

import (
	"context"

	"github.com/ghetzel/go-stockutil/log"
	"github.com/ghetzel/go-stockutil/sliceutil"
	"github.com/ghetzel/go-stockutil/typeutil"
	"github.com/ghetzel/refcheck/dal"
)

// Replace the identities stored in the autopopulated reference fields of each record with the records they
// refer to.  Identities that do not resolve to a record are left as they are.  Relationships from a
// collection to itself are not followed.
func PopulateRelationships(ctx context.Context, backend Backend, parent *dal.Collection, records ...*dal.Record) error {
	if parent == nil || len(records) == 0 {
		return nil
	}

	cache := make(map[string]map[string]interface{})

	for i := range parent.Fields {
		field := &parent.Fields[i]
		ref := field.GetRef()

		if !field.Autopopulate || ref == `` {
			continue
		}

		if ref == parent.Name {
			log.Debugf("not descending into %v to avoid loop", ref)
			continue
		}

		if _, err := backend.GetCollection(ref); err != nil {
			if dal.IsCollectionNotFoundErr(err) {
				log.Debugf("%v.%v: related collection %v is not registered", parent.Name, field.Name, ref)
				continue
			}

			return err
		}

		for _, record := range records {
			value := record.Get(field.Name)

			if value == nil {
				continue
			}

			if typeutil.IsArray(value) {
				populated := make([]interface{}, 0)

				for _, item := range sliceutil.Sliceify(value) {
					if related, err := resolveRelated(ctx, backend, ref, item, cache); err == nil {
						populated = append(populated, related)
					} else {
						return err
					}
				}

				record.Set(field.Name, populated)
			} else if related, err := resolveRelated(ctx, backend, ref, value, cache); err == nil {
				record.Set(field.Name, related)
			} else {
				return err
			}
		}
	}

	return nil
}

func resolveRelated(ctx context.Context, backend Backend, collection string, value interface{}, cache map[string]map[string]interface{}) (interface{}, error) {
	id := dal.IdentityOf(value)

	if id == nil || typeutil.IsZero(id) {
		return value, nil
	}

	key := collection + `:` + memoryKey(id)

	if data, ok := cache[key]; ok {
		return data, nil
	}

	if record, err := backend.Retrieve(ctx, collection, id); err == nil {
		data := record.Map()
		cache[key] = data
		return data, nil
	} else if dal.IsNotExistError(err) {
		log.Debugf("related record %v.%v is missing", collection, id)
		return value, nil
	} else {
		return nil, err
	}
}
