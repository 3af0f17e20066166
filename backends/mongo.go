package backends

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ghetzel/go-stockutil/log"
	"github.com/ghetzel/go-stockutil/maputil"
	"github.com/ghetzel/go-stockutil/sliceutil"
	"github.com/ghetzel/go-stockutil/stringutil"
	"github.com/ghetzel/go-stockutil/typeutil"
	"github.com/ghetzel/refcheck/dal"
	"github.com/ghetzel/refcheck/filter"
	"github.com/ghetzel/refcheck/filter/generators"
	"gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"
)

var DefaultConnectTimeout = 10 * time.Second
var MongoIdentityField = `_id`

type MongoBackend struct {
	conn                  *dal.ConnectionString
	registeredCollections sync.Map
	session               *mgo.Session
	dbname                string
}

func NewMongoBackend(connection dal.ConnectionString) *MongoBackend {
	return &MongoBackend{
		conn: &connection,
	}
}

func (self *MongoBackend) String() string {
	return `mongodb`
}

func (self *MongoBackend) Initialize() error {
	cstring := fmt.Sprintf("%s://%s/%s", self.conn.Backend(), self.conn.Host(), self.conn.Dataset())

	if session, err := mgo.DialWithTimeout(cstring, DefaultConnectTimeout); err == nil {
		self.session = session
		self.dbname = self.conn.Dataset()

		if u, p, ok := self.conn.Credentials(); ok {
			credentials := &mgo.Credential{
				Username:    u,
				Password:    p,
				Source:      self.conn.OptString(`authdb`, ``),
				Service:     self.conn.OptString(`authService`, ``),
				ServiceHost: self.conn.OptString(`authHost`, ``),
			}

			switch self.conn.Protocol() {
			case `scram`, `scram-sha1`:
				credentials.Mechanism = `SCRAM-SHA-1`
			case `cr`:
				credentials.Mechanism = `MONGODB-CR`
			}

			if err := self.session.Login(credentials); err != nil {
				return fmt.Errorf("auth failed: %v", err)
			}
		}

		if self.conn.OptBool(`autoregister`, DefaultAutoregister) {
			if names, err := session.DB(self.dbname).CollectionNames(); err == nil {
				for _, name := range names {
					if !strings.HasPrefix(name, `system.`) {
						self.RegisterCollection(dal.NewCollection(name))
					}
				}
			} else {
				return err
			}
		}

		return nil
	} else {
		return err
	}
}

func (self *MongoBackend) RegisterCollection(collection *dal.Collection) {
	if collection != nil {
		self.registeredCollections.Store(collection.Name, collection)
		log.Debugf("[%v] register collection %v", self, collection.Name)
	}
}

func (self *MongoBackend) GetConnectionString() *dal.ConnectionString {
	return self.conn
}

func (self *MongoBackend) GetCollection(name string) (*dal.Collection, error) {
	if cI, ok := self.registeredCollections.Load(name); ok {
		if collection, ok := cI.(*dal.Collection); ok {
			return collection, nil
		} else {
			return nil, fmt.Errorf("Collection type error: got %T, want *dal.Collection", cI)
		}
	} else {
		return nil, dal.CollectionNotFound
	}
}

func (self *MongoBackend) ListCollections() ([]string, error) {
	return maputil.StringKeys(&self.registeredCollections), nil
}

func (self *MongoBackend) Exists(ctx context.Context, name string, id interface{}) bool {
	if collection, err := self.GetCollection(name); err == nil {
		if err := self.withCollection(collection.Name, func(c *mgo.Collection) error {
			if n, err := c.FindId(self.getId(id)).Count(); err == nil && n == 1 {
				return nil
			} else if err != nil {
				return err
			}

			return mgo.ErrNotFound
		}); err == nil {
			return true
		}
	}

	return false
}

func (self *MongoBackend) Retrieve(ctx context.Context, name string, id interface{}, fields ...string) (*dal.Record, error) {
	if collection, err := self.GetCollection(name); err == nil {
		var data map[string]interface{}

		if err := self.withCollection(collection.Name, func(c *mgo.Collection) error {
			query := c.FindId(self.getId(id))

			if projection := mongoProjection(fields); projection != nil {
				query = query.Select(projection)
			}

			return query.One(&data)
		}); err == nil {
			return self.recordFromResult(data)
		} else if err == mgo.ErrNotFound {
			return nil, recordNotFound(name, id)
		} else {
			return nil, err
		}
	} else {
		return nil, err
	}
}

func (self *MongoBackend) Insert(ctx context.Context, name string, records *dal.RecordSet) error {
	if collection, err := self.GetCollection(name); err == nil {
		return self.withCollection(collection.Name, func(c *mgo.Collection) error {
			for _, record := range records.Records {
				if _, err := collection.MakeRecord(record); err == nil {
					data := record.Map(MongoIdentityField)

					if record.ID != nil {
						data[MongoIdentityField] = self.getId(record.ID)
					} else {
						id := bson.NewObjectId()
						data[MongoIdentityField] = id
						record.ID = id.Hex()
					}

					if err := c.Insert(&data); err != nil {
						if mgo.IsDup(err) {
							return recordAlreadyExists(name, record.ID)
						}

						return err
					}
				} else {
					return err
				}
			}

			return nil
		})
	} else {
		return err
	}
}

func (self *MongoBackend) Update(ctx context.Context, name string, records *dal.RecordSet) error {
	if collection, err := self.GetCollection(name); err == nil {
		return self.withCollection(collection.Name, func(c *mgo.Collection) error {
			for _, record := range records.Records {
				if record.ID == nil {
					return fmt.Errorf("Cannot update record without an ID")
				} else if err := c.UpdateId(self.getId(record.ID), record.Fields); err != nil {
					if err == mgo.ErrNotFound {
						return recordNotFound(name, record.ID)
					}

					return err
				}
			}

			return nil
		})
	} else {
		return err
	}
}

func (self *MongoBackend) Delete(ctx context.Context, name string, ids ...interface{}) error {
	if collection, err := self.GetCollection(name); err == nil {
		return self.withCollection(collection.Name, func(c *mgo.Collection) error {
			for _, id := range ids {
				if err := c.RemoveId(self.getId(id)); err != nil && err != mgo.ErrNotFound {
					return err
				}
			}

			return nil
		})
	} else {
		return err
	}
}

// Run the filter against the named collection.  The query options "maxTimeMS", "comment" and "batchSize"
// are passed on to the server; a deadline on the context also bounds the server-side execution time.
func (self *MongoBackend) Find(ctx context.Context, name string, flt *filter.Filter) (*dal.RecordSet, error) {
	defer stats.NewTiming().Send(`refcheck.backends.mongodb.find_time`)

	collection, err := self.GetCollection(name)

	if err != nil {
		return nil, err
	} else if flt == nil {
		flt = filter.All()
	}

	gen := generators.NewMongoDBGenerator()
	gen.FormatValue = func(field string, value interface{}) interface{} {
		if field == MongoIdentityField {
			return self.getId(value)
		}

		return value
	}

	if _, err := filter.Render(gen, collection.Name, flt); err != nil {
		return nil, err
	}

	results := dal.NewRecordSet()

	if err := self.withCollection(collection.Name, func(c *mgo.Collection) error {
		query := c.Find(bson.M(gen.Query()))

		if projection := gen.Projection(); projection != nil {
			query = query.Select(bson.M(projection))
		}

		if len(flt.Sort) > 0 {
			sorts := make([]string, len(flt.Sort))

			for i, field := range flt.Sort {
				if strings.TrimPrefix(field, `-`) == dal.DefaultIdentityField {
					field = strings.Replace(field, dal.DefaultIdentityField, MongoIdentityField, 1)
				}

				sorts[i] = field
			}

			query = query.Sort(sorts...)
		}

		if flt.Offset > 0 {
			query = query.Skip(flt.Offset)
		}

		if flt.Limit > 0 {
			query = query.Limit(flt.Limit)
		}

		options := gen.Options()

		if v, ok := options[`maxTimeMS`]; ok {
			if ms, err := stringutil.ConvertToInteger(v); err == nil && ms > 0 {
				query = query.SetMaxTime(time.Duration(ms) * time.Millisecond)
			}
		} else if deadline, ok := ctx.Deadline(); ok {
			if remaining := time.Until(deadline); remaining > 0 {
				query = query.SetMaxTime(remaining)
			} else {
				return context.DeadlineExceeded
			}
		}

		if v, ok := options[`comment`]; ok {
			if comment, err := stringutil.ConvertToString(v); err == nil {
				query = query.Comment(comment)
			}
		}

		if v, ok := options[`batchSize`]; ok {
			if n, err := stringutil.ConvertToInteger(v); err == nil && n > 0 {
				query = query.Batch(int(n))
			}
		}

		iter := query.Iter()
		var data map[string]interface{}

		for iter.Next(&data) {
			if err := ctx.Err(); err != nil {
				iter.Close()
				return err
			}

			if record, err := self.recordFromResult(data); err == nil {
				results.Push(record)
			} else {
				iter.Close()
				return err
			}

			data = nil
		}

		return iter.Close()
	}); err != nil {
		return nil, err
	}

	if typeutil.V(flt.Option(`autopopulate`, true)).Bool() {
		if err := PopulateRelationships(ctx, self, collection, results.Records...); err != nil {
			return nil, err
		}
	}

	return results, nil
}

func (self *MongoBackend) Flush() error {
	return nil
}

func (self *MongoBackend) withCollection(name string, fn func(c *mgo.Collection) error) error {
	if self.session == nil {
		return fmt.Errorf("backend %v is not initialized", self)
	}

	session := self.session.Copy()
	defer session.Close()

	return fn(session.DB(self.dbname).C(name))
}

func (self *MongoBackend) recordFromResult(data map[string]interface{}) (*dal.Record, error) {
	if dataId, ok := data[MongoIdentityField]; ok {
		record := dal.NewRecord(self.fromId(dataId))

		for k, v := range data {
			if k != MongoIdentityField {
				record.Set(k, self.fromId(v))
			}
		}

		return record, nil
	} else {
		return nil, fmt.Errorf("Could not locate identity field %s", MongoIdentityField)
	}
}

func (self *MongoBackend) getId(in interface{}) interface{} {
	switch v := in.(type) {
	case string:
		if bson.IsObjectIdHex(v) {
			return bson.ObjectIdHex(v)
		}
	}

	return in
}

// Convert values decoded by the driver into plain values: ObjectIds become hex strings, and nested
// documents become maps.
func (self *MongoBackend) fromId(in interface{}) interface{} {
	switch v := in.(type) {
	case bson.ObjectId:
		return v.Hex()
	case bson.M:
		return self.fromId(map[string]interface{}(v))
	case map[string]interface{}:
		out := make(map[string]interface{})

		for k, vv := range v {
			out[k] = self.fromId(vv)
		}

		return out
	case []interface{}:
		out := make([]interface{}, len(v))

		for i, vv := range v {
			out[i] = self.fromId(vv)
		}

		return out
	}

	return in
}

func mongoProjection(fields []string) bson.M {
	if len(fields) == 0 {
		return nil
	}

	projection := bson.M{}

	for _, field := range sliceutil.CompactString(fields) {
		if field == dal.DefaultIdentityField {
			field = MongoIdentityField
		}

		projection[field] = 1
	}

	return projection
}
