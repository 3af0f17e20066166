package dal

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/ghetzel/go-stockutil/log"
	"github.com/ghetzel/go-stockutil/typeutil"
)

var FieldNestingSeparator string = `.`

type Record struct {
	ID     interface{}            `json:"id"`
	Fields map[string]interface{} `json:"fields,omitempty"`
	Error  error                  `json:"error,omitempty"`
	lock   sync.RWMutex
}

func NewRecord(id interface{}) *Record {
	return &Record{
		ID:     id,
		Fields: make(map[string]interface{}),
	}
}

// Create a record from a map of values.  If the map contains a value for the given identity field
// (or for "id" if none is given), it becomes the record's ID.
func RecordFromMap(in map[string]interface{}, identityField ...string) *Record {
	idField := DefaultIdentityField

	if len(identityField) > 0 && identityField[0] != `` {
		idField = identityField[0]
	}

	record := NewRecord(nil)

	for k, v := range in {
		if k == idField {
			record.ID = v
		} else {
			record.Fields[k] = v
		}
	}

	return record
}

func (self *Record) init() {
	if self.Fields == nil {
		self.Fields = make(map[string]interface{})
	}
}

func (self *Record) Get(key string, fallback ...interface{}) interface{} {
	if key == DefaultIdentityField {
		return self.ID
	}

	self.lock.RLock()
	v, ok := self.Fields[key]
	self.lock.RUnlock()

	if ok {
		return v
	} else {
		return self.GetNested(key, fallback...)
	}
}

// Retrieve a value from a dot-separated path.  Numeric path components index into arrays.
func (self *Record) GetNested(key string, fallback ...interface{}) interface{} {
	if key == DefaultIdentityField {
		return self.ID
	}

	self.lock.RLock()
	defer self.lock.RUnlock()

	if v, ok := getIn(self.Fields, strings.Split(key, FieldNestingSeparator)); ok {
		return v
	} else if len(fallback) > 0 {
		return fallback[0]
	}

	return nil
}

func (self *Record) GetString(key string, fallback ...string) string {
	if v := self.Get(key); v == nil {
		if len(fallback) > 0 {
			return fallback[0]
		} else {
			return ``
		}
	} else {
		return fmt.Sprintf("%v", v)
	}
}

// Set a top-level field to the given value.
func (self *Record) Set(key string, value interface{}) *Record {
	self.lock.Lock()
	defer self.lock.Unlock()

	self.init()
	self.Fields[key] = value
	return self
}

// Set the value at a dot-separated path, creating intermediate objects as needed.
func (self *Record) SetNested(key string, value interface{}) *Record {
	if err := self.SetPath(key, value); err != nil {
		log.Warningf("record %v: %v", self.ID, err)
	}

	return self
}

// Same as SetNested, but returns an error if the path cannot be set (e.g.: it traverses a scalar value or
// indexes past the end of an array).
func (self *Record) SetPath(key string, value interface{}) error {
	if key == DefaultIdentityField {
		self.ID = value
		return nil
	}

	self.lock.Lock()
	defer self.lock.Unlock()

	self.init()

	if _, err := setIn(self.Fields, strings.Split(key, FieldNestingSeparator), value); err != nil {
		return fmt.Errorf("cannot set %q: %v", key, err)
	}

	return nil
}

// Expand a schema path into the concrete paths present in this record.  Every array encountered before
// the last path component is traversed, so "friends.person" becomes "friends.0.person",
// "friends.1.person", and so on.
func (self *Record) Expand(path string) []string {
	if path == DefaultIdentityField {
		return []string{path}
	}

	self.lock.RLock()
	defer self.lock.RUnlock()

	return expandIn(self.Fields, strings.Split(path, FieldNestingSeparator), nil)
}

// Return a map of the record's fields with the identity stored under the given key.
func (self *Record) Map(identityField ...string) map[string]interface{} {
	idField := DefaultIdentityField

	if len(identityField) > 0 && identityField[0] != `` {
		idField = identityField[0]
	}

	self.lock.RLock()
	defer self.lock.RUnlock()

	out := make(map[string]interface{})

	for k, v := range self.Fields {
		out[k] = v
	}

	if self.ID != nil {
		out[idField] = self.ID
	}

	return out
}

// Return a copy of this record containing only the named fields.  The identity is always retained.  An
// empty list of fields copies everything.
func (self *Record) Project(fields ...string) *Record {
	self.lock.RLock()
	defer self.lock.RUnlock()

	out := NewRecord(self.ID)

	for k, v := range self.Fields {
		if len(fields) == 0 {
			out.Fields[k] = v
			continue
		}

		for _, field := range fields {
			if field == k || strings.HasPrefix(field, k+FieldNestingSeparator) {
				out.Fields[k] = v
				break
			}
		}
	}

	return out
}

func getIn(container interface{}, parts []string) (interface{}, bool) {
	if len(parts) == 0 {
		return container, true
	}

	key := parts[0]

	switch c := container.(type) {
	case nil:
		return nil, false
	case map[string]interface{}:
		if v, ok := c[key]; ok {
			return getIn(v, parts[1:])
		}

		return nil, false
	case *Record:
		return getIn(c.Map(), parts)
	}

	rv := reflect.ValueOf(container)

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if i, err := strconv.Atoi(key); err == nil && i >= 0 && i < rv.Len() {
			return getIn(rv.Index(i).Interface(), parts[1:])
		}
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			if v := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key())); v.IsValid() {
				return getIn(v.Interface(), parts[1:])
			}
		}
	}

	return nil, false
}

func setIn(container interface{}, parts []string, value interface{}) (interface{}, error) {
	if len(parts) == 0 {
		return value, nil
	}

	key := parts[0]

	switch c := container.(type) {
	case nil:
		if v, err := setIn(nil, parts[1:], value); err == nil {
			return map[string]interface{}{
				key: v,
			}, nil
		} else {
			return nil, err
		}

	case map[string]interface{}:
		if v, err := setIn(c[key], parts[1:], value); err == nil {
			c[key] = v
			return c, nil
		} else {
			return nil, err
		}
	}

	rv := reflect.ValueOf(container)

	switch rv.Kind() {
	case reflect.Slice:
		i, err := strconv.Atoi(key)

		if err != nil {
			return nil, fmt.Errorf("cannot use key %q to index an array", key)
		} else if i < 0 || i >= rv.Len() {
			return nil, fmt.Errorf("index %d out of range", i)
		}

		elem := rv.Index(i)

		if v, err := setIn(elem.Interface(), parts[1:], value); err == nil {
			return container, assignTo(elem, v)
		} else {
			return nil, err
		}

	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			mapKey := reflect.ValueOf(key).Convert(rv.Type().Key())
			var current interface{}

			if existing := rv.MapIndex(mapKey); existing.IsValid() {
				current = existing.Interface()
			}

			if v, err := setIn(current, parts[1:], value); err == nil {
				nv := reflect.New(rv.Type().Elem()).Elem()

				if err := assignTo(nv, v); err != nil {
					return nil, err
				}

				rv.SetMapIndex(mapKey, nv)
				return container, nil
			} else {
				return nil, err
			}
		}
	}

	return nil, fmt.Errorf("cannot set key %q on %T", key, container)
}

func assignTo(dest reflect.Value, value interface{}) error {
	if value == nil {
		dest.Set(reflect.Zero(dest.Type()))
		return nil
	}

	nv := reflect.ValueOf(value)

	if nv.Type().AssignableTo(dest.Type()) {
		dest.Set(nv)
		return nil
	} else if nv.Type().ConvertibleTo(dest.Type()) {
		dest.Set(nv.Convert(dest.Type()))
		return nil
	}

	return fmt.Errorf("cannot assign %T to %v", value, dest.Type())
}

func expandIn(container interface{}, parts []string, prefix []string) []string {
	if len(parts) == 0 {
		return []string{strings.Join(prefix, FieldNestingSeparator)}
	}

	if typeutil.IsArray(container) {
		if _, err := strconv.Atoi(parts[0]); err != nil {
			paths := make([]string, 0)
			rv := reflect.ValueOf(container)

			for i := 0; i < rv.Len(); i++ {
				paths = append(paths, expandIn(
					rv.Index(i).Interface(),
					parts,
					append(append([]string{}, prefix...), strconv.Itoa(i)),
				)...)
			}

			return paths
		}
	}

	next, _ := getIn(container, parts[:1])

	return expandIn(next, parts[1:], append(append([]string{}, prefix...), parts[0]))
}
