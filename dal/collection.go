package dal

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ghetzel/go-stockutil/log"
	"golang.org/x/sync/errgroup"
)

// A SchemaPlugin modifies a collection definition, typically to attach validators to its fields.
type SchemaPlugin func(collection *Collection) error

// One path in a collection's schema.  Field points into the collection definition, so changes made to it
// (e.g.: attaching validators) are retained by the collection.
type SchemaPath struct {
	Path   string
	Parent string
	Field  *Field
}

type Collection struct {
	// The name of the collection
	Name string `json:"name"`

	// The name of the identity field for this Collection.  Defaults to "id".
	IdentityField string `json:"identity_field,omitempty"`

	// The fields that belong to this collection (all except the identity field)
	Fields []Field `json:"fields"`

	// Specify whether records may be written to this collection without passing field validation.
	SkipValidation bool `json:"skip_validation,omitempty"`
}

// Create a new colllection definition with the given fields.
func NewCollection(name string, fields ...Field) *Collection {
	if len(fields) == 0 {
		fields = make([]Field, 0)
	}

	return &Collection{
		Name:          name,
		Fields:        fields,
		IdentityField: DefaultIdentityField,
	}
}

// Get the canonical name of the primary identity field.
func (self *Collection) GetIdentityFieldName() string {
	if self.IdentityField == `` {
		return DefaultIdentityField
	} else {
		return self.IdentityField
	}
}

// Append a field definition to this collection.
func (self *Collection) AddFields(fields ...Field) *Collection {
	self.Fields = append(self.Fields, fields...)
	return self
}

// Retrieve a single field by its (possibly nested) path.  The second return value will be false if the
// field does not exist.
func (self *Collection) GetField(path string) (*Field, bool) {
	for _, sp := range self.EachPath() {
		if sp.Path == path {
			return sp.Field, true
		}
	}

	return nil, false
}

// Return every path in this collection's schema, descending into embedded documents and arrays of
// embedded documents.  Nested paths are qualified with their parent's path.
func (self *Collection) EachPath() []SchemaPath {
	return eachPath(self.Fields, ``)
}

func eachPath(fields []Field, parent string) []SchemaPath {
	paths := make([]SchemaPath, 0, len(fields))

	for i := range fields {
		field := &fields[i]
		path := field.Name

		if parent != `` {
			path = parent + FieldNestingSeparator + field.Name
		}

		paths = append(paths, SchemaPath{
			Path:   path,
			Parent: parent,
			Field:  field,
		})

		if embedded := field.EmbeddedFields(); len(embedded) > 0 {
			paths = append(paths, eachPath(embedded, path)...)
		}
	}

	return paths
}

// Apply the given plugins to this collection, stopping at the first error.
func (self *Collection) Plugin(plugins ...SchemaPlugin) error {
	for _, plugin := range plugins {
		if plugin == nil {
			continue
		}

		if err := plugin(self); err != nil {
			return fmt.Errorf("collection[%s]: %v", self.Name, err)
		}
	}

	return nil
}

// Populate a given Record with the default values (if any) of all top-level fields in the Collection.
func (self *Collection) FillDefaults(record *Record) {
	for i := range self.Fields {
		field := &self.Fields[i]

		if field.DefaultValue != nil {
			if record.Get(field.Name) == nil {
				record.Set(field.Name, field.GetDefaultValue())
			}
		}
	}
}

// Generates a Record from the given *Record, map, or struct, filling in default values.
func (self *Collection) MakeRecord(in interface{}) (*Record, error) {
	var record *Record

	switch v := in.(type) {
	case *Record:
		record = v
	case map[string]interface{}:
		record = RecordFromMap(v, self.GetIdentityFieldName())
	default:
		if r, err := StructToRecord(in); err == nil {
			record = r
		} else {
			return nil, err
		}
	}

	self.FillDefaults(record)
	return record, nil
}

// Validate the given record against every validator attached to the fields of this collection.  All
// validators are run concurrently; a validator may update the value of the path it is validating, but
// no other.
//
// If any validator fails to run, the first such error is returned as-is.  Otherwise, if any field is
// invalid, a *ValidationError describing every invalid field is returned.
func (self *Collection) ValidateRecord(ctx context.Context, record *Record) error {
	if record == nil {
		return fmt.Errorf("cannot validate nil record")
	}

	if self.SkipValidation {
		return nil
	}

	var lock sync.Mutex
	verr := &ValidationError{
		Collection: self.Name,
	}

	group, gctx := errgroup.WithContext(ctx)

	for _, sp := range self.EachPath() {
		validators := sp.Field.Validators

		if sp.Field.Required {
			validators = append([]FieldValidator{{
				Kind:     RequiredValidator,
				Message:  DefaultRequiredMessage,
				Validate: validateRequired,
			}}, validators...)
		}

		if len(validators) == 0 {
			continue
		}

		for _, path := range record.Expand(sp.Path) {
			value := record.GetNested(path)

			for _, validator := range validators {
				path := path
				validator := validator

				group.Go(func() error {
					ok, err := validator.Validate(gctx, value, NewFieldTarget(record, path))

					if err != nil {
						return err
					} else if !ok {
						log.Debugf("collection[%s] field %q failed %s validation", self.Name, path, validator.Kind)

						lock.Lock()
						defer lock.Unlock()

						verr.push(FieldError{
							Path:    path,
							Kind:    validator.Kind,
							Value:   value,
							Message: FormatMessage(validator.Message, path, value),
						})
					}

					return nil
				})
			}
		}
	}

	if err := group.Wait(); err != nil {
		return err
	} else if len(verr.Errors) > 0 {
		return verr
	}

	return nil
}

// Verifies that the schema passes some basic sanity checks.
func (self *Collection) Check() error {
	var merr error

	if strings.TrimSpace(self.Name) == `` {
		merr = log.AppendError(merr, fmt.Errorf("collection name cannot be empty"))
	}

	for _, sp := range self.EachPath() {
		if err := sp.Field.check(sp.Parent); err != nil {
			merr = log.AppendError(merr, fmt.Errorf("collection[%s] %v", self.Name, err))
		}
	}

	return merr
}
