package dal

import (
	"fmt"
)

type Field struct {
	// The name of the field within its collection (or within the embedded document it belongs to).
	Name string `json:"name"`

	Description string `json:"description,omitempty"`

	// The datatype of the field.
	Type Type `json:"type"`

	// Whether the field must have a non-empty value when records are validated.
	Required bool `json:"required,omitempty"`

	// A value to use when the record being created does not specify one.
	DefaultValue interface{} `json:"default,omitempty"`

	// The name of the collection that values of this field refer to.  A field with a Ref is a reference
	// field: its value is the identity (or list of identities) of records in that collection.
	Ref string `json:"ref,omitempty"`

	// Existence checking options for reference fields.  This may be a boolean, a [enabled, message]
	// pair, or an object of options.  See the exists package for details.
	Exists interface{} `json:"exists,omitempty"`

	// Whether backends should replace this field's identities with the records they refer to when
	// returning query results.
	Autopopulate bool `json:"autopopulate,omitempty"`

	// For array fields, describes the elements of the array.
	Element *Field `json:"element,omitempty"`

	// For embedded documents, the fields of the embedded schema.
	Fields []Field `json:"fields,omitempty"`

	// Validators that are run against this field's value(s) when records are validated.
	Validators []FieldValidator `json:"-"`
}

// Returns the name of the collection this field refers to, considering the element definition of array
// fields if the field itself has none.
func (self *Field) GetRef() string {
	if self.Ref != `` {
		return self.Ref
	} else if self.Element != nil {
		return self.Element.Ref
	}

	return ``
}

// Returns whether the field is a reference to records in another collection.
func (self *Field) IsReference() bool {
	return (self.GetRef() != ``)
}

// Returns whether the field holds more than one value.
func (self *Field) IsArray() bool {
	return (self.Type.IsArray() || self.Element != nil)
}

// Returns the embedded schema of this field (or of its elements), if any.
func (self *Field) EmbeddedFields() []Field {
	if len(self.Fields) > 0 {
		return self.Fields
	} else if self.Element != nil {
		return self.Element.Fields
	}

	return nil
}

// Returns whether a validator of the given kind is already attached to this field.
func (self *Field) HasValidator(kind string) bool {
	for _, validator := range self.Validators {
		if validator.Kind == kind {
			return true
		}
	}

	return false
}

// Attach a validator to this field.  A field holds at most one validator of each kind; adding another
// validator of a kind that is already present does nothing and returns false.
func (self *Field) AddValidator(validator FieldValidator) bool {
	if validator.Validate == nil || self.HasValidator(validator.Kind) {
		return false
	}

	self.Validators = append(self.Validators, validator)
	return true
}

func (self *Field) GetDefaultValue() interface{} {
	if fn, ok := self.DefaultValue.(func() interface{}); ok {
		return fn()
	}

	return self.DefaultValue
}

func (self *Field) check(path string) error {
	if self.Name == `` {
		return fmt.Errorf("field under %q cannot have an empty name", path)
	}

	if self.Type != `` && ParseFieldType(string(self.Type)) == `` {
		return fmt.Errorf("field %q: invalid type %q", path, self.Type)
	}

	return nil
}
