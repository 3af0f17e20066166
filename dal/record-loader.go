package dal

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/fatih/structs"
	"github.com/ghetzel/go-stockutil/sliceutil"
	"github.com/ghetzel/go-stockutil/typeutil"
)

var RecordStructTag = `refcheck`
var DefaultIdentityField = `id`
var AlternateIdentityFields = []string{`_id`, `ID`}

// Return the identity of a value that represents a record.  Records yield their ID, maps yield the value of
// their identity key ("id", then "_id"), and structs yield the value of their identity field.  All other
// values are considered to be identities themselves and are returned as-is.
func IdentityOf(in interface{}) interface{} {
	switch v := in.(type) {
	case nil:
		return nil
	case *Record:
		return v.ID
	case map[string]interface{}:
		for _, key := range append([]string{DefaultIdentityField}, AlternateIdentityFields...) {
			if id, ok := v[key]; ok && id != nil {
				return id
			}
		}

		return in
	}

	if validatePtrToStructType(in) == nil {
		if name, err := GetIdentityFieldName(in); err == nil {
			if field, ok := structs.New(in).FieldOk(name); ok {
				return field.Value()
			}
		}
	}

	return in
}

// Return the name of the struct field that holds the given struct's identity: the first field tagged
// with ",identity", or a field named "ID".
func GetIdentityFieldName(instance interface{}) (string, error) {
	if err := validatePtrToStructType(instance); err != nil {
		return ``, err
	}

	s := structs.New(instance)

	// find a field with an ",identity" tag and get its value
	for _, field := range s.Fields() {
		if tag := field.Tag(RecordStructTag); tag != `` {
			v := strings.Split(tag, `,`)

			if sliceutil.ContainsString(v[1:], `identity`) {
				return field.Name(), nil
			}
		}
	}

	if _, ok := s.FieldOk(`ID`); ok {
		return `ID`, nil
	}

	return ``, fmt.Errorf("No identity field could be found for type %T", instance)
}

// Generate a Record from the exported fields of a struct.  Field names are taken from the struct tag (if
// present), fields tagged with "-" are skipped, and zero-valued fields tagged "omitempty" are left out.
func StructToRecord(instance interface{}) (*Record, error) {
	if err := validatePtrToStructType(instance); err != nil {
		return nil, err
	}

	idFieldName, _ := GetIdentityFieldName(instance)
	record := NewRecord(nil)

	for _, field := range structs.New(instance).Fields() {
		if !field.IsExported() {
			continue
		}

		name := field.Name()
		var omitEmpty bool

		if tag := field.Tag(RecordStructTag); tag != `` {
			v := strings.Split(tag, `,`)

			if v[0] == `-` {
				continue
			} else if v[0] != `` {
				name = v[0]
			}

			omitEmpty = sliceutil.ContainsString(v[1:], `omitempty`)
		}

		value := field.Value()

		if field.Name() == idFieldName {
			if !typeutil.IsZero(value) {
				record.ID = value
			}

			continue
		}

		if omitEmpty && field.IsZero() && field.Kind() != reflect.Bool {
			continue
		}

		record.Set(name, value)
	}

	return record, nil
}

func validatePtrToStructType(instance interface{}) error {
	vInstance := reflect.ValueOf(instance)

	if vInstance.IsValid() {
		if vInstance.Kind() == reflect.Ptr {
			vInstance = vInstance.Elem()
		}

		if vInstance.Kind() == reflect.Struct {
			return nil
		}
	} else {
		return fmt.Errorf("invalid value %T", instance)
	}

	return fmt.Errorf("Can only operate on pointer to struct, got %T", instance)
}
