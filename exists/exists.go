// Package exists validates that the records referred to by reference fields are present in the
// collections they point to.
//
// A reference field opts in through its exists option, which may take any of these forms:
//
//	true
//	[true, "{PATH} must point to a real person"]
//	{"refresh": true, "select": "_id name", "match": "enabled/true", "options": {"maxTimeMS": 500}}
//	exists.Options{Refresh: true}
//
// Apply normalizes the option of every reference field in a collection and attaches a validator to each
// field that has existence checking enabled.
package exists

import (
	"fmt"

	"github.com/ghetzel/go-stockutil/log"
	"github.com/ghetzel/refcheck/dal"
)

const ValidatorKind = `exists`

// Attach existence validators to every qualifying field of the collection, including fields of embedded
// documents.  Applying the same collection more than once has no further effect.
func Apply(collection *dal.Collection, resolver Resolver) error {
	if collection == nil {
		return fmt.Errorf("exists: cannot apply to a nil collection")
	} else if resolver == nil {
		return fmt.Errorf("exists: a resolver is required")
	}

	for _, sp := range collection.EachPath() {
		field := sp.Field
		raw := field.Exists
		holder := field

		if raw == nil && field.Element != nil && field.Element.Exists != nil {
			raw = field.Element.Exists
			holder = field.Element
		}

		if raw == nil {
			continue
		}

		config := Normalize(raw)
		holder.Exists = config

		ref := field.GetRef()

		if ref == `` || !config.Exists {
			continue
		}

		if field.AddValidator(dal.FieldValidator{
			Kind:     ValidatorKind,
			Message:  config.Message,
			Validate: NewValidator(sp.Path, ref, config, resolver),
		}) {
			log.Debugf("exists: collection[%s] field %q now checks references to %s", collection.Name, sp.Path, ref)
		}
	}

	return nil
}

// Return a schema plugin that applies existence validation using the given resolver.
func Plugin(resolver Resolver) dal.SchemaPlugin {
	return func(collection *dal.Collection) error {
		return Apply(collection, resolver)
	}
}

// Return the normalized existence configuration of a field, and whether that field has existence
// checking enabled.
func ConfigOf(field *dal.Field) (Config, bool) {
	if field == nil {
		return DefaultConfig(), false
	}

	raw := field.Exists

	if raw == nil && field.Element != nil {
		raw = field.Element.Exists
	}

	config := Normalize(raw)
	return config, (config.Exists && field.IsReference())
}
