package exists

import (
	"fmt"
	"reflect"

	mapset "github.com/deckarep/golang-set"
	"github.com/ghetzel/go-stockutil/sliceutil"
	"github.com/ghetzel/go-stockutil/typeutil"
	"github.com/ghetzel/refcheck/dal"
	"github.com/ghetzel/refcheck/filter"
)

// Reduce a submitted field value to the ordered, de-duplicated identifiers it references.  The second
// return value reports whether the value was a collection.
func CandidateIDs(value interface{}) ([]interface{}, bool) {
	isArray := typeutil.IsArray(value)
	ids := make([]interface{}, 0)
	seen := mapset.NewThreadUnsafeSet()
	items := make([]interface{}, 0)

	if isArray {
		items = sliceutil.Sliceify(value)
	} else if value != nil {
		items = append(items, value)
	}

	for _, item := range items {
		id := dal.IdentityOf(item)

		if id == nil {
			continue
		} else if s, ok := id.(string); ok && s == `` {
			continue
		}

		if seen.Add(setKey(id)) {
			ids = append(ids, id)
		}
	}

	return ids, isArray
}

// Build the query used to check the given identifiers.  In default mode the identifiers are ignored and
// the configured match filter is used on its own.
func BuildQuery(ids []interface{}, config Config) *filter.Filter {
	var flt *filter.Filter

	if config.Default {
		flt = config.Match.Copy()
	} else {
		flt = filter.New(filter.Criterion{
			Field:  dal.DefaultIdentityField,
			Values: append([]interface{}{}, ids...),
		})

		if !config.Match.IsMatchAll() {
			flt = flt.And(config.Match)
		}
	}

	if len(config.Select) > 0 {
		flt.Fields = append([]string{}, config.Select...)
	} else {
		flt.Fields = append([]string{}, DefaultSelect...)
	}

	flt.Options = DefaultQueryOptions()

	for k, v := range config.Options {
		flt.Options[k] = v
	}

	flt.Options[AutopopulateOption] = false
	return flt
}

func setKey(id interface{}) interface{} {
	if reflect.TypeOf(id).Comparable() {
		return id
	}

	return fmt.Sprintf("%T:%v", id, id)
}
