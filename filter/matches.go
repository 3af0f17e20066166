package filter

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/ghetzel/go-stockutil/sliceutil"
	"github.com/ghetzel/go-stockutil/stringutil"
	"github.com/ghetzel/go-stockutil/typeutil"
)

// Anything that can yield field values by (possibly nested) name.
type Getter interface {
	GetNested(key string, fallback ...interface{}) interface{}
}

// Return whether the given record satisfies every criterion of this filter.  Records holding an array at
// a criterion's field match if any element of that array satisfies the criterion.
func (self *Filter) MatchesRecord(record Getter) bool {
	if self.IsMatchAll() {
		return true
	}

	if record == nil || (reflect.ValueOf(record).Kind() == reflect.Ptr && reflect.ValueOf(record).IsNil()) {
		return false
	}

	for _, criterion := range self.Criteria {
		field := criterion.Field

		if field == self.identityField() {
			field = `id`
		}

		if !criterion.Matches(record.GetNested(field)) {
			return false
		}
	}

	return true
}

// Return whether a single value satisfies this criterion.
func (self Criterion) Matches(value interface{}) bool {
	if typeutil.IsArray(value) {
		negated := (self.Operator == `not`)

		for _, item := range sliceutil.Sliceify(value) {
			matched := self.matchOne(item)

			if negated && !matched {
				return false
			} else if !negated && matched {
				return true
			}
		}

		return negated
	}

	return self.matchOne(value)
}

func (self Criterion) matchOne(value interface{}) bool {
	if !self.typeMatches(value) {
		return false
	}

	switch self.Operator {
	case ``, `is`:
		for _, want := range self.Values {
			if valuesEqual(want, value) {
				return true
			}
		}

		return false

	case `not`:
		for _, want := range self.Values {
			if valuesEqual(want, value) {
				return false
			}
		}

		return true

	case `gt`, `gte`, `lt`, `lte`:
		if len(self.Values) != 1 {
			return false
		}

		have, hok := toFloat(value)
		want, wok := toFloat(self.Values[0])

		if !hok || !wok {
			return false
		}

		switch self.Operator {
		case `gt`:
			return have > want
		case `gte`:
			return have >= want
		case `lt`:
			return have < want
		default:
			return have <= want
		}

	case `prefix`, `suffix`, `contains`, `like`:
		have := strings.ToLower(fmt.Sprintf("%v", value))

		for _, want := range sliceutil.Stringify(self.Values) {
			want = strings.ToLower(want)

			switch self.Operator {
			case `prefix`:
				if strings.HasPrefix(have, want) {
					return true
				}
			case `suffix`:
				if strings.HasSuffix(have, want) {
					return true
				}
			case `contains`:
				if strings.Contains(have, want) {
					return true
				}
			default:
				if have == want {
					return true
				}
			}
		}

		return false
	}

	return false
}

func (self Criterion) typeMatches(value interface{}) bool {
	if value == nil {
		return true
	}

	switch self.Type {
	case `str`:
		return (reflect.ValueOf(value).Kind() == reflect.String)
	case `bool`:
		return (reflect.ValueOf(value).Kind() == reflect.Bool)
	case `int`, `float`:
		_, ok := toFloat(value)
		return ok
	}

	return true
}

func normalize(value interface{}) interface{} {
	if vS, ok := value.(string); ok {
		if vS == `null` {
			return nil
		}

		value = stringutil.Autotype(vS)
	}

	if f, ok := toFloat(value); ok {
		return f
	}

	return value
}

func valuesEqual(want interface{}, have interface{}) bool {
	w := normalize(want)
	h := normalize(have)

	if reflect.DeepEqual(w, h) {
		return true
	} else if w == nil || h == nil {
		return false
	}

	return (fmt.Sprintf("%v", w) == fmt.Sprintf("%v", h))
}

func toFloat(value interface{}) (float64, bool) {
	if value == nil {
		return 0, false
	}

	rv := reflect.ValueOf(value)

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.String:
		if v := stringutil.Autotype(rv.String()); reflect.ValueOf(v).Kind() != reflect.String {
			return toFloat(v)
		}
	}

	return 0, false
}
