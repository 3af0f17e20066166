package filter

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/ghetzel/go-stockutil/sliceutil"
	"github.com/ghetzel/go-stockutil/typeutil"
)

var CriteriaSeparator = `/`
var ModifierDelimiter = `:`
var ValueSeparator = `|`
var QueryUnescapeValues = false
var AllValue = `all`

type Criterion struct {
	Type     string        `json:"type,omitempty"`
	Field    string        `json:"field"`
	Operator string        `json:"operator,omitempty"`
	Values   []interface{} `json:"values"`
}

func (self Criterion) String() string {
	field := self.Field

	if self.Type != `` {
		field = self.Type + ModifierDelimiter + field
	}

	values := sliceutil.Stringify(self.Values)

	if self.Operator == `` || self.Operator == `is` {
		return field + CriteriaSeparator + strings.Join(values, ValueSeparator)
	} else {
		return field + CriteriaSeparator + self.Operator + ModifierDelimiter + strings.Join(values, ValueSeparator)
	}
}

type Filter struct {
	Spec          string                 `json:"spec,omitempty"`
	MatchAll      bool                   `json:"all,omitempty"`
	IdentityField string                 `json:"identity_field,omitempty"`
	Criteria      []Criterion            `json:"criteria,omitempty"`
	Fields        []string               `json:"fields,omitempty"`
	Options       map[string]interface{} `json:"options,omitempty"`
	Sort          []string               `json:"sort,omitempty"`
	Limit         int                    `json:"limit,omitempty"`
	Offset        int                    `json:"offset,omitempty"`
}

// Create a filter that matches records satisfying all of the given criteria.
func New(criteria ...Criterion) *Filter {
	if criteria == nil {
		criteria = make([]Criterion, 0)
	}

	return &Filter{
		Criteria: criteria,
		Fields:   make([]string, 0),
		Options:  make(map[string]interface{}),
	}
}

// Create a filter that matches every record.
func All() *Filter {
	f := New()
	f.Spec = AllValue
	f.MatchAll = true
	return f
}

func MustParse(spec string) *Filter {
	if f, err := Parse(spec); err == nil {
		return f
	} else {
		panic(err.Error())
	}
}

// Filter syntax definition
//
// filter     ::= (field/value | type:field/value | field/comparator:value)+
// field      ::= ? US-ASCII field name ?;
// value      ::= ? UTF-8 field value ? ( | value )*;
// type       ::= str | bool | int | float | date
// comparator :=  is | not | gt | gte | lt | lte | prefix | suffix | contains | like
//
func Parse(spec string) (*Filter, error) {
	spec = strings.TrimPrefix(spec, CriteriaSeparator)

	switch spec {
	case ``, AllValue:
		return All(), nil
	}

	rv := New()
	rv.Spec = spec
	criteria := strings.Split(spec, CriteriaSeparator)

	if len(criteria)%2 != 0 {
		return nil, fmt.Errorf("Invalid filter spec %q", spec)
	}

	for i := 0; i < len(criteria); i += 2 {
		var criterion Criterion

		if parts := strings.SplitN(criteria[i], ModifierDelimiter, 2); len(parts) == 1 {
			criterion.Field = parts[0]
		} else {
			criterion.Type = parts[0]
			criterion.Field = parts[1]
		}

		if criterion.Field == `` {
			return nil, fmt.Errorf("Invalid filter spec %q: empty field name", spec)
		}

		var values []string

		if parts := strings.SplitN(criteria[i+1], ModifierDelimiter, 2); len(parts) == 1 {
			values = strings.Split(parts[0], ValueSeparator)
		} else {
			criterion.Operator = parts[0]
			values = strings.Split(parts[1], ValueSeparator)
		}

		for _, value := range values {
			if QueryUnescapeValues {
				if v, err := url.QueryUnescape(value); err == nil {
					value = v
				} else {
					return nil, err
				}
			}

			criterion.Values = append(criterion.Values, value)
		}

		rv.Criteria = append(rv.Criteria, criterion)
	}

	return rv, nil
}

// Create a filter from a map of field names to values.  A record matches if, for every key, its value
// equals the given value; array values match if the record's value is any one of them.  Values that are
// strings may be prefixed with an operator (e.g.: "gte:18").
func FromMap(in map[string]interface{}) (*Filter, error) {
	rv := New()
	keys := make([]string, 0, len(in))

	for key := range in {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		if key == `` {
			return nil, fmt.Errorf("filter field names cannot be empty")
		}

		criterion := Criterion{
			Field: key,
		}

		value := in[key]

		if typeutil.IsArray(value) {
			criterion.Values = sliceutil.Sliceify(value)
		} else if vS, ok := value.(string); ok {
			if op, v := splitOperator(vS); op != `` {
				criterion.Operator = op
				criterion.Values = []interface{}{v}
			} else {
				criterion.Values = []interface{}{vS}
			}
		} else {
			criterion.Values = []interface{}{value}
		}

		rv.Criteria = append(rv.Criteria, criterion)
	}

	if len(rv.Criteria) == 0 {
		return All(), nil
	}

	return rv, nil
}

func splitOperator(in string) (string, string) {
	if parts := strings.SplitN(in, ModifierDelimiter, 2); len(parts) == 2 {
		switch parts[0] {
		case `is`, `not`, `gt`, `gte`, `lt`, `lte`, `prefix`, `suffix`, `contains`, `like`:
			return parts[0], parts[1]
		}
	}

	return ``, in
}

// Whether the filter places no restriction on which records match.
func (self *Filter) IsMatchAll() bool {
	return (self == nil || len(self.Criteria) == 0)
}

// Return a deep copy of the filter.
func (self *Filter) Copy() *Filter {
	if self == nil {
		return All()
	}

	out := &Filter{
		Spec:          self.Spec,
		MatchAll:      self.MatchAll,
		IdentityField: self.IdentityField,
		Limit:         self.Limit,
		Offset:        self.Offset,
	}

	if self.Criteria != nil {
		out.Criteria = make([]Criterion, len(self.Criteria))

		for i, criterion := range self.Criteria {
			if criterion.Values != nil {
				criterion.Values = append(make([]interface{}, 0, len(criterion.Values)), criterion.Values...)
			}

			out.Criteria[i] = criterion
		}
	}

	if self.Fields != nil {
		out.Fields = append(make([]string, 0, len(self.Fields)), self.Fields...)
	}

	if self.Sort != nil {
		out.Sort = append(make([]string, 0, len(self.Sort)), self.Sort...)
	}

	if self.Options != nil {
		out.Options = make(map[string]interface{})

		for k, v := range self.Options {
			out.Options[k] = v
		}
	}

	return out
}

// Return a new filter matching records that satisfy both this filter and the other one.  Fields, options
// and paging are taken from this filter.
func (self *Filter) And(other *Filter) *Filter {
	out := self.Copy()

	if !other.IsMatchAll() {
		out.Criteria = append(out.Criteria, other.Copy().Criteria...)
	}

	out.MatchAll = (len(out.Criteria) == 0)
	out.Spec = out.String()
	return out
}

// Return the value of a query option, or the fallback if the option is not set.
func (self *Filter) Option(key string, fallback ...interface{}) interface{} {
	if self != nil {
		if v, ok := self.Options[key]; ok {
			return v
		}
	}

	if len(fallback) > 0 {
		return fallback[0]
	}

	return nil
}

func (self *Filter) String() string {
	if self.IsMatchAll() {
		return AllValue
	}

	parts := make([]string, len(self.Criteria))

	for i, criterion := range self.Criteria {
		parts[i] = criterion.String()
	}

	return strings.Join(parts, CriteriaSeparator)
}

func (self *Filter) identityField() string {
	if self.IdentityField != `` {
		return self.IdentityField
	}

	return `id`
}

func (self Criterion) numericValues() ([]float64, error) {
	out := make([]float64, len(self.Values))

	for i, v := range self.Values {
		if f, err := strconv.ParseFloat(fmt.Sprintf("%v", v), 64); err == nil {
			out[i] = f
		} else {
			return nil, err
		}
	}

	return out, nil
}
