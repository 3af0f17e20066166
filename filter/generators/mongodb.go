package generators

import (
	"encoding/json"
	"fmt"

	"github.com/ghetzel/go-stockutil/stringutil"
	"github.com/ghetzel/refcheck/filter"
)

// MongoDB Query Generator

type MongoDB struct {
	filter.Generator
	collection  string
	fields      []string
	criteria    []map[string]interface{}
	options     map[string]interface{}
	values      []interface{}
	query       map[string]interface{}
	FormatValue func(field string, value interface{}) interface{}
}

func NewMongoDBGenerator() *MongoDB {
	return &MongoDB{
		Generator: filter.Generator{},
	}
}

func (self *MongoDB) Initialize(collectionName string) error {
	self.Reset()
	self.collection = collectionName
	self.fields = make([]string, 0)
	self.criteria = make([]map[string]interface{}, 0)
	self.options = make(map[string]interface{})
	self.values = make([]interface{}, 0)
	self.query = nil

	return nil
}

func (self *MongoDB) Finalize(flt *filter.Filter) error {
	if flt.IsMatchAll() {
		self.query = map[string]interface{}{}
	} else if len(self.criteria) == 1 {
		self.query = self.criteria[0]
	} else {
		self.query = map[string]interface{}{
			`$and`: self.criteria,
		}
	}

	if data, err := json.MarshalIndent(self.query, ``, `    `); err == nil {
		self.Push(data)
	} else {
		return err
	}

	return nil
}

// The query document built by the last call to Render.
func (self *MongoDB) Query() map[string]interface{} {
	return self.query
}

// A projection document selecting the fields given to WithField, or nil if all fields were requested.
func (self *MongoDB) Projection() map[string]interface{} {
	if len(self.fields) == 0 {
		return nil
	}

	projection := make(map[string]interface{})

	for _, field := range self.fields {
		projection[field] = 1
	}

	return projection
}

// Query options that are not part of the query document itself.
func (self *MongoDB) Options() map[string]interface{} {
	return self.options
}

func (self *MongoDB) WithField(field string) error {
	if field == `id` {
		field = `_id`
	}

	self.fields = append(self.fields, field)
	return nil
}

func (self *MongoDB) SetOption(key string, value interface{}) error {
	self.options[key] = value
	return nil
}

func (self *MongoDB) GetValues() []interface{} {
	return self.values
}

func (self *MongoDB) WithCriterion(criterion filter.Criterion) error {
	var c map[string]interface{}
	var err error

	if criterion.Field == `id` {
		criterion.Field = `_id`
	}

	values := make([]interface{}, len(criterion.Values))

	for i, value := range criterion.Values {
		switch value.(type) {
		case string:
			// identities are compared exactly as they were given
			if value != `null` && criterion.Field != `_id` {
				value = stringutil.Autotype(value)
			}
		}

		if self.FormatValue != nil {
			value = self.FormatValue(criterion.Field, value)
		}

		values[i] = value
	}

	criterion.Values = values

	switch criterion.Operator {
	case `is`, ``:
		c, err = mongoCriterionOperatorIs(self, criterion)
	case `not`:
		c, err = mongoCriterionOperatorNot(self, criterion)
	case `contains`, `prefix`, `suffix`, `like`:
		c, err = mongoCriterionOperatorPattern(self, criterion.Operator, criterion)
	case `gt`, `gte`, `lt`, `lte`:
		c, err = mongoCriterionOperatorCompare(self, criterion.Operator, criterion)
	case `range`:
		c, err = mongoCriterionOperatorRange(self, criterion)
	default:
		return fmt.Errorf("Unimplemented operator '%s'", criterion.Operator)
	}

	if err != nil {
		return err
	} else {
		self.criteria = append(self.criteria, c)
	}

	return nil
}
