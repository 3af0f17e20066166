package generators

import (
	"fmt"
	"regexp"

	"github.com/ghetzel/refcheck/filter"
)

// regular expression templates for each pattern operator, given the quoted value
var mongoPatterns = map[string]string{
	`contains`: `.*%s.*`,
	`prefix`:   `^%s.*`,
	`suffix`:   `.*%s$`,
	`like`:     `^%s$`,
}

func isNullCriterion(criterion filter.Criterion) bool {
	return (len(criterion.Values) == 1 && criterion.Values[0] == `null`)
}

// collapse a list of alternative clauses into a single clause
func mongoAnyOf(clauses []map[string]interface{}) map[string]interface{} {
	if len(clauses) == 1 {
		return clauses[0]
	}

	return map[string]interface{}{
		`$or`: clauses,
	}
}

// match one value exactly with a bare value, or several with the given set operator
func mongoSetClause(field string, values []interface{}, single string, set string) map[string]interface{} {
	var clause interface{}

	if len(values) == 1 {
		if single == `` {
			clause = values[0]
		} else {
			clause = map[string]interface{}{
				single: values[0],
			}
		}
	} else {
		clause = map[string]interface{}{
			set: values,
		}
	}

	return map[string]interface{}{
		field: clause,
	}
}

func mongoCriterionOperatorIs(gen *MongoDB, criterion filter.Criterion) (map[string]interface{}, error) {
	if isNullCriterion(criterion) {
		gen.values = append(gen.values, nil)

		// absent and explicitly null are both treated as null
		return mongoAnyOf([]map[string]interface{}{
			{criterion.Field: map[string]interface{}{`$exists`: false}},
			{criterion.Field: nil},
		}), nil
	}

	gen.values = append(gen.values, criterion.Values...)
	return mongoSetClause(criterion.Field, criterion.Values, ``, `$in`), nil
}

func mongoCriterionOperatorNot(gen *MongoDB, criterion filter.Criterion) (map[string]interface{}, error) {
	switch {
	case len(criterion.Values) == 0:
		return nil, fmt.Errorf("The not criterion must have at least one value")

	case isNullCriterion(criterion):
		gen.values = append(gen.values, nil)

		return map[string]interface{}{
			criterion.Field: map[string]interface{}{
				`$exists`: true,
				`$ne`:     nil,
			},
		}, nil
	}

	gen.values = append(gen.values, criterion.Values...)
	return mongoSetClause(criterion.Field, criterion.Values, `$ne`, `$nin`), nil
}

func mongoCriterionOperatorPattern(gen *MongoDB, opname string, criterion filter.Criterion) (map[string]interface{}, error) {
	template, ok := mongoPatterns[opname]

	if !ok {
		return nil, fmt.Errorf("Unsupported pattern operator %q", opname)
	} else if len(criterion.Values) == 0 {
		return nil, fmt.Errorf("The %s criterion must have at least one value", opname)
	}

	clauses := make([]map[string]interface{}, 0, len(criterion.Values))

	for _, value := range criterion.Values {
		gen.values = append(gen.values, value)

		clauses = append(clauses, map[string]interface{}{
			criterion.Field: map[string]interface{}{
				`$regex`:   fmt.Sprintf(template, regexp.QuoteMeta(fmt.Sprintf("%v", value))),
				`$options`: `si`,
			},
		})
	}

	return mongoAnyOf(clauses), nil
}

// gt, gte, lt, and lte take exactly one value
func mongoCriterionOperatorCompare(gen *MongoDB, operator string, criterion filter.Criterion) (map[string]interface{}, error) {
	if l := len(criterion.Values); l != 1 {
		return nil, fmt.Errorf("The %s criterion on %v takes exactly one value, %d given", operator, criterion.Field, l)
	}

	gen.values = append(gen.values, criterion.Values[0])

	return map[string]interface{}{
		criterion.Field: map[string]interface{}{
			`$` + operator: criterion.Values[0],
		},
	}, nil
}

// range takes pairs of values, each being an inclusive lower and exclusive upper bound
func mongoCriterionOperatorRange(gen *MongoDB, criterion filter.Criterion) (map[string]interface{}, error) {
	l := len(criterion.Values)

	if l == 0 || l%2 != 0 {
		return nil, fmt.Errorf("Ranging criteria can only accept pairs of values, %d given", l)
	}

	gen.values = append(gen.values, criterion.Values...)
	clauses := make([]map[string]interface{}, 0, l/2)

	for i := 0; i < l; i += 2 {
		clauses = append(clauses, map[string]interface{}{
			criterion.Field: map[string]interface{}{
				`$gte`: criterion.Values[i],
				`$lt`:  criterion.Values[i+1],
			},
		})
	}

	return mongoAnyOf(clauses), nil
}
