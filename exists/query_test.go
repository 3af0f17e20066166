package exists

import (
	"testing"

	"github.com/ghetzel/refcheck/dal"
	"github.com/ghetzel/refcheck/filter"
	"github.com/stretchr/testify/require"
)

func TestCandidateIDs(t *testing.T) {
	assert := require.New(t)

	ids, isArray := CandidateIDs(`p1`)
	assert.Equal([]interface{}{`p1`}, ids)
	assert.False(isArray)

	ids, isArray = CandidateIDs([]interface{}{`p2`, `p1`, `p2`, nil, ``, `p3`})
	assert.Equal([]interface{}{`p2`, `p1`, `p3`}, ids)
	assert.True(isArray)

	ids, isArray = CandidateIDs([]string{`a`, `b`, `a`})
	assert.Equal([]interface{}{`a`, `b`}, ids)
	assert.True(isArray)

	ids, isArray = CandidateIDs(map[string]interface{}{
		`_id`:  `p9`,
		`name`: `Embedded`,
	})

	assert.Equal([]interface{}{`p9`}, ids)
	assert.False(isArray)

	// other values of an embedded document are not identifiers
	ids, isArray = CandidateIDs(map[string]interface{}{
		`_id`:      `p404`,
		`nickname`: `p1`,
	})

	assert.Equal([]interface{}{`p404`}, ids)
	assert.False(isArray)

	// zero-valued identifiers are still identifiers
	ids, isArray = CandidateIDs(0)
	assert.Equal([]interface{}{0}, ids)
	assert.False(isArray)

	ids, isArray = CandidateIDs([]interface{}{0, 1, 0})
	assert.Equal([]interface{}{0, 1}, ids)
	assert.True(isArray)

	ids, isArray = CandidateIDs([]interface{}{
		dal.NewRecord(`r1`),
		map[string]interface{}{`id`: `r2`},
		`r1`,
		7,
	})

	assert.Equal([]interface{}{`r1`, `r2`, 7}, ids)
	assert.True(isArray)

	ids, isArray = CandidateIDs(nil)
	assert.Empty(ids)
	assert.False(isArray)

	ids, isArray = CandidateIDs([]interface{}{})
	assert.Empty(ids)
	assert.True(isArray)
}

func TestBuildQuery(t *testing.T) {
	assert := require.New(t)

	// ids only
	flt := BuildQuery([]interface{}{`a`, `b`}, Normalize(true))
	assert.Len(flt.Criteria, 1)
	assert.Equal(`id`, flt.Criteria[0].Field)
	assert.Equal([]interface{}{`a`, `b`}, flt.Criteria[0].Values)
	assert.Equal([]string{`id`}, flt.Fields)
	assert.Equal(false, flt.Option(`autopopulate`))

	// ids and match
	config := Normalize(map[string]interface{}{
		`match`:   `enabled/true`,
		`select`:  `name`,
		`options`: map[string]interface{}{`maxTimeMS`: 100},
	})

	flt = BuildQuery([]interface{}{`a`}, config)
	assert.Equal(`id/a/enabled/true`, flt.String())
	assert.Equal([]string{`name`}, flt.Fields)
	assert.Equal(100, flt.Option(`maxTimeMS`))
	assert.Equal(false, flt.Option(`autopopulate`))

	// the configured match is not modified
	assert.Equal(`enabled/true`, config.Match.String())

	// default mode ignores ids
	config = Normalize(map[string]interface{}{
		`default`: true,
		`match`:   `name/Root`,
	})

	flt = BuildQuery([]interface{}{`a`}, config)
	assert.Equal(`name/Root`, flt.String())

	flt = BuildQuery(nil, Normalize(map[string]interface{}{
		`default`: true,
	}))

	assert.True(flt.IsMatchAll())
	assert.Equal(false, flt.Option(`autopopulate`))

	// options can never turn autopopulation back on
	flt = BuildQuery([]interface{}{`a`}, Config{
		Exists:  true,
		Match:   filter.All(),
		Options: map[string]interface{}{`autopopulate`: true},
	})

	assert.Equal(false, flt.Option(`autopopulate`))
	assert.Equal([]string{`id`}, flt.Fields)
}
