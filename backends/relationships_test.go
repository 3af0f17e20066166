package backends

import (
	"context"
	"testing"

	"github.com/ghetzel/refcheck/dal"
	"github.com/ghetzel/refcheck/filter"
	"github.com/stretchr/testify/require"
)

func TestPopulateRelationships(t *testing.T) {
	assert := require.New(t)
	ctx := context.Background()

	backend := makeMemoryBackend(t, `memory://`)
	seedPeople(t, backend)

	backend.RegisterCollection(dal.NewCollection(`teams`,
		dal.Field{
			Name:         `captain`,
			Type:         dal.ObjectIDType,
			Ref:          `people`,
			Autopopulate: true,
		},
		dal.Field{
			Name: `members`,
			Type: dal.ArrayType,
			Element: &dal.Field{
				Type: dal.ObjectIDType,
				Ref:  `people`,
			},
			Autopopulate: true,
		},
		dal.Field{
			Name: `coach`,
			Type: dal.ObjectIDType,
			Ref:  `people`,
		},
	))

	assert.NoError(backend.Insert(ctx, `teams`, dal.NewRecordSet(
		dal.NewRecord(`t1`).
			Set(`captain`, `p1`).
			Set(`members`, []interface{}{`p2`, `missing`}).
			Set(`coach`, `p3`),
	)))

	results, err := backend.Find(ctx, `teams`, filter.All())
	assert.NoError(err)
	assert.Equal(1, results.Len())

	team := results.Records[0]
	assert.Equal(`First`, team.GetNested(`captain.name`))
	assert.Equal(`p1`, team.GetNested(`captain.id`))
	assert.Equal(`Second`, team.GetNested(`members.0.name`))
	assert.Equal(`missing`, team.GetNested(`members.1`))
	assert.Equal(`p3`, team.Get(`coach`))

	// the stored record is untouched
	stored, err := backend.Retrieve(ctx, `teams`, `t1`)
	assert.NoError(err)
	assert.Equal(`p1`, stored.Get(`captain`))

	// autopopulation can be turned off per query
	flt := filter.All()
	flt.Options[`autopopulate`] = false

	results, err = backend.Find(ctx, `teams`, flt)
	assert.NoError(err)
	assert.Equal(`p1`, results.Records[0].Get(`captain`))
	assert.Equal([]interface{}{`p2`, `missing`}, results.Records[0].Get(`members`))
}
