package refcheck

import (
	"context"
	"testing"

	"github.com/ghetzel/go-stockutil/log"
	"github.com/ghetzel/refcheck/dal"
	"github.com/ghetzel/refcheck/exists"
	"github.com/ghetzel/refcheck/filter"
	"github.com/stretchr/testify/require"
)

func makeDatabase(t *testing.T) DB {
	log.SetLevel(log.DEBUG)
	assert := require.New(t)

	db, err := NewDatabase(`memory://`)
	assert.NoError(err)
	assert.NoError(db.ApplySchemata(`testdata/schemata`))

	people, ok := db.Model(`people`)
	assert.True(ok)

	for _, person := range []map[string]interface{}{
		{`id`: `p1`, `name`: `First`},
		{`id`: `p2`, `name`: `Second`, `enabled`: false},
	} {
		_, err := people.Create(context.Background(), person)
		assert.NoError(err)
	}

	return db
}

func TestLoadSchemata(t *testing.T) {
	assert := require.New(t)

	collections, err := LoadSchemata(`testdata/schemata`)
	assert.NoError(err)
	assert.Len(collections, 2)
	assert.Equal(`families`, collections[0].Name)
	assert.Equal(`people`, collections[1].Name)

	kids, ok := collections[0].GetField(`kids`)
	assert.True(ok)
	assert.Equal(`people`, kids.GetRef())
	assert.Equal(map[string]interface{}{
		`refresh`: true,
		`select`:  `name`,
		`match`:   `enabled/true`,
	}, kids.Element.Exists)

	person, ok := collections[0].GetField(`friends.person`)
	assert.True(ok)
	assert.Equal(true, person.Exists)

	_, err = LoadSchemata(`testdata/nope`)
	assert.Error(err)

	_, err = ParseSchemata([]byte("name: broken\nfields:\n- name: things\n  type: whatever\n"))
	assert.Error(err)

	_, err = ParseSchemata([]byte("- name: ''\n"))
	assert.Error(err)
}

func TestConfigForEnv(t *testing.T) {
	assert := require.New(t)

	config, err := LoadConfigFile(`testdata/refcheck.yml`)
	assert.NoError(err)
	assert.Equal(`memory://`, config.Backend)
	assert.Equal([]string{`testdata/schemata`}, config.Schemata)

	prod := config.ForEnv(`production`)
	assert.Equal(`mongodb://localhost/refcheck`, prod.Backend)
	assert.Equal(`:8080`, prod.Address)
	assert.Equal([]string{`testdata/schemata`}, prod.Schemata)

	assert.Equal(config.Backend, config.ForEnv(`staging`).Backend)
	assert.Equal(config.Backend, config.ForEnv(``).Backend)

	_, err = LoadConfigFile(`testdata/nope.yml`)
	assert.Error(err)
}

func TestDatabaseResolve(t *testing.T) {
	assert := require.New(t)
	db := makeDatabase(t)

	finder, ok := db.Resolve(`people`)
	assert.True(ok)

	results, err := finder.Find(context.Background(), filter.MustParse(`id/p1|p9`))
	assert.NoError(err)
	assert.Equal(1, results.Len())
	assert.Equal(`p1`, results.Records[0].ID)

	_, ok = db.Resolve(`animals`)
	assert.False(ok)
}

func TestDatabaseAttachCollection(t *testing.T) {
	assert := require.New(t)
	db := makeDatabase(t)

	assert.Len(db.Models(), 2)

	_, err := db.AttachCollection(nil)
	assert.Error(err)

	_, err = db.AttachCollection(dal.NewCollection(`people`))
	assert.Error(err)

	_, err = db.AttachCollection(dal.NewCollection(``))
	assert.Error(err)

	model, err := db.AttachCollection(dal.NewCollection(`pets`, dal.Field{
		Name:   `owner`,
		Type:   dal.ObjectIDType,
		Ref:    `people`,
		Exists: true,
	}))

	assert.NoError(err)

	owner, ok := model.GetCollection().GetField(`owner`)
	assert.True(ok)
	assert.True(owner.HasValidator(exists.ValidatorKind))

	config, enabled := exists.ConfigOf(owner)
	assert.True(enabled)
	assert.Equal(exists.DefaultMessage, config.Message)
}

func TestDatabaseValidatesReferences(t *testing.T) {
	assert := require.New(t)
	ctx := context.Background()
	db := makeDatabase(t)

	families, ok := db.Model(`families`)
	assert.True(ok)

	_, err := families.Create(ctx, map[string]interface{}{
		`father`: `p1`,
		`mother`: `p404`,
		`friends`: []interface{}{
			map[string]interface{}{`person`: `p2`},
			map[string]interface{}{`person`: `p404`},
		},
	})

	assert.True(dal.IsValidationError(err))
	verr := err.(*dal.ValidationError)
	assert.Len(verr.Errors, 2)

	ferr, ok := verr.Field(`mother`)
	assert.True(ok)
	assert.Equal(`mother must point to a real person`, ferr.Message)

	ferr, ok = verr.Field(`friends.1.person`)
	assert.True(ok)
	assert.Equal(`friends.1.person with id p404 does not exists`, ferr.Message)

	// kids are refreshed with the enabled people only
	record, err := families.Create(ctx, map[string]interface{}{
		`id`:     `f1`,
		`father`: `p1`,
		`kids`:   []interface{}{`p1`, `p2`},
	})

	assert.NoError(err)
	assert.Equal([]map[string]interface{}{
		{`id`: `p1`, `name`: `First`},
	}, record.Get(`kids`))

	stored, err := families.Get(ctx, `f1`)
	assert.NoError(err)
	assert.Equal([]interface{}{`p1`}, stored.Get(`kids`))

	// no enabled kid at all fails
	_, err = families.Create(ctx, map[string]interface{}{
		`kids`: []interface{}{`p2`},
	})

	assert.True(dal.IsValidationError(err))
	_, ok = err.(*dal.ValidationError).Field(`kids`)
	assert.True(ok)
}
