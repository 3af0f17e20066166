package exists

import (
	"context"
	"testing"

	"github.com/ghetzel/refcheck/dal"
	"github.com/stretchr/testify/require"
)

func testFamilyCollection() *dal.Collection {
	return dal.NewCollection(`people`,
		dal.Field{
			Name:     `name`,
			Type:     dal.StringType,
			Required: true,
		},
		dal.Field{
			Name:   `father`,
			Type:   dal.ObjectIDType,
			Ref:    `people`,
			Exists: true,
		},
		dal.Field{
			Name:   `mother`,
			Type:   dal.ObjectIDType,
			Ref:    `people`,
			Exists: []interface{}{true, `NOT EXIST`},
		},
		dal.Field{
			Name:   `guardian`,
			Type:   dal.ObjectIDType,
			Ref:    `people`,
			Exists: false,
		},
		dal.Field{
			Name: `referees`,
			Type: dal.ArrayType,
			Element: &dal.Field{
				Type:   dal.ObjectIDType,
				Ref:    `people`,
				Exists: map[string]interface{}{`refresh`: true},
			},
		},
		dal.Field{
			Name: `friends`,
			Type: dal.ArrayType,
			Element: &dal.Field{
				Type: dal.ObjectType,
				Fields: []dal.Field{
					{
						Name: `type`,
						Type: dal.StringType,
					}, {
						Name:   `person`,
						Type:   dal.ObjectIDType,
						Ref:    `people`,
						Exists: true,
					},
				},
			},
		},
		dal.Field{
			Name:   `nickname`,
			Type:   dal.StringType,
			Exists: true,
		},
	)
}

func validatorCount(collection *dal.Collection, path string) int {
	field, ok := collection.GetField(path)

	if !ok {
		return -1
	}

	count := 0

	for _, validator := range field.Validators {
		if validator.Kind == ValidatorKind {
			count++
		}
	}

	return count
}

func TestApply(t *testing.T) {
	assert := require.New(t)

	collection := testFamilyCollection()
	assert.NoError(Apply(collection, fakeDB{`people`: testPeople()}))

	assert.Equal(1, validatorCount(collection, `father`))
	assert.Equal(1, validatorCount(collection, `mother`))
	assert.Equal(0, validatorCount(collection, `guardian`))
	assert.Equal(1, validatorCount(collection, `referees`))
	assert.Equal(0, validatorCount(collection, `friends`))
	assert.Equal(1, validatorCount(collection, `friends.person`))
	assert.Equal(0, validatorCount(collection, `friends.type`))
	assert.Equal(0, validatorCount(collection, `nickname`))

	mother, _ := collection.GetField(`mother`)
	assert.Equal(`NOT EXIST`, mother.Validators[0].Message)

	// the normalized configuration replaces the raw option
	father, _ := collection.GetField(`father`)
	assert.IsType(Config{}, father.Exists)
	assert.True(father.Exists.(Config).Exists)

	guardian, _ := collection.GetField(`guardian`)
	assert.IsType(Config{}, guardian.Exists)
	assert.False(guardian.Exists.(Config).Exists)

	referees, _ := collection.GetField(`referees`)
	assert.Nil(referees.Exists)
	assert.IsType(Config{}, referees.Element.Exists)
	assert.True(referees.Element.Exists.(Config).Refresh)

	config, enabled := ConfigOf(referees)
	assert.True(enabled)
	assert.True(config.Refresh)

	nickname, _ := collection.GetField(`nickname`)
	_, enabled = ConfigOf(nickname)
	assert.False(enabled)

	name, _ := collection.GetField(`name`)
	assert.Nil(name.Exists)
}

func TestApplyIsIdempotent(t *testing.T) {
	assert := require.New(t)

	collection := testFamilyCollection()
	db := fakeDB{`people`: testPeople()}

	assert.NoError(Apply(collection, db))
	assert.NoError(Apply(collection, db))
	assert.NoError(collection.Plugin(Plugin(db)))

	for _, path := range []string{`father`, `mother`, `referees`, `friends.person`} {
		assert.Equal(1, validatorCount(collection, path), path)
	}

	father, _ := collection.GetField(`father`)
	assert.Len(father.Validators, 1)
}

func TestApplyErrors(t *testing.T) {
	assert := require.New(t)

	assert.Error(Apply(nil, fakeDB{}))
	assert.Error(Apply(testFamilyCollection(), nil))
	assert.Error(dal.NewCollection(`x`).Plugin(Plugin(nil)))
}

func TestApplyValidatesEmbeddedPaths(t *testing.T) {
	assert := require.New(t)

	people := testPeople()
	collection := testFamilyCollection()
	assert.NoError(Apply(collection, fakeDB{`people`: people}))

	record := dal.NewRecord(`child`).Set(`name`, `Child`).Set(`mother`, `p2`).Set(`referees`, []interface{}{
		`p1`,
	}).Set(`friends`, []interface{}{
		map[string]interface{}{
			`type`:   `school`,
			`person`: `p1`,
		},
		map[string]interface{}{
			`type`:   `work`,
			`person`: `stranger`,
		},
	})

	err := collection.ValidateRecord(context.Background(), record)
	assert.True(dal.IsValidationError(err))

	verr := err.(*dal.ValidationError)
	assert.Len(verr.Errors, 1)
	assert.Equal(`friends.1.person`, verr.Errors[0].Path)
	assert.Equal(`friends.1.person with id stranger does not exists`, verr.Errors[0].Message)

	// referees are refreshed from the element configuration
	assert.Equal([]map[string]interface{}{
		{`id`: `p1`},
	}, record.Get(`referees`))

	record.SetNested(`friends.1.person`, `p2`)
	assert.NoError(collection.ValidateRecord(context.Background(), record))

	record.Set(`mother`, `nobody`)
	err = collection.ValidateRecord(context.Background(), record)
	assert.True(dal.IsValidationError(err))

	ferr, ok := err.(*dal.ValidationError).Field(`mother`)
	assert.True(ok)
	assert.Equal(`NOT EXIST`, ferr.Message)
}
