package dal

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func testPersonCollection() *Collection {
	return NewCollection(`people`,
		Field{
			Name:     `name`,
			Type:     StringType,
			Required: true,
		},
		Field{
			Name: `father`,
			Type: ObjectIDType,
			Ref:  `people`,
		},
		Field{
			Name: `referees`,
			Type: ArrayType,
			Element: &Field{
				Type: ObjectIDType,
				Ref:  `people`,
			},
		},
		Field{
			Name: `friends`,
			Type: ArrayType,
			Element: &Field{
				Type: ObjectType,
				Fields: []Field{
					{
						Name: `type`,
						Type: StringType,
					}, {
						Name: `person`,
						Type: ObjectIDType,
						Ref:  `people`,
					},
				},
			},
		},
		Field{
			Name: `address`,
			Type: ObjectType,
			Fields: []Field{
				{
					Name: `city`,
					Type: StringType,
				},
			},
		},
	)
}

func TestCollectionEachPath(t *testing.T) {
	assert := require.New(t)

	collection := testPersonCollection()
	paths := make([]string, 0)
	parents := make(map[string]string)

	for _, sp := range collection.EachPath() {
		paths = append(paths, sp.Path)
		parents[sp.Path] = sp.Parent
	}

	assert.Equal([]string{
		`name`,
		`father`,
		`referees`,
		`friends`,
		`friends.type`,
		`friends.person`,
		`address`,
		`address.city`,
	}, paths)

	assert.Equal(`friends`, parents[`friends.person`])
	assert.Equal(``, parents[`father`])

	field, ok := collection.GetField(`friends.person`)
	assert.True(ok)
	assert.Equal(`people`, field.GetRef())

	field, ok = collection.GetField(`referees`)
	assert.True(ok)
	assert.True(field.IsReference())
	assert.True(field.IsArray())

	_, ok = collection.GetField(`nope`)
	assert.False(ok)
}

func TestCollectionEachPathModifiesDefinition(t *testing.T) {
	assert := require.New(t)

	collection := testPersonCollection()

	for _, sp := range collection.EachPath() {
		if sp.Path == `friends.person` {
			assert.True(sp.Field.AddValidator(FieldValidator{
				Kind: `test`,
				Validate: func(ctx context.Context, value interface{}, target *FieldTarget) (bool, error) {
					return true, nil
				},
			}))
		}
	}

	field, ok := collection.GetField(`friends.person`)
	assert.True(ok)
	assert.True(field.HasValidator(`test`))
	assert.Len(collection.Fields[3].Element.Fields[1].Validators, 1)
}

func TestFieldAddValidatorIsIdempotent(t *testing.T) {
	assert := require.New(t)

	field := Field{
		Name: `father`,
		Ref:  `people`,
	}

	fn := func(ctx context.Context, value interface{}, target *FieldTarget) (bool, error) {
		return true, nil
	}

	assert.True(field.AddValidator(FieldValidator{Kind: `exists`, Validate: fn}))
	assert.False(field.AddValidator(FieldValidator{Kind: `exists`, Validate: fn}))
	assert.False(field.AddValidator(FieldValidator{Kind: `other`}))
	assert.True(field.AddValidator(FieldValidator{Kind: `other`, Validate: fn}))
	assert.Len(field.Validators, 2)
}

func TestCollectionValidateRecord(t *testing.T) {
	assert := require.New(t)

	collection := testPersonCollection()
	var calls int32

	known := map[interface{}]bool{
		`f1`: true,
		`p1`: true,
	}

	checkKnown := func(ctx context.Context, value interface{}, target *FieldTarget) (bool, error) {
		atomic.AddInt32(&calls, 1)

		if value == nil {
			return true, nil
		} else if known[value] {
			target.Set(map[string]interface{}{
				`id`: value,
			})

			return true, nil
		}

		return false, nil
	}

	for _, path := range []string{`father`, `friends.person`} {
		field, _ := collection.GetField(path)
		field.AddValidator(FieldValidator{
			Kind:     `known`,
			Message:  `{PATH} with id {VALUE} does not exists`,
			Validate: checkKnown,
		})
	}

	record := NewRecord(1).Set(`name`, `Tester`).Set(`father`, `f1`).Set(`friends`, []interface{}{
		map[string]interface{}{
			`person`: `p1`,
		},
		map[string]interface{}{
			`person`: `p2`,
		},
	})

	err := collection.ValidateRecord(context.Background(), record)
	assert.Error(err)
	assert.True(IsValidationError(err))
	assert.EqualValues(3, calls)

	verr := err.(*ValidationError)
	assert.Len(verr.Errors, 1)

	ferr, ok := verr.Field(`friends.1.person`)
	assert.True(ok)
	assert.Equal(`known`, ferr.Kind)
	assert.Equal(`p2`, ferr.Value)
	assert.Equal(`friends.1.person with id p2 does not exists`, ferr.Message)
	assert.Contains(err.Error(), `people validation failed`)

	// passing validators updated their own paths
	assert.Equal(map[string]interface{}{`id`: `f1`}, record.Get(`father`))
	assert.Equal(map[string]interface{}{`id`: `p1`}, record.GetNested(`friends.0.person`))
	assert.Equal(`p2`, record.GetNested(`friends.1.person`))
}

func TestCollectionValidateRecordRequired(t *testing.T) {
	assert := require.New(t)

	collection := testPersonCollection()
	err := collection.ValidateRecord(context.Background(), NewRecord(1))

	assert.True(IsValidationError(err))
	ferr, ok := err.(*ValidationError).Field(`name`)
	assert.True(ok)
	assert.Equal(RequiredValidator, ferr.Kind)
	assert.Equal(`name is required`, ferr.Message)

	assert.NoError(collection.ValidateRecord(context.Background(), NewRecord(1).Set(`name`, `ok`)))

	collection.SkipValidation = true
	assert.NoError(collection.ValidateRecord(context.Background(), NewRecord(1)))
	assert.Error(collection.ValidateRecord(context.Background(), nil))
}

func TestCollectionValidateRecordOperationalError(t *testing.T) {
	assert := require.New(t)

	collection := testPersonCollection()
	field, _ := collection.GetField(`father`)
	field.AddValidator(FieldValidator{
		Kind: `broken`,
		Validate: func(ctx context.Context, value interface{}, target *FieldTarget) (bool, error) {
			return false, fmt.Errorf("connection refused")
		},
	})

	err := collection.ValidateRecord(context.Background(), NewRecord(1).Set(`name`, `x`).Set(`father`, `f1`))
	assert.Error(err)
	assert.False(IsValidationError(err))
	assert.Equal(`connection refused`, err.Error())
}

func TestCollectionMakeRecord(t *testing.T) {
	assert := require.New(t)

	collection := NewCollection(`things`, Field{
		Name:         `status`,
		Type:         StringType,
		DefaultValue: `new`,
	})

	record, err := collection.MakeRecord(map[string]interface{}{
		`id`:   `t1`,
		`name`: `thing`,
	})

	assert.NoError(err)
	assert.Equal(`t1`, record.ID)
	assert.Equal(`new`, record.Get(`status`))

	type thing struct {
		ID     string
		Status string `refcheck:"status,omitempty"`
	}

	record, err = collection.MakeRecord(&thing{ID: `t2`})
	assert.NoError(err)
	assert.Equal(`t2`, record.ID)
	assert.Equal(`new`, record.Get(`status`))
}

func TestCollectionCheck(t *testing.T) {
	assert := require.New(t)

	assert.NoError(testPersonCollection().Check())

	assert.Error(NewCollection(`bad`, Field{
		Name: ``,
	}).Check())

	assert.Error(NewCollection(`bad`, Field{
		Name: `x`,
		Type: `wat`,
	}).Check())
}

func TestFormatMessage(t *testing.T) {
	assert := require.New(t)

	assert.Equal(`father with id 1 does not exists`, FormatMessage(`{PATH} with id {VALUE} does not exists`, `father`, 1))
	assert.Equal(`relatives with id [a b] does not exists`, FormatMessage(`{PATH} with id {VALUE} does not exists`, `relatives`, []interface{}{`a`, `b`}))
	assert.Equal(`NOT EXIST`, FormatMessage(`NOT EXIST`, `mother`, 1))
}

func TestValidateNotEmpty(t *testing.T) {
	assert := require.New(t)

	assert.Error(ValidateNotEmpty(nil))
	assert.Error(ValidateNotEmpty(``))
	assert.NoError(ValidateNotEmpty(`ok`))
	assert.NoError(ValidateNotEmpty([]interface{}{`a`}))
}
