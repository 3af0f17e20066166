package filter

import (
	"testing"

	"github.com/ghetzel/refcheck/dal"
	"github.com/stretchr/testify/require"
)

func TestFilterMatchesRecord(t *testing.T) {
	assert := require.New(t)

	assert.True(MustParse(`id/1`).MatchesRecord(dal.NewRecord(1)))
	assert.True(MustParse(`id/1`).MatchesRecord(dal.NewRecord(`1`)))
	assert.True(MustParse(`id/is:1`).MatchesRecord(dal.NewRecord(1)))
	assert.True(MustParse(`id/is:1`).MatchesRecord(dal.NewRecord(`1`)))
	assert.True(MustParse(`int:id/1`).MatchesRecord(dal.NewRecord(1)))
	assert.True(MustParse(`str:id/1`).MatchesRecord(dal.NewRecord(`1`)))
	assert.False(MustParse(`str:id/is:1`).MatchesRecord(dal.NewRecord(1)))
	assert.True(MustParse(`id/not:1`).MatchesRecord(dal.NewRecord(2)))
	assert.True(MustParse(`id/not:1`).MatchesRecord(dal.NewRecord(`2`)))

	assert.True(MustParse(`id/1/test/true`).MatchesRecord(dal.NewRecord(1).Set(`test`, true)))
	assert.True(MustParse(`id/1/test/true`).MatchesRecord(dal.NewRecord(1).Set(`test`, `true`)))
	assert.True(MustParse(`id/1/bool:test/true`).MatchesRecord(dal.NewRecord(1).Set(`test`, true)))
	assert.True(MustParse(`id/1/str:test/true`).MatchesRecord(dal.NewRecord(1).Set(`test`, `true`)))

	assert.False(MustParse(`id/1/test/true`).MatchesRecord(dal.NewRecord(1).Set(`test`, false)))
	assert.False(MustParse(`id/1/test/true`).MatchesRecord(dal.NewRecord(1).Set(`test`, `false`)))
	assert.False(MustParse(`id/1/test/true`).MatchesRecord(dal.NewRecord(1).Set(`test`, 1)))
	assert.False(MustParse(`id/1/test/false`).MatchesRecord(dal.NewRecord(1).Set(`test`, 0)))
	assert.False(MustParse(`id/1/str:test/true`).MatchesRecord(dal.NewRecord(1).Set(`test`, true)))

	assert.False(MustParse(`id/gt:1`).MatchesRecord(dal.NewRecord(0)))
	assert.False(MustParse(`id/gt:1`).MatchesRecord(dal.NewRecord(1)))
	assert.True(MustParse(`id/gt:1`).MatchesRecord(dal.NewRecord(2)))
	assert.False(MustParse(`id/gte:1`).MatchesRecord(dal.NewRecord(0)))
	assert.True(MustParse(`id/gte:1`).MatchesRecord(dal.NewRecord(1)))
	assert.True(MustParse(`id/gte:1`).MatchesRecord(dal.NewRecord(2)))

	assert.False(MustParse(`id/lt:1`).MatchesRecord(dal.NewRecord(2)))
	assert.True(MustParse(`id/lt:1`).MatchesRecord(dal.NewRecord(0)))
	assert.True(MustParse(`id/lte:1`).MatchesRecord(dal.NewRecord(1)))

	assert.True(MustParse(`name/contains:old`).MatchesRecord(dal.NewRecord(1).Set(`name`, `Goldenrod`)))
	assert.True(MustParse(`name/prefix:gold`).MatchesRecord(dal.NewRecord(1).Set(`name`, `Gold`)))
	assert.True(MustParse(`name/suffix:rod`).MatchesRecord(dal.NewRecord(1).Set(`name`, `Goldenrod`)))
	assert.True(MustParse(`name/Golden rod`).MatchesRecord(dal.NewRecord(1).Set(`name`, `Golden rod`)))
	assert.True(MustParse(`name/like:golden rod`).MatchesRecord(dal.NewRecord(1).Set(`name`, `Golden rod`)))

	assert.True(All().MatchesRecord(dal.NewRecord(1)))

	var missing *dal.Record
	assert.False(MustParse(`id/1`).MatchesRecord(missing))
}

func TestFilterMatchesRecordNested(t *testing.T) {
	assert := require.New(t)

	record := dal.NewRecord(`p1`).Set(`address`, map[string]interface{}{
		`city`: `Lisbon`,
	}).Set(`tags`, []string{`a`, `b`})

	assert.True(MustParse(`address.city/Lisbon`).MatchesRecord(record))
	assert.False(MustParse(`address.city/Porto`).MatchesRecord(record))
	assert.True(MustParse(`tags/b`).MatchesRecord(record))
	assert.False(MustParse(`tags/c`).MatchesRecord(record))
	assert.True(MustParse(`tags/not:c`).MatchesRecord(record))
	assert.False(MustParse(`tags/not:a`).MatchesRecord(record))

	ids := New(Criterion{
		Field:  `id`,
		Values: []interface{}{`p0`, `p1`},
	})

	assert.True(ids.MatchesRecord(record))
	assert.False(ids.MatchesRecord(dal.NewRecord(`p2`)))

	ids.IdentityField = `_id`
	ids.Criteria[0].Field = `_id`
	assert.True(ids.MatchesRecord(record))
}
