package tasks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_LegacyFlat(t *testing.T) {
	forest, err := Decode([]byte(`[{"id":"1","title":"Old","status":"TODO"}]`))
	require.NoError(t, err)
	require.Nil(t, forest[0].Subtasks)
	assert.True(t, needsMigration(forest))

	forest = Migrate(forest, baseTime)

	require.Len(t, forest, 1)
	assert.NotNil(t, forest[0].Subtasks)
	assert.Empty(t, forest[0].Subtasks)
	assert.Equal(t, baseTime, forest[0].CreatedAt)
	assert.Equal(t, baseTime, forest[0].UpdatedAt)
	assert.False(t, needsMigration(forest))
}

func TestMigrate_MixedShapes(t *testing.T) {
	created := time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)
	forest, err := Decode([]byte(`[
		{"id":"a","title":"a","status":"DONE","createdAt":"2023-01-02T03:04:05Z","subtasks":[
			{"id":"b","title":"b"},
			{"id":"c","title":"c","status":"IN_PROGRESS","subtasks":[{"id":"d","title":"d"}]}
		]},
		{"id":"e","title":"e","status":"TODO","subtasks":null}
	]`))
	require.NoError(t, err)

	forest = Migrate(forest, baseTime)

	a := Find(forest, "a")
	assert.Equal(t, created, a.CreatedAt)
	assert.Equal(t, created, a.UpdatedAt)
	assert.Equal(t, StatusDone, a.Status)

	b := Find(forest, "b")
	assert.Equal(t, StatusTodo, b.Status)
	assert.Equal(t, baseTime, b.CreatedAt)
	assert.NotNil(t, b.Subtasks)

	d := Find(forest, "d")
	require.NotNil(t, d)
	assert.NotNil(t, d.Subtasks)
	assert.Equal(t, baseTime, d.UpdatedAt)

	assert.NotNil(t, Find(forest, "e").Subtasks)
	assert.False(t, needsMigration(forest))
}

func TestMigrate_Idempotent(t *testing.T) {
	inputs := map[string]string{
		"legacy":  `[{"id":"1","title":"Old","status":"TODO"},{"id":"2","title":"Older"}]`,
		"current": `[{"id":"1","title":"x","status":"DONE","createdAt":"2023-01-02T03:04:05Z","updatedAt":"2023-02-02T03:04:05Z","subtasks":[]}]`,
		"nested":  `[{"id":"1","title":"x","subtasks":[{"id":"2","title":"y","subtasks":[{"id":"3","title":"z"}]}]}]`,
		"empty":   `[]`,
	}
	for name, payload := range inputs {
		t.Run(name, func(t *testing.T) {
			forest, err := Decode([]byte(payload))
			require.NoError(t, err)

			once := Migrate(forest, baseTime)
			snapshot := cloneForest(once)

			// a later clock must not restamp fields filled by the first run
			twice := Migrate(once, baseTime.Add(time.Hour))
			assert.Equal(t, snapshot, twice)

			a, err := Encode(snapshot)
			require.NoError(t, err)
			b, err := Encode(twice)
			require.NoError(t, err)
			assert.Equal(t, a, b)
		})
	}
}

func TestMigrate_Nil(t *testing.T) {
	forest := Migrate(nil, baseTime)
	assert.NotNil(t, forest)
	assert.Empty(t, forest)
}
