package tasks

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func node(id string, subtasks ...Task) Task {
	if subtasks == nil {
		subtasks = []Task{}
	}
	return Task{ID: id, Title: id, Status: StatusTodo, Subtasks: subtasks}
}

// sampleForest:
//
//	a
//	├── b
//	│   └── c
//	└── d
//	e
//	└── f
func sampleForest() []Task {
	return []Task{
		node("a", node("b", node("c")), node("d")),
		node("e", node("f")),
	}
}

func TestFind_AnyDepth(t *testing.T) {
	forest := sampleForest()
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		got := Find(forest, id)
		require.NotNil(t, got, id)
		assert.Equal(t, id, got.ID)
	}
	assert.Nil(t, Find(forest, "zzz"))
	assert.Nil(t, Find(nil, "a"))
}

func TestFind_ReturnsNodeInForest(t *testing.T) {
	forest := sampleForest()
	Find(forest, "c").Title = "edited"
	assert.Equal(t, "edited", forest[0].Subtasks[0].Subtasks[0].Title)
}

func TestFind_PreOrderFirstMatch(t *testing.T) {
	// ids are unique in practice; with a duplicate the shallower, earlier
	// node wins
	forest := []Task{
		node("x", node("dup")),
		node("dup"),
	}
	forest[0].Subtasks[0].Title = "first"
	forest[1].Title = "second"

	assert.Equal(t, "first", Find(forest, "dup").Title)
}

func TestFind_VeryDeepChain(t *testing.T) {
	const depth = 2000
	leaf := node(fmt.Sprintf("n%d", depth))
	for i := depth - 1; i >= 0; i-- {
		leaf = node(fmt.Sprintf("n%d", i), leaf)
	}
	forest := []Task{leaf}

	got := Find(forest, fmt.Sprintf("n%d", depth))
	require.NotNil(t, got)
	assert.Equal(t, depth+1, Count(forest))
}

func TestAddSubTask_DepthLimitSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	deepest := fmt.Sprintf("n%d", MaxDepth-2)
	leaf := node(deepest)
	for i := MaxDepth - 3; i >= 0; i-- {
		leaf = node(fmt.Sprintf("n%d", i), leaf)
	}
	data, err := Encode([]Task{leaf})
	require.NoError(t, err)
	blob := NewMemoryBlob()
	require.NoError(t, blob.Save(ctx, data))

	clock := &fakeClock{now: baseTime}
	s, err := Open(ctx, blob, testOptions(clock)...)
	require.NoError(t, err)

	last, err := s.AddSubTask(ctx, deepest, "last allowed")
	require.NoError(t, err)
	before := blob.Bytes()

	_, err = s.AddSubTask(ctx, last, "one too many")
	require.ErrorIs(t, err, ErrTooDeep)
	assert.Equal(t, before, blob.Bytes())
	assert.Equal(t, MaxDepth, s.Len())

	reopened, err := Open(ctx, blob, testOptions(clock)...)
	require.NoError(t, err)
	assert.Equal(t, MaxDepth, reopened.Len())
	got, err := reopened.Get(last)
	require.NoError(t, err)
	assert.Equal(t, "last allowed", got.Title)
}

func TestRemove_Root(t *testing.T) {
	forest, ok := Remove(sampleForest(), "a")
	require.True(t, ok)
	require.Len(t, forest, 1)
	assert.Equal(t, "e", forest[0].ID)
	assert.Equal(t, 2, Count(forest))
}

func TestRemove_Nested(t *testing.T) {
	forest, ok := Remove(sampleForest(), "b")
	require.True(t, ok)
	assert.Nil(t, Find(forest, "b"))
	assert.Nil(t, Find(forest, "c"))
	require.Len(t, forest[0].Subtasks, 1)
	assert.Equal(t, "d", forest[0].Subtasks[0].ID)
	assert.Equal(t, 4, Count(forest))
}

func TestRemove_OnlyFirstMatch(t *testing.T) {
	forest := []Task{
		node("x", node("dup")),
		node("dup"),
	}
	forest, ok := Remove(forest, "dup")
	require.True(t, ok)
	assert.Empty(t, forest[0].Subtasks)
	require.Len(t, forest, 2)
	assert.Equal(t, "dup", forest[1].ID)
}

func TestRemove_Missing(t *testing.T) {
	forest, ok := Remove(sampleForest(), "zzz")
	assert.False(t, ok)
	assert.Equal(t, sampleForest(), forest)
}

func TestWalk_PreOrderWithDepth(t *testing.T) {
	var got []string
	Walk(sampleForest(), func(t *Task, depth int) bool {
		got = append(got, fmt.Sprintf("%s:%d", t.ID, depth))
		return true
	})
	assert.Equal(t, []string{"a:0", "b:1", "c:2", "d:1", "e:0", "f:1"}, got)
}

func TestWalk_Stop(t *testing.T) {
	var got []string
	Walk(sampleForest(), func(t *Task, _ int) bool {
		got = append(got, t.ID)
		return t.ID != "c"
	})
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestClone_Deep(t *testing.T) {
	forest := sampleForest()
	cp := cloneForest(forest)
	require.Equal(t, forest, cp)

	cp[0].Subtasks[0].Subtasks[0].Title = "changed"
	cp[0].Subtasks = append(cp[0].Subtasks, node("new"))

	assert.Equal(t, "c", forest[0].Subtasks[0].Subtasks[0].Title)
	assert.Len(t, forest[0].Subtasks, 2)
}

func TestDuplicateID(t *testing.T) {
	_, dup := duplicateID(sampleForest())
	assert.False(t, dup)

	id, dup := duplicateID([]Task{node("a", node("b")), node("b")})
	assert.True(t, dup)
	assert.Equal(t, "b", id)

	id, dup = duplicateID([]Task{node("")})
	assert.True(t, dup)
	assert.Equal(t, "", id)
}
