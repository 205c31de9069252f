package idset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestKind_Key(t *testing.T) {
	assert.Equal(t, "bookmarked_courses", Bookmarked.Key())
	assert.Equal(t, "enrolled_courses", Enrolled.Key())
	assert.Equal(t, "completed_courses", Completed.Key())
	assert.Equal(t, "bookmarked", Bookmarked.String())
	assert.Len(t, Kinds, 3)
}

func TestSet_Toggle(t *testing.T) {
	t.Run("adds missing id", func(t *testing.T) {
		next, added := Of(1, 2).Toggle(3)
		assert.True(t, added)
		assert.Equal(t, Set{1, 2, 3}, next)
	})

	t.Run("removes present id", func(t *testing.T) {
		next, added := Of(1, 2, 3).Toggle(2)
		assert.False(t, added)
		assert.Equal(t, Set{1, 3}, next)
	})

	t.Run("does not modify receiver", func(t *testing.T) {
		s := Of(1, 2)
		_, _ = s.Toggle(1)
		_, _ = s.Toggle(9)
		assert.Equal(t, Set{1, 2}, s)
	})
}

func TestSet_Add(t *testing.T) {
	next, changed := Of(4).Add(5)
	assert.True(t, changed)
	assert.Equal(t, Set{4, 5}, next)

	same, changed := next.Add(5)
	assert.False(t, changed)
	assert.Equal(t, next, same)
}

func TestSet_Intersect(t *testing.T) {
	assert.Equal(t, Set{1, 2}, Of(1, 2, 5).Intersect(Of(1, 2, 3, 4)))
	assert.Empty(t, Of(7).Intersect(nil))
}

func TestCodec(t *testing.T) {
	t.Run("encodes JSON array", func(t *testing.T) {
		assert.Equal(t, "[1,2,3]", Of(1, 2, 3).Encode())
		assert.Equal(t, "[]", Set{}.Encode())
		assert.Equal(t, "[]", Set(nil).Encode())
	})

	t.Run("decodes and deduplicates", func(t *testing.T) {
		s, err := Decode("[3, 1, 3, 2]")
		require.NoError(t, err)
		assert.Equal(t, Set{3, 1, 2}, s)
	})

	t.Run("empty and null decode to empty set", func(t *testing.T) {
		for _, in := range []string{"", "null", "[]"} {
			s, err := Decode(in)
			require.NoError(t, err, in)
			assert.Empty(t, s, in)
			assert.NotNil(t, s, in)
		}
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		_, err := Decode(`["a"]`)
		assert.Error(t, err)
		_, err = Decode(`{`)
		assert.Error(t, err)
	})

	t.Run("rejects trailing data", func(t *testing.T) {
		for _, in := range []string{"[1,2]garbage", "[1,2][3]", "[1] 2", "null x"} {
			_, err := Decode(in)
			assert.Error(t, err, in)
		}
		s, err := Decode("[1,2] \n")
		require.NoError(t, err)
		assert.Equal(t, Set{1, 2}, s)
	})
}

func genSet(t *rapid.T) Set {
	return Of(rapid.SliceOf(rapid.IntRange(1, 40)).Draw(t, "ids")...)
}

func TestSet_Properties(t *testing.T) {
	t.Run("toggle twice restores membership", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			s := genSet(t)
			id := rapid.IntRange(1, 40).Draw(t, "id")

			once, _ := s.Toggle(id)
			twice, _ := once.Toggle(id)

			assert.ElementsMatch(t, s, twice)
		})
	})

	t.Run("add is idempotent", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			s := genSet(t)
			id := rapid.IntRange(1, 40).Draw(t, "id")

			once, _ := s.Add(id)
			twice, changed := once.Add(id)

			assert.False(t, changed)
			assert.Equal(t, once, twice)
		})
	})

	t.Run("codec round trips", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			s := genSet(t)
			got, err := Decode(s.Encode())
			require.NoError(t, err)
			assert.Equal(t, s.Clone(), got)
		})
	})
}
