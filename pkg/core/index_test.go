package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedBooks(t *testing.T, s *Store) {
	t.Helper()
	docs := []Document{
		{IDField: "hobbit", "title": "The Hobbit", "author": "Tolkien", "published_year": 1937},
		{IDField: "lotr", "title": "The Lord of the Rings", "author": "Tolkien", "published_year": 1954},
		{IDField: "1984", "title": "1984", "author": "Orwell", "published_year": 1949},
		{IDField: "farm", "title": "Animal Farm", "author": "Orwell", "published_year": 1945},
		{IDField: "anon", "title": "Beowulf"},
	}
	_, err := s.InsertMany(docs)
	require.NoError(t, err)
}

func TestIndexNaming(t *testing.T) {
	s := NewStore()

	info, err := s.CreateIndex(Asc("title"))
	require.NoError(t, err)
	assert.Equal(t, "title_1", info.Name)

	info, err = s.CreateIndex(Asc("author"), Desc("published_year"))
	require.NoError(t, err)
	assert.Equal(t, "author_1_published_year_-1", info.Name)

	// Creating the same index again returns the existing one.
	_, err = s.CreateIndex(Asc("title"))
	require.NoError(t, err)
	names := []string{}
	for _, idx := range s.Indexes() {
		names = append(names, idx.Name)
	}
	assert.Equal(t, []string{"title_1", "author_1_published_year_-1"}, names)
}

func TestIndexValidation(t *testing.T) {
	s := NewStore()
	cases := map[string][]IndexField{
		"no fields":     nil,
		"empty name":    {Asc("")},
		"bad direction": {{Name: "a", Direction: 0}},
		"repeated":      {Asc("a"), Desc("a")},
	}
	for name, fields := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.CreateIndex(fields...)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}

	assert.ErrorIs(t, s.DropIndex("missing_1"), ErrNotFound)
}

func TestIndexLookup(t *testing.T) {
	s := NewStore()
	seedBooks(t, s)

	_, ok := s.Lookup([]string{"title"}, []any{"1984"})
	assert.False(t, ok, "no index registered yet")

	_, err := s.CreateIndex(Asc("title"))
	require.NoError(t, err)
	_, err = s.CreateIndex(Asc("author"), Desc("published_year"))
	require.NoError(t, err)

	t.Run("single field", func(t *testing.T) {
		res, ok := s.Lookup([]string{"title"}, []any{"1984"})
		require.True(t, ok)
		assert.Equal(t, "title_1", res.IndexName)
		assert.Equal(t, []string{"1984"}, res.IDs)
	})

	t.Run("compound prefix in index order", func(t *testing.T) {
		res, ok := s.Lookup([]string{"author"}, []any{"Tolkien"})
		require.True(t, ok)
		assert.Equal(t, "author_1_published_year_-1", res.IndexName)
		// published_year descending
		assert.Equal(t, []string{"lotr", "hobbit"}, res.IDs)
	})

	t.Run("full compound key", func(t *testing.T) {
		res, ok := s.Lookup([]string{"published_year", "author"}, []any{1945, "Orwell"})
		require.True(t, ok)
		assert.Equal(t, []string{"farm"}, res.IDs)
	})

	t.Run("non-leading field cannot use compound index", func(t *testing.T) {
		_, ok := s.Lookup([]string{"published_year"}, []any{1945})
		assert.False(t, ok)
	})

	t.Run("missing field indexes as null", func(t *testing.T) {
		res, ok := s.Lookup([]string{"author"}, []any{nil})
		require.True(t, ok)
		assert.Equal(t, []string{"anon"}, res.IDs)
	})

	t.Run("numeric kinds compare by value", func(t *testing.T) {
		res, ok := s.Lookup([]string{"author", "published_year"}, []any{"Orwell", 1949.0})
		require.True(t, ok)
		assert.Equal(t, []string{"1984"}, res.IDs)
	})

	t.Run("no match", func(t *testing.T) {
		res, ok := s.Lookup([]string{"title"}, []any{"Ulysses"})
		require.True(t, ok)
		assert.Empty(t, res.IDs)
	})
}

func TestIndexMaintenance(t *testing.T) {
	s := NewStore()
	_, err := s.CreateIndex(Asc("title"))
	require.NoError(t, err)
	seedBooks(t, s)

	lookup := func(title string) []string {
		res, ok := s.Lookup([]string{"title"}, []any{title})
		require.True(t, ok)
		return res.IDs
	}

	// 1. Update re-keys the document.
	_, err = s.Update("1984", Set(map[string]any{"title": "Nineteen Eighty-Four"}))
	require.NoError(t, err)
	assert.Empty(t, lookup("1984"))
	assert.Equal(t, []string{"1984"}, lookup("Nineteen Eighty-Four"))

	// 2. Unset moves it to the null key.
	_, err = s.Update("farm", Patch{Unset: []string{"title"}})
	require.NoError(t, err)
	res, ok := s.Lookup([]string{"title"}, []any{nil})
	require.True(t, ok)
	assert.Equal(t, []string{"farm"}, res.IDs)

	// 3. Delete removes the entry.
	require.NoError(t, s.Delete("hobbit"))
	assert.Empty(t, lookup("The Hobbit"))
	assert.Equal(t, s.Len(), s.Indexes()[0].Entries)

	// 4. Rebuild leaves the same content.
	s.RebuildIndexes()
	assert.Equal(t, []string{"lotr"}, lookup("The Lord of the Rings"))
	assert.Equal(t, s.Len(), s.Indexes()[0].Entries)

	// 5. Dropped indexes are no longer used.
	require.NoError(t, s.DropIndex("title_1"))
	_, ok = s.Lookup([]string{"title"}, []any{"1984"})
	assert.False(t, ok)
}

func TestCandidates(t *testing.T) {
	s := NewStore()
	seedBooks(t, s)

	cands := s.Candidates([]EqualityTerm{{Field: "author", Value: "Tolkien"}})
	assert.False(t, cands.IndexUsed())
	assert.Len(t, cands.Records, 5)

	_, err := s.CreateIndex(Asc("author"), Desc("published_year"))
	require.NoError(t, err)

	cands = s.Candidates([]EqualityTerm{{Field: "author", Value: "Tolkien"}})
	require.True(t, cands.IndexUsed())
	require.Len(t, cands.Records, 2)
	// Candidates come back in insertion order, not index order.
	assert.Equal(t, "hobbit", cands.Records[0].Doc.ID())
	assert.Equal(t, "lotr", cands.Records[1].Doc.ID())
	assert.GreaterOrEqual(t, cands.KeysExamined, 2)
}
